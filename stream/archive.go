package stream

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/pipeline"
	"github.com/kbukum/streamkit/typer"
)

// VirtualFile is a named blob whose content is produced on demand. Objects
// of virtual files can be archived with ToZip.
type VirtualFile interface {
	Name() string
	Content() *Bytes
}

// Entry is one member of an archive. Its content is produced lazily each
// time Content is called.
type Entry struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
	content func() *Bytes
}

// NewEntry returns a regular file entry whose content comes from content.
func NewEntry(name string, content func() *Bytes) *Entry {
	return &Entry{name: name, size: -1, content: content}
}

// NewDir returns a directory entry.
func NewDir(name string) *Entry {
	return &Entry{name: strings.TrimSuffix(name, "/"), dir: true}
}

// WithModTime returns a copy of e with the modification time set.
func (e *Entry) WithModTime(t time.Time) *Entry {
	c := *e
	c.modTime = t
	return &c
}

func (e *Entry) Name() string { return e.name }

// Size returns the uncompressed size recorded in the archive, or -1 when
// unknown.
func (e *Entry) Size() int64 { return e.size }

func (e *Entry) ModTime() time.Time { return e.modTime }

func (e *Entry) IsDir() bool { return e.dir }

// Content returns the entry's bytes, or nil for directories and entries
// without data.
func (e *Entry) Content() *Bytes {
	if e.dir || e.content == nil {
		return nil
	}
	return e.content()
}

func (e *Entry) String() string { return e.name }

var entryTyper = typer.Of[*Entry]()

// FromZip reads the stream as a zip archive and yields its entries in
// directory order. The whole archive is buffered in memory, since zip needs
// random access to its central directory.
func (b *Bytes) FromZip() *Objects {
	if b.err != nil {
		return failedObjects(b.err, b.opts)
	}
	src, o := b, b.opts
	p := pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[Pair] {
		var entries []Pair
		loaded := false
		return &pipeline.FuncIter[Pair]{
			NextFunc: func(ctx context.Context) (Pair, bool, error) {
				if !loaded {
					data, err := src.collect(ctx)
					if err != nil {
						return Pair{}, false, err
					}
					zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
					if err != nil {
						return Pair{}, false, readErr("zip", err)
					}
					entries = zipEntries(zr.File, func(i int) func(context.Context) (io.ReadCloser, error) {
						return func(context.Context) (io.ReadCloser, error) { return zr.File[i].Open() }
					}, o)
					loaded = true
				}
				if len(entries) == 0 {
					return Pair{}, false, nil
				}
				e := entries[0]
				entries = entries[1:]
				return e, true, nil
			},
		}
	})
	return newObjects(p, entryTyper, typer.Schema{}, o)
}

func zipEntries(files []*zip.File, open func(int) func(context.Context) (io.ReadCloser, error), o *options) []Pair {
	out := make([]Pair, len(files))
	for i, f := range files {
		e := &Entry{
			name:    strings.TrimSuffix(f.Name, "/"),
			size:    int64(f.UncompressedSize64),
			modTime: f.Modified,
			dir:     f.FileInfo().IsDir(),
		}
		if !e.dir {
			source, opener := "zip:"+f.Name, open(i)
			e.content = func() *Bytes { return fromOpener(source, opener, o) }
		}
		out[i] = Pair{Value: e}
	}
	return out
}

// collect reads the whole stream without recording a terminal operation.
func (b *Bytes) collect(ctx context.Context) ([]byte, error) {
	it := b.p.Iter(ctx)
	defer func() { b.logClose("collect", it.Close()) }()
	var buf bytes.Buffer
	for {
		chunk, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return buf.Bytes(), nil
		}
		buf.Write(chunk)
	}
}

// FromTar reads the stream as a tar archive and yields its entries as they
// are reached. Each regular file is read into memory when its header is
// passed, so entry content stays available after the archive moves on.
// Directories and special files have no content.
func (b *Bytes) FromTar() *Objects {
	if b.err != nil {
		return failedObjects(b.err, b.opts)
	}
	src, o := b, b.opts
	p := pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[Pair] {
		in := src.reader(ctx)
		tr := tar.NewReader(in)
		return &pipeline.FuncIter[Pair]{
			NextFunc: func(ctx context.Context) (Pair, bool, error) {
				in.ctx = ctx
				hdr, err := tr.Next()
				if err == io.EOF {
					return Pair{}, false, nil
				}
				if err != nil {
					return Pair{}, false, readErr("tar", err)
				}
				e := &Entry{
					name:    strings.TrimSuffix(hdr.Name, "/"),
					size:    hdr.Size,
					modTime: hdr.ModTime,
					dir:     hdr.Typeflag == tar.TypeDir,
				}
				if hdr.Typeflag == tar.TypeReg {
					data, err := io.ReadAll(tr)
					if err != nil {
						return Pair{}, false, readErr("tar:"+hdr.Name, err)
					}
					e.content = func() *Bytes { return FromBytes(data, o.inherit()) }
				}
				return Pair{Value: e}, true, nil
			},
			CloseFunc: in.Close,
		}
	})
	return newObjects(p, entryTyper, typer.Schema{}, o)
}

// ZipOption configures ToZip.
type ZipOption func(*zipOptions)

type zipOptions struct {
	method uint16
	level  int
	zip64  bool
}

// WithZipStore stores entries without compression.
func WithZipStore() ZipOption {
	return func(z *zipOptions) { z.method = zip.Store }
}

// WithZipLevel sets the deflate level, from flate.BestSpeed to
// flate.BestCompression.
func WithZipLevel(level int) ZipOption {
	return func(z *zipOptions) {
		z.method = zip.Deflate
		z.level = level
	}
}

// WithZip64 controls whether entries may exceed 4 GiB. When disabled, such
// an entry fails the pull.
func WithZip64(enabled bool) ZipOption {
	return func(z *zipOptions) { z.zip64 = enabled }
}

var virtualFileType = typer.Of[VirtualFile]().Type()

// ToZip archives the elements, which must be virtual files, into a zip
// stream. Entries are written one at a time as the output is pulled; nothing
// is buffered beyond the current chunk. nil elements are skipped.
func (s *Objects) ToZip(opts ...ZipOption) *Bytes {
	if s.err != nil {
		return failedBytes(s.err, s.opts)
	}
	if !s.typ.Implements(virtualFileType) && !s.typ.IsDynamic() {
		return failedBytes(errors.UnsupportedElementType("ToZip", s.typ.String()), s.opts)
	}
	cfg := zipOptions{method: zip.Deflate, level: flate.DefaultCompression, zip64: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	src := s.p
	p := pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[[]byte] {
		w := &zipStream{cfg: cfg, src: src.Iter(ctx)}
		w.zw = zip.NewWriter(&w.buf)
		w.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, cfg.level)
		})
		return &pipeline.FuncIter[[]byte]{NextFunc: w.next, CloseFunc: w.close}
	})
	return newBytes(p, s.opts)
}

type zipStream struct {
	cfg     zipOptions
	src     pipeline.Iterator[Pair]
	zw      *zip.Writer
	buf     bytes.Buffer
	entry   io.Writer
	name    string
	written uint64
	cur     pipeline.Iterator[[]byte]
	done    bool
}

func (z *zipStream) next(ctx context.Context) ([]byte, bool, error) {
	for z.buf.Len() == 0 {
		if z.done {
			return nil, false, nil
		}
		if z.cur != nil {
			if err := z.copyChunk(ctx); err != nil {
				return nil, false, err
			}
			continue
		}
		in, ok, err := z.src.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			z.done = true
			if err := z.zw.Close(); err != nil {
				return nil, false, errors.SinkWrite("zip", err)
			}
			continue
		}
		if err := z.open(ctx, in.Value); err != nil {
			return nil, false, err
		}
	}
	out := bytes.Clone(z.buf.Bytes())
	z.buf.Reset()
	return out, true, nil
}

func (z *zipStream) open(ctx context.Context, v any) error {
	if isNil(v) {
		return nil
	}
	vf, ok := v.(VirtualFile)
	if !ok {
		return errors.UnsupportedElementType("ToZip", fmt.Sprintf("%T", v))
	}
	hdr := &zip.FileHeader{Name: vf.Name(), Method: z.cfg.method}
	if mt, ok := v.(interface{ ModTime() time.Time }); ok && !mt.ModTime().IsZero() {
		hdr.Modified = mt.ModTime()
	}
	if d, ok := v.(interface{ IsDir() bool }); ok && d.IsDir() {
		if !strings.HasSuffix(hdr.Name, "/") {
			hdr.Name += "/"
		}
		hdr.Method = zip.Store
		if _, err := z.zw.CreateHeader(hdr); err != nil {
			return errors.SinkWrite("zip:"+hdr.Name, err)
		}
		return nil
	}
	w, err := z.zw.CreateHeader(hdr)
	if err != nil {
		return errors.SinkWrite("zip:"+hdr.Name, err)
	}
	content := vf.Content()
	if content == nil {
		return nil
	}
	if err := content.Err(); err != nil {
		return err
	}
	z.entry, z.name, z.written = w, hdr.Name, 0
	z.cur = content.p.Iter(ctx)
	return nil
}

func (z *zipStream) copyChunk(ctx context.Context) error {
	chunk, ok, err := z.cur.Next(ctx)
	if err != nil {
		return err
	}
	if !ok {
		err := z.cur.Close()
		z.cur = nil
		return err
	}
	z.written += uint64(len(chunk))
	if !z.cfg.zip64 && z.written > math.MaxUint32 {
		return errors.SinkWrite("zip:"+z.name, fmt.Errorf("entry exceeds 4 GiB and zip64 is disabled"))
	}
	if _, err := z.entry.Write(chunk); err != nil {
		return errors.SinkWrite("zip:"+z.name, err)
	}
	return nil
}

func (z *zipStream) close() error {
	var err error
	if z.cur != nil {
		err = z.cur.Close()
		z.cur = nil
	}
	return errors.Join(err, z.src.Close())
}
