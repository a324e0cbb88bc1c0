package stream

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/pipeline"
	"github.com/kbukum/streamkit/storage"
	"github.com/kbukum/streamkit/typer"
)

// File is a file on the local disk. Its suffixes decide how it is decoded:
// Content undoes compression (".zst", ".gz") and Stream also opens archives
// (".tar", ".zip").
type File struct {
	Path string

	opts []Option
}

// NewFile returns the file at path. opts apply to the pipelines it opens.
func NewFile(path string, opts ...Option) *File {
	return &File{Path: path, opts: opts}
}

func (f *File) Name() string { return filepath.Base(f.Path) }

// Raw streams the bytes on disk. The file is opened by every pull and closed
// when the pull ends.
func (f *File) Raw() *Bytes {
	p := f.Path
	return fromOpener(p, func(context.Context) (io.ReadCloser, error) {
		return os.Open(p)
	}, newOptions(f.opts))
}

// Content streams the file with every compression suffix undone, outermost
// first: "a.txt.gz.zst" is zstd-decoded, then gunzipped.
func (f *File) Content() *Bytes {
	b, _ := f.decompressed()
	return b
}

// decompressed returns the decoded content and the name left once the
// compression suffixes are stripped.
func (f *File) decompressed() (*Bytes, string) {
	b, name := f.Raw(), f.Name()
	for {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".zst", ".zstd":
			b = b.FromZstd()
		case ".gz", ".gzip":
			b = b.FromGzip()
		default:
			return b, name
		}
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
}

// Stream decodes the file as far as its suffixes go. Archives yield an
// *Objects of entries; anything else is the decompressed *Bytes. A plain
// ".zip" is read with random access instead of being buffered.
func (f *File) Stream() Stream {
	b, name := f.decompressed()
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tar":
		return b.FromTar()
	case ".zip":
		if name == f.Name() {
			return f.openZip()
		}
		return b.FromZip()
	}
	return b
}

func (f *File) openZip() *Objects {
	o := newOptions(f.opts)
	p := f.Path
	src := pipeline.FromFunc(func(context.Context) pipeline.Iterator[Pair] {
		var entries []Pair
		loaded := false
		return &pipeline.FuncIter[Pair]{
			NextFunc: func(context.Context) (Pair, bool, error) {
				if !loaded {
					zr, err := zip.OpenReader(p)
					if err != nil {
						return Pair{}, false, readErr(p, err)
					}
					entries = zipEntries(zr.File, func(i int) func(context.Context) (io.ReadCloser, error) {
						return func(context.Context) (io.ReadCloser, error) { return openZipMember(p, i) }
					}, o)
					if err := zr.Close(); err != nil {
						o.log.Warn("closing archive failed", logger.Fields(logger.FieldPath, p, logger.FieldError, err.Error()))
					}
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
	return newObjects(src, entryTyper, typer.Schema{}, o)
}

// openZipMember reopens the archive at p and returns member i. Closing the
// result closes the archive too.
func openZipMember(p string, i int) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, err
	}
	rc, err := zr.File[i].Open()
	if err != nil {
		zr.Close()
		return nil, err
	}
	return &stackedCloser{ReadCloser: rc, outer: zr}, nil
}

type stackedCloser struct {
	io.ReadCloser
	outer io.Closer
}

func (s *stackedCloser) Close() error {
	err := s.ReadCloser.Close()
	if cerr := s.outer.Close(); err == nil {
		err = cerr
	}
	return err
}

// Object is an object in a storage backend.
type Object struct {
	Store storage.Storage
	Key   string

	opts []Option
}

// NewObject returns the object under key in store.
func NewObject(store storage.Storage, key string, opts ...Option) *Object {
	return &Object{Store: store, Key: key, opts: opts}
}

func (o *Object) Name() string { return path.Base(o.Key) }

// Content downloads the object. Every pull starts a new download.
func (o *Object) Content() *Bytes {
	store, key := o.Store, o.Key
	return fromOpener(key, func(ctx context.Context) (io.ReadCloser, error) {
		return store.Download(ctx, key)
	}, newOptions(o.opts))
}
