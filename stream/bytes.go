package stream

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/pipeline"
	"github.com/kbukum/streamkit/storage"
	"github.com/kbukum/streamkit/typer"
)

// Bytes is a pipeline of byte chunks. Chunk boundaries carry no meaning;
// terminals see the concatenation.
type Bytes struct {
	p    *pipeline.Pipeline[[]byte]
	err  error
	opts *options
}

func newBytes(p *pipeline.Pipeline[[]byte], o *options) *Bytes {
	return &Bytes{p: p, opts: o}
}

func failedBytes(err error, o *options) *Bytes {
	return &Bytes{p: pipeline.Empty[[]byte](), err: err, opts: o}
}

// FromBytes streams b as a single chunk. The pipeline can be pulled any
// number of times.
func FromBytes(b []byte, opts ...Option) *Bytes {
	var chunks [][]byte
	if len(b) > 0 {
		chunks = [][]byte{b}
	}
	return newBytes(pipeline.FromSlice(chunks), newOptions(opts))
}

// FromReader streams r in chunks of the configured size. r is read by the
// first terminal only and closed afterwards if it is an io.Closer.
func FromReader(r io.Reader, opts ...Option) *Bytes {
	o := newOptions(opts)
	p := pipeline.FromOnce(func(context.Context) pipeline.Iterator[[]byte] {
		return readerIter("reader", r, o.chunkSize, closerOf(r))
	})
	return newBytes(p, o)
}

// fromOpener streams whatever open returns, opening it again on every pull.
func fromOpener(source string, open func(context.Context) (io.ReadCloser, error), o *options) *Bytes {
	p := pipeline.FromFunc(func(context.Context) pipeline.Iterator[[]byte] {
		var inner pipeline.Iterator[[]byte]
		return &pipeline.FuncIter[[]byte]{
			NextFunc: func(ctx context.Context) ([]byte, bool, error) {
				if inner == nil {
					rc, err := open(ctx)
					if err != nil {
						return nil, false, readErr(source, err)
					}
					inner = readerIter(source, rc, o.chunkSize, rc.Close)
				}
				return inner.Next(ctx)
			},
			CloseFunc: func() error {
				if inner == nil {
					return nil
				}
				return inner.Close()
			},
		}
	})
	return newBytes(p, o)
}

func closerOf(r io.Reader) func() error {
	if c, ok := r.(io.Closer); ok {
		return c.Close
	}
	return nil
}

// readerIter reads r in chunks of size bytes.
func readerIter(source string, r io.Reader, size int, closeFn func() error) pipeline.Iterator[[]byte] {
	done := false
	return &pipeline.FuncIter[[]byte]{
		NextFunc: func(ctx context.Context) ([]byte, bool, error) {
			if done {
				return nil, false, nil
			}
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
			buf := make([]byte, size)
			n, err := io.ReadFull(r, buf)
			switch err {
			case nil:
				return buf, true, nil
			case io.EOF:
				done = true
				return nil, false, nil
			case io.ErrUnexpectedEOF:
				done = true
				return buf[:n], true, nil
			}
			return nil, false, readErr(source, err)
		},
		CloseFunc: closeFn,
	}
}

// chunkReader exposes a chunk iterator as an io.Reader.
type chunkReader struct {
	ctx context.Context
	it  pipeline.Iterator[[]byte]
	buf []byte
	err error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		chunk, ok, err := r.it.Next(r.ctx)
		switch {
		case err != nil:
			r.err = err
		case !ok:
			r.err = io.EOF
		default:
			r.buf = chunk
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *chunkReader) Close() error { return r.it.Close() }

func (b *Bytes) Kind() Kind { return KindBytes }

func (b *Bytes) Err() error { return b.err }

func (b *Bytes) elements() *pipeline.Pipeline[Pair] {
	return pipeline.Map(b.p, func(_ context.Context, chunk []byte) (Pair, error) {
		return Pair{Value: chunk}, nil
	})
}

func (b *Bytes) elemType() typer.Typer { return typer.Of[[]byte]() }

func (b *Bytes) attachSchema() typer.Schema { return typer.Schema{} }

// Objects views every chunk as an element.
func (b *Bytes) Objects() *Objects {
	if b.err != nil {
		return failedObjects(b.err, b.opts)
	}
	return newObjects(b.elements(), b.elemType(), typer.Schema{}, b.opts)
}

// Chunk re-splits the stream into chunks of exactly size bytes; only the
// last one may be shorter. A size of 0 uses the configured chunk size.
func (b *Bytes) Chunk(size int) *Bytes {
	if b.err != nil {
		return b
	}
	if size <= 0 {
		size = b.opts.chunkSize
	}
	src := b.p
	p := pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[[]byte] {
		it := src.Iter(ctx)
		var (
			pending []byte
			done    bool
		)
		return &pipeline.FuncIter[[]byte]{
			NextFunc: func(ctx context.Context) ([]byte, bool, error) {
				for !done && len(pending) < size {
					chunk, ok, err := it.Next(ctx)
					if err != nil {
						return nil, false, err
					}
					if !ok {
						done = true
						break
					}
					pending = append(pending, chunk...)
				}
				if len(pending) == 0 {
					return nil, false, nil
				}
				n := min(size, len(pending))
				out := bytes.Clone(pending[:n])
				pending = pending[n:]
				return out, true, nil
			},
			CloseFunc: it.Close,
		}
	})
	return newBytes(p, b.opts)
}

func (b *Bytes) reader(ctx context.Context) *chunkReader {
	return &chunkReader{ctx: ctx, it: b.p.Iter(ctx)}
}

func (b *Bytes) logClose(op string, err error) {
	if err != nil {
		b.opts.log.Warn("closing pipeline failed", logger.ErrorFields(op, err))
	}
}

// ToBytes returns the concatenated stream.
func (b *Bytes) ToBytes(ctx context.Context) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	var buf bytes.Buffer
	err := b.opts.run(ctx, "stream.ToBytes", func(ctx context.Context, op *observability.Operation) error {
		return b.copyTo(ctx, op, "stream.ToBytes", &buf)
	})
	return buf.Bytes(), err
}

// ToList returns the chunks as they are produced.
func (b *Bytes) ToList(ctx context.Context) ([][]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	var out [][]byte
	err := b.opts.run(ctx, "stream.Bytes.ToList", func(ctx context.Context, op *observability.Operation) error {
		it := b.p.Iter(ctx)
		defer func() { b.logClose("stream.Bytes.ToList", it.Close()) }()
		for {
			chunk, ok, err := it.Next(ctx)
			if err != nil || !ok {
				return err
			}
			op.AddElements(1)
			op.AddBytes(int64(len(chunk)))
			out = append(out, chunk)
		}
	})
	return out, err
}

func (b *Bytes) copyTo(ctx context.Context, op *observability.Operation, name string, w io.Writer) error {
	it := b.p.Iter(ctx)
	defer func() { b.logClose(name, it.Close()) }()
	for {
		chunk, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return err
		}
		op.AddElements(1)
		op.AddBytes(int64(len(chunk)))
		if _, err := w.Write(chunk); err != nil {
			return errors.SinkWrite(name, err)
		}
	}
}

// Write streams the bytes into path. Data goes to a temporary file in the
// same directory that replaces path only once everything was written, so
// path is never left half-written.
func (b *Bytes) Write(ctx context.Context, path string) error {
	if b.err != nil {
		return b.err
	}
	return b.opts.run(ctx, "stream.Write", func(ctx context.Context, op *observability.Operation) error {
		dir, base := filepath.Split(path)
		if dir == "" {
			dir = "."
		}
		tmp := filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")
		f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return errors.SinkWrite(path, err)
		}
		if err := b.copyTo(ctx, op, "stream.Write", f); err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
			return err
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(tmp)
			return errors.SinkWrite(path, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			return errors.SinkWrite(path, err)
		}
		return nil
	}, attribute.String(observability.AttrPath, path))
}

// ToObjectStore uploads the bytes to store under key. A failed upload is
// logged and counted and reported as false; it never panics or returns an
// error.
func (b *Bytes) ToObjectStore(ctx context.Context, store storage.Storage, key string) bool {
	err := b.err
	if err == nil && store == nil {
		err = errors.InvalidInput("store", "no object store given")
	}
	if err == nil {
		err = b.opts.run(ctx, "stream.ToObjectStore", func(ctx context.Context, op *observability.Operation) error {
			r := b.reader(ctx)
			defer func() { b.logClose("stream.ToObjectStore", r.Close()) }()
			if err := store.Upload(ctx, key, &countingReader{r: r, op: op}); err != nil {
				if r.err != nil && r.err != io.EOF {
					return r.err
				}
				return err
			}
			return nil
		}, attribute.String(observability.AttrKey, key))
	}
	if err != nil {
		provider := storage.ProviderName(store)
		b.opts.log.Error("upload failed", logger.Fields(
			logger.FieldOperation, "stream.ToObjectStore",
			logger.FieldKey, key,
			logger.FieldProvider, provider,
			logger.FieldError, err.Error(),
		))
		b.opts.metrics.RecordUploadFailure(ctx, provider)
		return false
	}
	return true
}

type countingReader struct {
	r  io.Reader
	op *observability.Operation
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.op.AddBytes(int64(n))
	return n, err
}

// Reader returns the stream as an io.ReadCloser. The caller closes it to
// release the sources.
func (b *Bytes) Reader(ctx context.Context) io.ReadCloser {
	if b.err != nil {
		return &chunkReader{ctx: ctx, it: pipeline.Empty[[]byte]().Iter(ctx), err: b.err}
	}
	return b.reader(ctx)
}
