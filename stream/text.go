package stream

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/pipeline"
	"github.com/kbukum/streamkit/typer"
)

// Text is a pipeline of string chunks. Chunks never split a rune.
type Text struct {
	p    *pipeline.Pipeline[string]
	err  error
	opts *options
}

func newText(p *pipeline.Pipeline[string], o *options) *Text {
	return &Text{p: p, opts: o}
}

func failedText(err error, o *options) *Text {
	return &Text{p: pipeline.Empty[string](), err: err, opts: o}
}

// FromString streams s as a single chunk.
func FromString(s string, opts ...Option) *Text {
	var chunks []string
	if s != "" {
		chunks = []string{s}
	}
	return newText(pipeline.FromSlice(chunks), newOptions(opts))
}

func (t *Text) Kind() Kind { return KindText }

func (t *Text) Err() error { return t.err }

func (t *Text) elements() *pipeline.Pipeline[Pair] {
	return pipeline.Map(t.p, func(_ context.Context, s string) (Pair, error) {
		return Pair{Value: s}, nil
	})
}

func (t *Text) elemType() typer.Typer { return typer.Of[string]() }

func (t *Text) attachSchema() typer.Schema { return typer.Schema{} }

// Objects views every chunk as an element.
func (t *Text) Objects() *Objects {
	if t.err != nil {
		return failedObjects(t.err, t.opts)
	}
	return newObjects(t.elements(), t.elemType(), typer.Schema{}, t.opts)
}

// Lines splits the text on '\n'. A trailing '\r' is dropped from every line
// and an unterminated last line is still yielded. Lines are produced as the
// chunks arrive.
func (t *Text) Lines() *Objects {
	if t.err != nil {
		return failedObjects(t.err, t.opts)
	}
	src := t.p
	p := pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[Pair] {
		it := src.Iter(ctx)
		var (
			pending strings.Builder
			ready   []string
			done    bool
		)
		return &pipeline.FuncIter[Pair]{
			NextFunc: func(ctx context.Context) (Pair, bool, error) {
				for len(ready) == 0 {
					if done {
						return Pair{}, false, nil
					}
					chunk, ok, err := it.Next(ctx)
					if err != nil {
						return Pair{}, false, err
					}
					if !ok {
						done = true
						if pending.Len() > 0 {
							ready = append(ready, pending.String())
						}
						continue
					}
					for {
						i := strings.IndexByte(chunk, '\n')
						if i < 0 {
							pending.WriteString(chunk)
							break
						}
						pending.WriteString(chunk[:i])
						ready = append(ready, strings.TrimSuffix(pending.String(), "\r"))
						pending.Reset()
						chunk = chunk[i+1:]
					}
				}
				line := ready[0]
				ready = ready[1:]
				return Pair{Value: line}, true, nil
			},
			CloseFunc: it.Close,
		}
	})
	return newObjects(p, typer.Of[string](), typer.Schema{}, t.opts)
}

// CSV parses the text as comma-separated values. The first row is the
// header; every later row becomes a *Record whose fields are read by header
// name.
func (t *Text) CSV() *Objects {
	if t.err != nil {
		return failedObjects(t.err, t.opts)
	}
	src := t.p
	p := pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[Pair] {
		in := &textReader{ctx: ctx, it: src.Iter(ctx)}
		r := csv.NewReader(in)
		var header []string
		return &pipeline.FuncIter[Pair]{
			NextFunc: func(ctx context.Context) (Pair, bool, error) {
				in.ctx = ctx
				if header == nil {
					row, err := r.Read()
					if err == io.EOF {
						return Pair{}, false, nil
					}
					if err != nil {
						return Pair{}, false, readErr("csv", err)
					}
					header = row
				}
				row, err := r.Read()
				if err == io.EOF {
					return Pair{}, false, nil
				}
				if err != nil {
					return Pair{}, false, readErr("csv", err)
				}
				return Pair{Value: newRecord(header, row)}, true, nil
			},
			CloseFunc: in.Close,
		}
	})
	return newObjects(p, typer.Of[*Record](), typer.Schema{}, t.opts)
}

// Encode encodes the text in the named charset. An empty name uses the
// configured charset. Characters the charset cannot represent fail the
// pull.
func (t *Text) Encode(name string) *Bytes {
	if t.err != nil {
		return failedBytes(t.err, t.opts)
	}
	if name == "" {
		name = t.opts.charset
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return failedBytes(errors.InvalidInput("charset", "unknown charset "+name), t.opts)
	}
	src := t.p
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return newBytes(pipeline.Map(src, func(_ context.Context, s string) ([]byte, error) {
			return []byte(s), nil
		}), t.opts)
	}
	size := t.opts.chunkSize
	p := pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[[]byte] {
		in := &textReader{ctx: ctx, it: src.Iter(ctx)}
		out := readerIter("encode "+name, transform.NewReader(in, enc.NewEncoder()), size, in.Close)
		return &pipeline.FuncIter[[]byte]{
			NextFunc: func(ctx context.Context) ([]byte, bool, error) {
				in.ctx = ctx
				return out.Next(ctx)
			},
			CloseFunc: out.Close,
		}
	})
	return newBytes(p, t.opts)
}

// Utf8 encodes the text as UTF-8.
func (t *Text) Utf8() *Bytes {
	return t.Encode("utf-8")
}

// ToStr returns the concatenated text.
func (t *Text) ToStr(ctx context.Context) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	var sb strings.Builder
	err := t.opts.run(ctx, "stream.ToStr", func(ctx context.Context, op *observability.Operation) error {
		it := t.p.Iter(ctx)
		defer func() { t.logClose("stream.ToStr", it.Close()) }()
		for {
			chunk, ok, err := it.Next(ctx)
			if err != nil || !ok {
				return err
			}
			op.AddElements(1)
			op.AddBytes(int64(len(chunk)))
			sb.WriteString(chunk)
		}
	})
	return sb.String(), err
}

// ToList returns the chunks as they are produced.
func (t *Text) ToList(ctx context.Context) ([]string, error) {
	if t.err != nil {
		return nil, t.err
	}
	return CollectAs[string](ctx, t.Objects())
}

func (t *Text) logClose(op string, err error) {
	if err != nil {
		t.opts.log.Warn("closing pipeline failed", logger.ErrorFields(op, err))
	}
}

// textReader exposes a string chunk iterator as an io.Reader.
type textReader struct {
	ctx context.Context
	it  pipeline.Iterator[string]
	buf string
	err error
}

func (r *textReader) Read(p []byte) (int, error) {
	for r.buf == "" {
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

func (r *textReader) Close() error { return r.it.Close() }
