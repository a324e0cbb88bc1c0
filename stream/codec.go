package stream

import (
	"bytes"
	"context"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/pipeline"
)

// opener wraps the upstream reader in a decoder. The returned close func may
// be nil.
type opener func(io.Reader) (io.Reader, func() error, error)

// decode runs the stream through the decoder built by open. The decoder is
// created on the first pull, so nothing is read before a terminal runs.
func (b *Bytes) decode(name string, open opener) *pipeline.Pipeline[[]byte] {
	src, size := b, b.opts.chunkSize
	return pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[[]byte] {
		in := src.reader(ctx)
		var (
			inner    pipeline.Iterator[[]byte]
			closeDec func() error
		)
		return &pipeline.FuncIter[[]byte]{
			NextFunc: func(ctx context.Context) ([]byte, bool, error) {
				in.ctx = ctx
				if inner == nil {
					r, c, err := open(in)
					if err != nil {
						return nil, false, readErr(name, err)
					}
					inner, closeDec = readerIter(name, r, size, nil), c
				}
				return inner.Next(ctx)
			},
			CloseFunc: func() error {
				var err error
				if closeDec != nil {
					err = closeDec()
				}
				return errors.Join(err, in.Close())
			},
		}
	})
}

// encode runs the stream through the writer built by open and yields
// whatever it has flushed after each upstream chunk.
func (b *Bytes) encode(name string, open func(io.Writer) (io.WriteCloser, error)) *Bytes {
	src := b.p
	p := pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[[]byte] {
		it := src.Iter(ctx)
		var (
			buf  bytes.Buffer
			w    io.WriteCloser
			done bool
		)
		return &pipeline.FuncIter[[]byte]{
			NextFunc: func(ctx context.Context) ([]byte, bool, error) {
				if w == nil {
					var err error
					if w, err = open(&buf); err != nil {
						return nil, false, errors.InvalidInput(name, err.Error())
					}
				}
				for buf.Len() == 0 {
					if done {
						return nil, false, nil
					}
					chunk, ok, err := it.Next(ctx)
					if err != nil {
						return nil, false, err
					}
					if !ok {
						done = true
						if err := w.Close(); err != nil {
							return nil, false, readErr(name, err)
						}
						continue
					}
					if _, err := w.Write(chunk); err != nil {
						return nil, false, readErr(name, err)
					}
				}
				out := bytes.Clone(buf.Bytes())
				buf.Reset()
				return out, true, nil
			},
			CloseFunc: func() error {
				if w != nil && !done {
					_ = w.Close()
				}
				return it.Close()
			},
		}
	})
	return newBytes(p, b.opts)
}

// FromZstd decompresses a zstd stream.
func (b *Bytes) FromZstd() *Bytes {
	if b.err != nil {
		return b
	}
	window := b.opts.maxWindow
	return newBytes(b.decode("zstd", func(r io.Reader) (io.Reader, func() error, error) {
		d, err := zstd.NewReader(r,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxWindow(window),
		)
		if err != nil {
			return nil, nil, err
		}
		return d, func() error { d.Close(); return nil }, nil
	}), b.opts)
}

// Zstd compresses the stream. A level of 0 uses the configured level.
func (b *Bytes) Zstd(level int) *Bytes {
	if b.err != nil {
		return b
	}
	if level <= 0 {
		level = b.opts.zstdLevel
	}
	return b.encode("zstd", func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1),
		)
	})
}

// FromGzip decompresses a gzip stream, including multi-member streams.
func (b *Bytes) FromGzip() *Bytes {
	if b.err != nil {
		return b
	}
	return newBytes(b.decode("gzip", func(r io.Reader) (io.Reader, func() error, error) {
		z, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return z, z.Close, nil
	}), b.opts)
}

// Gzip compresses the stream at the default level.
func (b *Bytes) Gzip() *Bytes {
	if b.err != nil {
		return b
	}
	return b.encode("gzip", func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	})
}

// Utf8 decodes the stream as UTF-8. Invalid sequences become U+FFFD.
func (b *Bytes) Utf8() *Text {
	return b.decodeText("utf-8", unicode.UTF8)
}

// Decode decodes the stream from the named charset, using the WHATWG
// labels ("latin1", "windows-1252", "shift_jis", ...). An empty name uses
// the configured charset.
func (b *Bytes) Decode(name string) *Text {
	if b.err != nil {
		return failedText(b.err, b.opts)
	}
	if name == "" {
		name = b.opts.charset
	}
	enc, _ := charset.Lookup(name)
	if enc == nil {
		return failedText(errors.InvalidInput("charset", "unknown charset "+name), b.opts)
	}
	return b.decodeText(name, enc)
}

// Lines decodes the stream as UTF-8 and splits it into lines.
func (b *Bytes) Lines() *Objects {
	return b.Utf8().Lines()
}

func (b *Bytes) decodeText(name string, enc encoding.Encoding) *Text {
	if b.err != nil {
		return failedText(b.err, b.opts)
	}
	raw := b.decode(name, func(r io.Reader) (io.Reader, func() error, error) {
		return transform.NewReader(r, enc.NewDecoder()), nil, nil
	})
	return newText(runeChunks(raw), b.opts)
}

// runeChunks turns valid UTF-8 chunks into strings, carrying an incomplete
// trailing rune over to the next chunk.
func runeChunks(p *pipeline.Pipeline[[]byte]) *pipeline.Pipeline[string] {
	return pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[string] {
		it := p.Iter(ctx)
		var carry []byte
		return &pipeline.FuncIter[string]{
			NextFunc: func(ctx context.Context) (string, bool, error) {
				for {
					chunk, ok, err := it.Next(ctx)
					if err != nil {
						return "", false, err
					}
					if !ok {
						if len(carry) == 0 {
							return "", false, nil
						}
						s := string(carry)
						carry = nil
						return s, true, nil
					}
					buf := append(carry, chunk...)
					cut := completeRunes(buf)
					carry = bytes.Clone(buf[cut:])
					if cut > 0 {
						return string(buf[:cut]), true, nil
					}
				}
			},
			CloseFunc: it.Close,
		}
	})
}

// completeRunes returns the length of the longest prefix of b that does not
// end inside a multi-byte rune.
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
