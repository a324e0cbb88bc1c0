package stream

import (
	"context"

	"github.com/kbukum/streamkit/typer"
)

// Members of the stream types are registered on typer.Default so that
// pipelines of archive entries, files and nested handles can be projected
// through them: entries.Get("Content").Invoke().Get("Utf8").Invoke()...
//
// Registered terminals run with context.Background; call the methods
// directly for cancellation.
func init() {
	reg := typer.Default

	typer.RegisterMember(reg, "Name", func(f VirtualFile) func() string { return f.Name })
	typer.RegisterMember(reg, "Content", func(f VirtualFile) func() *Bytes { return f.Content })
	typer.RegisterMember(reg, "IsDir", func(e *Entry) func() bool { return e.IsDir })
	typer.RegisterMember(reg, "Size", func(e *Entry) func() int64 { return e.Size })
	typer.RegisterMember(reg, "Stream", func(f *File) func() Stream { return f.Stream })
	typer.RegisterMember(reg, "Raw", func(f *File) func() *Bytes { return f.Raw })

	typer.RegisterMember(reg, "Utf8", func(b *Bytes) func() *Text { return b.Utf8 })
	typer.RegisterMember(reg, "Decode", func(b *Bytes) func(string) *Text { return b.Decode })
	typer.RegisterMember(reg, "Lines", func(b *Bytes) func() *Objects { return b.Lines })
	typer.RegisterMember(reg, "FromZstd", func(b *Bytes) func() *Bytes { return b.FromZstd })
	typer.RegisterMember(reg, "FromGzip", func(b *Bytes) func() *Bytes { return b.FromGzip })
	typer.RegisterMember(reg, "FromTar", func(b *Bytes) func() *Objects { return b.FromTar })
	typer.RegisterMember(reg, "FromZip", func(b *Bytes) func() *Objects { return b.FromZip })
	typer.RegisterMember(reg, "ToBytes", func(b *Bytes) func() ([]byte, error) {
		return func() ([]byte, error) { return b.ToBytes(context.Background()) }
	})

	typer.RegisterMember(reg, "Lines", func(t *Text) func() *Objects { return t.Lines })
	typer.RegisterMember(reg, "CSV", func(t *Text) func() *Objects { return t.CSV })
	typer.RegisterMember(reg, "Encode", func(t *Text) func(string) *Bytes { return t.Encode })
	typer.RegisterMember(reg, "ToStr", func(t *Text) func() (string, error) {
		return func() (string, error) { return t.ToStr(context.Background()) }
	})

	typer.RegisterMember(reg, "ToList", func(s *Objects) func() ([]any, error) {
		return func() ([]any, error) { return s.ToList(context.Background()) }
	})
	typer.RegisterMember(reg, "Count", func(s *Objects) func() (int, error) {
		return func() (int, error) { return s.Count(context.Background()) }
	})
}
