package stream

import (
	"context"

	"github.com/kbukum/streamkit/pipeline"
	"github.com/kbukum/streamkit/typer"
)

// Empty is a pipeline with no elements. Every terminal returns an empty
// result, and it converts to any other kind.
type Empty struct {
	opts *options
}

// NewEmpty returns an empty pipeline.
func NewEmpty(opts ...Option) *Empty {
	return &Empty{opts: newOptions(opts)}
}

func (e *Empty) Kind() Kind { return KindEmpty }

func (e *Empty) Err() error { return nil }

func (e *Empty) elements() *pipeline.Pipeline[Pair] { return pipeline.Empty[Pair]() }

func (e *Empty) elemType() typer.Typer { return typer.Any() }

func (e *Empty) attachSchema() typer.Schema { return typer.Schema{} }

// Objects returns an element pipeline with no elements.
func (e *Empty) Objects() *Objects {
	return newObjects(pipeline.Empty[Pair](), typer.Any(), typer.Schema{}, e.opts)
}

// Bytes returns a byte pipeline with no chunks.
func (e *Empty) Bytes() *Bytes {
	return newBytes(pipeline.Empty[[]byte](), e.opts)
}

// Text returns a text pipeline with no chunks.
func (e *Empty) Text() *Text {
	return newText(pipeline.Empty[string](), e.opts)
}

// ToList returns no elements.
func (e *Empty) ToList(ctx context.Context) ([]any, error) {
	return e.Objects().ToList(ctx)
}

// ToDict returns an empty map.
func (e *Empty) ToDict(context.Context) (map[any]any, error) {
	return map[any]any{}, nil
}

// Count returns zero.
func (e *Empty) Count(context.Context) (int, error) { return 0, nil }

// ToBytes returns no bytes.
func (e *Empty) ToBytes(ctx context.Context) ([]byte, error) {
	return e.Bytes().ToBytes(ctx)
}

// ToStr returns the empty string.
func (e *Empty) ToStr(ctx context.Context) (string, error) {
	return e.Text().ToStr(ctx)
}
