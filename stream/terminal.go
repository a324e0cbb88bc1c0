package stream

import (
	"context"
	"fmt"
	"iter"

	"github.com/kbukum/streamkit/attach"
	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/pipeline"
	"github.com/kbukum/streamkit/typer"
)

// each pulls every element into fn and closes the chain on return.
func (s *Objects) each(ctx context.Context, op *observability.Operation, name string, fn func(Pair) (bool, error)) error {
	it := s.p.Iter(ctx)
	defer func() { s.logClose(name, it.Close()) }()
	for {
		in, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return err
		}
		op.AddElements(1)
		more, err := fn(in)
		if err != nil || !more {
			return err
		}
	}
}

func (s *Objects) terminal(ctx context.Context, name string, fn func(Pair) (bool, error)) error {
	if s.err != nil {
		return s.err
	}
	return s.opts.run(ctx, name, func(ctx context.Context, op *observability.Operation) error {
		return s.each(ctx, op, name, fn)
	})
}

// ToList returns every element.
func (s *Objects) ToList(ctx context.Context) ([]any, error) {
	var out []any
	err := s.terminal(ctx, "stream.ToList", func(in Pair) (bool, error) {
		out = append(out, in.Value)
		return true, nil
	})
	return out, err
}

// Pairs returns every element with its attachments.
func (s *Objects) Pairs(ctx context.Context) ([]Pair, error) {
	var out []Pair
	err := s.terminal(ctx, "stream.Pairs", func(in Pair) (bool, error) {
		out = append(out, in)
		return true, nil
	})
	return out, err
}

// ToDict returns the elements keyed by their "key" attachment, or by their
// "index" attachment when there is no key. Later elements overwrite earlier
// ones with the same key.
func (s *Objects) ToDict(ctx context.Context) (map[any]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	switch {
	case s.schema.Has("key"):
		return s.toMap(ctx, "stream.ToDict", "key")
	case s.schema.Has("index"):
		return s.toMap(ctx, "stream.ToDict", "index")
	}
	return nil, errors.InvalidInput("key", "pipeline has neither a key nor an index attachment")
}

// ToMap returns the elements keyed by the attachment name.
func (s *Objects) ToMap(ctx context.Context, name string) (map[any]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.schema.Has(name) {
		return nil, errors.InvalidInput(name, "not an attachment of this pipeline")
	}
	return s.toMap(ctx, "stream.ToMap", name)
}

func (s *Objects) toMap(ctx context.Context, op, name string) (map[any]any, error) {
	out := make(map[any]any)
	err := s.terminal(ctx, op, func(in Pair) (bool, error) {
		k, _ := in.Attach.Get(name)
		if !typer.Hashable(k) {
			return false, errors.InvalidInput(name, fmt.Sprintf("%T cannot be a map key", k))
		}
		out[k] = in.Value
		return true, nil
	})
	return out, err
}

// First returns the first element, reading nothing past it.
func (s *Objects) First(ctx context.Context) (v any, ok bool, err error) {
	err = s.terminal(ctx, "stream.First", func(in Pair) (bool, error) {
		v, ok = in.Value, true
		return false, nil
	})
	return v, ok, err
}

// Count pulls every element and returns how many there were.
func (s *Objects) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.terminal(ctx, "stream.Count", func(Pair) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}

// ForEach calls fn for every element and stops at the first error.
func (s *Objects) ForEach(ctx context.Context, fn func(v any, a attach.Record) error) error {
	return s.terminal(ctx, "stream.ForEach", func(in Pair) (bool, error) {
		return true, fn(in.Value, in.Attach)
	})
}

// All adapts the pipeline to a range-over-func iterator. Iteration stops
// after the first error. Breaking out of the loop closes the chain.
func (s *Objects) All(ctx context.Context) iter.Seq2[Pair, error] {
	if s.err != nil {
		err := s.err
		return func(yield func(Pair, error) bool) { yield(Pair{}, err) }
	}
	return pipeline.All(ctx, s.p)
}

// CollectAs returns every element of s converted to T. nil elements become
// the zero T.
func CollectAs[T any](ctx context.Context, s *Objects) ([]T, error) {
	var out []T
	err := s.terminal(ctx, "stream.CollectAs", func(in Pair) (bool, error) {
		if in.Value == nil {
			var zero T
			out = append(out, zero)
			return true, nil
		}
		v, ok := in.Value.(T)
		if !ok {
			return false, errors.UnsupportedElementType("CollectAs", fmt.Sprintf("%T", in.Value))
		}
		out = append(out, v)
		return true, nil
	})
	return out, err
}
