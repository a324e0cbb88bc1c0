package pipeline

import (
	"context"
	"iter"
	"sync"
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator and its sources.
	// Close is idempotent.
	Close() error
}

// Pipeline represents a lazy, pull-based data pipeline.
// No work happens until values are pulled via Collect, Drain, or ForEach.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// Runnable is a fully-configured pipeline ready to execute.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run executes the pipeline until completion or context cancellation.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// --- Constructors ---

// From creates a one-shot pipeline from an existing Iterator. The first
// terminal consumes iter; later terminals see an empty pipeline.
func From[T any](iter Iterator[T]) *Pipeline[T] {
	return FromOnce(func(_ context.Context) Iterator[T] { return iter })
}

// FromSlice creates a restartable pipeline from a slice of values.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			return &sliceIter[T]{items: items}
		},
	}
}

// FromFunc creates a pipeline from a factory that produces an Iterator.
// The factory runs once per terminal, so the pipeline restarts if it does.
func FromFunc[T any](fn func(ctx context.Context) Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{create: fn}
}

// FromOnce creates a pipeline whose factory runs at most once. Any later
// terminal sees an empty pipeline.
func FromOnce[T any](fn func(ctx context.Context) Iterator[T]) *Pipeline[T] {
	var once sync.Once
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			var it Iterator[T] = emptyIter[T]{}
			once.Do(func() { it = fn(ctx) })
			return it
		},
	}
}

// FromSeq creates a one-shot pipeline from a standard library iterator.
func FromSeq[T any](seq iter.Seq[T]) *Pipeline[T] {
	return FromOnce(func(_ context.Context) Iterator[T] {
		next, stop := iter.Pull(seq)
		return &seqIter[T]{next: next, stop: stop}
	})
}

// Empty returns a pipeline that yields nothing.
func Empty[T any]() *Pipeline[T] {
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] { return emptyIter[T]{} },
	}
}

// --- Terminals ---

// Drain creates a Runnable that pulls all values and sends each to sink.
func Drain[T any](p *Pipeline[T], sink func(context.Context, T) error) *Runnable {
	return &Runnable{
		run: func(ctx context.Context) error {
			iter := p.create(ctx)
			defer iter.Close()
			for {
				val, ok, err := iter.Next(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := sink(ctx, val); err != nil {
					return err
				}
			}
		},
	}
}

// Collect runs the pipeline and returns all values as a slice.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	iter := p.create(ctx)
	defer iter.Close()
	var result []T
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			return result, nil
		}
		result = append(result, val)
	}
}

// ForEach pulls all values and calls fn for each. Convenience wrapper around Drain.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	return Drain(p, fn).Run(ctx)
}

// Materialize collects p into memory and returns a restartable pipeline over
// the result.
func Materialize[T any](ctx context.Context, p *Pipeline[T]) (*Pipeline[T], error) {
	items, err := Collect(ctx, p)
	if err != nil {
		return nil, err
	}
	return FromSlice(items), nil
}

// Iter returns the raw Iterator for this pipeline. The caller must Close() it.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return p.create(ctx)
}

// All adapts the pipeline to a standard library iterator. Iteration stops at
// the first error, which is yielded as the second value. Breaking out of the
// loop closes the chain.
func All[T any](ctx context.Context, p *Pipeline[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		it := p.create(ctx)
		defer it.Close()
		for {
			val, ok, err := it.Next(ctx)
			if err != nil {
				yield(val, err)
				return
			}
			if !ok || !yield(val, nil) {
				return
			}
		}
	}
}

// --- Internal iterators ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type emptyIter[T any] struct{}

func (emptyIter[T]) Next(_ context.Context) (T, bool, error) {
	var zero T
	return zero, false, nil
}

func (emptyIter[T]) Close() error { return nil }

type seqIter[T any] struct {
	next func() (T, bool)
	stop func()
}

func (it *seqIter[T]) Next(ctx context.Context) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	v, ok := it.next()
	return v, ok, nil
}

func (it *seqIter[T]) Close() error {
	it.stop()
	return nil
}

// FuncIter adapts a pair of functions to an Iterator. Sources outside this
// package use it to expose readers and decoders.
type FuncIter[T any] struct {
	NextFunc  func(ctx context.Context) (T, bool, error)
	CloseFunc func() error
	closed    bool
}

func (it *FuncIter[T]) Next(ctx context.Context) (T, bool, error) {
	if it.closed {
		var zero T
		return zero, false, nil
	}
	return it.NextFunc(ctx)
}

func (it *FuncIter[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.CloseFunc != nil {
		return it.CloseFunc()
	}
	return nil
}
