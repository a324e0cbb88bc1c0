package pipeline

import (
	"context"
	"reflect"
	"slices"
)

// Map transforms each value using fn.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			return &mapIter[I, O]{source: p.create(ctx), fn: fn}
		},
	}
}

// MapIndexed transforms each value using fn, passing its zero-based position.
// The position restarts from zero on every pull of the pipeline.
func MapIndexed[I, O any](p *Pipeline[I], fn func(context.Context, int, I) (O, error)) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			index := -1
			return &mapIter[I, O]{source: p.create(ctx), fn: func(ctx context.Context, v I) (O, error) {
				index++
				return fn(ctx, index, v)
			}}
		},
	}
}

// FlatMap transforms each value into an iterator and flattens the results.
func FlatMap[I, O any](p *Pipeline[I], fn func(context.Context, I) (Iterator[O], error)) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			return &flatMapIter[I, O]{source: p.create(ctx), fn: fn}
		},
	}
}

// Filter keeps only values that satisfy the predicate.
func Filter[T any](p *Pipeline[T], fn func(T) bool) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &filterIter[T]{source: p.create(ctx), fn: fn}
		},
	}
}

// Tap calls fn as a side-effect for each value, then passes the value through unchanged.
// Use for logging, metrics, or counting.
func Tap[T any](p *Pipeline[T], fn func(context.Context, T) error) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &tapIter[T]{source: p.create(ctx), fn: fn}
		},
	}
}

// Reduce accumulates all values into a single result.
// The pipeline yields exactly one value: the final accumulator.
func Reduce[T, R any](p *Pipeline[T], init R, fn func(R, T) R) *Pipeline[R] {
	return &Pipeline[R]{
		create: func(ctx context.Context) Iterator[R] {
			return &reduceIter[T, R]{source: p.create(ctx), acc: init, fn: fn}
		},
	}
}

// Concat joins multiple pipelines sequentially.
// All values from the first pipeline are yielded before the second, etc.
// Later sources are not opened until the earlier ones are exhausted.
func Concat[T any](pipelines ...*Pipeline[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &concatIter[T]{sources: pipelines}
		},
	}
}

// ZipLongest pulls one value from each pipeline per step and yields them as a
// slice, substituting pad for pipelines that are already exhausted. It stops
// once every pipeline is exhausted.
func ZipLongest[T any](pad T, pipelines ...*Pipeline[T]) *Pipeline[[]T] {
	return &Pipeline[[]T]{
		create: func(ctx context.Context) Iterator[[]T] {
			iters := make([]Iterator[T], len(pipelines))
			for i, p := range pipelines {
				iters[i] = p.create(ctx)
			}
			return &zipIter[T]{iters: iters, done: make([]bool, len(iters)), pad: pad}
		},
	}
}

// Limit yields at most n values. Once the n-th value has been handed out the
// source is closed immediately rather than drained, so the untaken tail never
// holds resources open.
func Limit[T any](p *Pipeline[T], n int) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &limitIter[T]{source: p.create(ctx), remaining: n}
		},
	}
}

// Reverse buffers the whole source, then yields it back to front.
func Reverse[T any](p *Pipeline[T]) *Pipeline[T] {
	return buffered(p, func(items []T) []T {
		slices.Reverse(items)
		return items
	})
}

// SortStable buffers the whole source and yields it ordered by cmp. Values
// that compare equal keep their source order.
func SortStable[T any](p *Pipeline[T], cmp func(a, b T) int) *Pipeline[T] {
	return buffered(p, func(items []T) []T {
		slices.SortStableFunc(items, cmp)
		return items
	})
}

// Distinct drops every value whose key was already seen. Hashable keys are
// tracked in a set; other keys, including comparable structs that hold a
// slice in an interface field, fall back to a linear reflect.DeepEqual scan.
func Distinct[T any](p *Pipeline[T], key func(T) any) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			seen := make(map[any]struct{})
			var others []any
			return &filterIter[T]{source: p.create(ctx), fn: func(v T) bool {
				k := key(v)
				if hashable(reflect.ValueOf(k)) {
					if _, dup := seen[k]; dup {
						return false
					}
					seen[k] = struct{}{}
					return true
				}
				for _, o := range others {
					if reflect.DeepEqual(o, k) {
						return false
					}
				}
				others = append(others, k)
				return true
			}}
		},
	}
}

func hashable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map, reflect.Func:
		return false
	case reflect.Interface:
		return v.IsNil() || hashable(v.Elem())
	case reflect.Struct:
		for i := range v.NumField() {
			if !hashable(v.Field(i)) {
				return false
			}
		}
	case reflect.Array:
		for i := range v.Len() {
			if !hashable(v.Index(i)) {
				return false
			}
		}
	}
	return true
}

func buffered[T any](p *Pipeline[T], reorder func([]T) []T) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &bufferIter[T]{source: p.create(ctx), reorder: reorder}
		},
	}
}

// --- Iterator implementations ---

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		var zero O
		return zero, false, err
	}
	out, err := it.fn(ctx, val)
	if err != nil {
		var zero O
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type flatMapIter[I, O any] struct {
	source  Iterator[I]
	fn      func(context.Context, I) (Iterator[O], error)
	current Iterator[O]
}

func (it *flatMapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	for {
		if it.current != nil {
			val, ok, err := it.current.Next(ctx)
			if err != nil {
				var zero O
				return zero, false, err
			}
			if ok {
				return val, true, nil
			}
			_ = it.current.Close()
			it.current = nil
		}
		in, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero O
			return zero, false, err
		}
		inner, err := it.fn(ctx, in)
		if err != nil {
			var zero O
			return zero, false, err
		}
		it.current = inner
	}
}

func (it *flatMapIter[I, O]) Close() error {
	if it.current != nil {
		_ = it.current.Close()
		it.current = nil
	}
	return it.source.Close()
}

type filterIter[T any] struct {
	source Iterator[T]
	fn     func(T) bool
}

func (it *filterIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		if it.fn(val) {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }

type tapIter[T any] struct {
	source Iterator[T]
	fn     func(context.Context, T) error
}

func (it *tapIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, ok, err
	}
	if err := it.fn(ctx, val); err != nil {
		var zero T
		return zero, false, err
	}
	return val, true, nil
}

func (it *tapIter[T]) Close() error { return it.source.Close() }

type reduceIter[T, R any] struct {
	source Iterator[T]
	acc    R
	fn     func(R, T) R
	done   bool
}

func (it *reduceIter[T, R]) Next(ctx context.Context) (result R, ok bool, err error) {
	if it.done {
		var zero R
		return zero, false, nil
	}
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			var zero R
			return zero, false, err
		}
		if !ok {
			it.done = true
			return it.acc, true, nil
		}
		it.acc = it.fn(it.acc, val)
	}
}

func (it *reduceIter[T, R]) Close() error { return it.source.Close() }

type concatIter[T any] struct {
	sources []*Pipeline[T]
	current Iterator[T]
	index   int
}

func (it *concatIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	for it.index < len(it.sources) {
		if it.current == nil {
			it.current = it.sources[it.index].create(ctx)
		}
		val, ok, err := it.current.Next(ctx)
		if err != nil {
			return val, false, err
		}
		if ok {
			return val, true, nil
		}
		if err := it.current.Close(); err != nil {
			it.current = nil
			it.index = len(it.sources)
			return val, false, err
		}
		it.current = nil
		it.index++
	}
	var zero T
	return zero, false, nil
}

func (it *concatIter[T]) Close() error {
	it.index = len(it.sources)
	if it.current == nil {
		return nil
	}
	err := it.current.Close()
	it.current = nil
	return err
}

type zipIter[T any] struct {
	iters []Iterator[T]
	done  []bool
	pad   T
}

func (it *zipIter[T]) Next(ctx context.Context) ([]T, bool, error) {
	row := make([]T, len(it.iters))
	live := false
	for i, src := range it.iters {
		if it.done[i] {
			row[i] = it.pad
			continue
		}
		val, ok, err := src.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			it.done[i] = true
			_ = src.Close()
			row[i] = it.pad
			continue
		}
		row[i] = val
		live = true
	}
	if !live {
		return nil, false, nil
	}
	return row, true, nil
}

func (it *zipIter[T]) Close() error {
	var firstErr error
	for i, src := range it.iters {
		if it.done[i] {
			continue
		}
		it.done[i] = true
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type limitIter[T any] struct {
	source    Iterator[T]
	remaining int
	closed    bool
}

func (it *limitIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if it.remaining <= 0 {
		var zero T
		return zero, false, it.Close()
	}
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, false, err
	}
	it.remaining--
	return val, true, nil
}

func (it *limitIter[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.source.Close()
}

type bufferIter[T any] struct {
	source  Iterator[T]
	reorder func([]T) []T
	items   []T
	loaded  bool
	index   int
}

func (it *bufferIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if !it.loaded {
		it.loaded = true
		for {
			val, ok, err := it.source.Next(ctx)
			if err != nil {
				var zero T
				return zero, false, err
			}
			if !ok {
				break
			}
			it.items = append(it.items, val)
		}
		it.items = it.reorder(it.items)
	}
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *bufferIter[T]) Close() error { return it.source.Close() }
