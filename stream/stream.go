package stream

import (
	"context"
	"io"
	"iter"
	"reflect"
	"slices"

	"github.com/kbukum/streamkit/attach"
	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/pipeline"
	"github.com/kbukum/streamkit/typer"
)

// Kind identifies the variant of a Stream.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindObjects
	KindBytes
	KindText
	KindTuples
)

func (k Kind) String() string {
	switch k {
	case KindObjects:
		return "objects"
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	case KindTuples:
		return "tuples"
	}
	return "empty"
}

// Stream is a pipeline handle: one of *Objects, *Bytes, *Text, *Tuples or
// *Empty. Handles are immutable; every stage returns a new one.
type Stream interface {
	// Kind reports the variant.
	Kind() Kind
	// Err returns the construction error carried by the handle. Terminals
	// return it without pulling anything.
	Err() error

	elements() *pipeline.Pipeline[Pair]
	elemType() typer.Typer
	attachSchema() typer.Schema
}

// Pair is one element with its attachments.
type Pair struct {
	Value  any
	Attach attach.Record
}

type missing struct{}

func (missing) String() string { return "<missing>" }

// Missing pads the shorter sources of a Zip.
var Missing any = missing{}

// Range is an arithmetic progression from Start up to, but excluding, Stop.
// A zero Step counts by one.
type Range struct {
	Start, Stop, Step int
}

// Of normalizes v into a pipeline:
//
//   - a Stream is returned as is
//   - nil and empty maps give an *Empty
//   - []byte and io.Reader give *Bytes; a reader is consumed once
//   - string gives *Text
//   - maps give *Objects of the values with attachment "key", in key order
//   - Range, slices, arrays and iter.Seq give *Objects of their elements
//   - anything else gives *Objects with v as the single element
func Of(v any, opts ...Option) Stream {
	switch x := v.(type) {
	case Stream:
		return x
	case nil:
		return NewEmpty(opts...)
	case []byte:
		return FromBytes(x, opts...)
	case string:
		return FromString(x, opts...)
	case Range:
		return FromRange(x, opts...)
	case iter.Seq[any]:
		return FromSeq(x, opts...)
	case io.Reader:
		return FromReader(x, opts...)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Len() == 0 {
			return NewEmpty(opts...)
		}
		return fromMapValue(rv, newOptions(opts))
	case reflect.Slice, reflect.Array:
		return fromSliceValue(rv, newOptions(opts))
	case reflect.Func:
		if elem, ok := seqElem(rv.Type()); ok {
			return fromSeqValue(rv, elem, newOptions(opts))
		}
	}
	return FromValue(v, opts...)
}

// FromSlice streams items. The pipeline can be pulled any number of times.
func FromSlice[T any](items []T, opts ...Option) *Objects {
	pairs := make([]Pair, len(items))
	for i, v := range items {
		pairs[i] = Pair{Value: v}
	}
	return newObjects(pipeline.FromSlice(pairs), typer.Of[T](), typer.Schema{}, newOptions(opts))
}

// FromMap streams the values of m in key order, each with its key attached
// under "key".
func FromMap[K comparable, V any](m map[K]V, opts ...Option) *Objects {
	return fromMapValue(reflect.ValueOf(m), newOptions(opts))
}

// FromSeq streams seq. The sequence is consumed by the first terminal.
func FromSeq[T any](seq iter.Seq[T], opts ...Option) *Objects {
	p := pipeline.Map(pipeline.FromSeq(seq), func(_ context.Context, v T) (Pair, error) {
		return Pair{Value: v}, nil
	})
	return newObjects(p, typer.Of[T](), typer.Schema{}, newOptions(opts))
}

// FromValue streams v as a single element typed by its dynamic type.
func FromValue(v any, opts ...Option) *Objects {
	o := newOptions(opts)
	t, err := typer.OfExample(v)
	if err != nil {
		return failedObjects(err, o)
	}
	return newObjects(pipeline.FromSlice([]Pair{{Value: v}}), t, typer.Schema{}, o)
}

// FromRange streams the integers of r.
func FromRange(r Range, opts ...Option) *Objects {
	step := r.Step
	if step == 0 {
		step = 1
	}
	p := pipeline.FromFunc(func(context.Context) pipeline.Iterator[Pair] {
		i := r.Start
		return &pipeline.FuncIter[Pair]{NextFunc: func(context.Context) (Pair, bool, error) {
			if (step > 0 && i >= r.Stop) || (step < 0 && i <= r.Stop) {
				return Pair{}, false, nil
			}
			v := i
			i += step
			return Pair{Value: v}, true, nil
		}}
	})
	return newObjects(p, typer.Of[int](), typer.Schema{}, newOptions(opts))
}

func fromMapValue(rv reflect.Value, o *options) *Objects {
	keys := rv.MapKeys()
	slices.SortStableFunc(keys, func(a, b reflect.Value) int {
		return typer.Order(a.Interface(), b.Interface())
	})
	pairs := make([]Pair, len(keys))
	for i, k := range keys {
		pairs[i] = Pair{Value: rv.MapIndex(k).Interface(), Attach: attach.New("key", k.Interface())}
	}
	t := rv.Type()
	schema := typer.Schema{}.With("key", typer.OfType(t.Key()))
	return newObjects(pipeline.FromSlice(pairs), typer.OfType(t.Elem()), schema, o)
}

func fromSliceValue(rv reflect.Value, o *options) *Objects {
	pairs := make([]Pair, rv.Len())
	for i := range pairs {
		pairs[i] = Pair{Value: rv.Index(i).Interface()}
	}
	return newObjects(pipeline.FromSlice(pairs), typer.OfType(rv.Type().Elem()), typer.Schema{}, o)
}

// seqElem reports whether rt has the shape of iter.Seq[T], returning T.
func seqElem(rt reflect.Type) (reflect.Type, bool) {
	if rt.NumIn() != 1 || rt.NumOut() != 0 {
		return nil, false
	}
	yield := rt.In(0)
	if yield.Kind() != reflect.Func || yield.NumIn() != 1 || yield.NumOut() != 1 || yield.Out(0).Kind() != reflect.Bool {
		return nil, false
	}
	return yield.In(0), true
}

func fromSeqValue(rv reflect.Value, elem reflect.Type, o *options) *Objects {
	yieldType := rv.Type().In(0)
	seq := func(yield func(any) bool) {
		fn := reflect.MakeFunc(yieldType, func(args []reflect.Value) []reflect.Value {
			return []reflect.Value{reflect.ValueOf(yield(args[0].Interface()))}
		})
		rv.Call([]reflect.Value{fn})
	}
	p := pipeline.Map(pipeline.FromSeq(iter.Seq[any](seq)), func(_ context.Context, v any) (Pair, error) {
		return Pair{Value: v}, nil
	})
	return newObjects(p, typer.OfType(elem), typer.Schema{}, o)
}

// readErr wraps a failure of the underlying source. Errors that already
// carry a code pass through.
func readErr(source string, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.SourceRead(source, err)
}

// isNil reports whether v is nil or a nil pointer, map, slice, func or
// interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
