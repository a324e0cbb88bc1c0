package stream

import (
	"context"
	"fmt"
	"reflect"

	"github.com/kbukum/streamkit/attach"
	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/expr"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/pipeline"
	"github.com/kbukum/streamkit/typer"
)

// Objects is a pipeline of arbitrary elements, each carrying an attachment
// record. Every stage returns a new handle and leaves the receiver usable.
//
// A stage that cannot be built (an expression that does not bind, an
// operation the element type does not support) returns a handle whose Err
// reports the failure. Later stages pass it along and terminals return it
// without pulling any element.
type Objects struct {
	p      *pipeline.Pipeline[Pair]
	typ    typer.Typer
	schema typer.Schema
	err    error
	opts   *options
}

func newObjects(p *pipeline.Pipeline[Pair], t typer.Typer, schema typer.Schema, o *options) *Objects {
	return &Objects{p: p, typ: t, schema: schema, opts: o}
}

func failedObjects(err error, o *options) *Objects {
	return &Objects{p: pipeline.Empty[Pair](), err: err, opts: o}
}

func (s *Objects) Kind() Kind { return KindObjects }

func (s *Objects) Err() error { return s.err }

func (s *Objects) elements() *pipeline.Pipeline[Pair] { return s.p }

func (s *Objects) elemType() typer.Typer { return s.typ }

func (s *Objects) attachSchema() typer.Schema { return s.schema }

// Type returns the tracked element type.
func (s *Objects) Type() typer.Typer { return s.typ }

// Schema returns the declared attachments.
func (s *Objects) Schema() typer.Schema { return s.schema }

func (s *Objects) derive(p *pipeline.Pipeline[Pair], t typer.Typer, schema typer.Schema) *Objects {
	return newObjects(p, t, schema, s.opts)
}

func (s *Objects) fail(err error) *Objects {
	return failedObjects(err, s.opts)
}

func (s *Objects) scope() typer.Scope {
	return typer.Scope{Elem: s.typ, Schema: s.schema, Reg: s.opts.reg}
}

func (s *Objects) bind(n expr.Node) (expr.Bound, error) {
	return n.Bind(s.scope())
}

// project replaces every element with the value of n. Attachments are kept.
func (s *Objects) project(n expr.Node) *Objects {
	if s.err != nil {
		return s
	}
	b, err := s.bind(n)
	if err != nil {
		return s.fail(err)
	}
	desc, log := n.String(), s.opts.log
	p := pipeline.Map(s.p, func(_ context.Context, in Pair) (Pair, error) {
		return Pair{Value: evaluateOrNil(log, desc, b.Eval, in), Attach: in.Attach}, nil
	})
	return s.derive(p, b.Type, s.schema)
}

// Get projects every element onto its member name. A name declared as an
// attachment reads the attachment instead.
func (s *Objects) Get(name string) *Objects {
	return s.project(expr.It().Attr(name))
}

// Map projects every element through v: an expr.Node, a func (see
// expr.Func), a member name or a constant.
func (s *Objects) Map(v any) *Objects {
	return s.project(expr.From(v))
}

// Invoke calls every element with args.
func (s *Objects) Invoke(args ...any) *Objects {
	return s.project(expr.It().Call(args...))
}

// InvokeKw calls every element with args and the keyword arguments kw.
func (s *Objects) InvokeKw(kw map[string]any, args ...any) *Objects {
	return s.project(expr.It().CallKw(kw, args...))
}

// Attach evaluates each field against the element and records the result
// in its attachments. Fields are bound against the pipeline as it is before
// the call, so one field cannot read another.
func (s *Objects) Attach(fields ...expr.Field) *Objects {
	if s.err != nil {
		return s
	}
	schema := s.schema
	evals := make([]expr.Eval, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return s.fail(errors.InvalidExpression(f.Node.String(), "attachment needs a name"))
		}
		b, err := s.bind(f.Node)
		if err != nil {
			return s.fail(err)
		}
		evals[i] = b.Eval
		schema = schema.With(f.Name, b.Type)
	}
	log := s.opts.log
	p := pipeline.Map(s.p, func(_ context.Context, in Pair) (Pair, error) {
		out := in.Attach
		for i, f := range fields {
			out = out.With(f.Name, evaluateOrNil(log, f.Node.String(), evals[i], in))
		}
		return Pair{Value: in.Value, Attach: out}, nil
	})
	return s.derive(p, s.typ, schema)
}

var boolType = reflect.TypeFor[bool]()

// Filter keeps the elements for which v yields true. v must be typed bool,
// or be resolved only at run time. Elements whose predicate fails are
// dropped.
func (s *Objects) Filter(v any) *Objects {
	if s.err != nil {
		return s
	}
	n := expr.From(v)
	b, err := s.bind(n)
	if err != nil {
		return s.fail(err)
	}
	if b.Type.Type() != boolType && !b.Type.IsDynamic() {
		return s.fail(errors.InvalidExpression(n.String(), fmt.Sprintf("predicate yields %s", b.Type)))
	}
	desc, log := n.String(), s.opts.log
	p := pipeline.Filter(s.p, func(in Pair) bool {
		keep, _ := evaluateOrNil(log, desc, b.Eval, in).(bool)
		return keep
	})
	return s.derive(p, s.typ, s.schema)
}

// Exists drops nil elements, including typed nil pointers.
func (s *Objects) Exists() *Objects {
	if s.err != nil {
		return s
	}
	p := pipeline.Filter(s.p, func(in Pair) bool { return !isNil(in.Value) })
	return s.derive(p, s.typ, s.schema)
}

// Enumerate attaches the zero-based position of each element as "index".
func (s *Objects) Enumerate() *Objects {
	if s.err != nil {
		return s
	}
	p := pipeline.MapIndexed(s.p, func(_ context.Context, i int, in Pair) (Pair, error) {
		return Pair{Value: in.Value, Attach: in.Attach.With("index", i)}, nil
	})
	return s.derive(p, s.typ, s.schema.With("index", typer.Of[int]()))
}

// Flatten re-streams every element with Of and yields the inner elements in
// order. Inner attachments are merged over the outer ones, so on a name
// collision the inner value wins. nil elements contribute nothing.
func (s *Objects) Flatten() *Objects {
	if s.err != nil {
		return s
	}
	inherit := s.opts.inherit()
	p := pipeline.FlatMap(s.p, func(ctx context.Context, in Pair) (pipeline.Iterator[Pair], error) {
		if isNil(in.Value) {
			return pipeline.Empty[Pair]().Iter(ctx), nil
		}
		inner := Of(in.Value, inherit)
		if err := inner.Err(); err != nil {
			return nil, err
		}
		merged := pipeline.Map(inner.elements(), func(_ context.Context, x Pair) (Pair, error) {
			return Pair{Value: x.Value, Attach: in.Attach.Merge(x.Attach)}, nil
		})
		return merged.Iter(ctx), nil
	})
	elem := s.typ.Elem()
	if s.typ.IsDynamic() || (!s.typ.IsStream() && s.typ.Implements(streamType)) {
		elem = typer.Any()
	}
	return s.derive(p, elem, s.schema.Union(s.typ.ElemSchema()))
}

// Reverse yields the elements back to front. It buffers the whole pipeline.
func (s *Objects) Reverse() *Objects {
	if s.err != nil {
		return s
	}
	return s.derive(pipeline.Reverse(s.p), s.typ, s.schema)
}

// Sort orders the elements by value with typer.Order. The sort is stable.
func (s *Objects) Sort() *Objects {
	if s.err != nil {
		return s
	}
	p := pipeline.SortStable(s.p, func(a, b Pair) int { return typer.Order(a.Value, b.Value) })
	return s.derive(p, s.typ, s.schema)
}

type keyed struct {
	key any
	Pair
}

// SortBy orders the elements by the value of key, computed once per element.
// The key sees the element value only; attachments cannot be named in it.
// The sort is stable in both directions; elements whose key fails to
// evaluate sort as nil.
func (s *Objects) SortBy(key any, reverse bool) *Objects {
	if s.err != nil {
		return s
	}
	n := expr.From(key)
	b, err := n.Bind(typer.Scope{Elem: s.typ, Reg: s.opts.reg})
	if err != nil {
		return s.fail(err)
	}
	desc, log := n.String(), s.opts.log
	withKeys := pipeline.Map(s.p, func(_ context.Context, in Pair) (keyed, error) {
		return keyed{key: evaluateOrNil(log, desc, b.Eval, in), Pair: in}, nil
	})
	sorted := pipeline.SortStable(withKeys, func(a, b keyed) int {
		if reverse {
			return typer.Order(b.key, a.key)
		}
		return typer.Order(a.key, b.key)
	})
	p := pipeline.Map(sorted, func(_ context.Context, k keyed) (Pair, error) { return k.Pair, nil })
	return s.derive(p, s.typ, s.schema)
}

// Distinct drops elements equal to an earlier one. The first occurrence
// keeps its attachments.
func (s *Objects) Distinct() *Objects {
	if s.err != nil {
		return s
	}
	p := pipeline.Distinct(s.p, func(in Pair) any { return typer.Key(in.Value) })
	return s.derive(p, s.typ, s.schema)
}

// Append adds v after the last element, with no attachments.
func (s *Objects) Append(v any) *Objects {
	if s.err != nil {
		return s
	}
	p := pipeline.Concat(s.p, pipeline.FromSlice([]Pair{{Value: v}}))
	t := s.typ
	if v != nil && reflect.TypeOf(v) != s.typ.Type() {
		t = typer.Any()
	}
	return s.derive(p, t, s.schema)
}

// Extend adds the elements of Of(values) after the last element.
func (s *Objects) Extend(values any) *Objects {
	if s.err != nil {
		return s
	}
	other := Of(values, s.opts.inherit())
	if err := other.Err(); err != nil {
		return s.fail(err)
	}
	t := s.typ
	if ot := other.elemType(); ot.Type() != t.Type() {
		t = typer.Any()
	}
	p := pipeline.Concat(s.p, other.elements())
	return s.derive(p, t, s.schema.Union(other.attachSchema()))
}

// Zip pairs the elements of s with those of Of(other) for every other,
// position by position, until all are exhausted. Exhausted sources are
// padded with Missing. Attachments are merged left to right.
func (s *Objects) Zip(others ...any) *Tuples {
	if s.err != nil {
		return failedTuples(s.err, s.opts)
	}
	pipes := []*pipeline.Pipeline[Pair]{s.p}
	typs := []typer.Typer{s.typ}
	schema := s.schema
	for _, o := range others {
		st := Of(o, s.opts.inherit())
		if err := st.Err(); err != nil {
			return failedTuples(err, s.opts)
		}
		pipes = append(pipes, st.elements())
		typs = append(typs, st.elemType())
		schema = schema.Union(st.attachSchema())
	}
	p := pipeline.Map(pipeline.ZipLongest(Pair{Value: Missing}, pipes...), func(_ context.Context, row []Pair) (Tuple, error) {
		t := Tuple{Values: make([]any, len(row))}
		for i, x := range row {
			t.Values[i] = x.Value
			t.Attach = t.Attach.Merge(x.Attach)
		}
		return t, nil
	})
	return newTuples(p, typs, schema, s.opts)
}

// Limit yields at most n elements and closes the source after the n-th,
// without reading the rest.
func (s *Objects) Limit(n int) *Objects {
	if s.err != nil {
		return s
	}
	return s.derive(pipeline.Limit(s.p, max(n, 0)), s.typ, s.schema)
}

// Group buckets the elements by the value of key. It yields one
// materialized *Objects per distinct key, in order of first appearance,
// with the key attached as "group".
func (s *Objects) Group(key any) *Objects {
	if s.err != nil {
		return s
	}
	n := expr.From(key)
	b, err := s.bind(n)
	if err != nil {
		return s.fail(err)
	}
	desc, log := n.String(), s.opts.log
	src := s.p
	build := func(items []Pair) *Objects {
		return s.derive(pipeline.FromSlice(items), s.typ, s.schema)
	}
	p := pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[Pair] {
		var (
			groups []Pair
			done   bool
		)
		it := src.Iter(ctx)
		return &pipeline.FuncIter[Pair]{
			NextFunc: func(ctx context.Context) (Pair, bool, error) {
				if !done {
					var err error
					groups, err = collectGroups(ctx, it, func(in Pair) any {
						return evaluateOrNil(log, desc, b.Eval, in)
					}, build)
					if err != nil {
						return Pair{}, false, err
					}
					done = true
				}
				if len(groups) == 0 {
					return Pair{}, false, nil
				}
				g := groups[0]
				groups = groups[1:]
				return g, true, nil
			},
			CloseFunc: it.Close,
		}
	})
	elem := typer.StreamOf(reflect.TypeFor[*Objects](), s.typ, s.schema)
	return s.derive(p, elem, typer.Schema{}.With("group", b.Type))
}

func collectGroups(ctx context.Context, it pipeline.Iterator[Pair], key func(Pair) any, build func([]Pair) *Objects) ([]Pair, error) {
	var (
		keys    []any
		members [][]Pair
	)
	index := make(map[any]int)
	for {
		in, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		k := key(in)
		i := -1
		if hk := typer.Key(k); typer.Hashable(hk) {
			if j, seen := index[hk]; seen {
				i = j
			} else {
				index[hk] = len(keys)
			}
		} else {
			for j, o := range keys {
				if typer.Equal(o, k) {
					i = j
					break
				}
			}
		}
		if i < 0 {
			keys = append(keys, k)
			members = append(members, nil)
			i = len(keys) - 1
		}
		members[i] = append(members[i], in)
	}
	out := make([]Pair, len(keys))
	for i, k := range keys {
		out[i] = Pair{Value: build(members[i]), Attach: attach.New("group", k)}
	}
	return out, nil
}

// Materialize pulls every element into memory and returns a handle that can
// be pulled any number of times.
func (s *Objects) Materialize(ctx context.Context) (*Objects, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, err := pipeline.Materialize(ctx, s.p)
	if err != nil {
		return nil, err
	}
	return s.derive(p, s.typ, s.schema), nil
}

// Bytes concatenates []byte elements into a byte pipeline. nil elements
// are skipped.
func (s *Objects) Bytes() *Bytes {
	if s.err != nil {
		return failedBytes(s.err, s.opts)
	}
	if s.typ.Type() != bytesType && !s.typ.IsDynamic() {
		return failedBytes(errors.UnsupportedElementType("Bytes", s.typ.String()), s.opts)
	}
	return newBytes(elementsAs[[]byte](s.p, "Bytes"), s.opts)
}

// Text concatenates string elements into a text pipeline. nil elements are
// skipped.
func (s *Objects) Text() *Text {
	if s.err != nil {
		return failedText(s.err, s.opts)
	}
	if !s.typ.IsText() && !s.typ.IsDynamic() {
		return failedText(errors.UnsupportedElementType("Text", s.typ.String()), s.opts)
	}
	return newText(elementsAs[string](s.p, "Text"), s.opts)
}

var (
	bytesType  = reflect.TypeFor[[]byte]()
	streamType = reflect.TypeFor[Stream]()
)

func elementsAs[T any](p *pipeline.Pipeline[Pair], op string) *pipeline.Pipeline[T] {
	kept := pipeline.Filter(p, func(in Pair) bool { return !isNil(in.Value) })
	return pipeline.Map(kept, func(_ context.Context, in Pair) (T, error) {
		v, ok := in.Value.(T)
		if !ok {
			return v, errors.UnsupportedElementType(op, fmt.Sprintf("%T", in.Value))
		}
		return v, nil
	})
}

func (s *Objects) logClose(op string, err error) {
	if err != nil {
		s.opts.log.Warn("closing pipeline failed", logger.ErrorFields(op, err))
	}
}
