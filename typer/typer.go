package typer

import (
	"fmt"
	"reflect"

	"github.com/kbukum/streamkit/errors"
)

type kind uint8

const (
	kindInvalid kind = iota
	kindConcrete
	kindCallable
	kindStream
	kindLazy
)

// Typer describes the type of the values flowing through a pipeline stage.
//
// A Typer is one of:
//   - concrete: a Go type, from an example value or a declaration
//   - callable: a value that, once called, produces the wrapped Typer
//   - stream: a pipeline handle whose elements are described by a member Typer
//   - lazy: a resolution function, used while the element type is unknown
//
// The zero Typer is invalid; every constructor either returns a valid Typer or
// an error.
type Typer struct {
	kind    kind
	rt      reflect.Type
	ret     *Typer
	member  *Typer
	schema  Schema
	resolve func(Scope) (Typer, error)
	desc    string
}

var anyType = reflect.TypeFor[any]()

// OfExample returns the Typer of v's dynamic type.
func OfExample(v any) (Typer, error) {
	if v == nil {
		return Typer{}, errors.TypeResolution("nil", "").
			WithDetail("reason", "no example and no declared type")
	}
	return OfType(reflect.TypeOf(v)), nil
}

// Of returns the Typer of the static type T.
func Of[T any]() Typer {
	return OfType(reflect.TypeFor[T]())
}

// OfType returns the Typer of rt. A nil rt yields an invalid Typer.
func OfType(rt reflect.Type) Typer {
	if rt == nil {
		return Typer{}
	}
	return Typer{kind: kindConcrete, rt: rt}
}

// Any is the Typer of values whose type is only known at run time.
func Any() Typer { return Typer{kind: kindConcrete, rt: anyType} }

// Callable describes a value that returns ret when called.
func Callable(ret Typer) Typer {
	return Typer{kind: kindCallable, ret: &ret}
}

// StreamOf describes a pipeline handle of Go type handle whose elements are
// described by member and whose attachments follow schema.
func StreamOf(handle reflect.Type, member Typer, schema Schema) Typer {
	return Typer{kind: kindStream, rt: handle, member: &member, schema: schema}
}

// Lazy is the placeholder for the element type of whatever pipeline an
// expression is eventually bound to.
func Lazy() Typer {
	return Deferred("it", func(s Scope) (Typer, error) {
		if !s.Elem.Valid() {
			return Typer{}, errors.TypeResolution("it", "").
				WithDetail("reason", "scope has no element type")
		}
		return s.Elem, nil
	})
}

// Deferred builds a lazy Typer that resolves through fn once a scope is known.
func Deferred(desc string, fn func(Scope) (Typer, error)) Typer {
	return Typer{kind: kindLazy, resolve: fn, desc: desc}
}

// Valid reports whether t describes anything.
func (t Typer) Valid() bool { return t.kind != kindInvalid }

// IsLazy reports whether t still needs a scope to resolve.
func (t Typer) IsLazy() bool { return t.kind == kindLazy }

// IsCallable reports whether t describes a callable value.
func (t Typer) IsCallable() bool {
	switch t.kind {
	case kindCallable:
		return true
	case kindConcrete:
		return t.rt.Kind() == reflect.Func
	}
	return false
}

// IsStream reports whether t describes a pipeline handle.
func (t Typer) IsStream() bool { return t.kind == kindStream }

// IsDynamic reports whether t only promises an interface type, so members and
// operators must be looked up on the run-time value instead.
func (t Typer) IsDynamic() bool {
	return t.kind == kindConcrete && t.rt.Kind() == reflect.Interface && t.rt.NumMethod() == 0
}

// IsText reports whether t is the string type.
func (t Typer) IsText() bool {
	return t.kind == kindConcrete && t.rt.Kind() == reflect.String
}

// Type returns the Go type for concrete and stream Typers, and nil otherwise.
func (t Typer) Type() reflect.Type {
	switch t.kind {
	case kindConcrete, kindStream:
		return t.rt
	}
	return nil
}

// Schema returns the attachment schema of a stream Typer.
func (t Typer) Schema() Schema { return t.schema }

// Implements reports whether values described by t satisfy iface.
func (t Typer) Implements(iface reflect.Type) bool {
	rt := t.Type()
	if rt == nil || iface == nil || iface.Kind() != reflect.Interface {
		return false
	}
	return rt.Implements(iface)
}

// Resolve turns a lazy Typer into a concrete one within s. Non-lazy Typers
// resolve to themselves, with any lazy parts resolved too.
func (t Typer) Resolve(s Scope) (Typer, error) {
	switch t.kind {
	case kindInvalid:
		return Typer{}, errors.TypeResolution("invalid", "")
	case kindLazy:
		resolved, err := t.resolve(s)
		if err != nil {
			return Typer{}, err
		}
		return resolved.Resolve(s)
	case kindCallable:
		ret, err := t.ret.Resolve(s)
		if err != nil {
			return Typer{}, err
		}
		return Callable(ret), nil
	case kindStream:
		member, err := t.member.Resolve(s)
		if err != nil {
			return Typer{}, err
		}
		return StreamOf(t.rt, member, t.schema), nil
	}
	return t, nil
}

// Member returns the Typer of accessing name on values described by t. Lazy
// Typers stay lazy; the member chain is resolved against the scope later.
func (t Typer) Member(reg *Registry, name string) (Typer, error) {
	if t.kind == kindLazy {
		base := t
		return Deferred(t.desc+"."+name, func(s Scope) (Typer, error) {
			resolved, err := base.Resolve(s)
			if err != nil {
				return Typer{}, err
			}
			return resolved.Member(s.Registry(), name)
		}), nil
	}
	m, err := reg.Member(t, name)
	if err != nil {
		return Typer{}, err
	}
	return m.Result, nil
}

// Call returns the Typer of calling a value described by t.
func (t Typer) Call() (Typer, error) {
	switch t.kind {
	case kindCallable:
		return *t.ret, nil
	case kindLazy:
		base := t
		return Deferred(t.desc+"()", func(s Scope) (Typer, error) {
			resolved, err := base.Resolve(s)
			if err != nil {
				return Typer{}, err
			}
			return resolved.Call()
		}), nil
	case kindConcrete:
		if t.IsDynamic() {
			return Any(), nil
		}
		if t.rt.Kind() == reflect.Func && t.rt.NumOut() > 0 {
			return OfType(t.rt.Out(0)), nil
		}
	}
	return Typer{}, errors.TypeResolution(t.String(), "()").
		WithDetail("reason", "not callable")
}

// Add returns the Typer of t + other.
func (t Typer) Add(reg *Registry, other Typer) (Typer, error) {
	return t.combine(reg, OpAdd, other)
}

// Sub returns the Typer of t - other.
func (t Typer) Sub(reg *Registry, other Typer) (Typer, error) {
	return t.combine(reg, OpSub, other)
}

func (t Typer) combine(reg *Registry, op Op, other Typer) (Typer, error) {
	if t.kind == kindLazy || other.kind == kindLazy {
		left, right := t, other
		return Deferred(fmt.Sprintf("(%s %s %s)", t, op, other), func(s Scope) (Typer, error) {
			l, err := left.Resolve(s)
			if err != nil {
				return Typer{}, err
			}
			r, err := right.Resolve(s)
			if err != nil {
				return Typer{}, err
			}
			return l.combine(s.Registry(), op, r)
		}), nil
	}
	if op == OpAdd && (t.IsText() || other.IsText()) {
		return Of[string](), nil
	}
	if t.IsDynamic() || other.IsDynamic() {
		return Any(), nil
	}
	if rule, ok := reg.Binary(op, t.Type(), other.Type()); ok {
		return rule.Result, nil
	}
	return Typer{}, errors.TypeCombination(string(op), t.String(), other.String())
}

// Elem returns the Typer of the values obtained by re-streaming one value
// described by t: the member of a stream, the element of a slice, array or
// channel, the value of a map. Text, bytes and scalars re-stream as themselves.
func (t Typer) Elem() Typer {
	switch t.kind {
	case kindStream:
		return *t.member
	case kindConcrete:
		if t.rt == reflect.TypeFor[[]byte]() {
			return t
		}
		switch t.rt.Kind() {
		case reflect.Slice, reflect.Array, reflect.Chan, reflect.Map:
			return OfType(t.rt.Elem())
		}
	}
	return t
}

// ElemSchema returns the attachments added when a value described by t is
// re-streamed.
func (t Typer) ElemSchema() Schema {
	switch t.kind {
	case kindStream:
		return t.schema
	case kindConcrete:
		if t.rt.Kind() == reflect.Map {
			return Schema{}.With("key", OfType(t.rt.Key()))
		}
	}
	return Schema{}
}

func (t Typer) String() string {
	switch t.kind {
	case kindConcrete:
		return t.rt.String()
	case kindCallable:
		return "func() " + t.ret.String()
	case kindStream:
		return fmt.Sprintf("%s[%s]", t.rt, t.member)
	case kindLazy:
		return t.desc
	}
	return "invalid"
}
