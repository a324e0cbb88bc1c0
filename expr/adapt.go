package expr

import (
	"fmt"
	"reflect"

	"github.com/kbukum/streamkit/attach"
	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/typer"
)

var recordType = reflect.TypeFor[attach.Record]()

// FromNothing adapts a function that ignores the element.
func FromNothing[R any](fn func() R) Node {
	return FromNothingErr(func() (R, error) { return fn(), nil })
}

// FromNothingErr is FromNothing for functions that can fail.
func FromNothingErr[R any](fn func() (R, error)) Node {
	return Node{
		desc: "func()",
		typ:  typer.Of[R](),
		bind: func(typer.Scope) (Eval, error) {
			return func(any, attach.Record) (any, error) { return fn() }, nil
		},
	}
}

// FromElement adapts a function of the element.
func FromElement[T, R any](fn func(T) R) Node {
	return FromElementErr(func(v T) (R, error) { return fn(v), nil })
}

// FromElementErr is FromElement for functions that can fail.
func FromElementErr[T, R any](fn func(T) (R, error)) Node {
	in := reflect.TypeFor[T]()
	desc := fmt.Sprintf("func(%s)", in)
	return Node{
		desc: desc,
		typ:  typer.Of[R](),
		bind: func(s typer.Scope) (Eval, error) {
			if err := accepts(desc, s, in); err != nil {
				return nil, err
			}
			return func(v any, _ attach.Record) (any, error) {
				x, err := as[T](desc, v)
				if err != nil {
					return nil, err
				}
				return fn(x)
			}, nil
		},
	}
}

// FromElementAndAttachment adapts a function of the element and its
// attachments.
func FromElementAndAttachment[T, R any](fn func(T, attach.Record) R) Node {
	return FromElementAndAttachmentErr(func(v T, a attach.Record) (R, error) { return fn(v, a), nil })
}

// FromElementAndAttachmentErr is FromElementAndAttachment for functions that
// can fail.
func FromElementAndAttachmentErr[T, R any](fn func(T, attach.Record) (R, error)) Node {
	in := reflect.TypeFor[T]()
	desc := fmt.Sprintf("func(%s, attach.Record)", in)
	return Node{
		desc: desc,
		typ:  typer.Of[R](),
		bind: func(s typer.Scope) (Eval, error) {
			if err := accepts(desc, s, in); err != nil {
				return nil, err
			}
			return func(v any, a attach.Record) (any, error) {
				x, err := as[T](desc, v)
				if err != nil {
					return nil, err
				}
				return fn(x, a)
			}, nil
		},
	}
}

// Func adapts a func value by its declared parameters:
//
//	func() R                     ignores the element
//	func(T) R                    receives the element
//	func(T, attach.Record) R     receives the element and its attachments
//	func(...any) R               receives both as variadic arguments
//
// R may be followed by an error result. Any other shape, and an element type
// the pipeline cannot supply, is reported when the node is bound.
func Func(fn any) Node {
	if fn == nil {
		return invalid("nil", "not a function")
	}
	rv := reflect.ValueOf(fn)
	rt := rv.Type()
	desc := rt.String()
	if rt.Kind() != reflect.Func {
		return invalid(desc, "not a function")
	}
	switch {
	case rt.NumOut() == 1 && rt.Out(0) != errorType:
	case rt.NumOut() == 2 && rt.Out(1) == errorType:
	default:
		return invalid(desc, "must return a value, optionally followed by an error")
	}

	var (
		elem     reflect.Type
		withAttr bool
	)
	switch {
	case rt.IsVariadic() && rt.NumIn() == 1:
		elem, withAttr = rt.In(0).Elem(), true
		if !recordType.AssignableTo(elem) {
			return invalid(desc, "variadic parameters must accept the attachment record")
		}
	case rt.IsVariadic():
		return invalid(desc, "only func(...any) variadic shapes are supported")
	case rt.NumIn() == 0:
	case rt.NumIn() == 1:
		elem = rt.In(0)
	case rt.NumIn() == 2 && rt.In(1) == recordType:
		elem, withAttr = rt.In(0), true
	default:
		return invalid(desc, fmt.Sprintf("takes %d parameters", rt.NumIn()))
	}

	return Node{
		desc: desc,
		typ:  typer.OfType(rt.Out(0)),
		bind: func(s typer.Scope) (Eval, error) {
			if elem != nil {
				if err := accepts(desc, s, elem); err != nil {
					return nil, err
				}
			}
			return func(v any, a attach.Record) (any, error) {
				var args []any
				switch {
				case elem == nil:
				case withAttr:
					args = []any{v, a}
				default:
					args = []any{v}
				}
				return invoke(desc, fn, args)
			}, nil
		},
	}
}

// accepts checks at bind time that the pipeline's elements can be passed as
// a parameter of type in. Interface-typed elements are checked per element.
func accepts(desc string, s typer.Scope, in reflect.Type) error {
	et, err := s.Elem.Resolve(s)
	if err != nil {
		return err
	}
	rt := et.Type()
	if rt == nil {
		return errors.InvalidExpression(desc, fmt.Sprintf("pipeline yields %s", et))
	}
	if rt.Kind() == reflect.Interface || rt.AssignableTo(in) {
		return nil
	}
	if isNumber(rt.Kind()) && isNumber(in.Kind()) {
		return nil
	}
	return errors.InvalidExpression(desc, fmt.Sprintf("expects %s, pipeline yields %s", in, rt))
}

func as[T any](desc string, v any) (T, error) {
	if x, ok := v.(T); ok {
		return x, nil
	}
	var zero T
	pt := reflect.TypeFor[T]()
	if v == nil {
		switch pt.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return zero, nil
		}
		return zero, errors.Evaluation(desc, fmt.Errorf("nil is not a %s", pt))
	}
	rv, err := convertArg(v, pt)
	if err != nil {
		return zero, errors.Evaluation(desc, err)
	}
	return rv.Interface().(T), nil
}
