package expr

import (
	"fmt"
	"math"
	"reflect"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/typer"
)

var errorType = reflect.TypeFor[error]()

// invoke calls fn with args, converting numeric arguments to the declared
// parameter types. A trailing non-nil error result becomes the returned error.
func invoke(desc string, fn any, args []any) (any, error) {
	if fn == nil {
		return nil, errors.Evaluation(desc, fmt.Errorf("call of nil"))
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.Evaluation(desc, fmt.Errorf("%T is not callable", fn))
	}
	rt := rv.Type()
	fixed := rt.NumIn()
	if rt.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, errors.Evaluation(desc, fmt.Errorf("needs at least %d arguments, got %d", fixed, len(args)))
		}
	} else if len(args) != fixed {
		return nil, errors.Evaluation(desc, fmt.Errorf("needs %d arguments, got %d", fixed, len(args)))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if i < fixed {
			pt = rt.In(i)
		} else {
			pt = rt.In(fixed).Elem()
		}
		v, err := convertArg(a, pt)
		if err != nil {
			return nil, errors.Evaluation(desc, fmt.Errorf("argument %d: %w", i, err))
		}
		in[i] = v
	}
	return results(rv.Call(in))
}

func results(out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type() == errorType {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out = out[:len(out)-1]
		if len(out) == 0 {
			return nil, nil
		}
	}
	return out[0].Interface(), nil
}

func convertArg(a any, pt reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch pt.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(pt), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a %s", pt)
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(pt) {
		return av, nil
	}
	if isNumber(av.Kind()) && isNumber(pt.Kind()) {
		return convertNumber(av, pt)
	}
	return reflect.Value{}, fmt.Errorf("%s is not a %s", av.Type(), pt)
}

// convertNumber converts av to pt only when the value survives: fractions
// are not truncated and out of range values do not wrap. Between float
// types rounding is accepted, overflow is not.
func convertNumber(av reflect.Value, pt reflect.Type) (reflect.Value, error) {
	cv := av.Convert(pt)
	var exact bool
	if isFloat(av.Kind()) && isFloat(pt.Kind()) {
		exact = !math.IsInf(cv.Float(), 0) || math.IsInf(av.Float(), 0)
	} else {
		exact = cv.Convert(av.Type()).Equal(av) && typer.Equal(cv.Interface(), av.Interface())
	}
	if !exact {
		return reflect.Value{}, fmt.Errorf("%v cannot be represented as %s", av, pt)
	}
	return cv, nil
}

func isNumber(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Uintptr) || isFloat(k)
}

func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }
