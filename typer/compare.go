package typer

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/kbukum/streamkit/errors"
)

// Compare orders a and b. Numbers compare by value across Go numeric types,
// text and bytes lexically, booleans false before true, times chronologically.
// nil sorts before everything. Other pairs are an error.
func Compare(a, b any) (int, error) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case []byte:
		if y, ok := b.([]byte); ok {
			return bytes.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			return compareBool(x, y), nil
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if c, ok := compareNumbers(av, bv); ok {
		return c, nil
	}
	if av.Kind() == reflect.String && bv.Kind() == reflect.String {
		return strings.Compare(av.String(), bv.String()), nil
	}
	return 0, errors.TypeCombination("<", fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}

// Order is a total version of Compare for sorting: pairs Compare rejects are
// ordered by type name, then by their printed form.
func Order(a, b any) int {
	if c, err := Compare(a, b); err == nil {
		return c
	}
	if c := strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)); c != 0 {
		return c
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// Equal reports value equality. Numbers of different Go types are equal when
// their values are; values == cannot compare fall back to reflect.DeepEqual.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if c, ok := compareNumbers(av, bv); ok {
		return c == 0
	}
	if av.Type() == bv.Type() && hashable(av) && hashable(bv) {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Hashable reports whether v can be a map key. A comparable type is not
// enough: an interface field holding a slice still panics on hashing.
func Hashable(v any) bool { return hashable(reflect.ValueOf(v)) }

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

// Key maps v to a map key that agrees with Equal for numbers: 1, 1.0 and
// int64(1) share a key. Other values are returned unchanged.
func Key(v any) any {
	rv := reflect.ValueOf(v)
	switch k := rv.Kind(); {
	case isInt(k):
		return rv.Int()
	case isUint(k):
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u)
		}
		return rv.Uint()
	case isFloat(k):
		f := rv.Float()
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f)
		}
		return f
	}
	return v
}

// Contains reports whether item is in container: a substring of a string, a
// subslice of bytes, an element of a slice or array, or a key of a map.
func Contains(container, item any) (bool, error) {
	switch c := container.(type) {
	case string:
		switch s := item.(type) {
		case string:
			return strings.Contains(c, s), nil
		case rune:
			return strings.ContainsRune(c, s), nil
		}
	case []byte:
		if s, ok := item.([]byte); ok {
			return bytes.Contains(c, s), nil
		}
	}
	cv := reflect.ValueOf(container)
	switch cv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := range cv.Len() {
			if Equal(cv.Index(i).Interface(), item) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		if item == nil {
			return false, nil
		}
		key := reflect.ValueOf(item)
		if !key.Type().AssignableTo(cv.Type().Key()) {
			if !key.Type().ConvertibleTo(cv.Type().Key()) || !isNumber(key.Kind()) || !isNumber(cv.Type().Key().Kind()) {
				return false, nil
			}
			key = key.Convert(cv.Type().Key())
		}
		return cv.MapIndex(key).IsValid(), nil
	}
	return false, errors.TypeCombination("contains", fmt.Sprintf("%T", container), fmt.Sprintf("%T", item))
}

func compareBool(x, y bool) int {
	switch {
	case x == y:
		return 0
	case !x:
		return -1
	default:
		return 1
	}
}

func compareNumbers(a, b reflect.Value) (int, bool) {
	ak, bk := a.Kind(), b.Kind()
	if !isNumber(ak) || !isNumber(bk) {
		return 0, false
	}
	switch {
	case isFloat(ak) || isFloat(bk):
		return cmp.Compare(toFloat(a), toFloat(b)), true
	case isInt(ak) && isInt(bk):
		return cmp.Compare(a.Int(), b.Int()), true
	case isUint(ak) && isUint(bk):
		return cmp.Compare(a.Uint(), b.Uint()), true
	case isInt(ak):
		if a.Int() < 0 {
			return -1, true
		}
		return cmp.Compare(uint64(a.Int()), b.Uint()), true
	default:
		if b.Int() < 0 {
			return 1, true
		}
		return cmp.Compare(a.Uint(), uint64(b.Int())), true
	}
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v.Kind()):
		return float64(v.Int())
	case isUint(v.Kind()):
		return float64(v.Uint())
	}
	return v.Float()
}

func isNumber(k reflect.Kind) bool { return isInt(k) || isUint(k) || isFloat(k) }

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
