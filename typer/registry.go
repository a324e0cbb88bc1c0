package typer

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/kbukum/streamkit/errors"
)

// Op names a binary operator with registry-driven typing.
type Op string

const (
	OpAdd Op = "+"
	OpSub Op = "-"
)

// Member is a registered fact about one named member of a type: the Typer of
// the result and how to read it from a value.
type Member struct {
	Result Typer
	Get    func(recv any) (any, error)
}

// BinaryRule types and evaluates one operator for a pair of operand types.
type BinaryRule struct {
	Result Typer
	Apply  func(l, r any) (any, error)
}

// Declarer is implemented by types that describe their own members. It is
// consulted when the registry has no entry. MemberType is called on the zero
// value of the type, so it must not depend on receiver state.
type Declarer interface {
	MemberType(name string) (Typer, bool)
}

// Accessor is the run-time counterpart of Declarer.
type Accessor interface {
	Member(name string) (any, error)
}

var declarerType = reflect.TypeFor[Declarer]()

type memberKey struct {
	rt   reflect.Type
	name string
}

type binaryKey struct {
	op   Op
	l, r reflect.Type
}

// Registry maps (type, member name) pairs and (operator, type, type) triples
// to their result Typers. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	members map[memberKey]Member
	ifaces  []reflect.Type
	binary  map[binaryKey]BinaryRule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		members: make(map[memberKey]Member),
		binary:  make(map[binaryKey]BinaryRule),
	}
}

// Register records m as the member name of rt. Members registered on an
// interface type apply to every type implementing it, unless the concrete
// type has its own entry.
func (r *Registry) Register(rt reflect.Type, name string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rt.Kind() == reflect.Interface {
		known := false
		for _, it := range r.ifaces {
			if it == rt {
				known = true
				break
			}
		}
		if !known {
			r.ifaces = append(r.ifaces, rt)
		}
	}
	r.members[memberKey{rt, name}] = m
}

// RegisterBinary records rule for l op right.
func (r *Registry) RegisterBinary(op Op, l, right reflect.Type, rule BinaryRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.binary[binaryKey{op, l, right}] = rule
}

// Binary returns the rule for l op right.
func (r *Registry) Binary(op Op, l, right reflect.Type) (BinaryRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.binary[binaryKey{op, l, right}]
	return rule, ok
}

// Clone returns an independent copy of r, for callers that want Default's
// entries plus private ones.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewRegistry()
	for k, v := range r.members {
		out.members[k] = v
	}
	for k, v := range r.binary {
		out.binary[k] = v
	}
	out.ifaces = append(out.ifaces, r.ifaces...)
	return out
}

func (r *Registry) lookup(rt reflect.Type, name string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.members[memberKey{rt, name}]; ok {
		return m, true
	}
	for _, it := range r.ifaces {
		if it != rt && rt.Implements(it) {
			if m, ok := r.members[memberKey{it, name}]; ok {
				return m, true
			}
		}
	}
	return Member{}, false
}

// Member resolves name on values described by t: registry first, then the
// type's own Declarer. Interface-typed values defer the lookup to run time.
func (r *Registry) Member(t Typer, name string) (Member, error) {
	rt := t.Type()
	if rt == nil {
		return Member{}, errors.TypeResolution(t.String(), name)
	}
	if m, ok := r.lookup(rt, name); ok {
		return m, nil
	}
	if d, ok := declarerOf(rt); ok {
		if res, ok := d.MemberType(name); ok {
			return Member{Result: res, Get: func(recv any) (any, error) {
				return accessMember(recv, name)
			}}, nil
		}
	}
	if t.IsDynamic() {
		return Member{Result: Any(), Get: func(recv any) (any, error) {
			return r.Access(recv, name)
		}}, nil
	}
	return Member{}, errors.TypeResolution(rt.String(), name)
}

// Access reads name from recv using its dynamic type.
func (r *Registry) Access(recv any, name string) (any, error) {
	if recv == nil {
		return nil, errors.TypeResolution("nil", name)
	}
	if m, ok := r.lookup(reflect.TypeOf(recv), name); ok {
		return m.Get(recv)
	}
	return accessMember(recv, name)
}

// Apply evaluates l op right. Text combined with anything is text; other
// pairs need a registered rule for their dynamic types.
func (r *Registry) Apply(op Op, l, right any) (any, error) {
	if op == OpAdd {
		_, ls := l.(string)
		_, rs := right.(string)
		if ls || rs {
			return text(l) + text(right), nil
		}
	}
	if l != nil && right != nil {
		if rule, ok := r.Binary(op, reflect.TypeOf(l), reflect.TypeOf(right)); ok {
			return rule.Apply(l, right)
		}
	}
	return nil, errors.TypeCombination(string(op), fmt.Sprintf("%T", l), fmt.Sprintf("%T", right))
}

func accessMember(recv any, name string) (any, error) {
	if a, ok := recv.(Accessor); ok {
		return a.Member(name)
	}
	return nil, errors.TypeResolution(fmt.Sprintf("%T", recv), name)
}

func declarerOf(rt reflect.Type) (Declarer, bool) {
	if rt.Kind() == reflect.Interface || !rt.Implements(declarerType) {
		return nil, false
	}
	d, ok := reflect.Zero(rt).Interface().(Declarer)
	return d, ok
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// RegisterMember records a member of T computed by get. For methods, get
// returns a bound func value and the member's Typer is that func type.
func RegisterMember[T, R any](reg *Registry, name string, get func(T) R) {
	reg.Register(reflect.TypeFor[T](), name, Member{
		Result: Of[R](),
		Get: func(recv any) (any, error) {
			v, ok := recv.(T)
			if !ok {
				return nil, errors.TypeResolution(fmt.Sprintf("%T", recv), name)
			}
			return get(v), nil
		},
	})
}

// RegisterBinaryFunc records fn as the rule for L op R.
func RegisterBinaryFunc[L, R, O any](reg *Registry, op Op, fn func(L, R) O) {
	reg.RegisterBinary(op, reflect.TypeFor[L](), reflect.TypeFor[R](), BinaryRule{
		Result: Of[O](),
		Apply: func(l, r any) (any, error) {
			lv, lok := l.(L)
			rv, rok := r.(R)
			if !lok || !rok {
				return nil, errors.TypeCombination(string(op), fmt.Sprintf("%T", l), fmt.Sprintf("%T", r))
			}
			return fn(lv, rv), nil
		},
	})
}
