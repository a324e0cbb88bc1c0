package expr

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/kbukum/streamkit/attach"
	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/typer"
)

// Eval computes an expression for one element and its attachments.
type Eval func(v any, a attach.Record) (any, error)

// Bound is an expression compiled against a scope.
type Bound struct {
	Type typer.Typer
	Eval Eval
}

// Node is an immutable expression. It is built without a concrete element and
// bound later, once per pipeline it is used in.
type Node struct {
	desc     string
	typ      typer.Typer
	bind     func(typer.Scope) (Eval, error)
	identity bool
	err      error
}

// Field names an expression whose result is attached to each element.
type Field struct {
	Name string
	Node Node
}

// As builds a Field from anything From accepts.
func As(name string, v any) Field {
	return Field{Name: name, Node: From(v)}
}

// It is the element itself.
func It() Node {
	return Node{
		desc:     "it",
		typ:      typer.Lazy(),
		identity: true,
		bind: func(typer.Scope) (Eval, error) {
			return func(v any, _ attach.Record) (any, error) { return v, nil }, nil
		},
	}
}

// Const is a fixed value, typed by its example. A nil constant has no type
// and fails to bind.
func Const(v any) Node {
	t, err := typer.OfExample(v)
	return Node{desc: describe(v), typ: t, err: err, bind: constant(v)}
}

// From turns v into a node: nodes pass through, strings name a member of the
// element, funcs are adapted with Func, and other values become constants.
func From(v any) Node {
	switch x := v.(type) {
	case Node:
		return x
	case string:
		return It().Attr(x)
	case nil:
		return invalid("nil", "no expression given")
	}
	if reflect.TypeOf(v).Kind() == reflect.Func {
		return Func(v)
	}
	return Const(v)
}

// lift wraps call and operator arguments. Unlike Const it accepts nil.
func lift(v any) Node {
	switch x := v.(type) {
	case Node:
		return x
	case nil:
		return Node{desc: "nil", typ: typer.Any(), bind: constant(nil)}
	}
	return Const(v)
}

func constant(v any) func(typer.Scope) (Eval, error) {
	return func(typer.Scope) (Eval, error) {
		return func(any, attach.Record) (any, error) { return v, nil }, nil
	}
}

func invalid(desc, reason string) Node {
	return Node{desc: desc, err: errors.InvalidExpression(desc, reason)}
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(v)
}

func (n Node) String() string { return n.desc }

// Type returns the node's Typer, which stays lazy until bound.
func (n Node) Type() typer.Typer { return n.typ }

// Err returns the construction error carried by the node, if any.
func (n Node) Err() error {
	if n.err == nil && n.bind == nil {
		return errors.InvalidExpression("<empty>", "zero Node")
	}
	return n.err
}

// Bind resolves the node's type and compiles its evaluator within s. Binding
// has no side effects; the returned Eval only closes over other bound
// evaluators and is safe to share between goroutines.
func (n Node) Bind(s typer.Scope) (Bound, error) {
	if err := n.Err(); err != nil {
		return Bound{}, err
	}
	t, err := n.typ.Resolve(s)
	if err != nil {
		return Bound{}, err
	}
	eval, err := n.bind(s)
	if err != nil {
		return Bound{}, err
	}
	return Bound{Type: t, Eval: eval}, nil
}

// Attr reads member name from the node's result. On It, a name declared in
// the attachment schema reads the attachment instead of the element.
func (n Node) Attr(name string) Node {
	base := n
	desc := n.desc + "." + name
	return Node{
		desc: desc,
		err:  n.err,
		typ: typer.Deferred(desc, func(s typer.Scope) (typer.Typer, error) {
			if base.identity {
				if t, ok := s.Schema.Get(name); ok {
					return t, nil
				}
			}
			bt, err := base.typ.Resolve(s)
			if err != nil {
				return typer.Typer{}, err
			}
			return bt.Member(s.Registry(), name)
		}),
		bind: func(s typer.Scope) (Eval, error) {
			if base.identity && s.Schema.Has(name) {
				return func(_ any, a attach.Record) (any, error) {
					v, _ := a.Get(name)
					return v, nil
				}, nil
			}
			b, err := base.Bind(s)
			if err != nil {
				return nil, err
			}
			m, err := s.Registry().Member(b.Type, name)
			if err != nil {
				return nil, err
			}
			return func(v any, a attach.Record) (any, error) {
				recv, err := b.Eval(v, a)
				if err != nil {
					return nil, err
				}
				if recv == nil {
					return nil, errors.TypeResolution("nil", name)
				}
				return m.Get(recv)
			}, nil
		},
	}
}

// Call invokes the node's result with args. Arguments that are not nodes are
// wrapped as constants.
func (n Node) Call(args ...any) Node {
	return n.call(nil, args)
}

// CallKw is Call with keyword arguments. The callee receives them as a
// trailing map[string]any parameter.
func (n Node) CallKw(kw map[string]any, args ...any) Node {
	if kw == nil {
		kw = map[string]any{}
	}
	return n.call(kw, args)
}

var kwType = reflect.TypeFor[map[string]any]()

func (n Node) call(kw map[string]any, raw []any) Node {
	callee := n
	args := make([]Node, len(raw))
	parts := make([]string, 0, len(raw)+len(kw))
	err := n.err
	for i, a := range raw {
		args[i] = lift(a)
		parts = append(parts, args[i].desc)
		if err == nil {
			err = args[i].err
		}
	}
	names := make([]string, 0, len(kw))
	for k := range kw {
		names = append(names, k)
	}
	slices.Sort(names)
	kwArgs := make([]Node, len(names))
	for i, k := range names {
		kwArgs[i] = lift(kw[k])
		parts = append(parts, k+"="+kwArgs[i].desc)
		if err == nil {
			err = kwArgs[i].err
		}
	}
	desc := fmt.Sprintf("%s(%s)", n.desc, strings.Join(parts, ", "))

	return Node{
		desc: desc,
		err:  err,
		typ: typer.Deferred(desc, func(s typer.Scope) (typer.Typer, error) {
			ft, err := callee.typ.Resolve(s)
			if err != nil {
				return typer.Typer{}, err
			}
			return ft.Call()
		}),
		bind: func(s typer.Scope) (Eval, error) {
			fb, err := callee.Bind(s)
			if err != nil {
				return nil, err
			}
			argEvals, err := bindAll(s, args)
			if err != nil {
				return nil, err
			}
			kwEvals, err := bindAll(s, kwArgs)
			if err != nil {
				return nil, err
			}
			if err := checkArity(desc, fb.Type, len(args), kw != nil); err != nil {
				return nil, err
			}
			return func(v any, a attach.Record) (any, error) {
				fn, err := fb.Eval(v, a)
				if err != nil {
					return nil, err
				}
				vals := make([]any, 0, len(argEvals)+1)
				for _, e := range argEvals {
					x, err := e(v, a)
					if err != nil {
						return nil, err
					}
					vals = append(vals, x)
				}
				if kw != nil {
					m := make(map[string]any, len(kwEvals))
					for i, e := range kwEvals {
						x, err := e(v, a)
						if err != nil {
							return nil, err
						}
						m[names[i]] = x
					}
					vals = append(vals, m)
				}
				return invoke(desc, fn, vals)
			}, nil
		},
	}
}

func bindAll(s typer.Scope, nodes []Node) ([]Eval, error) {
	out := make([]Eval, len(nodes))
	for i, n := range nodes {
		b, err := n.Bind(s)
		if err != nil {
			return nil, err
		}
		out[i] = b.Eval
	}
	return out, nil
}

// checkArity validates a call against a statically known func type. Dynamic
// callees are checked when invoked.
func checkArity(desc string, ft typer.Typer, n int, kw bool) error {
	rt := ft.Type()
	if rt == nil || rt.Kind() != reflect.Func {
		return nil
	}
	if kw {
		last := rt.NumIn() - 1
		if rt.IsVariadic() || last < 0 || rt.In(last) != kwType {
			return errors.InvalidExpression(desc, "callee does not take keyword arguments")
		}
		n++
	}
	if rt.IsVariadic() {
		if n < rt.NumIn()-1 {
			return errors.InvalidExpression(desc, fmt.Sprintf("needs at least %d arguments, got %d", rt.NumIn()-1, n))
		}
		return nil
	}
	if n != rt.NumIn() {
		return errors.InvalidExpression(desc, fmt.Sprintf("needs %d arguments, got %d", rt.NumIn(), n))
	}
	return nil
}
