package expr

import (
	"fmt"

	"github.com/kbukum/streamkit/attach"
	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/typer"
)

// Add is n + other. Text combined with anything yields text; other operand
// types need a registry rule.
func (n Node) Add(other any) Node { return n.arith(typer.OpAdd, other) }

// Sub is n - other.
func (n Node) Sub(other any) Node { return n.arith(typer.OpSub, other) }

// Eq is n == other.
func (n Node) Eq(other any) Node {
	return n.compare("==", other, func(l, r any) (any, error) { return typer.Equal(l, r), nil })
}

// Ne is n != other.
func (n Node) Ne(other any) Node {
	return n.compare("!=", other, func(l, r any) (any, error) { return !typer.Equal(l, r), nil })
}

// Lt is n < other.
func (n Node) Lt(other any) Node { return n.order("<", other, func(c int) bool { return c < 0 }) }

// Le is n <= other.
func (n Node) Le(other any) Node { return n.order("<=", other, func(c int) bool { return c <= 0 }) }

// Gt is n > other.
func (n Node) Gt(other any) Node { return n.order(">", other, func(c int) bool { return c > 0 }) }

// Ge is n >= other.
func (n Node) Ge(other any) Node { return n.order(">=", other, func(c int) bool { return c >= 0 }) }

// Contains reports whether item is in the node's result.
func (n Node) Contains(item any) Node {
	return n.compare("contains", item, func(l, r any) (any, error) { return typer.Contains(l, r) })
}

// Not negates a boolean node.
func (n Node) Not() Node {
	base := n
	desc := "!" + n.desc
	return Node{
		desc: desc,
		err:  n.err,
		typ:  typer.Of[bool](),
		bind: func(s typer.Scope) (Eval, error) {
			b, err := base.Bind(s)
			if err != nil {
				return nil, err
			}
			return func(v any, a attach.Record) (any, error) {
				x, err := b.Eval(v, a)
				if err != nil {
					return nil, err
				}
				t, ok := x.(bool)
				if !ok {
					return nil, errors.Evaluation(desc, fmt.Errorf("%T is not a bool", x))
				}
				return !t, nil
			}, nil
		},
	}
}

func (n Node) arith(op typer.Op, other any) Node {
	left, right := n, lift(other)
	desc := fmt.Sprintf("(%s %s %s)", left.desc, op, right.desc)
	return Node{
		desc: desc,
		err:  firstErr(left.err, right.err),
		typ: typer.Deferred(desc, func(s typer.Scope) (typer.Typer, error) {
			lt, err := left.typ.Resolve(s)
			if err != nil {
				return typer.Typer{}, err
			}
			rt, err := right.typ.Resolve(s)
			if err != nil {
				return typer.Typer{}, err
			}
			if op == typer.OpAdd {
				return lt.Add(s.Registry(), rt)
			}
			return lt.Sub(s.Registry(), rt)
		}),
		bind: binary(left, right, func(s typer.Scope) func(l, r any) (any, error) {
			reg := s.Registry()
			return func(l, r any) (any, error) { return reg.Apply(op, l, r) }
		}),
	}
}

func (n Node) compare(op string, other any, fn func(l, r any) (any, error)) Node {
	left, right := n, lift(other)
	return Node{
		desc: fmt.Sprintf("(%s %s %s)", left.desc, op, right.desc),
		err:  firstErr(left.err, right.err),
		typ:  typer.Of[bool](),
		bind: binary(left, right, func(typer.Scope) func(l, r any) (any, error) { return fn }),
	}
}

func (n Node) order(op string, other any, test func(int) bool) Node {
	return n.compare(op, other, func(l, r any) (any, error) {
		c, err := typer.Compare(l, r)
		if err != nil {
			return nil, err
		}
		return test(c), nil
	})
}

func binary(left, right Node, apply func(typer.Scope) func(l, r any) (any, error)) func(typer.Scope) (Eval, error) {
	return func(s typer.Scope) (Eval, error) {
		lb, err := left.Bind(s)
		if err != nil {
			return nil, err
		}
		rb, err := right.Bind(s)
		if err != nil {
			return nil, err
		}
		fn := apply(s)
		return func(v any, a attach.Record) (any, error) {
			l, err := lb.Eval(v, a)
			if err != nil {
				return nil, err
			}
			r, err := rb.Eval(v, a)
			if err != nil {
				return nil, err
			}
			return fn(l, r)
		}, nil
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
