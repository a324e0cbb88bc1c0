package expr

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/kbukum/streamkit/attach"
	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/typer"
)

type user struct {
	Name string
	Age  int
}

func testScope(elem typer.Typer) typer.Scope {
	reg := typer.Default.Clone()
	typer.RegisterMember(reg, "Name", func(u user) string { return u.Name })
	typer.RegisterMember(reg, "Age", func(u user) int { return u.Age })
	typer.RegisterMember(reg, "Greet", func(u user) func(string) string {
		return func(greeting string) string { return greeting + ", " + u.Name }
	})
	typer.RegisterMember(reg, "Format", func(u user) func(string, map[string]any) string {
		return func(prefix string, kw map[string]any) string {
			return prefix + u.Name + kw["suffix"].(string)
		}
	})
	return typer.Scope{Elem: elem, Reg: reg}
}

func mustBind(t *testing.T, n Node, s typer.Scope) Bound {
	t.Helper()
	b, err := n.Bind(s)
	if err != nil {
		t.Fatalf("bind %s: %v", n, err)
	}
	return b
}

func eval(t *testing.T, b Bound, v any, a attach.Record) any {
	t.Helper()
	out, err := b.Eval(v, a)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	return out
}

func TestIt(t *testing.T) {
	b := mustBind(t, It(), testScope(typer.Of[int]()))
	if b.Type.Type() != reflect.TypeFor[int]() {
		t.Errorf("got %s", b.Type)
	}
	if got := eval(t, b, 7, attach.Record{}); got != 7 {
		t.Errorf("got %v", got)
	}
}

func TestConst(t *testing.T) {
	b := mustBind(t, Const("x"), testScope(typer.Of[int]()))
	if !b.Type.IsText() {
		t.Errorf("got %s", b.Type)
	}
	if got := eval(t, b, 1, attach.Record{}); got != "x" {
		t.Errorf("got %v", got)
	}
}

func TestConst_NilFailsToBind(t *testing.T) {
	_, err := Const(nil).Bind(testScope(typer.Of[int]()))
	if !errors.IsCode(err, errors.ErrCodeTypeResolution) {
		t.Errorf("expected type resolution error, got %v", err)
	}
}

func TestAttr(t *testing.T) {
	b := mustBind(t, It().Attr("Name"), testScope(typer.Of[user]()))
	if !b.Type.IsText() {
		t.Errorf("got %s", b.Type)
	}
	if got := eval(t, b, user{Name: "ada"}, attach.Record{}); got != "ada" {
		t.Errorf("got %v", got)
	}
}

func TestAttr_UnknownFailsAtBind(t *testing.T) {
	_, err := It().Attr("Email").Bind(testScope(typer.Of[user]()))
	if !errors.IsCode(err, errors.ErrCodeTypeResolution) {
		t.Errorf("expected type resolution error, got %v", err)
	}
}

func TestAttr_AttachmentTakesPrecedence(t *testing.T) {
	s := testScope(typer.Of[user]())
	s.Schema = typer.Schema{}.With("Name", typer.Of[string]())
	b := mustBind(t, It().Attr("Name"), s)
	got := eval(t, b, user{Name: "element"}, attach.New("Name", "attached"))
	if got != "attached" {
		t.Errorf("got %v", got)
	}
}

func TestAttr_Chain(t *testing.T) {
	n := It().Attr("Name").Attr("ToUpper").Call()
	b := mustBind(t, n, testScope(typer.Of[user]()))
	if !b.Type.IsText() {
		t.Errorf("got %s", b.Type)
	}
	if got := eval(t, b, user{Name: "ada"}, attach.Record{}); got != "ADA" {
		t.Errorf("got %v", got)
	}
	if n.String() != "it.Name.ToUpper()" {
		t.Errorf("desc %q", n.String())
	}
}

func TestAttr_NilReceiverIsElementError(t *testing.T) {
	b := mustBind(t, It().Attr("Len"), testScope(typer.Any()))
	if _, err := b.Eval(nil, attach.Record{}); err == nil {
		t.Error("member of nil should fail per element")
	}
}

func TestCall_WithArgumentExpressions(t *testing.T) {
	n := It().Attr("Greet").Call(It().Attr("Name"))
	b := mustBind(t, n, testScope(typer.Of[user]()))
	if got := eval(t, b, user{Name: "bo"}, attach.Record{}); got != "bo, bo" {
		t.Errorf("got %v", got)
	}
}

func TestCall_ArityCheckedAtBind(t *testing.T) {
	_, err := It().Attr("Greet").Call().Bind(testScope(typer.Of[user]()))
	if !errors.IsCode(err, errors.ErrCodeInvalidExpression) {
		t.Errorf("expected invalid expression, got %v", err)
	}
}

func TestCall_NotCallable(t *testing.T) {
	_, err := It().Attr("Age").Call().Bind(testScope(typer.Of[user]()))
	if err == nil {
		t.Error("int is not callable")
	}
}

func TestCallKw(t *testing.T) {
	n := It().Attr("Format").CallKw(map[string]any{"suffix": "!"}, "hi ")
	b := mustBind(t, n, testScope(typer.Of[user]()))
	if got := eval(t, b, user{Name: "cy"}, attach.Record{}); got != "hi cy!" {
		t.Errorf("got %v", got)
	}
	if _, err := It().Attr("Greet").CallKw(map[string]any{"x": 1}, "a").Bind(testScope(typer.Of[user]())); err == nil {
		t.Error("Greet takes no keyword arguments")
	}
}

func TestCall_NumericArgumentConverted(t *testing.T) {
	b := mustBind(t, It().Attr("Repeat").Call(int64(2)), testScope(typer.Of[string]()))
	if got := eval(t, b, "ab", attach.Record{}); got != "abab" {
		t.Errorf("got %v", got)
	}
	b = mustBind(t, It().Attr("Repeat").Call(2.0), testScope(typer.Of[string]()))
	if got := eval(t, b, "ab", attach.Record{}); got != "abab" {
		t.Errorf("integral float: got %v", got)
	}

	for _, arg := range []any{2.9, -1.5, uint64(1 << 63)} {
		b := mustBind(t, It().Attr("Repeat").Call(arg), testScope(typer.Of[string]()))
		if _, err := b.Eval("ab", attach.Record{}); !errors.IsCode(err, errors.ErrCodeEvaluation) {
			t.Errorf("Repeat(%T %v): expected EVALUATION, got %v", arg, arg, err)
		}
	}
}

func TestCall_NumericArgumentOutOfRange(t *testing.T) {
	b := mustBind(t, Const(func(n uint8) uint8 { return n }).Call(It()), testScope(typer.Of[int]()))
	if got := eval(t, b, 200, attach.Record{}); got != uint8(200) {
		t.Errorf("got %#v", got)
	}
	for _, v := range []int{-1, 300} {
		if _, err := b.Eval(v, attach.Record{}); !errors.IsCode(err, errors.ErrCodeEvaluation) {
			t.Errorf("uint8(%d): expected EVALUATION, got %v", v, err)
		}
	}
}

func TestAdd(t *testing.T) {
	b := mustBind(t, Const("n=").Add(It()), testScope(typer.Of[int]()))
	if !b.Type.IsText() {
		t.Errorf("got %s", b.Type)
	}
	if got := eval(t, b, 4, attach.Record{}); got != "n=4" {
		t.Errorf("got %v", got)
	}
	b = mustBind(t, It().Add(1), testScope(typer.Of[int]()))
	if got := eval(t, b, 4, attach.Record{}); got != 5 {
		t.Errorf("got %v", got)
	}
}

func TestAdd_UnresolvedCombination(t *testing.T) {
	_, err := It().Sub(1.5).Bind(testScope(typer.Of[user]()))
	if !errors.IsCode(err, errors.ErrCodeTypeCombination) {
		t.Errorf("expected combination error, got %v", err)
	}
}

func TestComparisons(t *testing.T) {
	s := testScope(typer.Of[int]())
	tests := []struct {
		node Node
		want bool
	}{
		{It().Eq(3), true},
		{It().Ne(3), false},
		{It().Lt(4), true},
		{It().Le(3), true},
		{It().Gt(3), false},
		{It().Ge(3.0), true},
		{It().Gt(1).Not(), false},
	}
	for _, tt := range tests {
		b := mustBind(t, tt.node, s)
		if b.Type.Type() != reflect.TypeFor[bool]() {
			t.Errorf("%s: typed %s", tt.node, b.Type)
		}
		if got := eval(t, b, 3, attach.Record{}); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.node, got, tt.want)
		}
	}
}

func TestContains(t *testing.T) {
	b := mustBind(t, It().Contains("ell"), testScope(typer.Of[string]()))
	if got := eval(t, b, "hello", attach.Record{}); got != true {
		t.Errorf("got %v", got)
	}
	b = mustBind(t, Const([]string{"a", "b"}).Contains(It()), testScope(typer.Of[string]()))
	if got := eval(t, b, "c", attach.Record{}); got != false {
		t.Errorf("got %v", got)
	}
}

func TestBind_ReusableAcrossScopes(t *testing.T) {
	n := It().Attr("Len")
	if _, err := n.Bind(testScope(typer.Of[string]())); err != nil {
		t.Fatal(err)
	}
	if _, err := n.Bind(testScope(typer.Of[[]byte]())); err != nil {
		t.Fatal(err)
	}
	if _, err := n.Bind(testScope(typer.Of[user]())); err == nil {
		t.Error("user has no Len")
	}
}

func TestBound_ConcurrentEval(t *testing.T) {
	b := mustBind(t, It().Attr("ToUpper").Call(), testScope(typer.Of[string]()))
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := strings.Repeat("a", i)
			out, err := b.Eval(in, attach.Record{})
			if err != nil || out != strings.ToUpper(in) {
				t.Errorf("got %v (%v)", out, err)
			}
		}()
	}
	wg.Wait()
}

func TestFrom(t *testing.T) {
	s := testScope(typer.Of[user]())
	if got := eval(t, mustBind(t, From("Age"), s), user{Age: 3}, attach.Record{}); got != 3 {
		t.Errorf("string should name a member, got %v", got)
	}
	if got := eval(t, mustBind(t, From(func(u user) int { return u.Age * 2 }), s), user{Age: 3}, attach.Record{}); got != 6 {
		t.Errorf("func should adapt, got %v", got)
	}
	if got := eval(t, mustBind(t, From(9), s), user{}, attach.Record{}); got != 9 {
		t.Errorf("value should be constant, got %v", got)
	}
	if _, err := From(nil).Bind(s); err == nil {
		t.Error("nil is not an expression")
	}
}

func TestZeroNode(t *testing.T) {
	var n Node
	if _, err := n.Bind(testScope(typer.Of[int]())); err == nil {
		t.Error("zero node must not bind")
	}
}
