package typer

import (
	"testing"
	"time"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"ints", 1, 2, -1},
		{"mixed ints", int8(5), int64(5), 0},
		{"int and float", 2, 1.5, 1},
		{"negative int and uint", -1, uint(0), -1},
		{"strings", "b", "a", 1},
		{"bools", false, true, -1},
		{"nil first", nil, 0, -1},
		{"both nil", nil, nil, 0},
		{"times", time.Unix(1, 0), time.Unix(2, 0), -1},
		{"bytes", []byte("a"), []byte("a"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCompare_Incomparable(t *testing.T) {
	if _, err := Compare("a", 1); err == nil {
		t.Error("text and numbers do not compare")
	}
	if got := Order(1, "a"); got == 0 {
		t.Error("Order must separate values Compare rejects")
	}
}

func TestEqual(t *testing.T) {
	if !Equal(1, 1.0) {
		t.Error("numeric values should compare across types")
	}
	if !Equal([]int{1}, []int{1}) {
		t.Error("slices should compare deeply")
	}
	if Equal(nil, 0) {
		t.Error("nil only equals nil")
	}
}

type boxed struct{ V any }

func TestEqual_InterfaceHoldingSlice(t *testing.T) {
	a, b := boxed{[]int{1}}, boxed{[]int{1}}
	if !Equal(a, b) {
		t.Error("boxed slices with the same contents should be equal")
	}
	if Equal(a, boxed{[]int{2}}) {
		t.Error("boxed slices with different contents should differ")
	}
	if !Equal(boxed{1}, boxed{1}) {
		t.Error("boxed ints should be equal")
	}
}

func TestHashable(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, true},
		{"int", 1, true},
		{"slice", []int{1}, false},
		{"boxed int", boxed{1}, true},
		{"boxed nil", boxed{}, true},
		{"boxed slice", boxed{[]int{1}}, false},
		{"array of boxed maps", [1]boxed{{map[string]int{}}}, false},
		{"pointer", &boxed{[]int{1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hashable(tt.v); got != tt.want {
				t.Errorf("Hashable(%#v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	for _, v := range []any{1, 1.0, int64(1), uint8(1), float32(1)} {
		if got := Key(v); got != int64(1) {
			t.Errorf("Key(%T) = %#v, want int64(1)", v, got)
		}
	}
	if got := Key(1.5); got != 1.5 {
		t.Errorf("Key(1.5) = %#v", got)
	}
	if got := Key("1"); got != "1" {
		t.Errorf("Key(\"1\") = %#v", got)
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		name      string
		container any
		item      any
		want      bool
	}{
		{"substring", "hello", "ell", true},
		{"rune", "hello", 'z', false},
		{"slice", []int{1, 2}, 2, true},
		{"slice numeric", []float64{1}, 1, true},
		{"map key", map[string]int{"a": 1}, "a", true},
		{"map missing", map[string]int{"a": 1}, "b", false},
		{"bytes", []byte("abc"), []byte("bc"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Contains(tt.container, tt.item)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
	if _, err := Contains(3, 3); err == nil {
		t.Error("an int is not a container")
	}
}
