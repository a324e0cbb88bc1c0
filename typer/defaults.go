package typer

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Default is the process-wide registry. It is populated at init with the
// members of the built-in types that pipelines commonly project through;
// packages add their own entries from their init functions.
var Default = NewRegistry()

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func init() {
	registerText(Default)
	registerBytes(Default)
	registerArithmetic[int](Default)
	registerArithmetic[int8](Default)
	registerArithmetic[int16](Default)
	registerArithmetic[int32](Default)
	registerArithmetic[int64](Default)
	registerArithmetic[uint](Default)
	registerArithmetic[uint8](Default)
	registerArithmetic[uint16](Default)
	registerArithmetic[uint32](Default)
	registerArithmetic[uint64](Default)
	registerArithmetic[float32](Default)
	registerArithmetic[float64](Default)
	registerTime(Default)
}

func registerArithmetic[N number](reg *Registry) {
	RegisterBinaryFunc(reg, OpAdd, func(a, b N) N { return a + b })
	RegisterBinaryFunc(reg, OpSub, func(a, b N) N { return a - b })
}

func registerTime(reg *Registry) {
	RegisterBinaryFunc(reg, OpAdd, func(a time.Time, d time.Duration) time.Time { return a.Add(d) })
	RegisterBinaryFunc(reg, OpSub, func(a, b time.Time) time.Duration { return a.Sub(b) })
	RegisterBinaryFunc(reg, OpAdd, func(a, b time.Duration) time.Duration { return a + b })
	RegisterBinaryFunc(reg, OpSub, func(a, b time.Duration) time.Duration { return a - b })
}

func registerText(reg *Registry) {
	RegisterMember(reg, "Len", func(s string) int { return len(s) })
	RegisterMember(reg, "RuneCount", func(s string) int { return utf8.RuneCountInString(s) })
	RegisterMember(reg, "Bytes", func(s string) []byte { return []byte(s) })
	RegisterMember(reg, "ToUpper", func(s string) func() string {
		return func() string { return strings.ToUpper(s) }
	})
	RegisterMember(reg, "ToLower", func(s string) func() string {
		return func() string { return strings.ToLower(s) }
	})
	RegisterMember(reg, "TrimSpace", func(s string) func() string {
		return func() string { return strings.TrimSpace(s) }
	})
	RegisterMember(reg, "Trim", func(s string) func(string) string {
		return func(cutset string) string { return strings.Trim(s, cutset) }
	})
	RegisterMember(reg, "TrimPrefix", func(s string) func(string) string {
		return func(prefix string) string { return strings.TrimPrefix(s, prefix) }
	})
	RegisterMember(reg, "TrimSuffix", func(s string) func(string) string {
		return func(suffix string) string { return strings.TrimSuffix(s, suffix) }
	})
	RegisterMember(reg, "HasPrefix", func(s string) func(string) bool {
		return func(prefix string) bool { return strings.HasPrefix(s, prefix) }
	})
	RegisterMember(reg, "HasSuffix", func(s string) func(string) bool {
		return func(suffix string) bool { return strings.HasSuffix(s, suffix) }
	})
	RegisterMember(reg, "Contains", func(s string) func(string) bool {
		return func(sub string) bool { return strings.Contains(s, sub) }
	})
	RegisterMember(reg, "EqualFold", func(s string) func(string) bool {
		return func(t string) bool { return strings.EqualFold(s, t) }
	})
	RegisterMember(reg, "Index", func(s string) func(string) int {
		return func(sub string) int { return strings.Index(s, sub) }
	})
	RegisterMember(reg, "LastIndex", func(s string) func(string) int {
		return func(sub string) int { return strings.LastIndex(s, sub) }
	})
	RegisterMember(reg, "Count", func(s string) func(string) int {
		return func(sub string) int { return strings.Count(s, sub) }
	})
	RegisterMember(reg, "Replace", func(s string) func(string, string) string {
		return func(old, repl string) string { return strings.ReplaceAll(s, old, repl) }
	})
	RegisterMember(reg, "Repeat", func(s string) func(int) string {
		return func(n int) string { return strings.Repeat(s, n) }
	})
	RegisterMember(reg, "Split", func(s string) func(string) []string {
		return func(sep string) []string { return strings.Split(s, sep) }
	})
	RegisterMember(reg, "Fields", func(s string) func() []string {
		return func() []string { return strings.Fields(s) }
	})
	RegisterMember(reg, "Cut", func(s string) func(string) []string {
		return func(sep string) []string {
			before, after, _ := strings.Cut(s, sep)
			return []string{before, after}
		}
	})
}

func registerBytes(reg *Registry) {
	RegisterMember(reg, "Len", func(b []byte) int { return len(b) })
	RegisterMember(reg, "String", func(b []byte) func() string {
		return func() string { return string(b) }
	})
}
