package stream

import (
	"strings"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/typer"
)

// Record is one CSV row, read by header name. Every field is text.
type Record struct {
	header []string
	values []string
}

func newRecord(header, values []string) *Record {
	return &Record{header: header, values: values}
}

// Get returns the field under name.
func (r *Record) Get(name string) (string, bool) {
	for i, h := range r.header {
		if h == name && i < len(r.values) {
			return r.values[i], true
		}
	}
	return "", false
}

// Fields returns the header names.
func (r *Record) Fields() []string { return append([]string(nil), r.header...) }

// Values returns the fields in header order.
func (r *Record) Values() []string { return append([]string(nil), r.values...) }

// Map returns the fields keyed by header name.
func (r *Record) Map() map[string]string {
	out := make(map[string]string, len(r.header))
	for i, h := range r.header {
		if i < len(r.values) {
			out[h] = r.values[i]
		}
	}
	return out
}

func (r *Record) String() string {
	return "{" + strings.Join(r.values, ", ") + "}"
}

// MemberType declares every member of a record as text; which names exist
// is only known per row.
func (*Record) MemberType(string) (typer.Typer, bool) {
	return typer.Of[string](), true
}

// Member returns the field under name.
func (r *Record) Member(name string) (any, error) {
	v, ok := r.Get(name)
	if !ok {
		return nil, errors.TypeResolution("csv record", name)
	}
	return v, nil
}
