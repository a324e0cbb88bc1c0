// Package attach holds the side-channel record that travels next to every
// element of an element pipeline.
//
// A Record is ordered and persistent: With and Merge return new records and
// never touch the receiver, so a record may be shared by many downstream
// elements without copying.
package attach

import (
	"fmt"
	"strings"
)

// Record is an ordered mapping of attachment names to values. The zero value
// is an empty record.
type Record struct {
	keys   []string
	values map[string]any
}

// New builds a record from alternating name/value pairs.
func New(kvs ...any) Record {
	var r Record
	for i := 0; i+1 < len(kvs); i += 2 {
		name, ok := kvs[i].(string)
		if !ok {
			continue
		}
		r = r.With(name, kvs[i+1])
	}
	return r
}

// Len returns the number of attachments.
func (r Record) Len() int { return len(r.keys) }

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether name is present.
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Keys returns the attachment names in insertion order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// With returns a copy of r with name set to value. An existing name keeps its
// position and takes the new value.
func (r Record) With(name string, value any) Record {
	values := make(map[string]any, len(r.values)+1)
	for k, v := range r.values {
		values[k] = v
	}
	keys := r.keys
	if _, exists := values[name]; !exists {
		keys = make([]string, len(r.keys), len(r.keys)+1)
		copy(keys, r.keys)
		keys = append(keys, name)
	}
	values[name] = value
	return Record{keys: keys, values: values}
}

// Merge returns r overlaid with other. Names present in both take the value
// from other.
func (r Record) Merge(other Record) Record {
	if other.Len() == 0 {
		return r
	}
	if r.Len() == 0 {
		return other
	}
	out := r
	for _, k := range other.keys {
		out = out.With(k, other.values[k])
	}
	return out
}

// Map returns the record as a plain map.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// String renders the record in insertion order.
func (r Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, r.values[k])
	}
	b.WriteByte('}')
	return b.String()
}
