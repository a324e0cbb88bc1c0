package typer

import "strings"

// Schema is the ordered set of attachment names a pipeline declares, with the
// Typer of each. Like attach.Record it is persistent: With and Union return
// new schemas.
type Schema struct {
	names []string
	types map[string]Typer
}

// With returns s plus name of type t. Redeclaring a name replaces its Typer.
func (s Schema) With(name string, t Typer) Schema {
	types := make(map[string]Typer, len(s.types)+1)
	for k, v := range s.types {
		types[k] = v
	}
	names := s.names
	if _, exists := types[name]; !exists {
		names = make([]string, len(s.names), len(s.names)+1)
		copy(names, s.names)
		names = append(names, name)
	}
	types[name] = t
	return Schema{names: names, types: types}
}

// Union returns s widened with every name in other.
func (s Schema) Union(other Schema) Schema {
	out := s
	for _, n := range other.names {
		out = out.With(n, other.types[n])
	}
	return out
}

// Has reports whether name is declared.
func (s Schema) Has(name string) bool {
	_, ok := s.types[name]
	return ok
}

// Get returns the Typer declared for name.
func (s Schema) Get(name string) (Typer, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Names returns the declared names in declaration order.
func (s Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of declared names.
func (s Schema) Len() int { return len(s.names) }

func (s Schema) String() string {
	parts := make([]string, len(s.names))
	for i, n := range s.names {
		parts[i] = n + ": " + s.types[n].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Scope is what an expression is bound against: the element type and
// attachment schema of a pipeline, plus the registry used for lookups.
type Scope struct {
	Elem   Typer
	Schema Schema
	Reg    *Registry
}

// Registry returns the scope's registry, or Default when none was set.
func (s Scope) Registry() *Registry {
	if s.Reg == nil {
		return Default
	}
	return s.Reg
}
