package stream

import (
	"context"
	"fmt"

	"github.com/kbukum/streamkit/attach"
	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/pipeline"
	"github.com/kbukum/streamkit/typer"
)

// Tuple is one row of a zipped pipeline.
type Tuple struct {
	Values []any
	Attach attach.Record
}

// Tuples is a pipeline of fixed-width rows, as produced by Objects.Zip.
type Tuples struct {
	p      *pipeline.Pipeline[Tuple]
	typs   []typer.Typer
	schema typer.Schema
	err    error
	opts   *options
}

func newTuples(p *pipeline.Pipeline[Tuple], typs []typer.Typer, schema typer.Schema, o *options) *Tuples {
	return &Tuples{p: p, typs: typs, schema: schema, opts: o}
}

func failedTuples(err error, o *options) *Tuples {
	return &Tuples{p: pipeline.Empty[Tuple](), err: err, opts: o}
}

func (t *Tuples) Kind() Kind { return KindTuples }

func (t *Tuples) Err() error { return t.err }

func (t *Tuples) elements() *pipeline.Pipeline[Pair] {
	return pipeline.Map(t.p, func(_ context.Context, row Tuple) (Pair, error) {
		return Pair{Value: row.Values, Attach: row.Attach}, nil
	})
}

func (t *Tuples) elemType() typer.Typer { return typer.Of[[]any]() }

func (t *Tuples) attachSchema() typer.Schema { return t.schema }

// Width returns the number of slots per row.
func (t *Tuples) Width() int { return len(t.typs) }

// Get projects every row onto slot i.
func (t *Tuples) Get(i int) *Objects {
	if t.err != nil {
		return failedObjects(t.err, t.opts)
	}
	if i < 0 || i >= len(t.typs) {
		return failedObjects(errors.InvalidInput("index", fmt.Sprintf("%d out of range for %d-tuples", i, len(t.typs))), t.opts)
	}
	p := pipeline.Map(t.p, func(_ context.Context, row Tuple) (Pair, error) {
		return Pair{Value: row.Values[i], Attach: row.Attach}, nil
	})
	return newObjects(p, t.typs[i], t.schema, t.opts)
}

// Objects views every row as a []any element.
func (t *Tuples) Objects() *Objects {
	if t.err != nil {
		return failedObjects(t.err, t.opts)
	}
	return newObjects(t.elements(), t.elemType(), t.schema, t.opts)
}

// ToList returns every row.
func (t *Tuples) ToList(ctx context.Context) ([][]any, error) {
	var out [][]any
	err := t.Objects().terminal(ctx, "stream.Tuples.ToList", func(in Pair) (bool, error) {
		out = append(out, in.Value.([]any))
		return true, nil
	})
	return out, err
}

// ToDict returns a map from the second slot of every row to its first.
// Only 2-tuples can be turned into a map.
func (t *Tuples) ToDict(ctx context.Context) (map[any]any, error) {
	if t.err != nil {
		return nil, t.err
	}
	if len(t.typs) != 2 {
		return nil, errors.InvalidInput("width", fmt.Sprintf("ToDict needs 2-tuples, got %d-tuples", len(t.typs)))
	}
	out := make(map[any]any)
	err := t.Objects().terminal(ctx, "stream.Tuples.ToDict", func(in Pair) (bool, error) {
		row := in.Value.([]any)
		if k := row[1]; !typer.Hashable(k) {
			return false, errors.InvalidInput("key", fmt.Sprintf("%T cannot be a map key", k))
		}
		out[row[1]] = row[0]
		return true, nil
	})
	return out, err
}
