// Package pipeline provides the pull-based lazy engine underneath every
// streamkit handle.
//
// A Pipeline is a recipe: no work happens until a terminal (Collect, Drain,
// ForEach) asks it for an Iterator and pulls. Each stage pulls from the
// previous one on demand, and every Iterator owns a Close that releases the
// resources of the whole chain beneath it. Terminals always defer Close, so
// a consumer that stops early (Limit, an error, a cancelled context) still
// releases open files and readers.
//
// # Operators
//
//   - Map, FlatMap, Filter, Tap: per-element stages
//   - MapIndexed: Map that also sees the zero-based position
//   - Concat, ZipLongest: combine pipelines
//   - Limit: prefix of at most n values, closing the source afterwards
//   - Reverse, SortStable: fully buffering stages
//   - Distinct: first occurrence wins
//   - Reduce: accumulate into one value
//
// # Sources
//
// FromSlice restarts on every pull. From and FromSeq wrap one-shot sources:
// the first terminal consumes them and any later terminal sees an empty
// pipeline.
//
// # Usage
//
//	src := pipeline.FromSlice([]int{1, 2, 3, 4, 5})
//	doubled := pipeline.Map(src, func(_ context.Context, n int) (int, error) {
//	    return n * 2, nil
//	})
//	evens := pipeline.Filter(doubled, func(n int) bool { return n%4 == 0 })
//	results, _ := pipeline.Collect(ctx, evens)
package pipeline
