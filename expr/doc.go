// Package expr builds point-free expressions over pipeline elements.
//
// An expression is written once, without an element:
//
//	upper := expr.It().Attr("Name").Attr("ToUpper").Call()
//	isBig := expr.It().Attr("Size").Gt(1 << 20)
//
// and bound against each pipeline it is used in. Binding resolves the
// expression's type through the typer registry, so an unknown member fails
// when the stage is built rather than while elements flow.
//
// Plain Go functions become expressions through FromNothing, FromElement and
// FromElementAndAttachment, or through Func, which picks the shape from the
// function's declared parameters.
package expr
