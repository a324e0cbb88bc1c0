// Package stream provides lazy, chainable pipelines over collections, byte
// sources, text and archive contents.
//
// Of turns a value into one of five handles: *Objects (elements with
// attachments), *Bytes, *Text, *Tuples (zipped rows) or *Empty. Stages
// return new handles and do no work; terminals such as ToList, ToBytes,
// ToStr and Write pull the chain once and close every source on return,
// including on error and when Limit stops early.
//
//	names, err := stream.FromSlice(users).
//		Filter(expr.It().Attr("Age").Ge(18)).
//		Get("Name").
//		Sort().
//		ToList(ctx)
//
// Byte pipelines decode and encode in flight:
//
//	text, err := stream.NewFile("logs.tar.zst").Stream().(*stream.Objects).
//		Get("Content").Invoke().Exists().
//		Get("Utf8").Invoke().
//		Get("ToStr").Invoke().
//		ToList(ctx)
//
// Every element carries an attach.Record. Enumerate, Attach, Group and map
// sources add names to it, and expressions read an attached name before a
// member of the element with the same name.
//
// A stage that cannot be built records the error on the handle it returns:
// Err reports it at once and every later terminal returns it. Failures
// while evaluating one element turn that element into nil instead.
package stream
