// Package typer tracks what type of value flows through each pipeline stage,
// without running the pipeline.
//
// Stages ask a Typer for the result of a member access, a call, or a binary
// operator. Answers come from a Registry of (type, member) facts rather than
// open-ended reflection; types outside the registry may describe themselves
// by implementing Declarer and Accessor.
//
// Registrations are usually made from init functions:
//
//	func init() {
//	    typer.RegisterMember(typer.Default, "Name", func(u *User) string { return u.Name })
//	}
//
// A lazy Typer (see Lazy and Deferred) stands for an element type that is not
// known yet. It resolves once bound to a Scope, so an expression can be built
// once and bound to many pipelines.
package typer
