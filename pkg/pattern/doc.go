/*
Package pattern implements the structural match language used by patches.

	+-------------+        +-------------+
	|    Spec     | -----> |   Pattern   | --- Find / MatchAt ---> []Span
	| (text, lit) |        | (compiled)  |
	+-------------+        +------+------+
	                              |
	+-------------+               |
	|  Template   | --- Effect ---+  (pattern of the template's output)
	+-------------+

🎯 Syntax:

	literal text     matched byte for byte, whitespace and newlines included
	@{name}          lazy, non-empty, single-line gap captured as "name"
	@{name...}       lazy, non-empty gap that may span lines
	@{_}             anonymous gap, not captured
	@@               a literal '@'

A name that appears twice must match the same text both times. Patterns must
start and end with literal text so that a match has a well defined extent.
Templates use the same syntax; every reference must be captured by the match.

There is no fuzziness: apart from the declared gaps, a match is exact. This is
what keeps a patch from landing on unrelated code that merely looks similar.

🔍 Example:

	p := pattern.MustCompile(pattern.Spec{Text: "qty += @{X};"})
	spans := p.Find("soItem.qty += dcItem.quantity;")
	// spans[0].Captures["X"] == "dcItem.quantity"
*/
package pattern
