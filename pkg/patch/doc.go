/*
Package patch applies ordered sets of named text patches to a buffer.

	buffer ──► patch 1 ──► patch 2 ──► ... ──► patch n ──► final text
	              │           │                   │
	              ▼           ▼                   ▼
	           Outcome     Outcome             Outcome

Every patch sees the text produced by the patches before it, so a later
patch can anchor on something an earlier one inserted. Apply never stops
early: each patch gets exactly one Outcome, whatever happened to the others.

📋 Outcomes:

	applied              the replacement was spliced in
	skipped_idempotent   the replacement is already there, or an optional
	                     patch found nothing to do
	not_found            a required pattern is missing (ErrNotFound)
	error                ambiguity or a bad template; the buffer is untouched

🔁 Re-running a set on its own output is a no-op. Before a match is replaced
the rendered replacement is checked against the text around it, and when the
pattern is gone altogether the replacement itself is searched for.
*/
package patch
