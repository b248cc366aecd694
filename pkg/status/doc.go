/*
Package status loads and stores target files and tracks run progress.

	            +-------------+
	            |   Runner    |
	            +------+------+
	                   |
	      +------------+-----------+
	      |                        |
	+-----+------+          +------+-----+
	|  Manager   |          |  Tracker   |
	| (files)    |          | (progress) |
	+------------+          +------------+

🎯 Purpose:
- Read target files and write patched text back safely
- Keep optional .bak copies and restore them
- Report how many targets have been processed

💾 Atomic writes:
WriteFileAtomic writes into a temp file in the target's directory and renames
it over the target. A failure at any step removes the temp file, so the
target is either the old text or the new text, never a mix. Permissions of
an existing file are kept.

🔍 Example:

	files := status.New("./backend")

	content, err := files.ReadFile(ctx, "controllers/salesInvoiceController.js")
	...
	err = files.WriteFileAtomic(ctx, "controllers/salesInvoiceController.js", patched)
*/
package status
