/*
Package operation runs patch sets over many target files.

	+-------------+
	|   Targets   |  (path, patch set) pairs
	+------+------+
	       |  group by path
	+------+------+
	|    Apply    |  parallel across files, sequential within one
	+------+------+
	       |  persist policy
	+------+------+
	|   Persist   |  atomic write through status.FileManager
	+------+------+
	       |
	+------+------+
	|   Report    |
	+-------------+

🎯 Purpose:
- Load each target through the file manager
- Thread every patch set for a path through one buffer
- Decide, per persist policy, which buffers are written back
- Collect everything into a report.Report

⚡ Failure handling:
A file that cannot be read fails its targets with ErrIO and nothing else.
Patch failures stay inside their outcomes. Whether a changed file is written
depends on the policy:

	per-target       its own required patches all succeeded (default)
	all-or-nothing   every target in the run succeeded
	always           whenever the text changed
	never            dry runs and reports only

🤝 Concurrency:
Files are processed by a bounded errgroup. A file's targets run in
submission order inside one task, so the buffer is never shared. Results are
written into a slice by index and turned into a report once all tasks finish.
*/
package operation
