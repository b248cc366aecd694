/*
Package config loads patch files and turns them into runner targets.

	            +-------------+
	            | patch file  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   HCL    | |   YAML   | |   JSON   |
	+-----+----+ +-----+----+ +-----+----+
	      |            |            |
	      +------------+------------+
	                   |  validate, compile
	            +------+------+
	            |   Config    |
	            +------+------+
	                   |  doublestar glob
	            +------+------+
	            |   Targets   |
	            +-------------+

🎯 Purpose:
- Parse a patch file in any registered format
- Reject unknown keys, duplicate names and patterns that do not compile
- Expand file globs into one operation.Target per file

A target names one or more files and the ordered patches applied to each of
them. Patches are required unless they say otherwise.

🔍 Example:

	cfg, err := config.Load(ctx, ".patchrc.hcl")
	if err != nil {
		return err
	}

	targets, err := cfg.Expand(ctx, baseDir)
	if err != nil {
		return err
	}
*/
package config
