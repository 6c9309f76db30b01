// Package usemerge merges Rust `use` declarations.
//
// The merge engine combines two declarations into one whenever they share a
// module prefix, e.g. `use std::fmt;` and `use std::io::Read;` become
// `use std::{fmt, io::Read};`. How far two declarations may be combined is set
// by a [Policy]:
//
//   - [One] merges everything into a single declaration.
//   - [Crate] merges declarations that share at least their first segment.
//   - [Module] merges only declarations naming items of the same module.
//
// A merge never changes the set of paths a declaration imports, and two
// declarations with different visibility or attributes are never merged.
//
// # Usage
//
// Create an Engine, index a crate, then merge files in place:
//
//	e, err := usemerge.New("index.db", usemerge.WithPolicy(usemerge.Crate))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/crate")
//
//	res, err := e.MergeFile(ctx, "path/to/crate/src/lib.rs")
//	if res.Changed {
//		err = e.WriteFile(ctx, res)
//	}
//
// Single declarations can be merged without a database via [Engine.MergeUses]
// or the internal merge package.
//
// # Index
//
// [Engine.IndexFiles] records every declaration of every `.rs` file together
// with the concrete paths it imports. Unchanged files are skipped by content
// hash. The [QueryBuilder] returned by [Engine.Query] answers which files
// import a path and which declarations of a file would merge.
//
// # Scripts
//
// [Engine.RunScript] runs a Risor script with the merge engine and the index
// exposed as globals. See the internal/runtime package for the full set.
package usemerge
