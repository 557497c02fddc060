// Package discover finds Python packages and their data files in a source
// tree.
//
// [Discover] walks a directory once, accumulates into maps and sorts the
// result explicitly, so the output is a pure function of the file-system
// contents. [Globs] compacts data entries into the per-module patterns that
// setup.py's package_data and similar fields expect:
//
//	tree, _ := discover.Discover(".", discover.Options{Name: "project"})
//	for _, g := range tree.Globs() {
//	    fmt.Println(g.Module, g.Patterns) // project.m [z/*.txt]
//	}
package discover
