// Package pkg holds the dephell libraries: reading and writing Python
// project files, and resolving their dependencies into lock files.
//
// # Overview
//
// A project file is loaded by a converter into a [models.Project] holding
// [models.Requirement] values. Requirements carry a parsed
// [constraint.Constraint] and a [links.Link] naming where the package comes
// from. The [resolver] expands requirements into a graph against a
// [resolver.Source], and a lock converter dumps the flattened result:
//
//	Project file (requirements.txt, pyproject.toml, poetry.lock, ...)
//	         ↓
//	    [converters] Load / Loads
//	         ↓
//	    [resolver] Build (expand graph, merge constraints)
//	         ↓
//	    [resolver] Flatten
//	         ↓
//	    [converters] Dump / Dumps
//
// # Quick Start
//
//	reg := all.Registry()
//	from, _ := reg.Detect("pyproject.toml")
//	to, _ := reg.Get("piplock")
//
//	src := source.Multi{
//	    Registry: pypi.New(cache.NewNullCache(), pypi.Options{}),
//	    Links:    source.NewLocal(reg, "."),
//	}
//	r, err := converters.LoadResolver(ctx, from, "pyproject.toml", src, resolver.Options{})
//	if err != nil {
//	    return err
//	}
//	reqs, err := r.Flatten(true)
//	if err != nil {
//	    return err
//	}
//	return converters.Dump(ctx, to, "requirements.lock", reqs, r.Project())
//
// # Packages
//
// [constraint] - PEP 440 versions and specifier sets, intersection and
// membership.
//
// [links] - Classification of requirement sources: registry names, local
// files and directories, URLs and VCS references.
//
// [models] - Projects and requirements, the interchange type every
// converter reads and writes.
//
// [converters] - The converter interface and registry, plus pip, piplock,
// setup.py, poetry.lock, pyproject, conda and go.mod formats in
// subpackages. [converters/all] registers every built-in format.
//
// [resolver] - The dependency graph, constraint merging and the flatten
// gate that refuses to lock an unresolved graph.
//
// [source] - Resolution sources: PyPI, local projects, memory indexes and
// an LRU-cached wrapper.
//
// [discover] - Package and package-data discovery in a source tree.
//
// [cache] - Response caches backed by files, Redis or MongoDB.
//
// [dag], [dag/transform], [render/dot], [io] - Graph export as JSON, DOT,
// SVG and PNG.
//
// [errors] - Coded errors shared by the CLI exit codes and HTTP statuses.
//
// [models.Project]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/models#Project
// [models.Requirement]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/models#Requirement
// [constraint.Constraint]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/constraint#Constraint
// [links.Link]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/links#Link
// [resolver.Source]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/resolver#Source
// [constraint]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/constraint
// [links]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/links
// [models]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/models
// [converters]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/converters
// [converters/all]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/converters/all
// [resolver]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/resolver
// [source]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/source
// [discover]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/discover
// [cache]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/cache
// [dag]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/dag
// [dag/transform]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/dag/transform
// [render/dot]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/render/dot
// [io]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/io
// [errors]: https://pkg.go.dev/github.com/ko3luhbka/dephell/pkg/errors
package pkg
