// Package gomod converts Go module files (go.mod).
//
// The module path becomes the project name and every require line a
// requirement pinned to its minimum version. A replace with a local
// directory becomes a path link, a replace with another module becomes a
// git link at the replacement version. Exclude lines fold into the
// constraint of the matching requirement as "!=" clauses.
package gomod

import (
	"errors"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

// Converter handles go.mod.
type Converter struct {
	// Indirect keeps requirements marked "// indirect".
	Indirect bool
}

func (Converter) Name() string              { return "gomod" }
func (Converter) Supports(name string) bool { return name == "go.mod" }
func (Converter) Lock() bool                { return false }

func (c Converter) Load(path string) (*models.Project, error) {
	return converters.LoadFile(path, c.Loads)
}

func (c Converter) Dump(path string, reqs []models.Requirement, project *models.Project) error {
	return converters.DumpFile(path, reqs, project, c.Dumps)
}

// Loads parses a go.mod document.
func (c Converter) Loads(content string) (*models.Project, error) {
	f, err := modfile.Parse("go.mod", []byte(content), nil)
	if err != nil {
		var list modfile.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			e := list[0]
			reason := e.Error()
			if e.Err != nil {
				reason = e.Err.Error()
			}
			return nil, converters.Errorf(e.Pos.Line, e.Pos.LineRune, "%s", reason)
		}
		return nil, converters.Errorf(0, 0, "%v", err)
	}

	p := &models.Project{}
	if f.Module != nil {
		p.Name = f.Module.Mod.Path
	}

	byPath := make(map[string]int)
	var reqs []models.Requirement
	for _, r := range f.Require {
		if r.Indirect && !c.Indirect {
			continue
		}
		pin, err := constraint.Parse("==" + r.Mod.Version)
		if err != nil {
			return nil, converters.Errorf(line(r.Syntax), 0, "%s: %v", r.Mod.Path, err)
		}
		byPath[r.Mod.Path] = len(reqs)
		reqs = append(reqs, models.Requirement{Name: r.Mod.Path, Constraint: pin})
	}

	for _, ex := range f.Exclude {
		i, ok := byPath[ex.Mod.Path]
		if !ok {
			continue
		}
		ne, err := constraint.Parse("!=" + ex.Mod.Version)
		if err != nil {
			return nil, converters.Errorf(line(ex.Syntax), 0, "%s: %v", ex.Mod.Path, err)
		}
		reqs[i].Constraint = constraint.Intersect(reqs[i].Constraint, ne)
	}

	for _, rep := range f.Replace {
		i, ok := byPath[rep.Old.Path]
		if !ok {
			continue
		}
		if rep.Old.Version != "" && rep.Old.Version != pinOf(reqs[i]) {
			continue
		}
		if rep.New.Version == "" {
			reqs[i].Link = links.FileOrDirectory{Path: rep.New.Path}
			continue
		}
		reqs[i].Link = links.VCS{System: "git", URL: "https://" + rep.New.Path, Revision: rep.New.Version}
	}

	p.SetDependencies(reqs)
	return converters.Finish(p)
}

func line(x *modfile.Line) int {
	if x == nil {
		return 0
	}
	return x.Start.Line
}

// pinOf returns the exact version a requirement asks for.
func pinOf(r models.Requirement) string {
	if r.Version != "" {
		return r.Version
	}
	for _, cl := range r.Constraint.Clauses() {
		if cl.Op == constraint.OpEq {
			return cl.Version.String()
		}
	}
	return ""
}

// Dumps renders a go.mod document. Every requirement must name a module
// path and pin a semantic version.
func (Converter) Dumps(reqs []models.Requirement, project *models.Project) (string, error) {
	reqs, p := converters.Prepare(reqs, project)
	if p.Name == "" {
		return "", converters.Unsupported(0, "go.mod needs a module path")
	}

	f := &modfile.File{}
	if err := f.AddModuleStmt(p.Name); err != nil {
		return "", err
	}
	for _, r := range reqs {
		if err := module.CheckPath(r.Name); err != nil {
			return "", converters.Unsupported(0, "%s is not a module path", r.Name)
		}
		if len(r.Extras) > 0 || r.Markers != "" {
			return "", converters.Unsupported(0, "%s: extras and markers", r.Name)
		}
		version := pinOf(r)
		if !semver.IsValid(version) {
			return "", converters.Unsupported(0, "%s: %q is not a module version", r.Name, version)
		}
		if err := f.AddRequire(r.Name, version); err != nil {
			return "", err
		}
		for _, cl := range r.Constraint.Clauses() {
			switch cl.Op {
			case constraint.OpEq:
			case constraint.OpNe:
				if err := f.AddExclude(r.Name, cl.Version.String()); err != nil {
					return "", err
				}
			default:
				return "", converters.Unsupported(0, "%s: range %s", r.Name, r.Constraint)
			}
		}
		if err := addReplace(f, r); err != nil {
			return "", err
		}
	}

	f.SortBlocks()
	f.Cleanup()
	out, err := f.Format()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func addReplace(f *modfile.File, r models.Requirement) error {
	switch l := r.Link.(type) {
	case nil, links.Registry:
		return nil
	case links.FileOrDirectory:
		return f.AddReplace(r.Name, "", l.Path, "")
	case links.VCS:
		if l.System != "git" || !semver.IsValid(l.Revision) {
			return converters.Unsupported(0, "%s: replacement %s", r.Name, l)
		}
		path := strings.TrimSuffix(l.URL, ".git")
		for _, scheme := range []string{"https://", "http://", "ssh://"} {
			path = strings.TrimPrefix(path, scheme)
		}
		return f.AddReplace(r.Name, "", path, l.Revision)
	}
	return converters.Unsupported(0, "%s: %s link", r.Name, r.Link.Kind())
}
