// Package pyproject converts pyproject.toml files.
//
// Loads understands both the Poetry layout ([tool.poetry]) and the PEP 621
// layout ([project]); when a file has both, Poetry wins because that is what
// Poetry itself reads. Dumps always writes the Poetry layout.
//
// Poetry dependency groups (dev-dependencies, [tool.poetry.group.X]) carry
// no meaning in the canonical model other than "installed on request", so
// they load as optional requirements guarded by an extra named after the
// group.
package pyproject

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/discover"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

// Converter handles pyproject.toml.
type Converter struct{}

func (Converter) Name() string              { return "pyproject" }
func (Converter) Supports(name string) bool { return name == "pyproject.toml" }
func (Converter) Lock() bool                { return false }

func (c Converter) Load(path string) (*models.Project, error) {
	return converters.LoadFile(path, c.Loads)
}

func (c Converter) Dump(path string, reqs []models.Requirement, project *models.Project) error {
	return converters.DumpFile(path, reqs, project, c.Dumps)
}

type document struct {
	Project *pep621 `toml:"project"`
	Tool    struct {
		Poetry *poetry `toml:"poetry"`
	} `toml:"tool"`
}

type poetry struct {
	Name            string              `toml:"name"`
	Version         string              `toml:"version"`
	Description     string              `toml:"description"`
	License         string              `toml:"license"`
	Authors         []string            `toml:"authors"`
	Homepage        string              `toml:"homepage"`
	Repository      string              `toml:"repository"`
	Keywords        []string            `toml:"keywords"`
	Classifiers     []string            `toml:"classifiers"`
	Packages        []poetryPackage     `toml:"packages"`
	Dependencies    map[string]any      `toml:"dependencies"`
	DevDependencies map[string]any      `toml:"dev-dependencies"`
	Group           map[string]group    `toml:"group"`
	Extras          map[string][]string `toml:"extras"`
}

type group struct {
	Dependencies map[string]any `toml:"dependencies"`
}

type poetryPackage struct {
	Include string `toml:"include"`
	From    string `toml:"from"`
}

type pep621 struct {
	Name                 string              `toml:"name"`
	Version              string              `toml:"version"`
	Description          string              `toml:"description"`
	RequiresPython       string              `toml:"requires-python"`
	License              any                 `toml:"license"`
	Authors              []person            `toml:"authors"`
	Keywords             []string            `toml:"keywords"`
	Classifiers          []string            `toml:"classifiers"`
	URLs                 map[string]string   `toml:"urls"`
	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`
}

type person struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// Loads parses a pyproject.toml document.
func (Converter) Loads(content string) (*models.Project, error) {
	var doc document
	if _, err := toml.Decode(content, &doc); err != nil {
		return nil, tomlError(err)
	}
	switch {
	case doc.Tool.Poetry != nil:
		return loadPoetry(doc.Tool.Poetry)
	case doc.Project != nil:
		return loadPEP621(doc.Project)
	}
	return nil, converters.Errorf(0, 0, "neither [tool.poetry] nor [project] found")
}

func tomlError(err error) error {
	var pe toml.ParseError
	if errors.As(err, &pe) {
		return converters.Errorf(pe.Position.Line, 0, "%s", pe.Message)
	}
	return converters.Errorf(0, 0, "%v", err)
}

func loadPoetry(doc *poetry) (*models.Project, error) {
	p := &models.Project{
		Name:        doc.Name,
		Version:     doc.Version,
		Description: doc.Description,
		License:     doc.License,
		Homepage:    doc.Homepage,
		Keywords:    doc.Keywords,
		Classifiers: doc.Classifiers,
	}
	if p.Homepage == "" {
		p.Homepage = doc.Repository
	}
	for _, a := range doc.Authors {
		p.Authors = append(p.Authors, models.ParseAuthor(a))
	}

	// extraOf maps a dependency key to the extras that list it.
	extraOf := make(map[string][]string)
	for extra, names := range doc.Extras {
		for _, n := range names {
			k := models.NormalizeName(n)
			extraOf[k] = append(extraOf[k], extra)
		}
	}

	var reqs []models.Requirement
	for _, name := range slices.Sorted(maps.Keys(doc.Dependencies)) {
		raw := doc.Dependencies[name]
		if strings.EqualFold(name, "python") {
			s, ok := raw.(string)
			if !ok {
				return nil, converters.Unsupported(0, "non-string python constraint")
			}
			p.Python = s
			continue
		}
		req, err := poetryDependency(name, raw)
		if err != nil {
			return nil, err
		}
		if req.Optional {
			extras := extraOf[req.Key()]
			slices.Sort(extras)
			for _, e := range extras {
				r := req.Clone()
				r.Markers = converters.JoinExtra(r.Markers, e)
				reqs = append(reqs, r)
			}
			if len(extras) > 0 {
				continue
			}
		}
		reqs = append(reqs, req)
	}

	groups := map[string]map[string]any{"dev": doc.DevDependencies}
	for name, g := range doc.Group {
		if name == "main" {
			return nil, converters.Unsupported(0, "dependency group %q", name)
		}
		groups[name] = mergeGroup(groups[name], g.Dependencies)
	}
	for _, extra := range slices.Sorted(maps.Keys(groups)) {
		deps := groups[extra]
		for _, name := range slices.Sorted(maps.Keys(deps)) {
			req, err := poetryDependency(name, deps[name])
			if err != nil {
				return nil, err
			}
			req.Optional = true
			req.Markers = converters.JoinExtra(req.Markers, extra)
			reqs = append(reqs, req)
		}
	}
	p.SetDependencies(reqs)

	tree, err := poetryTree(doc.Packages)
	if err != nil {
		return nil, err
	}
	p.Package = tree
	return converters.Finish(p)
}

func mergeGroup(a, b map[string]any) map[string]any {
	if a == nil {
		return b
	}
	maps.Copy(a, b)
	return a
}

// poetryDependency decodes one entry of a Poetry dependency table: a bare
// constraint string or an inline table.
func poetryDependency(name string, raw any) (models.Requirement, error) {
	req := models.Requirement{Name: name}
	switch v := raw.(type) {
	case string:
		c, err := constraint.Parse(v)
		if err != nil {
			return req, converters.Errorf(0, 0, "%s: %v", name, err)
		}
		req.Constraint = c
		return req, nil
	case map[string]any:
		return poetryTable(req, v)
	case []any, []map[string]any:
		return req, converters.Unsupported(0, "%s: multiple constraints", name)
	}
	return req, converters.Unsupported(0, "%s: dependency of type %T", name, raw)
}

func poetryTable(req models.Requirement, t map[string]any) (models.Requirement, error) {
	str := func(key string) string {
		s, _ := t[key].(string)
		return s
	}
	if v := str("version"); v != "" {
		c, err := constraint.Parse(v)
		if err != nil {
			return req, converters.Errorf(0, 0, "%s: %v", req.Name, err)
		}
		req.Constraint = c
	}
	if extras, ok := t["extras"].([]any); ok {
		for _, e := range extras {
			if s, ok := e.(string); ok {
				req.Extras = append(req.Extras, models.NormalizeName(s))
			}
		}
		slices.Sort(req.Extras)
		req.Extras = slices.Compact(req.Extras)
	}
	req.Optional, _ = t["optional"].(bool)
	req.Editable, _ = t["develop"].(bool)

	var markers []string
	if m := str("markers"); m != "" {
		markers = append(markers, m)
	}
	if py := str("python"); py != "" {
		m, err := pythonMarker(py)
		if err != nil {
			return req, converters.Errorf(0, 0, "%s: %v", req.Name, err)
		}
		markers = append(markers, m)
	}
	if plat := str("platform"); plat != "" {
		markers = append(markers, fmt.Sprintf("sys_platform == %q", plat))
	}
	req.Markers = strings.Join(markers, " and ")

	switch {
	case str("git") != "":
		rev := str("rev")
		for _, k := range []string{"tag", "branch"} {
			if rev == "" {
				rev = str(k)
			}
		}
		req.Link = links.VCS{System: "git", URL: str("git"), Revision: rev}
	case str("path") != "":
		req.Link = links.FileOrDirectory{Path: str("path")}
	case str("url") != "":
		l, err := links.Parse(str("url"))
		if err != nil {
			return req, converters.Errorf(0, 0, "%s: %v", req.Name, err)
		}
		req.Link = l
	}
	return req, nil
}

// pythonMarker turns a Poetry python constraint into a marker expression.
func pythonMarker(raw string) (string, error) {
	c, err := constraint.Parse(raw)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, cl := range c.Clauses() {
		parts = append(parts, fmt.Sprintf("python_version %s %q", cl.Op, cl.Version.String()))
	}
	return strings.Join(parts, " and "), nil
}

func poetryTree(pkgs []poetryPackage) (discover.Tree, error) {
	tree := discover.Tree{Root: "."}
	for _, pkg := range pkgs {
		if pkg.Include == "" || strings.ContainsAny(pkg.Include, "*?[") {
			return tree, converters.Unsupported(0, "packages entry %q", pkg.Include)
		}
		root := "."
		if pkg.From != "" {
			root = "./" + strings.Trim(pkg.From, "/")
		}
		tree.Packages = append(tree.Packages, discover.Package{
			Path:   strings.TrimSuffix(root, "/.") + "/" + pkg.Include,
			Root:   root,
			Module: strings.ReplaceAll(pkg.Include, "/", "."),
		})
	}
	discover.SortPackages(tree.Packages)
	return tree, nil
}

func loadPEP621(doc *pep621) (*models.Project, error) {
	p := &models.Project{
		Name:        doc.Name,
		Version:     doc.Version,
		Description: doc.Description,
		Python:      doc.RequiresPython,
		Keywords:    doc.Keywords,
		Classifiers: doc.Classifiers,
	}
	switch l := doc.License.(type) {
	case string:
		p.License = l
	case map[string]any:
		p.License, _ = l["text"].(string)
	}
	for _, a := range doc.Authors {
		p.Authors = append(p.Authors, models.Author{Name: a.Name, Email: a.Email})
	}
	for k, u := range doc.URLs {
		if strings.EqualFold(k, "homepage") {
			p.Homepage = u
		}
	}

	var reqs []models.Requirement
	for _, line := range doc.Dependencies {
		req, err := models.ParseRequirement(line)
		if err != nil {
			return nil, converters.Errorf(0, 0, "%v", err)
		}
		reqs = append(reqs, req)
	}
	for _, extra := range slices.Sorted(maps.Keys(doc.OptionalDependencies)) {
		for _, line := range doc.OptionalDependencies[extra] {
			req, err := models.ParseRequirement(line)
			if err != nil {
				return nil, converters.Errorf(0, 0, "%v", err)
			}
			req.Optional = true
			req.Markers = converters.JoinExtra(req.Markers, extra)
			reqs = append(reqs, req)
		}
	}
	p.SetDependencies(reqs)
	return converters.Finish(p)
}
