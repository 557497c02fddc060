package pyproject

import (
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/discover"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

type outDocument struct {
	Tool struct {
		Poetry outPoetry `toml:"poetry"`
	} `toml:"tool"`
}

type outPoetry struct {
	Name         string              `toml:"name,omitempty"`
	Version      string              `toml:"version,omitempty"`
	Description  string              `toml:"description,omitempty"`
	Authors      []string            `toml:"authors,omitempty"`
	License      string              `toml:"license,omitempty"`
	Homepage     string              `toml:"homepage,omitempty"`
	Keywords     []string            `toml:"keywords,omitempty"`
	Classifiers  []string            `toml:"classifiers,omitempty"`
	Packages     []map[string]string `toml:"packages,omitempty"`
	Dependencies map[string]any      `toml:"dependencies,omitempty"`
	Extras       map[string][]string `toml:"extras,omitempty"`
}

// Dumps renders a [tool.poetry] document. The TOML encoder sorts table
// keys, which keeps the output independent of input order.
func (Converter) Dumps(reqs []models.Requirement, project *models.Project) (string, error) {
	reqs, p := converters.Prepare(reqs, project)

	var doc outDocument
	out := &doc.Tool.Poetry
	out.Name = p.Name
	out.Version = p.Version
	out.Description = p.Description
	out.License = p.License
	out.Homepage = p.Homepage
	out.Keywords = p.Keywords
	out.Classifiers = p.Classifiers
	for _, a := range p.Authors {
		out.Authors = append(out.Authors, a.String())
	}
	out.Packages = packages(p.Package)

	deps := make(map[string]any)
	extras := make(map[string][]string)
	if p.Python != "" {
		deps["python"] = p.Python
	}
	for _, r := range reqs {
		extra, markers := converters.SplitExtra(r.Markers)
		v, err := dependency(r, markers)
		if err != nil {
			return "", err
		}
		deps[r.Name] = v
		if extra != "" {
			extras[extra] = append(extras[extra], r.Name)
		}
	}
	if len(deps) > 0 {
		out.Dependencies = deps
	}
	if len(extras) > 0 {
		out.Extras = extras
	}

	var b strings.Builder
	enc := toml.NewEncoder(&b)
	enc.Indent = ""
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return b.String(), nil
}

// dependency renders r as a bare constraint string when it can, otherwise
// as a table.
func dependency(r models.Requirement, markers string) (any, error) {
	version := r.Constraint.String()
	if r.Version != "" {
		version = "==" + r.Version
	}
	if version == "" {
		version = "*"
	}
	if links.IsRegistry(r.Link) && len(r.Extras) == 0 && markers == "" && !r.Optional {
		return version, nil
	}

	t := make(map[string]any)
	switch l := r.Link.(type) {
	case nil, links.Registry:
		t["version"] = version
	case links.VCS:
		if l.System != "git" {
			return nil, converters.Unsupported(0, "%s: %s repositories", r.Name, l.System)
		}
		t["git"] = l.URL
		if l.Revision != "" {
			t["rev"] = l.Revision
		}
	case links.FileOrDirectory:
		t["path"] = l.Path
		if r.Editable {
			t["develop"] = true
		}
	case links.URL:
		t["url"] = l.String()
	}
	if len(r.Extras) > 0 {
		t["extras"] = r.Extras
	}
	if markers != "" {
		t["markers"] = markers
	}
	if r.Optional {
		t["optional"] = true
	}
	return t, nil
}

// packages lists the outermost packages; Poetry includes subpackages on
// its own.
func packages(tree discover.Tree) []map[string]string {
	var out []map[string]string
	for _, pkg := range tree.Packages {
		if hasAncestor(tree.Packages, pkg.Module) {
			continue
		}
		entry := map[string]string{"include": strings.ReplaceAll(pkg.Module, ".", "/")}
		if root := strings.TrimPrefix(pkg.Root, "./"); root != "" && root != "." {
			entry["from"] = root
		}
		out = append(out, entry)
	}
	return out
}

func hasAncestor(pkgs []discover.Package, module string) bool {
	for _, p := range pkgs {
		if strings.HasPrefix(module, p.Module+".") {
			return true
		}
	}
	return false
}
