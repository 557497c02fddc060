// Package setuppy converts setuptools setup.py scripts.
//
// Loads does not execute Python. It finds the setup() call and decodes its
// keyword arguments as literals (strings, lists, tuples, dicts). A keyword
// the model carries whose value is computed (a variable, a function call,
// string formatting) is an [converters.UnsupportedConstructError]; keywords
// the model has no field for are skipped.
package setuppy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/discover"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

// Converter handles setup.py.
type Converter struct{}

func (Converter) Name() string                 { return "setuppy" }
func (Converter) Supports(filename string) bool { return filename == "setup.py" }
func (Converter) Lock() bool                   { return false }

func (c Converter) Load(path string) (*models.Project, error) {
	return converters.LoadFile(path, c.Loads)
}

func (c Converter) Dump(path string, reqs []models.Requirement, project *models.Project) error {
	return converters.DumpFile(path, reqs, project, c.Dumps)
}

// Loads parses a setup.py script.
func (Converter) Loads(content string) (*models.Project, error) {
	toks, err := tokenize(content)
	if err != nil {
		return nil, err
	}
	kws, err := findSetup(toks)
	if err != nil {
		return nil, err
	}

	p := &models.Project{}
	var (
		author, email string
		reqs          []models.Requirement
		depLinks      []value
		packages      []string
		packageData   *value
	)
	stringFields := map[string]*string{
		"name":            &p.Name,
		"version":         &p.Version,
		"description":     &p.Description,
		"license":         &p.License,
		"url":             &p.Homepage,
		"python_requires": &p.Python,
		"author":          &author,
		"author_email":    &email,
	}

	for _, kw := range kws {
		if dst, ok := stringFields[kw.name]; ok {
			if kw.value.kind != valString {
				return nil, notLiteral(kw)
			}
			*dst = strings.TrimSpace(kw.value.str)
			continue
		}

		switch kw.name {
		case "keywords":
			words, ok := kw.value.stringList(false)
			if !ok {
				return nil, notLiteral(kw)
			}
			for _, w := range words {
				p.Keywords = append(p.Keywords, keywordSplitRE.Split(strings.TrimSpace(w), -1)...)
			}

		case "classifiers":
			cls, ok := kw.value.stringList(true)
			if !ok {
				return nil, notLiteral(kw)
			}
			p.Classifiers = cls

		case "install_requires":
			lines, ok := kw.value.stringList(true)
			if !ok {
				return nil, notLiteral(kw)
			}
			parsed, err := parseRequirements(lines, "", kw.value.line)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, parsed...)

		case "extras_require":
			parsed, err := parseExtras(kw)
			if err != nil {
				return nil, err
			}
			reqs = append(reqs, parsed...)

		case "dependency_links":
			if kw.value.kind != valList {
				return nil, notLiteral(kw)
			}
			depLinks = kw.value.items

		case "packages":
			// find_packages() and friends are rediscovered from the tree.
			if names, ok := kw.value.stringList(false); ok && kw.value.kind == valList {
				packages = names
			}

		case "package_data":
			if kw.value.kind != valDict {
				return nil, notLiteral(kw)
			}
			v := kw.value
			packageData = &v
		}
	}

	p.Authors = parseAuthors(author, email)

	reqs, err = attachLinks(reqs, depLinks)
	if err != nil {
		return nil, err
	}
	p.SetDependencies(reqs)

	tree, err := parseTree(packages, packageData)
	if err != nil {
		return nil, err
	}
	p.Package = tree

	return converters.Finish(p)
}

var keywordSplitRE = regexp.MustCompile(`[,\s]+`)

func notLiteral(kw keyword) error {
	return converters.Unsupported(kw.line, "setup(%s=...) is not a literal", kw.name)
}

func parseRequirements(lines []string, extra string, line int) ([]models.Requirement, error) {
	out := make([]models.Requirement, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		req, err := models.ParseRequirement(l)
		if err != nil {
			return nil, converters.Errorf(line, 0, "%v", err)
		}
		if extra != "" {
			req.Markers = converters.JoinExtra(req.Markers, extra)
			req.Optional = true
		}
		out = append(out, req)
	}
	return out, nil
}

// parseExtras decodes extras_require. Keys may carry a marker after a colon
// ("test:python_version<'3'"); an empty extra name makes the requirements
// conditional but not optional.
func parseExtras(kw keyword) ([]models.Requirement, error) {
	if kw.value.kind != valDict {
		return nil, notLiteral(kw)
	}
	var out []models.Requirement
	for i, k := range kw.value.keys {
		if k.kind != valString {
			return nil, notLiteral(kw)
		}
		lines, ok := kw.value.items[i].stringList(true)
		if !ok {
			return nil, notLiteral(kw)
		}
		extra, marker, _ := strings.Cut(k.str, ":")
		extra = strings.TrimSpace(extra)
		reqs, err := parseRequirements(lines, extra, k.line)
		if err != nil {
			return nil, err
		}
		if marker = strings.TrimSpace(marker); marker != "" {
			for j := range reqs {
				rest := reqs[j].Markers
				if e, r := converters.SplitExtra(rest); e != "" {
					rest = converters.JoinExtra(joinMarkers(r, marker), e)
				} else {
					rest = joinMarkers(rest, marker)
				}
				reqs[j].Markers = rest
			}
		}
		out = append(out, reqs...)
	}
	return out, nil
}

func joinMarkers(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " and " + b
}

// attachLinks gives each requirement the dependency link whose #egg= name
// matches it. A link nobody requires becomes a requirement of its own.
func attachLinks(reqs []models.Requirement, depLinks []value) ([]models.Requirement, error) {
	for _, v := range depLinks {
		if v.kind != valString {
			return nil, converters.Unsupported(v.line, "setup(dependency_links=...) is not a literal")
		}
		raw := strings.TrimSpace(v.str)
		link, err := links.Parse(raw)
		if err != nil {
			return nil, converters.Errorf(v.line, 0, "dependency link %q: %v", raw, err)
		}
		name := links.Name(link)
		if name == "" {
			return nil, converters.Unsupported(v.line, "dependency link %q has no #egg= name", raw)
		}

		matched := false
		for i := range reqs {
			if reqs[i].Key() == models.NormalizeName(name) {
				reqs[i].Link = link
				matched = true
			}
		}
		if !matched {
			req, err := models.ParseRequirement(raw)
			if err != nil {
				return nil, converters.Errorf(v.line, 0, "%v", err)
			}
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

func parseAuthors(names, emails string) []models.Author {
	if names == "" && emails == "" {
		return nil
	}
	ns := splitList(names)
	es := splitList(emails)
	out := make([]models.Author, max(len(ns), len(es)))
	for i := range out {
		if i < len(ns) {
			out[i].Name = ns[i]
		}
		if i < len(es) {
			out[i].Email = es[i]
		}
	}
	return out
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseTree rebuilds discovery data from packages and package_data. Data
// entries are anchored at their package, so Globs renders the same patterns.
func parseTree(packages []string, data *value) (discover.Tree, error) {
	tree := discover.Tree{Root: "."}
	for _, mod := range packages {
		tree.Packages = append(tree.Packages, discover.Package{Path: modulePath(mod), Root: ".", Module: mod})
	}
	if data == nil {
		discover.SortPackages(tree.Packages)
		return tree, nil
	}

	for i, k := range data.keys {
		if k.kind != valString {
			return tree, converters.Unsupported(k.line, "setup(package_data=...) key is not a literal")
		}
		patterns, ok := data.items[i].stringList(false)
		if !ok {
			return tree, converters.Unsupported(k.line, "setup(package_data=...) value is not a literal")
		}
		pkg := discover.Package{Path: modulePath(k.str), Root: ".", Module: k.str}
		for _, pat := range patterns {
			dir, ext, err := splitPattern(pat)
			if err != nil {
				return tree, converters.Unsupported(k.line, "package_data pattern %q: %v", pat, err)
			}
			path := pkg.Path
			if dir != "" {
				path = strings.TrimSuffix(pkg.Path, "/") + "/" + dir
			}
			tree.Data = append(tree.Data, discover.Data{Path: path, Ext: ext, Package: pkg})
		}
	}
	discover.SortPackages(tree.Packages)
	discover.SortData(tree.Data)
	return tree, nil
}

// modulePath maps a dotted module to a directory below the tree root.
func modulePath(mod string) string {
	if mod == "" {
		return "."
	}
	return "./" + strings.ReplaceAll(mod, ".", "/")
}

// splitPattern splits "sub/dir/*.ext" into "sub/dir" and ".ext".
func splitPattern(pat string) (dir, ext string, err error) {
	dir, file := "", pat
	if i := strings.LastIndex(pat, "/"); i >= 0 {
		dir, file = pat[:i], pat[i+1:]
	}
	if !strings.HasPrefix(file, "*") || strings.ContainsAny(file[1:], "*?[") || strings.ContainsAny(dir, "*?[") {
		return "", "", fmt.Errorf("only <dir>/*<ext> patterns are supported")
	}
	return dir, file[1:], nil
}
