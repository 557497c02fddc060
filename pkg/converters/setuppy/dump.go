package setuppy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

const header = `# -*- coding: utf-8 -*-

# This file is generated by dephell. Edit the project file it was
# converted from instead.

try:
    from setuptools import setup
except ImportError:
    from distutils.core import setup

`

// Dumps renders a setup.py script. Every collection is sorted, so the
// output depends only on the logical content of reqs and project.
func (Converter) Dumps(reqs []models.Requirement, project *models.Project) (string, error) {
	reqs, p := converters.Prepare(reqs, project)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("setup(\n")

	str := func(key, val string) {
		if val != "" {
			fmt.Fprintf(&b, "    %s=%s,\n", key, quote(val))
		}
	}
	str("name", p.Name)
	str("version", p.Version)
	str("description", p.Description)
	str("python_requires", p.Python)

	var names, emails []string
	for _, a := range p.Authors {
		names = append(names, a.Name)
		emails = append(emails, a.Email)
	}
	str("author", strings.Join(names, ", "))
	if slices.ContainsFunc(emails, func(e string) bool { return e != "" }) {
		str("author_email", strings.Join(emails, ", "))
	}
	str("url", p.Homepage)
	str("license", p.License)

	list(&b, "keywords", p.Keywords)
	list(&b, "classifiers", p.Classifiers)
	list(&b, "packages", p.Package.Modules())

	if globs := p.Package.Globs(); len(globs) > 0 {
		entries := make([]string, len(globs))
		for i, g := range globs {
			entries[i] = quote(g.Module) + ": " + inlineList(g.Patterns)
		}
		block(&b, "package_data", "{", "}", entries)
	}

	install, extras, depLinks, err := split(reqs)
	if err != nil {
		return "", err
	}
	list(&b, "install_requires", install)
	list(&b, "dependency_links", depLinks)

	if len(extras) > 0 {
		keys := make([]string, 0, len(extras))
		for k := range extras {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		entries := make([]string, len(keys))
		for i, k := range keys {
			entries[i] = quote(k) + ": " + inlineList(extras[k])
		}
		block(&b, "extras_require", "{", "}", entries)
	}

	b.WriteString(")\n")
	return b.String(), nil
}

// split sorts requirements into install_requires lines, extras_require
// groups and dependency_links.
func split(reqs []models.Requirement) (install []string, extras map[string][]string, depLinks []string, err error) {
	extras = make(map[string][]string)
	for _, r := range reqs {
		line := r.Clone()
		line.Link = nil
		extra, rest := converters.SplitExtra(r.Markers)
		line.Markers = rest

		if !links.IsRegistry(r.Link) {
			l, err := converters.EggLink(r)
			if err != nil {
				return nil, nil, nil, err
			}
			depLinks = append(depLinks, l)
		}
		if extra != "" {
			extras[extra] = append(extras[extra], line.String())
			continue
		}
		install = append(install, line.String())
	}
	slices.Sort(depLinks)
	depLinks = slices.Compact(depLinks)
	return install, extras, depLinks, nil
}

var quoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\t", `\t`)

func quote(s string) string { return "'" + quoter.Replace(s) + "'" }

func inlineList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = quote(it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func list(b *strings.Builder, key string, items []string) {
	if len(items) == 0 {
		return
	}
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = quote(it)
	}
	block(b, key, "[", "]", quoted)
}

// block writes one entry per line, indented under the keyword.
func block(b *strings.Builder, key, open, close string, entries []string) {
	fmt.Fprintf(b, "    %s=%s\n", key, open)
	for i, e := range entries {
		b.WriteString("        ")
		b.WriteString(e)
		if i < len(entries)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, "    %s,\n", close)
}
