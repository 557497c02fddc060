package models

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ko3luhbka/dephell/pkg/discover"
)

// Author is one entry of a project's author list.
type Author struct {
	Name  string
	Email string
}

// String renders the author as "Name <email>".
func (a Author) String() string {
	switch {
	case a.Email == "":
		return a.Name
	case a.Name == "":
		return "<" + a.Email + ">"
	}
	return a.Name + " <" + a.Email + ">"
}

// ParseAuthor parses "Name <email>" (either part may be missing).
func ParseAuthor(s string) Author {
	s = strings.TrimSpace(s)
	name, rest, ok := strings.Cut(s, "<")
	if !ok {
		if strings.Contains(s, "@") && !strings.Contains(s, " ") {
			return Author{Email: s}
		}
		return Author{Name: s}
	}
	return Author{Name: strings.TrimSpace(name), Email: strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ">"))}
}

// Project is a package's own identity and its direct dependency declarations.
type Project struct {
	Name        string
	Version     string
	Description string
	Authors     []Author
	License     string
	Classifiers []string // set, kept sorted
	Keywords    []string // set, kept sorted
	Homepage    string
	Python      string // requires-python expression

	// Dependencies holds at most one Requirement per normalized name.
	Dependencies []Requirement

	// Package is the discovered code layout (may be zero).
	Package discover.Tree
}

// DuplicateDependencyError reports a project that declares the same package twice.
type DuplicateDependencyError struct {
	Name string
}

func (e *DuplicateDependencyError) Error() string {
	return fmt.Sprintf("dependency %q declared more than once", e.Name)
}

// Validate checks the project invariants.
func (p *Project) Validate() error {
	seen := make(map[string]bool, len(p.Dependencies))
	for _, r := range p.Dependencies {
		if r.Name == "" {
			return fmt.Errorf("%w: dependency with empty name", ErrInvalidRequirement)
		}
		k := r.Key()
		if seen[k] {
			return &DuplicateDependencyError{Name: k}
		}
		seen[k] = true
	}
	return nil
}

// Dependency returns the dependency declared under name.
func (p *Project) Dependency(name string) (Requirement, bool) {
	key := NormalizeName(name)
	for _, r := range p.Dependencies {
		if r.Key() == key {
			return r, true
		}
	}
	return Requirement{}, false
}

// AddDependency declares req, merging it into an existing declaration of
// the same package so the one-per-name invariant holds.
func (p *Project) AddDependency(req Requirement) {
	for i, r := range p.Dependencies {
		if r.Key() == req.Key() {
			p.Dependencies[i] = r.Merge(req)
			return
		}
	}
	p.Dependencies = append(p.Dependencies, req)
}

// SetDependencies replaces the dependency list with a sorted, merged copy of reqs.
func (p *Project) SetDependencies(reqs []Requirement) {
	p.Dependencies = nil
	for _, r := range reqs {
		p.AddDependency(r)
	}
	SortRequirements(p.Dependencies)
}

// DependencyNames returns the sorted normalized names of the direct dependencies.
func (p *Project) DependencyNames() []string {
	out := make([]string, len(p.Dependencies))
	for i, r := range p.Dependencies {
		out[i] = r.Key()
	}
	slices.Sort(out)
	return out
}

// Normalize sorts and deduplicates the set-valued fields in place.
func (p *Project) Normalize() {
	p.Classifiers = sortedSet(p.Classifiers)
	p.Keywords = sortedSet(p.Keywords)
	SortRequirements(p.Dependencies)
}

// Clone returns a deep copy of p.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Authors = slices.Clone(p.Authors)
	out.Classifiers = slices.Clone(p.Classifiers)
	out.Keywords = slices.Clone(p.Keywords)
	out.Dependencies = make([]Requirement, len(p.Dependencies))
	for i, r := range p.Dependencies {
		out.Dependencies[i] = r.Clone()
	}
	out.Package.Packages = slices.Clone(p.Package.Packages)
	out.Package.Data = slices.Clone(p.Package.Data)
	return &out
}

func sortedSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
