package models

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/links"
)

// ErrInvalidRequirement is returned by [ParseRequirement] for lines that do
// not follow PEP 508.
var ErrInvalidRequirement = errors.New("invalid requirement")

// Requirement is one dependency edge: a package name, the version range the
// dependent accepts, and where the code should come from.
//
// Requirements are values. Once handed to the resolver they are never mutated;
// [Requirement.Merge] and the With* helpers return copies.
type Requirement struct {
	Name       string                // Declared name (normalize with Key for comparisons)
	Constraint constraint.Constraint // Accepted versions (zero value = any)
	Extras     []string              // Requested extras, sorted and unique
	Markers    string                // Environment marker expression (may be empty)
	Link       links.Link            // Code source (nil = registry)
	Editable   bool                  // Installed in development mode

	Version  string   // Locked version, set by the resolver
	Hashes   []string // Locked artifact hashes ("sha256:...")
	Parents  []string // Names of the dependents that declared this edge
	Optional bool     // Declared under an extra; failures are not fatal
}

var normalizeRE = regexp.MustCompile(`[-_.]+`)

// NormalizeName converts a package name to its canonical form.
// Applies lowercase and collapses runs of "-", "_" and "." into "-",
// following PEP 503 normalization rules used by PyPI and other registries.
func NormalizeName(name string) string {
	return normalizeRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// Key returns the normalized name used for map keys and comparisons.
func (r Requirement) Key() string { return NormalizeName(r.Name) }

var (
	nameRE    = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*`)
	extrasRE  = regexp.MustCompile(`^\[([^\]]*)\]\s*`)
	parenRE   = regexp.MustCompile(`^\(([^)]*)\)\s*$`)
	eggNameRE = regexp.MustCompile(`#egg=([^&\s]+)`)
)

// ParseRequirement parses a PEP 508 requirement line.
//
// Accepted forms:
//
//	requests[security]>=2.8.1,==2.8.*; python_version < "2.7"
//	requests (>=2.8)
//	pkg @ https://host/pkg-1.0.tar.gz
//	git+https://github.com/o/r#egg=name-0.1.0
//	-e ./local/path#egg=name
func ParseRequirement(line string) (Requirement, error) {
	line = strings.TrimSpace(line)
	var req Requirement

	if rest, ok := cutEditable(line); ok {
		req.Editable = true
		line = rest
	}
	if line == "" {
		return Requirement{}, fmt.Errorf("%w: empty line", ErrInvalidRequirement)
	}

	spec, markers, _ := strings.Cut(line, ";")
	spec = strings.TrimSpace(spec)
	req.Markers = strings.TrimSpace(markers)

	// Bare link: VCS/URL/path with #egg=name.
	if looksLikeLink(spec) {
		l, err := links.Parse(spec)
		if err != nil {
			return Requirement{}, fmt.Errorf("%w: %v", ErrInvalidRequirement, err)
		}
		req.Link = l
		req.Name = links.Name(l)
		if req.Name == "" {
			if m := eggNameRE.FindStringSubmatch(spec); m != nil {
				req.Name = m[1]
			}
		}
		if req.Name == "" {
			return Requirement{}, fmt.Errorf("%w: link %q has no #egg= name", ErrInvalidRequirement, spec)
		}
		if v, ok := l.(links.VCS); ok && v.Version != "" {
			req.Constraint = constraint.MustParse("==" + v.Version)
		}
		return req, nil
	}

	m := nameRE.FindStringSubmatch(spec)
	if m == nil {
		return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, line)
	}
	req.Name = m[1]
	rest := spec[len(m[0]):]

	if m := extrasRE.FindStringSubmatch(rest); m != nil {
		req.Extras = normalizeExtras(strings.Split(m[1], ","))
		rest = rest[len(m[0]):]
	}

	if after, ok := strings.CutPrefix(rest, "@"); ok {
		l, err := links.Parse(after)
		if err != nil {
			return Requirement{}, fmt.Errorf("%w: %v", ErrInvalidRequirement, err)
		}
		req.Link = l
		return req, nil
	}

	if m := parenRE.FindStringSubmatch(rest); m != nil {
		rest = m[1]
	}
	c, err := constraint.Parse(rest)
	if err != nil {
		return Requirement{}, fmt.Errorf("%w: %s: %w", ErrInvalidRequirement, req.Name, err)
	}
	req.Constraint = c
	return req, nil
}

// MustParseRequirement is like [ParseRequirement] but panics on error.
func MustParseRequirement(line string) Requirement {
	r, err := ParseRequirement(line)
	if err != nil {
		panic(err)
	}
	return r
}

func cutEditable(line string) (string, bool) {
	for _, p := range []string{"-e ", "--editable ", "--editable="} {
		if rest, ok := strings.CutPrefix(line, p); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return line, false
}

var schemeRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

func looksLikeLink(spec string) bool {
	return schemeRE.MatchString(spec) || strings.HasPrefix(spec, "git@") ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/")
}

func normalizeExtras(extras []string) []string {
	out := make([]string, 0, len(extras))
	for _, e := range extras {
		if e = NormalizeName(e); e != "" {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// String renders the requirement as a PEP 508 line. Locked requirements
// render "==version" instead of their range.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteByte(']')
	}
	switch {
	case !links.IsRegistry(r.Link):
		b.WriteString(" @ ")
		b.WriteString(r.Link.String())
	case r.Version != "":
		b.WriteString("==")
		b.WriteString(r.Version)
	default:
		b.WriteString(r.Constraint.String())
	}
	if r.Markers != "" {
		if !links.IsRegistry(r.Link) {
			b.WriteByte(' ')
		}
		b.WriteString("; ")
		b.WriteString(r.Markers)
	}
	return b.String()
}

// Merge returns a new Requirement whose constraint is the intersection of
// r's and other's. Extras are unioned; the first non-registry link wins
// (link compatibility is the caller's decision). r is not modified.
func (r Requirement) Merge(other Requirement) Requirement {
	out := r.Clone()
	out.Constraint = constraint.Intersect(r.Constraint, other.Constraint)
	out.Extras = normalizeExtras(append(slices.Clone(r.Extras), other.Extras...))
	if links.IsRegistry(out.Link) {
		out.Link = other.Link
	}
	out.Editable = r.Editable || other.Editable
	out.Optional = r.Optional && other.Optional
	out.Parents = mergeSorted(r.Parents, other.Parents)
	if out.Markers == "" {
		out.Markers = other.Markers
	}
	return out
}

// Clone returns a deep copy of r.
func (r Requirement) Clone() Requirement {
	out := r
	out.Extras = slices.Clone(r.Extras)
	out.Hashes = slices.Clone(r.Hashes)
	out.Parents = slices.Clone(r.Parents)
	return out
}

// WithConstraint returns a copy of r with c as its constraint.
func (r Requirement) WithConstraint(c constraint.Constraint) Requirement {
	out := r.Clone()
	out.Constraint = c
	return out
}

func mergeSorted(a, b []string) []string {
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// SortRequirements sorts reqs in place by normalized name, then by rendered
// form so that duplicates (resolver inputs) also have a stable order.
func SortRequirements(reqs []Requirement) {
	slices.SortStableFunc(reqs, func(a, b Requirement) int {
		if n := strings.Compare(a.Key(), b.Key()); n != 0 {
			return n
		}
		return strings.Compare(a.String(), b.String())
	})
}

// Sorted returns a sorted copy of reqs. The input is not modified.
func Sorted(reqs []Requirement) []Requirement {
	out := slices.Clone(reqs)
	SortRequirements(out)
	return out
}

// Names returns the set of normalized names in reqs.
func Names(reqs []Requirement) map[string]bool {
	out := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		out[r.Key()] = true
	}
	return out
}
