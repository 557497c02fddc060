package constraint

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

var (
	// ErrUnsupported is returned by [Parse] for expressions that cannot be
	// represented as a conjunction of comparisons (for example "||" unions),
	// and by [Parse] and [ParseVersion] for epochs.
	ErrUnsupported = errors.New("unsupported constraint")

	// ErrInvalid is returned by [Parse] for malformed expressions.
	ErrInvalid = errors.New("invalid constraint")
)

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpGe Op = ">="
	OpGt Op = ">"
	OpLe Op = "<="
	OpLt Op = "<"
)

var opRank = map[Op]int{OpGt: 0, OpGe: 1, OpEq: 2, OpNe: 3, OpLe: 4, OpLt: 5}

// Clause is a single comparison against a version.
type Clause struct {
	Op      Op
	Version Version
}

func (c Clause) String() string { return string(c.Op) + c.Version.raw }

func (c Clause) key() string { return c.String() }

// Constraint is a version-range expression: a conjunction of clauses.
//
// The zero value allows any version. Constraints are immutable; [Intersect]
// returns a new value. Clauses are kept deduplicated and in canonical order
// so that two constraints with the same clause set render identically no
// matter how they were built.
type Constraint struct {
	clauses []Clause
}

// Any returns the constraint that allows every version.
func Any() Constraint { return Constraint{} }

// clauseEpochRE finds an epoch ("1!2.0") anywhere in an expression; "!="
// never has a digit on both sides.
var clauseEpochRE = regexp.MustCompile(`\d!\d`)

var tokenRE = regexp.MustCompile(`(===|==|!=|~=|>=|<=|>|<|\^|~|=)?\s*([0-9A-Za-z*][0-9A-Za-z.*+_-]*)`)

// Parse parses a PEP 440 or Poetry-style constraint.
//
// Supported forms: "==1.2", "!=1.3", ">=1,<2", "~=1.4", "^1.2", "~1.2",
// "==1.*", "1.2.3" (exact), "*" and "" (any). Comma and whitespace both
// separate conjuncts. Unions ("||"), arbitrary equality ("===") and epochs
// ("1!2.0") return [ErrUnsupported].
func Parse(raw string) (Constraint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return Any(), nil
	}
	if strings.Contains(raw, "||") || strings.Contains(raw, " or ") {
		return Constraint{}, fmt.Errorf("%w: %q", ErrUnsupported, raw)
	}
	if strings.Contains(raw, "===") {
		return Constraint{}, fmt.Errorf("%w: arbitrary equality: %q", ErrUnsupported, raw)
	}
	if clauseEpochRE.MatchString(raw) {
		return Constraint{}, fmt.Errorf("%w: epoch: %q", ErrUnsupported, raw)
	}

	var clauses []Clause
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rest := part
		for rest != "" {
			loc := tokenRE.FindStringSubmatchIndex(rest)
			if loc == nil || strings.TrimSpace(rest[:loc[0]]) != "" {
				return Constraint{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
			}
			op := ""
			if loc[2] >= 0 {
				op = rest[loc[2]:loc[3]]
			}
			cs, err := expand(op, rest[loc[4]:loc[5]])
			if errors.Is(err, ErrUnsupported) {
				return Constraint{}, fmt.Errorf("%q: %w", raw, err)
			}
			if err != nil {
				return Constraint{}, fmt.Errorf("%w: %q: %v", ErrInvalid, raw, err)
			}
			clauses = append(clauses, cs...)
			rest = strings.TrimSpace(rest[loc[1]:])
		}
	}
	return normalize(clauses), nil
}

// MustParse is like [Parse] but panics on error.
func MustParse(raw string) Constraint {
	c, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// expand turns one operator/version token into comparison clauses.
func expand(op, ver string) ([]Clause, error) {
	if ver == "*" {
		if op == "" || op == "==" || op == "=" {
			return nil, nil
		}
		return nil, fmt.Errorf("wildcard with %q", op)
	}

	if strings.HasSuffix(ver, ".*") {
		if op != "" && op != "==" && op != "=" {
			return nil, fmt.Errorf("%w: wildcard with %q", ErrUnsupported, op)
		}
		parts, err := releaseParts(strings.TrimSuffix(ver, ".*"))
		if err != nil {
			return nil, err
		}
		lo := joinParts(parts)
		return rangeClauses(lo, bump(parts, len(parts)-1))
	}
	if strings.Contains(ver, "*") {
		return nil, fmt.Errorf("misplaced wildcard in %q", ver)
	}

	switch op {
	case "", "=", "==":
		return single(OpEq, ver)
	case "!=", ">=", ">", "<=", "<":
		return single(Op(op), ver)
	case "~=":
		parts, err := releaseParts(ver)
		if err != nil {
			return nil, err
		}
		if len(parts) < 2 {
			return nil, fmt.Errorf("~= needs at least two release components: %q", ver)
		}
		return rangeClauses(ver, bump(parts, len(parts)-2))
	case "^":
		parts, err := releaseParts(ver)
		if err != nil {
			return nil, err
		}
		i := 0
		for i < len(parts)-1 && parts[i] == 0 {
			i++
		}
		return rangeClauses(ver, bump(parts, i))
	case "~":
		parts, err := releaseParts(ver)
		if err != nil {
			return nil, err
		}
		i := 0
		if len(parts) > 1 {
			i = 1
		}
		return rangeClauses(ver, bump(parts, i))
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func single(op Op, raw string) ([]Clause, error) {
	v, err := ParseVersion(raw)
	if err != nil {
		return nil, err
	}
	return []Clause{{Op: op, Version: v}}, nil
}

func rangeClauses(lo, hi string) ([]Clause, error) {
	l, err := ParseVersion(lo)
	if err != nil {
		return nil, err
	}
	h, err := ParseVersion(hi)
	if err != nil {
		return nil, err
	}
	return []Clause{{Op: OpGe, Version: l}, {Op: OpLt, Version: h}}, nil
}

// normalize deduplicates clauses and sorts them by version, operator and
// spelling. Every constructor funnels through here.
func normalize(clauses []Clause) Constraint {
	seen := make(map[string]bool, len(clauses))
	out := make([]Clause, 0, len(clauses))
	for _, c := range clauses {
		if seen[c.key()] {
			continue
		}
		seen[c.key()] = true
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Clause) int {
		if n := Compare(a.Version, b.Version); n != 0 {
			return n
		}
		if n := opRank[a.Op] - opRank[b.Op]; n != 0 {
			return n
		}
		return strings.Compare(a.Version.raw, b.Version.raw)
	})
	if len(out) == 0 {
		return Constraint{}
	}
	return Constraint{clauses: out}
}

// Intersect returns the constraint allowed by both a and b.
// Intersection is commutative and associative: the result only depends on
// the union of the clause sets.
func Intersect(a, b Constraint) Constraint {
	all := make([]Clause, 0, len(a.clauses)+len(b.clauses))
	all = append(all, a.clauses...)
	all = append(all, b.clauses...)
	return normalize(all)
}

// IntersectAll folds [Intersect] over cs.
func IntersectAll(cs ...Constraint) Constraint {
	var out Constraint
	for _, c := range cs {
		out = Intersect(out, c)
	}
	return out
}

// String renders the constraint in PEP 440 syntax (">=1.4,<2").
// The empty string means any version.
func (c Constraint) String() string {
	parts := make([]string, len(c.clauses))
	for i, cl := range c.clauses {
		parts[i] = cl.String()
	}
	return strings.Join(parts, ",")
}

// Clauses returns a copy of the canonical clause list.
func (c Constraint) Clauses() []Clause { return slices.Clone(c.clauses) }

// IsAny reports whether c allows every version.
func (c Constraint) IsAny() bool { return len(c.clauses) == 0 }

// Equal reports whether a and b have the same canonical clause set.
func Equal(a, b Constraint) bool { return a.String() == b.String() }

// Pinned returns the version of the single "==" clause, if c is an exact pin.
func (c Constraint) Pinned() (string, bool) {
	if len(c.clauses) == 1 && c.clauses[0].Op == OpEq {
		return c.clauses[0].Version.raw, true
	}
	return "", false
}

// Semver translates c into a Masterminds constraint expression. Versions
// keep only their first three release components and pre-release phase, so
// the translation is coarser than [Constraint.Allows].
func (c Constraint) Semver() (*mm.Constraints, error) {
	if c.IsAny() {
		return mm.NewConstraint("*")
	}
	parts := make([]string, len(c.clauses))
	for i, cl := range c.clauses {
		op := string(cl.Op)
		if cl.Op == OpEq {
			op = "="
		}
		parts[i] = op + " " + cl.Version.v.String()
	}
	return mm.NewConstraint(strings.Join(parts, ", "))
}

// Allows reports whether v satisfies every clause of c. Pre-releases and
// development releases are allowed only when some clause names one.
func (c Constraint) Allows(v Version) bool {
	if v.IsZero() {
		return false
	}
	if v.Prerelease() && !slices.ContainsFunc(c.clauses, func(cl Clause) bool { return cl.Version.Prerelease() }) {
		return false
	}
	for _, cl := range c.clauses {
		if !cl.allows(v) {
			return false
		}
	}
	return true
}

func (cl Clause) allows(v Version) bool {
	n := Compare(v, cl.Version)
	switch cl.Op {
	case OpEq:
		return n == 0
	case OpNe:
		return n != 0
	case OpGe:
		return n >= 0
	case OpGt:
		return n > 0
	case OpLe:
		return n <= 0
	case OpLt:
		return n < 0
	}
	return false
}

// Check parses raw and reports whether it satisfies c.
func (c Constraint) Check(raw string) bool {
	v, err := ParseVersion(raw)
	if err != nil {
		return false
	}
	return c.Allows(v)
}

type bound struct {
	v         Version
	exclusive bool
	set       bool
}

// Empty reports whether no version can satisfy c. The check is exact for
// the bound, pin and exclusion clauses this package produces.
func (c Constraint) Empty() bool {
	var lo, hi bound
	var pin *Version
	var excluded []Version

	for _, cl := range c.clauses {
		switch cl.Op {
		case OpEq:
			if pin != nil && Compare(*pin, cl.Version) != 0 {
				return true
			}
			v := cl.Version
			pin = &v
		case OpNe:
			excluded = append(excluded, cl.Version)
		case OpGe, OpGt:
			ex := cl.Op == OpGt
			if !lo.set || Compare(cl.Version, lo.v) > 0 || (Compare(cl.Version, lo.v) == 0 && ex) {
				lo = bound{v: cl.Version, exclusive: ex, set: true}
			}
		case OpLe, OpLt:
			ex := cl.Op == OpLt
			if !hi.set || Compare(cl.Version, hi.v) < 0 || (Compare(cl.Version, hi.v) == 0 && ex) {
				hi = bound{v: cl.Version, exclusive: ex, set: true}
			}
		}
	}

	if pin != nil {
		if lo.set && (Compare(*pin, lo.v) < 0 || (Compare(*pin, lo.v) == 0 && lo.exclusive)) {
			return true
		}
		if hi.set && (Compare(*pin, hi.v) > 0 || (Compare(*pin, hi.v) == 0 && hi.exclusive)) {
			return true
		}
		for _, e := range excluded {
			if Compare(*pin, e) == 0 {
				return true
			}
		}
		return false
	}

	if lo.set && hi.set {
		switch n := Compare(lo.v, hi.v); {
		case n > 0:
			return true
		case n == 0:
			if lo.exclusive || hi.exclusive {
				return true
			}
			for _, e := range excluded {
				if Compare(lo.v, e) == 0 {
					return true
				}
			}
		}
	}
	return false
}
