package constraint

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// pep440RE splits a PEP 440 version into release, pre, post, dev and local parts.
var pep440RE = regexp.MustCompile(`^v?(\d+(?:\.\d+)*)` +
	`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?(\d*))?` +
	`(?:[-_.]?(post|rev|r)[-_.]?(\d*)|-(\d+))?` +
	`(?:[-_.]?(dev)[-_.]?(\d*))?` +
	`(?:\+([a-z0-9.]+))?$`)

var preLabels = map[string]string{
	"a": "a", "alpha": "a",
	"b": "b", "beta": "b",
	"c": "rc", "rc": "rc", "pre": "rc", "preview": "rc",
}

// Version is a parsed package version.
//
// PEP 440 spellings ("2.0rc1", "1.0.dev3", "1.0.post1", "2.31.0.6+ubuntu")
// keep every release component together with the post, dev and local
// segments, and those are compared directly. The pre-release phase is
// ordered by github.com/Masterminds/semver/v3, which also parses plain
// semantic versions the PEP 440 pattern rejects.
type Version struct {
	raw     string
	release []int
	post    int // -1 when absent
	dev     int // -1 when absent
	local   string
	v       *mm.Version
}

// ParseVersion parses raw as a PEP 440 or semantic version. Epochs
// ("1!2.0") return [ErrUnsupported].
func ParseVersion(raw string) (Version, error) {
	raw = strings.TrimSpace(raw)
	if epochRE.MatchString(raw) {
		return Version{}, fmt.Errorf("constraint: parse version %q: %w: epoch", raw, ErrUnsupported)
	}
	v, err := parsePEP440(raw)
	if err != nil {
		return Version{}, fmt.Errorf("constraint: parse version %q: %w", raw, err)
	}
	return v, nil
}

// MustParseVersion is like [ParseVersion] but panics on error.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as it was written.
func (v Version) String() string { return v.raw }

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool { return v.v == nil }

// Prerelease reports whether v is a pre-release or a development release.
func (v Version) Prerelease() bool {
	return v.v != nil && (v.dev >= 0 || v.v.Prerelease() != "")
}

// Compare compares a and b, returning -1, 0 or 1.
// A zero Version sorts before every parsed version.
//
// Releases compare component-wise with missing components read as zero, so
// "2.31.0.6" < "2.31.0.10" and "1.0" == "1.0.0". Equal releases then order
// by pre-release phase, post number, dev number and local label.
func Compare(a, b Version) int {
	switch {
	case a.v == nil && b.v == nil:
		return 0
	case a.v == nil:
		return -1
	case b.v == nil:
		return 1
	}
	for i := range max(len(a.release), len(b.release)) {
		if n := cmp.Compare(component(a.release, i), component(b.release, i)); n != 0 {
			return n
		}
	}
	if n := a.v.Compare(b.v); n != 0 {
		return n
	}
	if n := cmp.Compare(a.post, b.post); n != 0 {
		return n
	}
	if n := cmp.Compare(devKey(a.dev), devKey(b.dev)); n != 0 {
		return n
	}
	return compareLocal(a.local, b.local)
}

func component(release []int, i int) int {
	if i < len(release) {
		return release[i]
	}
	return 0
}

// devKey sorts a release without a dev segment after all of its dev releases.
func devKey(dev int) int {
	if dev < 0 {
		return math.MaxInt
	}
	return dev
}

// compareLocal orders local labels: none first, then segment by segment
// with numeric segments above alphanumeric ones.
func compareLocal(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := range min(len(as), len(bs)) {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		var n int
		switch {
		case aerr == nil && berr == nil:
			n = cmp.Compare(an, bn)
		case aerr == nil:
			n = 1
		case berr == nil:
			n = -1
		default:
			n = strings.Compare(as[i], bs[i])
		}
		if n != 0 {
			return n
		}
	}
	return cmp.Compare(len(as), len(bs))
}

// MaxSatisfying returns the highest version in candidates that satisfies c.
// Unparseable candidates are skipped. If multiple versions are equal, the
// first encountered wins.
func MaxSatisfying(c Constraint, candidates []string) (string, bool) {
	var best Version
	found := false
	for _, raw := range candidates {
		v, err := ParseVersion(raw)
		if err != nil || !c.Allows(v) {
			continue
		}
		if !found || Compare(v, best) > 0 {
			best = v
			found = true
		}
	}
	return best.raw, found
}

// epochRE matches the "N!" epoch prefix of a version.
var epochRE = regexp.MustCompile(`^v?\d+!`)

func parsePEP440(raw string) (Version, error) {
	m := pep440RE.FindStringSubmatch(strings.ToLower(raw))
	if m == nil {
		sv, err := mm.NewVersion(raw)
		if err != nil {
			return Version{}, err
		}
		return Version{
			raw:     raw,
			release: []int{int(sv.Major()), int(sv.Minor()), int(sv.Patch())},
			post:    -1,
			dev:     -1,
			v:       sv,
		}, nil
	}

	release, err := releaseParts(m[1])
	if err != nil {
		return Version{}, err
	}
	v := Version{raw: raw, release: release, post: -1, dev: -1, local: m[9]}
	switch {
	case m[4] != "":
		v.post = atoiOrZero(m[5])
	case m[6] != "":
		v.post = atoiOrZero(m[6])
	}
	if m[7] != "" {
		v.dev = atoiOrZero(m[8])
	}

	// The Masterminds version carries the first three release components
	// and the pre-release phase only.
	short := release
	if len(short) > 3 {
		short = short[:3]
	}
	s := joinParts(short)
	switch {
	case m[2] != "":
		s += "-" + preLabels[m[2]] + "." + strconv.Itoa(atoiOrZero(m[3]))
	case v.dev >= 0 && v.post < 0:
		// "0dev" sorts before "a", "b" and "rc" identifiers.
		s += "-0dev"
	}
	sv, err := mm.NewVersion(s)
	if err != nil {
		return Version{}, err
	}
	v.v = sv
	return v, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

var releaseRE = regexp.MustCompile(`^v?(\d+(?:\.\d+)*)`)

// releaseParts returns the numeric release segment of raw ("1.4.2rc1" -> [1 4 2]).
func releaseParts(raw string) ([]int, error) {
	m := releaseRE.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("constraint: no release segment in %q", raw)
	}
	fields := strings.Split(m[1], ".")
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func joinParts(parts []int) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ".")
}

// bump increments the component at index i and drops everything after it.
func bump(parts []int, i int) string {
	out := make([]int, i+1)
	copy(out, parts)
	out[i]++
	return joinParts(out)
}
