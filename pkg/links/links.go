package links

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrEmptyLink is returned by [Parse] for strings that carry no location.
var ErrEmptyLink = errors.New("empty link")

// Kind names the active variant of a [Link].
type Kind string

const (
	KindRegistry Kind = "registry"
	KindVCS      Kind = "vcs"
	KindPath     Kind = "path"
	KindURL      Kind = "url"
)

// Link describes where the code of a package comes from. The variants are
// [Registry], [VCS], [FileOrDirectory] and [URL]. A nil Link is treated as
// [Registry] everywhere in this module.
//
// Links are values: construct them, compare them with [Equal], never mutate them.
type Link interface {
	Kind() Kind
	String() string
	link()
}

// Registry is the implicit default: the package comes from the package index.
type Registry struct{}

// VCS points at a version-control repository.
type VCS struct {
	System   string // git, hg, svn or bzr
	URL      string // repository URL without the "<system>+" prefix
	Revision string // branch, tag or commit (may be empty)
	Name     string // project name from #egg= (may be empty)
	Version  string // version from #egg=name-1.2.3 (may be empty)
}

// FileOrDirectory points at a local archive or source tree.
type FileOrDirectory struct {
	Path string
}

// URL points at a remote archive.
type URL struct {
	URL  string
	Hash string // "<algo>:<hex>" from the #sha256=... fragment (may be empty)
	Name string // project name from #egg= (may be empty)
}

func (Registry) Kind() Kind        { return KindRegistry }
func (VCS) Kind() Kind             { return KindVCS }
func (FileOrDirectory) Kind() Kind { return KindPath }
func (URL) Kind() Kind             { return KindURL }

func (Registry) link()        {}
func (VCS) link()             {}
func (FileOrDirectory) link() {}
func (URL) link()             {}

func (Registry) String() string { return "" }

func (v VCS) String() string {
	var b strings.Builder
	b.WriteString(v.System)
	b.WriteByte('+')
	b.WriteString(v.URL)
	if v.Revision != "" {
		b.WriteByte('@')
		b.WriteString(v.Revision)
	}
	if v.Name != "" {
		b.WriteString("#egg=")
		b.WriteString(v.Name)
		if v.Version != "" {
			b.WriteByte('-')
			b.WriteString(v.Version)
		}
	}
	return b.String()
}

func (f FileOrDirectory) String() string { return f.Path }

func (u URL) String() string {
	s := u.URL
	var frag []string
	if u.Name != "" {
		frag = append(frag, "egg="+u.Name)
	}
	if u.Hash != "" {
		algo, sum, _ := strings.Cut(u.Hash, ":")
		frag = append(frag, algo+"="+sum)
	}
	if len(frag) > 0 {
		s += "#" + strings.Join(frag, "&")
	}
	return s
}

var vcsSystems = []string{"git", "hg", "svn", "bzr"}

var eggVersionRE = regexp.MustCompile(`^(.+?)-(\d[\w.+!-]*)$`)

var hashAlgos = map[string]bool{"md5": true, "sha1": true, "sha224": true, "sha256": true, "sha384": true, "sha512": true}

// Parse classifies raw into a Link variant.
//
//   - "git+https://host/o/r@v1#egg=name-0.1.0", "git://...", "...repo.git" -> [VCS]
//   - "https://host/pkg.tar.gz#sha256=..." -> [URL]
//   - "file:///abs", "./rel", "../rel", "/abs", "~/x" -> [FileOrDirectory]
//
// An empty string returns [ErrEmptyLink].
func Parse(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyLink
	}

	for _, sys := range vcsSystems {
		if strings.HasPrefix(raw, sys+"+") {
			return parseVCS(sys, strings.TrimPrefix(raw, sys+"+"))
		}
	}
	if strings.HasPrefix(raw, "git://") || strings.HasPrefix(raw, "git@") {
		return parseVCS("git", raw)
	}

	if strings.HasPrefix(raw, "file://") {
		base, _ := splitFragment(strings.TrimPrefix(raw, "file://"))
		return FileOrDirectory{Path: base}, nil
	}
	if base, _ := splitFragment(raw); isPath(base) {
		return FileOrDirectory{Path: filepath.ToSlash(base)}, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("links: cannot classify %q", raw)
	}
	base, frag := splitFragment(raw)
	if strings.HasSuffix(strings.TrimSuffix(base, "/"), ".git") {
		return parseVCS("git", raw)
	}

	out := URL{URL: base}
	for k, v := range frag {
		switch {
		case k == "egg":
			out.Name = v
		case hashAlgos[k]:
			out.Hash = k + ":" + v
		}
	}
	return out, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and literals.
func MustParse(raw string) Link {
	l, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return l
}

func parseVCS(system, rest string) (Link, error) {
	base, frag := splitFragment(rest)
	v := VCS{System: system, URL: base}

	// A revision follows the last '@' in the path, not the one in "git@host".
	start := pathStart(base)
	if i := strings.LastIndex(base[start:], "@"); i >= 0 {
		v.URL, v.Revision = base[:start+i], base[start+i+1:]
	}
	if v.URL == "" {
		return nil, fmt.Errorf("links: empty %s url", system)
	}
	if egg := frag["egg"]; egg != "" {
		v.Name, v.Version = splitEgg(egg)
	}
	return v, nil
}

// pathStart returns the offset of the repository path inside a VCS URL.
func pathStart(u string) int {
	if i := strings.Index(u, "://"); i >= 0 {
		if j := strings.Index(u[i+3:], "/"); j >= 0 {
			return i + 3 + j
		}
		return len(u)
	}
	// scp-like "git@host:owner/repo"
	if i := strings.Index(u, ":"); i >= 0 {
		return i + 1
	}
	return 0
}

// splitEgg separates "libtest-0.1.0" into name and version.
func splitEgg(egg string) (name, version string) {
	if m := eggVersionRE.FindStringSubmatch(egg); m != nil {
		return m[1], m[2]
	}
	return egg, ""
}

func splitFragment(raw string) (string, map[string]string) {
	base, frag, ok := strings.Cut(raw, "#")
	if !ok {
		return raw, nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(frag, "&") {
		k, v, _ := strings.Cut(part, "=")
		if k != "" {
			out[k] = v
		}
	}
	return base, out
}

func isPath(raw string) bool {
	switch {
	case strings.HasPrefix(raw, "./"), strings.HasPrefix(raw, "../"),
		strings.HasPrefix(raw, "/"), strings.HasPrefix(raw, "~"),
		raw == ".", raw == "..":
		return true
	}
	if strings.Contains(raw, "://") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(raw))
	return ext == ".whl" || ext == ".zip" || ext == ".gz" || ext == ".tgz" || ext == ".bz2"
}

// IsRegistry reports whether l is nil or the [Registry] variant.
func IsRegistry(l Link) bool {
	if l == nil {
		return true
	}
	_, ok := l.(Registry)
	return ok
}

// Equal compares two links structurally. A nil link equals [Registry].
func Equal(a, b Link) bool {
	if IsRegistry(a) || IsRegistry(b) {
		return IsRegistry(a) && IsRegistry(b)
	}
	return a == b
}

// Name returns the project name the link declares through #egg=, if any.
func Name(l Link) string {
	switch v := l.(type) {
	case VCS:
		return v.Name
	case URL:
		return v.Name
	}
	return ""
}
