package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/resolver"
)

// projectFiles lists the files looked for in a linked directory, most
// descriptive first.
var projectFiles = []string{"pyproject.toml", "setup.py", "poetry.lock", "requirements.txt", "environment.yml", "go.mod"}

// Local serves non-registry links without network access.
//
// A path link is loaded with the converter the registry detects for it
// (for a directory, the first of pyproject.toml, setup.py, ... present);
// the project's version and dependencies become the candidate. VCS and URL
// links produce a candidate with the version from their #egg= fragment and
// no dependencies, since nothing is cloned or downloaded.
type Local struct {
	reg  *converters.Registry
	base string

	mu       sync.Mutex
	projects map[string]*models.Project
}

// NewLocal creates a Local source. Relative paths are resolved against base.
func NewLocal(reg *converters.Registry, base string) *Local {
	return &Local{reg: reg, base: base, projects: make(map[string]*models.Project)}
}

func (l *Local) ResolveCandidate(ctx context.Context, name string, c constraint.Constraint, link links.Link) (*resolver.Candidate, error) {
	switch v := link.(type) {
	case links.FileOrDirectory:
		p, err := l.load(v.Path)
		if err != nil {
			return nil, err
		}
		if p.Version != "" && !c.IsAny() && !c.Check(p.Version) {
			return nil, nil
		}
		return &resolver.Candidate{Name: name, Version: p.Version, Link: link}, nil
	case links.VCS:
		version := v.Version
		if version == "" {
			if _, err := constraint.ParseVersion(v.Revision); err == nil {
				version = strings.TrimPrefix(v.Revision, "v")
			}
		}
		return &resolver.Candidate{Name: name, Version: version, Link: link}, nil
	case links.URL:
		return &resolver.Candidate{Name: name, Link: link, Hashes: hashOf(v)}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnsupportedLink, link)
}

func hashOf(u links.URL) []string {
	if u.Hash == "" {
		return nil
	}
	return []string{u.Hash}
}

func (l *Local) FetchDependencies(ctx context.Context, c resolver.Candidate) ([]models.Requirement, error) {
	f, ok := c.Link.(links.FileOrDirectory)
	if !ok {
		return nil, nil
	}
	p, err := l.load(f.Path)
	if err != nil {
		return nil, err
	}
	return MarkOptional(cloneReqs(p.Dependencies)), nil
}

func (l *Local) load(path string) (*models.Project, error) {
	path = l.abs(path)

	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.projects[path]; ok {
		return p, nil
	}

	file, err := l.projectFile(path)
	if err != nil {
		return nil, err
	}
	conv, err := l.reg.Detect(file)
	if err != nil {
		return nil, err
	}
	p, err := conv.Load(file)
	if err != nil {
		return nil, err
	}
	l.projects[path] = p
	return p, nil
}

func (l *Local) abs(path string) string {
	path = strings.TrimPrefix(path, "file://")
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, rest)
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.base, path)
	}
	return filepath.Clean(path)
}

func (l *Local) projectFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	for _, name := range projectFiles {
		file := filepath.Join(path, name)
		if _, err := os.Stat(file); err == nil {
			return file, nil
		}
	}
	return "", fmt.Errorf("%w: no project file in %s", ErrNotFound, path)
}

var _ resolver.Source = (*Local)(nil)
