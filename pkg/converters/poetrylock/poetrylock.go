// Package poetrylock converts poetry.lock files.
//
// A lock file holds the whole resolved closure. Loads returns every
// package as a pinned requirement whose Parents are the packages that
// depend on it; Dumps inverts Parents back into [package.dependencies].
package poetrylock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

const lockVersion = "2.0"

// Converter handles poetry.lock.
type Converter struct{}

func (Converter) Name() string              { return "poetrylock" }
func (Converter) Supports(name string) bool { return name == "poetry.lock" }
func (Converter) Lock() bool                { return true }

func (c Converter) Load(path string) (*models.Project, error) {
	return converters.LoadFile(path, c.Loads)
}

func (c Converter) Dump(path string, reqs []models.Requirement, project *models.Project) error {
	return converters.DumpFile(path, reqs, project, c.Dumps)
}

type lock struct {
	Packages []lockPackage `toml:"package"`
	Metadata metadata      `toml:"metadata"`
}

type metadata struct {
	LockVersion    string                `toml:"lock-version"`
	PythonVersions string                `toml:"python-versions"`
	ContentHash    string                `toml:"content-hash"`
	Files          map[string][]fileHash `toml:"files,omitempty"`
}

type lockPackage struct {
	Name           string              `toml:"name"`
	Version        string              `toml:"version"`
	Description    string              `toml:"description,omitempty"`
	Optional       bool                `toml:"optional"`
	PythonVersions string              `toml:"python-versions"`
	Markers        string              `toml:"markers,omitempty"`
	Files          []fileHash          `toml:"files,omitempty"`
	Dependencies   map[string]any      `toml:"dependencies,omitempty"`
	Extras         map[string][]string `toml:"extras,omitempty"`
	Source         *source             `toml:"source,omitempty"`
}

type fileHash struct {
	File string `toml:"file,omitempty"`
	Hash string `toml:"hash"`
}

type source struct {
	Type              string `toml:"type"`
	URL               string `toml:"url"`
	Reference         string `toml:"reference,omitempty"`
	ResolvedReference string `toml:"resolved_reference,omitempty"`
}

// Loads parses a poetry.lock document.
func (Converter) Loads(content string) (*models.Project, error) {
	var doc lock
	if _, err := toml.Decode(content, &doc); err != nil {
		var pe toml.ParseError
		if errors.As(err, &pe) {
			return nil, converters.Errorf(pe.Position.Line, 0, "%s", pe.Message)
		}
		return nil, converters.Errorf(0, 0, "%v", err)
	}

	parents := make(map[string][]string)
	for _, pkg := range doc.Packages {
		for dep := range pkg.Dependencies {
			k := models.NormalizeName(dep)
			parents[k] = append(parents[k], pkg.Name)
		}
	}

	reqs := make([]models.Requirement, 0, len(doc.Packages))
	for i, pkg := range doc.Packages {
		if pkg.Name == "" || pkg.Version == "" {
			return nil, converters.Errorf(0, 0, "package #%d has no name or version", i+1)
		}
		c, err := constraint.Parse("==" + pkg.Version)
		if err != nil {
			return nil, converters.Errorf(0, 0, "%s: %v", pkg.Name, err)
		}
		req := models.Requirement{
			Name:       pkg.Name,
			Constraint: c,
			Version:    pkg.Version,
			Markers:    pkg.Markers,
			Optional:   pkg.Optional,
		}
		if req.Link, err = sourceLink(pkg.Source); err != nil {
			return nil, converters.Errorf(0, 0, "%s: %v", pkg.Name, err)
		}
		req.Hashes = hashes(pkg.Files, doc.Metadata.Files[pkg.Name])
		if ps := parents[req.Key()]; len(ps) > 0 {
			slices.Sort(ps)
			req.Parents = slices.Compact(ps)
		}
		reqs = append(reqs, req)
	}

	p := &models.Project{}
	if py := doc.Metadata.PythonVersions; py != "*" {
		p.Python = py
	}
	p.SetDependencies(reqs)
	return converters.Finish(p)
}

func sourceLink(s *source) (links.Link, error) {
	if s == nil {
		return nil, nil
	}
	switch s.Type {
	case "git":
		rev := s.ResolvedReference
		if rev == "" {
			rev = s.Reference
		}
		return links.VCS{System: "git", URL: s.URL, Revision: rev}, nil
	case "directory", "file":
		return links.FileOrDirectory{Path: s.URL}, nil
	case "url":
		return links.Parse(s.URL)
	}
	// "legacy" and friends are alternative indexes.
	return nil, nil
}

func hashes(groups ...[]fileHash) []string {
	var out []string
	for _, files := range groups {
		for _, f := range files {
			if f.Hash != "" {
				out = append(out, f.Hash)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Dumps renders a poetry.lock document with packages sorted by name.
// Every requirement must be pinned.
func (Converter) Dumps(reqs []models.Requirement, project *models.Project) (string, error) {
	reqs, p := converters.Prepare(reqs, project)

	deps := make(map[string]map[string]any)
	for _, r := range reqs {
		c := r.Constraint.String()
		if c == "" {
			c = "*"
		}
		for _, parent := range r.Parents {
			k := models.NormalizeName(parent)
			if deps[k] == nil {
				deps[k] = make(map[string]any)
			}
			deps[k][r.Name] = c
		}
	}

	doc := lock{Metadata: metadata{LockVersion: lockVersion, PythonVersions: "*"}}
	if p.Python != "" {
		doc.Metadata.PythonVersions = p.Python
	}
	lines := make([]string, 0, len(reqs))
	for _, r := range reqs {
		version := r.Version
		if version == "" {
			var ok bool
			if version, ok = r.Constraint.Pinned(); !ok {
				return "", converters.Unsupported(0, "%s is not pinned", r.Name)
			}
		}
		pkg := lockPackage{
			Name:           r.Name,
			Version:        version,
			Optional:       r.Optional,
			PythonVersions: "*",
			Markers:        r.Markers,
			Dependencies:   deps[r.Key()],
			Source:         linkSource(r.Link),
		}
		for _, h := range r.Hashes {
			pkg.Files = append(pkg.Files, fileHash{Hash: h})
		}
		doc.Packages = append(doc.Packages, pkg)
		lines = append(lines, r.Name+"=="+version)
	}
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	doc.Metadata.ContentHash = hex.EncodeToString(sum[:])

	var b strings.Builder
	enc := toml.NewEncoder(&b)
	enc.Indent = ""
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return b.String(), nil
}

func linkSource(l links.Link) *source {
	switch v := l.(type) {
	case links.VCS:
		return &source{Type: "git", URL: v.URL, Reference: v.Revision, ResolvedReference: v.Revision}
	case links.FileOrDirectory:
		return &source{Type: "directory", URL: v.Path}
	case links.URL:
		return &source{Type: "url", URL: v.String()}
	}
	return nil
}
