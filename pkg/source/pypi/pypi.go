package pypi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ko3luhbka/dephell/pkg/cache"
	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/httputil"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/resolver"
	"github.com/ko3luhbka/dephell/pkg/source"
)

// DefaultIndexURL is the public PyPI JSON API.
const DefaultIndexURL = "https://pypi.org/pypi"

// DefaultTTL is how long index responses are cached.
const DefaultTTL = 24 * time.Hour

var preRE = regexp.MustCompile(`(?i)\d(a|alpha|b|beta|c|rc|pre|preview)\.?\d*|dev\d*$`)

// Options configures a Source.
type Options struct {
	IndexURL   string        // defaults to DefaultIndexURL
	TTL        time.Duration // defaults to DefaultTTL
	Refresh    bool          // bypass cached responses
	HTTPClient *http.Client  // optional transport override
}

// Project is the release listing of one package.
type Project struct {
	Name     string              `json:"name"`
	Summary  string              `json:"summary,omitempty"`
	License  string              `json:"license,omitempty"`
	HomePage string              `json:"home_page,omitempty"`
	Versions []string            `json:"versions"`
	Hashes   map[string][]string `json:"hashes,omitempty"`
}

// Release is the dependency metadata of one version.
type Release struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	RequiresDist []string `json:"requires_dist,omitempty"`
}

// Source is a resolver.Source backed by a PyPI-compatible JSON API.
// Safe for concurrent use.
type Source struct {
	client  *httputil.Client
	baseURL string
	refresh bool
}

// New creates a Source caching responses in backend (nil for none).
func New(backend cache.Cache, opts Options) *Source {
	if opts.IndexURL == "" {
		opts.IndexURL = DefaultIndexURL
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	client := httputil.NewClient(backend, "pypi:", opts.TTL, map[string]string{"Accept": "application/json"})
	if opts.HTTPClient != nil {
		client.WithHTTPClient(opts.HTTPClient)
	}
	return &Source{
		client:  client,
		baseURL: strings.TrimSuffix(opts.IndexURL, "/"),
		refresh: opts.Refresh,
	}
}

// FetchProject returns the release listing of a package.
func (s *Source) FetchProject(ctx context.Context, name string) (*Project, error) {
	name = models.NormalizeName(name)
	var p Project
	err := s.client.Cached(ctx, cache.Key("project", s.baseURL, name), s.refresh, &p, func() error {
		return s.fetchProject(ctx, name, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Source) fetchProject(ctx context.Context, name string, p *Project) error {
	var data projectResponse
	if err := s.client.Get(ctx, fmt.Sprintf("%s/%s/json", s.baseURL, name), &data); err != nil {
		if errors.Is(err, httputil.ErrNotFound) {
			return fmt.Errorf("%w: pypi package %s", err, name)
		}
		return err
	}

	*p = Project{
		Name:     data.Info.Name,
		Summary:  data.Info.Summary,
		License:  licenseOf(data.Info.License, data.Info.Classifiers),
		HomePage: data.Info.HomePage,
		Hashes:   make(map[string][]string),
	}
	for version, files := range data.Releases {
		var hashes []string
		yanked := len(files) > 0
		for _, f := range files {
			yanked = yanked && f.Yanked
			if f.Digests.SHA256 != "" {
				hashes = append(hashes, "sha256:"+f.Digests.SHA256)
			}
		}
		if len(files) == 0 || yanked {
			continue
		}
		slices.Sort(hashes)
		p.Versions = append(p.Versions, version)
		p.Hashes[version] = slices.Compact(hashes)
	}
	slices.Sort(p.Versions)
	return nil
}

// FetchRelease returns the metadata of one release.
func (s *Source) FetchRelease(ctx context.Context, name, version string) (*Release, error) {
	name = models.NormalizeName(name)
	var r Release
	err := s.client.Cached(ctx, cache.Key("release", s.baseURL, name, version), s.refresh, &r, func() error {
		var data releaseResponse
		if err := s.client.Get(ctx, fmt.Sprintf("%s/%s/%s/json", s.baseURL, name, version), &data); err != nil {
			if errors.Is(err, httputil.ErrNotFound) {
				return fmt.Errorf("%w: pypi release %s %s", err, name, version)
			}
			return err
		}
		r = Release{Name: data.Info.Name, Version: data.Info.Version, RequiresDist: data.Info.RequiresDist}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ResolveCandidate picks the highest final release allowed by c, falling
// back to pre-releases when no final release fits.
func (s *Source) ResolveCandidate(ctx context.Context, name string, c constraint.Constraint, link links.Link) (*resolver.Candidate, error) {
	if !links.IsRegistry(link) {
		return nil, fmt.Errorf("%w: %s", source.ErrUnsupportedLink, link)
	}
	p, err := s.FetchProject(ctx, name)
	if err != nil {
		return nil, err
	}

	var final []string
	for _, v := range p.Versions {
		if !IsPrerelease(v) {
			final = append(final, v)
		}
	}
	v, ok := constraint.MaxSatisfying(c, final)
	if !ok {
		if v, ok = constraint.MaxSatisfying(c, p.Versions); !ok {
			return nil, nil
		}
	}
	return &resolver.Candidate{Name: name, Version: v, Hashes: slices.Clone(p.Hashes[v])}, nil
}

// FetchDependencies parses the requires_dist lines of the candidate's
// release. Lines guarded by an extra marker come back optional.
func (s *Source) FetchDependencies(ctx context.Context, c resolver.Candidate) ([]models.Requirement, error) {
	rel, err := s.FetchRelease(ctx, c.Name, c.Version)
	if err != nil {
		return nil, err
	}
	reqs := make([]models.Requirement, 0, len(rel.RequiresDist))
	for _, line := range rel.RequiresDist {
		r, err := models.ParseRequirement(line)
		if err != nil {
			return nil, fmt.Errorf("pypi: %s %s: %w", c.Name, c.Version, err)
		}
		reqs = append(reqs, r)
	}
	return source.MarkOptional(reqs), nil
}

// IsPrerelease reports whether a PEP 440 version is an alpha, beta, release
// candidate or development release.
func IsPrerelease(v string) bool {
	return preRE.MatchString(v)
}

type projectResponse struct {
	Info     apiInfo              `json:"info"`
	Releases map[string][]apiFile `json:"releases"`
}

type releaseResponse struct {
	Info apiInfo `json:"info"`
}

type apiInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Summary      string   `json:"summary"`
	License      string   `json:"license"`
	Classifiers  []string `json:"classifiers"`
	RequiresDist []string `json:"requires_dist"`
	HomePage     string   `json:"home_page"`
}

type apiFile struct {
	Filename string `json:"filename"`
	Yanked   bool   `json:"yanked"`
	Digests  struct {
		SHA256 string `json:"sha256"`
	} `json:"digests"`
}

// licenseOf prefers the trove classifier ("License :: OSI Approved :: MIT
// License" -> "MIT License") and falls back to a short license field.
func licenseOf(license string, classifiers []string) string {
	for _, c := range classifiers {
		if strings.HasPrefix(c, "License :: ") {
			parts := strings.Split(c, " :: ")
			if len(parts) >= 3 {
				return parts[len(parts)-1]
			}
		}
	}
	license = strings.TrimSpace(license)
	if first, _, _ := strings.Cut(license, "\n"); len(first) < 50 {
		return first
	}
	return ""
}

var _ resolver.Source = (*Source)(nil)
