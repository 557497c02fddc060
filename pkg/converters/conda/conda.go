// Package conda converts conda environment files (environment.yml).
//
// Conda match specs ("numpy=1.20", "scipy>=1.7,<2", "pandas 1.3.*") become
// registry requirements; entries of the nested pip: list are PEP 508 lines.
// Channels are installer configuration and are not carried.
package conda

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

// Converter handles environment.yml.
type Converter struct{}

func (Converter) Name() string { return "conda" }

func (Converter) Supports(name string) bool {
	return name == "environment.yml" || name == "environment.yaml"
}

func (Converter) Lock() bool { return false }

func (c Converter) Load(path string) (*models.Project, error) {
	return converters.LoadFile(path, c.Loads)
}

func (c Converter) Dump(path string, reqs []models.Requirement, project *models.Project) error {
	return converters.DumpFile(path, reqs, project, c.Dumps)
}

type environment struct {
	Name         string       `yaml:"name,omitempty"`
	Channels     []string     `yaml:"channels,omitempty"`
	Dependencies []dependency `yaml:"dependencies,omitempty"`
}

// dependency is one entry of the dependencies list: a match spec or a
// {pip: [...]} mapping.
type dependency struct {
	Spec string
	Pip  []string
	Line int
}

func (d *dependency) UnmarshalYAML(node *yaml.Node) error {
	d.Line = node.Line
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&d.Spec)
	case yaml.MappingNode:
		var m map[string][]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		for k, v := range m {
			if k != "pip" {
				return converters.Unsupported(node.Line, "dependency section %q", k)
			}
			d.Pip = v
		}
		return nil
	}
	return converters.Unsupported(node.Line, "dependency entry of kind %d", node.Kind)
}

func (d dependency) MarshalYAML() (any, error) {
	if d.Pip != nil {
		return map[string][]string{"pip": d.Pip}, nil
	}
	return d.Spec, nil
}

var yamlLineRE = regexp.MustCompile(`line (\d+)`)

// Loads parses an environment file.
func (Converter) Loads(content string) (*models.Project, error) {
	var env environment
	if err := yaml.Unmarshal([]byte(content), &env); err != nil {
		var ue *converters.UnsupportedConstructError
		if errors.As(err, &ue) {
			return nil, err
		}
		line := 0
		if m := yamlLineRE.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
		return nil, converters.Errorf(line, 0, "%v", err)
	}

	p := &models.Project{Name: env.Name}
	var reqs []models.Requirement
	for _, d := range env.Dependencies {
		for _, line := range d.Pip {
			req, err := models.ParseRequirement(line)
			if err != nil {
				return nil, converters.Errorf(d.Line, 0, "%v", err)
			}
			if extra, _ := converters.SplitExtra(req.Markers); extra != "" {
				req.Optional = true
			}
			reqs = append(reqs, req)
		}
		if d.Spec == "" {
			continue
		}
		req, err := parseSpec(d.Spec)
		if err != nil {
			return nil, converters.Errorf(d.Line, 0, "%v", err)
		}
		switch req.Key() {
		case "python":
			p.Python = req.Constraint.String()
		case "pip":
		default:
			reqs = append(reqs, req)
		}
	}
	p.SetDependencies(reqs)
	return converters.Finish(p)
}

var specRE = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)\s*(.*)$`)

// parseSpec converts a conda match spec to a requirement. A single "="
// is a fuzzy match ("=1.2" means 1.2.*), as is a bare version after a
// space.
func parseSpec(spec string) (models.Requirement, error) {
	spec = strings.TrimSpace(spec)
	if _, rest, ok := strings.Cut(spec, "::"); ok {
		spec = rest
	}
	m := specRE.FindStringSubmatch(spec)
	if m == nil {
		return models.Requirement{}, fmt.Errorf("invalid match spec %q", spec)
	}
	name, version := m[1], strings.TrimSpace(m[2])

	switch {
	case version == "":
	case hasBuild(version):
		return models.Requirement{}, fmt.Errorf("build strings are not supported: %q", spec)
	case strings.HasPrefix(version, "=="):
	case strings.HasPrefix(version, "="):
		version = fuzzy(version[1:])
	case version[0] >= '0' && version[0] <= '9':
		version = fuzzy(version)
	}

	c, err := constraint.Parse(version)
	if err != nil {
		return models.Requirement{}, err
	}
	return models.Requirement{Name: name, Constraint: c}, nil
}

// hasBuild reports whether an exact or fuzzy version carries a build
// string ("1.20=py38_0", "1.20 py38_0").
func hasBuild(version string) bool {
	v := strings.TrimPrefix(strings.TrimPrefix(version, "="), "=")
	if strings.ContainsAny(v, "<>!,") {
		return false
	}
	return strings.ContainsAny(v, "= ")
}

func fuzzy(v string) string {
	if strings.HasSuffix(v, "*") {
		return "==" + v
	}
	return "==" + v + ".*"
}

// Dumps renders an environment file. Requirements conda cannot express
// (links, extras, markers) go to the pip: section.
func (Converter) Dumps(reqs []models.Requirement, project *models.Project) (string, error) {
	reqs, p := converters.Prepare(reqs, project)

	env := environment{Name: p.Name}
	if p.Python != "" {
		py := p.Python
		if c, err := constraint.Parse(py); err == nil {
			py = c.String()
		}
		env.Dependencies = append(env.Dependencies, dependency{Spec: "python" + py})
	}
	var pip []string
	for _, r := range reqs {
		if !links.IsRegistry(r.Link) || len(r.Extras) > 0 || r.Markers != "" {
			pip = append(pip, r.String())
			continue
		}
		version := r.Constraint.String()
		if r.Version != "" {
			version = "==" + r.Version
		}
		env.Dependencies = append(env.Dependencies, dependency{Spec: r.Name + version})
	}
	if len(pip) > 0 {
		slices.Sort(pip)
		env.Dependencies = append(env.Dependencies, dependency{Spec: "pip"}, dependency{Pip: pip})
	}

	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(env); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}
