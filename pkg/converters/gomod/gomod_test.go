package gomod

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ko3luhbka/dephell/pkg/constraint"
	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

const goModContent = `module github.com/ko3luhbka/example

go 1.22

require (
	github.com/spf13/cobra v1.10.1
	golang.org/x/mod v0.31.0
	gopkg.in/yaml.v3 v3.0.1
	github.com/spf13/pflag v1.0.10 // indirect
)

exclude golang.org/x/mod v0.30.0

replace (
	gopkg.in/yaml.v3 => ../yaml
	github.com/spf13/cobra => github.com/fork/cobra v1.10.2
)
`

func TestSupports(t *testing.T) {
	c := Converter{}
	if !c.Supports("go.mod") || c.Supports("go.sum") {
		t.Error("Supports should accept go.mod only")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "go.mod")
	if err := os.WriteFile(path, []byte(goModContent), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Converter{}.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Name != "github.com/ko3luhbka/example" {
		t.Errorf("name = %q", p.Name)
	}
	want := []string{"github.com/spf13/cobra", "golang.org/x/mod", "gopkg.in/yaml.v3"}
	if got := p.DependencyNames(); !slices.Equal(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}

	mod, _ := p.Dependency("golang.org/x/mod")
	if got := mod.Constraint.String(); got != "!=v0.30.0,==v0.31.0" {
		t.Errorf("x/mod constraint = %q", got)
	}
	if yaml, _ := p.Dependency("gopkg.in/yaml.v3"); !links.Equal(yaml.Link, links.FileOrDirectory{Path: "../yaml"}) {
		t.Errorf("yaml link = %#v", yaml.Link)
	}
	cobra, _ := p.Dependency("github.com/spf13/cobra")
	if v, ok := cobra.Link.(links.VCS); !ok || v.URL != "https://github.com/fork/cobra" || v.Revision != "v1.10.2" {
		t.Errorf("cobra link = %#v", cobra.Link)
	}
}

func TestLoadIndirect(t *testing.T) {
	p, err := Converter{Indirect: true}.Loads(goModContent)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Dependency("github.com/spf13/pflag"); !ok {
		t.Error("indirect requirement missing")
	}
}

func TestLoadsErrors(t *testing.T) {
	_, err := Converter{}.Loads("module example.com/x\n\nrequire golang.org/x/mod\n")
	var pe *converters.ParseError
	if !errors.As(err, &pe) || pe.Line != 3 {
		t.Errorf("err = %#v, want parse error on line 3", err)
	}
}

func TestRoundTrip(t *testing.T) {
	c := Converter{}
	p, err := c.Loads(goModContent)
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Dumps(p.Dependencies, p)
	if err != nil {
		t.Fatal(err)
	}
	again, err := c.Loads(out)
	if err != nil {
		t.Fatalf("reload: %v\n%s", err, out)
	}
	if again.Name != p.Name {
		t.Errorf("name %q -> %q", p.Name, again.Name)
	}
	for _, r := range p.Dependencies {
		r2, ok := again.Dependency(r.Name)
		if !ok {
			t.Errorf("%s lost:\n%s", r.Name, out)
			continue
		}
		if r.Constraint.String() != r2.Constraint.String() || !links.Equal(r.Link, r2.Link) {
			t.Errorf("%s: %v %v -> %v %v", r.Name, r.Constraint, r.Link, r2.Constraint, r2.Link)
		}
	}
}

func TestDumpsRejects(t *testing.T) {
	tests := map[string][]models.Requirement{
		"not a module path": {models.MustParseRequirement("requests==2.31.0")},
		"range":             {{Name: "example.com/x", Constraint: constraint.MustParse(">=v1.0.0")}},
	}
	for name, reqs := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Converter{}.Dumps(reqs, &models.Project{Name: "example.com/root"})
			var ue *converters.UnsupportedConstructError
			if !errors.As(err, &ue) {
				t.Errorf("err = %v, want unsupported", err)
			}
		})
	}
}

func TestDumpsSorted(t *testing.T) {
	reqs := []models.Requirement{
		{Name: "golang.org/x/mod", Version: "v0.31.0"},
		{Name: "github.com/spf13/cobra", Version: "v1.10.1"},
	}
	out, err := Converter{}.Dumps(reqs, &models.Project{Name: "example.com/root"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "module example.com/root\n") {
		t.Errorf("missing module line:\n%s", out)
	}
	if strings.Index(out, "cobra") > strings.Index(out, "x/mod") {
		t.Errorf("requirements not sorted:\n%s", out)
	}
}
