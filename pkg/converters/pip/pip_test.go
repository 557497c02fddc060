package pip

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
)

func TestSupports(t *testing.T) {
	tests := []struct {
		filename string
		pip      bool
		lock     bool
	}{
		{"requirements.txt", true, false},
		{"requirements-dev.txt", true, false},
		{"requirements_prod.txt", true, false},
		{"requirements.lock", false, true},
		{"requirements.txt.lock", false, true},
		{"pyproject.toml", false, false},
		{"poetry.lock", false, false},
		{"Pipfile", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := (Converter{}).Supports(tt.filename); got != tt.pip {
				t.Errorf("pip Supports(%q) = %v, want %v", tt.filename, got, tt.pip)
			}
			if got := (Converter{Locked: true}).Supports(tt.filename); got != tt.lock {
				t.Errorf("piplock Supports(%q) = %v, want %v", tt.filename, got, tt.lock)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	content := `# Test requirements
requests>=2.28.0
click==8.1.0
pydantic>=2.0
# Comment line
httpx  # trailing comment
--index-url https://pypi.org/simple

-e ./local-package#egg=local-package
git+https://github.com/user/repo.git@v1#egg=repo
colorama; extra == "windows"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Converter{}.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"click", "colorama", "httpx", "local-package", "pydantic", "repo", "requests"}
	if got := p.DependencyNames(); !slices.Equal(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}

	local, _ := p.Dependency("local-package")
	if !local.Editable {
		t.Error("local-package should be editable")
	}
	if _, ok := local.Link.(links.FileOrDirectory); !ok {
		t.Errorf("local-package link = %#v", local.Link)
	}
	repo, _ := p.Dependency("repo")
	if v, ok := repo.Link.(links.VCS); !ok || v.Revision != "v1" {
		t.Errorf("repo link = %#v", repo.Link)
	}
	click, _ := p.Dependency("click")
	if click.Version != "" {
		t.Errorf("unlocked format set version %q", click.Version)
	}
	colorama, _ := p.Dependency("colorama")
	if !colorama.Optional {
		t.Error("extra-guarded requirement should be optional")
	}
}

func TestLoadsLockWithHashes(t *testing.T) {
	content := `requests==2.31.0 \
    --hash=sha256:bbb \
    --hash=sha256:aaa
idna==3.6 --hash=sha256:ccc
`
	p, err := Converter{Locked: true}.Loads(content)
	if err != nil {
		t.Fatal(err)
	}
	requests, ok := p.Dependency("requests")
	if !ok {
		t.Fatal("requests missing")
	}
	if requests.Version != "2.31.0" {
		t.Errorf("version = %q", requests.Version)
	}
	if !slices.Equal(requests.Hashes, []string{"sha256:aaa", "sha256:bbb"}) {
		t.Errorf("hashes = %v", requests.Hashes)
	}
	idna, _ := p.Dependency("idna")
	if !slices.Equal(idna.Hashes, []string{"sha256:ccc"}) {
		t.Errorf("idna hashes = %v", idna.Hashes)
	}
}

func TestLoadsErrors(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		unsupported bool
		line        int
	}{
		{"include", "six\n-r base.txt\n", true, 2},
		{"constraint file", "-c constraints.txt", true, 1},
		{"unknown option", "--use-feature=fast-deps", true, 1},
		{"bad requirement", "six\n\nrequests>=>2\n", false, 3},
		{"unnamed link", "https://host/pkg.tar.gz", false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Converter{}.Loads(tt.content)
			if err == nil || p != nil {
				t.Fatalf("Loads = %v, %v; want error", p, err)
			}
			var ue *converters.UnsupportedConstructError
			var pe *converters.ParseError
			switch {
			case tt.unsupported:
				if !errors.As(err, &ue) || ue.Line != tt.line {
					t.Errorf("err = %#v, want unsupported at line %d", err, tt.line)
				}
			default:
				if !errors.As(err, &pe) || pe.Line != tt.line {
					t.Errorf("err = %#v, want parse error at line %d", err, tt.line)
				}
			}
		})
	}
}

func TestDumps(t *testing.T) {
	reqs := []models.Requirement{
		models.MustParseRequirement("requests>=2.28"),
		models.MustParseRequirement("-e ./lib#egg=lib"),
		models.MustParseRequirement(`colorama; sys_platform == "win32"`),
		models.MustParseRequirement("attrs"),
	}
	got, err := Converter{}.Dumps(reqs, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := `attrs
colorama; sys_platform == "win32"
-e ./lib#egg=lib
requests>=2.28
`
	if got != want {
		t.Errorf("Dumps =\n%s\nwant\n%s", got, want)
	}
}

func TestDumpsLocked(t *testing.T) {
	r := models.MustParseRequirement("requests>=2")
	r.Version = "2.31.0"
	r.Hashes = []string{"sha256:bbb", "sha256:aaa"}

	got, err := Converter{Locked: true}.Dumps([]models.Requirement{r}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "requests==2.31.0 \\\n    --hash=sha256:aaa \\\n    --hash=sha256:bbb\n"
	if got != want {
		t.Errorf("Dumps = %q, want %q", got, want)
	}

	unlocked, err := Converter{}.Dumps([]models.Requirement{r}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(unlocked, "--hash") {
		t.Errorf("unlocked output carries hashes: %q", unlocked)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, c := range []Converter{{}, {Locked: true}} {
		t.Run(c.Name(), func(t *testing.T) {
			content := `requests==2.31.0 --hash=sha256:aaa
git+https://github.com/gwtwod/poetrylibtest#egg=libtest-0.1.0
-e ../sibling#egg=sibling
pytest>=7; extra == "dev"
`
			p, err := c.Loads(content)
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
			if !slices.Equal(p.DependencyNames(), again.DependencyNames()) {
				t.Errorf("names %v -> %v", p.DependencyNames(), again.DependencyNames())
			}
			second, err := c.Dumps(again.Dependencies, again)
			if err != nil {
				t.Fatal(err)
			}
			if second != out {
				t.Errorf("dump not stable:\n%s\nvs\n%s", out, second)
			}
		})
	}
}
