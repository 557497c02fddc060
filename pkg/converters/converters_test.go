package converters

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ko3luhbka/dephell/pkg/links"
	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/observability"
)

// lines is a minimal format: one PEP 508 requirement per line.
type lines struct{ name string }

func (l lines) Name() string              { return l.name }
func (l lines) Supports(name string) bool { return strings.HasSuffix(name, "."+l.name) }
func (lines) Lock() bool                  { return false }

func (l lines) Load(path string) (*models.Project, error) { return LoadFile(path, l.Loads) }

func (l lines) Dump(path string, reqs []models.Requirement, p *models.Project) error {
	return DumpFile(path, reqs, p, l.Dumps)
}

func (lines) Loads(content string) (*models.Project, error) {
	p := &models.Project{}
	for i, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "-r") {
			return nil, Unsupported(i+1, "include")
		}
		r, err := models.ParseRequirement(line)
		if err != nil {
			return nil, Errorf(i+1, 0, "%v", err)
		}
		p.AddDependency(r)
	}
	return Finish(p)
}

func (lines) Dumps(reqs []models.Requirement, project *models.Project) (string, error) {
	reqs, _ = Prepare(reqs, project)
	var b strings.Builder
	for _, r := range reqs {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func TestSplitExtra(t *testing.T) {
	tests := []struct {
		markers string
		extra   string
		rest    string
	}{
		{``, "", ""},
		{`extra == "test"`, "test", ""},
		{`python_version < "3" and extra == "test"`, "test", `python_version < "3"`},
		{`extra == 'docs' and sys_platform == "win32"`, "docs", `sys_platform == "win32"`},
		{`(python_version < "3" or os_name == "nt") and extra == "x"`, "x", `python_version < "3" or os_name == "nt"`},
		{`sys_platform == "win32"`, "", `sys_platform == "win32"`},
	}
	for _, tt := range tests {
		t.Run(tt.markers, func(t *testing.T) {
			extra, rest := SplitExtra(tt.markers)
			if extra != tt.extra || rest != tt.rest {
				t.Errorf("SplitExtra(%q) = %q, %q; want %q, %q", tt.markers, extra, rest, tt.extra, tt.rest)
			}
		})
	}
}

func TestJoinExtraInvertsSplit(t *testing.T) {
	for _, markers := range []string{
		`python_version < "3"`,
		`python_version < "3" or os_name == "nt"`,
		``,
	} {
		joined := JoinExtra(markers, "test")
		extra, rest := SplitExtra(joined)
		if extra != "test" || rest != markers {
			t.Errorf("SplitExtra(JoinExtra(%q)) = %q, %q", markers, extra, rest)
		}
	}
	if got := JoinExtra(`os_name == "nt"`, ""); got != `os_name == "nt"` {
		t.Errorf("JoinExtra without extra = %q", got)
	}
}

func TestEggLink(t *testing.T) {
	tests := []struct {
		name    string
		link    links.Link
		want    string
		wantErr bool
	}{
		{"vcs", links.VCS{System: "git", URL: "https://github.com/o/r", Revision: "v1"}, "git+https://github.com/o/r@v1#egg=pkg", false},
		{"vcs named", links.VCS{System: "git", URL: "https://github.com/o/r", Name: "other"}, "git+https://github.com/o/r#egg=other", false},
		{"url", links.URL{URL: "https://host/pkg.tar.gz"}, "https://host/pkg.tar.gz#egg=pkg", false},
		{"path", links.FileOrDirectory{Path: "../pkg"}, "../pkg#egg=pkg", false},
		{"registry", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EggLink(models.Requirement{Name: "pkg", Link: tt.link})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Errorf("EggLink = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(lines{name: "lock"}, "locked")
	r.Register(lines{name: "txt"}, "Text")

	if c, err := r.Get("TEXT"); err != nil || c.Name() != "txt" {
		t.Errorf("Get(TEXT) = %v, %v", c, err)
	}
	if c, err := r.Detect("/a/b/deps.lock"); err != nil || c.Name() != "lock" {
		t.Errorf("Detect = %v, %v", c, err)
	}
	if _, err := r.Get("toml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Get(toml) err = %v", err)
	}
	if got := r.Names(); !slices.Equal(got, []string{"lock", "txt"}) {
		t.Errorf("Names = %v", got)
	}
}

func TestLoadFileFillsPath(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		content string
		check   func(error) bool
	}{
		{"ok\n==1.0\n", func(err error) bool {
			var pe *ParseError
			return errors.As(err, &pe) && pe.Line == 2 && strings.HasSuffix(pe.Path, "deps.txt")
		}},
		{"-r other.txt\n", func(err error) bool {
			var ue *UnsupportedConstructError
			return errors.As(err, &ue) && ue.Line == 1 && strings.HasSuffix(ue.Path, "deps.txt")
		}},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, "deps.txt")
		if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
			t.Fatal(err)
		}
		p, err := lines{name: "txt"}.Load(path)
		if p != nil || !tt.check(err) {
			t.Errorf("Load(%q) = %v, %v", tt.content, p, err)
		}
	}

	if _, err := (lines{name: "txt"}).Load(filepath.Join(dir, "missing.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")
	if err := WriteFile(path, []byte("one\n")); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(path, []byte("two\n")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "two\n" {
		t.Errorf("content = %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestPrepareDoesNotMutate(t *testing.T) {
	reqs := []models.Requirement{
		models.MustParseRequirement("zope"),
		models.MustParseRequirement("attrs"),
	}
	project := &models.Project{Name: "x", Keywords: []string{"b", "a"}}

	sorted, p := Prepare(reqs, project)
	if reqs[0].Name != "zope" || project.Keywords[0] != "b" {
		t.Error("Prepare mutated its input")
	}
	if sorted[0].Name != "attrs" || !slices.Equal(p.Keywords, []string{"a", "b"}) {
		t.Errorf("Prepare = %v, %v", sorted, p.Keywords)
	}
	if _, p := Prepare(nil, nil); p == nil {
		t.Error("Prepare(nil) should return a project")
	}
}

type recordingHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) OnLoad(_ context.Context, format string, deps int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "load:"+format+":"+strings.Repeat("d", deps)+errMark(err))
}

func (h *recordingHooks) OnDump(_ context.Context, format string, deps int, _ time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "dump:"+format+":"+strings.Repeat("d", deps)+errMark(err))
}

func errMark(err error) string {
	if err != nil {
		return "!"
	}
	return ""
}

func TestConvertReportsHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetConverterHooks(h)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	out, err := Convert(ctx, lines{name: "a"}, lines{name: "b"}, "zope>=1\nattrs\n")
	if err != nil {
		t.Fatal(err)
	}
	if out != "attrs\nzope>=1\n" {
		t.Errorf("Convert = %q", out)
	}
	if _, err := Loads(ctx, lines{name: "a"}, "!!\n"); err == nil {
		t.Error("expected parse error")
	}

	want := []string{"load:a:dd", "dump:b:dd", "load:a:!"}
	if !slices.Equal(h.events, want) {
		t.Errorf("events = %v, want %v", h.events, want)
	}
}
