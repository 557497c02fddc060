package links

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Link
	}{
		{
			raw:  "git+https://github.com/gwtwod/poetrylibtest#egg=libtest-0.1.0",
			want: VCS{System: "git", URL: "https://github.com/gwtwod/poetrylibtest", Name: "libtest", Version: "0.1.0"},
		},
		{
			raw:  "git+https://github.com/o/r.git@v1.2#egg=r",
			want: VCS{System: "git", URL: "https://github.com/o/r.git", Revision: "v1.2", Name: "r"},
		},
		{
			raw:  "git+git@github.com:o/r.git@main",
			want: VCS{System: "git", URL: "git@github.com:o/r.git", Revision: "main"},
		},
		{
			raw:  "hg+https://hg.example.org/repo",
			want: VCS{System: "hg", URL: "https://hg.example.org/repo"},
		},
		{
			raw:  "https://github.com/o/r.git",
			want: VCS{System: "git", URL: "https://github.com/o/r.git"},
		},
		{
			raw:  "https://files.example.org/pkg-1.0.tar.gz#sha256=abc",
			want: URL{URL: "https://files.example.org/pkg-1.0.tar.gz", Hash: "sha256:abc"},
		},
		{
			raw:  "./vendor/lib",
			want: FileOrDirectory{Path: "./vendor/lib"},
		},
		{
			raw:  "file:///opt/pkg",
			want: FileOrDirectory{Path: "/opt/pkg"},
		},
		{
			raw:  "dist/pkg-1.0-py3-none-any.whl",
			want: FileOrDirectory{Path: "dist/pkg-1.0-py3-none-any.whl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("   "); err != ErrEmptyLink {
		t.Errorf("Parse(blank) error = %v, want ErrEmptyLink", err)
	}
	if _, err := Parse("requests"); err == nil {
		t.Error("Parse(bare name) should fail")
	}
}

func TestVCSStringRoundTrip(t *testing.T) {
	raw := "git+https://github.com/o/r@v1#egg=pkg-1.0"
	l := MustParse(raw)
	if got := l.String(); got != raw {
		t.Errorf("String() = %q, want %q", got, raw)
	}
	if Name(l) != "pkg" {
		t.Errorf("Name() = %q, want pkg", Name(l))
	}
}

func TestEqual(t *testing.T) {
	a := VCS{System: "git", URL: "https://x/y"}
	b := VCS{System: "git", URL: "https://x/y"}
	c := VCS{System: "git", URL: "https://x/y", Revision: "v2"}

	if !Equal(a, b) {
		t.Error("identical VCS links should be equal")
	}
	if Equal(a, c) {
		t.Error("different revisions should not be equal")
	}
	if !Equal(nil, Registry{}) {
		t.Error("nil should equal Registry")
	}
	if Equal(nil, a) {
		t.Error("nil should not equal a VCS link")
	}
	if Equal(FileOrDirectory{Path: "./a"}, URL{URL: "./a"}) {
		t.Error("different variants should not be equal")
	}
}

func TestIsRegistry(t *testing.T) {
	if !IsRegistry(nil) || !IsRegistry(Registry{}) {
		t.Error("nil and Registry{} are registry links")
	}
	if IsRegistry(FileOrDirectory{Path: "."}) {
		t.Error("path link is not a registry link")
	}
}
