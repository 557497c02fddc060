package constraint

import (
	"errors"
	"testing"

	mm "github.com/Masterminds/semver/v3"
)

func mustSemver(t *testing.T, raw string) *mm.Version {
	t.Helper()
	v, err := mm.NewVersion(raw)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"*", ""},
		{"1.2.3", "==1.2.3"},
		{">=1.0, <2.0", ">=1.0,<2.0"},
		{"<2.0,>=1.0", ">=1.0,<2.0"},
		{">=1.0 <2.0", ">=1.0,<2.0"},
		{"~=1.4", ">=1.4,<2"},
		{"~=1.4.5", ">=1.4.5,<1.5"},
		{"^1.2.3", ">=1.2.3,<2"},
		{"^0.2.3", ">=0.2.3,<0.3"},
		{"^0.0.3", ">=0.0.3,<0.0.4"},
		{"~1.2.3", ">=1.2.3,<1.3"},
		{"~1", ">=1,<2"},
		{"==1.*", ">=1,<2"},
		{"==2.1.*", ">=2.1,<2.2"},
		{"!=1.5,>=1.0", ">=1.0,!=1.5"},
		{">=2.0.0rc1", ">=2.0.0rc1"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if got := c.String(); got != tt.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, raw := range []string{"^1.0 || ^2.0", "===1.0", "===foobar", "==1!2.0", ">=1!1.0,<1!2", "1!2.0", ">=1.*"} {
		if _, err := Parse(raw); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Parse(%q) error = %v, want ErrUnsupported", raw, err)
		}
	}
	if _, err := ParseVersion("1!2.0"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("ParseVersion(1!2.0) error = %v, want ErrUnsupported", err)
	}
	if _, err := Parse(">=1.0,!=1.5"); err != nil {
		t.Errorf("Parse(>=1.0,!=1.5) error = %v", err)
	}
	for _, raw := range []string{"~=1", ">=", ">=1.*", "1.*.2"} {
		if _, err := Parse(raw); err == nil {
			t.Errorf("Parse(%q) should fail", raw)
		}
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		constraint string
		version    string
		want       bool
	}{
		{"", "0.0.1", true},
		{">=1.0,<2.0", "1.5", true},
		{">=1.0,<2.0", "2.0", false},
		{"~=1.4", "1.9.9", true},
		{"~=1.4", "2.0", false},
		{"==1.*", "1.99", true},
		{"!=1.5", "1.5.0", false},
		{"==2.31.0", "2.31.0", true},
		{">=1.0", "1.0.dev1", false},
		{"<1.0", "0.9.post2", true},
		{">=2018.4", "2020.12.5", true},
		{"==2.31.0.6", "2.31.0.6", true},
		{"==2.31.0.6", "2.31.0.10", false},
		{"<2.31.0.10", "2.31.0.6", true},
		{">1.0", "1.0.post1", true},
		{"==1.0", "1.0.post1", false},
		{"<=1.0", "1.0+local.1", false},
		{">=2.0a1", "2.0b1", true},
		{">=1.0", "2.0rc1", false},
		{">=1.0.0-beta.1", "1.0.0-beta.2", true},
	}

	for _, tt := range tests {
		t.Run(tt.constraint+"@"+tt.version, func(t *testing.T) {
			c := MustParse(tt.constraint)
			if got := c.Check(tt.version); got != tt.want {
				t.Errorf("%q.Check(%q) = %v, want %v", tt.constraint, tt.version, got, tt.want)
			}
		})
	}
}

func TestIntersectOrderIndependent(t *testing.T) {
	a := MustParse(">=1.0")
	b := MustParse("<3.0")
	c := MustParse("!=2.0")

	orders := [][]Constraint{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}
	want := IntersectAll(a, b, c).String()
	for _, o := range orders {
		if got := IntersectAll(o...).String(); got != want {
			t.Errorf("IntersectAll order %v = %q, want %q", o, got, want)
		}
	}

	left := Intersect(Intersect(a, b), c)
	right := Intersect(a, Intersect(b, c))
	if !Equal(left, right) {
		t.Errorf("not associative: %q vs %q", left, right)
	}
}

func TestIntersectDeduplicates(t *testing.T) {
	c := Intersect(MustParse(">=1.0"), MustParse(">=1.0,<2"))
	if got := c.String(); got != ">=1.0,<2" {
		t.Errorf("Intersect() = %q, want %q", got, ">=1.0,<2")
	}
}

func TestEmpty(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", false},
		{">=1.0,<2.0", false},
		{">=2.0,<1.0", true},
		{">=2.0,<2.0", true},
		{">=2.0,<=2.0", false},
		{">=2.0,<=2.0,!=2.0", true},
		{">2.0,<=2.0", true},
		{"==1.0,==1.1", true},
		{"==1.0,==1.0.0", false},
		{"==1.5,<1.0", true},
		{"==1.5,!=1.5", true},
		{"==1.5,>=1.0,<2", false},
		{"==2.31.0.6,!=2.31.0.10", false},
		{"==2.31.0.6,==2.31.0.10", true},
		{"==2.31.0.6,==2.31.0.6.0", false},
		{"==1.0,!=1.0.post1", false},
		{"==1.0,==1.0.post1", true},
		{">1.0,<1.0.post1", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := MustParse(tt.raw).Empty(); got != tt.want {
				t.Errorf("%q.Empty() = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPinned(t *testing.T) {
	if v, ok := MustParse("==1.2").Pinned(); !ok || v != "1.2" {
		t.Errorf("Pinned() = %q, %v; want 1.2, true", v, ok)
	}
	if _, ok := MustParse(">=1.2").Pinned(); ok {
		t.Error("range should not be pinned")
	}
}

func TestMaxSatisfying(t *testing.T) {
	c := MustParse(">=1.0,<2.0")
	got, ok := MaxSatisfying(c, []string{"0.9", "1.0", "1.4.2", "1.10", "2.0", "garbage"})
	if !ok || got != "1.10" {
		t.Errorf("MaxSatisfying() = %q, %v; want 1.10, true", got, ok)
	}
	if _, ok := MaxSatisfying(MustParse(">=3"), []string{"1.0"}); ok {
		t.Error("MaxSatisfying() should report no match")
	}
}

func TestCompareVersions(t *testing.T) {
	ordered := []string{
		"1.0.dev1", "1.0a1.dev1", "1.0a1", "1.0a1.post1", "1.0b2", "1.0rc1",
		"1.0", "1.0+abc", "1.0+abc.5", "1.0.post1.dev1", "1.0.post1", "1.0.post2",
		"1.0.1", "1.0.1.1", "1.0.1.2", "1.0.1.10", "1.1",
		"2.31.0.6", "2.31.0.10", "2.31.1",
	}
	for i := 1; i < len(ordered); i++ {
		a, b := MustParseVersion(ordered[i-1]), MustParseVersion(ordered[i])
		if Compare(a, b) >= 0 {
			t.Errorf("Compare(%s, %s) >= 0, want < 0", a, b)
		}
	}
}

func TestCompareEqualVersions(t *testing.T) {
	tests := []struct{ a, b string }{
		{"1.0", "1.0.0"},
		{"2.31.0.6", "2.31.0.6.0"},
		{"1.0-1", "1.0.post1"},
		{"1.0rc1", "1.0c1"},
		{"1.0.0", "v1.0.0"},
	}
	for _, tt := range tests {
		if n := Compare(MustParseVersion(tt.a), MustParseVersion(tt.b)); n != 0 {
			t.Errorf("Compare(%s, %s) = %d, want 0", tt.a, tt.b, n)
		}
	}
}

func TestSemver(t *testing.T) {
	sc, err := MustParse(">=1.2,<2").Semver()
	if err != nil {
		t.Fatalf("Semver() error = %v", err)
	}
	if !sc.Check(mustSemver(t, "1.5.0")) || sc.Check(mustSemver(t, "2.0.0")) {
		t.Errorf("Semver() = %v, want >= 1.2.0, < 2.0.0", sc)
	}
}
