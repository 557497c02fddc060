package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Package is a directory that forms a valid dotted-module chain from Root.
type Package struct {
	Path   string // Slash-separated directory path ("./a/b")
	Root   string // Tree root the module name is relative to (".")
	Module string // Dotted module name ("project.a.b")
}

// Data is a set of non-code files of one extension inside a directory,
// owned by the deepest package that contains that directory.
type Data struct {
	Path    string // Directory holding the files ("./m/z")
	Ext     string // Extension including the dot (".txt")
	Package Package
}

// Tree is the result of [Discover]: every package plus the data directories
// attached to them. Both slices are sorted.
type Tree struct {
	Root     string
	Packages []Package
	Data     []Data
}

// DataGlobs lists the glob patterns of one package's data files, relative
// to the package directory.
type DataGlobs struct {
	Module   string   `json:"module"`
	Patterns []string `json:"patterns"`
}

// Options configures [Discover].
type Options struct {
	// Name prefixes every module ("project" turns "a.b" into "project.a.b").
	Name string

	// Ignore lists directory names that are never entered. Entries may be
	// shell patterns ("*.egg-info").
	Ignore []string
}

// DefaultIgnore is used when Options.Ignore is nil.
var DefaultIgnore = []string{
	"__pycache__", ".git", ".hg", ".svn", ".tox", ".venv", "venv",
	"node_modules", "build", "dist", "*.egg-info",
}

// WithDefaults returns a copy with DefaultIgnore filled in.
func (o Options) WithDefaults() Options {
	if o.Ignore == nil {
		o.Ignore = DefaultIgnore
	}
	return o
}

var codeExts = map[string]bool{".py": true, ".pyc": true, ".pyo": true, ".pyd": true, ".so": true}

const initFile = "__init__.py"

// Discover walks root once and returns its package tree.
//
// A directory is a package when it contains __init__.py and its parent is a
// package too (the root itself is the top of the chain and does not need to
// be one). Non-code files are attached to the deepest enclosing package;
// files outside any package are skipped. The result only depends on the
// file-system contents, never on traversal order.
func Discover(root string, opts Options) (Tree, error) {
	opts = opts.WithDefaults()

	info, err := os.Stat(root)
	if err != nil {
		return Tree{}, fmt.Errorf("discover: %w", err)
	}
	if !info.IsDir() {
		return Tree{}, fmt.Errorf("discover: %s is not a directory", root)
	}

	// First pass collects directories with __init__.py and data files keyed
	// by directory. Maps keep accumulation order out of the result.
	inits := make(map[string]bool)
	dataExts := make(map[string]map[string]bool)

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && ignored(d.Name(), opts.Ignore) {
				return filepath.SkipDir
			}
			return nil
		}

		dir := path.Dir(rel)
		if d.Name() == initFile {
			inits[dir] = true
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == "" || codeExts[ext] {
			return nil
		}
		if dataExts[dir] == nil {
			dataExts[dir] = make(map[string]bool)
		}
		dataExts[dir][ext] = true
		return nil
	})
	if err != nil {
		return Tree{}, fmt.Errorf("discover: walk %s: %w", root, err)
	}

	pkgs := make(map[string]Package)
	for dir := range inits {
		if mod, ok := moduleOf(dir, inits, opts.Name); ok {
			pkgs[dir] = Package{Path: dotted(dir), Root: ".", Module: mod}
		}
	}

	var data []Data
	for dir, exts := range dataExts {
		owner, ok := owningPackage(dir, pkgs)
		if !ok {
			continue
		}
		for ext := range exts {
			data = append(data, Data{Path: dotted(dir), Ext: ext, Package: owner})
		}
	}

	tree := Tree{Root: filepath.ToSlash(root), Data: data}
	for _, p := range pkgs {
		tree.Packages = append(tree.Packages, p)
	}
	SortPackages(tree.Packages)
	SortData(tree.Data)
	return tree, nil
}

// moduleOf returns the dotted module name of dir if every directory from the
// top-level package down to dir carries __init__.py.
func moduleOf(dir string, inits map[string]bool, prefix string) (string, bool) {
	var parts []string
	if dir != "." {
		parts = strings.Split(dir, "/")
	}
	for i := range parts {
		if !inits[strings.Join(parts[:i+1], "/")] {
			return "", false
		}
	}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "."), true
}

func owningPackage(dir string, pkgs map[string]Package) (Package, bool) {
	for {
		if p, ok := pkgs[dir]; ok {
			return p, true
		}
		if dir == "." {
			return Package{}, false
		}
		dir = path.Dir(dir)
	}
}

func ignored(name string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

func dotted(rel string) string {
	if rel == "." {
		return "."
	}
	return "./" + rel
}

// SortPackages sorts packages by module, then path.
func SortPackages(pkgs []Package) {
	slices.SortFunc(pkgs, func(a, b Package) int {
		if n := strings.Compare(a.Module, b.Module); n != 0 {
			return n
		}
		return strings.Compare(a.Path, b.Path)
	})
}

// SortData sorts data entries by owning module, then path, then extension.
func SortData(data []Data) {
	slices.SortFunc(data, func(a, b Data) int {
		if n := strings.Compare(a.Package.Module, b.Package.Module); n != 0 {
			return n
		}
		if n := strings.Compare(a.Path, b.Path); n != 0 {
			return n
		}
		return strings.Compare(a.Ext, b.Ext)
	})
}

// Glob returns the pattern matching d's files relative to its package:
// "*.txt" for files in the package directory, "z/*.txt" below it.
func (d Data) Glob() string {
	pattern := "*" + d.Ext
	rel, ok := relPath(d.Package.Path, d.Path)
	if !ok || rel == "." {
		return pattern
	}
	return rel + "/" + pattern
}

func relPath(base, target string) (string, bool) {
	base = path.Clean(strings.TrimPrefix(base, "./"))
	target = path.Clean(strings.TrimPrefix(target, "./"))
	if base == target {
		return ".", true
	}
	if base == "." {
		return target, true
	}
	rest, ok := strings.CutPrefix(target, base+"/")
	return rest, ok
}

// Globs groups the tree's data into one entry per module with its patterns.
// Input order never matters: entries are grouped in a map and sorted by
// module, patterns by string.
func (t Tree) Globs() []DataGlobs {
	return Globs(t.Data)
}

// Globs is [Tree.Globs] over an arbitrary data set.
func Globs(data []Data) []DataGlobs {
	byModule := make(map[string]map[string]bool)
	for _, d := range data {
		mod := d.Package.Module
		if byModule[mod] == nil {
			byModule[mod] = make(map[string]bool)
		}
		byModule[mod][d.Glob()] = true
	}

	out := make([]DataGlobs, 0, len(byModule))
	for mod, set := range byModule {
		patterns := make([]string, 0, len(set))
		for p := range set {
			patterns = append(patterns, p)
		}
		slices.Sort(patterns)
		out = append(out, DataGlobs{Module: mod, Patterns: patterns})
	}
	slices.SortFunc(out, func(a, b DataGlobs) int { return strings.Compare(a.Module, b.Module) })
	return out
}

// Modules returns the sorted module names of the tree's packages.
func (t Tree) Modules() []string {
	out := make([]string, len(t.Packages))
	for i, p := range t.Packages {
		out[i] = p.Module
	}
	slices.Sort(out)
	return out
}

// IsZero reports whether nothing was discovered.
func (t Tree) IsZero() bool { return len(t.Packages) == 0 && len(t.Data) == 0 }
