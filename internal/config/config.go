// Package config loads dephell settings.
//
// Settings live in the [tool.dephell] table of pyproject.toml or at the top
// level of a standalone dephell.toml (which wins when both exist). Scalar
// keys configure the resolver, index and cache; every sub-table is a named
// environment describing one conversion:
//
//	[tool.dephell]
//	workers = 8
//	cache = "redis://localhost:6379/0"
//
//	[tool.dephell.main]
//	from = {format = "setuppy", path = "setup.py"}
//	to = {format = "pip", path = "requirements.txt"}
//
// DEPHELL_* environment variables override file values; command-line
// flags override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ko3luhbka/dephell/pkg/resolver"
	"github.com/ko3luhbka/dephell/pkg/source/pypi"
)

// Files searched by [Load], in order of precedence.
const (
	StandaloneFile = "dephell.toml"
	PyProjectFile  = "pyproject.toml"
)

// ErrUnknownEnv is returned by [Config.Env] for an undefined environment.
var ErrUnknownEnv = errors.New("unknown environment")

// Endpoint is one side of a conversion.
type Endpoint struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

// Env is a named conversion.
type Env struct {
	From Endpoint `toml:"from"`
	To   Endpoint `toml:"to"`
}

// Config holds every setting. The zero value is usable; [Config.WithDefaults]
// fills the gaps.
type Config struct {
	// Cache selects the response cache: "" or "file" for the user cache
	// directory, "file:<dir>", "none", a redis:// URL or a mongodb:// URI.
	Cache    string        `toml:"cache"`
	CacheTTL time.Duration `toml:"-"`
	Workers  int           `toml:"workers"`
	MaxDepth int           `toml:"max_depth"`
	MaxNodes int           `toml:"max_nodes"`
	IndexURL string        `toml:"index_url"`

	// Envs maps environment names to conversions.
	Envs map[string]Env `toml:"-"`

	// Path is the file the settings were read from, if any.
	Path string `toml:"-"`
}

// settings mirrors the scalar keys for decoding.
type settings struct {
	Cache    string `toml:"cache"`
	CacheTTL string `toml:"cache_ttl"`
	Workers  int    `toml:"workers"`
	MaxDepth int    `toml:"max_depth"`
	MaxNodes int    `toml:"max_nodes"`
	IndexURL string `toml:"index_url"`
}

var scalarKeys = []string{"cache", "cache_ttl", "workers", "max_depth", "max_nodes", "index_url"}

// Load reads settings from dir and applies environment overrides. A
// directory without a config file yields defaults.
func Load(dir string) (*Config, error) {
	cfg := &Config{}
	for _, name := range []string{StandaloneFile, PyProjectFile} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		parsed, found, err := Parse(string(data), name == PyProjectFile)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if !found {
			continue
		}
		cfg = parsed
		cfg.Path = path
		break
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg.WithDefaults(), nil
}

// Parse decodes settings from TOML. With pyproject set, only the
// [tool.dephell] table is read and found reports whether it exists.
func Parse(content string, pyproject bool) (cfg *Config, found bool, err error) {
	var section toml.Primitive
	var md toml.MetaData
	if pyproject {
		var doc struct {
			Tool struct {
				Dephell toml.Primitive `toml:"dephell"`
			} `toml:"tool"`
		}
		md, err = toml.Decode(content, &doc)
		if err != nil {
			return nil, false, err
		}
		if !md.IsDefined("tool", "dephell") {
			return &Config{}, false, nil
		}
		section = doc.Tool.Dephell
	} else {
		var doc map[string]toml.Primitive
		md, err = toml.Decode(content, &doc)
		if err != nil {
			return nil, false, err
		}
		cfg, err = decode(md, doc)
		return cfg, true, err
	}

	var tables map[string]toml.Primitive
	if err := md.PrimitiveDecode(section, &tables); err != nil {
		return nil, false, err
	}
	cfg, err = decode(md, tables)
	return cfg, true, err
}

func decode(md toml.MetaData, tables map[string]toml.Primitive) (*Config, error) {
	var s settings
	cfg := &Config{Envs: make(map[string]Env)}
	for key, prim := range tables {
		if slices.Contains(scalarKeys, key) {
			continue
		}
		var env Env
		if err := md.PrimitiveDecode(prim, &env); err != nil {
			return nil, fmt.Errorf("environment %q: %w", key, err)
		}
		cfg.Envs[key] = env
	}
	for _, key := range scalarKeys {
		prim, ok := tables[key]
		if !ok {
			continue
		}
		var err error
		switch key {
		case "cache":
			err = md.PrimitiveDecode(prim, &s.Cache)
		case "cache_ttl":
			err = md.PrimitiveDecode(prim, &s.CacheTTL)
		case "workers":
			err = md.PrimitiveDecode(prim, &s.Workers)
		case "max_depth":
			err = md.PrimitiveDecode(prim, &s.MaxDepth)
		case "max_nodes":
			err = md.PrimitiveDecode(prim, &s.MaxNodes)
		case "index_url":
			err = md.PrimitiveDecode(prim, &s.IndexURL)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}

	cfg.Cache = s.Cache
	cfg.Workers = s.Workers
	cfg.MaxDepth = s.MaxDepth
	cfg.MaxNodes = s.MaxNodes
	cfg.IndexURL = s.IndexURL
	if s.CacheTTL != "" {
		ttl, err := time.ParseDuration(s.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("cache_ttl: %w", err)
		}
		cfg.CacheTTL = ttl
	}
	return cfg, nil
}

// ApplyEnv overrides settings from DEPHELL_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("DEPHELL_CACHE"); v != "" {
		c.Cache = v
	}
	if v := getenv("DEPHELL_INDEX_URL"); v != "" {
		c.IndexURL = v
	}
	if v := getenv("DEPHELL_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DEPHELL_CACHE_TTL: %w", err)
		}
		c.CacheTTL = ttl
	}
	for name, dst := range map[string]*int{
		"DEPHELL_WORKERS":   &c.Workers,
		"DEPHELL_MAX_DEPTH": &c.MaxDepth,
		"DEPHELL_MAX_NODES": &c.MaxNodes,
	} {
		v := getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (c *Config) WithDefaults() *Config {
	out := *c
	if out.IndexURL == "" {
		out.IndexURL = pypi.DefaultIndexURL
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = pypi.DefaultTTL
	}
	opts := out.ResolverOptions(nil)
	out.Workers, out.MaxDepth, out.MaxNodes = opts.Workers, opts.MaxDepth, opts.MaxNodes
	if out.Envs == nil {
		out.Envs = make(map[string]Env)
	}
	return &out
}

// ResolverOptions returns resolver options for these settings.
func (c *Config) ResolverOptions(logger func(string, ...any)) resolver.Options {
	return resolver.Options{
		Workers:  c.Workers,
		MaxDepth: c.MaxDepth,
		MaxNodes: c.MaxNodes,
		Logger:   logger,
	}.WithDefaults()
}

// Env returns a named environment.
func (c *Config) Env(name string) (Env, error) {
	env, ok := c.Envs[name]
	if !ok {
		return Env{}, fmt.Errorf("%w %q", ErrUnknownEnv, name)
	}
	return env, nil
}

// EnvNames returns the defined environment names, sorted.
func (c *Config) EnvNames() []string {
	names := make([]string, 0, len(c.Envs))
	for name := range c.Envs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
