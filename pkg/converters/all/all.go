// Package all provides the registry of every supported project-file format.
//
// This package exists to break import cycles: the format packages (setuppy,
// pip, etc.) import pkg/converters, so pkg/converters cannot import them back.
// Consumers that need the full format list import this package instead.
//
// Usage:
//
//	import "github.com/ko3luhbka/dephell/pkg/converters/all"
//
//	c, err := all.Registry().Detect("poetry.lock")
package all

import (
	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/converters/conda"
	"github.com/ko3luhbka/dephell/pkg/converters/gomod"
	"github.com/ko3luhbka/dephell/pkg/converters/pip"
	"github.com/ko3luhbka/dephell/pkg/converters/poetrylock"
	"github.com/ko3luhbka/dephell/pkg/converters/pyproject"
	"github.com/ko3luhbka/dephell/pkg/converters/setuppy"
)

// Registry returns a new registry holding every format with its aliases.
// Lock formats are registered before the formats whose file names they
// share a pattern with, so Detect prefers them.
func Registry() *converters.Registry {
	r := converters.NewRegistry()
	r.Register(pip.Converter{Locked: true}, "requirements.lock")
	r.Register(pip.Converter{}, "requirements", "requirements.txt")
	r.Register(setuppy.Converter{}, "setup.py", "setuptools")
	r.Register(poetrylock.Converter{}, "poetry.lock")
	r.Register(pyproject.Converter{}, "poetry", "pyproject.toml")
	r.Register(conda.Converter{}, "environment.yml", "environment.yaml")
	r.Register(gomod.Converter{}, "go.mod")
	return r
}

// Find returns the converter registered under name or alias, or nil.
func Find(name string) converters.Converter {
	c, err := Registry().Get(name)
	if err != nil {
		return nil
	}
	return c
}
