// Package cli implements the dephell command-line interface.
//
// Every command works on endpoints written as "format:path" or a bare path
// whose format is detected from the file name. A path of "-" reads stdin
// or writes stdout and needs an explicit format:
//
//	dephell convert --from setup.py --to pip:requirements.txt
//	dephell lock --from pyproject.toml --to piplock:-
//	dephell deps tree --from poetry.lock
//
// Settings come from dephell.toml or [tool.dephell] in pyproject.toml (see
// internal/config); the persistent flags override them.
package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ko3luhbka/dephell/internal/config"
	"github.com/ko3luhbka/dephell/pkg/buildinfo"
	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/converters/all"
	derrors "github.com/ko3luhbka/dephell/pkg/errors"
	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/resolver"
)

const appName = "dephell"

// stdio marks an endpoint read from stdin or written to stdout.
const stdio = "-"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger   *log.Logger
	Registry *converters.Registry

	// Source replaces the configured metadata source when set.
	Source resolver.Source

	flags globalFlags
}

type globalFlags struct {
	dir      string
	cache    string
	indexURL string
	workers  int
	refresh  bool
}

// New creates a new CLI instance with a default logger and every format
// registered.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:   newLogger(w, level),
		Registry: all.Registry(),
		flags:    globalFlags{dir: "."},
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Dephell converts and resolves Python project dependencies",
		Long:         `Dephell reads dependencies from setup.py, requirements.txt, pyproject.toml, poetry.lock, environment.yml and go.mod, converts between those formats and resolves them into a locked set.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.dir, "config-dir", "C", ".", "directory holding dephell.toml or pyproject.toml")
	pf.StringVar(&c.flags.cache, "cache", "", `response cache: "file", "file:<dir>", "none", redis:// or mongodb:// URL`)
	pf.StringVar(&c.flags.indexURL, "index-url", "", "package index JSON API base URL")
	pf.IntVar(&c.flags.workers, "workers", 0, "concurrent metadata fetches")
	pf.BoolVar(&c.flags.refresh, "refresh", false, "ignore cached index responses")

	root.AddCommand(c.convertCommand())
	root.AddCommand(c.lockCommand())
	root.AddCommand(c.depsCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.discoverCommand())
	root.AddCommand(c.envsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Settings
// =============================================================================

// settings loads the config file and applies the persistent flags.
func (c *CLI) settings() (*config.Config, error) {
	cfg, err := config.Load(c.flags.dir)
	if err != nil {
		return nil, err
	}
	if c.flags.cache != "" {
		cfg.Cache = c.flags.cache
	}
	if c.flags.indexURL != "" {
		cfg.IndexURL = c.flags.indexURL
	}
	if c.flags.workers > 0 {
		cfg.Workers = c.flags.workers
	}
	return cfg, nil
}

// source returns the metadata source and a function releasing its cache.
func (c *CLI) source(ctx context.Context, cfg *config.Config) (resolver.Source, func(), error) {
	if c.Source != nil {
		return c.Source, func() {}, nil
	}
	backend, err := cfg.OpenCache(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	src, err := cfg.NewSource(backend, c.Registry, c.flags.dir, c.flags.refresh)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return src, func() { backend.Close() }, nil
}

// resolverOptions routes resolver progress to the debug log.
func (c *CLI) resolverOptions(ctx context.Context, cfg *config.Config) resolver.Options {
	return cfg.ResolverOptions(loggerFromContext(ctx).Debugf)
}

// =============================================================================
// Endpoints
// =============================================================================

// parseEndpoint splits "format:path". The prefix only counts as a format
// when the registry knows it, so Windows drive letters and plain paths
// with colons pass through.
func (c *CLI) parseEndpoint(s string) config.Endpoint {
	if format, path, ok := strings.Cut(s, ":"); ok {
		if _, err := c.Registry.Get(format); err == nil {
			return config.Endpoint{Format: format, Path: path}
		}
	}
	return config.Endpoint{Path: s}
}

// converter picks the endpoint's converter: by name, or by file name.
func (c *CLI) converter(ep config.Endpoint) (converters.Converter, error) {
	if ep.Format != "" {
		return c.Registry.Get(ep.Format)
	}
	if ep.Path == "" || ep.Path == stdio {
		return nil, fmt.Errorf("%w: a format is required to read or write %q", converters.ErrUnknownFormat, ep.Path)
	}
	return c.Registry.Detect(ep.Path)
}

// endpoints resolves --from/--to against an optional --env from the config
// file. Flags win over the environment.
func (c *CLI) endpoints(cfg *config.Config, env, from, to string) (config.Endpoint, config.Endpoint, error) {
	var src, dst config.Endpoint
	if env != "" {
		e, err := cfg.Env(env)
		if err != nil {
			return src, dst, derrors.Wrap(derrors.ErrCodeInvalidInput, err, "environment %q", env)
		}
		src, dst = e.From, e.To
	}
	if from != "" {
		src = c.parseEndpoint(from)
	}
	if to != "" {
		dst = c.parseEndpoint(to)
	}
	if src.Path == "" {
		return src, dst, derrors.New(derrors.ErrCodeInvalidInput, "no input: pass --from or --env")
	}
	return src, dst, nil
}

// endpointString formats ep the way --from and --to accept it.
func endpointString(ep config.Endpoint) string {
	path := ep.Path
	if path == "" {
		path = stdio
	}
	if ep.Format == "" {
		return path
	}
	return ep.Format + ":" + path
}

// load reads a project from an endpoint.
func (c *CLI) load(cmd *cobra.Command, ep config.Endpoint) (converters.Converter, *models.Project, error) {
	conv, err := c.converter(ep)
	if err != nil {
		return nil, nil, err
	}
	if ep.Path == stdio {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, nil, err
		}
		p, err := converters.Loads(cmd.Context(), conv, string(data))
		return conv, p, err
	}
	p, err := converters.Load(cmd.Context(), conv, c.path(ep.Path))
	return conv, p, err
}

// dump writes reqs to an endpoint; an empty path or "-" means stdout.
func (c *CLI) dump(cmd *cobra.Command, ep config.Endpoint, reqs []models.Requirement, p *models.Project) error {
	conv, err := c.converter(ep)
	if err != nil {
		return err
	}
	if ep.Path == "" || ep.Path == stdio {
		out, err := converters.Dumps(cmd.Context(), conv, reqs, p)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}
	path := c.path(ep.Path)
	if err := converters.Dump(cmd.Context(), conv, path, reqs, p); err != nil {
		return err
	}
	printSuccess("Wrote %s (%s)", path, conv.Name())
	return nil
}

// path resolves a relative endpoint path against the config directory.
func (c *CLI) path(p string) string {
	if filepath.IsAbs(p) || c.flags.dir == "" || c.flags.dir == "." {
		return p
	}
	return filepath.Join(c.flags.dir, p)
}

// =============================================================================
// Output
// =============================================================================

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == stdio {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := converters.WriteFile(path, data); err != nil {
		return err
	}
	printFile(path)
	return nil
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
			return err
		},
	}
}

// ExitCode maps a command error to the process exit status: 0 on success,
// 2 for bad input, 3 for resolution failures, 1 otherwise.
func ExitCode(err error) int {
	return derrors.ExitCode(derrors.Classify(err))
}
