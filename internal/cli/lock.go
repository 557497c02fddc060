package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/ko3luhbka/dephell/internal/config"
	"github.com/ko3luhbka/dephell/pkg/converters"
	"github.com/ko3luhbka/dephell/pkg/models"
	"github.com/ko3luhbka/dephell/pkg/resolver"
)

// lockCommand creates the lock command.
func (c *CLI) lockCommand() *cobra.Command {
	var (
		flags    endpointFlags
		unpinned bool
	)

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Resolve dependencies and write a lock file",
		Long: `Lock resolves the transitive dependencies of a project against the package index
and writes every package pinned to its chosen version, with hashes when the
output format stores them.

Resolution stops at the first round that finds a conflict; every conflicting
package is reported with the dependents that asked for it.`,
		Example: `  dephell lock --from pyproject.toml --to poetry.lock
  dephell lock --from requirements.txt --to piplock:requirements.lock
  dephell lock --from setup.py --unpinned`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.settings()
			if err != nil {
				return err
			}
			from, to, err := c.endpoints(cfg, flags.env, flags.from, flags.to)
			if err != nil {
				return err
			}
			if to.Format == "" && to.Path == "" {
				to.Format = "piplock"
			}

			spinner := newSpinner(cmd.Context(), "Resolving dependencies...")
			spinner.Start()
			prog := newProgress(loggerFromContext(cmd.Context()))
			r, release, err := c.resolver(cmd, cfg, from)
			if release != nil {
				defer release()
			}
			var reqs []models.Requirement
			if err == nil {
				reqs, err = r.Flatten(!unpinned)
			}
			if err != nil {
				spinner.StopWithError("Resolution failed")
				printResolveFailure(err)
				return err
			}
			spinner.Stop()
			prog.done("resolved %d packages", len(reqs))

			return c.dump(cmd, to, reqs, r.Project())
		},
	}

	flags.register(cmd, `output as "format:path", "format:-" or a path (default: piplock to stdout)`)
	cmd.Flags().BoolVar(&unpinned, "unpinned", false, "write merged constraints instead of pinned versions")
	return cmd
}

// resolver loads a project and builds its dependency graph. When the build
// fails the resolver is still returned with the error, so the partial graph
// can be shown. The returned function releases the metadata cache and is
// nil only when no resolver was created.
func (c *CLI) resolver(cmd *cobra.Command, cfg *config.Config, from config.Endpoint) (*resolver.Resolver, func(), error) {
	conv, err := c.converter(from)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	src, release, err := c.source(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	opts := c.resolverOptions(ctx, cfg)

	var r *resolver.Resolver
	if from.Path == stdio {
		var data []byte
		if data, err = io.ReadAll(cmd.InOrStdin()); err == nil {
			r, err = converters.LoadsResolver(ctx, conv, string(data), src, opts)
		}
	} else {
		r, err = converters.LoadResolver(ctx, conv, c.path(from.Path), src, opts)
	}
	if r == nil {
		release()
		return nil, nil, err
	}
	return r, release, err
}
