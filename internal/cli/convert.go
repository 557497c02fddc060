package cli

import (
	"github.com/spf13/cobra"
)

type endpointFlags struct {
	env  string
	from string
	to   string
}

func (f *endpointFlags) register(cmd *cobra.Command, toUsage string) {
	cmd.Flags().StringVarP(&f.env, "env", "e", "", "environment from the config file")
	cmd.Flags().StringVarP(&f.from, "from", "f", "", `input as "format:path" or a path`)
	if toUsage != "" {
		cmd.Flags().StringVarP(&f.to, "to", "t", "", toUsage)
	}
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	var flags endpointFlags

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert dependencies between project file formats",
		Long: `Convert reads the dependencies of one project file and writes them in another format.

Nothing is resolved: constraints, links, extras and markers are carried as written.`,
		Example: `  dephell convert --from setup.py --to pip:requirements.txt
  dephell convert --from poetry:pyproject.toml --to conda:-
  dephell convert --env main`,
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
				to.Format = "pip"
			}

			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)
			_, project, err := c.load(cmd, from)
			if err != nil {
				return err
			}
			logger.Debug("loaded project", "name", project.Name, "dependencies", len(project.Dependencies))

			if err := c.dump(cmd, to, project.Dependencies, project); err != nil {
				return err
			}
			prog.done("converted %d dependencies", len(project.Dependencies))
			return nil
		},
	}

	flags.register(cmd, `output as "format:path", "format:-" or a path (default: pip to stdout)`)
	return cmd
}
