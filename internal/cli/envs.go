package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// envsCommand lists the environments of the config file.
func (c *CLI) envsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "envs",
		Short: "List the environments defined in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.settings()
			if err != nil {
				return err
			}
			names := cfg.EnvNames()
			if len(names) == 0 {
				printInfo("No environments defined")
				if cfg.Path == "" {
					printDetail("No dephell.toml or [tool.dephell] table in %s", c.flags.dir)
				}
				return nil
			}
			w := cmd.OutOrStdout()
			for _, name := range names {
				env, _ := cfg.Env(name)
				fmt.Fprintf(w, "%s\t%s %s %s\n", name, endpointString(env.From), iconArrow, endpointString(env.To))
			}
			return nil
		},
	}
}
