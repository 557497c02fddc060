package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ko3luhbka/dephell/pkg/cache"
	derrors "github.com/ko3luhbka/dephell/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the package index response cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// fileCache opens the configured cache and requires it to be file-backed.
func (c *CLI) fileCache(cmd *cobra.Command) (*cache.FileCache, error) {
	cfg, err := c.settings()
	if err != nil {
		return nil, err
	}
	backend, err := cfg.OpenCache(cmd.Context())
	if err != nil {
		return nil, err
	}
	fc, ok := backend.(*cache.FileCache)
	if !ok {
		backend.Close()
		return nil, derrors.New(derrors.ErrCodeUnsupported, "cache %q is not a file cache", cfg.Cache)
	}
	return fc, nil
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache(cmd)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return fmt.Errorf("clear %s: %w", fc.Dir(), err)
			}
			if count == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.fileCache(cmd)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), fc.Dir())
			return err
		},
	}
}
