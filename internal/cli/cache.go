package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/procflow/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout and render cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached layouts and artifacts",
		Long: `Remove all cached layouts and artifacts.

For the file backend this empties the cache directory. For redis only keys
written by procflow are removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Cache.Backend == config.BackendNone {
				printInfo("Caching is disabled")
				return nil
			}
			cc, err := c.newCache(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer cc.Close()

			if err := cc.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cache cleared")
			printDetail("%s", c.cacheDescription(false))
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch c.cfg.Cache.Backend {
			case config.BackendRedis:
				fmt.Println("redis://" + c.cfg.Cache.RedisAddr)
			case config.BackendNone:
				return fmt.Errorf("caching is disabled")
			default:
				dir, err := c.cfg.CacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				fmt.Println(dir)
			}
			return nil
		},
	}
}

// cacheDescription names the active backend for status output.
func (c *CLI) cacheDescription(noCache bool) string {
	if noCache {
		return "disabled"
	}
	switch c.cfg.Cache.Backend {
	case config.BackendNone:
		return "disabled"
	case config.BackendRedis:
		return "redis " + c.cfg.Cache.RedisAddr
	}
	dir, err := c.cfg.CacheDir()
	if err != nil {
		return "disabled"
	}
	return "file " + dir
}
