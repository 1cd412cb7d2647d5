package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cleanDryRun   bool
	cleanCacheDir string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove everything from the cache directory",
	Long: `Deletes every downloaded jar and snapshot metadata file from the cache
directory. The lockfile is left untouched; the next fetch downloads again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// A broken or missing config still allows wiping the default cache.
		cfg, err := loadConfig()
		if err != nil {
			logger.Debug().Err(err).Msg("cleaning without config")
		}

		c, err := newCache(cfg, cleanCacheDir)
		if err != nil {
			return err
		}

		if cleanDryRun {
			size, err := c.Size()
			if err != nil {
				return err
			}
			info("Would remove %s from %s", humanSize(size), c.Path())
			return nil
		}

		freed, err := c.Clean()
		if err != nil {
			return err
		}
		info("Removed %s from %s", humanSize(freed), c.Path())
		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "show what would be removed")
	cleanCmd.Flags().StringVar(&cleanCacheDir, "cache-dir", "", "cache directory (overrides config)")
	rootCmd.AddCommand(cleanCmd)
}
