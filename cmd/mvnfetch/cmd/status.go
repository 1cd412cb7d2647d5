package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/mvnfetch/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status [artifact...]",
	Short: "Show the cache state of configured artifacts",
	Long: `Shows artifact, version, resolved file name, the repository it was fetched
from and its state (cached, missing, pending) for all or named artifacts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		lf, err := loadLockfile()
		if err != nil {
			return err
		}

		c, err := newCache(cfg, "")
		if err != nil {
			return err
		}

		eng := &engine.StatusEngine{Cache: c}
		statuses, err := eng.Status(commandContext(cmd), *lf, *cfg, args)
		if err != nil {
			return err
		}

		if len(statuses) == 0 {
			info("No artifacts configured.")
			return nil
		}

		fmt.Printf("%-36s %-16s %-34s %-18s %s\n", "ARTIFACT", "VERSION", "NAME", "REPOSITORY", "STATE")
		for _, s := range statuses {
			name := s.Name
			if name == "" {
				name = "-"
			}
			repo := s.Repository
			if repo == "" {
				repo = "-"
			}
			if len(repo) > 18 {
				repo = repo[:15] + "..."
			}
			fmt.Printf("%-36s %-16s %-34s %-18s %s\n", s.Key, s.Version, name, repo, s.State)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
