package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/mvnfetch/internal/artifact"
	"github.com/bianoble/mvnfetch/internal/config"
	"github.com/bianoble/mvnfetch/internal/engine"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about mvnfetch configuration and cache",
	Long: `Displays the mvnfetch version, configuration chain and lockfile path, cache
directory, layout and size, and the repositories in search order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		hr, _ := loadConfigHierarchical() // ok if config doesn't exist
		var cfg *config.Config
		var layers []config.ConfigLayerInfo
		if hr != nil {
			cfg = hr.Config
			layers = hr.Layers
		}
		c, _ := newCache(cfg, "")

		var repos []artifact.Repository
		if cfg != nil {
			var err error
			if repos, err = repositories(cfg); err != nil {
				return err
			}
		}

		result, err := engine.Info(version, cfg, c, repos, layers, configPath, lockfilePath)
		if err != nil {
			return err
		}

		fmt.Printf("mvnfetch %s\n", result.Version)

		if len(result.ConfigChain) > 1 {
			fmt.Println("  config chain:")
			for _, layer := range result.ConfigChain {
				status := "not found"
				if layer.Loaded {
					status = "loaded"
				}
				fmt.Printf("    %-10s %s (%s)\n", layer.Level+":", layer.Path, status)
			}
		} else {
			fmt.Printf("  config:        %s\n", result.ConfigPath)
		}

		fmt.Printf("  lockfile:      %s\n", result.LockPath)
		fmt.Printf("  cache dir:     %s\n", result.CacheDir)
		fmt.Printf("  cache layout:  %s\n", result.Layout)
		fmt.Printf("  cache size:    %s\n", humanSize(result.CacheSize))
		fmt.Printf("  artifacts:     %d\n", result.Artifacts)

		if len(result.Repositories) > 0 {
			fmt.Println("\nRepositories (search order):")
			for i, r := range result.Repositories {
				kind := "remote"
				if r.Local {
					kind = "local"
				}
				name := r.Name
				if name == "" {
					name = "-"
				}
				fmt.Printf("  %d. %-20s %-6s %s\n", i+1, name, kind, r.Location)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
