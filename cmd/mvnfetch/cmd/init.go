package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/mvnfetch/internal/sandbox"
)

var initForce bool

// initTemplate is the default mvnfetch.yaml scaffold.
// It includes a working Maven Central artifact and commented-out alternatives.
const initTemplate = `# mvnfetch configuration
# Docs: https://github.com/bianoble/mvnfetch
version: 1

# cache_dir: .mvnfetch/cache   # default: ~/.cache/mvnfetch
# layout: maven                # maven (group/artifact/version/) or flat
# timeout: 5s                  # connect and idle-read timeout
# concurrency: 4               # artifacts fetched at once
# defaults: true               # search Maven Central and Maven Snapshots last

repositories:
  # Searched in order, before the defaults.
  # - name: company
  #   url: https://repo.example.com/maven2/
  # - name: vendored
  #   path: ./third_party/m2

artifacts:
  - group: com.google.code.gson
    artifact: gson
    version: 2.8.6
    sha1: 9180733b7df8542621dc12e21e87557e8c99b8cb

  # Snapshot versions resolve to the latest timestamped jar.
  # - group: com.example
  #   artifact: library
  #   version: 1.0-SNAPSHOT

  # Direct download, repositories are not searched.
  # - group: com.example
  #   artifact: tool
  #   version: 2.1
  #   url: https://downloads.example.com/tool-2.1.jar

# Rewrite package prefixes into lib_dir after fetching.
# lib_dir: lib
# relocator:
#   command: java -jar jarjar.jar process {input} {output}
#   rule_flag: --rule
# relocations:
#   - pattern: com.google.gson
#     replacement: shaded.com.google.gson
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter mvnfetch.yaml configuration",
	Long: `Creates a mvnfetch.yaml file in the current directory with a well-commented
template including a Maven Central artifact and documented alternatives for
snapshots, direct downloads, extra repositories and relocation.

Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := sandbox.SafeWrite(filepath.Dir(outPath), filepath.Base(outPath), []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Edit the file to list your artifacts")
		info("  2. Run 'mvnfetch fetch' to download and lock them")
		info("  3. Run 'mvnfetch verify' to re-check the cache later")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
