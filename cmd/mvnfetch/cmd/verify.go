package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/mvnfetch/internal/engine"
)

var verifyCacheDir string

var verifyCmd = &cobra.Command{
	Use:   "verify [artifact...]",
	Short: "Re-hash cached artifacts against their digests",
	Long: `Hashes every cached jar and compares it with the SHA-1 declared in the config
and the SHA-1 recorded in the lockfile. Does NOT download anything. Exit 0 if
every jar is present and matches; exit non-zero otherwise.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		lf, err := loadLockfile()
		if err != nil {
			return err
		}

		c, err := newCache(cfg, verifyCacheDir)
		if err != nil {
			return err
		}

		eng := &engine.VerifyEngine{Cache: c}
		result, err := eng.Verify(commandContext(cmd), *lf, *cfg, args)
		if err != nil {
			return err
		}

		for _, e := range result.OK {
			info("  ✓ %-40s  ok", e.Artifact)
			detail("sha1 %s", e.Actual)
		}
		for _, e := range result.Missing {
			info("  ✗ %-40s  missing (%s)", e.Artifact, relPath(e.Path))
		}
		for _, e := range result.Mismatched {
			info("  ✗ %-40s  mismatch: expected %s, got %s", e.Artifact, e.Expected, e.Actual)
		}
		for _, e := range result.Errors {
			errorf("%s: %s", e.Artifact, e.Err)
		}

		if !result.Clean() {
			return fmt.Errorf("%d artifact(s) failed verification", len(result.Missing)+len(result.Mismatched)+len(result.Errors))
		}

		info("\nAll artifacts verified.")
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyCacheDir, "cache-dir", "", "cache directory (overrides config)")
	rootCmd.AddCommand(verifyCmd)
}
