package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath   string
	lockfilePath string
	verbose      bool
	quiet        bool
)

// logger is configured from the global flags before any command runs.
var logger = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "mvnfetch",
	Short: "Fetch Maven artifacts into a local cache",
	Long: `mvnfetch resolves the artifacts named in mvnfetch.yaml against an ordered
list of Maven repositories, downloads their jars into a local cache, verifies
their SHA-1 digests and records what was fetched in a lockfile. Snapshot
versions are resolved to their latest timestamped jar.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mvnfetch %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mvnfetch.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&lockfilePath, "lockfile", "mvnfetch.lock", "path to lockfile")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")

	rootCmd.AddCommand(versionCmd)
}

// newLogger writes human-readable logs to stderr at the level chosen by
// --verbose and --quiet.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case quiet:
		level = zerolog.ErrorLevel
	case verbose:
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
