package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/bianoble/mvnfetch/internal/config"
	"github.com/bianoble/mvnfetch/internal/lock"
	"github.com/bianoble/mvnfetch/internal/relocate"
	"github.com/bianoble/mvnfetch/internal/sandbox"
	"github.com/bianoble/mvnfetch/pkg/mvnfetch"
)

var fetchOpts fetchFlags

var fetchCmd = &cobra.Command{
	Use:   "fetch [artifact...]",
	Short: "Download configured artifacts into the cache",
	Long: `Resolves each configured artifact against the repositories in order and
downloads its jar into the cache, verifying its SHA-1 when one is declared.
Cached jars are reused. Snapshot versions reuse the timestamped jar recorded
in the lockfile; use 'update' to look for a newer one.

The lockfile is rewritten with the outcome of every fetched artifact. When
relocations and a relocator command are configured, each jar is relocated
into lib_dir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(commandContext(cmd), args, fetchOpts, false)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [artifact...]",
	Short: "Fetch artifacts, resolving snapshots again",
	Long: `Like fetch, but snapshot versions are resolved against the repositories'
maven-metadata.xml again instead of reusing the locked timestamped jar.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(commandContext(cmd), args, fetchOpts, true)
	},
}

func runFetch(ctx context.Context, args []string, flags fetchFlags, refresh bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lf, err := loadLockfile()
	if err != nil {
		return err
	}
	selected, err := selectArtifacts(cfg, args)
	if err != nil {
		return err
	}

	r, err := newResolver(cfg, flags)
	if err != nil {
		return err
	}
	for _, ca := range selected {
		a, err := ca.Resolve()
		if err != nil {
			return err
		}
		if la, ok := lf.Find(ca.Key()); ok && !refresh && a.IsSnapshot() &&
			la.Status == lock.StatusOK && la.Version == ca.Version && la.Name != "" {
			a.SetName(la.Name)
		}
		if err := r.AddArtifact(a); err != nil {
			return err
		}
	}

	detail("cache: %s", r.CacheDir())
	for _, repo := range r.Repositories() {
		detail("repository: %s", repo)
	}

	artifacts := r.Artifacts()
	results, fetchErr := r.Resolve(ctx)

	for i, res := range results {
		if res == nil {
			continue
		}
		switch {
		case res.Cached:
			info("  = %-40s  cached", artifacts[i].String())
		default:
			info("  ✓ %-40s  %s (%s)", artifacts[i].String(), res.Repository, humanSize(res.Size))
		}
		detail("%s", relPath(res.Path))
	}
	printFetchErrors(fetchErr)

	if err := lock.Update(ctx, lockfilePath, func(lf *lock.Lockfile) error {
		recordResults(lf, artifacts, results)
		return nil
	}); err != nil {
		return fmt.Errorf("saving lockfile: %w", err)
	}

	var relocErr error
	if len(cfg.Relocations) > 0 && cfg.Relocator.Command != "" {
		relocErr = relocateResults(ctx, cfg, results, flags.force || cfg.ForceEnabled())
	}

	if fetchErr != nil {
		var me *multierror.Error
		if errors.As(fetchErr, &me) {
			return fmt.Errorf("%d artifact(s) failed", len(me.Errors))
		}
		return fetchErr
	}
	return relocErr
}

func printFetchErrors(err error) {
	if err == nil {
		return
	}
	var me *multierror.Error
	if !errors.As(err, &me) {
		errorf("%s", err)
		return
	}
	for _, e := range me.Errors {
		var hm *mvnfetch.HashMismatchError
		if errors.As(e, &hm) {
			errorf("%s: hash mismatch for %s (expected %s, got %s)", hm.Artifact, relPath(hm.Path), hm.Expected, hm.Actual)
			continue
		}
		errorf("%s", e)
	}
}

// recordResults updates lf with the outcome of a fetch. A cache hit keeps
// the provenance already recorded.
func recordResults(lf *lock.Lockfile, artifacts []*mvnfetch.Artifact, results []*mvnfetch.Result) {
	for i, a := range artifacts {
		prev, hadPrev := lf.Find(a.Key())
		la := lock.LockedArtifact{
			Group:    a.GroupID(),
			Artifact: a.ArtifactID(),
			Version:  a.Version(),
			Status:   lock.StatusFailed,
		}

		res := results[i]
		if res == nil {
			if hadPrev && prev.Version == a.Version() {
				la = prev
				la.Status = lock.StatusFailed
			}
			lf.Upsert(la)
			continue
		}

		la.Name = res.Name
		la.Path = filepath.ToSlash(res.RelPath)
		la.SHA1 = res.SHA1
		la.Repository = res.Repository
		la.Status = lock.StatusOK
		if res.Cached && hadPrev && prev.Version == a.Version() {
			la.Repository = prev.Repository
		}
		lf.Upsert(la)
	}
}

// relocateResults rewrites every fetched jar into lib_dir, keeping the
// cache-relative path.
func relocateResults(ctx context.Context, cfg *config.Config, results []*mvnfetch.Result, force bool) error {
	rules := make([]relocate.Rule, 0, len(cfg.Relocations))
	for _, rl := range cfg.Relocations {
		rules = append(rules, relocate.Rule{Pattern: rl.Pattern, Replacement: rl.Replacement})
	}
	rel := &relocate.ExecRelocator{
		Command:  cfg.Relocator.Command,
		RuleFlag: cfg.Relocator.RuleFlag,
		Force:    force,
		Logger:   logger,
	}

	dir := libDir(cfg)
	var errs *multierror.Error
	for _, res := range results {
		if res == nil {
			continue
		}
		out, err := sandbox.ValidatePath(dir, res.RelPath)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if err := rel.Relocate(ctx, res.Path, out, rules); err != nil {
			errorf("%s: %s", res.Artifact, err)
			errs = multierror.Append(errs, err)
			continue
		}
		detail("relocated %s", relPath(out))
	}
	if errs != nil {
		return fmt.Errorf("%d artifact(s) failed to relocate", len(errs.Errors))
	}
	return nil
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&fetchOpts.force, "force", false, "re-download artifacts that are already cached")
	cmd.Flags().BoolVar(&fetchOpts.skipHash, "skip-hash", false, "do not verify SHA-1 digests")
	cmd.Flags().BoolVar(&fetchOpts.flat, "flat", false, "store jars directly under the cache directory")
	cmd.Flags().IntVar(&fetchOpts.jobs, "jobs", 0, "number of artifacts fetched concurrently")
	cmd.Flags().StringVar(&fetchOpts.cacheDir, "cache-dir", "", "cache directory (overrides config)")
}

func init() {
	addFetchFlags(fetchCmd)
	addFetchFlags(updateCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(updateCmd)
}
