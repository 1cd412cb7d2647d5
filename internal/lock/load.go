package lock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// lockTimeout bounds how long Save and Update wait for another process.
const lockTimeout = 30 * time.Second

// Load reads and validates a mvnfetch.lock file.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lockfile %s: %w", path, err)
	}

	var lf Lockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing lockfile %s: %w", path, err)
	}

	if errs := Validate(&lf); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &lf, nil
}

// LoadOrEmpty reads the lockfile, returning an empty one if it does not exist.
func LoadOrEmpty(path string) (*Lockfile, error) {
	lf, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Lockfile{Version: 1}, nil
	}
	return lf, err
}

// Save writes a lockfile atomically while holding an advisory lock on
// path + ".lk".
func Save(ctx context.Context, path string, lf *Lockfile) error {
	unlock, err := acquire(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()
	return write(path, lf)
}

// Update loads the lockfile (empty if missing), applies fn and saves the
// result, all under the advisory lock. Nothing is written if fn fails.
func Update(ctx context.Context, path string, fn func(*Lockfile) error) error {
	unlock, err := acquire(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	lf, err := LoadOrEmpty(path)
	if err != nil {
		return err
	}
	if err := fn(lf); err != nil {
		return err
	}
	return write(path, lf)
}

func acquire(ctx context.Context, path string) (func(), error) {
	fileLock := flock.New(path + ".lk")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("locking %s: lock is held by another process", path)
	}
	return func() { _ = fileLock.Unlock() }, nil
}

// write replaces the lockfile atomically using a temp file and rename.
func write(path string, lf *Lockfile) error {
	if lf.Version == 0 {
		lf.Version = 1
	}
	lf.sort()

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lockfile: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp lockfile %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp lockfile to %s: %w", path, err)
	}
	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lockfile validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Lockfile for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(lf *Lockfile) []string {
	var errs []string

	if lf.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", lf.Version))
	}

	keys := make(map[string]bool)
	for i, la := range lf.Artifacts {
		prefix := fmt.Sprintf("locked_artifact[%d]", i)
		if la.Group != "" && la.Artifact != "" {
			prefix = fmt.Sprintf("locked artifact '%s'", la.Key())
			if keys[la.Key()] {
				errs = append(errs, fmt.Sprintf("%s: duplicate artifact", prefix))
			}
			keys[la.Key()] = true
		}

		if la.Group == "" {
			errs = append(errs, fmt.Sprintf("%s: 'group' is required", prefix))
		}
		if la.Artifact == "" {
			errs = append(errs, fmt.Sprintf("%s: 'artifact' is required", prefix))
		}
		if la.Version == "" {
			errs = append(errs, fmt.Sprintf("%s: 'version' is required", prefix))
		}
		switch la.Status {
		case StatusOK, StatusFailed:
		case "":
			errs = append(errs, fmt.Sprintf("%s: 'status' is required", prefix))
		default:
			errs = append(errs, fmt.Sprintf("%s: invalid status '%s' — must be one of: ok, failed", prefix, la.Status))
		}
	}

	return errs
}
