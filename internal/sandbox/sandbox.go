// Package sandbox confines cache writes to a root directory.
package sandbox

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePath checks if targetPath is safely within root.
// It resolves symlinks, normalizes paths, and verifies containment.
// Returns the resolved absolute path or an error.
func ValidatePath(root, targetPath string) (string, error) {
	if filepath.IsAbs(targetPath) {
		return "", fmt.Errorf("path '%s' must be relative to the root", targetPath)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return "", fmt.Errorf("creating root %s: %w", absRoot, err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving root symlinks: %w", err)
	}

	// Build the candidate path.
	candidate := filepath.Join(realRoot, targetPath)
	candidate = filepath.Clean(candidate)

	// Resolve symlinks in the candidate path.
	// The path may not exist yet, so resolve as much as we can.
	resolved, err := resolveExistingPath(candidate)
	if err != nil {
		return "", fmt.Errorf("resolving target path: %w", err)
	}

	// Trailing separator avoids prefix matching "cache2" for "cache".
	rootPrefix := strings.TrimSuffix(realRoot, string(filepath.Separator)) + string(filepath.Separator)
	if resolved != realRoot && !strings.HasPrefix(resolved, rootPrefix) {
		return "", fmt.Errorf("path '%s' resolves to '%s' which is outside the root '%s'", targetPath, resolved, realRoot)
	}

	return resolved, nil
}

// resolveExistingPath resolves symlinks for the longest existing prefix of the path,
// then appends the non-existing suffix. This handles paths that don't fully exist yet.
func resolveExistingPath(path string) (string, error) {
	// Try resolving the full path first.
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	// Walk up to find the longest existing prefix.
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	if dir == path {
		// We've reached the root without finding anything.
		return path, nil
	}

	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}

	return filepath.Join(resolvedDir, base), nil
}

// EnsureDir creates dir and its parents. A non-directory occupying dir is
// removed first. A directory created concurrently by another writer is not
// an error.
func EnsureDir(dir string) error {
	if info, err := os.Stat(dir); err == nil {
		if info.IsDir() {
			return nil
		}
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("removing non-directory %s: %w", dir, err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return nil
		}
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// WriteFrom streams r into relPath under root. The content goes to a
// temporary file in the destination directory and is renamed into place
// once complete, so a partial file is never visible at relPath.
// It returns the number of bytes written.
func WriteFrom(root, relPath string, r io.Reader, perm os.FileMode) (int64, error) {
	resolved, err := ValidatePath(root, relPath)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(resolved)
	if err := EnsureDir(dir); err != nil {
		return 0, err
	}

	// Same directory keeps the rename on one filesystem.
	tmp, err := os.CreateTemp(dir, ".mvnfetch-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return n, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return n, fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, resolved); err != nil {
		return n, fmt.Errorf("renaming temp file to %s: %w", resolved, err)
	}

	success = true
	return n, nil
}

// SafeWrite atomically writes content to a path within root.
func SafeWrite(root, relPath string, content []byte, perm os.FileMode) error {
	_, err := WriteFrom(root, relPath, bytes.NewReader(content), perm)
	return err
}

// SafeRemove removes a file within root. A missing file is not an error.
func SafeRemove(root, relPath string) error {
	resolved, err := ValidatePath(root, relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
