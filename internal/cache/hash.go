package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bianoble/mvnfetch/internal/artifact"
)

const hashChunkSize = 32 * 1024

// SHA1File returns the uppercase hex SHA-1 digest of the file at path.
// The file is read in fixed-size chunks.
func SHA1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, hashChunkSize)); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}

// Verify reports whether the file's SHA-1 matches expected, ignoring case.
func Verify(path, expected string) (bool, error) {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return false, &artifact.ArgumentError{Arg: "sha1", Reason: "expected digest is empty"}
	}
	actual, err := SHA1File(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}
