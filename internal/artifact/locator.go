package artifact

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MetadataFileName is the per-version snapshot metadata document.
const MetadataFileName = "maven-metadata.xml"

const jarExtension = ".jar"

// Layout selects how artifacts are arranged under a cache root.
type Layout string

const (
	// LayoutMaven mirrors the repository tree: group/artifact/version/name.jar.
	LayoutMaven Layout = "maven"
	// LayoutFlat stores every jar directly under the root.
	LayoutFlat Layout = "flat"
)

// ParseLayout converts a config string to a Layout. Empty means LayoutMaven.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "", LayoutMaven:
		return LayoutMaven, nil
	case LayoutFlat:
		return LayoutFlat, nil
	default:
		return "", fmt.Errorf("unknown layout '%s' — must be one of: maven, flat", s)
	}
}

// RemoteBase returns the directory URL holding every file of one artifact
// version: root + group/ + artifact/ + encoded version.
func RemoteBase(root *url.URL, a *Artifact) (*url.URL, error) {
	if err := checkRoot(root, a); err != nil {
		return nil, err
	}
	groupParts, artifactParts, err := coordinateParts(a, "remote base")
	if err != nil {
		return nil, err
	}

	segments := []string{root.EscapedPath()}
	for _, p := range groupParts {
		segments = append(segments, url.PathEscape(p))
	}
	for _, p := range artifactParts {
		segments = append(segments, url.PathEscape(p))
	}
	segments = append(segments, url.QueryEscape(a.Version()))

	return withEscapedPath(root, strings.Join(segments, "/"), a, "remote base")
}

// ArtifactURL returns the URL of the jar named by the artifact's current display name.
func ArtifactURL(root *url.URL, a *Artifact) (*url.URL, error) {
	if err := checkSegment(a.Name(), "name"); err != nil {
		return nil, &LocatorError{Artifact: a.String(), Op: "artifact url", Err: err}
	}
	base, err := RemoteBase(root, a)
	if err != nil {
		return nil, err
	}
	return withEscapedPath(base, base.EscapedPath()+"/"+url.QueryEscape(a.Name())+jarExtension, a, "artifact url")
}

// MetadataURL returns the URL of the version's maven-metadata.xml.
func MetadataURL(root *url.URL, a *Artifact) (*url.URL, error) {
	base, err := RemoteBase(root, a)
	if err != nil {
		return nil, err
	}
	return withEscapedPath(base, base.EscapedPath()+"/"+MetadataFileName, a, "metadata url")
}

// RelPath returns the cache-relative path of the artifact's jar.
// It depends on the current display name and must be re-derived after a
// snapshot name is resolved.
func RelPath(a *Artifact, layout Layout) (string, error) {
	if err := checkSegment(a.Name(), "name"); err != nil {
		return "", &LocatorError{Artifact: a.String(), Op: "cache path", Err: err}
	}
	file := a.Name() + jarExtension
	if layout == LayoutFlat {
		return file, nil
	}
	dir, err := versionDir(a, "cache path")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, file), nil
}

// CachePath returns the absolute location of the artifact's jar under cacheRoot.
func CachePath(cacheRoot string, a *Artifact, layout Layout) (string, error) {
	rel, err := RelPath(a, layout)
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheRoot, rel), nil
}

// MetadataRelPath returns the cache-relative path where a downloaded
// maven-metadata.xml is kept. It is hierarchical in every layout.
func MetadataRelPath(a *Artifact) (string, error) {
	dir, err := versionDir(a, "metadata path")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, MetadataFileName), nil
}

func versionDir(a *Artifact, op string) (string, error) {
	groupParts, artifactParts, err := coordinateParts(a, op)
	if err != nil {
		return "", err
	}
	parts := append(append(groupParts, artifactParts...), a.Version())
	return filepath.Join(parts...), nil
}

func coordinateParts(a *Artifact, op string) (groupParts, artifactParts []string, err error) {
	if a == nil {
		return nil, nil, &ArgumentError{Arg: "artifact", Reason: "artifact is required"}
	}
	groupParts = strings.Split(a.GroupID(), ".")
	artifactParts = strings.Split(a.ArtifactID(), ".")

	check := func(field string, parts []string) error {
		for _, p := range parts {
			if err := checkSegment(p, field); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check("group id", groupParts); err != nil {
		return nil, nil, &LocatorError{Artifact: a.String(), Op: op, Err: err}
	}
	if err := check("artifact id", artifactParts); err != nil {
		return nil, nil, &LocatorError{Artifact: a.String(), Op: op, Err: err}
	}
	if err := checkSegment(a.Version(), "version"); err != nil {
		return nil, nil, &LocatorError{Artifact: a.String(), Op: op, Err: err}
	}
	return groupParts, artifactParts, nil
}

// checkSegment rejects values that cannot be a single path element.
func checkSegment(s, field string) error {
	switch {
	case s == "":
		return fmt.Errorf("%s is empty", field)
	case !utf8.ValidString(s):
		return fmt.Errorf("%s %q is not valid UTF-8", field, s)
	case s == "." || s == "..":
		return fmt.Errorf("%s %q is not a valid path element", field, s)
	case strings.ContainsAny(s, "/\\\x00"):
		return fmt.Errorf("%s %q contains a path separator", field, s)
	}
	return nil
}

func checkRoot(root *url.URL, a *Artifact) error {
	name := "<nil>"
	if a != nil {
		name = a.String()
	}
	switch {
	case root == nil:
		return &LocatorError{Artifact: name, Op: "remote base", Err: errors.New("repository root is nil")}
	case !root.IsAbs() || root.Opaque != "":
		return &LocatorError{Artifact: name, Op: "remote base", Err: fmt.Errorf("repository root %q is not an absolute hierarchical url", root.String())}
	case root.Scheme != "file" && root.Host == "":
		return &LocatorError{Artifact: name, Op: "remote base", Err: fmt.Errorf("repository root %q has no host", root.String())}
	}
	return nil
}

func withEscapedPath(base *url.URL, escaped string, a *Artifact, op string) (*url.URL, error) {
	escaped = collapseSlashes(escaped)
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, &LocatorError{Artifact: a.String(), Op: op, Err: err}
	}
	u := *base
	u.Path = unescaped
	u.RawPath = escaped
	u.RawQuery = ""
	u.Fragment = ""
	return &u, nil
}

func collapseSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}
