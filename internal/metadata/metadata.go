// Package metadata reads the maven-metadata.xml document a repository
// publishes next to snapshot versions and selects the timestamped file name
// to download.
package metadata

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

const jarExtension = "jar"

// Metadata is a version-level maven-metadata.xml document.
type Metadata struct {
	XMLName      xml.Name   `xml:"metadata"`
	ModelVersion string     `xml:"modelVersion,attr,omitempty"`
	GroupID      string     `xml:"groupId"`
	ArtifactID   string     `xml:"artifactId"`
	Version      string     `xml:"version"`
	Versioning   Versioning `xml:"versioning"`
}

// Versioning holds the snapshot bookkeeping of a version.
type Versioning struct {
	Snapshot         *Snapshot         `xml:"snapshot,omitempty"`
	LastUpdated      string            `xml:"lastUpdated,omitempty"`
	SnapshotVersions []SnapshotVersion `xml:"snapshotVersions>snapshotVersion"`
}

// Snapshot is the timestamp and build number of the latest deployment.
type Snapshot struct {
	Timestamp   string `xml:"timestamp,omitempty"`
	BuildNumber string `xml:"buildNumber,omitempty"`
}

// SnapshotVersion describes one deployed file of a snapshot.
type SnapshotVersion struct {
	Classifier string `xml:"classifier,omitempty"`
	Extension  string `xml:"extension"`
	Value      string `xml:"value"`
	Updated    string `xml:"updated,omitempty"`
}

// MetadataError reports a document that could not be parsed.
type MetadataError struct {
	Source string
	Err    error
}

func (e *MetadataError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parsing maven metadata: %s", e.Err)
	}
	return fmt.Sprintf("parsing maven metadata %s: %s", e.Source, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// Parse decodes a maven-metadata.xml document.
func Parse(r io.Reader) (*Metadata, error) {
	var m Metadata
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return nil, &MetadataError{Err: err}
	}
	m.GroupID = strings.TrimSpace(m.GroupID)
	m.ArtifactID = strings.TrimSpace(m.ArtifactID)
	m.Version = strings.TrimSpace(m.Version)
	for i := range m.Versioning.SnapshotVersions {
		sv := &m.Versioning.SnapshotVersions[i]
		sv.Classifier = strings.TrimSpace(sv.Classifier)
		sv.Extension = strings.TrimSpace(sv.Extension)
		sv.Value = strings.TrimSpace(sv.Value)
	}
	return &m, nil
}

// ParseFile decodes the document stored at path.
func ParseFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MetadataError{Source: path, Err: err}
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		if me, ok := err.(*MetadataError); ok {
			me.Source = path
		}
		return nil, err
	}
	return m, nil
}

// IsValid reports whether the document names a group, artifact and version.
func (m *Metadata) IsValid() bool {
	return m != nil && m.GroupID != "" && m.ArtifactID != "" && m.Version != ""
}

// LatestJarValue returns the timestamped version of the main jar: the first
// snapshotVersion without a classifier and with extension jar. It returns ""
// when the document lists no such entry.
func (m *Metadata) LatestJarValue() string {
	if m == nil {
		return ""
	}
	for _, sv := range m.Versioning.SnapshotVersions {
		if sv.Classifier == "" && sv.Extension == jarExtension {
			return sv.Value
		}
	}
	return ""
}

// Marshal renders m as a maven-metadata.xml document.
func Marshal(m *Metadata) ([]byte, error) {
	body, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding maven metadata: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
