package lock

import "sort"

// Lockfile represents the mvnfetch.lock file. It records where each artifact
// was resolved from and the digest of what was stored.
type Lockfile struct {
	Artifacts []LockedArtifact `yaml:"artifacts"`
	Version   int              `yaml:"version"`
}

// Status values of a locked artifact.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// LockedArtifact is the resolved state of one artifact.
type LockedArtifact struct {
	Group      string `yaml:"group"`
	Artifact   string `yaml:"artifact"`
	Version    string `yaml:"version"`
	Name       string `yaml:"name,omitempty"`       // resolved file name, timestamped for snapshots
	Repository string `yaml:"repository,omitempty"` // where it was found; "direct" for url downloads
	Path       string `yaml:"path,omitempty"`       // relative to the cache root
	SHA1       string `yaml:"sha1,omitempty"`
	Status     string `yaml:"status"`
}

// Key is group:artifact, matching the artifact's deduplication identity.
func (la LockedArtifact) Key() string {
	return la.Group + ":" + la.Artifact
}

// Find returns the entry for key.
func (lf *Lockfile) Find(key string) (LockedArtifact, bool) {
	for _, la := range lf.Artifacts {
		if la.Key() == key {
			return la, true
		}
	}
	return LockedArtifact{}, false
}

// Upsert replaces the entry with the same key or appends a new one.
func (lf *Lockfile) Upsert(la LockedArtifact) {
	for i := range lf.Artifacts {
		if lf.Artifacts[i].Key() == la.Key() {
			lf.Artifacts[i] = la
			return
		}
	}
	lf.Artifacts = append(lf.Artifacts, la)
}

// Remove deletes the entry for key. It reports whether one was removed.
func (lf *Lockfile) Remove(key string) bool {
	for i := range lf.Artifacts {
		if lf.Artifacts[i].Key() == key {
			lf.Artifacts = append(lf.Artifacts[:i], lf.Artifacts[i+1:]...)
			return true
		}
	}
	return false
}

func (lf *Lockfile) sort() {
	sort.SliceStable(lf.Artifacts, func(i, j int) bool {
		return lf.Artifacts[i].Key() < lf.Artifacts[j].Key()
	})
}
