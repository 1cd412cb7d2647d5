package engine

import (
	"github.com/bianoble/mvnfetch/internal/artifact"
	"github.com/bianoble/mvnfetch/internal/cache"
	"github.com/bianoble/mvnfetch/internal/config"
)

// ConfigLayerStatus describes a config layer's load status for display.
type ConfigLayerStatus struct {
	Level  string // "system", "user", "project"
	Path   string
	Loaded bool
}

// InfoResult holds tool information for the info command.
type InfoResult struct {
	Version      string
	ConfigPath   string
	LockPath     string
	CacheDir     string
	Layout       string
	Repositories []RepositoryInfo
	ConfigChain  []ConfigLayerStatus
	CacheSize    int64
	Artifacts    int
}

// RepositoryInfo describes a repository in search order.
type RepositoryInfo struct {
	Name     string
	Location string
	Local    bool
}

// Info gathers tool information.
func Info(version string, cfg *config.Config, c *cache.Cache, repos []artifact.Repository, layers []config.ConfigLayerInfo, configPath, lockPath string) (*InfoResult, error) {
	r := &InfoResult{
		Version:    version,
		ConfigPath: configPath,
		LockPath:   lockPath,
	}

	if cfg != nil {
		r.Artifacts = len(cfg.Artifacts)
	}

	if c != nil {
		r.CacheDir = c.Path()
		r.Layout = string(c.Layout())
		size, err := c.Size()
		if err == nil {
			r.CacheSize = size
		}
	}

	for _, repo := range repos {
		ri := RepositoryInfo{Name: repo.Name, Local: repo.IsLocal()}
		if repo.IsLocal() {
			ri.Location = repo.BaseDir
		} else {
			ri.Location = repo.URL.String()
		}
		r.Repositories = append(r.Repositories, ri)
	}

	for _, l := range layers {
		r.ConfigChain = append(r.ConfigChain, ConfigLayerStatus{
			Level:  string(l.Level),
			Path:   l.Path,
			Loaded: l.Loaded,
		})
	}

	return r, nil
}
