package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-multierror"
)

const configFileName = "mvnfetch.yaml"
const configDirName = "mvnfetch"

// ConfigLevel represents the precedence level of a configuration file.
type ConfigLevel string

const (
	LevelSystem  ConfigLevel = "system"
	LevelUser    ConfigLevel = "user"
	LevelProject ConfigLevel = "project"
)

// ConfigLayerInfo describes a discovered config file and its load status.
type ConfigLayerInfo struct {
	Err    error // non-nil if the file exists but failed to load
	Path   string
	Level  ConfigLevel
	Loaded bool
}

// DiscoverOptions controls how config paths are discovered.
type DiscoverOptions struct {
	// ProjectPath is the project-level config path (required).
	ProjectPath string

	// SystemConfigPath overrides the default system config path.
	// Empty means use the OS default. Set to a nonexistent path to skip.
	SystemConfigPath string

	// UserConfigPath overrides the default user config path.
	// Empty means use the OS default. Set to a nonexistent path to skip.
	UserConfigPath string

	// NoInherit skips the system and user layers.
	NoInherit bool
}

// HierarchicalResult is the merged config and the layers it came from.
type HierarchicalResult struct {
	Config *Config
	Layers []ConfigLayerInfo
}

// DiscoverPaths returns the ordered list of config file paths to check,
// from lowest precedence (system) to highest (project).
// Paths are deduplicated by resolved absolute path.
func DiscoverPaths(opts DiscoverOptions) []ConfigLayerInfo {
	var layers []ConfigLayerInfo
	seen := make(map[string]bool)

	addLayer := func(level ConfigLevel, path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		layers = append(layers, ConfigLayerInfo{
			Path:  path,
			Level: level,
		})
	}

	if !opts.NoInherit {
		sysPath := opts.SystemConfigPath
		if sysPath == "" {
			sysPath = defaultSystemConfigPath()
		}
		addLayer(LevelSystem, sysPath)

		userPath := opts.UserConfigPath
		if userPath == "" {
			userPath = defaultUserConfigPath()
		}
		addLayer(LevelUser, userPath)
	}

	// Project-level config (always last, highest precedence).
	addLayer(LevelProject, opts.ProjectPath)

	return layers
}

// LoadHierarchical loads every discovered layer, merges them lowest first
// and validates the result. Missing system and user layers are skipped; a
// missing project config is an error. Parse failures of all layers are
// reported together.
func LoadHierarchical(opts DiscoverOptions) (*HierarchicalResult, error) {
	if EnvNoInherit() {
		opts.NoInherit = true
	}

	result := &HierarchicalResult{Layers: DiscoverPaths(opts)}
	var configs []*Config
	var errs *multierror.Error

	for i := range result.Layers {
		layer := &result.Layers[i]
		path, ok := locate(layer.Path)
		if !ok {
			if layer.Level == LevelProject {
				errs = multierror.Append(errs, fmt.Errorf("reading config %s: %w", layer.Path, fs.ErrNotExist))
			}
			continue
		}
		layer.Path = path

		cfg, err := parse(path)
		if err != nil {
			layer.Err = err
			errs = multierror.Append(errs, fmt.Errorf("%s config: %w", layer.Level, err))
			continue
		}
		layer.Loaded = true
		configs = append(configs, cfg)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return result, err
	}

	merged, err := MergeAll(configs)
	if err != nil {
		return result, err
	}
	if verrs := Validate(merged); len(verrs) > 0 {
		return result, &ValidationError{Errors: verrs}
	}

	result.Config = merged
	return result, nil
}

// locate returns path if it exists, or its .toml sibling when path names a
// missing .yaml file.
func locate(path string) (string, bool) {
	if _, err := os.Stat(path); err == nil {
		return path, true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return path, true // let parse report the real error
	}

	ext := filepath.Ext(path)
	if ext == ".yaml" || ext == ".yml" {
		alt := strings.TrimSuffix(path, ext) + ".toml"
		if _, err := os.Stat(alt); err == nil {
			return alt, true
		}
	}
	return path, false
}

// defaultSystemConfigPath returns the platform-standard system config path.
func defaultSystemConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		pd := os.Getenv("ProgramData")
		if pd == "" {
			pd = `C:\ProgramData`
		}
		return filepath.Join(pd, configDirName, configFileName)
	default: // linux, darwin, etc.
		return filepath.Join("/etc", configDirName, configFileName)
	}
}

// defaultUserConfigPath returns the platform-standard user config path.
func defaultUserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configDirName, configFileName)
}

// EnvNoInherit returns true if MVNFETCH_NO_INHERIT is set to "1" or "true".
func EnvNoInherit() bool {
	return envBoolTrue("MVNFETCH_NO_INHERIT")
}

// envBoolTrue returns true if the env var is set to "1" or "true" (case-insensitive).
func envBoolTrue(key string) bool {
	v := os.Getenv(key)
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true"
}
