package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/bianoble/mvnfetch/internal/artifact"
)

var sha1Pattern = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// Load reads and validates a configuration file. Files ending in .toml are
// decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	cfg, err := parse(path)
	if err != nil {
		return nil, err
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// parse decodes a file without validating it. Layers of a hierarchy may be
// partial and are validated only after merging.
func parse(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if abs, err := filepath.Abs(path); err == nil {
		cfg.dir = filepath.Dir(abs)
	}
	return &cfg, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", cfg.Version))
	}

	if _, err := artifact.ParseLayout(cfg.Layout); err != nil {
		errs = append(errs, err.Error())
	}

	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid timeout '%s' — use a duration such as '5s'", cfg.Timeout))
		} else if d <= 0 {
			errs = append(errs, fmt.Sprintf("timeout must be positive, got '%s'", cfg.Timeout))
		}
	}

	if cfg.Concurrency < 0 {
		errs = append(errs, fmt.Sprintf("concurrency must not be negative, got %d", cfg.Concurrency))
	}

	repoKeys := make(map[string]bool)
	for i, repo := range cfg.Repositories {
		prefix := fmt.Sprintf("repository[%d]", i)
		if repo.Name != "" {
			prefix = fmt.Sprintf("repository '%s'", repo.Name)
		}

		if key := repo.Key(); key != "" {
			if repoKeys[key] {
				errs = append(errs, fmt.Sprintf("%s: duplicate repository '%s'", prefix, key))
			}
			repoKeys[key] = true
		}
		errs = append(errs, validateRepository(repo, prefix)...)
	}

	if len(cfg.Artifacts) == 0 {
		errs = append(errs, "at least one artifact is required")
	}

	artifactKeys := make(map[string]bool)
	for i, a := range cfg.Artifacts {
		prefix := fmt.Sprintf("artifact[%d]", i)
		if a.Group != "" && a.Artifact != "" {
			prefix = fmt.Sprintf("artifact '%s'", a.Key())
			if artifactKeys[a.Key()] {
				errs = append(errs, fmt.Sprintf("%s: duplicate artifact", prefix))
			}
			artifactKeys[a.Key()] = true
		}
		errs = append(errs, validateArtifact(a, prefix)...)
	}

	patterns := make(map[string]bool)
	for i, r := range cfg.Relocations {
		prefix := fmt.Sprintf("relocation[%d]", i)
		if r.Pattern == "" {
			errs = append(errs, fmt.Sprintf("%s: 'pattern' is required", prefix))
		} else if patterns[r.Pattern] {
			errs = append(errs, fmt.Sprintf("%s: duplicate pattern '%s'", prefix, r.Pattern))
		} else {
			patterns[r.Pattern] = true
		}
		if r.Replacement == "" {
			errs = append(errs, fmt.Sprintf("%s: 'replacement' is required", prefix))
		}
	}

	return errs
}

func validateRepository(repo Repository, prefix string) []string {
	var errs []string

	switch {
	case repo.URL == "" && repo.Path == "":
		errs = append(errs, fmt.Sprintf("%s: one of 'url' or 'path' is required", prefix))
	case repo.URL != "" && repo.Path != "":
		errs = append(errs, fmt.Sprintf("%s: 'url' and 'path' are mutually exclusive — use one or the other", prefix))
	case repo.URL != "":
		u, err := url.Parse(repo.URL)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: invalid url '%s': %v", prefix, repo.URL, err))
			break
		}
		switch u.Scheme {
		case "http", "https", "file":
		default:
			errs = append(errs, fmt.Sprintf("%s: unsupported url scheme '%s' — must be one of: http, https, file", prefix, u.Scheme))
		}
	}

	return errs
}

func validateArtifact(a Artifact, prefix string) []string {
	var errs []string

	if a.Group == "" {
		errs = append(errs, fmt.Sprintf("%s: 'group' is required", prefix))
	}
	if a.Artifact == "" {
		errs = append(errs, fmt.Sprintf("%s: 'artifact' is required", prefix))
	}
	if a.Version == "" {
		errs = append(errs, fmt.Sprintf("%s: 'version' is required", prefix))
	}
	if sum := strings.TrimSpace(a.SHA1); sum != "" && !sha1Pattern.MatchString(sum) {
		errs = append(errs, fmt.Sprintf("%s: 'sha1' must be 40 hex characters", prefix))
	}
	if a.URL != "" {
		u, err := url.Parse(a.URL)
		if err != nil || !u.IsAbs() {
			errs = append(errs, fmt.Sprintf("%s: 'url' must be an absolute url", prefix))
		}
	}

	return errs
}
