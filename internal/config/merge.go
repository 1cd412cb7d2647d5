package config

import "fmt"

// Merge combines two configs where overlay takes precedence over base.
//   - version: must agree if both declare it (non-zero); fatal error on mismatch
//   - scalars: overlay wins when set
//   - repositories: merge by name (url or path when unnamed)
//   - artifacts: merge by group:artifact
//   - relocations: merge by pattern
//
// A keyed entry in overlay replaces the base entry entirely and moves after
// the remaining base entries.
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := &Config{dir: overlay.dir}

	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}

	result.CacheDir = overlayString(base.CacheDir, overlay.CacheDir)
	result.LibDir = overlayString(base.LibDir, overlay.LibDir)
	result.Layout = overlayString(base.Layout, overlay.Layout)
	result.Timeout = overlayString(base.Timeout, overlay.Timeout)
	result.Force = overlayBool(base.Force, overlay.Force)
	result.IgnoreHash = overlayBool(base.IgnoreHash, overlay.IgnoreHash)
	result.Defaults = overlayBool(base.Defaults, overlay.Defaults)

	result.Concurrency = base.Concurrency
	if overlay.Concurrency != 0 {
		result.Concurrency = overlay.Concurrency
	}

	result.Relocator = base.Relocator
	if overlay.Relocator.Command != "" {
		result.Relocator = overlay.Relocator
	}

	result.Repositories = mergeKeyed(base.Repositories, overlay.Repositories, Repository.Key)
	result.Artifacts = mergeKeyed(base.Artifacts, overlay.Artifacts, Artifact.Key)
	result.Relocations = mergeKeyed(base.Relocations, overlay.Relocations, func(r Relocation) string { return r.Pattern })

	return result, nil
}

// MergeAll merges multiple configs in order (lowest precedence first).
// Returns an error if any version mismatch is found.
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0 && overlay == 0:
		*out = 0 // neither declares; validation will catch this
	case base == 0:
		*out = overlay
	case overlay == 0:
		*out = base
	case base == overlay:
		*out = base
	default:
		return fmt.Errorf("config version mismatch: one layer declares version %d, another declares version %d — all config layers must agree on version", base, overlay)
	}
	return nil
}

func overlayString(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func overlayBool(base, overlay *bool) *bool {
	if overlay != nil {
		return overlay
	}
	return base
}

func mergeKeyed[T any](base, overlay []T, key func(T) string) []T {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}

	overlayKeys := make(map[string]bool, len(overlay))
	for _, v := range overlay {
		overlayKeys[key(v)] = true
	}

	var result []T
	for _, v := range base {
		if !overlayKeys[key(v)] {
			result = append(result, v)
		}
	}

	return append(result, overlay...)
}
