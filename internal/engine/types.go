package engine

// Artifact states reported by verify and status.
const (
	StateOK       = "ok"
	StateMissing  = "missing"
	StateMismatch = "mismatch"
	StateCached   = "cached"
	StatePending  = "pending"
)

// ArtifactError represents an error associated with a specific artifact.
type ArtifactError struct {
	Artifact string
	Err      error
}

func (e ArtifactError) Error() string {
	return e.Artifact + ": " + e.Err.Error()
}

func (e ArtifactError) Unwrap() error {
	return e.Err
}

// VerifyEntry is the verification outcome of one cached artifact.
type VerifyEntry struct {
	Artifact string
	Path     string
	State    string
	Expected string
	Actual   string
}

// VerifyResult holds the outcome of a verify operation.
type VerifyResult struct {
	OK         []VerifyEntry
	Missing    []VerifyEntry
	Mismatched []VerifyEntry
	Errors     []ArtifactError
}

// Clean reports whether every checked artifact verified.
func (r *VerifyResult) Clean() bool {
	return len(r.Missing) == 0 && len(r.Mismatched) == 0 && len(r.Errors) == 0
}
