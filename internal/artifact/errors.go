package artifact

import "fmt"

// LocatorError reports coordinates that cannot be turned into a URL or path.
type LocatorError struct {
	Artifact string
	Op       string
	Err      error
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("locating %s: %s: %s", e.Artifact, e.Op, e.Err)
}

func (e *LocatorError) Unwrap() error {
	return e.Err
}

// ArgumentError reports a missing or empty required parameter.
type ArgumentError struct {
	Arg    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Arg, e.Reason)
}
