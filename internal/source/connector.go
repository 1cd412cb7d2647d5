package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Connector opens a URL and returns the response.
// A response is returned for every status the remote answers with; only
// transport failures are reported as errors.
type Connector interface {
	Open(ctx context.Context, u *url.URL) (*Response, error)
}

// Response is an open response. Callers must close Body.
type Response struct {
	URL           *url.URL // final URL after redirects
	StatusCode    int
	ContentLength int64 // -1 when unknown
	Body          io.ReadCloser
}

// Present reports whether the status means the resource exists: [200,300) or 304.
func (r *Response) Present() bool {
	return (r.StatusCode >= 200 && r.StatusCode < 300) || r.StatusCode == http.StatusNotModified
}

// ConnectionError describes a failed connection or a status that is not present.
// StatusCode is 0 for transport failures.
type ConnectionError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a status-level miss: the remote answered
// but the resource is not present there.
func IsNotFound(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce) && ce.StatusCode != 0
}

// Get opens u and fails unless the response is present. A non-present
// response is closed and returned as a *ConnectionError carrying its status.
func Get(ctx context.Context, c Connector, u *url.URL) (*Response, error) {
	resp, err := c.Open(ctx, u)
	if err != nil {
		return nil, err
	}
	if !resp.Present() {
		resp.Body.Close()
		return nil, &ConnectionError{URL: u.String(), StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// Registry maps URL schemes to Connector implementations.
// It is itself a Connector.
type Registry struct {
	connectors map[string]Connector
}

// NewRegistry creates a new empty connector registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// NewDefaultRegistry returns a registry serving http and https through
// h and file URLs through a FileConnector.
func NewDefaultRegistry(h *HTTPConnector) *Registry {
	if h == nil {
		h = &HTTPConnector{}
	}
	r := NewRegistry()
	r.Register("http", h)
	r.Register("https", h)
	r.Register("file", FileConnector{})
	return r
}

// Register adds a connector for the given scheme.
func (r *Registry) Register(scheme string, c Connector) {
	r.connectors[strings.ToLower(scheme)] = c
}

// Get returns the connector for the given scheme.
func (r *Registry) Get(scheme string) (Connector, error) {
	c, ok := r.connectors[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("unknown url scheme '%s' — supported schemes: %s", scheme, r.supportedSchemes())
	}
	return c, nil
}

// Open dispatches to the connector registered for the URL's scheme.
func (r *Registry) Open(ctx context.Context, u *url.URL) (*Response, error) {
	if u == nil {
		return nil, &ConnectionError{URL: "<nil>", Err: errors.New("url is required")}
	}
	c, err := r.Get(u.Scheme)
	if err != nil {
		return nil, &ConnectionError{URL: u.String(), Err: err}
	}
	return c.Open(ctx, u)
}

func (r *Registry) supportedSchemes() string {
	schemes := make([]string, 0, len(r.connectors))
	for s := range r.connectors {
		schemes = append(schemes, s)
	}
	if len(schemes) == 0 {
		return "(none registered)"
	}
	sort.Strings(schemes)
	return fmt.Sprintf("%v", schemes)
}
