package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
)

type stubConnector struct {
	status int
	closed bool
}

func (s *stubConnector) Open(ctx context.Context, u *url.URL) (*Response, error) {
	return &Response{URL: u, StatusCode: s.status, ContentLength: -1, Body: &closeRecorder{s: s}}, nil
}

type closeRecorder struct{ s *stubConnector }

func (c *closeRecorder) Read(p []byte) (int, error) { return 0, io.EOF }
func (c *closeRecorder) Close() error               { c.s.closed = true; return nil }

func TestResponsePresent(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, true},
		{204, true},
		{299, true},
		{304, true},
		{300, false},
		{301, false},
		{404, false},
		{500, false},
	}
	for _, tt := range tests {
		r := &Response{StatusCode: tt.status}
		if got := r.Present(); got != tt.want {
			t.Errorf("Present(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestConnectionErrorFormat(t *testing.T) {
	status := &ConnectionError{URL: "https://repo.example.com/x.jar", StatusCode: 404}
	if !strings.Contains(status.Error(), "HTTP 404") {
		t.Errorf("unexpected message: %s", status.Error())
	}

	inner := fmt.Errorf("connection refused")
	transport := &ConnectionError{URL: "https://repo.example.com/x.jar", Err: inner}
	if !strings.Contains(transport.Error(), "connection refused") {
		t.Errorf("unexpected message: %s", transport.Error())
	}
	if !errors.Is(transport, inner) {
		t.Error("Unwrap should return inner error")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(&ConnectionError{URL: "u", StatusCode: 404}) {
		t.Error("404 should be a status-level miss")
	}
	if !IsNotFound(fmt.Errorf("wrapped: %w", &ConnectionError{URL: "u", StatusCode: 500})) {
		t.Error("wrapped 500 should be a status-level miss")
	}
	if IsNotFound(&ConnectionError{URL: "u", Err: errors.New("dial tcp: refused")}) {
		t.Error("transport failure is not a status-level miss")
	}
	if IsNotFound(errors.New("other")) {
		t.Error("unrelated error is not a miss")
	}
}

func TestGetClosesMissingResponse(t *testing.T) {
	stub := &stubConnector{status: 404}
	u, _ := url.Parse("https://repo.example.com/a.jar")

	_, err := Get(context.Background(), stub, u)
	if !IsNotFound(err) {
		t.Fatalf("expected status-level miss, got %v", err)
	}
	if !stub.closed {
		t.Error("body of a missing response should be closed")
	}
}

func TestGetPresent(t *testing.T) {
	stub := &stubConnector{status: 200}
	u, _ := url.Parse("https://repo.example.com/a.jar")

	resp, err := Get(context.Background(), stub, u)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("ftp")
	if err == nil {
		t.Fatal("expected error for unknown scheme")
	}
	if !strings.Contains(err.Error(), "unknown url scheme 'ftp'") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRegistryOpenDispatchesByScheme(t *testing.T) {
	reg := NewRegistry()
	reg.Register("HTTPS", &stubConnector{status: 200})

	u, _ := url.Parse("https://repo.example.com/a.jar")
	resp, err := reg.Open(context.Background(), u)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	resp.Body.Close()

	u, _ = url.Parse("gopher://repo.example.com/a.jar")
	_, err = reg.Open(context.Background(), u)
	var ce *ConnectionError
	if !errors.As(err, &ce) || ce.StatusCode != 0 {
		t.Fatalf("expected transport-level ConnectionError, got %v", err)
	}
}

func TestDefaultRegistrySchemes(t *testing.T) {
	reg := NewDefaultRegistry(nil)
	for _, s := range []string{"http", "https", "file"} {
		if _, err := reg.Get(s); err != nil {
			t.Errorf("scheme %s: %v", s, err)
		}
	}
}
