package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileConnector serves file:// URLs from local repositories.
// A missing path answers 404 so callers treat it like a remote miss.
type FileConnector struct{}

// Open opens the file named by u.
func (FileConnector) Open(ctx context.Context, u *url.URL) (*Response, error) {
	if u == nil {
		return nil, &ConnectionError{URL: "<nil>", Err: errors.New("url is required")}
	}
	if u.Scheme != "file" {
		return nil, &ConnectionError{URL: u.String(), Err: fmt.Errorf("unsupported scheme '%s'", u.Scheme)}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ConnectionError{URL: u.String(), Err: err}
	}

	path := filepath.FromSlash(u.Path)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.Mode().IsRegular()) {
		return notFound(u), nil
	}
	if err != nil {
		return nil, &ConnectionError{URL: u.String(), Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ConnectionError{URL: u.String(), Err: err}
	}
	return &Response{
		URL:           u,
		StatusCode:    http.StatusOK,
		ContentLength: info.Size(),
		Body:          f,
	}, nil
}

func notFound(u *url.URL) *Response {
	return &Response{
		URL:           u,
		StatusCode:    http.StatusNotFound,
		ContentLength: 0,
		Body:          io.NopCloser(strings.NewReader("")),
	}
}
