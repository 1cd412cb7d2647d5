package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpproxy"
)

const (
	// DefaultUserAgent identifies every request made by HTTPConnector.
	DefaultUserAgent = "mvnfetch (+https://github.com/bianoble/mvnfetch)"
	// DefaultTimeout is used for both connect and read timeouts.
	DefaultTimeout = 5000 * time.Millisecond
	// DefaultMaxRedirects bounds how many 301/302/303 hops are followed.
	DefaultMaxRedirects = 10
)

// proxyProbeURL is resolved once against the environment to pick the proxy.
var proxyProbeURL = &url.URL{Scheme: "http", Host: "foo", Path: "/bar"}

// HTTPConnector opens http and https URLs.
type HTTPConnector struct {
	UserAgent      string
	ConnectTimeout time.Duration
	// ReadTimeout bounds the wait for response headers and for each body read.
	ReadTimeout  time.Duration
	MaxRedirects int
	// ProxyConfig overrides the environment proxy configuration.
	ProxyConfig *httpproxy.Config
	Logger      zerolog.Logger

	once     sync.Once
	client   *http.Client
	proxy    *url.URL
	proxyFor func(*url.URL) (*url.URL, error)
}

func (h *HTTPConnector) init() {
	h.once.Do(func() {
		cfg := h.ProxyConfig
		if cfg == nil {
			cfg = httpproxy.FromEnvironment()
		}
		h.proxyFor = cfg.ProxyFunc()
		if p, err := h.proxyFor(proxyProbeURL); err == nil && p != nil {
			h.proxy = p
			h.Logger.Debug().Str("proxy", p.Redacted()).Msg("using proxy")
		}

		connect := h.connectTimeout()
		transport := &http.Transport{
			Proxy:                 h.selectProxy,
			DialContext:           (&net.Dialer{Timeout: connect}).DialContext,
			TLSHandshakeTimeout:   connect,
			ResponseHeaderTimeout: h.readTimeout(),
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
		}
		h.client = &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	})
}

// selectProxy routes every request, whatever its scheme, through the probed
// proxy. Only the NO_PROXY and loopback rules exclude a host; the host is
// checked as an http URL so a missing HTTPS_PROXY does not count.
func (h *HTTPConnector) selectProxy(req *http.Request) (*url.URL, error) {
	if h.proxy == nil {
		return nil, nil
	}
	probe := *req.URL
	probe.Scheme = "http"
	if p, err := h.proxyFor(&probe); err != nil || p == nil {
		return nil, nil
	}
	return h.proxy, nil
}

func (h *HTTPConnector) connectTimeout() time.Duration {
	if h.ConnectTimeout > 0 {
		return h.ConnectTimeout
	}
	return DefaultTimeout
}

func (h *HTTPConnector) readTimeout() time.Duration {
	if h.ReadTimeout > 0 {
		return h.ReadTimeout
	}
	return DefaultTimeout
}

func (h *HTTPConnector) maxRedirects() int {
	if h.MaxRedirects > 0 {
		return h.MaxRedirects
	}
	return DefaultMaxRedirects
}

func (h *HTTPConnector) userAgent() string {
	if h.UserAgent != "" {
		return h.UserAgent
	}
	return DefaultUserAgent
}

// Open issues a GET for u, following 301, 302 and 303 redirects.
func (h *HTTPConnector) Open(ctx context.Context, u *url.URL) (*Response, error) {
	if u == nil {
		return nil, &ConnectionError{URL: "<nil>", Err: errors.New("url is required")}
	}
	h.init()

	current := u
	for hops := 0; ; hops++ {
		resp, cancel, err := h.do(ctx, current)
		if err != nil {
			return nil, &ConnectionError{URL: current.String(), Err: err}
		}

		if !isRedirect(resp.StatusCode) {
			return &Response{
				URL:           current,
				StatusCode:    resp.StatusCode,
				ContentLength: resp.ContentLength,
				Body:          newIdleTimeoutBody(resp.Body, h.readTimeout(), cancel),
			}, nil
		}

		location := resp.Header.Get("Location")
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()

		if location == "" {
			return nil, &ConnectionError{URL: current.String(), StatusCode: resp.StatusCode, Err: errors.New("redirect without Location header")}
		}
		if hops >= h.maxRedirects() {
			return nil, &ConnectionError{URL: u.String(), Err: fmt.Errorf("stopped after %d redirects", h.maxRedirects())}
		}
		next, err := current.Parse(location)
		if err != nil {
			return nil, &ConnectionError{URL: current.String(), Err: fmt.Errorf("invalid redirect location %q: %w", location, err)}
		}
		h.Logger.Debug().Str("from", current.String()).Str("to", next.String()).Int("status", resp.StatusCode).Msg("following redirect")
		current = next
	}
}

func (h *HTTPConnector) do(ctx context.Context, u *url.URL) (*http.Response, context.CancelFunc, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent())

	resp, err := h.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
		return true
	}
	return false
}

// errReadTimeout is returned by a body whose idle timer fired.
var errReadTimeout = errors.New("read timed out")

// idleTimeoutBody cancels the request when no bytes arrive for timeout.
type idleTimeoutBody struct {
	rc      io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelFunc

	mu       sync.Mutex
	timedOut bool
}

func newIdleTimeoutBody(rc io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleTimeoutBody {
	b := &idleTimeoutBody{rc: rc, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, func() {
		b.mu.Lock()
		b.timedOut = true
		b.mu.Unlock()
		cancel()
	})
	return b
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.timer.Reset(b.timeout)
	}
	if err != nil && err != io.EOF {
		b.mu.Lock()
		timedOut := b.timedOut
		b.mu.Unlock()
		if timedOut {
			return n, fmt.Errorf("%w after %s", errReadTimeout, b.timeout)
		}
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	err := b.rc.Close()
	b.cancel()
	return err
}
