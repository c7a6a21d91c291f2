package netutil

import (
	"net"
	"net/http"
	"time"
)

// ClientOptions tunes BuildHTTPClient. Zero fields take the defaults below.
type ClientOptions struct {
	// Timeout bounds the whole request including reading the body.
	Timeout time.Duration
	// ResponseHeaderTimeout bounds the wait for response headers.
	ResponseHeaderTimeout time.Duration
	// MaxRetries is the number of extra attempts after a transient failure. Negative disables retries.
	MaxRetries int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

const (
	defaultDialTimeout     = 5 * time.Second
	defaultTLSHandshake    = 5 * time.Second
	defaultIdleConnTimeout = 30 * time.Second
	defaultResponseTimeout = 5 * time.Second
	defaultClientTimeout   = 30 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultRetryBackoff    = 2 * time.Second
)

// TelegramClientOptions is the profile used for Bot API calls: short timeouts, three retries.
func TelegramClientOptions() ClientOptions {
	return ClientOptions{MaxRetries: 3}
}

// BuildHTTPClient returns a client with pooled keep-alive connections and optional retries
// on transient network errors.
func BuildHTTPClient(opts ClientOptions) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultClientTimeout
	}
	if opts.ResponseHeaderTimeout <= 0 {
		opts.ResponseHeaderTimeout = defaultResponseTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultRetryBackoff
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		ExpectContinueTimeout: time.Second,
	}
	var rt http.RoundTripper = transport
	if opts.MaxRetries > 0 {
		rt = &retryTransport{base: transport, maxRetries: opts.MaxRetries, backoff: opts.Backoff}
	}
	return &http.Client{Timeout: opts.Timeout, Transport: rt}
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		cur := req
		if attempt > 0 {
			if req.Body != nil && req.GetBody == nil {
				return nil, lastErr
			}
			cur = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				cur.Body = body
			}
			timer := time.NewTimer(t.backoff * time.Duration(attempt))
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}
		resp, err := t.base.RoundTrip(cur)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !ShouldRetry(err) {
			break
		}
	}
	return nil, lastErr
}
