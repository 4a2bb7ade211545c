package netutil

import (
	"net"
	"net/http"
	"time"
)

// ClientOptions tunes NewClient. Zero fields take the defaults below.
type ClientOptions struct {
	// Timeout bounds a whole request including retries.
	Timeout time.Duration
	// ResponseHeaderTimeout bounds the wait for response headers.
	ResponseHeaderTimeout time.Duration
	// Retries is the number of extra attempts on transient failures.
	// Requests whose body cannot be replayed are never retried.
	Retries int
	Backoff time.Duration
}

const (
	defaultTimeout        = 30 * time.Second
	defaultHeaderTimeout  = 5 * time.Second
	defaultBackoff        = 2 * time.Second
	dialTimeout           = 5 * time.Second
	keepAlive             = 30 * time.Second
	tlsHandshakeTimeout   = 5 * time.Second
	idleConnTimeout       = 30 * time.Second
	expectContinueTimeout = time.Second
)

// TelegramClient suits Bot API calls. getUpdates holds the response for up
// to longPoll, so header and request timeouts are stretched past it.
func TelegramClient(longPoll time.Duration) *http.Client {
	return NewClient(ClientOptions{
		Timeout:               max(defaultTimeout, longPoll+10*time.Second),
		ResponseHeaderTimeout: longPoll + defaultHeaderTimeout,
		Retries:               3,
	})
}

// NewClient builds a pooled HTTP client with dial and TLS timeouts and, when
// Retries > 0, linear backoff retries on transient network errors.
func NewClient(opts ClientOptions) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ResponseHeaderTimeout <= 0 {
		opts.ResponseHeaderTimeout = min(defaultHeaderTimeout, opts.Timeout)
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}

	var rt http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		ExpectContinueTimeout: expectContinueTimeout,
	}
	if opts.Retries > 0 {
		rt = &retryTransport{base: rt, retries: opts.Retries, backoff: opts.Backoff}
	}
	return &http.Client{Timeout: opts.Timeout, Transport: rt}
}

type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	resp, err := t.base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.retries; attempt++ {
		if !replayable || !ShouldRetry(err) {
			break
		}
		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}

		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}
