package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/botkit/core/client"
	"github.com/m3rciful/botkit/core/config"
)

// Connection-level timeouts; these track Bot API latency characteristics and
// are not worth a config knob.
const (
	dialTimeout       = 5 * time.Second
	tlsHandshake      = 5 * time.Second
	idleConnTimeout   = 30 * time.Second
	responseTimeout   = 5 * time.Second
	keepAliveInterval = 30 * time.Second
)

// BuildHTTPClient returns an HTTP client for Bot API calls. The overall
// timeout and the transparent retry behaviour come from the client config
// section; zero values take the defaults documented there.
func BuildHTTPClient(cfg config.ClientConfig) *http.Client {
	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.HTTPRetryAttempts
	if retries <= 0 {
		retries = 3
	}
	backoff := time.Duration(cfg.HTTPRetryBackoffMS) * time.Millisecond
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshake,
		ResponseHeaderTimeout: responseTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &retryTransport{
			base:       base,
			maxRetries: retries,
			backoff:    backoff,
		},
	}
}

// retryTransport replays transient transport failures before the error ever
// reaches telebot. Application-level responses (any status code) pass
// through untouched; only errors client.ShouldRetry accepts are retried.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		curr, replayable := t.requestForAttempt(req, attempt)
		if !replayable {
			// The body was consumed by the first attempt and cannot be
			// rebuilt; surface the original failure.
			return nil, lastErr
		}

		resp, err := t.base.RoundTrip(curr)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !client.ShouldRetry(err) || attempt == attempts {
			break
		}

		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

func (t *retryTransport) requestForAttempt(req *http.Request, attempt int) (*http.Request, bool) {
	if attempt == 1 {
		return req, true
	}
	curr := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, false
		}
		curr.Body = body
		return curr, true
	}
	return curr, req.Body == nil
}
