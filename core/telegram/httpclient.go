package telegram

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/bakerybot/core/netutil"
)

// Bot API transport limits. Long polling holds a request open for up to the
// poll timeout, so the client timeout stays well above it.
const (
	apiDialTimeout    = 5 * time.Second
	apiKeepAlive      = 30 * time.Second
	apiTLSTimeout     = 5 * time.Second
	apiIdleTimeout    = 90 * time.Second
	apiHeaderTimeout  = 15 * time.Second
	apiClientTimeout  = 45 * time.Second
	apiMaxIdlePerHost = 8
	apiRetryAttempts  = 3
	apiRetryDelay     = time.Second
)

// BuildHTTPClient returns the client handed to telebot. Requests that fail
// before a response arrives are repeated a few times; API level errors are
// left to the callers.
func BuildHTTPClient() *http.Client {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   apiDialTimeout,
			KeepAlive: apiKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConnsPerHost:   apiMaxIdlePerHost,
		IdleConnTimeout:       apiIdleTimeout,
		TLSHandshakeTimeout:   apiTLSTimeout,
		ResponseHeaderTimeout: apiHeaderTimeout,
	}
	return &http.Client{
		Timeout: apiClientTimeout,
		Transport: &retryTransport{
			next:   base,
			policy: netutil.Policy{Attempts: apiRetryAttempts, Delay: apiRetryDelay},
		},
	}
}

var errBodyNotReplayable = errors.New("telegram: request body cannot be replayed")

// retryTransport repeats a round trip on transient network errors.
type retryTransport struct {
	next   http.RoundTripper
	policy netutil.Policy
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}

	var resp *http.Response
	_, err := netutil.Do(req.Context(), t.policy, func(ctx context.Context, attempt int) error {
		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return netutil.Permanent(err)
		}
		r, err := next.RoundTrip(attemptReq)
		if err != nil {
			if netutil.ShouldRetry(err) {
				return err
			}
			return netutil.Permanent(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// rewind returns the request for the given attempt, restoring the body for
// repeats. Bodies without GetBody are sent only once.
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	if req.Body == nil || req.Body == http.NoBody {
		return req.Clone(req.Context()), nil
	}
	if req.GetBody == nil {
		return nil, errBodyNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}
