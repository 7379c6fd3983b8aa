package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Default connect/read timeouts.
const (
	DefaultConnectTimeout = 15 * time.Second
	DefaultReadTimeout    = 120 * time.Second
)

// newHTTPClient builds the http.Client used for donation POSTs: dialing
// must fail fast (connectTimeout), but once connected the server may hold
// the response open for as long as readTimeout before we give up waiting
// for status/headers. Redirects are never followed — a redirected
// donation would hand the receive channel to the wrong place — and
// caching is disabled so no intermediary ever serves a stale donation
// response.
//
// Go's http.Client has no direct equivalent of "write the request body
// without yet waiting for the response": Do() always blocks until
// response headers arrive. ResponseHeaderTimeout on the Transport is the
// closest match to a read timeout for a long-held response.
func newHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: readTimeout,
		DisableCompression:    true,
	}
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func newDonationRequest(ctx context.Context, endpoint, body string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, newBodyReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.ContentLength = int64(len(body))
	return req, nil
}

func newBodyReader(body string) io.Reader {
	return strings.NewReader(body)
}
