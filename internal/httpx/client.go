// Package httpx builds the outbound HTTP client used for identity-provider
// traffic: discovery documents, signing-key sets and UserInfo calls.
package httpx

import (
	"net/http"
	"time"
)

// DefaultTimeout caps a whole outbound exchange, connect through body
// read. Identity-provider calls sit on the request path, so a hung IdP
// must fail fast rather than pin request handlers.
const DefaultTimeout = 10 * time.Second

// NewClient returns a client with the given total timeout and proxy
// selection. A non-positive timeout falls back to DefaultTimeout; a nil
// proxy config defers to the process environment.
func NewClient(timeout time.Duration, proxy *ProxyConfig) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: ProxyFunc(proxy),
		},
	}
}
