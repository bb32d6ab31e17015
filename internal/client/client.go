// Package client holds the HTTP facades over the upstream auth, subscription,
// role and user-profile services. Each facade owns a single bounded-timeout
// http.Client and speaks the narrow contract this service consumes; nothing
// here retries, the caller sees one attempt succeed or fail.
package client

import (
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
