// Package httpserver builds the admin API's HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// Header reads are bounded so a stalled client cannot hold an accept slot
// open indefinitely.
const readHeaderTimeout = 5 * time.Second

// New returns a server ready for ListenAndServe.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
