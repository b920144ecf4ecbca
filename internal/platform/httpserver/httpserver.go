package httpserver

import (
	"net/http"
	"time"
)

// New builds the engine's HTTP server. The read-header timeout bounds
// slow-header clients; per-request deadlines (the position-fix wait in
// particular) are owned by the handlers.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
