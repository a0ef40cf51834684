package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the optional admin HTTP server exposing /metrics and /healthz.
// Addr empty means telemetry is disabled entirely; callers should not call
// ListenAndServe in that case.
type Server struct {
	httpServer *http.Server
	healthy    func() bool
}

// NewServer builds an admin server bound to addr. healthy reports current
// liveness for /healthz; it may be nil, in which case /healthz always
// reports ok.
func NewServer(addr string, healthy func() bool) *Server {
	mux := http.NewServeMux()
	s := &Server{healthy: healthy}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.healthy != nil && !s.healthy() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ListenAndServe starts the server in the current goroutine; callers
// typically run it in a background goroutine and use Shutdown to stop it.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
