// Package httpapi exposes the sync ledger over HTTP: identity registration,
// session issue/refresh, and authenticated batch submission.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vyapaars/syncledger/internal/logging"
	"github.com/vyapaars/syncledger/internal/server/services"
)

// Server wires the HTTP surface to the identity and ledger services.
type Server struct {
	address    string
	identities *services.IdentityService
	ledger     *services.LedgerService
	logger     logging.Logger
}

// NewServer constructs the HTTP server front end.
func NewServer(address string, is *services.IdentityService, ls *services.LedgerService, l logging.Logger) *Server {
	return &Server{
		address:    address,
		identities: is,
		ledger:     ls,
		logger:     l.With("module", "httpapi"),
	}
}

// Handler returns an http.Handler with all routes registered. Routes under
// requireAuth demand a valid bearer token; everything else is public.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /identities", s.handleRegister)
	mux.HandleFunc("POST /sessions", s.handleLogin)
	mux.HandleFunc("POST /sessions/refresh", s.handleRefresh)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /sync/batch", s.requireAuth(http.HandlerFunc(s.handleSyncBatch)))
	mux.Handle("GET /identities/me", s.requireAuth(http.HandlerFunc(s.handleMe)))
	return s.withRequestID(mux)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
