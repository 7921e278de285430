// Package server is the thin HTTP edge over the core services: request
// framing, bearer-token extraction, and error-code mapping. No business
// rule lives here.
package server

import (
	"log/slog"
	"net/http"

	"tagnet/backend/internal/identity"
	"tagnet/backend/internal/ingest"
	"tagnet/backend/internal/query"
	tagservice "tagnet/backend/internal/tag/service"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Verifier identity.Verifier
	Tags     *tagservice.TagService
	Query    *query.Service
	Pipeline *ingest.Pipeline
	Log      *slog.Logger
}

// Server exposes the tag and telemetry endpoints.
type Server struct {
	verifier identity.Verifier
	tags     *tagservice.TagService
	query    *query.Service
	pipeline *ingest.Pipeline
	log      *slog.Logger
	mux      *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		verifier: cfg.Verifier,
		tags:     cfg.Tags,
		query:    cfg.Query,
		pipeline: cfg.Pipeline,
		log:      cfg.Log,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// Ingestion; the gateway's own credential is verified upstream of this
	// process, so no user identity is resolved here.
	s.mux.Handle("/record", method(http.MethodPost, http.HandlerFunc(s.handleRecord)))

	// Reads run with an optional identity: the resolver decides whether the
	// deployment serves anonymous callers.
	s.mux.Handle("/get", method(http.MethodGet, s.withIdentity(s.handleGet)))

	s.mux.Handle("/claim", method(http.MethodPost, s.withIdentity(s.handleClaim)))
	s.mux.Handle("/unclaim", method(http.MethodPost, s.withIdentity(s.handleUnclaim)))
	s.mux.Handle("/update", method(http.MethodPost, s.withIdentity(s.handleUpdate)))
	s.mux.Handle("/share", method(http.MethodPost, s.withIdentity(s.handleShare)))
	s.mux.Handle("/unshare", method(http.MethodPost, s.withIdentity(s.handleUnshare)))
	s.mux.Handle("/shared", method(http.MethodGet, s.withIdentity(s.handleShared)))
	s.mux.Handle("/user", method(http.MethodGet, s.withIdentity(s.handleUser)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"})
}

type identityHandler func(http.ResponseWriter, *http.Request, *identity.Identity)

// withIdentity resolves the caller's identity from the Authorization header.
// An absent or unverifiable credential yields a nil identity; each service
// decides whether anonymous access is allowed.
func (s *Server) withIdentity(next identityHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.verifier.Verify(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			s.log.Error("identity verification failed", "error", err)
			writeError(w, http.StatusInternalServerError, codeUnavailable, "verification failed")
			return
		}
		next(w, r, id)
	})
}

func method(want string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != want {
			writeError(w, http.StatusMethodNotAllowed, codeInvalidInput, "method not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}
