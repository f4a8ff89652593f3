// Package api provides renami's local HTTP API.
// It lets a desktop shell or script drive rename batches, credential checks,
// settings and history over loopback.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/renami-app/renami/internal/app/renamer"
	"github.com/renami-app/renami/internal/domain"
	"github.com/renami-app/renami/internal/llm"
)

// Renamer is the batch orchestrator the API drives.
type Renamer interface {
	ProcessBatch(ctx context.Context, paths []string, onResult func(domain.RenameResult)) (domain.BatchSummary, error)
	Undo(ctx context.Context, id int64) (domain.HistoryEntry, error)
	IsProcessing() bool
	Stats() renamer.Stats
}

// Server is the renami HTTP API server.
type Server struct {
	renamer        Renamer
	settings       domain.Settings
	verifier       llm.Verifier
	history        domain.History // nil when history is disabled
	metricsEnabled bool
	version        string
	allowedOrigins map[string]bool // browser origins; empty rejects every Origin
	allowedHosts   map[string]bool // Host names accepted besides loopback
}

// NewServer creates a new API server.
func NewServer(r Renamer, s domain.Settings, v llm.Verifier) *Server {
	return &Server{renamer: r, settings: s, verifier: v, version: "dev"}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHistory enables the history routes.
func (s *Server) SetHistory(h domain.History) { s.history = h }

// SetAllowedOrigins sets the browser origins (scheme://host[:port]) allowed
// to call the API. Requests carrying any other Origin header are refused.
func (s *Server) SetAllowedOrigins(origins []string) {
	s.allowedOrigins = make(map[string]bool, len(origins))
	for _, o := range origins {
		if o = normalizeOrigin(o); o != "" {
			s.allowedOrigins[o] = true
		}
	}
}

// SetAllowedHosts adds Host header values accepted besides loopback names.
func (s *Server) SetAllowedHosts(hosts ...string) {
	if s.allowedHosts == nil {
		s.allowedHosts = make(map[string]bool)
	}
	for _, h := range hosts {
		if h = strings.ToLower(strings.Trim(strings.TrimSpace(h), "[]")); h != "" {
			s.allowedHosts[h] = true
		}
	}
}

// SetVersion sets the version reported by /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.originGuard)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"processing": s.renamer.IsProcessing(),
			"renamer":    s.renamer.Stats(),
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": s.version,
		})
	})

	r.Route("/api", func(r chi.Router) {
		// Batches run as long as their files take; only the quick routes
		// get a deadline.
		r.Post("/rename", s.handleRename)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/verify", s.handleVerify)
			r.Get("/settings", s.handleGetSettings)
			r.Patch("/settings", s.handlePatchSettings)
			r.Get("/providers", s.handleProviders)
			r.Get("/history", s.handleHistory)
			r.Post("/history/{id}/undo", s.handleUndo)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// originGuard refuses requests whose Host is not loopback or explicitly
// allowed (DNS rebinding) and requests from browser origins not on the
// allow-list. Allowed origins get CORS headers echoing that origin.
func (s *Server) originGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		if !s.hostAllowed(r.Host) {
			writeError(w, http.StatusForbidden, "host not allowed")
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			if !s.allowedOrigins[normalizeOrigin(origin)] {
				writeError(w, http.StatusForbidden, "origin not allowed")
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) hostAllowed(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	return s.allowedHosts[host]
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
}
