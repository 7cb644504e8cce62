// Package server is the inbound HTTP surface: the call-event webhook and
// the instruction endpoint, plus a health probe. Handlers never panic
// outward; anything unexpected becomes a 500 internal_error.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chr1sbest/switchboard/internal/config"
	"github.com/chr1sbest/switchboard/internal/dispatch"
	"github.com/chr1sbest/switchboard/internal/logger"
)

// InstructionHandler runs one inbound instruction to a response.
type InstructionHandler interface {
	Handle(ctx context.Context, req dispatch.Request) dispatch.Response
}

// Server holds the HTTP handlers and their collaborators. Settings are
// read through a func so config hot reloads apply per request.
type Server struct {
	settings   func() *config.Config
	controller InstructionHandler
	calls      *dispatch.CallState
	log        logger.Logger
	now        func() time.Time
}

// New creates a server.
func New(settings func() *config.Config, controller InstructionHandler, calls *dispatch.CallState, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Server{
		settings:   settings,
		controller: controller,
		calls:      calls,
		log:        log,
		now:        time.Now,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/retell/webhook", s.guard(s.handleWebhook))
	mux.HandleFunc("/retell/sync", s.guard(s.handleSync))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "not_found"})
	})
	return s.recoverer(mux)
}

// guard enforces auth then method. Auth runs first so a bad token never
// reaches request parsing, let alone a side effect.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false, "error": "unauthorized"})
			return
		}
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
			return
		}
		next(w, r)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	secret := s.settings().SharedToken
	if secret == "" {
		return false
	}
	token := r.Header.Get("x-retell-token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	return token == secret
}

// recoverer converts a panicking handler into a 500. The no-crash
// guarantee for the voice surface lives here.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("handler panicked",
					logger.F("path", r.URL.Path),
					logger.F("panic", rec))
				writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "internal_error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method_not_allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
