// Package health exposes the builder's liveness and readiness over
// HTTP, in the JSON status-endpoint style the rest of this codebase's
// ancestry uses for its /health endpoint.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status is the JSON body served at /healthz and /readyz.
type Status struct {
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
	Detail    string    `json:"detail,omitempty"`
}

// Checker reports whether a dependency the builder relies on
// (RPC client, nullifier store, root watcher) is currently healthy.
type Checker func() error

// Server tracks liveness (the process is running its main loops) and
// readiness (every registered Checker currently succeeds) separately,
// mirroring the liveness/readiness split Kubernetes expects.
type Server struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	alive    bool
}

// NewServer constructs a Server that reports alive once Start is called.
func NewServer() *Server {
	return &Server{checkers: make(map[string]Checker)}
}

// Register adds a named readiness check. Safe to call before or after
// the server starts serving.
func (s *Server) Register(name string, c Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = c
}

// Start marks the server as alive. Call once the main event loops
// (pool, watcher, payload builder) have been launched.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = true
}

// Handler returns an http.Handler serving /healthz (liveness) and
// /readyz (readiness, runs every registered Checker).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.serveLiveness)
	mux.HandleFunc("/readyz", s.serveReadiness)
	return mux
}

func (s *Server) serveLiveness(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	alive := s.alive
	s.mu.RUnlock()

	status := Status{CheckedAt: time.Now()}
	if alive {
		status.Status = "ok"
		writeJSON(w, http.StatusOK, status)
		return
	}
	status.Status = "starting"
	writeJSON(w, http.StatusServiceUnavailable, status)
}

func (s *Server) serveReadiness(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for name, c := range s.checkers {
		checkers[name] = c
	}
	s.mu.RUnlock()

	for name, check := range checkers {
		if err := check(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, Status{
				Status:    "degraded",
				CheckedAt: time.Now(),
				Detail:    name + ": " + err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, Status{Status: "ok", CheckedAt: time.Now()})
}

func writeJSON(w http.ResponseWriter, code int, v Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
