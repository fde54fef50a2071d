package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/policyforge/policyforge/internal/generation"
	"github.com/policyforge/policyforge/internal/logbook"
	"github.com/policyforge/policyforge/internal/policy"
)

const maxRequestBody = 1 << 20

// Server exposes the five generation routes over HTTP.
type Server struct {
	addr      string
	generator *Generator
	book      *logbook.Logbook

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// ServerOption customizes server construction.
type ServerOption func(*Server)

// WithServerLogbook records route activity to a session logbook.
func WithServerLogbook(book *logbook.Logbook) ServerOption {
	return func(s *Server) {
		s.book = book
	}
}

// NewServer prepares a backend server for a listen address.
func NewServer(addr string, generator *Generator, opts ...ServerOption) (*Server, error) {
	if addr == "" {
		return nil, fmt.Errorf("backend: listen address is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("backend: generator is required")
	}
	s := &Server{addr: addr, generator: generator}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Router builds the route table. Exposed so tests can drive handlers through
// httptest without binding a socket.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Post(generation.PathSubmitIntent, s.handleSubmitIntent)
	r.Post(generation.PathInitialPolicy, s.handleInitialPolicy)
	r.Post(generation.PathGenerateExamples, s.handleGenerateExamples)
	r.Post(generation.PathRefinePolicy, s.handleRefinePolicy)
	r.Post(generation.PathDerivedPolicies, s.handleDerivedPolicies)
	return r
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("backend: server already started")
	}
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("backend: listen %s: %w", s.addr, err)
	}
	server := &http.Server{
		Handler:     s.Router(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.listener = listener
	s.server = server
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.book.Error("serve error: %v", err)
		}
	}()
	s.book.Info("backend listening on %s", listener.Addr().String())
	return nil
}

// Addr returns the bound listen address, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	return server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmitIntent(w http.ResponseWriter, r *http.Request) {
	var req generation.IntentRequest
	if !s.decode(w, r, &req) {
		return
	}
	enriched, err := EnrichIntent(req)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "submit intent", err)
		return
	}
	writeJSON(w, http.StatusOK, enriched)
}

type generateRequest struct {
	Intent string `json:"intent"`
}

type machineEnvelope struct {
	Machine json.RawMessage `json:"machine"`
}

func (s *Server) handleInitialPolicy(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}
	machine, err := s.generator.InitialPolicy(r.Context(), req.Intent)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "generate initial policy", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]policy.Document{"machine": machine})
}

type exampleRequest struct {
	Policy json.RawMessage `json:"policy"`
}

func (s *Server) handleGenerateExamples(w http.ResponseWriter, r *http.Request) {
	var req exampleRequest
	if !s.decode(w, r, &req) {
		return
	}
	machine, err := policy.Decode(policy.VariantMachine, req.Policy)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "generate examples", err)
		return
	}
	examples, err := s.generator.Examples(r.Context(), machine)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "generate examples", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]policy.GeneratedExample{"examples": examples})
}

type refineRequest struct {
	Machine          json.RawMessage        `json:"machine"`
	ReviewedExamples []policy.ExampleRecord `json:"reviewed_examples"`
}

func (s *Server) handleRefinePolicy(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if !s.decode(w, r, &req) {
		return
	}
	machine, err := policy.Decode(policy.VariantMachine, req.Machine)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "refine policy", err)
		return
	}
	refined, err := s.generator.Refine(r.Context(), machine, req.ReviewedExamples)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "refine policy", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]policy.Document{"machine": refined})
}

func (s *Server) handleDerivedPolicies(w http.ResponseWriter, r *http.Request) {
	var req machineEnvelope
	if !s.decode(w, r, &req) {
		return
	}
	machine, err := policy.Decode(policy.VariantMachine, req.Machine)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "generate derived policies", err)
		return
	}
	public, moderator, err := s.generator.DerivedPolicies(r.Context(), machine)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "generate derived policies", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]policy.Document{
		"public":    public,
		"moderator": moderator,
		"machine":   machine,
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		s.fail(w, http.StatusBadRequest, "decode request", err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, status int, op string, err error) {
	s.book.Warn("%s: %v", op, err)
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
