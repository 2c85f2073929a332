// Package web serves the diff engine over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ritzau/pdg-diff/pkg/engine"
	"github.com/ritzau/pdg-diff/pkg/loader"
	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/matching"
	"github.com/ritzau/pdg-diff/pkg/pubsub"
	"github.com/ritzau/pdg-diff/pkg/recovery"
)

// maxBodyBytes bounds a diff request
const maxBodyBytes = 32 << 20

// ResultSource provides the latest result of a watch session
type ResultSource interface {
	Latest() *engine.Result
}

// DiffRequest is the body of POST /api/diff. Each document is either a JSON
// object or a string holding the JSON or YAML text.
type DiffRequest struct {
	Old json.RawMessage `json:"old"`
	New json.RawMessage `json:"new"`
}

// StrategiesResponse lists the accepted strategy names
type StrategiesResponse struct {
	Matching []matching.Strategy `json:"matching"`
	Recovery []recovery.Strategy `json:"recovery"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	opts      engine.Options
	engine    *engine.Engine
	results   ResultSource
	publisher pubsub.Publisher

	mu     sync.RWMutex
	latest *engine.Result // last result of POST /api/diff
}

// NewServer creates a new web server. results and publisher are optional and
// come from a watch session.
func NewServer(opts engine.Options, results ResultSource, publisher pubsub.Publisher) (*Server, error) {
	e, err := engine.New(opts)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    mux.NewRouter(),
		opts:      e.Options(),
		engine:    e,
		results:   results,
		publisher: publisher,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(accessLog)

	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	s.router.HandleFunc("/api/diff", s.handleDiff).Methods("POST")
	s.router.HandleFunc("/api/result", s.handleResult).Methods("GET")
	s.router.HandleFunc("/api/strategies", s.handleStrategies).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Handler exposes the router, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StrategiesResponse{
		Matching: matching.Strategies(),
		Recovery: recovery.Strategies(),
	})
}

// engineFor applies the strategy overrides of a request
func (s *Server) engineFor(r *http.Request) (*engine.Engine, error) {
	strategy := r.URL.Query().Get("strategy")
	rec := r.URL.Query().Get("recovery")
	if strategy == "" && rec == "" {
		return s.engine, nil
	}

	opts := s.opts
	if strategy != "" {
		opts.Strategy = matching.Strategy(strategy)
	}
	if rec != "" {
		opts.Recovery = recovery.Strategy(rec)
	}
	return engine.New(opts)
}

// documentBytes unwraps a document given as a JSON string
func documentBytes(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("document is missing")
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
		return []byte(text), nil
	}
	return raw, nil
}

func loadDocument(ctx context.Context, label string, raw json.RawMessage) (*loader.Program, error) {
	data, err := documentBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	src := &loader.BytesSource{Label: label, Data: data}
	return src.Load(ctx)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	e, err := s.engineFor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req DiffRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to decode request: %w", err))
		return
	}

	before, err := loadDocument(ctx, "old", req.Old)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	after, err := loadDocument(ctx, "new", req.New)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := e.Diff(ctx, before, after)
	if err != nil {
		status := http.StatusInternalServerError
		if engine.IsCancelled(err) {
			status = http.StatusServiceUnavailable
		}
		logging.WarnContext(ctx, "diff failed", "error", err)
		writeError(w, status, err)
		return
	}

	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	noteDiff(ctx, result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	var result *engine.Result
	if s.results != nil {
		result = s.results.Latest()
	}
	if result == nil {
		s.mu.RLock()
		result = s.latest
		s.mu.RUnlock()
	}

	if result == nil {
		writeError(w, http.StatusNotFound, errors.New("no result yet"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if s.publisher == nil || (topic != pubsub.TopicStatus && topic != pubsub.TopicResult) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no such topic %q", topic))
		return
	}

	// Create subscription
	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer sub.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	flusher, _ := w.(http.Flusher)

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher != nil {
		flusher.Flush()
	}

	// Stream events
	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.DebugContext(r.Context(), "subscriber went away", "topic", topic, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Run serves on the given port until the context is cancelled
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx so that open event streams let go on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	return nil
}
