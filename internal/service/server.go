// Package service exposes rp-preproc processing over HTTP: payload bundles
// from the CLI and single xUnit files imported straight into Report Portal.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"rppreproc/internal/logging"
	"rppreproc/internal/rp"
)

const (
	// DefaultWorkers caps concurrent processing requests.
	DefaultWorkers = 4

	unhandledMessage = "An unhandled exception occurred."
	shutdownTimeout  = 10 * time.Second
	maxMemory        = 32 << 20
)

// Server routes and handles rp-preproc REST requests.
type Server struct {
	router    *mux.Router
	sem       *semaphore.Weighted
	tmpBase   string
	debug     bool
	logger    *slog.Logger
	rpOptions []rp.Option
}

// Option configures a Server.
type Option func(*Server)

// WithWorkers sets how many requests may process at once.
func WithWorkers(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(n)
		}
	}
}

// WithTempBase sets the parent of per-request temp dirs.
func WithTempBase(dir string) Option {
	return func(s *Server) { s.tmpBase = dir }
}

// WithDebug includes error details in 500 replies.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRPOptions passes client options to every Report Portal client the
// server builds.
func WithRPOptions(opts ...rp.Option) Option {
	return func(s *Server) { s.rpOptions = append(s.rpOptions, opts...) }
}

// New returns a Server with its routes registered.
func New(opts ...Option) *Server {
	s := &Server{
		router: mux.NewRouter(),
		sem:    semaphore.NewWeighted(DefaultWorkers),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}

	s.router.HandleFunc("/hello", s.hello).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/process/payload/", s.limit(s.processPayload)).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/process/xunit/", s.limit(s.importXunit)).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/process/xunit/zipped", s.limit(s.importZipped)).Methods(http.MethodPost)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 30 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) hello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "hello, world")
}

// limit holds a worker slot for the duration of h.
func (s *Server) limit(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.sem.Acquire(r.Context(), 1); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "request cancelled while waiting for a worker"})
			return
		}
		defer s.sem.Release(1)
		h(w, r)
	}
}

// badRequest is returned by handlers for caller mistakes.
type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func badRequestf(format string, args ...any) error {
	return &badRequest{fmt.Errorf(format, args...)}
}

// fail writes a 400 for bad requests and a 500 for anything else.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var br *badRequest
	if errors.As(err, &br) {
		s.logger.WarnContext(r.Context(), "bad request", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	s.logger.ErrorContext(r.Context(), unhandledMessage, "path", r.URL.Path, "error", err)
	body := map[string]string{"message": unhandledMessage}
	if s.debug {
		body["error"] = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
