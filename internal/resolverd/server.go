// Package resolverd serves field lookups from a long-lived process over a
// local unix socket, and provides the client that prefers it.
package resolverd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/netutil"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/fields"
	"git.home.luguber.info/inful/lamd/internal/logfields"
	"git.home.luguber.info/inful/lamd/internal/metrics"
)

// Routes.
const (
	FieldsPath  = "/v1/fields"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"

	RequestIDHeader = "X-Request-ID"
)

// FieldsRequest is the body of POST /v1/fields.
type FieldsRequest struct {
	Document    string   `json:"document"`
	Fields      []string `json:"fields"`
	ConfigFiles []string `json:"config_files"`
	Workdir     string   `json:"workdir,omitempty"`
	// Env is the caller's environment. $VAR references in values expand
	// against it, never against the server's own environment.
	Env map[string]string `json:"env,omitempty"`
}

// FieldsResponse carries formatted values keyed by field name.
type FieldsResponse struct {
	RequestID string            `json:"request_id"`
	Values    map[string]string `json:"values,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Options configure a Server.
type Options struct {
	// IdleTimeout stops the server when no request arrives for this long. Zero disables it.
	IdleTimeout time.Duration
	// MaxConns bounds concurrent connections. Zero means unbounded.
	MaxConns int
	// Registry receives the service metrics. A private registry is used when nil.
	Registry *prom.Registry
}

// Server answers field requests from a shared parse cache.
type Server struct {
	opts     Options
	router   *chi.Mux
	server   *http.Server
	cache    *Cache
	resolver *fields.Resolver
	recorder metrics.Recorder
	registry *prom.Registry
	lastSeen atomic.Int64
}

// NewServer builds a server and its routes.
func NewServer(opts Options) *Server {
	reg := opts.Registry
	if reg == nil {
		reg = prom.NewRegistry()
	}
	rec := metrics.NewPrometheusRecorder(reg)
	cache := NewCache(rec)

	s := &Server{
		opts:     opts,
		router:   chi.NewRouter(),
		cache:    cache,
		resolver: fields.NewResolver(cache),
		recorder: rec,
		registry: reg,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.touch()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestID)
	s.router.Use(s.observe)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(5 * time.Second))

	s.router.Get(HealthPath, s.handleHealth)
	s.router.Post(FieldsPath, s.handleFields)
	s.router.Method(http.MethodGet, MetricsPath, metrics.HTTPHandler(s.registry))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Cache returns the parse cache.
func (s *Server) Cache() *Cache { return s.cache }

type ctxKey struct{}

// RequestIDFrom returns the request id assigned by the server middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.touch()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		d := time.Since(start)

		result := metrics.ResultOK
		switch {
		case ww.Status() == http.StatusNotFound:
			result = metrics.ResultNotFound
		case ww.Status() >= http.StatusBadRequest:
			result = metrics.ResultError
		}
		s.recorder.ObserveRequestDuration(r.URL.Path, d)
		s.recorder.IncRequest(r.URL.Path, result)
		slog.Debug("Resolver request",
			logfields.RequestID(RequestIDFrom(r.Context())),
			slog.String("route", r.URL.Path),
			slog.Int("status", ww.Status()),
			logfields.DurationMS(float64(d.Microseconds())/1000))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	id := RequestIDFrom(r.Context())
	var req FieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, FieldsResponse{RequestID: id, Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Document == "" || len(req.Fields) == 0 {
		writeJSON(w, http.StatusBadRequest, FieldsResponse{RequestID: id, Error: "document and fields are required"})
		return
	}

	doc := inDir(req.Workdir, req.Document)
	var configs []string
	if req.ConfigFiles != nil {
		configs = make([]string, len(req.ConfigFiles))
		for i, c := range req.ConfigFiles {
			configs[i] = inDir(req.Workdir, c)
		}
	} else {
		for _, c := range fields.DefaultConfigFiles {
			configs = append(configs, inDir(req.Workdir, c))
		}
	}

	vals, err := s.resolver.ResolveMany(req.Fields, doc, configs)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, lerrors.ErrDocumentNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, FieldsResponse{RequestID: id, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, FieldsResponse{RequestID: id, Values: fields.FormatAllEnv(vals, fields.EnvFrom(req.Env))})
}

func inDir(dir, p string) string {
	if dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (s *Server) idleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastSeen.Load()))
}

// checkIdle is run by the scheduler.
func (s *Server) checkIdle(stop context.CancelFunc) {
	if idle := s.idleFor(); idle >= s.opts.IdleTimeout {
		slog.Info("Resolver idle, shutting down", slog.Duration("idle", idle))
		stop()
	}
}

func idleCheckInterval(idle time.Duration) time.Duration {
	if iv := idle / 4; iv > time.Second {
		return iv
	}
	return time.Second
}

// Serve handles connections on ln until ctx is cancelled or the idle timeout
// elapses.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.opts.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConns)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if s.opts.IdleTimeout > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(idleCheckInterval(s.opts.IdleTimeout)),
			gocron.NewTask(s.checkIdle, cancel),
			gocron.WithName("resolver-idle-check"),
		); err != nil {
			return fmt.Errorf("failed to create idle check job: %w", err)
		}
	}
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			slog.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
	}()

	go s.cache.Run(ctx)
	defer func() { _ = s.cache.Close() }()

	s.touch()
	errCh := make(chan error, 1)
	go func() { errCh <- s.server.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown resolver: %w", err)
	}
	<-errCh
	return nil
}

// ListenAndServe serves on the unix socket at path. A stale socket file left
// by a dead server is replaced; a live one is an error.
func (s *Server) ListenAndServe(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return lerrors.FileSystemError("create socket directory", err)
	}
	if _, err := os.Stat(path); err == nil {
		if conn, dialErr := net.DialTimeout("unix", path, 500*time.Millisecond); dialErr == nil {
			_ = conn.Close()
			return lerrors.New(lerrors.CategoryService, lerrors.SeverityFatal, "resolver already running").
				WithContext("path", path)
		}
		if err := os.Remove(path); err != nil {
			return lerrors.FileSystemError("remove stale socket", err)
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return lerrors.Wrap(err, lerrors.CategoryService, lerrors.SeverityFatal, "listen on resolver socket").
			WithContext("path", path)
	}
	defer func() { _ = os.Remove(path) }()
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return lerrors.FileSystemError("restrict socket permissions", err)
	}

	slog.Info("Resolver listening", logfields.Socket(path), slog.Duration("idle_timeout", s.opts.IdleTimeout))
	return s.Serve(ctx, ln)
}
