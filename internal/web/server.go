package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vbonduro/dreamspace/internal/catalog"
	"github.com/vbonduro/dreamspace/internal/logging"
	"github.com/vbonduro/dreamspace/internal/metrics"
	"github.com/vbonduro/dreamspace/internal/service"
)

// fileOpener serves persisted artifacts for GET /files/{name}.
type fileOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

const defaultMaxBody = 20 << 20

type Options struct {
	MaxUploadSize  int64
	MaxCanvasSize  int64
	MetricsEnabled bool
}

type Server struct {
	projects    *service.ProjectService
	generations *service.GenerationService
	uploads     *service.UploadService
	furniture   *service.FurnitureService
	files       fileOpener
	catalog     *catalog.Catalog
	opts        Options
	mux         *http.ServeMux
	logger      *slog.Logger
}

func NewServer(
	projects *service.ProjectService,
	generations *service.GenerationService,
	uploads *service.UploadService,
	furniture *service.FurnitureService,
	files fileOpener,
	cat *catalog.Catalog,
	opts Options,
	logger *slog.Logger,
) *Server {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxBody
	}
	if opts.MaxCanvasSize <= 0 {
		opts.MaxCanvasSize = defaultMaxBody
	}
	s := &Server{
		projects:    projects,
		generations: generations,
		uploads:     uploads,
		furniture:   furniture,
		files:       files,
		catalog:     cat,
		opts:        opts,
		mux:         http.NewServeMux(),
		logger:      logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.opts.MetricsEnabled {
		s.mux.Handle("GET /metrics", promhttp.Handler())
	}

	s.mux.HandleFunc("POST /projects", s.handleCreateProject)
	s.mux.HandleFunc("GET /projects", s.handleListProjects)
	s.mux.HandleFunc("GET /projects/{id}", s.handleGetProject)
	s.mux.HandleFunc("PATCH /projects/{id}", s.handleUpdateProject)
	s.mux.HandleFunc("PUT /projects/{id}", s.handleUpdateProject)
	s.mux.HandleFunc("DELETE /projects/{id}", s.handleDeleteProject)

	s.mux.HandleFunc("POST /projects/{id}/furniture", s.handleAddFurniture)
	s.mux.HandleFunc("PATCH /projects/{id}/furniture/{entry_id}", s.handleUpdateFurniture)
	s.mux.HandleFunc("DELETE /projects/{id}/furniture/{entry_id}", s.handleRemoveFurniture)

	s.mux.HandleFunc("POST /generate", s.handleGenerate)
	s.mux.HandleFunc("POST /projects/{id}/generate", s.handleGenerateForProject)
	s.mux.HandleFunc("GET /projects/{id}/generations", s.handleListGenerations)
	s.mux.HandleFunc("GET /generations/{id}", s.handleGetGeneration)

	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("POST /analyze", s.handleAnalyze)
	s.mux.HandleFunc("GET /files/{name}", s.handleGetFile)

	s.mux.HandleFunc("POST /generate-furniture", s.handleGenerateFurniture)
	s.mux.HandleFunc("GET /furniture-library", s.handleFurnitureLibrary)

	s.mux.HandleFunc("POST /suggest-style", s.handleSuggestStyle)
	s.mux.HandleFunc("GET /catalog", s.handleCatalog)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self' data:; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// requestID reuses the caller's X-Request-Id or generates one, and echoes it
// back on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" || len(id) > 128 {
			id = newRequestID()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func newRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b)
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		// r.Pattern is filled in by the mux; unmatched requests share one label.
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Observe(elapsed.Seconds())

		logging.FromContext(r.Context(), logger).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID(requestLogger(s.logger, securityHeaders(s.mux))).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "healthy", "service": "dreamspace"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.catalog)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
