package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/logging"
	"github.com/johnrirwin/journalfeed/internal/pages"
)

const (
	// DefaultRequestTimeout bounds a single /api request, including every
	// upstream call it makes.
	DefaultRequestTimeout = 90 * time.Second

	// writeGrace is the time left after the request deadline to encode the
	// failed result.
	writeGrace = 10 * time.Second
)

// Options toggles the optional parts of the HTTP surface.
type Options struct {
	EnableManualRefresh bool
	AllowedOrigins      []string
	RequestTimeout      time.Duration
}

// Server is the JSON backend the journal site calls. Each request gets its
// own page controller so concurrent requests never supersede each other.
type Server struct {
	deps    pages.Deps
	opts    Options
	logger  *logging.Logger
	started time.Time
	server  *http.Server
}

func New(deps pages.Deps, opts Options, logger *logging.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{
		deps:    deps,
		opts:    opts,
		logger:  logger,
		started: time.Now(),
	}
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: opts.RequestTimeout + writeGrace,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requestDeadline)
		r.Get("/home", s.handleHome)
		r.Get("/volumes", s.handleVolumes)
		r.Get("/volumes/{id}", s.handleVolumeDetail)
		r.Get("/articles/{id}", s.handleArticleDetail)
		r.Get("/connectivity", s.handleConnectivity)
		r.Get("/system", s.handleSystem)

		r.Group(func(r chi.Router) {
			r.Use(s.requireManualRefresh)
			r.Post("/cache/invalidate", s.handleInvalidate)
			r.Post("/volumes/reload", s.handleReloadVolumes)
		})
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) Start(addr string) error {
	s.server.Addr = addr
	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) string {
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("HTTP request", logging.WithFields(map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}))
	})
}

// requestDeadline cancels the page load before the server's write deadline
// so a long article search still gets its failure written.
func (s *Server) requestDeadline(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireManualRefresh(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.opts.EnableManualRefresh {
			s.writeError(w, http.StatusForbidden, "manual refresh is disabled")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	feeds, err := journal.ParseFeeds(r.URL.Query().Get("sections"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := pages.NewHomepage(s.deps).LoadAggregatedFeeds(r.Context(), feeds)
	writeResult(s, w, res)
}

func (s *Server) handleVolumes(w http.ResponseWriter, r *http.Request) {
	force := s.opts.EnableManualRefresh && queryBool(r, "force")
	res := pages.NewVolumesList(s.deps).Load(r.Context(), force)
	writeResult(s, w, res)
}

func (s *Server) handleVolumeDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	order, err := journal.ParseArticleOrder(r.URL.Query().Get("sort"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := pages.NewVolumeDetail(s.deps).LoadEntity(r.Context(), id)
	if res.Status != pages.StatusFailed {
		res.Value.Detail.Articles = journal.SortArticles(res.Value.Detail.Articles, order)
	}
	writeResult(s, w, res)
}

func (s *Server) handleArticleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	res := pages.NewArticleDetail(s.deps).LoadEntity(r.Context(), id)
	writeResult(s, w, res)
}

func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	conn := pages.NewVolumesList(s.deps).CheckConnectivity(r.Context())
	status := http.StatusOK
	if !conn.Online {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, conn)
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	res := pages.NewSystemStatus(s.deps).Load(r.Context())
	writeResult(s, w, res)
}

type invalidateRequest struct {
	Keys []string `json:"keys"`
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	s.deps.Cache.Clear(r.Context(), req.Keys...)
	s.logger.Info("Cache invalidated", logging.WithFields(map[string]interface{}{
		"keys":    len(req.Keys),
		"backend": s.deps.Cache.Backend(),
	}))

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"cleared": req.Keys,
	})
}

func (s *Server) handleReloadVolumes(w http.ResponseWriter, r *http.Request) {
	res := pages.NewVolumesList(s.deps).ForceReload(r.Context())
	writeResult(s, w, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"cache":  s.deps.Cache.Backend(),
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

// writeResult renders a page result. Failed loads map their category to an
// HTTP status; partial and stale loads are still 200.
func writeResult[T any](s *Server, w http.ResponseWriter, res pages.Result[T]) {
	status := http.StatusOK
	if res.Status == pages.StatusFailed && res.Err != nil {
		status = statusForCategory(res.Err.Category)
	}
	s.writeJSON(w, status, res)
}

func statusForCategory(c pages.Category) int {
	switch c {
	case pages.CategoryNotFound:
		return http.StatusNotFound
	case pages.CategoryConnectivity:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("Failed to write response", logging.WithField("error", err.Error()))
	}
}
