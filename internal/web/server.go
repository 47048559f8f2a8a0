package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mailsense/mailsense/internal/analysis"
	"github.com/mailsense/mailsense/internal/config"
	"github.com/mailsense/mailsense/internal/inbox"
	"github.com/mailsense/mailsense/internal/logging"
	"github.com/mailsense/mailsense/internal/store"
)

const (
	defaultRateWindow = time.Minute
	jobRetention      = time.Hour
)

type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) filterRecent(times []time.Time, windowStart time.Time) []time.Time {
	n := 0
	for _, t := range times {
		if t.After(windowStart) {
			times[n] = t
			n++
		}
	}
	return times[:n]
}

// Allow records a request for key and reports whether it is within the limit.
// A limit of zero or less disables limiting.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := rl.filterRecent(rl.requests[key], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false
	}
	rl.requests[key] = append(recent, now)
	return true
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}

		rl.mu.Lock()
		windowStart := time.Now().Add(-rl.window)
		for key, times := range rl.requests {
			recent := rl.filterRecent(times, windowStart)
			if len(recent) == 0 {
				delete(rl.requests, key)
			} else {
				rl.requests[key] = recent
			}
		}
		rl.mu.Unlock()
	}
}

// Scanner fetches recent messages from a mailbox. *inbox.Monitor satisfies it.
type Scanner interface {
	Scan(ctx context.Context, days, limit int) ([]*inbox.Message, error)
}

// Server exposes the analysis pipeline over a JSON API
type Server struct {
	config      *config.Config
	analyzer    *analysis.Analyzer
	store       *store.Store // nil: results are returned but not persisted
	scanner     Scanner      // nil: inbox scanning not configured
	logger      *slog.Logger
	httpServer  *http.Server
	rateLimiter *RateLimiter
	jobManager  *JobManager
	now         func() time.Time
}

// NewServer wires the API. st and scanner may be nil.
func NewServer(cfg *config.Config, analyzer *analysis.Analyzer, st *store.Store, scanner Scanner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		config:      cfg,
		analyzer:    analyzer,
		store:       st,
		scanner:     scanner,
		logger:      logger,
		rateLimiter: NewRateLimiter(cfg.Server.RateLimitPerMinute, defaultRateWindow),
		jobManager:  NewJobManager(),
		now:         time.Now,
	}
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Start serves the API until Shutdown is called
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server and cancels running scans
func (s *Server) Shutdown(ctx context.Context) error {
	s.jobManager.CancelAll()
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/emails", s.handleListEmails)
		r.Get("/emails/{emailID}", s.handleGetEmail)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/jobs/active", s.handleJobActive)
		r.Get("/jobs/{jobID}", s.handleJobStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/analyze/batch", s.handleAnalyzeBatch)
			r.Post("/scan", s.handleScan)
			r.Post("/jobs/{jobID}/cancel", s.handleJobCancel)
		})
	})

	return r
}

// rateLimit rejects clients exceeding the per-minute request budget
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", fmt.Sprint(int(defaultRateWindow.Seconds())))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please wait before retrying")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requestLogger logs one line per request at info level
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Responses carry mail content
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
