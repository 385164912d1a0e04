package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"postloop/backend/internal/config"
	"postloop/backend/internal/debate"
	"postloop/backend/internal/learning"
	"postloop/backend/internal/observability"
	"postloop/backend/internal/social"
)

type Server struct {
	cfg           config.Config
	db            *pgxpool.Pool
	engine        *debate.Engine
	learner       *learning.Learner
	publisher     social.Publisher
	logger        *observability.Logger
	metrics       *observability.APIMetrics
	debateLimiter *ipRateLimiter
}

func New(cfg config.Config, db *pgxpool.Pool, engine *debate.Engine, learner *learning.Learner, publisher social.Publisher, logger *observability.Logger, metrics *observability.APIMetrics) *Server {
	debateLimit := cfg.DebateRateLimit
	if debateLimit <= 0 {
		debateLimit = 10
	}
	return &Server{
		cfg:           cfg,
		db:            db,
		engine:        engine,
		learner:       learner,
		publisher:     publisher,
		logger:        logger,
		metrics:       metrics,
		debateLimiter: newIPRateLimiter(debateLimit, time.Minute),
	}
}

type ipRateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]rateLimitBucket
}

type rateLimitBucket struct {
	count       int
	windowStart time.Time
}

func newIPRateLimiter(limit int, window time.Duration) *ipRateLimiter {
	return &ipRateLimiter{
		limit:   limit,
		window:  window,
		buckets: map[string]rateLimitBucket{},
	}
}

func (rl *ipRateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[key]
	if !exists || now.Sub(bucket.windowStart) >= rl.window {
		rl.buckets[key] = rateLimitBucket{
			count:       1,
			windowStart: now,
		}
		rl.gc(now)
		return true
	}

	if bucket.count >= rl.limit {
		return false
	}
	bucket.count++
	rl.buckets[key] = bucket
	return true
}

func (rl *ipRateLimiter) gc(now time.Time) {
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.windowStart) >= rl.window*2 {
			delete(rl.buckets, key)
		}
	}
}

func (s *Server) debateRateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := requestClientIP(r)
		if !s.debateLimiter.allow(clientIP, time.Now()) {
			s.metrics.IncRateLimited("debate")
			writeTooManyRequests(w, "debate rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(wrapped, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		s.metrics.ObserveHTTPRequest(route, r.Method, wrapped.Status(), time.Since(started))
	})
}

func requestClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if strings.TrimSpace(r.RemoteAddr) != "" {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return "unknown"
}

// tenantFrom resolves the tenant for a request. No auth layer exists; the
// header is a routing key, not an identity claim.
func (s *Server) tenantFrom(r *http.Request) string {
	tenant := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
	if tenant == "" {
		return s.cfg.DefaultTenant
	}
	return tenant
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(s.cfg.RequestBodyMaxBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Tenant-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(s.metrics.Render()))
	})

	r.With(s.debateRateLimitMiddleware).Post("/content/debate", s.handleRunDebate)
	r.Post("/posts/{id}/publish", s.handlePublishPost)

	r.Post("/feedback", s.handleIngestFeedback)
	r.Get("/insights", s.handleGetInsights)
	r.Get("/preferences", s.handleGetPreferences)
	r.Put("/preferences/thresholds", s.handleUpdateThresholds)

	return r
}
