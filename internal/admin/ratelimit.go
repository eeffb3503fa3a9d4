package admin

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/cache"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/metrics"
)

const (
	defaultRouteLabel = "default"
	maxTrackedClients = 10_000
	clientIdleTTL     = 10 * time.Minute
)

// RouteLimit is the per-client token bucket for paths under Prefix.
type RouteLimit struct {
	Prefix string
	RPS    rate.Limit
	Burst  int
}

// DefaultRouteLimits gives the listings that scan message tables a tighter
// budget than point lookups.
var DefaultRouteLimits = []RouteLimit{
	{Prefix: "/api/v1/missing-vaas", RPS: 1, Burst: 3},
	{Prefix: "/api/v1/message-counts", RPS: 2, Burst: 5},
	{Prefix: "/api/v1/lifecycles/", RPS: 5, Burst: 10},
}

var fallbackLimit = RouteLimit{Prefix: "", RPS: 10, Burst: 20}

// RateLimiter throttles read API clients per route.
type RateLimiter struct {
	routes  []RouteLimit
	buckets *cache.LRU[string, *rate.Limiter]
	logger  *slog.Logger
}

// NewRateLimiter matches routes in order; unmatched paths share a default
// budget. Idle client buckets expire, and the oldest are evicted once
// maxTrackedClients is reached.
func NewRateLimiter(logger *slog.Logger, routes ...RouteLimit) *RateLimiter {
	return &RateLimiter{
		routes:  routes,
		buckets: cache.NewLRU[string, *rate.Limiter](maxTrackedClients, clientIdleTTL),
		logger:  logger.With("component", "admin_ratelimit"),
	}
}

func (rl *RateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := rl.route(r.URL.Path)
		label := route.Prefix
		if label == "" {
			label = defaultRouteLabel
		}
		client := clientIP(r)

		if !rl.bucket(label+"|"+client, route).Allow() {
			metrics.AdminRateLimited.WithLabelValues(label).Inc()
			rl.logger.Warn("read API rate limit exceeded",
				"route", label,
				"path", r.URL.Path,
				"client_ip", client,
			)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) route(path string) RouteLimit {
	for _, rt := range rl.routes {
		if strings.HasPrefix(path, rt.Prefix) {
			return rt
		}
	}
	return fallbackLimit
}

// bucket returns the client's limiter, refreshing its idle deadline.
func (rl *RateLimiter) bucket(key string, route RouteLimit) *rate.Limiter {
	lim, ok := rl.buckets.Get(key)
	if !ok {
		lim = rate.NewLimiter(route.RPS, route.Burst)
	}
	rl.buckets.Put(key, lim)
	return lim
}

// Clients is the number of tracked client buckets.
func (rl *RateLimiter) Clients() int {
	return rl.buckets.Len()
}

// clientIP takes the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
