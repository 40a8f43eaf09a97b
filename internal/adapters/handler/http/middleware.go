package http

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
	"github.com/vncsmyrnk/accounts/internal/metrics"
)

// Authenticate accepts only access tokens sent as "Authorization: Bearer <token>"
// and stores the resulting domain.AuthContext in the request context.
func Authenticate(codec ports.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				unauthorized(w)
				return
			}
			claims, err := codec.Parse(token)
			if err != nil || claims.Class != domain.TokenClassAccess {
				unauthorized(w)
				return
			}
			ctx := WithAuthContext(r.Context(), domain.AuthContext{
				UserID:  claims.Subject,
				IsAdmin: claims.IsAdmin,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := AuthContextFrom(r.Context())
		if !ok {
			unauthorized(w)
			return
		}
		if !ac.IsAdmin {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}

// RequestLogger logs every request and records its duration by route pattern.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			duration := time.Since(start)
			metrics.HTTPRequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).Observe(duration.Seconds())

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", duration),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_ip", clientIP(r)),
			)
		})
	}
}

// RateLimiter is a per-client token bucket. Clients idle for longer than
// idleTTL are forgotten.
type RateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	perMinute int
	clients   map[string]*client
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		limit:     rate.Limit(float64(perMinute) / 60.0),
		burst:     burst,
		perMinute: perMinute,
		clients:   make(map[string]*client),
		idleTTL:   10 * time.Minute,
		now:       time.Now,
	}
}

func (l *RateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idleTTL {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > l.idleTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := l.limiterFor(clientIP(r))
		reservation := limiter.Reserve()
		if delay := reservation.Delay(); !reservation.OK() || delay > 0 {
			reservation.Cancel()
			retryAfter := int(delay.Seconds()) + 1
			if retryAfter > 60 || !reservation.OK() {
				retryAfter = 60
			}
			metrics.RateLimitedRequestsTotal.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.perMinute))
			w.Header().Set("X-RateLimit-Remaining", "0")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
			return
		}
		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.perMinute))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the request address without port. RealIP runs earlier in
// the chain, so proxy headers are already reflected in RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
