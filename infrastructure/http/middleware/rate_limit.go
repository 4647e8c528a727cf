package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/fixora/authapi/application/port/inbound"
	domainerror "github.com/fixora/authapi/domain/error"
	"github.com/fixora/authapi/infrastructure/http/response"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

type RateLimitConfig struct {
	Attempts      int
	Window        time.Duration
	BlockDuration time.Duration
}

type RateLimitMiddleware struct {
	rateLimitService inbound.RateLimitService
	config           RateLimitConfig
	logger           logger.Logger
}

func NewRateLimitMiddleware(rateLimitService inbound.RateLimitService, config RateLimitConfig, log logger.Logger) *RateLimitMiddleware {
	if config.Attempts <= 0 {
		config.Attempts = 10
	}
	if config.Window <= 0 {
		config.Window = 15 * time.Minute
	}
	if config.BlockDuration <= 0 {
		config.BlockDuration = 30 * time.Minute
	}
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		config:           config,
		logger:           log,
	}
}

// RateLimit counts requests per route and client IP. Store failures let the
// request through.
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.rateLimitService == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		clientIP := ClientIP(r)
		key := fmt.Sprintf("%s:ip:%s", routeName(r), clientIP)

		isBlocked, err := m.rateLimitService.IsBlocked(ctx, key)
		if err != nil {
			m.logger.Error(ctx, "Failed to check block status", err, map[string]interface{}{
				"ip":  clientIP,
				"key": key,
			})
		}
		if isBlocked {
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_blocked", "MEDIUM", map[string]interface{}{
				"ip":        clientIP,
				"path":      r.URL.Path,
				"key":       key,
				"userAgent": r.UserAgent(),
			})
			m.reject(w, 0)
			return
		}

		allowed, err := m.rateLimitService.CheckLimit(ctx, key, m.config.Attempts, m.config.Window)
		if err != nil {
			m.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{
				"ip":  clientIP,
				"key": key,
			})
			allowed = true
		}

		if !allowed {
			if err := m.rateLimitService.Block(ctx, key, m.config.BlockDuration, "Rate limit exceeded"); err != nil {
				m.logger.Error(ctx, "Failed to block IP", err, map[string]interface{}{
					"ip":  clientIP,
					"key": key,
				})
			}
			logger.LogSecurityEvent(ctx, m.logger, "rate_limit_exceeded", "HIGH", map[string]interface{}{
				"ip":        clientIP,
				"path":      r.URL.Path,
				"key":       key,
				"userAgent": r.UserAgent(),
			})
			m.reject(w, m.config.Attempts)
			return
		}

		if err := m.rateLimitService.Increment(ctx, key, m.config.Window); err != nil {
			m.logger.Error(ctx, "Failed to increment rate limit", err, map[string]interface{}{
				"ip":  clientIP,
				"key": key,
			})
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) reject(w http.ResponseWriter, attempts int) {
	w.Header().Set("Retry-After", strconv.Itoa(int(m.config.BlockDuration.Seconds())))
	response.Error(w, domainerror.ErrRateLimitExceeded(attempts, m.config.Window.String()))
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if name := route.GetName(); name != "" {
			return name
		}
	}
	return strings.Trim(r.URL.Path, "/")
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
