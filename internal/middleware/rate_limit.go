package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// DefaultAuthRateLimit allows 5 requests per minute per client address
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 5}
}

// RateLimitByIP throttles requests per client address inside this process.
// Each call creates an independent counter, so every route group wrapped
// with its own RateLimitByIP gets its own budget.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	limit := config.RequestsPerMinute
	if limit <= 0 {
		limit = DefaultAuthRateLimit().RequestsPerMinute
	}

	return httprate.Limit(
		limit,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests, please try again later")
		}),
	)
}
