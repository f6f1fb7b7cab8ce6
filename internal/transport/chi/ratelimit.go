package chi

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xpersona/agentdex/internal/metrics"
	"github.com/xpersona/agentdex/internal/resilience/ratelimit"
)

// exemptPaths are routes that bypass rate limiting (health, metrics).
var exemptPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// RateLimitConfig carries the per-tier request budgets.
type RateLimitConfig struct {
	AnonymousLimit     int
	AuthenticatedLimit int
	APIKeys            []string
}

// RateLimitMiddleware returns a middleware enforcing per-client fixed-window
// quotas. Clients presenting a known API key get the authenticated budget;
// everyone else is keyed by IP with the anonymous budget. The check runs
// before any request parsing.
func RateLimitMiddleware(limiter ratelimit.Limiter, cfg RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key, limit := clientTier(r, validKeys, cfg)

			decision, err := limiter.Check(r.Context(), key, limit)
			if err != nil {
				// A broken limiter must not take the API down.
				logger.Warn("rate limit check failed, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				metrics.RateLimited(r.URL.Path)
				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, codeRateLimited, "rate limited")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientTier resolves the limiter key and budget for a request. An API key
// becomes the key itself so the budget follows the credential, not the host.
func clientTier(r *http.Request, validKeys map[string]struct{}, cfg RateLimitConfig) (string, int) {
	const bearerPrefix = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, bearerPrefix) {
		token := auth[len(bearerPrefix):]
		if _, ok := validKeys[token]; ok {
			return "key:" + token, cfg.AuthenticatedLimit
		}
	}
	return "ip:" + clientIP(r), cfg.AnonymousLimit
}

// clientIP resolves the caller address, trusting proxy headers when present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		if ip, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(ip)
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
