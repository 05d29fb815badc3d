package appMiddleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/api/auth"
)

// RateLimitByIP caps requests per client IP. A non-positive limit disables it.
func RateLimitByIP(logger *slog.Logger, limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return passthrough
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(tooManyRequests(logger)),
	)
}

// RateLimitByUser caps requests per session user, falling back to the client IP
// when the request carries no session. Mount it after auth.Authenticate.
func RateLimitByUser(logger *slog.Logger, limit int, window time.Duration) func(http.Handler) http.Handler {
	if limit <= 0 {
		return passthrough
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(userKey),
		httprate.WithLimitHandler(tooManyRequests(logger)),
	)
}

func userKey(r *http.Request) (string, error) {
	if u, ok := auth.GetUserFromContext(r.Context()); ok {
		return "user:" + u.ID, nil
	}
	return httprate.KeyByRealIP(r)
}

func tooManyRequests(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.WarnContext(r.Context(), "Rate limit exceeded",
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr))
		api.ErrorResponse(w, r, http.StatusTooManyRequests, "Too many requests, please slow down")
	}
}

func passthrough(next http.Handler) http.Handler { return next }

// SecurityHeaders sets the response headers every page of the site carries.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
