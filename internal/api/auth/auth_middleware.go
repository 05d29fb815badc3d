package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/types"
)

// Define typed context keys
type contextKey string

const userKey contextKey = "sessionUser"

// TokenParser is the part of AuthService the middleware needs.
type TokenParser interface {
	ParseToken(token string) (*types.Claims, error)
}

// tokenFromRequest prefers the session cookie and falls back to a Bearer header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(types.CookieSession); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Authenticate rejects requests without a valid session and stores the
// session user in the request context.
func Authenticate(logger *slog.Logger, parser TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				l.DebugContext(ctx, "No session on request", slog.String("path", r.URL.Path))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			claims, err := parser.ParseToken(tokenString)
			if err != nil {
				l.WarnContext(ctx, "Session token rejected", slog.Any("error", err))
				errMsg := "Invalid or expired session"
				if errors.Is(err, jwt.ErrTokenExpired) {
					errMsg = "Session expired"
				}
				api.ErrorResponse(w, r, http.StatusUnauthorized, errMsg)
				return
			}

			user := types.SessionUser{ID: claims.UserID, Name: claims.Name, Email: claims.Email}
			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

func WithUser(ctx context.Context, user types.SessionUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUserFromContext returns the session user set by Authenticate.
func GetUserFromContext(ctx context.Context) (types.SessionUser, bool) {
	u, ok := ctx.Value(userKey).(types.SessionUser)
	return u, ok && u.ID != ""
}

// GetUserIDFromContext parses the session user's ID.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	u, ok := GetUserFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
