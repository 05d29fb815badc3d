package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/api"
)

// SetupOAuth registers the configured OAuth providers and reports whether any
// provider is enabled.
func SetupOAuth(cfg *config.Config, logger *slog.Logger) bool {
	oc := cfg.Auth.OAuth
	if oc.GoogleClientID == "" || oc.GoogleClientSecret == "" {
		logger.Info("OAuth disabled: Google client credentials not configured")
		return false
	}

	secret := oc.SessionSecret
	if secret == "" {
		secret = cfg.Auth.SecretKey
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.Auth.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store
	gothic.GetProviderName = providerFromPath

	callback := strings.TrimRight(oc.CallbackBaseURL, "/") + "/auth/google/callback"
	goth.UseProviders(google.New(oc.GoogleClientID, oc.GoogleClientSecret, callback, "email", "profile"))
	logger.Info("OAuth enabled", slog.String("provider", "google"), slog.String("callback", callback))
	return true
}

func providerFromPath(r *http.Request) (string, error) {
	if p := chi.URLParam(r, "provider"); p != "" {
		return p, nil
	}
	if p := r.URL.Query().Get("provider"); p != "" {
		return p, nil
	}
	return "", errors.New("you must select a provider")
}

// BeginOAuth godoc
// @Summary      Start OAuth login
// @Tags         Auth
// @Param        provider path string true "OAuth provider" Enums(google)
// @Success      307 "Redirect to provider"
// @Router       /auth/{provider} [get]
func (h *AuthHandler) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	if _, err := goth.GetProvider(chi.URLParam(r, "provider")); err != nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "Unknown provider")
		return
	}
	gothic.BeginAuthHandler(w, r)
}

// OAuthCallback godoc
// @Summary      OAuth callback
// @Description  Finds or creates the account by email and starts a session.
// @Tags         Auth
// @Param        provider path string true "OAuth provider" Enums(google)
// @Success      303 "Redirect to /dashboard"
// @Failure      401 {object} types.Response
// @Router       /auth/{provider}/callback [get]
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "OAuthCallback"))
	provider := chi.URLParam(r, "provider")

	providerUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		l.WarnContext(ctx, "OAuth exchange failed", slog.String("provider", provider), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Could not complete sign-in")
		return
	}

	user, err := h.AuthService.GetOrCreateUserFromProvider(ctx, provider, providerUser)
	if err != nil {
		var formErr *FormError
		if errors.As(err, &formErr) {
			api.ErrorResponse(w, r, http.StatusBadRequest, formErr.Message)
			return
		}
		l.ErrorContext(ctx, "Failed to resolve OAuth user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}

	if err := h.startSession(w, user); err != nil {
		l.ErrorContext(ctx, "Failed to start session", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}
	_ = gothic.Logout(w, r)
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}
