package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/types"
)

const dashboardPath = "/dashboard"

type AuthHandler struct {
	AuthService AuthService
	cfg         config.AuthConfig
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		AuthService: authService,
		cfg:         cfg.Auth,
		logger:      logger,
	}
}

// setUserCookies writes the display cookies read by the frontend scripts.
// Values are query-escaped so names with spaces or commas survive.
func (h *AuthHandler) setUserCookies(w http.ResponseWriter, user *types.User) {
	maxAge := int(h.cfg.CookieMaxAge / time.Second)
	for name, value := range map[string]string{
		types.CookieCurrentUser: user.Name,
		types.CookieEmail:       user.Email,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    url.QueryEscape(value),
			Path:     "/",
			MaxAge:   maxAge,
			Secure:   h.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	SetSessionCookie(w, token, expires, h.cfg.SecureCookies)
}

// SetSessionCookie writes the HttpOnly session JWT cookie.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     types.CookieSession,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires) / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookies(w http.ResponseWriter) {
	for _, name := range []string{types.CookieCurrentUser, types.CookieEmail, types.CookieSession} {
		http.SetCookie(w, &http.Cookie{
			Name:    name,
			Value:   "",
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Unix(0, 0),
		})
	}
}

// startSession issues the session token and sets every login cookie.
func (h *AuthHandler) startSession(w http.ResponseWriter, user *types.User) error {
	token, exp, err := h.AuthService.IssueToken(user)
	if err != nil {
		return err
	}
	h.setSessionCookie(w, token, exp)
	h.setUserCookies(w, user)
	return nil
}

// CheckEmail godoc
// @Summary      Check email availability
// @Description  Reports whether an account already uses the given email.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.CheckEmailRequest true "Email to check"
// @Success      200 {object} types.CheckEmailResponse
// @Failure      400 {object} types.Response "Invalid input"
// @Failure      500 {object} types.Response "Server error"
// @Router       /check-email [post]
func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "CheckEmail"))

	var req types.CheckEmailRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, MsgInvalidInput)
		return
	}

	exists, err := h.AuthService.EmailExists(ctx, req.Email)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check email", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.CheckEmailResponse{Exists: exists})
}

// Signup godoc
// @Summary      Register a new user
// @Description  Creates an account and starts a session.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.SignupRequest true "Sign-up form"
// @Success      200 {object} types.Response "Account created successfully!"
// @Failure      400 {object} types.Response "Validation failure"
// @Failure      500 {object} types.Response "Server error"
// @Router       /signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Signup"))

	var req types.SignupRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, MsgInvalidInput)
		return
	}

	user, err := h.AuthService.Signup(ctx, req)
	if err != nil {
		var formErr *FormError
		if errors.As(err, &formErr) {
			api.ErrorResponse(w, r, http.StatusBadRequest, formErr.Message)
			return
		}
		l.ErrorContext(ctx, "Signup failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}

	if err := h.startSession(w, user); err != nil {
		l.ErrorContext(ctx, "Failed to start session", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Account created successfully!",
	})
}

// Login godoc
// @Summary      Log in
// @Description  Verifies credentials, sets the session and display cookies.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.LoginRequest true "Credentials"
// @Success      200 {object} types.LoginResponse
// @Failure      400 {object} types.Response "Request must be JSON"
// @Failure      401 {object} types.Response "Incorrect email or password"
// @Failure      500 {object} types.Response "Server error"
// @Router       /login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Login"))

	if !api.IsJSONRequest(r) {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Request must be JSON")
		return
	}

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, MsgInvalidInput)
		return
	}

	user, err := h.AuthService.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, types.ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, MsgBadCredentials)
			return
		}
		l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}

	if err := h.startSession(w, user); err != nil {
		l.ErrorContext(ctx, "Failed to start session", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, MsgServerError)
		return
	}

	l.InfoContext(ctx, "User logged in", slog.String("userID", user.ID.String()))
	api.WriteJSONResponse(w, r, http.StatusOK, types.LoginResponse{
		Success:  true,
		Message:  "Login successful",
		Redirect: dashboardPath,
		Name:     user.Name,
	})
}

// LoginStatus godoc
// @Summary      Login page state
// @Description  Redirects to the dashboard when the browser already holds a valid session.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} map[string]bool
// @Success      303 "Redirect to /dashboard"
// @Router       /login [get]
func (h *AuthHandler) LoginStatus(w http.ResponseWriter, r *http.Request) {
	_, errEmail := r.Cookie(types.CookieEmail)
	_, errUser := r.Cookie(types.CookieCurrentUser)
	if errEmail == nil && errUser == nil {
		if token := tokenFromRequest(r); token != "" {
			if _, err := h.AuthService.ParseToken(token); err == nil {
				http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
				return
			}
		}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]bool{"authenticated": false})
}

// ClearCookies godoc
// @Summary      Clear login cookies
// @Tags         Auth
// @Produce      plain
// @Success      200 {string} string "Cookies cleared"
// @Router       /clear-cookies [post]
func (h *AuthHandler) ClearCookies(w http.ResponseWriter, r *http.Request) {
	clearCookies(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Cookies cleared"))
}

// Signout godoc
// @Summary      Sign out
// @Tags         Auth
// @Success      303 "Redirect to /"
// @Router       /signout [get]
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	clearCookies(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Me godoc
// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.SessionUser
// @Failure      401 {object} types.Response "Authentication required"
// @Security     SessionCookie
// @Router       /api/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}
