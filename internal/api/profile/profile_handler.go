package profile

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/api/auth"
	"github.com/FACorreiaa/bytebite/internal/types"
)

// multipart framing allowance on top of the picture itself
const uploadOverhead = 1 << 20

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetProfile(w http.ResponseWriter, r *http.Request)
	UpdateProfile(w http.ResponseWriter, r *http.Request)
	UploadPicture(w http.ResponseWriter, r *http.Request)
	GetPicture(w http.ResponseWriter, r *http.Request)
}

// SessionIssuer signs a fresh session token, so a renamed user's session
// claims match the new name.
type SessionIssuer interface {
	IssueToken(user *types.User) (string, time.Time, error)
}

type HandlerImpl struct {
	service  ProfileService
	sessions SessionIssuer
	cfg      *config.Config
	logger   *slog.Logger
}

func NewHandlerImpl(service ProfileService, sessions SessionIssuer, cfg *config.Config, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service:  service,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// GetProfile godoc
// @Summary      Get profile
// @Description  Returns the user's name, email, picture and food preferences.
// @Tags         Profile
// @Produce      json
// @Success      200 {object} types.Profile
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      500 {object} types.Response "Internal Server Error"
// @Security     SessionCookie
// @Router       /api/profile [get]
func (h *HandlerImpl) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "GetProfile"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.service.GetProfile(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get profile", slog.Any("error", err))
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary      Update profile
// @Description  Partially updates profile fields. Omitted fields are left untouched.
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        profile body types.UpdateProfileParams true "Profile fields"
// @Success      200 {object} types.Profile
// @Failure      400 {object} types.Response "Invalid Input"
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      500 {object} types.Response "Internal Server Error"
// @Security     SessionCookie
// @Router       /api/profile [put]
func (h *HandlerImpl) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "UpdateProfile"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var params types.UpdateProfileParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := api.ValidateStruct(params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.service.UpdateProfile(ctx, userID, params)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidInput):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
		default:
			l.ErrorContext(ctx, "Failed to update profile", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update profile")
		}
		return
	}

	if params.Name != nil {
		user := &types.User{ID: profile.ID, Name: profile.Name, Email: profile.Email}
		token, exp, err := h.sessions.IssueToken(user)
		if err != nil {
			l.ErrorContext(ctx, "Failed to refresh session", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to refresh session")
			return
		}
		auth.SetSessionCookie(w, token, exp, h.cfg.Auth.SecureCookies)
		http.SetCookie(w, &http.Cookie{
			Name:     types.CookieCurrentUser,
			Value:    url.QueryEscape(profile.Name),
			Path:     "/",
			MaxAge:   int(h.cfg.Auth.CookieMaxAge / time.Second),
			Secure:   h.cfg.Auth.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// UploadPicture godoc
// @Summary      Upload profile picture
// @Description  Accepts a png, jpg or jpeg file up to the configured size.
// @Tags         Profile
// @Accept       mpfd
// @Produce      json
// @Param        file formData file true "Picture"
// @Success      200 {object} types.ProfilePictureResponse
// @Failure      400 {object} types.Response "Invalid file"
// @Failure      413 {object} types.Response "File too large"
// @Security     SessionCookie
// @Router       /api/profile/picture [post]
func (h *HandlerImpl) UploadPicture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "UploadPicture"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	maxBytes := h.cfg.Storage.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+uploadOverhead)
	if err := r.ParseMultipartForm(maxBytes + uploadOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.ErrorResponse(w, r, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		api.ErrorResponse(w, r, http.StatusBadRequest, "Expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()
	if header.Size > maxBytes {
		api.ErrorResponse(w, r, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	pic, err := h.service.SaveProfilePicture(ctx, userID, header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedPicture):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Only png, jpg and jpeg images are allowed")
		case errors.Is(err, types.ErrInvalidInput):
			api.ErrorResponse(w, r, http.StatusRequestEntityTooLarge, "File too large")
		default:
			l.ErrorContext(ctx, "Failed to save picture", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to save picture")
		}
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.ProfilePictureResponse{ProfilePic: pic})
}

// GetPicture godoc
// @Summary      Profile picture path
// @Description  Resolves the picture path, falling back to the default picture.
// @Tags         Profile
// @Produce      json
// @Success      200 {object} types.ProfilePictureResponse
// @Security     SessionCookie
// @Router       /api/profile/picture [get]
func (h *HandlerImpl) GetPicture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	pic, err := h.service.ProfilePicturePath(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to resolve picture", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to resolve picture")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.ProfilePictureResponse{ProfilePic: pic})
}
