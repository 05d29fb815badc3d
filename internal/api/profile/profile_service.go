package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/types"
)

// AllowedPictureExtensions are the upload extensions the profile page accepts.
var AllowedPictureExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

var ErrUnsupportedPicture = errors.New("unsupported picture format")

// UserStore is the slice of the credentials repository the profile needs.
type UserStore interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, fn func(u *types.User) error) (*types.User, error)
}

var _ ProfileService = (*ProfileServiceImpl)(nil)

type ProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
	// GetPreferences never fails with ErrNotFound; users without a record get empty preferences.
	GetPreferences(ctx context.Context, userID uuid.UUID) (*types.Preferences, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.Profile, error)
	SaveProfilePicture(ctx context.Context, userID uuid.UUID, filename string, data io.Reader) (string, error)
	ProfilePicturePath(ctx context.Context, userID uuid.UUID) (string, error)
}

type ProfileServiceImpl struct {
	logger  *slog.Logger
	repo    ProfileRepo
	users   UserStore
	storage config.StorageConfig
}

func NewProfileService(repo ProfileRepo, users UserStore, cfg *config.Config, logger *slog.Logger) *ProfileServiceImpl {
	return &ProfileServiceImpl{
		logger:  logger,
		repo:    repo,
		users:   users,
		storage: cfg.Storage,
	}
}

func emptyPreferences(userID uuid.UUID) *types.Preferences {
	return &types.Preferences{
		UserID:    userID,
		Allergies: []string{},
		Cuisines:  []string{},
		Dislikes:  []string{},
	}
}

func (s *ProfileServiceImpl) GetPreferences(ctx context.Context, userID uuid.UUID) (*types.Preferences, error) {
	prefs, err := s.repo.GetPreferences(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		return emptyPreferences(userID), nil
	}
	if err != nil {
		return nil, err
	}
	if prefs.Allergies == nil {
		prefs.Allergies = []string{}
	}
	if prefs.Cuisines == nil {
		prefs.Cuisines = []string{}
	}
	if prefs.Dislikes == nil {
		prefs.Dislikes = []string{}
	}
	return prefs, nil
}

func (s *ProfileServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "GetProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "preferences lookup failed")
		return nil, fmt.Errorf("error loading preferences: %w", err)
	}
	return &types.Profile{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		ProfilePic:  s.resolvePicture(user.ProfilePic),
		Preferences: *prefs,
	}, nil
}

func (s *ProfileServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "UpdateProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID.String()))

	if params.Name != nil {
		name := api.Sanitize(*params.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be blank", types.ErrInvalidInput)
		}
		if _, err := s.users.UpdateUser(ctx, userID, func(u *types.User) error {
			u.Name = name
			u.UpdatedAt = time.Now().UTC()
			return nil
		}); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error updating name: %w", err)
		}
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	applyPreferences(prefs, params)
	prefs.UpdatedAt = time.Now().UTC()
	if err := s.repo.SavePreferences(ctx, *prefs); err != nil {
		l.ErrorContext(ctx, "Failed to save preferences", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return nil, fmt.Errorf("error saving preferences: %w", err)
	}

	l.InfoContext(ctx, "Profile updated")
	return s.GetProfile(ctx, userID)
}

func applyPreferences(p *types.Preferences, params types.UpdateProfileParams) {
	if params.Age != nil {
		age := *params.Age
		p.Age = &age
	}
	if params.HeightCm != nil {
		h := *params.HeightCm
		p.HeightCm = &h
	}
	if params.Gender != nil {
		p.Gender = api.Sanitize(*params.Gender)
	}
	if params.ActivityLevel != nil {
		p.ActivityLevel = *params.ActivityLevel
	}
	if params.Goal != nil {
		p.Goal = *params.Goal
	}
	if params.DietType != nil {
		p.DietType = api.Sanitize(*params.DietType)
	}
	if params.Allergies != nil {
		p.Allergies = api.SanitizeList(params.Allergies)
	}
	if params.Cuisines != nil {
		p.Cuisines = api.SanitizeList(params.Cuisines)
	}
	if params.Dislikes != nil {
		p.Dislikes = api.SanitizeList(params.Dislikes)
	}
}

// resolvePicture returns the public path of pic, or of the default picture
// when pic is unset or missing on disk.
func (s *ProfileServiceImpl) resolvePicture(pic string) string {
	pic = filepath.Base(strings.TrimSpace(pic))
	if pic == "" || pic == "." || pic == string(filepath.Separator) {
		pic = s.storage.DefaultPicture
	} else if _, err := os.Stat(filepath.Join(s.storage.UploadsDir, pic)); err != nil {
		pic = s.storage.DefaultPicture
	}
	return path.Join(s.storage.PublicPicPath, pic)
}

func (s *ProfileServiceImpl) ProfilePicturePath(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.resolvePicture(user.ProfilePic), nil
}

// SaveProfilePicture stores an uploaded picture as <userID>.<ext> in the
// uploads directory and points the user record at it.
func (s *ProfileServiceImpl) SaveProfilePicture(ctx context.Context, userID uuid.UUID, filename string, data io.Reader) (string, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "SaveProfilePicture", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "SaveProfilePicture"), slog.String("userID", userID.String()))

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, ok := AllowedPictureExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: .%s", ErrUnsupportedPicture, ext)
	}

	limit := s.storage.MaxUploadBytes
	content, err := io.ReadAll(io.LimitReader(data, limit+1))
	if err != nil {
		return "", fmt.Errorf("error reading upload: %w", err)
	}
	if int64(len(content)) > limit {
		return "", fmt.Errorf("%w: picture larger than %d bytes", types.ErrInvalidInput, limit)
	}

	detected := mimetype.Detect(content)
	if !detected.Is("image/png") && !detected.Is("image/jpeg") {
		return "", fmt.Errorf("%w: content is %s", ErrUnsupportedPicture, detected.String())
	}
	if ext == "jpeg" {
		ext = "jpg"
	}
	if (ext == "png") != detected.Is("image/png") {
		// Trust the bytes over the name.
		ext = strings.TrimPrefix(detected.Extension(), ".")
	}

	if err := os.MkdirAll(s.storage.UploadsDir, 0o755); err != nil {
		return "", fmt.Errorf("error creating uploads dir: %w", err)
	}
	name := userID.String() + "." + ext
	dst := filepath.Join(s.storage.UploadsDir, name)
	if err := writeFileAtomic(dst, content); err != nil {
		l.ErrorContext(ctx, "Failed to write picture", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return "", err
	}

	var previous string
	if _, err := s.users.UpdateUser(ctx, userID, func(u *types.User) error {
		previous = u.ProfilePic
		u.ProfilePic = name
		u.UpdatedAt = time.Now().UTC()
		return nil
	}); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("error updating user picture: %w", err)
	}

	// Drop the old upload when the extension changed.
	if previous != "" && previous != name && previous != s.storage.DefaultPicture &&
		strings.HasPrefix(previous, userID.String()+".") {
		if err := os.Remove(filepath.Join(s.storage.UploadsDir, filepath.Base(previous))); err != nil && !os.IsNotExist(err) {
			l.WarnContext(ctx, "Failed to remove previous picture", slog.Any("error", err))
		}
	}

	l.InfoContext(ctx, "Profile picture updated", slog.String("file", name))
	return path.Join(s.storage.PublicPicPath, name), nil
}

func writeFileAtomic(dst string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, bytes.NewReader(content)); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing picture: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing picture: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("error setting picture mode: %w", err)
	}
	return os.Rename(tmp.Name(), dst)
}
