package profile

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/bytebite/app/store"
	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/api/auth"
	"github.com/FACorreiaa/bytebite/internal/types"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type fixture struct {
	service  *ProfileServiceImpl
	users    *auth.JSONAuthRepo
	sessions *auth.AuthServiceImpl
	cfg      *config.Config
	user     types.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := slog.Default()

	cfg := &config.Config{}
	cfg.Storage.UploadsDir = filepath.Join(dir, "PFPs")
	cfg.Storage.PublicPicPath = "static/img/PFPs"
	cfg.Storage.DefaultPicture = "default.png"
	cfg.Storage.MaxUploadBytes = 1024
	cfg.Auth.CookieMaxAge = time.Hour
	cfg.Auth.SessionTTL = time.Hour
	cfg.Auth.SecretKey = "profile-test-secret"
	cfg.Auth.Issuer = "bytebite-test"

	users := auth.NewJSONAuthRepo(store.NewFile[types.User](filepath.Join(dir, "credentials.json"), logger), logger)
	prefs := NewJSONProfileRepo(store.NewFile[types.Preferences](filepath.Join(dir, "preferences.json"), logger), logger)

	u := types.User{ID: uuid.New(), Name: "Jamie", Email: "jamie@example.com", Password: "hash", ProfilePic: "default.png"}
	require.NoError(t, users.CreateUser(context.Background(), u))

	return &fixture{
		service:  NewProfileService(prefs, users, cfg, logger),
		users:    users,
		sessions: auth.NewAuthService(users, cfg, logger),
		cfg:      cfg,
		user:     u,
	}
}

func ptr[T any](v T) *T { return &v }

func TestGetProfileDefaults(t *testing.T) {
	f := newFixture(t)

	p, err := f.service.GetProfile(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jamie", p.Name)
	assert.Equal(t, "static/img/PFPs/default.png", p.ProfilePic)
	assert.Equal(t, f.user.ID, p.Preferences.UserID)
	assert.NotNil(t, p.Preferences.Allergies)
	assert.Empty(t, p.Preferences.Allergies)
	assert.Nil(t, p.Preferences.Age)

	_, err = f.service.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	goal := types.GoalLose
	p, err := f.service.UpdateProfile(ctx, f.user.ID, types.UpdateProfileParams{
		Name:      ptr("  <b>Jay</b> "),
		Age:       ptr(31),
		HeightCm:  ptr(180.0),
		Goal:      &goal,
		Allergies: []string{"Peanuts", "peanuts", " ", "Shellfish"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Jay", p.Name)
	assert.Equal(t, 31, *p.Preferences.Age)
	assert.Equal(t, types.GoalLose, p.Preferences.Goal)
	assert.Equal(t, []string{"Peanuts", "Shellfish"}, p.Preferences.Allergies)

	// A second partial update keeps earlier fields.
	p, err = f.service.UpdateProfile(ctx, f.user.ID, types.UpdateProfileParams{DietType: ptr("vegetarian")})
	require.NoError(t, err)
	assert.Equal(t, "vegetarian", p.Preferences.DietType)
	assert.Equal(t, 31, *p.Preferences.Age)
	assert.Equal(t, []string{"Peanuts", "Shellfish"}, p.Preferences.Allergies)

	_, err = f.service.UpdateProfile(ctx, f.user.ID, types.UpdateProfileParams{Name: ptr("<i></i>")})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestSaveProfilePicture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pic, err := f.service.SaveProfilePicture(ctx, f.user.ID, "me.PNG", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "static/img/PFPs/"+f.user.ID.String()+".png", pic)

	stored, err := os.ReadFile(filepath.Join(f.cfg.Storage.UploadsDir, f.user.ID.String()+".png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)

	u, err := f.users.GetUserByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID.String()+".png", u.ProfilePic)

	resolved, err := f.service.ProfilePicturePath(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, pic, resolved)
}

func TestSaveProfilePictureRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.SaveProfilePicture(ctx, f.user.ID, "me.gif", bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, ErrUnsupportedPicture)

	_, err = f.service.SaveProfilePicture(ctx, f.user.ID, "me.png", strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedPicture)

	big := append(append([]byte{}, pngHeader...), make([]byte, 2048)...)
	_, err = f.service.SaveProfilePicture(ctx, f.user.ID, "me.png", bytes.NewReader(big))
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	u, err := f.users.GetUserByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "default.png", u.ProfilePic)
}

func TestProfilePictureFallsBackWhenMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.UpdateUser(ctx, f.user.ID, func(u *types.User) error {
		u.ProfilePic = "gone.png"
		return nil
	})
	require.NoError(t, err)

	pic, err := f.service.ProfilePicturePath(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "static/img/PFPs/default.png", pic)
}
