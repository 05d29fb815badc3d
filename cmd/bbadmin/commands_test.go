package main

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/bytebite/app/store"
	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/types"
)

func storageConfig(dir string) config.StorageConfig {
	return config.StorageConfig{
		Driver:          "json",
		DataDir:         dir,
		CredentialsFile: "credentials.json",
		PreferencesFile: "preferences.json",
		OrdersFile:      "orders.json",
		WeightsFile:     "weights.json",
		DefaultPicture:  "default.png",
	}
}

func newTestApp(t *testing.T) (*adminApp, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		Storage: storageConfig(t.TempDir()),
		Auth: config.AuthConfig{
			SecretKey:  "test-secret",
			Issuer:     "bytebite",
			SessionTTL: time.Hour,
		},
	}
	var out bytes.Buffer
	return &adminApp{cfg: cfg, logger: slog.Default(), out: &out}, &out
}

func stubPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func execute(app *adminApp, args ...string) error {
	cmd := newRootCmd(app)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func loadUsers(t *testing.T, app *adminApp) []types.User {
	t.Helper()
	path := filepath.Join(app.cfg.Storage.DataDir, app.cfg.Storage.CredentialsFile)
	users, err := store.NewFile[types.User](path, slog.Default()).Load(context.Background())
	require.NoError(t, err)
	return users
}

func TestAddUserAndResetPassword(t *testing.T) {
	app, out := newTestApp(t)

	stubPassword(t, "password1")
	require.NoError(t, execute(app, "adduser", "--name", "Ana", "--email", "ANA@example.com"))
	assert.Contains(t, out.String(), "Created user ana@example.com")

	users := loadUsers(t, app)
	require.Len(t, users, 1)
	assert.Equal(t, "Ana", users[0].Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("password1")))

	out.Reset()
	require.NoError(t, execute(app, "adduser", "--name", "Ana B", "--email", "ana@example.com"))
	assert.Contains(t, out.String(), "Updated user ana@example.com")
	users = loadUsers(t, app)
	require.Len(t, users, 1)
	assert.Equal(t, "Ana B", users[0].Name)

	stubPassword(t, "another22")
	out.Reset()
	require.NoError(t, execute(app, "resetpassword", "--email", "ana@example.com"))
	assert.Contains(t, out.String(), "Password updated")
	users = loadUsers(t, app)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("another22")))

	err := execute(app, "resetpassword", "--email", "ghost@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no account for ghost@example.com")
}

func TestAddUserRejectsBadPasswords(t *testing.T) {
	app, _ := newTestApp(t)

	stubPassword(t, "")
	assert.ErrorIs(t, execute(app, "adduser", "--name", "Ana", "--email", "ana@example.com"), errEmptyPassword)

	stubPassword(t, "short")
	assert.Error(t, execute(app, "adduser", "--name", "Ana", "--email", "ana@example.com"))
	assert.Empty(t, loadUsers(t, app))
}

func TestAddUserRequiresFlags(t *testing.T) {
	app, _ := newTestApp(t)
	stubPassword(t, "password1")
	assert.Error(t, execute(app, "adduser", "--name", "Ana"))
}

func TestImportJSON(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := storageConfig(dir)
	logger := slog.Default()

	userID := uuid.New()
	now := time.Now().UTC()
	require.NoError(t, store.NewFile[types.User](filepath.Join(dir, cfg.CredentialsFile), logger).
		Update(ctx, func(items []types.User) ([]types.User, error) {
			return append(items,
				types.User{ID: userID, Name: "Ana", Email: "Ana@Example.com", Password: "hash"},
				types.User{ID: uuid.New(), Name: "Bo", Email: "bo@example.com", Password: "hash"},
			), nil
		}))
	require.NoError(t, store.NewFile[types.Preferences](filepath.Join(dir, cfg.PreferencesFile), logger).
		Update(ctx, func(items []types.Preferences) ([]types.Preferences, error) {
			return append(items, types.Preferences{UserID: userID, DietType: "vegan"}), nil
		}))
	require.NoError(t, store.NewFile[types.WeightEntry](filepath.Join(dir, cfg.WeightsFile), logger).
		Update(ctx, func(items []types.WeightEntry) ([]types.WeightEntry, error) {
			return append(items, types.WeightEntry{ID: uuid.New(), UserID: userID, WeightKg: 70, RecordedAt: now, CreatedAt: now}), nil
		}))

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO users").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO users").WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectExec("INSERT INTO user_preferences").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO weight_entries").WillReturnResult(pgxmock.NewResult("INSERT", 1))

	stats, err := importJSON(ctx, cfg, dir, mock, logger)
	require.NoError(t, err)
	assert.Equal(t, importStats{users: 1, preferences: 1, weights: 1, skipped: 1}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
