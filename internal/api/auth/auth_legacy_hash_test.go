package auth

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/bytebite/internal/types"
)

// Hashes produced by werkzeug.security.generate_password_hash for "password1"
// unless noted otherwise.
const (
	werkzeugPBKDF2 = "pbkdf2:sha256:600000$abcdefghijklmnop$5a4770c5b7045087bf4a5847091fa26642ad7956dbc954292e67aa3837815ef4"
	werkzeugScrypt = "scrypt:32768:8:1$qrstuvwxyzABCDEF$87aabb4a64040b205e26f858803bb1022d040f2713b86410c15eddad93e484db9d56a12091af8486959d5ab66126207e47fb81e37f6b8340b7c16bd7aa84873e"
	werkzeugSHA1   = "pbkdf2:sha1:1000$oldsalt1$7b88c4516f64a90192315915bdeb74be9daf486b"
	// "pass&word1" after HTML escaping, as the old sign-up form stored it.
	werkzeugEscaped = "pbkdf2:sha256:1000$saltsaltsaltsalt$aa654ffb754bdcac89513fadce9f0bb4dec8b3fe926a500f152215a8f05e956c"
)

func TestCheckLegacyHash(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		password string
		want     bool
		wantErr  bool
	}{
		{"pbkdf2 sha256", werkzeugPBKDF2, "password1", true, false},
		{"pbkdf2 wrong password", werkzeugPBKDF2, "password2", false, false},
		{"scrypt", werkzeugScrypt, "password1", true, false},
		{"pbkdf2 sha1", werkzeugSHA1, "password1", true, false},
		{"no salt separator", "pbkdf2:sha256:1000", "password1", false, true},
		{"bad hex", "pbkdf2:sha256:1000$salt$zz", "password1", false, true},
		{"unknown digest", "pbkdf2:md5:1000$salt$00", "password1", false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := checkLegacyHash(tc.stored, tc.password)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestLoginWithLegacyCredentials(t *testing.T) {
	ctx := context.Background()
	repo, path := newJSONRepo(t)

	legacy := `[
    {"name": "Jamie", "email": "jamie@example.com", "password": "` + werkzeugPBKDF2 + `", "profile_pic": "default.png"},
    {"name": "Sam", "email": "sam@example.com", "password": "` + werkzeugEscaped + `", "profile_pic": "default.png"}
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))
	_, err := repo.Backfill(ctx)
	require.NoError(t, err)

	svc := newTestService(repo)

	_, err = svc.Login(ctx, "jamie@example.com", "wrong-pass1")
	assert.ErrorIs(t, err, types.ErrUnauthenticated)

	user, err := svc.Login(ctx, "jamie@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "Jamie", user.Name)

	stored, err := repo.GetUserByEmail(ctx, "jamie@example.com")
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(stored.Password, "pbkdf2:"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password1")))

	_, err = svc.Login(ctx, "jamie@example.com", "password1")
	assert.NoError(t, err)

	_, err = svc.Login(ctx, "sam@example.com", "pass&word1")
	require.NoError(t, err)
	stored, err = repo.GetUserByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("pass&word1")))
}
