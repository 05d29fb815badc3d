package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/types"
)

// MockAuthRepo is a mock implementation of AuthRepo
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, user types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockAuthRepo) UpdateUser(ctx context.Context, userID uuid.UUID, fn func(u *types.User) error) (*types.User, error) {
	args := m.Called(ctx, userID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	u := args.Get(0).(*types.User)
	if err := fn(u); err != nil {
		return nil, err
	}
	return u, args.Error(1)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.SecretKey = "test-secret"
	cfg.Auth.Issuer = "bytebite"
	cfg.Auth.SessionTTL = time.Hour
	cfg.Auth.CookieMaxAge = 30 * 24 * time.Hour
	cfg.Storage.DefaultPicture = "default.png"
	return cfg
}

func newTestService(repo AuthRepo) *AuthServiceImpl {
	s := NewAuthService(repo, testConfig(), slog.Default())
	s.hashCost = bcrypt.MinCost
	return s
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("abcdefg1"))
	assert.Error(t, ValidatePassword("abc1"))
	assert.Error(t, ValidatePassword("abcdefghij"))
	assert.Error(t, ValidatePassword(""))
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	valid := types.SignupRequest{
		Name:            "Jamie",
		Email:           "Jamie@Example.com",
		Password:        "password1",
		ConfirmPassword: "password1",
	}

	t.Run("success", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, "jamie@example.com").Return(nil, types.ErrNotFound).Once()
		repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u types.User) bool {
			return u.Email == "jamie@example.com" &&
				u.Name == "Jamie" &&
				u.ProfilePic == "default.png" &&
				u.ID != uuid.Nil &&
				bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("password1")) == nil
		})).Return(nil).Once()

		user, err := newTestService(repo).Signup(ctx, valid)
		require.NoError(t, err)
		assert.Equal(t, "jamie@example.com", user.Email)
		repo.AssertExpectations(t)
	})

	tests := []struct {
		name    string
		mutate  func(r *types.SignupRequest)
		exists  bool
		message string
	}{
		{"missing name", func(r *types.SignupRequest) { r.Name = "  " }, false, MsgInvalidInput},
		{"missing confirmation", func(r *types.SignupRequest) { r.ConfirmPassword = "" }, false, MsgInvalidInput},
		{"email taken", func(r *types.SignupRequest) {}, true, MsgEmailTaken},
		{"email taken wins over mismatch", func(r *types.SignupRequest) { r.ConfirmPassword = "other1234" }, true, MsgEmailTaken},
		{"mismatch", func(r *types.SignupRequest) { r.ConfirmPassword = "password2" }, false, MsgPasswordMismatch},
		{"mismatch wins over weak", func(r *types.SignupRequest) { r.Password = "short"; r.ConfirmPassword = "other" }, false, MsgPasswordMismatch},
		{"weak password", func(r *types.SignupRequest) { r.Password = "passwordx"; r.ConfirmPassword = "passwordx" }, false, MsgWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockAuthRepo)
			if tt.exists {
				repo.On("GetUserByEmail", mock.Anything, mock.Anything).Return(&types.User{Email: "jamie@example.com"}, nil)
			} else {
				repo.On("GetUserByEmail", mock.Anything, mock.Anything).Return(nil, types.ErrNotFound)
			}
			req := valid
			tt.mutate(&req)

			_, err := newTestService(repo).Signup(ctx, req)
			var formErr *FormError
			require.ErrorAs(t, err, &formErr)
			assert.Equal(t, tt.message, formErr.Message)
			repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
		})
	}

	t.Run("repository failure is not a form error", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, mock.Anything).Return(nil, types.ErrNotFound)
		repo.On("CreateUser", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

		_, err := newTestService(repo).Signup(ctx, valid)
		require.Error(t, err)
		var formErr *FormError
		assert.False(t, errors.As(err, &formErr))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	user := &types.User{ID: uuid.New(), Name: "Jamie", Email: "jamie@example.com", Password: hashed(t, "password1")}

	t.Run("success", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, "jamie@example.com").Return(user, nil).Once()

		got, err := newTestService(repo).Login(ctx, " JAMIE@example.com", "password1")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		repo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, "jamie@example.com").Return(user, nil).Once()

		_, err := newTestService(repo).Login(ctx, "jamie@example.com", "nope")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("unknown email", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, types.ErrNotFound).Once()

		_, err := newTestService(repo).Login(ctx, "ghost@example.com", "password1")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, mock.Anything).Return(nil, errors.New("io")).Once()

		_, err := newTestService(repo).Login(ctx, "jamie@example.com", "password1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrUnauthenticated)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestService(new(MockAuthRepo))
	user := &types.User{ID: uuid.New(), Name: "Jamie", Email: "jamie@example.com"}

	token, exp, err := s.IssueToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, "Jamie", claims.Name)
	assert.Equal(t, "jamie@example.com", claims.Email)
}

func TestParseTokenRejects(t *testing.T) {
	s := newTestService(new(MockAuthRepo))
	user := &types.User{ID: uuid.New(), Name: "Jamie", Email: "jamie@example.com"}

	t.Run("expired", func(t *testing.T) {
		s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := s.IssueToken(user)
		require.NoError(t, err)
		s.now = time.Now

		_, err = s.ParseToken(token)
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("other secret", func(t *testing.T) {
		other := newTestService(new(MockAuthRepo))
		other.cfg.SecretKey = "another-secret"
		token, _, err := other.IssueToken(user)
		require.NoError(t, err)

		_, err = s.ParseToken(token)
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := newTestService(new(MockAuthRepo))
		other.cfg.Issuer = "someone-else"
		token, _, err := other.IssueToken(user)
		require.NoError(t, err)

		_, err = s.ParseToken(token)
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.ParseToken("not-a-token")
		assert.ErrorIs(t, err, types.ErrUnauthenticated)
	})
}

func TestGetOrCreateUserFromProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("existing account is reused", func(t *testing.T) {
		existing := &types.User{ID: uuid.New(), Email: "jamie@example.com"}
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, "jamie@example.com").Return(existing, nil).Once()

		got, err := newTestService(repo).GetOrCreateUserFromProvider(ctx, "google", goth.User{Email: "Jamie@example.com"})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, got.ID)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("new account records provider", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, "new@example.com").Return(nil, types.ErrNotFound).Once()
		repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u types.User) bool {
			return u.Provider == "google" && u.Name == "new" && u.Password != ""
		})).Return(nil).Once()

		got, err := newTestService(repo).GetOrCreateUserFromProvider(ctx, "google", goth.User{Email: "new@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "google", got.Provider)
		repo.AssertExpectations(t)
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := newTestService(new(MockAuthRepo)).GetOrCreateUserFromProvider(ctx, "google", goth.User{})
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})
}

func TestUpsertUserAndResetPassword(t *testing.T) {
	ctx := context.Background()
	existing := &types.User{ID: uuid.New(), Name: "Old", Email: "jamie@example.com", Password: hashed(t, "password1")}

	t.Run("updates existing", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, "jamie@example.com").Return(existing, nil).Once()
		repo.On("UpdateUser", mock.Anything, existing.ID, mock.Anything).Return(existing, nil).Once()

		u, created, err := newTestService(repo).UpsertUser(ctx, "New", "jamie@example.com", "newpass99")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "New", u.Name)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("newpass99")))
	})

	t.Run("creates missing", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, "fresh@example.com").Return(nil, types.ErrNotFound).Once()
		repo.On("CreateUser", mock.Anything, mock.Anything).Return(nil).Once()

		_, created, err := newTestService(repo).UpsertUser(ctx, "Fresh", "fresh@example.com", "newpass99")
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("reset rejects weak password", func(t *testing.T) {
		repo := new(MockAuthRepo)
		err := newTestService(repo).ResetPassword(ctx, "jamie@example.com", "weak")
		assert.ErrorIs(t, err, types.ErrInvalidInput)
		repo.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
	})

	t.Run("reset unknown user", func(t *testing.T) {
		repo := new(MockAuthRepo)
		repo.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, types.ErrNotFound).Once()
		err := newTestService(repo).ResetPassword(ctx, "ghost@example.com", "password1")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}
