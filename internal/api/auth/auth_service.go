package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/bytebite/app/observability/metrics"
	"github.com/FACorreiaa/bytebite/config"
	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/types"
)

// Messages shown on the sign-up and login forms.
const (
	MsgInvalidInput     = "Invalid input"
	MsgEmailTaken       = "An account with this email already exists."
	MsgPasswordMismatch = "Passwords do not match"
	MsgWeakPassword     = "Password must be at least 8 characters long and include a number"
	MsgBadCredentials   = "Incorrect email or password"
	MsgServerError      = "Server error"
)

const minPasswordLength = 8

// FormError is a validation failure whose Message is safe to show to the user.
type FormError struct {
	Message string
	Err     error
}

func (e *FormError) Error() string { return e.Message }
func (e *FormError) Unwrap() error { return e.Err }

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	Signup(ctx context.Context, req types.SignupRequest) (*types.User, error)
	Login(ctx context.Context, email, password string) (*types.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	GetOrCreateUserFromProvider(ctx context.Context, provider string, providerUser goth.User) (*types.User, error)
	// UpsertUser creates the user or, if the email exists, resets name and password.
	UpsertUser(ctx context.Context, name, email, password string) (*types.User, bool, error)
	ResetPassword(ctx context.Context, email, password string) error

	IssueToken(user *types.User) (string, time.Time, error)
	ParseToken(token string) (*types.Claims, error)
}

type AuthServiceImpl struct {
	logger   *slog.Logger
	repo     AuthRepo
	cfg      config.AuthConfig
	defPic   string
	hashCost int
	now      func() time.Time
}

func NewAuthService(repo AuthRepo, cfg *config.Config, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		repo:     repo,
		cfg:      cfg.Auth,
		defPic:   cfg.Storage.DefaultPicture,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// ValidatePassword enforces the site password rule: at least eight
// characters and at least one digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength || !strings.ContainsFunc(password, unicode.IsDigit) {
		return &FormError{Message: MsgWeakPassword, Err: types.ErrInvalidInput}
	}
	return nil
}

func (s *AuthServiceImpl) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func (s *AuthServiceImpl) EmailExists(ctx context.Context, email string) (bool, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "EmailExists")
	defer span.End()

	email = api.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	_, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, types.ErrNotFound):
		return false, nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return false, fmt.Errorf("error checking email: %w", err)
	}
}

// Signup validates the form in the order the site always has (missing
// fields, taken email, mismatch, weak password) and stores the new user.
func (s *AuthServiceImpl) Signup(ctx context.Context, req types.SignupRequest) (*types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Signup")
	defer span.End()
	l := s.logger.With(slog.String("method", "Signup"))

	name := api.Sanitize(req.Name)
	email := api.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" || req.ConfirmPassword == "" {
		s.countSignup(ctx, "invalid")
		return nil, &FormError{Message: MsgInvalidInput, Err: types.ErrInvalidInput}
	}

	exists, err := s.EmailExists(ctx, email)
	if err != nil {
		s.countSignup(ctx, "error")
		return nil, err
	}
	if exists {
		s.countSignup(ctx, "conflict")
		return nil, &FormError{Message: MsgEmailTaken, Err: types.ErrConflict}
	}

	if req.Password != req.ConfirmPassword {
		s.countSignup(ctx, "invalid")
		return nil, &FormError{Message: MsgPasswordMismatch, Err: types.ErrInvalidInput}
	}
	if err := ValidatePassword(req.Password); err != nil {
		s.countSignup(ctx, "invalid")
		return nil, err
	}

	hashed, err := s.hash(req.Password)
	if err != nil {
		s.countSignup(ctx, "error")
		return nil, err
	}

	now := s.now().UTC()
	user := types.User{
		ID:         uuid.New(),
		Name:       name,
		Email:      email,
		Password:   hashed,
		ProfilePic: s.defPic,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, types.ErrConflict) {
			s.countSignup(ctx, "conflict")
			return nil, &FormError{Message: MsgEmailTaken, Err: types.ErrConflict}
		}
		l.ErrorContext(ctx, "Failed to store new user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		s.countSignup(ctx, "error")
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "user registered")
	s.countSignup(ctx, "success")
	return &user, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()
	l := s.logger.With(slog.String("method", "Login"))

	email = api.NormalizeEmail(email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Login attempt for unknown email")
			s.countLogin(ctx, "rejected")
			return nil, types.ErrUnauthenticated
		}
		l.ErrorContext(ctx, "Failed to load user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		s.countLogin(ctx, "error")
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !s.checkPassword(ctx, user, password) {
		l.WarnContext(ctx, "Login attempt with wrong password", slog.String("userID", user.ID.String()))
		s.countLogin(ctx, "rejected")
		return nil, types.ErrUnauthenticated
	}

	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	span.SetStatus(codes.Ok, "logged in")
	s.countLogin(ctx, "success")
	return user, nil
}

// checkPassword verifies password against the stored hash. Accounts still on a
// werkzeug hash are moved to bcrypt after a successful check. The old site
// hashed the sanitised password, so that form is tried as well.
func (s *AuthServiceImpl) checkPassword(ctx context.Context, user *types.User, password string) bool {
	if !isLegacyHash(user.Password) {
		return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
	}

	l := s.logger.With(slog.String("method", "checkPassword"), slog.String("userID", user.ID.String()))
	candidates := []string{password}
	if clean := api.Sanitize(password); clean != password {
		candidates = append(candidates, clean)
	}
	matched := false
	for _, c := range candidates {
		ok, err := checkLegacyHash(user.Password, c)
		if err != nil {
			l.WarnContext(ctx, "Unreadable legacy password hash", slog.Any("error", err))
			return false
		}
		if ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	hashed, err := s.hash(password)
	if err != nil {
		l.WarnContext(ctx, "Failed to rehash legacy password", slog.Any("error", err))
		return true
	}
	updated, err := s.repo.UpdateUser(ctx, user.ID, func(u *types.User) error {
		u.Password = hashed
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		l.WarnContext(ctx, "Failed to store upgraded password hash", slog.Any("error", err))
		return true
	}
	*user = *updated
	l.InfoContext(ctx, "Upgraded legacy password hash to bcrypt")
	return true
}

func (s *AuthServiceImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// GetOrCreateUserFromProvider links an OAuth identity to a local account by email.
func (s *AuthServiceImpl) GetOrCreateUserFromProvider(ctx context.Context, provider string, pu goth.User) (*types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "GetOrCreateUserFromProvider", trace.WithAttributes(
		attribute.String("oauth.provider", provider),
	))
	defer span.End()

	email := api.NormalizeEmail(pu.Email)
	if email == "" {
		return nil, &FormError{Message: "Provider did not share an email address", Err: types.ErrInvalidInput}
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		span.RecordError(err)
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	name := api.Sanitize(pu.Name)
	if name == "" {
		name = api.Sanitize(pu.NickName)
	}
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	// Nobody knows this password; the account signs in through the provider.
	secret, err := randomSecret()
	if err != nil {
		return nil, err
	}
	hashed, err := s.hash(secret)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created := types.User{
		ID:         uuid.New(),
		Name:       name,
		Email:      email,
		Password:   hashed,
		ProfilePic: s.defPic,
		Provider:   provider,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateUser(ctx, created); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error creating user from provider: %w", err)
	}
	s.logger.InfoContext(ctx, "User created from OAuth provider",
		slog.String("provider", provider), slog.String("userID", created.ID.String()))
	return &created, nil
}

func (s *AuthServiceImpl) UpsertUser(ctx context.Context, name, email, password string) (*types.User, bool, error) {
	name = api.Sanitize(name)
	email = api.NormalizeEmail(email)
	if name == "" || email == "" {
		return nil, false, &FormError{Message: MsgInvalidInput, Err: types.ErrInvalidInput}
	}
	if err := ValidatePassword(password); err != nil {
		return nil, false, err
	}
	hashed, err := s.hash(password)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		u, err := s.repo.UpdateUser(ctx, existing.ID, func(u *types.User) error {
			u.Name = name
			u.Password = hashed
			u.UpdatedAt = s.now().UTC()
			return nil
		})
		return u, false, err
	case errors.Is(err, types.ErrNotFound):
		now := s.now().UTC()
		u := types.User{
			ID:         uuid.New(),
			Name:       name,
			Email:      email,
			Password:   hashed,
			ProfilePic: s.defPic,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.CreateUser(ctx, u); err != nil {
			return nil, false, err
		}
		return &u, true, nil
	default:
		return nil, false, err
	}
}

func (s *AuthServiceImpl) ResetPassword(ctx context.Context, email, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	user, err := s.repo.GetUserByEmail(ctx, api.NormalizeEmail(email))
	if err != nil {
		return err
	}
	hashed, err := s.hash(password)
	if err != nil {
		return err
	}
	_, err = s.repo.UpdateUser(ctx, user.ID, func(u *types.User) error {
		u.Password = hashed
		u.UpdatedAt = s.now().UTC()
		return nil
	})
	return err
}

// IssueToken signs a session token for user.
func (s *AuthServiceImpl) IssueToken(user *types.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.SessionTTL)
	claims := types.Claims{
		UserID: user.ID.String(),
		Name:   user.Name,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, exp, nil
}

// ParseToken validates signature, expiry and issuer of a session token.
func (s *AuthServiceImpl) ParseToken(tokenString string) (*types.Claims, error) {
	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.SecretKey), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, types.ErrUnauthenticated
	}
	return claims, nil
}

func (s *AuthServiceImpl) countLogin(ctx context.Context, result string) {
	metrics.Get().LoginAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (s *AuthServiceImpl) countSignup(ctx context.Context, result string) {
	metrics.Get().SignupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
