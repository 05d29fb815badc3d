package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/bytebite/app/store"
	"github.com/FACorreiaa/bytebite/internal/types"
)

var _ AuthRepo = (*JSONAuthRepo)(nil)

// AuthRepo defines the contract for credential persistence.
type AuthRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	// CreateUser stores a new user and fails with types.ErrConflict when the
	// email is already registered.
	CreateUser(ctx context.Context, user types.User) error
	// UpdateUser applies fn to the stored user and persists the result.
	UpdateUser(ctx context.Context, userID uuid.UUID, fn func(u *types.User) error) (*types.User, error)
}

// JSONAuthRepo keeps users in the credentials JSON file.
type JSONAuthRepo struct {
	logger *slog.Logger
	file   *store.File[types.User]
}

func NewJSONAuthRepo(file *store.File[types.User], logger *slog.Logger) *JSONAuthRepo {
	return &JSONAuthRepo{
		logger: logger,
		file:   file,
	}
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (r *JSONAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	users, err := r.file.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading credentials: %w", err)
	}
	for i := range users {
		if sameEmail(users[i].Email, email) {
			u := users[i]
			return &u, nil
		}
	}
	return nil, types.ErrNotFound
}

func (r *JSONAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	users, err := r.file.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading credentials: %w", err)
	}
	for i := range users {
		if users[i].ID == userID {
			u := users[i]
			return &u, nil
		}
	}
	return nil, types.ErrNotFound
}

func (r *JSONAuthRepo) CreateUser(ctx context.Context, user types.User) error {
	return r.file.Update(ctx, func(users []types.User) ([]types.User, error) {
		for _, u := range users {
			if sameEmail(u.Email, user.Email) {
				return nil, types.ErrConflict
			}
		}
		return append(users, user), nil
	})
}

func (r *JSONAuthRepo) UpdateUser(ctx context.Context, userID uuid.UUID, fn func(u *types.User) error) (*types.User, error) {
	var updated types.User
	err := r.file.Update(ctx, func(users []types.User) ([]types.User, error) {
		for i := range users {
			if users[i].ID != userID {
				continue
			}
			candidate := users[i]
			if err := fn(&candidate); err != nil {
				return nil, err
			}
			for j := range users {
				if j != i && sameEmail(users[j].Email, candidate.Email) {
					return nil, types.ErrConflict
				}
			}
			users[i] = candidate
			updated = candidate
			return users, nil
		}
		return nil, types.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Backfill assigns IDs to records written before users had one and
// normalises stored emails. It returns how many records changed.
func (r *JSONAuthRepo) Backfill(ctx context.Context) (int, error) {
	changed := 0
	err := r.file.Update(ctx, func(users []types.User) ([]types.User, error) {
		for i := range users {
			dirty := false
			if users[i].ID == uuid.Nil {
				users[i].ID = uuid.New()
				dirty = true
			}
			if email := strings.ToLower(strings.TrimSpace(users[i].Email)); email != users[i].Email {
				users[i].Email = email
				dirty = true
			}
			if dirty {
				changed++
			}
		}
		return users, nil
	})
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		r.logger.InfoContext(ctx, "Backfilled credential records", slog.Int("count", changed))
	}
	return changed, nil
}
