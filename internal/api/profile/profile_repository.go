package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/bytebite/app/store"
	"github.com/FACorreiaa/bytebite/internal/types"
)

var _ ProfileRepo = (*JSONProfileRepo)(nil)

type ProfileRepo interface {
	// GetPreferences returns types.ErrNotFound when the user never saved any.
	GetPreferences(ctx context.Context, userID uuid.UUID) (*types.Preferences, error)
	SavePreferences(ctx context.Context, prefs types.Preferences) error
}

// JSONProfileRepo keeps one preferences record per user in preferences.json.
type JSONProfileRepo struct {
	logger *slog.Logger
	file   *store.File[types.Preferences]
}

func NewJSONProfileRepo(file *store.File[types.Preferences], logger *slog.Logger) *JSONProfileRepo {
	return &JSONProfileRepo{
		logger: logger,
		file:   file,
	}
}

func (r *JSONProfileRepo) GetPreferences(ctx context.Context, userID uuid.UUID) (*types.Preferences, error) {
	all, err := r.file.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading preferences: %w", err)
	}
	for i := range all {
		if all[i].UserID == userID {
			p := all[i]
			return &p, nil
		}
	}
	return nil, types.ErrNotFound
}

func (r *JSONProfileRepo) SavePreferences(ctx context.Context, prefs types.Preferences) error {
	return r.file.Update(ctx, func(all []types.Preferences) ([]types.Preferences, error) {
		for i := range all {
			if all[i].UserID == prefs.UserID {
				all[i] = prefs
				return all, nil
			}
		}
		return append(all, prefs), nil
	})
}
