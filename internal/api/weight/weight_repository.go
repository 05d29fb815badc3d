package weight

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/FACorreiaa/bytebite/app/store"
	"github.com/FACorreiaa/bytebite/internal/types"
)

var _ WeightRepo = (*JSONWeightRepo)(nil)

type WeightRepo interface {
	CreateEntry(ctx context.Context, entry types.WeightEntry) error
	// ListEntries returns the user's entries within filter, oldest first.
	ListEntries(ctx context.Context, userID uuid.UUID, filter types.WeightFilter) ([]types.WeightEntry, error)
	DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error
}

type JSONWeightRepo struct {
	logger *slog.Logger
	file   *store.File[types.WeightEntry]
}

func NewJSONWeightRepo(file *store.File[types.WeightEntry], logger *slog.Logger) *JSONWeightRepo {
	return &JSONWeightRepo{
		logger: logger,
		file:   file,
	}
}

func (r *JSONWeightRepo) CreateEntry(ctx context.Context, entry types.WeightEntry) error {
	return r.file.Update(ctx, func(all []types.WeightEntry) ([]types.WeightEntry, error) {
		return append(all, entry), nil
	})
}

func inRange(e types.WeightEntry, f types.WeightFilter) bool {
	if !f.From.IsZero() && e.RecordedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.RecordedAt.After(f.To) {
		return false
	}
	return true
}

func (r *JSONWeightRepo) ListEntries(ctx context.Context, userID uuid.UUID, filter types.WeightFilter) ([]types.WeightEntry, error) {
	all, err := r.file.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading weights: %w", err)
	}
	out := make([]types.WeightEntry, 0)
	for _, e := range all {
		if e.UserID == userID && inRange(e, filter) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

func (r *JSONWeightRepo) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error {
	return r.file.Update(ctx, func(all []types.WeightEntry) ([]types.WeightEntry, error) {
		for i := range all {
			if all[i].ID == entryID && all[i].UserID == userID {
				return append(all[:i], all[i+1:]...), nil
			}
		}
		return nil, types.ErrNotFound
	})
}
