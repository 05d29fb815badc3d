package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/FACorreiaa/bytebite/app/store"
	"github.com/FACorreiaa/bytebite/internal/types"
)

var _ OrderRepo = (*JSONOrderRepo)(nil)

// OrderRepo scopes every lookup to the owning user; another user's order is
// reported as types.ErrNotFound.
type OrderRepo interface {
	CreateOrder(ctx context.Context, order types.Order) error
	ListOrders(ctx context.Context, userID uuid.UUID) ([]types.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error)
	UpdateOrder(ctx context.Context, userID, orderID uuid.UUID, fn func(o *types.Order) error) (*types.Order, error)
	DeleteOrder(ctx context.Context, userID, orderID uuid.UUID) error
}

type JSONOrderRepo struct {
	logger *slog.Logger
	file   *store.File[types.Order]
}

func NewJSONOrderRepo(file *store.File[types.Order], logger *slog.Logger) *JSONOrderRepo {
	return &JSONOrderRepo{
		logger: logger,
		file:   file,
	}
}

func (r *JSONOrderRepo) CreateOrder(ctx context.Context, order types.Order) error {
	return r.file.Update(ctx, func(all []types.Order) ([]types.Order, error) {
		return append(all, order), nil
	})
}

func (r *JSONOrderRepo) ListOrders(ctx context.Context, userID uuid.UUID) ([]types.Order, error) {
	all, err := r.file.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading orders: %w", err)
	}
	out := make([]types.Order, 0)
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *JSONOrderRepo) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error) {
	all, err := r.file.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading orders: %w", err)
	}
	for i := range all {
		if all[i].ID == orderID && all[i].UserID == userID {
			o := all[i]
			return &o, nil
		}
	}
	return nil, types.ErrNotFound
}

func (r *JSONOrderRepo) UpdateOrder(ctx context.Context, userID, orderID uuid.UUID, fn func(o *types.Order) error) (*types.Order, error) {
	var updated types.Order
	err := r.file.Update(ctx, func(all []types.Order) ([]types.Order, error) {
		for i := range all {
			if all[i].ID != orderID || all[i].UserID != userID {
				continue
			}
			candidate := all[i]
			candidate.Items = append([]types.OrderItem(nil), all[i].Items...)
			if err := fn(&candidate); err != nil {
				return nil, err
			}
			all[i] = candidate
			updated = candidate
			return all, nil
		}
		return nil, types.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *JSONOrderRepo) DeleteOrder(ctx context.Context, userID, orderID uuid.UUID) error {
	return r.file.Update(ctx, func(all []types.Order) ([]types.Order, error) {
		for i := range all {
			if all[i].ID == orderID && all[i].UserID == userID {
				return append(all[:i], all[i+1:]...), nil
			}
		}
		return nil, types.ErrNotFound
	})
}
