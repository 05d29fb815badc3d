package orders

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/types"
)

var _ OrderService = (*OrderServiceImpl)(nil)

type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, params types.CreateOrderParams) (*types.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]types.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error)
	// UpdateStatus fails with types.ErrConflict when the transition is not allowed.
	UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, status types.OrderStatus) (*types.Order, error)
	DeleteOrder(ctx context.Context, userID, orderID uuid.UUID) error
}

type OrderServiceImpl struct {
	logger *slog.Logger
	repo   OrderRepo
	now    func() time.Time
}

func NewOrderService(repo OrderRepo, logger *slog.Logger) *OrderServiceImpl {
	return &OrderServiceImpl{
		logger: logger,
		repo:   repo,
		now:    time.Now,
	}
}

// orderTotal sums quantity*price and rounds to cents.
func orderTotal(items []types.OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += float64(it.Quantity) * it.Price
	}
	return math.Round(total*100) / 100
}

func (s *OrderServiceImpl) CreateOrder(ctx context.Context, userID uuid.UUID, params types.CreateOrderParams) (*types.Order, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "CreateOrder", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("order.items", len(params.Items)),
	))
	defer span.End()

	restaurant := api.Sanitize(params.Restaurant)
	if restaurant == "" {
		return nil, fmt.Errorf("%w: restaurant is required", types.ErrInvalidInput)
	}
	items := make([]types.OrderItem, 0, len(params.Items))
	for _, it := range params.Items {
		name := api.Sanitize(it.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: item name is required", types.ErrInvalidInput)
		}
		items = append(items, types.OrderItem{Name: name, Quantity: it.Quantity, Price: it.Price})
	}

	now := s.now().UTC()
	order := types.Order{
		ID:         uuid.New(),
		UserID:     userID,
		Restaurant: restaurant,
		Items:      items,
		Notes:      api.Sanitize(params.Notes),
		Status:     types.OrderPlaced,
		Total:      orderTotal(items),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create order", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, fmt.Errorf("error creating order: %w", err)
	}
	span.SetAttributes(attribute.String("order.id", order.ID.String()))
	s.logger.InfoContext(ctx, "Order placed",
		slog.String("orderID", order.ID.String()), slog.Float64("total", order.Total))
	return &order, nil
}

func (s *OrderServiceImpl) ListOrders(ctx context.Context, userID uuid.UUID) ([]types.Order, error) {
	return s.repo.ListOrders(ctx, userID)
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error) {
	return s.repo.GetOrder(ctx, userID, orderID)
}

func (s *OrderServiceImpl) UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, status types.OrderStatus) (*types.Order, error) {
	ctx, span := otel.Tracer("OrderService").Start(ctx, "UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("order.status", string(status)),
	))
	defer span.End()

	order, err := s.repo.UpdateOrder(ctx, userID, orderID, func(o *types.Order) error {
		if !o.Status.CanTransition(status) {
			return fmt.Errorf("%w: cannot move order from %s to %s", types.ErrConflict, o.Status, status)
		}
		o.Status = status
		o.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.InfoContext(ctx, "Order status changed",
		slog.String("orderID", orderID.String()), slog.String("status", string(status)))
	return order, nil
}

func (s *OrderServiceImpl) DeleteOrder(ctx context.Context, userID, orderID uuid.UUID) error {
	return s.repo.DeleteOrder(ctx, userID, orderID)
}
