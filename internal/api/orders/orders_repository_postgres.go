package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/bytebite/app/db"
	"github.com/FACorreiaa/bytebite/internal/types"
)

var _ OrderRepo = (*PostgresOrderRepo)(nil)

type PostgresOrderRepo struct {
	logger *slog.Logger
	db     database.DBTX
}

func NewPostgresOrderRepo(db database.DBTX, logger *slog.Logger) *PostgresOrderRepo {
	return &PostgresOrderRepo{
		logger: logger,
		db:     db,
	}
}

const orderColumns = `id, user_id, restaurant, items, notes, status, total, created_at, updated_at`

func scanOrder(row pgx.Row) (*types.Order, error) {
	var (
		o      types.Order
		items  []byte
		status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.Restaurant, &items, &o.Notes, &status, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	o.Status = types.OrderStatus(status)
	return &o, nil
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("OrderRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "orders"),
	))
}

func (r *PostgresOrderRepo) CreateOrder(ctx context.Context, o types.Order) error {
	ctx, span := startSpan(ctx, "CreateOrder")
	defer span.End()

	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO orders (id, user_id, restaurant, items, notes, status, total, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.UserID, o.Restaurant, items, o.Notes, string(o.Status), o.Total, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate id")
			return fmt.Errorf("order %s: %w", o.ID, types.ErrConflict)
		}
		r.logger.ErrorContext(ctx, "Failed to insert order", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return fmt.Errorf("failed to insert order: %w", err)
	}
	span.SetStatus(codes.Ok, "order created")
	return nil
}

func (r *PostgresOrderRepo) ListOrders(ctx context.Context, userID uuid.UUID) ([]types.Order, error) {
	ctx, span := startSpan(ctx, "ListOrders")
	defer span.End()

	rows, err := r.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching orders: %w", err)
	}
	defer rows.Close()

	out := make([]types.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning order: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return out, nil
}

func (r *PostgresOrderRepo) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error) {
	ctx, span := startSpan(ctx, "GetOrder")
	defer span.End()

	o, err := scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching order: %w", err)
	}
	return o, nil
}

// UpdateOrder writes only if the status read before fn still holds, so two
// concurrent transitions cannot both succeed.
func (r *PostgresOrderRepo) UpdateOrder(ctx context.Context, userID, orderID uuid.UUID, fn func(o *types.Order) error) (*types.Order, error) {
	o, err := r.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	prevStatus := o.Status
	if err := fn(o); err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, "UpdateOrder")
	defer span.End()

	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order items: %w", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET restaurant = $1, items = $2, notes = $3, status = $4, total = $5, updated_at = $6
         WHERE id = $7 AND user_id = $8 AND status = $9`,
		o.Restaurant, items, o.Notes, string(o.Status), o.Total, o.UpdatedAt, orderID, userID, string(prevStatus))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: order changed concurrently", types.ErrConflict)
	}
	return o, nil
}

func (r *PostgresOrderRepo) DeleteOrder(ctx context.Context, userID, orderID uuid.UUID) error {
	ctx, span := startSpan(ctx, "DeleteOrder")
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
