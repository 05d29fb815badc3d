package weight

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/bytebite/app/db"
	"github.com/FACorreiaa/bytebite/internal/types"
)

var _ WeightRepo = (*PostgresWeightRepo)(nil)

type PostgresWeightRepo struct {
	logger *slog.Logger
	db     database.DBTX
}

func NewPostgresWeightRepo(db database.DBTX, logger *slog.Logger) *PostgresWeightRepo {
	return &PostgresWeightRepo{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresWeightRepo) CreateEntry(ctx context.Context, e types.WeightEntry) error {
	ctx, span := otel.Tracer("WeightRepo").Start(ctx, "CreateEntry", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "weight_entries"),
	))
	defer span.End()

	_, err := r.db.Exec(ctx,
		`INSERT INTO weight_entries (id, user_id, weight_kg, note, recorded_at, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.UserID, e.WeightKg, e.Note, e.RecordedAt, e.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate id")
			return fmt.Errorf("weight entry %s: %w", e.ID, types.ErrConflict)
		}
		r.logger.ErrorContext(ctx, "Failed to insert weight entry", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return fmt.Errorf("failed to insert weight entry: %w", err)
	}
	return nil
}

func (r *PostgresWeightRepo) ListEntries(ctx context.Context, userID uuid.UUID, filter types.WeightFilter) ([]types.WeightEntry, error) {
	ctx, span := otel.Tracer("WeightRepo").Start(ctx, "ListEntries", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "weight_entries"),
	))
	defer span.End()

	var sb strings.Builder
	sb.WriteString(`SELECT id, user_id, weight_kg, note, recorded_at, created_at FROM weight_entries WHERE user_id = $1`)
	args := []any{userID}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		sb.WriteString(" AND recorded_at >= $" + strconv.Itoa(len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		sb.WriteString(" AND recorded_at <= $" + strconv.Itoa(len(args)))
	}
	sb.WriteString(" ORDER BY recorded_at ASC")

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching weights: %w", err)
	}
	defer rows.Close()

	out := make([]types.WeightEntry, 0)
	for rows.Next() {
		var e types.WeightEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.WeightKg, &e.Note, &e.RecordedAt, &e.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning weight entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weight rows: %w", err)
	}
	return out, nil
}

func (r *PostgresWeightRepo) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM weight_entries WHERE id = $1 AND user_id = $2`, entryID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete weight entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
