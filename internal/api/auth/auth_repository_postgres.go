package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

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

var _ AuthRepo = (*PostgresAuthRepo)(nil)

type PostgresAuthRepo struct {
	logger *slog.Logger
	db     database.DBTX
}

func NewPostgresAuthRepo(db database.DBTX, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		db:     db,
	}
}

const userColumns = `id, name, email, password_hash, profile_pic, provider, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.ProfilePic, &u.Provider, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresAuthRepo) getUser(ctx context.Context, method, where string, arg any) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, method, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	u, err := scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "not found")
			return nil, types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query user", slog.String("method", method), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	span.SetStatus(codes.Ok, "user found")
	return u, nil
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return r.getUser(ctx, "GetUserByEmail", "lower(email) = lower($1)", email)
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return r.getUser(ctx, "GetUserByID", "id = $1", userID)
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, u types.User) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, profile_pic, provider, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Name, u.Email, u.Password, u.ProfilePic, u.Provider, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		if database.IsUniqueViolation(err) {
			return types.ErrConflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	span.SetStatus(codes.Ok, "user created")
	return nil
}

func (r *PostgresAuthRepo) UpdateUser(ctx context.Context, userID uuid.UUID, fn func(u *types.User) error) (*types.User, error) {
	u, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		return nil, err
	}
	u.ID = userID
	u.UpdatedAt = time.Now().UTC()

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET name = $1, email = $2, password_hash = $3, profile_pic = $4, provider = $5, updated_at = $6
         WHERE id = $7`,
		u.Name, u.Email, u.Password, u.ProfilePic, u.Provider, u.UpdatedAt, u.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, types.ErrConflict
		}
		r.logger.ErrorContext(ctx, "Failed to update user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, types.ErrNotFound
	}
	return u, nil
}
