package profile

import (
	"context"
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

var _ ProfileRepo = (*PostgresProfileRepo)(nil)

type PostgresProfileRepo struct {
	logger *slog.Logger
	db     database.DBTX
}

func NewPostgresProfileRepo(db database.DBTX, logger *slog.Logger) *PostgresProfileRepo {
	return &PostgresProfileRepo{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresProfileRepo) GetPreferences(ctx context.Context, userID uuid.UUID) (*types.Preferences, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "GetPreferences", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_preferences"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	query := `
        SELECT user_id, age, height_cm, gender, activity_level, goal, diet_type,
               allergies, cuisines, dislikes, updated_at
        FROM user_preferences
        WHERE user_id = $1`

	var (
		p             types.Preferences
		activityLevel string
		goal          string
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Age, &p.HeightCm, &p.Gender, &activityLevel, &goal, &p.DietType,
		&p.Allergies, &p.Cuisines, &p.Dislikes, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to query preferences", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching preferences: %w", err)
	}
	p.ActivityLevel = types.ActivityLevel(activityLevel)
	p.Goal = types.Goal(goal)
	span.SetStatus(codes.Ok, "preferences found")
	return &p, nil
}

func (r *PostgresProfileRepo) SavePreferences(ctx context.Context, p types.Preferences) error {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "SavePreferences", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_preferences"),
	))
	defer span.End()

	query := `
        INSERT INTO user_preferences (user_id, age, height_cm, gender, activity_level, goal, diet_type,
                                      allergies, cuisines, dislikes, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (user_id) DO UPDATE SET
            age = EXCLUDED.age,
            height_cm = EXCLUDED.height_cm,
            gender = EXCLUDED.gender,
            activity_level = EXCLUDED.activity_level,
            goal = EXCLUDED.goal,
            diet_type = EXCLUDED.diet_type,
            allergies = EXCLUDED.allergies,
            cuisines = EXCLUDED.cuisines,
            dislikes = EXCLUDED.dislikes,
            updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		p.UserID, p.Age, p.HeightCm, p.Gender, string(p.ActivityLevel), string(p.Goal), p.DietType,
		nonNil(p.Allergies), nonNil(p.Cuisines), nonNil(p.Dislikes), p.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert preferences", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB upsert failed")
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	span.SetStatus(codes.Ok, "preferences saved")
	return nil
}

// text[] columns are NOT NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
