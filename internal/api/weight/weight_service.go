package weight

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/bytebite/internal/api"
	"github.com/FACorreiaa/bytebite/internal/types"
)

// clock skew tolerated on client supplied timestamps
const futureSkew = time.Minute

const dateLayout = "2006-01-02"

// PreferencesProvider supplies the stored height used for BMI.
type PreferencesProvider interface {
	GetPreferences(ctx context.Context, userID uuid.UUID) (*types.Preferences, error)
}

var _ WeightService = (*WeightServiceImpl)(nil)

type WeightService interface {
	AddEntry(ctx context.Context, userID uuid.UUID, params types.CreateWeightParams) (*types.WeightEntry, error)
	ListEntries(ctx context.Context, userID uuid.UUID, filter types.WeightFilter) ([]types.WeightEntry, error)
	DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error
	Summary(ctx context.Context, userID uuid.UUID) (*types.WeightSummary, error)
}

type WeightServiceImpl struct {
	logger *slog.Logger
	repo   WeightRepo
	prefs  PreferencesProvider
	now    func() time.Time
}

func NewWeightService(repo WeightRepo, prefs PreferencesProvider, logger *slog.Logger) *WeightServiceImpl {
	return &WeightServiceImpl{
		logger: logger,
		repo:   repo,
		prefs:  prefs,
		now:    time.Now,
	}
}

// ParseBound accepts RFC3339 or a bare date. A bare upper bound covers the
// whole day.
func ParseBound(s string, upper bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not RFC3339 or YYYY-MM-DD", types.ErrInvalidInput, s)
	}
	if upper {
		return d.Add(24*time.Hour - time.Nanosecond), nil
	}
	return d, nil
}

func (s *WeightServiceImpl) AddEntry(ctx context.Context, userID uuid.UUID, params types.CreateWeightParams) (*types.WeightEntry, error) {
	ctx, span := otel.Tracer("WeightService").Start(ctx, "AddEntry", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if params.WeightKg < 20 || params.WeightKg > 500 {
		return nil, fmt.Errorf("%w: weight must be between 20 and 500 kg", types.ErrInvalidInput)
	}
	now := s.now().UTC()
	recorded := now
	if params.RecordedAt != nil && !params.RecordedAt.IsZero() {
		recorded = params.RecordedAt.UTC()
		if recorded.After(now.Add(futureSkew)) {
			return nil, fmt.Errorf("%w: recorded_at cannot be in the future", types.ErrInvalidInput)
		}
	}

	entry := types.WeightEntry{
		ID:         uuid.New(),
		UserID:     userID,
		WeightKg:   math.Round(params.WeightKg*10) / 10,
		Note:       api.Sanitize(params.Note),
		RecordedAt: recorded,
		CreatedAt:  now,
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error saving weight entry: %w", err)
	}
	s.logger.InfoContext(ctx, "Weight recorded", slog.String("userID", userID.String()), slog.Float64("kg", entry.WeightKg))
	return &entry, nil
}

func (s *WeightServiceImpl) ListEntries(ctx context.Context, userID uuid.UUID, filter types.WeightFilter) ([]types.WeightEntry, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return nil, fmt.Errorf("%w: from is after to", types.ErrInvalidInput)
	}
	return s.repo.ListEntries(ctx, userID, filter)
}

func (s *WeightServiceImpl) DeleteEntry(ctx context.Context, userID, entryID uuid.UUID) error {
	return s.repo.DeleteEntry(ctx, userID, entryID)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func (s *WeightServiceImpl) Summary(ctx context.Context, userID uuid.UUID) (*types.WeightSummary, error) {
	ctx, span := otel.Tracer("WeightService").Start(ctx, "Summary")
	defer span.End()

	entries, err := s.repo.ListEntries(ctx, userID, types.WeightFilter{})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	sum := &types.WeightSummary{Count: len(entries)}
	if len(entries) == 0 {
		return sum, nil
	}

	first, latest := entries[0], entries[len(entries)-1]
	sum.First, sum.Latest = &first, &latest
	sum.Change = round1(latest.WeightKg - first.WeightKg)
	sum.Min, sum.Max = first.WeightKg, first.WeightKg
	for _, e := range entries[1:] {
		sum.Min = math.Min(sum.Min, e.WeightKg)
		sum.Max = math.Max(sum.Max, e.WeightKg)
	}

	prefs, err := s.prefs.GetPreferences(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "Could not load height for BMI", slog.Any("error", err))
		return sum, nil
	}
	if prefs.HeightCm != nil && *prefs.HeightCm > 0 {
		m := *prefs.HeightCm / 100
		bmi := round1(latest.WeightKg / (m * m))
		sum.BMI = &bmi
	}
	return sum, nil
}
