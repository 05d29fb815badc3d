package weight

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/bytebite/app/store"
	"github.com/FACorreiaa/bytebite/internal/api/auth"
	"github.com/FACorreiaa/bytebite/internal/types"
)

type MockPreferences struct {
	mock.Mock
}

func (m *MockPreferences) GetPreferences(ctx context.Context, userID uuid.UUID) (*types.Preferences, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preferences), args.Error(1)
}

var fixedNow = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, prefs PreferencesProvider) *WeightServiceImpl {
	t.Helper()
	logger := slog.Default()
	file := store.NewFile[types.WeightEntry](filepath.Join(t.TempDir(), "weights.json"), logger)
	s := NewWeightService(NewJSONWeightRepo(file, logger), prefs, logger)
	s.now = func() time.Time { return fixedNow }
	return s
}

func at(d time.Duration) *time.Time {
	t := fixedNow.Add(d)
	return &t
}

func TestParseBound(t *testing.T) {
	from, err := ParseBound("2025-05-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), from)

	to, err := ParseBound("2025-05-01", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 23, 59, 59, 999999999, time.UTC), to)

	ts, err := ParseBound("2025-05-01T10:00:00+02:00", false)
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)))

	zero, err := ParseBound("", true)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = ParseBound("yesterday", false)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestAddEntryValidation(t *testing.T) {
	s := newTestService(t, new(MockPreferences))
	ctx := context.Background()
	user := uuid.New()

	e, err := s.AddEntry(ctx, user, types.CreateWeightParams{WeightKg: 72.46})
	require.NoError(t, err)
	assert.Equal(t, 72.5, e.WeightKg)
	assert.Equal(t, fixedNow, e.RecordedAt)

	_, err = s.AddEntry(ctx, user, types.CreateWeightParams{WeightKg: 19.9})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = s.AddEntry(ctx, user, types.CreateWeightParams{WeightKg: 500.1})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = s.AddEntry(ctx, user, types.CreateWeightParams{WeightKg: 70, RecordedAt: at(30 * time.Second)})
	assert.NoError(t, err)
	_, err = s.AddEntry(ctx, user, types.CreateWeightParams{WeightKg: 70, RecordedAt: at(2 * time.Minute)})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestListEntriesOrderAndFilter(t *testing.T) {
	s := newTestService(t, new(MockPreferences))
	ctx := context.Background()
	user := uuid.New()

	for _, d := range []time.Duration{-24 * time.Hour, -72 * time.Hour, -48 * time.Hour} {
		_, err := s.AddEntry(ctx, user, types.CreateWeightParams{WeightKg: 80, RecordedAt: at(d)})
		require.NoError(t, err)
	}
	_, err := s.AddEntry(ctx, uuid.New(), types.CreateWeightParams{WeightKg: 60})
	require.NoError(t, err)

	all, err := s.ListEntries(ctx, user, types.WeightFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].RecordedAt.Before(all[1].RecordedAt))
	assert.True(t, all[1].RecordedAt.Before(all[2].RecordedAt))

	some, err := s.ListEntries(ctx, user, types.WeightFilter{From: fixedNow.Add(-50 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, some, 2)

	_, err = s.ListEntries(ctx, user, types.WeightFilter{From: fixedNow, To: fixedNow.Add(-time.Hour)})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestSummary(t *testing.T) {
	prefs := new(MockPreferences)
	s := newTestService(t, prefs)
	ctx := context.Background()
	user := uuid.New()

	empty, err := s.Summary(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.Nil(t, empty.Latest)

	for i, kg := range []float64{82, 84.5, 80} {
		_, err := s.AddEntry(ctx, user, types.CreateWeightParams{WeightKg: kg, RecordedAt: at(time.Duration(i-3) * 24 * time.Hour)})
		require.NoError(t, err)
	}

	height := 180.0
	prefs.On("GetPreferences", mock.Anything, user).Return(&types.Preferences{UserID: user, HeightCm: &height}, nil).Once()

	sum, err := s.Summary(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 82.0, sum.First.WeightKg)
	assert.Equal(t, 80.0, sum.Latest.WeightKg)
	assert.Equal(t, -2.0, sum.Change)
	assert.Equal(t, 80.0, sum.Min)
	assert.Equal(t, 84.5, sum.Max)
	require.NotNil(t, sum.BMI)
	assert.Equal(t, 24.7, *sum.BMI)
	prefs.AssertExpectations(t)

	prefs.On("GetPreferences", mock.Anything, user).Return(nil, errors.New("io")).Once()
	sum, err = s.Summary(ctx, user)
	require.NoError(t, err)
	assert.Nil(t, sum.BMI)
}

func TestDeleteEntryHandler(t *testing.T) {
	s := newTestService(t, new(MockPreferences))
	user := uuid.New()
	h := NewHandlerImpl(s, slog.Default())

	e, err := s.AddEntry(context.Background(), user, types.CreateWeightParams{WeightKg: 70})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUser(req.Context(), types.SessionUser{ID: user.String()})))
		})
	})
	r.Delete("/api/weights/{id}", h.DeleteEntry)
	r.Get("/api/weights", h.ListEntries)
	r.Post("/api/weights", h.AddEntry)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/weights?from=bad", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/weights", strings.NewReader(`{"weight_kg":5}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/weights/"+e.ID.String(), nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/weights/"+e.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
