package weight

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/bytebite/internal/types"
)

const listPrefix = `SELECT id, user_id, weight_kg, note, recorded_at, created_at FROM weight_entries WHERE user_id = $1`

func TestPostgresWeightRepo_ListEntriesBounds(t *testing.T) {
	userID := uuid.New()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name   string
		filter types.WeightFilter
		sql    string
		args   []any
	}{
		{
			name: "no bounds",
			sql:  listPrefix + " ORDER BY recorded_at ASC",
			args: []any{userID},
		},
		{
			name:   "from only",
			filter: types.WeightFilter{From: from},
			sql:    listPrefix + " AND recorded_at >= $2 ORDER BY recorded_at ASC",
			args:   []any{userID, from},
		},
		{
			name:   "to only",
			filter: types.WeightFilter{To: to},
			sql:    listPrefix + " AND recorded_at <= $2 ORDER BY recorded_at ASC",
			args:   []any{userID, to},
		},
		{
			name:   "both bounds",
			filter: types.WeightFilter{From: from, To: to},
			sql:    listPrefix + " AND recorded_at >= $2 AND recorded_at <= $3 ORDER BY recorded_at ASC",
			args:   []any{userID, from, to},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer mockPool.Close()

			entryID := uuid.New()
			recorded := from.Add(48 * time.Hour)
			mockPool.ExpectQuery(tc.sql).
				WithArgs(tc.args...).
				WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "weight_kg", "note", "recorded_at", "created_at"}).
					AddRow(entryID, userID, 71.5, "after run", recorded, recorded))

			repo := NewPostgresWeightRepo(mockPool, slog.Default())
			entries, err := repo.ListEntries(context.Background(), userID, tc.filter)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, entryID, entries[0].ID)
			assert.InDelta(t, 71.5, entries[0].WeightKg, 1e-9)
			assert.NoError(t, mockPool.ExpectationsWereMet())
		})
	}
}

func TestPostgresWeightRepo_DeleteEntryMissing(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	userID, entryID := uuid.New(), uuid.New()
	mockPool.ExpectExec(`DELETE FROM weight_entries WHERE id = \$1 AND user_id = \$2`).
		WithArgs(entryID, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewPostgresWeightRepo(mockPool, slog.Default())
	err = repo.DeleteEntry(context.Background(), userID, entryID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
