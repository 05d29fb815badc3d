package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newTestFile(t *testing.T) *File[record] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "json", "credentials.json")
	return NewFile[record](path, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFileLoadMissingIsEmpty(t *testing.T) {
	f := newTestFile(t)

	items, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestFileUpdatePersistsPrettyJSON(t *testing.T) {
	f := newTestFile(t)
	ctx := context.Background()

	err := f.Update(ctx, func(items []record) ([]record, error) {
		return append(items, record{Name: "Jamie", Email: "jamie@example.com"}), nil
	})
	require.NoError(t, err)

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n    {\n        \"name\": \"Jamie\""), "4-space indentation")

	items, err := f.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "jamie@example.com", items[0].Email)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(f.Path()), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileUpdateCallbackErrorWritesNothing(t *testing.T) {
	f := newTestFile(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.Update(ctx, func(items []record) ([]record, error) {
		return append(items, record{Name: "x"}), boom
	})
	assert.ErrorIs(t, err, boom)

	_, statErr := os.Stat(f.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileLoadMalformed(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.Path()), 0o755))
	require.NoError(t, os.WriteFile(f.Path(), []byte("{not json"), 0o644))

	_, err := f.Load(context.Background())
	assert.Error(t, err)

	err = f.Update(context.Background(), func(items []record) ([]record, error) {
		t.Fatal("callback must not run on a corrupt file")
		return items, nil
	})
	assert.Error(t, err)
}

func TestFileConcurrentUpdates(t *testing.T) {
	f := newTestFile(t)
	ctx := context.Background()

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.Update(ctx, func(items []record) ([]record, error) {
				return append(items, record{Name: "n"}), nil
			})
		}()
	}
	wg.Wait()

	items, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, items, writers, "no update is lost")
}

func TestFileSeparateOwnersShareLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json", "orders.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	owners := []*File[int]{NewFile[int](path, logger), NewFile[int](path, logger)}
	ctx := context.Background()

	const perOwner = 100
	var wg sync.WaitGroup
	for _, f := range owners {
		for i := 0; i < perOwner; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, f.Update(ctx, func(items []int) ([]int, error) {
					return append(items, i), nil
				}))
			}()
		}
	}
	wg.Wait()

	items, err := owners[0].Load(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2*perOwner)
}

func TestFileUpdateCanceledWhileLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json", "orders.json")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	holder, waiter := NewFile[int](path, logger), NewFile[int](path, logger)

	release := make(chan struct{})
	entered := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- holder.Update(context.Background(), func(items []int) ([]int, error) {
			close(entered)
			<-release
			return append(items, 1), nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := waiter.Update(ctx, func(items []int) ([]int, error) {
		return append(items, 2), nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
	items, err := waiter.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, items)
}
