// Package store keeps small collections as pretty-printed JSON array files.
//
// Reads share a lock, updates hold it exclusively across the load-modify-write
// cycle, and writes go through a temp file and rename so readers never see a
// partial document. The lock is an advisory file lock next to the data file,
// so the server and bbadmin can work on the same directory at once.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/bytebite/app/observability/metrics"
)

const lockRetryDelay = 5 * time.Millisecond

// File is a JSON array of T on disk.
type File[T any] struct {
	path     string
	name     string
	lockPath string
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewFile[T any](path string, logger *slog.Logger) *File[T] {
	name := filepath.Base(path)
	return &File[T]{
		path:     path,
		name:     name,
		lockPath: filepath.Join(filepath.Dir(path), "."+name+".lock"),
		logger:   logger,
	}
}

func (f *File[T]) Path() string { return f.path }

// Load returns every record in the file. A missing file is an empty collection.
func (f *File[T]) Load(ctx context.Context) ([]T, error) {
	ctx, span := otel.Tracer("JSONStore").Start(ctx, "Load", trace.WithAttributes(
		attribute.String("store.file", f.name),
	))
	defer span.End()
	defer f.observe(ctx, "load", time.Now())

	f.mu.RLock()
	defer f.mu.RUnlock()

	unlock, err := f.lock(ctx, true)
	if err != nil {
		f.fail(ctx, span, "load", err)
		return nil, err
	}
	defer unlock()

	items, err := f.read()
	if err != nil {
		f.fail(ctx, span, "load", err)
		return nil, err
	}
	return items, nil
}

// Update loads the collection, hands it to fn and persists whatever fn
// returns. If fn fails nothing is written and its error is returned as-is.
func (f *File[T]) Update(ctx context.Context, fn func(items []T) ([]T, error)) error {
	ctx, span := otel.Tracer("JSONStore").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("store.file", f.name),
	))
	defer span.End()
	defer f.observe(ctx, "update", time.Now())

	f.mu.Lock()
	defer f.mu.Unlock()

	unlock, err := f.lock(ctx, false)
	if err != nil {
		f.fail(ctx, span, "update", err)
		return err
	}
	defer unlock()

	items, err := f.read()
	if err != nil {
		f.fail(ctx, span, "update", err)
		return err
	}

	updated, err := fn(items)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := f.write(updated); err != nil {
		f.fail(ctx, span, "update", err)
		return err
	}
	span.SetStatus(codes.Ok, "written")
	return nil
}

// lock takes the cross-process lock, shared for reads. Each call opens its own
// descriptor so concurrent readers in one process do not release each other.
func (f *File[T]) lock(ctx context.Context, shared bool) (func(), error) {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating %s: %w", dir, err)
	}

	fl := flock.New(f.lockPath)
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = fl.TryRLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = fl.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("error locking %s: %w", f.path, err)
	}
	if !ok {
		return nil, fmt.Errorf("error locking %s: %w", f.path, ctx.Err())
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			f.logger.Warn("Failed to release store lock", slog.String("file", f.lockPath), slog.Any("error", err))
		}
	}, nil
}

func (f *File[T]) read() ([]T, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("error reading %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", f.path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (f *File[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+f.name+".*.tmp")
	if err != nil {
		return fmt.Errorf("error saving to %s: %w", f.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error saving to %s: %w", f.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("error saving to %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error saving to %s: %w", f.path, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("error saving to %s: %w", f.path, err)
	}
	return nil
}

func (f *File[T]) observe(ctx context.Context, op string, start time.Time) {
	metrics.Get().StoreOpDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("file", f.name), attribute.String("op", op)))
}

func (f *File[T]) fail(ctx context.Context, span trace.Span, op string, err error) {
	f.logger.ErrorContext(ctx, "JSON store operation failed",
		slog.String("file", f.path), slog.String("op", op), slog.Any("error", err))
	span.RecordError(err)
	span.SetStatus(codes.Error, "store operation failed")
	metrics.Get().StoreOpErrorsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("file", f.name), attribute.String("op", op)))
}
