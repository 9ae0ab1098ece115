package dialogue

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/botkit/core/logger"
)

// TraceStorage wraps a Storage and logs every call with its duration and
// status. Useful when chasing backend latency or a misbehaving key.
type TraceStorage struct {
	inner Storage
}

// NewTraceStorage wraps inner with call logging.
func NewTraceStorage(inner Storage) *TraceStorage {
	return &TraceStorage{inner: inner}
}

// Get logs and delegates.
func (s *TraceStorage) Get(ctx context.Context, key int64) (*Record, error) {
	start := time.Now()
	rec, err := s.inner.Get(ctx, key)
	attrs := []slog.Attr{
		slog.String("op", "get"),
		slog.Int64("chat_id", key),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
		slog.Bool("found", rec != nil),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.Debug(ctx, "store", "store.call", attrs...)
	return rec, err
}

// Update logs and delegates.
func (s *TraceStorage) Update(ctx context.Context, key int64, rec Record) error {
	start := time.Now()
	err := s.inner.Update(ctx, key, rec)
	attrs := []slog.Attr{
		slog.String("op", "update"),
		slog.Int64("chat_id", key),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
		slog.Int("kb", len(rec.Data)/1024),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.Debug(ctx, "store", "store.call", attrs...)
	return err
}

// Remove logs and delegates.
func (s *TraceStorage) Remove(ctx context.Context, key int64) error {
	start := time.Now()
	err := s.inner.Remove(ctx, key)
	attrs := []slog.Attr{
		slog.String("op", "remove"),
		slog.Int64("chat_id", key),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.Debug(ctx, "store", "store.call", attrs...)
	return err
}

// Close delegates to the wrapped storage.
func (s *TraceStorage) Close() error { return s.inner.Close() }
