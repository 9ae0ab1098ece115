package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/botkit/core/logger"
)

// ErrorKind classifies per-event failures. None of them stop the loop; only
// a source fault does, and that is reported by Run's return value.
type ErrorKind int

const (
	// KindHandler means an endpoint ran and failed (or panicked).
	KindHandler ErrorKind = iota
	// KindStorage means a backend fault on load or persist.
	KindStorage
	// KindDecode means the stored state was unreadable; the event was
	// dispatched with a fresh state instead.
	KindDecode
)

// String returns the lowercase kind name for logs.
func (k ErrorKind) String() string {
	switch k {
	case KindHandler:
		return "handler"
	case KindStorage:
		return "storage"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// EventError is one event's failure, surfaced to the error handler. Nothing
// is silently dropped.
type EventError struct {
	Kind ErrorKind
	Key  int64
	Err  error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("engine: %s error key=%d: %v", e.Kind, e.Key, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// ErrorHandler observes per-event failures.
type ErrorHandler func(ctx context.Context, e *EventError)

// LogErrorHandler is the default: one error line per failed event.
func LogErrorHandler(ctx context.Context, e *EventError) {
	logger.Error(ctx, "disp", "event.failed",
		slog.String("cause", e.Kind.String()),
		slog.Int64("chat_id", e.Key),
		slog.String("err", e.Err.Error()),
	)
}
