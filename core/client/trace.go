package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/botkit/core/logger"
)

// Traced logs every call passing through it: method, duration and outcome.
type Traced struct {
	inner Caller
}

// Trace wraps c with call logging on the wire component.
func Trace(c Caller) *Traced {
	return &Traced{inner: c}
}

// Call delegates to the inner caller and logs the result.
func (t *Traced) Call(ctx context.Context, method string, payload any) ([]byte, error) {
	start := time.Now()
	body, err := t.inner.Call(ctx, method, payload)
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "error"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		logger.Warn(ctx, "wire", "call.fail", attrs...)
		return body, err
	}
	attrs = append(attrs,
		slog.String("status", "ok"),
		slog.Int("bytes", len(body)),
	)
	logger.Debug(ctx, "wire", "call.done", attrs...)
	return body, nil
}
