// Package engine drives the update loop: it pulls events from a source,
// loads the dialogue state for the event's key, runs the dispatch tree and
// persists whatever state change the handlers requested. Each event moves
// through received → state loaded → dispatched → state persisted; any phase
// can fail without stopping the loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/botkit/core/dialogue"
	"github.com/m3rciful/botkit/core/dialogue/serializer"
	"github.com/m3rciful/botkit/core/dispatch"
	"github.com/m3rciful/botkit/core/logger"
)

// Options configures an Engine. Tree, Storage, Serializer and Key are
// required.
type Options[E any, D any] struct {
	// Tree is the dispatch tree evaluated once per event.
	Tree *dispatch.Node
	// Storage persists dialogue records.
	Storage dialogue.Storage
	// Serializer encodes dialogue state of type D.
	Serializer serializer.Serializer
	// Key derives the dialogue key from an event. Events it rejects are
	// dispatched without dialogue state.
	Key func(E) (int64, bool)
	// BaseDeps holds services injected into every traversal (outbound
	// client, app services). The event and the dialogue ref are appended
	// per event.
	BaseDeps *dispatch.Deps
	// Workers bounds concurrent event processing. Defaults to 8.
	Workers int
	// OnError observes per-event failures. Defaults to LogErrorHandler.
	OnError ErrorHandler
}

// Engine is the update dispatcher. It is safe for a single Run call;
// the tree and storage it holds are shared by all worker goroutines.
type Engine[E any, D any] struct {
	opts Options[E, D]
	dlg  *dialogue.Dialogue[D]
	keys *keyedMutex
	seq  atomic.Uint64
}

// New validates opts and builds an engine.
func New[E any, D any](opts Options[E, D]) (*Engine[E, D], error) {
	if opts.Tree == nil {
		return nil, errors.New("engine: nil dispatch tree")
	}
	if opts.Storage == nil {
		return nil, errors.New("engine: nil storage")
	}
	if opts.Serializer == nil {
		return nil, errors.New("engine: nil serializer")
	}
	if opts.Key == nil {
		return nil, errors.New("engine: nil key function")
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.OnError == nil {
		opts.OnError = LogErrorHandler
	}
	return &Engine[E, D]{
		opts: opts,
		dlg:  dialogue.New[D](opts.Storage, opts.Serializer),
		keys: newKeyedMutex(),
	}, nil
}

// Run drains the source until it closes or ctx is cancelled. Per-event
// failures are reported and never stop the loop; only a source fault makes
// Run return an error.
func (e *Engine[E, D]) Run(ctx context.Context, src Source[E]) error {
	ch, err := src.Updates(ctx)
	if err != nil {
		return fmt.Errorf("engine: source start: %w", err)
	}

	logger.Info(ctx, "disp", "loop.start",
		slog.Int("workers", e.opts.Workers),
		slog.String("format", e.opts.Serializer.Format()),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.opts.Workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case evt, ok := <-ch:
					if !ok {
						return nil
					}
					e.process(gctx, evt)
				}
			}
		})
	}
	_ = g.Wait()

	if srcErr := src.Err(); srcErr != nil {
		logger.Error(ctx, "disp", "loop.fatal", slog.String("err", srcErr.Error()))
		return fmt.Errorf("engine: update source failed: %w", srcErr)
	}
	logger.Info(ctx, "disp", "loop.stop")
	return nil
}

// process runs the full per-event unit. For keyed events the unit holds the
// key's mutex from load to persist, so two events for the same conversation
// can never interleave their read-modify-write.
func (e *Engine[E, D]) process(ctx context.Context, evt E) {
	start := time.Now()
	key, keyed := e.opts.Key(evt)
	ctx = logger.WithRID(ctx, logger.BuildRID(e.seq.Add(1), key))
	if keyed {
		ctx = logger.WithChatKey(ctx, key)
	}

	defer func() {
		if r := recover(); r != nil {
			e.opts.OnError(ctx, &EventError{
				Kind: KindHandler,
				Key:  key,
				Err:  fmt.Errorf("handler panic: %v", r),
			})
		}
	}()

	logger.Debug(ctx, "disp", "event.received")

	if keyed {
		unlock := e.keys.Lock(key)
		defer unlock()
	}

	var (
		state   D
		present bool
	)
	if keyed {
		var err error
		state, present, err = e.dlg.Get(ctx, key)
		if err != nil {
			var decodeErr *dialogue.DecodeError
			if errors.As(err, &decodeErr) {
				// Fail open: dispatch with a fresh state, but say so loudly.
				e.opts.OnError(ctx, &EventError{Kind: KindDecode, Key: key, Err: err})
				var zero D
				state, present = zero, false
			} else {
				e.opts.OnError(ctx, &EventError{Kind: KindStorage, Key: key, Err: err})
				return
			}
		}
	}

	ref := dialogue.NewRef[D](key, state, present)
	deps := dispatch.With(e.opts.BaseDeps, evt)
	if keyed {
		deps = dispatch.With(deps, ref)
	}

	outcome, err := e.opts.Tree.Evaluate(ctx, deps)
	if err != nil {
		e.opts.OnError(ctx, &EventError{Kind: KindHandler, Key: key, Err: err})
		return
	}
	if outcome == dispatch.Unhandled {
		logger.Debug(ctx, "disp", "event.done",
			slog.String("outcome", "unhandled"),
			slog.Duration("duration", logger.Took(start)),
		)
		return
	}

	if keyed {
		// The persist step must complete even if shutdown began while the
		// handler was running; it is a single atomic backend operation.
		persistCtx := context.WithoutCancel(ctx)
		switch op, next := ref.Pending(); op {
		case dialogue.PendingSet:
			if err := e.dlg.Update(persistCtx, key, next); err != nil {
				e.opts.OnError(ctx, &EventError{Kind: KindStorage, Key: key, Err: err})
				return
			}
		case dialogue.PendingEnd:
			if err := e.dlg.Exit(persistCtx, key); err != nil {
				e.opts.OnError(ctx, &EventError{Kind: KindStorage, Key: key, Err: err})
				return
			}
		}
	}

	logger.Debug(ctx, "disp", "event.done",
		slog.String("outcome", "handled"),
		slog.Duration("duration", logger.Took(start)),
	)
}
