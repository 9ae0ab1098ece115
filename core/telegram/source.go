package telegram

import (
	"context"
	"errors"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// UpdateSource adapts a telebot poller to the engine's update stream. The
// returned channel closes when ctx is cancelled and the poller has stopped.
type UpdateSource struct {
	bot    *tele.Bot
	buffer int

	mu  sync.Mutex
	err error
}

// NewUpdateSource builds a source over the bot's configured poller.
func NewUpdateSource(bot *tele.Bot, buffer int) *UpdateSource {
	if buffer <= 0 {
		buffer = 100
	}
	return &UpdateSource{bot: bot, buffer: buffer}
}

// Updates starts polling and returns the update channel. It may be called
// once per source.
func (s *UpdateSource) Updates(ctx context.Context) (<-chan tele.Update, error) {
	if s.bot == nil {
		return nil, errors.New("telegram: source has no bot")
	}
	if s.bot.Poller == nil {
		return nil, errors.New("telegram: bot has no poller configured")
	}

	updates := make(chan tele.Update, s.buffer)
	stop := make(chan struct{})
	pollDone := make(chan struct{})

	go func() {
		defer close(pollDone)
		defer func() {
			// Webhook pollers may panic on listener teardown races.
			if r := recover(); r != nil {
				s.setErr(errors.New("telegram: poller terminated abnormally"))
			}
		}()
		s.bot.Poller.Poll(s.bot, updates, stop)
	}()

	go func() {
		select {
		case <-ctx.Done():
			close(stop)
			<-pollDone
		case <-pollDone:
		}
		close(updates)
	}()

	return updates, nil
}

// Err reports a poller fault observed after the channel closed.
func (s *UpdateSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *UpdateSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}
