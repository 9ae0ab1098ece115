package engine

import "context"

// Source produces the inbound event stream. Updates returns a channel the
// engine drains until it closes or ctx is cancelled. A closed channel with a
// non-nil Err is a source fault and terminates the loop; a nil Err is a
// clean shutdown.
type Source[E any] interface {
	Updates(ctx context.Context) (<-chan E, error)
	Err() error
}

// ChanSource adapts a plain channel, mostly for tests and embedded feeds.
type ChanSource[E any] struct {
	C chan E
}

// NewChanSource builds a buffered channel source.
func NewChanSource[E any](buffer int) *ChanSource[E] {
	return &ChanSource[E]{C: make(chan E, buffer)}
}

// Updates returns the underlying channel.
func (s *ChanSource[E]) Updates(context.Context) (<-chan E, error) {
	return s.C, nil
}

// Err always reports a clean shutdown.
func (s *ChanSource[E]) Err() error { return nil }

// Push enqueues an event.
func (s *ChanSource[E]) Push(e E) { s.C <- e }

// Close ends the stream.
func (s *ChanSource[E]) Close() { close(s.C) }
