// Package dialogue persists per-conversation state across restarts. The
// Storage contract is backend-agnostic (in-memory, SQL, Redis); the typed
// Dialogue handle layers a serializer on top of opaque records.
package dialogue

import (
	"context"
	"fmt"

	"github.com/m3rciful/botkit/core/dialogue/serializer"
)

// Dialogue is a typed view over a Storage and a Serializer. The zero key
// convention follows the storage contract: no record means no dialogue in
// progress, which is distinct from an explicitly stored initial state.
type Dialogue[D any] struct {
	storage Storage
	ser     serializer.Serializer
}

// New builds a typed dialogue handle.
func New[D any](storage Storage, ser serializer.Serializer) *Dialogue[D] {
	if storage == nil || ser == nil {
		panic("dialogue: New requires a storage and a serializer")
	}
	return &Dialogue[D]{storage: storage, ser: ser}
}

// Get loads and decodes the state for key. The bool reports whether a record
// existed. A record written with a different format tag fails with
// DecodeError rather than being silently reinterpreted.
func (d *Dialogue[D]) Get(ctx context.Context, key int64) (D, bool, error) {
	var state D
	rec, err := d.storage.Get(ctx, key)
	if err != nil {
		return state, false, err
	}
	if rec == nil {
		return state, false, nil
	}
	if rec.Format != d.ser.Format() {
		return state, false, &DecodeError{
			Format: rec.Format,
			Err:    fmt.Errorf("record format %q does not match serializer %q", rec.Format, d.ser.Format()),
		}
	}
	if err := d.ser.Decode(rec.Data, &state); err != nil {
		return state, false, &DecodeError{Format: rec.Format, Err: err}
	}
	return state, true, nil
}

// GetOrDefault is Get that falls back to the zero value of D, persisting it
// so that a subsequent Get observes an existing record.
func (d *Dialogue[D]) GetOrDefault(ctx context.Context, key int64) (D, error) {
	state, ok, err := d.Get(ctx, key)
	if err != nil || ok {
		return state, err
	}
	var zero D
	if err := d.Update(ctx, key, zero); err != nil {
		return zero, err
	}
	return zero, nil
}

// Update encodes and upserts the state for key.
func (d *Dialogue[D]) Update(ctx context.Context, key int64, state D) error {
	data, err := d.ser.Encode(state)
	if err != nil {
		return fmt.Errorf("dialogue: encode key=%d: %w", key, err)
	}
	return d.storage.Update(ctx, key, Record{Data: data, Format: d.ser.Format()})
}

// Reset rewrites the dialogue with the zero value of D.
func (d *Dialogue[D]) Reset(ctx context.Context, key int64) error {
	var zero D
	return d.Update(ctx, key, zero)
}

// Exit removes the dialogue from storage, ending the conversation.
func (d *Dialogue[D]) Exit(ctx context.Context, key int64) error {
	return d.storage.Remove(ctx, key)
}
