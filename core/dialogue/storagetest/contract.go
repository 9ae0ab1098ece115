// Package storagetest holds the contract suite every Storage backend must
// pass. Backend packages call Run from their own tests so the in-memory,
// SQL and Redis adapters stay observably identical.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/botkit/core/dialogue"
)

// Run verifies that store satisfies the dialogue.Storage contract.
func Run(t *testing.T, store dialogue.Storage) {
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		rec, err := store.Get(ctx, 90001)
		require.NoError(t, err, "absence must not be an error")
		assert.Nil(t, rec, "absent key must yield a nil record")
	})

	t.Run("UpdateGetRoundTrip", func(t *testing.T) {
		want := dialogue.Record{Data: []byte{0x01, 0x02, 0x00, 0xfe}, Format: "msgpack"}
		require.NoError(t, store.Update(ctx, 90002, want))

		rec, err := store.Get(ctx, 90002)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, want.Data, rec.Data)
		assert.Equal(t, want.Format, rec.Format, "format tag must round-trip with the blob")
	})

	t.Run("LastWriteWins", func(t *testing.T) {
		require.NoError(t, store.Update(ctx, 90003, dialogue.Record{Data: []byte("b1"), Format: "msgpack"}))
		require.NoError(t, store.Update(ctx, 90003, dialogue.Record{Data: []byte("b2"), Format: "cbor"}))

		rec, err := store.Get(ctx, 90003)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "b2", string(rec.Data))
		assert.Equal(t, "cbor", rec.Format)
	})

	t.Run("RemoveIdempotent", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, 90004), "removing an absent key is a no-op")

		require.NoError(t, store.Update(ctx, 90004, dialogue.Record{Data: []byte("x"), Format: "msgpack"}))
		require.NoError(t, store.Remove(ctx, 90004))

		rec, err := store.Get(ctx, 90004)
		require.NoError(t, err)
		assert.Nil(t, rec, "record must be gone after remove")

		require.NoError(t, store.Remove(ctx, 90004), "second remove is still a no-op")
	})

	t.Run("PerKeyAtomicity", func(t *testing.T) {
		// Hammer a single key with whole-record writes; a reader must only
		// ever observe one of the written records, never a torn mix.
		const writers = 8
		const rounds = 25

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < rounds; i++ {
					payload := []byte(fmt.Sprintf("writer-%d-round-%d", w, i))
					if err := store.Update(ctx, 90005, dialogue.Record{Data: payload, Format: "msgpack"}); err != nil {
						t.Errorf("update: %v", err)
						return
					}
					rec, err := store.Get(ctx, 90005)
					if err != nil {
						t.Errorf("get: %v", err)
						return
					}
					if rec == nil || rec.Format != "msgpack" {
						t.Errorf("torn read: %+v", rec)
						return
					}
				}
			}(w)
		}
		wg.Wait()
	})

	t.Run("DistinctKeysIsolated", func(t *testing.T) {
		const keys = 16
		var wg sync.WaitGroup
		for k := int64(0); k < keys; k++ {
			wg.Add(1)
			go func(key int64) {
				defer wg.Done()
				rec := dialogue.Record{Data: []byte{byte(key)}, Format: "msgpack"}
				if err := store.Update(ctx, 91000+key, rec); err != nil {
					t.Errorf("update key %d: %v", key, err)
				}
			}(k)
		}
		wg.Wait()

		for k := int64(0); k < keys; k++ {
			rec, err := store.Get(ctx, 91000+k)
			require.NoError(t, err)
			require.NotNil(t, rec, "key %d lost its record", k)
			assert.Equal(t, []byte{byte(k)}, rec.Data, "key %d observed another key's state", k)
		}
	})
}
