// Package redisstore persists dialogue records in a Redis hash per key.
// Intended for bots that already run Redis and want shared state across
// replicas, optionally expiring idle conversations via TTL.
package redisstore

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/m3rciful/botkit/core/dialogue"
)

const (
	fieldData   = "data"
	fieldFormat = "format"
)

// Store implements dialogue.Storage over Redis. Each key maps to one hash
// holding the state blob and its format tag; HSET writes both fields in one
// atomic command, which gives the per-key consistency the contract requires.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTTL expires dialogue records after the given idle duration. Zero means
// no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New dials Redis and builds a store.
func New(addr, password string, db int, opts ...Option) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient builds a store over an existing client.
func NewFromClient(client *redis.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "botkit:dialogue:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(key int64) string {
	return s.prefix + strconv.FormatInt(key, 10)
}

// Get returns the record for key, or nil if the hash does not exist.
func (s *Store) Get(ctx context.Context, key int64) (*dialogue.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, &dialogue.StorageError{Op: "get", Key: key, Err: err}
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &dialogue.Record{
		Data:   []byte(fields[fieldData]),
		Format: fields[fieldFormat],
	}, nil
}

// Update upserts the record for key and refreshes its TTL if configured.
func (s *Store) Update(ctx context.Context, key int64, rec dialogue.Record) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(key), fieldData, rec.Data, fieldFormat, rec.Format)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(key), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &dialogue.StorageError{Op: "update", Key: key, Err: err}
	}
	return nil
}

// Remove deletes the record for key; deleting an absent key is a no-op.
func (s *Store) Remove(ctx context.Context, key int64) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return &dialogue.StorageError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error { return s.client.Close() }
