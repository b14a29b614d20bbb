package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/verihub/pkg/observability"
	"github.com/platinummonkey/verihub/pkg/state"
)

const sessionKeyPrefix = "session:"

// DefaultTTLGrace keeps an expired record readable long enough for the
// lazy Timeout conversion and the final relying-party response to
// happen before the store reclaims the key.
const DefaultTTLGrace = time.Hour

// RedisStore persists each session as one flat JSON record under its
// id, with a TTL past the session expiry. Replace runs an optimistic
// compare-and-swap so duplicate concurrent requests (double form
// submission, duplicate IDP post) cannot silently overwrite each other:
// the loser gets ErrTransitionConflict.
type RedisStore struct {
	client   *redis.Client
	ttlGrace time.Duration
	metrics  *observability.Metrics
}

// RedisStoreOption customizes a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithTTLGrace overrides how long past the session expiry records stay
// readable.
func WithTTLGrace(grace time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.ttlGrace = grace }
}

// WithStoreMetrics instruments store calls.
func WithStoreMetrics(m *observability.Metrics) RedisStoreOption {
	return func(s *RedisStore) { s.metrics = m }
}

// NewRedisStore wraps an existing client; the caller owns the client's
// lifecycle.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:   client,
		ttlGrace: DefaultTTLGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(id state.SessionID) string {
	return sessionKeyPrefix + id.String()
}

// ttlFor keeps the record alive until the session expiry plus the
// grace window. Already-expired states still get the full grace so the
// Timeout conversion remains readable.
func (s *RedisStore) ttlFor(st state.State) time.Duration {
	ttl := time.Until(st.Common().SessionExpiryTimestamp) + s.ttlGrace
	if ttl < s.ttlGrace {
		ttl = s.ttlGrace
	}
	return ttl
}

// Insert stores the first state for a fresh session id.
func (s *RedisStore) Insert(ctx context.Context, id state.SessionID, st state.State) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("insert", start, err) }(time.Now())

	data, err := state.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", id, err)
	}

	ok, err := s.client.SetNX(ctx, sessionKey(id), data, s.ttlFor(st)).Result()
	if err != nil {
		return fmt.Errorf("redis insert failed: %w", err)
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

// Replace swaps the stored value for an existing session via
// WATCH/MULTI. A concurrent writer between the read and the commit
// aborts the transaction and surfaces as ErrTransitionConflict.
func (s *RedisStore) Replace(ctx context.Context, id state.SessionID, st state.State) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("replace", start, err) }(time.Now())

	data, err := state.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", id, err)
	}

	key := sessionKey(id)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		if err := tx.Get(ctx, key).Err(); err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("redis read failed: %w", err)
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttlFor(st))
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrTransitionConflict
	}
	return err
}

// Get loads the current state.
func (s *RedisStore) Get(ctx context.Context, id state.SessionID) (st state.State, err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("get", start, err) }(time.Now())

	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	st, err = state.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return st, nil
}

// Has reports whether the session id is present.
func (s *RedisStore) Has(ctx context.Context, id state.SessionID) (ok bool, err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("has", start, err) }(time.Now())

	n, err := s.client.Exists(ctx, sessionKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

// Ping checks connectivity for health probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
