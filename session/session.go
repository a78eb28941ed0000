// Package session defines the per-user key-value store that force-reply
// continuations and application handlers keep their state in, together with
// in-memory, Redis, SQL and MongoDB implementations.
//
// Every operation that reads or writes a key extends its expiry to now+ttl.
// A key whose expiry has passed behaves as absent on its next access; no
// background sweep is required.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidTTL is returned when a non-positive ttl is passed to an
// operation that refreshes expiry.
var ErrInvalidTTL = errors.New("session: ttl must be positive")

// ErrEmptyKey is returned for an empty key.
var ErrEmptyKey = errors.New("session: empty key")

// Store is the session store contract.
type Store interface {
	// GetField reads one field and refreshes the key's expiry. ok is false
	// when the key or field is absent or expired.
	GetField(ctx context.Context, key, field string, ttl time.Duration) (value string, ok bool, err error)

	// UpdateFields upserts fields and refreshes the key's expiry.
	UpdateFields(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error

	// DeleteFields removes fields and refreshes the key's expiry.
	DeleteFields(ctx context.Context, key string, ttl time.Duration, fields ...string) error

	// DeleteKey removes the key and all of its fields.
	DeleteKey(ctx context.Context, key string) error

	// Snapshot returns every field of the key and refreshes its expiry. The
	// map is empty when the key is absent or expired.
	Snapshot(ctx context.Context, key string, ttl time.Duration) (map[string]string, error)
}

func checkArgs(key string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
