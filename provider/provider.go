// Package provider defines the backend store abstraction used by metacache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set/Replace for a key. If a store
// performs internal transforms (e.g., compression), they MUST be fully reversed.
//
// Absence is reported through the ok result, never through a sentinel value,
// so a stored payload can never be mistaken for a miss.
//
// Important: for a given prefix P the keys "P<key>", "P_metadata" and
// "P_metadata:<key>" are owned by metacache. External code MUST NOT write them.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs.
// Must be safe for concurrent use. No ordering or atomicity is assumed across calls.
// A ttl <= 0 means "no expiry".
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// GetMulti returns the entries found; misses are simply absent from the map.
	GetMulti(ctx context.Context, keys []string) (map[string][]byte, error)

	// Set unconditionally stores value.
	// Returns ok=false when the store rejected the write (pressure/admission).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Replace stores value only if key already exists.
	// Returns (false, nil) when the key is absent.
	Replace(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes a key. deleted is false when there was nothing to remove.
	Del(ctx context.Context, key string) (deleted bool, err error)

	// Flush drops every entry the backend holds, regardless of prefix.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}
