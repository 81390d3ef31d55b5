package metacache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/metacache/codec"
	pr "github.com/unkn0wn-root/metacache/provider"
	reg "github.com/unkn0wn-root/metacache/registry"
)

// DefaultTTL is used when Options.DefaultTTL is zero.
const DefaultTTL = 24 * time.Hour

// CleanMode selects what Clean removes.
type CleanMode int

const (
	// CleanAll flushes the entire backend, not just this prefix.
	CleanAll CleanMode = iota + 1
	// CleanOld is accepted and does nothing; the backend expires entries itself.
	CleanOld
)

func (m CleanMode) String() string {
	switch m {
	case CleanAll:
		return "all"
	case CleanOld:
		return "old"
	default:
		return "unknown"
	}
}

// Cache is the public, provider-agnostic cache API.
// V is the caller's value type. Serialization is handled by a pluggable Codec[V].
//
// A ttl of 0 means Options.DefaultTTL; a negative ttl means no expiry.
// Timestamps are unix seconds.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (v V, ok bool, err error)
	// GetOr returns def on a miss and on any backend or decode error.
	GetOr(ctx context.Context, key string, def V) V
	Has(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) (bool, error)
	Remove(ctx context.Context, key string) (bool, error)

	// Clean with CleanAll flushes the whole backend, every prefix included.
	Clean(ctx context.Context, mode CleanMode) error
	// RemovePattern deletes every registered key matching the glob
	// ('*' any run, '?' one character). Requires StoreCacheInfo.
	RemovePattern(ctx context.Context, pattern string) (removed int, err error)

	// GetMany returns only the keys that were found.
	GetMany(ctx context.Context, keys []string) (map[string]V, error)

	// LastModified and Timeout return 0 when no metadata is stored.
	LastModified(ctx context.Context, key string) (int64, error)
	Timeout(ctx context.Context, key string) (int64, error)

	Prefix() string
	Provider() pr.Provider
	Close(context.Context) error
}

// Options tune the behavior of the cache.
// Only Provider and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Prefix namespaces every physical key. e.g. "app:prod:user:"
	Prefix   string
	Provider pr.Provider
	Codec    c.Codec[V]

	Logger     Logger        // if nil, NopLogger is used
	Hooks      Hooks         // if nil, NopHooks is used
	DefaultTTL time.Duration // 0 => 24h

	// StoreCacheInfo records written keys in a registry; required for RemovePattern.
	StoreCacheInfo bool
	// Registry overrides where keys are recorded (nil => registry.Store in the
	// provider under Prefix+"_metadata"). Ignored unless StoreCacheInfo is set.
	Registry reg.Registry
	// PruneRegistry drops matched keys from the registry during RemovePattern.
	// Off by default: the registry then only ever grows.
	PruneRegistry bool

	Now func() time.Time // nil => time.Now
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
