package metacache

import (
	"context"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/metacache/codec"
	"github.com/unkn0wn-root/metacache/internal/keys"
	pr "github.com/unkn0wn-root/metacache/provider"
	reg "github.com/unkn0wn-root/metacache/registry"
)

type cache[V any] struct {
	ns       keys.Namespace
	provider pr.Provider
	codec    c.Codec[V]
	log      Logger
	hooks    Hooks

	defaultTTL time.Duration
	registry   reg.Registry // nil => StoreCacheInfo disabled
	prune      bool
	now        func() time.Time
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: provider is required", ErrInitialization)
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("%w: codec is required", ErrInitialization)
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("%w: negative default ttl %v", ErrInitialization, opts.DefaultTTL)
	}

	c := &cache[V]{
		ns:       keys.New(opts.Prefix),
		provider: opts.Provider,
		codec:    opts.Codec,
		prune:    opts.PruneRegistry,
		now:      opts.Now,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, DefaultTTL)
	if c.now == nil {
		c.now = time.Now
	}
	if opts.StoreCacheInfo {
		c.registry = coalesce[reg.Registry](opts.Registry, reg.NewStore(opts.Provider, c.ns.Registry()))
	}
	return c, nil
}

func (c *cache[V]) Prefix() string        { return c.ns.Prefix() }
func (c *cache[V]) Provider() pr.Provider { return c.provider }

func (c *cache[V]) Close(ctx context.Context) error {
	return c.provider.Close(ctx)
}

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if keys.Reserved(key) {
		return zero, false, ErrReservedKey
	}
	k := c.ns.Physical(key)
	raw, ok, err := c.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		c.log.Warn("undecodable entry reported as miss", Fields{"key": key, "err": err})
		c.hooks.DecodeFailed(k, err)
		return zero, false, nil
	}
	return v, true, nil
}

func (c *cache[V]) GetOr(ctx context.Context, key string, def V) V {
	v, ok, err := c.Get(ctx, key)
	if err != nil {
		c.log.Debug("get failed; returning default", Fields{"key": key, "err": err})
		return def
	}
	if !ok {
		return def
	}
	return v
}

func (c *cache[V]) Has(ctx context.Context, key string) (bool, error) {
	if keys.Reserved(key) {
		return false, ErrReservedKey
	}
	_, ok, err := c.provider.Get(ctx, c.ns.Physical(key))
	return ok, err
}

// Set writes, in order: metadata record, registry entry, data entry.
// Only the data write decides the result; the first two are best-effort.
func (c *cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) (bool, error) {
	if keys.Reserved(key) {
		return false, ErrReservedKey
	}
	switch {
	case ttl == 0:
		ttl = c.defaultTTL
	case ttl < 0:
		ttl = 0 // no expiry
	}
	payload, err := c.codec.Encode(value)
	if err != nil {
		return false, err
	}
	k := c.ns.Physical(key)

	c.writeMetadata(ctx, key, ttl)

	if c.registry != nil {
		if err := c.registry.Append(ctx, k); err != nil {
			c.log.Warn("registry append failed; key invisible to RemovePattern", Fields{"key": key, "err": err})
			c.hooks.RegistryAppendFailed(k, err)
		}
	}

	ok, err := c.provider.Replace(ctx, k, payload, ttl)
	if err == nil && ok {
		return true, nil
	}
	if err != nil {
		c.log.Debug("replace failed; falling back to set", Fields{"key": key, "err": err})
	}
	c.hooks.ReplaceMissed(k)

	ok, err = c.provider.Set(ctx, k, payload, ttl)
	if err != nil {
		return false, err
	}
	if !ok {
		c.log.Debug("set rejected by provider (pressure)", Fields{"key": key})
		c.hooks.ProviderSetRejected(k)
	}
	return ok, nil
}

func (c *cache[V]) Remove(ctx context.Context, key string) (bool, error) {
	if keys.Reserved(key) {
		return false, ErrReservedKey
	}
	// metadata goes first; a missing record is not an error
	if _, err := c.provider.Del(ctx, c.ns.Metadata(key)); err != nil {
		c.log.Debug("metadata delete failed", Fields{"key": key, "err": err})
	}
	return c.provider.Del(ctx, c.ns.Physical(key))
}

func (c *cache[V]) Clean(ctx context.Context, mode CleanMode) error {
	if mode != CleanAll {
		c.log.Debug("clean mode has no effect", Fields{"mode": mode.String()})
		return nil
	}
	if err := c.provider.Flush(ctx); err != nil {
		return err
	}
	c.log.Warn("backend flushed (all prefixes)", Fields{"prefix": c.ns.Prefix()})
	c.hooks.Flushed(c.ns.Prefix())
	return nil
}

func (c *cache[V]) RemovePattern(ctx context.Context, pattern string) (int, error) {
	if c.registry == nil {
		return 0, &ConfigurationError{Op: "RemovePattern", Option: "StoreCacheInfo"}
	}
	re := c.ns.Pattern(pattern)
	registered, err := c.registry.Keys(ctx)
	if err != nil {
		return 0, err
	}

	var (
		seen    = make(map[string]struct{}, len(registered))
		gone    []string
		errs    []error
		removed int
	)
	for _, k := range registered {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if !re.MatchString(k) {
			continue
		}
		deleted, err := c.provider.Del(ctx, k)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete %q: %w", k, err))
			continue
		}
		gone = append(gone, k)
		if deleted {
			removed++
		}
		if lk, ok := c.ns.Logical(k); ok {
			if _, err := c.provider.Del(ctx, c.ns.Metadata(lk)); err != nil {
				c.log.Debug("metadata delete failed", Fields{"key": lk, "err": err})
			}
		}
	}

	if c.prune && len(gone) > 0 {
		if err := c.registry.Prune(ctx, gone); err != nil {
			errs = append(errs, fmt.Errorf("prune registry: %w", err))
		}
	}

	c.log.Debug("pattern removed", Fields{"pattern": pattern, "scanned": len(seen), "removed": removed})
	c.hooks.PatternRemoved(pattern, len(seen), removed)
	if len(errs) > 0 {
		return removed, &PatternError{Pattern: pattern, Errs: errs}
	}
	return removed, nil
}

func (c *cache[V]) GetMany(ctx context.Context, ks []string) (map[string]V, error) {
	out := make(map[string]V, len(ks))
	if len(ks) == 0 {
		return out, nil
	}

	physical := make([]string, 0, len(ks))
	logical := make(map[string]string, len(ks))
	for _, k := range ks {
		if keys.Reserved(k) {
			return nil, fmt.Errorf("%w: %q", ErrReservedKey, k)
		}
		pk := c.ns.Physical(k)
		if _, dup := logical[pk]; dup {
			continue
		}
		logical[pk] = k
		physical = append(physical, pk)
	}

	raw, err := c.provider.GetMulti(ctx, physical)
	if err != nil {
		return nil, err
	}
	for pk, b := range raw {
		k, ok := logical[pk]
		if !ok {
			continue
		}
		v, err := c.codec.Decode(b)
		if err != nil {
			c.hooks.DecodeFailed(pk, err)
			continue
		}
		out[k] = v
	}
	return out, nil
}
