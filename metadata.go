package metacache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/metacache/internal/keys"
	"github.com/unkn0wn-root/metacache/internal/wire"
)

// writeMetadata stores {now, now+ttl} with the data entry's ttl so both expire
// together. ttl == 0 means no expiry and records Timeout 0.
func (c *cache[V]) writeMetadata(ctx context.Context, key string, ttl time.Duration) {
	now := c.now().Unix()
	m := wire.Metadata{LastModified: now}
	if ttl > 0 {
		m.Timeout = now + seconds(ttl)
	}
	mk := c.ns.Metadata(key)
	ok, err := c.provider.Set(ctx, mk, wire.EncodeMetadata(m), ttl)
	if err == nil && !ok {
		err = errRejected
	}
	if err != nil {
		c.log.Warn("metadata write failed", Fields{"key": key, "err": err})
		c.hooks.MetadataWriteFailed(mk, err)
	}
}

// readMetadata reports ok=false for a missing or undecodable record.
func (c *cache[V]) readMetadata(ctx context.Context, key string) (wire.Metadata, bool, error) {
	if keys.Reserved(key) {
		return wire.Metadata{}, false, ErrReservedKey
	}
	mk := c.ns.Metadata(key)
	raw, ok, err := c.provider.Get(ctx, mk)
	if err != nil || !ok {
		return wire.Metadata{}, false, err
	}
	m, err := wire.DecodeMetadata(raw)
	if err != nil {
		c.hooks.DecodeFailed(mk, err)
		return wire.Metadata{}, false, nil
	}
	return m, true, nil
}

func (c *cache[V]) LastModified(ctx context.Context, key string) (int64, error) {
	m, ok, err := c.readMetadata(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	return m.LastModified, nil
}

func (c *cache[V]) Timeout(ctx context.Context, key string) (int64, error) {
	m, ok, err := c.readMetadata(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	return m.Timeout, nil
}
