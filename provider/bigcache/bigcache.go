package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	pr "github.com/unkn0wn-root/metacache/provider"
)

// Provider keeps entries in-process in a BigCache.
// BigCache has no per-entry TTL: every entry lives for LifeWindow, so the
// metadata timeout reported by metacache can outlive the real entry or the
// other way round. Keep LifeWindow aligned with DefaultTTL.
type Provider struct {
	c *bc.BigCache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (p *Provider) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		b, ok, err := p.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = b
		}
	}
	return out, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	// BigCache does not support per-entry TTL; uses global LifeWindow.
	if err := p.c.Set(key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Replace(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if _, err := p.c.Get(key); err != nil {
		if errors.Is(err, bc.ErrEntryNotFound) {
			return false, nil
		}
		return false, err
	}
	return p.Set(ctx, key, value, ttl)
}

func (p *Provider) Del(_ context.Context, key string) (bool, error) {
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (p *Provider) Flush(context.Context) error {
	return p.c.Reset()
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
