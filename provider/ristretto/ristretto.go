package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/metacache/provider"
)

// Provider keeps entries in-process. Useful for tests and single-replica
// deployments; Flush only clears this process.
//
// Replace and Del are check-then-act and therefore not atomic.
type Provider struct {
	c *rc.Cache
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost of an entry is its payload length in bytes.
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Provider) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if b, ok, _ := p.Get(ctx, k); ok {
			out[k] = b
		}
	}
	return out, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	if value == nil {
		value = []byte{}
	}
	ok := p.c.SetWithTTL(key, value, int64(len(value))+1, ttl)
	// sets are buffered; wait so the write is visible to the next Get
	p.c.Wait()
	return ok, nil
}

func (p *Provider) Replace(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if _, ok := p.c.Get(key); !ok {
		return false, nil
	}
	return p.Set(ctx, key, value, ttl)
}

func (p *Provider) Del(_ context.Context, key string) (bool, error) {
	_, ok := p.c.Get(key)
	p.c.Del(key)
	return ok, nil
}

func (p *Provider) Flush(context.Context) error {
	p.c.Clear()
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Helper to expose metrics if desired by the application (not part of provider.Provider).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
