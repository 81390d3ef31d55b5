// Package memprovider is a map-backed provider.Provider for tests.
// Expiry is evaluated lazily against an injectable clock.
package memprovider

import (
	"context"
	"sync"
	"time"

	pr "github.com/unkn0wn-root/metacache/provider"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type Provider struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time

	// Fail, when set, is consulted before every call; a non-nil error is
	// returned instead of touching the map. op is one of
	// get, get_multi, set, replace, del, flush.
	Fail func(op, key string) error

	calls []string
}

var _ pr.Provider = (*Provider)(nil)

func New() *Provider { return &Provider{m: make(map[string]entry), now: time.Now} }

// WithClock makes TTLs relative to now().
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

// Calls returns "op key" for every call in order.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Provider) ResetCalls() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}

// Keys returns every live key.
func (p *Provider) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.m))
	for k := range p.m {
		if p.liveLocked(k) {
			out = append(out, k)
		}
	}
	return out
}

// TTL reports the remaining lifetime of key; ok is false when absent.
// A zero duration means no expiry.
func (p *Provider) TTL(key string) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.liveLocked(key) {
		return 0, false
	}
	e := p.m[key]
	if e.exp.IsZero() {
		return 0, true
	}
	return e.exp.Sub(p.now()), true
}

func (p *Provider) record(op, key string) error {
	p.calls = append(p.calls, op+" "+key)
	if p.Fail != nil {
		return p.Fail(op, key)
	}
	return nil
}

func (p *Provider) liveLocked(key string) bool {
	e, ok := p.m[key]
	if !ok {
		return false
	}
	if !e.exp.IsZero() && !p.now().Before(e.exp) {
		delete(p.m, key)
		return false
	}
	return true
}

func (p *Provider) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return p.now().Add(ttl)
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("get", key); err != nil {
		return nil, false, err
	}
	if !p.liveLocked(key) {
		return nil, false, nil
	}
	return p.m[key].v, true, nil
}

func (p *Provider) GetMulti(_ context.Context, keys []string) (map[string][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if err := p.record("get_multi", k); err != nil {
			return nil, err
		}
		if p.liveLocked(k) {
			out[k] = p.m[k].v
		}
	}
	return out, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("set", key); err != nil {
		return false, err
	}
	p.m[key] = entry{v: append([]byte(nil), value...), exp: p.expiry(ttl)}
	return true, nil
}

func (p *Provider) Replace(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("replace", key); err != nil {
		return false, err
	}
	if !p.liveLocked(key) {
		return false, nil
	}
	p.m[key] = entry{v: append([]byte(nil), value...), exp: p.expiry(ttl)}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("del", key); err != nil {
		return false, err
	}
	ok := p.liveLocked(key)
	delete(p.m, key)
	return ok, nil
}

func (p *Provider) Flush(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("flush", ""); err != nil {
		return err
	}
	p.m = make(map[string]entry)
	return nil
}

func (p *Provider) Close(context.Context) error { return nil }
