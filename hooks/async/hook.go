// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    DecodeFailedEvery: 10, // sample logs: ~every 10th decode failure
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := metacache.New[User](metacache.Options[User]{
//	    Prefix:   "app:prod:user:",
//	    Provider: provider,
//	    Codec:    codec.JSON[User]{},
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/metacache"
)

// Hooks moves hook calls off the cache's hot path. Events are dropped, and
// counted, when the queue is full.
type Hooks struct {
	inner   metacache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ metacache.Hooks = (*Hooks)(nil)

func New(inner metacache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) MetadataWriteFailed(k string, err error) {
	h.try(func() { h.inner.MetadataWriteFailed(k, err) })
}
func (h *Hooks) RegistryAppendFailed(k string, err error) {
	h.try(func() { h.inner.RegistryAppendFailed(k, err) })
}
func (h *Hooks) ReplaceMissed(k string)       { h.try(func() { h.inner.ReplaceMissed(k) }) }
func (h *Hooks) ProviderSetRejected(k string) { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) DecodeFailed(k string, err error) {
	h.try(func() { h.inner.DecodeFailed(k, err) })
}
func (h *Hooks) PatternRemoved(p string, scanned, removed int) {
	h.try(func() { h.inner.PatternRemoved(p, scanned, removed) })
}
func (h *Hooks) Flushed(prefix string) { h.try(func() { h.inner.Flushed(prefix) }) }
