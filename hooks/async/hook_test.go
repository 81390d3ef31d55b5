package asynchook

import (
	"sync"
	"testing"

	"github.com/unkn0wn-root/metacache"
)

type countingHooks struct {
	metacache.NopHooks
	mu      sync.Mutex
	missed  []string
	release chan struct{}
}

func (c *countingHooks) ReplaceMissed(k string) {
	if c.release != nil {
		<-c.release
	}
	c.mu.Lock()
	c.missed = append(c.missed, k)
	c.mu.Unlock()
}

func TestCloseDrainsQueuedEvents(t *testing.T) {
	inner := &countingHooks{}
	h := New(inner, 2, 16)
	for i := 0; i < 10; i++ {
		h.ReplaceMissed("k")
	}
	h.Close()

	if len(inner.missed) != 10 {
		t.Fatalf("delivered %d events, want 10", len(inner.missed))
	}
	if h.Dropped() != 0 {
		t.Fatalf("dropped=%d", h.Dropped())
	}
}

func TestFullQueueDrops(t *testing.T) {
	inner := &countingHooks{release: make(chan struct{})}
	h := New(inner, 1, 1)

	// the worker blocks on the first event; the queue holds one more
	for i := 0; i < 5; i++ {
		h.ReplaceMissed("k")
	}
	close(inner.release)
	h.Close()

	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	if got := uint64(len(inner.missed)) + h.Dropped(); got != 5 {
		t.Fatalf("delivered+dropped=%d want 5", got)
	}
}

func TestAfterCloseIsDropped(t *testing.T) {
	h := New(&countingHooks{}, 1, 1)
	h.Close()
	h.Flushed("p")
	h.Close() // idempotent
	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", h.Dropped())
	}
}
