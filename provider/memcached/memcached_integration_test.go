//go:build integration

package memcached_test

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/unkn0wn-root/metacache"
	"github.com/unkn0wn-root/metacache/codec"
	"github.com/unkn0wn-root/metacache/provider/memcached"
)

func setupMemcached(t *testing.T) memcached.Server {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "memcached:1.6-alpine",
			ExposedPorts: []string{"11211/tcp"},
			WaitingFor:   wait.ForListeningPort("11211/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start memcached container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "11211")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	p, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("port %q: %v", port.Port(), err)
	}
	return memcached.Server{Host: host, Port: p, Weight: 100}
}

func TestIntegration_ProviderPrimitives(t *testing.T) {
	srv := setupMemcached(t)
	p, err := memcached.New(memcached.Config{Servers: []memcached.Server{srv}, Compression: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close(context.Background())
	ctx := context.Background()

	if ok, err := p.Replace(ctx, "absent", []byte("x"), time.Minute); err != nil || ok {
		t.Fatalf("Replace on absent: ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte("v1"), time.Minute); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	if ok, err := p.Replace(ctx, "k", []byte("v2"), time.Minute); err != nil || !ok {
		t.Fatalf("Replace: ok=%v err=%v", ok, err)
	}
	if v, ok, err := p.Get(ctx, "k"); err != nil || !ok || string(v) != "v2" {
		t.Fatalf("Get=%q ok=%v err=%v", v, ok, err)
	}

	big := []byte(strings.Repeat("compressible ", 1000))
	if _, err := p.Set(ctx, "big", big, 0); err != nil {
		t.Fatalf("Set big: %v", err)
	}
	it, err := p.Client().Get("big")
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if len(it.Value) >= len(big) {
		t.Fatalf("payload not compressed: %d >= %d", len(it.Value), len(big))
	}
	if v, _, err := p.Get(ctx, "big"); err != nil || string(v) != string(big) {
		t.Fatalf("decompressed mismatch err=%v", err)
	}

	got, err := p.GetMulti(ctx, []string{"k", "big", "missing"})
	if err != nil || len(got) != 2 {
		t.Fatalf("GetMulti=%d err=%v", len(got), err)
	}
	if ok, err := p.Del(ctx, "k"); err != nil || !ok {
		t.Fatalf("Del: ok=%v err=%v", ok, err)
	}
	if ok, err := p.Del(ctx, "k"); err != nil || ok {
		t.Fatalf("Del absent: ok=%v err=%v", ok, err)
	}
	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "big"); ok {
		t.Fatalf("big survived Flush")
	}
}

func TestIntegration_CacheOverMemcached(t *testing.T) {
	srv := setupMemcached(t)
	p, err := memcached.New(memcached.Config{Servers: []memcached.Server{srv}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	newCache := func(prefix string) metacache.Cache[string] {
		c, err := metacache.New(metacache.Options[string]{
			Prefix:         prefix,
			Provider:       p,
			Codec:          codec.String{},
			StoreCacheInfo: true,
		})
		if err != nil {
			t.Fatalf("metacache.New: %v", err)
		}
		return c
	}
	app, other := newCache("app:"), newCache("other:")

	before := time.Now().Unix()
	for _, k := range []string{"user:1", "user:2", "order:1"} {
		if ok, err := app.Set(ctx, k, "v-"+k, time.Minute); err != nil || !ok {
			t.Fatalf("Set(%s): ok=%v err=%v", k, ok, err)
		}
	}
	if _, err := other.Set(ctx, "user:1", "x", time.Minute); err != nil {
		t.Fatal(err)
	}

	lm, _ := app.LastModified(ctx, "user:1")
	to, _ := app.Timeout(ctx, "user:1")
	if lm < before || to != lm+60 {
		t.Fatalf("lastModified=%d timeout=%d", lm, to)
	}

	n, err := app.RemovePattern(ctx, "user:*")
	if err != nil || n != 2 {
		t.Fatalf("RemovePattern n=%d err=%v", n, err)
	}
	if _, ok, _ := app.Get(ctx, "order:1"); !ok {
		t.Fatalf("order:1 should survive")
	}
	if _, ok, _ := other.Get(ctx, "user:1"); !ok {
		t.Fatalf("other:user:1 should survive app's pattern removal")
	}

	got, err := app.GetMany(ctx, []string{"user:1", "order:1"})
	if err != nil || len(got) != 1 || got["order:1"] != "v-order:1" {
		t.Fatalf("GetMany=%v err=%v", got, err)
	}

	if err := app.Clean(ctx, metacache.CleanAll); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if _, ok, _ := other.Get(ctx, "user:1"); ok {
		t.Fatalf("CleanAll must flush every prefix")
	}
}
