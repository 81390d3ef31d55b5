package config

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/metacache"
	"github.com/unkn0wn-root/metacache/codec"
	"github.com/unkn0wn-root/metacache/provider/memcached"
	"github.com/unkn0wn-root/metacache/provider/traced"
	reg "github.com/unkn0wn-root/metacache/registry"
)

type recLogger struct {
	mu   sync.Mutex
	warn []string
}

func (l *recLogger) Debug(string, metacache.Fields) {}
func (l *recLogger) Info(string, metacache.Fields)  {}
func (l *recLogger) Error(string, metacache.Fields) {}
func (l *recLogger) Warn(msg string, _ metacache.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warn = append(l.warn, msg)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Driver != DriverMemcached {
		t.Fatalf("driver=%q", cfg.Driver)
	}
	if cfg.Lifetime != 24*time.Hour {
		t.Fatalf("lifetime=%v", cfg.Lifetime)
	}
	if cfg.StoreCacheInfo || cfg.PruneRegistry {
		t.Fatalf("registry options must default to off")
	}
	servers, err := cfg.Memcached.ParseServers()
	if err != nil {
		t.Fatalf("ParseServers: %v", err)
	}
	want := memcached.Server{Host: "localhost", Port: 11211, Weight: 100}
	if len(servers) != 1 || servers[0] != want {
		t.Fatalf("servers=%+v", servers)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CACHE_DRIVER":              "memcached",
		"CACHE_PREFIX":              "app:",
		"CACHE_LIFETIME":            "90s",
		"CACHE_STORE_INFO":          "true",
		"MEMCACHED_SERVERS":         "10.0.0.1:11211:1,10.0.0.2:11212:3",
		"MEMCACHED_COMPRESSION":     "true",
		"MEMCACHED_BINARY_PROTOCOL": "true",
		"MEMCACHED_TIMEOUT":         "250ms",
		"REDIS_DB":                  "2",
		"RISTRETTO_MAX_COST":        "1024",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Prefix != "app:" || cfg.Lifetime != 90*time.Second || !cfg.StoreCacheInfo {
		t.Fatalf("cfg=%+v", cfg)
	}
	if !cfg.Memcached.Compression || !cfg.Memcached.BinaryProtocol || cfg.Memcached.Timeout != 250*time.Millisecond {
		t.Fatalf("memcached=%+v", cfg.Memcached)
	}
	servers, err := cfg.Memcached.ParseServers()
	if err != nil {
		t.Fatalf("ParseServers: %v", err)
	}
	if len(servers) != 2 || servers[1].Port != 11212 || servers[1].Weight != 3 {
		t.Fatalf("servers=%+v", servers)
	}
	if cfg.Redis.DB != 2 || cfg.Ristretto.MaxCost != 1024 {
		t.Fatalf("redis=%+v ristretto=%+v", cfg.Redis, cfg.Ristretto)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, environ := range map[string]map[string]string{
		"unknown driver":  {"CACHE_DRIVER": "etcd"},
		"negative ttl":    {"CACHE_LIFETIME": "-1s"},
		"bad duration":    {"CACHE_LIFETIME": "soon"},
		"bad server port": {"MEMCACHED_SERVERS": "host:notaport"},
		"zero weight":     {"MEMCACHED_SERVERS": "host:11211:0"},
	} {
		if _, err := LoadFrom(environ); !errors.Is(err, metacache.ErrInitialization) {
			t.Fatalf("%s: err=%v, want ErrInitialization", name, err)
		}
	}
}

func TestParseServer(t *testing.T) {
	s, err := ParseServer("cache-1")
	if err != nil {
		t.Fatalf("ParseServer: %v", err)
	}
	if s != (memcached.Server{Host: "cache-1", Port: 11211, Weight: 100}) {
		t.Fatalf("server=%+v", s)
	}
	s, err = ParseServer(" cache-2:11300 ")
	if err != nil || s.Port != 11300 || s.Weight != 100 {
		t.Fatalf("server=%+v err=%v", s, err)
	}
	for _, bad := range []string{"", ":11211", "a:1:2:3", "a:0", "a:70000", "a:1:-5"} {
		if _, err := ParseServer(bad); err == nil {
			t.Fatalf("ParseServer(%q) accepted", bad)
		}
	}
}

func TestOpenMemcachedWarnsOnBinaryProtocol(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"MEMCACHED_SERVERS":         "127.0.0.1:11211",
		"MEMCACHED_BINARY_PROTOCOL": "true",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	log := &recLogger{}
	b, err := Open(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Provider.Close(context.Background())

	if _, ok := b.Provider.(*memcached.Memcached); !ok {
		t.Fatalf("provider=%T", b.Provider)
	}
	if b.Registry != nil {
		t.Fatalf("memcached has no dedicated registry")
	}
	if len(log.warn) != 1 {
		t.Fatalf("warnings=%v", log.warn)
	}
}

func TestOpenRedisAtomicRegistry(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CACHE_DRIVER":          "redis",
		"CACHE_PREFIX":          "app:",
		"REDIS_ADDR":            "127.0.0.1:6379",
		"REDIS_ATOMIC_REGISTRY": "true",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	b, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Provider.Close(context.Background())

	if _, ok := b.Registry.(*reg.Redis); !ok {
		t.Fatalf("registry=%T", b.Registry)
	}
}

func TestOpenRistrettoIsUsable(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"CACHE_DRIVER":     "ristretto",
		"CACHE_PREFIX":     "t:",
		"CACHE_STORE_INFO": "true",
		"CACHE_TRACING":    "true",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	b, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := b.Provider.(*traced.Provider); !ok {
		t.Fatalf("provider=%T, want traced", b.Provider)
	}

	opts := Options[string](cfg, b)
	opts.Codec = codec.String{}
	c, err := metacache.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close(context.Background())

	ctx := context.Background()
	if ok, err := c.Set(ctx, "k", "v", 0); err != nil || !ok {
		t.Fatalf("Set ok=%v err=%v", ok, err)
	}
	if v, ok, err := c.Get(ctx, "k"); err != nil || !ok || v != "v" {
		t.Fatalf("Get=%q ok=%v err=%v", v, ok, err)
	}
	if c.Prefix() != "t:" {
		t.Fatalf("prefix=%q", c.Prefix())
	}
}
