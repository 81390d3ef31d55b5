// Package config builds a metacache backend from environment variables.
package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/metacache"
	"github.com/unkn0wn-root/metacache/internal/keys"
	pr "github.com/unkn0wn-root/metacache/provider"
	"github.com/unkn0wn-root/metacache/provider/bigcache"
	"github.com/unkn0wn-root/metacache/provider/memcached"
	"github.com/unkn0wn-root/metacache/provider/redis"
	"github.com/unkn0wn-root/metacache/provider/ristretto"
	"github.com/unkn0wn-root/metacache/provider/traced"
	reg "github.com/unkn0wn-root/metacache/registry"
)

const (
	DriverMemcached = "memcached"
	DriverRedis     = "redis"
	DriverRistretto = "ristretto"
	DriverBigCache  = "bigcache"
)

type Config struct {
	Driver         string        `env:"CACHE_DRIVER" envDefault:"memcached" validate:"oneof=memcached redis ristretto bigcache"`
	Prefix         string        `env:"CACHE_PREFIX"`
	Lifetime       time.Duration `env:"CACHE_LIFETIME" envDefault:"24h" validate:"gte=0"`
	StoreCacheInfo bool          `env:"CACHE_STORE_INFO"`
	PruneRegistry  bool          `env:"CACHE_PRUNE_REGISTRY"`
	Tracing        bool          `env:"CACHE_TRACING"`

	Memcached Memcached `envPrefix:"MEMCACHED_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	Ristretto Ristretto `envPrefix:"RISTRETTO_"`
	BigCache  BigCache  `envPrefix:"BIGCACHE_"`
}

type Memcached struct {
	// host[:port[:weight]], comma separated
	Servers        []string      `env:"SERVERS" envSeparator:"," envDefault:"localhost:11211:100" validate:"dive,required"`
	Compression    bool          `env:"COMPRESSION"`
	BinaryProtocol bool          `env:"BINARY_PROTOCOL"`
	Timeout        time.Duration `env:"TIMEOUT" validate:"gte=0"`
	MaxIdleConns   int           `env:"MAX_IDLE_CONNS" validate:"gte=0"`
}

type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" validate:"gte=0"`
	// AtomicRegistry keeps the key registry in a redis list instead of a
	// read-modify-write record.
	AtomicRegistry bool `env:"ATOMIC_REGISTRY"`
}

type Ristretto struct {
	NumCounters int64 `env:"NUM_COUNTERS" envDefault:"1000000" validate:"gt=0"`
	MaxCost     int64 `env:"MAX_COST" envDefault:"67108864" validate:"gt=0"`
	BufferItems int64 `env:"BUFFER_ITEMS" envDefault:"64" validate:"gt=0"`
}

type BigCache struct {
	LifeWindow         time.Duration `env:"LIFE_WINDOW" envDefault:"24h" validate:"gt=0"`
	HardMaxCacheSizeMB int           `env:"HARD_MAX_MB" validate:"gte=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads environ instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("%w: %v", metacache.ErrInitialization, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", metacache.ErrInitialization, err)
	}
	switch c.Driver {
	case DriverMemcached:
		if _, err := c.Memcached.ParseServers(); err != nil {
			return fmt.Errorf("%w: %v", metacache.ErrInitialization, err)
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: REDIS_ADDR is empty", metacache.ErrInitialization)
		}
	}
	return nil
}

// ParseServers turns "host[:port[:weight]]" entries into servers.
func (m Memcached) ParseServers() ([]memcached.Server, error) {
	out := make([]memcached.Server, 0, len(m.Servers))
	for _, raw := range m.Servers {
		s, err := ParseServer(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func ParseServer(raw string) (memcached.Server, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) > 3 || parts[0] == "" {
		return memcached.Server{}, fmt.Errorf("memcached server %q: want host[:port[:weight]]", raw)
	}
	s := memcached.Server{Host: parts[0], Port: memcached.DefaultPort, Weight: memcached.DefaultWeight}
	if len(parts) > 1 {
		p, err := strconv.Atoi(parts[1])
		if err != nil || p <= 0 || p > 65535 {
			return memcached.Server{}, fmt.Errorf("memcached server %q: bad port", raw)
		}
		s.Port = p
	}
	if len(parts) > 2 {
		w, err := strconv.Atoi(parts[2])
		if err != nil || w <= 0 {
			return memcached.Server{}, fmt.Errorf("memcached server %q: bad weight", raw)
		}
		s.Weight = w
	}
	return s, nil
}

// Backend is what Open builds: a provider plus, when the driver offers one,
// a dedicated registry.
type Backend struct {
	Provider pr.Provider
	Registry reg.Registry // nil => the cache's default registry.Store
}

// Open constructs the configured provider. It does not contact the backend.
func Open(_ context.Context, cfg Config, log metacache.Logger) (Backend, error) {
	if log == nil {
		log = metacache.NopLogger{}
	}
	var b Backend
	switch cfg.Driver {
	case DriverMemcached:
		servers, err := cfg.Memcached.ParseServers()
		if err != nil {
			return Backend{}, fmt.Errorf("%w: %v", metacache.ErrInitialization, err)
		}
		if cfg.Memcached.BinaryProtocol {
			log.Warn("memcached binary protocol not supported; using text protocol", nil)
		}
		p, err := memcached.New(memcached.Config{
			Servers:        servers,
			Timeout:        cfg.Memcached.Timeout,
			MaxIdleConns:   cfg.Memcached.MaxIdleConns,
			Compression:    cfg.Memcached.Compression,
			BinaryProtocol: cfg.Memcached.BinaryProtocol,
		})
		if err != nil {
			return Backend{}, fmt.Errorf("%w: %v", metacache.ErrInitialization, err)
		}
		b.Provider = p
	case DriverRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		p, err := redis.New(redis.Config{Client: client, CloseClient: true})
		if err != nil {
			return Backend{}, fmt.Errorf("%w: %v", metacache.ErrInitialization, err)
		}
		b.Provider = p
		if cfg.Redis.AtomicRegistry {
			b.Registry = reg.NewRedis(client, keys.New(cfg.Prefix).Registry())
		}
	case DriverRistretto:
		p, err := ristretto.New(ristretto.Config{
			NumCounters: cfg.Ristretto.NumCounters,
			MaxCost:     cfg.Ristretto.MaxCost,
			BufferItems: cfg.Ristretto.BufferItems,
		})
		if err != nil {
			return Backend{}, fmt.Errorf("%w: %v", metacache.ErrInitialization, err)
		}
		b.Provider = p
	case DriverBigCache:
		p, err := bigcache.New(bigcache.Config{
			LifeWindow:         cfg.BigCache.LifeWindow,
			HardMaxCacheSizeMB: cfg.BigCache.HardMaxCacheSizeMB,
		})
		if err != nil {
			return Backend{}, fmt.Errorf("%w: %v", metacache.ErrInitialization, err)
		}
		b.Provider = p
	default:
		return Backend{}, fmt.Errorf("%w: unknown driver %q", metacache.ErrInitialization, cfg.Driver)
	}

	if cfg.Tracing {
		b.Provider = traced.New(b.Provider, traced.Config{System: cfg.Driver})
	}
	log.Debug("cache backend ready", metacache.Fields{"driver": cfg.Driver, "prefix": cfg.Prefix})
	return b, nil
}

// Options fills the facade options that come from the environment.
func Options[V any](cfg Config, b Backend) metacache.Options[V] {
	return metacache.Options[V]{
		Prefix:         cfg.Prefix,
		Provider:       b.Provider,
		DefaultTTL:     cfg.Lifetime,
		StoreCacheInfo: cfg.StoreCacheInfo,
		Registry:       b.Registry,
		PruneRegistry:  cfg.PruneRegistry,
	}
}
