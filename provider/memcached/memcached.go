// Package memcached is the default metacache backend, built on
// github.com/bradfitz/gomemcache.
package memcached

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/klauspost/compress/zstd"

	pr "github.com/unkn0wn-root/metacache/provider"
)

const (
	DefaultHost   = "localhost"
	DefaultPort   = 11211
	DefaultWeight = 100

	// memcached reads expirations above 30 days as absolute unix times.
	maxRelativeExpiration = 30 * 24 * 60 * 60

	// WeightedAddrs scales weights down so the expanded list stays this long
	// or shorter (or one entry per server when there are more servers).
	maxWeightedAddrs = 1000

	// values shorter than this are never compressed
	compressThreshold = 2000

	flagZstd uint32 = 1 << 0
)

// Server is one memcached endpoint. Weight is relative to the other servers
// in the list; 0 means DefaultWeight. Very large or coprime weights are scaled
// down proportionally, so ratios finer than about 1 in 1000 are not kept.
type Server struct {
	Host   string
	Port   int
	Weight int
}

func (s Server) Addr() string {
	host := s.Host
	if host == "" {
		host = DefaultHost
	}
	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

type Config struct {
	// Client, when set, is used as-is and the fields below except Compression are ignored.
	Client *memcache.Client

	Servers      []Server      // empty => localhost:11211, weight 100
	Timeout      time.Duration // 0 => gomemcache default (500ms)
	MaxIdleConns int           // 0 => gomemcache default

	// Compression stores values of at least 2000 bytes zstd-compressed
	// when that makes them smaller. Reads always honor the flag.
	Compression bool

	// BinaryProtocol is kept for configuration parity only.
	// gomemcache speaks the text protocol.
	BinaryProtocol bool

	now func() time.Time
}

type Memcached struct {
	mc       *memcache.Client
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
	now      func() time.Time
}

var _ pr.Provider = (*Memcached)(nil)

func New(cfg Config) (*Memcached, error) {
	mc := cfg.Client
	if mc == nil {
		servers := cfg.Servers
		if len(servers) == 0 {
			servers = []Server{{Host: DefaultHost, Port: DefaultPort, Weight: DefaultWeight}}
		}
		var ss memcache.ServerList
		if err := ss.SetServers(WeightedAddrs(servers)...); err != nil {
			return nil, fmt.Errorf("memcached: servers: %w", err)
		}
		mc = memcache.NewFromSelector(&ss)
		if cfg.Timeout > 0 {
			mc.Timeout = cfg.Timeout
		}
		if cfg.MaxIdleConns > 0 {
			mc.MaxIdleConns = cfg.MaxIdleConns
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("memcached: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("memcached: zstd decoder: %w", err)
	}

	now := cfg.now
	if now == nil {
		now = time.Now
	}
	return &Memcached{mc: mc, compress: cfg.Compression, enc: enc, dec: dec, now: now}, nil
}

// Client exposes the underlying gomemcache client.
func (p *Memcached) Client() *memcache.Client { return p.mc }

func (p *Memcached) Get(_ context.Context, key string) ([]byte, bool, error) {
	it, err := p.mc.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	b, err := p.unpack(it)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Memcached) GetMulti(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	items, err := p.mc.GetMulti(keys)
	if err != nil {
		return nil, err
	}
	for k, it := range items {
		b, err := p.unpack(it)
		if err != nil {
			return nil, fmt.Errorf("memcached: %s: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

func (p *Memcached) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := p.mc.Set(p.pack(key, value, ttl)); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Memcached) Replace(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	err := p.mc.Replace(p.pack(key, value, ttl))
	if errors.Is(err, memcache.ErrNotStored) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Memcached) Del(_ context.Context, key string) (bool, error) {
	err := p.mc.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Flush runs flush_all on every server.
func (p *Memcached) Flush(context.Context) error {
	return p.mc.FlushAll()
}

func (p *Memcached) Close(context.Context) error {
	p.enc.Close()
	p.dec.Close()
	return nil
}

func (p *Memcached) pack(key string, value []byte, ttl time.Duration) *memcache.Item {
	it := &memcache.Item{Key: key, Value: value, Expiration: Expiration(ttl, p.now())}
	if p.compress && len(value) >= compressThreshold {
		if z := p.enc.EncodeAll(value, nil); len(z) < len(value) {
			it.Value = z
			it.Flags |= flagZstd
		}
	}
	return it
}

func (p *Memcached) unpack(it *memcache.Item) ([]byte, error) {
	if it.Flags&flagZstd == 0 {
		return it.Value, nil
	}
	b, err := p.dec.DecodeAll(it.Value, nil)
	if err != nil {
		return nil, fmt.Errorf("memcached: decompress %q: %w", it.Key, err)
	}
	return b, nil
}

// Expiration converts ttl to memcached's expiration field: 0 for no expiry,
// relative seconds up to 30 days, an absolute unix time beyond that.
// Sub-second remainders round up so a positive ttl never means "forever".
// Absolute times past the int32 range (2038-01-19) are clamped to its maximum.
func Expiration(ttl time.Duration, now time.Time) int32 {
	if ttl <= 0 {
		return 0
	}
	secs := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		secs++
	}
	if secs <= maxRelativeExpiration {
		return int32(secs)
	}
	at := now.Unix() + secs
	if at > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(at)
}

// WeightedAddrs expands servers into an address list where each server
// appears in proportion to its weight. gomemcache picks a server by hashing
// over the list, so repetition is how weight is expressed. Weights are
// reduced by their gcd; if the list would still exceed 1000 entries each
// count is scaled down proportionally, keeping at least one per server.
func WeightedAddrs(servers []Server) []string {
	g := 0
	for _, s := range servers {
		g = gcd(g, weight(s))
	}
	counts := make([]int64, len(servers))
	var total int64
	for i, s := range servers {
		counts[i] = int64(weight(s) / g)
		total += counts[i]
	}
	if total > maxWeightedAddrs {
		for i, n := range counts {
			counts[i] = max(1, n*maxWeightedAddrs/total)
		}
	}
	var out []string
	for i, s := range servers {
		for j := int64(0); j < counts[i]; j++ {
			out = append(out, s.Addr())
		}
	}
	return out
}

func weight(s Server) int {
	if s.Weight <= 0 {
		return DefaultWeight
	}
	return s.Weight
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
