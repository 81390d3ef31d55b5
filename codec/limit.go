package codec

import "fmt"

// MaxItemSize is memcached's default item size limit. The server also spends
// part of it on the key and item header, so payloads close to it can still
// be refused.
const MaxItemSize = 1 << 20

// Limit wraps another codec and rejects payloads larger than MaxDecode on
// Decode, and larger than MaxEncode on Encode. A limit <= 0 is disabled.
type Limit[V any] struct {
	Inner     Codec[V]
	MaxEncode int
	MaxDecode int
}

// ForMemcached caps encoded payloads at MaxItemSize.
func ForMemcached[V any](inner Codec[V]) Limit[V] {
	return Limit[V]{Inner: inner, MaxEncode: MaxItemSize}
}

func (c Limit[V]) Encode(v V) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxEncode)
	}
	return b, nil
}

func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
