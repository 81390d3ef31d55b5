// Package codec turns cache values into the opaque payloads stored by a
// provider and back. A payload is never inspected by metacache itself.
//
// memcached refuses items above its item size (1MB by default, the -I flag),
// and a refused Set surfaces as a failed write. Wrap a codec in Limit with
// MaxEncode set to MaxItemSize to fail before the round trip instead.
package codec

// Codec encodes values of type V into payload bytes and decodes them back.
// Implementations must be safe for concurrent use.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
