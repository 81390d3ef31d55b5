package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOROptions configures NewCBOR. The zero value gives compact, unsorted
// output with RFC3339Nano timestamps.
type CBOROptions struct {
	// Deterministic sorts map keys (RFC 8949 core deterministic encoding) so
	// equal values always store identical bytes.
	Deterministic bool
	// UnixTime stores time.Time as an epoch number instead of a string.
	UnixTime bool
	// MaxNestedLevels bounds decoding depth; 0 keeps the library default (32).
	MaxNestedLevels int
	// RejectDupMapKeys fails decoding of maps with repeated keys.
	RejectDupMapKeys bool
}

// CBOR stores values with fxamacker/cbor. Build it with NewCBOR or MustCBOR;
// the zero value panics on use.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](opts CBOROptions) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if opts.Deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano
	if opts.UnixTime {
		eo.Time = cbor.TimeUnixDynamic
	}
	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}

	do := cbor.DecOptions{MaxNestedLevels: opts.MaxNestedLevels}
	if opts.RejectDupMapKeys {
		do.DupMapKey = cbor.DupMapKeyEnforcedAPF
	}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR panics where NewCBOR would fail. Meant for package-level vars.
func MustCBOR[V any](opts CBOROptions) CBOR[V] {
	c, err := NewCBOR[V](opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
