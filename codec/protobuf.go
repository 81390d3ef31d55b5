package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Protobuf stores generated messages. Encoding is deterministic, so equal
// messages produce equal payloads. Wire size is usually well under the JSON
// rendering, which leaves headroom against memcached's 1MB item limit.
type Protobuf[T proto.Message] struct {
	new func() T
	enc proto.MarshalOptions
}

var _ Codec[proto.Message] = Protobuf[proto.Message]{}

// NewProtobuf takes a constructor for an empty message, for example
// func() *userpb.User { return &userpb.User{} }.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor, enc: proto.MarshalOptions{Deterministic: true}}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.new == nil {
		var zero T
		return zero, errors.New("codec: Protobuf used without NewProtobuf")
	}
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
