package codec

import "encoding/json"

// JSON is the default choice for plain structs. The zero value is ready to use.
// It is also the most verbose encoding here; large values nearing memcached's
// 1MB item limit fit better as Msgpack or Protobuf.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
