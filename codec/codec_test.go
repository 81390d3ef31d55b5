package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type item struct {
	ID    string    `json:"id" msgpack:"id" cbor:"id"`
	Count int       `json:"count" msgpack:"count" cbor:"count"`
	At    time.Time `json:"at" msgpack:"at" cbor:"at"`
}

func roundTrip[V any](t *testing.T, name string, c Codec[V], v V, eq func(a, b V) bool) {
	t.Helper()
	b, err := c.Encode(v)
	if err != nil {
		t.Fatalf("%s Encode: %v", name, err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("%s Decode: %v", name, err)
	}
	if !eq(got, v) {
		t.Fatalf("%s round-trip: got %+v want %+v", name, got, v)
	}
}

func TestStructCodecs(t *testing.T) {
	v := item{ID: "a", Count: 3, At: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	eq := func(a, b item) bool { return a.ID == b.ID && a.Count == b.Count && a.At.Equal(b.At) }

	roundTrip[item](t, "json", JSON[item]{}, v, eq)
	roundTrip[item](t, "msgpack", Msgpack[item]{}, v, eq)
	roundTrip[item](t, "cbor", MustCBOR[item](CBOROptions{}), v, eq)
	roundTrip[item](t, "cbor-det", MustCBOR[item](CBOROptions{Deterministic: true, UnixTime: true}), v, eq)
}

func TestCBORDeterministicIsStable(t *testing.T) {
	c := MustCBOR[map[string]int](CBOROptions{Deterministic: true})
	a, _ := c.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	b, _ := c.Encode(map[string]int{"c": 3, "a": 1, "b": 2})
	if !bytes.Equal(a, b) {
		t.Fatalf("deterministic CBOR should not depend on map order")
	}
}

func TestCBORRejectsDuplicateKeys(t *testing.T) {
	strict := MustCBOR[map[string]int](CBOROptions{RejectDupMapKeys: true})
	// {"a": 1, "a": 2}
	dup := []byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}
	if _, err := strict.Decode(dup); err == nil {
		t.Fatalf("expected duplicate key error")
	}
	if _, err := MustCBOR[map[string]int](CBOROptions{}).Decode(dup); err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decode(b)
	if err != nil || got.GetValue() != "hello" {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestProtobufDeterministicAndUnconstructed(t *testing.T) {
	c := NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })
	msg, err := structpb.NewStruct(map[string]any{"a": 1, "b": "x", "c": true, "d": 2.5})
	if err != nil {
		t.Fatal(err)
	}
	first, err := c.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		b, err := c.Encode(msg)
		if err != nil || !bytes.Equal(b, first) {
			t.Fatalf("encode %d differs (err=%v)", i, err)
		}
	}

	var zero Protobuf[*structpb.Struct]
	if _, err := zero.Decode(first); err == nil {
		t.Fatalf("expected error from zero-value Protobuf")
	}
}

func TestForMemcachedRejectsOversizedItems(t *testing.T) {
	c := ForMemcached[[]byte](Bytes{})
	if _, err := c.Encode(make([]byte, MaxItemSize)); err != nil {
		t.Fatalf("payload at the item limit: %v", err)
	}
	if _, err := c.Encode(make([]byte, MaxItemSize+1)); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected too large error, got %v", err)
	}
	// decode stays open so items written by other clients still load
	if _, err := c.Decode(make([]byte, 2*MaxItemSize)); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestRawCodecs(t *testing.T) {
	roundTrip[[]byte](t, "bytes", Bytes{}, []byte{0, 1, 2}, bytes.Equal)
	roundTrip[string](t, "string", String{}, "héllo", func(a, b string) bool { return a == b })
}

func TestLimit(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxEncode: 8, MaxDecode: 4}

	if _, err := c.Encode(strings.Repeat("x", 9)); err == nil {
		t.Fatalf("expected encode limit error")
	}
	if b, err := c.Encode("12345"); err != nil || string(b) != "12345" {
		t.Fatalf("Encode under limit: %q %v", b, err)
	}
	if _, err := c.Decode([]byte("12345")); err == nil {
		t.Fatalf("expected decode limit error")
	}
	if v, err := c.Decode([]byte("1234")); err != nil || v != "1234" {
		t.Fatalf("Decode at limit: %q %v", v, err)
	}

	open := Limit[string]{Inner: String{}}
	if _, err := open.Decode(bytes.Repeat([]byte("x"), 1<<16)); err != nil {
		t.Fatalf("disabled limit should pass: %v", err)
	}
}
