package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version  byte = 1
	kindMeta byte = 1
	kindKeys byte = 2

	metaLen = 4 + 1 + 1 + 8 + 8
	keysHdr = 4 + 1 + 1 + 4

	// MaxKeyLen bounds one registry entry (u16 length prefix).
	MaxKeyLen = 0xFFFF
)

var (
	ErrCorrupt    = errors.New("metacache: corrupt record")
	ErrKeyTooLong = errors.New("metacache: registry key too long")
	magic4        = [...]byte{'M', 'E', 'T', 'A'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Metadata is the shadow record kept next to every data entry.
// Both fields are unix seconds.
type Metadata struct {
	LastModified int64
	Timeout      int64
}

// Metadata: magic(4) | ver(1) | kind(1=meta) | lastModified(i64 be) | timeout(i64 be)
func EncodeMetadata(m Metadata) []byte {
	b := make([]byte, 0, metaLen)
	b = append(b, magic4[:]...)
	b = append(b, version, kindMeta)
	b = binary.BigEndian.AppendUint64(b, uint64(m.LastModified))
	b = binary.BigEndian.AppendUint64(b, uint64(m.Timeout))
	return b
}

func DecodeMetadata(b []byte) (Metadata, error) {
	if len(b) != metaLen || !hasMagic(b) || b[4] != version || b[5] != kindMeta {
		return Metadata{}, ErrCorrupt
	}
	return Metadata{
		LastModified: int64(binary.BigEndian.Uint64(b[6:14])),
		Timeout:      int64(binary.BigEndian.Uint64(b[14:22])),
	}, nil
}

// Keys (registry list):
//
//	magic(4) | ver(1) | kind(2=keys) | n(u32 be)
//	keyLen(u16 be) | key(keyLen) * n
func EncodeKeys(keys []string) ([]byte, error) {
	total := keysHdr
	for _, k := range keys {
		if len(k) > MaxKeyLen {
			return nil, ErrKeyTooLong
		}
		total += 2 + len(k)
	}

	b := make([]byte, 0, total)
	b = append(b, magic4[:]...)
	b = append(b, version, kindKeys)
	b = binary.BigEndian.AppendUint32(b, uint32(len(keys)))
	for _, k := range keys {
		b = binary.BigEndian.AppendUint16(b, uint16(len(k)))
		b = append(b, k...)
	}
	return b, nil
}

func DecodeKeys(b []byte) ([]string, error) {
	if len(b) < keysHdr || !hasMagic(b) || b[4] != version || b[5] != kindKeys {
		return nil, ErrCorrupt
	}
	off := 6
	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// every entry needs at least its 2-byte length
	if n > (len(b)-off)/2 {
		return nil, ErrCorrupt
	}

	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if off+2 > len(b) {
			return nil, ErrCorrupt
		}
		klen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if klen > len(b)-off {
			return nil, ErrCorrupt
		}
		keys = append(keys, string(b[off:off+klen]))
		off += klen
	}
	if off != len(b) {
		return nil, ErrCorrupt
	}
	return keys, nil
}
