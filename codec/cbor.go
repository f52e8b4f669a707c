// CBOR codec.
//
// Structs encode as CBOR maps (major type 5). Tagging rewrites the map
// head with one more pair and places the tag pair directly after it.
// Indefinite-length maps keep their head; the pair is inserted after it.
package codec

import (
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is the binary codec from RFC 8949, using core deterministic encoding.
var CBOR Codec = cborCodec{}

var (
	cborEnc, _ = cbor.CoreDetEncOptions().EncMode()
	cborDec, _ = cbor.DecOptions{}.DecMode()
)

const (
	cborMajorMap   = 5
	cborIndefinite = 31
)

type cborCodec struct{}

func (cborCodec) Name() string { return NameCBOR }

func (cborCodec) Marshal(v any) ([]byte, error) {
	return cborEnc.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return cborDec.Unmarshal(data, v)
}

func (cborCodec) Tag(record []byte, key string, tag uint16) ([]byte, error) {
	if len(record) == 0 || record[0]>>5 != cborMajorMap {
		return nil, ErrNotRecord
	}
	n, head, indefinite, ok := cborMapHead(record)
	if !ok {
		return nil, ErrNotRecord
	}
	k, err := cborEnc.Marshal(key)
	if err != nil {
		return nil, err
	}
	v, err := cborEnc.Marshal(tag)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(record)+len(k)+len(v)+8)
	if indefinite {
		out = append(out, record[:head]...)
	} else {
		out = cborAppendHead(out, cborMajorMap, n+1)
	}
	out = append(out, k...)
	out = append(out, v...)
	out = append(out, record[head:]...)
	return out, nil
}

// cborMapHead decodes the head of the map at the start of b, returning the
// pair count and the head's length in bytes.
func cborMapHead(b []byte) (n uint64, size int, indefinite, ok bool) {
	info := b[0] & 0x1f
	switch {
	case info < 24:
		return uint64(info), 1, false, true
	case info == 24 && len(b) >= 2:
		return uint64(b[1]), 2, false, true
	case info == 25 && len(b) >= 3:
		return uint64(binary.BigEndian.Uint16(b[1:])), 3, false, true
	case info == 26 && len(b) >= 5:
		return uint64(binary.BigEndian.Uint32(b[1:])), 5, false, true
	case info == 27 && len(b) >= 9:
		return binary.BigEndian.Uint64(b[1:]), 9, false, true
	case info == cborIndefinite:
		return 0, 1, true, true
	}
	return 0, 0, false, false
}

// cborAppendHead appends the shortest head for major type major and
// argument n.
func cborAppendHead(b []byte, major byte, n uint64) []byte {
	m := major << 5
	switch {
	case n < 24:
		return append(b, m|byte(n))
	case n <= 0xff:
		return append(b, m|24, byte(n))
	case n <= 0xffff:
		return binary.BigEndian.AppendUint16(append(b, m|25), uint16(n))
	case n <= 0xffffffff:
		return binary.BigEndian.AppendUint32(append(b, m|26), uint32(n))
	default:
		return binary.BigEndian.AppendUint64(append(b, m|27), n)
	}
}
