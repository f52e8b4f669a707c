// MessagePack codec.
//
// Structs encode as msgpack maps. Field names come from `msgpack` struct
// tags, falling back to `json` tags so one set of tags serves every codec.
package codec

import (
	"bytes"
	"encoding/binary"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is the MessagePack binary codec.
var Msgpack Codec = msgpackCodec{}

const (
	msgpackFixMapMin = 0x80
	msgpackFixMapMax = 0x8f
	msgpackMap16     = 0xde
	msgpackMap32     = 0xdf
)

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return NameMsgpack }

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (c msgpackCodec) Tag(record []byte, key string, tag uint16) ([]byte, error) {
	if len(record) == 0 {
		return nil, ErrNotRecord
	}
	var n uint32
	var head int
	switch b := record[0]; {
	case b >= msgpackFixMapMin && b <= msgpackFixMapMax:
		n, head = uint32(b&0x0f), 1
	case b == msgpackMap16 && len(record) >= 3:
		n, head = uint32(binary.BigEndian.Uint16(record[1:])), 3
	case b == msgpackMap32 && len(record) >= 5:
		n, head = binary.BigEndian.Uint32(record[1:]), 5
	default:
		return nil, ErrNotRecord
	}
	k, err := msgpack.Marshal(key)
	if err != nil {
		return nil, err
	}
	v, err := msgpack.Marshal(tag)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(record)+len(k)+len(v)+4)
	n++
	switch {
	case n <= 15:
		out = append(out, msgpackFixMapMin|byte(n))
	case n <= 0xffff:
		out = binary.BigEndian.AppendUint16(append(out, msgpackMap16), uint16(n))
	default:
		out = binary.BigEndian.AppendUint32(append(out, msgpackMap32), n)
	}
	out = append(out, k...)
	out = append(out, v...)
	out = append(out, record[head:]...)
	return out, nil
}
