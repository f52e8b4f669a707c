// Package codec provides the encodings a versioned record can be written
// with. A Codec turns a Go value into bytes and back; the root package
// adds the schema tag on top of whatever the codec produces.
//
// Codecs whose output is a field record (JSON objects, CBOR maps, msgpack
// maps) also implement Tagger, which lets the tag be spliced in as the
// record's leading field. Codecs without that capability get a nested
// envelope instead.
package codec

import (
	"errors"
	"fmt"
)

// Names accepted by Lookup.
const (
	NameJSON    = "json"
	NameCBOR    = "cbor"
	NameMsgpack = "msgpack"
)

var (
	ErrUnknown    = errors.New("unknown codec")
	ErrNotRecord  = errors.New("encoded value is not a field record")
	ErrDecompress = errors.New("decompression failed")
)

// Codec encodes and decodes whole values. Implementations must be safe for
// concurrent use.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Tagger is implemented by codecs that can add a field to an already
// encoded record. Tag returns a new record whose first field is key with
// the unsigned integer value tag, followed by every field of record.
// ErrNotRecord is returned when record does not encode a field map.
type Tagger interface {
	Tag(record []byte, key string, tag uint16) ([]byte, error)
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, error) {
	switch name {
	case NameJSON:
		return JSON, nil
	case NameCBOR:
		return CBOR, nil
	case NameMsgpack:
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
}
