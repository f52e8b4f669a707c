// Tagged codec records.
//
// A codec record is whatever the codec produces for the value, with the
// schema tag added as the leading field "_v". Struct values written with a
// codec that implements codec.Tagger get a flat record,
// {"_v":3,"name":...}, so the tag sits beside the value's own fields.
// Everything else gets a nested envelope, {"_v":3,"_d":{...}}. The layout
// depends only on the codec and the value's Go type, so the decoder always
// knows which one to expect.
//
// Value types must not use "_v" as a field name of their own.
package varia

import (
	"fmt"
	"reflect"

	"github.com/jpl-au/varia/codec"
)

// Tag identifies one schema variant of a type.
type Tag uint16

// Field names of the tagged envelope.
const (
	TagField     = "_v"
	PayloadField = "_d"
)

// minRecord is the shortest input treated as a record. Anything shorter is
// ErrFormatInvalid for every layout.
const minRecord = 2

// envelope is the nested layout for codecs that cannot splice a field.
type envelope[T any] struct {
	Tag  Tag `json:"_v" cbor:"_v" msgpack:"_v"`
	Data T   `json:"_d" cbor:"_d" msgpack:"_d"`
}

// tagOnly decodes only the tag, skipping every other field.
type tagOnly struct {
	Tag *Tag `json:"_v" cbor:"_v" msgpack:"_v"`
}

// flat reports whether records of T are written with the tag spliced
// into T's own fields. Only structs qualify: a map would read the tag back
// as one of its entries, and other kinds do not encode as an object.
func flat[T any](c codec.Codec) (codec.Tagger, bool) {
	tg, ok := c.(codec.Tagger)
	if !ok {
		return nil, false
	}
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return tg, t.Kind() == reflect.Struct
}

// seal encodes v under tag.
func seal[T any](c codec.Codec, tag Tag, v T) ([]byte, error) {
	tg, ok := flat[T](c)
	if !ok {
		data, err := c.Marshal(envelope[T]{Tag: tag, Data: v})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEncodingFailed, c.Name(), err)
		}
		return data, nil
	}
	rec, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncodingFailed, c.Name(), err)
	}
	data, err := tg.Tag(rec, TagField, uint16(tag))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEncodingFailed, c.Name(), err)
	}
	return data, nil
}

// peek reads the tag of a codec record.
func peek(c codec.Codec, data []byte) (Tag, error) {
	if len(data) < minRecord {
		return 0, fmt.Errorf("%w: %d bytes", ErrFormatInvalid, len(data))
	}
	var p tagOnly
	if err := c.Unmarshal(data, &p); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrParsingFailed, c.Name(), err)
	}
	if p.Tag == nil {
		return 0, fmt.Errorf("%w: %s: record has no %s field", ErrParsingFailed, c.Name(), TagField)
	}
	return *p.Tag, nil
}

// unseal decodes the payload of a codec record as T. The tag is not checked.
func unseal[T any](c codec.Codec, data []byte) (T, error) {
	if _, ok := flat[T](c); ok {
		var v T
		if err := c.Unmarshal(data, &v); err != nil {
			return v, fmt.Errorf("%w: %s: %w", ErrParsingFailed, c.Name(), err)
		}
		return v, nil
	}
	var env envelope[T]
	if err := c.Unmarshal(data, &env); err != nil {
		return env.Data, fmt.Errorf("%w: %s: %w", ErrParsingFailed, c.Name(), err)
	}
	return env.Data, nil
}

// PeekTag returns the schema tag of a codec record without decoding the
// rest of it.
func PeekTag(c codec.Codec, data []byte) (Tag, error) {
	return peek(c, data)
}
