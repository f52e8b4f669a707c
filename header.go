// Archive record header.
//
// An archive record is the schema tag as two little-endian bytes followed
// by the archive bytes, untouched. The archive itself is read in place, so
// the tag cannot live inside it the way it does for codec records.
package varia

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size of the archive record header in bytes.
const HeaderSize = 2

// frame prepends the header for tag to body.
func frame(tag Tag, body []byte) []byte {
	out := make([]byte, HeaderSize+len(body))
	binary.LittleEndian.PutUint16(out, uint16(tag))
	copy(out[HeaderSize:], body)
	return out
}

// unframe splits an archive record into its tag and body. The body aliases
// data.
func unframe(data []byte) (Tag, []byte, error) {
	if len(data) < HeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrFormatInvalid, len(data))
	}
	if len(data) == HeaderSize {
		return 0, nil, fmt.Errorf("%w: header without archive", ErrFormatInvalid)
	}
	return Tag(binary.LittleEndian.Uint16(data)), data[HeaderSize:], nil
}
