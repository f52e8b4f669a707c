// Package varia stores values as versioned records and migrates old
// records forward when they are read.
//
// Every record carries a schema tag naming the variant of the type it was
// written with. Decoding compares that tag against the current variant:
// a match decodes directly, a tag registered as a prior variant is decoded
// as that variant and converted in one hop, anything else is rejected.
// Load-and-migrate operations write the converted value back so the next
// read is a direct match.
//
// Two record layouts exist. Codec records (JSON, CBOR, msgpack, optionally
// zstd compressed) carry the tag as their leading field "_v". Archive
// records start with the tag as two little-endian bytes followed by a
// flatbuffer table that is read in place without decoding.
package varia

import "errors"

// Sentinel errors for programmatic handling. Each is wrapped with context
// and, where one exists, the underlying cause, so errors.Is matches both.
var (
	ErrFileNotFound    = errors.New("record not found")
	ErrFormatInvalid   = errors.New("record too short for its format")
	ErrVariantNotFound = errors.New("schema tag not registered")
	ErrEncodingFailed  = errors.New("encoding failed")
	ErrParsingFailed   = errors.New("parsing failed")
	ErrFailedToWrite   = errors.New("write verification failed")
	ErrIO              = errors.New("storage error")
	ErrDuplicateTag    = errors.New("duplicate schema tag")
	ErrClosed          = errors.New("runner is closed")
)
