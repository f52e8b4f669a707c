// Checksums for write verification.
//
// The verified writer compares the checksum of the bytes it meant to write
// with the checksum of the bytes it reads back. Checksums are never
// persisted. Three algorithms are supported, selectable via
// Config.Checksum.
package varia

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// Checksum algorithm constants.
const (
	AlgCRC32C  = 1 // Default, CRC-32 Castagnoli
	AlgXXHash3 = 2 // Fastest on large records
	AlgBlake2b = 3 // Cryptographic
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// checksum returns the digest of data using the specified algorithm.
func checksum(data []byte, alg int) uint64 {
	switch alg {
	case AlgXXHash3:
		return xxh3.Hash(data)
	case AlgBlake2b:
		h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
		h.Write(data)
		return binary.BigEndian.Uint64(h.Sum(nil))
	default:
		return uint64(crc32.Checksum(data, castagnoli))
	}
}

func validAlg(alg int) bool {
	return alg == AlgCRC32C || alg == AlgXXHash3 || alg == AlgBlake2b
}
