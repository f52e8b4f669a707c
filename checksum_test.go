package varia

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumCRC32C(t *testing.T) {
	// Standard check value for CRC-32C.
	assert.Equal(t, uint64(0xE3069283), checksum([]byte("123456789"), AlgCRC32C))
}

func TestChecksumAlgorithms(t *testing.T) {
	data := []byte(`{"_v":3,"name":"BMW x3","price":"$45000"}`)
	flipped := append([]byte{}, data...)
	flipped[len(flipped)-3] ^= 0x01

	for _, alg := range []int{AlgCRC32C, AlgXXHash3, AlgBlake2b} {
		assert.Equal(t, checksum(data, alg), checksum(data, alg), "alg %d not deterministic", alg)
		assert.NotEqual(t, checksum(data, alg), checksum(flipped, alg), "alg %d missed a bit flip", alg)
		assert.True(t, validAlg(alg))
	}
	assert.NotEqual(t, checksum(data, AlgXXHash3), checksum(data, AlgBlake2b))
	assert.False(t, validAlg(0))
	assert.False(t, validAlg(4))
}
