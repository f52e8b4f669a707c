package varia

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	rec := frame(0x0103, []byte{0xaa, 0xbb})
	assert.Equal(t, []byte{0x03, 0x01, 0xaa, 0xbb}, rec)

	tag, body, err := unframe(rec)
	require.NoError(t, err)
	assert.Equal(t, Tag(0x0103), tag)
	assert.Equal(t, []byte{0xaa, 0xbb}, body)
}

func TestUnframeShort(t *testing.T) {
	for _, data := range [][]byte{nil, {0x03}, {0x03, 0x00}} {
		_, _, err := unframe(data)
		assert.ErrorIs(t, err, ErrFormatInvalid, "% x", data)
	}
}

func TestArchiveRecordLayout(t *testing.T) {
	rec, err := carArchive.Encode(Car{Name: "BMW x3", Price: "$45000"})
	require.NoError(t, err)
	require.Greater(t, len(rec), HeaderSize)
	assert.Equal(t, []byte{0x03, 0x00}, rec[:HeaderSize])
}
