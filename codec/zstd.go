// Zstd compression around another codec.
//
// The wrapped codec's output is compressed as a single zstd frame. Tagging
// a compressed record decompresses it, lets the inner codec splice the tag,
// and compresses the result again, so a zstd record is still a flat record
// underneath.
package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Shared encoder/decoder, both safe for concurrent use. Construction is
// expensive relative to compressing one small record.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

type zstdCodec struct {
	inner Codec
}

type zstdTagger struct {
	zstdCodec
	tagger Tagger
}

// Zstd returns a codec that compresses inner's output. The result
// implements Tagger exactly when inner does.
func Zstd(inner Codec) Codec {
	z := zstdCodec{inner: inner}
	if t, ok := inner.(Tagger); ok {
		return zstdTagger{zstdCodec: z, tagger: t}
	}
	return z
}

func (z zstdCodec) Name() string { return "zstd+" + z.inner.Name() }

func (z zstdCodec) Marshal(v any) ([]byte, error) {
	data, err := z.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(data, nil), nil
}

func (z zstdCodec) Unmarshal(data []byte, v any) error {
	raw, err := decompress(data)
	if err != nil {
		return err
	}
	return z.inner.Unmarshal(raw, v)
}

func (z zstdTagger) Tag(record []byte, key string, tag uint16) ([]byte, error) {
	raw, err := decompress(record)
	if err != nil {
		return nil, err
	}
	tagged, err := z.tagger.Tag(raw, key, tag)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(tagged, nil), nil
}

func decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrDecompress, err)
	}
	return out, nil
}
