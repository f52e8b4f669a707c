// Slot writers for Layout.Build.
//
// The builder's Prepend*Slot methods leave out a scalar equal to its
// default, and a slot that is not in the buffer cannot be changed in place
// later. The Put functions always write the value. Encode rejects a table
// whose schema declares a scalar slot that was not written.
package archive

import flatbuffers "github.com/google/flatbuffers/go"

func PutBool(b *flatbuffers.Builder, slot int, v bool) {
	b.PrependBool(v)
	b.Slot(slot)
}

func PutInt8(b *flatbuffers.Builder, slot int, v int8) {
	b.PrependInt8(v)
	b.Slot(slot)
}

func PutUint8(b *flatbuffers.Builder, slot int, v uint8) {
	b.PrependUint8(v)
	b.Slot(slot)
}

func PutInt16(b *flatbuffers.Builder, slot int, v int16) {
	b.PrependInt16(v)
	b.Slot(slot)
}

func PutUint16(b *flatbuffers.Builder, slot int, v uint16) {
	b.PrependUint16(v)
	b.Slot(slot)
}

func PutInt32(b *flatbuffers.Builder, slot int, v int32) {
	b.PrependInt32(v)
	b.Slot(slot)
}

func PutUint32(b *flatbuffers.Builder, slot int, v uint32) {
	b.PrependUint32(v)
	b.Slot(slot)
}

func PutInt64(b *flatbuffers.Builder, slot int, v int64) {
	b.PrependInt64(v)
	b.Slot(slot)
}

func PutUint64(b *flatbuffers.Builder, slot int, v uint64) {
	b.PrependUint64(v)
	b.Slot(slot)
}

func PutFloat32(b *flatbuffers.Builder, slot int, v float32) {
	b.PrependFloat32(v)
	b.Slot(slot)
}

func PutFloat64(b *flatbuffers.Builder, slot int, v float64) {
	b.PrependFloat64(v)
	b.Slot(slot)
}
