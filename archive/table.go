// Slot access on validated tables.
//
// Slots are addressed by their index in the schema. Absent slots read as
// the zero value. Strings and byte slices alias the underlying buffer: they
// stay valid as long as the handle that produced the table, and must be
// copied before the handle of a mapped file is closed.
package archive

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	flatbuffers "github.com/google/flatbuffers/go"
)

var (
	ErrReadOnly = errors.New("archive: table is read-only")
	ErrAbsent   = errors.New("archive: field not present in buffer")
)

// Table is a view of one table in a validated buffer. The zero Table has
// no fields.
type Table struct {
	tab      flatbuffers.Table
	writable bool
}

func newTable(buf []byte, pos flatbuffers.UOffsetT, writable bool) Table {
	return Table{tab: flatbuffers.Table{Bytes: buf, Pos: pos}, writable: writable}
}

func voffset(slot int) flatbuffers.VOffsetT {
	return flatbuffers.VOffsetT(vtableHead + sizeVOffset*slot)
}

// rel returns the slot's offset relative to the table, or 0 when absent.
func (t Table) rel(slot int) flatbuffers.UOffsetT {
	if t.tab.Bytes == nil {
		return 0
	}
	return flatbuffers.UOffsetT(t.tab.Offset(voffset(slot)))
}

// abs returns the slot's absolute position in the buffer, or 0 when absent.
func (t Table) abs(slot int) flatbuffers.UOffsetT {
	if o := t.rel(slot); o != 0 {
		return o + t.tab.Pos
	}
	return 0
}

// Valid reports whether t refers to a table.
func (t Table) Valid() bool { return t.tab.Bytes != nil }

// Writable reports whether the Set methods may change t.
func (t Table) Writable() bool { return t.writable }

// Has reports whether slot is physically present.
func (t Table) Has(slot int) bool { return t.rel(slot) != 0 }

func (t Table) Bool(slot int) bool {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetBool(o)
	}
	return false
}

func (t Table) Int8(slot int) int8 {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetInt8(o)
	}
	return 0
}

func (t Table) Uint8(slot int) uint8 {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetUint8(o)
	}
	return 0
}

func (t Table) Int16(slot int) int16 {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetInt16(o)
	}
	return 0
}

func (t Table) Uint16(slot int) uint16 {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetUint16(o)
	}
	return 0
}

func (t Table) Int32(slot int) int32 {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetInt32(o)
	}
	return 0
}

func (t Table) Uint32(slot int) uint32 {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetUint32(o)
	}
	return 0
}

func (t Table) Int64(slot int) int64 {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetInt64(o)
	}
	return 0
}

func (t Table) Uint64(slot int) uint64 {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetUint64(o)
	}
	return 0
}

func (t Table) Float32(slot int) float32 {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetFloat32(o)
	}
	return 0
}

func (t Table) Float64(slot int) float64 {
	if o := t.abs(slot); o != 0 {
		return t.tab.GetFloat64(o)
	}
	return 0
}

// String returns the string in slot without copying.
func (t Table) String(slot int) string {
	if o := t.abs(slot); o != 0 {
		return t.tab.String(o)
	}
	return ""
}

// Bytes returns the byte vector (or string bytes) in slot without copying.
func (t Table) Bytes(slot int) []byte {
	if o := t.abs(slot); o != 0 {
		return t.tab.ByteVector(o)
	}
	return nil
}

// Table returns the nested table in slot, or the zero Table.
func (t Table) Table(slot int) Table {
	if o := t.abs(slot); o != 0 {
		return newTable(t.tab.Bytes, t.tab.Indirect(o), t.writable)
	}
	return Table{}
}

// Len returns the number of elements in the vector in slot.
func (t Table) Len(slot int) int {
	if o := t.rel(slot); o != 0 {
		return t.tab.VectorLen(o)
	}
	return 0
}

// At returns element i of the table vector in slot. It panics if i is out
// of range.
func (t Table) At(slot, i int) Table {
	if n := t.Len(slot); i < 0 || i >= n {
		panic(fmt.Sprintf("archive: index %d out of range [0:%d]", i, n))
	}
	x := t.tab.Vector(t.rel(slot)) + flatbuffers.UOffsetT(i*sizeUOffset)
	return newTable(t.tab.Bytes, t.tab.Indirect(x), t.writable)
}

// Lookup binary searches the table vector in slot, whose elements are
// sorted by the string in their key slot, for key.
func (t Table) Lookup(slot, key int, want string) (Table, bool) {
	n := t.Len(slot)
	i := sort.Search(n, func(i int) bool {
		return strings.Compare(t.At(slot, i).String(key), want) >= 0
	})
	if i < n {
		if e := t.At(slot, i); e.String(key) == want {
			return e, true
		}
	}
	return Table{}, false
}

func (t Table) mutable(slot int, ok func() bool) error {
	if !t.writable {
		return ErrReadOnly
	}
	if !ok() {
		return fmt.Errorf("%w: slot %d", ErrAbsent, slot)
	}
	return nil
}

// The Set methods change a scalar in place. They require a table from
// Exclusive.Mutate and a slot that is physically present.

func (t Table) SetBool(slot int, v bool) error {
	return t.mutable(slot, func() bool { return t.tab.MutateBoolSlot(voffset(slot), v) })
}

func (t Table) SetInt8(slot int, v int8) error {
	return t.mutable(slot, func() bool { return t.tab.MutateInt8Slot(voffset(slot), v) })
}

func (t Table) SetUint8(slot int, v uint8) error {
	return t.mutable(slot, func() bool { return t.tab.MutateUint8Slot(voffset(slot), v) })
}

func (t Table) SetInt16(slot int, v int16) error {
	return t.mutable(slot, func() bool { return t.tab.MutateInt16Slot(voffset(slot), v) })
}

func (t Table) SetUint16(slot int, v uint16) error {
	return t.mutable(slot, func() bool { return t.tab.MutateUint16Slot(voffset(slot), v) })
}

func (t Table) SetInt32(slot int, v int32) error {
	return t.mutable(slot, func() bool { return t.tab.MutateInt32Slot(voffset(slot), v) })
}

func (t Table) SetUint32(slot int, v uint32) error {
	return t.mutable(slot, func() bool { return t.tab.MutateUint32Slot(voffset(slot), v) })
}

func (t Table) SetInt64(slot int, v int64) error {
	return t.mutable(slot, func() bool { return t.tab.MutateInt64Slot(voffset(slot), v) })
}

func (t Table) SetUint64(slot int, v uint64) error {
	return t.mutable(slot, func() bool { return t.tab.MutateUint64Slot(voffset(slot), v) })
}

func (t Table) SetFloat32(slot int, v float32) error {
	return t.mutable(slot, func() bool { return t.tab.MutateFloat32Slot(voffset(slot), v) })
}

func (t Table) SetFloat64(slot int, v float64) error {
	return t.mutable(slot, func() bool { return t.tab.MutateFloat64Slot(voffset(slot), v) })
}
