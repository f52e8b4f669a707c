// Buffer validation.
//
// A flatbuffer is a graph of offsets. Reading it without checking lets a
// corrupt or hostile buffer point any accessor past the end of the slice.
// Validate follows every offset the schema declares, once, and checks that
// each table, vtable, string and vector lies wholly inside the buffer.
// Nesting depth and the total number of tables visited are capped so a
// buffer whose offsets form a cycle or a wide DAG cannot stall validation.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	flatbuffers "github.com/google/flatbuffers/go"
)

// ErrInvalid reports a buffer that does not hold a table of the expected
// schema.
var ErrInvalid = errors.New("archive: invalid buffer")

const (
	maxDepth  = 64
	maxTables = 1 << 20

	sizeUOffset = flatbuffers.SizeUOffsetT
	sizeVOffset = flatbuffers.SizeVOffsetT
	vtableHead  = 2 * sizeVOffset // vtable length, object length
)

// Validate checks buf against schema and returns the position of the root
// table. Every accessor on a Table derived from that position stays in
// bounds.
func Validate(buf []byte, schema *Schema) (flatbuffers.UOffsetT, error) {
	return validate(buf, schema, false)
}

// validate checks buf against schema. In strict mode every scalar slot the
// schema declares must be present in every table.
func validate(buf []byte, schema *Schema, strict bool) (flatbuffers.UOffsetT, error) {
	if err := schema.check(); err != nil {
		return 0, err
	}
	if len(buf) < sizeUOffset {
		return 0, invalid("buffer of %d bytes has no root offset", len(buf))
	}
	if uint64(len(buf)) > math.MaxUint32 {
		return 0, invalid("buffer of %d bytes exceeds offset range", len(buf))
	}
	root := int(flatbuffers.GetUOffsetT(buf))
	v := validator{buf: buf, strict: strict}
	if err := v.table(root, schema, 0); err != nil {
		return 0, err
	}
	return flatbuffers.UOffsetT(root), nil
}

type validator struct {
	buf    []byte
	tables int
	strict bool
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// in reports whether n bytes starting at pos lie inside the buffer.
func (v *validator) in(pos, n int) bool {
	return pos >= 0 && n >= 0 && pos <= len(v.buf) && n <= len(v.buf)-pos
}

func (v *validator) table(pos int, s *Schema, depth int) error {
	if depth > maxDepth {
		return invalid("%s: nesting deeper than %d", s.Name, maxDepth)
	}
	if v.tables++; v.tables > maxTables {
		return invalid("more than %d tables", maxTables)
	}
	if !v.in(pos, sizeUOffset) {
		return invalid("%s: table at %d out of bounds", s.Name, pos)
	}

	vt := pos - int(flatbuffers.GetSOffsetT(v.buf[pos:]))
	if !v.in(vt, vtableHead) {
		return invalid("%s: vtable at %d out of bounds", s.Name, vt)
	}
	vtLen := int(flatbuffers.GetVOffsetT(v.buf[vt:]))
	objLen := int(flatbuffers.GetVOffsetT(v.buf[vt+sizeVOffset:]))
	if vtLen < vtableHead || vtLen%sizeVOffset != 0 || !v.in(vt, vtLen) {
		return invalid("%s: vtable length %d", s.Name, vtLen)
	}
	if objLen < sizeUOffset || !v.in(pos, objLen) {
		return invalid("%s: object length %d", s.Name, objLen)
	}

	for i, f := range s.Fields {
		entry := vtableHead + sizeVOffset*i
		voff := 0
		if entry < vtLen {
			voff = int(flatbuffers.GetVOffsetT(v.buf[vt+entry:]))
		}
		if voff == 0 {
			if f.Required {
				return invalid("%s.%s: required field missing", s.Name, f.Name)
			}
			if v.strict && f.Kind.scalar() {
				return invalid("%s.%s: scalar not written", s.Name, f.Name)
			}
			continue
		}
		if voff < sizeUOffset || voff+f.Kind.size() > objLen {
			return invalid("%s.%s: field outside its table", s.Name, f.Name)
		}
		if err := v.field(pos+voff, s, f, depth); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) field(at int, s *Schema, f Field, depth int) error {
	switch f.Kind {
	case KindString:
		_, _, err := v.vector(at, 1, true, s, f)
		return err
	case KindBytes:
		_, _, err := v.vector(at, 1, false, s, f)
		return err
	case KindTable:
		return v.table(v.indirect(at), f.Table, depth+1)
	case KindTables:
		start, n, err := v.vector(at, sizeUOffset, false, s, f)
		if err != nil {
			return err
		}
		for j := range n {
			if err := v.table(v.indirect(start+sizeUOffset*j), f.Table, depth+1); err != nil {
				return err
			}
		}
		if f.Key != "" {
			return v.sorted(start, n, s, f)
		}
	}
	return nil
}

// indirect follows the offset stored at at. The four bytes at at are
// known to be in bounds.
func (v *validator) indirect(at int) int {
	return at + int(flatbuffers.GetUOffsetT(v.buf[at:]))
}

// vector checks the length-prefixed vector referenced from at and returns
// the position of its first element and its length.
func (v *validator) vector(at, elem int, nul bool, s *Schema, f Field) (int, int, error) {
	target := v.indirect(at)
	if !v.in(target, sizeUOffset) {
		return 0, 0, invalid("%s.%s: vector at %d out of bounds", s.Name, f.Name, target)
	}
	n := int(flatbuffers.GetUOffsetT(v.buf[target:]))
	start := target + sizeUOffset
	width := n * elem
	if nul {
		width++
	}
	if !v.in(start, width) {
		return 0, 0, invalid("%s.%s: %d elements overrun buffer", s.Name, f.Name, n)
	}
	if nul && v.buf[start+n] != 0 {
		return 0, 0, invalid("%s.%s: string not NUL terminated", s.Name, f.Name)
	}
	return start, n, nil
}

// sorted checks that the elements of a keyed vector are in strictly
// increasing key order, which Lookup's binary search depends on.
func (v *validator) sorted(start, n int, s *Schema, f Field) error {
	key := f.Table.Slot(f.Key)
	var prev []byte
	for j := range n {
		elem := newTable(v.buf, flatbuffers.UOffsetT(v.indirect(start+sizeUOffset*j)), false)
		cur := elem.Bytes(key)
		if j > 0 && bytes.Compare(prev, cur) >= 0 {
			return invalid("%s.%s: keys not strictly sorted at element %d", s.Name, f.Name, j)
		}
		prev = cur
	}
	return nil
}
