// Package archive provides validated zero-copy views over flatbuffer
// tables.
//
// A Schema lists the slots of a table and what each holds. Validate walks
// a buffer against its schema and checks every offset, length and nested
// table before any accessor touches it, so reads through a validated Table
// never go out of bounds. A Layout binds a Go type to its schema: how to
// build the table, how to view it and how to copy a view back into an
// owned value.
//
// Handles returned by Open are read-only. Exclusive handles from Map hold
// an OS lock on a memory mapped file and allow scalar fields to be changed
// in place.
package archive

import "fmt"

// Kind is the type stored in a table slot.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindString // UTF-8 string, NUL terminated
	KindBytes  // [ubyte] vector
	KindTable  // nested table
	KindTables // vector of tables
)

// size returns the inline width of a slot of this kind. Reference kinds
// store a 4-byte offset.
func (k Kind) size() int {
	switch k {
	case KindBool, KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32:
		return 4
	case KindInt64, KindUint64, KindFloat64:
		return 8
	case KindString, KindBytes, KindTable, KindTables:
		return 4
	}
	return 0
}

func (k Kind) scalar() bool { return k >= KindBool && k <= KindFloat64 }

func (k Kind) String() string {
	names := [...]string{"invalid", "bool", "int8", "uint8", "int16", "uint16",
		"int32", "uint32", "int64", "uint64", "float32", "float64",
		"string", "bytes", "table", "tables"}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Field describes one slot. Fields are numbered by their position in
// Schema.Fields.
type Field struct {
	Name     string
	Kind     Kind
	Table    *Schema // element schema for KindTable and KindTables
	Required bool    // reference kinds only: absence fails validation
	Key      string  // KindTables: element string field the vector is sorted by
}

// Schema describes a table.
type Schema struct {
	Name   string
	Fields []Field
}

// Slot returns the slot number of the named field, or -1.
func (s *Schema) Slot(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// check reports schema mistakes that would otherwise surface as
// confusing validation failures.
func (s *Schema) check() error {
	return s.walk(map[*Schema]bool{})
}

func (s *Schema) walk(seen map[*Schema]bool) error {
	if seen[s] {
		return nil
	}
	seen[s] = true
	for _, f := range s.Fields {
		if f.Kind.size() == 0 {
			return fmt.Errorf("archive: %s.%s: invalid kind %d", s.Name, f.Name, f.Kind)
		}
		if f.Kind != KindTable && f.Kind != KindTables {
			continue
		}
		if f.Table == nil {
			return fmt.Errorf("archive: %s.%s: %s slot without element schema", s.Name, f.Name, f.Kind)
		}
		if f.Key != "" {
			k := f.Table.Slot(f.Key)
			if f.Kind != KindTables || k < 0 || f.Table.Fields[k].Kind != KindString {
				return fmt.Errorf("archive: %s.%s: key %q is not a string field of %s", s.Name, f.Name, f.Key, f.Table.Name)
			}
		}
		if err := f.Table.walk(seen); err != nil {
			return err
		}
	}
	return nil
}
