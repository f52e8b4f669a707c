// On-disk corruption tests.
//
// Every test writes a valid record through the normal API, then damages
// the file directly before loading it again. A damaged record must come
// back as an error of a known kind and never as a wrong value or a panic.
//
// For codec records a flipped byte inside the tag field, or one that
// breaks the syntax, is ErrParsingFailed; a byte that turns the tag into
// another registered or unregistered number is ErrVariantNotFound or a
// migration. For archive records the header is checked first and the
// flatbuffer is validated in full before any field is read.
package varia

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func damage(t *testing.T, dir, key string, fn func([]byte) []byte) {
	t.Helper()
	path := filepath.Join(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(path, fn(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestCorruptTagDigit(t *testing.T) {
	dir := t.TempDir()
	r := openTestRunner(t, Config{Path: dir})
	if err := carType.Files(r).Save("car", Car{Name: "BMW x3"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// {"_v":3,... becomes {"_v":8,...
	damage(t, dir, "car", func(b []byte) []byte { b[6] = '8'; return b })

	_, err := carType.Files(r).Load("car")
	if !errors.Is(err, ErrVariantNotFound) {
		t.Errorf("Load = %v, want ErrVariantNotFound", err)
	}
}

func TestCorruptTagSyntax(t *testing.T) {
	dir := t.TempDir()
	r := openTestRunner(t, Config{Path: dir})
	if err := carType.Files(r).Save("car", Car{Name: "BMW x3"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	damage(t, dir, "car", func(b []byte) []byte { b[5] = '#'; return b })

	_, err := carType.Files(r).Load("car")
	if !errors.Is(err, ErrParsingFailed) {
		t.Errorf("Load = %v, want ErrParsingFailed", err)
	}
}

func TestCorruptTruncated(t *testing.T) {
	for _, name := range []string{"json", "cbor", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			r := openTestRunner(t, Config{Path: dir, Codec: name})
			if err := carType.Files(r).Save("car", Car{Name: "BMW x3", Price: "$45000"}); err != nil {
				t.Fatalf("Save: %v", err)
			}

			damage(t, dir, "car", func(b []byte) []byte { return b[:len(b)-4] })

			_, err := carType.Files(r).Load("car")
			if !errors.Is(err, ErrParsingFailed) {
				t.Errorf("Load = %v, want ErrParsingFailed", err)
			}
		})
	}
}

func TestCorruptEmptyFile(t *testing.T) {
	dir := t.TempDir()
	r := openTestRunner(t, Config{Path: dir})
	if err := os.WriteFile(filepath.Join(dir, "car"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := carType.Files(r).Load("car")
	if !errors.Is(err, ErrFormatInvalid) {
		t.Errorf("Load = %v, want ErrFormatInvalid", err)
	}
	_, err = carArchive.Files(r).Load("car")
	if !errors.Is(err, ErrFormatInvalid) {
		t.Errorf("archive Load = %v, want ErrFormatInvalid", err)
	}
}

func TestCorruptCompressed(t *testing.T) {
	dir := t.TempDir()
	r := openTestRunner(t, Config{Path: dir, Compress: true})
	if err := carType.Files(r).Save("car", Car{Name: "BMW x3"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	damage(t, dir, "car", func(b []byte) []byte {
		for i := 4; i < len(b); i++ {
			b[i] ^= 0x5a
		}
		return b
	})

	_, err := carType.Files(r).Load("car")
	if !errors.Is(err, ErrParsingFailed) {
		t.Errorf("Load = %v, want ErrParsingFailed", err)
	}
}

// Flipping any single byte of an archive record's body must never
// panic. Most flips are rejected by validation; flips inside string
// contents or scalars are valid archives with different values.
func TestCorruptArchiveEveryByte(t *testing.T) {
	rec, err := carArchive.Encode(Car{Name: "BMW x3", Price: "$45000"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := HeaderSize; i < len(rec); i++ {
		bad := append([]byte{}, rec...)
		bad[i] ^= 0xff
		h, err := carArchive.Decode(bad)
		if err != nil {
			if !errors.Is(err, ErrParsingFailed) {
				t.Errorf("byte %d: %v, want ErrParsingFailed", i, err)
			}
			continue
		}
		_ = h.Archive().Name()
		_ = h.Archive().Price()
	}
}

func TestCorruptArchiveHeader(t *testing.T) {
	dir := t.TempDir()
	r := openTestRunner(t, Config{Path: dir})
	if err := carArchive.Files(r).Save("car", Car{Name: "BMW x3"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	damage(t, dir, "car", func(b []byte) []byte { b[1] = 0x40; return b })

	_, err := carArchive.Files(r).Load("car")
	if !errors.Is(err, ErrVariantNotFound) {
		t.Errorf("Load = %v, want ErrVariantNotFound", err)
	}
}
