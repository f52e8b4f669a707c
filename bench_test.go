package varia

import (
	"strconv"
	"strings"
	"testing"

	"github.com/jpl-au/varia/codec"
)

func benchCar() Car {
	return Car{Name: strings.Repeat("x", 1024), Price: "$45000"}
}

func BenchmarkEncode(b *testing.B) {
	for _, c := range []codec.Codec{codec.JSON, codec.CBOR, codec.Msgpack, codec.Zstd(codec.JSON)} {
		b.Run(c.Name(), func(b *testing.B) {
			car := benchCar()
			for b.Loop() {
				carType.Encode(c, car)
			}
		})
	}
}

func BenchmarkDecodeDirect(b *testing.B) {
	for _, c := range []codec.Codec{codec.JSON, codec.CBOR, codec.Msgpack} {
		b.Run(c.Name(), func(b *testing.B) {
			data, _ := carType.Encode(c, benchCar())
			for b.Loop() {
				carType.Decode(c, data)
			}
		})
	}
}

func BenchmarkDecodeMigrate(b *testing.B) {
	data, _ := carV2Type.Encode(codec.JSON, bmw())
	for b.Loop() {
		carType.Decode(codec.JSON, data)
	}
}

func BenchmarkArchiveOpen(b *testing.B) {
	rec, _ := carArchive.Encode(benchCar())
	for b.Loop() {
		h, _ := carArchive.Decode(rec)
		_ = h.Archive().Name()
	}
}

func BenchmarkSave(b *testing.B) {
	r, _ := Open(Config{Path: b.TempDir()})
	defer r.Close()
	car := benchCar()
	files := carType.Files(r)

	i := 0
	for b.Loop() {
		files.Save("car"+strconv.Itoa(i), car)
		i++
	}
}

func BenchmarkSaveVerified(b *testing.B) {
	r, _ := Open(Config{Path: b.TempDir(), VerifyWrite: true})
	defer r.Close()
	car := benchCar()
	files := carType.Files(r)

	for b.Loop() {
		files.Save("car", car)
	}
}

func BenchmarkChecksum(b *testing.B) {
	data := []byte(strings.Repeat("x", 64*1024))
	for _, alg := range []int{AlgCRC32C, AlgXXHash3, AlgBlake2b} {
		b.Run(strconv.Itoa(alg), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for b.Loop() {
				checksum(data, alg)
			}
		})
	}
}
