package varia

import (
	"context"
	"fmt"
	"sync"
	"testing"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/varia/archive"
	"github.com/jpl-au/varia/codec"
	"github.com/jpl-au/varia/store"
)

type Car struct {
	Name  string `json:"name" cbor:"name"`
	Price string `json:"price" cbor:"price"`
}

type CarV1 struct {
	Brand string `json:"brand" cbor:"brand"`
	Model string `json:"model" cbor:"model"`
	Price string `json:"price" cbor:"price"`
}

type CarV2 struct {
	Brand string `json:"brand" cbor:"brand"`
	Model string `json:"model" cbor:"model"`
	Price uint32 `json:"price" cbor:"price"`
}

var (
	carV2Type = MustRegister[CarV2](1)
	carV1Type = MustRegister[CarV1](2)
	carType   = MustRegister(3,
		From(carV1Type, func(c CarV1) Car { return Car{Name: c.Brand + " " + c.Model, Price: c.Price} }),
		From(carV2Type, func(c CarV2) Car { return Car{Name: c.Brand + " " + c.Model, Price: fmt.Sprintf("$%d", c.Price)} }),
	)
	// Same tag as Car, no edges.
	carTestType = MustRegister[Car](3)
)

var (
	carSchema = &archive.Schema{Name: "Car", Fields: []archive.Field{
		{Name: "name", Kind: archive.KindString, Required: true},
		{Name: "price", Kind: archive.KindString},
	}}
	carV2Schema = &archive.Schema{Name: "CarV2", Fields: []archive.Field{
		{Name: "brand", Kind: archive.KindString},
		{Name: "model", Kind: archive.KindString},
		{Name: "price", Kind: archive.KindUint32},
	}}
)

type carView struct{ t archive.Table }

func (v carView) Name() string  { return v.t.String(0) }
func (v carView) Price() string { return v.t.String(1) }

type carV2View struct{ t archive.Table }

func (v carV2View) Brand() string { return v.t.String(0) }
func (v carV2View) Model() string { return v.t.String(1) }
func (v carV2View) Price() uint32 { return v.t.Uint32(2) }

func (v carV2View) SetPrice(p uint32) error { return v.t.SetUint32(2, p) }

var carLayout = &archive.Layout[Car, carView]{
	Schema: carSchema,
	Build: func(b *flatbuffers.Builder, c *Car) flatbuffers.UOffsetT {
		name := b.CreateString(c.Name)
		price := b.CreateString(c.Price)
		b.StartObject(2)
		b.PrependUOffsetTSlot(0, name, 0)
		b.PrependUOffsetTSlot(1, price, 0)
		return b.EndObject()
	},
	View: func(t archive.Table) carView { return carView{t} },
	Own:  func(v carView) Car { return Car{Name: v.Name(), Price: v.Price()} },
}

var carV2Layout = &archive.Layout[CarV2, carV2View]{
	Schema: carV2Schema,
	Build: func(b *flatbuffers.Builder, c *CarV2) flatbuffers.UOffsetT {
		brand := b.CreateString(c.Brand)
		model := b.CreateString(c.Model)
		b.StartObject(3)
		b.PrependUOffsetTSlot(0, brand, 0)
		b.PrependUOffsetTSlot(1, model, 0)
		archive.PutUint32(b, 2, c.Price)
		return b.EndObject()
	},
	View: func(t archive.Table) carV2View { return carV2View{t} },
	Own: func(v carV2View) CarV2 {
		return CarV2{Brand: v.Brand(), Model: v.Model(), Price: v.Price()}
	},
}

var (
	carV2Archive = MustRegisterArchive(1, carV2Layout)
	carArchive   = MustRegisterArchive(3, carLayout,
		ArchiveFrom(carV2Archive, func(c CarV2) Car {
			return Car{Name: c.Brand + " " + c.Model, Price: fmt.Sprintf("$%d", c.Price)}
		}),
	)
	carTestArchive = MustRegisterArchive(3, carLayout)
)

func bmw() CarV2 { return CarV2{Brand: "BMW", Model: "x3", Price: 45000} }

// plain hides the Tagger of a codec so records use the nested envelope.
type plain struct{ codec.Codec }

func openTestRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	if cfg.Path == "" && cfg.Backend != BackendMemory {
		cfg.Path = t.TempDir()
	}
	r, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// faultStore wraps a store and lets tests intercept individual calls.
type faultStore struct {
	store.Store

	mu     sync.Mutex
	reads  int
	writes int

	onRead  func(n int, data []byte) ([]byte, error)
	onWrite func(n int, data []byte) ([]byte, error)
}

func (f *faultStore) Read(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	f.reads++
	n := f.reads
	f.mu.Unlock()

	data, err := f.Store.Read(ctx, key)
	if err != nil || f.onRead == nil {
		return data, err
	}
	return f.onRead(n, data)
}

func (f *faultStore) Write(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	f.writes++
	n := f.writes
	f.mu.Unlock()

	if f.onWrite != nil {
		var err error
		if data, err = f.onWrite(n, data); err != nil {
			return err
		}
	}
	return f.Store.Write(ctx, key, data)
}

func (f *faultStore) counts() (reads, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.writes
}

// blockingStore parks every call until release is closed.
type blockingStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		Store:   store.NewMemory(),
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingStore) Read(ctx context.Context, key string) ([]byte, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.Store.Read(ctx, key)
}

func (b *blockingStore) Write(ctx context.Context, key string, data []byte) error {
	b.entered <- struct{}{}
	<-b.release
	return b.Store.Write(ctx, key, data)
}
