package archive

import (
	"slices"
	"strings"

	flatbuffers "github.com/google/flatbuffers/go"
)

// account exercises every slot kind: scalars, a string, bytes, a nested
// table and a key-sorted table vector.
type account struct {
	Owner   string
	Amount  uint64
	Active  bool
	Tags    []byte
	Limits  []limit
	Address *address
}

type limit struct {
	Name string
	Max  int32
}

type address struct {
	City string
}

const (
	slotOwner = iota
	slotAmount
	slotActive
	slotTags
	slotLimits
	slotAddress
)

var (
	limitSchema   = &Schema{Name: "Limit", Fields: []Field{{Name: "name", Kind: KindString}, {Name: "max", Kind: KindInt32}}}
	addressSchema = &Schema{Name: "Address", Fields: []Field{{Name: "city", Kind: KindString}}}
	accountSchema = &Schema{Name: "Account", Fields: []Field{
		{Name: "owner", Kind: KindString, Required: true},
		{Name: "amount", Kind: KindUint64},
		{Name: "active", Kind: KindBool},
		{Name: "tags", Kind: KindBytes},
		{Name: "limits", Kind: KindTables, Table: limitSchema, Key: "name"},
		{Name: "address", Kind: KindTable, Table: addressSchema},
	}}
)

type accountView struct{ t Table }

func (v accountView) Owner() string  { return v.t.String(slotOwner) }
func (v accountView) Amount() uint64 { return v.t.Uint64(slotAmount) }
func (v accountView) Active() bool   { return v.t.Bool(slotActive) }
func (v accountView) Tags() []byte   { return v.t.Bytes(slotTags) }
func (v accountView) City() string   { return v.t.Table(slotAddress).String(0) }

func (v accountView) Limit(name string) (int32, bool) {
	e, ok := v.t.Lookup(slotLimits, 0, name)
	if !ok {
		return 0, false
	}
	return e.Int32(1), true
}

func (v accountView) SetAmount(n uint64) error { return v.t.SetUint64(slotAmount, n) }

func buildAccount(b *flatbuffers.Builder, a *account) flatbuffers.UOffsetT {
	owner := b.CreateString(a.Owner)
	tags := b.CreateByteVector(a.Tags)

	sorted := slices.SortedFunc(slices.Values(a.Limits), func(x, y limit) int {
		return strings.Compare(x.Name, y.Name)
	})
	offs := make([]flatbuffers.UOffsetT, len(sorted))
	for i, l := range sorted {
		name := b.CreateString(l.Name)
		b.StartObject(2)
		b.PrependUOffsetTSlot(0, name, 0)
		PutInt32(b, 1, l.Max)
		offs[i] = b.EndObject()
	}
	b.StartVector(4, len(offs), 4)
	for i := len(offs) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offs[i])
	}
	limits := b.EndVector(len(offs))

	var addr flatbuffers.UOffsetT
	if a.Address != nil {
		city := b.CreateString(a.Address.City)
		b.StartObject(1)
		b.PrependUOffsetTSlot(0, city, 0)
		addr = b.EndObject()
	}

	b.StartObject(6)
	b.PrependUOffsetTSlot(slotOwner, owner, 0)
	PutUint64(b, slotAmount, a.Amount)
	PutBool(b, slotActive, a.Active)
	b.PrependUOffsetTSlot(slotTags, tags, 0)
	b.PrependUOffsetTSlot(slotLimits, limits, 0)
	if addr != 0 {
		b.PrependUOffsetTSlot(slotAddress, addr, 0)
	}
	return b.EndObject()
}

// ownAccount is handed a view over a private copy of the buffer, so the
// strings and slices it keeps need no further copying.
func ownAccount(v accountView) account {
	a := account{
		Owner:  v.Owner(),
		Amount: v.Amount(),
		Active: v.Active(),
		Tags:   v.Tags(),
	}
	for i := range v.t.Len(slotLimits) {
		e := v.t.At(slotLimits, i)
		a.Limits = append(a.Limits, limit{Name: e.String(0), Max: e.Int32(1)})
	}
	if t := v.t.Table(slotAddress); t.Valid() {
		a.Address = &address{City: t.String(0)}
	}
	return a
}

var accountLayout = &Layout[account, accountView]{
	Schema: accountSchema,
	Build:  buildAccount,
	View:   func(t Table) accountView { return accountView{t} },
	Own:    ownAccount,
}

func sampleAccount() account {
	return account{
		Owner:  strings.Repeat("owner-", 12),
		Amount: 1200,
		Active: true,
		Tags:   []byte{1, 2, 3},
		Limits: []limit{
			{Name: "atm", Max: 500},
			{Name: "card", Max: 2000},
			{Name: "wire", Max: 10000},
		},
		Address: &address{City: "Perth"},
	}
}
