package schema

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutEnumDedupeAndConflict(t *testing.T) {
	reg := NewRegistry(nil)

	first := &EnumEntity{Name: "MIDType", Values: []EnumValue{{Name: "USER", Number: 0}, {Name: "ROOM", Number: 1}}}
	reg.PutEnum(first, "a.java")

	// Identical recognition from another module collapses silently.
	dup := &EnumEntity{Name: "MIDType", Values: []EnumValue{{Name: "USER", Number: 0}, {Name: "ROOM", Number: 1}}}
	reg.PutEnum(dup, "b.java")
	assert.Empty(t, reg.Diagnostics())

	// A different layout is a conflict and the first definition wins.
	other := &EnumEntity{Name: "MIDType", Values: []EnumValue{{Name: "GROUP", Number: 2}}}
	reg.PutEnum(other, "c.java")

	diags := reg.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, RegistryConflict, diags[0].Kind)
	assert.Equal(t, "MIDType", diags[0].Entity)

	got, ok := reg.Enum("MIDType")
	require.True(t, ok)
	assert.Len(t, got.Values, 2)
}

func TestPutStructMergesExceptionFlag(t *testing.T) {
	reg := NewRegistry(nil)

	fields := []Field{{ID: 1, Name: "code", Type: TI32}}
	reg.PutStruct(&StructEntity{Name: "TalkException", Fields: fields}, "a.java")

	dup := &StructEntity{Name: "TalkException", Fields: fields}
	dup.MarkException()
	reg.PutStruct(dup, "b.java")

	got, ok := reg.Struct("TalkException")
	require.True(t, ok)
	assert.True(t, got.IsException(), "exception flag must merge upward on dedupe")
	assert.Empty(t, reg.Diagnostics())
}

func TestPutStructConflictKeepsFirst(t *testing.T) {
	reg := NewRegistry(nil)

	reg.PutStruct(&StructEntity{Name: "Profile", Fields: []Field{{ID: 1, Name: "mid", Type: TString}}}, "a.java")
	reg.PutStruct(&StructEntity{Name: "Profile", Fields: []Field{{ID: 1, Name: "mid", Type: TString}, {ID: 2, Name: "age", Type: TI32}}}, "b.java")

	got, _ := reg.Struct("Profile")
	assert.Len(t, got.Fields, 1)

	diags := reg.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, RegistryConflict, diags[0].Kind)
	assert.Equal(t, "b.java", diags[0].Entry)
}

func TestAddMethodUpgradesPlaceholders(t *testing.T) {
	reg := NewRegistry(nil)

	reg.AddMethod("TalkService", Method{Name: "getProfile", ArgType: "binary", ReturnType: "void"}, "a.java")
	reg.AddMethod("TalkService", Method{
		Name:       "getProfile",
		ArgType:    "GetProfileRequest",
		ReturnType: "GetProfileResponse",
		Exceptions: []string{"TalkException"},
	}, "b.java")

	svc, ok := reg.Service("TalkService")
	require.True(t, ok)
	require.Len(t, svc.Methods, 1)
	m := svc.Methods[0]
	assert.Equal(t, "GetProfileRequest", m.ArgType)
	assert.Equal(t, "GetProfileResponse", m.ReturnType)
	assert.Equal(t, []string{"TalkException"}, m.Exceptions)
	assert.Empty(t, reg.Diagnostics())
}

func TestAddMethodConflictKeepsFirst(t *testing.T) {
	reg := NewRegistry(nil)

	reg.AddMethod("TalkService", Method{Name: "sendMessage", ArgType: "SendMessageRequest", ReturnType: "SendMessageResponse"}, "a.java")
	reg.AddMethod("TalkService", Method{Name: "sendMessage", ArgType: "OtherRequest", ReturnType: "SendMessageResponse"}, "b.java")

	svc, _ := reg.Service("TalkService")
	require.Len(t, svc.Methods, 1)
	assert.Equal(t, "SendMessageRequest", svc.Methods[0].ArgType)

	diags := reg.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, RegistryConflict, diags[0].Kind)
	assert.Equal(t, "TalkService.sendMessage", diags[0].Entity)
}

func TestMarkExceptionIsMonotonicAndRetroactive(t *testing.T) {
	reg := NewRegistry(nil)

	// Flagged before the struct exists.
	reg.MarkException("NotFoundException")
	assert.True(t, reg.IsExceptionName("NotFoundException"))

	reg.PutStruct(&StructEntity{Name: "NotFoundException"}, "a.java")
	assert.True(t, reg.IsExceptionName("NotFoundException"))

	// Flagged after the struct exists.
	reg.PutStruct(&StructEntity{Name: "AuthException"}, "b.java")
	reg.MarkException("AuthException")
	got, _ := reg.Struct("AuthException")
	assert.True(t, got.IsException())

	assert.Equal(t, []string{"AuthException", "NotFoundException"}, reg.ExceptionNames())
}

func TestInsertionOrderIsPreserved(t *testing.T) {
	reg := NewRegistry(nil)

	for _, n := range []string{"Zeta", "Alpha", "Mid"} {
		reg.PutStruct(&StructEntity{Name: n, Fields: []Field{{ID: 1, Name: "x", Type: TI32}}}, n+".java")
	}

	var names []string
	for _, s := range reg.Structs() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, names)
}

func TestConcurrentWrites(t *testing.T) {
	reg := NewRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.PutStruct(&StructEntity{Name: "Shared", Fields: []Field{{ID: 1, Name: "x", Type: TI32}}}, "x.java")
			reg.AddMethod("Svc", Method{Name: "noop", ReturnType: "void"}, "x.java")
			reg.MarkException("SomeException")
		}()
	}
	wg.Wait()

	assert.True(t, reg.HasType("Shared"))
	svc, _ := reg.Service("Svc")
	assert.Len(t, svc.Methods, 1)
	assert.Empty(t, reg.Diagnostics())
}

func TestAliasTable(t *testing.T) {
	tbl := NewAliasTable()
	tbl.Set("b", Alias{Name: "Profile", Source: SourceOwnLiteral})
	tbl.MarkUnresolved("z")

	assert.Equal(t, "Profile", tbl.Resolve("b"))
	assert.Equal(t, "z", tbl.Resolve("z"))
	assert.True(t, tbl.IsUnresolved("z"))
	assert.Equal(t, []string{"z"}, tbl.Unresolved())

	// Resolution clears the unresolved mark.
	tbl.Set("z", Alias{Name: "Ticket", Source: SourceCallSite})
	assert.False(t, tbl.IsUnresolved("z"))

	all := tbl.All()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Obf)
	assert.Equal(t, "z", all[1].Obf)
}
