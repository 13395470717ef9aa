package emit

import (
	"strings"
	"testing"

	"github.com/apkscope/thriftex/internal/schema"
)

func TestEscapeReserved(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want string }{
		{"Profile", "Profile"},
		{"list", "list_"},
		{"Enum", "Enum_"},
		{"2fast", "n_2fast"},
		{"has space", "has_space"},
		{"", "unknown"},
	}
	for _, c := range cases {
		if got := EscapeReserved(c.in); got != c.want {
			t.Errorf("EscapeReserved(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func buildRegistry() *schema.Registry {
	table := schema.NewAliasTable()
	table.Set("b", schema.Alias{Name: "Profile", Source: schema.SourceOwnLiteral})
	table.Set("y", schema.Alias{Name: "Ticket", Source: schema.SourceCallSite})
	reg := schema.NewRegistry(table)

	reg.PutEnum(&schema.EnumEntity{
		Name: "ContactStatus",
		Values: []schema.EnumValue{
			{Name: "NORMAL", Number: 0},
			{Name: "BUDDY", Number: 1},
		},
	}, "k.java")

	reg.PutStruct(&schema.StructEntity{
		Name: "Profile",
		Fields: []schema.Field{
			{ID: 1, Name: "mid", Type: schema.TString},
			{ID: 2, Name: "status", Type: schema.TEnum, TypeName: "ContactStatus"},
			{ID: 3, Name: "contacts", Type: schema.TList, ValType: "Profile"},
		},
	}, "g.java")

	exc := &schema.StructEntity{
		Name:   "TalkException",
		Fields: []schema.Field{{ID: 1, Name: "code", Type: schema.TI32}},
	}
	exc.MarkException()
	reg.PutStruct(exc, "i.java")

	reg.AddMethod("TalkService", schema.Method{
		Name:       "getProfile",
		ArgType:    "GetProfileRequest",
		ReturnType: "Profile",
		Exceptions: []string{"TalkException"},
	}, "svc.java")
	reg.AddMethod("TalkService", schema.Method{
		Name: "sendPing", ArgType: "binary", ReturnType: "void",
	}, "svc.java")

	return reg
}

func TestEncode(t *testing.T) {
	t.Parallel()
	out := Encode(buildRegistry(), "com.example.talk")

	for _, want := range []string{
		"namespace java com.example.talk",
		"enum ContactStatus {",
		"  NORMAL = 0,",
		"  BUDDY = 1",
		"struct Profile {",
		"  1: string mid,",
		"  2: ContactStatus status,",
		"  3: list<Profile> contacts",
		"exception TalkException {",
		"service TalkService {",
		"  void sendPing(1: binary request)",
		"throws (1: TalkException ex1)",
		// Ticket resolved but never extracted: kept visible as a typedef.
		"typedef i32 Ticket",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	// Profile materialized as a struct, so no placeholder typedef for it.
	if strings.Contains(out, "typedef i32 Profile") {
		t.Errorf("unexpected typedef for materialized entity\n%s", out)
	}
	// getProfile's arg never resolved to a registry entity: degrades to binary.
	if !strings.Contains(out, "Profile getProfile(1: binary request) throws") {
		t.Errorf("getProfile signature wrong\n%s", out)
	}
}

func TestEncodeSanitizesUnknownReferences(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry(nil)
	reg.PutStruct(&schema.StructEntity{
		Name: "Message",
		Fields: []schema.Field{
			{ID: 1, Name: "meta", Type: schema.TStruct, TypeName: "q9"},
			{ID: 2, Name: "tags", Type: schema.TList, ValType: "z2"},
			{ID: 3, Name: "index", Type: schema.TMap, KeyType: "binary", ValType: "string"},
		},
	}, "m.java")

	out := Encode(reg, "")
	for _, want := range []string{
		"  1: i32 meta,",
		"  2: list<i32> tags,",
		"  3: map<i32,string> index",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestEncodeRenumbersCollidingIDs(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry(nil)
	reg.PutStruct(&schema.StructEntity{
		Name: "Odd",
		Fields: []schema.Field{
			{ID: 1, Name: "a", Type: schema.TString},
			{ID: 1, Name: "b", Type: schema.TString},
			{ID: 0, Name: "c", Type: schema.TString},
		},
	}, "o.java")

	out := Encode(reg, "")
	for _, want := range []string{"1: string a,", "2: string b,", "3: string c"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestEncodeCrossKindCollision(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry(nil)
	reg.PutEnum(&schema.EnumEntity{
		Name:   "Status",
		Values: []schema.EnumValue{{Name: "OK", Number: 0}},
	}, "k.java")
	reg.PutStruct(&schema.StructEntity{
		Name:   "Status",
		Fields: []schema.Field{{ID: 1, Name: "text", Type: schema.TString}},
	}, "s.java")

	out := Encode(reg, "")
	if !strings.Contains(out, "enum Status {") {
		t.Errorf("enum header missing\n%s", out)
	}
	if !strings.Contains(out, "struct Status_2 {") {
		t.Errorf("colliding struct not suffixed\n%s", out)
	}
}

func TestEncodeEscapesReservedNames(t *testing.T) {
	t.Parallel()
	reg := schema.NewRegistry(nil)
	reg.PutStruct(&schema.StructEntity{
		Name:   "Record",
		Fields: []schema.Field{{ID: 1, Name: "required", Type: schema.TBool}},
	}, "r.java")

	out := Encode(reg, "")
	if !strings.Contains(out, "1: bool required_") {
		t.Errorf("reserved field name not escaped\n%s", out)
	}
}
