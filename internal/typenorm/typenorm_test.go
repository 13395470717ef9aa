package typenorm

import (
	"testing"

	"github.com/apkscope/thriftex/internal/schema"
)

func TestFromWireCode(t *testing.T) {
	t.Parallel()
	cases := []struct {
		code int
		want schema.TType
	}{
		{1, schema.TBool},
		{2, schema.TBool},
		{3, schema.TByte},
		{4, schema.TDouble},
		{6, schema.TI16},
		{8, schema.TI32},
		{10, schema.TI64},
		{11, schema.TString},
		{12, schema.TStruct},
		{13, schema.TMap},
		{14, schema.TSet},
		{15, schema.TList},
		{16, schema.TEnum},
		{99, schema.TI32}, // unknown codes degrade to i32
	}
	for _, c := range cases {
		if got := FromWireCode(c.code); got != c.want {
			t.Errorf("FromWireCode(%d) = %q, want %q", c.code, got, c.want)
		}
	}
}

func TestSimplify(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw, want string
	}{
		{"String", "String"},
		{"java.lang.String", "String"},
		{"a.b.Foo$Bar", "FooBar"},
		{"  long  ", "long"},
		{"List<String>", "List"},
		{"", ""},
		{"***", ""},
	}
	for _, c := range cases {
		if got := Simplify(c.raw); got != c.want {
			t.Errorf("Simplify(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestSplitGeneric(t *testing.T) {
	t.Parallel()
	base, args, ok := SplitGeneric("Map<String, List<Integer>>")
	if !ok {
		t.Fatal("expected generic split")
	}
	if base != "Map" {
		t.Errorf("base = %q, want Map", base)
	}
	if len(args) != 2 || args[0] != "String" || args[1] != "List<Integer>" {
		t.Errorf("args = %v", args)
	}

	if _, _, ok := SplitGeneric("String"); ok {
		t.Error("non-generic token reported as generic")
	}
}

func TestNormalizePrimitives(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw  string
		want schema.TType
	}{
		{"long", schema.TI64},
		{"Integer", schema.TI32},
		{"boolean", schema.TBool},
		{"java.lang.String", schema.TString},
		{"byte[]", schema.TBinary},
		{"Object...", schema.TBinary},
	}
	for _, c := range cases {
		got := Normalize(c.raw, nil)
		if got.TType != c.want {
			t.Errorf("Normalize(%q).TType = %q, want %q", c.raw, got.TType, c.want)
		}
	}
}

func TestNormalizeClassReference(t *testing.T) {
	t.Parallel()
	aliases := schema.NewAliasTable()
	aliases.Set("b", schema.Alias{Name: "UserProfile", Source: schema.SourceOwnLiteral})

	got := Normalize("b", aliases)
	if got.TType != schema.TStruct || got.TypeName != "UserProfile" {
		t.Errorf("Normalize(b) = %+v, want struct UserProfile", got)
	}

	// No alias: the raw name passes through, never invented.
	got = Normalize("zz", aliases)
	if got.TType != schema.TStruct || got.TypeName != "zz" {
		t.Errorf("Normalize(zz) = %+v, want struct zz", got)
	}
}

func TestNormalizeContainers(t *testing.T) {
	t.Parallel()
	aliases := schema.NewAliasTable()
	aliases.Set("f", schema.Alias{Name: "Contact", Source: schema.SourceOwnLiteral})

	got := Normalize("java.util.List<f>", aliases)
	if got.TType != schema.TList || got.ValType != "Contact" {
		t.Errorf("list = %+v", got)
	}

	got = Normalize("Map<String, Long>", aliases)
	if got.TType != schema.TMap || got.KeyType != "string" || got.ValType != "i64" {
		t.Errorf("map = %+v", got)
	}

	got = Normalize("java.util.Set<Integer>", aliases)
	if got.TType != schema.TSet || got.ValType != "i32" {
		t.Errorf("set = %+v", got)
	}

	// Unknown generic wrapper degrades to a reference to its base.
	got = Normalize("Optional<String>", aliases)
	if got.TType != schema.TStruct || got.TypeName != "Optional" {
		t.Errorf("wrapper = %+v", got)
	}
}

func TestElement(t *testing.T) {
	t.Parallel()
	if got := Element("String", nil); got != "string" {
		t.Errorf("Element(String) = %q", got)
	}
	if got := Element("List<Long>", nil); got != "i64" {
		t.Errorf("Element(List<Long>) = %q, want collapsed i64", got)
	}
}

func TestBaseTType(t *testing.T) {
	t.Parallel()
	if got := BaseTType("i64"); got != schema.TI64 {
		t.Errorf("BaseTType(i64) = %q", got)
	}
	if got := BaseTType("nonsense"); got != schema.TI32 {
		t.Errorf("BaseTType fallback = %q, want i32", got)
	}
}
