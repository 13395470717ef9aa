// Package typenorm maps raw type tokens from decompiled sources (wire
// type codes, Java primitives and boxed types, generic container
// descriptors, class references) to canonical Thrift types.
//
// Nothing here fails: the corpus is not self-consistent, so every path
// degrades to a best-effort result instead of returning an error.
package typenorm

import (
	"regexp"
	"strings"

	"github.com/apkscope/thriftex/internal/schema"
)

// wireCodes is the Thrift binary-protocol field-type table as it appears in
// the decompiled descriptor constants: new c("name", (byte) CODE, id).
var wireCodes = map[int]schema.TType{
	1:  schema.TBool,
	2:  schema.TBool,
	3:  schema.TByte,
	4:  schema.TDouble,
	6:  schema.TI16,
	8:  schema.TI32,
	10: schema.TI64,
	11: schema.TString,
	12: schema.TStruct,
	13: schema.TMap,
	14: schema.TSet,
	15: schema.TList,
	16: schema.TEnum,
}

// primitives maps Java primitive and boxed type names to Thrift base types.
var primitives = map[string]string{
	"long": "i64", "int": "i32", "short": "i16", "double": "double",
	"float": "double", "boolean": "bool", "byte": "byte", "void": "void",
	"Long": "i64", "Integer": "i32", "Short": "i16", "Double": "double",
	"Float": "double", "Boolean": "bool", "Byte": "byte", "String": "string",
	"string": "string", "Character": "i16",
	"Object": "binary", "byte[]": "binary", "ByteBuffer": "binary",
	"binary": "binary",
}

var ident = regexp.MustCompile(`^[A-Za-z0-9_]+`)

// FromWireCode returns the Thrift category for a binary-protocol type code.
// Unknown codes fall back to i32, the safe integer default.
func FromWireCode(code int) schema.TType {
	if t, ok := wireCodes[code]; ok {
		return t
	}
	return schema.TI32
}

// Primitive maps a Java type token to a Thrift base type name.
func Primitive(tok string) (string, bool) {
	t, ok := primitives[tok]
	return t, ok
}

// Simplify strips package qualifiers, inner-class markers and trailing
// garbage from a raw type token: "a.b.Foo$Bar" -> "FooBar". Returns "" when
// nothing identifier-like survives.
func Simplify(raw string) string {
	t := strings.TrimSpace(raw)
	if t == "" {
		return ""
	}
	if i := strings.LastIndex(t, "."); i >= 0 && !strings.Contains(t[i:], "<") {
		t = t[i+1:]
	}
	t = strings.ReplaceAll(t, "$", "")
	return ident.FindString(strings.TrimSpace(t))
}

// SplitGeneric decomposes "Base<A, B<C>>" into its base name and top-level
// type arguments. ok is false when raw carries no generic arguments.
func SplitGeneric(raw string) (base string, args []string, ok bool) {
	lt := strings.Index(raw, "<")
	gt := strings.LastIndex(raw, ">")
	if lt < 0 || gt < lt {
		return raw, nil, false
	}
	base = strings.TrimSpace(raw[:lt])
	inner := raw[lt+1 : gt]

	depth := 0
	var buf strings.Builder
	for _, ch := range inner {
		switch ch {
		case '<':
			depth++
		case '>':
			depth--
		}
		if ch == ',' && depth == 0 {
			if s := strings.TrimSpace(buf.String()); s != "" {
				args = append(args, s)
			}
			buf.Reset()
			continue
		}
		buf.WriteRune(ch)
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		args = append(args, s)
	}
	return base, args, true
}

// Type is the Field-compatible result of normalization.
type Type struct {
	TType    schema.TType
	TypeName string // referenced entity for struct/enum categories
	KeyType  string // map key
	ValType  string // list/set/map element
}

// Normalize maps a raw Java type token to a canonical Thrift type, passing
// class references through the alias table. Unresolved references default to
// the struct category with the raw name retained, never invented.
func Normalize(raw string, aliases *schema.AliasTable) Type {
	if strings.Contains(raw, "...") {
		return Type{TType: schema.TBinary}
	}
	if base, args, ok := SplitGeneric(raw); ok {
		return normalizeContainer(base, args, aliases)
	}

	tok := Simplify(raw)
	if tok == "" {
		return Type{TType: schema.TBinary}
	}
	if p, ok := primitives[tok]; ok {
		return Type{TType: BaseTType(p)}
	}
	name := tok
	if aliases != nil {
		name = aliases.Resolve(tok)
	}
	return Type{TType: schema.TStruct, TypeName: name}
}

// Element normalizes a container element token to the name used in
// list<...>/set<...>/map<...> positions: a base type or an entity name.
func Element(raw string, aliases *schema.AliasTable) string {
	t := Normalize(raw, aliases)
	switch t.TType {
	case schema.TStruct, schema.TEnum:
		return t.TypeName
	case schema.TList, schema.TSet:
		// nested containers collapse to their element, matching the
		// original extractor's behavior for irregular generics
		return t.ValType
	case schema.TMap:
		return t.ValType
	default:
		return string(t.TType)
	}
}

func normalizeContainer(base string, args []string, aliases *schema.AliasTable) Type {
	bl := strings.ToLower(Simplify(base))
	switch {
	case strings.HasSuffix(bl, "list"):
		if len(args) >= 1 {
			return Type{TType: schema.TList, ValType: Element(args[0], aliases)}
		}
		return Type{TType: schema.TList}
	case strings.HasSuffix(bl, "set"):
		if len(args) >= 1 {
			return Type{TType: schema.TSet, ValType: Element(args[0], aliases)}
		}
		return Type{TType: schema.TSet}
	case strings.HasSuffix(bl, "map"):
		if len(args) == 2 {
			return Type{
				TType:   schema.TMap,
				KeyType: Element(args[0], aliases),
				ValType: Element(args[1], aliases),
			}
		}
		return Type{TType: schema.TMap}
	}
	// Unknown generic wrapper: treat as a reference to the base type.
	return Normalize(base, aliases)
}

// BaseTType maps a Thrift base-type name to its category tag. Unknown names
// fall back to i32.
func BaseTType(name string) schema.TType {
	switch name {
	case "bool":
		return schema.TBool
	case "byte":
		return schema.TByte
	case "i16":
		return schema.TI16
	case "i32":
		return schema.TI32
	case "i64":
		return schema.TI64
	case "double":
		return schema.TDouble
	case "string":
		return schema.TString
	case "binary", "void":
		return schema.TBinary
	}
	return schema.TI32
}
