// Package emit renders the recovered registry as a Thrift IDL file and a
// JSON capture report. The link phase already validated closure, but unknown
// references are still sanitized to safe primitives here so the emitted IDL
// always compiles.
package emit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/apkscope/thriftex/internal/schema"
)

// reserved are Thrift keywords that cannot be used as identifiers.
var reserved = map[string]struct{}{
	"binary": {}, "bool": {}, "byte": {}, "const": {}, "double": {}, "enum": {},
	"exception": {}, "extends": {}, "false": {}, "i16": {}, "i32": {}, "i64": {},
	"i8": {}, "include": {}, "list": {}, "map": {}, "namespace": {}, "oneway": {},
	"optional": {}, "required": {}, "service": {}, "set": {}, "string": {},
	"struct": {}, "throws": {}, "true": {}, "typedef": {}, "union": {},
	"void": {}, "slist": {}, "senum": {}, "async": {},
}

var (
	validIdent   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	invalidChars = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// EscapeReserved rewrites a recovered name into a legal Thrift identifier.
func EscapeReserved(name string) string {
	if name == "" {
		return "unknown"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "n_" + name
	}
	if _, ok := reserved[strings.ToLower(name)]; ok {
		return name + "_"
	}
	if !validIdent.MatchString(name) {
		name = invalidChars.ReplaceAllString(name, "_")
		if name[0] >= '0' && name[0] <= '9' {
			name = "n_" + name
		}
	}
	return name
}

// Encode renders the registry as Thrift IDL text. Enums, structs and
// services appear in registry insertion order; fields ascend by id; methods
// keep extraction order.
func Encode(reg *schema.Registry, namespace string) string {
	var lines []string

	if namespace != "" {
		lines = append(lines, "namespace java "+namespace, "")
	}

	renames := crossKindRenames(reg)

	lines = append(lines, typedefBlock(reg)...)
	lines = append(lines, "// Enumerations")
	for _, en := range reg.Enums() {
		lines = append(lines, encodeEnum(en, renames)...)
	}

	lines = append(lines, "// Data structures")
	for _, st := range reg.Structs() {
		lines = append(lines, encodeStruct(st, reg, renames)...)
	}

	lines = append(lines, "// Service definitions")
	for _, svc := range reg.Services() {
		lines = append(lines, encodeService(svc, reg, renames)...)
	}

	return strings.Join(lines, "\n")
}

// crossKindRenames suffixes entity names that collide across kinds, so the
// emitted file has one definition per identifier. References keep the
// original name; within one kind the registry already guarantees
// uniqueness.
func crossKindRenames(reg *schema.Registry) map[string]string {
	taken := make(map[string]struct{})
	renames := make(map[string]string)

	claim := func(kind, name string) {
		if _, ok := taken[name]; !ok {
			taken[name] = struct{}{}
			return
		}
		suffix := 2
		for {
			candidate := fmt.Sprintf("%s_%d", name, suffix)
			if _, ok := taken[candidate]; !ok {
				taken[candidate] = struct{}{}
				renames[kind+":"+name] = candidate
				return
			}
			suffix++
		}
	}

	for _, en := range reg.Enums() {
		claim("enum", en.Name)
	}
	for _, st := range reg.Structs() {
		claim("struct", st.Name)
	}
	for _, svc := range reg.Services() {
		claim("service", svc.Name)
	}
	return renames
}

func renamed(renames map[string]string, kind, name string) string {
	if r, ok := renames[kind+":"+name]; ok {
		return r
	}
	return name
}

// typedefBlock emits placeholder typedefs for aliases that resolved to a
// semantic name but never materialized as an entity, so downstream readers
// see every recovered name.
func typedefBlock(reg *schema.Registry) []string {
	var lines []string
	seen := make(map[string]struct{})
	for _, e := range reg.Aliases().All() {
		name := e.Alias.Name
		if _, dup := seen[name]; dup {
			continue
		}
		if reg.HasType(name) {
			continue
		}
		if _, svc := reg.Service(name); svc {
			continue
		}
		seen[name] = struct{}{}
		lines = append(lines, "typedef i32 "+EscapeReserved(name))
	}
	if len(lines) > 0 {
		lines = append([]string{"// Aliases recovered without a definition"}, lines...)
		lines = append(lines, "")
	}
	return lines
}

func encodeEnum(en *schema.EnumEntity, renames map[string]string) []string {
	lines := []string{"enum " + EscapeReserved(renamed(renames, "enum", en.Name)) + " {"}
	for i, v := range en.Values {
		sep := ","
		if i == len(en.Values)-1 {
			sep = ""
		}
		lines = append(lines, fmt.Sprintf("  %s = %d%s", EscapeReserved(v.Name), v.Number, sep))
	}
	return append(lines, "}", "")
}

func encodeStruct(st *schema.StructEntity, reg *schema.Registry, renames map[string]string) []string {
	kind := "struct"
	if st.IsException() || reg.IsExceptionName(st.Name) {
		kind = "exception"
	}
	lines := []string{kind + " " + EscapeReserved(renamed(renames, "struct", st.Name)) + " {"}

	seenIDs := make(map[int]struct{})
	nextID := 1
	for i, f := range st.Fields {
		id := f.ID
		if id <= 0 {
			id = nextID
		}
		for {
			if _, dup := seenIDs[id]; !dup {
				break
			}
			id++
		}
		seenIDs[id] = struct{}{}
		if id >= nextID {
			nextID = id + 1
		}

		req := ""
		if f.Required {
			req = "required "
		}
		sep := ","
		if i == len(st.Fields)-1 {
			sep = ""
		}
		lines = append(lines, fmt.Sprintf("  %d: %s%s %s%s", id, req, fieldType(f, reg), EscapeReserved(f.Name), sep))
	}
	return append(lines, "}", "")
}

// fieldType renders a field's type, sanitizing references that escaped the
// registry to safe primitives. Map keys must be base types or enums.
func fieldType(f schema.Field, reg *schema.Registry) string {
	switch f.Type {
	case schema.TStruct, schema.TEnum:
		if f.TypeName != "" && reg.HasType(f.TypeName) {
			return f.TypeName
		}
		return "i32"
	case schema.TList:
		return "list<" + sanitizeRef(f.ValType, reg) + ">"
	case schema.TSet:
		return "set<" + sanitizeRef(f.ValType, reg) + ">"
	case schema.TMap:
		return "map<" + sanitizeKey(f.KeyType, reg) + "," + sanitizeRef(f.ValType, reg) + ">"
	default:
		return string(f.Type)
	}
}

func sanitizeRef(name string, reg *schema.Registry) string {
	if schema.IsBaseType(name) || reg.HasType(name) {
		return name
	}
	return "i32"
}

func sanitizeKey(name string, reg *schema.Registry) string {
	if schema.IsBaseType(name) && name != "binary" {
		return name
	}
	if _, ok := reg.Enum(name); ok {
		return name
	}
	return "i32"
}

func encodeService(svc *schema.ServiceEntity, reg *schema.Registry, renames map[string]string) []string {
	lines := []string{"service " + EscapeReserved(renamed(renames, "service", svc.Name)) + " {"}
	for i, m := range svc.Methods {
		ret := sanitizeSignatureType(m.ReturnType, reg)
		arg := sanitizeSignatureType(m.ArgType, reg)

		throws := ""
		var faults []string
		for _, ex := range m.Exceptions {
			if st, ok := reg.Struct(ex); ok && (st.IsException() || reg.IsExceptionName(ex)) {
				faults = append(faults, ex)
			}
		}
		if len(faults) > 0 {
			var parts []string
			for j, ex := range faults {
				parts = append(parts, fmt.Sprintf("%d: %s ex%d", j+1, ex, j+1))
			}
			throws = " throws (" + strings.Join(parts, ", ") + ")"
		}

		sep := ","
		if i == len(svc.Methods)-1 {
			sep = ""
		}
		lines = append(lines, fmt.Sprintf("  %s %s(1: %s request)%s%s", ret, EscapeReserved(m.Name), arg, throws, sep))
	}
	return append(lines, "}", "")
}

// sanitizeSignatureType admits base types, void, well-formed containers and
// registry entities; anything else degrades to binary.
func sanitizeSignatureType(t string, reg *schema.Registry) string {
	switch {
	case t == "":
		return "binary"
	case t == "void" || schema.IsBaseType(t):
		return t
	case strings.Contains(t, "<"):
		return t
	case reg.HasType(t):
		return t
	}
	return "binary"
}
