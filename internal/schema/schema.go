// Package schema defines the recovered Thrift data model: enums, structs,
// services, the obfuscated-name alias table, and the registry all extractors
// write into.
package schema

import "sync/atomic"

// TType is the canonical Thrift category of a field.
type TType string

const (
	TBool   TType = "bool"
	TByte   TType = "byte"
	TI16    TType = "i16"
	TI32    TType = "i32"
	TI64    TType = "i64"
	TDouble TType = "double"
	TString TType = "string"
	TBinary TType = "binary"
	TStruct TType = "struct"
	TList   TType = "list"
	TMap    TType = "map"
	TSet    TType = "set"
	TEnum   TType = "enum"
)

// BaseTypes is the set of primitive categories that need no registry lookup.
var BaseTypes = map[string]struct{}{
	"bool": {}, "byte": {}, "i8": {}, "i16": {}, "i32": {}, "i64": {},
	"double": {}, "string": {}, "binary": {},
}

// IsBaseType reports whether name is a Thrift base type.
func IsBaseType(name string) bool {
	_, ok := BaseTypes[name]
	return ok
}

// Field is one numbered slot of a struct.
// TypeName is set when Type is struct or enum (the referenced entity name,
// possibly an unresolved obfuscated pass-through). KeyType is set only for
// maps; ValType holds the element type for list/set/map.
type Field struct {
	ID       int
	Name     string
	Type     TType
	TypeName string
	KeyType  string
	ValType  string
	Required bool
}

// EnumValue is one named member of an enum.
type EnumValue struct {
	Name   string
	Number int
}

// EnumEntity is a recovered enumeration. Values preserve source declaration
// order; numbers need not be unique or contiguous.
type EnumEntity struct {
	Name   string
	Values []EnumValue
}

// StructEntity is a recovered data record. Fields are sorted ascending by ID.
// The exception flag is a monotonic upgrade: once set it is never cleared,
// and it may be set retroactively by the service pass.
type StructEntity struct {
	Name   string
	Fields []Field

	exception atomic.Bool
}

// IsException reports whether the struct carries fault semantics.
func (s *StructEntity) IsException() bool { return s.exception.Load() }

// MarkException upgrades the struct to an exception type. Idempotent.
func (s *StructEntity) MarkException() { s.exception.Store(true) }

// Method is one RPC method of a service. ArgType and ReturnType are type
// names or base types; ReturnType may be "void". Exceptions lists fault
// struct names in slot order.
type Method struct {
	Name       string
	ArgType    string
	ReturnType string
	Exceptions []string
}

// ServiceEntity groups recovered methods under one semantic service name.
type ServiceEntity struct {
	Name    string
	Methods []Method
}

// FieldsEqual reports whether two field lists describe the same layout.
// Used to deduplicate a struct recognized from multiple corpus modules.
func FieldsEqual(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
