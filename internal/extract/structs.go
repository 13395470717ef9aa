package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/apkscope/thriftex/internal/lang"
	"github.com/apkscope/thriftex/internal/schema"
	"github.com/apkscope/thriftex/internal/typenorm"
)

// Read-loop idioms the decompiler leaves behind for container fields. The
// receiver and descriptor class names are obfuscated, but the protocol
// method shapes (map/list/set header writes, element casts) survive.
var (
	reMapHeader   = regexp.MustCompile(`\.D\(\s*new\s+[\w.]+\s*\(\s*\(byte\)\s*(\d+)\s*,\s*\(byte\)\s*(\d+)`)
	reListHeader  = regexp.MustCompile(`\.C\(\s*new\s+[\w.]+\s*\(\s*\(byte\)\s*(\d+)\s*,`)
	reSetHeader   = regexp.MustCompile(`\.G\(\s*new\s+[\w.]+\s*\(\s*\(byte\)\s*(\d+)\s*,`)
	reMapKeyCast  = regexp.MustCompile(`\(\((\w+)\)\s*\w+\.getKey\(\)\)`)
	reMapValCast  = regexp.MustCompile(`\(\((\w+)\)\s*\w+\.getValue\(\)\)`)
	reNewInstance = regexp.MustCompile(`new\s+(\w+)\s*\(\s*\)`)
)

// descriptor is one decoded field-descriptor constant:
// public static final c NAME = new c("fieldName", (byte) CODE, ID);
type descriptor struct {
	constName string
	fieldName string // empty when the decompiler dropped the name literal
	code      int
	id        int
}

// member is one non-static member declaration.
type member struct {
	name string
	typ  string // raw declared type text, generics included
}

// ExtractStruct recovers a data record from an entry classified as
// KindStruct. Every descriptor constant becomes a field; missing member
// matches degrade to placeholder types rather than dropping the slot, and
// the final field list is sorted ascending by id to match wire order.
func ExtractStruct(e *Entry, reg *schema.Registry) {
	if len(e.Index.Classes) == 0 {
		return
	}
	obf := e.Index.Classes[0].Name
	name := reg.Aliases().Resolve(obf)
	src := string(e.Source)

	var descs []descriptor
	var membs []member
	for _, f := range e.Index.Fields {
		if d, ok := descriptorFromField(f.Node, e.Source); ok {
			d.constName = f.Name
			descs = append(descs, d)
			continue
		}
		if isStaticField(f.Node, e.Source) {
			continue
		}
		typeNode := f.Node.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		membs = append(membs, member{name: f.Name, typ: lang.NodeText(typeNode, e.Source)})
	}

	ent := &schema.StructEntity{Name: name}
	if reThriftFault.MatchString(src) || strings.HasSuffix(name, "Exception") {
		ent.MarkException()
	}

	var containers []member
	for _, m := range membs {
		if strings.Contains(m.typ, "<") {
			containers = append(containers, m)
		}
	}
	cvIdx := 0

	seenIDs := make(map[int]struct{})
	for _, d := range descs {
		fname := d.fieldName
		if fname == "" {
			fname = d.constName
		}

		fld := schema.Field{ID: d.id, Name: fname, Type: typenorm.FromWireCode(d.code)}
		mv, found := matchMember(fname, membs)
		if !found && isContainer(fld.Type) && cvIdx < len(containers) {
			mv = containers[cvIdx]
			cvIdx++
			found = true
		}

		switch fld.Type {
		case schema.TList, schema.TSet, schema.TMap:
			resolveContainer(&fld, fname, mv, found, src, reg)
		case schema.TI32:
			resolveI32(&fld, fname, mv, found, src, reg)
		case schema.TStruct, schema.TEnum:
			if found {
				t := typenorm.Normalize(mv.typ, reg.Aliases())
				if t.TypeName != "" {
					fld.TypeName = t.TypeName
					break
				}
			}
			reg.Report(schema.Diagnostic{
				Kind:   schema.StructuralMismatch,
				Entity: name,
				Entry:  e.Corpus.Path,
				Detail: fmt.Sprintf("field %q (id %d) has %s wire code but no matching member, using i32 placeholder", fname, d.id, fld.Type),
			})
			fld.Type = schema.TI32
			fld.TypeName = ""
		}

		if fld.ID <= 0 {
			reg.Report(schema.Diagnostic{
				Kind:   schema.StructuralMismatch,
				Entity: name,
				Entry:  e.Corpus.Path,
				Detail: fmt.Sprintf("field %q has id %d, shifted to 1 (wire format forbids 0)", fname, fld.ID),
			})
			fld.ID = 1
		}
		if _, dup := seenIDs[fld.ID]; dup {
			reg.Report(schema.Diagnostic{
				Kind:   schema.StructuralMismatch,
				Entity: name,
				Entry:  e.Corpus.Path,
				Detail: fmt.Sprintf("duplicate field id %d (%q), keeping first", fld.ID, fname),
			})
			continue
		}
		seenIDs[fld.ID] = struct{}{}
		ent.Fields = append(ent.Fields, fld)
	}

	if len(ent.Fields) == 0 && !reThriftBase.MatchString(src) && !reToStringName.MatchString(src) {
		return
	}

	sort.SliceStable(ent.Fields, func(i, j int) bool {
		return ent.Fields[i].ID < ent.Fields[j].ID
	})
	reg.PutStruct(ent, e.Corpus.Path)
}

// resolveContainer fills key/element types for list, set and map fields.
// Preference order: the member declaration's generic arguments, then the
// wire codes of the read-loop header, then element casts and instantiations.
func resolveContainer(fld *schema.Field, fname string, mv member, found bool, src string, reg *schema.Registry) {
	if found {
		t := typenorm.Normalize(mv.typ, reg.Aliases())
		if t.TType == fld.Type {
			fld.KeyType = t.KeyType
			fld.ValType = t.ValType
		}
	}

	block := readBlock(fname, src)
	switch fld.Type {
	case schema.TMap:
		if fld.KeyType == "" || fld.ValType == "" {
			if m := reMapHeader.FindStringSubmatch(block); m != nil {
				if fld.KeyType == "" {
					fld.KeyType = wireName(m[1], "string")
				}
				if fld.ValType == "" {
					fld.ValType = wireName(m[2], "i32")
				}
			}
		}
		if m := reMapKeyCast.FindStringSubmatch(block); m != nil && fld.KeyType == "" {
			fld.KeyType = typenorm.Element(m[1], reg.Aliases())
		}
		if m := reMapValCast.FindStringSubmatch(block); m != nil && fld.ValType == "" {
			fld.ValType = typenorm.Element(m[1], reg.Aliases())
		}
	case schema.TList:
		if fld.ValType == "" {
			if m := reListHeader.FindStringSubmatch(block); m != nil {
				fld.ValType = wireName(m[1], "i32")
			}
		}
		if fld.ValType == "" || schema.IsBaseType(fld.ValType) {
			if m := reNewInstance.FindStringSubmatch(block); m != nil {
				if elem := typenorm.Element(m[1], reg.Aliases()); !schema.IsBaseType(elem) && elem != "" {
					fld.ValType = elem
				}
			}
		}
	case schema.TSet:
		if fld.ValType == "" {
			if m := reSetHeader.FindStringSubmatch(block); m != nil {
				fld.ValType = wireName(m[1], "i32")
			}
		}
	}

	if fld.KeyType == "" && fld.Type == schema.TMap {
		fld.KeyType = "string"
	}
	if fld.ValType == "" {
		fld.ValType = "i32"
	}
}

// resolveI32 refines an i32-coded field: the valueOf(read) idiom marks an
// enum reference, and a primitive member declaration narrows the width
// (the descriptor table collapses long/int in some generator versions).
func resolveI32(fld *schema.Field, fname string, mv member, found bool, src string, reg *schema.Registry) {
	reValueOf := regexp.MustCompile(regexp.QuoteMeta(fname) + `\s*=\s*(\w+)\.valueOf\(`)
	if m := reValueOf.FindStringSubmatch(src); m != nil {
		fld.Type = schema.TEnum
		fld.TypeName = reg.Aliases().Resolve(m[1])
		return
	}
	if found {
		base := mv.typ
		if i := strings.Index(base, "<"); i >= 0 {
			base = base[:i]
		}
		if p, ok := typenorm.Primitive(typenorm.Simplify(base)); ok && p != "void" {
			fld.Type = typenorm.BaseTType(p)
		}
	}
}

// readBlock isolates the deserialization block that assigns fname, so
// container element probes do not match unrelated fields.
func readBlock(fname, src string) string {
	re := regexp.MustCompile(`(?s)` + regexp.QuoteMeta(fname) + `\s*=.*?\{(.*?)\}`)
	if m := re.FindStringSubmatch(src); m != nil {
		return m[1]
	}
	return src
}

func wireName(code string, fallback string) string {
	n, ok := parseInt(code)
	if !ok {
		return fallback
	}
	t := typenorm.FromWireCode(n)
	if isContainer(t) || t == schema.TStruct || t == schema.TEnum {
		return fallback
	}
	return string(t)
}

func isContainer(t schema.TType) bool {
	return t == schema.TList || t == schema.TSet || t == schema.TMap
}

// matchMember links a field name to the member declaration that most
// plausibly backs it: an exact case-insensitive name match first, then one
// name textually containing the other.
func matchMember(fname string, membs []member) (member, bool) {
	lf := strings.ToLower(fname)
	for _, m := range membs {
		if strings.ToLower(m.name) == lf {
			return m, true
		}
	}
	for _, m := range membs {
		lm := strings.ToLower(m.name)
		if strings.Contains(lm, lf) || strings.Contains(lf, lm) {
			return m, true
		}
	}
	return member{}, false
}

// descriptorFromField decodes a static descriptor constant of the shape
// new c("name", (byte) CODE, ID). The descriptor class name itself is
// obfuscated, so only the argument shape identifies it.
func descriptorFromField(fieldDecl *sitter.Node, source []byte) (descriptor, bool) {
	if !isStaticField(fieldDecl, source) {
		return descriptor{}, false
	}
	creations := lang.DescendantsOfType(fieldDecl, "object_creation_expression")
	if len(creations) == 0 {
		return descriptor{}, false
	}
	args := creations[0].ChildByFieldName("arguments")
	if args == nil {
		return descriptor{}, false
	}

	var d descriptor
	var haveCode bool
	var ints []int
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		switch arg.Type() {
		case "string_literal":
			if d.fieldName == "" {
				d.fieldName = lang.StringLiteral(arg, source)
			}
		case "cast_expression":
			if haveCode {
				continue
			}
			if v := arg.ChildByFieldName("value"); v != nil && v.Type() == "decimal_integer_literal" {
				if n, ok := parseInt(lang.NodeText(v, source)); ok {
					d.code = n
					haveCode = true
				}
			}
		case "decimal_integer_literal":
			if n, ok := parseInt(lang.NodeText(arg, source)); ok {
				ints = append(ints, n)
			}
		}
	}
	if !haveCode || len(ints) == 0 {
		return descriptor{}, false
	}
	d.id = ints[len(ints)-1]
	return d, true
}

// isStaticField reports whether a field_declaration carries the static
// modifier.
func isStaticField(fieldDecl *sitter.Node, source []byte) bool {
	mods := lang.ChildOfType(fieldDecl, "modifiers")
	return mods != nil && strings.Contains(lang.NodeText(mods, source), "static")
}
