package extract

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/apkscope/thriftex/internal/lang"
	"github.com/apkscope/thriftex/internal/schema"
)

// ExtractEnum recovers an enumeration from an entry classified as KindEnum.
// Declaration order is preserved: downstream consumers expect the original
// schema order, not numeric order. A duplicate value name inside one enum is
// a hard error: the entity is skipped and reported.
func ExtractEnum(e *Entry, reg *schema.Registry) {
	decl := e.Index.Enums[0]
	name := reg.Aliases().Resolve(decl.Name)

	ent := &schema.EnumEntity{Name: name}
	seen := make(map[string]struct{})

	for _, c := range e.Index.EnumConstants {
		if !within(c.Node, decl.Node) {
			continue
		}
		num, ok := enumConstantNumber(c.Node, e.Source)
		if !ok {
			// singleton without an integer payload: not a wire value
			continue
		}
		if _, dup := seen[c.Name]; dup {
			reg.Report(schema.Diagnostic{
				Kind:   schema.RegistryConflict,
				Entity: name,
				Entry:  e.Corpus.Path,
				Detail: fmt.Sprintf("duplicate enum value name %q, enum skipped", c.Name),
			})
			return
		}
		seen[c.Name] = struct{}{}
		ent.Values = append(ent.Values, schema.EnumValue{Name: c.Name, Number: num})
	}

	if len(ent.Values) == 0 {
		return
	}
	reg.PutEnum(ent, e.Corpus.Path)
}

// enumConstantNumber extracts the integer payload of an enum constant:
// NAME(3), NAME("Label", 3) and NAME("Label", 3, 9) all yield 3.
func enumConstantNumber(constant *sitter.Node, source []byte) (int, bool) {
	args := constant.ChildByFieldName("arguments")
	if args == nil {
		return 0, false
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		switch arg.Type() {
		case "string_literal":
			continue
		case "decimal_integer_literal":
			return parseInt(lang.NodeText(arg, source))
		case "unary_expression":
			return parseInt(lang.NodeText(arg, source))
		}
	}
	return 0, false
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}

// within reports whether node lies inside container's byte range.
func within(node, container *sitter.Node) bool {
	return node.StartByte() >= container.StartByte() && node.EndByte() <= container.EndByte()
}
