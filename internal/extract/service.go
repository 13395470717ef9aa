package extract

import (
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/apkscope/thriftex/internal/lang"
	"github.com/apkscope/thriftex/internal/schema"
	"github.com/apkscope/thriftex/internal/typenorm"
)

var (
	reMetaMethod   = regexp.MustCompile(`\bm\s*=\s*"(\w+)"`)
	reDispatchPair = regexp.MustCompile(`\.[ab]\(\s*"(\w+)"\s*,`)
)

// methodStopList filters Object/protocol plumbing out of client method
// signature scans.
var methodStopList = map[string]struct{}{
	"toString": {}, "hashCode": {}, "equals": {}, "compareTo": {},
	"read": {}, "write": {}, "clear": {}, "validate": {}, "deepCopy": {},
}

// ExtractService recovers service methods from an entry classified as
// KindService: a client wrapper whose dispatch calls carry method-name
// literals and whose nested holders describe each method's request and
// result shape. Method order follows source declaration order.
func ExtractService(e *Entry, reg *schema.Registry) {
	src := string(e.Source)
	svcName := serviceName(e, src, reg)

	firstPos := make(map[string]int)
	note := func(name string, pos int) {
		if name == "" {
			return
		}
		if old, ok := firstPos[name]; !ok || pos < old {
			firstPos[name] = pos
		}
	}

	for _, re := range []*regexp.Regexp{reDispatchTag, reDispatchPair, reMetaMethod} {
		for _, m := range re.FindAllStringSubmatchIndex(src, -1) {
			note(src[m[2]:m[3]], m[0])
		}
	}
	for _, m := range reWrapperLiteral.FindAllStringSubmatchIndex(src, -1) {
		note(src[m[2]:m[3]], m[0])
	}

	argTypes := make(map[string]string)
	retTypes := make(map[string]string)
	excTypes := make(map[string][]string)

	// Nested holder classes: method_args carries the request slot,
	// method_result the success slot and fault slots.
	for _, c := range e.Index.Classes {
		switch {
		case strings.HasSuffix(c.Name, "_args"):
			method := strings.TrimSuffix(c.Name, "_args")
			note(method, int(c.Node.StartByte()))
			if t := firstHolderField(e, c.Node, reg); t != "" {
				argTypes[method] = t
			}
		case strings.HasSuffix(c.Name, "_result"):
			method := strings.TrimSuffix(c.Name, "_result")
			note(method, int(c.Node.StartByte()))
			ret, excs := resultHolderSlots(e, c.Node, reg)
			if ret != "" {
				retTypes[method] = ret
			}
			if len(excs) > 0 {
				excTypes[method] = excs
			}
		}
	}

	// Client method signatures fill whatever the holders left open. Only
	// final methods count (generated client stubs are final, plumbing is
	// not) unless the body carries a dispatch tag outright.
	for _, m := range e.Index.Methods {
		if _, stop := methodStopList[m.Name]; stop {
			continue
		}
		body := lang.NodeText(m.Node, e.Source)
		tag := reDispatchTag.FindStringSubmatch(body)
		if tag == nil && !isFinalMethod(m.Node, e.Source) {
			continue
		}
		name := m.Name
		if tag != nil {
			name = tag[1]
		}
		note(name, int(m.Node.StartByte()))

		if _, ok := argTypes[name]; !ok {
			if t := firstParamType(m.Node, e.Source, reg); t != "" {
				argTypes[name] = t
			}
		}
		if _, ok := retTypes[name]; !ok {
			if t := returnType(m.Node, e.Source, reg); t != "" {
				retTypes[name] = t
			}
		}
	}

	if len(firstPos) == 0 {
		return
	}

	names := make([]string, 0, len(firstPos))
	for n := range firstPos {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if firstPos[names[i]] != firstPos[names[j]] {
			return firstPos[names[i]] < firstPos[names[j]]
		}
		return names[i] < names[j]
	})

	for _, n := range names {
		for _, ex := range excTypes[n] {
			reg.MarkException(ex)
		}
		reg.AddMethod(svcName, schema.Method{
			Name:       n,
			ArgType:    argTypes[n],
			ReturnType: retTypes[n],
			Exceptions: excTypes[n],
		}, e.Corpus.Path)
	}
}

// serviceName derives the semantic service name: the metadata literal wins,
// then client-class declaration patterns, then the alias-resolved class name.
func serviceName(e *Entry, src string, reg *schema.Registry) string {
	if m := reServiceClient.FindStringSubmatch(src); m != nil {
		base := m[1]
		if i := strings.LastIndex(base, "."); i >= 0 {
			base = base[i+1:]
		}
		return strings.TrimSuffix(base, "Client")
	}
	if m := reClientClass.FindStringSubmatch(src); m != nil {
		return m[1]
	}

	name := ""
	for _, c := range e.Index.Classes {
		if strings.HasSuffix(c.Name, "Client") {
			name = c.Name
			break
		}
	}
	if name == "" {
		if len(e.Index.Classes) > 0 {
			name = reg.Aliases().Resolve(e.Index.Classes[0].Name)
		} else {
			name = e.Corpus.Stem()
		}
	}

	switch {
	case strings.HasSuffix(name, "ServiceClientImpl"):
		name = strings.TrimSuffix(name, "ClientImpl")
	case strings.HasSuffix(name, "ClientImpl"):
		base := strings.TrimSuffix(name, "ClientImpl")
		if !strings.HasSuffix(base, "Service") {
			base += "Service"
		}
		name = base
	case strings.HasSuffix(name, "ServiceClient"):
		name = strings.TrimSuffix(name, "Client")
	}
	if i := strings.Index(name, "$"); i >= 0 {
		name = name[:i]
	}
	return name
}

// firstHolderField returns the type reference of the first non-static member
// of a holder class.
func firstHolderField(e *Entry, holder *sitter.Node, reg *schema.Registry) string {
	for _, f := range holderFields(e, holder) {
		return typeRef(f.typ, reg)
	}
	return ""
}

// resultHolderSlots splits a result holder into its success slot and fault
// slots. The success slot is the first non-fault member; every fault slot is
// collected in declaration order.
func resultHolderSlots(e *Entry, holder *sitter.Node, reg *schema.Registry) (ret string, excs []string) {
	for _, f := range holderFields(e, holder) {
		name := typeRef(f.typ, reg)
		if strings.HasSuffix(name, "Exception") || reg.IsExceptionName(name) {
			excs = append(excs, name)
			continue
		}
		if ret == "" {
			ret = name
		}
	}
	return ret, excs
}

func holderFields(e *Entry, holder *sitter.Node) []member {
	var out []member
	for _, f := range e.Index.Fields {
		if !within(f.Node, holder) || isStaticField(f.Node, e.Source) {
			continue
		}
		typeNode := f.Node.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		out = append(out, member{name: f.Name, typ: lang.NodeText(typeNode, e.Source)})
	}
	return out
}

func firstParamType(method *sitter.Node, source []byte, reg *schema.Registry) string {
	params := method.ChildByFieldName("parameters")
	if params == nil {
		return ""
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p.Type() != "formal_parameter" {
			continue
		}
		t := p.ChildByFieldName("type")
		if t == nil {
			return ""
		}
		return typeRef(lang.NodeText(t, source), reg)
	}
	return ""
}

func returnType(method *sitter.Node, source []byte, reg *schema.Registry) string {
	t := method.ChildByFieldName("type")
	if t == nil {
		return ""
	}
	raw := lang.NodeText(t, source)
	if strings.TrimSpace(raw) == "void" {
		return "void"
	}
	return typeRef(raw, reg)
}

func isFinalMethod(method *sitter.Node, source []byte) bool {
	mods := lang.ChildOfType(method, "modifiers")
	return mods != nil && strings.Contains(lang.NodeText(mods, source), "final")
}

// typeRef renders a raw Java type as the reference used in method
// signatures: a base type, an entity name, or a container spelling.
func typeRef(raw string, reg *schema.Registry) string {
	t := typenorm.Normalize(raw, reg.Aliases())
	switch t.TType {
	case schema.TStruct, schema.TEnum:
		return t.TypeName
	case schema.TList:
		return "list<" + t.ValType + ">"
	case schema.TSet:
		return "set<" + t.ValType + ">"
	case schema.TMap:
		return "map<" + t.KeyType + "," + t.ValType + ">"
	default:
		return string(t.TType)
	}
}
