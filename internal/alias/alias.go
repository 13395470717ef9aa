// Package alias implements pass 1 of the recovery: a read-only sweep over
// the corpus that correlates obfuscated class names with inferred semantic
// names. The only surviving naming signal in shrunk sources is incidental:
// debug-string literals the original code generator left in toString
// bodies, plus the method-name literals of RPC wrapper classes.
package alias

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/apkscope/thriftex/internal/corpus"
	"github.com/apkscope/thriftex/internal/schema"
	"github.com/apkscope/thriftex/internal/typenorm"
)

var (
	reClassDecl = regexp.MustCompile(`(?m)\b(?:class|enum|interface)\s+(\w+)`)

	// toString bodies: return "Name(..." or new StringBuilder("Name(...").
	reReturnLiteral  = regexp.MustCompile(`return\s+"(\w+)\(`)
	reBuilderLiteral = regexp.MustCompile(`new\s+StringBuilder\s*\(\s*"(\w+)\(`)

	// RPC wrapper holders print as "method_args(" / "method_result(".
	reWrapperLiteral = regexp.MustCompile(`"(\w+)_(args|result)\(`)

	rePublicMember = regexp.MustCompile(`(?m)^\s*public\s+((?:(?:static|final|transient|volatile)\s+)*)([\w$.]+(?:<[^;{}]+>)?(?:\[\])?)\s+(\w+)\s*;`)
)

// maxCandidates caps how many competing names are considered per class, so a
// pathological corpus cannot blow up resolution.
const maxCandidates = 16

type candidate struct {
	name   string
	source schema.AliasSource
}

// Resolve scans every corpus entry once and builds the alias table. It is
// idempotent: the same corpus always yields the same table, including the
// winner of every tie-break. Discarded candidates are returned as
// AmbiguousAlias diagnostics for audit.
func Resolve(entries []corpus.Entry) (*schema.AliasTable, []schema.Diagnostic) {
	candidates := make(map[string][]candidate)
	seen := make(map[string]struct{})

	add := func(obf string, c candidate) {
		if obf == "" || c.name == "" || obf == c.name {
			return
		}
		list := candidates[obf]
		if len(list) >= maxCandidates {
			return
		}
		for _, have := range list {
			if have == c {
				return
			}
		}
		candidates[obf] = append(list, c)
	}

	for _, e := range entries {
		src := string(e.Source)
		obf := ClassName(e)
		if obf != "" {
			seen[obf] = struct{}{}
		}

		// Primary signal: the class's own debug-print literal.
		for _, re := range []*regexp.Regexp{reBuilderLiteral, reReturnLiteral} {
			for _, m := range re.FindAllStringSubmatch(src, -1) {
				name := m[1]
				if isWrapperLiteral(name) {
					continue
				}
				add(obf, candidate{name: name, source: schema.SourceOwnLiteral})
			}
		}

		// Secondary signal: wrapper holders name the RPC method; the types
		// they carry are that method's request and response.
		for _, m := range reWrapperLiteral.FindAllStringSubmatch(src, -1) {
			method, kind := m[1], m[2]
			switch kind {
			case "args":
				add(obf, candidate{name: CamelCase(method) + "Request", source: schema.SourceCallSite})
			case "result":
				if succ := successFieldType(src); succ != "" {
					add(succ, candidate{name: CamelCase(method) + "Response", source: schema.SourceCallSite})
				}
			}
		}
	}

	table := schema.NewAliasTable()
	var diags []schema.Diagnostic

	obfs := make([]string, 0, len(candidates))
	for obf := range candidates {
		obfs = append(obfs, obf)
	}
	sort.Strings(obfs)

	for _, obf := range obfs {
		list := candidates[obf]
		winner := pick(list)
		table.Set(obf, schema.Alias{Name: winner.name, Source: winner.source})
		if len(list) > 1 {
			var losers []string
			for _, c := range list {
				if c != winner {
					losers = append(losers, fmt.Sprintf("%s(%s)", c.name, c.source))
				}
			}
			sort.Strings(losers)
			diags = append(diags, schema.Diagnostic{
				Kind:   schema.AmbiguousAlias,
				Entity: obf,
				Detail: fmt.Sprintf("picked %s(%s), discarded %s", winner.name, winner.source, strings.Join(losers, ", ")),
			})
		}
	}

	for obf := range seen {
		if _, ok := candidates[obf]; !ok {
			table.MarkUnresolved(obf)
		}
	}

	return table, diags
}

// pick applies the tie-break: own debug literal beats call-site inference,
// then the lexically shortest non-empty candidate, then lexical order.
func pick(list []candidate) candidate {
	best := list[0]
	for _, c := range list[1:] {
		switch {
		case c.source < best.source:
			best = c
		case c.source == best.source && len(c.name) < len(best.name):
			best = c
		case c.source == best.source && len(c.name) == len(best.name) && c.name < best.name:
			best = c
		}
	}
	return best
}

// ClassName returns the obfuscated name of the entry's first declared type,
// falling back to the file stem (decompilers name files after classes).
func ClassName(e corpus.Entry) string {
	if m := reClassDecl.FindSubmatch(e.Source); m != nil {
		return string(m[1])
	}
	return e.Stem()
}

// successFieldType finds the declared type of the first public member that
// does not look like a fault slot, i.e. the success slot of a result holder.
func successFieldType(src string) string {
	for _, m := range rePublicMember.FindAllStringSubmatch(src, -1) {
		if strings.Contains(m[1], "static") {
			continue
		}
		tok := typenorm.Simplify(m[2])
		if tok == "" || strings.HasSuffix(tok, "Exception") {
			continue
		}
		if _, primitive := typenorm.Primitive(tok); primitive {
			continue
		}
		return tok
	}
	return ""
}

// CamelCase converts a snake_case or lowerCamel method name to UpperCamel:
// "get_user_info" and "getUserInfo" both become "GetUserInfo".
func CamelCase(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

func isWrapperLiteral(name string) bool {
	return strings.HasSuffix(name, "_args") || strings.HasSuffix(name, "_result")
}
