package schema

import "sort"

// AliasSource says where an inferred semantic name came from. Lower values
// outrank higher ones when candidates compete.
type AliasSource int

const (
	// SourceOwnLiteral: the literal embedded in the class's own
	// debug-printing (toString) code.
	SourceOwnLiteral AliasSource = iota
	// SourceCallSite: inferred from an external call site, e.g. a wrapper
	// whose method name suggests the class is that method's response.
	SourceCallSite
)

func (s AliasSource) String() string {
	if s == SourceOwnLiteral {
		return "own-literal"
	}
	return "call-site"
}

// Alias is a resolved semantic name for one obfuscated class.
type Alias struct {
	Name   string
	Source AliasSource
}

// AliasTable maps obfuscated class names to inferred semantic names.
// Built once in pass 1, read-only afterwards. Names with no candidate map to
// themselves; the unresolved fact is kept for diagnostics.
type AliasTable struct {
	entries    map[string]Alias
	unresolved map[string]struct{}
}

func NewAliasTable() *AliasTable {
	return &AliasTable{
		entries:    make(map[string]Alias),
		unresolved: make(map[string]struct{}),
	}
}

// Set records the winning alias for an obfuscated name.
func (t *AliasTable) Set(obf string, a Alias) {
	t.entries[obf] = a
	delete(t.unresolved, obf)
}

// MarkUnresolved records that obf was scanned but produced no candidate.
func (t *AliasTable) MarkUnresolved(obf string) {
	if _, ok := t.entries[obf]; !ok {
		t.unresolved[obf] = struct{}{}
	}
}

// Resolve returns the semantic name for obf, or obf itself when unresolved.
func (t *AliasTable) Resolve(obf string) string {
	if a, ok := t.entries[obf]; ok {
		return a.Name
	}
	return obf
}

// Lookup returns the alias entry for obf, if any.
func (t *AliasTable) Lookup(obf string) (Alias, bool) {
	a, ok := t.entries[obf]
	return a, ok
}

// IsUnresolved reports whether obf was scanned and left unresolved.
func (t *AliasTable) IsUnresolved(obf string) bool {
	_, ok := t.unresolved[obf]
	return ok
}

// Unresolved returns all unresolved obfuscated names, sorted.
func (t *AliasTable) Unresolved() []string {
	names := make([]string, 0, len(t.unresolved))
	for n := range t.unresolved {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of resolved aliases.
func (t *AliasTable) Len() int { return len(t.entries) }

// AliasEntry pairs an obfuscated name with its resolved alias.
type AliasEntry struct {
	Obf   string
	Alias Alias
}

// All returns every resolved alias sorted by obfuscated name.
func (t *AliasTable) All() []AliasEntry {
	out := make([]AliasEntry, 0, len(t.entries))
	for obf, a := range t.entries {
		out = append(out, AliasEntry{Obf: obf, Alias: a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Obf < out[j].Obf })
	return out
}
