// Package link runs after the pass-2 sweep completes: it binds deferred
// type-name references against the now-full registry, validates schema
// closure, and builds the cross-entity reference graph. Deferring this work
// keeps extraction order-independent: a field may name a struct that is
// extracted later, or never.
package link

import (
	"fmt"
	"sort"
	"strings"

	"github.com/apkscope/thriftex/internal/alias"
	"github.com/apkscope/thriftex/internal/schema"
)

// Edge records that one schema entity references another: a field typed by a
// struct, a method returning a response, a throws slot naming a fault type.
type Edge struct {
	Source string
	Target string
	Slots  []string
}

// Finalize links and validates the registry, returning the reference graph.
// Every struct/enum reference that resolves to no registry entity is
// reported as UnresolvedReference and kept as a pass-through name, never
// dropped and never fabricated.
func Finalize(reg *schema.Registry) []Edge {
	inferMethodTypes(reg)
	reclassifyEnumRefs(reg)
	validateClosure(reg)
	return buildEdges(reg)
}

// inferMethodTypes fills method slots that needed the full struct registry:
// a missing or request-shaped return type falls back to the conventional
// Method -> MethodResponse pairing when such a struct was recovered.
func inferMethodTypes(reg *schema.Registry) {
	for _, svc := range reg.Services() {
		for i := range svc.Methods {
			m := &svc.Methods[i]
			if m.ReturnType == "" || strings.HasSuffix(m.ReturnType, "Request") {
				expected := alias.CamelCase(m.Name) + "Response"
				if _, ok := reg.Struct(expected); ok {
					m.ReturnType = expected
				} else if m.ReturnType == "" {
					m.ReturnType = "void"
				}
			}
			if m.ArgType == "" {
				m.ArgType = "binary"
			}
		}
	}
}

// reclassifyEnumRefs upgrades struct-category references whose target turned
// out to be an enum. Extraction defaults unresolved class references to the
// struct category; only the full registry can tell the kinds apart.
func reclassifyEnumRefs(reg *schema.Registry) {
	for _, st := range reg.Structs() {
		for i := range st.Fields {
			f := &st.Fields[i]
			if f.Type != schema.TStruct || f.TypeName == "" {
				continue
			}
			if _, ok := reg.Enum(f.TypeName); ok {
				f.Type = schema.TEnum
			}
		}
	}
}

// validateClosure checks that every type reference lands on a registry
// entity or a base type, reporting pass-throughs for the audit trail.
func validateClosure(reg *schema.Registry) {
	for _, st := range reg.Structs() {
		for _, f := range st.Fields {
			if f.Type == schema.TStruct || f.Type == schema.TEnum {
				reportUnresolved(reg, st.Name, f.Name, f.TypeName)
			}
			checkElement(reg, st.Name, f.Name, f.KeyType)
			checkElement(reg, st.Name, f.Name, f.ValType)
		}
	}
	for _, svc := range reg.Services() {
		for _, m := range svc.Methods {
			slot := svc.Name + "." + m.Name
			checkElement(reg, slot, "arg", m.ArgType)
			if m.ReturnType != "void" {
				checkElement(reg, slot, "return", m.ReturnType)
			}
			for _, ex := range m.Exceptions {
				checkElement(reg, slot, "throws", ex)
			}
		}
	}
}

func checkElement(reg *schema.Registry, entity, slot, name string) {
	if name == "" || schema.IsBaseType(name) || strings.Contains(name, "<") {
		return
	}
	reportUnresolved(reg, entity, slot, name)
}

func reportUnresolved(reg *schema.Registry, entity, slot, name string) {
	if name == "" {
		reg.Report(schema.Diagnostic{
			Kind:   schema.UnresolvedReference,
			Entity: entity,
			Detail: fmt.Sprintf("slot %q has an empty type reference", slot),
		})
		return
	}
	if reg.HasType(name) {
		return
	}
	reg.Report(schema.Diagnostic{
		Kind:   schema.UnresolvedReference,
		Entity: entity,
		Detail: fmt.Sprintf("slot %q references %q, which is not in the registry (kept as pass-through)", slot, name),
	})
}

// buildEdges assembles the deduplicated, sorted reference graph.
func buildEdges(reg *schema.Registry) []Edge {
	type edgeKey struct{ src, tgt string }
	slots := make(map[edgeKey][]string)

	add := func(src, tgt, slot string) {
		if tgt == "" || schema.IsBaseType(tgt) || tgt == "void" || strings.Contains(tgt, "<") {
			return
		}
		key := edgeKey{src, tgt}
		if !contains(slots[key], slot) {
			slots[key] = append(slots[key], slot)
		}
	}

	for _, st := range reg.Structs() {
		for _, f := range st.Fields {
			if f.TypeName != "" {
				add(st.Name, f.TypeName, f.Name)
			}
			add(st.Name, f.KeyType, f.Name)
			add(st.Name, f.ValType, f.Name)
		}
	}
	for _, svc := range reg.Services() {
		for _, m := range svc.Methods {
			add(svc.Name, m.ArgType, m.Name)
			add(svc.Name, m.ReturnType, m.Name)
			for _, ex := range m.Exceptions {
				add(svc.Name, ex, m.Name)
			}
		}
	}

	edges := make([]Edge, 0, len(slots))
	for key, names := range slots {
		edges = append(edges, Edge{Source: key.src, Target: key.tgt, Slots: names})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
