package emit

import (
	"encoding/json"

	"github.com/apkscope/thriftex/internal/link"
	"github.com/apkscope/thriftex/internal/schema"
)

// Meta carries run-level facts the registry does not know about.
type Meta struct {
	Root         string `json:"root"`
	Output       string `json:"output"`
	Entries      int    `json:"entries"`
	Unrecognized int    `json:"unrecognized"`
}

// Report is the JSON capture summary written next to the IDL output. It is
// the audit trail for a recovery run: what was found, what stayed
// incomplete, and every diagnostic raised along the way.
type Report struct {
	Meta Meta `json:"meta"`

	Counts struct {
		Enums      int `json:"enums"`
		Structs    int `json:"structs"`
		Services   int `json:"services"`
		Methods    int `json:"methods"`
		Aliases    int `json:"aliases"`
		Exceptions int `json:"exceptions"`
		References int `json:"references"`
	} `json:"counts"`

	UnresolvedAliases []string           `json:"unresolved_aliases,omitempty"`
	IncompleteMethods []IncompleteMethod `json:"incomplete_methods,omitempty"`
	Exceptions        []string           `json:"exceptions,omitempty"`

	Diagnostics []schema.Diagnostic `json:"diagnostics,omitempty"`
}

// IncompleteMethod names a method whose argument or return slot never
// upgraded past a placeholder.
type IncompleteMethod struct {
	Service    string `json:"service"`
	Method     string `json:"method"`
	ArgType    string `json:"arg_type"`
	ReturnType string `json:"return_type"`
}

// Build assembles the capture report for one run.
func Build(reg *schema.Registry, refs []link.Edge, meta Meta) Report {
	var rep Report
	rep.Meta = meta

	rep.Counts.Enums = len(reg.Enums())
	rep.Counts.Structs = len(reg.Structs())
	rep.Counts.Services = len(reg.Services())
	rep.Counts.Aliases = reg.Aliases().Len()
	rep.Counts.References = len(refs)

	rep.Exceptions = reg.ExceptionNames()
	rep.Counts.Exceptions = len(rep.Exceptions)

	for _, svc := range reg.Services() {
		rep.Counts.Methods += len(svc.Methods)
		for _, m := range svc.Methods {
			if m.ArgType == "binary" || m.ReturnType == "void" || m.ReturnType == "binary" {
				rep.IncompleteMethods = append(rep.IncompleteMethods, IncompleteMethod{
					Service:    svc.Name,
					Method:     m.Name,
					ArgType:    m.ArgType,
					ReturnType: m.ReturnType,
				})
			}
		}
	}

	rep.UnresolvedAliases = reg.Aliases().Unresolved()
	rep.Diagnostics = reg.Diagnostics()
	return rep
}

// Marshal renders the report as indented JSON.
func (r Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
