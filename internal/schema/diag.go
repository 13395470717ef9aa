package schema

import "fmt"

// DiagKind classifies a recovery diagnostic. None of these abort the run;
// RegistryConflict aborts only the entity it names.
type DiagKind string

const (
	// AmbiguousAlias: several candidate names competed for one obfuscated
	// class and a tie-break picked the winner.
	AmbiguousAlias DiagKind = "ambiguous-alias"
	// UnresolvedReference: a type reference maps to no registry entity or
	// base type and was kept as an obfuscated pass-through or placeholder.
	UnresolvedReference DiagKind = "unresolved-reference"
	// StructuralMismatch: a corpus entry only partially matched a shape
	// heuristic and was recovered best-effort.
	StructuralMismatch DiagKind = "structural-mismatch"
	// RegistryConflict: two entries claimed the same canonical name with
	// incompatible contents; the later claim was skipped.
	RegistryConflict DiagKind = "registry-conflict"
)

// Diagnostic is one entry of the recovery audit trail.
type Diagnostic struct {
	Kind   DiagKind `json:"kind"`
	Entity string   `json:"entity,omitempty"`
	Entry  string   `json:"entry,omitempty"`
	Detail string   `json:"detail"`
}

func (d Diagnostic) String() string {
	if d.Entity != "" {
		return fmt.Sprintf("%s: %s: %s", d.Kind, d.Entity, d.Detail)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Detail)
}
