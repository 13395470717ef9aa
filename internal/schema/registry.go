package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the single store all extractors write into. Enums, structs and
// services live in separate namespaces, each keyed by canonical name and kept
// in insertion order for the emitter. Writes are synchronized so the pass-2
// extractors may run concurrently; after extraction the registry is treated
// as immutable.
type Registry struct {
	mu sync.Mutex

	aliases *AliasTable

	enums     map[string]*EnumEntity
	enumOrder []string

	structs     map[string]*StructEntity
	structOrder []string

	services     map[string]*ServiceEntity
	serviceOrder []string

	exceptionNames map[string]struct{}

	diags []Diagnostic
}

func NewRegistry(aliases *AliasTable) *Registry {
	if aliases == nil {
		aliases = NewAliasTable()
	}
	return &Registry{
		aliases:        aliases,
		enums:          make(map[string]*EnumEntity),
		structs:        make(map[string]*StructEntity),
		services:       make(map[string]*ServiceEntity),
		exceptionNames: make(map[string]struct{}),
	}
}

// Aliases returns the pass-1 alias table. Read-only during pass 2.
func (r *Registry) Aliases() *AliasTable { return r.aliases }

// Report appends a diagnostic to the audit trail.
func (r *Registry) Report(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, d)
}

// Diagnostics returns a copy of the audit trail.
func (r *Registry) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// PutEnum registers an enum. A second recognition with identical values is
// deduplicated; one with different values is a conflict and the first
// definition wins.
func (r *Registry) PutEnum(e *EnumEntity, entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.enums[e.Name]; ok {
		if enumValuesEqual(existing.Values, e.Values) {
			return
		}
		r.diags = append(r.diags, Diagnostic{
			Kind:   RegistryConflict,
			Entity: e.Name,
			Entry:  entry,
			Detail: fmt.Sprintf("enum redefined with %d values, keeping first definition with %d", len(e.Values), len(existing.Values)),
		})
		return
	}
	r.enums[e.Name] = e
	r.enumOrder = append(r.enumOrder, e.Name)
}

// PutStruct registers a struct under its canonical name. Duplicate
// recognitions with the same field layout collapse into one entity (the
// exception flag is merged upward); an incompatible layout is a conflict and
// the first definition wins.
func (r *Registry) PutStruct(s *StructEntity, entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.structs[s.Name]; ok {
		if FieldsEqual(existing.Fields, s.Fields) {
			if s.IsException() {
				existing.MarkException()
			}
			return
		}
		r.diags = append(r.diags, Diagnostic{
			Kind:   RegistryConflict,
			Entity: s.Name,
			Entry:  entry,
			Detail: fmt.Sprintf("struct redefined with %d fields, keeping first definition with %d", len(s.Fields), len(existing.Fields)),
		})
		return
	}
	r.structs[s.Name] = s
	r.structOrder = append(r.structOrder, s.Name)
	if s.IsException() {
		r.exceptionNames[s.Name] = struct{}{}
	}
}

// AddMethod merges one method into the named service, creating the service
// on first sight. Placeholder slots (empty, binary arg, void/binary return)
// may be upgraded by a later recognition; a conflicting concrete signature
// is reported and the first definition wins.
func (r *Registry) AddMethod(service string, m Method, entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services[service]
	if !ok {
		svc = &ServiceEntity{Name: service}
		r.services[service] = svc
		r.serviceOrder = append(r.serviceOrder, service)
	}

	for i := range svc.Methods {
		existing := &svc.Methods[i]
		if existing.Name != m.Name {
			continue
		}
		conflict := false
		if upgradableArg(existing.ArgType) && !upgradableArg(m.ArgType) {
			existing.ArgType = m.ArgType
		} else if !upgradableArg(m.ArgType) && m.ArgType != existing.ArgType {
			conflict = true
		}
		if upgradableRet(existing.ReturnType) && !upgradableRet(m.ReturnType) {
			existing.ReturnType = m.ReturnType
		} else if !upgradableRet(m.ReturnType) && m.ReturnType != existing.ReturnType {
			conflict = true
		}
		if len(existing.Exceptions) == 0 && len(m.Exceptions) > 0 {
			existing.Exceptions = m.Exceptions
		}
		if conflict {
			r.diags = append(r.diags, Diagnostic{
				Kind:   RegistryConflict,
				Entity: service + "." + m.Name,
				Entry:  entry,
				Detail: fmt.Sprintf("duplicate method with conflicting signature (%s)->%s vs (%s)->%s, keeping first",
					existing.ArgType, existing.ReturnType, m.ArgType, m.ReturnType),
			})
		}
		return
	}

	svc.Methods = append(svc.Methods, m)
}

func upgradableArg(t string) bool { return t == "" || t == "binary" }
func upgradableRet(t string) bool { return t == "" || t == "void" || t == "binary" }

// MarkException flags the named struct as fault-carrying. The name is
// remembered even when the struct has not been extracted (yet, or at all),
// so later recognitions and the emitter see a consistent exception set.
// The upgrade is monotonic: nothing ever clears it.
func (r *Registry) MarkException(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exceptionNames[name] = struct{}{}
	if s, ok := r.structs[name]; ok {
		s.MarkException()
	}
}

// IsExceptionName reports whether name is known to carry fault semantics.
func (r *Registry) IsExceptionName(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exceptionNames[name]; ok {
		return true
	}
	if s, ok := r.structs[name]; ok {
		return s.IsException()
	}
	return false
}

// Enum, Struct and Service look up single entities by canonical name.

func (r *Registry) Enum(name string) (*EnumEntity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enums[name]
	return e, ok
}

func (r *Registry) Struct(name string) (*StructEntity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.structs[name]
	return s, ok
}

func (r *Registry) Service(name string) (*ServiceEntity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[name]
	return s, ok
}

// Enums, Structs and Services return entities in registry insertion order.

func (r *Registry) Enums() []*EnumEntity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*EnumEntity, 0, len(r.enumOrder))
	for _, n := range r.enumOrder {
		out = append(out, r.enums[n])
	}
	return out
}

func (r *Registry) Structs() []*StructEntity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*StructEntity, 0, len(r.structOrder))
	for _, n := range r.structOrder {
		out = append(out, r.structs[n])
	}
	return out
}

func (r *Registry) Services() []*ServiceEntity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ServiceEntity, 0, len(r.serviceOrder))
	for _, n := range r.serviceOrder {
		out = append(out, r.services[n])
	}
	return out
}

// ExceptionNames returns every name known to carry fault semantics, sorted.
func (r *Registry) ExceptionNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make(map[string]struct{}, len(r.exceptionNames))
	for n := range r.exceptionNames {
		names[n] = struct{}{}
	}
	for n, s := range r.structs {
		if s.IsException() {
			names[n] = struct{}{}
		}
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// HasType reports whether name is a registered enum or struct.
func (r *Registry) HasType(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enums[name]; ok {
		return true
	}
	_, ok := r.structs[name]
	return ok
}

func enumValuesEqual(a, b []EnumValue) bool {
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
