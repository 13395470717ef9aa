// Package extract implements pass 2 of the recovery: classifying each corpus
// entry as an enum, struct or service-wrapper shape and extracting the
// corresponding schema entity into the shared registry.
package extract

import (
	"regexp"

	"github.com/apkscope/thriftex/internal/corpus"
	"github.com/apkscope/thriftex/internal/lang"
)

// Kind is the classification of one corpus entry. Exactly one extractor
// handles each kind, so classification also partitions the corpus into the
// disjoint subsets the extractors operate on.
type Kind int

const (
	Unrecognized Kind = iota
	KindEnum
	KindStruct
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindEnum:
		return "enum"
	case KindStruct:
		return "struct"
	case KindService:
		return "service"
	}
	return "unrecognized"
}

// Entry bundles everything an extractor needs for one corpus entry. The
// tree-sitter nodes in Index are only valid while the tree is open, so an
// Entry never outlives its worker.
type Entry struct {
	Corpus corpus.Entry
	Source []byte
	Index  *lang.Index
}

var (
	reThriftBase     = regexp.MustCompile(`implements\s+org\.apache\.thrift\.[A-Za-z]`)
	reThriftFault    = regexp.MustCompile(`extends\s+org\.apache\.thrift\.i\b`)
	reServiceClient  = regexp.MustCompile(`"([A-Za-z0-9_.]*ServiceClient)"`)
	reClientClass    = regexp.MustCompile(`class\s+(\w+)\$Client\b`)
	reDispatchTag    = regexp.MustCompile(`\bb\(\s*"([A-Za-z0-9_]+)"`)
	reWrapperLiteral = regexp.MustCompile(`"(\w+)_(args|result)\(`)
	reToStringName   = regexp.MustCompile(`(?:return\s+"|StringBuilder\s*\(\s*")(\w+(?:Response|Request))\(`)
)

// Classify decides which extractor owns the entry. The predicates are
// checked in a fixed order so every entry lands in exactly one bucket:
// enumerations first (their shape is unambiguous), then service wrappers
// (which also contain struct-like holders), then data records.
func Classify(e *Entry) Kind {
	if looksLikeEnum(e) {
		return KindEnum
	}
	if looksLikeService(e) {
		return KindService
	}
	if looksLikeStruct(e) {
		return KindStruct
	}
	return Unrecognized
}

// looksLikeEnum: a declared enum with at least one member carrying an
// integer argument.
func looksLikeEnum(e *Entry) bool {
	return len(e.Index.Enums) > 0 && len(e.Index.EnumConstants) > 0
}

// looksLikeService: dispatch tags, client-class declarations, service
// metadata literals or RPC wrapper holders.
func looksLikeService(e *Entry) bool {
	if reServiceClient.Match(e.Source) || reClientClass.Match(e.Source) {
		return true
	}
	if reWrapperLiteral.Match(e.Source) {
		return true
	}
	if reDispatchTag.Match(e.Source) && len(e.Index.Methods) > 0 {
		return true
	}
	return false
}

// looksLikeStruct: implements a Thrift marker interface, carries
// field-descriptor constants, or debug-prints a Request/Response name.
func looksLikeStruct(e *Entry) bool {
	if len(e.Index.Classes) == 0 {
		return false
	}
	if reThriftBase.Match(e.Source) || reThriftFault.Match(e.Source) {
		return true
	}
	if reToStringName.Match(e.Source) {
		return true
	}
	return hasDescriptorConstants(e)
}

// hasDescriptorConstants reports whether any static field is initialized
// with a (name, (byte) type, id) descriptor triple.
func hasDescriptorConstants(e *Entry) bool {
	for _, f := range e.Index.Fields {
		if _, ok := descriptorFromField(f.Node, e.Source); ok {
			return true
		}
	}
	return false
}
