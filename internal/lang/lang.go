// Package lang wraps tree-sitter Java support: parser construction, the
// embedded tag query, and node helpers shared by the extractors.
package lang

import (
	"context"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

//go:embed queries/java.scm
var queryFS embed.FS

var whitespaceRe = regexp.MustCompile(`\s+`)

var (
	queryOnce sync.Once
	query     *sitter.Query
	queryErr  error
)

// NewParser creates a fresh Java parser. Each goroutine must use its own
// parser (not thread-safe).
func NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return p
}

// TagQuery returns the compiled declaration query (safe to share across
// goroutines).
func TagQuery() (*sitter.Query, error) {
	queryOnce.Do(func() {
		data, err := queryFS.ReadFile("queries/java.scm")
		if err != nil {
			queryErr = fmt.Errorf("reading query file: %w", err)
			return
		}
		q, err := sitter.NewQuery(data, java.GetLanguage())
		if err != nil {
			queryErr = fmt.Errorf("compiling query: %w", err)
			return
		}
		query = q
	})
	return query, queryErr
}

// Parse parses source and returns the tree. The caller owns the tree and
// must Close it.
func Parse(parser *sitter.Parser, source []byte) (*sitter.Tree, error) {
	return parser.ParseCtx(context.Background(), nil, source)
}

// Decl is one named declaration found by the tag query.
type Decl struct {
	Name string
	Node *sitter.Node
}

// Index collects the declarations of one parsed source file. Nodes stay
// valid only while the owning tree is open.
type Index struct {
	Classes       []Decl // class_declaration
	Enums         []Decl // enum_declaration
	EnumConstants []Decl // enum_constant, in source order
	Fields        []Decl // field_declaration, Name is the declarator name
	Methods       []Decl // method_declaration
}

var captureMap = map[string]func(*Index, Decl){
	"definition.class":         func(ix *Index, d Decl) { ix.Classes = append(ix.Classes, d) },
	"definition.enum":          func(ix *Index, d Decl) { ix.Enums = append(ix.Enums, d) },
	"definition.enum_constant": func(ix *Index, d Decl) { ix.EnumConstants = append(ix.EnumConstants, d) },
	"definition.field":         func(ix *Index, d Decl) { ix.Fields = append(ix.Fields, d) },
	"definition.method":        func(ix *Index, d Decl) { ix.Methods = append(ix.Methods, d) },
}

// BuildIndex runs the tag query over a parsed tree and buckets the matches.
func BuildIndex(q *sitter.Query, tree *sitter.Tree, source []byte) *Index {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	ix := &Index{}
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var nameNode *sitter.Node
		var captureName string
		var defNode *sitter.Node

		for _, c := range match.Captures {
			cname := q.CaptureNameForId(c.Index)
			if cname == "name" {
				nameNode = c.Node
			} else if _, known := captureMap[cname]; known {
				captureName = cname
				defNode = c.Node
			}
		}
		if nameNode == nil || captureName == "" || defNode == nil {
			continue
		}
		captureMap[captureName](ix, Decl{Name: NodeText(nameNode, source), Node: defNode})
	}
	return ix
}

// NodeText returns the source text of a node.
func NodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// StringLiteral returns the contents of a string_literal node without the
// surrounding quotes.
func StringLiteral(node *sitter.Node, source []byte) string {
	s := NodeText(node, source)
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// ChildOfType returns the first direct child of the given node type.
func ChildOfType(node *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == typ {
			return child
		}
	}
	return nil
}

// DescendantsOfType walks the subtree and returns all nodes of the given
// type in source order.
func DescendantsOfType(node *sitter.Node, typ string) []*sitter.Node {
	var out []*sitter.Node
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == typ {
			out = append(out, n)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return out
}
