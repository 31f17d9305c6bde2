// Package symbols extracts a language-independent symbol list from a single
// source file using tree-sitter queries.
package symbols

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/dullfig/claude-rlm/internal/models"
)

// ExtractedSymbol is a symbol as seen by the extractor, before the store
// assigns it an id.
type ExtractedSymbol struct {
	Name       string
	Kind       models.SymbolKind
	StartLine  int64
	EndLine    int64
	ParentName string
	Signature  string
	DocComment string
}

// ExtractedRef is a call/type-reference edge discovered in the same pass.
type ExtractedRef struct {
	FromSymbolName string
	ToName         string
	Line           int64
}

// Result is one file's extraction output.
type Result struct {
	Symbols []ExtractedSymbol
	Refs    []ExtractedRef
}

// captureKind maps a tree-sitter query's capture name to the symbol kind
// it denotes, carried alongside the query string itself rather than
// inferred by re-scanning the query text; runSymbolQuery resolves each name
// to its capture index once the query is compiled.
type captureKind struct {
	capture string
	kind    models.SymbolKind
}

type langSpec struct {
	language  *sitter.Language
	query     string
	kinds     []captureKind
	refQuery  string // optional: captures "@call"/"@type_ref" name nodes
	refKind   string // "call" | "type_ref", informational only
}

var langByExt = map[string]langSpec{
	".go":   goSpec,
	".py":   pythonSpec,
	".js":   jsSpec,
	".jsx":  jsSpec,
	".ts":   tsSpec,
	".tsx":  tsSpec,
}

// SupportsExt reports whether path's extension has a registered extractor.
func SupportsExt(path string) bool {
	_, ok := langByExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract parses content under the language inferred from path's extension
// and returns its symbols and reference edges. Returns an error (wrapped by
// the caller as IndexError) for unsupported extensions or parse failures;
// never panics — tree-sitter parse errors surface as partial trees, which
// this function still walks.
func Extract(ctx context.Context, path string, content []byte) (_ Result, err error) {
	spec, ok := langByExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return Result{}, fmt.Errorf("no symbol extractor registered for %s", path)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("symbol extraction panic for %s: %v", path, r)
		}
	}()

	parser := sitter.NewParser()
	parser.SetLanguage(spec.language)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	symbols, err := runSymbolQuery(spec, tree.RootNode(), content)
	if err != nil {
		return Result{}, err
	}

	var refs []ExtractedRef
	if spec.refQuery != "" {
		refs, err = runRefQuery(spec, tree.RootNode(), content, symbols)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{Symbols: symbols, Refs: refs}, nil
}

func runSymbolQuery(spec langSpec, root *sitter.Node, content []byte) ([]ExtractedSymbol, error) {
	q, err := sitter.NewQuery([]byte(spec.query), spec.language)
	if err != nil {
		return nil, fmt.Errorf("compile symbol query: %w", err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, root)

	nameByKind := make(map[uint32]models.SymbolKind, len(spec.kinds))
	for _, ck := range spec.kinds {
		if idx, ok := captureIndex(q, ck.capture); ok {
			nameByKind[idx] = ck.kind
		}
	}

	var out []ExtractedSymbol
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		var sym ExtractedSymbol
		haveKind := false
		for _, c := range match.Captures {
			if kind, ok := nameByKind[c.Index]; ok {
				sym.Kind = kind
				haveKind = true
				sym.Name = nodeText(c.Node, content)
				sym.StartLine = int64(c.Node.StartPoint().Row) + 1
				sym.EndLine = int64(c.Node.EndPoint().Row) + 1
				if parent := enclosingDefinition(c.Node); parent != nil {
					sym.StartLine = int64(parent.StartPoint().Row) + 1
					sym.EndLine = int64(parent.EndPoint().Row) + 1
				}
			}
		}
		if haveKind && sym.Name != "" {
			out = append(out, sym)
		}
	}
	return out, nil
}

func runRefQuery(spec langSpec, root *sitter.Node, content []byte, symbols []ExtractedSymbol) ([]ExtractedRef, error) {
	q, err := sitter.NewQuery([]byte(spec.refQuery), spec.language)
	if err != nil {
		return nil, fmt.Errorf("compile reference query: %w", err)
	}
	defer q.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, root)

	var out []ExtractedRef
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			toName := nodeText(c.Node, content)
			line := int64(c.Node.StartPoint().Row) + 1
			from := enclosingSymbolName(c.Node, symbols, content)
			if from == "" {
				continue
			}
			out = append(out, ExtractedRef{FromSymbolName: from, ToName: toName, Line: line})
		}
	}
	return out, nil
}

// enclosingSymbolName finds the nearest preceding symbol whose line range
// contains node's line, a cheap stand-in for true scope resolution.
func enclosingSymbolName(node *sitter.Node, symbols []ExtractedSymbol, _ []byte) string {
	line := int64(node.StartPoint().Row) + 1
	best := ""
	var bestStart int64 = -1
	for _, s := range symbols {
		if s.StartLine <= line && line <= s.EndLine && s.StartLine > bestStart {
			best = s.Name
			bestStart = s.StartLine
		}
	}
	return best
}

// enclosingDefinition walks up from a name node to the nearest ancestor
// whose type looks like a definition/declaration, so a symbol's line range
// covers its full body rather than just its identifier token.
func enclosingDefinition(node *sitter.Node) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		t := p.Type()
		if strings.Contains(t, "declaration") || strings.Contains(t, "definition") ||
			strings.HasSuffix(t, "_spec") || strings.HasSuffix(t, "_statement") {
			return p
		}
	}
	return nil
}

func nodeText(n *sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}

func captureIndex(q *sitter.Query, name string) (uint32, bool) {
	for i := uint32(0); i < uint32(q.CaptureCount()); i++ {
		if q.CaptureNameForId(i) == name {
			return i, true
		}
	}
	return 0, false
}

var goSpec = langSpec{
	language: golang.GetLanguage(),
	query: `
		(function_declaration name: (identifier) @function)
		(method_declaration name: (field_identifier) @function)
		(type_spec name: (type_identifier) @struct type: (struct_type))
		(type_spec name: (type_identifier) @interface type: (interface_type))
		(type_spec name: (type_identifier) @type_alias type: (type_identifier))
		(const_spec name: (identifier) @const)
		(import_spec path: (interpreted_string_literal) @import)
	`,
	kinds: []captureKind{
		{"function", models.SymbolKindFunction},
		{"struct", models.SymbolKindStruct},
		{"interface", models.SymbolKindInterface},
		{"type_alias", models.SymbolKindTypeAlias},
		{"const", models.SymbolKindConst},
		{"import", models.SymbolKindImport},
	},
	refQuery: `(call_expression function: (identifier) @ref_call)`,
	refKind:  "call",
}

var pythonSpec = langSpec{
	language: python.GetLanguage(),
	query: `
		(function_definition name: (identifier) @function)
		(class_definition name: (identifier) @class)
		(import_statement name: (dotted_name) @import)
	`,
	kinds: []captureKind{
		{"function", models.SymbolKindFunction},
		{"class", models.SymbolKindClass},
		{"import", models.SymbolKindImport},
	},
	refQuery: `(call function: (identifier) @ref_call)`,
	refKind:  "call",
}

var jsSpec = langSpec{
	language: javascript.GetLanguage(),
	query: `
		(function_declaration name: (identifier) @function)
		(class_declaration name: (identifier) @class)
		(variable_declarator name: (identifier) @variable value: (arrow_function))
	`,
	kinds: []captureKind{
		{"function", models.SymbolKindFunction},
		{"class", models.SymbolKindClass},
		{"variable", models.SymbolKindFunction},
	},
	refQuery: `(call_expression function: (identifier) @ref_call)`,
	refKind:  "call",
}

var tsSpec = langSpec{
	language: typescript.GetLanguage(),
	query: `
		(function_declaration name: (identifier) @function)
		(class_declaration name: (type_identifier) @class)
		(interface_declaration name: (type_identifier) @interface)
		(type_alias_declaration name: (type_identifier) @type_alias)
	`,
	kinds: []captureKind{
		{"function", models.SymbolKindFunction},
		{"class", models.SymbolKindClass},
		{"interface", models.SymbolKindInterface},
		{"type_alias", models.SymbolKindTypeAlias},
	},
	refQuery: `(call_expression function: (identifier) @ref_call)`,
	refKind:  "call",
}
