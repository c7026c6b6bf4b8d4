package world

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"codescout/internal/logging"
)

// Symbol is one top-level declaration extracted from a source file.
type Symbol struct {
	Name      string
	Kind      string // function, method, type, class
	Signature string
	Body      string
	StartLine int
	EndLine   int
}

// SymbolParser extracts symbols with tree-sitter. One parser instance per
// language; tree-sitter parsers hold mutable cursor state, so Parse
// serializes access to them and is safe for concurrent use.
type SymbolParser struct {
	mu       sync.Mutex
	goParser *sitter.Parser
	pyParser *sitter.Parser
	jsParser *sitter.Parser
	tsParser *sitter.Parser
}

// NewSymbolParser creates parsers for the supported languages.
func NewSymbolParser() *SymbolParser {
	logging.WorldDebug("creating symbol parser")
	p := &SymbolParser{
		goParser: sitter.NewParser(),
		pyParser: sitter.NewParser(),
		jsParser: sitter.NewParser(),
		tsParser: sitter.NewParser(),
	}
	p.goParser.SetLanguage(golang.GetLanguage())
	p.pyParser.SetLanguage(python.GetLanguage())
	p.jsParser.SetLanguage(javascript.GetLanguage())
	p.tsParser.SetLanguage(typescript.GetLanguage())
	return p
}

// Close releases parser resources.
func (p *SymbolParser) Close() {
	p.goParser.Close()
	p.pyParser.Close()
	p.jsParser.Close()
	p.tsParser.Close()
}

// Parse extracts the top-level symbols of a file, dispatching on extension.
func (p *SymbolParser) Parse(ctx context.Context, path string, content []byte) ([]Symbol, error) {
	start := time.Now()

	var parser *sitter.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".go":
		parser = p.goParser
	case ".py":
		parser = p.pyParser
	case ".js", ".jsx", ".mjs":
		parser = p.jsParser
	case ".ts", ".tsx":
		parser = p.tsParser
	default:
		return nil, fmt.Errorf("symbol extraction is not supported for %s files", ext)
	}

	// The resulting tree is independent of the parser; only ParseCtx needs
	// the lock.
	p.mu.Lock()
	tree, err := parser.ParseCtx(ctx, nil, content)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	var symbols []Symbol
	switch ext {
	case ".go":
		symbols = extractGoSymbols(tree.RootNode(), content)
	case ".py":
		symbols = extractPythonSymbols(tree.RootNode(), content)
	default:
		symbols = extractJSSymbols(tree.RootNode(), content)
	}

	logging.WorldDebug("parsed %s: %d symbol(s) in %v", filepath.Base(path), len(symbols), time.Since(start))
	return symbols, nil
}

func nodeSymbol(n *sitter.Node, content []byte, name, kind, signature string) Symbol {
	return Symbol{
		Name:      name,
		Kind:      kind,
		Signature: signature,
		Body:      n.Content(content),
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
	}
}

func extractGoSymbols(root *sitter.Node, content []byte) []Symbol {
	var symbols []Symbol
	getText := func(n *sitter.Node) string { return n.Content(content) }

	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				break
			}
			name := getText(nameNode)
			signature := "func " + name
			if params := n.ChildByFieldName("parameters"); params != nil {
				signature += getText(params)
			}
			if result := n.ChildByFieldName("result"); result != nil {
				signature += " " + getText(result)
			}
			symbols = append(symbols, nodeSymbol(n, content, name, "function", signature))
			return

		case "method_declaration":
			nameNode := n.ChildByFieldName("name")
			receiverNode := n.ChildByFieldName("receiver")
			if nameNode == nil || receiverNode == nil {
				break
			}
			name := getText(nameNode)
			signature := fmt.Sprintf("func %s %s", getText(receiverNode), name)
			if params := n.ChildByFieldName("parameters"); params != nil {
				signature += getText(params)
			}
			if result := n.ChildByFieldName("result"); result != nil {
				signature += " " + getText(result)
			}
			symbols = append(symbols, nodeSymbol(n, content, name, "method", signature))
			return

		case "type_declaration":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				spec := n.NamedChild(i)
				if spec.Type() != "type_spec" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				name := getText(nameNode)
				symbols = append(symbols, nodeSymbol(n, content, name, "type", "type "+name))
			}
			return
		}

		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return symbols
}

func extractPythonSymbols(root *sitter.Node, content []byte) []Symbol {
	var symbols []Symbol
	getText := func(n *sitter.Node) string { return n.Content(content) }

	// Only module-level defs and classes; nested definitions come back as
	// part of their parent's body.
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "function_definition":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := getText(nameNode)
			signature := "def " + name
			if params := n.ChildByFieldName("parameters"); params != nil {
				signature += getText(params)
			}
			symbols = append(symbols, nodeSymbol(n, content, name, "function", signature))

		case "class_definition":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := getText(nameNode)
			symbols = append(symbols, nodeSymbol(n, content, name, "class", "class "+name))

		case "decorated_definition":
			inner := n.ChildByFieldName("definition")
			if inner == nil {
				continue
			}
			nameNode := inner.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			name := getText(nameNode)
			kind := "function"
			prefix := "def "
			if inner.Type() == "class_definition" {
				kind = "class"
				prefix = "class "
			}
			symbols = append(symbols, nodeSymbol(n, content, name, kind, prefix+name))
		}
	}
	return symbols
}

func extractJSSymbols(root *sitter.Node, content []byte) []Symbol {
	var symbols []Symbol
	getText := func(n *sitter.Node) string { return n.Content(content) }

	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				return
			}
			name := getText(nameNode)
			signature := "function " + name
			if params := n.ChildByFieldName("parameters"); params != nil {
				signature += getText(params)
			}
			symbols = append(symbols, nodeSymbol(n, content, name, "function", signature))

		case "class_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				return
			}
			name := getText(nameNode)
			symbols = append(symbols, nodeSymbol(n, content, name, "class", "class "+name))

		case "lexical_declaration", "variable_declaration":
			// const f = () => {} style definitions.
			for i := 0; i < int(n.NamedChildCount()); i++ {
				decl := n.NamedChild(i)
				if decl.Type() != "variable_declarator" {
					continue
				}
				nameNode := decl.ChildByFieldName("name")
				valueNode := decl.ChildByFieldName("value")
				if nameNode == nil || valueNode == nil {
					continue
				}
				vt := valueNode.Type()
				if vt != "arrow_function" && vt != "function" && vt != "function_expression" {
					continue
				}
				name := getText(nameNode)
				symbols = append(symbols, nodeSymbol(n, content, name, "function", "const "+name))
			}

		case "export_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				collect(n.NamedChild(i))
			}
		}
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		collect(root.NamedChild(i))
	}
	return symbols
}
