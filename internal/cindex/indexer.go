// Package cindex extracts per-file facts from C sources using tree-sitter:
// function definitions, call sites, and include directives. These facts feed
// the generation context and the static validator.
package cindex

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"go.uber.org/zap"
)

// Indexer parses C files and derives FileAnalysis facts.
// The underlying tree-sitter parser is not safe for concurrent use; Indexer
// serializes access internally, or give each goroutine its own Indexer.
type Indexer struct {
	mu     sync.Mutex
	parser *sitter.Parser
	logger *zap.Logger
}

// NewIndexer creates an Indexer with the C grammar loaded.
func NewIndexer(logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := sitter.NewParser()
	p.SetLanguage(c.GetLanguage())
	return &Indexer{parser: p, logger: logger}
}

// Close releases the parser.
func (ix *Indexer) Close() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.parser.Close()
}

// ListSourceFiles returns all .c files under root, sorted for a deterministic
// processing and indexing order.
func ListSourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".c") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing C sources under %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// ExtractFunctions returns the function definitions in file, in source order.
func (ix *Indexer) ExtractFunctions(file string) ([]CFunction, error) {
	a, err := ix.AnalyzeFileDependencies(file)
	if err != nil {
		return nil, err
	}
	return a.Functions, nil
}

// ExtractIncludes returns the header names included by file, in source order.
func (ix *Indexer) ExtractIncludes(file string) ([]string, error) {
	a, err := ix.AnalyzeFileDependencies(file)
	if err != nil {
		return nil, err
	}
	return a.Includes, nil
}

// AnalyzeFileDependencies parses file and returns its full fact set.
func (ix *Indexer) AnalyzeFileDependencies(file string) (FileAnalysis, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return FileAnalysis{}, fmt.Errorf("reading %s: %w", file, err)
	}
	return ix.Analyze(file, source)
}

// Analyze derives facts from in-memory source. The file path is recorded
// verbatim in the result.
func (ix *Indexer) Analyze(file string, source []byte) (FileAnalysis, error) {
	ix.mu.Lock()
	tree, err := ix.parser.ParseCtx(context.Background(), nil, source)
	ix.mu.Unlock()
	if err != nil {
		ix.logger.Warn("tree-sitter parse failed, using regex fallback",
			zap.String("file", file), zap.Error(err))
		return analyzeWithRegex(file, source), nil
	}
	defer tree.Close()

	a := FileAnalysis{
		FilePath:      file,
		CalledSymbols: make(map[string]struct{}),
	}
	defined := make(map[string]struct{})
	called := make(map[string]struct{})

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition":
			if fn, ok := extractFunction(n, source); ok {
				a.Functions = append(a.Functions, fn)
				defined[fn.Name] = struct{}{}
			}
		case "call_expression":
			if fnNode := n.ChildByFieldName("function"); fnNode != nil && fnNode.Type() == "identifier" {
				called[fnNode.Content(source)] = struct{}{}
			}
		case "preproc_include":
			if path := n.ChildByFieldName("path"); path != nil {
				if header := trimIncludePath(path.Content(source)); header != "" {
					a.Includes = append(a.Includes, header)
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())

	for name := range called {
		if _, ok := defined[name]; !ok {
			a.CalledSymbols[name] = struct{}{}
		}
	}
	return a, nil
}

// extractFunction pulls name, return type and a collapsed one-line signature
// out of a function_definition node.
func extractFunction(n *sitter.Node, source []byte) (CFunction, bool) {
	decl := n.ChildByFieldName("declarator")
	if decl == nil {
		return CFunction{}, false
	}

	// Everything before the declarator is the return type, qualifiers and
	// all: `const char`, `static unsigned int`.
	returnType := collapseWhitespace(string(source[n.StartByte():decl.StartByte()]))
	if returnType == "" {
		return CFunction{}, false
	}

	// Pointer return types nest the function_declarator inside one or more
	// pointer_declarator nodes: `char *name(...)`.
	for decl != nil && decl.Type() == "pointer_declarator" {
		returnType += "*"
		decl = decl.ChildByFieldName("declarator")
	}
	if decl == nil || decl.Type() != "function_declarator" {
		return CFunction{}, false
	}
	nameNode := decl.ChildByFieldName("declarator")
	if nameNode == nil || nameNode.Type() != "identifier" {
		return CFunction{}, false
	}

	return CFunction{
		Name:       nameNode.Content(source),
		ReturnType: returnType,
		Signature:  returnType + " " + collapseWhitespace(decl.Content(source)),
	}, true
}

// trimIncludePath strips the quotes or angle brackets around an include path.
func trimIncludePath(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		switch {
		case raw[0] == '"' && raw[len(raw)-1] == '"':
			return raw[1 : len(raw)-1]
		case raw[0] == '<' && raw[len(raw)-1] == '>':
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

var whitespaceReplacer = strings.NewReplacer("\n", " ", "\t", " ")

func collapseWhitespace(s string) string {
	s = whitespaceReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
