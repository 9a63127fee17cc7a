package cindex

import (
	"regexp"
	"strings"
)

// Regex fallback for sources tree-sitter cannot parse (heavy preprocessor
// abuse, truncated files). Coarser than the AST path but keeps a broken file
// from taking the whole batch down.
var (
	fallbackFuncRe    = regexp.MustCompile(`(?m)^\s*(?:static\s+)?([A-Za-z_][A-Za-z0-9_]*(?:\s+[A-Za-z_][A-Za-z0-9_]*)*\s*\**)\s*([A-Za-z_][A-Za-z0-9_]*)\s*\(([^;{)]*)\)\s*\{`)
	fallbackCallRe    = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	fallbackIncludeRe = regexp.MustCompile(`(?m)^\s*#\s*include\s+["<]([^">]+)[">]`)
)

// cKeywords are identifiers the call regex matches that are never calls.
var cKeywords = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {}, "return": {},
	"sizeof": {}, "do": {}, "else": {}, "case": {}, "defined": {},
}

func analyzeWithRegex(file string, source []byte) FileAnalysis {
	text := string(source)
	a := FileAnalysis{
		FilePath:      file,
		CalledSymbols: make(map[string]struct{}),
	}

	defined := make(map[string]struct{})
	for _, m := range fallbackFuncRe.FindAllStringSubmatch(text, -1) {
		returnType := collapseWhitespace(m[1])
		name := m[2]
		a.Functions = append(a.Functions, CFunction{
			Name:       name,
			ReturnType: strings.ReplaceAll(returnType, " *", "*"),
			Signature:  collapseWhitespace(m[0][:len(m[0])-1]),
		})
		defined[name] = struct{}{}
	}

	for _, m := range fallbackCallRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, keyword := cKeywords[name]; keyword {
			continue
		}
		if _, own := defined[name]; own {
			continue
		}
		a.CalledSymbols[name] = struct{}{}
	}

	for _, m := range fallbackIncludeRe.FindAllStringSubmatch(text, -1) {
		a.Includes = append(a.Includes, m[1])
	}
	return a
}
