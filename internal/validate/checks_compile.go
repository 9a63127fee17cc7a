package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Compilation-safety checks: anything here means the candidate cannot be
// expected to compile as a standalone Unity test program.

var (
	frameworkIncludeRe = regexp.MustCompile(`#\s*include\s+"unity\.h"`)
	funcDefRe          = regexp.MustCompile(`(?m)^[A-Za-z_][\w\s\*]*?\b([A-Za-z_]\w*)\s*\([^;{)]*\)\s*\{`)
	mainDefRe          = regexp.MustCompile(`(?m)^\s*int\s+main\s*\(`)
	mainInvokeRe       = regexp.MustCompile(`(?m)^[^\n]*[=\s(]main\s*\(\s*\)`)
	externMainDeclRe   = regexp.MustCompile(`extern\s+int\s+main\s*\(\s*void\s*\)\s*;`)
	stubDefRe          = regexp.MustCompile(`(?m)^([A-Za-z_][\w\s\*]*?)\b([A-Za-z_]\w*)\s*\([^;{)]*\)\s*\{`)
)

var cDeclKeywords = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {}, "return": {}, "sizeof": {},
}

func registerCompilationChecks(r *Registry) {
	r.Register(Check{"framework-include", checkFrameworkInclude})
	r.Register(Check{"formatting-markers", checkFormattingMarkers})
	r.Register(Check{"duplicate-definitions", checkDuplicateDefinitions})
	r.Register(Check{"stub-return-types", checkStubReturnTypes})
	r.Register(Check{"entry-point", checkEntryPoint})
}

func checkFrameworkInclude(in Input) Finding {
	if !frameworkIncludeRe.MatchString(in.Test) {
		return buildIssue(`missing required #include "unity.h"`)
	}
	return Finding{}
}

func checkFormattingMarkers(in Input) Finding {
	if strings.Contains(in.Test, "```") {
		return buildIssue("leftover markdown code-fence markers in output")
	}
	return Finding{}
}

func checkDuplicateDefinitions(in Input) Finding {
	seen := make(map[string]struct{})
	var f Finding
	for _, m := range funcDefRe.FindAllStringSubmatch(in.Test, -1) {
		name := m[1]
		if _, kw := cDeclKeywords[name]; kw {
			continue
		}
		if _, dup := seen[name]; dup {
			f.Issues = append(f.Issues,
				fmt.Sprintf("function %q defined more than once", name))
			f.BreaksBuild = true
		}
		seen[name] = struct{}{}
	}
	return f
}

// checkStubReturnTypes compares any redefinition of a subject-source
// function against the source's own return type. A stub that changes the
// return type will not link against callers compiled from the header.
func checkStubReturnTypes(in Input) Finding {
	if in.Analysis == nil {
		return Finding{}
	}
	var f Finding
	for _, m := range stubDefRe.FindAllStringSubmatch(in.Test, -1) {
		retType := collapseSpaces(strings.TrimSpace(m[1]))
		name := m[2]
		src, ok := in.Analysis.FunctionByName(name)
		if !ok {
			continue
		}
		if retType != "" && src.ReturnType != "" && retType != src.ReturnType {
			f.Issues = append(f.Issues,
				fmt.Sprintf("stub %q returns %q but source declares %q",
					name, retType, src.ReturnType))
			f.BreaksBuild = true
		}
	}
	return f
}

func checkEntryPoint(in Input) Finding {
	var f Finding
	for _, loc := range mainDefRe.FindAllStringIndex(in.Test, -1) {
		tail := in.Test[loc[0]:]
		if strings.Contains(firstBody(tail), "UNITY_BEGIN") ||
			strings.Contains(firstBody(tail), "RUN_TEST") {
			continue
		}
		f.Issues = append(f.Issues, "program entry point redefined outside the test runner")
		f.BreaksBuild = true
		break
	}
	if mainInvokeRe.MatchString(in.Test) && !externMainDeclRe.MatchString(in.Test) {
		f.Issues = append(f.Issues,
			"entry point invoked without an explicit extern declaration")
		f.BreaksBuild = true
	}
	return f
}

// firstBody returns the first brace-delimited block in s, or "" when the
// braces never balance.
func firstBody(s string) string {
	open := strings.IndexByte(s, '{')
	if open < 0 {
		return ""
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open : i+1]
			}
		}
	}
	return ""
}

var spacesRe = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return spacesRe.ReplaceAllString(s, " ")
}
