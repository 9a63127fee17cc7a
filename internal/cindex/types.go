package cindex

// CFunction is one function definition extracted from a C source file.
type CFunction struct {
	Name       string
	ReturnType string
	Signature  string
}

// FileAnalysis holds the per-file facts the generator and validator consume.
// It is recomputed fresh for each file and never mutated afterwards.
type FileAnalysis struct {
	FilePath string
	// Functions defined in this file, in source order.
	Functions []CFunction
	// CalledSymbols are function names called in this file but not defined
	// in it. Whether a symbol needs a stub is decided later against the
	// symbol table; standard-library calls simply never appear in the table.
	CalledSymbols map[string]struct{}
	// Includes are the header names from #include directives, in source order.
	Includes []string
}

// DefinedFunction reports whether the file defines a function with this name.
func (a FileAnalysis) DefinedFunction(name string) bool {
	for _, f := range a.Functions {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FunctionByName returns the definition for name, if present.
func (a FileAnalysis) FunctionByName(name string) (CFunction, bool) {
	for _, f := range a.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return CFunction{}, false
}

// HasInclude reports whether the file's own includes contain header.
func (a FileAnalysis) HasInclude(header string) bool {
	for _, inc := range a.Includes {
		if inc == header {
			return true
		}
	}
	return false
}
