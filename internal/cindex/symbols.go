package cindex

import "sort"

// SymbolTable maps a function name to the file that defines it. It is built
// once per run, before any file is processed, and is read-only afterwards, so
// it is safe to share across concurrently running per-file controllers.
//
// When two files define the same function name, the last indexed definition
// wins. File order is the sorted order of ListSourceFiles, which makes the
// winner deterministic, but call-site resolution for duplicated names is
// inherently ambiguous and callers should not rely on it.
type SymbolTable struct {
	owners map[string]string
}

// BuildSymbolTable indexes every file and returns the completed table.
func BuildSymbolTable(idx *Indexer, files []string) (SymbolTable, error) {
	owners := make(map[string]string)
	for _, file := range files {
		funcs, err := idx.ExtractFunctions(file)
		if err != nil {
			return SymbolTable{}, err
		}
		for _, fn := range funcs {
			owners[fn.Name] = file
		}
	}
	return SymbolTable{owners: owners}, nil
}

// NewSymbolTable builds a table directly from a name -> owning-file map.
// Used by tests and by callers that already hold extracted facts.
func NewSymbolTable(owners map[string]string) SymbolTable {
	copied := make(map[string]string, len(owners))
	for k, v := range owners {
		copied[k] = v
	}
	return SymbolTable{owners: copied}
}

// Owner returns the file that defines name, or "" when the symbol is not
// indexed (treated as externally resolved at link time).
func (t SymbolTable) Owner(name string) string {
	return t.owners[name]
}

// Contains reports whether name has an indexed definition.
func (t SymbolTable) Contains(name string) bool {
	_, ok := t.owners[name]
	return ok
}

// Len returns the number of indexed function names.
func (t SymbolTable) Len() int { return len(t.owners) }

// Names returns all indexed function names, sorted.
func (t SymbolTable) Names() []string {
	names := make([]string, 0, len(t.owners))
	for name := range t.owners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
