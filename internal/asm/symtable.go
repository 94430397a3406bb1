package asm

import (
	"strings"

	"github.com/attic/atticcore/internal/atticerr"
)

// SymbolTable maps case-folded labels to signed 32-bit values and tracks
// references made before a definition exists.
type SymbolTable struct {
	defined    map[string]int32
	referenced map[string]bool
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		defined:    make(map[string]int32),
		referenced: make(map[string]bool),
	}
}

func fold(name string) string {
	return strings.ToUpper(name)
}

// Define records name = value. Fails with KindDuplicateLabel if name is
// already defined.
func (s *SymbolTable) Define(name string, value int32) error {
	key := fold(name)
	if _, ok := s.defined[key]; ok {
		return atticerr.New(atticerr.KindDuplicateLabel, name)
	}
	s.defined[key] = value
	return nil
}

// Lookup returns the value bound to name, if defined.
func (s *SymbolTable) Lookup(name string) (int32, bool) {
	v, ok := s.defined[fold(name)]
	return v, ok
}

// Reference records that name was used before (or without) a definition.
func (s *SymbolTable) Reference(name string) {
	s.referenced[fold(name)] = true
}

// Clear empties both the defined and referenced sets.
func (s *SymbolTable) Clear() {
	s.defined = make(map[string]int32)
	s.referenced = make(map[string]bool)
}

// UnresolvedReferences returns the names that were referenced but never
// defined, sorted is not guaranteed — callers that need determinism should
// sort the result themselves.
func (s *SymbolTable) UnresolvedReferences() []string {
	var out []string
	for name := range s.referenced {
		if _, ok := s.defined[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Defined reports whether name has a definition.
func (s *SymbolTable) Defined(name string) bool {
	_, ok := s.defined[fold(name)]
	return ok
}
