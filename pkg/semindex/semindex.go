// Package semindex declares the adapter boundary to the Semantic Index: a
// read-only query surface, owned by an external collaborator (name
// resolution and type inference, spec.md §1 "OUT OF SCOPE"), that the
// builder (internal/builder) queries through this small interface rather
// than depending on the host's concrete resolver. Grounded on the
// teacher's parser.SymbolTable query surface
// (_examples/lookbusy1344-arm_emulator/parser/symbols.go), which plays the
// analogous role of "a lookup table the consuming code queries but never
// mutates directly from outside its owner".
package semindex

import "github.com/cairo-m/mirc/internal/mirtype"

// DefID identifies a definition (function, struct, variable) in the host's
// typed AST, opaque to the core.
type DefID int

// ExprID identifies an expression node in the host's typed AST, opaque to
// the core.
type ExprID int

// FunctionSignature is the ABI-relevant shape of a resolved callable,
// looked up by fully-qualified name (spec.md §6).
type FunctionSignature struct {
	Name    string
	Params  []*mirtype.MirType
	Returns []*mirtype.MirType
}

// Index is the read-only query surface the builder consumes. A host
// implements this over its own name-resolution/type-inference output; the
// core never constructs one.
type Index interface {
	// TypeOfExpr returns the resolved type of an expression node.
	TypeOfExpr(e ExprID) (*mirtype.MirType, bool)

	// TypeOfDef returns the resolved type of a definition (e.g. a
	// variable's declared/inferred type).
	TypeOfDef(d DefID) (*mirtype.MirType, bool)

	// ModulePath returns the defining module's path for a definition, used
	// to qualify emitted function names.
	ModulePath(d DefID) (string, bool)

	// LookupFunction resolves a fully-qualified function name to its
	// signature, for call-site ABI decisions (argument slot layout).
	LookupFunction(qualifiedName string) (FunctionSignature, bool)
}

// StaticIndex is a fixture/testing implementation of Index backed by
// plain maps, used by internal/builder's tests and by cmd/mirc's demo
// driver in place of a real name-resolution pass.
type StaticIndex struct {
	ExprTypes  map[ExprID]*mirtype.MirType
	DefTypes   map[DefID]*mirtype.MirType
	DefModules map[DefID]string
	Functions  map[string]FunctionSignature
}

// NewStaticIndex returns an empty StaticIndex ready to be populated.
func NewStaticIndex() *StaticIndex {
	return &StaticIndex{
		ExprTypes:  make(map[ExprID]*mirtype.MirType),
		DefTypes:   make(map[DefID]*mirtype.MirType),
		DefModules: make(map[DefID]string),
		Functions:  make(map[string]FunctionSignature),
	}
}

func (s *StaticIndex) TypeOfExpr(e ExprID) (*mirtype.MirType, bool) {
	t, ok := s.ExprTypes[e]
	return t, ok
}

func (s *StaticIndex) TypeOfDef(d DefID) (*mirtype.MirType, bool) {
	t, ok := s.DefTypes[d]
	return t, ok
}

func (s *StaticIndex) ModulePath(d DefID) (string, bool) {
	m, ok := s.DefModules[d]
	return m, ok
}

func (s *StaticIndex) LookupFunction(qualifiedName string) (FunctionSignature, bool) {
	sig, ok := s.Functions[qualifiedName]
	return sig, ok
}
