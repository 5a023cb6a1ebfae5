package mir

import (
	"fmt"

	"github.com/cairo-m/mirc/internal/mirtype"
)

// ValueID identifies an SSA value, densely numbered per function
// (spec.md §3: "Value identifiers are densely numbered per function").
type ValueID int

// BlockID identifies a basic block, a dense small integer per function.
type BlockID int

// LiteralKind discriminates the four literal forms spec.md §3 names.
type LiteralKind int

const (
	LitInt LiteralKind = iota // backs both felt and u32 literals
	LitBool
	LitUnit
	LitError // the error-sentinel value
)

// Literal is a compile-time constant value. Int literals are stored in a
// uint64 wide enough to hold a full u32 and are reinterpreted according to
// the operand's static MirType at every use site.
type Literal struct {
	Kind LiteralKind
	Int  uint64
	Bool bool
}

func IntLiteral(v uint64) Literal  { return Literal{Kind: LitInt, Int: v} }
func BoolLiteral(v bool) Literal   { return Literal{Kind: LitBool, Bool: v} }
func UnitLiteral() Literal         { return Literal{Kind: LitUnit} }
func ErrorLiteral() Literal        { return Literal{Kind: LitError} }
func (l Literal) IsInt() bool      { return l.Kind == LitInt }
func (l Literal) IsBool() bool     { return l.Kind == LitBool }

func (l Literal) String() string {
	switch l.Kind {
	case LitInt:
		return fmt.Sprintf("%d", l.Int)
	case LitBool:
		return fmt.Sprintf("%t", l.Bool)
	case LitUnit:
		return "()"
	case LitError:
		return "<error>"
	default:
		return "?"
	}
}

// ValueOrigin discriminates whether a Value is a literal or refers to
// another SSA value by id (spec.md §3: "Value. Either a literal ... or an
// operand referring to a value identifier").
type ValueOrigin int

const (
	OriginLiteral ValueOrigin = iota
	OriginRef
)

// Value is an operand: either an immediate literal or a reference to a
// previously (or concurrently, for phis) defined SSA value.
type Value struct {
	Origin  ValueOrigin
	Literal Literal
	Ref     ValueID
}

func LitValue(l Literal) Value    { return Value{Origin: OriginLiteral, Literal: l} }
func RefValue(id ValueID) Value   { return Value{Origin: OriginRef, Ref: id} }
func (v Value) IsLiteral() bool   { return v.Origin == OriginLiteral }
func (v Value) IsRef() bool       { return v.Origin == OriginRef }

func (v Value) String() string {
	if v.IsLiteral() {
		return v.Literal.String()
	}
	return fmt.Sprintf("v%d", v.Ref)
}

// ValueRegistry allocates fresh value identifiers with a type, per spec.md
// §4.1's new_value(type) -> id operation. It is owned exclusively by the
// builder/passes working on one function (spec.md §5: "The value registry
// is mutated only by the builder/passes that own the function").
type ValueRegistry struct {
	types []*mirtype.MirType
}

// NewValue allocates a unique id for a value of the given type. Fails if
// the type is nil (ill-formed).
func (r *ValueRegistry) NewValue(t *mirtype.MirType) (ValueID, error) {
	if t == nil {
		return 0, fmt.Errorf("mir: cannot allocate a value with a nil type")
	}
	id := ValueID(len(r.types))
	r.types = append(r.types, t)
	return id, nil
}

// TypeOf returns the type a value identifier was allocated with.
func (r *ValueRegistry) TypeOf(id ValueID) (*mirtype.MirType, bool) {
	if int(id) < 0 || int(id) >= len(r.types) {
		return nil, false
	}
	return r.types[id], true
}

// Len returns the number of values allocated so far.
func (r *ValueRegistry) Len() int { return len(r.types) }
