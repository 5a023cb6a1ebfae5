// Package mirtype defines the MIR type system (spec.md §3) and its layout
// rules: slot counts, tuple/struct field offsets, and promotability to SSA
// registers. These constants are fixed by the target ABI and should not be
// modified independently of the VM's calling convention, the same way the
// teacher groups its architecture constants (vm/arch_constants.go,
// vm/vm_constants.go) and calls that out in a banner comment.
package mirtype

import "fmt"

// ============================================================================
// Cairo-M Field Constants
// ============================================================================
// These values are fixed by the target VM's field arithmetic and must not be
// changed independently of it.
const (
	// FieldPrime is the 31-bit Mersenne prime felt arithmetic is modular over.
	FieldPrime uint64 = (1 << 31) - 1

	// U32HighLimbCastBound is the high-limb bound a u32->felt cast validates
	// (spec.md §4.5 CastU32ToFelt): hi must be < 2^15 so lo + hi*2^16 fits
	// in a felt without wrapping.
	U32HighLimbCastBound uint32 = 1 << 15

	// U32DivByZeroSentinel is returned by u32 division/remainder by zero
	// (spec.md §3, RISC-V-like semantics).
	U32DivByZeroSentinel uint32 = 0xFFFFFFFF
)

// Kind discriminates the shape of a MirType.
type Kind int

const (
	KindFelt Kind = iota
	KindU32
	KindBool
	KindUnit
	KindTuple
	KindStruct
	KindArray
	KindPointer
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindFelt:
		return "felt"
	case KindU32:
		return "u32"
	case KindBool:
		return "bool"
	case KindUnit:
		return "unit"
	case KindTuple:
		return "tuple"
	case KindStruct:
		return "struct"
	case KindArray:
		return "array"
	case KindPointer:
		return "ptr"
	case KindFunction:
		return "fn"
	default:
		return "?"
	}
}

// StructField is one named, ordered field of a struct type.
type StructField struct {
	Name string
	Type *MirType
}

// MirType is the type system MIR values are stamped with (spec.md §3).
// Only one of the kind-specific fields is populated, selected by Kind.
type MirType struct {
	Kind Kind

	// KindTuple
	Elements []*MirType

	// KindStruct
	Name   string
	Fields []StructField

	// KindArray / KindPointer
	Elem  *MirType
	Count int // KindArray only

	// KindFunction
	Params  []*MirType
	Returns []*MirType
}

func Felt() *MirType { return &MirType{Kind: KindFelt} }
func U32() *MirType  { return &MirType{Kind: KindU32} }
func Bool() *MirType { return &MirType{Kind: KindBool} }
func Unit() *MirType { return &MirType{Kind: KindUnit} }

func Tuple(elems ...*MirType) *MirType {
	return &MirType{Kind: KindTuple, Elements: elems}
}

func Struct(name string, fields ...StructField) *MirType {
	return &MirType{Kind: KindStruct, Name: name, Fields: fields}
}

func Array(elem *MirType, count int) *MirType {
	return &MirType{Kind: KindArray, Elem: elem, Count: count}
}

func Pointer(elem *MirType) *MirType {
	return &MirType{Kind: KindPointer, Elem: elem}
}

func Function(params, returns []*MirType) *MirType {
	return &MirType{Kind: KindFunction, Params: params, Returns: returns}
}

// SlotCount returns the number of VM frame slots t occupies (spec.md §3
// data layout invariants).
func SlotCount(t *MirType) int {
	switch t.Kind {
	case KindFelt, KindBool:
		return 1
	case KindU32:
		return 2
	case KindUnit:
		return 0
	case KindPointer:
		return 1
	case KindTuple:
		n := 0
		for _, e := range t.Elements {
			n += SlotCount(e)
		}
		return n
	case KindStruct:
		n := 0
		for _, f := range t.Fields {
			n += SlotCount(f.Type)
		}
		return n
	case KindArray:
		return SlotCount(t.Elem) * t.Count
	case KindFunction:
		// Function values themselves are never materialized as data; a
		// signature only carries slot counts for its parameters/returns.
		return 0
	default:
		return 0
	}
}

// TupleOffset returns the prefix-sum slot offset of element i within a
// tuple type (spec.md §3: tuple_offset(i) = sum(slot_count(T_j) for j<i)).
func TupleOffset(t *MirType, i int) int {
	off := 0
	for j := 0; j < i; j++ {
		off += SlotCount(t.Elements[j])
	}
	return off
}

// StructFieldOffset returns the slot offset of the named field, using the
// identical prefix-sum rule keyed by declaration order.
func StructFieldOffset(t *MirType, name string) (int, error) {
	off := 0
	for _, f := range t.Fields {
		if f.Name == name {
			return off, nil
		}
		off += SlotCount(f.Type)
	}
	return 0, fmt.Errorf("mirtype: struct %q has no field %q", t.Name, name)
}

// ArrayElementOffset returns the slot offset of element i in an array type.
func ArrayElementOffset(t *MirType, i int) int {
	return SlotCount(t.Elem) * i
}

// IsAggregate reports whether t is a tuple, struct, or array.
func IsAggregate(t *MirType) bool {
	switch t.Kind {
	case KindTuple, KindStruct, KindArray:
		return true
	default:
		return false
	}
}

// ContainsArray reports whether t is an array, or an aggregate with an
// array anywhere in its field/element closure. SROA (spec.md §4.4 pass 6)
// refuses to scalarize an aggregate with an array at any depth.
func ContainsArray(t *MirType) bool {
	switch t.Kind {
	case KindArray:
		return true
	case KindTuple:
		for _, e := range t.Elements {
			if ContainsArray(e) {
				return true
			}
		}
		return false
	case KindStruct:
		for _, f := range t.Fields {
			if ContainsArray(f.Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Promotable reports whether a value of type t may live directly as an SSA
// register (or register set) rather than materialized memory. Arrays are
// never promoted (spec.md §3); every other type is, including any tuple or
// struct: the check does not look at an aggregate's size or at arrays
// nested inside it.
func Promotable(t *MirType) bool {
	return t.Kind != KindArray
}

// Equal reports structural equality of two MIR types.
func Equal(a, b *MirType) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindTuple:
		if len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equal(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	case KindStruct:
		if a.Name != b.Name || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !Equal(a.Fields[i].Type, b.Fields[i].Type) {
				return false
			}
		}
		return true
	case KindArray:
		return a.Count == b.Count && Equal(a.Elem, b.Elem)
	case KindPointer:
		return Equal(a.Elem, b.Elem)
	case KindFunction:
		if len(a.Params) != len(b.Params) || len(a.Returns) != len(b.Returns) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		for i := range a.Returns {
			if !Equal(a.Returns[i], b.Returns[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders a type the way the MIR pretty-printer embeds it.
func (t *MirType) String() string {
	switch t.Kind {
	case KindTuple:
		s := "("
		for i, e := range t.Elements {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ")"
	case KindStruct:
		return t.Name
	case KindArray:
		return fmt.Sprintf("[%s; %d]", t.Elem.String(), t.Count)
	case KindPointer:
		return "ptr(" + t.Elem.String() + ")"
	case KindFunction:
		s := "fn("
		for i, p := range t.Params {
			if i > 0 {
				s += ", "
			}
			s += p.String()
		}
		s += ") -> ("
		for i, r := range t.Returns {
			if i > 0 {
				s += ", "
			}
			s += r.String()
		}
		return s + ")"
	default:
		return t.Kind.String()
	}
}
