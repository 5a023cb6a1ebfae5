package mir

import (
	"fmt"
	"strings"

	"github.com/cairo-m/mirc/internal/mirtype"
)

// Op identifies an instruction's semantic group (spec.md §3 "Instruction
// algebra"), the same way the teacher's Instruction carries a Mnemonic
// string that routes to one encoder (encoder/encoder.go's big switch).
// Here the router is the pretty-printer and the code generator rather than
// an assembly mnemonic.
type Op int

const (
	OpAssign Op = iota
	OpBinary
	OpUnary
	OpCall
	OpMakeTuple
	OpMakeStruct
	OpMakeFixedArray
	OpExtractTupleElement
	OpExtractStructField
	OpInsertTuple
	OpInsertField
	OpExtractArrayElement
	OpInsertArrayElement
	OpPhi
	OpCastU32ToFelt
	OpPrintFelt
	OpPrintU32
)

func (o Op) String() string {
	switch o {
	case OpAssign:
		return "assign"
	case OpBinary:
		return "binop"
	case OpUnary:
		return "unop"
	case OpCall:
		return "call"
	case OpMakeTuple:
		return "make_tuple"
	case OpMakeStruct:
		return "make_struct"
	case OpMakeFixedArray:
		return "make_array"
	case OpExtractTupleElement:
		return "extract_tuple"
	case OpExtractStructField:
		return "extract_field"
	case OpInsertTuple:
		return "insert_tuple"
	case OpInsertField:
		return "insert_field"
	case OpExtractArrayElement:
		return "extract_elem"
	case OpInsertArrayElement:
		return "insert_elem"
	case OpPhi:
		return "phi"
	case OpCastU32ToFelt:
		return "cast_u32_felt"
	case OpPrintFelt:
		return "print_felt"
	case OpPrintU32:
		return "print_u32"
	default:
		return "?op"
	}
}

// BinOp enumerates spec.md §3's binary operators.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinAnd
	BinOr
	BinXor
	BinEq
	BinNeq
	BinLt
	BinLe
	BinGt
	BinGe
)

func (b BinOp) String() string {
	names := [...]string{"add", "sub", "mul", "div", "and", "or", "xor", "eq", "neq", "lt", "le", "gt", "ge"}
	if int(b) < len(names) {
		return names[b]
	}
	return "?binop"
}

// IsComparison reports whether b produces a felt 0/1 boolean result.
func (b BinOp) IsComparison() bool {
	switch b {
	case BinEq, BinNeq, BinLt, BinLe, BinGt, BinGe:
		return true
	default:
		return false
	}
}

// UnOp enumerates spec.md §3's unary operators.
type UnOp int

const (
	UnNeg UnOp = iota
	UnNot
)

func (u UnOp) String() string {
	if u == UnNeg {
		return "neg"
	}
	return "not"
}

// PhiIncoming is one (predecessor, value) pair of a Phi instruction.
type PhiIncoming struct {
	Pred  BlockID
	Value Value
}

// CallSignature is the ABI-relevant shape of a call target: ordered
// parameter and return types, used to derive slot counts (spec.md §3).
type CallSignature struct {
	Params  []*mirtype.MirType
	Returns []*mirtype.MirType
}

// Instr is one non-terminator MIR instruction. Only the fields relevant to
// Op are populated; this mirrors the teacher's Instruction/Directive
// structs (parser/parser.go), which likewise carry a generic field set
// whose active subset is selected by Mnemonic/Name.
type Instr struct {
	Op   Op
	Type *mirtype.MirType // result type, when Op has a result

	// Dst: the result of every op except OpCall, OpPrintFelt and OpPrintU32.
	// Src: the operand of OpAssign, OpCastU32ToFelt, OpPrintFelt and
	// OpPrintU32, and the new element/field value of OpInsertTuple,
	// OpInsertField and OpInsertArrayElement
	Dst ValueID
	Src Value

	// OpBinary
	BinOp BinOp
	Lhs   Value
	Rhs   Value

	// OpBinary, OpUnary: the operand type (felt/u32/bool), distinct from
	// Type (the result type, which for comparisons is bool while operands
	// may be felt or u32). Codegen and the const evaluator both dispatch
	// on this to pick felt-modular vs u32-wrapping semantics (spec.md
	// §3, §4.5).
	OperandType *mirtype.MirType

	// OpUnary
	UnOp    UnOp
	Operand Value

	// OpCall
	Dsts      []ValueID
	Callee    string
	Args      []Value
	Signature CallSignature

	// OpMakeTuple, OpMakeFixedArray: the element list
	Elems []Value

	// OpMakeStruct: field names and values in declaration order
	// (OpInsertField uses FieldName, Src and Base instead)
	FieldNames  []string
	FieldValues []Value

	// OpMakeFixedArray
	IsConst bool

	// OpExtractTupleElement, OpInsertTuple, OpExtractArrayElement,
	// OpInsertArrayElement: static index when known, else DynamicIndex set
	Index         int
	DynamicIndex  Value
	HasDynIndex   bool

	// OpExtractStructField, OpInsertField
	FieldName string

	// OpInsertTuple, OpInsertField, OpInsertArrayElement,
	// OpExtractTupleElement, OpExtractStructField, OpExtractArrayElement:
	// the aggregate/array being read or functionally updated
	Base Value

	// OpPhi
	Incoming []PhiIncoming
}

// Uses returns every Value this instruction reads, in a stable order, for
// use-def construction (spec.md §4.3).
func (in *Instr) Uses() []Value {
	var uses []Value
	add := func(v Value) {
		if v.IsRef() {
			uses = append(uses, v)
		}
	}
	switch in.Op {
	case OpAssign:
		add(in.Src)
	case OpBinary:
		add(in.Lhs)
		add(in.Rhs)
	case OpUnary:
		add(in.Operand)
	case OpCall:
		for _, a := range in.Args {
			add(a)
		}
	case OpMakeTuple, OpMakeFixedArray:
		for _, e := range in.Elems {
			add(e)
		}
	case OpMakeStruct:
		for _, v := range in.FieldValues {
			add(v)
		}
	case OpExtractTupleElement, OpExtractStructField:
		add(in.Base)
	case OpExtractArrayElement:
		add(in.Base)
		if in.HasDynIndex {
			add(in.DynamicIndex)
		}
	case OpInsertTuple, OpInsertArrayElement:
		add(in.Base)
		add(in.Src)
		if in.HasDynIndex {
			add(in.DynamicIndex)
		}
	case OpInsertField:
		add(in.Base)
		add(in.Src)
	case OpCastU32ToFelt, OpPrintFelt, OpPrintU32:
		add(in.Src)
	case OpPhi:
		for _, inc := range in.Incoming {
			add(inc.Value)
		}
	}
	return uses
}

// RewriteUses applies f to every Value operand in place, used by copy
// propagation, constant folding, and SSA-construction's trivial-phi
// elimination to redirect uses without rebuilding the instruction.
func (in *Instr) RewriteUses(f func(Value) Value) {
	switch in.Op {
	case OpAssign:
		in.Src = f(in.Src)
	case OpBinary:
		in.Lhs = f(in.Lhs)
		in.Rhs = f(in.Rhs)
	case OpUnary:
		in.Operand = f(in.Operand)
	case OpCall:
		for i := range in.Args {
			in.Args[i] = f(in.Args[i])
		}
	case OpMakeTuple, OpMakeFixedArray:
		for i := range in.Elems {
			in.Elems[i] = f(in.Elems[i])
		}
	case OpMakeStruct:
		for i := range in.FieldValues {
			in.FieldValues[i] = f(in.FieldValues[i])
		}
	case OpExtractTupleElement, OpExtractStructField:
		in.Base = f(in.Base)
	case OpExtractArrayElement:
		in.Base = f(in.Base)
		if in.HasDynIndex {
			in.DynamicIndex = f(in.DynamicIndex)
		}
	case OpInsertTuple, OpInsertArrayElement:
		in.Base = f(in.Base)
		in.Src = f(in.Src)
		if in.HasDynIndex {
			in.DynamicIndex = f(in.DynamicIndex)
		}
	case OpInsertField:
		in.Base = f(in.Base)
		in.Src = f(in.Src)
	case OpCastU32ToFelt, OpPrintFelt, OpPrintU32:
		in.Src = f(in.Src)
	case OpPhi:
		for i := range in.Incoming {
			in.Incoming[i].Value = f(in.Incoming[i].Value)
		}
	}
}

// Defs returns every ValueID this instruction defines.
func (in *Instr) Defs() []ValueID {
	switch in.Op {
	case OpCall:
		return in.Dsts
	case OpPrintFelt, OpPrintU32:
		return nil
	default:
		return []ValueID{in.Dst}
	}
}

// IsPhi reports whether this is a Phi instruction (block-prefix only).
func (in *Instr) IsPhi() bool { return in.Op == OpPhi }

// IsPure reports whether the instruction has no side effect, i.e. is a
// candidate for dead-code elimination when its destination is unused
// (spec.md §4.4 passes 1 and 9). A call is never pure, since its callee
// may print.
func (in *Instr) IsPure() bool {
	switch in.Op {
	case OpPrintFelt, OpPrintU32, OpCall:
		return false
	default:
		return true
	}
}

// String renders the instruction in the round-trippable textual form the
// pretty-printer uses (spec.md §4.1).
func (in *Instr) String() string {
	var sb strings.Builder
	switch in.Op {
	case OpAssign:
		fmt.Fprintf(&sb, "v%d = assign %s", in.Dst, in.Src)
	case OpBinary:
		fmt.Fprintf(&sb, "v%d = %s %s, %s", in.Dst, in.BinOp, in.Lhs, in.Rhs)
	case OpUnary:
		fmt.Fprintf(&sb, "v%d = %s %s", in.Dst, in.UnOp, in.Operand)
	case OpCall:
		dsts := make([]string, len(in.Dsts))
		for i, d := range in.Dsts {
			dsts[i] = fmt.Sprintf("v%d", d)
		}
		args := make([]string, len(in.Args))
		for i, a := range in.Args {
			args[i] = a.String()
		}
		if len(dsts) > 0 {
			fmt.Fprintf(&sb, "%s = call %s(%s)", strings.Join(dsts, ", "), in.Callee, strings.Join(args, ", "))
		} else {
			fmt.Fprintf(&sb, "call %s(%s)", in.Callee, strings.Join(args, ", "))
		}
	case OpMakeTuple:
		elems := make([]string, len(in.Elems))
		for i, e := range in.Elems {
			elems[i] = e.String()
		}
		fmt.Fprintf(&sb, "v%d = make_tuple(%s)", in.Dst, strings.Join(elems, ", "))
	case OpMakeStruct:
		parts := make([]string, len(in.FieldNames))
		for i, n := range in.FieldNames {
			parts[i] = fmt.Sprintf("%s: %s", n, in.FieldValues[i])
		}
		fmt.Fprintf(&sb, "v%d = make_struct %s{%s}", in.Dst, in.Type.Name, strings.Join(parts, ", "))
	case OpMakeFixedArray:
		elems := make([]string, len(in.Elems))
		for i, e := range in.Elems {
			elems[i] = e.String()
		}
		tag := ""
		if in.IsConst {
			tag = " const"
		}
		fmt.Fprintf(&sb, "v%d = make_array%s[%s]", in.Dst, tag, strings.Join(elems, ", "))
	case OpExtractTupleElement:
		fmt.Fprintf(&sb, "v%d = extract_tuple %s.%d", in.Dst, in.Base, in.Index)
	case OpExtractStructField:
		fmt.Fprintf(&sb, "v%d = extract_field %s.%s", in.Dst, in.Base, in.FieldName)
	case OpInsertTuple:
		fmt.Fprintf(&sb, "v%d = insert_tuple %s, %d, %s", in.Dst, in.Base, in.Index, in.Src)
	case OpInsertField:
		fmt.Fprintf(&sb, "v%d = insert_field %s, %s, %s", in.Dst, in.Base, in.FieldName, in.Src)
	case OpExtractArrayElement:
		if in.HasDynIndex {
			fmt.Fprintf(&sb, "v%d = extract_elem %s[%s]", in.Dst, in.Base, in.DynamicIndex)
		} else {
			fmt.Fprintf(&sb, "v%d = extract_elem %s[%d]", in.Dst, in.Base, in.Index)
		}
	case OpInsertArrayElement:
		if in.HasDynIndex {
			fmt.Fprintf(&sb, "v%d = insert_elem %s, %s, %s", in.Dst, in.Base, in.DynamicIndex, in.Src)
		} else {
			fmt.Fprintf(&sb, "v%d = insert_elem %s, %d, %s", in.Dst, in.Base, in.Index, in.Src)
		}
	case OpPhi:
		parts := make([]string, len(in.Incoming))
		for i, inc := range in.Incoming {
			parts[i] = fmt.Sprintf("b%d: %s", inc.Pred, inc.Value)
		}
		fmt.Fprintf(&sb, "v%d = phi [%s]", in.Dst, strings.Join(parts, ", "))
	case OpCastU32ToFelt:
		fmt.Fprintf(&sb, "v%d = cast_u32_felt %s", in.Dst, in.Src)
	case OpPrintFelt:
		fmt.Fprintf(&sb, "print_felt %s", in.Src)
	case OpPrintU32:
		fmt.Fprintf(&sb, "print_u32 %s", in.Src)
	default:
		sb.WriteString("?instr")
	}
	return sb.String()
}
