package passes

import (
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// ArithmeticSimplification rewrites binary operations with an identity or
// absorbing literal operand into a cheaper form (spec.md §4.4 Stage A pass
// 4): x+0, 0+x, x-0, x*1, 1*x, x/1 become an assign of x; x*0, 0*x, x&0,
// 0&x, and x-x become the zero literal (felt or u32 according to
// OperandType).
type ArithmeticSimplification struct{}

func (ArithmeticSimplification) Name() string { return "arithmetic-simplification" }

func (ArithmeticSimplification) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	changed := false
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		for _, in := range b.Instr {
			if in.Op != mir.OpBinary {
				continue
			}
			if simplifyBinary(in) {
				changed = true
			}
		}
	}
	return changed, nil
}

func isZeroLit(v mir.Value) bool {
	return v.IsLiteral() && v.Literal.Kind == mir.LitInt && v.Literal.Int == 0
}

func isOneLit(v mir.Value) bool {
	return v.IsLiteral() && v.Literal.Kind == mir.LitInt && v.Literal.Int == 1
}

func zeroLitFor(t *mirtype.MirType) mir.Value {
	return mir.LitValue(mir.IntLiteral(0))
}

// sameValue reports whether lhs and rhs are the same SSA value reference
// (x-x=0 only holds for a shared definition, never for two equal literals
// with different provenance).
func sameValue(lhs, rhs mir.Value) bool {
	return lhs.IsRef() && rhs.IsRef() && lhs.Ref == rhs.Ref
}

func simplifyBinary(in *mir.Instr) bool {
	switch in.BinOp {
	case mir.BinAdd:
		if isZeroLit(in.Rhs) {
			replaceWithOperand(in, in.Lhs)
			return true
		}
		if isZeroLit(in.Lhs) {
			replaceWithOperand(in, in.Rhs)
			return true
		}
	case mir.BinSub:
		if isZeroLit(in.Rhs) {
			replaceWithOperand(in, in.Lhs)
			return true
		}
		if sameValue(in.Lhs, in.Rhs) {
			replaceWithOperand(in, zeroLitFor(in.OperandType))
			return true
		}
	case mir.BinAnd:
		if isZeroLit(in.Rhs) || isZeroLit(in.Lhs) {
			replaceWithOperand(in, zeroLitFor(in.OperandType))
			return true
		}
	case mir.BinMul:
		if isOneLit(in.Rhs) {
			replaceWithOperand(in, in.Lhs)
			return true
		}
		if isOneLit(in.Lhs) {
			replaceWithOperand(in, in.Rhs)
			return true
		}
		if isZeroLit(in.Rhs) || isZeroLit(in.Lhs) {
			replaceWithOperand(in, zeroLitFor(in.OperandType))
			return true
		}
	case mir.BinDiv:
		if isOneLit(in.Rhs) {
			replaceWithOperand(in, in.Lhs)
			return true
		}
	}
	return false
}

func replaceWithOperand(in *mir.Instr, v mir.Value) {
	*in = mir.Instr{Op: mir.OpAssign, Dst: in.Dst, Type: in.Type, Src: v}
}
