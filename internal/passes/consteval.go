package passes

import (
	"errors"

	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// ErrDivByZero signals a compile-time fold that must be rejected and left
// to the runtime VM, per spec.md §4.4 pass 2: "division by zero on felt
// compile-time folds is rejected and left to runtime".
var ErrDivByZero = errors.New("passes: division by zero is not const-folded")

// ConstEvaluator is the single shared module providing the one-true
// numeric semantics every constant fold (and, per spec.md §8 property 5,
// the runtime VM) must agree with bit-for-bit. It has no state and is
// safe to share across every pass and every function.
type ConstEvaluator struct{}

// EvalBinary folds a binary operation over two literal operands of the
// given (shared) operand type, per spec.md §3's numeric semantics:
// felt arithmetic mod P = 2^31-1; u32 two's-complement wrapping with
// divide-by-zero returning the RISC-V-like sentinel 0xFFFFFFFF.
func (ConstEvaluator) EvalBinary(op mir.BinOp, lhs, rhs mir.Literal, operandType *mirtype.MirType) (mir.Literal, error) {
	if op.IsComparison() {
		return evalComparison(op, lhs, rhs, operandType)
	}
	if operandType != nil && operandType.Kind == mirtype.KindU32 {
		return evalU32Binary(op, uint32(lhs.Int), uint32(rhs.Int))
	}
	return evalFeltBinary(op, lhs.Int, rhs.Int)
}

// EvalUnary folds a unary operation over a literal operand.
func (ConstEvaluator) EvalUnary(op mir.UnOp, operand mir.Literal, operandType *mirtype.MirType) (mir.Literal, error) {
	isU32 := operandType != nil && operandType.Kind == mirtype.KindU32
	switch op {
	case mir.UnNeg:
		if isU32 {
			return mir.IntLiteral(uint64(uint32(-int32(uint32(operand.Int))))), nil
		}
		v := operand.Int % mirtype.FieldPrime
		if v == 0 {
			return mir.IntLiteral(0), nil
		}
		return mir.IntLiteral(mirtype.FieldPrime - v), nil
	case mir.UnNot:
		if isU32 {
			return mir.IntLiteral(uint64(^uint32(operand.Int))), nil
		}
		return mir.BoolLiteral(!operand.Bool), nil
	default:
		return mir.Literal{}, errors.New("passes: unknown unary op")
	}
}

func evalFeltBinary(op mir.BinOp, a, b uint64) (mir.Literal, error) {
	const p = mirtype.FieldPrime
	a %= p
	b %= p
	switch op {
	case mir.BinAdd:
		return mir.IntLiteral((a + b) % p), nil
	case mir.BinSub:
		return mir.IntLiteral((a + p - b) % p), nil
	case mir.BinMul:
		return mir.IntLiteral((a * b) % p), nil
	case mir.BinDiv:
		if b == 0 {
			return mir.Literal{}, ErrDivByZero
		}
		inv := feltInverse(b)
		return mir.IntLiteral((a * inv) % p), nil
	case mir.BinAnd:
		return mir.IntLiteral(a & b), nil
	case mir.BinOr:
		return mir.IntLiteral(a | b), nil
	case mir.BinXor:
		return mir.IntLiteral(a ^ b), nil
	default:
		return mir.Literal{}, errors.New("passes: unsupported felt binary op")
	}
}

// feltInverse computes b^-1 mod P via Fermat's little theorem
// (b^(P-2) mod P), the same rule spec.md §4.5 names for codegen's
// division-by-immediate lowering.
func feltInverse(b uint64) uint64 {
	return modPow(b, mirtype.FieldPrime-2, mirtype.FieldPrime)
}

func modPow(base, exp, mod uint64) uint64 {
	result := uint64(1)
	base %= mod
	for exp > 0 {
		if exp&1 == 1 {
			result = (result * base) % mod
		}
		exp >>= 1
		base = (base * base) % mod
	}
	return result
}

func evalU32Binary(op mir.BinOp, a, b uint32) (mir.Literal, error) {
	switch op {
	case mir.BinAdd:
		return mir.IntLiteral(uint64(a + b)), nil
	case mir.BinSub:
		return mir.IntLiteral(uint64(a - b)), nil
	case mir.BinMul:
		return mir.IntLiteral(uint64(a * b)), nil
	case mir.BinDiv:
		if b == 0 {
			return mir.IntLiteral(uint64(mirtype.U32DivByZeroSentinel)), nil
		}
		return mir.IntLiteral(uint64(a / b)), nil
	case mir.BinAnd:
		return mir.IntLiteral(uint64(a & b)), nil
	case mir.BinOr:
		return mir.IntLiteral(uint64(a | b)), nil
	case mir.BinXor:
		return mir.IntLiteral(uint64(a ^ b)), nil
	default:
		return mir.Literal{}, errors.New("passes: unsupported u32 binary op")
	}
}

func evalComparison(op mir.BinOp, lhs, rhs mir.Literal, operandType *mirtype.MirType) (mir.Literal, error) {
	var lt bool
	var eq bool
	if operandType != nil && operandType.Kind == mirtype.KindBool {
		eq = lhs.Bool == rhs.Bool
		lt = !lhs.Bool && rhs.Bool
	} else {
		a, b := lhs.Int, rhs.Int
		if operandType != nil && operandType.Kind == mirtype.KindU32 {
			a, b = uint64(uint32(a)), uint64(uint32(b))
		} else {
			a, b = a%mirtype.FieldPrime, b%mirtype.FieldPrime
		}
		eq = a == b
		lt = a < b
	}
	switch op {
	case mir.BinEq:
		return mir.BoolLiteral(eq), nil
	case mir.BinNeq:
		return mir.BoolLiteral(!eq), nil
	case mir.BinLt:
		return mir.BoolLiteral(lt), nil
	case mir.BinLe:
		return mir.BoolLiteral(lt || eq), nil
	case mir.BinGt:
		return mir.BoolLiteral(!lt && !eq), nil
	case mir.BinGe:
		return mir.BoolLiteral(!lt), nil
	default:
		return mir.Literal{}, errors.New("passes: unsupported comparison op")
	}
}

// ValidateU32HighLimb reports whether hi is in range for CastU32ToFelt
// (spec.md §4.5: "validates high limb < 2^15"), used by the const
// evaluator's fold path. Codegen's runtime check compares against the same
// mirtype.U32HighLimbCastBound constant directly, so both agree on the bound.
func ValidateU32HighLimb(v uint32) bool {
	hi := v >> 16
	return hi < uint32(mirtype.U32HighLimbCastBound)
}

// EvalCastU32ToFelt folds CastU32ToFelt over a literal u32, combining the
// limbs as lo + hi*2^16 (spec.md §3 group 6). Returns an error if the
// high limb is out of range, the same bound the runtime assertion checks.
func (ConstEvaluator) EvalCastU32ToFelt(v uint32) (mir.Literal, error) {
	if !ValidateU32HighLimb(v) {
		return mir.Literal{}, errors.New("passes: u32->felt cast out of range")
	}
	lo := v & 0xFFFF
	hi := v >> 16
	return mir.IntLiteral(uint64(lo) + uint64(hi)<<16), nil
}
