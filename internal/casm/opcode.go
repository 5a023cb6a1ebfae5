// Package casm defines the target instruction set and on-disk program
// representation codegen emits into (C6, spec.md §4.5/§4.6): the
// frame-pointer-relative opcode table, the linear instruction|value
// program stream, and the JSON ABI descriptor a host driver reads to know
// how to place arguments and read return values.
//
// Grounded on the teacher's vm package (the opcode enumeration a real CPU
// decodes) and api/models.go (the plain tagged-struct JSON shapes the HTTP
// layer exchanges with clients) merged into one target format.
package casm

// Opcode enumerates every instruction the target VM accepts (spec.md
// §4.5). Names mirror the fp-relative addressing the frame-pointer ABI
// requires: every operand that is a local, argument, or return slot is
// expressed as a signed offset from fp, never an absolute address.
type Opcode int

const (
	OpInvalid Opcode = iota

	// felt arithmetic, both operands fp-relative
	StoreAddFpFp
	StoreSubFpFp
	StoreMulFpFp
	StoreDivFpFp
	StoreAndFpFp
	StoreOrFpFp
	StoreXorFpFp

	// felt arithmetic, rhs an immediate
	StoreAddFpImm
	StoreSubFpImm
	StoreMulFpImm
	StoreDivFpImm

	// u32 arithmetic, both operands fp-relative (wrapping, per spec.md §3)
	StoreU32AddFpFp
	StoreU32SubFpFp
	StoreU32MulFpFp
	StoreU32DivFpFp
	StoreU32AndFpFp
	StoreU32OrFpFp
	StoreU32XorFpFp

	// u32 arithmetic, rhs an immediate
	StoreU32AddFpImm
	StoreU32MulFpImm

	// comparisons, felt operands, fp-relative; store a 0/1 felt result
	StoreEqFpFp
	StoreNeqFpFp
	StoreLtFpFp
	StoreLeFpFp
	StoreGtFpFp
	StoreGeFpFp

	// felt comparison against an immediate; used by the CastU32ToFelt
	// high-limb bound check and by array bounds checks (spec.md §4.5) —
	// everywhere else a literal comparison operand is first materialized
	// into a scratch slot
	StoreLtFpImm

	// comparisons, u32 operands; neq/le/gt/ge are synthesized by the
	// selector from eq/lt (spec.md §4.5: "neq = 1-eq; gt(a,b)=lt(b,a);
	// le(a,b)=1-lt(b,a); ge(a,b)=1-lt(a,b)")
	StoreU32EqFpFp
	StoreU32LtFpFp

	// unary
	StoreNegFp
	StoreNotFp
	StoreU32NegFp
	StoreU32NotFp

	// moves, casts, constants
	StoreFpFp     // copy one fp slot to another
	StoreImm      // store an immediate felt/bool into an fp slot
	LoadConstAddr // store the resolved address of a rodata label into an fp slot
	StoreFrameAddr // store the absolute address of fp+imm into an fp slot, for
	               // arrays/aggregates-containing-arrays materialized in the
	               // local frame (spec.md §4.5: "arrays are held by a pointer")
	AssertNz // trap if an fp slot is zero

	// indirection: every array/aggregate-containing-array value is held as
	// a 1-slot pointer, so reading or writing one of its elements goes
	// through the pointer rather than a plain fp-relative offset (spec.md
	// §3 Pointer kind, §4.5 array element access)
	LoadIndirect  // dst = *(value_at(ptr_fp) + off), off an imm or an fp slot
	StoreIndirect // *(value_at(ptr_fp) + off) = value_at(src_fp), off an imm or an fp slot

	// control flow
	JmpAbsImm  // unconditional jump to a resolved label
	JnzFpImm   // branch if fp slot is nonzero, to a resolved label
	JzFpImm    // branch if fp slot is zero, to a resolved label
	CallAbsImm // bump fp by an immediate frame delta, push return address, jump to a resolved label
	Ret

	// debug
	PrintFelt
	PrintU32
)

func (o Opcode) String() string {
	names := [...]string{
		"invalid",
		"store_add_fp_fp", "store_sub_fp_fp", "store_mul_fp_fp", "store_div_fp_fp",
		"store_and_fp_fp", "store_or_fp_fp", "store_xor_fp_fp",
		"store_add_fp_imm", "store_sub_fp_imm", "store_mul_fp_imm", "store_div_fp_imm",
		"store_u32_add_fp_fp", "store_u32_sub_fp_fp", "store_u32_mul_fp_fp", "store_u32_div_fp_fp",
		"store_u32_and_fp_fp", "store_u32_or_fp_fp", "store_u32_xor_fp_fp",
		"store_u32_add_fp_imm", "store_u32_mul_fp_imm",
		"store_eq_fp_fp", "store_neq_fp_fp", "store_lt_fp_fp", "store_le_fp_fp", "store_gt_fp_fp", "store_ge_fp_fp",
		"store_lt_fp_imm",
		"store_u32_eq_fp_fp", "store_u32_lt_fp_fp",
		"store_neg_fp", "store_not_fp", "store_u32_neg_fp", "store_u32_not_fp",
		"store_fp_fp", "store_imm", "load_const_addr", "store_frame_addr", "assert_nz",
		"load_indirect", "store_indirect",
		"jmp_abs_imm", "jnz_fp_imm", "jz_fp_imm", "call_abs_imm", "ret",
		"print_felt", "print_u32",
	}
	if int(o) >= 0 && int(o) < len(names) {
		return names[o]
	}
	return "?opcode"
}
