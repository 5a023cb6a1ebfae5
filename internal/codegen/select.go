// Package codegen lowers optimized, SSA-destructed MIR into the casm
// target representation (C5, spec.md §4.5/§4.6): instruction selection,
// rodata deduplication, label resolution, and ABI descriptor assembly.
//
// Grounded on the teacher's encoder package
// (_examples/lookbusy1344-arm_emulator/encoder/encoder.go): one selector
// per function walks its instructions in final layout order and appends
// concrete target instructions directly, the same per-instruction-class
// dispatch shape the teacher's encodeDataProcessing/encodeBranch/... family
// uses.
package codegen

import (
	"fmt"

	"github.com/cairo-m/mirc/internal/casm"
	"github.com/cairo-m/mirc/internal/config"
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// selector lowers one mir.Function into prog, appending instructions
// directly in final program order (spec.md §4.5: selection and layout
// happen together, since the function's reverse-postorder block order is
// already the order code must appear in).
type selector struct {
	fn     *mir.Function
	frame  *Frame
	prog   *casm.ProgramData
	labels map[string]int
	rodata *rodataBuilder
	bounds bool
	diags  []*diag.Diagnostic
}

func newSelector(fn *mir.Function, frame *Frame, prog *casm.ProgramData, labels map[string]int, rodata *rodataBuilder, cfg *config.Config) *selector {
	return &selector{
		fn:     fn,
		frame:  frame,
		prog:   prog,
		labels: labels,
		rodata: rodata,
		bounds: cfg.Codegen.BoundsChecks,
	}
}

func blockLabel(fn string, b mir.BlockID) string {
	return fmt.Sprintf("%s@b%d", fn, b)
}

func (s *selector) errf(format string, args ...any) {
	s.diags = append(s.diags, diag.New(diag.CodegenError, s.fn.Name, fmt.Sprintf(format, args...)))
}

func (s *selector) emit(op casm.Opcode, operands ...casm.Operand) int {
	return s.prog.EmitInstruction(casm.Instruction{Op: op, Operands: operands})
}

// run selects every reachable block of s.fn, in CFG-layout order
// (mir.Function.ReversePostorder, which always starts with the entry
// block), eliding a trailing unconditional jump whenever the jump target
// is the block immediately following it in that order.
func (s *selector) run() []*diag.Diagnostic {
	order := s.fn.ReversePostorder()
	for idx, bid := range order {
		addr := s.prog.NextAddress()
		s.labels[blockLabel(s.fn.Name, bid)] = addr
		if bid == s.fn.Entry {
			s.labels[s.fn.Name] = addr
		}
		b := s.fn.Block(bid)
		for _, in := range b.Instr {
			s.selectInstr(in)
		}
		var next mir.BlockID
		hasNext := idx+1 < len(order)
		if hasNext {
			next = order[idx+1]
		}
		s.selectTerminator(b.Term, next, hasNext)
	}
	return s.diags
}

// slotOf returns the fp offset holding v: the value's own slot if v is a
// reference, or a freshly materialized scratch slot if v is a literal
// (spec.md §4.5: codegen's frame has no notion of an unbound literal, so
// every literal operand that cannot ride an immediate opcode form is
// written to a scratch slot first).
func (s *selector) slotOf(v mir.Value, t *mirtype.MirType) int {
	if v.IsRef() {
		return s.frame.Offset(v.Ref)
	}
	off := s.frame.Scratch(valueSlotCount(t))
	s.storeLiteral(off, v.Literal, t)
	return off
}

func (s *selector) storeLiteral(off int, lit mir.Literal, t *mirtype.MirType) {
	if t != nil && t.Kind == mirtype.KindU32 {
		v := uint32(lit.Int)
		s.emit(casm.StoreImm, casm.FpOperand(int32(off)), casm.ImmOperand(uint64(v&0xFFFF)))
		s.emit(casm.StoreImm, casm.FpOperand(int32(off+1)), casm.ImmOperand(uint64(v>>16)))
		return
	}
	var imm uint64
	if lit.Kind == mir.LitBool {
		if lit.Bool {
			imm = 1
		}
	} else {
		imm = lit.Int % mirtype.FieldPrime
	}
	s.emit(casm.StoreImm, casm.FpOperand(int32(off)), casm.ImmOperand(imm))
}

// copyInto writes v (literal or reference) into dstOff..dstOff+slots(t),
// the shared operation behind assignment, call-argument staging,
// return-value staging, and aggregate field writes.
func (s *selector) copyInto(dstOff int, v mir.Value, t *mirtype.MirType) {
	if v.IsLiteral() {
		s.storeLiteral(dstOff, v.Literal, t)
		return
	}
	s.copySlots(dstOff, s.frame.Offset(v.Ref), valueSlotCount(t))
}

func (s *selector) copySlots(dstOff, srcOff, n int) {
	for w := 0; w < n; w++ {
		s.emit(casm.StoreFpFp, casm.FpOperand(int32(dstOff+w)), casm.FpOperand(int32(srcOff+w)))
	}
}

func (s *selector) boundsCheck(idxOff, count int) {
	if !s.bounds {
		return
	}
	chk := s.frame.Scratch(1)
	s.emit(casm.StoreLtFpImm, casm.FpOperand(int32(chk)), casm.FpOperand(int32(idxOff)), casm.ImmOperand(uint64(count)))
	s.emit(casm.AssertNz, casm.FpOperand(int32(chk)))
}

func (s *selector) selectInstr(in *mir.Instr) {
	switch in.Op {
	case mir.OpAssign:
		s.selectAssign(in)
	case mir.OpBinary:
		s.selectBinary(in)
	case mir.OpUnary:
		s.selectUnary(in)
	case mir.OpCall:
		s.selectCall(in)
	case mir.OpCastU32ToFelt:
		s.selectCast(in)
	case mir.OpPrintFelt:
		off := s.slotOf(in.Src, mirtype.Felt())
		s.emit(casm.PrintFelt, casm.FpOperand(int32(off)))
	case mir.OpPrintU32:
		off := s.slotOf(in.Src, mirtype.U32())
		s.emit(casm.PrintU32, casm.FpOperand(int32(off)))
	case mir.OpMakeTuple, mir.OpMakeStruct, mir.OpMakeFixedArray:
		s.selectMake(in)
	case mir.OpExtractTupleElement, mir.OpExtractStructField, mir.OpExtractArrayElement:
		s.selectExtract(in)
	case mir.OpInsertTuple, mir.OpInsertField, mir.OpInsertArrayElement:
		s.selectInsert(in)
	case mir.OpPhi:
		// Phis never reach codegen: internal/passes.SSADestruction (Stage
		// B) always runs before this package sees the function.
		s.errf("phi instruction reached codegen, SSA destruction did not run")
	default:
		s.errf("unsupported instruction %s reached codegen", in.Op)
	}
}

func (s *selector) selectAssign(in *mir.Instr) {
	dst := s.frame.Offset(in.Dst)
	s.copyInto(dst, in.Src, in.Type)
}

func (s *selector) selectUnary(in *mir.Instr) {
	dst := s.frame.Offset(in.Dst)
	isU32 := in.OperandType != nil && in.OperandType.Kind == mirtype.KindU32
	typ := mirtype.Felt()
	if isU32 {
		typ = mirtype.U32()
	}
	off := s.slotOf(in.Operand, typ)
	var op casm.Opcode
	switch {
	case in.UnOp == mir.UnNeg && !isU32:
		op = casm.StoreNegFp
	case in.UnOp == mir.UnNeg && isU32:
		op = casm.StoreU32NegFp
	case in.UnOp == mir.UnNot && !isU32:
		op = casm.StoreNotFp
	default:
		op = casm.StoreU32NotFp
	}
	s.emit(op, casm.FpOperand(int32(dst)), casm.FpOperand(int32(off)))
}

func (s *selector) selectCast(in *mir.Instr) {
	srcOff := s.slotOf(in.Src, mirtype.U32())
	hiOff := srcOff + 1
	chk := s.frame.Scratch(1)
	s.emit(casm.StoreLtFpImm, casm.FpOperand(int32(chk)), casm.FpOperand(int32(hiOff)), casm.ImmOperand(uint64(mirtype.U32HighLimbCastBound)))
	s.emit(casm.AssertNz, casm.FpOperand(int32(chk)))
	scaled := s.frame.Scratch(1)
	s.emit(casm.StoreMulFpImm, casm.FpOperand(int32(scaled)), casm.FpOperand(int32(hiOff)), casm.ImmOperand(1<<16))
	dst := s.frame.Offset(in.Dst)
	s.emit(casm.StoreAddFpFp, casm.FpOperand(int32(dst)), casm.FpOperand(int32(srcOff)), casm.FpOperand(int32(scaled)))
}

func (s *selector) selectCall(in *mir.Instr) {
	layout, ok := s.frame.Calls[in]
	if !ok {
		s.errf("call has no staging layout")
		return
	}
	argOff := layout.ArgBase
	for i, a := range in.Args {
		t := in.Signature.Params[i]
		s.copyInto(argOff, a, t)
		argOff += valueSlotCount(t)
	}
	s.emit(casm.CallAbsImm, casm.ImmOperand(uint64(layout.FrameDelta)), casm.LabelOperand(in.Callee))
	retOff := layout.RetBase
	for i, d := range in.Dsts {
		t := in.Signature.Returns[i]
		n := valueSlotCount(t)
		s.copySlots(s.frame.Offset(d), retOff, n)
		retOff += n
	}
}

// emitCompare lowers a single comparison/arithmetic binary op into dst,
// shared between OpBinary selection and BranchCmp terminator selection
// (the latter has no pre-existing destination SSA value, only a scratch
// slot the caller allocates).
func (s *selector) emitCompare(lhs mir.Value, op mir.BinOp, rhs mir.Value, t *mirtype.MirType, dst int) {
	synthetic := &mir.Instr{BinOp: op, Lhs: lhs, Rhs: rhs, OperandType: t}
	if t != nil && t.Kind == mirtype.KindU32 {
		s.selectU32Binary(synthetic, dst)
		return
	}
	s.selectFeltBinary(synthetic, dst)
}

func (s *selector) inferType(a, b mir.Value) *mirtype.MirType {
	if a.IsRef() {
		if t, ok := s.fn.Registry.TypeOf(a.Ref); ok {
			return t
		}
	}
	if b.IsRef() {
		if t, ok := s.fn.Registry.TypeOf(b.Ref); ok {
			return t
		}
	}
	return mirtype.Felt()
}

func (s *selector) selectBinary(in *mir.Instr) {
	dst := s.frame.Offset(in.Dst)
	if in.OperandType != nil && in.OperandType.Kind == mirtype.KindU32 {
		s.selectU32Binary(in, dst)
		return
	}
	s.selectFeltBinary(in, dst)
}

type feltOpcodePair struct {
	fpfp, fpimm casm.Opcode
}

var feltBinOpcodes = map[mir.BinOp]feltOpcodePair{
	mir.BinAdd: {casm.StoreAddFpFp, casm.StoreAddFpImm},
	mir.BinSub: {casm.StoreSubFpFp, casm.StoreSubFpImm},
	mir.BinMul: {casm.StoreMulFpFp, casm.StoreMulFpImm},
	mir.BinDiv: {casm.StoreDivFpFp, casm.StoreDivFpImm},
	mir.BinAnd: {casm.StoreAndFpFp, casm.OpInvalid},
	mir.BinOr:  {casm.StoreOrFpFp, casm.OpInvalid},
	mir.BinXor: {casm.StoreXorFpFp, casm.OpInvalid},
	mir.BinEq:  {casm.StoreEqFpFp, casm.OpInvalid},
	mir.BinNeq: {casm.StoreNeqFpFp, casm.OpInvalid},
	mir.BinLt:  {casm.StoreLtFpFp, casm.OpInvalid},
	mir.BinLe:  {casm.StoreLeFpFp, casm.OpInvalid},
	mir.BinGt:  {casm.StoreGtFpFp, casm.OpInvalid},
	mir.BinGe:  {casm.StoreGeFpFp, casm.OpInvalid},
}

func (s *selector) selectFeltBinary(in *mir.Instr, dst int) {
	pair, ok := feltBinOpcodes[in.BinOp]
	if !ok {
		s.errf("no felt opcode for binary op %s", in.BinOp)
		return
	}
	if in.Rhs.IsLiteral() && pair.fpimm != casm.OpInvalid {
		if in.BinOp == mir.BinDiv {
			if in.Rhs.Literal.Int%mirtype.FieldPrime == 0 {
				s.errf("division by zero immediate")
				return
			}
			lhsOff := s.slotOf(in.Lhs, mirtype.Felt())
			inv := feltInverse(in.Rhs.Literal.Int % mirtype.FieldPrime)
			s.emit(casm.StoreMulFpImm, casm.FpOperand(int32(dst)), casm.FpOperand(int32(lhsOff)), casm.ImmOperand(inv))
			return
		}
		lhsOff := s.slotOf(in.Lhs, mirtype.Felt())
		s.emit(pair.fpimm, casm.FpOperand(int32(dst)), casm.FpOperand(int32(lhsOff)), casm.ImmOperand(in.Rhs.Literal.Int%mirtype.FieldPrime))
		return
	}
	lhsOff := s.slotOf(in.Lhs, mirtype.Felt())
	rhsOff := s.slotOf(in.Rhs, mirtype.Felt())
	s.emit(pair.fpfp, casm.FpOperand(int32(dst)), casm.FpOperand(int32(lhsOff)), casm.FpOperand(int32(rhsOff)))
}

func (s *selector) u32ArithFpFpOrImm(in *mir.Instr, dst int, fpfp, fpimm casm.Opcode) {
	if in.Rhs.IsLiteral() {
		lhsOff := s.slotOf(in.Lhs, mirtype.U32())
		v := uint32(in.Rhs.Literal.Int)
		s.emit(fpimm, casm.FpOperand(int32(dst)), casm.FpOperand(int32(lhsOff)), casm.ImmOperand(uint64(v)))
		return
	}
	lhsOff := s.slotOf(in.Lhs, mirtype.U32())
	rhsOff := s.slotOf(in.Rhs, mirtype.U32())
	s.emit(fpfp, casm.FpOperand(int32(dst)), casm.FpOperand(int32(lhsOff)), casm.FpOperand(int32(rhsOff)))
}

func (s *selector) u32BinaryFpFp(in *mir.Instr, dst int, op casm.Opcode) {
	lhsOff := s.slotOf(in.Lhs, mirtype.U32())
	rhsOff := s.slotOf(in.Rhs, mirtype.U32())
	s.emit(op, casm.FpOperand(int32(dst)), casm.FpOperand(int32(lhsOff)), casm.FpOperand(int32(rhsOff)))
}

func (s *selector) selectU32Binary(in *mir.Instr, dst int) {
	switch in.BinOp {
	case mir.BinAdd:
		s.u32ArithFpFpOrImm(in, dst, casm.StoreU32AddFpFp, casm.StoreU32AddFpImm)
	case mir.BinMul:
		s.u32ArithFpFpOrImm(in, dst, casm.StoreU32MulFpFp, casm.StoreU32MulFpImm)
	case mir.BinSub:
		// internal/passes.Legalize rewrites sub-by-immediate into
		// add-by-negated-immediate before codegen ever sees it (no
		// StoreU32SubFpImm opcode exists), so a Sub reaching here always
		// has two fp-resident operands.
		s.u32BinaryFpFp(in, dst, casm.StoreU32SubFpFp)
	case mir.BinDiv:
		s.u32BinaryFpFp(in, dst, casm.StoreU32DivFpFp)
	case mir.BinAnd:
		s.u32BinaryFpFp(in, dst, casm.StoreU32AndFpFp)
	case mir.BinOr:
		s.u32BinaryFpFp(in, dst, casm.StoreU32OrFpFp)
	case mir.BinXor:
		s.u32BinaryFpFp(in, dst, casm.StoreU32XorFpFp)
	case mir.BinEq:
		s.u32BinaryFpFp(in, dst, casm.StoreU32EqFpFp)
	case mir.BinLt:
		s.u32BinaryFpFp(in, dst, casm.StoreU32LtFpFp)
	case mir.BinLe:
		// le(a,b) = 1 - lt(b,a) (spec.md §4.5): operands swapped at selection.
		lhsOff := s.slotOf(in.Lhs, mirtype.U32())
		rhsOff := s.slotOf(in.Rhs, mirtype.U32())
		s.emit(casm.StoreU32LtFpFp, casm.FpOperand(int32(dst)), casm.FpOperand(int32(rhsOff)), casm.FpOperand(int32(lhsOff)))
		s.emit(casm.StoreNotFp, casm.FpOperand(int32(dst)), casm.FpOperand(int32(dst)))
	case mir.BinNeq:
		// neq = 1 - eq (spec.md §4.5).
		s.u32BinaryFpFp(in, dst, casm.StoreU32EqFpFp)
		s.emit(casm.StoreNotFp, casm.FpOperand(int32(dst)), casm.FpOperand(int32(dst)))
	case mir.BinGt:
		// gt(a,b) = lt(b,a) (spec.md §4.5): operands swapped at selection.
		lhsOff := s.slotOf(in.Lhs, mirtype.U32())
		rhsOff := s.slotOf(in.Rhs, mirtype.U32())
		s.emit(casm.StoreU32LtFpFp, casm.FpOperand(int32(dst)), casm.FpOperand(int32(rhsOff)), casm.FpOperand(int32(lhsOff)))
	case mir.BinGe:
		// ge(a,b) = 1 - lt(a,b) (spec.md §4.5).
		s.u32BinaryFpFp(in, dst, casm.StoreU32LtFpFp)
		s.emit(casm.StoreNotFp, casm.FpOperand(int32(dst)), casm.FpOperand(int32(dst)))
	default:
		s.errf("no u32 opcode for binary op %s", in.BinOp)
	}
}

func (s *selector) selectTerminator(t mir.Terminator, next mir.BlockID, hasNext bool) {
	switch t.Kind {
	case mir.TermJump:
		if hasNext && t.Target == next {
			return
		}
		s.emit(casm.JmpAbsImm, casm.LabelOperand(blockLabel(s.fn.Name, t.Target)))
	case mir.TermBranchIf:
		condOff := s.slotOf(t.Cond, mirtype.Bool())
		s.emit(casm.JnzFpImm, casm.FpOperand(int32(condOff)), casm.LabelOperand(blockLabel(s.fn.Name, t.Then)))
		if !(hasNext && t.Else == next) {
			s.emit(casm.JmpAbsImm, casm.LabelOperand(blockLabel(s.fn.Name, t.Else)))
		}
	case mir.TermBranchCmp:
		scratch := s.frame.Scratch(1)
		typ := s.inferType(t.Lhs, t.Rhs)
		s.emitCompare(t.Lhs, t.CmpOp, t.Rhs, typ, scratch)
		s.emit(casm.JnzFpImm, casm.FpOperand(int32(scratch)), casm.LabelOperand(blockLabel(s.fn.Name, t.Then)))
		if !(hasNext && t.Else == next) {
			s.emit(casm.JmpAbsImm, casm.LabelOperand(blockLabel(s.fn.Name, t.Else)))
		}
	case mir.TermReturn:
		for i, v := range t.Values {
			rt := s.fn.Signature.Returns[i]
			s.copyInto(s.frame.ReturnSlots[i], v, rt)
		}
		s.emit(casm.Ret)
	default:
		s.errf("block %s has no terminator", s.fn.Name)
	}
}

// literalWords expands a scalar literal into its program-word encoding
// (spec.md §6: felt/bool one word, u32 lo/hi), used only when building a
// constant-array rodata blob; non-scalar elements cannot occur here since
// MIR has no aggregate literal kind.
func literalWords(lit mir.Literal, t *mirtype.MirType) []uint64 {
	if t != nil && t.Kind == mirtype.KindU32 {
		v := uint32(lit.Int)
		return []uint64{uint64(v & 0xFFFF), uint64(v >> 16)}
	}
	if lit.Kind == mir.LitBool {
		if lit.Bool {
			return []uint64{1}
		}
		return []uint64{0}
	}
	return []uint64{lit.Int % mirtype.FieldPrime}
}

func (s *selector) selectMake(in *mir.Instr) {
	switch in.Op {
	case mir.OpMakeTuple:
		dstOff := s.frame.Offset(in.Dst)
		for i, e := range in.Elems {
			et := in.Type.Elements[i]
			s.copyInto(dstOff+mirtype.TupleOffset(in.Type, i), e, et)
		}
	case mir.OpMakeStruct:
		dstOff := s.frame.Offset(in.Dst)
		for i, name := range in.FieldNames {
			fo, err := mirtype.StructFieldOffset(in.Type, name)
			if err != nil {
				s.errf("%s", err)
				return
			}
			s.copyInto(dstOff+fo, in.FieldValues[i], fieldType(in.Type, name))
		}
	case mir.OpMakeFixedArray:
		s.selectMakeArray(in)
	}
}

func fieldType(t *mirtype.MirType, name string) *mirtype.MirType {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return nil
}

func (s *selector) selectMakeArray(in *mir.Instr) {
	elemType := in.Type.Elem
	elemSlots := mirtype.SlotCount(elemType)
	ptrOff := s.frame.Offset(in.Dst)
	if in.IsConst {
		words := make([]uint64, 0, elemSlots*len(in.Elems))
		for _, e := range in.Elems {
			if !e.IsLiteral() {
				s.errf("const array element is not a literal")
				return
			}
			words = append(words, literalWords(e.Literal, elemType)...)
		}
		label := s.rodata.add(words)
		s.emit(casm.LoadConstAddr, casm.FpOperand(int32(ptrOff)), casm.LabelOperand(label))
		return
	}
	backing := s.frame.Scratch(elemSlots * len(in.Elems))
	for i, e := range in.Elems {
		s.copyInto(backing+i*elemSlots, e, elemType)
	}
	s.emit(casm.StoreFrameAddr, casm.FpOperand(int32(ptrOff)), casm.ImmOperand(uint64(backing)))
}

func (s *selector) selectExtract(in *mir.Instr) {
	switch in.Op {
	case mir.OpExtractTupleElement:
		baseType, _ := s.fn.Registry.TypeOf(in.Base.Ref)
		baseOff := s.frame.Offset(in.Base.Ref)
		off := baseOff + mirtype.TupleOffset(baseType, in.Index)
		s.copySlots(s.frame.Offset(in.Dst), off, mirtype.SlotCount(in.Type))
	case mir.OpExtractStructField:
		baseType, _ := s.fn.Registry.TypeOf(in.Base.Ref)
		baseOff := s.frame.Offset(in.Base.Ref)
		fo, err := mirtype.StructFieldOffset(baseType, in.FieldName)
		if err != nil {
			s.errf("%s", err)
			return
		}
		s.copySlots(s.frame.Offset(in.Dst), baseOff+fo, mirtype.SlotCount(in.Type))
	case mir.OpExtractArrayElement:
		s.selectExtractArrayElement(in)
	}
}

// selectExtractArrayElement reads through the array's fp-resident pointer
// (spec.md §3 Pointer kind), computing a compile-time constant offset for
// a static index or a runtime-computed one in a scratch slot for a
// dynamic index.
func (s *selector) selectExtractArrayElement(in *mir.Instr) {
	baseType, _ := s.fn.Registry.TypeOf(in.Base.Ref)
	elemSlots := mirtype.SlotCount(baseType.Elem)
	ptrOff := s.frame.Offset(in.Base.Ref)
	dstOff := s.frame.Offset(in.Dst)
	if !in.HasDynIndex {
		base := in.Index * elemSlots
		for w := 0; w < elemSlots; w++ {
			s.emit(casm.LoadIndirect, casm.FpOperand(int32(dstOff+w)), casm.FpOperand(int32(ptrOff)), casm.ImmOperand(uint64(base+w)))
		}
		return
	}
	idxOff := s.slotOf(in.DynamicIndex, mirtype.Felt())
	s.boundsCheck(idxOff, baseType.Count)
	for w := 0; w < elemSlots; w++ {
		offSlot := s.dynamicElementOffset(idxOff, elemSlots, w)
		s.emit(casm.LoadIndirect, casm.FpOperand(int32(dstOff+w)), casm.FpOperand(int32(ptrOff)), casm.FpOperand(int32(offSlot)))
	}
}

// dynamicElementOffset materializes idx*elemSlots+w, the element's word
// offset from the array's backing address, into a fresh scratch slot.
// LoadIndirect/StoreIndirect's offset operand may be either a compile-time
// immediate or an fp slot holding a value computed at runtime; only a
// dynamic index needs the latter.
func (s *selector) dynamicElementOffset(idxOff, elemSlots, w int) int {
	offSlot := s.frame.Scratch(1)
	s.emit(casm.StoreMulFpImm, casm.FpOperand(int32(offSlot)), casm.FpOperand(int32(idxOff)), casm.ImmOperand(uint64(elemSlots)))
	if w > 0 {
		s.emit(casm.StoreAddFpImm, casm.FpOperand(int32(offSlot)), casm.FpOperand(int32(offSlot)), casm.ImmOperand(uint64(w)))
	}
	return offSlot
}

func (s *selector) selectInsert(in *mir.Instr) {
	switch in.Op {
	case mir.OpInsertTuple:
		baseOff := s.frame.Offset(in.Base.Ref)
		dstOff := s.frame.Offset(in.Dst)
		s.copySlots(dstOff, baseOff, mirtype.SlotCount(in.Type))
		elemType := in.Type.Elements[in.Index]
		s.copyInto(dstOff+mirtype.TupleOffset(in.Type, in.Index), in.Src, elemType)
	case mir.OpInsertField:
		baseOff := s.frame.Offset(in.Base.Ref)
		dstOff := s.frame.Offset(in.Dst)
		s.copySlots(dstOff, baseOff, mirtype.SlotCount(in.Type))
		fo, err := mirtype.StructFieldOffset(in.Type, in.FieldName)
		if err != nil {
			s.errf("%s", err)
			return
		}
		s.copyInto(dstOff+fo, in.Src, fieldType(in.Type, in.FieldName))
	case mir.OpInsertArrayElement:
		s.selectInsertArrayElement(in)
	}
}

// selectInsertArrayElement implements the spec's "array update is
// functional" rule by always copying the whole array into a fresh backing
// region before overwriting the updated element (spec.md §4.5 allows, but
// does not require, recognizing a non-escaping in-place update; this
// selector always takes the always-copy path).
func (s *selector) selectInsertArrayElement(in *mir.Instr) {
	baseType, _ := s.fn.Registry.TypeOf(in.Base.Ref)
	elemType := baseType.Elem
	elemSlots := mirtype.SlotCount(elemType)
	total := elemSlots * baseType.Count
	ptrOff := s.frame.Offset(in.Base.Ref)
	newBacking := s.frame.Scratch(total)
	for i := 0; i < baseType.Count; i++ {
		for w := 0; w < elemSlots; w++ {
			off := i*elemSlots + w
			tmp := s.frame.Scratch(1)
			s.emit(casm.LoadIndirect, casm.FpOperand(int32(tmp)), casm.FpOperand(int32(ptrOff)), casm.ImmOperand(uint64(off)))
			s.emit(casm.StoreFpFp, casm.FpOperand(int32(newBacking+off)), casm.FpOperand(int32(tmp)))
		}
	}
	newPtr := s.frame.Scratch(1)
	s.emit(casm.StoreFrameAddr, casm.FpOperand(int32(newPtr)), casm.ImmOperand(uint64(newBacking)))

	srcOff := s.slotOf(in.Src, elemType)
	if in.HasDynIndex {
		idxOff := s.slotOf(in.DynamicIndex, mirtype.Felt())
		s.boundsCheck(idxOff, baseType.Count)
		for w := 0; w < elemSlots; w++ {
			offSlot := s.dynamicElementOffset(idxOff, elemSlots, w)
			s.emit(casm.StoreIndirect, casm.FpOperand(int32(newPtr)), casm.FpOperand(int32(offSlot)), casm.FpOperand(int32(srcOff+w)))
		}
	} else {
		for w := 0; w < elemSlots; w++ {
			off := in.Index*elemSlots + w
			s.emit(casm.StoreIndirect, casm.FpOperand(int32(newPtr)), casm.ImmOperand(uint64(off)), casm.FpOperand(int32(srcOff+w)))
		}
	}

	s.emit(casm.StoreFpFp, casm.FpOperand(int32(s.frame.Offset(in.Dst))), casm.FpOperand(int32(newPtr)))
}

// feltInverse computes b^-1 mod P via Fermat's little theorem, the rule
// spec.md §4.5 names for division-by-immediate lowering — the same rule
// internal/passes.ConstEvaluator uses for compile-time folds (spec.md §8
// property 5 requires both to agree bit-for-bit). Codegen keeps its own
// copy rather than importing internal/passes, which depends on codegen's
// sibling packages but never the reverse.
func feltInverse(b uint64) uint64 {
	return modPow(b%mirtype.FieldPrime, mirtype.FieldPrime-2, mirtype.FieldPrime)
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
