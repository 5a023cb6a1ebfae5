package builder

import (
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
	"github.com/cairo-m/mirc/pkg/ast"
	"github.com/cairo-m/mirc/pkg/semindex"
)

// fnBuilder lowers one ast.Function into one mir.Function, owning both the
// SSA-construction state and the loop-target stack break/continue need.
type fnBuilder struct {
	mod   *builderModule
	f     *mir.Function
	ssa   *ssaState
	sink  *diag.Sink
	index semindex.Index
	fname string

	curBlock mir.BlockID
	loops    []loopCtx
}

// loopCtx is one entry of the break/continue target stack (spec.md §4.2:
// "a loop-target stack so break/continue resolve to the innermost loop").
type loopCtx struct {
	breakTarget    mir.BlockID
	continueTarget mir.BlockID
}

func (fb *fnBuilder) typeOfExpr(e ast.Expr) *mirtype.MirType {
	n := exprNode(e)
	t, ok := fb.index.TypeOfExpr(n.ID)
	if !ok {
		fb.sink.Fatal(diag.NewAt(diag.LoweringError, fb.fname, n.Span, "expression has no resolved type in the semantic index"))
		return mirtype.Unit()
	}
	return t
}

// exprNode extracts the embedded ast.Node from a concrete expression type.
// ast.Expr's node() accessor is unexported, so callers outside package ast
// must type-switch on the concrete type and read its embedded Node field.
func exprNode(e ast.Expr) ast.Node {
	switch v := e.(type) {
	case *ast.IntLit:
		return v.Node
	case *ast.BoolLit:
		return v.Node
	case *ast.UnitLit:
		return v.Node
	case *ast.Ident:
		return v.Node
	case *ast.Binary:
		return v.Node
	case *ast.Unary:
		return v.Node
	case *ast.Call:
		return v.Node
	case *ast.TupleLit:
		return v.Node
	case *ast.StructLit:
		return v.Node
	case *ast.ArrayLit:
		return v.Node
	case *ast.FieldAccess:
		return v.Node
	case *ast.TupleIndex:
		return v.Node
	case *ast.Index:
		return v.Node
	default:
		return ast.Node{}
	}
}

// emit allocates a fresh value and pushes in, wiring in.Dst to it.
func (fb *fnBuilder) emit(block mir.BlockID, t *mirtype.MirType, in *mir.Instr) (mir.Value, error) {
	id, err := fb.f.Registry.NewValue(t)
	if err != nil {
		return mir.Value{}, err
	}
	in.Dst = id
	in.Type = t
	if err := fb.f.Block(block).PushInstruction(in); err != nil {
		return mir.Value{}, err
	}
	return mir.RefValue(id), nil
}

// lowerExpr lowers a single-result expression into the current block,
// returning the value it produces. Multi-result calls are handled
// separately by lowerCallMulti where the caller needs all results.
func (fb *fnBuilder) lowerExpr(e ast.Expr) mir.Value {
	switch v := e.(type) {
	case *ast.IntLit:
		return mir.LitValue(mir.IntLiteral(v.Value))
	case *ast.BoolLit:
		return mir.LitValue(mir.BoolLiteral(v.Value))
	case *ast.UnitLit:
		return mir.LitValue(mir.UnitLiteral())
	case *ast.Ident:
		fb.ssa.declareVarType(v.Def, fb.typeOfExpr(e))
		val, err := fb.ssa.readVariable(v.Def, fb.cur())
		if err != nil {
			fb.fatal(v.Node, err.Error())
			return mir.LitValue(mir.ErrorLiteral())
		}
		return val
	case *ast.Unary:
		return fb.lowerUnary(v)
	case *ast.Binary:
		return fb.lowerBinary(v)
	case *ast.Call:
		results := fb.lowerCallMulti(v)
		if len(results) == 0 {
			return mir.LitValue(mir.UnitLiteral())
		}
		return results[0]
	case *ast.TupleLit:
		return fb.lowerTupleLit(v)
	case *ast.StructLit:
		return fb.lowerStructLit(v)
	case *ast.ArrayLit:
		return fb.lowerArrayLit(v)
	case *ast.FieldAccess:
		return fb.lowerFieldAccess(v)
	case *ast.TupleIndex:
		return fb.lowerTupleIndex(v)
	case *ast.Index:
		return fb.lowerIndex(v)
	default:
		fb.fatal(ast.Node{}, "unsupported expression form")
		return mir.LitValue(mir.ErrorLiteral())
	}
}

func (fb *fnBuilder) lowerUnary(v *ast.Unary) mir.Value {
	operand := fb.lowerExpr(v.Operand)
	t := fb.typeOfExpr(v)
	operandType := fb.typeOfExpr(v.Operand)
	op := mir.UnNeg
	if v.Op == ast.UnNot {
		op = mir.UnNot
	}
	val, err := fb.emit(fb.cur(), t, &mir.Instr{Op: mir.OpUnary, UnOp: op, Operand: operand, OperandType: operandType})
	if err != nil {
		fb.fatal(v.Node, err.Error())
		return mir.LitValue(mir.ErrorLiteral())
	}
	return val
}

func astBinToMir(op ast.BinOpKind) mir.BinOp {
	switch op {
	case ast.OpAdd:
		return mir.BinAdd
	case ast.OpSub:
		return mir.BinSub
	case ast.OpMul:
		return mir.BinMul
	case ast.OpDiv:
		return mir.BinDiv
	case ast.OpAnd:
		return mir.BinAnd
	case ast.OpOr:
		return mir.BinOr
	case ast.OpXor:
		return mir.BinXor
	case ast.OpEq:
		return mir.BinEq
	case ast.OpNeq:
		return mir.BinNeq
	case ast.OpLt:
		return mir.BinLt
	case ast.OpLe:
		return mir.BinLe
	case ast.OpGt:
		return mir.BinGt
	default:
		return mir.BinGe
	}
}

// lowerBinary lowers a binary expression. Short-circuit && / || on bool
// operands are lowered to control flow with a phi joining the two paths
// (spec.md §4.2), everything else to a single OpBinary.
func (fb *fnBuilder) lowerBinary(v *ast.Binary) mir.Value {
	if v.ShortCircuit && (v.Op == ast.OpAnd || v.Op == ast.OpOr) {
		return fb.lowerShortCircuit(v)
	}

	lhs := fb.lowerExpr(v.Lhs)
	rhs := fb.lowerExpr(v.Rhs)
	t := fb.typeOfExpr(v)
	operandType := fb.typeOfExpr(v.Lhs)
	val, err := fb.emit(fb.cur(), t, &mir.Instr{Op: mir.OpBinary, BinOp: astBinToMir(v.Op), Lhs: lhs, Rhs: rhs, OperandType: operandType})
	if err != nil {
		fb.fatal(v.Node, err.Error())
		return mir.LitValue(mir.ErrorLiteral())
	}
	return val
}

// lowerShortCircuit lowers `a && b` as: evaluate a; if false, join with
// false; else evaluate b and join with its value. `a || b` is the dual.
func (fb *fnBuilder) lowerShortCircuit(v *ast.Binary) mir.Value {
	lhs := fb.lowerExpr(v.Lhs)

	rhsBlock := fb.f.NewBlock("scrhs")
	joinBlock := fb.f.NewBlock("scjoin")

	entryBlock := fb.cur()
	if v.Op == ast.OpAnd {
		fb.mustSetTerm(entryBlock, mir.BranchIf(lhs, rhsBlock.ID, joinBlock.ID))
	} else {
		fb.mustSetTerm(entryBlock, mir.BranchIf(lhs, joinBlock.ID, rhsBlock.ID))
	}
	if err := fb.ssa.sealBlock(rhsBlock.ID); err != nil {
		fb.fatal(v.Node, err.Error())
	}

	fb.setCur(rhsBlock.ID)
	rhs := fb.lowerExpr(v.Rhs)
	rhsEnd := fb.cur()
	fb.mustSetTerm(rhsEnd, mir.Jump(joinBlock.ID))

	if err := fb.ssa.sealBlock(joinBlock.ID); err != nil {
		fb.fatal(v.Node, err.Error())
	}
	fb.setCur(joinBlock.ID)

	t := fb.typeOfExpr(v)
	id, err := fb.f.Registry.NewValue(t)
	if err != nil {
		fb.fatal(v.Node, err.Error())
		return mir.LitValue(mir.ErrorLiteral())
	}
	shortValue := mir.LitValue(mir.BoolLiteral(v.Op == ast.OpOr))
	phi := &mir.Instr{Op: mir.OpPhi, Dst: id, Type: t, Incoming: []mir.PhiIncoming{
		{Pred: entryBlock, Value: shortValue},
		{Pred: rhsEnd, Value: rhs},
	}}
	if err := fb.f.Block(joinBlock.ID).PushInstruction(phi); err != nil {
		fb.fatal(v.Node, err.Error())
		return mir.LitValue(mir.ErrorLiteral())
	}
	return mir.RefValue(id)
}

func (fb *fnBuilder) lowerCallMulti(v *ast.Call) []mir.Value {
	sig, ok := fb.index.LookupFunction(v.Callee)
	if !ok {
		fb.fatal(v.Node, "call to unresolved function "+v.Callee)
		return nil
	}
	args := make([]mir.Value, len(v.Args))
	for i, a := range v.Args {
		args[i] = fb.lowerExpr(a)
	}
	dsts := make([]mir.ValueID, len(sig.Returns))
	for i, rt := range sig.Returns {
		id, err := fb.f.Registry.NewValue(rt)
		if err != nil {
			fb.fatal(v.Node, err.Error())
			return nil
		}
		dsts[i] = id
	}
	in := &mir.Instr{
		Op:        mir.OpCall,
		Dsts:      dsts,
		Callee:    v.Callee,
		Args:      args,
		Signature: mir.CallSignature{Params: sig.Params, Returns: sig.Returns},
	}
	if err := fb.f.Block(fb.cur()).PushInstruction(in); err != nil {
		fb.fatal(v.Node, err.Error())
		return nil
	}
	out := make([]mir.Value, len(dsts))
	for i, id := range dsts {
		out[i] = mir.RefValue(id)
	}
	return out
}

func (fb *fnBuilder) lowerTupleLit(v *ast.TupleLit) mir.Value {
	elems := make([]mir.Value, len(v.Elems))
	for i, e := range v.Elems {
		elems[i] = fb.lowerExpr(e)
	}
	t := fb.typeOfExpr(v)
	val, err := fb.emit(fb.cur(), t, &mir.Instr{Op: mir.OpMakeTuple, Elems: elems})
	if err != nil {
		fb.fatal(v.Node, err.Error())
		return mir.LitValue(mir.ErrorLiteral())
	}
	return val
}

func (fb *fnBuilder) lowerStructLit(v *ast.StructLit) mir.Value {
	values := make([]mir.Value, len(v.FieldValues))
	for i, e := range v.FieldValues {
		values[i] = fb.lowerExpr(e)
	}
	t := fb.typeOfExpr(v)
	val, err := fb.emit(fb.cur(), t, &mir.Instr{Op: mir.OpMakeStruct, FieldNames: v.FieldNames, FieldValues: values})
	if err != nil {
		fb.fatal(v.Node, err.Error())
		return mir.LitValue(mir.ErrorLiteral())
	}
	return val
}

func (fb *fnBuilder) lowerArrayLit(v *ast.ArrayLit) mir.Value {
	elems := make([]mir.Value, len(v.Elems))
	for i, e := range v.Elems {
		elems[i] = fb.lowerExpr(e)
	}
	t := fb.typeOfExpr(v)
	val, err := fb.emit(fb.cur(), t, &mir.Instr{Op: mir.OpMakeFixedArray, Elems: elems, IsConst: v.IsConst})
	if err != nil {
		fb.fatal(v.Node, err.Error())
		return mir.LitValue(mir.ErrorLiteral())
	}
	return val
}

func (fb *fnBuilder) lowerFieldAccess(v *ast.FieldAccess) mir.Value {
	base := fb.lowerExpr(v.Base)
	t := fb.typeOfExpr(v)
	val, err := fb.emit(fb.cur(), t, &mir.Instr{Op: mir.OpExtractStructField, Base: base, FieldName: v.Field})
	if err != nil {
		fb.fatal(v.Node, err.Error())
		return mir.LitValue(mir.ErrorLiteral())
	}
	return val
}

func (fb *fnBuilder) lowerTupleIndex(v *ast.TupleIndex) mir.Value {
	base := fb.lowerExpr(v.Base)
	t := fb.typeOfExpr(v)
	val, err := fb.emit(fb.cur(), t, &mir.Instr{Op: mir.OpExtractTupleElement, Base: base, Index: v.Index})
	if err != nil {
		fb.fatal(v.Node, err.Error())
		return mir.LitValue(mir.ErrorLiteral())
	}
	return val
}

func (fb *fnBuilder) lowerIndex(v *ast.Index) mir.Value {
	base := fb.lowerExpr(v.Base)
	t := fb.typeOfExpr(v)

	in := &mir.Instr{Op: mir.OpExtractArrayElement, Base: base, Type: t}
	if lit, ok := constIndex(v.Idx); ok {
		in.Index = lit
	} else {
		in.HasDynIndex = true
		in.DynamicIndex = fb.lowerExpr(v.Idx)
	}
	val, err := fb.emit(fb.cur(), t, in)
	if err != nil {
		fb.fatal(v.Node, err.Error())
		return mir.LitValue(mir.ErrorLiteral())
	}
	return val
}

// constIndex recognizes a literal integer index so array accesses with a
// known-constant subscript get the cheaper static-index instruction form.
func constIndex(e ast.Expr) (int, bool) {
	if lit, ok := e.(*ast.IntLit); ok {
		return int(lit.Value), true
	}
	return 0, false
}

func (fb *fnBuilder) cur() mir.BlockID { return fb.curBlock }

func (fb *fnBuilder) setCur(b mir.BlockID) { fb.curBlock = b }

func (fb *fnBuilder) mustSetTerm(block mir.BlockID, t mir.Terminator) {
	if err := fb.f.Block(block).SetTerminator(t); err != nil {
		fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, err.Error()))
	}
}

func (fb *fnBuilder) fatal(n ast.Node, msg string) {
	fb.sink.Fatal(diag.NewAt(diag.LoweringError, fb.fname, n.Span, msg))
}
