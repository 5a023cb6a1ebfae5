package builder

import (
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
	"github.com/cairo-m/mirc/pkg/ast"
	"github.com/cairo-m/mirc/pkg/semindex"
)

// lowerBlockStmts lowers a statement sequence into the current block,
// stopping as soon as a terminator appears: statements after a return,
// break, or continue are unreachable and dropped. Reachability diagnostics
// for source-level dead code are a front-end concern (spec.md §1, out of
// scope here).
func (fb *fnBuilder) lowerBlockStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		if fb.f.Block(fb.cur()).Terminated() {
			return
		}
		fb.lowerStmt(s)
	}
}

func (fb *fnBuilder) lowerStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.Let:
		fb.lowerLet(v)
	case *ast.Assign:
		fb.lowerAssign(v)
	case *ast.ExprStmt:
		fb.lowerExprStmt(v)
	case *ast.If:
		fb.lowerIf(v)
	case *ast.While:
		fb.lowerWhile(v)
	case *ast.Loop:
		fb.lowerLoop(v)
	case *ast.For:
		fb.lowerFor(v)
	case *ast.Break:
		fb.lowerBreak(v)
	case *ast.Continue:
		fb.lowerContinue(v)
	case *ast.Return:
		fb.lowerReturn(v)
	default:
		fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "unsupported statement form"))
	}
}

// defType returns the MirType for a variable, consulting the semantic
// index the first time a variable is seen (e.g. an lvalue written before
// ever being read) and caching it the same way declareVarType does for
// reads.
func (fb *fnBuilder) defType(d semindex.DefID) *mirtype.MirType {
	if t, ok := fb.ssa.varType[d]; ok {
		return t
	}
	t, ok := fb.index.TypeOfDef(d)
	if !ok {
		fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "variable has no resolved type"))
		return mirtype.Unit()
	}
	fb.ssa.declareVarType(d, t)
	return t
}

// lowerLet binds v.Pattern to the lowered value of v.Value, recursing over
// nested tuple patterns (spec.md §4.2).
func (fb *fnBuilder) lowerLet(v *ast.Let) {
	val := fb.lowerExpr(v.Value)
	t := fb.typeOfExpr(v.Value)
	fb.bindPattern(v.Pattern, val, t)
}

func (fb *fnBuilder) bindPattern(p ast.Pattern, val mir.Value, t *mirtype.MirType) {
	switch pp := p.(type) {
	case *ast.BindPattern:
		fb.ssa.declareVarType(pp.Def, t)
		fb.ssa.writeVariable(pp.Def, fb.cur(), val)
	case *ast.TuplePattern:
		if t == nil || t.Kind != mirtype.KindTuple || len(t.Elements) != len(pp.Elems) {
			fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "destructuring arity mismatch"))
			return
		}
		for i, elemPat := range pp.Elems {
			elemType := t.Elements[i]
			ev, err := fb.emit(fb.cur(), elemType, &mir.Instr{Op: mir.OpExtractTupleElement, Base: val, Index: i})
			if err != nil {
				fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, err.Error()))
				continue
			}
			fb.bindPattern(elemPat, ev, elemType)
		}
	default:
		fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "unsupported let pattern"))
	}
}

// lowerAssign lowers an assignment to an lvalue. Aggregate lvalue chains
// (tuple index, struct field, array index) are rebuilt functionally from
// the innermost update outward and the new aggregate is written back to
// the root identifier (spec.md §4.2).
func (fb *fnBuilder) lowerAssign(v *ast.Assign) {
	rhs := fb.lowerExpr(v.Value)
	fb.storeLvalue(v.Target, rhs)
}

func (fb *fnBuilder) storeLvalue(lv ast.Lvalue, newVal mir.Value) {
	switch t := lv.(type) {
	case *ast.IdentLvalue:
		fb.defType(t.Def)
		fb.ssa.writeVariable(t.Def, fb.cur(), newVal)
	case *ast.TupleIndexLvalue:
		base := fb.readLvalue(t.Base)
		baseType := fb.lvalueType(t.Base)
		updated, err := fb.emit(fb.cur(), baseType, &mir.Instr{Op: mir.OpInsertTuple, Base: base, Index: t.Index, Src: newVal})
		if err != nil {
			fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, err.Error()))
			return
		}
		fb.storeLvalue(t.Base, updated)
	case *ast.FieldLvalue:
		base := fb.readLvalue(t.Base)
		baseType := fb.lvalueType(t.Base)
		updated, err := fb.emit(fb.cur(), baseType, &mir.Instr{Op: mir.OpInsertField, Base: base, FieldName: t.Field, Src: newVal})
		if err != nil {
			fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, err.Error()))
			return
		}
		fb.storeLvalue(t.Base, updated)
	case *ast.IndexLvalue:
		base := fb.readLvalue(t.Base)
		baseType := fb.lvalueType(t.Base)
		in := &mir.Instr{Op: mir.OpInsertArrayElement, Base: base, Src: newVal}
		if lit, ok := constIndex(t.Idx); ok {
			in.Index = lit
		} else {
			in.HasDynIndex = true
			in.DynamicIndex = fb.lowerExpr(t.Idx)
		}
		updated, err := fb.emit(fb.cur(), baseType, in)
		if err != nil {
			fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, err.Error()))
			return
		}
		fb.storeLvalue(t.Base, updated)
	default:
		fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "unsupported lvalue form"))
	}
}

// readLvalue reads the current value an lvalue chain refers to, the
// read-side mirror of storeLvalue.
func (fb *fnBuilder) readLvalue(lv ast.Lvalue) mir.Value {
	switch t := lv.(type) {
	case *ast.IdentLvalue:
		val, err := fb.ssa.readVariable(t.Def, fb.cur())
		if err != nil {
			fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, err.Error()))
			return mir.LitValue(mir.ErrorLiteral())
		}
		return val
	case *ast.TupleIndexLvalue:
		base := fb.readLvalue(t.Base)
		elemType := fb.lvalueType(lv)
		v, err := fb.emit(fb.cur(), elemType, &mir.Instr{Op: mir.OpExtractTupleElement, Base: base, Index: t.Index})
		if err != nil {
			fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, err.Error()))
			return mir.LitValue(mir.ErrorLiteral())
		}
		return v
	case *ast.FieldLvalue:
		base := fb.readLvalue(t.Base)
		elemType := fb.lvalueType(lv)
		v, err := fb.emit(fb.cur(), elemType, &mir.Instr{Op: mir.OpExtractStructField, Base: base, FieldName: t.Field})
		if err != nil {
			fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, err.Error()))
			return mir.LitValue(mir.ErrorLiteral())
		}
		return v
	case *ast.IndexLvalue:
		base := fb.readLvalue(t.Base)
		elemType := fb.lvalueType(lv)
		in := &mir.Instr{Op: mir.OpExtractArrayElement, Base: base}
		if lit, ok := constIndex(t.Idx); ok {
			in.Index = lit
		} else {
			in.HasDynIndex = true
			in.DynamicIndex = fb.lowerExpr(t.Idx)
		}
		v, err := fb.emit(fb.cur(), elemType, in)
		if err != nil {
			fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, err.Error()))
			return mir.LitValue(mir.ErrorLiteral())
		}
		return v
	default:
		fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "unsupported lvalue form"))
		return mir.LitValue(mir.ErrorLiteral())
	}
}

// lvalueType returns the MirType of the value an lvalue chain currently
// refers to, navigating the declared structure of its base type.
func (fb *fnBuilder) lvalueType(lv ast.Lvalue) *mirtype.MirType {
	switch t := lv.(type) {
	case *ast.IdentLvalue:
		return fb.defType(t.Def)
	case *ast.TupleIndexLvalue:
		baseType := fb.lvalueType(t.Base)
		if baseType.Kind != mirtype.KindTuple || t.Index >= len(baseType.Elements) {
			fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "tuple index out of range"))
			return mirtype.Unit()
		}
		return baseType.Elements[t.Index]
	case *ast.FieldLvalue:
		baseType := fb.lvalueType(t.Base)
		for _, f := range baseType.Fields {
			if f.Name == t.Field {
				return f.Type
			}
		}
		fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "unknown field "+t.Field))
		return mirtype.Unit()
	case *ast.IndexLvalue:
		baseType := fb.lvalueType(t.Base)
		if baseType.Kind != mirtype.KindArray {
			fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "index lvalue on non-array type"))
			return mirtype.Unit()
		}
		return baseType.Elem
	default:
		return mirtype.Unit()
	}
}

// lowerExprStmt evaluates an expression for its side effects. print_felt
// and print_u32 calls are recognized as the spec's debug instructions
// (§3 group 7) rather than general calls; every other call or expression
// is lowered and its result discarded.
func (fb *fnBuilder) lowerExprStmt(v *ast.ExprStmt) {
	if call, ok := v.Value.(*ast.Call); ok {
		if in, handled := fb.tryLowerPrintBuiltin(call); handled {
			if in == nil {
				return // diagnostic already recorded
			}
			if err := fb.f.Block(fb.cur()).PushInstruction(in); err != nil {
				fb.fatal(call.Node, err.Error())
			}
			return
		}
	}
	fb.lowerExpr(v.Value)
}

func (fb *fnBuilder) tryLowerPrintBuiltin(call *ast.Call) (*mir.Instr, bool) {
	switch call.Callee {
	case "print_felt":
		if len(call.Args) != 1 {
			fb.fatal(call.Node, "print_felt expects exactly one argument")
			return nil, true
		}
		return &mir.Instr{Op: mir.OpPrintFelt, Src: fb.lowerExpr(call.Args[0])}, true
	case "print_u32":
		if len(call.Args) != 1 {
			fb.fatal(call.Node, "print_u32 expects exactly one argument")
			return nil, true
		}
		return &mir.Instr{Op: mir.OpPrintU32, Src: fb.lowerExpr(call.Args[0])}, true
	default:
		return nil, false
	}
}

// lowerIf lowers if/else with a merge block (spec.md §4.2). then/else are
// each sealed immediately since they have exactly one predecessor (the
// branch); the merge block is sealed once both arms' fallthrough edges
// are known.
func (fb *fnBuilder) lowerIf(v *ast.If) {
	cond := fb.lowerExpr(v.Cond)

	thenB := fb.f.NewBlock("if_then")
	joinB := fb.f.NewBlock("if_merge")
	elseTarget := joinB.ID
	var elseB *mir.Block
	if v.Else != nil {
		elseB = fb.f.NewBlock("if_else")
		elseTarget = elseB.ID
	}

	entry := fb.cur()
	fb.mustSetTerm(entry, mir.BranchIf(cond, thenB.ID, elseTarget))

	fb.sealNow(thenB.ID)
	fb.setCur(thenB.ID)
	fb.lowerBlockStmts(v.Then)
	if !fb.f.Block(fb.cur()).Terminated() {
		fb.mustSetTerm(fb.cur(), mir.Jump(joinB.ID))
	}

	if elseB != nil {
		fb.sealNow(elseB.ID)
		fb.setCur(elseB.ID)
		fb.lowerBlockStmts(v.Else)
		if !fb.f.Block(fb.cur()).Terminated() {
			fb.mustSetTerm(fb.cur(), mir.Jump(joinB.ID))
		}
	}

	fb.sealNow(joinB.ID)
	fb.setCur(joinB.ID)
}

// lowerWhile lowers a while loop: header evaluates the condition and is
// left unsealed until the body's fallthrough (latch) edge is known, since
// it is itself the loop's latch target (spec.md §4.2).
func (fb *fnBuilder) lowerWhile(v *ast.While) {
	headerB := fb.f.NewBlock("while_header")
	bodyB := fb.f.NewBlock("while_body")
	exitB := fb.f.NewBlock("while_exit")

	fb.mustSetTerm(fb.cur(), mir.Jump(headerB.ID))

	fb.setCur(headerB.ID)
	cond := fb.lowerExpr(v.Cond)
	fb.mustSetTerm(fb.cur(), mir.BranchIf(cond, bodyB.ID, exitB.ID))

	fb.sealNow(bodyB.ID)

	fb.loops = append(fb.loops, loopCtx{breakTarget: exitB.ID, continueTarget: headerB.ID})
	fb.setCur(bodyB.ID)
	fb.lowerBlockStmts(v.Body)
	if !fb.f.Block(fb.cur()).Terminated() {
		fb.mustSetTerm(fb.cur(), mir.Jump(headerB.ID))
	}
	fb.loops = fb.loops[:len(fb.loops)-1]

	fb.sealNow(headerB.ID)
	fb.sealNow(exitB.ID)
	fb.setCur(exitB.ID)
}

// lowerLoop lowers an unconditional loop exited only via break; continue
// jumps directly back to the body since there is no separate latch.
func (fb *fnBuilder) lowerLoop(v *ast.Loop) {
	bodyB := fb.f.NewBlock("loop_body")
	exitB := fb.f.NewBlock("loop_exit")

	fb.mustSetTerm(fb.cur(), mir.Jump(bodyB.ID))

	fb.loops = append(fb.loops, loopCtx{breakTarget: exitB.ID, continueTarget: bodyB.ID})
	fb.setCur(bodyB.ID)
	fb.lowerBlockStmts(v.Body)
	if !fb.f.Block(fb.cur()).Terminated() {
		fb.mustSetTerm(fb.cur(), mir.Jump(bodyB.ID))
	}
	fb.loops = fb.loops[:len(fb.loops)-1]

	fb.sealNow(bodyB.ID)
	fb.sealNow(exitB.ID)
	fb.setCur(exitB.ID)
}

// lowerFor lowers a C-style for loop: Init runs once in the preheader;
// header tests Cond; continue targets Latch rather than the header
// directly (spec.md §4.2).
func (fb *fnBuilder) lowerFor(v *ast.For) {
	if v.Init != nil {
		fb.lowerStmt(v.Init)
	}

	headerB := fb.f.NewBlock("for_header")
	bodyB := fb.f.NewBlock("for_body")
	latchB := fb.f.NewBlock("for_latch")
	exitB := fb.f.NewBlock("for_exit")

	fb.mustSetTerm(fb.cur(), mir.Jump(headerB.ID))

	fb.setCur(headerB.ID)
	if v.Cond != nil {
		cond := fb.lowerExpr(v.Cond)
		fb.mustSetTerm(fb.cur(), mir.BranchIf(cond, bodyB.ID, exitB.ID))
	} else {
		fb.mustSetTerm(fb.cur(), mir.Jump(bodyB.ID))
	}

	fb.sealNow(bodyB.ID)

	fb.loops = append(fb.loops, loopCtx{breakTarget: exitB.ID, continueTarget: latchB.ID})
	fb.setCur(bodyB.ID)
	fb.lowerBlockStmts(v.Body)
	if !fb.f.Block(fb.cur()).Terminated() {
		fb.mustSetTerm(fb.cur(), mir.Jump(latchB.ID))
	}
	fb.loops = fb.loops[:len(fb.loops)-1]

	fb.sealNow(latchB.ID)
	fb.setCur(latchB.ID)
	if v.Latch != nil {
		fb.lowerStmt(v.Latch)
	}
	if !fb.f.Block(fb.cur()).Terminated() {
		fb.mustSetTerm(fb.cur(), mir.Jump(headerB.ID))
	}

	fb.sealNow(headerB.ID)
	fb.sealNow(exitB.ID)
	fb.setCur(exitB.ID)
}

func (fb *fnBuilder) lowerBreak(v *ast.Break) {
	if len(fb.loops) == 0 {
		fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "break outside of a loop"))
		return
	}
	target := fb.loops[len(fb.loops)-1].breakTarget
	fb.mustSetTerm(fb.cur(), mir.Jump(target))
}

func (fb *fnBuilder) lowerContinue(v *ast.Continue) {
	if len(fb.loops) == 0 {
		fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, "continue outside of a loop"))
		return
	}
	target := fb.loops[len(fb.loops)-1].continueTarget
	fb.mustSetTerm(fb.cur(), mir.Jump(target))
}

// lowerReturn collects return values into the block's terminator (spec.md
// §4.2: "return (values collected into the terminator)").
func (fb *fnBuilder) lowerReturn(v *ast.Return) {
	vals := make([]mir.Value, len(v.Values))
	for i, e := range v.Values {
		vals[i] = fb.lowerExpr(e)
	}
	fb.mustSetTerm(fb.cur(), mir.Return(vals...))
}

// sealNow seals a block, surfacing any incomplete-phi error to the sink.
func (fb *fnBuilder) sealNow(b mir.BlockID) {
	if err := fb.ssa.sealBlock(b); err != nil {
		fb.sink.Fatal(diag.New(diag.LoweringError, fb.fname, err.Error()))
	}
}
