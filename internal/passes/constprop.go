package passes

import (
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
)

// ConstFold rewrites binary/unary instructions whose operands are both
// literals into an OpAssign of the folded literal, and folds conditional
// branches on a literal condition into a Jump (spec.md §4.4 Stage A pass
// 2: "Constant Propagation and Folding").
type ConstFold struct{}

func (ConstFold) Name() string { return "const-fold" }

func (ConstFold) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	var ce ConstEvaluator
	var diags []*diag.Diagnostic
	changed := false

	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		for _, in := range b.Instr {
			switch in.Op {
			case mir.OpBinary:
				if !in.Lhs.IsLiteral() || !in.Rhs.IsLiteral() {
					continue
				}
				lit, err := ce.EvalBinary(in.BinOp, in.Lhs.Literal, in.Rhs.Literal, in.OperandType)
				if err != nil {
					continue // e.g. division by zero: left for the runtime/codegen to handle
				}
				foldToAssign(in, lit)
				changed = true
			case mir.OpUnary:
				if !in.Operand.IsLiteral() {
					continue
				}
				lit, err := ce.EvalUnary(in.UnOp, in.Operand.Literal, in.OperandType)
				if err != nil {
					continue
				}
				foldToAssign(in, lit)
				changed = true
			case mir.OpCastU32ToFelt:
				if !in.Src.IsLiteral() {
					continue
				}
				lit, err := ce.EvalCastU32ToFelt(uint32(in.Src.Literal.Int))
				if err != nil {
					diags = append(diags, diag.New(diag.CodegenError, f.Name, err.Error()))
					continue
				}
				foldToAssign(in, lit)
				changed = true
			}
		}

		if b.Term.Kind == mir.TermBranchIf && b.Term.Cond.IsLiteral() {
			target := b.Term.Else
			if b.Term.Cond.Literal.Bool {
				target = b.Term.Then
			}
			b.ReplaceTerminator(mir.Jump(target))
			changed = true
		}
	}

	return changed, diags
}

func foldToAssign(in *mir.Instr, lit mir.Literal) {
	dst := in.Dst
	typ := in.Type
	*in = mir.Instr{Op: mir.OpAssign, Dst: dst, Type: typ, Src: mir.LitValue(lit)}
}
