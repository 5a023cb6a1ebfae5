package passes

import (
	"github.com/cairo-m/mirc/internal/analysis"
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
)

// SimplifyBranches rewrites a BranchIf whose two targets are identical into
// a plain Jump (spec.md §4.4 Stage A pass 6).
type SimplifyBranches struct{}

func (SimplifyBranches) Name() string { return "simplify-branches" }

func (SimplifyBranches) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	changed := false
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		if b.Term.Kind == mir.TermBranchIf && b.Term.Then == b.Term.Else {
			b.ReplaceTerminator(mir.Jump(b.Term.Then))
			changed = true
		}
	}
	return changed, nil
}

// FuseCmpBranch folds a comparison feeding a BranchIf directly into a
// BranchCmp terminator, eliminating the separate boolean instruction when
// it has no other uses (spec.md §4.4 Stage A pass 7).
type FuseCmpBranch struct{}

func (FuseCmpBranch) Name() string { return "fuse-cmp-branch" }

func (FuseCmpBranch) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	ud := analysis.Build(f)
	changed := false
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		if b.Term.Kind != mir.TermBranchIf || !b.Term.Cond.IsRef() {
			continue
		}
		condID := b.Term.Cond.Ref
		if len(b.Instr) == 0 {
			continue
		}
		last := b.Instr[len(b.Instr)-1]
		if last.Op != mir.OpBinary || !last.BinOp.IsComparison() || last.Dst != condID {
			continue
		}
		if len(ud.Uses[condID]) != 1 {
			continue
		}
		b.ReplaceTerminator(mir.BranchCmp(last.Lhs, last.BinOp, last.Rhs, b.Term.Then, b.Term.Else))
		b.RemoveInstrAt(len(b.Instr) - 1)
		changed = true
	}
	return changed, nil
}
