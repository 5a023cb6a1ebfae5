package passes

import (
	"github.com/cairo-m/mirc/internal/analysis"
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
)

// PreOptimization removes obviously unused pure instructions before any
// other pass runs (spec.md §4.4 Stage A pass 1).
type PreOptimization struct{}

func (PreOptimization) Name() string { return "pre-optimization-dce" }

func (PreOptimization) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	return removeUnusedPureInstructions(f), nil
}

// InstructionDCE iterates to remove assignments whose destination is
// unused and that have no side effects, run post-SSA-destruction (spec.md
// §4.4 Stage C pass 9).
type InstructionDCE struct{}

func (InstructionDCE) Name() string { return "instruction-dce" }

func (InstructionDCE) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	return runToFixpoint(f, removeUnusedPureInstructions), nil
}

// removeUnusedPureInstructions deletes every pure non-phi instruction
// whose destinations are all unused, in one sweep, returning whether
// anything changed. Shared by PreOptimization and InstructionDCE since
// both apply the identical rule at different pipeline stages.
func removeUnusedPureInstructions(f *mir.Function) bool {
	ud := analysis.Build(f)
	changed := false
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		kept := b.Instr[:0]
		for _, in := range b.Instr {
			if in.IsPure() && allDefsUnused(ud, in) {
				changed = true
				continue
			}
			kept = append(kept, in)
		}
		b.Instr = kept
	}
	return changed
}

func allDefsUnused(ud *analysis.UseDef, in *mir.Instr) bool {
	defs := in.Defs()
	if len(defs) == 0 {
		return false // void instructions (no destinations) are never DCE'd here
	}
	for _, d := range defs {
		if !ud.IsUnused(d) {
			return false
		}
	}
	return true
}

// BlockDCE removes unreachable blocks, compacts block numbering, rewrites
// terminator targets, and drops phi incoming entries for removed
// predecessors (spec.md §4.4 Stage A pass 8).
type BlockDCE struct{}

func (BlockDCE) Name() string { return "block-dce" }

func (BlockDCE) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	reachable := f.ReachableBlocks()
	changed := false
	for _, id := range f.BlockOrder() {
		if !reachable[id] {
			f.RemoveBlock(id)
			changed = true
		}
	}
	if changed {
		f.DropDeadPredecessors()
		f.Compact()
	}
	return changed, nil
}
