// Package passes implements the Stage A/B/C optimization pipeline (C4,
// spec.md §4.4): constant folding, copy propagation, arithmetic
// simplification, local CSE, SROA, branch fusion, dead-code elimination,
// SSA destruction (phi elimination), and post-SSA legalization.
//
// Grounded on the teacher's per-instruction-class encoder functions
// (_examples/lookbusy1344-arm_emulator/encoder/encoder.go's
// encodeDataProcessingMove, encodeBranch, ...): each a small,
// independently testable unit dispatched from one router, the same shape
// every Pass here takes (Run(f) dispatches per-instruction by Op).
package passes

import (
	"github.com/cairo-m/mirc/internal/config"
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
)

// stageA is the SSA-form rewrite set, run to a fixpoint as a group so that
// e.g. a fold exposed by copy propagation is picked up by a later const-fold
// iteration without a second top-level pipeline pass (spec.md §4.4: "Stage
// A passes iterate together until no further change").
var stageA = []Pass{
	PreOptimization{},
	ConstFold{},
	CopyPropagation{},
	ArithmeticSimplification{},
	When{Pass: SROA{}, Predicate: hasAggregateOps},
	LocalCSE{},
	SimplifyBranches{},
	FuseCmpBranch{},
	BlockDCE{},
}

// Run executes the full pipeline over f according to cfg.Pipeline.OptLevel,
// returning every diagnostic any pass reported. f is mutated in place.
func Run(f *mir.Function, cfg *config.Config) []*diag.Diagnostic {
	var diags []*diag.Diagnostic
	report := func(ds []*diag.Diagnostic) { diags = append(diags, ds...) }

	if cfg.Pipeline.OptLevel >= config.OptBasic {
		runToFixpoint(f, func(f *mir.Function) bool {
			changed := false
			for _, p := range stageA {
				mod, ds := p.Run(f)
				report(ds)
				changed = changed || mod
			}
			return changed
		})
	}

	// Stage B: SSA destruction always runs, even at OptNone, since MIR
	// leaving this pipeline must be phi-free for codegen (spec.md §4.1
	// Pre-Codegen invariant).
	_, ds := SSADestruction{}.Run(f)
	report(ds)

	// Stage C, in the order DESIGN.md's Open Question 1 decided:
	// legalize before the final instruction DCE sweep, so DCE gets a last
	// look at anything legalization introduces.
	_, ds = Legalize{}.Run(f)
	report(ds)

	if cfg.Pipeline.OptLevel >= config.OptBasic {
		runToFixpoint(f, func(f *mir.Function) bool {
			mod, ds := InstructionDCE{}.Run(f)
			report(ds)
			return mod
		})
	}

	// Validated at PostSSADestruction, not PreCodegen: aggregate instructions
	// that escaped SROA (arrays, and any tuple/struct that was passed to a
	// call, returned, or dynamically indexed) are still present here by
	// design. mir.PreCodegen's "no aggregate instruction remains" check is
	// never satisfied by this pipeline's output; it describes MIR that has
	// already been through codegen's own lowering, which consumes those
	// instructions directly into concrete slot operations rather than
	// rewriting them into simpler MIR first (internal/codegen/select.go).
	dominates := domChecker(f)
	report(mir.Validate(f, mir.PostSSADestruction, dominates))

	return diags
}
