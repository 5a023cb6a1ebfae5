package passes

import (
	"github.com/cairo-m/mirc/internal/analysis"
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
)

// Pass is the shared capability every optimization pass implements
// (design notes: "Passes share a common capability set: run(function) ->
// { modified: bool, diagnostics }").
type Pass interface {
	Name() string
	Run(f *mir.Function) (modified bool, diags []*diag.Diagnostic)
}

// When wraps a Pass with a feature predicate, modeling the design notes'
// "Conditional execution (e.g., skip memory-oriented passes when no
// memory operations exist) is modeled by a wrapper that checks a feature
// predicate on the function."
type When struct {
	Pass      Pass
	Predicate func(f *mir.Function) bool
}

func (w When) Name() string { return w.Pass.Name() }

func (w When) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	if w.Predicate != nil && !w.Predicate(f) {
		return false, nil
	}
	return w.Pass.Run(f)
}

// hasAggregateOps reports whether f contains any aggregate-value
// instruction, the feature predicate SROA is gated on.
func hasAggregateOps(f *mir.Function) bool {
	for _, bid := range f.BlockOrder() {
		for _, in := range f.Block(bid).Instr {
			if mir.IsAggregateOp(in.Op) {
				return true
			}
		}
	}
	return false
}

// runToFixpoint repeatedly calls run until it reports no further
// modification, bounding iteration by the function's instruction count so
// a buggy pass cannot spin forever (determinism requires termination,
// spec.md §5).
func runToFixpoint(f *mir.Function, run func(f *mir.Function) bool) bool {
	anyChange := false
	limit := instructionCount(f) + 8
	for i := 0; i < limit; i++ {
		if !run(f) {
			break
		}
		anyChange = true
	}
	return anyChange
}

func instructionCount(f *mir.Function) int {
	n := 0
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		n += len(b.Phis) + len(b.Instr)
	}
	return n + 1
}

// domChecker builds a fresh analysis.Dominance for f and adapts it to
// mir.Dominates, used by passes that re-validate mid-pipeline.
func domChecker(f *mir.Function) mir.Dominates {
	return analysis.Compute(f).AsChecker()
}
