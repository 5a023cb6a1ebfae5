package mir

import (
	"fmt"

	"github.com/cairo-m/mirc/internal/diag"
)

// Phase selects which invariants Validate checks (spec.md §4.1).
type Phase int

const (
	PreSSADestruction Phase = iota
	PostSSADestruction
	PreCodegen
)

// Dominates answers whether block a dominates block b, supplied by the
// analysis package (internal/analysis) so C1 does not need to depend on
// C3's dominance computation directly — the same "dynamic dispatch on a
// capability" shape the design notes describe for conditional pass
// execution. A nil Dominates disables the dominance check (used only by
// callers that have independently established it, e.g. repeated
// validation within a single pass run).
type Dominates func(def, use BlockID) bool

// Validate checks the invariants appropriate to phase against f, returning
// every violation found (spec.md §4.1's validate(function, phase)).
func Validate(f *Function, phase Phase, dominates Dominates) []*diag.Diagnostic {
	var out []*diag.Diagnostic
	report := func(kind diag.Kind, format string, args ...any) {
		out = append(out, diag.New(kind, f.Name, fmt.Sprintf(format, args...)))
	}

	defSite := map[ValueID]BlockID{}
	defCount := map[ValueID]int{}
	for _, p := range f.Params {
		defCount[p.Value]++
		defSite[p.Value] = f.Entry
	}

	preds := f.Predecessors()

	for _, id := range f.BlockOrder() {
		b := f.Blocks[id]

		if !b.Terminated() {
			report(diag.ValidationStructural, "block b%d has no terminator", id)
			continue
		}

		for _, t := range b.Term.Targets() {
			if _, ok := f.Blocks[t]; !ok {
				report(diag.ValidationStructural, "block b%d terminator targets nonexistent block b%d", id, t)
			}
		}

		for _, p := range b.Phis {
			defCount[p.Dst]++
			defSite[p.Dst] = id
			if phase == PreSSADestruction {
				if len(p.Incoming) != len(preds[id]) {
					report(diag.ValidationStructural,
						"phi v%d in b%d has %d incoming values but block has %d predecessors",
						p.Dst, id, len(p.Incoming), len(preds[id]))
				}
			}
		}
		if phase != PreSSADestruction && len(b.Phis) > 0 {
			report(diag.ValidationStructural, "block b%d still has phi instructions after SSA destruction", id)
		}

		for _, in := range b.Instr {
			if in.IsPhi() {
				report(diag.ValidationStructural, "phi instruction found outside block prefix in b%d", id)
				continue
			}
			for _, d := range in.Defs() {
				defCount[d]++
				defSite[d] = id
			}
			if phase == PreCodegen && isAggregateInstr(in) {
				report(diag.CodegenError, "aggregate-value instruction %s remains at Pre-Codegen in b%d", in.Op, id)
			}
		}
	}

	if phase == PreSSADestruction {
		for v, n := range defCount {
			if n > 1 {
				report(diag.ValidationSSA, "value v%d has %d defining sites; SSA requires exactly one", v, n)
			}
		}
	}

	if dominates != nil {
		for _, id := range f.BlockOrder() {
			b := f.Blocks[id]
			check := func(v Value) {
				if !v.IsRef() {
					return
				}
				d, ok := defSite[v.Ref]
				if !ok {
					report(diag.ValidationSSA, "use of v%d in b%d has no recorded definition", v.Ref, id)
					return
				}
				if !dominates(d, id) {
					report(diag.ValidationSSA, "use of v%d in b%d is not dominated by its definition in b%d", v.Ref, id, d)
				}
			}
			for _, in := range b.Instr {
				for _, u := range in.Uses() {
					check(u)
				}
			}
			for _, u := range b.Term.Uses() {
				check(u)
			}
			// Phi operands are not checked here: the dominance rule covers
			// non-phi uses only (spec.md §3: "Every non-phi use ... must be
			// dominated"), and phi operand counts are checked above.
		}
	}

	return out
}

func isAggregateInstr(in *Instr) bool { return IsAggregateOp(in.Op) }

// IsAggregateOp reports whether op is one of the aggregate-value
// instructions of spec.md §3 group 4, shared by the validator's
// Pre-Codegen check and passes that gate on "does this function have any
// aggregate operations at all" (e.g. SROA's feature predicate).
func IsAggregateOp(op Op) bool {
	switch op {
	case OpMakeTuple, OpMakeStruct, OpMakeFixedArray,
		OpExtractTupleElement, OpExtractStructField,
		OpInsertTuple, OpInsertField,
		OpExtractArrayElement, OpInsertArrayElement:
		return true
	default:
		return false
	}
}

// HasCriticalEdges reports whether any edge u->v has u with >1 successors
// and v with >1 predecessors (spec.md §4.3 "Critical Edges"). Validate
// does not call it at any phase, and neither does the critical-edge
// splitter in internal/analysis; the analysis tests use it to check the
// splitter's output.
func HasCriticalEdges(f *Function) bool {
	preds := f.Predecessors()
	for _, id := range f.BlockOrder() {
		b := f.Blocks[id]
		if !b.Terminated() {
			continue
		}
		targets := b.Term.Targets()
		if len(targets) <= 1 {
			continue
		}
		for _, t := range targets {
			if len(preds[t]) > 1 {
				return true
			}
		}
	}
	return false
}
