package analysis

import (
	"strconv"

	"github.com/cairo-m/mirc/internal/mir"
)

// IsCriticalEdge reports whether the edge u->v is critical: u has more
// than one successor and v has more than one predecessor (spec.md §4.3).
func IsCriticalEdge(f *mir.Function, u, v mir.BlockID) bool {
	b := f.Block(u)
	if b == nil || !b.Terminated() {
		return false
	}
	if len(b.Term.Targets()) <= 1 {
		return false
	}
	preds := f.Predecessors()
	return len(preds[v]) > 1
}

// SplitCriticalEdges finds every critical edge in f and inserts a fresh
// block between u and v with a Jump(v) terminator, rewriting u's
// terminator to target the new block and updating every phi in v to
// reference it as the predecessor instead of u (spec.md §4.3). New blocks
// are deterministically named "edge_<u>_<v>" so repeated compilation of
// identical input produces byte-identical names (spec.md §5 determinism).
//
// Returns the number of edges split.
func SplitCriticalEdges(f *mir.Function) int {
	split := 0
	for {
		preds := f.Predecessors()
		var found *struct{ u, v mir.BlockID }
		for _, u := range f.BlockOrder() {
			b := f.Block(u)
			if !b.Terminated() || len(b.Term.Targets()) <= 1 {
				continue
			}
			for _, v := range b.Term.Targets() {
				if len(preds[v]) > 1 {
					found = &struct{ u, v mir.BlockID }{u, v}
					break
				}
			}
			if found != nil {
				break
			}
		}
		if found == nil {
			return split
		}
		splitOneEdge(f, found.u, found.v)
		split++
	}
}

func splitOneEdge(f *mir.Function, u, v mir.BlockID) {
	fresh := f.NewBlock(edgeBlockName(u, v))
	fresh.SetTerminator(mir.Jump(v))

	uBlock := f.Block(u)
	uBlock.ReplaceTerminator(uBlock.Term.WithTarget(v, fresh.ID))

	vBlock := f.Block(v)
	for _, p := range vBlock.Phis {
		for i := range p.Incoming {
			if p.Incoming[i].Pred == u {
				p.Incoming[i].Pred = fresh.ID
			}
		}
	}
}

func edgeBlockName(u, v mir.BlockID) string {
	return "edge_" + strconv.Itoa(int(u)) + "_" + strconv.Itoa(int(v))
}
