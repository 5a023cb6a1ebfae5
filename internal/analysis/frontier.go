package analysis

import "github.com/cairo-m/mirc/internal/mir"

// DominanceFrontiers computes, for each reachable block b, the set of
// blocks c such that b dominates a predecessor of c but does not strictly
// dominate c (spec.md §4.3, GLOSSARY "Dominance frontier"). Standard
// algorithm: for each block with multiple predecessors, walk each
// predecessor up the dominator tree to idom[b], adding b to the frontier
// of every block walked.
//
// With direct (Braun-style) SSA construction the builder never consults
// this directly for phi placement; it exists to verify invariants and to
// support SROA's re-promotion path (spec.md §4.3), which synthesizes new
// phis when scalarizing an aggregate whose pieces were previously
// threaded through memory-shaped control flow.
func DominanceFrontiers(f *mir.Function, dom *Dominance) map[mir.BlockID][]mir.BlockID {
	preds := f.Predecessors()
	df := make(map[mir.BlockID][]mir.BlockID)

	for _, b := range dom.ReachableBlocks() {
		ps := preds[b]
		if len(ps) < 2 {
			continue
		}
		idom, ok := dom.Idom(b)
		if !ok {
			continue
		}
		for _, p := range ps {
			runner := p
			for runner != idom {
				df[runner] = appendUnique(df[runner], b)
				next, ok := dom.Idom(runner)
				if !ok || next == runner {
					break
				}
				runner = next
			}
		}
	}
	return df
}

func appendUnique(set []mir.BlockID, b mir.BlockID) []mir.BlockID {
	for _, x := range set {
		if x == b {
			return set
		}
	}
	return append(set, b)
}
