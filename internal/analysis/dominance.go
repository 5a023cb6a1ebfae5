// Package analysis implements the MIR analysis library (spec.md §4.3):
// dominance, dominance frontiers, critical-edge detection and splitting,
// and use-def maps. Grounded on the teacher's parser.SymbolTable
// (_examples/lookbusy1344-arm_emulator/parser/symbols.go), whose
// Define/relocation bookkeeping is the same shape of "build an auxiliary
// index over a graph-shaped structure on demand" this package does for
// CFGs rather than label tables.
package analysis

import (
	"sort"

	"github.com/cairo-m/mirc/internal/mir"
)

// Dominance holds the immediate-dominator table and DFS entry/exit
// numbering for O(1) dominates queries, computed once per pass and
// discarded (spec.md §4.3: "Dominance analysis materializes auxiliary
// tables on demand").
type Dominance struct {
	f        *mir.Function
	rpo      []mir.BlockID
	rpoIndex map[mir.BlockID]int
	idom     map[mir.BlockID]mir.BlockID
	children map[mir.BlockID][]mir.BlockID
	entryNum map[mir.BlockID]int
	exitNum  map[mir.BlockID]int
}

// Compute builds the dominator tree for f using reverse-postorder
// numbering and the Cooper-Harvey-Kennedy iterative algorithm (spec.md
// §4.3).
func Compute(f *mir.Function) *Dominance {
	rpo := f.ReversePostorder()
	rpoIndex := make(map[mir.BlockID]int, len(rpo))
	for i, id := range rpo {
		rpoIndex[id] = i
	}

	preds := f.Predecessors()
	idom := make(map[mir.BlockID]mir.BlockID, len(rpo))
	idom[f.Entry] = f.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == f.Entry {
				continue
			}
			var newIdom mir.BlockID
			first := true
			for _, p := range preds[b] {
				if _, ok := idom[p]; !ok {
					continue
				}
				if first {
					newIdom = p
					first = false
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if first {
				continue // no processed predecessor yet
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	d := &Dominance{f: f, rpo: rpo, rpoIndex: rpoIndex, idom: idom}
	d.buildTree()
	d.numberTree()
	return d
}

func intersect(idom map[mir.BlockID]mir.BlockID, rpoIndex map[mir.BlockID]int, a, b mir.BlockID) mir.BlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

func (d *Dominance) buildTree() {
	d.children = make(map[mir.BlockID][]mir.BlockID)
	for _, b := range d.rpo {
		if b == d.f.Entry {
			continue
		}
		parent := d.idom[b]
		d.children[parent] = append(d.children[parent], b)
	}
	for p := range d.children {
		sort.Slice(d.children[p], func(i, j int) bool { return d.children[p][i] < d.children[p][j] })
	}
}

func (d *Dominance) numberTree() {
	d.entryNum = make(map[mir.BlockID]int)
	d.exitNum = make(map[mir.BlockID]int)
	counter := 0
	var visit func(b mir.BlockID)
	visit = func(b mir.BlockID) {
		counter++
		d.entryNum[b] = counter
		for _, c := range d.children[b] {
			visit(c)
		}
		counter++
		d.exitNum[b] = counter
	}
	visit(d.f.Entry)
}

// Idom returns the immediate dominator of b, and whether b was reachable.
func (d *Dominance) Idom(b mir.BlockID) (mir.BlockID, bool) {
	v, ok := d.idom[b]
	return v, ok
}

// Children returns b's children in the dominator tree.
func (d *Dominance) Children(b mir.BlockID) []mir.BlockID {
	return d.children[b]
}

// Dominates reports whether a dominates b (reflexively: a dominates a),
// in O(1) via the DFS entry/exit numbering (spec.md §4.3).
func (d *Dominance) Dominates(a, b mir.BlockID) bool {
	ea, aok := d.entryNum[a]
	eb, bok := d.entryNum[b]
	if !aok || !bok {
		return false
	}
	return ea <= eb && d.exitNum[b] <= d.exitNum[a]
}

// StrictlyDominates reports whether a dominates b and a != b.
func (d *Dominance) StrictlyDominates(a, b mir.BlockID) bool {
	return a != b && d.Dominates(a, b)
}

// ReachableBlocks returns the reverse-postorder block list dominance was
// computed over, i.e. the blocks reachable from Entry.
func (d *Dominance) ReachableBlocks() []mir.BlockID {
	out := make([]mir.BlockID, len(d.rpo))
	copy(out, d.rpo)
	return out
}

// AsChecker adapts Dominates to the mir.Dominates function type
// mir.Validate expects, letting C1's validator stay independent of C3's
// concrete implementation.
func (d *Dominance) AsChecker() mir.Dominates {
	return d.Dominates
}
