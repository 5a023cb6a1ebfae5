package passes

import (
	"sort"

	"github.com/cairo-m/mirc/internal/analysis"
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// SSADestruction eliminates every phi instruction by inserting, at the end
// of each predecessor block, a parallel copy that assigns the phi's
// incoming value into a value dedicated to the phi, breaking copy cycles
// with a temporary (spec.md §4.4 Stage B). It first splits any remaining
// critical edge so a predecessor-side copy never affects a value live on a
// different successor path.
type SSADestruction struct{}

func (SSADestruction) Name() string { return "ssa-destruction" }

type copyTask struct {
	dst mir.ValueID
	src mir.Value
	typ *mirtype.MirType
}

func (SSADestruction) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	analysis.SplitCriticalEdges(f)

	predCopies := map[mir.BlockID][]copyTask{}
	anyPhi := false

	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		for _, p := range b.Phis {
			anyPhi = true
			for _, inc := range p.Incoming {
				predCopies[inc.Pred] = append(predCopies[inc.Pred], copyTask{dst: p.Dst, src: inc.Value, typ: p.Type})
			}
		}
		b.Phis = nil
	}

	if !anyPhi {
		return false, nil
	}

	for bid, tasks := range predCopies {
		b := f.Block(bid)
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].dst < tasks[j].dst })
		b.Instr = append(b.Instr, sequentializeParallelCopy(f, tasks)...)
	}

	return true, nil
}

// sequentializeParallelCopy lowers a set of simultaneous assignments
// dst_i := src_i (all reading the pre-copy values, as a phi's semantics
// require) into a sequence of ordinary OpAssign instructions. A copy whose
// source is itself one of the destinations would be clobbered by a naive
// in-order emission, so this walks the "who reads whom" dependency graph
// with a ready-queue: a destination is safe to write as soon as nothing
// else still needs to read its current value. A destination cycle (every
// member still needed by another member) is broken by rescuing one
// member's current value into a fresh temporary, which frees it to join
// the ready queue (the textbook parallel-copy sequentialization
// algorithm; spec.md §4.4 Stage B).
func sequentializeParallelCopy(f *mir.Function, tasks []copyTask) []*mir.Instr {
	pending := map[mir.ValueID]*copyTask{}
	for i := range tasks {
		pending[tasks[i].dst] = &tasks[i]
	}

	// useCount[v] counts pending copies whose source reads the current
	// value of v; v cannot be overwritten until this drops to zero.
	useCount := map[mir.ValueID]int{}
	for _, t := range tasks {
		if t.src.IsRef() {
			useCount[t.src.Ref]++
		}
	}

	// loc[v] is the value id currently holding v's original (pre-copy)
	// content: v itself, unless v was rescued into a temporary.
	loc := map[mir.ValueID]mir.ValueID{}
	for dst := range pending {
		loc[dst] = dst
	}

	var out []*mir.Instr
	emitAssign := func(dst mir.ValueID, src mir.Value, typ *mirtype.MirType) {
		out = append(out, &mir.Instr{Op: mir.OpAssign, Dst: dst, Type: typ, Src: src})
	}
	resolve := func(v mir.Value) mir.Value {
		if v.IsRef() {
			if l, ok := loc[v.Ref]; ok {
				return mir.RefValue(l)
			}
		}
		return v
	}

	var ready []mir.ValueID
	for dst := range pending {
		if useCount[dst] == 0 {
			ready = append(ready, dst)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	for len(pending) > 0 {
		for len(ready) > 0 {
			d := ready[0]
			ready = ready[1:]
			t, ok := pending[d]
			if !ok {
				continue
			}
			delete(pending, d)
			emitAssign(d, resolve(t.src), t.typ)
			if t.src.IsRef() {
				s := t.src.Ref
				useCount[s]--
				if useCount[s] == 0 {
					if _, stillPending := pending[s]; stillPending {
						ready = append(ready, s)
					}
				}
			}
		}
		if len(pending) == 0 {
			break
		}
		// Remaining pending destinations form one or more cycles: every
		// member is still some other member's source. Break the lowest-
		// numbered one deterministically by rescuing its current value.
		var keys []mir.ValueID
		for k := range pending {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		d := keys[0]
		tmp, err := f.Registry.NewValue(pending[d].typ)
		if err == nil {
			emitAssign(tmp, mir.RefValue(d), pending[d].typ)
			loc[d] = tmp
		}
		ready = append(ready, d)
	}

	return out
}
