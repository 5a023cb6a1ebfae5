package passes

import (
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
)

// CopyPropagation replaces every use of an OpAssign's destination with the
// value it was assigned, transitively through chains of assigns, then
// leaves the now-dead assign instructions for InstructionDCE/PreOptimization
// to remove (spec.md §4.4 Stage A pass 3).
type CopyPropagation struct{}

func (CopyPropagation) Name() string { return "copy-propagation" }

func (CopyPropagation) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	copies := map[mir.ValueID]mir.Value{}
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		for _, in := range b.Instr {
			if in.Op == mir.OpAssign {
				copies[in.Dst] = in.Src
			}
		}
	}
	if len(copies) == 0 {
		return false, nil
	}

	resolve := func(v mir.Value) mir.Value {
		seen := map[mir.ValueID]bool{}
		for v.IsRef() {
			src, ok := copies[v.Ref]
			if !ok || seen[v.Ref] {
				break
			}
			seen[v.Ref] = true
			v = src
		}
		return v
	}

	changed := false
	rewrite := func(v mir.Value) mir.Value {
		nv := resolve(v)
		if nv != v {
			changed = true
		}
		return nv
	}

	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		for _, p := range b.Phis {
			for i := range p.Incoming {
				p.Incoming[i].Value = rewrite(p.Incoming[i].Value)
			}
		}
		for _, in := range b.Instr {
			in.RewriteUses(rewrite)
		}
		b.Term = b.Term.RewriteUses(rewrite)
	}

	return changed, nil
}
