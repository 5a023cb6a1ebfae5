package analysis

import (
	"testing"

	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// buildDiamond builds entry -> {then, else} -> join, a classic diamond CFG.
func buildDiamond(t *testing.T) (*mir.Function, mir.BlockID, mir.BlockID, mir.BlockID, mir.BlockID) {
	t.Helper()
	f := mir.NewFunction("diamond", mir.Signature{})
	entry := f.Block(f.Entry)
	thenB := f.NewBlock("then")
	elseB := f.NewBlock("else")
	join := f.NewBlock("join")

	cond, _ := f.Registry.NewValue(mirtype.Bool())
	entry.PushInstruction(&mir.Instr{Op: mir.OpAssign, Dst: cond, Type: mirtype.Bool(), Src: mir.LitValue(mir.BoolLiteral(true))})
	entry.SetTerminator(mir.BranchIf(mir.RefValue(cond), thenB.ID, elseB.ID))
	thenB.SetTerminator(mir.Jump(join.ID))
	elseB.SetTerminator(mir.Jump(join.ID))
	join.SetTerminator(mir.Return())

	return f, f.Entry, thenB.ID, elseB.ID, join.ID
}

func TestDominanceDiamond(t *testing.T) {
	f, entry, thenB, elseB, join := buildDiamond(t)
	dom := Compute(f)

	if !dom.Dominates(entry, thenB) || !dom.Dominates(entry, elseB) || !dom.Dominates(entry, join) {
		t.Fatal("entry should dominate every block in the diamond")
	}
	if dom.StrictlyDominates(thenB, join) {
		t.Fatal("then-branch should not dominate join (else-branch also reaches it)")
	}
	if dom.StrictlyDominates(elseB, join) {
		t.Fatal("else-branch should not dominate join")
	}
	idom, ok := dom.Idom(join)
	if !ok || idom != entry {
		t.Fatalf("expected join's immediate dominator to be entry, got %v (ok=%v)", idom, ok)
	}
}

func TestDominanceFrontierOfDiamond(t *testing.T) {
	f, _, thenB, elseB, join := buildDiamond(t)
	dom := Compute(f)
	df := DominanceFrontiers(f, dom)

	if len(df[thenB]) != 1 || df[thenB][0] != join {
		t.Fatalf("expected then-branch's frontier to be {join}, got %v", df[thenB])
	}
	if len(df[elseB]) != 1 || df[elseB][0] != join {
		t.Fatalf("expected else-branch's frontier to be {join}, got %v", df[elseB])
	}
}

func TestCriticalEdgeDetectionAndSplit(t *testing.T) {
	// entry has two successors: mid (single-pred, not critical) and join
	// directly (join has two preds via mid->join too): entry->join is critical.
	f := mir.NewFunction("crit", mir.Signature{})
	entry := f.Block(f.Entry)
	mid := f.NewBlock("mid")
	join := f.NewBlock("join")

	cond, _ := f.Registry.NewValue(mirtype.Bool())
	entry.PushInstruction(&mir.Instr{Op: mir.OpAssign, Dst: cond, Type: mirtype.Bool(), Src: mir.LitValue(mir.BoolLiteral(true))})
	entry.SetTerminator(mir.BranchIf(mir.RefValue(cond), mid.ID, join.ID))
	mid.SetTerminator(mir.Jump(join.ID))
	join.SetTerminator(mir.Return())

	if !IsCriticalEdge(f, f.Entry, join.ID) {
		t.Fatal("expected entry->join to be a critical edge")
	}

	n := SplitCriticalEdges(f)
	if n != 1 {
		t.Fatalf("expected exactly 1 split, got %d", n)
	}
	if mir.HasCriticalEdges(f) {
		t.Fatal("expected no critical edges after splitting")
	}

	// The new block should be named edge_<entry>_<join>.
	found := false
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		if b.Name == "edge_0_2" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a deterministically named edge_0_2 block")
	}
}

func TestUseDefBuild(t *testing.T) {
	f, _, _, _, _ := buildDiamond(t)
	ud := Build(f)

	condDef, ok := ud.Defs[0]
	if !ok || condDef.Kind != DefInstr {
		t.Fatalf("expected v0 to be defined by an instruction, got %+v (ok=%v)", condDef, ok)
	}
	if ud.IsUnused(0) {
		t.Fatal("expected cond (v0) to be used by the branch terminator")
	}
}
