package mir

import (
	"testing"

	"github.com/cairo-m/mirc/internal/mirtype"
)

func buildSimpleFunction(t *testing.T) *Function {
	t.Helper()
	f := NewFunction("add_one", Signature{
		Params:  []*mirtype.MirType{mirtype.Felt()},
		Returns: []*mirtype.MirType{mirtype.Felt()},
	})
	n, err := f.Registry.NewValue(mirtype.Felt())
	if err != nil {
		t.Fatal(err)
	}
	f.Params = []Param{{Name: "n", Value: n, Type: mirtype.Felt()}}

	result, err := f.Registry.NewValue(mirtype.Felt())
	if err != nil {
		t.Fatal(err)
	}
	entry := f.Block(f.Entry)
	if err := entry.PushInstruction(&Instr{
		Op: OpBinary, Dst: result, Type: mirtype.Felt(),
		BinOp: BinAdd, Lhs: RefValue(n), Rhs: LitValue(IntLiteral(1)),
	}); err != nil {
		t.Fatal(err)
	}
	if err := entry.SetTerminator(Return(RefValue(result))); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestPushInstructionAfterTerminatorFails(t *testing.T) {
	f := buildSimpleFunction(t)
	entry := f.Block(f.Entry)
	err := entry.PushInstruction(&Instr{Op: OpAssign, Dst: 99, Src: LitValue(IntLiteral(0))})
	if err == nil {
		t.Fatal("expected error pushing into a terminated block")
	}
}

func TestSetTerminatorTwiceFails(t *testing.T) {
	f := buildSimpleFunction(t)
	entry := f.Block(f.Entry)
	if err := entry.SetTerminator(Jump(f.Entry)); err == nil {
		t.Fatal("expected error setting terminator twice")
	}
}

func TestPhiMustBeAtPrefix(t *testing.T) {
	b := NewBlock(0, "b0")
	if err := b.PushInstruction(&Instr{Op: OpAssign, Dst: 1, Src: LitValue(IntLiteral(0))}); err != nil {
		t.Fatal(err)
	}
	err := b.PushInstruction(&Instr{Op: OpPhi, Dst: 2})
	if err == nil {
		t.Fatal("expected error pushing a phi after a non-phi instruction")
	}
}

func TestValidatePreSSADetectsMissingTerminator(t *testing.T) {
	f := NewFunction("bad", Signature{})
	diags := Validate(f, PreSSADestruction, nil)
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic for the unterminated entry block")
	}
}

func TestValidateCleanFunctionHasNoDiagnostics(t *testing.T) {
	f := buildSimpleFunction(t)
	diags := Validate(f, PreSSADestruction, func(def, use BlockID) bool { return def <= use })
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}
}

func TestValidateDetectsDuplicateDefinition(t *testing.T) {
	f := buildSimpleFunction(t)
	entry := f.Block(f.Entry)
	// Reuse the already-defined result value id as a second definition.
	dup := &Instr{Op: OpAssign, Dst: entry.Instr[0].Dst, Src: LitValue(IntLiteral(2))}
	entry.Instr = append([]*Instr{dup}, entry.Instr...)
	diags := Validate(f, PreSSADestruction, nil)
	found := false
	for _, d := range diags {
		if d.Kind.String() == "SSA validation error" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an SSA validation diagnostic, got %v", diags)
	}
}

func TestHasCriticalEdges(t *testing.T) {
	f := NewFunction("branchy", Signature{})
	entry := f.Block(f.Entry)
	mid := f.NewBlock("mid")
	joinA := f.NewBlock("joinA")
	joinB := f.NewBlock("joinB")

	entry.SetTerminator(Jump(mid.ID))
	mid.SetTerminator(Jump(joinA.ID))
	joinA.SetTerminator(Jump(joinB.ID))
	joinB.SetTerminator(Return())

	if HasCriticalEdges(f) {
		t.Fatal("did not expect a critical edge in this CFG")
	}

	// Now make entry jump directly into joinB, which has two predecessors,
	// while entry itself has two successors: entry->joinB is critical.
	entry.ReplaceTerminator(BranchIf(LitValue(BoolLiteral(true)), mid.ID, joinB.ID))
	if !HasCriticalEdges(f) {
		// entry has 2 successors (mid, joinB); joinB's predecessors are
		// {entry, joinA} after joinA->joinB, so joinB has 2 preds: critical.
		t.Fatal("expected entry->joinB to be a critical edge")
	}
}

func TestPrintProducesNonEmptyDump(t *testing.T) {
	f := buildSimpleFunction(t)
	out := Print(f)
	if out == "" {
		t.Fatal("expected non-empty MIR dump")
	}
}
