package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairo-m/mirc/internal/config"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// buildConstArith builds `entry: v5 = (2 + 3) * 4; return v5` directly in
// MIR, bypassing internal/builder entirely, to exercise the optimization
// pipeline in isolation from SSA construction.
func buildConstArith(t *testing.T) *mir.Function {
	t.Helper()
	felt := mirtype.Felt()
	f := mir.NewFunction("constarith", mir.Signature{Returns: []*mirtype.MirType{felt}})

	lit := func(v uint64) mir.Value { return mir.LitValue(mir.IntLiteral(v)) }
	newVal := func() mir.ValueID {
		id, err := f.Registry.NewValue(felt)
		require.NoError(t, err)
		return id
	}

	entry := f.Blocks[f.Entry]

	v1 := newVal()
	entry.PushInstruction(&mir.Instr{Op: mir.OpAssign, Dst: v1, Type: felt, Src: lit(2)})
	v2 := newVal()
	entry.PushInstruction(&mir.Instr{Op: mir.OpAssign, Dst: v2, Type: felt, Src: lit(3)})
	v3 := newVal()
	entry.PushInstruction(&mir.Instr{
		Op: mir.OpBinary, Dst: v3, Type: felt, OperandType: felt,
		BinOp: mir.BinAdd, Lhs: mir.RefValue(v1), Rhs: mir.RefValue(v2),
	})
	v4 := newVal()
	entry.PushInstruction(&mir.Instr{Op: mir.OpAssign, Dst: v4, Type: felt, Src: lit(4)})
	v5 := newVal()
	entry.PushInstruction(&mir.Instr{
		Op: mir.OpBinary, Dst: v5, Type: felt, OperandType: felt,
		BinOp: mir.BinMul, Lhs: mir.RefValue(v3), Rhs: mir.RefValue(v4),
	})
	entry.SetTerminator(mir.Return(mir.RefValue(v5)))

	return f
}

// TestConstFoldEliminatesArithmetic checks that folding (2+3)*4 at compile
// time leaves no surviving binary op once Stage A and the post-SSA DCE
// pass have run to fixpoint (spec.md §4.4: ConstFold/InstructionDCE run
// to a fixpoint, not a single pass).
func TestConstFoldEliminatesArithmetic(t *testing.T) {
	f := buildConstArith(t)
	cfg := config.DefaultConfig()

	diags := Run(f, cfg)
	require.Empty(t, diags, "%v", diags)

	entry := f.Blocks[f.Entry]
	for _, in := range entry.AllInstructions() {
		assert.NotEqual(t, mir.OpBinary, in.Op, "expected constant folding to remove binary ops:\n%s", mir.Print(f))
	}

	require.Len(t, entry.Term.Values, 1)
	assert.True(t, entry.Term.Values[0].IsLiteral(), "expected the folded constant to propagate into the return:\n%s", mir.Print(f))
	if entry.Term.Values[0].IsLiteral() {
		assert.Equal(t, uint64(20), entry.Term.Values[0].Literal.Int)
	}
}

// TestUnoptimizedRunStillDestructsAndValidates checks that SSA
// destruction, legalization, and structural validation always run
// regardless of optimization level (spec.md §4.4: "Stage B and the final
// validation pass always run, even at opt level none").
func TestUnoptimizedRunStillDestructsAndValidates(t *testing.T) {
	f := buildConstArith(t)
	cfg := config.DefaultConfig()
	cfg.Pipeline.OptLevel = config.OptNone

	diags := Run(f, cfg)
	assert.Empty(t, diags, "%v", diags)
}
