package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// TestSequentializeParallelCopySwapCycle checks the textbook failure mode
// of naive parallel-copy sequentialization: a 2-cycle "a := b, b := a"
// (the shape produced by a loop-carried phi pair that trade values every
// iteration, spec.md §8 "self-referencing phis ... correctly resolved by
// parallel-copy cycle breaking") must break the cycle with a temporary and
// must preserve both original values, not collapse them.
func TestSequentializeParallelCopySwapCycle(t *testing.T) {
	felt := mirtype.Felt()
	f := mir.NewFunction("swap", mir.Signature{})
	a, err := f.Registry.NewValue(felt)
	require.NoError(t, err)
	b, err := f.Registry.NewValue(felt)
	require.NoError(t, err)

	tasks := []copyTask{
		{dst: a, src: mir.RefValue(b), typ: felt},
		{dst: b, src: mir.RefValue(a), typ: felt},
	}

	instrs := sequentializeParallelCopy(f, tasks)

	env := map[mir.ValueID]uint64{a: 10, b: 20}
	for _, in := range instrs {
		require.Equal(t, mir.OpAssign, in.Op)
		var v uint64
		if in.Src.IsRef() {
			v = env[in.Src.Ref]
		} else {
			v = in.Src.Literal.Int
		}
		env[in.Dst] = v
	}

	require.Equal(t, uint64(20), env[a], "a should end up holding b's original value")
	require.Equal(t, uint64(10), env[b], "b should end up holding a's original value")
}

// TestSequentializeParallelCopyChain checks a non-cyclic chain (a := b,
// b := c, c := literal) sequentializes in dependency order without
// needing any temporary.
func TestSequentializeParallelCopyChain(t *testing.T) {
	felt := mirtype.Felt()
	f := mir.NewFunction("chain", mir.Signature{})
	a, err := f.Registry.NewValue(felt)
	require.NoError(t, err)
	b, err := f.Registry.NewValue(felt)
	require.NoError(t, err)
	c, err := f.Registry.NewValue(felt)
	require.NoError(t, err)

	tasks := []copyTask{
		{dst: a, src: mir.RefValue(b), typ: felt},
		{dst: b, src: mir.RefValue(c), typ: felt},
		{dst: c, src: mir.LitValue(mir.IntLiteral(5)), typ: felt},
	}

	instrs := sequentializeParallelCopy(f, tasks)
	require.Len(t, instrs, 3, "a non-cyclic chain needs no rescue temporary")

	env := map[mir.ValueID]uint64{a: 1, b: 2, c: 3}
	for _, in := range instrs {
		var v uint64
		if in.Src.IsRef() {
			v = env[in.Src.Ref]
		} else {
			v = in.Src.Literal.Int
		}
		env[in.Dst] = v
	}

	require.Equal(t, uint64(2), env[a])
	require.Equal(t, uint64(3), env[b])
	require.Equal(t, uint64(5), env[c])
}

// TestSequentializeParallelCopyThreeCycle checks a 3-way rotation, the
// smallest case that would reveal an off-by-one in which member of the
// cycle gets rescued.
func TestSequentializeParallelCopyThreeCycle(t *testing.T) {
	felt := mirtype.Felt()
	f := mir.NewFunction("rotate3", mir.Signature{})
	a, err := f.Registry.NewValue(felt)
	require.NoError(t, err)
	b, err := f.Registry.NewValue(felt)
	require.NoError(t, err)
	c, err := f.Registry.NewValue(felt)
	require.NoError(t, err)

	// a := b, b := c, c := a  (rotate left)
	tasks := []copyTask{
		{dst: a, src: mir.RefValue(b), typ: felt},
		{dst: b, src: mir.RefValue(c), typ: felt},
		{dst: c, src: mir.RefValue(a), typ: felt},
	}

	instrs := sequentializeParallelCopy(f, tasks)

	env := map[mir.ValueID]uint64{a: 1, b: 2, c: 3}
	for _, in := range instrs {
		var v uint64
		if in.Src.IsRef() {
			v = env[in.Src.Ref]
		} else {
			v = in.Src.Literal.Int
		}
		env[in.Dst] = v
	}

	require.Equal(t, uint64(2), env[a])
	require.Equal(t, uint64(3), env[b])
	require.Equal(t, uint64(1), env[c])
}
