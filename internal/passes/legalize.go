package passes

import (
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// Legalize rewrites post-SSA-destruction instructions into the restricted
// shapes codegen's opcode table expects (spec.md §4.4 Stage C pass 8,
// ordering decided in pipeline.go): a u32 subtraction by an immediate is
// rewritten to an addition of the immediate's two's-complement negation,
// since the target has no STORE_SUB_FP_IMM u32 opcode, only
// STORE_ADD_FP_IMM.
type Legalize struct{}

func (Legalize) Name() string { return "legalize" }

func (Legalize) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	changed := false
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		for _, in := range b.Instr {
			if in.Op != mir.OpBinary || in.BinOp != mir.BinSub {
				continue
			}
			if in.OperandType == nil || in.OperandType.Kind != mirtype.KindU32 {
				continue
			}
			if !in.Rhs.IsLiteral() {
				continue
			}
			neg := uint32(-int32(uint32(in.Rhs.Literal.Int)))
			in.BinOp = mir.BinAdd
			in.Rhs = mir.LitValue(mir.IntLiteral(uint64(neg)))
			changed = true
		}
	}
	return changed, nil
}
