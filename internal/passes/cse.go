package passes

import (
	"fmt"

	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
)

// LocalCSE deduplicates repeated pure computations within a single block,
// rewriting a later identical instruction into an assign of the earlier
// instruction's result (spec.md §4.4 Stage A pass 5: "Local Common
// Subexpression Elimination", block-scoped since no dominance tree is
// available yet at this point in the pipeline).
type LocalCSE struct{}

func (LocalCSE) Name() string { return "local-cse" }

func (LocalCSE) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	changed := false
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		seen := map[string]mir.ValueID{}
		for _, in := range b.Instr {
			if !in.IsPure() || in.Op == mir.OpPhi {
				continue
			}
			key, ok := cseKey(in)
			if !ok {
				continue
			}
			if prior, ok := seen[key]; ok {
				*in = mir.Instr{Op: mir.OpAssign, Dst: in.Dst, Type: in.Type, Src: mir.RefValue(prior)}
				changed = true
				continue
			}
			if len(in.Defs()) == 1 {
				seen[key] = in.Defs()[0]
			}
		}
	}
	return changed, nil
}

// cseKey returns a canonical string key for in's computation, ok=false if
// in's op is not considered for CSE (anything with multiple results or
// whose identity isn't purely a function of its listed operands).
func cseKey(in *mir.Instr) (string, bool) {
	switch in.Op {
	case mir.OpBinary:
		return fmt.Sprintf("bin:%d:%s:%s", in.BinOp, in.Lhs, in.Rhs), true
	case mir.OpUnary:
		return fmt.Sprintf("un:%d:%s", in.UnOp, in.Operand), true
	case mir.OpCastU32ToFelt:
		return fmt.Sprintf("cast:%s", in.Src), true
	case mir.OpExtractTupleElement:
		return fmt.Sprintf("ext_tuple:%s:%d", in.Base, in.Index), true
	case mir.OpExtractStructField:
		return fmt.Sprintf("ext_field:%s:%s", in.Base, in.FieldName), true
	default:
		return "", false
	}
}
