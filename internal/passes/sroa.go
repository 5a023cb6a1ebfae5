package passes

import (
	"github.com/cairo-m/mirc/internal/analysis"
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// SROA (scalar replacement of aggregates) forwards tuple/struct element
// reads directly to the value that produced them, walking back through
// chains of OpMakeTuple/OpMakeStruct/OpInsertTuple/OpInsertField
// constructors (spec.md §4.4 Stage A pass 6, guarded by the
// hasAggregateOps feature predicate: "skip when no aggregate operations
// exist"). Fixed arrays are excluded: array values are never promoted to
// a pure SSA forwarding chain, so OpExtractArrayElement/OpInsertArrayElement
// are left for codegen's memory lowering, and so are reads from a tuple or
// struct that contains an array at any depth.
type SROA struct{}

func (SROA) Name() string { return "sroa" }

func (SROA) Run(f *mir.Function) (bool, []*diag.Diagnostic) {
	ud := analysis.Build(f)
	changed := false
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		for _, in := range b.Instr {
			if in.Base.IsRef() {
				if t, ok := f.Registry.TypeOf(in.Base.Ref); ok && mirtype.ContainsArray(t) {
					continue
				}
			}
			switch in.Op {
			case mir.OpExtractTupleElement:
				if in.HasDynIndex {
					continue
				}
				if v, ok := forwardTupleElement(ud, in.Base, in.Index, 0); ok {
					*in = mir.Instr{Op: mir.OpAssign, Dst: in.Dst, Type: in.Type, Src: v}
					changed = true
				}
			case mir.OpExtractStructField:
				if v, ok := forwardStructField(ud, in.Base, in.FieldName, 0); ok {
					*in = mir.Instr{Op: mir.OpAssign, Dst: in.Dst, Type: in.Type, Src: v}
					changed = true
				}
			}
		}
	}
	return changed, nil
}

const sroaChainLimit = 64

// forwardTupleElement walks back through Base's chain of tuple
// constructors/functional-updates to find the value stored at idx,
// bounded by sroaChainLimit so a malformed/cyclic def chain cannot loop
// forever.
func forwardTupleElement(ud *analysis.UseDef, base mir.Value, idx, depth int) (mir.Value, bool) {
	if depth > sroaChainLimit || !base.IsRef() {
		return mir.Value{}, false
	}
	site, ok := ud.Defs[base.Ref]
	if !ok || site.Kind != analysis.DefInstr {
		return mir.Value{}, false
	}
	in := site.Instr
	switch in.Op {
	case mir.OpMakeTuple:
		if idx < 0 || idx >= len(in.Elems) {
			return mir.Value{}, false
		}
		return in.Elems[idx], true
	case mir.OpInsertTuple:
		if in.HasDynIndex {
			return mir.Value{}, false
		}
		if in.Index == idx {
			return in.Src, true
		}
		return forwardTupleElement(ud, in.Base, idx, depth+1)
	default:
		return mir.Value{}, false
	}
}

func forwardStructField(ud *analysis.UseDef, base mir.Value, field string, depth int) (mir.Value, bool) {
	if depth > sroaChainLimit || !base.IsRef() {
		return mir.Value{}, false
	}
	site, ok := ud.Defs[base.Ref]
	if !ok || site.Kind != analysis.DefInstr {
		return mir.Value{}, false
	}
	in := site.Instr
	switch in.Op {
	case mir.OpMakeStruct:
		for i, name := range in.FieldNames {
			if name == field {
				return in.FieldValues[i], true
			}
		}
		return mir.Value{}, false
	case mir.OpInsertField:
		if in.FieldName == field {
			return in.Src, true
		}
		return forwardStructField(ud, in.Base, field, depth+1)
	default:
		return mir.Value{}, false
	}
}
