package analysis

import "github.com/cairo-m/mirc/internal/mir"

// DefSite records where a value was defined: an instruction, a phi, or a
// parameter (DefKind distinguishes; Instr is the defining instruction or
// phi, and nil only for a parameter).
type DefKind int

const (
	DefParam DefKind = iota
	DefPhi
	DefInstr
)

type DefSite struct {
	Kind  DefKind
	Block mir.BlockID
	Instr *mir.Instr // nil for DefParam
}

// Use records one occurrence of a value as an operand: the block and
// instruction index it appears in (index -1 marks the terminator), and
// which operand position within that instruction/terminator.
type Use struct {
	Block        mir.BlockID
	InstrIndex   int // index into Block.Instr, or -1 for the terminator, or -2 for a phi
	PhiBlock     mir.BlockID
	OperandIndex int
}

// UseDef is the per-function use-def map (spec.md §4.3), rebuilt on demand
// by each pass that needs it ("Rebuilt on demand per pass").
type UseDef struct {
	Defs map[mir.ValueID]DefSite
	Uses map[mir.ValueID][]Use
}

// Build constructs a fresh UseDef map by walking every block of f in its
// current BlockOrder.
func Build(f *mir.Function) *UseDef {
	ud := &UseDef{
		Defs: make(map[mir.ValueID]DefSite),
		Uses: make(map[mir.ValueID][]Use),
	}

	for _, p := range f.Params {
		ud.Defs[p.Value] = DefSite{Kind: DefParam, Block: f.Entry}
	}

	addUse := func(id mir.ValueID, u Use) {
		ud.Uses[id] = append(ud.Uses[id], u)
	}

	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		for _, p := range b.Phis {
			ud.Defs[p.Dst] = DefSite{Kind: DefPhi, Block: bid, Instr: p}
			for i, inc := range p.Incoming {
				if inc.Value.IsRef() {
					addUse(inc.Value.Ref, Use{Block: bid, InstrIndex: -2, PhiBlock: inc.Pred, OperandIndex: i})
				}
			}
		}
		for idx, in := range b.Instr {
			for _, d := range in.Defs() {
				ud.Defs[d] = DefSite{Kind: DefInstr, Block: bid, Instr: in}
			}
			for opIdx, v := range in.Uses() {
				addUse(v.Ref, Use{Block: bid, InstrIndex: idx, OperandIndex: opIdx})
			}
		}
		if b.Terminated() {
			for opIdx, v := range b.Term.Uses() {
				addUse(v.Ref, Use{Block: bid, InstrIndex: -1, OperandIndex: opIdx})
			}
		}
	}

	return ud
}

// IsUnused reports whether v has no recorded uses.
func (ud *UseDef) IsUnused(v mir.ValueID) bool {
	return len(ud.Uses[v]) == 0
}
