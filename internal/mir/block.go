package mir

import "fmt"

// Block is a basic block: an optional prefix of phi instructions, then a
// sequence of non-phi instructions, then exactly one terminator
// (spec.md §3).
type Block struct {
	ID   BlockID
	Name string // human-readable, optional

	Phis  []*Instr // Op == OpPhi, prefix-only
	Instr []*Instr // non-phi instructions, in order

	Term         Terminator
	hasTerm      bool
	predsValid   bool // unused: predecessors are always derived, never cached persistently
}

// NewBlock creates an empty, unterminated block.
func NewBlock(id BlockID, name string) *Block {
	return &Block{ID: id, Name: name, Term: Terminator{Kind: TermNone}}
}

// Terminated reports whether SetTerminator has been called.
func (b *Block) Terminated() bool { return b.hasTerm }

// PushInstruction appends a non-phi instruction, or records a phi at the
// block prefix, per spec.md §4.1's push_instruction operation. Fails if
// the block is already terminated, or if a phi is pushed after a non-phi
// instruction has already been appended (prefix-only invariant).
func (b *Block) PushInstruction(in *Instr) error {
	if b.hasTerm {
		return fmt.Errorf("mir: cannot push instruction into terminated block b%d", b.ID)
	}
	if in.IsPhi() {
		if len(b.Instr) > 0 {
			return fmt.Errorf("mir: phi pushed after non-phi instruction in block b%d", b.ID)
		}
		b.Phis = append(b.Phis, in)
		return nil
	}
	b.Instr = append(b.Instr, in)
	return nil
}

// SetTerminator sets the block's terminator exactly once. Use ReplaceTerminator
// to change it afterward (spec.md §4.1: "or via an explicit replace helper
// that also updates CFG edges" — here that update is implicit since
// predecessor sets are always derived live from terminators, never cached).
func (b *Block) SetTerminator(t Terminator) error {
	if b.hasTerm {
		return fmt.Errorf("mir: block b%d already has a terminator; use ReplaceTerminator", b.ID)
	}
	b.Term = t
	b.hasTerm = true
	return nil
}

// ReplaceTerminator overwrites an existing terminator. Because predecessor
// sets are derived on demand from terminators (spec.md §4.3 design note),
// no secondary bookkeeping needs to be touched here; callers that hold a
// cached analysis (dominance, use-def) must recompute it.
func (b *Block) ReplaceTerminator(t Terminator) {
	b.Term = t
	b.hasTerm = true
}

// AllInstructions returns phis followed by non-phi instructions, the
// physical order instructions appear in within the block.
func (b *Block) AllInstructions() []*Instr {
	all := make([]*Instr, 0, len(b.Phis)+len(b.Instr))
	all = append(all, b.Phis...)
	all = append(all, b.Instr...)
	return all
}

// RemovePhi removes the phi with the given destination, if present.
func (b *Block) RemovePhi(dst ValueID) {
	out := b.Phis[:0]
	for _, p := range b.Phis {
		if p.Dst != dst {
			out = append(out, p)
		}
	}
	b.Phis = out
}

// RemoveInstrAt removes the instruction at index i (non-phi list).
func (b *Block) RemoveInstrAt(i int) {
	b.Instr = append(b.Instr[:i], b.Instr[i+1:]...)
}

// InsertBeforeTerminator appends an instruction just before the block's
// terminator, used by SSA-destruction parallel copies (spec.md §4.4 Stage B).
func (b *Block) InsertBeforeTerminator(in *Instr) {
	b.Instr = append(b.Instr, in)
}

func (b *Block) String() string {
	label := b.Name
	if label == "" {
		label = fmt.Sprintf("b%d", b.ID)
	}
	return label
}
