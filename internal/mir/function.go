package mir

import (
	"fmt"
	"sort"

	"github.com/cairo-m/mirc/internal/mirtype"
)

// Param binds a function parameter to a value identifier (spec.md §3:
// "an ordered parameter list (each parameter is bound to a value)").
type Param struct {
	Name  string
	Value ValueID
	Type  *mirtype.MirType
}

// Signature describes ordered parameter and return slot counts, derived
// from the parameter/return MirTypes (spec.md §3).
type Signature struct {
	Params      []*mirtype.MirType
	Returns     []*mirtype.MirType
}

// ParamSlots returns the total argument slot count M (spec.md §4.5).
func (s Signature) ParamSlots() int {
	n := 0
	for _, t := range s.Params {
		n += mirtype.SlotCount(t)
	}
	return n
}

// ReturnSlots returns the total return slot count K (spec.md §4.5).
func (s Signature) ReturnSlots() int {
	n := 0
	for _, t := range s.Returns {
		n += mirtype.SlotCount(t)
	}
	return n
}

// Function is one MIR function: an entry block, a dense set of basic
// blocks, a value registry, parameters, and a signature (spec.md §3).
type Function struct {
	Name      string
	Entry     BlockID
	Blocks    map[BlockID]*Block
	Registry  ValueRegistry
	Params    []Param
	Signature Signature

	nextBlockID BlockID
}

// NewFunction creates a function with a single, unterminated entry block.
func NewFunction(name string, sig Signature) *Function {
	f := &Function{
		Name:      name,
		Blocks:    make(map[BlockID]*Block),
		Signature: sig,
	}
	entry := f.NewBlock("entry")
	f.Entry = entry.ID
	return f
}

// NewBlock allocates a fresh block with a dense, monotonically increasing
// id (compaction after DCE renumbers these, spec.md §4.4 pass 8).
func (f *Function) NewBlock(name string) *Block {
	id := f.nextBlockID
	f.nextBlockID++
	b := NewBlock(id, name)
	f.Blocks[id] = b
	return b
}

// Block returns the block with the given id, or nil.
func (f *Function) Block(id BlockID) *Block { return f.Blocks[id] }

// BlockOrder returns block ids in ascending numeric order. Every pass in
// internal/passes and the pretty-printer iterate blocks in this order;
// reverse-postorder (ReversePostorder) is used only by the dominance
// computation, Compact, and codegen's block layout.
func (f *Function) BlockOrder() []BlockID {
	ids := make([]BlockID, 0, len(f.Blocks))
	for id := range f.Blocks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Predecessors returns, for every block (reachable or not), the set of blocks whose
// terminator targets it. Derived fresh from terminators each call per
// spec.md §4.3's design note (never cached across a replace).
func (f *Function) Predecessors() map[BlockID][]BlockID {
	preds := make(map[BlockID][]BlockID)
	for _, id := range f.BlockOrder() {
		preds[id] = nil
	}
	for _, id := range f.BlockOrder() {
		b := f.Blocks[id]
		if !b.Terminated() {
			continue
		}
		for _, t := range b.Term.Targets() {
			preds[t] = append(preds[t], id)
		}
	}
	return preds
}

// ReachableBlocks returns the set of blocks reachable from Entry by a BFS
// over terminator targets (used by DCE block removal, spec.md §4.4 pass 8).
func (f *Function) ReachableBlocks() map[BlockID]bool {
	seen := map[BlockID]bool{f.Entry: true}
	queue := []BlockID{f.Entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		b := f.Blocks[id]
		if b == nil || !b.Terminated() {
			continue
		}
		for _, t := range b.Term.Targets() {
			if !seen[t] {
				seen[t] = true
				queue = append(queue, t)
			}
		}
	}
	return seen
}

// ReversePostorder returns reachable blocks in reverse-postorder from
// Entry, used by the dominance computation, Compact, and codegen's block
// layout; the passes iterate in BlockOrder instead.
func (f *Function) ReversePostorder() []BlockID {
	visited := map[BlockID]bool{}
	var post []BlockID
	var visit func(id BlockID)
	visit = func(id BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		b := f.Blocks[id]
		if b != nil && b.Terminated() {
			for _, t := range b.Term.Targets() {
				visit(t)
			}
		}
		post = append(post, id)
	}
	visit(f.Entry)
	rpo := make([]BlockID, len(post))
	for i, id := range post {
		rpo[len(post)-1-i] = id
	}
	return rpo
}

// RemoveBlock deletes a block outright. Callers must ensure no surviving
// terminator still targets it.
func (f *Function) RemoveBlock(id BlockID) {
	delete(f.Blocks, id)
}

// Compact renumbers blocks densely in their current reverse-postorder,
// rewriting every terminator's targets and every phi's predecessor
// references (spec.md §4.4 pass 8: "compact block numbering; rewrite all
// terminator targets").
func (f *Function) Compact() {
	order := f.ReversePostorder()
	remap := make(map[BlockID]BlockID, len(order))
	for i, old := range order {
		remap[old] = BlockID(i)
	}

	newBlocks := make(map[BlockID]*Block, len(order))
	for _, old := range order {
		b := f.Blocks[old]
		b.ID = remap[old]
		b.Term = rewriteTerminatorBlocks(b.Term, remap)
		for _, p := range b.Phis {
			for i := range p.Incoming {
				if nb, ok := remap[p.Incoming[i].Pred]; ok {
					p.Incoming[i].Pred = nb
				}
			}
		}
		newBlocks[b.ID] = b
	}
	f.Entry = remap[f.Entry]
	f.Blocks = newBlocks
	f.nextBlockID = BlockID(len(order))
}

func rewriteTerminatorBlocks(t Terminator, remap map[BlockID]BlockID) Terminator {
	switch t.Kind {
	case TermJump:
		t.Target = remap[t.Target]
	case TermBranchIf, TermBranchCmp:
		t.Then = remap[t.Then]
		t.Else = remap[t.Else]
	}
	return t
}

// DropDeadPredecessors removes phi incoming entries whose predecessor no
// longer exists in the function (spec.md §4.4 pass 8: "remove phi incoming
// entries for dropped predecessors").
func (f *Function) DropDeadPredecessors() {
	for _, b := range f.Blocks {
		for _, p := range b.Phis {
			kept := p.Incoming[:0]
			for _, inc := range p.Incoming {
				if _, ok := f.Blocks[inc.Pred]; ok {
					kept = append(kept, inc)
				}
			}
			p.Incoming = kept
		}
	}
}

func (f *Function) String() string {
	return fmt.Sprintf("fn %s", f.Name)
}
