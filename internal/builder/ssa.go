// Package builder implements the MIR builder (C2, spec.md §4.2): AST ->
// SSA MIR lowering with direct (Braun-Buchwald-Hack-Zwinkau) SSA
// construction, so promotable locals never pass through a memory form.
//
// Grounded on the teacher's parser.Parser
// (_examples/lookbusy1344-arm_emulator/parser/parser.go): a stateful,
// single-pass-per-function translator that tracks "current position"
// state (there: currentAddress/originSet; here: currentBlock/sealed
// blocks) and threads a symbol table alongside it (there: SymbolTable;
// here: the per-variable current-value map).
package builder

import (
	"fmt"

	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
	"github.com/cairo-m/mirc/pkg/semindex"
)

// ssaState carries the direct-SSA-construction bookkeeping for one
// function: per-block current-value maps, sealed/unsealed tracking, and
// pending incomplete phis (spec.md §4.2).
type ssaState struct {
	f *mir.Function

	// currentDef[block][var] is the "current value" of var in block.
	currentDef map[mir.BlockID]map[semindex.DefID]mir.Value

	sealed map[mir.BlockID]bool

	// incompletePhis[block][var] is the phi awaiting seal_block to fill
	// its operands, for unsealed blocks.
	incompletePhis map[mir.BlockID]map[semindex.DefID]mir.ValueID

	varType map[semindex.DefID]*mirtype.MirType

	phiOwner map[mir.ValueID]*mir.Instr
	phiBlock map[mir.ValueID]mir.BlockID
	phiVar   map[mir.ValueID]semindex.DefID
	// phiUsers[p] is the set of other phi value ids whose operand list
	// references p, so trivial-phi elimination can propagate.
	phiUsers map[mir.ValueID]map[mir.ValueID]bool
}

func newSSAState(f *mir.Function) *ssaState {
	return &ssaState{
		f:              f,
		currentDef:     make(map[mir.BlockID]map[semindex.DefID]mir.Value),
		sealed:         make(map[mir.BlockID]bool),
		incompletePhis: make(map[mir.BlockID]map[semindex.DefID]mir.ValueID),
		varType:        make(map[semindex.DefID]*mirtype.MirType),
		phiOwner:       make(map[mir.ValueID]*mir.Instr),
		phiBlock:       make(map[mir.ValueID]mir.BlockID),
		phiVar:         make(map[mir.ValueID]semindex.DefID),
		phiUsers:       make(map[mir.ValueID]map[mir.ValueID]bool),
	}
}

func (s *ssaState) declareVarType(v semindex.DefID, t *mirtype.MirType) {
	if _, ok := s.varType[v]; !ok {
		s.varType[v] = t
	}
}

// writeVariable updates the per-block current-value map (spec.md §4.2).
func (s *ssaState) writeVariable(v semindex.DefID, block mir.BlockID, val mir.Value) {
	m := s.currentDef[block]
	if m == nil {
		m = make(map[semindex.DefID]mir.Value)
		s.currentDef[block] = m
	}
	m[v] = val
}

// readVariable implements spec.md §4.2's read_variable(var, block).
func (s *ssaState) readVariable(v semindex.DefID, block mir.BlockID) (mir.Value, error) {
	if val, ok := s.currentDef[block][v]; ok {
		return val, nil
	}
	return s.readVariableRecursive(v, block)
}

func (s *ssaState) readVariableRecursive(v semindex.DefID, block mir.BlockID) (mir.Value, error) {
	var val mir.Value

	if !s.sealed[block] {
		phiID, err := s.newPhi(block, v)
		if err != nil {
			return mir.Value{}, err
		}
		if s.incompletePhis[block] == nil {
			s.incompletePhis[block] = make(map[semindex.DefID]mir.ValueID)
		}
		s.incompletePhis[block][v] = phiID
		val = mir.RefValue(phiID)
	} else {
		preds := s.f.Predecessors()[block]
		switch len(preds) {
		case 0:
			return mir.Value{}, fmt.Errorf("builder: undefined variable read in unreachable block b%d with no definition", block)
		case 1:
			v2, err := s.readVariable(v, preds[0])
			if err != nil {
				return mir.Value{}, err
			}
			val = v2
		default:
			phiID, err := s.newPhi(block, v)
			if err != nil {
				return mir.Value{}, err
			}
			// Write the phi as the current value before filling operands,
			// to break cycles on loop-carried reads (spec.md §4.2).
			s.writeVariable(v, block, mir.RefValue(phiID))
			v2, err := s.addPhiOperands(v, phiID, block)
			if err != nil {
				return mir.Value{}, err
			}
			val = v2
		}
	}

	s.writeVariable(v, block, val)
	return val, nil
}

func (s *ssaState) newPhi(block mir.BlockID, v semindex.DefID) (mir.ValueID, error) {
	t := s.varType[v]
	if t == nil {
		return 0, fmt.Errorf("builder: no known type for variable when synthesizing a phi in b%d", block)
	}
	id, err := s.f.Registry.NewValue(t)
	if err != nil {
		return 0, err
	}
	instr := &mir.Instr{Op: mir.OpPhi, Dst: id, Type: t}
	if err := s.f.Block(block).PushInstruction(instr); err != nil {
		return 0, err
	}
	s.phiOwner[id] = instr
	s.phiBlock[id] = block
	s.phiVar[id] = v
	return id, nil
}

// addPhiOperands fills a phi's incoming list by reading v from every
// predecessor of block, then attempts trivial-phi elimination (spec.md
// §4.2).
func (s *ssaState) addPhiOperands(v semindex.DefID, phiID mir.ValueID, block mir.BlockID) (mir.Value, error) {
	instr := s.phiOwner[phiID]
	for _, pred := range s.f.Predecessors()[block] {
		val, err := s.readVariable(v, pred)
		if err != nil {
			return mir.Value{}, err
		}
		instr.Incoming = append(instr.Incoming, mir.PhiIncoming{Pred: pred, Value: val})
		if val.IsRef() {
			if _, isPhi := s.phiOwner[val.Ref]; isPhi {
				s.addPhiUser(val.Ref, phiID)
			}
		}
	}
	return s.tryRemoveTrivialPhi(phiID)
}

func (s *ssaState) addPhiUser(producer, user mir.ValueID) {
	if s.phiUsers[producer] == nil {
		s.phiUsers[producer] = make(map[mir.ValueID]bool)
	}
	s.phiUsers[producer][user] = true
}

// sealBlock fills operands for every phi left pending in block while it
// was unsealed, then marks block sealed (spec.md §4.2's seal_block).
func (s *ssaState) sealBlock(block mir.BlockID) error {
	if s.sealed[block] {
		return nil
	}
	for v, phiID := range s.incompletePhis[block] {
		if _, err := s.addPhiOperands(v, phiID, block); err != nil {
			return err
		}
	}
	delete(s.incompletePhis, block)
	s.sealed[block] = true
	return nil
}

// tryRemoveTrivialPhi implements spec.md §4.2's trivial-phi elimination:
// if all operands are the same value or a self-reference, replace every
// use of the phi (including the per-block current-value maps — "update
// the variable map with the replacement value so subsequent reads do not
// return the stale phi value") with that unique operand, and recursively
// retry any phi that used this one as an operand.
func (s *ssaState) tryRemoveTrivialPhi(phiID mir.ValueID) (mir.Value, error) {
	instr, ok := s.phiOwner[phiID]
	if !ok {
		// Already removed by an earlier recursive call.
		return mir.RefValue(phiID), nil
	}

	var same *mir.Value
	trivial := true
	for _, inc := range instr.Incoming {
		if inc.Value.IsRef() && inc.Value.Ref == phiID {
			continue // self-reference
		}
		if same != nil && !valuesEqual(*same, inc.Value) {
			trivial = false
			break
		}
		v := inc.Value
		same = &v
	}

	if !trivial {
		return mir.RefValue(phiID), nil
	}

	var replacement mir.Value
	if same == nil {
		// The phi is unreachable (e.g. dead loop header with no live
		// entry); it has no value to take. Fold it to the error sentinel
		// rather than leave a dangling self-reference.
		replacement = mir.LitValue(mir.ErrorLiteral())
	} else {
		replacement = *same
	}

	users := s.phiUsers[phiID]
	delete(s.phiUsers, phiID)

	block := s.phiBlock[phiID]
	s.f.Block(block).RemovePhi(phiID)
	delete(s.phiOwner, phiID)
	delete(s.phiBlock, phiID)
	delete(s.phiVar, phiID)

	rewrite := func(v mir.Value) mir.Value {
		if v.IsRef() && v.Ref == phiID {
			return replacement
		}
		return v
	}
	rewriteFunctionUses(s.f, rewrite)
	for block, vars := range s.currentDef {
		for v, val := range vars {
			if val.IsRef() && val.Ref == phiID {
				s.currentDef[block][v] = replacement
			}
		}
		_ = block
	}

	if replacement.IsRef() {
		if _, isPhi := s.phiOwner[replacement.Ref]; isPhi {
			for user := range users {
				s.addPhiUser(replacement.Ref, user)
			}
		}
	}

	for user := range users {
		if user == phiID {
			continue
		}
		if _, err := s.tryRemoveTrivialPhi(user); err != nil {
			return mir.Value{}, err
		}
	}

	return replacement, nil
}

func valuesEqual(a, b mir.Value) bool {
	if a.Origin != b.Origin {
		return false
	}
	if a.IsRef() {
		return a.Ref == b.Ref
	}
	if a.Literal.Kind != b.Literal.Kind {
		return false
	}
	switch a.Literal.Kind {
	case mir.LitInt:
		return a.Literal.Int == b.Literal.Int
	case mir.LitBool:
		return a.Literal.Bool == b.Literal.Bool
	default:
		return true
	}
}

// rewriteFunctionUses applies f to every Value operand across every
// block's phis, instructions, and terminator.
func rewriteFunctionUses(fn *mir.Function, f func(mir.Value) mir.Value) {
	for _, bid := range fn.BlockOrder() {
		b := fn.Block(bid)
		for _, p := range b.Phis {
			p.RewriteUses(f)
		}
		for _, in := range b.Instr {
			in.RewriteUses(f)
		}
		if b.Terminated() {
			b.Term = b.Term.RewriteUses(f)
		}
	}
}

// sealAllRemaining is called once lowering a function completes, to
// seal any block reachable only via a not-yet-processed loop latch and
// flush diagnostics about truly-unreachable unsealed blocks.
func (s *ssaState) sealAllRemaining(sink *diag.Sink, fname string) {
	for _, bid := range s.f.BlockOrder() {
		if !s.sealed[bid] {
			if err := s.sealBlock(bid); err != nil {
				sink.Fatal(diag.New(diag.LoweringError, fname, err.Error()))
			}
		}
	}
}
