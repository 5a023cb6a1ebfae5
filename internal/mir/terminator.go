package mir

import (
	"fmt"
	"strings"
)

// TermKind discriminates the terminator algebra (spec.md §3).
type TermKind int

const (
	TermJump TermKind = iota
	TermBranchIf
	TermBranchCmp
	TermReturn
	// TermNone marks a block that has not yet been given a terminator; it
	// must never survive to validation (MissingTerminator).
	TermNone
)

// Terminator is the single terminating instruction of a basic block
// (spec.md §3: "exactly one terminator").
type Terminator struct {
	Kind TermKind

	// TermJump
	Target BlockID

	// TermBranchIf
	Cond Value
	Then BlockID
	Else BlockID

	// TermBranchCmp (fused form, produced by FuseCmpBranch, spec.md §4.4
	// pass 7)
	Lhs   Value
	CmpOp BinOp
	Rhs   Value

	// TermReturn
	Values []Value
}

func Jump(target BlockID) Terminator {
	return Terminator{Kind: TermJump, Target: target}
}

func BranchIf(cond Value, thenB, elseB BlockID) Terminator {
	return Terminator{Kind: TermBranchIf, Cond: cond, Then: thenB, Else: elseB}
}

func BranchCmp(lhs Value, op BinOp, rhs Value, thenB, elseB BlockID) Terminator {
	return Terminator{Kind: TermBranchCmp, Lhs: lhs, CmpOp: op, Rhs: rhs, Then: thenB, Else: elseB}
}

func Return(values ...Value) Terminator {
	return Terminator{Kind: TermReturn, Values: values}
}

// Targets returns the block ids this terminator may transfer control to,
// in a stable order, used to derive predecessor sets (spec.md §4.3:
// "predecessor sets are derived from terminators rather than stored").
func (t Terminator) Targets() []BlockID {
	switch t.Kind {
	case TermJump:
		return []BlockID{t.Target}
	case TermBranchIf, TermBranchCmp:
		return []BlockID{t.Then, t.Else}
	default:
		return nil
	}
}

// Uses returns the Values a terminator reads.
func (t Terminator) Uses() []Value {
	var uses []Value
	add := func(v Value) {
		if v.IsRef() {
			uses = append(uses, v)
		}
	}
	switch t.Kind {
	case TermBranchIf:
		add(t.Cond)
	case TermBranchCmp:
		add(t.Lhs)
		add(t.Rhs)
	case TermReturn:
		for _, v := range t.Values {
			add(v)
		}
	}
	return uses
}

// RewriteUses applies f to every Value operand, returning the updated
// terminator (Terminator is a value type, so callers must assign back:
// block.Term = block.Term.RewriteUses(f)).
func (t Terminator) RewriteUses(f func(Value) Value) Terminator {
	switch t.Kind {
	case TermBranchIf:
		t.Cond = f(t.Cond)
	case TermBranchCmp:
		t.Lhs = f(t.Lhs)
		t.Rhs = f(t.Rhs)
	case TermReturn:
		for i := range t.Values {
			t.Values[i] = f(t.Values[i])
		}
	}
	return t
}

// WithTarget returns a copy of t with every occurrence of old replaced by
// new among its successor targets, used by edge-splitting and DCE block
// compaction to rewrite terminators in place.
func (t Terminator) WithTarget(old, new BlockID) Terminator {
	switch t.Kind {
	case TermJump:
		if t.Target == old {
			t.Target = new
		}
	case TermBranchIf, TermBranchCmp:
		if t.Then == old {
			t.Then = new
		}
		if t.Else == old {
			t.Else = new
		}
	}
	return t
}

func (t Terminator) String() string {
	switch t.Kind {
	case TermJump:
		return fmt.Sprintf("jump b%d", t.Target)
	case TermBranchIf:
		return fmt.Sprintf("branch_if %s, b%d, b%d", t.Cond, t.Then, t.Else)
	case TermBranchCmp:
		return fmt.Sprintf("branch_cmp %s %s %s, b%d, b%d", t.Lhs, t.CmpOp, t.Rhs, t.Then, t.Else)
	case TermReturn:
		vals := make([]string, len(t.Values))
		for i, v := range t.Values {
			vals[i] = v.String()
		}
		return "return " + strings.Join(vals, ", ")
	default:
		return "<no terminator>"
	}
}
