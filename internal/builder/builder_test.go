package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairo-m/mirc/internal/analysis"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
	"github.com/cairo-m/mirc/pkg/ast"
	"github.com/cairo-m/mirc/pkg/semindex"
)

// idGen hands out fresh expression/definition ids and records their types
// in a StaticIndex, standing in for a real type-checker's side tables.
type idGen struct {
	nextExpr semindex.ExprID
	nextDef  semindex.DefID
	index    *semindex.StaticIndex
}

func newIDGen() *idGen {
	return &idGen{index: semindex.NewStaticIndex()}
}

func (g *idGen) node(t *mirtype.MirType) ast.Node {
	id := g.nextExpr
	g.nextExpr++
	g.index.ExprTypes[id] = t
	return ast.Node{ID: id}
}

func (g *idGen) def(t *mirtype.MirType) semindex.DefID {
	id := g.nextDef
	g.nextDef++
	g.index.DefTypes[id] = t
	return id
}

func (g *idGen) ident(d semindex.DefID, name string, t *mirtype.MirType) *ast.Ident {
	return &ast.Ident{Node: g.node(t), Def: d, Name: name}
}

func (g *idGen) intLit(v uint64, t *mirtype.MirType) *ast.IntLit {
	return &ast.IntLit{Node: g.node(t), Value: v}
}

func validateAndDump(t *testing.T, f *mir.Function) {
	t.Helper()
	dom := analysis.Compute(f)
	diags := mir.Validate(f, mir.PreSSADestruction, dom.AsChecker())
	assert.Empty(t, diags, "unexpected validation diagnostics for %s:\n%s", f.Name, mir.Print(f))
}

// TestLowerIfElseProducesPhi exercises the core of spec.md §4.2: an
// if/else assigning a variable in both arms must merge into exactly one
// phi reading both incoming values, with no reference to either arm's
// definition surviving past the merge block.
func TestLowerIfElseProducesPhi(t *testing.T) {
	g := newIDGen()
	felt := mirtype.Felt()
	boolT := mirtype.Bool()

	cDef := g.def(boolT)
	aDef := g.def(felt)
	bDef := g.def(felt)
	rDef := g.def(felt)

	letR := &ast.Let{Pattern: &ast.BindPattern{Def: rDef, Name: "r"}, Value: g.intLit(0, felt)}
	ifStmt := &ast.If{
		Cond: g.ident(cDef, "c", boolT),
		Then: []ast.Stmt{&ast.Assign{Target: &ast.IdentLvalue{Def: rDef, Name: "r"}, Value: g.ident(aDef, "a", felt)}},
		Else: []ast.Stmt{&ast.Assign{Target: &ast.IdentLvalue{Def: rDef, Name: "r"}, Value: g.ident(bDef, "b", felt)}},
	}
	ret := &ast.Return{Values: []ast.Expr{g.ident(rDef, "r", felt)}}

	fn := ast.Function{
		Name: "choose",
		Params: []ast.Param{
			{Def: cDef, Name: "c"},
			{Def: aDef, Name: "a"},
			{Def: bDef, Name: "b"},
		},
		ReturnType: felt,
		Body:       []ast.Stmt{letR, ifStmt, ret},
	}
	mod := &ast.Module{Functions: []ast.Function{fn}}

	result := Lower(mod, g.index)
	require.False(t, result.HasErrors(), "%v", result.Diagnostics)

	f := result.Module.Functions["choose"]
	require.NotNil(t, f)
	validateAndDump(t, f)

	var phiCount int
	for _, id := range f.BlockOrder() {
		phiCount += len(f.Blocks[id].Phis)
	}
	assert.Equal(t, 1, phiCount, "expected exactly one phi at the if/else merge:\n%s", mir.Print(f))
}

// TestLowerWhileSealsHeaderAfterLatch exercises the unsealed-header case
// of Braun's algorithm (spec.md §4.2): the loop header cannot be sealed
// until its latch predecessor is known, and the loop-carried variable
// must read back through a single phi rather than through separate
// definitions per iteration.
func TestLowerWhileSealsHeaderAfterLatch(t *testing.T) {
	g := newIDGen()
	felt := mirtype.Felt()

	nDef := g.def(felt)
	iDef := g.def(felt)

	letI := &ast.Let{Pattern: &ast.BindPattern{Def: iDef, Name: "i"}, Value: g.intLit(0, felt)}
	cond := &ast.Binary{
		Node: g.node(mirtype.Bool()),
		Op:   ast.OpNeq,
		Lhs:  g.ident(iDef, "i", felt),
		Rhs:  g.ident(nDef, "n", felt),
	}
	body := []ast.Stmt{
		&ast.Assign{
			Target: &ast.IdentLvalue{Def: iDef, Name: "i"},
			Value: &ast.Binary{
				Node: g.node(felt),
				Op:   ast.OpAdd,
				Lhs:  g.ident(iDef, "i", felt),
				Rhs:  g.intLit(1, felt),
			},
		},
	}
	loop := &ast.While{Cond: cond, Body: body}
	ret := &ast.Return{Values: []ast.Expr{g.ident(iDef, "i", felt)}}

	fn := ast.Function{
		Name:       "count",
		Params:     []ast.Param{{Def: nDef, Name: "n"}},
		ReturnType: felt,
		Body:       []ast.Stmt{letI, loop, ret},
	}
	mod := &ast.Module{Functions: []ast.Function{fn}}

	result := Lower(mod, g.index)
	require.False(t, result.HasErrors(), "%v", result.Diagnostics)

	f := result.Module.Functions["count"]
	require.NotNil(t, f)
	validateAndDump(t, f)

	var headerPhis int
	for _, id := range f.BlockOrder() {
		if len(f.Predecessors()[id]) == 2 {
			headerPhis += len(f.Blocks[id].Phis)
		}
	}
	assert.GreaterOrEqual(t, headerPhis, 1, "expected the loop header to carry at least one phi:\n%s", mir.Print(f))
}
