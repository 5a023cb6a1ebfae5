// Fixtures for cmd/mirc's demo driver: hand-built typed ASTs standing in
// for a real front end's output (spec.md §1: lexing/parsing/name
// resolution/type inference are all out of scope; this is the fixture
// contract pkg/ast documents). The three functions below are end-to-end
// scenarios 1, 2 and 4 of spec.md §8 (iterative felt Fibonacci,
// tuple destructuring/SROA, u32 wraparound), used both by main's demo
// dump and by integration_test.go.
package main

import (
	"github.com/cairo-m/mirc/internal/mirtype"
	"github.com/cairo-m/mirc/pkg/ast"
	"github.com/cairo-m/mirc/pkg/semindex"
)

// fixtureBuilder allocates fresh expression/definition ids and stamps
// their resolved types into a shared semindex.StaticIndex, the same role
// a real type-checker's output side table would play.
type fixtureBuilder struct {
	nextExpr semindex.ExprID
	nextDef  semindex.DefID
	index    *semindex.StaticIndex
}

func newFixtureBuilder() *fixtureBuilder {
	return &fixtureBuilder{index: semindex.NewStaticIndex()}
}

func (b *fixtureBuilder) node(t *mirtype.MirType) ast.Node {
	id := b.nextExpr
	b.nextExpr++
	b.index.ExprTypes[id] = t
	return ast.Node{ID: id}
}

func (b *fixtureBuilder) def(t *mirtype.MirType) semindex.DefID {
	id := b.nextDef
	b.nextDef++
	b.index.DefTypes[id] = t
	return id
}

func (b *fixtureBuilder) intLit(v uint64, t *mirtype.MirType) *ast.IntLit {
	return &ast.IntLit{Node: b.node(t), Value: v}
}

func (b *fixtureBuilder) ident(def semindex.DefID, name string, t *mirtype.MirType) *ast.Ident {
	return &ast.Ident{Node: b.node(t), Def: def, Name: name}
}

func (b *fixtureBuilder) binary(op ast.BinOpKind, lhs, rhs ast.Expr, t *mirtype.MirType) *ast.Binary {
	return &ast.Binary{Node: b.node(t), Op: op, Lhs: lhs, Rhs: rhs}
}

func (b *fixtureBuilder) tupleLit(t *mirtype.MirType, elems ...ast.Expr) *ast.TupleLit {
	return &ast.TupleLit{Node: b.node(t), Elems: elems}
}

// fibFunction builds spec.md §8 scenario 1: iterative felt Fibonacci.
// Exercises loop-carried phis, branch fusion on `i != n`, and
// copy-propagation of the `t` temporary.
func (b *fixtureBuilder) fibFunction() ast.Function {
	felt := mirtype.Felt()

	nDef := b.def(felt)
	aDef := b.def(felt)
	bDef := b.def(felt)
	iDef := b.def(felt)
	tDef := b.def(felt)

	letA := &ast.Let{Pattern: &ast.BindPattern{Def: aDef, Name: "a"}, Value: b.intLit(0, felt)}
	letB := &ast.Let{Pattern: &ast.BindPattern{Def: bDef, Name: "b"}, Value: b.intLit(1, felt)}
	letI := &ast.Let{Pattern: &ast.BindPattern{Def: iDef, Name: "i"}, Value: b.intLit(0, felt)}

	cond := b.binary(ast.OpNeq, b.ident(iDef, "i", felt), b.ident(nDef, "n", felt), mirtype.Bool())

	letT := &ast.Let{
		Pattern: &ast.BindPattern{Def: tDef, Name: "t"},
		Value:   b.binary(ast.OpAdd, b.ident(aDef, "a", felt), b.ident(bDef, "b", felt), felt),
	}
	assignA := &ast.Assign{Target: &ast.IdentLvalue{Def: aDef, Name: "a"}, Value: b.ident(bDef, "b", felt)}
	assignB := &ast.Assign{Target: &ast.IdentLvalue{Def: bDef, Name: "b"}, Value: b.ident(tDef, "t", felt)}
	assignI := &ast.Assign{
		Target: &ast.IdentLvalue{Def: iDef, Name: "i"},
		Value:  b.binary(ast.OpAdd, b.ident(iDef, "i", felt), b.intLit(1, felt), felt),
	}

	loop := &ast.While{Cond: cond, Body: []ast.Stmt{letT, assignA, assignB, assignI}}
	ret := &ast.Return{Values: []ast.Expr{b.ident(aDef, "a", felt)}}

	return ast.Function{
		Name:       "fib",
		Params:     []ast.Param{{Def: nDef, Name: "n"}},
		ReturnType: felt,
		Body:       []ast.Stmt{letA, letB, letI, loop, ret},
	}
}

// swapFunction builds spec.md §8 scenario 2: tuple destructuring,
// grounds the SROA pass on nested-tuple intermediates that never escape.
func (b *fixtureBuilder) swapFunction() ast.Function {
	felt := mirtype.Felt()
	pair := mirtype.Tuple(felt, felt)

	xDef := b.def(felt)
	yDef := b.def(felt)
	aDef := b.def(felt)
	bDef := b.def(felt)

	letXY := &ast.Let{
		Pattern: &ast.TuplePattern{Elems: []ast.Pattern{
			&ast.BindPattern{Def: xDef, Name: "x"},
			&ast.BindPattern{Def: yDef, Name: "y"},
		}},
		Value: b.tupleLit(pair, b.intLit(3, felt), b.intLit(7, felt)),
	}
	letAB := &ast.Let{
		Pattern: &ast.TuplePattern{Elems: []ast.Pattern{
			&ast.BindPattern{Def: aDef, Name: "a"},
			&ast.BindPattern{Def: bDef, Name: "b"},
		}},
		Value: b.tupleLit(pair, b.ident(yDef, "y", felt), b.ident(xDef, "x", felt)),
	}
	ret := &ast.Return{Values: []ast.Expr{
		b.tupleLit(pair, b.ident(aDef, "a", felt), b.ident(bDef, "b", felt)),
	}}

	return ast.Function{
		Name:       "swap",
		ReturnType: pair,
		Body:       []ast.Stmt{letXY, letAB, ret},
	}
}

// wrapFunction builds spec.md §8 scenario 4: u32 wraparound addition.
func (b *fixtureBuilder) wrapFunction() ast.Function {
	u32 := mirtype.U32()
	aDef := b.def(u32)
	bDef := b.def(u32)

	sum := b.binary(ast.OpAdd, b.ident(aDef, "a", u32), b.ident(bDef, "b", u32), u32)
	ret := &ast.Return{Values: []ast.Expr{sum}}

	return ast.Function{
		Name: "wrap",
		Params: []ast.Param{
			{Def: aDef, Name: "a"},
			{Def: bDef, Name: "b"},
		},
		ReturnType: u32,
		Body:       []ast.Stmt{ret},
	}
}

// BuildDemoModule assembles the three fixture functions into one module
// over a single shared index, the host-side input the rest of the
// pipeline (internal/builder onward) consumes.
func BuildDemoModule() (*ast.Module, *semindex.StaticIndex) {
	b := newFixtureBuilder()
	mod := &ast.Module{Functions: []ast.Function{
		b.fibFunction(),
		b.swapFunction(),
		b.wrapFunction(),
	}}
	return mod, b.index
}
