package builder

import (
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
	"github.com/cairo-m/mirc/pkg/ast"
	"github.com/cairo-m/mirc/pkg/semindex"
)

// builderModule carries module-wide state threaded into every function's
// fnBuilder. It is its own type, rather than a loose *semindex.Index
// argument, so that module-level bookkeeping added later (a struct-layout
// memoization cache, say) has a home without changing every call site --
// the same shape as the teacher's Parser holding a *SymbolTable rather
// than passing one around by value.
type builderModule struct {
	index semindex.Index
}

// Result is the outcome of lowering a whole ast.Module: the MIR module it
// produced, plus every diagnostic collected, keyed by function name
// (spec.md §4.2: "collects diagnostics and aborts lowering a function on
// a fatal error; the module continues with other functions").
type Result struct {
	Module      *mir.Module
	Diagnostics map[string][]*diag.Diagnostic
}

// HasErrors reports whether any function recorded a diagnostic.
func (r *Result) HasErrors() bool {
	for _, ds := range r.Diagnostics {
		if len(ds) > 0 {
			return true
		}
	}
	return false
}

// Lower translates a typed ast.Module into an SSA mir.Module via direct
// (Braun-Buchwald-Hack-Zwinkau) SSA construction (spec.md §4.2). Per
// spec.md §5 the core carries no global mutable state; everything here is
// threaded through builderModule/fnBuilder, freshly constructed per call.
func Lower(m *ast.Module, index semindex.Index) *Result {
	bm := &builderModule{index: index}
	mod := mir.NewModule()
	res := &Result{Module: mod, Diagnostics: make(map[string][]*diag.Diagnostic)}

	for i := range m.Functions {
		af := &m.Functions[i]
		sink := &diag.Sink{}
		f, ok := bm.lowerFunction(af, sink)
		if ok {
			if err := mod.AddFunction(f); err != nil {
				sink.Fatal(diag.New(diag.LoweringError, af.Name, err.Error()))
			}
		}
		res.Diagnostics[af.Name] = sink.Diagnostics()
	}
	return res
}

// returnSignature derives the ordered return-type list from an
// ast.Function's declared return type: nil/unit means zero return values
// (spec.md §8: "functions with no declared return implicitly return
// unit").
func returnSignature(af *ast.Function) []*mirtype.MirType {
	if af.ReturnType == nil || af.ReturnType.Kind == mirtype.KindUnit {
		return nil
	}
	return []*mirtype.MirType{af.ReturnType}
}

// lowerFunction lowers one ast.Function into one mir.Function. On a fatal
// lowering error it returns (nil, false) with the diagnostic already
// recorded in sink; the caller decides whether that poisons the module
// (it never does, only the function is dropped).
func (bm *builderModule) lowerFunction(af *ast.Function, sink *diag.Sink) (*mir.Function, bool) {
	sig := mir.Signature{Returns: returnSignature(af)}
	for _, p := range af.Params {
		t, ok := bm.index.TypeOfDef(p.Def)
		if !ok {
			sink.Fatal(diag.New(diag.LoweringError, af.Name, "parameter "+p.Name+" has no resolved type"))
			return nil, false
		}
		sig.Params = append(sig.Params, t)
	}

	f := mir.NewFunction(af.Name, sig)
	ssa := newSSAState(f)
	fb := &fnBuilder{mod: bm, f: f, ssa: ssa, sink: sink, index: bm.index, fname: af.Name, curBlock: f.Entry}

	var params []mir.Param
	for i, p := range af.Params {
		t := sig.Params[i]
		id, err := f.Registry.NewValue(t)
		if err != nil {
			sink.Fatal(diag.New(diag.LoweringError, af.Name, err.Error()))
			return nil, false
		}
		params = append(params, mir.Param{Name: p.Name, Value: id, Type: t})
		ssa.declareVarType(p.Def, t)
		ssa.writeVariable(p.Def, f.Entry, mir.RefValue(id))
	}
	f.Params = params

	if err := ssa.sealBlock(f.Entry); err != nil {
		sink.Fatal(diag.New(diag.LoweringError, af.Name, err.Error()))
		return nil, false
	}

	fb.lowerBlockStmts(af.Body)

	if !f.Block(fb.cur()).Terminated() {
		fb.mustSetTerm(fb.cur(), mir.Return())
	}

	ssa.sealAllRemaining(sink, af.Name)

	if sink.HasErrors() {
		return nil, false
	}
	return f, true
}
