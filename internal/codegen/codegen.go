package codegen

import (
	"github.com/cairo-m/mirc/internal/casm"
	"github.com/cairo-m/mirc/internal/config"
	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// Generate lowers every function in m into one linked casm.ProgramData
// plus its ABI descriptor (C5, spec.md §4.5/§6): each function's frame is
// built, its body selected directly into final program order, then one
// deduplicated rodata flush and a final label-patching pass resolve every
// forward reference left over from selection (a call to a function
// selected earlier or later, a branch to a later block, a constant
// array's rodata address).
func Generate(m *mir.Module, cfg *config.Config) (*casm.ProgramData, *casm.AbiDescriptor, []*diag.Diagnostic) {
	prog := casm.NewProgramData()
	labels := make(map[string]int)
	rodata := newRodataBuilder()

	var diags []*diag.Diagnostic
	names := m.FunctionOrder()
	frames := make(map[string]*Frame, len(names))

	for _, name := range names {
		f := m.Functions[name]
		fr := BuildFrame(f)
		frames[name] = fr
		sel := newSelector(f, fr, prog, labels, rodata, cfg)
		diags = append(diags, sel.run()...)
	}

	prog.RodataStart = rodata.flush(prog)
	diags = append(diags, resolveLabels(prog, labels)...)

	abi := &casm.AbiDescriptor{
		FormatVersion: casm.CurrentFormatVersion,
		EntryFunction: entryFunctionName(names),
	}
	for _, name := range names {
		abi.Functions = append(abi.Functions, buildFunctionABI(m.Functions[name], frames[name], labels))
	}

	return prog, abi, diags
}

// entryFunctionName picks "main" if present, else the first function in
// module declaration order — the module's entry point is otherwise
// unspecified by the source language (spec.md is silent on program entry;
// "main" is this package's convention).
func entryFunctionName(names []string) string {
	for _, n := range names {
		if n == "main" {
			return "main"
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

func buildFunctionABI(f *mir.Function, fr *Frame, labels map[string]int) casm.FunctionABI {
	out := casm.FunctionABI{Name: f.Name, Entry: f.Name, EntryPC: labels[f.Name], FrameSize: fr.FrameSize}
	for i, p := range f.Params {
		out.Args = append(out.Args, casm.Slot{
			Name:      p.Name,
			Kind:      slotKind(p.Type),
			FpOffset:  int32(fr.ArgSlots[i]),
			SizeSlots: valueSlotCount(p.Type),
		})
	}
	for i, rt := range f.Signature.Returns {
		out.Returns = append(out.Returns, casm.Slot{
			Kind:      slotKind(rt),
			FpOffset:  int32(fr.ReturnSlots[i]),
			SizeSlots: valueSlotCount(rt),
		})
	}
	return out
}

func slotKind(t *mirtype.MirType) casm.SlotKind {
	switch t.Kind {
	case mirtype.KindFelt:
		return casm.SlotFelt
	case mirtype.KindU32:
		return casm.SlotU32
	case mirtype.KindBool:
		return casm.SlotBool
	case mirtype.KindUnit:
		return casm.SlotUnit
	case mirtype.KindTuple:
		return casm.SlotTuple
	case mirtype.KindStruct:
		return casm.SlotStruct
	case mirtype.KindArray:
		return casm.SlotArray
	case mirtype.KindPointer:
		return casm.SlotPointer
	default:
		return casm.SlotFelt
	}
}
