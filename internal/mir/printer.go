package mir

import (
	"fmt"
	"strings"
)

// Print renders a function as the round-trippable textual MIR the teacher
// calls "DEBUG_MIR" dump (spec.md §6). It is round-trippable at the
// instruction level: every line's Instr.String()/Terminator.String() form
// is the one emitted here, unambiguous enough to reconstruct the
// instruction's shape.
func Print(f *Function) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: v%d: %s", p.Name, p.Value, p.Type)
	}
	sb.WriteString(") -> (")
	for i, r := range f.Signature.Returns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(r.String())
	}
	sb.WriteString(") {\n")

	for _, id := range f.BlockOrder() {
		b := f.Blocks[id]
		fmt.Fprintf(&sb, "%s:\n", b)
		for _, p := range b.Phis {
			fmt.Fprintf(&sb, "    %s\n", p)
		}
		for _, in := range b.Instr {
			fmt.Fprintf(&sb, "    %s\n", in)
		}
		if b.Terminated() {
			fmt.Fprintf(&sb, "    %s\n", b.Term)
		} else {
			sb.WriteString("    <missing terminator>\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// PrintModule renders every function in insertion order.
func PrintModule(m *Module) string {
	var sb strings.Builder
	for _, name := range m.FunctionOrder() {
		sb.WriteString(Print(m.Functions[name]))
		sb.WriteString("\n")
	}
	return sb.String()
}
