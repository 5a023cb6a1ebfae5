package codegen

import (
	"fmt"

	"github.com/cairo-m/mirc/internal/casm"
	"github.com/cairo-m/mirc/internal/diag"
)

// resolveLabels patches every OperandLabel operand selection emitted into
// a concrete OperandImm address (spec.md §4.5's label-resolution pass).
// Because selection already writes instructions directly in final layout
// order, address assignment happened for free as each block and rodata
// blob was appended; this pass is only the patch step, run once after all
// function code and all rodata has been emitted so forward references
// (a call to a function not yet selected, a jump to a later block, a
// constant array's rodata address) all resolve correctly.
func resolveLabels(prog *casm.ProgramData, labels map[string]int) []*diag.Diagnostic {
	var diags []*diag.Diagnostic
	for i := range prog.Entries {
		e := &prog.Entries[i]
		if e.Kind != casm.EntryInstruction {
			continue
		}
		for j := range e.Instr.Operands {
			op := &e.Instr.Operands[j]
			if op.Kind != casm.OperandLabel {
				continue
			}
			addr, ok := labels[op.Label]
			if !ok {
				diags = append(diags, diag.New(diag.CodegenError, "", fmt.Sprintf("unresolved label %q", op.Label)))
				continue
			}
			*op = casm.ImmOperand(uint64(addr))
		}
	}
	return diags
}
