package casm

import "fmt"

// Operand is one operand of an Instruction: either a signed fp-relative
// offset, an immediate literal, or a resolved/unresolved label reference,
// discriminated by OperandKind (spec.md §4.5's frame-pointer ABI: "every
// operand that addresses a value is one of these three forms").
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandFp               // signed offset from the frame pointer
	OperandImm              // an immediate constant (felt or u32, by context)
	OperandLabel            // a not-yet-resolved symbolic target
)

type Operand struct {
	Kind    OperandKind
	FpOff   int32
	Imm     uint64
	Label   string
}

func FpOperand(off int32) Operand   { return Operand{Kind: OperandFp, FpOff: off} }
func ImmOperand(v uint64) Operand   { return Operand{Kind: OperandImm, Imm: v} }
func LabelOperand(l string) Operand { return Operand{Kind: OperandLabel, Label: l} }

func (o Operand) String() string {
	switch o.Kind {
	case OperandFp:
		if o.FpOff >= 0 {
			return fmt.Sprintf("[fp+%d]", o.FpOff)
		}
		return fmt.Sprintf("[fp%d]", o.FpOff)
	case OperandImm:
		return fmt.Sprintf("#%d", o.Imm)
	case OperandLabel:
		return o.Label
	default:
		return "-"
	}
}

// Instruction is one emitted target-VM instruction. Operands[0] is always
// the destination fp slot when the opcode writes a result.
type Instruction struct {
	Op       Opcode
	Operands []Operand

	// Label is an optional symbolic name for this instruction's own
	// address, printed by dumps when non-empty. Codegen does not set it:
	// block and function label addresses are kept in Generate's label
	// table and patched into operands by resolveLabels.
	Label string
}

func (in Instruction) String() string {
	s := in.Op.String()
	for _, o := range in.Operands {
		s += " " + o.String()
	}
	return s
}

// EntryKind discriminates ProgramData's two stream element shapes: a
// machine instruction, or a literal data word placed in the rodata segment
// (spec.md §4.6: "ProgramData is a single linear stream of Instruction or
// Value entries").
type EntryKind int

const (
	EntryInstruction EntryKind = iota
	EntryValue
)

type Entry struct {
	Kind  EntryKind
	Instr Instruction
	Value uint64
}

// ProgramData is the fully-resolved output of codegen: a linear entry
// stream plus the half-open index range of entries that form the rodata
// segment (constants deduplicated by structural hash, placed after all
// code, spec.md §4.6).
type ProgramData struct {
	Entries      []Entry
	RodataStart  int
	RodataLabels map[string]int // label name -> index into Entries, for rodata references
}

func NewProgramData() *ProgramData {
	return &ProgramData{RodataLabels: make(map[string]int)}
}

func (p *ProgramData) EmitInstruction(in Instruction) int {
	idx := len(p.Entries)
	p.Entries = append(p.Entries, Entry{Kind: EntryInstruction, Instr: in})
	return idx
}

func (p *ProgramData) EmitRodataValue(label string, v uint64) int {
	if idx, ok := p.RodataLabels[label]; ok {
		return idx
	}
	idx := len(p.Entries)
	p.Entries = append(p.Entries, Entry{Kind: EntryValue, Value: v})
	p.RodataLabels[label] = idx
	return idx
}

// EmitRodataBlob appends a contiguous run of rodata words under one label,
// deduplicating by label: a repeated label returns the original base index
// without appending a second copy of the words (spec.md §4.5 MakeFixedArray
// const: "deduplicated by structural hash, placed after all code").
func (p *ProgramData) EmitRodataBlob(label string, words []uint64) int {
	if idx, ok := p.RodataLabels[label]; ok {
		return idx
	}
	base := len(p.Entries)
	for _, v := range words {
		p.Entries = append(p.Entries, Entry{Kind: EntryValue, Value: v})
	}
	p.RodataLabels[label] = base
	return base
}

// NextAddress returns the address (entry index) the next EmitInstruction or
// EmitRodataValue call will land at. Code emission finishes entirely before
// the trailing rodata pass begins (spec.md §4.6: "the program counter after
// the last instruction denotes the rodata base"), so every address a label
// resolves to is simply the stream length at the moment of emission.
func (p *ProgramData) NextAddress() int {
	return len(p.Entries)
}

// InstructionCount returns the number of EntryInstruction entries, i.e.
// the code segment length in instructions, used when reporting a program's
// size or validating jump target ranges.
func (p *ProgramData) InstructionCount() int {
	n := 0
	for _, e := range p.Entries {
		if e.Kind == EntryInstruction {
			n++
		}
	}
	return n
}
