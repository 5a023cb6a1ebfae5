// Package codegen lowers optimized, phi-free MIR into CASM (C5, spec.md
// §4.5): fixed frame-pointer-relative slot placement, two-pass label
// resolution, per-instruction-class selection, and rodata deduplication.
//
// Grounded on the teacher's encoder.Encoder (encoder/encoder.go): a
// single router (EncodeInstruction) dispatching by mnemonic class to one
// function per instruction family, fed by a two-pass address/symbol
// resolution the same shape loader.LoadProgramIntoVM drives (first pass:
// addresses/labels; second pass: emit).
package codegen

import (
	"github.com/cairo-m/mirc/internal/mir"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// Frame is the fp-relative slot layout of one function: where each
// parameter, return value, and SSA value lives (spec.md §4.5). Locals
// (including every temporary the builder/passes produced) are placed at
// fp+0 and upward in definition order; a real register allocator is out of
// scope, every live SSA value simply gets a permanently-owned slot.
type Frame struct {
	ArgSlots    []int // per-parameter base fp offset, parallel to Function.Params
	ReturnSlots []int // per-return-type base fp offset, parallel to Function.Signature.Returns
	ValueSlots  map[mir.ValueID]int
	Calls       map[*mir.Instr]CallLayout
	FrameSize   int // number of fp+ slots reserved for locals/temporaries/call staging
}

// CallLayout is the caller-frame staging region reserved for one call site
// (spec.md §4.5: "caller materializes arguments at the callee's argument
// slot range"). The callee's own fp, once CALL_ABS_IMM bumps it by
// FrameDelta, sees ArgBase/RetBase (converted to caller coordinates here)
// as its own negative-offset argument and return regions.
type CallLayout struct {
	ArgBase    int // caller-frame fp offset of the callee's first argument slot
	RetBase    int // caller-frame fp offset of the callee's first return slot
	FrameDelta int // amount CALL_ABS_IMM adds to fp to reach the callee's own fp
}

func sumSlots(ts []*mirtype.MirType) int {
	n := 0
	for _, t := range ts {
		n += valueSlotCount(t)
	}
	return n
}

// valueSlotCount returns how many fp-relative slots a value of type t
// occupies when held directly by an SSA value, a parameter binding, or a
// return slot: identical to mirtype.SlotCount except for arrays, which are
// always held through a 1-slot pointer (spec.md §3 "Pointer ... used solely
// for arrays", §6 "Fixed-size arrays are passed as a pointer at the ABI
// boundary (1 element)"). mirtype.SlotCount(array)'s full element-count
// figure is still used, unmodified, to size an array's own backing storage
// and to compute offsets within it or within an aggregate that embeds one.
func valueSlotCount(t *mirtype.MirType) int {
	if t.Kind == mirtype.KindArray {
		return 1
	}
	return mirtype.SlotCount(t)
}

// reservedBelowFp is the count of fp-2/fp-1 slots reserved for the saved
// frame pointer and return address (spec.md §4.5).
const reservedBelowFp = 2

// BuildFrame computes f's slot layout: argument and return regions below
// fp per the fixed ABI, then one slot range per surviving SSA value above
// fp: parameters first, then each block's phis and instruction results
// (with a staging region after each call) in BlockOrder.
func BuildFrame(f *mir.Function) *Frame {
	argSize := 0
	for _, p := range f.Params {
		argSize += valueSlotCount(p.Type)
	}
	retSize := 0
	for _, rt := range f.Signature.Returns {
		retSize += valueSlotCount(rt)
	}

	fr := &Frame{ValueSlots: make(map[mir.ValueID]int), Calls: make(map[*mir.Instr]CallLayout)}

	argBase := -(argSize + retSize + reservedBelowFp)
	off := argBase
	for _, p := range f.Params {
		fr.ArgSlots = append(fr.ArgSlots, off)
		off += valueSlotCount(p.Type)
	}

	retBase := -(retSize + reservedBelowFp)
	off = retBase
	for _, rt := range f.Signature.Returns {
		fr.ReturnSlots = append(fr.ReturnSlots, off)
		off += valueSlotCount(rt)
	}

	next := 0
	assign := func(id mir.ValueID, t *mirtype.MirType) {
		if _, ok := fr.ValueSlots[id]; ok {
			return
		}
		n := valueSlotCount(t)
		fr.ValueSlots[id] = next
		next += n
	}

	for _, p := range f.Params {
		assign(p.Value, p.Type)
	}
	for _, bid := range f.BlockOrder() {
		b := f.Block(bid)
		for _, p := range b.Phis {
			assign(p.Dst, p.Type)
		}
		for _, in := range b.Instr {
			for _, d := range in.Defs() {
				if t, ok := f.Registry.TypeOf(d); ok {
					assign(d, t)
				}
			}
			if in.Op == mir.OpCall {
				argSlots := sumSlots(in.Signature.Params)
				retSlots := sumSlots(in.Signature.Returns)
				base := next
				next += argSlots + retSlots + reservedBelowFp
				fr.Calls[in] = CallLayout{
					ArgBase:    base,
					RetBase:    base + argSlots,
					FrameDelta: base + argSlots + retSlots + reservedBelowFp,
				}
			}
		}
	}

	fr.FrameSize = next
	return fr
}

// Scratch reserves n additional fp+ slots beyond every currently assigned
// value/call-staging slot, for selection-time temporaries that have no MIR
// value identifier of their own (a literal operand materialized into a slot
// so it can feed an fp-fp opcode, a bounds-check or cast-check result, or
// a BranchCmp comparison result).
func (fr *Frame) Scratch(n int) int {
	off := fr.FrameSize
	fr.FrameSize += n
	return off
}

// Offset returns the fp-relative base offset of value id, or panics if id
// was never assigned a slot — a codegen invariant violation, since every
// value reaching selection was either a parameter or an instruction
// result walked by BuildFrame.
func (fr *Frame) Offset(id mir.ValueID) int {
	off, ok := fr.ValueSlots[id]
	if !ok {
		panic("codegen: value has no assigned frame slot")
	}
	return off
}
