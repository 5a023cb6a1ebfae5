package casm

import (
	"encoding/json"
)

// SlotKind names the storage class of one ABI slot, mirroring api/models.go's
// flat tagged-struct style for the teacher's session/state JSON payloads.
type SlotKind string

const (
	SlotFelt   SlotKind = "felt"
	SlotU32    SlotKind = "u32"
	SlotBool   SlotKind = "bool"
	SlotUnit   SlotKind = "unit"
	SlotTuple  SlotKind = "tuple"
	SlotStruct SlotKind = "struct"
	SlotArray  SlotKind = "array"
	SlotPointer SlotKind = "pointer"
)

// Slot describes one argument or return value's placement in the frame
// (spec.md §4.5's frame-pointer ABI layout) and its logical type, so a host
// driver can marshal high-level values into/out of fp-relative slots
// without re-deriving layout rules.
type Slot struct {
	Name      string   `json:"name,omitempty"`
	Kind      SlotKind `json:"kind"`
	FpOffset  int32    `json:"fpOffset"`
	SizeSlots int      `json:"sizeSlots"`
}

// FunctionABI describes one function's calling convention: its entry
// label, its resolved program counter (spec.md §6: "for each entrypoint,
// its program counter"), argument slots (in fp-relative order, from
// fp-M-K-2 upward per spec.md §4.5), and return slots (from fp-K-2 upward).
type FunctionABI struct {
	Name    string `json:"name"`
	Entry   string `json:"entry"`
	EntryPC int    `json:"entryPC"`
	Args    []Slot `json:"args"`
	Returns []Slot `json:"returns"`
	// FrameSize is the number of fp+ slots reserved for this function's
	// locals, temporaries and call staging (spec.md §4.5).
	FrameSize int `json:"frameSize"`
}

// AbiDescriptor is the whole-program ABI manifest serialized alongside
// ProgramData (spec.md §4.6). Functions is kept as a slice, not a map, so
// json.Marshal's field order is stable independent of map iteration order
// (the core's only determinism requirement touching JSON output, spec.md
// §5); every field below is similarly a slice or scalar, never a map, for
// the same reason.
type AbiDescriptor struct {
	FormatVersion int           `json:"formatVersion"`
	EntryFunction string        `json:"entryFunction"`
	Functions     []FunctionABI `json:"functions"`
}

const CurrentFormatVersion = 1

// MarshalDeterministic encodes d with two-space indentation, for output
// meant to be diffed or hand-read, the same json.Encoder role
// api/server.go's response writer plays for HTTP responses.
func (d *AbiDescriptor) MarshalDeterministic() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// UnmarshalAbiDescriptor decodes a previously serialized descriptor.
func UnmarshalAbiDescriptor(data []byte) (*AbiDescriptor, error) {
	var d AbiDescriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
