package mir

import "fmt"

// DataBlob is a read-only data segment keyed by content hash. Words are
// stored exactly as the caller of AddDataBlob passes them. Nothing in this
// module calls AddDataBlob: codegen deduplicates constant-array rodata on
// its own (internal/codegen/rodata.go).
type DataBlob struct {
	Hash   string
	Words  []uint64
}

// Module is a set of functions plus optional read-only data blobs, keyed
// by globally unique function names for cross-function resolution
// (spec.md §3).
type Module struct {
	Functions map[string]*Function
	order     []string // insertion order, for deterministic iteration
	DataBlobs []DataBlob
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{Functions: make(map[string]*Function)}
}

// AddFunction registers f under its name. Fails if the name is already
// taken, preserving the "globally unique function names" invariant.
func (m *Module) AddFunction(f *Function) error {
	if _, exists := m.Functions[f.Name]; exists {
		return fmt.Errorf("mir: duplicate function name %q", f.Name)
	}
	m.Functions[f.Name] = f
	m.order = append(m.order, f.Name)
	return nil
}

// FunctionOrder returns function names in the order they were added, for
// deterministic iteration (spec.md §5: "Iteration of mappings uses
// insertion order... never hash order").
func (m *Module) FunctionOrder() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// AddDataBlob deduplicates by structural hash of the word sequence and
// returns the blob's index, per spec.md §4.5's MakeFixedArray const rule.
func (m *Module) AddDataBlob(hash string, words []uint64) int {
	for i, b := range m.DataBlobs {
		if b.Hash == hash {
			return i
		}
	}
	m.DataBlobs = append(m.DataBlobs, DataBlob{Hash: hash, Words: words})
	return len(m.DataBlobs) - 1
}
