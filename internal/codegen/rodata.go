package codegen

import (
	"fmt"
	"hash/fnv"

	"github.com/cairo-m/mirc/internal/casm"
)

// rodataBuilder accumulates constant-array word sequences during
// selection, deduplicated by structural content hash (spec.md §4.5: "emit
// the contents once ... deduplicated by structural hash"), without
// writing them into the program stream yet: every function's code is
// emitted in full before any rodata is appended (spec.md §4.6 — the
// program counter after the last instruction becomes the rodata base), so
// selection only records a pending label here and flush appends the
// blobs once, in first-use order, after the last function is selected.
type rodataBuilder struct {
	order []string
	words map[string][]uint64
}

func newRodataBuilder() *rodataBuilder {
	return &rodataBuilder{words: make(map[string][]uint64)}
}

// add records words under a label derived from their own content, so two
// identical constant arrays — even from different functions — collapse
// to a single rodata entry, and returns that label.
func (r *rodataBuilder) add(words []uint64) string {
	label := hashWords(words)
	if _, ok := r.words[label]; !ok {
		r.words[label] = words
		r.order = append(r.order, label)
	}
	return label
}

// flush appends every pending blob to prog and returns the entry index
// the rodata segment starts at.
func (r *rodataBuilder) flush(prog *casm.ProgramData) int {
	start := prog.NextAddress()
	for _, label := range r.order {
		prog.EmitRodataBlob(label, r.words[label])
	}
	return start
}

// hashWords computes a deterministic, content-derived dedup key for a
// word sequence. Nothing in the retrieval pack offers structural content
// hashing for this purpose; hash/fnv is the standard library's
// non-cryptographic hash, a reasonable fit for a dedup key and recorded
// in DESIGN.md as a justified stdlib exception.
func hashWords(words []uint64) string {
	h := fnv.New64a()
	buf := make([]byte, 8)
	for _, w := range words {
		for i := 0; i < 8; i++ {
			buf[i] = byte(w >> (8 * i))
		}
		h.Write(buf)
	}
	return fmt.Sprintf("rodata_%016x", h.Sum64())
}
