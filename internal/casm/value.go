package casm

import (
	"fmt"

	"github.com/cairo-m/mirc/internal/diag"
	"github.com/cairo-m/mirc/internal/mirtype"
)

// AbiValue is the host-side encoding of one argument or return value
// crossing the entrypoint boundary (spec.md §6 "ABI encoding rules"): a
// felt/bool scalar, a u32 scalar, a concatenation of element AbiValues for
// a tuple or struct, or a raw pointer word for an array (the array's own
// contents live in VM memory, an external collaborator per spec.md §1;
// the core only encodes/decodes the pointer slot itself).
type AbiValue struct {
	Int      uint64
	Bool     bool
	Elements []AbiValue
}

func IntAbiValue(v uint64) AbiValue  { return AbiValue{Int: v} }
func BoolAbiValue(v bool) AbiValue   { return AbiValue{Bool: v} }
func TupleAbiValue(elems ...AbiValue) AbiValue {
	return AbiValue{Elements: elems}
}

// EncodeValue flattens v into its field-element word sequence per t
// (spec.md §6: felt/bool 1 element, u32 2 elements lo/hi, tuples/structs
// concatenated in declaration order, arrays as a single pointer element).
// It validates ranges on the way in so a malformed host-side value never
// silently truncates: out-of-range input produces an AbiError diagnostic,
// matching the typed-error requirement on the decode side.
func EncodeValue(t *mirtype.MirType, v AbiValue) ([]uint64, error) {
	switch t.Kind {
	case mirtype.KindFelt:
		if v.Int >= uint64(mirtype.FieldPrime) {
			return nil, abiErr("felt value %d out of range [0, %d)", v.Int, mirtype.FieldPrime)
		}
		return []uint64{v.Int}, nil
	case mirtype.KindBool:
		if v.Bool {
			return []uint64{1}, nil
		}
		return []uint64{0}, nil
	case mirtype.KindU32:
		if v.Int > 0xFFFFFFFF {
			return nil, abiErr("u32 value %d out of range [0, 2^32)", v.Int)
		}
		lo := v.Int & 0xFFFF
		hi := (v.Int >> 16) & 0xFFFF
		return []uint64{lo, hi}, nil
	case mirtype.KindUnit:
		return nil, nil
	case mirtype.KindTuple:
		return encodeSeq(t.Elements, v.Elements)
	case mirtype.KindStruct:
		elemTypes := make([]*mirtype.MirType, len(t.Fields))
		for i, f := range t.Fields {
			elemTypes[i] = f.Type
		}
		return encodeSeq(elemTypes, v.Elements)
	case mirtype.KindArray, mirtype.KindPointer:
		return []uint64{v.Int}, nil
	default:
		return nil, abiErr("type %s has no ABI encoding", t.String())
	}
}

func encodeSeq(types []*mirtype.MirType, vals []AbiValue) ([]uint64, error) {
	if len(types) != len(vals) {
		return nil, abiErr("expected %d elements, got %d", len(types), len(vals))
	}
	var out []uint64
	for i, et := range types {
		words, err := EncodeValue(et, vals[i])
		if err != nil {
			return nil, err
		}
		out = append(out, words...)
	}
	return out, nil
}

// DecodeValue is the inverse of EncodeValue: it consumes t's ABI word
// count (SlotCount(t), except that an array or pointer takes a single
// pointer word) from the front of words and reports how many it consumed, so a
// caller decoding an ordered argument list can thread the remainder into
// the next DecodeValue call. Out-of-range words (a bool word that is
// neither 0 nor 1, a u32 limb that does not fit 16 bits) produce an
// AbiError rather than silently reinterpreting them (spec.md §6 "Input
// decoding validates ranges ... reports typed errors on violation").
func DecodeValue(t *mirtype.MirType, words []uint64) (AbiValue, int, error) {
	switch t.Kind {
	case mirtype.KindFelt:
		if len(words) < 1 {
			return AbiValue{}, 0, abiErr("felt decode: need 1 word, got %d", len(words))
		}
		if words[0] >= uint64(mirtype.FieldPrime) {
			return AbiValue{}, 0, abiErr("felt word %d out of range [0, %d)", words[0], mirtype.FieldPrime)
		}
		return IntAbiValue(words[0]), 1, nil
	case mirtype.KindBool:
		if len(words) < 1 {
			return AbiValue{}, 0, abiErr("bool decode: need 1 word, got %d", len(words))
		}
		if words[0] != 0 && words[0] != 1 {
			return AbiValue{}, 0, abiErr("bool word %d not in {0,1}", words[0])
		}
		return BoolAbiValue(words[0] == 1), 1, nil
	case mirtype.KindU32:
		if len(words) < 2 {
			return AbiValue{}, 0, abiErr("u32 decode: need 2 words, got %d", len(words))
		}
		lo, hi := words[0], words[1]
		if lo > 0xFFFF || hi > 0xFFFF {
			return AbiValue{}, 0, abiErr("u32 limbs (%d, %d) each must fit 16 bits", lo, hi)
		}
		return IntAbiValue(lo | hi<<16), 2, nil
	case mirtype.KindUnit:
		return AbiValue{}, 0, nil
	case mirtype.KindTuple:
		return decodeSeq(t.Elements, words)
	case mirtype.KindStruct:
		elemTypes := make([]*mirtype.MirType, len(t.Fields))
		for i, f := range t.Fields {
			elemTypes[i] = f.Type
		}
		return decodeSeq(elemTypes, words)
	case mirtype.KindArray, mirtype.KindPointer:
		if len(words) < 1 {
			return AbiValue{}, 0, abiErr("pointer decode: need 1 word, got %d", len(words))
		}
		return IntAbiValue(words[0]), 1, nil
	default:
		return AbiValue{}, 0, abiErr("type %s has no ABI decoding", t.String())
	}
}

func decodeSeq(types []*mirtype.MirType, words []uint64) (AbiValue, int, error) {
	var elems []AbiValue
	total := 0
	for _, et := range types {
		v, n, err := DecodeValue(et, words[total:])
		if err != nil {
			return AbiValue{}, 0, err
		}
		elems = append(elems, v)
		total += n
	}
	return AbiValue{Elements: elems}, total, nil
}

// DecodeArgs decodes an entrypoint's full, concatenated argument word
// stream against its ordered parameter types, erroring if any trailing
// words remain unconsumed (a word count that does not match the ABI's own
// SlotCount sum is as malformed as an out-of-range scalar).
func DecodeArgs(paramTypes []*mirtype.MirType, words []uint64) ([]AbiValue, error) {
	out := make([]AbiValue, 0, len(paramTypes))
	off := 0
	for _, t := range paramTypes {
		v, n, err := DecodeValue(t, words[off:])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		off += n
	}
	if off != len(words) {
		return nil, abiErr("argument stream has %d trailing words after decoding %d parameters", len(words)-off, len(paramTypes))
	}
	return out, nil
}

func abiErr(format string, args ...any) error {
	return diag.New(diag.AbiError, "", fmt.Sprintf(format, args...))
}
