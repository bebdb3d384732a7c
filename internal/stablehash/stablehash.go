// Package stablehash fingerprints JSON-serializable value trees. Two values
// with the same data hash identically regardless of map key order or object
// identity. The hash is fast and non-cryptographic: good enough to detect
// accidental no-op writes, not adversarial input.
package stablehash

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// circularToken replaces any value reachable from itself during traversal.
const circularToken = `"[Circular]"`

// unserializableToken replaces values JSON cannot represent.
const unserializableToken = `"[Unserializable]"`

// Hash returns the stable digest of v as a base-36 token.
func Hash(v any) string {
	return hashString(Canonicalize(v))
}

// Canonicalize serializes v deterministically: object keys sorted
// lexicographically, array order preserved, primitives JSON-encoded.
// Cycles are emitted as a sentinel token instead of recursing forever.
func Canonicalize(v any) string {
	var sb strings.Builder
	writeCanonical(&sb, v, make(map[uintptr]bool), false)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v any, visiting map[uintptr]bool, normalized bool) {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")

	case bool, string, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		json.Number:
		b, err := json.Marshal(val)
		if err != nil {
			sb.WriteString(unserializableToken)
			return
		}
		sb.Write(b)

	case map[string]any:
		ptr := reflect.ValueOf(val).Pointer()
		if visiting[ptr] {
			sb.WriteString(circularToken)
			return
		}
		visiting[ptr] = true
		defer delete(visiting, ptr)

		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteByte(':')
			writeCanonical(sb, val[k], visiting, normalized)
		}
		sb.WriteByte('}')

	case []any:
		ptr := reflect.ValueOf(val).Pointer()
		if ptr != 0 {
			if visiting[ptr] {
				sb.WriteString(circularToken)
				return
			}
			visiting[ptr] = true
			defer delete(visiting, ptr)
		}

		sb.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, item, visiting, normalized)
		}
		sb.WriteByte(']')

	default:
		// Structs, typed maps and slices: normalize once through a JSON
		// round trip, then canonicalize the generic tree.
		if normalized {
			sb.WriteString(unserializableToken)
			return
		}
		b, err := json.Marshal(val)
		if err != nil {
			sb.WriteString(unserializableToken)
			return
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			sb.WriteString(unserializableToken)
			return
		}
		writeCanonical(sb, generic, visiting, true)
	}
}

// hashString runs a 32-bit multiply-xor accumulator over s and renders the
// result in base 36.
func hashString(s string) string {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 ^ uint32(s[i])
	}
	return strconv.FormatUint(uint64(h), 36)
}
