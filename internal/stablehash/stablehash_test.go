package stablehash

import (
	"testing"
)

func TestHash_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{
		"cost":        100.0,
		"destination": "Lisbon",
		"segments":    []any{map[string]any{"id": "s1", "kind": "flight"}},
	}
	b := map[string]any{
		"segments":    []any{map[string]any{"kind": "flight", "id": "s1"}},
		"destination": "Lisbon",
		"cost":        100.0,
	}

	if Hash(a) != Hash(b) {
		t.Errorf("hashes differ for identical data:\n%s\n%s", Canonicalize(a), Canonicalize(b))
	}
}

func TestHash_StructurallyDifferent(t *testing.T) {
	a := map[string]any{"cost": 100.0}
	b := map[string]any{"cost": 150.0}
	c := map[string]any{"cost": "100"}

	if Hash(a) == Hash(b) {
		t.Error("different values should hash differently")
	}
	if Hash(a) == Hash(c) {
		t.Error("number and string should hash differently")
	}
}

func TestHash_ArrayOrderMatters(t *testing.T) {
	a := []any{"x", "y"}
	b := []any{"y", "x"}

	if Hash(a) == Hash(b) {
		t.Error("array order must affect the hash")
	}
}

func TestCanonicalize_SortedKeys(t *testing.T) {
	v := map[string]any{"b": 2.0, "a": 1.0, "c": nil}

	got := Canonicalize(v)
	want := `{"a":1,"b":2,"c":null}`
	if got != want {
		t.Errorf("Canonicalize = %s, want %s", got, want)
	}
}

func TestCanonicalize_Primitives(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{true, "true"},
		{"trip", `"trip"`},
		{42, "42"},
		{1.5, "1.5"},
		{[]any{}, "[]"},
		{map[string]any{}, "{}"},
	}

	for _, tc := range cases {
		if got := Canonicalize(tc.in); got != tc.want {
			t.Errorf("Canonicalize(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalize_Cycle(t *testing.T) {
	m := map[string]any{"name": "loop"}
	m["self"] = m

	got := Canonicalize(m)
	want := `{"name":"loop","self":"[Circular]"}`
	if got != want {
		t.Errorf("Canonicalize = %s, want %s", got, want)
	}
}

func TestCanonicalize_SharedSubtreeIsNotACycle(t *testing.T) {
	shared := map[string]any{"x": 1.0}
	v := map[string]any{"a": shared, "b": shared}

	got := Canonicalize(v)
	want := `{"a":{"x":1},"b":{"x":1}}`
	if got != want {
		t.Errorf("shared subtree serialized as %s, want %s", got, want)
	}
}

func TestHash_StructMatchesEquivalentMap(t *testing.T) {
	type leg struct {
		ID   string  `json:"id"`
		Cost float64 `json:"cost"`
	}
	s := leg{ID: "s1", Cost: 420}
	m := map[string]any{"id": "s1", "cost": 420.0}

	if Hash(s) != Hash(m) {
		t.Errorf("struct and equivalent map should hash identically:\n%s\n%s",
			Canonicalize(s), Canonicalize(m))
	}
}

func TestHash_Deterministic(t *testing.T) {
	v := map[string]any{
		"destination": "Kyoto",
		"segments":    []any{map[string]any{"id": "s1"}, map[string]any{"id": "s2"}},
	}

	first := Hash(v)
	for i := 0; i < 20; i++ {
		if Hash(v) != first {
			t.Fatal("hash is not deterministic across runs")
		}
	}
}
