package hash

import "testing"

func TestHashToFieldIsDeterministic(t *testing.T) {
	h := Poseidon{}
	a := h.HashToField([]byte("0-072026-0"))
	b := h.HashToField([]byte("0-072026-0"))
	if !a.Equal(b) {
		t.Fatalf("expected deterministic hash for identical input")
	}
}

func TestHashToFieldVariesWithInput(t *testing.T) {
	h := Poseidon{}
	a := h.HashToField([]byte("0-072026-0"))
	b := h.HashToField([]byte("0-072026-1"))
	if a.Equal(b) {
		t.Fatalf("expected different hashes for different external nullifiers")
	}
}
