package verify

import (
	"testing"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/proof"
)

// TestDecodeProofRejectsNonCanonicalWord exercises the framing check
// applied to each of the eight packed field words before they ever
// reach groth16.Verify.
func TestDecodeProofRejectsNonCanonicalWord(t *testing.T) {
	var p proof.Proof
	for i := range p {
		p[i] = 0xFF // larger than the BN254 modulus in every word
	}
	if _, err := decodeProof(p); err == nil {
		t.Fatalf("expected non-canonical proof word to be rejected")
	}
}

func TestDecodeProofAcceptsZeroProof(t *testing.T) {
	var p proof.Proof
	if _, err := decodeProof(p); err != nil {
		t.Fatalf("expected all-zero proof words to decode (though not verify): %v", err)
	}
}
