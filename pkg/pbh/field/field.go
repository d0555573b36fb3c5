// Package field wraps the BN254 scalar field element used throughout the
// PBH proof pipeline: roots, nullifier hashes, external-nullifier hashes
// and signal hashes are all elements of this field.
package field

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// F is a field element of the BN254 scalar field (≤ 254 bits).
type F struct {
	e fr.Element
}

// Zero is the additive identity.
func Zero() F { return F{} }

// FromBytes interprets b as a big-endian integer and reduces it modulo the
// scalar field. It never fails — callers that need strict canonical-range
// checking should use FromCanonicalBytes.
func FromBytes(b []byte) F {
	var f F
	f.e.SetBytes(b)
	return f
}

// FromCanonicalBytes requires b to already be the canonical (reduced)
// representation of a field element; it rejects values at or above the
// modulus, which the codec treats as a malformed payload.
func FromCanonicalBytes(b []byte) (F, error) {
	var f F
	if len(b) > 32 {
		return F{}, fmt.Errorf("field: input too long (%d bytes)", len(b))
	}
	if _, err := f.e.SetBytesCanonical(padTo32(b)); err != nil {
		return F{}, fmt.Errorf("field: non-canonical encoding: %w", err)
	}
	return f, nil
}

// FromUint64 lifts a small integer into the field.
func FromUint64(v uint64) F {
	var f F
	f.e.SetUint64(v)
	return f
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (f F) Bytes() [32]byte {
	return f.e.Bytes()
}

// BigInt returns the element as a big.Int, for interop with libraries
// (such as gnark's witness builder) that take public inputs as *big.Int.
func (f F) BigInt() *big.Int {
	var out big.Int
	f.e.BigInt(&out)
	return &out
}

// Equal reports whether f and g represent the same field element.
func (f F) Equal(g F) bool {
	return f.e.Equal(&g.e)
}

// IsZero reports whether f is the additive identity.
func (f F) IsZero() bool {
	return f.e.IsZero()
}

// String renders the element in decimal, matching how external
// nullifiers and proof public inputs are usually logged.
func (f F) String() string {
	return f.e.String()
}

func padTo32(b []byte) []byte {
	if len(b) == 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
