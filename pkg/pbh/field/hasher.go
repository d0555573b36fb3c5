package field

import "github.com/ethereum/go-ethereum/crypto"

// KeccakHasher is a stand-in field hasher used only where no real
// Poseidon provider has been wired (e.g. local tests). World ID's
// circuit hashes to field with Poseidon; implementing that hash
// function is out of scope here (see Non-goals) — production
// deployments must inject the real implementation.
type KeccakHasher struct{}

// HashToField reduces keccak256(data) modulo the scalar field.
func (KeccakHasher) HashToField(data []byte) F {
	sum := crypto.Keccak256(data)
	return FromBytes(sum)
}
