// Package hash provides the production FieldHasher used to derive
// external_nullifier_hash values (nullifier.FieldHasher). World ID's
// circuits hash domain values with Poseidon over the same BN254
// scalar field this module's proof pipeline already works in, so this
// package wraps go-iden3-crypto's Poseidon rather than inventing a
// hash-to-field scheme of its own.
package hash

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
)

// Poseidon hashes arbitrary byte strings into the BN254 scalar field.
// Every input, whatever its length, is first compressed with
// Keccak-256 (go-ethereum's hash function, already used for signal
// hashing in pkg/pbh/signal) so arbitrary-length external
// nullifier strings reduce to exactly one Poseidon input limb.
type Poseidon struct{}

// HashToField implements nullifier.FieldHasher.
func (Poseidon) HashToField(data []byte) field.F {
	compressed := crypto.Keccak256(data)

	// Keccak256 output is 32 bytes and can exceed the BN254 scalar
	// field's modulus; reduce it the same way field.FromBytes does
	// before handing it to Poseidon, so the limb Poseidon sees is
	// always a valid field element.
	limb := field.FromBytes(compressed).BigInt()

	out, err := poseidon.Hash([]*big.Int{limb})
	if err != nil {
		// Poseidon.Hash only errors on an oversized input slice; one
		// limb is always within range, so this is unreachable.
		panic("hash: poseidon hash of a single limb failed: " + err.Error())
	}
	return field.FromBytes(out.Bytes())
}
