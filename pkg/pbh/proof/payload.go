// Package proof defines the PBH payload carried by a transaction —
// the external nullifier, the one-time nullifier hash, the claimed
// World ID Merkle root, and the packed Semaphore proof — along with its
// wire codec.
package proof

import (
	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/nullifier"
)

// ProofLen is the packed size of a Semaphore Groth16 proof over BN254:
// 8 field elements of 32 bytes each.
const ProofLen = 256

// Proof is an opaque, packed Semaphore proof. Verifying it is out of
// scope for this package — see the verify package for the interface a
// concrete Groth16 backend implements.
type Proof [ProofLen]byte

// Payload is the PBH data a transaction carries in addition to its
// normal signed fields. It is immutable once constructed.
//
// ExternalNullifierRaw is carried as a string rather than a parsed
// nullifier.ExternalNullifier: the codec's job is only to recover the
// bytes the transaction shipped. Whether those bytes form a
// well-formed, in-window external nullifier is a validation concern
// (see pkg/pbh/validate), not a decode concern — a transaction with an
// unparseable external nullifier is well-formed wire data that the
// validator rejects, not a MalformedPayload.
type Payload struct {
	ExternalNullifierRaw string
	NullifierHash        field.F
	Root                 field.F
	Proof                Proof
}

// ParseExternalNullifier parses the raw external nullifier string
// carried by the payload.
func (p Payload) ParseExternalNullifier() (nullifier.ExternalNullifier, error) {
	return nullifier.Parse(p.ExternalNullifierRaw)
}
