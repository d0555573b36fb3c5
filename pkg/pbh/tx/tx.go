// Package tx defines the augmented transaction type PBH components
// operate on: a standard signed transaction plus the two fields the
// pool computes for it — whether it carries a valid PBH proof, and the
// decoded payload if so.
package tx

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/proof"
)

// Transaction wraps a signed transaction with the PBH fields computed
// during validation. A transaction with no PBHExtension is ordinary
// traffic; ValidPBH is only ever true once the PBH Validator has
// accepted the extension.
type Transaction struct {
	Raw *types.Transaction

	// PBHExtension is the raw encoded proof.Payload bytes carried
	// alongside the transaction (e.g. in calldata or a sidecar,
	// depending on how the transport layer attaches it — out of scope
	// here). Nil for non-PBH transactions.
	PBHExtension []byte

	// ValidPBH is set by the PBH Validator once every check in §4.E has
	// passed. It is never set speculatively.
	ValidPBH bool

	// Payload is the decoded extension, populated alongside ValidPBH.
	Payload *proof.Payload
}

// IsPBHCandidate reports whether the transaction carries a PBH
// extension at all, independent of whether it has been validated.
func (t *Transaction) IsPBHCandidate() bool {
	return len(t.PBHExtension) > 0
}

// Hash returns the underlying transaction hash.
func (t *Transaction) Hash() common.Hash {
	return t.Raw.Hash()
}
