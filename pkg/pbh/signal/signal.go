// Package signal computes the signal hash a PBH proof is bound to: the
// value that ties a Semaphore membership proof to one specific
// transaction, user-op bundle, or multicall, so a valid proof cannot be
// replayed against a different action.
package signal

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
)

// ForTransaction computes the signal hash for a plain PBH transaction:
// go-ethereum's transaction hash, a keccak256 over the transaction's
// canonical encoding including its signature values.
func ForTransaction(tx *types.Transaction) field.F {
	return field.FromBytes(tx.Hash().Bytes())
}

// UserOp is the subset of an ERC-4337 user operation that participates
// in its hash. Only the fields that affect execution are included;
// signature and paymaster data are intentionally excluded since they
// are produced after the signal is committed to.
type UserOp struct {
	Sender            common.Address
	Nonce             uint64
	CallData          []byte
	CallGasLimit      uint64
	VerificationGasLimit uint64
	PreVerificationGas   uint64
	MaxFeePerGas         uint64
	MaxPriorityFeePerGas uint64
}

// ForUserOp computes the signal hash for a 4337 user-op bundle.
func ForUserOp(op UserOp) field.F {
	packed := packUserOp(op)
	return field.FromBytes(crypto.Keccak256(packed))
}

func packUserOp(op UserOp) []byte {
	out := make([]byte, 0, 20+8*6+len(op.CallData))
	out = append(out, op.Sender.Bytes()...)
	out = appendUint64(out, op.Nonce)
	out = append(out, crypto.Keccak256(op.CallData)...)
	out = appendUint64(out, op.CallGasLimit)
	out = appendUint64(out, op.VerificationGasLimit)
	out = appendUint64(out, op.PreVerificationGas)
	out = appendUint64(out, op.MaxFeePerGas)
	out = appendUint64(out, op.MaxPriorityFeePerGas)
	return out
}

// Call is one leg of a PBH multicall: a target contract and the
// calldata sent to it.
type Call struct {
	Target common.Address
	Data   []byte
}

// ForMulticall computes the signal hash for a PBH multicall: the
// sender plus its ordered list of calls, hashed to a field element so
// it can be bound directly into the Semaphore proof's public inputs.
func ForMulticall(sender common.Address, calls []Call) field.F {
	h := crypto.NewKeccakState()
	h.Write(sender.Bytes())
	for _, c := range calls {
		h.Write(c.Target.Bytes())
		h.Write(crypto.Keccak256(c.Data))
	}
	var sum common.Hash
	h.Read(sum[:])
	return field.FromBytes(sum.Bytes())
}

func appendUint64(b []byte, v uint64) []byte {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(v >> (8 * i))
	}
	return append(b, buf[:]...)
}
