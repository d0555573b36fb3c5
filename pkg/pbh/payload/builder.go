// Package payload implements the PBH-aware payload builder (§4.H): it
// drains PBH-eligible transactions first, subject to a reserved gas
// budget, then fills the remainder of the block with general traffic.
package payload

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/metrics"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/ordering"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/tracer"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/tx"
)

// Executor is the EVM execution surface this package depends on. The
// EVM and state database themselves are out of scope (§1); this is the
// narrow interface a concrete op-geth-style block executor satisfies.
type Executor interface {
	// Execute runs t against the pinned parent state and block
	// environment, returning the gas it consumed. A non-nil error
	// means the top-level call reverted or failed to execute;
	// ExecutionReverted distinguishes a revert from a harder failure.
	Execute(ctx context.Context, t *tx.Transaction, insp *tracer.Inspector) (gasUsed uint64, err error)
}

// ExecutionReverted marks a failed Execute call as a revert rather than
// an unrecoverable executor error; in the PBH phase the builder still
// includes the transaction and consumes its nullifier in that case
// (§4.H.2). The general phase drops any transaction whose Execute call
// returns an error, reverted or not.
type ExecutionReverted struct{ Cause error }

func (e *ExecutionReverted) Error() string { return fmt.Sprintf("execution reverted: %v", e.Cause) }
func (e *ExecutionReverted) Unwrap() error { return e.Cause }

// Stamper produces the final system transaction appended to every
// built block (§4.I). It owns fetching its own signer's current nonce
// from the live EVM state — the builder does not know the signer
// address until after stamping succeeds.
type Stamper interface {
	Stamp(ctx context.Context, chainID *big.Int, baseFee *big.Int) (*types.Transaction, common.Address, error)
}

// Env is the block environment the builder pins its EVM context to.
type Env struct {
	GasLimit  uint64
	BaseFee   *big.Int
	ChainID   *big.Int
	Timestamp uint64
}

// Config bounds the PBH phase's share of the block's gas budget.
type Config struct {
	// GasReserveRatio is the fraction of GasLimit reserved for the PBH
	// phase, in [0, 1].
	GasReserveRatio float64
}

// Builder assembles one block per call to Build, deterministically as
// a function of the pending snapshot, ordering, gas budget, and EVM
// outcomes (§4.H, "Determinism").
type Builder struct {
	exec    Executor
	stamper Stamper
	cfg     Config
}

func New(exec Executor, stamper Stamper, cfg Config) *Builder {
	return &Builder{exec: exec, stamper: stamper, cfg: cfg}
}

// Result is the outcome of a single Build call.
type Result struct {
	Included         []*tx.Transaction
	NullifiersUsed   []nullifierUse
	PBHGasUsed       uint64
	GeneralGasUsed   uint64
	StampTransaction *types.Transaction
	StampSigner      common.Address
}

type nullifierUse struct {
	Tx *tx.Transaction
}

// Build runs the three-phase algorithm in §4.H.
func (b *Builder) Build(ctx context.Context, env Env, pbhPending, generalPending []*tx.Transaction) (*Result, error) {
	reserve := uint64(float64(env.GasLimit) * b.cfg.GasReserveRatio)

	res := &Result{}
	insp := tracer.NewInspector()

	ordering.Sort(pbhPending, env.BaseFee)
	for _, t := range pbhPending {
		if res.PBHGasUsed >= reserve {
			break
		}
		insp.Reset()
		gasUsed, err := b.exec.Execute(ctx, t, insp)
		var reverted *ExecutionReverted
		if err != nil {
			if !asExecutionReverted(err, &reverted) {
				// A non-revert executor failure (state corruption, out
				// of gas at the VM boundary before any state changed)
				// drops the transaction without including it or
				// consuming its nullifier.
				continue
			}
		}
		if res.PBHGasUsed+gasUsed > reserve && res.PBHGasUsed > 0 {
			break
		}
		res.Included = append(res.Included, t)
		res.NullifiersUsed = append(res.NullifiersUsed, nullifierUse{Tx: t})
		res.PBHGasUsed += gasUsed
	}

	remaining := env.GasLimit - res.PBHGasUsed
	ordering.Sort(generalPending, env.BaseFee)
	for _, t := range generalPending {
		if t.ValidPBH {
			continue // already handled (or rejected) in the PBH phase
		}
		insp.Reset()
		gasUsed, err := b.exec.Execute(ctx, t, insp)
		if err != nil {
			continue
		}
		if res.GeneralGasUsed+gasUsed > remaining {
			break
		}
		res.Included = append(res.Included, t)
		res.GeneralGasUsed += gasUsed
	}

	metrics.PayloadGasUsed.WithLabelValues("pbh").Set(float64(res.PBHGasUsed))
	metrics.PayloadGasUsed.WithLabelValues("general").Set(float64(res.GeneralGasUsed))

	stampTx, signer, err := b.stamper.Stamp(ctx, env.ChainID, env.BaseFee)
	if err != nil {
		metrics.StampFailures.Inc()
		return nil, fmt.Errorf("payload: stamp phase failed, block assembly aborted: %w", err)
	}
	res.StampTransaction = stampTx
	res.StampSigner = signer

	return res, nil
}

func asExecutionReverted(err error, target **ExecutionReverted) bool {
	if er, ok := err.(*ExecutionReverted); ok {
		*target = er
		return true
	}
	return false
}

// Nullifiers returns the PBH transactions whose nullifiers this build
// consumed; the caller reads each one's Payload.NullifierHash to pass
// to Store.Commit on canonicalization.
func (r *Result) Nullifiers() []*tx.Transaction {
	out := make([]*tx.Transaction, 0, len(r.NullifiersUsed))
	for _, n := range r.NullifiersUsed {
		out = append(out, n.Tx)
	}
	return out
}
