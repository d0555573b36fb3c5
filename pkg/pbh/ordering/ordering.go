// Package ordering implements the pending-transaction priority order
// described in §4.F: PBH-valid transactions strictly precede non-PBH
// ones; ties are broken by effective tip, then by hash for determinism.
package ordering

import (
	"math/big"
	"sort"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/tx"
)

// EffectiveTip computes the miner tip a transaction pays at the given
// base fee: min(gasTipCap, gasFeeCap - baseFee). Transactions whose fee
// cap cannot cover the base fee are clamped to zero rather than going
// negative.
func EffectiveTip(t *tx.Transaction, baseFee *big.Int) *big.Int {
	tipCap := t.Raw.GasTipCap()
	feeCap := t.Raw.GasFeeCap()

	headroom := new(big.Int).Sub(feeCap, baseFee)
	if headroom.Sign() < 0 {
		return big.NewInt(0)
	}
	if tipCap.Cmp(headroom) < 0 {
		return new(big.Int).Set(tipCap)
	}
	return headroom
}

// Less reports whether a sorts strictly before b in block-building
// priority order (higher priority first): PBH-valid transactions beat
// non-PBH ones outright; among transactions with equal PBH status, the
// higher effective tip wins; remaining ties break on transaction hash
// so the order is a total, deterministic order over any pending set.
func Less(a, b *tx.Transaction, baseFee *big.Int) bool {
	if a.ValidPBH != b.ValidPBH {
		return a.ValidPBH
	}

	tipA := EffectiveTip(a, baseFee)
	tipB := EffectiveTip(b, baseFee)
	if cmp := tipA.Cmp(tipB); cmp != 0 {
		return cmp > 0
	}

	ha, hb := a.Hash(), b.Hash()
	return ha.Cmp(hb) < 0
}

// Sort orders txs in-place by priority (§4.F).
func Sort(txs []*tx.Transaction, baseFee *big.Int) {
	sort.SliceStable(txs, func(i, j int) bool {
		return Less(txs[i], txs[j], baseFee)
	})
}
