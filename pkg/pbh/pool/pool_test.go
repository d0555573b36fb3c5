package pool

import (
	"context"
	"math/big"
	"testing"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/worldcoin/world-chain-builder/pkg/kvdb"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/proof"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/root"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/store"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/tx"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/validate"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/verify"
)

type acceptInner struct{}

func (acceptInner) Validate(context.Context, common.Address, *tx.Transaction) (validate.InnerOutcome, error) {
	return nil, nil
}

type acceptVerifier struct{}

func (acceptVerifier) Verify(context.Context, proof.Proof, verify.PublicInputs) error { return nil }

type hasher struct{}

func (hasher) HashToField(data []byte) field.F { return field.FromBytes(data) }

func newTestPool(t *testing.T) (*Pool, *store.Store) {
	t.Helper()
	s := store.New(kvdb.NewAdapter(dbm.NewMemDB()))
	rv := root.NewValidator(5)
	rv.Observe(field.FromUint64(1), 1)

	now := func() time.Time { return time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC) }
	v := validate.New(acceptInner{}, s, rv, acceptVerifier{}, hasher{}, validate.DefaultConfig()).WithClock(now)
	return New(v, s), s
}

func pbhTxn(nonce uint64, nh field.F) *tx.Transaction {
	payload := proof.Payload{
		ExternalNullifierRaw: "0-072026-0",
		NullifierHash:        nh,
		Root:                 field.FromUint64(1),
	}
	return &tx.Transaction{
		Raw:          types.NewTx(&types.LegacyTx{Nonce: nonce}),
		PBHExtension: proof.Encode(payload),
	}
}

func TestSubmitAdmitsValidatedTransaction(t *testing.T) {
	p, _ := newTestPool(t)
	txn := pbhTxn(0, field.FromUint64(7))

	if _, err := p.Submit(context.Background(), common.HexToAddress("0x1"), txn); err != nil {
		t.Fatalf("submit: %v", err)
	}

	pending := p.Pending(big.NewInt(0))
	if len(pending) != 1 {
		t.Fatalf("expected one pending transaction, got %d", len(pending))
	}
}

func TestHeadUpdateCommitsAndClearsPending(t *testing.T) {
	p, s := newTestPool(t)
	nh := field.FromUint64(9)
	txn := pbhTxn(0, nh)

	if _, err := p.Submit(context.Background(), common.HexToAddress("0x1"), txn); err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Run(ctx)
	p.NotifyHead(HeadUpdate{Height: 1, Nullifiers: []field.F{nh}})

	waitUntil(t, func() bool {
		executed, _ := s.ContainsExecuted(nh)
		return executed
	})
	waitUntil(t, func() bool {
		return len(p.Pending(big.NewInt(0))) == 0
	})
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
