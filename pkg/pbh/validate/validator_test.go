package validate

import (
	"context"
	"errors"
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
	"github.com/worldcoin/world-chain-builder/pkg/pbh/verify"
)

type stubInner struct{}

func (stubInner) Validate(context.Context, common.Address, *tx.Transaction) (InnerOutcome, error) {
	return "ok", nil
}

type stubVerifier struct {
	err error
}

func (s stubVerifier) Verify(context.Context, proof.Proof, verify.PublicInputs) error {
	return s.err
}

func newHarness(t *testing.T, verifierErr error) (*Validator, *tx.Transaction, field.F) {
	t.Helper()
	s := store.New(kvdb.NewAdapter(dbm.NewMemDB()))
	rv := root.NewValidator(5)

	r := field.FromUint64(1)
	rv.Observe(r, 1)

	nh := field.FromUint64(42)
	payload := proof.Payload{
		ExternalNullifierRaw: "0-072026-0",
		NullifierHash:        nh,
		Root:                 r,
	}

	fixedNow := func() time.Time { return time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC) }

	v := New(stubInner{}, s, rv, stubVerifier{err: verifierErr}, noopHasher{}, DefaultConfig()).WithClock(fixedNow)

	txn := &tx.Transaction{
		Raw:          types.NewTx(&types.LegacyTx{Nonce: 0}),
		PBHExtension: proof.Encode(payload),
	}
	return v, txn, nh
}

type noopHasher struct{}

func (noopHasher) HashToField(data []byte) field.F { return field.FromBytes(data) }

func TestValidateAcceptsWellFormedPBHTransaction(t *testing.T) {
	v, txn, nh := newHarness(t, nil)

	outcome, err := v.Validate(context.Background(), common.HexToAddress("0x1"), txn)
	if err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
	if !outcome.ValidPBH {
		t.Fatalf("expected valid_pbh = true")
	}

	pendingTx, pending, err := v.store.IsPending(nh)
	if err != nil {
		t.Fatalf("is pending: %v", err)
	}
	if !pending || pendingTx != txn.Hash() {
		t.Fatalf("expected nullifier staged against the validated transaction")
	}
}

func TestValidateRejectsInvalidProof(t *testing.T) {
	v, txn, _ := newHarness(t, verify.ErrInvalidProof)

	_, err := v.Validate(context.Background(), common.HexToAddress("0x1"), txn)
	if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}
}

func TestValidateRejectsInvalidRoot(t *testing.T) {
	s := store.New(kvdb.NewAdapter(dbm.NewMemDB()))
	rv := root.NewValidator(5)
	// No root observed: any root in the payload is unknown.
	nh := field.FromUint64(7)
	payload := proof.Payload{
		ExternalNullifierRaw: "0-072026-0",
		NullifierHash:        nh,
		Root:                 field.FromUint64(99),
	}
	fixedNow := func() time.Time { return time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC) }
	v := New(stubInner{}, s, rv, stubVerifier{}, noopHasher{}, DefaultConfig()).WithClock(fixedNow)

	txn := &tx.Transaction{
		Raw:          types.NewTx(&types.LegacyTx{Nonce: 0}),
		PBHExtension: proof.Encode(payload),
	}

	_, err := v.Validate(context.Background(), common.HexToAddress("0x1"), txn)
	if !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("expected ErrInvalidRoot, got %v", err)
	}
}

func TestValidateRejectsStaleExternalNullifierPeriod(t *testing.T) {
	v, txn, _ := newHarness(t, nil)
	stale := proof.Payload{
		ExternalNullifierRaw: "0-012020-0",
		NullifierHash:        field.FromUint64(42),
		Root:                 field.FromUint64(1),
	}
	txn.PBHExtension = proof.Encode(stale)

	_, err := v.Validate(context.Background(), common.HexToAddress("0x1"), txn)
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestValidateRejectsNonceAtOrAboveLimit(t *testing.T) {
	v, txn, _ := newHarness(t, nil)
	payload := proof.Payload{
		ExternalNullifierRaw: "0-072026-30",
		NullifierHash:        field.FromUint64(42),
		Root:                 field.FromUint64(1),
	}
	txn.PBHExtension = proof.Encode(payload)

	_, err := v.Validate(context.Background(), common.HexToAddress("0x1"), txn)
	if !errors.Is(err, ErrInvalidNonce) {
		t.Fatalf("expected ErrInvalidNonce, got %v", err)
	}
}

func TestValidateRejectsAlreadyExecutedNullifier(t *testing.T) {
	v, txn, nh := newHarness(t, nil)
	if _, err := v.store.Commit(1, []field.F{nh}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	_, err := v.Validate(context.Background(), common.HexToAddress("0x1"), txn)
	if !errors.Is(err, ErrNullifierAlreadyExecuted) {
		t.Fatalf("expected ErrNullifierAlreadyExecuted, got %v", err)
	}
}

func TestValidateDelegatesNonPBHTransactions(t *testing.T) {
	v, _, _ := newHarness(t, nil)
	txn := &tx.Transaction{Raw: types.NewTx(&types.LegacyTx{Nonce: 0})}

	outcome, err := v.Validate(context.Background(), common.HexToAddress("0x1"), txn)
	if err != nil {
		t.Fatalf("expected delegation to succeed, got %v", err)
	}
	if outcome.ValidPBH {
		t.Fatalf("expected valid_pbh = false for a non-PBH transaction")
	}
}
