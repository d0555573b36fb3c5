// Package validate implements the PBH Validator (§4.E): the semantic
// layer wrapping a generic OP transaction validator with Semaphore
// proof, nullifier, period, and signal checks.
package validate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/metrics"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/nullifier"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/proof"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/root"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/signal"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/store"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/tx"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/verify"
)

// InnerOutcome is whatever the wrapped OP transaction validator
// returns; this package never inspects it beyond passing it through.
type InnerOutcome any

// InnerValidator is the generic OP transaction validator this package
// wraps — nonce, balance, and L1 fee checks are its concern, not
// this package's (§1: "out of scope ... generic transaction
// validator").
type InnerValidator interface {
	Validate(ctx context.Context, origin common.Address, t *tx.Transaction) (InnerOutcome, error)
}

// NoopInner satisfies InnerValidator by accepting everything. A real
// deployment wires the sequencer's own standard transaction validator
// (nonce, balance, L1 data fee) here instead; NoopInner exists so this
// package is usable standalone in tests and in environments where that
// wiring happens elsewhere in the stack.
type NoopInner struct{}

func (NoopInner) Validate(context.Context, common.Address, *tx.Transaction) (InnerOutcome, error) {
	return nil, nil
}

// Outcome is the result of validating an augmented transaction.
type Outcome struct {
	ValidPBH bool
	Inner    InnerOutcome
}

// Verifier checks a Semaphore proof against public inputs. Satisfied by
// *verify.Verifier in production; tests supply a stub.
type Verifier interface {
	Verify(ctx context.Context, p proof.Proof, in verify.PublicInputs) error
}

// Validator implements §4.E.
type Validator struct {
	inner    InnerValidator
	store    *store.Store
	roots    *root.Validator
	verifier Verifier
	hasher   nullifier.FieldHasher
	cfg      Config
	now      func() time.Time
}

// New constructs a PBH Validator. Its clock is time.Now; tests
// override it with WithClock to pin the current period.
func New(inner InnerValidator, s *store.Store, roots *root.Validator, verifier Verifier, hasher nullifier.FieldHasher, cfg Config) *Validator {
	return &Validator{inner: inner, store: s, roots: roots, verifier: verifier, hasher: hasher, cfg: cfg, now: time.Now}
}

// WithClock overrides the validator's time source, for deterministic
// period-boundary tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate runs the full PBH validation pipeline for t. Non-PBH
// transactions delegate straight to the inner validator.
func (v *Validator) Validate(ctx context.Context, origin common.Address, t *tx.Transaction) (Outcome, error) {
	if !t.IsPBHCandidate() {
		inner, err := v.inner.Validate(ctx, origin, t)
		return Outcome{Inner: inner}, err
	}

	start := v.now()
	outcome, err := v.validatePBH(ctx, origin, t)
	metrics.ValidationDuration.Observe(v.now().Sub(start).Seconds())
	metrics.ValidationTotal.WithLabelValues(resultLabel(err)).Inc()
	return outcome, err
}

func (v *Validator) validatePBH(ctx context.Context, origin common.Address, t *tx.Transaction) (Outcome, error) {
	payload, err := proof.Decode(t.PBHExtension)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	en, err := payload.ParseExternalNullifier()
	if err != nil {
		if errors.Is(err, nullifier.ErrInvalidPrefix) {
			return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidPrefix, err)
		}
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidExternalNullifier, err)
	}

	if err := v.checkPeriod(en.Period); err != nil {
		return Outcome{}, err
	}
	if en.Nonce >= v.cfg.MaxNoncePerPeriod {
		return Outcome{}, fmt.Errorf("%w: nonce %d >= limit %d", ErrInvalidNonce, en.Nonce, v.cfg.MaxNoncePerPeriod)
	}

	if err := v.checkNullifierFresh(payload.NullifierHash); err != nil {
		return Outcome{}, err
	}

	// Note: the nullifier hash is the Semaphore nullifier for
	// (identity, external_nullifier_hash) — it is NOT recomputable from
	// the external nullifier string alone, so there is no standalone
	// "nullifier hash consistency" check here. Its binding to this
	// specific proof is established by proof verification below, which
	// is exactly where the design notes place the burden (§9).

	// The signal hash has no standalone field to diff against: the wire
	// payload never carries it separately (§4.A), only the proof's
	// public inputs do. Recomputing it here and feeding it into Verify
	// below is equivalent to the spec's compare-then-verify split,
	// since an incorrect signal hash makes the proof fail to verify.
	sig := signalFor(t)

	if !v.roots.IsValid(payload.Root) {
		return Outcome{}, ErrInvalidRoot
	}

	externalNullifierHash := en.Hash(v.hasher)
	pub := verify.PublicInputs{
		Root:              payload.Root,
		NullifierHash:     payload.NullifierHash,
		SignalHash:        sig,
		ExternalNullifier: externalNullifierHash,
	}
	if err := v.verifier.Verify(ctx, payload.Proof, pub); err != nil {
		if errors.Is(err, verify.ErrInvalidProof) {
			return Outcome{}, ErrInvalidProof
		}
		return Outcome{}, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if err := v.stage(t, payload.NullifierHash, origin); err != nil {
		return Outcome{}, err
	}

	t.Payload = &payload
	t.ValidPBH = true

	inner, err := v.inner.Validate(ctx, origin, t)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{ValidPBH: true, Inner: inner}, nil
}

func (v *Validator) checkPeriod(p nullifier.Period) error {
	now := v.now().UTC()
	current := nullifier.Period{Month: uint8(now.Month()), Year: uint16(now.Year())}
	if p == current {
		return nil
	}
	if v.cfg.GracePeriod > 0 {
		next := now.Add(v.cfg.GracePeriod)
		nextPeriod := nullifier.Period{Month: uint8(next.Month()), Year: uint16(next.Year())}
		if p == nextPeriod {
			return nil
		}
	}
	return fmt.Errorf("%w: external nullifier names %02d%04d, current period is %02d%04d",
		ErrInvalidPeriod, p.Month, p.Year, current.Month, current.Year)
}

func (v *Validator) checkNullifierFresh(nh field.F) error {
	executed, err := v.store.ContainsExecuted(nh)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if executed {
		return ErrNullifierAlreadyExecuted
	}
	return nil
}

func (v *Validator) stage(t *tx.Transaction, nh field.F, origin common.Address) error {
	err := v.store.Stage(t.Hash(), origin, nh)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNullifierAlreadyExecuted):
		return ErrNullifierAlreadyExecuted
	case errors.Is(err, store.ErrNullifierAlreadyPending):
		return ErrNullifierAlreadyPending
	case errors.Is(err, store.ErrDuplicateTxHash):
		return ErrDuplicateTxHash
	default:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
}

// signalFor recomputes the signal hash a proof must be bound to. Every
// transaction binds to its own hash (§4.E.5); the 4337 user-op and
// multicall signal hashes (signal.ForUserOp, signal.ForMulticall) are
// not used on this path, and neither the validator nor the pool
// selects them.
func signalFor(t *tx.Transaction) field.F {
	return signal.ForTransaction(t.Raw)
}

func resultLabel(err error) string {
	if err == nil {
		return "accepted"
	}
	if errors.Is(err, ErrTransient) {
		return "transient"
	}
	return "rejected"
}
