// Package nullifier implements the PBH external nullifier: the
// `prefix-period-nonce` tag that domain-separates a Semaphore proof and
// bounds how many PBH transactions a single identity may submit in a
// given calendar period.
package nullifier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
)

// Prefix is a closed, versioned tag for the external nullifier format.
// Unknown prefixes are rejected rather than silently accepted, so the
// format can evolve without widening what today's validator will admit.
type Prefix uint8

const (
	// PrefixV1 is the only recognized prefix today.
	PrefixV1 Prefix = iota
)

func (p Prefix) String() string {
	switch p {
	case PrefixV1:
		return "v1"
	default:
		return "unknown"
	}
}

// ParsePrefix parses the textual prefix tag used in the canonical string
// form. The wire format from the original PBH entrypoint uses a bare "0"
// for v1; both that and "v1"/"V1" are accepted.
func ParsePrefix(s string) (Prefix, error) {
	switch strings.ToLower(s) {
	case "0", "v1":
		return PrefixV1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrefix, s)
	}
}

// Period is the calendar month/year an external nullifier budgets
// against.
type Period struct {
	Month uint8 // 1..=12
	Year  uint16
}

// Errors returned while parsing or validating an external nullifier.
// These are permanent (non-retryable) rejections.
var (
	ErrInvalidFormat = errors.New("nullifier: malformed external nullifier")
	ErrInvalidPrefix = errors.New("nullifier: unrecognized prefix")
	ErrInvalidPeriod = errors.New("nullifier: invalid or out-of-window period")
	ErrInvalidNonce  = errors.New("nullifier: nonce overflow or out of range")
)

// ExternalNullifier is the parsed `prefix-MMYYYY-nonce` tag carried by a
// PBH transaction's proof.
type ExternalNullifier struct {
	Prefix Prefix
	Period Period
	Nonce  uint16
}

// String renders the canonical `prefix-MMYYYY-nonce` form. Month is
// always two digits, year always four, nonce has no leading-zero
// padding — this matches the byte form that feeds HashToField, so
// round-tripping through Parse must reproduce it exactly.
func (e ExternalNullifier) String() string {
	return fmt.Sprintf("%d-%02d%04d-%d", e.Prefix, e.Period.Month, e.Period.Year, e.Nonce)
}

// Parse parses the canonical `prefix-MMYYYY-nonce` string. It rejects
// missing/extra dashes, unknown prefixes, out-of-range months, and
// non-numeric or overflowing components.
func Parse(s string) (ExternalNullifier, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return ExternalNullifier{}, fmt.Errorf("%w: expected 3 dash-separated fields, got %d", ErrInvalidFormat, len(parts))
	}

	prefix, err := ParsePrefix(parts[0])
	if err != nil {
		return ExternalNullifier{}, err
	}

	period, err := parsePeriod(parts[1])
	if err != nil {
		return ExternalNullifier{}, err
	}

	nonce, err := strconv.ParseUint(parts[2], 10, 16)
	if err != nil {
		return ExternalNullifier{}, fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}

	return ExternalNullifier{Prefix: prefix, Period: period, Nonce: uint16(nonce)}, nil
}

func parsePeriod(s string) (Period, error) {
	if len(s) != 6 {
		return Period{}, fmt.Errorf("%w: period must be MMYYYY, got %q", ErrInvalidPeriod, s)
	}
	month, err := strconv.ParseUint(s[:2], 10, 8)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, month)
	}
	year, err := strconv.ParseUint(s[2:], 10, 16)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}
	return Period{Month: uint8(month), Year: uint16(year)}, nil
}

// FieldHasher hashes an arbitrary byte string into the BN254 scalar
// field. The real hash function (Poseidon, per World ID's circuit) is an
// external cryptographic primitive; this package only depends on the
// narrow interface so a production binary can inject the real one.
type FieldHasher interface {
	HashToField(data []byte) field.F
}

// Hash computes hash_to_field(canonical_string) using the supplied
// hasher. Per the design notes, this value must NOT be compared against
// a transaction's nullifier_hash — the Semaphore nullifier binds the
// identity secret, not the external nullifier alone. Callers use this
// only to derive external_nullifier_hash, one of the proof's public
// inputs.
func (e ExternalNullifier) Hash(h FieldHasher) field.F {
	return h.HashToField([]byte(e.String()))
}
