// Package verify adapts gnark's generic Groth16 verifier to Semaphore
// membership proofs. It never defines or compiles a circuit: the
// verifying key is supplied externally (loaded once at startup from the
// deployed World ID Semaphore verifier's key material) and proofs are
// checked against it directly, the same way a production verifier
// checks proofs against a key it did not generate.
package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	gnarkbn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/proof"
)

// ErrInvalidProof is returned when a proof fails Groth16 verification
// against the public inputs. It is a rejection, not a transient error.
var ErrInvalidProof = errors.New("verify: semaphore proof rejected")

// PublicInputs are the four field elements a Semaphore membership
// proof is checked against, in the fixed order the circuit expects:
// the claimed root, the nullifier hash, the signal hash, and the
// external nullifier hash.
type PublicInputs struct {
	Root               field.F
	NullifierHash      field.F
	SignalHash         field.F
	ExternalNullifier  field.F
}

// Verifier checks Semaphore Groth16 proofs against a fixed verifying
// key loaded at construction time.
type Verifier struct {
	vk groth16.VerifyingKey
}

// NewVerifier loads a verifying key previously exported from the
// trusted setup ceremony (raw gnark binary encoding, BN254 curve).
func NewVerifier(vkBytes []byte) (*Verifier, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return nil, fmt.Errorf("verify: read verifying key: %w", err)
	}
	return &Verifier{vk: vk}, nil
}

// Verify reports whether p is a valid Semaphore membership proof for
// the given public inputs. A proof that decodes but does not satisfy
// the relation returns ErrInvalidProof, so callers can errors.Is it
// directly; decode and witness-construction failures return other
// errors.
func (v *Verifier) Verify(_ context.Context, p proof.Proof, in PublicInputs) error {
	gProof, err := decodeProof(p)
	if err != nil {
		return fmt.Errorf("verify: decode proof: %w", err)
	}

	pubWitness, err := publicWitness(in)
	if err != nil {
		return fmt.Errorf("verify: build public witness: %w", err)
	}

	if err := groth16.Verify(gProof, v.vk, pubWitness); err != nil {
		return ErrInvalidProof
	}
	return nil
}

// publicWitness assigns the four public field elements directly,
// without a circuit struct — PublicInputs is already laid out in the
// circuit's declared public-input order.
func publicWitness(in PublicInputs) (witness.Witness, error) {
	w, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}

	values := []field.F{in.Root, in.NullifierHash, in.SignalHash, in.ExternalNullifier}
	ch := make(chan any, len(values))
	for _, f := range values {
		ch <- f.BigInt()
	}
	close(ch)

	if err := w.Fill(len(values), 0, ch); err != nil {
		return nil, err
	}
	return w, nil
}

// decodeProof parses the packed 256-byte proof (8 field elements: Ar.X,
// Ar.Y, Bs.X.A0, Bs.X.A1, Bs.Y.A0, Bs.Y.A1, Krs.X, Krs.Y) into a gnark
// BN254 Groth16 proof, mirroring the point layout a Semaphore verifier
// contract expects on-chain.
func decodeProof(p proof.Proof) (groth16.Proof, error) {
	var g gnarkbn254.Proof
	words := make([]field.F, 8)
	for i := 0; i < 8; i++ {
		f, err := field.FromCanonicalBytes(p[i*32 : (i+1)*32])
		if err != nil {
			return nil, fmt.Errorf("proof word %d: %w", i, err)
		}
		words[i] = f
	}
	g.Ar.X.SetBigInt(words[0].BigInt())
	g.Ar.Y.SetBigInt(words[1].BigInt())
	g.Bs.X.A0.SetBigInt(words[2].BigInt())
	g.Bs.X.A1.SetBigInt(words[3].BigInt())
	g.Bs.Y.A0.SetBigInt(words[4].BigInt())
	g.Bs.Y.A1.SetBigInt(words[5].BigInt())
	g.Krs.X.SetBigInt(words[6].BigInt())
	g.Krs.Y.SetBigInt(words[7].BigInt())
	return &g, nil
}
