// Package stamp implements the block stamper (§4.I): the final system
// transaction appended to every built block, calling stampBlock() on
// the configured block registry so downstream consumers can tell a
// PBH-aware builder produced the block.
package stamp

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// stampBlockABI is the single-method ABI fragment for the registry
// call this package makes. The registry contract itself is out of
// scope (§1); only the call signature matters here.
const stampBlockABI = `[{"type":"function","name":"stampBlock","inputs":[],"outputs":[]}]`

// gasCap is the fixed gas limit §4.I assigns the stamp transaction.
const gasCap = uint64(100_000)

// NonceSource is the narrow view of live EVM state the stamper needs:
// the signer's own pending nonce, fetched fresh on every Stamp call so
// the builder never has to track nonces itself.
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Stamper signs and returns the stamp transaction from a builder
// identity derived once at construction time, either from a mnemonic
// (via DeriveBuilderKey) or a raw private key — Config validates that
// exactly one of those is ever supplied.
type Stamper struct {
	key      *ecdsa.PrivateKey
	signer   common.Address
	registry common.Address
	nonces   NonceSource
	abi      abi.ABI
	async    *AsyncSigner
}

// New constructs a Stamper bound to key, signing stampBlock calls
// against registry. nonces supplies the signer's current pending
// nonce; async serializes the actual signing onto its dedicated
// goroutine (§9).
func New(key *ecdsa.PrivateKey, registry common.Address, nonces NonceSource, async *AsyncSigner) (*Stamper, error) {
	parsed, err := abi.JSON(strings.NewReader(stampBlockABI))
	if err != nil {
		return nil, fmt.Errorf("stamp: parse stampBlock ABI: %w", err)
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("stamp: derived key has no ECDSA public half")
	}
	return &Stamper{
		key:      key,
		signer:   crypto.PubkeyToAddress(*pub),
		registry: registry,
		nonces:   nonces,
		abi:      parsed,
		async:    async,
	}, nil
}

// Stamp implements payload.Stamper. Both fee fields are pinned to the
// current base fee rather than hard-coded: §9 calls out a hard-coded
// chain ID and static fees in the original as a bug this rebuild fixes.
func (s *Stamper) Stamp(ctx context.Context, chainID, baseFee *big.Int) (*types.Transaction, common.Address, error) {
	nonce, err := s.nonces.PendingNonceAt(ctx, s.signer)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("stamp: fetch signer nonce: %w", err)
	}

	callData, err := s.abi.Pack("stampBlock")
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("stamp: pack stampBlock call: %w", err)
	}

	unsigned := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: baseFee,
		GasFeeCap: baseFee,
		Gas:       gasCap,
		To:        &s.registry,
		Value:     big.NewInt(0),
		Data:      callData,
	})

	signerScheme := types.LatestSignerForChainID(chainID)

	result, err := s.async.Sign(func() (any, error) {
		return types.SignTx(unsigned, signerScheme, s.key)
	})
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("stamp: sign transaction: %w", err)
	}

	signed, ok := result.(*types.Transaction)
	if !ok {
		return nil, common.Address{}, fmt.Errorf("stamp: signer returned unexpected type %T", result)
	}

	return signed, s.signer, nil
}

// Signer returns the address this stamper signs from.
func (s *Stamper) Signer() common.Address {
	return s.signer
}
