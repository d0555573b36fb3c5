package stamp

import (
	"crypto/ecdsa"
	"fmt"
	"runtime"

	bip32 "github.com/FactomProject/go-bip32"
	bip39 "github.com/FactomProject/go-bip39"
	"github.com/ethereum/go-ethereum/crypto"
)

// firstHardened is the BIP-32 index offset marking a hardened child,
// per the standard (2^31).
const firstHardened = uint32(0x80000000)

// DeriveBuilderKey derives the EIP-1559 signer's private key from a
// builder mnemonic, following the standard Ethereum path
// m/44'/60'/0'/0/{index}. It is the idiomatic-Go analogue of the
// wallet derivation a Rust builder would do with a BIP-32 crate; the
// curve arithmetic in go-bip32 is SECP256k1, the same curve
// go-ethereum signs with, so the derived key imports directly via
// crypto.ToECDSA.
func DeriveBuilderKey(mnemonic string, index uint32) (*ecdsa.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("stamp: invalid builder mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, "")

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("stamp: derive master key: %w", err)
	}

	path := []uint32{44 + firstHardened, 60 + firstHardened, 0 + firstHardened, 0, index}
	key := master
	for _, p := range path {
		key, err = key.NewChildKey(p)
		if err != nil {
			return nil, fmt.Errorf("stamp: derive child key: %w", err)
		}
	}

	priv, err := crypto.ToECDSA(key.Key)
	if err != nil {
		return nil, fmt.Errorf("stamp: import derived key: %w", err)
	}
	return priv, nil
}

// signRequest is one unit of work handed to the dedicated signer
// goroutine.
type signRequest struct {
	sign  func() (any, error)
	reply chan signReply
}

type signReply struct {
	result any
	err    error
}

// AsyncSigner serializes all signing operations onto one dedicated
// goroutine pinned to its own OS thread. §9's design note calls for
// dispatching signing to "a dedicated OS thread that drives its own
// single-use runtime" so a synchronous builder callback can block on
// an otherwise-asynchronous signer without nesting runtimes on the
// caller's thread; LockOSThread is this package's equivalent of that
// isolation, needed if the signer implementation is later backed by an
// HSM or other thread-affine client.
type AsyncSigner struct {
	requests chan signRequest
}

// NewAsyncSigner starts the dedicated signer goroutine. Callers should
// construct exactly one AsyncSigner per builder process and share it.
func NewAsyncSigner() *AsyncSigner {
	s := &AsyncSigner{requests: make(chan signRequest)}
	go s.run()
	return s
}

func (s *AsyncSigner) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for req := range s.requests {
		result, err := req.sign()
		req.reply <- signReply{result: result, err: err}
	}
}

// Sign blocks the caller until fn has run on the dedicated signer
// goroutine and returns its result. The builder's synchronous build
// callback calls this directly; it blocks exactly as §4.I requires.
func (s *AsyncSigner) Sign(fn func() (any, error)) (any, error) {
	reply := make(chan signReply, 1)
	s.requests <- signRequest{sign: fn, reply: reply}
	r := <-reply
	return r.result, r.err
}

// Close stops accepting new signing work. In-flight requests already
// queued still complete.
func (s *AsyncSigner) Close() {
	close(s.requests)
}
