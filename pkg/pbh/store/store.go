// Package store implements the durable nullifier store (§4.C): the
// "validated" staging table and the "executed" append-only table that
// together enforce one-use PBH nullifiers across process restarts and
// chain reorgs.
package store

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/worldcoin/world-chain-builder/pkg/kvdb"
	"github.com/worldcoin/world-chain-builder/pkg/merkle"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
)

// Key layout. All multi-byte integers are big-endian.
var (
	prefixValidatedByNullifier = []byte("n/validated/")
	prefixValidatedByTx        = []byte("n/bytx/")
	prefixExecuted             = []byte("n/executed/")
	prefixBlockNullifiers      = []byte("n/block/")
	prefixAuditRoot            = []byte("n/auditroot/")
)

// CommitSummary is recorded once per canonical block. It is not passed
// to the audit sink (§4.L): the sink computes its own summary root over
// SHA-256-hashed leaves, which differs from AuditRoot.
type CommitSummary struct {
	Height         uint64
	NullifierCount int
	AuditRoot      [32]byte
}

// Store is the sole durable writer of PBH nullifier state. Per §5, all
// writes serialize through a single mutex so two concurrent stage()
// calls for the same nullifier resolve deterministically — exactly one
// wins (P8).
type Store struct {
	mu sync.Mutex
	kv kvdb.KV
}

// New wraps an already-open KV database.
func New(kv kvdb.KV) *Store {
	return &Store{kv: kv}
}

func keyValidatedByNullifier(nh field.F) []byte {
	b := nh.Bytes()
	return append(append([]byte{}, prefixValidatedByNullifier...), b[:]...)
}

func keyValidatedByTx(tx common.Hash) []byte {
	return append(append([]byte{}, prefixValidatedByTx...), tx.Bytes()...)
}

func keyExecuted(nh field.F) []byte {
	b := nh.Bytes()
	return append(append([]byte{}, prefixExecuted...), b[:]...)
}

func keyBlockNullifiers(height uint64) []byte {
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], height)
	return append(append([]byte{}, prefixBlockNullifiers...), h[:]...)
}

func keyAuditRoot(height uint64) []byte {
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], height)
	return append(append([]byte{}, prefixAuditRoot...), h[:]...)
}

// Stage records that tx (sent by sender, though sender is not used —
// uniqueness is keyed by nullifier hash per the design
// notes' recommendation to survive rebroadcasts and fee bumps) has
// been validated with nullifierHash. It is atomic: a concurrent Stage
// for the same nullifier hash serializes here and exactly one caller
// succeeds.
func (s *Store) Stage(tx common.Hash, sender common.Address, nullifierHash field.F) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, err := s.kv.Has(keyExecuted(nullifierHash)); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	} else if ok {
		return ErrNullifierAlreadyExecuted
	}

	existingTx, err := s.kv.Get(keyValidatedByNullifier(nullifierHash))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if existingTx != nil {
		if common.BytesToHash(existingTx) == tx {
			// Re-staging the same transaction for the same nullifier is
			// idempotent — revalidation (e.g. after a head update)
			// should not fail.
			return nil
		}
		return ErrNullifierAlreadyPending
	}

	existingNullifier, err := s.kv.Get(keyValidatedByTx(tx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if existingNullifier != nil {
		return ErrDuplicateTxHash
	}

	batch := s.kv.NewBatch()
	defer batch.Close()
	nhBytes := nullifierHash.Bytes()
	if err := batch.Set(keyValidatedByNullifier(nullifierHash), tx.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if err := batch.Set(keyValidatedByTx(tx), nhBytes[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if err := batch.WriteSync(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return nil
}

// ContainsExecuted reports whether nullifierHash has already landed in
// a canonical block.
func (s *Store) ContainsExecuted(nullifierHash field.F) (bool, error) {
	ok, err := s.kv.Has(keyExecuted(nullifierHash))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return ok, nil
}

// IsPending reports whether nullifierHash is currently staged by some
// pending (not yet executed) transaction, and if so, which one.
func (s *Store) IsPending(nullifierHash field.F) (common.Hash, bool, error) {
	v, err := s.kv.Get(keyValidatedByNullifier(nullifierHash))
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if v == nil {
		return common.Hash{}, false, nil
	}
	return common.BytesToHash(v), true, nil
}

// Evict releases a staged nullifier for a transaction that left the
// pool without landing on-chain (fee bump, timeout, replacement).
// Eviction is a best-effort cleanup: it must never block future
// validation of the freed nullifier, so a failed evict is logged by
// the caller and not treated as fatal; it is not retried.
func (s *Store) Evict(tx common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nhBytes, err := s.kv.Get(keyValidatedByTx(tx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if nhBytes == nil {
		return nil
	}
	nullifierHash, err := field.FromCanonicalBytes(nhBytes)
	if err != nil {
		return fmt.Errorf("%w: stored nullifier hash corrupt: %v", ErrDatabase, err)
	}

	// A nullifier that already executed must never be evicted out from
	// under the executed table — only the pending side-index is
	// cleared.
	executed, err := s.kv.Has(keyExecuted(nullifierHash))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	batch := s.kv.NewBatch()
	defer batch.Close()
	if err := batch.Delete(keyValidatedByTx(tx)); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if !executed {
		if err := batch.Delete(keyValidatedByNullifier(nullifierHash)); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
	}
	if err := batch.WriteSync(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return nil
}

// Commit atomically moves the nullifiers used by a newly canonical
// block from "validated" into "executed". It is idempotent per block
// height: committing the same height twice is a no-op.
func (s *Store) Commit(height uint64, nullifierHashes []field.F) (CommitSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if already, err := s.kv.Has(keyBlockNullifiers(height)); err != nil {
		return CommitSummary{}, fmt.Errorf("%w: %v", ErrDatabase, err)
	} else if already {
		return s.loadSummary(height)
	}

	batch := s.kv.NewBatch()
	defer batch.Close()

	var heightBuf [8]byte
	binary.BigEndian.PutUint64(heightBuf[:], height)

	leaves := make([][]byte, 0, len(nullifierHashes))
	blob := make([]byte, 0, len(nullifierHashes)*32)
	for _, nh := range nullifierHashes {
		b := nh.Bytes()
		if err := batch.Set(keyExecuted(nh), heightBuf[:]); err != nil {
			return CommitSummary{}, fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		// The validated side-index for this nullifier's transaction is
		// intentionally left in place; it records which tx landed and
		// is cleaned up lazily by Evict's callers once they observe it
		// executed.
		leaf := sha256Leaf(b[:])
		leaves = append(leaves, leaf)
		blob = append(blob, b[:]...)
	}
	if err := batch.Set(keyBlockNullifiers(height), blob); err != nil {
		return CommitSummary{}, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	var root [32]byte
	if len(leaves) > 0 {
		tree, err := merkle.BuildTree(leaves)
		if err != nil {
			return CommitSummary{}, fmt.Errorf("%w: audit root: %v", ErrDatabase, err)
		}
		copy(root[:], tree.Root())
	}
	if err := batch.Set(keyAuditRoot(height), encodeAuditRoot(root, len(nullifierHashes))); err != nil {
		return CommitSummary{}, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err := batch.WriteSync(); err != nil {
		return CommitSummary{}, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return CommitSummary{Height: height, NullifierCount: len(nullifierHashes), AuditRoot: root}, nil
}

// Revert undoes Commit for a block that was uncanonicalized by a
// reorg: every nullifier committed at height is removed from
// "executed" (P7).
func (s *Store) Revert(height uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := s.kv.Get(keyBlockNullifiers(height))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if blob == nil {
		return nil
	}

	batch := s.kv.NewBatch()
	defer batch.Close()
	for i := 0; i+32 <= len(blob); i += 32 {
		nh, err := field.FromCanonicalBytes(blob[i : i+32])
		if err != nil {
			return fmt.Errorf("%w: corrupt block nullifier record: %v", ErrDatabase, err)
		}
		if err := batch.Delete(keyExecuted(nh)); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
	}
	if err := batch.Delete(keyBlockNullifiers(height)); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if err := batch.Delete(keyAuditRoot(height)); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return batch.WriteSync()
}

func (s *Store) loadSummary(height uint64) (CommitSummary, error) {
	root, count, err := s.decodeAuditRoot(height)
	if err != nil {
		return CommitSummary{}, err
	}
	return CommitSummary{Height: height, NullifierCount: count, AuditRoot: root}, nil
}

func (s *Store) decodeAuditRoot(height uint64) ([32]byte, int, error) {
	raw, err := s.kv.Get(keyAuditRoot(height))
	if err != nil {
		return [32]byte{}, 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	if raw == nil || len(raw) < 36 {
		return [32]byte{}, 0, nil
	}
	var root [32]byte
	copy(root[:], raw[:32])
	count := int(binary.BigEndian.Uint32(raw[32:36]))
	return root, count, nil
}

func encodeAuditRoot(root [32]byte, count int) []byte {
	out := make([]byte, 36)
	copy(out[:32], root[:])
	binary.BigEndian.PutUint32(out[32:], uint32(count))
	return out
}

func sha256Leaf(nullifierHash []byte) []byte {
	// merkle.BuildTree requires 32-byte leaves; the nullifier hash is
	// already exactly 32 bytes, so it is used directly as the leaf.
	leaf := make([]byte, 32)
	copy(leaf, nullifierHash)
	return leaf
}
