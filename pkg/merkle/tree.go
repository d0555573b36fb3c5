// Package merkle implements a binary SHA-256 Merkle tree used to
// produce an auditable summary root over a batch of committed PBH
// nullifier hashes. It is not used for World ID membership proofs —
// those roots are tracked by pkg/pbh/root and verified off-chain via
// the injected proof verifier. Safe for concurrent use.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// ErrEmptyTree is returned when BuildTree is given no leaves.
var ErrEmptyTree = errors.New("cannot build tree from empty leaves")

// ErrInvalidLeafHash is returned when a leaf is not exactly 32 bytes.
var ErrInvalidLeafHash = errors.New("leaf hash must be 32 bytes")

// Tree is a binary Merkle tree over 32-byte leaves.
type Tree struct {
	mu     sync.RWMutex
	leaves [][]byte
	root   []byte
}

// BuildTree creates a new Merkle tree from the given leaf hashes.
// Each leaf must be exactly 32 bytes (SHA256 hash).
func BuildTree(leaves [][]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	for i, leaf := range leaves {
		if len(leaf) != 32 {
			return nil, fmt.Errorf("%w: leaf %d has %d bytes", ErrInvalidLeafHash, i, len(leaf))
		}
	}

	tree := &Tree{leaves: make([][]byte, len(leaves))}
	for i, leaf := range leaves {
		tree.leaves[i] = make([]byte, 32)
		copy(tree.leaves[i], leaf)
	}

	tree.build()
	return tree, nil
}

// build computes the root level by level from the leaves, duplicating
// the final node at each level when it has no pair (standard Merkle
// tree behavior for odd-length levels).
func (t *Tree) build() {
	t.mu.Lock()
	defer t.mu.Unlock()

	currentLevel := make([][]byte, len(t.leaves))
	for i, leaf := range t.leaves {
		currentLevel[i] = make([]byte, 32)
		copy(currentLevel[i], leaf)
	}

	for len(currentLevel) > 1 {
		nextLevel := make([][]byte, 0, (len(currentLevel)+1)/2)
		for i := 0; i < len(currentLevel); i += 2 {
			if i+1 < len(currentLevel) {
				nextLevel = append(nextLevel, hashPair(currentLevel[i], currentLevel[i+1]))
			} else {
				nextLevel = append(nextLevel, hashPair(currentLevel[i], currentLevel[i]))
			}
		}
		currentLevel = nextLevel
	}

	t.root = currentLevel[0]
}

// hashPair combines two 32-byte hashes into one via SHA256(left || right).
func hashPair(left, right []byte) []byte {
	combined := make([]byte, 64)
	copy(combined[:32], left)
	copy(combined[32:], right)
	hash := sha256.Sum256(combined)
	return hash[:]
}

// Root returns the Merkle root as a 32-byte slice.
func (t *Tree) Root() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()

	root := make([]byte, 32)
	copy(root, t.root)
	return root
}

// RootHex returns the Merkle root as a hex string.
func (t *Tree) RootHex() string {
	return hex.EncodeToString(t.Root())
}

// HashData creates a SHA256 hash of arbitrary data. Used for deriving
// leaf hashes from nullifier hash bytes.
func HashData(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:]
}
