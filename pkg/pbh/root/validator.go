// Package root implements the World ID root validator (§4.D): it
// tracks the identity tree's latest Merkle root plus a bounded history
// of prior roots, and answers whether a root presented in a proof is
// still acceptable.
package root

import (
	"sync/atomic"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
)

// DefaultHorizon is the default number of distinct historical roots
// kept alive, chosen so a proof generated against a root up to ~5
// tree-update periods old still validates.
const DefaultHorizon = 5

type entry struct {
	root             field.F
	activationHeight uint64
}

// snapshot is the immutable state swapped in on every update. Readers
// load the current snapshot atomically and never block a concurrent
// writer (§5: "copy-on-write of the FIFO; readers never block
// writers").
type snapshot struct {
	latest field.F
	hasAny bool
	fifo   []entry // newest first, at most `horizon` distinct entries
}

// Validator answers "is this root currently valid?" against roots
// ingested from World ID contract tree-update events. Safe for
// concurrent use: queries never block updates and vice versa.
type Validator struct {
	horizon int
	snap    atomic.Pointer[snapshot]
}

// NewValidator constructs a root validator retaining up to horizon
// distinct historical roots. horizon <= 0 uses DefaultHorizon.
func NewValidator(horizon int) *Validator {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	v := &Validator{horizon: horizon}
	v.snap.Store(&snapshot{})
	return v
}

// IsValid reports whether root matches the latest observed root or
// appears in the retained FIFO history.
func (v *Validator) IsValid(r field.F) bool {
	s := v.snap.Load()
	if s.hasAny && s.latest.Equal(r) {
		return true
	}
	for _, e := range s.fifo {
		if e.root.Equal(r) {
			return true
		}
	}
	return false
}

// Latest returns the most recently observed root, and whether any root
// has been observed yet.
func (v *Validator) Latest() (field.F, bool) {
	s := v.snap.Load()
	return s.latest, s.hasAny
}

// Observe ingests a tree-update event carrying a newly accepted root at
// the given activation height. Updates only ever occur on canonical
// chain notifications (§5) — callers must not feed speculative roots
// from unconfirmed blocks.
func (v *Validator) Observe(r field.F, activationHeight uint64) {
	old := v.snap.Load()

	if old.hasAny && old.latest.Equal(r) {
		// Re-observing the current head root (e.g. a duplicate
		// notification) is a no-op.
		return
	}

	fifo := make([]entry, 0, v.horizon)
	if old.hasAny {
		fifo = append(fifo, entry{root: old.latest, activationHeight: activationHeight})
	}
	for _, e := range old.fifo {
		if e.root.Equal(r) {
			continue
		}
		if len(fifo) >= v.horizon {
			break
		}
		fifo = append(fifo, e)
	}

	next := &snapshot{
		latest: r,
		hasAny: true,
		fifo:   fifo,
	}
	v.snap.Store(next)
}
