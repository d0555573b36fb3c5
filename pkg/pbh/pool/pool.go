// Package pool assembles the PBH Validator, the ordering comparator,
// and the nullifier store into a running pool instance, and applies
// reorg semantics to the nullifier store as the canonical chain moves
// (§4.G).
package pool

import (
	"context"
	"log"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/ordering"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/store"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/tx"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/validate"
)

// AuditSink is the narrow view of pkg/pbh/audit.Sink the pool needs.
// Recording is always best-effort from the pool's perspective: a nil
// AuditSink simply means no audit trail is kept.
type AuditSink interface {
	RecordCommit(ctx context.Context, height uint64, batch []field.F)
	RecordRevert(ctx context.Context, height uint64, batch []field.F)
}

// HeadUpdate is one entry of the canonical-chain event stream the pool
// consumes. A Reverted height means that block was uncanonicalized by
// a reorg; a non-reverted height with Nullifiers means it newly became
// canonical and those nullifiers must commit.
type HeadUpdate struct {
	Height      uint64
	Reverted    bool
	Nullifiers  []field.F
}

// Pool holds the pending-transaction set guarded by a single mutex
// (mirrors the store's single-writer discipline: the pool itself is
// not on a hot enough path to need anything finer-grained) plus the
// wired validator and ordering comparator.
type Pool struct {
	mu        sync.Mutex
	pending   map[txKey]*tx.Transaction
	validator *validate.Validator
	store     *store.Store
	logger    *log.Logger
	audit     AuditSink

	headUpdates chan HeadUpdate
	stop        chan struct{}
}

type txKey [32]byte

// New wires a pool around an already-constructed validator and store.
func New(v *validate.Validator, s *store.Store) *Pool {
	return &Pool{
		pending:     make(map[txKey]*tx.Transaction),
		validator:   v,
		store:       s,
		logger:      log.New(log.Writer(), "[pbh-pool] ", log.LstdFlags),
		headUpdates: make(chan HeadUpdate, 64),
		stop:        make(chan struct{}),
	}
}

// Submit validates and, if accepted, admits t to the pending set.
func (p *Pool) Submit(ctx context.Context, origin common.Address, t *tx.Transaction) (validate.Outcome, error) {
	outcome, err := p.validator.Validate(ctx, origin, t)
	if err != nil {
		return outcome, err
	}

	p.mu.Lock()
	p.pending[txKey(t.Hash())] = t
	p.mu.Unlock()
	return outcome, nil
}

// Pending returns a priority-ordered snapshot of the pending set at
// the given base fee. The returned slice is a copy; mutating it does
// not affect the pool.
func (p *Pool) Pending(baseFee *big.Int) []*tx.Transaction {
	p.mu.Lock()
	snapshot := make([]*tx.Transaction, 0, len(p.pending))
	for _, t := range p.pending {
		snapshot = append(snapshot, t)
	}
	p.mu.Unlock()

	ordering.Sort(snapshot, baseFee)
	return snapshot
}

// Remove drops a transaction from the pending set (included in a
// sealed block, evicted, or replaced) and best-effort frees its staged
// nullifier if it never executed.
func (p *Pool) Remove(t *tx.Transaction) {
	p.mu.Lock()
	delete(p.pending, txKey(t.Hash()))
	p.mu.Unlock()

	if t.ValidPBH {
		if err := p.store.Evict(t.Hash()); err != nil {
			p.logger.Printf("evict nullifier for %s: %v", t.Hash(), err)
		}
	}
}

// NotifyHead feeds a canonical-chain event into the pool's maintenance
// task. Non-blocking: a full channel drops the event and logs it. A
// dropped update is not replayed, and each HeadUpdate carries only its
// own block's nullifiers, so the dropped block's nullifiers are neither
// committed nor reverted by the maintenance task.
func (p *Pool) NotifyHead(u HeadUpdate) {
	select {
	case p.headUpdates <- u:
	default:
		p.logger.Printf("head update channel full, dropping update for height %d", u.Height)
	}
}

// Run spawns the pool's maintenance task, consuming the canonical-state
// event stream and applying reorg semantics to the nullifier store
// until ctx is canceled or Stop is called.
func (p *Pool) Run(ctx context.Context) {
	go p.maintenanceLoop(ctx)
}

// Stop signals the maintenance task to exit.
func (p *Pool) Stop() {
	close(p.stop)
}

// WithAuditSink attaches an audit sink for committed/reverted batches.
// Optional; a pool with no sink attached simply skips recording.
func (p *Pool) WithAuditSink(a AuditSink) *Pool {
	p.audit = a
	return p
}

func (p *Pool) maintenanceLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case u := <-p.headUpdates:
			p.applyHeadUpdate(u)
		}
	}
}

func (p *Pool) applyHeadUpdate(u HeadUpdate) {
	if u.Reverted {
		if err := p.store.Revert(u.Height); err != nil {
			p.logger.Printf("revert height %d: %v", u.Height, err)
		}
		if p.audit != nil {
			p.audit.RecordRevert(context.Background(), u.Height, u.Nullifiers)
		}
		return
	}

	if _, err := p.store.Commit(u.Height, u.Nullifiers); err != nil {
		p.logger.Printf("commit height %d: %v", u.Height, err)
		return
	}
	if p.audit != nil {
		p.audit.RecordCommit(context.Background(), u.Height, u.Nullifiers)
	}

	// Transactions whose nullifier just executed are done with the
	// pending set regardless of whether the block-building path
	// already called Remove for them directly.
	p.mu.Lock()
	for key, t := range p.pending {
		if !t.ValidPBH || t.Payload == nil {
			continue
		}
		for _, nh := range u.Nullifiers {
			if nh.Equal(t.Payload.NullifierHash) {
				delete(p.pending, key)
				break
			}
		}
	}
	p.mu.Unlock()
}
