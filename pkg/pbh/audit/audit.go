// Package audit implements the nullifier audit sink (§4.L): a
// best-effort Postgres-backed log of every nullifier batch committed
// or reverted on canonicalization, stamped with a Merkle summary root
// so an external auditor can later verify a batch was not tampered
// with in transit. Failures here are logged (no metric counts them)
// and never propagate back to block sealing or Store.Commit — the audit trail
// is a diagnostic aid, not a consensus input.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // Postgres driver

	"github.com/worldcoin/world-chain-builder/pkg/merkle"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
)

// Config bounds the sink's connection pool.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	return c
}

// Sink writes committed and reverted nullifier batches to Postgres.
type Sink struct {
	db     *sql.DB
	logger *log.Logger
}

// New opens the sink's connection pool and verifies connectivity.
// Callers that cannot tolerate a missing audit trail may check the
// returned error; callers that treat it as purely best-effort (the
// builder's normal mode) may log and continue without one.
func New(cfg Config, logger *log.Logger) (*Sink, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.New(log.Writer(), "[pbh-audit] ", log.LstdFlags)
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}

	return &Sink{db: db, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Sink) Close() error {
	return s.db.Close()
}

// summaryRoot hashes a batch of nullifier hashes into one auditable
// root. The root depends on the order of the hashes in batch.
func summaryRoot(batch []field.F) (string, error) {
	leaves := make([][]byte, len(batch))
	for i, nh := range batch {
		b := nh.Bytes()
		leaves[i] = merkle.HashData(b[:])
	}
	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return "", err
	}
	return tree.RootHex(), nil
}

// RecordCommit writes one committed batch. Best-effort: a failure is
// logged, not counted in any metric, and never returned to the caller.
func (s *Sink) RecordCommit(ctx context.Context, height uint64, batch []field.F) {
	s.record(ctx, "commit", height, batch)
}

// RecordRevert writes one reverted batch, mirroring RecordCommit.
func (s *Sink) RecordRevert(ctx context.Context, height uint64, batch []field.F) {
	s.record(ctx, "revert", height, batch)
}

func (s *Sink) record(ctx context.Context, kind string, height uint64, batch []field.F) {
	if len(batch) == 0 {
		return
	}
	root, err := summaryRoot(batch)
	if err != nil {
		s.logger.Printf("audit: summary root for height %d: %v", height, err)
		return
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pbh_nullifier_batches (height, kind, batch_size, summary_root, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		height, kind, len(batch), root, time.Now().UTC(),
	)
	if err != nil {
		s.logger.Printf("audit: record %s batch at height %d: %v", kind, height, err)
		return
	}
}
