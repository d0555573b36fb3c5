// Package kvdb adapts CometBFT's embedded key-value database to the
// narrow KV interface used by the PBH nullifier store.
package kvdb

import (
	dbm "github.com/cometbft/cometbft-db"
)

// KV is the minimal durable key-value contract the nullifier store needs.
type KV interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	NewBatch() Batch
	Iterator(start, end []byte) (dbm.Iterator, error)
	Close() error
}

// Batch groups writes so they land atomically.
type Batch interface {
	Set(key, value []byte) error
	Delete(key []byte) error
	WriteSync() error
	Close() error
}

// Adapter wraps a dbm.DB and exposes it as KV.
type Adapter struct {
	db dbm.DB
}

// NewAdapter wraps the given CometBFT database.
func NewAdapter(db dbm.DB) *Adapter {
	return &Adapter{db: db}
}

// Open opens (creating if absent) a GoLevelDB-backed database under dir.
func Open(name, dir string) (*Adapter, error) {
	db, err := dbm.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, err
	}
	return NewAdapter(db), nil
}

func (a *Adapter) Get(key []byte) ([]byte, error) { return a.db.Get(key) }

func (a *Adapter) Has(key []byte) (bool, error) { return a.db.Has(key) }

// Set writes durably (SetSync) since the nullifier store relies on the
// staged/executed tables surviving a process restart.
func (a *Adapter) Set(key, value []byte) error { return a.db.SetSync(key, value) }

func (a *Adapter) Delete(key []byte) error { return a.db.DeleteSync(key) }

func (a *Adapter) Iterator(start, end []byte) (dbm.Iterator, error) {
	return a.db.Iterator(start, end)
}

func (a *Adapter) Close() error { return a.db.Close() }

// NewBatch returns an atomic write batch over the underlying database.
func (a *Adapter) NewBatch() Batch { return batchAdapter{a.db.NewBatch()} }

type batchAdapter struct {
	b dbm.Batch
}

func (b batchAdapter) Set(key, value []byte) error { return b.b.Set(key, value) }
func (b batchAdapter) Delete(key []byte) error     { return b.b.Delete(key) }
func (b batchAdapter) WriteSync() error            { return b.b.WriteSync() }
func (b batchAdapter) Close() error                { return b.b.Close() }
