package root

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
)

// treeChangedTopic is the keccak of `TreeChanged(uint256,uint8,uint256)`,
// the World ID identity-manager event signature emitted whenever the
// on-chain root advances.
var treeChangedTopic = common.HexToHash("0x25f6d5cc356ee0b49cf708c13c68197947f5740a878a298765e4b18e4afdaf04")

// LogSource is the narrow slice of an Ethereum JSON-RPC client this
// package needs. The real EVM/log infrastructure lives outside this
// module's scope; production wiring passes an *ethclient.Client, which
// already satisfies this interface.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// WatcherConfig configures the polling-based root ingestion loop.
type WatcherConfig struct {
	WorldID               common.Address
	PollingInterval        time.Duration
	RequiredConfirmations  uint64
	Logger                 *log.Logger
}

// DefaultWatcherConfig returns sane polling defaults.
func DefaultWatcherConfig(worldID common.Address) WatcherConfig {
	return WatcherConfig{
		WorldID:               worldID,
		PollingInterval:       12 * time.Second,
		RequiredConfirmations: 1,
	}
}

// Watcher polls a LogSource for World ID tree-update events and feeds
// accepted roots into a Validator. It mirrors the poll-and-callback
// shape used elsewhere in this codebase for chain observation, adapted
// here to a single log topic instead of per-transaction finality
// tracking.
type Watcher struct {
	client    LogSource
	validator *Validator
	cfg       WatcherConfig
	lastBlock uint64
	logger    *log.Logger
}

// NewWatcher constructs a watcher that will deliver observed roots to
// validator.
func NewWatcher(client LogSource, validator *Validator, cfg WatcherConfig) *Watcher {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Writer(), "[pbh-root] ", log.LstdFlags)
	}
	return &Watcher{client: client, validator: validator, cfg: cfg, logger: cfg.Logger}
}

// Run polls until ctx is canceled. It is intended to be spawned as a
// long-running task alongside the pool's maintenance task.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollingInterval)
	defer ticker.Stop()

	if err := w.poll(ctx); err != nil {
		w.logger.Printf("initial root poll failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				w.logger.Printf("root poll failed: %v", err)
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context) error {
	head, err := w.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("query head: %w", err)
	}
	if head < w.cfg.RequiredConfirmations {
		return nil
	}
	safeHead := head - w.cfg.RequiredConfirmations

	from := w.lastBlock
	if from > safeHead {
		return nil
	}

	logs, err := w.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(safeHead),
		Addresses: []common.Address{w.cfg.WorldID},
		Topics:    [][]common.Hash{{treeChangedTopic}},
	})
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}

	for _, l := range logs {
		r, ok := decodeTreeChangedRoot(l)
		if !ok {
			continue
		}
		w.validator.Observe(r, l.BlockNumber)
	}

	w.lastBlock = safeHead + 1
	return nil
}

// decodeTreeChangedRoot extracts the new root from a TreeChanged log.
// The event's first indexed topic (after the signature) carries the
// new post-root as a 32-byte word; the exact ABI layout is owned by
// the World ID contracts, out of scope here.
func decodeTreeChangedRoot(l types.Log) (field.F, bool) {
	if len(l.Topics) < 2 {
		return field.F{}, false
	}
	return field.FromBytes(l.Topics[1].Bytes()), true
}
