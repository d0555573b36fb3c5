package main

import (
	"crypto/ecdsa"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/ethereum/go-ethereum/crypto"

	pbhconfig "github.com/worldcoin/world-chain-builder/pkg/config"
	"github.com/worldcoin/world-chain-builder/pkg/pbh/stamp"
)

// builderSignerKey resolves the block stamper's signing key from
// whichever of Mnemonic or PrivateKey the config carries; Config.Validate
// already guarantees exactly one is set.
func builderSignerKey(cfg pbhconfig.BuilderConfig) (*ecdsa.PrivateKey, error) {
	if cfg.Mnemonic != "" {
		key, err := stamp.DeriveBuilderKey(cfg.Mnemonic, cfg.MnemonicIndex)
		if err != nil {
			return nil, fmt.Errorf("derive builder key from mnemonic: %w", err)
		}
		return key, nil
	}
	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse builder private key: %w", err)
	}
	return key, nil
}

// newMemDB backs the nullifier store with an in-memory database for
// local runs and tests; production deployments set store.backend to
// "goleveldb" in config for a durable store across restarts.
func newMemDB() dbm.DB {
	return dbm.NewMemDB()
}
