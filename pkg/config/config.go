// Package config loads the builder's configuration from a YAML file,
// with ${VAR_NAME} environment substitution, following the same
// pattern as the anchor configuration loader this service descends
// from.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML unmarshaling from Go duration
// strings ("15s", "2m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Config is the builder's full runtime configuration.
type Config struct {
	Chain   ChainConfig   `yaml:"chain"`
	PBH     PBHConfig     `yaml:"pbh"`
	Builder BuilderConfig `yaml:"builder"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
}

// ChainConfig identifies the chain the builder assembles blocks for.
type ChainConfig struct {
	ChainID        int64  `yaml:"chain_id"`
	WorldIDAddress string `yaml:"world_id_address"`
	EntrypointAddress string `yaml:"entrypoint_address"`
	AggregatorAddress string `yaml:"aggregator_address"`
	RPCURL         string `yaml:"rpc_url"`
}

// PBHConfig tunes the PBH validation and payload-building behavior.
type PBHConfig struct {
	ExternalNullifierPrefix string   `yaml:"external_nullifier_prefix"`
	MaxNoncePerPeriod       uint16   `yaml:"max_nonce_per_period"`
	GracePeriod             Duration `yaml:"grace_period"`
	GasReserveRatio         float64  `yaml:"gas_reserve_ratio"`
	VerifyingKeyPath        string   `yaml:"verifying_key_path"`
	RootHistorySize         int      `yaml:"root_history_size"`
}

// BuilderConfig configures the block stamper's signer identity.
// Exactly one of Mnemonic or PrivateKey must be set.
type BuilderConfig struct {
	Mnemonic          string `yaml:"mnemonic"`
	MnemonicIndex     uint32 `yaml:"mnemonic_index"`
	PrivateKey        string `yaml:"private_key"`
	BlockRegistryAddress string `yaml:"block_registry_address"`
}

// StoreConfig configures the nullifier store's durable backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "memdb" or "goleveldb"
	DataDir string `yaml:"data_dir"`
}

// ServerConfig configures ambient HTTP surfaces.
type ServerConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
	HealthAddr  string `yaml:"health_addr"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads and parses the YAML config file at path, substituting
// ${VAR_NAME} references against the process environment first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.PBH.MaxNoncePerPeriod == 0 {
		cfg.PBH.MaxNoncePerPeriod = 30
	}
	if cfg.PBH.RootHistorySize == 0 {
		cfg.PBH.RootHistorySize = 5
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the rest of the builder relies on
// holding: a well-formed signer identity, a gas reserve fraction that
// cannot starve either phase of the payload builder, and well-formed
// contract addresses.
func (c *Config) Validate() error {
	var errs []string

	haveMnemonic := c.Builder.Mnemonic != ""
	havePrivateKey := c.Builder.PrivateKey != ""
	if haveMnemonic == havePrivateKey {
		errs = append(errs, "builder: exactly one of mnemonic or private_key must be set")
	}
	if !common.IsHexAddress(c.Builder.BlockRegistryAddress) {
		errs = append(errs, "builder: block_registry_address is not a valid address")
	}

	if c.PBH.GasReserveRatio < 0 || c.PBH.GasReserveRatio > 1 {
		errs = append(errs, "pbh: gas_reserve_ratio must be in [0, 1]")
	}
	if c.PBH.VerifyingKeyPath == "" {
		errs = append(errs, "pbh: verifying_key_path is required")
	}
	if !common.IsHexAddress(c.Chain.WorldIDAddress) {
		errs = append(errs, "chain: world_id_address is not a valid address")
	}

	if c.Chain.ChainID == 0 {
		errs = append(errs, "chain: chain_id is required")
	}
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
