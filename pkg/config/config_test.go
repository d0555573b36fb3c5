package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfigBody = `
chain:
  chain_id: 480
  world_id_address: "0x1111111111111111111111111111111111111111"
  rpc_url: "http://localhost:8545"
pbh:
  external_nullifier_prefix: "v1"
  gas_reserve_ratio: 0.1
  verifying_key_path: "/etc/pbh/vk.bin"
builder:
  private_key: "${BUILDER_PRIVATE_KEY}"
  block_registry_address: "0x2222222222222222222222222222222222222222"
`

func TestLoadValidConfig(t *testing.T) {
	t.Setenv("BUILDER_PRIVATE_KEY", "deadbeef")
	path := writeTestConfig(t, validConfigBody)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Builder.PrivateKey != "deadbeef" {
		t.Fatalf("expected env substitution to fill private key, got %q", cfg.Builder.PrivateKey)
	}
	if cfg.PBH.MaxNoncePerPeriod != 30 {
		t.Fatalf("expected default max nonce per period 30, got %d", cfg.PBH.MaxNoncePerPeriod)
	}
}

func TestLoadRejectsBothMnemonicAndPrivateKey(t *testing.T) {
	body := validConfigBody + "\n  mnemonic: \"abandon abandon abandon\"\n"
	t.Setenv("BUILDER_PRIVATE_KEY", "deadbeef")
	path := writeTestConfig(t, body)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error when both mnemonic and private_key are set")
	}
}

func TestLoadRejectsNeitherMnemonicNorPrivateKey(t *testing.T) {
	body := `
chain:
  chain_id: 480
  world_id_address: "0x1111111111111111111111111111111111111111"
  rpc_url: "http://localhost:8545"
pbh:
  gas_reserve_ratio: 0.1
  verifying_key_path: "/etc/pbh/vk.bin"
builder:
  block_registry_address: "0x2222222222222222222222222222222222222222"
`
	path := writeTestConfig(t, body)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error when neither mnemonic nor private_key is set")
	}
}

func TestLoadRejectsOutOfRangeGasReserveRatio(t *testing.T) {
	body := `
chain:
  chain_id: 480
  world_id_address: "0x1111111111111111111111111111111111111111"
  rpc_url: "http://localhost:8545"
pbh:
  gas_reserve_ratio: 1.5
  verifying_key_path: "/etc/pbh/vk.bin"
builder:
  private_key: "deadbeef"
  block_registry_address: "0x2222222222222222222222222222222222222222"
`
	path := writeTestConfig(t, body)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for gas_reserve_ratio outside [0, 1]")
	}
}

func TestLoadRejectsInvalidAddress(t *testing.T) {
	body := `
chain:
  chain_id: 480
  world_id_address: "not-an-address"
  rpc_url: "http://localhost:8545"
pbh:
  gas_reserve_ratio: 0.1
  verifying_key_path: "/etc/pbh/vk.bin"
builder:
  private_key: "deadbeef"
  block_registry_address: "0x2222222222222222222222222222222222222222"
`
	path := writeTestConfig(t, body)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for an invalid world_id_address")
	}
}
