package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSourcesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSources(t *testing.T) {
	path := writeSourcesFile(t, `
[[sources]]
kind = "indexer"
chain_id = 8453
name = "base-indexer"
base_url = "https://indexer.base.example.org"

[[sources]]
kind = "chain"
chain_id = 11155111
name = "sepolia"
rpc_url = "wss://sepolia.example.org"
registry_contract = "0x00000000000000000000000000000000000f00d1"

[[sources]]
kind = "postgres"
chain_id = 1
name = "mainnet-mirror"
dsn = "postgres://localhost:5432/directory?sslmode=disable"
`)

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 3)
	require.Equal(t, "indexer", sources[0].Kind)
	require.Equal(t, int64(8453), sources[0].ChainID)
	require.Equal(t, "wss://sepolia.example.org", sources[1].RPCURL)
	require.Equal(t, "mainnet-mirror", sources[2].Name)
}

func TestLoadSourcesRejectsDuplicateChains(t *testing.T) {
	path := writeSourcesFile(t, `
[[sources]]
kind = "indexer"
chain_id = 1
name = "a"
base_url = "https://a.example.org"

[[sources]]
kind = "indexer"
chain_id = 1
name = "b"
base_url = "https://b.example.org"
`)

	_, err := LoadSources(path)
	require.ErrorContains(t, err, "duplicate chain_id")
}

func TestLoadSourcesRejectsUnknownKind(t *testing.T) {
	path := writeSourcesFile(t, `
[[sources]]
kind = "carrier-pigeon"
chain_id = 1
name = "a"
`)

	_, err := LoadSources(path)
	require.ErrorContains(t, err, "unknown source kind")
}

func TestLoadSourcesRejectsMissingKindFields(t *testing.T) {
	path := writeSourcesFile(t, `
[[sources]]
kind = "chain"
chain_id = 1
name = "a"
rpc_url = "wss://a.example.org"
`)

	_, err := LoadSources(path)
	require.ErrorContains(t, err, "registry_contract")
}

func TestLoadSourcesRejectsEmptyFile(t *testing.T) {
	path := writeSourcesFile(t, "")

	_, err := LoadSources(path)
	require.ErrorContains(t, err, "no sources")
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, ":8081", cfg.HTTPAddr)
	require.Equal(t, 500, cfg.CacheMaxSize)
	require.Equal(t, 10, cfg.PageBudget)
	require.Equal(t, 50, cfg.DefaultPageSize)
	require.Equal(t, 200, cfg.MaxPageSize)
}
