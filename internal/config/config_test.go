package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wormhole-foundation/wormhole/sdk/vaa"
)

const chainsYAML = `
chains:
  - name: ethereum
    rpc_url: https://eth.example/${TEST_RPC_KEY}
    core_contract: "0x98f3c9e6E3fAce36bAAd05FE09d375Ef1464288B"
    initial_block: 12959638
    finality: finalized
    rps: 10
    burst: 5
    ntt_managers:
      - "0x6981F5621691CBfE3DdD524dE71076b79F0A0278"
    wormhole_relayer: "0x27428DD2d3DD32A4D7f7C497eAaa23130d894911"
  - name: "23"
    mode: push
    rpc_url: https://arb.example
    core_contract: "0xa5f208e072434bC67592E4C49C1B991BA79BCA46"
    max_batch_size: 500
    finality: latest
`

func writeChains(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHAINS_FILE", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 5, cfg.DB.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, dbStatementTimeoutDefaultMS, cfg.DB.StatementTimeoutMS)
	assert.Equal(t, 500*time.Millisecond, cfg.Watcher.BackoffBase)
	assert.Equal(t, 500*time.Millisecond, cfg.Watcher.PushPollInterval)
	assert.Equal(t, 15*time.Second, cfg.Watcher.PollPollInterval)
	assert.Equal(t, uint64(100), cfg.Watcher.MaxBatchSize)
	assert.Equal(t, time.Minute, cfg.Supervisor.HeartbeatInterval)
	assert.Equal(t, 10*time.Minute, cfg.Supervisor.HeartbeatTimeout)
	assert.Equal(t, 8080, cfg.Server.HealthPort)
	assert.Equal(t, 8081, cfg.Server.AdminPort)
	assert.False(t, cfg.Redis.PublishEnabled)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Alert.Cooldown)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Chains)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/w.db")
	t.Setenv("BACKOFF_BASE_MS", "250")
	t.Setenv("HEARTBEAT_INTERVAL_SEC", "5")
	t.Setenv("HEARTBEAT_TIMEOUT_SEC", "30")
	t.Setenv("REDIS_PUBLISH_ENABLED", "true")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/w.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 250*time.Millisecond, cfg.Watcher.BackoffBase)
	assert.Equal(t, 5*time.Second, cfg.Supervisor.HeartbeatInterval)
	assert.Equal(t, 30*time.Second, cfg.Supervisor.HeartbeatTimeout)
	assert.True(t, cfg.Redis.PublishEnabled)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
}

func TestLoad_ChainsFile(t *testing.T) {
	t.Setenv("TEST_RPC_KEY", "secret")
	t.Setenv("CHAINS_FILE", writeChains(t, chainsYAML))

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 2)

	eth := cfg.Chains[0]
	assert.Equal(t, vaa.ChainIDEthereum, eth.ChainID)
	assert.Equal(t, "https://eth.example/secret", eth.RPCURL)
	assert.Equal(t, "poll", eth.Mode)
	require.NotNil(t, eth.InitialBlock)
	assert.Equal(t, uint64(12959638), *eth.InitialBlock)
	assert.Len(t, eth.NTTManagers, 1)
	assert.Equal(t, 15*time.Second, cfg.PollInterval(eth))
	assert.Equal(t, uint64(100), cfg.BatchSize(eth))

	arb := cfg.Chains[1]
	assert.Equal(t, vaa.ChainIDArbitrum, arb.ChainID)
	assert.Nil(t, arb.InitialBlock)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval(arb))
	assert.Equal(t, uint64(500), cfg.BatchSize(arb))
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "mongo"}, "STORAGE_BACKEND"},
		{"zero backoff", map[string]string{"BACKOFF_BASE_MS": "0"}, "BACKOFF_BASE_MS"},
		{"zero batch", map[string]string{"DEFAULT_MAX_BATCH_SIZE": "0"}, "DEFAULT_MAX_BATCH_SIZE"},
		{"timeout below interval", map[string]string{"HEARTBEAT_INTERVAL_SEC": "60", "HEARTBEAT_TIMEOUT_SEC": "30"}, "HEARTBEAT_TIMEOUT_SEC"},
		{"tracing without endpoint", map[string]string{"TRACING_ENABLED": "true"}, "TRACING_ENDPOINT"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"ntt on sqlite", map[string]string{"STORAGE_BACKEND": "sqlite", "CHAINS_FILE": "ntt"}, "ntt_managers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_RPC_KEY", "k")
			for k, v := range tt.env {
				if k == "CHAINS_FILE" {
					v = writeChains(t, chainsYAML)
				}
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseChains_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown chain", "chains:\n  - name: narnia\n", "narnia"},
		{"bad yaml", "chains: [", "parse chains file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChains([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestChainConfig_Validate(t *testing.T) {
	valid := ChainConfig{
		Name:         "ethereum",
		Mode:         "poll",
		RPCURL:       "https://eth.example",
		CoreContract: "0x98f3c9e6E3fAce36bAAd05FE09d375Ef1464288B",
		Finality:     "safe",
	}
	require.NoError(t, valid.validate())

	mutate := func(fn func(*ChainConfig)) ChainConfig {
		c := valid
		fn(&c)
		return c
	}
	assert.ErrorContains(t, mutate(func(c *ChainConfig) { c.RPCURL = "" }).validate(), "rpc_url")
	assert.ErrorContains(t, mutate(func(c *ChainConfig) { c.CoreContract = "xyz" }).validate(), "core_contract")
	assert.ErrorContains(t, mutate(func(c *ChainConfig) { c.Mode = "stream" }).validate(), "mode")
	assert.ErrorContains(t, mutate(func(c *ChainConfig) { c.Finality = "pending" }).validate(), "finality")
	assert.ErrorContains(t, mutate(func(c *ChainConfig) { c.RPS = -1 }).validate(), "rps")
	assert.ErrorContains(t, mutate(func(c *ChainConfig) { c.NTTManagers = []string{"0x1"} }).validate(), "ntt manager")
	assert.ErrorContains(t, mutate(func(c *ChainConfig) { c.WormholeRelayer = "nope" }).validate(), "wormhole_relayer")
}

func TestDuplicateChainRejected(t *testing.T) {
	dup := chainsYAML + `
  - name: "2"
    rpc_url: https://other.example
    core_contract: "0x98f3c9e6E3fAce36bAAd05FE09d375Ef1464288B"
`
	t.Setenv("TEST_RPC_KEY", "k")
	t.Setenv("CHAINS_FILE", writeChains(t, dup))
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configured twice")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}
