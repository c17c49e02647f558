package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
mode = "serve"

[processor]
base_url = "https://api.processor.test/v1"
api_secret = "sk_test"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, "serve", cfg.Mode)
	require.Equal(t, "season1", cfg.Supply.Epoch)
	require.Equal(t, int64(5_000), cfg.Supply.TierCaps["legendary"])
	require.True(t, cfg.Supply.ScarceTier("Legendary"))
	require.False(t, cfg.Supply.ScarceTier("common"))
	require.Equal(t, 5*time.Minute, cfg.Trade.Window.Duration)
	require.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadParsesDurationsAndCaps(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
[trade]
window = "90s"
sweep_interval = "30s"
sweep_batch = 25

[supply]
epoch = "season2"
daily_scarce_cap = 1
scarce_tiers = ["legendary", "epic"]

[supply.tier_caps]
common = 500
epic = 40
legendary = 10
`))
	require.NoError(t, err)

	require.Equal(t, 90*time.Second, cfg.Trade.Window.Duration)
	require.Equal(t, 25, cfg.Trade.SweepBatch)
	require.Equal(t, "season2", cfg.Supply.Epoch)
	require.Equal(t, int64(40), cfg.Supply.TierCaps["epic"])
	require.True(t, cfg.Supply.ScarceTier("epic"))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MLECON_MODE", "worker")
	t.Setenv("MLECON_TRADE_WINDOW", "2m")
	t.Setenv("MLECON_SUPPLY_EPOCH", "season9")
	t.Setenv("MLECON_SERVER_PORT", "9090")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, "worker", cfg.Mode)
	require.Equal(t, 2*time.Minute, cfg.Trade.Window.Duration)
	require.Equal(t, "season9", cfg.Supply.Epoch)
	require.Equal(t, 9090, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Defaults()
		cfg.Processor.BaseURL = "https://api.processor.test/v1"
		cfg.Processor.APISecret = "sk_test"
		return cfg
	}

	t.Run("ok", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
	})

	t.Run("bad mode", func(t *testing.T) {
		cfg := valid()
		cfg.Mode = "hybrid"
		require.Error(t, cfg.Validate())
	})

	t.Run("missing epoch", func(t *testing.T) {
		cfg := valid()
		cfg.Supply.Epoch = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("non-positive cap", func(t *testing.T) {
		cfg := valid()
		cfg.Supply.TierCaps["common"] = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("scarce tier without cap", func(t *testing.T) {
		cfg := valid()
		cfg.Supply.ScarceTiers = []string{"mythic"}
		require.Error(t, cfg.Validate())
	})

	t.Run("zero trade window", func(t *testing.T) {
		cfg := valid()
		cfg.Trade.Window = duration{}
		require.Error(t, cfg.Validate())
	})

	t.Run("missing processor secret", func(t *testing.T) {
		cfg := valid()
		cfg.Processor.APISecret = ""
		cfg.Processor.EncryptedSecretPath = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("archive needs bucket", func(t *testing.T) {
		cfg := valid()
		cfg.Archive.Enabled = true
		cfg.S3.Bucket = ""
		require.Error(t, cfg.Validate())
	})
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("MLECON_PROCESSOR_BASE_URL", "https://api.processor.test/v1")
	t.Setenv("MLECON_PROCESSOR_API_SECRET", "sk_test")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, "full", cfg.Mode)
}
