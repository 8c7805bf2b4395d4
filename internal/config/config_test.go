package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := LoadDefaultConfig()
	require.NoError(t, err)
	require.Equal(t, QuorumRuleMajority, cfg.QuorumRule)
	require.Equal(t, ProposerRuleRoundRobin, cfg.ProposerRule)
	require.Equal(t, 3, cfg.MaxHops)
	require.Equal(t, 4096, cfg.IngressQueueBound)
	require.Equal(t, "./xln-data", cfg.DataDir)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xln.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
quorum_rule = "all"
max_hops = 5
data_dir = "/var/lib/xln"
`), 0o644))

	cfg, err := LoadConfig(ConfigPaths{Main: path})
	require.NoError(t, err)
	require.Equal(t, QuorumRuleAll, cfg.QuorumRule)
	require.Equal(t, 5, cfg.MaxHops)
	require.Equal(t, "/var/lib/xln", cfg.DataDir)
	// Untouched keys keep their defaults.
	require.Equal(t, ProposerRuleRoundRobin, cfg.ProposerRule)
	require.Equal(t, path, cfg.GetConfigPath())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xln.toml")
	require.NoError(t, os.WriteFile(path, []byte(`max_hops = 5`), 0o644))

	t.Setenv("XLN_MAX_HOPS", "7")

	cfg, err := LoadConfig(ConfigPaths{Main: path})
	require.NoError(t, err)
	require.Equal(t, 7, cfg.MaxHops)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(ConfigPaths{Main: "/does/not/exist.toml"})
	require.Error(t, err)
}

func TestValidate_RejectsUnknownQuorumRule(t *testing.T) {
	cfg, err := LoadDefaultConfig()
	require.NoError(t, err)
	cfg.QuorumRule = "bogus"
	require.Error(t, Validate(cfg))
}

func TestValidate_ThresholdRequiresQuorumN(t *testing.T) {
	cfg, err := LoadDefaultConfig()
	require.NoError(t, err)
	cfg.QuorumRule = QuorumRuleThreshold
	cfg.QuorumN = 0
	require.Error(t, Validate(cfg))
	cfg.QuorumN = 2
	require.NoError(t, Validate(cfg))
}
