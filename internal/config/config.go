// Package config loads the server's runtime configuration: quorum and
// proposer policy, routing/reserve bounds, ingress backpressure, and
// the ambient listen/storage settings a complete deployment needs
// (spec.md §6 Configuration).
//
// Grounded on LeJamon-goXRPLd's internal/config package: same
// viper-backed, toml-tagged struct with a defaults -> file -> env ->
// validate load order (internal/config/loader.go), trimmed from
// rippled's much larger option surface (ports, node_db, SSL, voting,
// ...) down to XLN's option set.
package config

import "fmt"

// Config is the complete XLN server configuration.
type Config struct {
	// Consensus policy (spec.md §4.2).
	QuorumRule   string `toml:"quorum_rule" mapstructure:"quorum_rule"`     // "majority" | "all" | "threshold"
	QuorumN      int    `toml:"quorum_n" mapstructure:"quorum_n"`           // only consulted when QuorumRule == "threshold"
	ProposerRule string `toml:"proposer_rule" mapstructure:"proposer_rule"` // "roundRobin" | "fixed"
	BoundedTicks uint64 `toml:"bounded_ticks" mapstructure:"bounded_ticks"`

	// Routing (spec.md §4.4).
	MaxHops             int    `toml:"max_hops" mapstructure:"max_hops"`
	ReserveTimeoutTicks uint64 `toml:"reserve_timeout_ticks" mapstructure:"reserve_timeout_ticks"`

	// Ledger display (spec.md §9: "display formatting is strictly an
	// observer's job" — tokenDecimals is observer-side metadata, never
	// consulted by the ledger algebra itself). Keyed by decimal token id
	// string since toml/env have no native uint32 map key.
	TokenDecimals map[string]int `toml:"token_decimals" mapstructure:"token_decimals"`

	// Ingress (spec.md §4.3 Backpressure).
	IngressQueueBound int    `toml:"ingress_queue_bound" mapstructure:"ingress_queue_bound"`
	DedupWindowTicks  uint64 `toml:"dedup_window_ticks" mapstructure:"dedup_window_ticks"`

	// Replay/persistence (spec.md §4.5, §6 Persistence layout).
	SnapshotIntervalFrames uint64 `toml:"snapshot_interval_frames" mapstructure:"snapshot_interval_frames"`
	DataDir                string `toml:"data_dir" mapstructure:"data_dir"`
	ReplayCacheSize        int    `toml:"replay_cache_size" mapstructure:"replay_cache_size"`

	// Ambient server surface (spec.md §6 Egress: gRPC + websocket).
	GRPCListen      string `toml:"grpc_listen" mapstructure:"grpc_listen"`
	WebsocketListen string `toml:"websocket_listen" mapstructure:"websocket_listen"`

	configPath string `toml:"-" mapstructure:"-"`
}

// ConfigPaths names the file(s) LoadConfig reads from.
type ConfigPaths struct {
	Main string
}

// DefaultConfigPaths returns the conventional on-disk location.
func DefaultConfigPaths() ConfigPaths {
	return ConfigPaths{Main: "xln.toml"}
}

// ConfigPathsFromDir resolves a config file relative to dir.
func ConfigPathsFromDir(dir string) ConfigPaths {
	return ConfigPaths{Main: dir + "/xln.toml"}
}

// GetConfigPath returns the file this Config was loaded from, if any.
func (c *Config) GetConfigPath() string { return c.configPath }

// QuorumRuleName/ProposerRuleName validate against the recognized
// string enums before the server package resolves them to concrete
// entity.QuorumRule/entity.ProposerRule values (internal/config has no
// import on internal/entity, keeping the dependency direction the
// teacher's own config package has: config knows no domain types).
const (
	QuorumRuleMajority  = "majority"
	QuorumRuleAll       = "all"
	QuorumRuleThreshold = "threshold"

	ProposerRuleRoundRobin = "roundRobin"
	ProposerRuleFixed      = "fixed"
)

func validQuorumRule(s string) bool {
	switch s {
	case QuorumRuleMajority, QuorumRuleAll, QuorumRuleThreshold:
		return true
	}
	return false
}

func validProposerRule(s string) bool {
	switch s {
	case ProposerRuleRoundRobin, ProposerRuleFixed:
		return true
	}
	return false
}

// Validate checks the loaded configuration for internally-consistent,
// sane values (spec.md §7 Error Handling Design: fail fast on
// misconfiguration rather than surface it as a runtime error later).
func Validate(c *Config) error {
	if !validQuorumRule(c.QuorumRule) {
		return fmt.Errorf("config: unknown quorum_rule %q", c.QuorumRule)
	}
	if c.QuorumRule == QuorumRuleThreshold && c.QuorumN <= 0 {
		return fmt.Errorf("config: quorum_n must be positive when quorum_rule is %q", QuorumRuleThreshold)
	}
	if !validProposerRule(c.ProposerRule) {
		return fmt.Errorf("config: unknown proposer_rule %q", c.ProposerRule)
	}
	if c.MaxHops <= 0 {
		return fmt.Errorf("config: max_hops must be positive, got %d", c.MaxHops)
	}
	if c.IngressQueueBound <= 0 {
		return fmt.Errorf("config: ingress_queue_bound must be positive, got %d", c.IngressQueueBound)
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	return nil
}
