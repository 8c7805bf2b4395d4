package config

import "github.com/spf13/viper"

// setDefaults installs the documented defaults of spec.md §6, mirroring
// the teacher's per-key v.SetDefault(...) style (internal/config/defaults.go)
// so the defaults live next to the keys they govern rather than in a
// struct literal.
func setDefaults(v *viper.Viper) {
	// Consensus policy.
	v.SetDefault("quorum_rule", QuorumRuleMajority)
	v.SetDefault("quorum_n", 0)
	v.SetDefault("proposer_rule", ProposerRuleRoundRobin)
	v.SetDefault("bounded_ticks", 10)

	// Routing.
	v.SetDefault("max_hops", 3)
	v.SetDefault("reserve_timeout_ticks", 10)

	// Ledger display.
	v.SetDefault("token_decimals", map[string]int{})

	// Ingress.
	v.SetDefault("ingress_queue_bound", 4096)
	v.SetDefault("dedup_window_ticks", 64)

	// Replay/persistence.
	v.SetDefault("snapshot_interval_frames", uint64(100))
	v.SetDefault("data_dir", "./xln-data")
	v.SetDefault("replay_cache_size", 256)

	// Ambient server surface.
	v.SetDefault("grpc_listen", "127.0.0.1:50051")
	v.SetDefault("websocket_listen", "127.0.0.1:8081")
}
