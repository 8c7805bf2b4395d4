package server

import (
	"fmt"

	"github.com/xlnnetwork/xln/internal/config"
	"github.com/xlnnetwork/xln/internal/entity"
)

// ConfigFromFile resolves a loaded config.Config's string-enum policy
// fields into the concrete entity.QuorumRule/entity.ProposerRule values
// Config needs. This lives in the server package rather than
// internal/config, which (like the teacher's own config package)
// stays free of domain-type imports.
func ConfigFromFile(c *config.Config) (Config, error) {
	quorum, err := quorumRuleFromName(c.QuorumRule, c.QuorumN)
	if err != nil {
		return Config{}, err
	}
	proposer, err := proposerRuleFromName(c.ProposerRule)
	if err != nil {
		return Config{}, err
	}
	return Config{
		QuorumRule:          quorum,
		ProposerRule:        proposer,
		BoundedTicks:        c.BoundedTicks,
		MaxHops:             c.MaxHops,
		ReserveTimeoutTicks: c.ReserveTimeoutTicks,
		IngressQueueBound:   c.IngressQueueBound,
		DedupWindowTicks:    c.DedupWindowTicks,
		RouteCost:           DefaultConfig().RouteCost,
	}, nil
}

func quorumRuleFromName(name string, n int) (entity.QuorumRule, error) {
	switch name {
	case config.QuorumRuleMajority:
		return entity.MajorityRule{}, nil
	case config.QuorumRuleAll:
		return entity.AllRule{}, nil
	case config.QuorumRuleThreshold:
		return entity.ThresholdRule{N: n}, nil
	default:
		return nil, fmt.Errorf("server: unknown quorum_rule %q", name)
	}
}

func proposerRuleFromName(name string) (entity.ProposerRule, error) {
	switch name {
	case config.ProposerRuleRoundRobin:
		return entity.RoundRobinProposer{}, nil
	case config.ProposerRuleFixed:
		// FixedProposer needs a signer; callers who want a fixed
		// proposer other than the zero signer should build Config by
		// hand rather than through ConfigFromFile.
		return entity.FixedProposer{}, nil
	default:
		return nil, fmt.Errorf("server: unknown proposer_rule %q", name)
	}
}
