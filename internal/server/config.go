package server

import (
	"github.com/xlnnetwork/xln/internal/entity"
	"github.com/xlnnetwork/xln/internal/routing"
)

// Config bundles the recognized configuration options of spec.md §6.
type Config struct {
	QuorumRule   entity.QuorumRule
	ProposerRule entity.ProposerRule
	BoundedTicks uint64 // ticks an entity may wait in AwaitingSignatures

	MaxHops             int // default 3
	ReserveTimeoutTicks uint64
	IngressQueueBound   int
	DedupWindowTicks    uint64

	RouteCost routing.RouteCost // default HopCountCost{}
}

// DefaultConfig returns spec.md §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		QuorumRule:          entity.MajorityRule{},
		ProposerRule:        entity.RoundRobinProposer{},
		BoundedTicks:        10,
		MaxHops:             3,
		ReserveTimeoutTicks: 10,
		IngressQueueBound:   4096,
		DedupWindowTicks:    64,
		RouteCost:           routing.HopCountCost{},
	}
}
