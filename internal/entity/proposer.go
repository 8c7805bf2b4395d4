package entity

import "github.com/xlnnetwork/xln/internal/types"

// ProposerRule selects the signer responsible for proposing the frame
// at a given height. A deterministic function of (signer set, height),
// per spec.md §4.2 ("typically round-robin ... the spec only requires
// determinism").
type ProposerRule interface {
	ProposerFor(signers []types.SignerId, height uint64) types.SignerId
}

// RoundRobinProposer cycles through signers in their configured order,
// keyed by height so every replica computes the same proposer without
// coordination.
type RoundRobinProposer struct{}

func (RoundRobinProposer) ProposerFor(signers []types.SignerId, height uint64) types.SignerId {
	if len(signers) == 0 {
		return types.SignerId{}
	}
	return signers[height%uint64(len(signers))]
}

// FixedProposer always proposes from the same signer (single-proposer
// deployments, e.g. a single-signer entity).
type FixedProposer struct {
	Signer types.SignerId
}

func (f FixedProposer) ProposerFor(_ []types.SignerId, _ uint64) types.SignerId {
	return f.Signer
}
