package entity

import "github.com/xlnnetwork/xln/internal/types"

// QuorumRule is a pluggable predicate over the signer set deciding
// whether a collected signature set is sufficient to commit a frame
// (spec.md §4.2 "configurable threshold ... the spec treats this as a
// pluggable predicate").
type QuorumRule interface {
	Reached(signers []types.SignerId, signed map[types.SignerId]bool) bool
}

// MajorityRule requires signatures from strictly more than half the
// signer set.
type MajorityRule struct{}

func (MajorityRule) Reached(signers []types.SignerId, signed map[types.SignerId]bool) bool {
	return len(signed)*2 > len(signers)
}

// ThresholdRule requires at least N collected signatures (an "n_of_m"
// quorum). The size of the signer set is not consulted, so a
// signer-set change via SignerSetUpdateTx leaves N unchanged.
type ThresholdRule struct {
	N int
}

func (t ThresholdRule) Reached(_ []types.SignerId, signed map[types.SignerId]bool) bool {
	return len(signed) >= t.N
}

// AllRule requires every signer to sign.
type AllRule struct{}

func (AllRule) Reached(signers []types.SignerId, signed map[types.SignerId]bool) bool {
	return len(signed) == len(signers)
}
