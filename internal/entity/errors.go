// Package entity replicates one entity's state machine across its
// authorized signers: it holds a mempool of pending transactions, runs
// a propose/sign/commit consensus state machine, and produces frames
// that apply deterministically to the entity's account replicas.
//
// Grounded on LeJamon-goXRPLd's internal/core/consensus package (the
// Mode/Phase/Proposal/Validation vocabulary and the Engine/Adaptor
// interface split) generalized from rippled's network-wide open/
// establish/accepted ledger cycle to a per-entity signer-set quorum,
// and on internal/core/txq (submission queue, admission preflight)
// generalized from XRPL's fee-priority queue to XLN's plain
// submission-order mempool.
package entity

import "errors"

var (
	ErrQuorumNotReached        = errors.New("entity: quorum not reached")
	ErrPostStateHashMismatch   = errors.New("entity: post-state hash mismatch")
	ErrProposerMismatch        = errors.New("entity: proposer mismatch")
	ErrTimeoutAwaitingSignatures = errors.New("entity: timeout awaiting signatures")
	ErrUnknownSigner           = errors.New("entity: unknown signer")
	ErrNoCandidateFrame        = errors.New("entity: no candidate frame")
	ErrMalformedTx             = errors.New("entity: malformed transaction")
)
