package entity

import (
	"github.com/xlnnetwork/xln/internal/canon"
	"github.com/xlnnetwork/xln/internal/types"
)

// TxOutcome records whether a framed transaction applied successfully.
// Both outcomes are legal and recorded; a failing transaction does not
// abort the frame (spec.md §7 propagation policy).
type TxOutcome struct {
	Applied bool
	Reason  string // taxonomy entry name, set iff !Applied
}

// FramedTx is one transaction as it appears inside a committed frame,
// together with its outcome.
type FramedTx struct {
	Signer  types.SignerId
	Tx      types.EntityTx
	Outcome TxOutcome
}

// Frame is a committed batch of an entity's transactions (spec.md §3).
type Frame struct {
	Height        uint64
	ParentHash    canon.Hash
	Proposer      types.SignerId
	Txs           []FramedTx
	PostStateHash canon.Hash
	Tick          uint64

	// Signatures accumulates signer acknowledgements while the frame
	// is in AwaitingSignatures; cleared to the final attesting set once
	// committed.
	Signatures map[types.SignerId]bool
}

func newCandidateFrame(height uint64, parentHash canon.Hash, proposer types.SignerId, tick uint64) *Frame {
	return &Frame{
		Height:     height,
		ParentHash: parentHash,
		Proposer:   proposer,
		Tick:       tick,
		Signatures: make(map[types.SignerId]bool),
	}
}

// Hash computes a canonical hash of the frame's committed identity:
// height, parent, proposer, and the ordered transaction outcomes
// (spec.md §4.1 algorithmic notes: determinism via canonical ordering;
// here the transaction list is already canonically ordered because it
// is submission order, not a map).
func (f *Frame) Hash() canon.Hash {
	h := canon.NewHasher()
	h.WriteUint64(f.Height).WriteHash(f.ParentHash).WriteBytes(f.Proposer[:])
	for _, ft := range f.Txs {
		h.WriteBytes(ft.Signer[:])
		h.WriteUint32(uint32(ft.Tx.Kind()))
		if ft.Outcome.Applied {
			h.WriteBytes([]byte{1})
		} else {
			h.WriteBytes([]byte{0}).WriteString(ft.Outcome.Reason)
		}
	}
	return h.Sum()
}
