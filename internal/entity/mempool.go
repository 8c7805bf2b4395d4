package entity

import (
	"github.com/xlnnetwork/xln/internal/types"
)

// pendingTx is one admitted, not-yet-framed transaction together with
// the signer that submitted it (spec.md §4.2 transaction admission).
type pendingTx struct {
	signer types.SignerId
	tx     types.EntityTx
}

// Mempool holds transactions admitted for a single entity, in
// submission order. Unlike the teacher's fee-priority txq, ordering
// here is plain FIFO: spec.md §4.2 requires only "transactions are
// applied in submission order as seen by the proposer," there is no
// fee market.
type Mempool struct {
	pending []pendingTx
}

func newMempool() *Mempool {
	return &Mempool{}
}

// Add admits tx into the queue. Syntactic/preflight validation is the
// caller's responsibility (Entity.Submit runs it before calling Add).
func (m *Mempool) Add(signer types.SignerId, tx types.EntityTx) {
	m.pending = append(m.pending, pendingTx{signer: signer, tx: tx})
}

// Len reports the number of queued transactions.
func (m *Mempool) Len() int { return len(m.pending) }

// Drain removes and returns every queued transaction in submission
// order, used when a proposer builds a candidate frame.
func (m *Mempool) Drain() []pendingTx {
	out := m.pending
	m.pending = nil
	return out
}

// Restore re-admits txs at the front of the queue, preserving their
// original relative order. Used when a frame aborts (spec.md §4.2:
// "AwaitingSignatures -> Aborted on timeout... mempool is restored").
func (m *Mempool) Restore(txs []pendingTx) {
	m.pending = append(append([]pendingTx{}, txs...), m.pending...)
}
