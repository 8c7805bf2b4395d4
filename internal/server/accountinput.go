package server

import (
	"github.com/xlnnetwork/xln/internal/entity"
	"github.com/xlnnetwork/xln/internal/types"
)

// reconcileAccountInputs mirrors every AccountInputTx committed in frame
// onto the counterparty entity's own account replica. entity.go can only
// ever apply the tx to the sender's side of the pair (it doesn't hold a
// reference to other entities' state, spec.md §3 Ownership); this is the
// AccountInputTx analogue of applyRuntimeTx's dual-write for settlements.
// account.New's canonical Left/Right ordering means the identical
// AccountTx applies verbatim to either side's object.
func (s *Server) reconcileAccountInputs(sender *entity.Entity, frame *entity.Frame) []types.Event {
	var events []types.Event
	for _, ri := range entity.ReconcileAccountInputs(frame) {
		counterparty, ok := s.entities[ri.ToEntityId]
		if !ok {
			continue
		}
		acc := accountFor(counterparty, sender.Id)
		if err := entity.ApplyAccountTx(acc, ri.AccountTx); err != nil {
			events = append(events, types.Event{Kind: types.EventTransactionFailed, EntityId: ri.ToEntityId, Counterparty: sender.Id, Reason: err.Error()})
			continue
		}
		events = append(events, types.Event{Kind: types.EventTransactionApplied, EntityId: ri.ToEntityId, Counterparty: sender.Id})
	}
	return events
}
