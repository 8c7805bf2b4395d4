package server

import (
	"github.com/xlnnetwork/xln/internal/account"
	"github.com/xlnnetwork/xln/internal/canon"
	"github.com/xlnnetwork/xln/internal/routing"
	"github.com/xlnnetwork/xln/internal/types"
)

// expireReservations scans every account replica this server holds and
// releases reservations whose ExpiresAtTick has passed (spec.md §5
// cancellation & timeouts, Scenario E). routing.Execute performs its
// reserve+commit synchronously within one call, so under the current
// architecture this scan mainly guards reservations created directly
// against internal/account (bypassing Execute) or left stranded by a
// crashed multi-tick protocol extension; it is still run every tick so
// ReserveTimeoutTicks/ErrReserveTimeout are a live, reachable path
// rather than dead configuration.
func (s *Server) expireReservations(tick uint64) []types.Event {
	seen := make(map[*account.Account]bool)
	var accounts []*account.Account
	for _, id := range canon.SortedBytesKeys(s.entities) {
		e := s.entities[id]
		for _, cp := range canon.SortedBytesKeys(e.Accounts) {
			acc := e.Accounts[cp]
			if seen[acc] {
				continue
			}
			seen[acc] = true
			accounts = append(accounts, acc)
		}
	}

	expired := routing.ExpireTimedOutReservations(accounts, tick)
	if len(expired) == 0 {
		return nil
	}

	var events []types.Event
	for _, acc := range accounts {
		ids, ok := expired[acc]
		if !ok {
			continue
		}
		for range ids {
			events = append(events, types.Event{
				Kind: types.EventPaymentFailed, EntityId: acc.Left, Counterparty: acc.Right,
				Reason: routing.ErrReserveTimeout.Error(), Tick: tick,
			})
		}
	}
	return events
}
