package routing

import (
	"math/big"

	"github.com/xlnnetwork/xln/internal/account"
	"github.com/xlnnetwork/xln/internal/types"
)

// PaymentID uniquely identifies one multi-hop payment attempt across
// every hop on its route.
type PaymentID [16]byte

// Outcome describes the terminal state of an Execute call, mirroring
// the egress events of spec.md §6 (PaymentCompleted / PaymentFailed).
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeFailed
)

// Result is returned by Execute.
type Result struct {
	Outcome  Outcome
	Route    []types.EntityId
	FailHop  int // -1 unless Outcome == OutcomeFailed with a hop-specific cause
	Err      error
}

// Execute performs the two-phase hop protocol over route for amount of
// tokenId: reserve every hop sender-to-receiver, and if every reserve
// succeeds, commit every hop receiver-to-sender (spec.md §4.4). On any
// reserve failure, all prior reserves on this payment are released in
// reverse order and the payment fails atomically — no partial state
// change is ever observable.
func Execute(lookup AccountLookup, id PaymentID, route []types.EntityId, tokenId types.TokenId, amount *big.Int, currentTick, reserveTimeoutTicks uint64) Result {
	if len(route) < 2 {
		return Result{Outcome: OutcomeFailed, Route: route, FailHop: -1, Err: ErrNoRoute}
	}

	expiresAt := currentTick + reserveTimeoutTicks
	reserved := 0 // number of hops (0-indexed) successfully reserved

	for i := 0; i < len(route)-1; i++ {
		from, to := route[i], route[i+1]
		acc, ok := lookup.Account(from, to)
		if !ok {
			releaseReserved(lookup, PaymentID(id), route, reserved)
			return Result{Outcome: OutcomeFailed, Route: route, FailHop: i, Err: ErrCounterpartyUnavailable}
		}
		if !acc.HasToken(tokenId) {
			releaseReserved(lookup, PaymentID(id), route, reserved)
			return Result{Outcome: OutcomeFailed, Route: route, FailHop: i, Err: ErrTokenMismatch}
		}

		dir := directionOf(acc, from)
		if err := acc.Reserve([16]byte(id), tokenId, amount, dir, expiresAt); err != nil {
			releaseReserved(lookup, PaymentID(id), route, reserved)
			return Result{
				Outcome: OutcomeFailed,
				Route:   route,
				FailHop: i,
				Err:     &InsufficientCapacityError{HopIndex: i, Cause: err},
			}
		}
		reserved++
	}

	// Commit phase: receiver acknowledged (the caller invoking Execute
	// synchronously after a successful reserve phase stands in for
	// that acknowledgement); commit from receiver back to sender.
	for i := len(route) - 2; i >= 0; i-- {
		from, to := route[i], route[i+1]
		acc, _ := lookup.Account(from, to)
		if err := acc.Commit([16]byte(id)); err != nil {
			// A commit failure this late means state moved out from
			// under a held reservation (e.g. jurisdictional settlement
			// regressed collateral). Release whatever is left and fail.
			releaseReserved(lookup, PaymentID(id), route, i+1)
			return Result{Outcome: OutcomeFailed, Route: route, FailHop: i, Err: err}
		}
	}

	return Result{Outcome: OutcomeCompleted, Route: route, FailHop: -1}
}

func directionOf(acc *account.Account, from types.EntityId) account.Direction {
	if from == acc.Left {
		return account.LeftToRight
	}
	return account.RightToLeft
}

// releaseReserved releases the first n reserved hops (0-indexed) in
// reverse order, per spec.md §4.4 "on failure all prior reserves on
// this payment are released" / §5 "released in reverse order".
func releaseReserved(lookup AccountLookup, id PaymentID, route []types.EntityId, n int) {
	for i := n - 1; i >= 0; i-- {
		from, to := route[i], route[i+1]
		if acc, ok := lookup.Account(from, to); ok {
			_ = acc.Release([16]byte(id))
		}
	}
}

// ExpireTimedOutReservations scans every account reachable from lookup
// and releases reservations whose ExpiresAtTick has passed, returning
// the payment ids released per account pair (spec.md §5 cancellation
// & timeouts: "the reducer on each tick scans outstanding reserves").
// Callers are expected to pass the complete, deterministic set of
// accounts to scan (e.g. ascending entity-id, then ascending
// counterparty-id) so the scan order — and therefore event emission
// order — is reproducible under replay.
func ExpireTimedOutReservations(accounts []*account.Account, currentTick uint64) map[*account.Account][][16]byte {
	out := make(map[*account.Account][][16]byte)
	for _, acc := range accounts {
		expired := acc.ExpireReservations(currentTick)
		if len(expired) > 0 {
			out[acc] = expired
		}
	}
	return out
}
