// Package routing implements the multi-hop payment protocol:
// force-bounded BFS pathfinding over the bilateral account graph and
// an atomic two-phase reserve/commit forward (spec.md §4.4).
//
// Grounded on LeJamon-goXRPLd's apply_paychannel.go three-step
// PaymentChannelCreate/Fund/Claim lifecycle (a channel reserves funds,
// then later claims/settles them) and on the reservation/"limbo"
// vocabulary of other_examples' lnwallet ChannelReservation workflow,
// where resources consumed by a contribution are locked until the
// reservation completes or is cancelled.
package routing

import (
	"errors"
	"fmt"
)

var (
	ErrNoRoute               = errors.New("no route")
	ErrReserveTimeout        = errors.New("reserve timeout")
	ErrCounterpartyUnavailable = errors.New("counterparty unavailable")
	ErrTokenMismatch         = errors.New("token mismatch")
)

// InsufficientCapacityError carries the failing hop index (spec.md §4.4
// "InsufficientCapacity(hopIndex)").
type InsufficientCapacityError struct {
	HopIndex int
	Cause    error
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity at hop %d: %v", e.HopIndex, e.Cause)
}

func (e *InsufficientCapacityError) Unwrap() error { return e.Cause }
