package account

import (
	"errors"
	"math/big"
	"sort"

	"github.com/xlnnetwork/xln/internal/types"
)

// ErrReservationExists and friends surface reservation-specific misuse;
// internal/routing maps these onto the §4.4 failure taxonomy.
var (
	ErrReservationExists   = errors.New("reservation already exists for payment id")
	ErrReservationNotFound = errors.New("reservation not found")
)

// Reserve records a pending capacity hold for amount on tokenId in
// direction dir, without moving the delta. Reserve fails if the
// available outCapacity (already net of other outstanding reserves) is
// insufficient (spec.md §4.4 phase 1).
func (a *Account) Reserve(paymentID [16]byte, tokenId types.TokenId, amount *big.Int, dir Direction, expiresAtTick uint64) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if _, exists := a.Reserves[paymentID]; exists {
		return ErrReservationExists
	}

	var from types.EntityId
	if dir == LeftToRight {
		from = a.Left
	} else {
		from = a.Right
	}
	avail, err := a.OutCapacity(tokenId, from)
	if err != nil {
		return err
	}
	if amount.Cmp(avail) > 0 {
		return ErrCapacityExceeded
	}

	a.Reserves[paymentID] = &Reservation{
		PaymentID:     paymentID,
		TokenId:       tokenId,
		Amount:        new(big.Int).Set(amount),
		Direction:     dir,
		ExpiresAtTick: expiresAtTick,
	}
	return nil
}

// Release cancels a pending reservation, restoring the capacity it had
// consumed, without touching delta.
func (a *Account) Release(paymentID [16]byte) error {
	r, ok := a.Reserves[paymentID]
	if !ok {
		return ErrReservationNotFound
	}
	_ = r
	delete(a.Reserves, paymentID)
	return nil
}

// Commit applies the reserved payment's delta change and clears the
// pending marker (spec.md §4.4 phase 2). Commit bumps the account
// height exactly once, the same as any other applied transaction.
func (a *Account) Commit(paymentID [16]byte) error {
	r, ok := a.Reserves[paymentID]
	if !ok {
		return ErrReservationNotFound
	}
	ts := a.token(r.TokenId)
	collateral := a.collateralOf(ts)

	next := new(big.Int).Set(ts.Delta)
	switch r.Direction {
	case LeftToRight:
		next.Add(next, r.Amount)
	case RightToLeft:
		next.Sub(next, r.Amount)
	}
	if err := checkInvariant(&TokenState{Delta: next, Collateral: big.NewInt(0), LeftCreditLimit: ts.LeftCreditLimit, RightCreditLimit: ts.RightCreditLimit}, collateral); err != nil {
		// Invariant was already checked at Reserve time against
		// available capacity; a failure here means concurrent state
		// moved underneath the reservation (e.g. a credit limit was
		// lowered). Release instead of silently applying.
		delete(a.Reserves, paymentID)
		return err
	}

	ts.Delta = next
	a.Height++
	delete(a.Reserves, paymentID)
	return nil
}

// ExpireReservations releases every reservation whose ExpiresAtTick is
// at or before currentTick, in ascending payment-id order for
// determinism (spec.md §5 "reducer on each tick scans outstanding
// reserves and releases expired ones in canonical order"). Returns the
// released payment ids in the order released.
func (a *Account) ExpireReservations(currentTick uint64) [][16]byte {
	var expired [][16]byte
	for id, r := range a.Reserves {
		if r.ExpiresAtTick <= currentTick {
			expired = append(expired, id)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return bytesLess(expired[i], expired[j]) })
	for _, id := range expired {
		delete(a.Reserves, id)
	}
	return expired
}

func bytesLess(a, b [16]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
