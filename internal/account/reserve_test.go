package account

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReserve_ThenCommit_MovesDelta(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	a.token(1).Collateral = big.NewInt(1000)

	var id [16]byte
	id[0] = 1
	require.NoError(t, a.Reserve(id, 1, big.NewInt(300), LeftToRight, 10))

	// Reserved capacity is removed from OutCapacity before commit.
	out, err := a.OutCapacity(1, left)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(700), out)
	require.Equal(t, int64(0), a.Tokens[1].Delta.Int64()) // not moved yet

	require.NoError(t, a.Commit(id))
	require.Equal(t, big.NewInt(300), a.Tokens[1].Delta)
	require.Empty(t, a.Reserves)

	// Capacity is consumed for real now, no longer double-counted.
	out, err = a.OutCapacity(1, left)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(700), out)
}

func TestReserve_InsufficientCapacity(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	a.token(1).Collateral = big.NewInt(100)

	var id [16]byte
	id[0] = 1
	err := a.Reserve(id, 1, big.NewInt(500), LeftToRight, 10)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Empty(t, a.Reserves)
}

func TestReserve_DuplicatePaymentIDRejected(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	a.token(1).Collateral = big.NewInt(1000)

	var id [16]byte
	id[0] = 1
	require.NoError(t, a.Reserve(id, 1, big.NewInt(100), LeftToRight, 10))
	err := a.Reserve(id, 1, big.NewInt(100), LeftToRight, 10)
	require.ErrorIs(t, err, ErrReservationExists)
}

// Scenario D groundwork: a reserved hop rolled back via Release must
// restore the capacity it had consumed, with no delta change at all.
func TestRelease_RestoresCapacityWithoutMovingDelta(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	a.token(1).Collateral = big.NewInt(1000)

	var id [16]byte
	id[0] = 1
	require.NoError(t, a.Reserve(id, 1, big.NewInt(400), LeftToRight, 10))
	out, _ := a.OutCapacity(1, left)
	require.Equal(t, big.NewInt(600), out)

	require.NoError(t, a.Release(id))
	require.Empty(t, a.Reserves)
	require.Equal(t, int64(0), a.Tokens[1].Delta.Int64())

	out, _ = a.OutCapacity(1, left)
	require.Equal(t, big.NewInt(1000), out)
}

func TestRelease_UnknownPaymentID(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)

	var id [16]byte
	id[0] = 9
	require.ErrorIs(t, a.Release(id), ErrReservationNotFound)
}

func TestCommit_UnknownPaymentID(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)

	var id [16]byte
	id[0] = 9
	require.ErrorIs(t, a.Commit(id), ErrReservationNotFound)
}

// Scenario E: expired reservations are released in ascending
// payment-id order, and only the ones whose deadline has passed.
func TestExpireReservations_ReleasesOnlyExpired_InAscendingOrder(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	a.token(1).Collateral = big.NewInt(1000)

	idLate, idEarlyA, idEarlyB := [16]byte{0, 9}, [16]byte{0, 1}, [16]byte{0, 2}
	require.NoError(t, a.Reserve(idLate, 1, big.NewInt(100), LeftToRight, 100))
	require.NoError(t, a.Reserve(idEarlyB, 1, big.NewInt(100), LeftToRight, 5))
	require.NoError(t, a.Reserve(idEarlyA, 1, big.NewInt(100), LeftToRight, 5))

	released := a.ExpireReservations(5)
	require.Equal(t, [][16]byte{idEarlyA, idEarlyB}, released)

	// The non-expired reservation survives; its capacity stays held.
	require.Len(t, a.Reserves, 1)
	_, stillHeld := a.Reserves[idLate]
	require.True(t, stillHeld)

	out, err := a.OutCapacity(1, left)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(900), out) // 1000 - 100 held by idLate
}
