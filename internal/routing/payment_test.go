package routing

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlnnetwork/xln/internal/account"
	"github.com/xlnnetwork/xln/internal/types"
)

func eid(b byte) types.EntityId {
	var id types.EntityId
	id[31] = b
	return id
}

// fakeLookup is a minimal routing.AccountLookup over an explicit graph,
// standing in for the server's accountLookup (spec.md §3 Ownership: the
// router only ever borrows read access, never owns the replicas).
type fakeLookup struct {
	accounts  map[[2]types.EntityId]*account.Account
	neighbors map[types.EntityId][]types.EntityId
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		accounts:  make(map[[2]types.EntityId]*account.Account),
		neighbors: make(map[types.EntityId][]types.EntityId),
	}
}

func (l *fakeLookup) link(a, b types.EntityId, collateral int64) *account.Account {
	acc := account.New(a, b)
	key := [2]types.EntityId{acc.Left, acc.Right}
	l.accounts[key] = acc
	l.neighbors[a] = append(l.neighbors[a], b)
	l.neighbors[b] = append(l.neighbors[b], a)
	_ = acc.ApplySettlement(1, big.NewInt(0), big.NewInt(collateral), 1)
	return acc
}

func (l *fakeLookup) Account(a, b types.EntityId) (*account.Account, bool) {
	if acc, ok := l.accounts[[2]types.EntityId{a, b}]; ok {
		return acc, true
	}
	if acc, ok := l.accounts[[2]types.EntityId{b, a}]; ok {
		return acc, true
	}
	return nil, false
}

func (l *fakeLookup) Neighbors(of types.EntityId) []types.EntityId {
	return l.neighbors[of]
}

// Scenario C: a three-hop route (sender -> mid1 -> mid2 -> receiver)
// with enough capacity on every hop completes, moving delta forward on
// every hop in the payment's direction.
func TestExecute_ScenarioC_ThreeHopRoute(t *testing.T) {
	sender, mid1, mid2, receiver := eid(1), eid(2), eid(3), eid(4)
	lookup := newFakeLookup()
	lookup.link(sender, mid1, 1000)
	lookup.link(mid1, mid2, 1000)
	lookup.link(mid2, receiver, 1000)

	route, err := FindRoute(lookup, HopCountCost{}, sender, receiver, 1, big.NewInt(300), 3)
	require.NoError(t, err)
	require.Equal(t, []types.EntityId{sender, mid1, mid2, receiver}, route)

	var id PaymentID
	id[0] = 1
	result := Execute(lookup, id, route, 1, big.NewInt(300), 0, 50)
	require.Equal(t, OutcomeCompleted, result.Outcome)

	for i := 0; i < len(route)-1; i++ {
		acc, ok := lookup.Account(route[i], route[i+1])
		require.True(t, ok)
		require.Empty(t, acc.Reserves, "hop %d should have no leftover reservation", i)
		out, err := acc.OutCapacity(1, route[i])
		require.NoError(t, err)
		require.Equal(t, big.NewInt(700), out, "hop %d capacity should reflect the committed payment", i)
	}
}

// Scenario D: the last hop lacks capacity, so every prior reserve must
// be released in reverse order and no delta anywhere moves.
func TestExecute_ScenarioD_FailedHopRollsBackEarlierReserves(t *testing.T) {
	sender, mid, receiver := eid(1), eid(2), eid(3)
	lookup := newFakeLookup()
	lookup.link(sender, mid, 1000)
	lookup.link(mid, receiver, 100) // too little for the payment below

	route := []types.EntityId{sender, mid, receiver}
	var id PaymentID
	id[0] = 2
	result := Execute(lookup, id, route, 1, big.NewInt(300), 0, 50)

	require.Equal(t, OutcomeFailed, result.Outcome)
	require.Equal(t, 1, result.FailHop)

	firstHop, ok := lookup.Account(sender, mid)
	require.True(t, ok)
	require.Empty(t, firstHop.Reserves, "the rolled-back hop must have its reserve released")
	require.Equal(t, int64(0), firstHop.Tokens[1].Delta.Int64())

	secondHop, ok := lookup.Account(mid, receiver)
	require.True(t, ok)
	require.Empty(t, secondHop.Reserves)
	require.Equal(t, int64(0), secondHop.Tokens[1].Delta.Int64())
}

// Scenario E: a reservation created directly against the account layer
// (bypassing Execute's synchronous reserve+commit, the only way a
// reservation can actually outlive one tick under the current
// architecture) is released once its ExpiresAtTick has passed, and the
// capacity it held becomes available again.
func TestExpireTimedOutReservations_ReleasesPastDeadline(t *testing.T) {
	a, b := eid(1), eid(2)
	acc := account.New(a, b)
	require.NoError(t, acc.ApplySettlement(1, big.NewInt(0), big.NewInt(1000), 1))

	var id PaymentID
	id[0] = 3
	require.NoError(t, acc.Reserve([16]byte(id), 1, big.NewInt(400), account.LeftToRight, 10))

	out, err := acc.OutCapacity(1, a)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(600), out)

	expired := ExpireTimedOutReservations([]*account.Account{acc}, 5)
	require.Empty(t, expired, "deadline has not passed yet")

	expired = ExpireTimedOutReservations([]*account.Account{acc}, 10)
	require.Len(t, expired[acc], 1)
	require.Equal(t, [16]byte(id), expired[acc][0])

	out, err = acc.OutCapacity(1, a)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1000), out, "expiry must restore the reserved capacity")
}
