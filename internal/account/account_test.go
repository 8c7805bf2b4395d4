package account

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlnnetwork/xln/internal/types"
)

func entityId(b byte) types.EntityId {
	var id types.EntityId
	id[31] = b
	return id
}

// scenario A from spec.md §8: direct payment within capacity.
func TestApplyPayment_WithinCapacity(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	ts := a.token(1)
	ts.Collateral = big.NewInt(1000)

	require.NoError(t, a.ApplyPayment(1, big.NewInt(300), LeftToRight))

	require.Equal(t, big.NewInt(300), a.Tokens[1].Delta)

	out, err := a.OutCapacity(1, left)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(700), out)

	viewRight, err := a.DeriveView(1, SideRight)
	require.NoError(t, err)
	// What Left can still receive from Right: leftCreditLimit + delta.
	require.Equal(t, big.NewInt(300), viewRight.OutCapacity)
}

// scenario B: payment exceeding capacity fails, state unchanged.
func TestApplyPayment_ExceedsCapacity(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	a.token(1).Collateral = big.NewInt(1000)

	err := a.ApplyPayment(1, big.NewInt(1500), LeftToRight)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Equal(t, int64(0), a.Tokens[1].Delta.Int64())
	require.Equal(t, uint64(0), a.Height)
}

func TestApplyPayment_RoundTripRestoresDelta(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	a.token(1).Collateral = big.NewInt(1000)

	require.NoError(t, a.ApplyPayment(1, big.NewInt(400), LeftToRight))
	require.NoError(t, a.ApplyPayment(1, big.NewInt(400), RightToLeft))

	require.Equal(t, int64(0), a.Tokens[1].Delta.Int64())
	require.Equal(t, uint64(2), a.Height) // heights still advance
}

func TestDeriveView_MirrorsAcrossPerspectives(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	ts := a.token(1)
	ts.Collateral = big.NewInt(1000)
	ts.LeftCreditLimit = big.NewInt(200)
	ts.RightCreditLimit = big.NewInt(300)
	require.NoError(t, a.ApplyPayment(1, big.NewInt(250), LeftToRight))

	vl, err := a.DeriveView(1, SideLeft)
	require.NoError(t, err)
	vr, err := a.DeriveView(1, SideRight)
	require.NoError(t, err)

	require.Equal(t, vl.OutCapacity, vr.InCapacity)
	require.Equal(t, vl.InCapacity, vr.OutCapacity)
}

func TestApplyCreditLimitUpdate_BelowUtilizationFails(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	ts := a.token(1)
	ts.Collateral = big.NewInt(100)
	ts.RightCreditLimit = big.NewInt(500)
	require.NoError(t, a.ApplyPayment(1, big.NewInt(400), LeftToRight)) // delta=400, within 100+500

	err := a.ApplyCreditLimitUpdate(1, SideRight, big.NewInt(100)) // ceiling would become 200 < 400
	require.ErrorIs(t, err, ErrCreditLimitBelowUtilization)
}

func TestApplySettlement_RejectsRegression(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a := New(left, right)
	require.NoError(t, a.ApplySettlement(1, big.NewInt(50), big.NewInt(500), 10))
	err := a.ApplySettlement(1, big.NewInt(60), big.NewInt(600), 10)
	require.ErrorIs(t, err, ErrSettlementRegressed)
}

func TestHash_OrderIndependent(t *testing.T) {
	left, right := entityId(1), entityId(2)
	a1 := New(left, right)
	a1.token(1).Collateral = big.NewInt(10)
	a1.token(2).Collateral = big.NewInt(20)

	a2 := New(left, right)
	a2.token(2).Collateral = big.NewInt(20)
	a2.token(1).Collateral = big.NewInt(10)

	require.Equal(t, a1.Hash(), a2.Hash())
}
