package entity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlnnetwork/xln/internal/types"
)

func signerId(b byte) types.SignerId {
	var id types.SignerId
	id[31] = b
	return id
}

func entityId(b byte) types.EntityId {
	var id types.EntityId
	id[31] = b
	return id
}

type allSign struct{}

func (allSign) Signatures(e *Entity, f *Frame) map[types.SignerId]bool {
	out := make(map[types.SignerId]bool, len(e.Signers))
	for _, s := range e.Signers {
		out[s] = true
	}
	return out
}

func newTestEntity() (*Entity, types.SignerId) {
	s1 := signerId(1)
	e := New(entityId(9), Config{
		Signers:      []types.SignerId{s1, signerId(2), signerId(3)},
		ProposerRule: RoundRobinProposer{},
		QuorumRule:   MajorityRule{},
		BoundedTicks: 5,
	})
	return e, s1
}

func TestAdvance_FullCycleCommitsFrame(t *testing.T) {
	e, s1 := newTestEntity()
	other := entityId(10)
	require.NoError(t, e.accountWith(other).ApplySettlement(1, big.NewInt(0), big.NewInt(1000), 1))

	require.NoError(t, e.Submit(s1, types.AccountInputTx{
		FromEntityId: e.Id,
		ToEntityId:   other,
		AccountTx:    types.PaymentAccountTx{TokenId: 1, Amount: big.NewInt(50), Direction: 0},
	}))

	require.Equal(t, PhaseIdle, e.Phase)

	_, err := e.Advance(1, allSign{})
	require.NoError(t, err)
	require.Equal(t, PhaseProposing, e.Phase)

	_, err = e.Advance(1, allSign{})
	require.NoError(t, err)
	require.Equal(t, PhaseAwaitingSignatures, e.Phase)

	_, err = e.Advance(1, allSign{})
	require.NoError(t, err)
	require.Equal(t, PhaseCommitted, e.Phase)

	events, err := e.Advance(1, allSign{})
	require.NoError(t, err)
	require.Equal(t, PhaseIdle, e.Phase)
	require.Equal(t, uint64(1), e.Height)

	var sawCommit bool
	for _, ev := range events {
		if ev.Kind == types.EventFrameCommitted {
			sawCommit = true
		}
	}
	require.True(t, sawCommit)

	acc := e.Accounts[other]
	require.NotNil(t, acc)
}

func TestAdvance_TimeoutAbortsAndRestoresMempool(t *testing.T) {
	e, s1 := newTestEntity()
	require.NoError(t, e.Submit(s1, types.ProfileUpdateTx{Fields: map[string]string{"name": "x"}}))

	_, _ = e.Advance(1, nil) // Idle -> Proposing
	_, _ = e.Advance(1, nil) // Proposing -> AwaitingSignatures, awaitingSinceTick=1

	for tick := uint64(2); tick <= 6; tick++ {
		_, _ = e.Advance(tick, nil) // no signer responds; eventually times out
		if e.Phase != PhaseAwaitingSignatures {
			break
		}
	}
	require.Equal(t, PhaseAborted, e.Phase)

	_, err := e.Advance(7, nil)
	require.ErrorIs(t, err, ErrTimeoutAwaitingSignatures)
	require.Equal(t, PhaseIdle, e.Phase)
	require.Equal(t, 1, e.Mempool.Len())
	require.Equal(t, uint64(0), e.Height)
}

func TestSubmit_RejectsUnknownSigner(t *testing.T) {
	e, _ := newTestEntity()
	err := e.Submit(signerId(99), types.ProfileUpdateTx{})
	require.ErrorIs(t, err, ErrUnknownSigner)
}

func TestSubmit_PreflightRejectsOverCapacity(t *testing.T) {
	e, s1 := newTestEntity()
	other := entityId(10)
	err := e.Submit(s1, types.AccountInputTx{
		FromEntityId: e.Id,
		ToEntityId:   other,
		AccountTx:    types.PaymentAccountTx{TokenId: 1, Amount: big.NewInt(100), Direction: 0},
	})
	require.Error(t, err)
	require.Equal(t, 0, e.Mempool.Len())
}

func TestSignerSetUpdate_ChangesSignersAtCommit(t *testing.T) {
	e, s1 := newTestEntity()
	newSigner := signerId(4)
	require.NoError(t, e.Submit(s1, types.SignerSetUpdateTx{
		AddSigners:   []types.SignerId{newSigner},
		NewThreshold: 0,
	}))

	_, _ = e.Advance(1, allSign{})
	_, _ = e.Advance(1, allSign{})
	_, _ = e.Advance(1, allSign{})
	_, _ = e.Advance(1, allSign{})

	require.Contains(t, e.Signers, newSigner)
}
