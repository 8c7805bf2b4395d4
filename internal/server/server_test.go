package server

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlnnetwork/xln/internal/account"
	"github.com/xlnnetwork/xln/internal/entity"
	"github.com/xlnnetwork/xln/internal/types"
)

// fundAccount pre-funds the replica between a and b with collateral, the
// same way both sides would see it after a jurisdictional deposit.
func fundAccount(e *entity.Entity, other types.EntityId, tokenId types.TokenId, collateral int64) {
	acc, ok := e.Accounts[other]
	if !ok {
		acc = account.New(e.Id, other)
		e.Accounts[other] = acc
	}
	_ = acc.ApplySettlement(tokenId, big.NewInt(0), big.NewInt(collateral), 1)
}

func eid(b byte) types.EntityId {
	var id types.EntityId
	id[31] = b
	return id
}

func sid(b byte) types.SignerId {
	var id types.SignerId
	id[31] = b
	return id
}

func newTestServer(ids ...byte) (*Server, map[byte]*entity.Entity) {
	cfg := DefaultConfig()
	cfg.BoundedTicks = 3
	srv := New(cfg)
	entities := make(map[byte]*entity.Entity, len(ids))
	for _, id := range ids {
		e := entity.New(eid(id), entity.Config{
			Signers:      []types.SignerId{sid(id)},
			ProposerRule: entity.FixedProposer{Signer: sid(id)},
			QuorumRule:   entity.AllRule{},
			BoundedTicks: cfg.BoundedTicks,
		})
		srv.RegisterEntity(e)
		entities[id] = e
	}
	return srv, entities
}

// driveToIdle advances the given entity's server ticks until it
// returns to PhaseIdle (submit -> proposing -> awaiting -> committed).
func driveToIdle(t *testing.T, srv *Server, e *entity.Entity) {
	t.Helper()
	for i := 0; i < 6 && e.Phase != entity.PhaseIdle || i == 0; i++ {
		_, err := srv.Tick(context.Background())
		require.NoError(t, err)
		if i > 0 && e.Phase == entity.PhaseIdle {
			break
		}
	}
}

// Scenario A (spec.md §8): direct payment within capacity, routed
// through the accountInput path between two adjacent entities.
func TestServer_ScenarioA_DirectPaymentWithinCapacity(t *testing.T) {
	srv, es := newTestServer(1, 2)
	e1, e2 := es[1], es[2]
	fundAccount(e1, e2.Id, 1, 1000)
	fundAccount(e2, e1.Id, 1, 1000)

	err := srv.Submit(types.RuntimeInput{
		EntityInputs: []types.EntityInput{{
			EntityId: e1.Id,
			SignerId: sid(1),
			EntityTxs: []types.EntityTx{types.AccountInputTx{
				FromEntityId: e1.Id,
				ToEntityId:   e2.Id,
				AccountTx:    types.PaymentAccountTx{TokenId: 1, Amount: big.NewInt(300), Direction: 0},
			}},
		}},
	})
	require.NoError(t, err)

	driveToIdle(t, srv, e1)

	acc := e1.Accounts[e2.Id]
	require.Equal(t, big.NewInt(300), acc.Tokens[1].Delta)
}

func TestServer_Submit_UnknownEntityRejectedAtTick(t *testing.T) {
	srv, _ := newTestServer(1)
	unknown := eid(99)
	require.NoError(t, srv.Submit(types.RuntimeInput{
		EntityInputs: []types.EntityInput{{EntityId: unknown, SignerId: sid(1), EntityTxs: []types.EntityTx{types.ProfileUpdateTx{}}}},
	}))
	frame, err := srv.Tick(context.Background())
	require.NoError(t, err)

	var sawFailure bool
	for _, ev := range frame.EmittedEvents {
		if ev.Kind == types.EventTransactionFailed && ev.EntityId == unknown {
			sawFailure = true
		}
	}
	require.True(t, sawFailure)
}

func TestServer_Submit_DuplicateRejected(t *testing.T) {
	srv, es := newTestServer(1)
	input := types.RuntimeInput{
		EntityInputs: []types.EntityInput{{EntityId: es[1].Id, SignerId: sid(1), EntityTxs: []types.EntityTx{types.ProfileUpdateTx{}}}},
	}
	require.NoError(t, srv.Submit(input))
	err := srv.Submit(input)
	require.ErrorIs(t, err, ErrDuplicateInput)
}

func TestServer_Submit_QueueFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IngressQueueBound = 1
	srv := New(cfg)
	srv.RegisterEntity(entity.New(eid(1), entity.Config{Signers: []types.SignerId{sid(1)}, ProposerRule: entity.FixedProposer{Signer: sid(1)}, QuorumRule: entity.AllRule{}}))

	require.NoError(t, srv.Submit(types.RuntimeInput{EntityInputs: []types.EntityInput{{EntityId: eid(1), SignerId: sid(1), EntityTxs: []types.EntityTx{types.ProfileUpdateTx{Fields: map[string]string{"a": "1"}}}}}}))
	err := srv.Submit(types.RuntimeInput{EntityInputs: []types.EntityInput{{EntityId: eid(1), SignerId: sid(1), EntityTxs: []types.EntityTx{types.ProfileUpdateTx{Fields: map[string]string{"a": "2"}}}}}})
	require.ErrorIs(t, err, ErrQueueFull)
}
