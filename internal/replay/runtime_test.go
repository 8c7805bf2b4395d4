package replay

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlnnetwork/xln/internal/entity"
	"github.com/xlnnetwork/xln/internal/server"
	storagepebble "github.com/xlnnetwork/xln/internal/storage/pebble"
	"github.com/xlnnetwork/xln/internal/types"
)

func setupStore(t *testing.T) *storagepebble.Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "xln-replay-test-*")
	require.NoError(t, err)
	st, err := storagepebble.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
		_ = os.RemoveAll(dir)
	})
	return st
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

func newChain(ids ...byte) *server.Server {
	cfg := server.DefaultConfig()
	cfg.BoundedTicks = 3
	srv := server.New(cfg)
	for _, id := range ids {
		srv.RegisterEntity(entity.New(eid(id), entity.Config{
			Signers:      []types.SignerId{sid(id)},
			ProposerRule: entity.FixedProposer{Signer: sid(id)},
			QuorumRule:   entity.AllRule{},
			BoundedTicks: cfg.BoundedTicks,
		}))
	}
	return srv
}

func profileUpdateInput(entityId types.EntityId, signer types.SignerId, value string) types.RuntimeInput {
	return types.RuntimeInput{
		EntityInputs: []types.EntityInput{{
			EntityId:  entityId,
			SignerId:  signer,
			EntityTxs: []types.EntityTx{types.ProfileUpdateTx{Fields: map[string]string{"v": value}}},
		}},
	}
}

// TestRuntime_ReplayMatchesLive is the time-travel determinism check
// (spec.md §8 Scenario F): replaying the persisted input log into a
// fresh server must reproduce the exact same canonical state hash the
// live run produced at every tick along the way.
func TestRuntime_ReplayMatchesLive(t *testing.T) {
	store := setupStore(t)
	srv := newChain(1)
	rt, err := New(srv, store, Config{SnapshotIntervalFrames: 2, CacheSize: 64})
	require.NoError(t, err)

	ctx := context.Background()
	liveHashes := make(map[uint64][32]byte)

	for i := 0; i < 12; i++ {
		frame, err := rt.Step(ctx, profileUpdateInput(eid(1), sid(1), string(rune('a'+i))))
		require.NoError(t, err)
		liveHashes[frame.Tick] = Hash(Capture(srv))
	}

	for tick := uint64(1); tick <= srv.CurrentTick(); tick++ {
		fresh := newChain(1)
		st, err := Rebuild(ctx, fresh, store, tick)
		require.NoError(t, err)
		require.Equal(t, liveHashes[tick], Hash(st), "replay diverged at tick %d", tick)
	}
}

// TestRuntime_SnapshotRoundTrip confirms a State survives an
// lz4-compressed encode/decode round trip through the store bit-exact.
func TestRuntime_SnapshotRoundTrip(t *testing.T) {
	store := setupStore(t)
	srv := newChain(1, 2)

	rt, err := New(srv, store, Config{SnapshotIntervalFrames: 1, CacheSize: 8})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = rt.Step(ctx, profileUpdateInput(eid(1), sid(1), "x"))
	require.NoError(t, err)

	raw, err := store.GetSnapshot(srv.CurrentTick())
	require.NoError(t, err)
	decoded, err := DecodeState(raw)
	require.NoError(t, err)
	require.Equal(t, Hash(Capture(srv)), Hash(decoded))
}

func TestRuntime_CursorTracksLiveUntilSeek(t *testing.T) {
	store := setupStore(t)
	srv := newChain(1)
	rt, err := New(srv, store, Config{SnapshotIntervalFrames: 0, CacheSize: 8})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = rt.Step(ctx, profileUpdateInput(eid(1), sid(1), "a"))
	require.NoError(t, err)
	_, err = rt.Step(ctx, profileUpdateInput(eid(1), sid(1), "b"))
	require.NoError(t, err)

	tick, live := rt.Cursor()
	require.True(t, live)
	require.Equal(t, srv.CurrentTick(), tick)

	rt.SeekTime(1)
	tick, live = rt.Cursor()
	require.False(t, live)
	require.Equal(t, uint64(1), tick)

	rt.LiveTime()
	tick, live = rt.Cursor()
	require.True(t, live)
	require.Equal(t, srv.CurrentTick(), tick)
}
