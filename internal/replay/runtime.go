package replay

import (
	"context"
	"fmt"
	"sync"

	"github.com/xlnnetwork/xln/internal/server"
	"github.com/xlnnetwork/xln/internal/types"
)

// FrameLog is the durable append-only store Runtime persists every
// input batch and periodic snapshot to. Implemented by
// internal/storage/pebble.Store; grounded on the teacher's
// LedgerStorage interface (internal/core/ledger/manager/storage.go).
type FrameLog interface {
	PutInput(tick uint64, encoded []byte) error
	GetInput(tick uint64) ([]byte, error)
	PutSnapshot(tick uint64, encoded []byte) error
	GetSnapshot(tick uint64) ([]byte, error)
	IterateInputs(fromTick uint64, fn func(tick uint64, encoded []byte) bool) error
}

// Config controls snapshotting cadence.
type Config struct {
	SnapshotIntervalFrames uint64 // 0 disables periodic snapshotting
	CacheSize              int
}

// Runtime wraps a live server.Server with durable history and an
// observer cursor that can pin to any past tick without disturbing the
// live server (spec.md §4.5: "currentTimeIndex, isLive").
type Runtime struct {
	cfg Config
	srv *server.Server
	log FrameLog

	cache *StateCache

	mu         sync.Mutex
	cursorTick uint64
	isLive     bool
}

// New builds a Runtime around an already-configured, already-populated
// server (entities registered) and a durable FrameLog.
func New(srv *server.Server, log FrameLog, cfg Config) (*Runtime, error) {
	cache, err := NewStateCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Runtime{cfg: cfg, srv: srv, log: log, cache: cache, isLive: true}, nil
}

// Step submits input and advances the server by exactly one tick,
// persisting the input batch (and, on cadence, a State snapshot) to
// the durable log before returning (spec.md §4.5: "(state,
// serverInput) -> (state', serverFrame)").
func (r *Runtime) Step(ctx context.Context, input types.RuntimeInput) (server.ServerFrame, error) {
	if err := r.srv.Submit(input); err != nil {
		return server.ServerFrame{}, err
	}
	frame, err := r.srv.Tick(ctx)
	if err != nil {
		return server.ServerFrame{}, err
	}
	if err := r.persist(frame, input); err != nil {
		return frame, err
	}
	return frame, nil
}

// Tick advances the server by exactly one step without submitting new
// input itself, draining whatever already accumulated in the ingress
// queue via Server.Submit (e.g. input that arrived out-of-band through
// internal/rpcapi rather than through Step). It persists the actual
// drained batch — not an empty placeholder — so Rebuild reconstructs
// this tick's effects exactly (spec.md §4.5). Used by a periodic
// driver that ticks on a fixed cadence independent of when input
// arrives.
func (r *Runtime) Tick(ctx context.Context) (server.ServerFrame, error) {
	frame, err := r.srv.Tick(ctx)
	if err != nil {
		return server.ServerFrame{}, err
	}
	if err := r.persist(frame, r.srv.LastTickInput()); err != nil {
		return frame, err
	}
	return frame, nil
}

func (r *Runtime) persist(frame server.ServerFrame, input types.RuntimeInput) error {
	encoded, err := EncodeInput(input)
	if err != nil {
		return fmt.Errorf("replay: encode input: %w", err)
	}
	if err := r.log.PutInput(frame.Tick, encoded); err != nil {
		return fmt.Errorf("replay: persist input: %w", err)
	}

	st := Capture(r.srv)
	r.cache.Put(st)

	if r.cfg.SnapshotIntervalFrames > 0 && frame.Tick%r.cfg.SnapshotIntervalFrames == 0 {
		if err := r.snapshot(st); err != nil {
			return err
		}
	}

	r.mu.Lock()
	if r.isLive {
		r.cursorTick = frame.Tick
	}
	r.mu.Unlock()
	return nil
}

func (r *Runtime) snapshot(st State) error {
	encoded, err := EncodeState(st)
	if err != nil {
		return fmt.Errorf("replay: encode snapshot: %w", err)
	}
	if err := r.log.PutSnapshot(st.Tick, encoded); err != nil {
		return fmt.Errorf("replay: persist snapshot: %w", err)
	}
	r.cache.MarkSnapshot(st.Tick)
	return nil
}

// LiveState returns the current (tip) State, bypassing the cursor.
func (r *Runtime) LiveState() State {
	return Capture(r.srv)
}

// SeekTime moves the observer cursor to tick, leaving isLive false
// until LiveTime is called again (spec.md §4.5 "currentTimeIndex,
// isLive").
func (r *Runtime) SeekTime(tick uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursorTick = tick
	r.isLive = false
}

// LiveTime returns the cursor to following the tip.
func (r *Runtime) LiveTime() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.isLive = true
	r.cursorTick = r.srv.CurrentTick()
}

// Cursor reports the observer's current position.
func (r *Runtime) Cursor() (tick uint64, isLive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursorTick, r.isLive
}

// Rebuild replays every persisted input from genesis through upToTick
// (inclusive) into a freshly constructed server, returning the
// resulting State. Used both for time-travel reads that land between
// snapshots and for the determinism check that a from-scratch replay
// matches the originally captured State bit-for-bit (spec.md §4.5,
// §8 Scenario F).
func Rebuild(ctx context.Context, fresh *server.Server, log FrameLog, upToTick uint64) (State, error) {
	var lastErr error
	err := log.IterateInputs(1, func(tick uint64, encoded []byte) bool {
		if tick > upToTick {
			return false
		}
		input, err := DecodeInput(encoded)
		if err != nil {
			lastErr = err
			return false
		}
		if err := fresh.Submit(input); err != nil {
			lastErr = err
			return false
		}
		if _, err := fresh.Tick(ctx); err != nil {
			lastErr = err
			return false
		}
		return true
	})
	if err != nil {
		return State{}, err
	}
	if lastErr != nil {
		return State{}, lastErr
	}
	return Capture(fresh), nil
}
