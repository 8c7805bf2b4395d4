package rpcapi

import (
	"context"
	"encoding/hex"

	"github.com/xlnnetwork/xln/internal/replay"
	"github.com/xlnnetwork/xln/internal/server"
	"github.com/xlnnetwork/xln/internal/types"
)

// SubmitRequest wraps a RuntimeInput for ingress over the egress
// surface's request/response shape (a server can be driven purely by
// its embedder, but this lets a remote CLI or test harness drive it
// too).
type SubmitRequest struct {
	Input types.RuntimeInput
}

// SubmitResponse reports whether the input was accepted into the
// ingress queue (spec.md §4.3 Backpressure: acceptance, not commitment).
type SubmitResponse struct {
	Accepted bool
	Error    string
}

// Submit enqueues input for the next Tick.
func (s *Server) Submit(_ context.Context, req SubmitRequest) SubmitResponse {
	if err := s.srv.Submit(req.Input); err != nil {
		return SubmitResponse{Accepted: false, Error: err.Error()}
	}
	return SubmitResponse{Accepted: true}
}

// GetStateRequest asks for a State at a specific tick (time-travel
// read, spec.md §4.5), or the live tip when Live is true or Tick is the
// server's current tick.
type GetStateRequest struct {
	Tick uint64
	Live bool
}

// GetStateResponse carries a full entity/account/token snapshot.
type GetStateResponse struct {
	State replay.State
	Hash  string
}

// GetState returns the runtime's live state, or — if the requested
// tick isn't the live tip — rebuilds it from the persisted log into
// fresh entities created with each live entity's current signer set and
// threshold, leaving the live entities untouched.
func (s *Server) GetState(ctx context.Context, req GetStateRequest) (GetStateResponse, error) {
	var st replay.State
	if req.Live || req.Tick == s.srv.CurrentTick() {
		st = s.runtime.LiveState()
	} else {
		fresh := server.New(server.DefaultConfig())
		for _, e := range s.srv.Entities() {
			fresh.CreateEntity(e.Id, e.Signers, e.Threshold)
		}
		var err error
		st, err = replay.Rebuild(ctx, fresh, s.frameLog, req.Tick)
		if err != nil {
			return GetStateResponse{}, err
		}
	}
	h := replay.Hash(st)
	return GetStateResponse{State: st, Hash: hex.EncodeToString(h[:])}, nil
}

// CursorResponse reports the observer cursor's current position.
type CursorResponse struct {
	Tick uint64
	Live bool
}

// Cursor returns the runtime's current observer position.
func (s *Server) Cursor() CursorResponse {
	tick, live := s.runtime.Cursor()
	return CursorResponse{Tick: tick, Live: live}
}

// SeekTime moves the observer cursor to tick (spec.md §4.5
// currentTimeIndex).
func (s *Server) SeekTime(tick uint64) {
	s.runtime.SeekTime(tick)
}

// LiveTime returns the observer cursor to following the tip.
func (s *Server) LiveTime() {
	s.runtime.LiveTime()
}
