// Package server implements the single-writer tick loop: it drains the
// ingress queue, routes inputs to entities, advances each entity's
// consensus state machine by one step, resolves cross-entity payments,
// appends the resulting server frame, and notifies observers.
//
// Grounded on LeJamon-goXRPLd's internal/core/consensus.Engine
// lifecycle (Start/Stop/StartRound) generalized from one network-wide
// consensus round to a tick that advances every entity's state machine
// once, and on golang.org/x/sync/errgroup for the bounded per-entity
// fan-out within a tick (spec.md §4.3, §5).
package server

import "errors"

var (
	ErrUnknownEntity      = errors.New("server: unknown entity")
	ErrUnauthorizedSigner = errors.New("server: unauthorized signer")
	ErrQueueFull          = errors.New("server: ingress queue full")
	ErrDuplicateInput     = errors.New("server: duplicate input")
)
