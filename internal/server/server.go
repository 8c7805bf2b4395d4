package server

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xlnnetwork/xln/internal/canon"
	"github.com/xlnnetwork/xln/internal/entity"
	"github.com/xlnnetwork/xln/internal/routing"
	"github.com/xlnnetwork/xln/internal/types"
)

// EntityFrameSummary is the per-entity slice of a committed ServerFrame.
type EntityFrameSummary struct {
	EntityId types.EntityId
	Height   uint64
	Hash     canon.Hash
}

// ServerFrame is the committed, observable unit of one tick (spec.md §6).
type ServerFrame struct {
	Tick          uint64
	EntityFrames  []EntityFrameSummary
	EmittedEvents []types.Event
}

type queuedInput struct {
	input types.RuntimeInput
	hash  canon.Hash
}

// Server is the single-writer tick harness. All mutation happens
// inside Tick; Submit only enqueues (spec.md §4.3, §5).
type Server struct {
	cfg Config

	mu       sync.Mutex
	entities map[types.EntityId]*entity.Entity
	queue    []queuedInput
	seen     map[canon.Hash]uint64
	tick     uint64

	observers   []chan ServerFrame
	defaultSign entity.Signatory

	// lastTickInput is the merged batch drained by the most recent
	// Tick, exposed via LastTickInput for internal/replay's durable
	// log to persist exactly what was applied — including input that
	// arrived through Submit directly rather than via Runtime.Step.
	lastTickInput types.RuntimeInput
}

// New constructs an empty server with the given configuration.
func New(cfg Config) *Server {
	return &Server{
		cfg:         cfg,
		entities:    make(map[types.EntityId]*entity.Entity),
		seen:        make(map[canon.Hash]uint64),
		defaultSign: responsiveSignatory{},
	}
}

// RegisterEntity adds e to the server's entity map. Entities are
// created by a registration input and never destroyed (spec.md §3
// Lifecycles); the server trusts the caller to register before the
// entity's id is ever referenced in ingress.
func (s *Server) RegisterEntity(e *entity.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[e.Id] = e
}

// CreateEntity registers a new entity constructed from the server's
// configured default ProposerRule/QuorumRule/BoundedTicks (spec.md §6),
// so callers that don't need a non-default policy per entity can avoid
// repeating the config plumbing at every call site.
func (s *Server) CreateEntity(id types.EntityId, signers []types.SignerId, threshold int) *entity.Entity {
	e := entity.New(id, entity.Config{
		Signers:      signers,
		Threshold:    threshold,
		ProposerRule: s.cfg.ProposerRule,
		QuorumRule:   s.cfg.QuorumRule,
		BoundedTicks: s.cfg.BoundedTicks,
	})
	s.RegisterEntity(e)
	return e
}

// SetSignatory overrides the default colocated responsiveSignatory
// with sign, e.g. a CryptoSignatory backed by real per-signer key
// material for a non-colocated deployment.
func (s *Server) SetSignatory(sign entity.Signatory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultSign = sign
}

// Subscribe returns a channel receiving every committed ServerFrame,
// starting from the next tick (spec.md §6 egress / observer stream).
func (s *Server) Subscribe() <-chan ServerFrame {
	ch := make(chan ServerFrame, 64)
	s.mu.Lock()
	s.observers = append(s.observers, ch)
	s.mu.Unlock()
	return ch
}

// Submit enqueues a runtime input for processing at the next Tick.
// Bounded by cfg.IngressQueueBound; duplicates within the dedup window
// are idempotently rejected (spec.md §4.3 Backpressure / Input routing).
func (s *Server) Submit(input types.RuntimeInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := hashRuntimeInput(input)
	if seenAt, ok := s.seen[h]; ok && s.tick-seenAt <= s.cfg.DedupWindowTicks {
		return ErrDuplicateInput
	}
	if len(s.queue) >= s.cfg.IngressQueueBound {
		return ErrQueueFull
	}
	s.queue = append(s.queue, queuedInput{input: input, hash: h})
	// Mark seen immediately so two Submits of the same input landing in
	// the same still-unprocessed batch are caught too, not just ones
	// spanning a Tick boundary.
	s.seen[h] = s.tick
	return nil
}

func hashRuntimeInput(input types.RuntimeInput) canon.Hash {
	h := canon.NewHasher()
	for _, ei := range input.EntityInputs {
		h.WriteBytes(ei.EntityId[:]).WriteBytes(ei.SignerId[:]).WriteUint32(uint32(len(ei.EntityTxs)))
	}
	for _, rt := range input.RuntimeTxs {
		h.WriteUint32(uint32(rt.Kind)).WriteBytes(rt.EntityId[:]).WriteUint64(rt.JurisdictionHeight)
	}
	return h.Sum()
}

// Tick drains the ingress queue, routes every input to its entity,
// advances each entity's consensus state machine by exactly one step,
// resolves any cross-entity payments whose frame just committed, and
// returns the resulting ServerFrame (spec.md §4.3). No concurrent Tick
// may overlap: callers are responsible for serializing Tick calls (the
// reducer itself holds no lock across a full tick to keep Advance calls
// fan-out friendly, but a second Tick concurrently entered would race
// on s.queue/s.entities the same way a second write to any single-writer
// store would).
func (s *Server) Tick(ctx context.Context) (ServerFrame, error) {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	s.tick++
	tick := s.tick
	for _, qi := range batch {
		s.seen[qi.hash] = tick
	}
	s.pruneSeen(tick)
	var merged types.RuntimeInput
	for _, qi := range batch {
		merged.RuntimeTxs = append(merged.RuntimeTxs, qi.input.RuntimeTxs...)
		merged.EntityInputs = append(merged.EntityInputs, qi.input.EntityInputs...)
	}
	s.lastTickInput = merged
	s.mu.Unlock()

	var events []types.Event

	type targeted struct {
		entityId types.EntityId
		signerId types.SignerId
		tx       types.EntityTx
	}
	var items []targeted
	for _, qi := range batch {
		for _, rt := range qi.input.RuntimeTxs {
			events = append(events, s.applyRuntimeTx(rt)...)
		}
		for _, ei := range qi.input.EntityInputs {
			for _, tx := range ei.EntityTxs {
				items = append(items, targeted{entityId: ei.EntityId, signerId: ei.SignerId, tx: tx})
			}
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].entityId.Less(items[j].entityId)
	})

	for _, it := range items {
		e, ok := s.entities[it.entityId]
		if !ok {
			events = append(events, types.Event{Kind: types.EventTransactionFailed, EntityId: it.entityId, Reason: ErrUnknownEntity.Error(), Tick: tick})
			continue
		}
		if err := e.Submit(it.signerId, it.tx); err != nil {
			events = append(events, types.Event{Kind: types.EventTransactionFailed, EntityId: it.entityId, Reason: err.Error(), Tick: tick})
		}
	}

	ids := canon.SortedBytesKeys(s.entities)
	advanceEvents := make([][]types.Event, len(ids))

	g, _ := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			ev, err := s.entities[id].Advance(tick, s.defaultSign)
			advanceEvents[i] = ev
			if err != nil {
				advanceEvents[i] = append(advanceEvents[i], types.Event{Kind: types.EventTransactionFailed, EntityId: id, Reason: err.Error(), Tick: tick})
			}
			return nil
		})
	}
	_ = g.Wait() // per-entity Advance never returns a fatal error to the group; failures surface as events

	var frames []EntityFrameSummary
	lookup := &accountLookup{srv: s}
	for i, id := range ids {
		e := s.entities[id]
		events = append(events, advanceEvents[i]...)
		if e.LastCommittedFrame == nil {
			continue
		}
		frame := e.LastCommittedFrame
		if frame.Tick == tick {
			frames = append(frames, EntityFrameSummary{EntityId: id, Height: e.Height, Hash: frame.Hash()})
			events = append(events, s.reconcileAccountInputs(e, frame)...)
			events = append(events, s.resolvePayments(lookup, e, frame, tick)...)
		}
	}

	events = append(events, s.expireReservations(tick)...)

	sf := ServerFrame{Tick: tick, EntityFrames: frames, EmittedEvents: events}
	s.mu.Lock()
	for _, ch := range s.observers {
		select {
		case ch <- sf:
		default:
		}
	}
	s.mu.Unlock()
	return sf, nil
}

// Entities returns every registered entity in ascending id order, for
// the replay layer's state snapshotting (internal/replay).
func (s *Server) Entities() []*entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := canon.SortedBytesKeys(s.entities)
	out := make([]*entity.Entity, len(ids))
	for i, id := range ids {
		out[i] = s.entities[id]
	}
	return out
}

// CurrentTick returns the last tick processed.
func (s *Server) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// LastTickInput returns the merged RuntimeInput batch drained by the
// most recent Tick, for internal/replay to persist.
func (s *Server) LastTickInput() types.RuntimeInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTickInput
}

func (s *Server) pruneSeen(tick uint64) {
	for h, at := range s.seen {
		if tick-at > s.cfg.DedupWindowTicks {
			delete(s.seen, h)
		}
	}
}

// resolvePayments executes every DirectPaymentTx the just-committed
// frame admitted, now that the sender's own commit has made its state
// visible to the router (spec.md §4.4).
func (s *Server) resolvePayments(lookup routing.AccountLookup, sender *entity.Entity, frame *entity.Frame, tick uint64) []types.Event {
	var events []types.Event
	for i, ft := range frame.Txs {
		dp, ok := ft.Tx.(types.DirectPaymentTx)
		if !ok {
			continue
		}
		route := dp.Route
		if len(route) == 0 {
			r, err := routing.FindRoute(lookup, s.cfg.RouteCost, sender.Id, dp.TargetEntityId, dp.TokenId, dp.Amount, s.cfg.MaxHops)
			if err != nil {
				events = append(events, types.Event{
					Kind: types.EventPaymentFailed, EntityId: sender.Id, Counterparty: dp.TargetEntityId,
					TokenId: dp.TokenId, Amount: dp.Amount, Reason: err.Error(), HopIndex: -1, Height: frame.Height, Tick: tick,
				})
				continue
			}
			route = r
		}

		paymentID := derivePaymentID(sender.Id, frame.Height, i)
		events = append(events, types.Event{
			Kind: types.EventPaymentReserved, EntityId: sender.Id, Counterparty: dp.TargetEntityId,
			TokenId: dp.TokenId, Amount: dp.Amount, Height: frame.Height, Tick: tick,
		})

		result := routing.Execute(lookup, paymentID, route, dp.TokenId, dp.Amount, tick, s.cfg.ReserveTimeoutTicks)
		if result.Outcome == routing.OutcomeCompleted {
			events = append(events, types.Event{
				Kind: types.EventPaymentCompleted, EntityId: sender.Id, Counterparty: dp.TargetEntityId,
				TokenId: dp.TokenId, Amount: dp.Amount, Height: frame.Height, Tick: tick,
			})
		} else {
			events = append(events, types.Event{
				Kind: types.EventPaymentFailed, EntityId: sender.Id, Counterparty: dp.TargetEntityId,
				TokenId: dp.TokenId, Amount: dp.Amount, Reason: result.Err.Error(), HopIndex: result.FailHop,
				Height: frame.Height, Tick: tick,
			})
		}
	}
	return events
}

func derivePaymentID(sender types.EntityId, height uint64, index int) routing.PaymentID {
	h := canon.NewHasher().WriteBytes(sender[:]).WriteUint64(height).WriteUint32(uint32(index)).Sum()
	var id routing.PaymentID
	copy(id[:], h[:16])
	return id
}

// responsiveSignatory is the default Signatory: every configured signer
// recomputes f's post-state hash against their own account state
// (entity.VerifyPostStateHash) and only signs if it matches. This
// assumes every signer's replica is colocated in this process (all
// signers share e, so the recompute is identical for each of them); a
// networked deployment would instead collect signatures asynchronously
// over ticks via an equivalent of the teacher's
// Adaptor.OnProposal/OnValidation path, with each signer checking its
// own replica.
type responsiveSignatory struct{}

func (responsiveSignatory) Signatures(e *entity.Entity, f *entity.Frame) map[types.SignerId]bool {
	if !entity.VerifyPostStateHash(e, f) {
		return nil
	}
	out := make(map[types.SignerId]bool, len(e.Signers))
	for _, s := range e.Signers {
		out[s] = true
	}
	return out
}
