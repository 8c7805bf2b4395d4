package entity

import (
	"math/big"

	"github.com/xlnnetwork/xln/internal/account"
	"github.com/xlnnetwork/xln/internal/canon"
	"github.com/xlnnetwork/xln/internal/types"
)

// Phase is the entity's consensus state (spec.md §4.2).
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProposing
	PhaseAwaitingSignatures
	PhaseCommitted
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseProposing:
		return "proposing"
	case PhaseAwaitingSignatures:
		return "awaitingSignatures"
	case PhaseCommitted:
		return "committed"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Entity replicates one participant's state machine: its account
// replicas, mempool, and propose/sign/commit consensus (spec.md §3).
type Entity struct {
	Id        types.EntityId
	Signers   []types.SignerId
	Threshold int // informational; QuorumRule is authoritative

	Height                 uint64
	LastCommittedFrameHash canon.Hash

	Accounts map[types.EntityId]*account.Account
	Mempool  *Mempool

	Phase             Phase
	proposerRule      ProposerRule
	quorumRule        QuorumRule
	boundedTicks      uint64
	candidate         *Frame
	candidateBacking  []pendingTx // txs drained into the candidate, for Aborted restore
	awaitingSinceTick uint64

	// LastCommittedFrame is the frame stepCommitted just applied, kept
	// around for exactly the tick it committed so the server can
	// inspect its DirectPaymentTx entries and resolve cross-entity
	// routing (which this package cannot do: it only owns this
	// entity's own account replicas, spec.md §3 Ownership).
	LastCommittedFrame *Frame
}

// Config bundles the pluggable policies an entity is constructed with.
type Config struct {
	Signers      []types.SignerId
	Threshold    int
	ProposerRule ProposerRule
	QuorumRule   QuorumRule
	BoundedTicks uint64 // max ticks to wait in AwaitingSignatures before Aborted
}

// New constructs an idle entity with an empty mempool and account map.
func New(id types.EntityId, cfg Config) *Entity {
	return &Entity{
		Id:           id,
		Signers:      append([]types.SignerId{}, cfg.Signers...),
		Threshold:    cfg.Threshold,
		Accounts:     make(map[types.EntityId]*account.Account),
		Mempool:      newMempool(),
		Phase:        PhaseIdle,
		proposerRule: cfg.ProposerRule,
		quorumRule:   cfg.QuorumRule,
		boundedTicks: cfg.BoundedTicks,
	}
}

func (e *Entity) isSigner(id types.SignerId) bool {
	for _, s := range e.Signers {
		if s == id {
			return true
		}
	}
	return false
}

// accountWith returns (creating if needed) the replica of the account
// between this entity and other.
func (e *Entity) accountWith(other types.EntityId) *account.Account {
	acc, ok := e.Accounts[other]
	if !ok {
		acc = account.New(e.Id, other)
		e.Accounts[other] = acc
	}
	return acc
}

// Submit admits tx into the mempool after syntactic + preflight
// validation (spec.md §4.2 transaction admission). signer must belong
// to the entity's signer set.
func (e *Entity) Submit(signer types.SignerId, tx types.EntityTx) error {
	if !e.isSigner(signer) {
		return ErrUnknownSigner
	}
	if err := syntaxCheck(tx); err != nil {
		return err
	}
	if err := e.preflight(tx); err != nil {
		return err
	}
	e.Mempool.Add(signer, tx)
	return nil
}

func syntaxCheck(tx types.EntityTx) error {
	switch t := tx.(type) {
	case types.DirectPaymentTx:
		if t.Amount == nil || t.Amount.Sign() <= 0 {
			return ErrMalformedTx
		}
	case types.AccountInputTx:
		if t.AccountTx == nil {
			return ErrMalformedTx
		}
	case types.SignerSetUpdateTx:
		// no required fields
	case types.ProfileUpdateTx:
		// informational, always syntactically valid
	default:
		return ErrMalformedTx
	}
	return nil
}

// preflight confirms tx would succeed against currently applied state,
// so frames rarely contain failures that were foreseeable at admission
// time (spec.md §4.2). It leaves ledger values unchanged, but does
// create an empty account replica for a counterparty not seen before.
func (e *Entity) preflight(tx types.EntityTx) error {
	switch t := tx.(type) {
	case types.AccountInputTx:
		if t.FromEntityId != e.Id {
			return ErrMalformedTx
		}
		acc := e.accountWith(t.ToEntityId)
		return dryRunAccountTx(acc, t.AccountTx)
	default:
		return nil
	}
}

// dryRunAccountTx applies accTx to a snapshot and discards the result,
// surfacing whatever error the real application would hit.
func dryRunAccountTx(acc *account.Account, accTx types.AccountTx) error {
	cp := acc.Snapshot()
	return applyAccountTx(cp, accTx)
}

// Advance moves the entity forward by exactly one step of its
// consensus state machine for the given tick (spec.md §4.3: "asks each
// entity to advance by one step"). sign is consulted only while
// PhaseAwaitingSignatures, to collect independent re-application
// signoffs from the configured signer set.
func (e *Entity) Advance(tick uint64, sign Signatory) ([]types.Event, error) {
	switch e.Phase {
	case PhaseIdle:
		return e.stepIdle()
	case PhaseProposing:
		return e.stepProposing(tick)
	case PhaseAwaitingSignatures:
		return e.stepAwaitingSignatures(tick, sign)
	case PhaseCommitted:
		return e.stepCommitted()
	case PhaseAborted:
		return e.stepAborted()
	default:
		return nil, nil
	}
}

// Signatory lets each configured signer independently re-apply a
// candidate frame and decide whether to sign it (spec.md §4.2:
// "signers independently re-apply to verify the post-state hash").
// Grounded on the teacher's Adaptor.VerifyProposal/SignProposal split.
type Signatory interface {
	Signatures(e *Entity, f *Frame) map[types.SignerId]bool
}

func (e *Entity) stepIdle() ([]types.Event, error) {
	if e.Mempool.Len() == 0 {
		return nil, nil
	}
	e.Phase = PhaseProposing
	return nil, nil
}

func (e *Entity) stepProposing(tick uint64) ([]types.Event, error) {
	proposer := e.proposerRule.ProposerFor(e.Signers, e.Height+1)
	drained := e.Mempool.Drain()
	frame := newCandidateFrame(e.Height+1, e.LastCommittedFrameHash, proposer, tick)

	scratch := e.snapshotAccounts()
	for _, p := range drained {
		outcome := previewFramedTx(e, scratch, p.tx)
		frame.Txs = append(frame.Txs, FramedTx{Signer: p.signer, Tx: p.tx, Outcome: outcome})
	}
	frame.PostStateHash = hashAccounts(scratch)

	e.candidate = frame
	e.candidateBacking = drained
	e.Phase = PhaseAwaitingSignatures
	e.awaitingSinceTick = tick
	// the proposer's own signature is implicit in constructing the frame
	frame.Signatures[proposer] = true
	return nil, nil
}

func (e *Entity) stepAwaitingSignatures(tick uint64, sign Signatory) ([]types.Event, error) {
	if e.candidate == nil {
		e.Phase = PhaseAborted
		return nil, ErrNoCandidateFrame
	}
	if e.candidate.Proposer != e.proposerRule.ProposerFor(e.Signers, e.candidate.Height) {
		e.Phase = PhaseAborted
		return nil, ErrProposerMismatch
	}
	if !VerifyPostStateHash(e, e.candidate) {
		e.Phase = PhaseAborted
		return nil, ErrPostStateHashMismatch
	}
	if sign != nil {
		for signer, ok := range sign.Signatures(e, e.candidate) {
			if ok {
				e.candidate.Signatures[signer] = true
			}
		}
	}
	if e.quorumRule.Reached(e.Signers, e.candidate.Signatures) {
		e.Phase = PhaseCommitted
		return nil, nil
	}
	if e.boundedTicks > 0 && tick-e.awaitingSinceTick >= e.boundedTicks {
		e.Phase = PhaseAborted
		return nil, nil
	}
	return nil, nil
}

func (e *Entity) stepCommitted() ([]types.Event, error) {
	frame := e.candidate
	scratch := e.snapshotAccounts()
	var events []types.Event
	for _, ft := range frame.Txs {
		ev := commitFramedTx(e, scratch, ft.Signer, ft.Tx, ft.Outcome)
		events = append(events, ev...)
	}
	e.Accounts = scratch
	e.Height = frame.Height
	e.LastCommittedFrameHash = frame.Hash()
	events = append(events, types.Event{Kind: types.EventFrameCommitted, EntityId: e.Id, Height: e.Height, Tick: frame.Tick})

	e.LastCommittedFrame = frame
	e.candidate = nil
	e.candidateBacking = nil
	e.Phase = PhaseIdle
	return events, nil
}

func (e *Entity) stepAborted() ([]types.Event, error) {
	e.Mempool.Restore(e.candidateBacking)
	e.candidate = nil
	e.candidateBacking = nil
	e.Phase = PhaseIdle
	return nil, ErrTimeoutAwaitingSignatures
}

func (e *Entity) snapshotAccounts() map[types.EntityId]*account.Account {
	out := make(map[types.EntityId]*account.Account, len(e.Accounts))
	for id, acc := range e.Accounts {
		out[id] = acc.Snapshot()
	}
	return out
}

func hashAccounts(accounts map[types.EntityId]*account.Account) canon.Hash {
	h := canon.NewHasher()
	for _, id := range canon.SortedBytesKeys(accounts) {
		h.WriteBytes(id[:]).WriteHash(accounts[id].Hash())
	}
	return h.Sum()
}

// previewFramedTx runs tx against scratch (the proposer's working copy
// of the account map) to compute the outcome that will be attested to
// in the frame's post-state hash. It never mutates e itself — only
// account-affecting variants touch scratch; entity-level effects
// (signer set changes) are applied once, at commitFramedTx time.
func previewFramedTx(e *Entity, scratch map[types.EntityId]*account.Account, tx types.EntityTx) TxOutcome {
	switch t := tx.(type) {
	case types.AccountInputTx:
		acc, ok := scratch[t.ToEntityId]
		if !ok {
			acc = account.New(e.Id, t.ToEntityId)
			scratch[t.ToEntityId] = acc
		}
		if err := applyAccountTx(acc, t.AccountTx); err != nil {
			return TxOutcome{Applied: false, Reason: err.Error()}
		}
		return TxOutcome{Applied: true}
	case types.DirectPaymentTx, types.SignerSetUpdateTx, types.ProfileUpdateTx:
		// These do not touch the account scratch: DirectPaymentTx is
		// resolved server-side post-commit, and the other two are
		// entity-level, applied once at commitFramedTx time.
		return TxOutcome{Applied: true}
	default:
		return TxOutcome{Applied: false, Reason: "malformed"}
	}
}

// commitFramedTx applies tx's real, permanent effect: account mutation
// against scratch (the map that becomes e.Accounts) and any
// entity-level mutation (e.g. signer set). Runs only once, from
// stepCommitted, using the outcome already decided at proposing time
// so a flaky re-run can never diverge from what signers attested to.
func commitFramedTx(e *Entity, scratch map[types.EntityId]*account.Account, _ types.SignerId, tx types.EntityTx, outcome TxOutcome) []types.Event {
	switch t := tx.(type) {
	case types.AccountInputTx:
		if !outcome.Applied {
			return []types.Event{{Kind: types.EventTransactionFailed, EntityId: e.Id, Counterparty: t.ToEntityId, Reason: outcome.Reason}}
		}
		acc, ok := scratch[t.ToEntityId]
		if !ok {
			acc = account.New(e.Id, t.ToEntityId)
			scratch[t.ToEntityId] = acc
		}
		_ = applyAccountTx(acc, t.AccountTx)
		return []types.Event{{Kind: types.EventTransactionApplied, EntityId: e.Id, Counterparty: t.ToEntityId}}
	case types.DirectPaymentTx:
		// Resolved server-side (routing.Execute) once this frame
		// commits; no local account effect here.
		return nil
	case types.SignerSetUpdateTx:
		applySignerSetUpdate(e, t)
		return nil
	case types.ProfileUpdateTx:
		return nil
	default:
		return nil
	}
}

func applySignerSetUpdate(e *Entity, t types.SignerSetUpdateTx) {
	remove := make(map[types.SignerId]bool, len(t.RemoveSigners))
	for _, s := range t.RemoveSigners {
		remove[s] = true
	}
	next := make([]types.SignerId, 0, len(e.Signers)+len(t.AddSigners))
	for _, s := range e.Signers {
		if !remove[s] {
			next = append(next, s)
		}
	}
	for _, s := range t.AddSigners {
		if !remove[s] {
			next = append(next, s)
		}
	}
	e.Signers = next
	if t.NewThreshold > 0 {
		e.Threshold = t.NewThreshold
	}
}

// applyAccountTx dispatches one AccountTx variant against acc. Left/right
// role is already fixed on acc by entity id ordering (spec.md §4.1); the
// PaymentAccountTx.Direction field carries which way value moves.
func applyAccountTx(acc *account.Account, accTx types.AccountTx) error {
	switch t := accTx.(type) {
	case types.PaymentAccountTx:
		return acc.ApplyPayment(t.TokenId, t.Amount, account.Direction(t.Direction))
	case types.CreditLimitAccountTx:
		return acc.ApplyCreditLimitUpdate(t.TokenId, account.Side(t.Side), t.NewLimit)
	case types.SettlementAccountTx:
		return acc.ApplySettlement(t.TokenId, t.ResultingDelta, t.NewCollateral, t.JurisdictionHeight)
	default:
		return ErrMalformedTx
	}
}

// ApplyAccountTx applies accTx to acc. Exported so the server can replay
// a committed AccountInputTx against the counterparty's own replica
// (ReconcileAccountInputs) the same way applyAccountTx replays it against
// the sender's replica in commitFramedTx — account.New's canonical
// Left/Right ordering means the identical AccountTx value applies
// verbatim to either side's object, no sign-flip required.
func ApplyAccountTx(acc *account.Account, accTx types.AccountTx) error {
	return applyAccountTx(acc, accTx)
}

// ReconcileAccountInputs returns the counterparty entity id and AccountTx
// for every AccountInputTx committed in f that applied successfully on
// the sender's side. The server uses this to mirror the mutation onto
// ToEntityId's own account replica (see server.reconcileAccountInputs) —
// entity.go itself cannot do this: it only ever owns the sender's side of
// the pair (spec.md §3 Ownership).
func ReconcileAccountInputs(f *Frame) []struct {
	ToEntityId types.EntityId
	AccountTx  types.AccountTx
} {
	var out []struct {
		ToEntityId types.EntityId
		AccountTx  types.AccountTx
	}
	for _, ft := range f.Txs {
		t, ok := ft.Tx.(types.AccountInputTx)
		if !ok || !ft.Outcome.Applied {
			continue
		}
		out = append(out, struct {
			ToEntityId types.EntityId
			AccountTx  types.AccountTx
		}{ToEntityId: t.ToEntityId, AccountTx: t.AccountTx})
	}
	return out
}

// VerifyPostStateHash independently recomputes f's post-state hash from
// e's own committed account state and compares it against f.PostStateHash.
// It re-runs previewFramedTx for every tx in f rather than trusting the
// outcome already recorded on each FramedTx, so a divergent replica (or a
// forged frame) is caught before any signature is attached — the "signers
// independently re-apply to verify the post-state hash" check spec.md
// §4.2/§7 requires of a Signatory.
func VerifyPostStateHash(e *Entity, f *Frame) bool {
	scratch := e.snapshotAccounts()
	for _, ft := range f.Txs {
		previewFramedTx(e, scratch, ft.Tx)
	}
	return hashAccounts(scratch) == f.PostStateHash
}

// OutCapacityTo is a convenience accessor used by the server's routing
// AccountLookup adapter.
func (e *Entity) OutCapacityTo(other types.EntityId, tokenId types.TokenId) (*big.Int, error) {
	acc, ok := e.Accounts[other]
	if !ok {
		return big.NewInt(0), nil
	}
	return acc.OutCapacity(tokenId, e.Id)
}
