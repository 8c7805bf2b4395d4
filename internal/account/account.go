// Package account implements the bilateral account ledger algebra:
// apply transactions, maintain the capacity invariant, and produce a
// deterministic post-state (spec.md §4.1).
//
// Grounded on LeJamon-goXRPLd's internal/core/tx/ripple_state.go (the
// low/high ordered trust-line pair with a signed balance and two
// limits) generalized with an explicit collateral field and
// multi-token deltas, and on apply_paychannel.go's create/fund/claim
// lifecycle for the reserve/commit/release shape used by the routing
// package.
package account

import (
	"fmt"
	"math/big"

	"github.com/xlnnetwork/xln/internal/canon"
	"github.com/xlnnetwork/xln/internal/types"
)

// Direction of a payment along an account.
type Direction int

const (
	// LeftToRight moves value from the left party to the right party,
	// increasing delta.
	LeftToRight Direction = iota
	// RightToLeft moves value from the right party to the left party,
	// decreasing delta.
	RightToLeft
)

// TokenState holds the per-token ledger position for one account.
type TokenState struct {
	Delta            *big.Int // signed; positive favors Right (spec.md §3)
	Collateral       *big.Int // nonneg, jointly locked
	LeftCreditLimit  *big.Int // nonneg, credit Left grants Right
	RightCreditLimit *big.Int // nonneg, credit Right grants Left
}

func newTokenState() *TokenState {
	return &TokenState{
		Delta:            big.NewInt(0),
		Collateral:       big.NewInt(0),
		LeftCreditLimit:  big.NewInt(0),
		RightCreditLimit: big.NewInt(0),
	}
}

func (t *TokenState) clone() *TokenState {
	return &TokenState{
		Delta:            new(big.Int).Set(t.Delta),
		Collateral:       new(big.Int).Set(t.Collateral),
		LeftCreditLimit:  new(big.Int).Set(t.LeftCreditLimit),
		RightCreditLimit: new(big.Int).Set(t.RightCreditLimit),
	}
}

// Account is the bilateral ledger between an ordered pair (Left, Right)
// where Left sorts lexicographically before Right (spec.md §3).
type Account struct {
	Left, Right types.EntityId

	// Tokens maps tokenId -> per-token ledger state. Default is
	// per-token collateral; SharedCollateral pools a single collateral
	// value across all tokens when set (see SPEC_FULL.md Open Question 1).
	Tokens           map[types.TokenId]*TokenState
	SharedCollateral bool
	sharedCollateral *big.Int

	Height                 uint64
	LastCommittedFrameHash canon.Hash
	LastJurisdictionHeight uint64

	// Reserves tracks in-flight multi-hop payment holds keyed by
	// payment id (spec.md §4.4). Populated/drained by internal/routing.
	Reserves map[[16]byte]*Reservation
}

// Reservation is a pending capacity hold recorded during the first
// phase of a multi-hop payment (spec.md §4.4, glossary).
type Reservation struct {
	PaymentID    [16]byte
	TokenId      types.TokenId
	Amount       *big.Int
	Direction    Direction
	ExpiresAtTick uint64
}

// New creates an account between the two entities, assigning Left/Right
// by lexicographic order of their ids (spec.md §3).
func New(a, b types.EntityId) *Account {
	left, right, _ := types.OrderedPair(a, b)
	return &Account{
		Left:     left,
		Right:    right,
		Tokens:   make(map[types.TokenId]*TokenState),
		Reserves: make(map[[16]byte]*Reservation),
	}
}

func (a *Account) token(id types.TokenId) *TokenState {
	ts, ok := a.Tokens[id]
	if !ok {
		ts = newTokenState()
		a.Tokens[id] = ts
	}
	return ts
}

// HasToken reports whether tokenId has ever been touched on this account.
func (a *Account) HasToken(id types.TokenId) bool {
	_, ok := a.Tokens[id]
	return ok
}

// collateralOf returns the collateral big.Int backing tokenId, honoring
// the SharedCollateral mode.
func (a *Account) collateralOf(ts *TokenState) *big.Int {
	if a.SharedCollateral {
		if a.sharedCollateral == nil {
			a.sharedCollateral = big.NewInt(0)
		}
		return a.sharedCollateral
	}
	return ts.Collateral
}

// reservedAmount sums outstanding reservations against tokenId in the
// given direction, so that capacity checks see reserved value as
// already spoken for (spec.md §4.4 "Atomicity": reserved capacity is
// removed from outCapacity between reserve and commit).
func (a *Account) reservedAmount(tokenId types.TokenId, dir Direction) *big.Int {
	total := big.NewInt(0)
	for _, r := range a.Reserves {
		if r.TokenId == tokenId && r.Direction == dir {
			total.Add(total, r.Amount)
		}
	}
	return total
}

// checkInvariant verifies -leftCreditLimit <= delta <= collateral+rightCreditLimit.
func checkInvariant(ts *TokenState, collateral *big.Int) error {
	floor := new(big.Int).Neg(ts.LeftCreditLimit)
	ceil := new(big.Int).Add(collateral, ts.RightCreditLimit)
	if ts.Delta.Cmp(floor) < 0 || ts.Delta.Cmp(ceil) > 0 {
		return ErrCapacityExceeded
	}
	return nil
}

// ApplyPayment moves amount (positive) along direction, respecting the
// capacity invariant for tokenId. On success, delta and height are
// updated. This does not consult outstanding reservations — routing
// reserves/releases capacity explicitly via Reserve/Release/Commit.
func (a *Account) ApplyPayment(tokenId types.TokenId, amount *big.Int, dir Direction) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	ts := a.token(tokenId)
	collateral := a.collateralOf(ts)

	next := new(big.Int).Set(ts.Delta)
	switch dir {
	case LeftToRight:
		next.Add(next, amount)
	case RightToLeft:
		next.Sub(next, amount)
	default:
		return ErrUnknownDirection
	}

	floor := new(big.Int).Neg(ts.LeftCreditLimit)
	ceil := new(big.Int).Add(collateral, ts.RightCreditLimit)
	if next.Cmp(floor) < 0 || next.Cmp(ceil) > 0 {
		return ErrCapacityExceeded
	}

	ts.Delta = next
	a.Height++
	return nil
}

// Side identifies which party of an ordered account pair a limit or
// view belongs to.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

// ApplyCreditLimitUpdate changes the credit limit extended by side.
// Lowering the limit below current utilization fails (spec.md §4.1).
func (a *Account) ApplyCreditLimitUpdate(tokenId types.TokenId, side Side, newLimit *big.Int) error {
	if newLimit == nil || newLimit.Sign() < 0 {
		return ErrInvalidAmount
	}
	ts := a.token(tokenId)
	collateral := a.collateralOf(ts)

	switch side {
	case SideLeft:
		// leftCreditLimit bounds how negative delta may go.
		floor := new(big.Int).Neg(newLimit)
		if ts.Delta.Cmp(floor) < 0 {
			return ErrCreditLimitBelowUtilization
		}
		ts.LeftCreditLimit = new(big.Int).Set(newLimit)
	case SideRight:
		ceil := new(big.Int).Add(collateral, newLimit)
		if ts.Delta.Cmp(ceil) > 0 {
			return ErrCreditLimitBelowUtilization
		}
		ts.RightCreditLimit = new(big.Int).Set(newLimit)
	default:
		return fmt.Errorf("account: unknown side %d", side)
	}

	a.Height++
	return nil
}

// ApplySettlement atomically rewrites delta and collateral from an
// off-band on-chain event. Never fails from in-band capacity
// reasoning; rejected only if jurisdictionHeight does not strictly
// increase (spec.md §4.1).
func (a *Account) ApplySettlement(tokenId types.TokenId, resultingDelta, newCollateral *big.Int, jurisdictionHeight uint64) error {
	if jurisdictionHeight <= a.LastJurisdictionHeight {
		return ErrSettlementRegressed
	}
	if newCollateral == nil || newCollateral.Sign() < 0 {
		return ErrInvalidAmount
	}
	ts := a.token(tokenId)
	ts.Delta = new(big.Int).Set(resultingDelta)
	if a.SharedCollateral {
		a.sharedCollateral = new(big.Int).Set(newCollateral)
	} else {
		ts.Collateral = new(big.Int).Set(newCollateral)
	}
	a.LastJurisdictionHeight = jurisdictionHeight
	a.Height++
	return nil
}

// View is the seven named regions deriveView produces: a decomposition
// of the capacity line into the three zones (own credit, collateral,
// peer credit) as seen from an inbound and an outbound angle, plus the
// raw ledger delta. This is the single source of truth for UI and
// router capacity queries (spec.md §4.1).
type View struct {
	OutOwnCredit  *big.Int
	InCollateral  *big.Int
	OutPeerCredit *big.Int
	InOwnCredit   *big.Int
	OutCollateral *big.Int
	InPeerCredit  *big.Int
	Delta         *big.Int

	OutCapacity *big.Int
	InCapacity  *big.Int
}

func clampBig(v, lo, hi *big.Int) *big.Int {
	if v.Cmp(lo) < 0 {
		return new(big.Int).Set(lo)
	}
	if v.Cmp(hi) > 0 {
		return new(big.Int).Set(hi)
	}
	return new(big.Int).Set(v)
}

func maxBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// DeriveView computes the capacity breakdown for tokenId as seen from
// perspective (SideLeft or SideRight). The left/right role assignment
// is fixed by entity id ordering at account creation time and never
// changes with perspective (spec.md §4.1 tie-break rule). The regions
// are computed for Left; the Right view is the same split with every
// out-region exchanged for its in-region counterpart, so Left's
// OutCapacity equals Right's InCapacity and vice versa.
func (a *Account) DeriveView(tokenId types.TokenId, perspective Side) (View, error) {
	ts, ok := a.Tokens[tokenId]
	if !ok {
		return View{}, ErrUnknownToken
	}
	collateral := a.collateralOf(ts)

	selfCreditLimit := ts.LeftCreditLimit
	peerCreditLimit := ts.RightCreditLimit
	x := ts.Delta

	zero := big.NewInt(0)
	negX := new(big.Int).Neg(x)
	topOfRange := new(big.Int).Add(collateral, peerCreditLimit)

	outOwnCredit := clampBig(negX, zero, selfCreditLimit)
	outCollateral := clampBig(new(big.Int).Sub(collateral, maxBig(x, zero)), zero, collateral)
	outPeerCredit := clampBig(new(big.Int).Sub(topOfRange, maxBig(x, collateral)), zero, peerCreditLimit)

	inOwnCredit := clampBig(new(big.Int).Add(x, selfCreditLimit), zero, selfCreditLimit)
	inCollateral := clampBig(x, zero, collateral)
	inPeerCredit := clampBig(new(big.Int).Sub(x, collateral), zero, peerCreditLimit)

	if perspective == SideRight {
		outOwnCredit, inPeerCredit = inPeerCredit, outOwnCredit
		outCollateral, inCollateral = inCollateral, outCollateral
		outPeerCredit, inOwnCredit = inOwnCredit, outPeerCredit
	}

	outCapacity := new(big.Int).Add(outOwnCredit, new(big.Int).Add(outCollateral, outPeerCredit))
	inCapacity := new(big.Int).Add(inOwnCredit, new(big.Int).Add(inCollateral, inPeerCredit))

	return View{
		OutOwnCredit:  outOwnCredit,
		InCollateral:  inCollateral,
		OutPeerCredit: outPeerCredit,
		InOwnCredit:   inOwnCredit,
		OutCollateral: outCollateral,
		InPeerCredit:  inPeerCredit,
		Delta:         new(big.Int).Set(ts.Delta),
		OutCapacity:   outCapacity,
		InCapacity:    inCapacity,
	}, nil
}

// OutCapacity returns how much from can still send on tokenId
// (rightCreditLimit+collateral-delta when from is Left,
// leftCreditLimit+delta when from is Right), minus from's outstanding
// reservations and floored at zero; a convenience wrapper around
// DeriveView used by the router's hop-by-hop capacity checks.
func (a *Account) OutCapacity(tokenId types.TokenId, from types.EntityId) (*big.Int, error) {
	perspective := a.sideOf(from)
	v, err := a.DeriveView(tokenId, perspective)
	if err != nil {
		return nil, err
	}
	reserved := a.reservedAmount(tokenId, a.directionFrom(from))
	avail := new(big.Int).Sub(v.OutCapacity, reserved)
	if avail.Sign() < 0 {
		avail = big.NewInt(0)
	}
	return avail, nil
}

func (a *Account) sideOf(id types.EntityId) Side {
	if id == a.Left {
		return SideLeft
	}
	return SideRight
}

func (a *Account) directionFrom(from types.EntityId) Direction {
	if from == a.Left {
		return LeftToRight
	}
	return RightToLeft
}

// Counterparty returns the entity on the other side of self.
func (a *Account) Counterparty(self types.EntityId) types.EntityId {
	if self == a.Left {
		return a.Right
	}
	return a.Left
}

// Snapshot returns an independent deep copy of the account, used by
// the replay layer's time-travel view (spec.md §4.5).
func (a *Account) Snapshot() *Account {
	cp := &Account{
		Left:                   a.Left,
		Right:                  a.Right,
		SharedCollateral:       a.SharedCollateral,
		Height:                 a.Height,
		LastCommittedFrameHash: a.LastCommittedFrameHash,
		LastJurisdictionHeight: a.LastJurisdictionHeight,
		Tokens:                 make(map[types.TokenId]*TokenState, len(a.Tokens)),
		Reserves:               make(map[[16]byte]*Reservation, len(a.Reserves)),
	}
	if a.sharedCollateral != nil {
		cp.sharedCollateral = new(big.Int).Set(a.sharedCollateral)
	}
	for k, v := range a.Tokens {
		cp.Tokens[k] = v.clone()
	}
	for k, v := range a.Reserves {
		r := *v
		r.Amount = new(big.Int).Set(v.Amount)
		cp.Reserves[k] = &r
	}
	return cp
}

// Hash computes a canonical hash of the account's committed state,
// iterating Tokens in ascending tokenId order (spec.md §4.1
// algorithmic notes).
func (a *Account) Hash() canon.Hash {
	h := canon.NewHasher()
	h.WriteBytes(a.Left[:]).WriteBytes(a.Right[:])
	h.WriteUint64(a.Height)
	for _, id := range canon.SortedKeys(a.Tokens) {
		ts := a.Tokens[id]
		h.WriteUint32(uint32(id))
		if ts.Delta.Sign() < 0 {
			h.WriteBytes([]byte{0})
		} else {
			h.WriteBytes([]byte{1})
		}
		h.WriteVarBytes(ts.Delta.Bytes())
		h.WriteVarBytes(ts.Collateral.Bytes())
		h.WriteVarBytes(ts.LeftCreditLimit.Bytes())
		h.WriteVarBytes(ts.RightCreditLimit.Bytes())
	}
	return h.Sum()
}
