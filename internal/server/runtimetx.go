package server

import (
	"math/big"

	"github.com/xlnnetwork/xln/internal/account"
	"github.com/xlnnetwork/xln/internal/entity"
	"github.com/xlnnetwork/xln/internal/types"
)

// applyRuntimeTx consumes one trusted, monotonic jurisdictional event
// (spec.md §6 On-chain event ingress) by rewriting both entities'
// replicas of the affected account via Account.ApplySettlement. Both
// replicas receive the identical (resultingDelta, newCollateral) pair
// since delta/collateral are canonical Left/Right values, independent
// of which entity owns the replica being mutated (spec.md §3 Ownership).
func (s *Server) applyRuntimeTx(rt types.RuntimeTx) []types.Event {
	ea, okA := s.entities[rt.EntityId]
	eb, okB := s.entities[rt.CounterpartyId]
	if !okA && !okB {
		return []types.Event{{Kind: types.EventTransactionFailed, EntityId: rt.EntityId, Reason: ErrUnknownEntity.Error()}}
	}

	var reference *account.Account
	if okA {
		reference = accountFor(ea, rt.CounterpartyId)
	} else {
		reference = accountFor(eb, rt.EntityId)
	}

	resultingDelta, newCollateral := nextSettlement(reference, rt)

	var events []types.Event
	if okA {
		acc := accountFor(ea, rt.CounterpartyId)
		if err := acc.ApplySettlement(rt.TokenId, resultingDelta, newCollateral, rt.JurisdictionHeight); err != nil {
			events = append(events, types.Event{Kind: types.EventTransactionFailed, EntityId: rt.EntityId, Counterparty: rt.CounterpartyId, Reason: err.Error()})
		}
	}
	if okB {
		acc := accountFor(eb, rt.EntityId)
		if err := acc.ApplySettlement(rt.TokenId, resultingDelta, newCollateral, rt.JurisdictionHeight); err != nil {
			events = append(events, types.Event{Kind: types.EventTransactionFailed, EntityId: rt.CounterpartyId, Counterparty: rt.EntityId, Reason: err.Error()})
		}
	}

	switch rt.Kind {
	case types.RuntimeTxDepositReserve, types.RuntimeTxWithdrawReserve:
		events = append(events, types.Event{Kind: types.EventCollateralUpdated, EntityId: rt.EntityId, Counterparty: rt.CounterpartyId, TokenId: rt.TokenId, Amount: rt.Amount})
	default:
		events = append(events, types.Event{Kind: types.EventReserveUpdated, EntityId: rt.EntityId, Counterparty: rt.CounterpartyId, TokenId: rt.TokenId, Amount: rt.Amount})
	}
	return events
}

// accountFor mirrors entity.accountWith but from outside the package:
// it lazily creates the replica the same way, via the entity's
// exported Accounts map (spec.md §3 Lifecycles: "accounts are created
// lazily on first bilateral contact").
func accountFor(e *entity.Entity, other types.EntityId) *account.Account {
	acc, ok := e.Accounts[other]
	if !ok {
		acc = account.New(e.Id, other)
		e.Accounts[other] = acc
	}
	return acc
}

func nextSettlement(acc *account.Account, rt types.RuntimeTx) (resultingDelta, newCollateral *big.Int) {
	ts, ok := acc.Tokens[rt.TokenId]
	curDelta := big.NewInt(0)
	curCollateral := big.NewInt(0)
	if ok {
		curDelta = ts.Delta
		curCollateral = ts.Collateral
	}

	switch rt.Kind {
	case types.RuntimeTxDepositReserve:
		return new(big.Int).Set(curDelta), new(big.Int).Add(curCollateral, rt.Amount)
	case types.RuntimeTxWithdrawReserve:
		nc := new(big.Int).Sub(curCollateral, rt.Amount)
		if nc.Sign() < 0 {
			nc = big.NewInt(0)
		}
		return new(big.Int).Set(curDelta), nc
	case types.RuntimeTxCreditFromReserve:
		shift := favoringShift(acc, rt.EntityId, rt.Amount)
		return new(big.Int).Add(curDelta, shift), new(big.Int).Set(curCollateral)
	case types.RuntimeTxDebitToReserve:
		shift := favoringShift(acc, rt.EntityId, rt.Amount)
		return new(big.Int).Sub(curDelta, shift), new(big.Int).Set(curCollateral)
	default:
		return new(big.Int).Set(curDelta), new(big.Int).Set(curCollateral)
	}
}

// favoringShift returns the signed adjustment to delta that favors
// entityId: positive delta favors Right (spec.md §3), so favoring Left
// means subtracting amount and favoring Right means adding it.
func favoringShift(acc *account.Account, entityId types.EntityId, amount *big.Int) *big.Int {
	if entityId == acc.Left {
		return new(big.Int).Neg(amount)
	}
	return new(big.Int).Set(amount)
}
