// Package replay implements the deterministic time-travel runtime: a
// reducer loop around internal/server, a history store of every input
// ever applied, periodic state snapshots, and an observer cursor that
// can pin to any past tick (spec.md §4.5).
//
// Grounded on LeJamon-goXRPLd's internal/core/ledger/manager/cache.go
// (recent-frame LRU + completeness tracking) and
// internal/storage/database/pebble (append-log backing store).
package replay

import (
	"math/big"

	"github.com/xlnnetwork/xln/internal/account"
	"github.com/xlnnetwork/xln/internal/canon"
	"github.com/xlnnetwork/xln/internal/entity"
	"github.com/xlnnetwork/xln/internal/server"
	"github.com/xlnnetwork/xln/internal/types"
)

// TokenState is the serializable mirror of account.TokenState.
type TokenState struct {
	TokenId          types.TokenId
	Delta            *big.Int
	Collateral       *big.Int
	LeftCreditLimit  *big.Int
	RightCreditLimit *big.Int
}

// AccountState is the serializable mirror of one account.Account.
type AccountState struct {
	Left, Right            types.EntityId
	Height                 uint64
	LastJurisdictionHeight uint64
	Tokens                 []TokenState
}

// EntityState is the serializable, canonically-ordered mirror of one
// entity.Entity's committed state (never its in-flight candidate,
// which is transient consensus scratch, not replay-relevant).
type EntityState struct {
	Id                     types.EntityId
	Signers                []types.SignerId
	Threshold              int
	Height                 uint64
	LastCommittedFrameHash canon.Hash
	Accounts               []AccountState
}

// State is a full, canonically-ordered snapshot of every registered
// entity's committed state at one tick (spec.md §4.5 time-travel view).
type State struct {
	Tick     uint64
	Entities []EntityState
}

// Capture builds a State from the live server, walking entities and
// their accounts in canonical ascending-id order so two equivalent
// runs always produce byte-identical States (spec.md §4.5
// determinism).
func Capture(srv *server.Server) State {
	entities := srv.Entities() // already sorted ascending by Entities()
	st := State{Tick: srv.CurrentTick(), Entities: make([]EntityState, 0, len(entities))}
	for _, e := range entities {
		st.Entities = append(st.Entities, captureEntity(e))
	}
	return st
}

func captureEntity(e *entity.Entity) EntityState {
	es := EntityState{
		Id:                     e.Id,
		Signers:                append([]types.SignerId{}, e.Signers...),
		Threshold:              e.Threshold,
		Height:                 e.Height,
		LastCommittedFrameHash: e.LastCommittedFrameHash,
	}
	for _, cp := range canon.SortedBytesKeys(e.Accounts) {
		es.Accounts = append(es.Accounts, captureAccount(e.Accounts[cp]))
	}
	return es
}

func captureAccount(acc *account.Account) AccountState {
	as := AccountState{
		Left:                   acc.Left,
		Right:                  acc.Right,
		Height:                 acc.Height,
		LastJurisdictionHeight: acc.LastJurisdictionHeight,
	}
	for _, tokenId := range canon.SortedKeys(acc.Tokens) {
		ts := acc.Tokens[tokenId]
		as.Tokens = append(as.Tokens, TokenState{
			TokenId:          tokenId,
			Delta:            new(big.Int).Set(ts.Delta),
			Collateral:       new(big.Int).Set(ts.Collateral),
			LeftCreditLimit:  new(big.Int).Set(ts.LeftCreditLimit),
			RightCreditLimit: new(big.Int).Set(ts.RightCreditLimit),
		})
	}
	return as
}

// Hash computes a canonical hash of a State, generalized from
// ledger.Ledger.Close()'s fixed-field-order header hash
// (calculateLedgerHash) to XLN's entity-map/account-map/token-delta
// canonicalization (spec.md §4.5). Fields are already written in
// canonical (ascending id) order by Capture, so Hash simply walks them.
func Hash(st State) canon.Hash {
	h := canon.NewHasher().WriteUint64(st.Tick)
	for _, es := range st.Entities {
		h.WriteBytes(es.Id[:]).WriteUint64(es.Height).WriteHash(es.LastCommittedFrameHash)
		for _, s := range es.Signers {
			h.WriteBytes(s[:])
		}
		for _, as := range es.Accounts {
			h.WriteBytes(as.Left[:]).WriteBytes(as.Right[:]).WriteUint64(as.Height)
			for _, ts := range as.Tokens {
				h.WriteUint32(uint32(ts.TokenId))
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
		}
	}
	return h.Sum()
}

