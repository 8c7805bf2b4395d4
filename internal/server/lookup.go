package server

import (
	"github.com/xlnnetwork/xln/internal/account"
	"github.com/xlnnetwork/xln/internal/canon"
	"github.com/xlnnetwork/xln/internal/types"
)

// accountLookup adapts the server's entity map to routing.AccountLookup
// (spec.md §3 Ownership: the router never owns accounts, only borrows
// read access to whoever does).
type accountLookup struct {
	srv *Server
}

func (l *accountLookup) Account(a, b types.EntityId) (*account.Account, bool) {
	if ea, ok := l.srv.entities[a]; ok {
		if acc, ok2 := ea.Accounts[b]; ok2 {
			return acc, true
		}
	}
	if eb, ok := l.srv.entities[b]; ok {
		if acc, ok2 := eb.Accounts[a]; ok2 {
			return acc, true
		}
	}
	return nil, false
}

func (l *accountLookup) Neighbors(of types.EntityId) []types.EntityId {
	e, ok := l.srv.entities[of]
	if !ok {
		return nil
	}
	return canon.SortedBytesKeys(e.Accounts)
}
