package routing

import (
	"math/big"

	"github.com/xlnnetwork/xln/internal/account"
	"github.com/xlnnetwork/xln/internal/types"
)

// AccountLookup gives the router read access to the live bilateral
// account graph. Implemented by the server/entity layer, which owns
// the account replicas (spec.md §3 Ownership).
type AccountLookup interface {
	// Account returns the bilateral account between a and b, if any.
	Account(a, b types.EntityId) (*account.Account, bool)
	// Neighbors returns the counterparties of.
	Neighbors(of types.EntityId) []types.EntityId
}

// RouteCost assigns a cost to traversing one hop. The default is plain
// hop count (spec.md §4.4); fee-aware cost is an explicit extension
// point left unimplemented (spec.md §9 Open Questions).
type RouteCost interface {
	HopCost(from, to types.EntityId) int
}

// HopCountCost is the reference RouteCost: every hop costs 1.
type HopCountCost struct{}

func (HopCountCost) HopCost(_, _ types.EntityId) int { return 1 }

// FindRoute runs a force-bounded BFS (max maxHops edges) over the
// account graph from sender to receiver, returning the first path
// found whose every hop currently has outCapacity >= amount for
// tokenId. BFS naturally returns a minimum-hop path first under a
// uniform HopCountCost; a weighted RouteCost would need a priority
// search instead, which is why RouteCost is accepted but not yet
// consulted for ordering (see SPEC_FULL.md Open Question 2).
func FindRoute(lookup AccountLookup, cost RouteCost, sender, receiver types.EntityId, tokenId types.TokenId, amount *big.Int, maxHops int) ([]types.EntityId, error) {
	if sender == receiver {
		return []types.EntityId{sender}, nil
	}

	type node struct {
		id   types.EntityId
		path []types.EntityId
	}

	visited := map[types.EntityId]bool{sender: true}
	queue := []node{{id: sender, path: []types.EntityId{sender}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if len(cur.path)-1 >= maxHops {
			continue
		}

		for _, next := range sortedNeighbors(lookup, cur.id) {
			if visited[next] {
				continue
			}
			acc, ok := lookup.Account(cur.id, next)
			if !ok {
				continue
			}
			avail, err := acc.OutCapacity(tokenId, cur.id)
			if err != nil || avail.Cmp(amount) < 0 {
				continue
			}

			path := append(append([]types.EntityId{}, cur.path...), next)
			if next == receiver {
				return path, nil
			}
			visited[next] = true
			queue = append(queue, node{id: next, path: path})
		}
	}

	return nil, ErrNoRoute
}

// sortedNeighbors returns of's neighbors in a canonical (ascending id)
// order so BFS exploration order — and therefore which equally-short
// route is returned — is deterministic (spec.md §4.5 determinism).
func sortedNeighbors(lookup AccountLookup, of types.EntityId) []types.EntityId {
	ns := append([]types.EntityId{}, lookup.Neighbors(of)...)
	for i := 1; i < len(ns); i++ {
		for j := i; j > 0 && ns[j].Less(ns[j-1]); j-- {
			ns[j], ns[j-1] = ns[j-1], ns[j]
		}
	}
	return ns
}
