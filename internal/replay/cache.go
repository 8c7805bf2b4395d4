package replay

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// StateCache keeps recently-captured States in memory and tracks which
// ticks have a durable snapshot on disk. Runtime fills it via Put and
// MarkSnapshot.
//
// Grounded on LedgerCache (recentBySeq LRU) and CompleteLedgerSet
// (sorted non-overlapping range tracking), generalized from ledger
// sequence numbers to server ticks.
type StateCache struct {
	mu     sync.RWMutex
	recent *lru.Cache[uint64, State]

	// snapshotTicks is a sorted, deduplicated list of ticks that have a
	// durable snapshot, mirroring CompleteLedgerSet's range tracking but
	// simplified to single points since snapshots are sparse, not
	// contiguous.
	snapshotTicks []uint64
}

// NewStateCache creates a cache holding up to maxRecent States in memory.
func NewStateCache(maxRecent int) (*StateCache, error) {
	if maxRecent <= 0 {
		maxRecent = 256
	}
	c, err := lru.New[uint64, State](maxRecent)
	if err != nil {
		return nil, err
	}
	return &StateCache{recent: c}, nil
}

// Get returns the cached State for tick, if present.
func (c *StateCache) Get(tick uint64) (State, bool) {
	return c.recent.Get(tick)
}

// Put stores st in the cache, keyed by its own Tick.
func (c *StateCache) Put(st State) {
	c.recent.Add(st.Tick, st)
}

// MarkSnapshot records that tick now has a durable snapshot.
func (c *StateCache) MarkSnapshot(tick uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := sort.Search(len(c.snapshotTicks), func(i int) bool { return c.snapshotTicks[i] >= tick })
	if i < len(c.snapshotTicks) && c.snapshotTicks[i] == tick {
		return
	}
	c.snapshotTicks = append(c.snapshotTicks, 0)
	copy(c.snapshotTicks[i+1:], c.snapshotTicks[i:])
	c.snapshotTicks[i] = tick
}

// NearestSnapshotAtOrBefore returns the latest recorded snapshot tick
// that is <= tick, i.e. the point a replay could start forward from.
func (c *StateCache) NearestSnapshotAtOrBefore(tick uint64) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := sort.Search(len(c.snapshotTicks), func(i int) bool { return c.snapshotTicks[i] > tick })
	if i == 0 {
		return 0, false
	}
	return c.snapshotTicks[i-1], true
}
