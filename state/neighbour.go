package state

import (
	"net/netip"
	"slices"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// NeighbourRecord holds the link metrics last heard from a neighbour.
type NeighbourRecord struct {
	Id             NodeId
	LastSeen       float64 // simulated seconds
	MeanETX        float64
	ResidualEnergy float64
	QueueLength    float64
	Via            netip.AddrPort // transport source, zero when unknown
}

// NeighbourTable tracks every neighbour a node has heard a Hello from.
// Entries go stale StalenessFactor hello intervals after the last Hello,
// but eviction only happens in Sweep; lookups always see the full table,
// stale entries included. The table is distinct from the forwarding
// neighbour list, which is maintained by the router.
type NeighbourTable struct {
	cache      *ttlcache.Cache[NodeId, NeighbourRecord]
	staleAfter float64 // seconds of silence before Sweep evicts
}

func NewNeighbourTable(staleAfter time.Duration) *NeighbourTable {
	return &NeighbourTable{
		cache:      ttlcache.New[NodeId, NeighbourRecord](),
		staleAfter: staleAfter.Seconds(),
	}
}

// Upsert overwrites the record for rec.Id. LastSeen never moves backwards.
func (t *NeighbourTable) Upsert(rec NeighbourRecord) {
	if old := t.cache.Get(rec.Id); old != nil && old.Value().LastSeen > rec.LastSeen {
		rec.LastSeen = old.Value().LastSeen
	}
	// staleness is judged against LastSeen in Sweep, not by the cache
	t.cache.Set(rec.Id, rec, ttlcache.NoTTL)
}

func (t *NeighbourTable) Get(id NodeId) (NeighbourRecord, bool) {
	item := t.cache.Get(id)
	if item == nil {
		return NeighbourRecord{}, false
	}
	return item.Value(), true
}

func (t *NeighbourTable) Ids() []NodeId {
	ids := t.cache.Keys()
	slices.Sort(ids)
	return ids
}

func (t *NeighbourTable) Len() int {
	return t.cache.Len()
}

// Sweep evicts entries whose Hello has gone silent past the staleness
// threshold, measured against now, and returns how many were removed.
func (t *NeighbourTable) Sweep(now float64) int {
	var stale []NodeId
	t.cache.Range(func(item *ttlcache.Item[NodeId, NeighbourRecord]) bool {
		if now-item.Value().LastSeen > t.staleAfter {
			stale = append(stale, item.Key())
		}
		return true
	})
	for _, id := range stale {
		t.cache.Delete(id)
	}
	return len(stale)
}
