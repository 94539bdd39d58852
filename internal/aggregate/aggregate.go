// Package aggregate merges contributions from multiple bundle versions into
// one current view per entity. It owns the only mutable shared state in the
// pipeline; everything upstream operates on immutable inputs.
package aggregate

import (
	"hash/fnv"
	"sync"

	"bundleindex/pkg/domain"
)

const shardCount = 32

// Aggregator applies contributions under per-entity serialization: a sharded
// mutex map guarantees all work for one entity id runs under a single owner
// while distinct entities proceed in parallel. Bundle versions are
// timestamp-derived ISO-8601 strings, so lexicographic comparison is version
// comparison.
type Aggregator struct {
	singles map[string]bool
	shards  [shardCount]shard
}

type shard struct {
	mu       sync.Mutex
	entities map[string]*entityState
}

type entityState struct {
	entityType string
	revision   uint64
	bundles    map[string]bundleRecord // keyed by bundle uuid
}

// bundleRecord is the latest contribution seen from one bundle uuid.
type bundleRecord struct {
	version string
	deleted bool
	facets  map[string]domain.Facet
}

// New constructs an Aggregator. singles names the facets resolved by
// winner-takes-all instead of multi-value union; the winner is the
// contributing bundle with the highest (version, uuid) pair, so resolution is
// deterministic regardless of arrival order.
func New(singles map[string]bool) *Aggregator {
	a := &Aggregator{singles: singles}
	for i := range a.shards {
		a.shards[i].entities = make(map[string]*entityState)
	}
	return a
}

// Apply folds one contribution into the entity's state and returns the
// refreshed aggregate. A contribution older than the recorded version for its
// bundle uuid is discarded with StaleContributionError; re-applying the
// current contribution is a no-op that returns the unchanged aggregate.
func (a *Aggregator) Apply(c domain.Contribution) (domain.Aggregate, error) {
	key := stateKey(c.EntityType, c.EntityID)
	sh := &a.shards[shardFor(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.entities[key]
	if !ok {
		st = &entityState{entityType: c.EntityType, bundles: make(map[string]bundleRecord)}
		sh.entities[key] = st
	}

	if prev, seen := st.bundles[c.BundleUUID]; seen {
		if c.BundleVersion < prev.version {
			return a.reduce(c.EntityID, st), domain.StaleContributionError{
				EntityID:      c.EntityID,
				BundleUUID:    c.BundleUUID,
				BundleVersion: c.BundleVersion,
				KnownVersion:  prev.version,
			}
		}
		if c.BundleVersion == prev.version && c.Deleted == prev.deleted {
			// Exact redelivery; idempotent.
			return a.reduce(c.EntityID, st), nil
		}
	}

	st.bundles[c.BundleUUID] = bundleRecord{
		version: c.BundleVersion,
		deleted: c.Deleted,
		facets:  copyFacets(c.Facets),
	}
	st.revision++
	return a.reduce(c.EntityID, st), nil
}

// Get returns the current aggregate for an entity, if any contribution has
// ever been recorded for it.
func (a *Aggregator) Get(entityType, entityID string) (domain.Aggregate, bool) {
	key := stateKey(entityType, entityID)
	sh := &a.shards[shardFor(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.entities[key]
	if !ok {
		return domain.Aggregate{EntityID: entityID, EntityType: entityType, State: domain.StateAbsent}, false
	}
	return a.reduce(entityID, st), true
}

// reduce recomputes the merged view from the per-bundle records. Caller holds
// the shard lock; the returned aggregate shares no memory with internal state.
func (a *Aggregator) reduce(entityID string, st *entityState) domain.Aggregate {
	agg := domain.Aggregate{
		EntityID:   entityID,
		EntityType: st.entityType,
		Revision:   st.revision,
		Versions:   make(map[string]string, len(st.bundles)),
	}
	var liveUUIDs []string
	for uuid, rec := range st.bundles {
		agg.Versions[uuid] = rec.version
		if !rec.deleted {
			liveUUIDs = append(liveUUIDs, uuid)
		}
	}
	if len(liveUUIDs) == 0 {
		agg.State = domain.StateTombstoned
		return agg
	}
	agg.State = domain.StateLive
	agg.Facets = make(map[string]domain.Facet)

	// Union of facet names across live bundles; every named facet appears in
	// the aggregate even when every live bundle marked it not-present.
	for _, uuid := range liveUUIDs {
		for name := range st.bundles[uuid].facets {
			if _, done := agg.Facets[name]; done {
				continue
			}
			if a.singles[name] {
				agg.Facets[name] = a.resolveSingle(st, liveUUIDs, name)
			} else {
				agg.Facets[name] = mergeMulti(st, liveUUIDs, name)
			}
		}
	}
	return agg
}

// resolveSingle picks the present value from the live bundle with the highest
// (version, uuid) pair.
func (a *Aggregator) resolveSingle(st *entityState, liveUUIDs []string, name string) domain.Facet {
	var winner domain.Facet
	var winnerVersion, winnerUUID string
	found := false
	for _, uuid := range liveUUIDs {
		rec := st.bundles[uuid]
		f, ok := rec.facets[name]
		if !ok || !f.Present {
			continue
		}
		if !found || rec.version > winnerVersion || (rec.version == winnerVersion && uuid > winnerUUID) {
			winner, winnerVersion, winnerUUID, found = f, rec.version, uuid, true
		}
	}
	if !found {
		return domain.AbsentFacet()
	}
	return domain.Facet{Present: true, Values: append([]string(nil), winner.Values...)}
}

func mergeMulti(st *entityState, liveUUIDs []string, name string) domain.Facet {
	var values []string
	present := false
	for _, uuid := range liveUUIDs {
		f, ok := st.bundles[uuid].facets[name]
		if !ok || !f.Present {
			continue
		}
		present = true
		values = append(values, f.Values...)
	}
	if !present {
		return domain.AbsentFacet()
	}
	return domain.Facet{Present: true, Values: domain.NormalizeValues(values)}
}

func copyFacets(in map[string]domain.Facet) map[string]domain.Facet {
	if in == nil {
		return nil
	}
	out := make(map[string]domain.Facet, len(in))
	for k, v := range in {
		out[k] = domain.Facet{Present: v.Present, Values: append([]string(nil), v.Values...)}
	}
	return out
}

func stateKey(entityType, entityID string) string {
	return entityType + "/" + entityID
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}
