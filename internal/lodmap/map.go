// Package lodmap tracks, per region, the finest level of detail any
// connected owner currently needs. Regions are keyed by whatever
// comparable position type the caller uses, and owners by whatever
// comparable id the caller uses; the map itself only ever compares
// and takes the numeric minimum of requested LODs.
package lodmap

import "sync"

// LOD is a detail level; lower numbers mean finer detail, matching
// voxel.LOD's convention (0 = highest detail).
type LOD int32

// Placeholder is the coarsest possible LOD: a request for a distant
// collision-only body rather than real generated content. It sorts
// after every real (finite) LOD index, so a region with both a real
// request and a Placeholder request resolves to the real one.
const Placeholder LOD = 1<<31 - 1

// Change describes an effective-L transition: Loaded is the region's
// effective L before the operation (nil if it had no owners), Desired
// is its effective L after (nil if the region now has no owners).
// Insert/Remove return a nil *Change when the effective L didn't
// move, even though the underlying request set changed.
type Change struct {
	Loaded  *LOD
	Desired *LOD
}

// Map is a concurrency-safe multi-owner LOD map: for each region R, it
// remembers every (owner, requested L) pair currently in force and
// the effective L, which is always the numeric minimum of the
// requested Ls. A region with no owners is not present in the map.
type Map[R comparable, O comparable] struct {
	mu      sync.Mutex
	regions map[R]map[O]LOD
}

// New returns an empty Map.
func New[R comparable, O comparable]() *Map[R, O] {
	return &Map[R, O]{regions: make(map[R]map[O]LOD)}
}

func effective[O comparable](owners map[O]LOD) (LOD, bool) {
	first := true
	var min LOD
	for _, l := range owners {
		if first || l < min {
			min = l
			first = false
		}
	}
	return min, !first
}

func ptr(l LOD) *LOD { return &l }

// Insert records that owner o requests level l for region r,
// overwriting any previous request by the same owner (there is never
// more than one entry per (R, O)). It returns the region's effective
// L before the insert (nil if absent) and a Change describing the
// transition, or a nil Change if the effective L didn't move.
func (m *Map[R, O]) Insert(r R, o O, l LOD) (prevEffective *LOD, change *Change) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owners, existed := m.regions[r]
	var before *LOD
	if existed {
		if v, ok := effective(owners); ok {
			before = ptr(v)
		}
	} else {
		owners = make(map[O]LOD)
		m.regions[r] = owners
	}

	owners[o] = l

	after, _ := effective(owners)
	if before != nil && *before == after {
		return before, nil
	}
	return before, &Change{Loaded: before, Desired: ptr(after)}
}

// Remove drops owner o's request for region r. If that empties the
// region's request set, the region is evicted from the map entirely.
// It returns the region's effective L before the removal (nil if the
// region was already absent) and a Change, or a nil Change if the
// effective L didn't move (always the case when o held no request).
func (m *Map[R, O]) Remove(r R, o O) (prevEffective *LOD, change *Change) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owners, ok := m.regions[r]
	if !ok {
		return nil, nil
	}
	if _, ok := owners[o]; !ok {
		if v, ok := effective(owners); ok {
			return ptr(v), nil
		}
		return nil, nil
	}

	before, _ := effective(owners)
	delete(owners, o)

	if len(owners) == 0 {
		delete(m.regions, r)
		return ptr(before), &Change{Loaded: ptr(before), Desired: nil}
	}

	after, _ := effective(owners)
	if after == before {
		return ptr(before), nil
	}
	return ptr(before), &Change{Loaded: ptr(before), Desired: ptr(after)}
}

// Get returns the L that owner o currently requests for r (if any)
// plus a snapshot of every current request on r.
func (m *Map[R, O]) Get(r R, o O) (ownerL *LOD, all map[O]LOD) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owners, ok := m.regions[r]
	if !ok {
		return nil, nil
	}
	if l, ok := owners[o]; ok {
		ownerL = ptr(l)
	}
	all = make(map[O]LOD, len(owners))
	for k, v := range owners {
		all[k] = v
	}
	return ownerL, all
}

// RegionsOf returns every region owner o currently holds a request
// on, for bulk eviction when an owner disconnects or despawns.
func (m *Map[R, O]) RegionsOf(o O) []R {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []R
	for r, owners := range m.regions {
		if _, ok := owners[o]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Effective returns the region's current effective L, or false if the
// region has no owners.
func (m *Map[R, O]) Effective(r R) (LOD, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owners, ok := m.regions[r]
	if !ok {
		return 0, false
	}
	return effective(owners)
}

// Len reports how many regions currently have at least one owner.
func (m *Map[R, O]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regions)
}
