package voxel

import "sync"

// Voxel is the material data stored at a single bounds cell: a signed
// density sample (negative = solid, positive = empty, by convention)
// and a material id for the surface the isosurface extractor emits.
type Voxel struct {
	Density  float32
	Material int16
}

// Generator produces voxel data for a bounds cell not yet resident in
// a Tree. It returns ok=false to refuse generation entirely (used to
// enforce a cap on how coarse a cell a brush edit is allowed to
// materialize).
type Generator func(b Bounds) (Voxel, bool)

// Tree is a sparse, lazily-populated store of voxel data keyed by
// bounds. Unlike a literal octree, parent/child relationships are
// implicit in the bounds algebra (Coarsen/Refine) rather than
// pointer-linked, trading a branch-per-level walk for a single hash
// lookup.
type Tree struct {
	mu    sync.Mutex
	cells map[Bounds]*Voxel
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{cells: make(map[Bounds]*Voxel)}
}

// Peek returns the voxel at b without generating it, if present.
func (t *Tree) Peek(b Bounds) (Voxel, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.cells[b]
	if !ok {
		return Voxel{}, false
	}
	return *v, true
}

// GetOrCreate returns the voxel at b, generating and caching it via
// gen on a miss. A gen refusal is not cached, so a later call with a
// gen willing to produce data for b still succeeds.
func (t *Tree) GetOrCreate(b Bounds, gen Generator) (Voxel, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.cells[b]; ok {
		return *v, true
	}
	v, ok := gen(b)
	if !ok {
		return Voxel{}, false
	}
	t.cells[b] = &v
	return v, true
}

// Set stores v at b unconditionally, overwriting any prior value.
func (t *Tree) Set(b Bounds, v Voxel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cpy := v
	t.cells[b] = &cpy
}

// Changed describes a single cell mutated by a Brush call.
type Changed struct {
	Bounds Bounds
	Voxel  Voxel
}

// EditFunc mutates the voxel at b, returning the new value and
// whether anything actually changed.
type EditFunc func(b Bounds, v Voxel) (Voxel, bool)

// Brush applies edit to every cell in candidates, generating cells
// that don't exist yet via gen, but only when the cell's lg_size is
// no coarser than maxLgSize; coarser candidates are skipped entirely,
// matching the depth cap a brush edit is allowed to materialize down
// to. Brush returns every cell edit actually changed.
func (t *Tree) Brush(candidates []Bounds, gen Generator, maxLgSize int16, edit EditFunc) []Changed {
	var out []Changed
	for _, b := range candidates {
		if b.LgSize > maxLgSize {
			continue
		}
		cur, ok := t.GetOrCreate(b, gen)
		if !ok {
			continue
		}
		next, changed := edit(b, cur)
		if !changed {
			continue
		}
		t.Set(b, next)
		out = append(out, Changed{Bounds: b, Voxel: next})
	}
	return out
}

// Len reports how many cells are currently resident.
func (t *Tree) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cells)
}

// Snapshot returns a shallow copy of every resident cell, for
// persistence.
func (t *Tree) Snapshot() map[Bounds]Voxel {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Bounds]Voxel, len(t.cells))
	for b, v := range t.cells {
		out[b] = *v
	}
	return out
}

// Restore replaces the tree's contents with snapshot, for loading a
// persisted tree.
func (t *Tree) Restore(snapshot map[Bounds]Voxel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cells = make(map[Bounds]*Voxel, len(snapshot))
	for b, v := range snapshot {
		cpy := v
		t.cells[b] = &cpy
	}
}
