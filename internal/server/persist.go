package server

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/gekko3d/playform/internal/terrain"
	"github.com/gekko3d/playform/internal/voxel"
)

// maxPersistBytes caps a decoded snapshot at 4 GiB; anything larger
// is treated as corrupt, not loaded.
const maxPersistBytes = 1 << 32

// snapshot is the gob-encoded shape of terrain.dat: the world seed
// plus every resident voxel cell.
type snapshot struct {
	Seed  int64
	Cells map[voxel.Bounds]voxel.Voxel
}

// SaveTerrain gzip-compresses a gob encoding of (seed, tree) to path.
// Compression keeps terrain.dat small across long-running worlds with
// a lot of resident voxel data; the snapshot is written once at
// shutdown, so ratio matters more here than a streaming codec's setup
// cost.
func SaveTerrain(path string, seed int64, tree *voxel.Tree) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(snapshot{Seed: seed, Cells: tree.Snapshot()}); err != nil {
		return fmt.Errorf("server: encoding terrain snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("server: closing terrain snapshot gzip stream: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("server: writing %s: %w", path, err)
	}
	return nil
}

// LoadTerrain reads and decodes path, returning the seed and voxel
// tree it was saved with. Any read or decode error is returned to the
// caller, which falls back to fresh generation rather than treating
// this as fatal.
func LoadTerrain(path string) (seed int64, tree *voxel.Tree, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("server: opening %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, nil, fmt.Errorf("server: opening gzip stream: %w", err)
	}
	defer gz.Close()

	limited := io.LimitReader(gz, maxPersistBytes)
	var snap snapshot
	if err := gob.NewDecoder(limited).Decode(&snap); err != nil {
		return 0, nil, fmt.Errorf("server: decoding terrain snapshot: %w", err)
	}

	tree = voxel.NewTree()
	tree.Restore(snap.Cells)
	return snap.Seed, tree, nil
}

// RestoreStore loads path into a fresh Store over the decoded seed's
// field (which the caller constructs), or returns ok=false on any
// error so the caller can fall back to a fresh Store. The decoded
// seed is returned so the caller persists the same seed on the next
// shutdown rather than whatever its config says.
func RestoreStore(path string, newField func(seed int64) terrain.Field, unitSize float32) (*terrain.Store, int64, bool) {
	seed, tree, err := LoadTerrain(path)
	if err != nil {
		return nil, 0, false
	}
	store := terrain.NewStore(newField(seed), unitSize)
	store.Tree().Restore(tree.Snapshot())
	return store, seed, true
}
