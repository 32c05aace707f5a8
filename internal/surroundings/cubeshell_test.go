package surroundings

import (
	"sort"
	"testing"

	"github.com/gekko3d/playform/internal/voxel"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func sortPositions(ps []voxel.BlockPosition) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
}

// CubeDiff(a, b, r) and CubeDiff(b, a, r) are set complements with
// respect to the union of the two radius-r cubes.
func TestCubeDiffSymmetry(t *testing.T) {
	a := voxel.BlockPosition{X: 0, Y: 0, Z: 0}
	b := voxel.BlockPosition{X: 3, Y: 1, Z: -2}
	const r = 2

	enteredAB, leftAB := CubeDiff(a, b, r)
	enteredBA, leftBA := CubeDiff(b, a, r)

	sortPositions(enteredAB)
	sortPositions(leftAB)
	sortPositions(enteredBA)
	sortPositions(leftBA)

	// What entered going a->b is exactly what left going b->a, and
	// vice versa.
	if diff := cmp.Diff(enteredAB, leftBA); diff != "" {
		t.Errorf("entered(a->b) != left(b->a): %s", diff)
	}
	if diff := cmp.Diff(leftAB, enteredBA); diff != "" {
		t.Errorf("left(a->b) != entered(b->a): %s", diff)
	}
}

func TestCubeDiffNoMovementIsEmpty(t *testing.T) {
	p := voxel.BlockPosition{X: 5, Y: 5, Z: 5}
	entered, left := CubeDiff(p, p, 3)
	assert.Empty(t, entered)
	assert.Empty(t, left)
}

func TestCubeDiffOneStepShiftsOneFace(t *testing.T) {
	a := voxel.BlockPosition{X: 0, Y: 0, Z: 0}
	b := voxel.BlockPosition{X: 1, Y: 0, Z: 0}
	entered, left := CubeDiff(a, b, 1)
	// Moving one step along X shifts a 3x3x3 cube by one: one face
	// (3x3=9 positions) enters, the opposite face leaves.
	assert.Len(t, entered, 9)
	assert.Len(t, left, 9)
}
