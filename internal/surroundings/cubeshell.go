package surroundings

import "github.com/gekko3d/playform/internal/voxel"

// CubeDiff returns the regions that entered and left a Chebyshev-radius
// r cube as the tracked position moves from prev to cur. Both cubes
// are enumerated and the symmetric difference is split by which side
// each region belongs to.
func CubeDiff(prev, cur voxel.BlockPosition, r int32) (entered, left []voxel.BlockPosition) {
	if prev == cur {
		return nil, nil
	}
	prevCube := make(map[voxel.BlockPosition]struct{}, cubeVolume(r))
	forEachInCube(prev, r, func(p voxel.BlockPosition) { prevCube[p] = struct{}{} })

	curCube := make(map[voxel.BlockPosition]struct{}, cubeVolume(r))
	forEachInCube(cur, r, func(p voxel.BlockPosition) {
		curCube[p] = struct{}{}
		if _, ok := prevCube[p]; !ok {
			entered = append(entered, p)
		}
	})
	for p := range prevCube {
		if _, ok := curCube[p]; !ok {
			left = append(left, p)
		}
	}
	return entered, left
}

func cubeVolume(r int32) int {
	side := int64(2*r + 1)
	return int(side * side * side)
}

func forEachInCube(center voxel.BlockPosition, r int32, f func(voxel.BlockPosition)) {
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				f(voxel.BlockPosition{X: center.X + dx, Y: center.Y + dy, Z: center.Z + dz})
			}
		}
	}
}
