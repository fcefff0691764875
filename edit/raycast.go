package edit

import (
	"math"

	"github.com/janelia-flyem/voxterrain/dvid"
)

// RaycastResult is the first solid voxel hit by a ray.
type RaycastResult struct {
	Position         dvid.Point3d
	PreviousPosition dvid.Point3d
	Distance         float64
}

// isSolid returns true for negative signed distances on the SDF channel, or any value
// other than the eraser value on other channels.
func (t *Tool) isSolid(pos dvid.Point3d) bool {
	if t.isSDF() {
		return t.backend.GetVoxelF(pos, t.channel) < 0
	}
	return t.backend.GetVoxel(pos, t.channel) != t.eraserValue
}

// Raycast walks the voxels crossed by a ray (Amanatides & Woo) and returns the first
// solid one within maxDistance, or nil.
func (t *Tool) Raycast(origin, direction dvid.Vector3d, maxDistance float64) *RaycastResult {
	if direction.Length() == 0 {
		return nil
	}
	dir := direction.Normalized()
	pos := origin.Floor()
	prev := pos

	var step dvid.Point3d
	var tMax, tDelta [3]float64
	for i := 0; i < 3; i++ {
		switch {
		case dir[i] > 0:
			step[i] = 1
			tDelta[i] = 1 / dir[i]
			tMax[i] = (float64(pos[i]) + 1 - origin[i]) / dir[i]
		case dir[i] < 0:
			step[i] = -1
			tDelta[i] = -1 / dir[i]
			tMax[i] = (origin[i] - float64(pos[i])) / -dir[i]
		default:
			tDelta[i] = math.Inf(1)
			tMax[i] = math.Inf(1)
		}
	}

	var dist float64
	for dist <= maxDistance {
		if t.isSolid(pos) {
			return &RaycastResult{Position: pos, PreviousPosition: prev, Distance: dist}
		}
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		prev = pos
		pos[axis] += step[axis]
		dist = tMax[axis]
		tMax[axis] += tDelta[axis]
	}
	return nil
}
