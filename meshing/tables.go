package meshing

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/janelia-flyem/voxterrain/dvid"
)

// Side is a face of a unit cube.  Sides are ordered -X, +X, -Y, +Y, -Z, +Z.
type Side uint8

const (
	SideNegativeX Side = iota
	SidePositiveX
	SideNegativeY
	SidePositiveY
	SideNegativeZ
	SidePositiveZ

	SideCount = 6
)

const (
	CornerCount = 8
	EdgeCount   = 12
)

var sideNames = [SideCount]string{"-X", "+X", "-Y", "+Y", "-Z", "+Z"}

func (s Side) String() string {
	if int(s) < SideCount {
		return sideNames[s]
	}
	return "unknown side"
}

// Axis returns 0, 1 or 2 for the X, Y or Z axis the side is perpendicular to.
func (s Side) Axis() int {
	return int(s) / 2
}

// Positive returns true if the side faces toward the positive end of its axis.
func (s Side) Positive() bool {
	return s&1 == 1
}

// Opposite returns the side on the other end of the same axis.
func (s Side) Opposite() Side {
	return s ^ 1
}

// Corner c sits at (c&1, (c>>1)&1, (c>>2)&1).
var CornerPositions = [CornerCount]mgl32.Vec3{
	{0, 0, 0},
	{1, 0, 0},
	{0, 1, 0},
	{1, 1, 0},
	{0, 0, 1},
	{1, 0, 1},
	{0, 1, 1},
	{1, 1, 1},
}

// CornerINormals point from the cube center toward each corner.
var CornerINormals = [CornerCount]dvid.Point3d{
	{-1, -1, -1},
	{1, -1, -1},
	{-1, 1, -1},
	{1, 1, -1},
	{-1, -1, 1},
	{1, -1, 1},
	{-1, 1, 1},
	{1, 1, 1},
}

// EdgeCorners lists the two corners joined by each edge.
var EdgeCorners = [EdgeCount][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // along X
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // along Y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // along Z
}

// EdgeINormals point from the cube center toward the middle of each edge.
var EdgeINormals = [EdgeCount]dvid.Point3d{
	{0, -1, -1},
	{0, 1, -1},
	{0, -1, 1},
	{0, 1, 1},
	{-1, 0, -1},
	{1, 0, -1},
	{-1, 0, 1},
	{1, 0, 1},
	{-1, -1, 0},
	{1, -1, 0},
	{-1, 1, 0},
	{1, 1, 0},
}

var SideINormals = [SideCount]dvid.Point3d{
	{-1, 0, 0},
	{1, 0, 0},
	{0, -1, 0},
	{0, 1, 0},
	{0, 0, -1},
	{0, 0, 1},
}

var SideNormals = [SideCount]mgl32.Vec3{
	{-1, 0, 0},
	{1, 0, 0},
	{0, -1, 0},
	{0, 1, 0},
	{0, 0, -1},
	{0, 0, 1},
}

// SideCorners gives the four corners of each side, counter-clockwise when viewed
// from outside the cube.
var SideCorners = [SideCount][4]int{
	{0, 4, 6, 2},
	{5, 1, 3, 7},
	{0, 1, 5, 4},
	{6, 7, 3, 2},
	{1, 0, 2, 3},
	{4, 5, 7, 6},
}

// SideEdges gives the four edges bounding each side.
var SideEdges = [SideCount][4]int{
	{4, 6, 8, 10},
	{5, 7, 9, 11},
	{0, 2, 8, 9},
	{1, 3, 10, 11},
	{0, 1, 4, 5},
	{2, 3, 6, 7},
}

// SideTangents run from the first to the second corner of each side.
var SideTangents = [SideCount]mgl32.Vec3{
	{0, 0, 1},
	{0, 0, -1},
	{1, 0, 0},
	{1, 0, 0},
	{-1, 0, 0},
	{1, 0, 0},
}

// QuadIndices triangulates the four corners of a side.
var QuadIndices = [6]int32{0, 1, 2, 0, 2, 3}

// QuadUVs maps the four corners of a side onto a texture tile, v pointing down.
var QuadUVs = [4]mgl32.Vec2{
	{0, 1},
	{1, 1},
	{1, 0},
	{0, 0},
}

// SideCornerEdges gives, for each corner of each side, the two side edges touching it.
var SideCornerEdges [SideCount][4][2]int

func init() {
	for s := 0; s < SideCount; s++ {
		for k, c := range SideCorners[s] {
			n := 0
			for _, e := range SideEdges[s] {
				if EdgeCorners[e][0] == c || EdgeCorners[e][1] == c {
					SideCornerEdges[s][k][n] = e
					n++
				}
			}
		}
	}
}
