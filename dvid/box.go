package dvid

import "fmt"

// Box3d is an axis-aligned integer box given by its minimum corner and size.
// The maximum corner (Pos + Size) is exclusive.
type Box3d struct {
	Pos  Point3d
	Size Point3d
}

// BoxFromMinMax returns the box spanning [min, max), sorting the corners first so
// either order is accepted.
func BoxFromMinMax(a, b Point3d) Box3d {
	min := a.Min(b)
	max := a.Max(b)
	return Box3d{min, max.Sub(min)}
}

// Max returns the exclusive upper corner.
func (b Box3d) Max() Point3d {
	return b.Pos.Add(b.Size)
}

// Volume returns the number of cells within the box or 0 for degenerate boxes.
func (b Box3d) Volume() int64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Size.Prod()
}

// IsEmpty returns true if any axis of the box has a size <= 0.
func (b Box3d) IsEmpty() bool {
	return b.Size[0] <= 0 || b.Size[1] <= 0 || b.Size[2] <= 0
}

// Contains returns true if the point lies within the box.
func (b Box3d) Contains(p Point3d) bool {
	max := b.Max()
	return p[0] >= b.Pos[0] && p[1] >= b.Pos[1] && p[2] >= b.Pos[2] &&
		p[0] < max[0] && p[1] < max[1] && p[2] < max[2]
}

// Encloses returns true if the passed box lies fully within the receiver.
func (b Box3d) Encloses(other Box3d) bool {
	max := b.Max()
	omax := other.Max()
	return other.Pos[0] >= b.Pos[0] && other.Pos[1] >= b.Pos[1] && other.Pos[2] >= b.Pos[2] &&
		omax[0] <= max[0] && omax[1] <= max[1] && omax[2] <= max[2]
}

// Intersects returns true if both boxes share at least one cell.
func (b Box3d) Intersects(other Box3d) bool {
	return !b.Clipped(other).IsEmpty()
}

// Clipped returns the part of the receiver that lies within the passed box.
// The result may be empty.
func (b Box3d) Clipped(limits Box3d) Box3d {
	min := b.Pos.Max(limits.Pos)
	max := b.Max().Min(limits.Max())
	return Box3d{min, max.Sub(min)}
}

// Padded grows the box by m cells on every side.
func (b Box3d) Padded(m int32) Box3d {
	return Box3d{b.Pos.AddScalar(-m), b.Size.AddScalar(2 * m)}
}

// Downscaled returns the box in chunk space for chunks of size 2^shift, enclosing
// every chunk the box touches.
func (b Box3d) Downscaled(shift uint) Box3d {
	min := b.Pos.ShiftRight(shift)
	max := b.Max().AddScalar(-1).ShiftRight(shift).AddScalar(1)
	return Box3d{min, max.Sub(min)}
}

// ForEachCell calls fn for every cell in the box, Y fastest, then X, then Z.
func (b Box3d) ForEachCell(fn func(p Point3d)) {
	max := b.Max()
	var p Point3d
	for p[2] = b.Pos[2]; p[2] < max[2]; p[2]++ {
		for p[0] = b.Pos[0]; p[0] < max[0]; p[0]++ {
			for p[1] = b.Pos[1]; p[1] < max[1]; p[1]++ {
				fn(p)
			}
		}
	}
}

// AllCellsMatch returns true if fn holds for every cell of the box.
func (b Box3d) AllCellsMatch(fn func(p Point3d) bool) bool {
	max := b.Max()
	var p Point3d
	for p[2] = b.Pos[2]; p[2] < max[2]; p[2]++ {
		for p[0] = b.Pos[0]; p[0] < max[0]; p[0]++ {
			for p[1] = b.Pos[1]; p[1] < max[1]; p[1]++ {
				if !fn(p) {
					return false
				}
			}
		}
	}
	return true
}

// ForInnerOutline calls fn for every cell of the box lying on one of its faces.
func (b Box3d) ForInnerOutline(fn func(p Point3d)) {
	max := b.Max().AddScalar(-1)
	b.ForEachCell(func(p Point3d) {
		for i := 0; i < 3; i++ {
			if p[i] == b.Pos[i] || p[i] == max[i] {
				fn(p)
				return
			}
		}
	})
}

func (b Box3d) String() string {
	return fmt.Sprintf("box %s size %s", b.Pos, b.Size)
}
