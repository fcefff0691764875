package dvid

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point3d is an ordered list of three 32-bit signed integers.  It is used for voxel
// positions, buffer sizes, and block coordinates.
type Point3d [3]int32

// Add returns the addition of two points.
func (p Point3d) Add(p2 Point3d) Point3d {
	return Point3d{p[0] + p2[0], p[1] + p2[1], p[2] + p2[2]}
}

// Sub returns the subtraction of the passed point from the receiver.
func (p Point3d) Sub(p2 Point3d) Point3d {
	return Point3d{p[0] - p2[0], p[1] - p2[1], p[2] - p2[2]}
}

// AddScalar adds a scalar value to each component.
func (p Point3d) AddScalar(value int32) Point3d {
	return Point3d{p[0] + value, p[1] + value, p[2] + value}
}

// ShiftLeft multiplies each component by 2^shift.
func (p Point3d) ShiftLeft(shift uint) Point3d {
	return Point3d{p[0] << shift, p[1] << shift, p[2] << shift}
}

// ShiftRight divides each component by 2^shift, rounding toward negative infinity.
func (p Point3d) ShiftRight(shift uint) Point3d {
	return Point3d{p[0] >> shift, p[1] >> shift, p[2] >> shift}
}

// Max returns a Point3d where each of its elements are the maximum of two points' elements.
func (p Point3d) Max(p2 Point3d) Point3d {
	result := p
	for i := 0; i < 3; i++ {
		if p2[i] > result[i] {
			result[i] = p2[i]
		}
	}
	return result
}

// Min returns a Point3d where each of its elements are the minimum of two points' elements.
func (p Point3d) Min(p2 Point3d) Point3d {
	result := p
	for i := 0; i < 3; i++ {
		if p2[i] < result[i] {
			result[i] = p2[i]
		}
	}
	return result
}

// Prod returns the product of the point elements.
func (p Point3d) Prod() int64 {
	return int64(p[0]) * int64(p[1]) * int64(p[2])
}

// AllPositive returns true if every component is > 0.
func (p Point3d) AllPositive() bool {
	return p[0] > 0 && p[1] > 0 && p[2] > 0
}

// LessThan returns true if every component is strictly less than the passed point's.
func (p Point3d) LessThan(p2 Point3d) bool {
	return p[0] < p2[0] && p[1] < p2[1] && p[2] < p2[2]
}

// Distance returns the euclidean distance between two points.
func (p Point3d) Distance(p2 Point3d) float64 {
	dx := float64(p[0] - p2[0])
	dy := float64(p[1] - p2[1])
	dz := float64(p[2] - p2[2])
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// ZXYIndex returns the linear index of the point within a box of the given size
// where Y varies fastest, then X, then Z.  No bounds checking is done.
func (p Point3d) ZXYIndex(size Point3d) int {
	return int(p[1]) + int(size[1])*(int(p[0])+int(size[0])*int(p[2]))
}

// Vector3d returns the point as a float vector.
func (p Point3d) Vector3d() Vector3d {
	return Vector3d{float64(p[0]), float64(p[1]), float64(p[2])}
}

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// Vector3d is a 3D vector of 64-bit floats, a recommended type for math operations.
type Vector3d [3]float64

// StringToVector3d parses a string of format "%f<sep>%f<sep>%f".
func StringToVector3d(str, separator string) (Vector3d, error) {
	elems := strings.Split(str, separator)
	if len(elems) != 3 {
		return Vector3d{}, fmt.Errorf("Can't convert string '%s' (length %d) to Vector3d", str, len(elems))
	}
	var v Vector3d
	var err error
	for i, elem := range elems {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(elem), 64)
		if err != nil {
			return Vector3d{}, err
		}
	}
	return v, nil
}

// Distance returns the distance between two points a and b.
func (v Vector3d) Distance(x Vector3d) float64 {
	return x.Subtract(v).Length()
}

func (v Vector3d) Length() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func (v Vector3d) Subtract(x Vector3d) Vector3d {
	return Vector3d{v[0] - x[0], v[1] - x[1], v[2] - x[2]}
}

func (v Vector3d) Add(x Vector3d) Vector3d {
	return Vector3d{v[0] + x[0], v[1] + x[1], v[2] + x[2]}
}

// Normalized returns a unit vector in the same direction or the zero vector.
func (v Vector3d) Normalized() Vector3d {
	l := v.Length()
	if l == 0 {
		return Vector3d{}
	}
	return Vector3d{v[0] / l, v[1] / l, v[2] / l}
}

// Floor truncates each component toward negative infinity, giving the voxel cell
// containing the position.
func (v Vector3d) Floor() Point3d {
	return Point3d{
		int32(math.Floor(v[0])),
		int32(math.Floor(v[1])),
		int32(math.Floor(v[2])),
	}
}

func (v Vector3d) String() string {
	return fmt.Sprintf("(%f,%f,%f)", v[0], v[1], v[2])
}
