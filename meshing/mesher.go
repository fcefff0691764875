/*
	Package meshing turns voxel buffers into triangle arrays.  A Mesher is a pure function
	of its configuration and an input buffer; scratch memory lives in a Cache owned by the
	calling worker and is never shared between goroutines.
*/
package meshing

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/janelia-flyem/voxterrain/voxels"
)

// PrimitiveType is the kind of primitive described by the index arrays.
type PrimitiveType uint8

const (
	PrimitiveTriangles PrimitiveType = iota
)

func (p PrimitiveType) String() string {
	if p == PrimitiveTriangles {
		return "triangles"
	}
	return "unknown primitive"
}

// Input is the padded buffer to mesh and its level of detail.
type Input struct {
	Voxels *voxels.Buffer
	LOD    int
}

// Arrays are the vertex and index arrays of one surface.  Tangents hold four floats
// per vertex.
type Arrays struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Colors    []mgl32.Vec4
	Indices   []int32
	Tangents  []float32
}

// Clear empties the arrays, keeping their capacity.
func (a *Arrays) Clear() {
	a.Positions = a.Positions[:0]
	a.Normals = a.Normals[:0]
	a.UVs = a.UVs[:0]
	a.Colors = a.Colors[:0]
	a.Indices = a.Indices[:0]
	a.Tangents = a.Tangents[:0]
}

// Empty returns true if there is no triangle to draw.
func (a *Arrays) Empty() bool {
	return len(a.Indices) == 0
}

// VertexCount returns the number of vertices.
func (a *Arrays) VertexCount() int {
	return len(a.Positions)
}

// Clone returns a copy sharing no memory with a.
func (a *Arrays) Clone() Arrays {
	return Arrays{
		Positions: append([]mgl32.Vec3(nil), a.Positions...),
		Normals:   append([]mgl32.Vec3(nil), a.Normals...),
		UVs:       append([]mgl32.Vec2(nil), a.UVs...),
		Colors:    append([]mgl32.Vec4(nil), a.Colors...),
		Indices:   append([]int32(nil), a.Indices...),
		Tangents:  append([]float32(nil), a.Tangents...),
	}
}

// Surface is the geometry drawn with one material.
type Surface struct {
	Material int
	Arrays
}

// Output receives the result of a build.  Material slots with no geometry are omitted
// from Surfaces.
type Output struct {
	Surfaces           []Surface
	TransitionSurfaces [SideCount][]Surface
	PrimitiveType      PrimitiveType
	Atlas              *image.NRGBA
}

// Reset clears the output before a build.
func (o *Output) Reset() {
	o.Surfaces = o.Surfaces[:0]
	for i := range o.TransitionSurfaces {
		o.TransitionSurfaces[i] = nil
	}
	o.PrimitiveType = PrimitiveTriangles
	o.Atlas = nil
}

// Empty returns true if no surface was produced.
func (o *Output) Empty() bool {
	return len(o.Surfaces) == 0
}

// NumTriangles returns the number of triangles across all surfaces.
func (o *Output) NumTriangles() int {
	n := 0
	for i := range o.Surfaces {
		n += len(o.Surfaces[i].Indices) / 3
	}
	return n
}

// Merge appends the surfaces of src translated by offset, grouping them by material.
// Outputs carrying an atlas cannot be merged since their UVs address separate images.
func (o *Output) Merge(src *Output, offset mgl32.Vec3) error {
	if o.Atlas != nil || src.Atlas != nil {
		return fmt.Errorf("%w: cannot merge outputs with color atlases", voxels.ErrInvalidArgument)
	}
	for i := range src.Surfaces {
		s := &src.Surfaces[i]
		dst := o.surface(s.Material)
		base := int32(len(dst.Positions))
		for _, p := range s.Positions {
			dst.Positions = append(dst.Positions, p.Add(offset))
		}
		dst.Normals = append(dst.Normals, s.Normals...)
		dst.UVs = append(dst.UVs, s.UVs...)
		dst.Colors = append(dst.Colors, s.Colors...)
		dst.Tangents = append(dst.Tangents, s.Tangents...)
		for _, idx := range s.Indices {
			dst.Indices = append(dst.Indices, idx+base)
		}
	}
	return nil
}

// surface returns the surface of a material, adding it in material order if missing.
func (o *Output) surface(material int) *Surface {
	i := 0
	for ; i < len(o.Surfaces); i++ {
		if o.Surfaces[i].Material == material {
			return &o.Surfaces[i]
		}
		if o.Surfaces[i].Material > material {
			break
		}
	}
	o.Surfaces = append(o.Surfaces, Surface{})
	copy(o.Surfaces[i+1:], o.Surfaces[i:])
	o.Surfaces[i] = Surface{Material: material}
	return &o.Surfaces[i]
}

// Cache is scratch memory reused across builds by a single worker.  It holds no state
// between builds.
type Cache interface {
	Reset()
}

// Mesher builds meshes from voxel buffers.  Build may be called concurrently as long
// as each goroutine passes its own Cache, obtained from NewCache.  A nil cache makes
// Build allocate a temporary one.
type Mesher interface {
	Build(out *Output, in Input, cache Cache) error

	// MinimumPadding is the number of neighbor voxels read toward negative axes.
	MinimumPadding() int

	// MaximumPadding is the number of neighbor voxels read toward positive axes.
	MaximumPadding() int

	// UsedChannelsMask is a bitmask of the channels read by the current configuration.
	UsedChannelsMask() uint8

	SupportsLOD() bool

	NewCache() Cache

	// ConfigKey identifies the current configuration so results can be cached.
	ConfigKey() string
}

// appendSurfaces copies the non-empty slots of a cache into the output.
func appendSurfaces(out *Output, slots []Arrays) {
	for m := range slots {
		if slots[m].Empty() {
			continue
		}
		out.Surfaces = append(out.Surfaces, Surface{Material: m, Arrays: slots[m].Clone()})
	}
}
