package meshing

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/voxels"
)

const (
	// MaxMaterials is the number of material slots of the blocky mesher.
	MaxMaterials = 8

	// BlockyPadding is the halo of neighbor voxels needed on every side.
	BlockyPadding = 1

	DefaultOcclusionDarkness = 0.8
)

// BlockyCache is the per-worker scratch memory of a Blocky mesher.
type BlockyCache struct {
	slots  [MaxMaterials]Arrays
	ids    []uint32
	models []Model
}

func (c *BlockyCache) Reset() {
	for i := range c.slots {
		c.slots[i].Clear()
	}
	c.ids = c.ids[:0]
	c.models = c.models[:0]
}

type blockyParams struct {
	library   *Library
	occlusion bool
	darkness  float32
}

// Blocky meshes the TYPE channel by drawing the library model of each voxel id and
// removing faces hidden by their neighbor.
type Blocky struct {
	mu     sync.RWMutex
	params blockyParams
}

// NewBlocky returns a blocky mesher with baked occlusion enabled.
func NewBlocky(lib *Library) *Blocky {
	return &Blocky{params: blockyParams{
		library:   lib,
		occlusion: true,
		darkness:  DefaultOcclusionDarkness,
	}}
}

func (m *Blocky) SetLibrary(lib *Library) {
	m.mu.Lock()
	m.params.library = lib
	m.mu.Unlock()
}

func (m *Blocky) Library() *Library {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params.library
}

// SetOcclusionDarkness sets how dark a fully occluded corner gets, clamped to [0, 1].
func (m *Blocky) SetOcclusionDarkness(darkness float32) {
	m.mu.Lock()
	m.params.darkness = mgl32.Clamp(darkness, 0, 1)
	m.mu.Unlock()
}

func (m *Blocky) OcclusionDarkness() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params.darkness
}

func (m *Blocky) SetOcclusionEnabled(enable bool) {
	m.mu.Lock()
	m.params.occlusion = enable
	m.mu.Unlock()
}

func (m *Blocky) OcclusionEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params.occlusion
}

func (m *Blocky) MinimumPadding() int { return BlockyPadding }
func (m *Blocky) MaximumPadding() int { return BlockyPadding }

func (m *Blocky) UsedChannelsMask() uint8 {
	return voxels.ChannelType.Mask()
}

func (m *Blocky) SupportsLOD() bool { return false }

func (m *Blocky) NewCache() Cache {
	return &BlockyCache{}
}

func (m *Blocky) ConfigKey() string {
	p := m.snapshot()
	var version uint64
	if p.library != nil {
		version = p.library.Version()
	}
	return fmt.Sprintf("blocky:%p:%d:%t:%g", p.library, version, p.occlusion, p.darkness)
}

func (m *Blocky) snapshot() blockyParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params
}

// Build meshes the voxels inside the padding.  Ids missing from the library, models
// without geometry and models with an out of range material draw nothing.
func (m *Blocky) Build(out *Output, in Input, cache Cache) error {
	out.Reset()
	if in.Voxels == nil {
		return fmt.Errorf("%w: blocky mesher given nil voxels", voxels.ErrInvalidArgument)
	}
	c, ok := cache.(*BlockyCache)
	if !ok || c == nil {
		c = &BlockyCache{}
	}
	c.Reset()

	p := m.snapshot()
	if p.library == nil {
		dvid.Errorf("blocky mesher has no library, nothing meshed\n")
		return nil
	}
	buf := in.Voxels
	size := buf.Size()
	if size[0] <= 2*BlockyPadding || size[1] <= 2*BlockyPadding || size[2] <= 2*BlockyPadding {
		return nil
	}
	if d := buf.ChannelDepth(voxels.ChannelType); d != voxels.Depth8Bit && d != voxels.Depth16Bit {
		dvid.Warningf("blocky mesher skipping %s TYPE channel\n", d)
		return nil
	}
	if buf.IsUniform(voxels.ChannelType) {
		// A uniform block shows no face between its own voxels.
		return nil
	}

	c.models, _ = p.library.snapshot(c.models)
	c.ids = buf.ChannelAsUint32(voxels.ChannelType, c.ids)

	m.buildFaces(c, p, size)
	appendSurfaces(out, c.slots[:])
	return nil
}

func (m *Blocky) buildFaces(c *BlockyCache, p blockyParams, size dvid.Point3d) {
	ids := c.ids
	models := c.models
	numModels := uint32(len(models))

	// ZXY strides
	stride := dvid.Point3d{size[1], 1, size[0] * size[1]}
	offset := func(d dvid.Point3d) int {
		return int(d[0]*stride[0] + d[1]*stride[1] + d[2]*stride[2])
	}
	var sideOffsets [SideCount]int
	for s := range SideINormals {
		sideOffsets[s] = offset(SideINormals[s])
	}
	var edgeOffsets [EdgeCount]int
	for e := range EdgeINormals {
		edgeOffsets[e] = offset(EdgeINormals[e])
	}
	var cornerOffsets [CornerCount]int
	for k := range CornerINormals {
		cornerOffsets[k] = offset(CornerINormals[k])
	}

	occluder := func(id uint32) bool {
		return id < numModels && models[id].occludes()
	}

	const pad = BlockyPadding
	for z := int32(pad); z < size[2]-pad; z++ {
		for x := int32(pad); x < size[0]-pad; x++ {
			i := int(pad + size[1]*(x+size[0]*z))
			for y := int32(pad); y < size[1]-pad; y, i = y+1, i+1 {
				id := ids[i]
				if id >= numModels {
					continue
				}
				model := &models[id]
				if model.IsEmpty() || model.Material < 0 || model.Material >= MaxMaterials {
					continue
				}
				origin := mgl32.Vec3{float32(x - pad), float32(y - pad), float32(z - pad)}
				arrays := &c.slots[model.Material]

				for side := Side(0); side < SideCount; side++ {
					nid := ids[i+sideOffsets[side]]
					if !faceVisible(models, id, nid) {
						continue
					}
					var shade [4]float32
					for k := range shade {
						shade[k] = 1
					}
					if p.occlusion {
						for k, corner := range SideCorners[side] {
							edges := SideCornerEdges[side][k]
							s1 := occluder(ids[i+edgeOffsets[edges[0]]])
							s2 := occluder(ids[i+edgeOffsets[edges[1]]])
							var ao int
							if s1 && s2 {
								ao = 3
							} else {
								if s1 {
									ao++
								}
								if s2 {
									ao++
								}
								if occluder(ids[i+cornerOffsets[corner]]) {
									ao++
								}
							}
							shade[k] = 1 - p.darkness*float32(ao)/3
						}
					}
					appendFace(arrays, p.library, model, side, origin, shade)
				}
			}
		}
	}
}

// faceVisible returns true if the face between a voxel and its neighbor must be drawn.
func faceVisible(models []Model, id, nid uint32) bool {
	if nid >= uint32(len(models)) {
		return true
	}
	nm := &models[nid]
	if nm.IsEmpty() {
		return true
	}
	return nm.Transparent && nid != id
}

func appendFace(a *Arrays, lib *Library, model *Model, side Side, origin mgl32.Vec3, shade [4]float32) {
	base := int32(len(a.Positions))
	normal := SideNormals[side]
	tangent := SideTangents[side]
	for k, corner := range SideCorners[side] {
		a.Positions = append(a.Positions, origin.Add(CornerPositions[corner]))
		a.Normals = append(a.Normals, normal)
		a.UVs = append(a.UVs, lib.tileUV(model, side, QuadUVs[k]))
		col := model.Color
		a.Colors = append(a.Colors, mgl32.Vec4{col[0] * shade[k], col[1] * shade[k], col[2] * shade[k], col[3]})
		a.Tangents = append(a.Tangents, tangent[0], tangent[1], tangent[2], 1)
	}
	// Split along the brighter diagonal so occlusion interpolates evenly.
	if shade[0]+shade[2] < shade[1]+shade[3] {
		a.Indices = append(a.Indices, base+1, base+2, base+3, base+1, base+3, base)
		return
	}
	for _, idx := range QuadIndices {
		a.Indices = append(a.Indices, base+idx)
	}
}
