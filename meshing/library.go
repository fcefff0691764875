package meshing

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/janelia-flyem/voxterrain/palette"
	"github.com/janelia-flyem/voxterrain/voxels"
)

// Geometry is the shape drawn for a model.
type Geometry uint8

const (
	GeometryNone Geometry = iota
	GeometryCube
)

func (g Geometry) String() string {
	switch g {
	case GeometryNone:
		return "none"
	case GeometryCube:
		return "cube"
	default:
		return "unknown geometry"
	}
}

// Model is what the blocky mesher draws for one voxel id.
type Model struct {
	Name     string
	Geometry Geometry

	// Transparent models let neighbor faces through, except those of the same id.
	Transparent bool

	Color    mgl32.Vec4
	Material int

	// Tiles is the atlas tile (column, row) drawn on each side.
	Tiles [SideCount][2]int
}

// IsEmpty returns true if the model draws nothing.
func (m *Model) IsEmpty() bool {
	return m.Geometry == GeometryNone
}

// occludes returns true if the model darkens corners of its neighbors.
func (m *Model) occludes() bool {
	return m.Geometry == GeometryCube && !m.Transparent
}

// Library maps voxel ids to models.  Id 0 is air by convention.
type Library struct {
	mu        sync.RWMutex
	models    []Model
	atlasSize int
	version   uint64
}

// NewLibrary returns a library with only the air model.  atlasSize is the number of
// tiles along each side of the texture atlas.
func NewLibrary(atlasSize int) *Library {
	if atlasSize < 1 {
		atlasSize = 1
	}
	return &Library{
		models:    []Model{{Name: "air"}},
		atlasSize: atlasSize,
	}
}

// AddModel appends a model and returns its voxel id.
func (lib *Library) AddModel(m Model) (uint32, error) {
	if m.Material < 0 || m.Material >= MaxMaterials {
		return 0, fmt.Errorf("%w: model %q material %d not in [0, %d)", voxels.ErrInvalidArgument, m.Name, m.Material, MaxMaterials)
	}
	lib.mu.Lock()
	defer lib.mu.Unlock()
	lib.models = append(lib.models, m)
	lib.version++
	return uint32(len(lib.models) - 1), nil
}

// SetModel replaces the model of an existing id.
func (lib *Library) SetModel(id uint32, m Model) error {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if int(id) >= len(lib.models) {
		return fmt.Errorf("%w: no model with id %d", voxels.ErrInvalidArgument, id)
	}
	lib.models[id] = m
	lib.version++
	return nil
}

// Model returns the model of an id.
func (lib *Library) Model(id uint32) (Model, bool) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	if int(id) >= len(lib.models) {
		return Model{}, false
	}
	return lib.models[id], true
}

// Len returns the number of ids, air included.
func (lib *Library) Len() int {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	return len(lib.models)
}

func (lib *Library) AtlasSize() int {
	return lib.atlasSize
}

// Version changes every time a model is added or replaced.
func (lib *Library) Version() uint64 {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	return lib.version
}

// snapshot copies the models for the duration of a build.
func (lib *Library) snapshot(dst []Model) ([]Model, uint64) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	return append(dst[:0], lib.models...), lib.version
}

// tileUV maps a corner UV of a side onto the atlas tile of the model.
func (lib *Library) tileUV(m *Model, side Side, uv mgl32.Vec2) mgl32.Vec2 {
	s := 1 / float32(lib.atlasSize)
	tile := m.Tiles[side]
	return mgl32.Vec2{(float32(tile[0]) + uv[0]) * s, (float32(tile[1]) + uv[1]) * s}
}

// NewLibraryFromPalette returns a library whose id i is a colored cube for every
// palette index i > 0, so index buffers can be meshed by the blocky mesher.  Entries
// with zero alpha stay empty and translucent ones are transparent.
func NewLibraryFromPalette(pal *palette.Palette) *Library {
	lib := NewLibrary(1)
	for i := 1; i < palette.MaxColors; i++ {
		col := pal.Color8(uint8(i))
		m := Model{Name: fmt.Sprintf("color_%d", i), Color: col.Vec4()}
		if col.A != 0 {
			m.Geometry = GeometryCube
		}
		if col.A < 255 {
			m.Transparent = true
			m.Material = MaterialTransparent
		}
		lib.models = append(lib.models, m)
	}
	return lib
}
