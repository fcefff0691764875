package meshing

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/palette"
	"github.com/janelia-flyem/voxterrain/voxels"
)

// CubesPadding is the halo of neighbor voxels needed on every side.
const CubesPadding = 1

// Material slots of the cubes mesher.
const (
	MaterialOpaque = iota
	MaterialTransparent

	CubesMaterialCount
)

// ColorMode tells how COLOR channel values become colors.
type ColorMode uint8

const (
	// ColorRaw treats values as RGBA with components of equal bit depth.
	ColorRaw ColorMode = iota

	// ColorMesherPalette looks values up in the mesher's palette.
	ColorMesherPalette

	// ColorShaderPalette copies values into the red component of vertex colors so a
	// shader can do the lookup.  A palette, if set, still decides emptiness and
	// transparency.
	ColorShaderPalette
)

func (mode ColorMode) String() string {
	switch mode {
	case ColorRaw:
		return "raw"
	case ColorMesherPalette:
		return "palette"
	case ColorShaderPalette:
		return "shader"
	default:
		return "unknown color mode"
	}
}

// ColorModeFromString parses "raw", "palette" or "shader".
func ColorModeFromString(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "raw":
		return ColorRaw, nil
	case "palette", "mesher_palette":
		return ColorMesherPalette, nil
	case "shader", "shader_palette":
		return ColorShaderPalette, nil
	}
	return ColorRaw, fmt.Errorf("%w: unknown color mode %q", voxels.ErrInvalidArgument, s)
}

// CubesCache is the per-worker scratch memory of a Cubes mesher.
type CubesCache struct {
	slots      [CubesMaterialCount]Arrays
	raw        []uint32
	colors     []palette.Color8
	mask       []uint32
	maskColors []palette.Color8
	atlas      GreedyAtlasData
}

func (c *CubesCache) Reset() {
	for i := range c.slots {
		c.slots[i].Clear()
	}
	c.raw = c.raw[:0]
	c.colors = c.colors[:0]
	c.mask = c.mask[:0]
	c.maskColors = c.maskColors[:0]
	c.atlas.Clear()
}

type cubesParams struct {
	colorMode            ColorMode
	palette              *palette.Palette
	greedy               bool
	storeColorsInTexture bool
}

// Cubes draws every non-empty voxel of the COLOR channel as a colored cube, merging
// coplanar faces of equal color into larger quads.
type Cubes struct {
	mu     sync.RWMutex
	params cubesParams
}

// NewCubes returns a greedy mesher in raw color mode.
func NewCubes() *Cubes {
	return &Cubes{params: cubesParams{colorMode: ColorRaw, greedy: true}}
}

func (m *Cubes) SetColorMode(mode ColorMode) {
	m.mu.Lock()
	m.params.colorMode = mode
	m.mu.Unlock()
}

func (m *Cubes) ColorMode() ColorMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params.colorMode
}

func (m *Cubes) SetPalette(pal *palette.Palette) {
	m.mu.Lock()
	m.params.palette = pal
	m.mu.Unlock()
}

func (m *Cubes) Palette() *palette.Palette {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params.palette
}

func (m *Cubes) SetGreedyMeshingEnabled(enable bool) {
	m.mu.Lock()
	m.params.greedy = enable
	m.mu.Unlock()
}

func (m *Cubes) GreedyMeshingEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params.greedy
}

// SetStoreColorsInTexture makes builds write voxel colors into Output.Atlas instead of
// vertex colors.
func (m *Cubes) SetStoreColorsInTexture(enable bool) {
	m.mu.Lock()
	m.params.storeColorsInTexture = enable
	m.mu.Unlock()
}

func (m *Cubes) StoreColorsInTexture() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params.storeColorsInTexture
}

func (m *Cubes) MinimumPadding() int { return CubesPadding }
func (m *Cubes) MaximumPadding() int { return CubesPadding }

func (m *Cubes) UsedChannelsMask() uint8 {
	return voxels.ChannelColor.Mask()
}

func (m *Cubes) SupportsLOD() bool { return false }

func (m *Cubes) NewCache() Cache {
	return &CubesCache{}
}

func (m *Cubes) ConfigKey() string {
	p := m.snapshot()
	var palHash uint64
	if p.palette != nil {
		data := p.palette.Data()
		b := make([]byte, 4*len(data))
		for i, v := range data {
			binary.LittleEndian.PutUint32(b[i*4:], v)
		}
		palHash = xxhash.Sum64(b)
	}
	return fmt.Sprintf("cubes:%s:%t:%t:%016x", p.colorMode, p.greedy, p.storeColorsInTexture, palHash)
}

func (m *Cubes) snapshot() cubesParams {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params
}

// Build meshes the voxels inside the padding into the opaque and transparent slots.
func (m *Cubes) Build(out *Output, in Input, cache Cache) error {
	out.Reset()
	if in.Voxels == nil {
		return fmt.Errorf("%w: cubes mesher given nil voxels", voxels.ErrInvalidArgument)
	}
	c, ok := cache.(*CubesCache)
	if !ok || c == nil {
		c = &CubesCache{}
	}
	c.Reset()

	p := m.snapshot()
	var pal *[palette.MaxColors]palette.Color8
	if p.palette != nil {
		pal = new([palette.MaxColors]palette.Color8)
		copy(pal[:], p.palette.Colors())
	} else if p.colorMode == ColorMesherPalette {
		dvid.Errorf("cubes mesher in palette mode has no palette, nothing meshed\n")
		return nil
	}

	buf := in.Voxels
	size := buf.Size()
	if size[0] <= 2*CubesPadding || size[1] <= 2*CubesPadding || size[2] <= 2*CubesPadding {
		return nil
	}
	depth := buf.ChannelDepth(voxels.ChannelColor)
	if depth == voxels.Depth64Bit {
		dvid.Warningf("cubes mesher skipping %s COLOR channel\n", depth)
		return nil
	}
	if buf.IsUniform(voxels.ChannelColor) {
		// Faces between equal colors are always hidden.
		return nil
	}

	c.raw = buf.ChannelAsUint32(voxels.ChannelColor, c.raw)
	n := len(c.raw)
	if cap(c.colors) < n {
		c.colors = make([]palette.Color8, n)
	}
	c.colors = c.colors[:n]
	for i, v := range c.raw {
		c.colors[i] = decodeColor(v, depth, p.colorMode, pal)
	}

	m.buildQuads(c, p, size)
	if p.storeColorsInTexture {
		out.Atlas = c.atlas.BuildImage(c.slots[:])
	}
	appendSurfaces(out, c.slots[:])
	return nil
}

func decodeColor(v uint32, depth voxels.Depth, mode ColorMode, pal *[palette.MaxColors]palette.Color8) palette.Color8 {
	switch mode {
	case ColorMesherPalette:
		if v >= palette.MaxColors {
			return palette.Transparent
		}
		return pal[v]
	case ColorShaderPalette:
		if v == 0 {
			return palette.Transparent
		}
		alpha := uint8(255)
		if pal != nil && v < palette.MaxColors {
			alpha = pal[v].A
		}
		if alpha == 0 {
			return palette.Transparent
		}
		return palette.Color8{R: uint8(v), A: alpha}
	default:
		switch depth {
		case voxels.Depth8Bit:
			return palette.FromU8(uint8(v))
		case voxels.Depth16Bit:
			return palette.FromU16(uint16(v))
		default:
			return palette.FromU32(v)
		}
	}
}

// cubeFaceVisible returns true if the face of a non-empty voxel toward its neighbor
// must be drawn.
func cubeFaceVisible(cur, neighbor palette.Color8) bool {
	if neighbor.A == 0 {
		return true
	}
	if neighbor.A < 255 {
		return cur.A == 255 || cur != neighbor
	}
	return false
}

func materialOf(col palette.Color8) int {
	if col.A < 255 {
		return MaterialTransparent
	}
	return MaterialOpaque
}

// buildQuads sweeps each side's slices, filling a mask of visible faces and merging it
// into quads.
func (m *Cubes) buildQuads(c *CubesCache, p cubesParams, size dvid.Point3d) {
	const pad = CubesPadding
	interior := size.AddScalar(-2 * pad)
	stride := dvid.Point3d{size[1], 1, size[0] * size[1]}

	maxArea := 0
	for d := 0; d < 3; d++ {
		if a := int(interior[(d+1)%3] * interior[(d+2)%3]); a > maxArea {
			maxArea = a
		}
	}
	if cap(c.mask) < maxArea {
		c.mask = make([]uint32, maxArea)
	}
	if p.storeColorsInTexture && cap(c.maskColors) < maxArea {
		c.maskColors = make([]palette.Color8, maxArea)
	}

	for side := Side(0); side < SideCount; side++ {
		d := side.Axis()
		u := (d + 1) % 3
		v := (d + 2) % 3
		w := int(interior[u])
		h := int(interior[v])
		mask := c.mask[:w*h]
		var maskColors []palette.Color8
		if p.storeColorsInTexture {
			maskColors = c.maskColors[:w*h]
		}
		n := SideINormals[side]
		neighborOffset := int(n[0]*stride[0] + n[1]*stride[1] + n[2]*stride[2])

		for layer := int32(0); layer < interior[d]; layer++ {
			var pos dvid.Point3d
			pos[d] = layer + pad
			for j := 0; j < h; j++ {
				pos[v] = int32(j) + pad
				for i := 0; i < w; i++ {
					pos[u] = int32(i) + pad
					k := i + j*w
					mask[k] = 0
					idx := pos.ZXYIndex(size)
					cur := c.colors[idx]
					if cur.A == 0 || !cubeFaceVisible(cur, c.colors[idx+neighborOffset]) {
						continue
					}
					if p.storeColorsInTexture {
						mask[k] = uint32(materialOf(cur)) + 1
						maskColors[k] = cur
					} else {
						mask[k] = cur.ToU32()
					}
				}
			}
			m.mergeMask(c, p, side, layer, mask, maskColors, w, h)
		}
	}
}

// mergeMask emits the quads of one slice.  With greedy meshing, a quad grows along the
// first axis while the mask matches, then along the second while the whole row matches.
func (m *Cubes) mergeMask(c *CubesCache, p cubesParams, side Side, layer int32, mask []uint32, maskColors []palette.Color8, w, h int) {
	for j := 0; j < h; j++ {
		for i := 0; i < w; {
			key := mask[i+j*w]
			if key == 0 {
				i++
				continue
			}
			qw, qh := 1, 1
			if p.greedy {
				for i+qw < w && mask[i+qw+j*w] == key {
					qw++
				}
			grow:
				for j+qh < h {
					row := (j + qh) * w
					for k := 0; k < qw; k++ {
						if mask[i+k+row] != key {
							break grow
						}
					}
					qh++
				}
			}

			var col palette.Color8
			var slot int
			if p.storeColorsInTexture {
				slot = int(key) - 1
				col = palette.Color8{R: 255, G: 255, B: 255, A: 255}
			} else {
				col = palette.FromU32(key)
				slot = materialOf(col)
			}
			arrays := &c.slots[slot]
			if p.storeColorsInTexture {
				c.atlas.Images = append(c.atlas.Images, ImageInfo{
					FirstColorIndex:  len(c.atlas.Colors),
					FirstVertexIndex: len(arrays.Positions),
					SizeX:            qw,
					SizeY:            qh,
					SurfaceIndex:     slot,
				})
				for b := 0; b < qh; b++ {
					row := (j + b) * w
					c.atlas.Colors = append(c.atlas.Colors, maskColors[i+row:i+row+qw]...)
				}
			}
			var vertexColor mgl32.Vec4
			if p.colorMode == ColorShaderPalette && !p.storeColorsInTexture {
				vertexColor = mgl32.Vec4{float32(col.R) / 255, 0, 0, 1}
			} else {
				vertexColor = col.Vec4()
			}
			appendQuad(arrays, side, layer, i, j, qw, qh, vertexColor)

			for b := 0; b < qh; b++ {
				row := (j + b) * w
				for a := 0; a < qw; a++ {
					mask[i+a+row] = 0
				}
			}
			i += qw
		}
	}
}

// appendQuad adds a quad covering [i, i+qw) x [j, j+qh) of a slice.  UVs are in voxel
// units from the quad's first corner.
func appendQuad(a *Arrays, side Side, layer int32, i, j, qw, qh int, color mgl32.Vec4) {
	d := side.Axis()
	u := (d + 1) % 3
	v := (d + 2) % 3
	plane := float32(layer)
	if side.Positive() {
		plane++
	}
	// (u, v) is right-handed around the positive axis, so negative sides reverse.
	quad := [4][2]int{{0, 0}, {qw, 0}, {qw, qh}, {0, qh}}
	if !side.Positive() {
		quad[1], quad[3] = quad[3], quad[1]
	}
	base := int32(len(a.Positions))
	var corners [4]mgl32.Vec3
	for k, q := range quad {
		corners[k][d] = plane
		corners[k][u] = float32(i + q[0])
		corners[k][v] = float32(j + q[1])
	}
	tangent := corners[1].Sub(corners[0]).Normalize()
	normal := SideNormals[side]
	for k, q := range quad {
		a.Positions = append(a.Positions, corners[k])
		a.Normals = append(a.Normals, normal)
		a.UVs = append(a.UVs, mgl32.Vec2{float32(q[0]), float32(q[1])})
		a.Colors = append(a.Colors, color)
		a.Tangents = append(a.Tangents, tangent[0], tangent[1], tangent[2], 1)
	}
	for _, idx := range QuadIndices {
		a.Indices = append(a.Indices, base+idx)
	}
}
