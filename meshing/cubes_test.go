package meshing

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/palette"
	"github.com/janelia-flyem/voxterrain/voxels"
)

// solidBlock returns a 6^3 buffer whose 4^3 interior holds one color value.
func solidBlock(t *testing.T, depth voxels.Depth, v uint64) *voxels.Buffer {
	buf := newTestBuffer(t, dvid.Point3d{6, 6, 6})
	if err := buf.SetChannelDepth(voxels.ChannelColor, depth); err != nil {
		t.Fatalf("unable to set depth: %v\n", err)
	}
	buf.FillArea(v, dvid.Point3d{1, 1, 1}, dvid.Point3d{5, 5, 5}, voxels.ChannelColor)
	return buf
}

func checkWinding(t *testing.T, out *Output) {
	for _, s := range out.Surfaces {
		for q := 0; q < len(s.Indices); q += 6 {
			p0 := s.Positions[s.Indices[q]]
			p1 := s.Positions[s.Indices[q+1]]
			p2 := s.Positions[s.Indices[q+2]]
			n := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
			if !n.ApproxEqual(s.Normals[s.Indices[q]]) {
				t.Errorf("quad at %v winds toward %v instead of %v\n", p0, n, s.Normals[s.Indices[q]])
			}
		}
	}
}

func TestGreedyUniformCube(t *testing.T) {
	buf := solidBlock(t, voxels.Depth8Bit, 0xff)
	mesher := NewCubes()
	var out Output
	if err := mesher.Build(&out, Input{Voxels: buf}, mesher.NewCache()); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if len(out.Surfaces) != 1 || out.Surfaces[0].Material != MaterialOpaque {
		t.Fatalf("expected a single opaque surface, got %d surfaces\n", len(out.Surfaces))
	}
	s := out.Surfaces[0]
	if len(s.Positions) != 24 || len(s.Indices) != 36 {
		t.Fatalf("expected 6 quads, got %d vertices and %d indices\n", len(s.Positions), len(s.Indices))
	}
	var seen [SideCount]int
	for q := 0; q < 6; q++ {
		for side := range SideNormals {
			if s.Normals[q*4] == SideNormals[side] {
				seen[side]++
			}
		}
		// Each merged quad covers a whole 4x4 face.
		min := s.Positions[q*4]
		max := s.Positions[q*4]
		for k := 1; k < 4; k++ {
			for i := 0; i < 3; i++ {
				if p := s.Positions[q*4+k][i]; p < min[i] {
					min[i] = p
				} else if p > max[i] {
					max[i] = p
				}
			}
		}
		extent := max.Sub(min)
		if extent.Len() < 5.6 {
			t.Errorf("quad %d spans %v, expected a 4x4 face\n", q, extent)
		}
	}
	for side, n := range seen {
		if n != 1 {
			t.Errorf("side %s has %d quads\n", Side(side), n)
		}
	}
	if s.Colors[0] != (mgl32.Vec4{1, 1, 1, 1}) {
		t.Errorf("expected white from raw 0xff, got %v\n", s.Colors[0])
	}
	checkWinding(t, &out)

	mesher.SetGreedyMeshingEnabled(false)
	if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if n := numFaces(&out); n != 6*16 {
		t.Errorf("expected 96 quads without greedy meshing, got %d\n", n)
	}
	checkWinding(t, &out)
}

func TestGreedyColors(t *testing.T) {
	red := uint64(0xff0000ff)
	blue := uint64(0x0000ffff)
	buf := solidBlock(t, voxels.Depth32Bit, red)
	buf.FillArea(blue, dvid.Point3d{3, 1, 1}, dvid.Point3d{5, 5, 5}, voxels.ChannelColor)

	mesher := NewCubes()
	var out Output
	if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	// The X sides are single colored, the others are split in two halves.
	if n := numFaces(&out); n != 10 {
		t.Errorf("expected 10 quads for a two colored block, got %d\n", n)
	}
	checkWinding(t, &out)

	// Transparent colors differing only in alpha are not merged and show the face
	// between them.
	buf.FillArea(0xff000080, dvid.Point3d{1, 1, 1}, dvid.Point3d{3, 5, 5}, voxels.ChannelColor)
	buf.FillArea(0xff000040, dvid.Point3d{3, 1, 1}, dvid.Point3d{5, 5, 5}, voxels.ChannelColor)
	if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if len(out.Surfaces) != 1 || out.Surfaces[0].Material != MaterialTransparent {
		t.Fatalf("expected only a transparent surface, got %d surfaces\n", len(out.Surfaces))
	}
	if n := numFaces(&out); n != 12 {
		t.Errorf("expected 12 quads for two transparent halves, got %d\n", n)
	}
}

func TestCubesPalette(t *testing.T) {
	pal := palette.New()
	pal.SetColor8(5, palette.Color8{R: 255, A: 255})
	pal.SetColor8(6, palette.Color8{B: 255, A: 100})
	buf := solidBlock(t, voxels.Depth8Bit, 5)
	setVoxel(t, buf, 6, dvid.Point3d{1, 1, 1}, voxels.ChannelColor)

	mesher := NewCubes()
	mesher.SetColorMode(ColorMesherPalette)
	var out Output
	if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if !out.Empty() {
		t.Errorf("palette mode without palette should mesh nothing\n")
	}

	mesher.SetPalette(pal)
	if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if len(out.Surfaces) != 2 {
		t.Fatalf("expected opaque and transparent surfaces, got %d\n", len(out.Surfaces))
	}
	for _, s := range out.Surfaces {
		want := mgl32.Vec4{1, 0, 0, 1}
		if s.Material == MaterialTransparent {
			want = palette.Color8{B: 255, A: 100}.Vec4()
		}
		for _, col := range s.Colors {
			if col != want {
				t.Errorf("material %d has color %v, expected %v\n", s.Material, col, want)
				break
			}
		}
	}
	// The transparent corner voxel shows its 3 outer faces.  The faces it shares with
	// red voxels are drawn by the red side.
	if n := len(out.Surfaces[1].Indices) / 6; n != 3 {
		t.Errorf("expected 3 transparent quads, got %d\n", n)
	}
	checkWinding(t, &out)

	key := mesher.ConfigKey()
	pal.SetColor8(7, palette.Color8{G: 255, A: 255})
	if mesher.ConfigKey() == key {
		t.Errorf("config key should change with the palette\n")
	}
}

func TestCubesPaletteEditedDuringBuild(t *testing.T) {
	red := palette.Color8{R: 255, A: 255}
	green := palette.Color8{G: 255, A: 255}
	pal := palette.New()
	pal.SetColor8(5, red)
	buf := solidBlock(t, voxels.Depth8Bit, 5)
	mesher := NewCubes()
	mesher.SetColorMode(ColorMesherPalette)
	mesher.SetPalette(pal)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				pal.SetColor8(5, green)
			} else {
				pal.SetColor8(5, red)
			}
		}
	}()
	for i := 0; i < 20; i++ {
		var out Output
		if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
			t.Fatalf("build failed: %v\n", err)
		}
		if len(out.Surfaces) != 1 {
			t.Fatalf("expected one opaque surface, got %d\n", len(out.Surfaces))
		}
		first := out.Surfaces[0].Colors[0]
		if first != red.Vec4() && first != green.Vec4() {
			t.Fatalf("unexpected color %v\n", first)
		}
		for _, col := range out.Surfaces[0].Colors {
			if col != first {
				t.Fatalf("one build saw two palette states: %v and %v\n", first, col)
			}
		}
	}
	wg.Wait()
}

func TestCubesShaderPalette(t *testing.T) {
	buf := solidBlock(t, voxels.Depth8Bit, 7)
	mesher := NewCubes()
	mesher.SetColorMode(ColorShaderPalette)
	var out Output
	if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if n := numFaces(&out); n != 6 {
		t.Fatalf("expected 6 quads, got %d\n", n)
	}
	if col := out.Surfaces[0].Colors[0]; col != (mgl32.Vec4{7.0 / 255, 0, 0, 1}) {
		t.Errorf("expected value in red component, got %v\n", col)
	}
}

func TestCubesAtlas(t *testing.T) {
	red := uint64(0xff0000ff)
	blue := uint64(0x0000ffff)
	buf := solidBlock(t, voxels.Depth32Bit, red)
	buf.FillArea(blue, dvid.Point3d{3, 1, 1}, dvid.Point3d{5, 5, 5}, voxels.ChannelColor)

	mesher := NewCubes()
	mesher.SetStoreColorsInTexture(true)
	var out Output
	if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	// Colors live in the atlas, so quads merge regardless of color.
	if n := numFaces(&out); n != 6 {
		t.Errorf("expected 6 quads, got %d\n", n)
	}
	if out.Atlas == nil {
		t.Fatalf("expected an atlas\n")
	}
	var reds, blues int
	b := out.Atlas.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			switch c := out.Atlas.NRGBAAt(x, y); {
			case c.R == 255 && c.A == 255:
				reds++
			case c.B == 255 && c.A == 255:
				blues++
			}
		}
	}
	// 6 faces of 16 pixels: the X faces are single colored, the others half and half.
	if reds != 48 || blues != 48 {
		t.Errorf("expected 48 red and 48 blue atlas pixels, got %d and %d\n", reds, blues)
	}
	for _, uv := range out.Surfaces[0].UVs {
		if uv[0] < 0 || uv[0] > 1 || uv[1] < 0 || uv[1] > 1 {
			t.Errorf("uv %v outside the atlas\n", uv)
		}
	}
	if out.Surfaces[0].Colors[0] != (mgl32.Vec4{1, 1, 1, 1}) {
		t.Errorf("expected white vertex colors with an atlas\n")
	}
}
