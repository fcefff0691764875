package meshing

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/mempool"
	"github.com/janelia-flyem/voxterrain/palette"
	"github.com/janelia-flyem/voxterrain/voxels"
)

func newTestBuffer(t *testing.T, size dvid.Point3d) *voxels.Buffer {
	buf, err := voxels.NewBufferWithSize(mempool.New(), size)
	if err != nil {
		t.Fatalf("unable to create buffer: %v\n", err)
	}
	return buf
}

func setVoxel(t *testing.T, buf *voxels.Buffer, v uint64, pos dvid.Point3d, c voxels.ChannelID) {
	if err := buf.SetVoxel(v, pos, c); err != nil {
		t.Fatalf("unable to set voxel %s: %v\n", pos, err)
	}
}

func numFaces(out *Output) int {
	n := 0
	for i := range out.Surfaces {
		n += len(out.Surfaces[i].Indices) / 6
	}
	return n
}

func testLibrary(t *testing.T) (lib *Library, stone, glass uint32) {
	lib = NewLibrary(4)
	var err error
	stone, err = lib.AddModel(Model{Name: "stone", Geometry: GeometryCube, Color: mgl32.Vec4{1, 1, 1, 1}})
	if err != nil {
		t.Fatalf("unable to add stone: %v\n", err)
	}
	glass, err = lib.AddModel(Model{Name: "glass", Geometry: GeometryCube, Transparent: true, Color: mgl32.Vec4{1, 1, 1, 0.5}, Material: 1})
	if err != nil {
		t.Fatalf("unable to add glass: %v\n", err)
	}
	return
}

func TestBlockySingleVoxel(t *testing.T) {
	lib, stone, _ := testLibrary(t)
	buf := newTestBuffer(t, dvid.Point3d{3, 3, 3})
	setVoxel(t, buf, uint64(stone), dvid.Point3d{1, 1, 1}, voxels.ChannelType)

	mesher := NewBlocky(lib)
	var out Output
	if err := mesher.Build(&out, Input{Voxels: buf}, mesher.NewCache()); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if len(out.Surfaces) != 1 || out.Surfaces[0].Material != 0 {
		t.Fatalf("expected one surface for material 0, got %d\n", len(out.Surfaces))
	}
	s := out.Surfaces[0]
	if len(s.Positions) != 24 || len(s.Indices) != 36 || len(s.Tangents) != 96 || len(s.UVs) != 24 {
		t.Fatalf("expected 6 faces, got %d vertices and %d indices\n", len(s.Positions), len(s.Indices))
	}
	var seen [SideCount]int
	for f := 0; f < 6; f++ {
		normal := s.Normals[f*4]
		side := -1
		for k := range SideNormals {
			if SideNormals[k] == normal {
				side = k
			}
		}
		if side < 0 {
			t.Fatalf("face %d has unexpected normal %v\n", f, normal)
		}
		seen[side]++
		axis := Side(side).Axis()
		var plane float32
		if Side(side).Positive() {
			plane = 1
		}
		for k := 0; k < 4; k++ {
			if s.Normals[f*4+k] != normal {
				t.Errorf("face %d mixes normals\n", f)
			}
			if s.Positions[f*4+k][axis] != plane {
				t.Errorf("face %d with normal %v has vertex %v off its plane\n", f, normal, s.Positions[f*4+k])
			}
			if s.Colors[f*4+k] != (mgl32.Vec4{1, 1, 1, 1}) {
				t.Errorf("isolated voxel should not be occluded, got color %v\n", s.Colors[f*4+k])
			}
		}
		// Triangles face outward.
		p0 := s.Positions[s.Indices[f*6]]
		p1 := s.Positions[s.Indices[f*6+1]]
		p2 := s.Positions[s.Indices[f*6+2]]
		if n := p1.Sub(p0).Cross(p2.Sub(p0)); !n.Normalize().ApproxEqual(normal) {
			t.Errorf("face %d winds toward %v instead of %v\n", f, n, normal)
		}
	}
	for side, n := range seen {
		if n != 1 {
			t.Errorf("side %s emitted %d times\n", Side(side), n)
		}
	}
}

func TestBlockyCulling(t *testing.T) {
	lib, stone, glass := testLibrary(t)
	mesher := NewBlocky(lib)
	cache := mesher.NewCache()

	// Two adjacent stones hide the faces between them.
	buf := newTestBuffer(t, dvid.Point3d{3, 4, 3})
	setVoxel(t, buf, uint64(stone), dvid.Point3d{1, 1, 1}, voxels.ChannelType)
	setVoxel(t, buf, uint64(stone), dvid.Point3d{1, 2, 1}, voxels.ChannelType)
	var out Output
	if err := mesher.Build(&out, Input{Voxels: buf}, cache); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if n := numFaces(&out); n != 10 {
		t.Errorf("expected 10 faces for two stones, got %d\n", n)
	}

	// Stone face toward glass is drawn, glass face toward stone is not.
	setVoxel(t, buf, uint64(glass), dvid.Point3d{1, 2, 1}, voxels.ChannelType)
	if err := mesher.Build(&out, Input{Voxels: buf}, cache); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if n := numFaces(&out); n != 11 {
		t.Errorf("expected 11 faces for stone and glass, got %d\n", n)
	}
	if len(out.Surfaces) != 2 || out.Surfaces[1].Material != 1 {
		t.Errorf("expected opaque and transparent surfaces, got %d\n", len(out.Surfaces))
	}

	// Glass next to glass of the same id hides the shared faces.
	setVoxel(t, buf, uint64(glass), dvid.Point3d{1, 1, 1}, voxels.ChannelType)
	if err := mesher.Build(&out, Input{Voxels: buf}, cache); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if n := numFaces(&out); n != 10 {
		t.Errorf("expected 10 faces for two glass voxels, got %d\n", n)
	}

	// Ids missing from the library draw nothing and hide nothing.
	setVoxel(t, buf, 99, dvid.Point3d{1, 1, 1}, voxels.ChannelType)
	if err := mesher.Build(&out, Input{Voxels: buf}, cache); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if n := numFaces(&out); n != 6 {
		t.Errorf("expected 6 faces next to an unknown id, got %d\n", n)
	}
}

func TestBlockyOcclusion(t *testing.T) {
	lib, stone, _ := testLibrary(t)
	buf := newTestBuffer(t, dvid.Point3d{3, 4, 4})
	setVoxel(t, buf, uint64(stone), dvid.Point3d{1, 1, 1}, voxels.ChannelType)
	setVoxel(t, buf, uint64(stone), dvid.Point3d{1, 2, 2}, voxels.ChannelType)

	mesher := NewBlocky(lib)
	var out Output
	if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if n := numFaces(&out); n != 12 {
		t.Fatalf("expected 12 faces, got %d\n", n)
	}
	expected := float32(1 - DefaultOcclusionDarkness/3.0)
	s := out.Surfaces[0]
	checked := 0
	for i, p := range s.Positions {
		if s.Normals[i] != (mgl32.Vec3{0, 1, 0}) || p[1] != 1 {
			continue
		}
		shade := s.Colors[i][0]
		if p[2] == 1 && math.Abs(float64(shade-expected)) > 1e-5 {
			t.Errorf("corner %v under the edge neighbor has shade %f, expected %f\n", p, shade, expected)
		}
		if p[2] == 0 && shade != 1 {
			t.Errorf("corner %v away from neighbors has shade %f\n", p, shade)
		}
		checked++
	}
	if checked != 4 {
		t.Errorf("expected to check 4 corners of the top face, checked %d\n", checked)
	}

	mesher.SetOcclusionEnabled(false)
	if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	for _, col := range out.Surfaces[0].Colors {
		if col != (mgl32.Vec4{1, 1, 1, 1}) {
			t.Fatalf("expected no occlusion, got color %v\n", col)
		}
	}
}

func TestBlockyEmpty(t *testing.T) {
	lib, stone, _ := testLibrary(t)
	mesher := NewBlocky(lib)

	buf := newTestBuffer(t, dvid.Point3d{4, 4, 4})
	buf.Fill(uint64(stone), voxels.ChannelType)
	var out Output
	if err := mesher.Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	if !out.Empty() {
		t.Errorf("uniform block should have no faces, got %d\n", numFaces(&out))
	}
	if err := mesher.Build(&out, Input{}, nil); err == nil {
		t.Errorf("expected error on nil voxels\n")
	}

	if _, err := lib.AddModel(Model{Geometry: GeometryCube, Material: MaxMaterials}); err == nil {
		t.Errorf("expected error adding a model with material out of range\n")
	}
	key := mesher.ConfigKey()
	if _, err := lib.AddModel(Model{Name: "dirt", Geometry: GeometryCube}); err != nil {
		t.Fatalf("unable to add model: %v\n", err)
	}
	if mesher.ConfigKey() == key {
		t.Errorf("config key should change with the library\n")
	}
	if mesher.UsedChannelsMask() != voxels.ChannelType.Mask() {
		t.Errorf("bad used channels mask %x\n", mesher.UsedChannelsMask())
	}
}

func TestLibraryFromPalette(t *testing.T) {
	pal := palette.New()
	pal.SetColor8(5, palette.Color8{R: 10, G: 20, B: 30, A: 128})
	pal.SetColor8(6, palette.Transparent)
	lib := NewLibraryFromPalette(pal)
	if lib.Len() != palette.MaxColors {
		t.Fatalf("expected %d models, got %d\n", palette.MaxColors, lib.Len())
	}
	if m, _ := lib.Model(0); !m.IsEmpty() {
		t.Errorf("id 0 should be air\n")
	}
	if m, _ := lib.Model(6); !m.IsEmpty() {
		t.Errorf("fully transparent entry should be empty\n")
	}
	m, _ := lib.Model(5)
	if m.IsEmpty() || !m.Transparent || m.Material != MaterialTransparent || m.Color != pal.Color8(5).Vec4() {
		t.Errorf("bad translucent model %+v\n", m)
	}

	buf := newTestBuffer(t, dvid.Point3d{4, 3, 3})
	setVoxel(t, buf, 1, dvid.Point3d{1, 1, 1}, voxels.ChannelType)
	setVoxel(t, buf, 5, dvid.Point3d{2, 1, 1}, voxels.ChannelType)
	var out Output
	if err := NewBlocky(lib).Build(&out, Input{Voxels: buf}, nil); err != nil {
		t.Fatalf("build failed: %v\n", err)
	}
	// The white cube shows all sides, the glass cube hides its side facing it.
	if len(out.Surfaces) != 2 || numFaces(&out) != 11 {
		t.Errorf("expected 11 faces on two surfaces, got %d on %d\n", numFaces(&out), len(out.Surfaces))
	}
}
