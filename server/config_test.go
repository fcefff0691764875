package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/meshing"
	"github.com/janelia-flyem/voxterrain/palette"
)

const testConfig = `
[logging]
logfile = "logs/voxterrain.log"
level = "warning"
max_log_size = 10
max_log_age = 2

[pool]
warn_on_leak = false

[mesher]
type = "blocky"
occlusion = false
occlusion_darkness = 0.5
workers = 3

[cache]
mesh_bytes = 1048576
compression = "zstd"
checksum = "crc32"

[metrics]
address = "localhost:9999"
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("unable to write config: %v\n", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, testConfig)
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unable to load config: %v\n", err)
	}
	if c.Location() != path {
		t.Errorf("bad location %q\n", c.Location())
	}
	expected := filepath.Join(filepath.Dir(path), "logs", "voxterrain.log")
	if c.Logging.Logfile != expected {
		t.Errorf("expected logfile %q, got %q\n", expected, c.Logging.Logfile)
	}
	if c.Logging.MaxSize != 10 || c.Logging.MaxAge != 2 || c.Logging.Level != "warning" {
		t.Errorf("bad log rotation settings: %v\n", c.Logging)
	}
	if c.Pool.WarnOnLeak {
		t.Errorf("expected warn_on_leak to be off\n")
	}
	if c.Mesher.Type != MesherBlocky || c.Mesher.Occlusion || c.Mesher.OcclusionDarkness != 0.5 || c.Mesher.Workers != 3 {
		t.Errorf("bad mesher settings: %v\n", c.Mesher)
	}
	// Unset keys keep their defaults.
	if !c.Mesher.Greedy || c.Mesher.ColorMode != "raw" {
		t.Errorf("expected default greedy and color mode, got %v\n", c.Mesher)
	}
	if c.Cache.MeshBytes != 1<<20 || c.Metrics.Address != "localhost:9999" {
		t.Errorf("bad cache or metrics settings\n")
	}

	lib := meshing.NewLibrary(16)
	m, err := c.NewMesher(lib, nil)
	if err != nil {
		t.Fatalf("unable to create mesher: %v\n", err)
	}
	blocky, ok := m.(*meshing.Blocky)
	if !ok {
		t.Fatalf("expected blocky mesher, got %T\n", m)
	}
	if blocky.OcclusionEnabled() || blocky.OcclusionDarkness() != 0.5 || blocky.Library() != lib {
		t.Errorf("blocky mesher not configured\n")
	}
	if _, err := c.NewMesher(nil, nil); err == nil {
		t.Errorf("expected error creating blocky mesher without library\n")
	}
	p, err := c.NewMeshPool()
	if err != nil {
		t.Fatalf("unable to create mesh pool: %v\n", err)
	}
	if p.Workers() != 3 {
		t.Errorf("expected 3 workers, got %d\n", p.Workers())
	}
	if compress, checksum := p.Results().Format(); compress != dvid.Zstd || checksum != dvid.CRC32 {
		t.Errorf("expected zstd and crc32 mesh cache, got %s and %s\n", compress, checksum)
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v\n", err)
	}
	c.Mesher.ColorMode = "shader"
	c.Mesher.Greedy = false
	pal := palette.New()
	m, err := c.NewMesher(nil, pal)
	if err != nil {
		t.Fatalf("unable to create mesher: %v\n", err)
	}
	cubes, ok := m.(*meshing.Cubes)
	if !ok {
		t.Fatalf("expected cubes mesher, got %T\n", m)
	}
	if cubes.ColorMode() != meshing.ColorShaderPalette || cubes.GreedyMeshingEnabled() || cubes.Palette() != pal {
		t.Errorf("cubes mesher not configured\n")
	}
}

func TestBadConfig(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Errorf("expected error without file name\n")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("expected error for missing file\n")
	}
	bad := []string{
		"[mesher]\ntype = \"marching\"\n",
		"[mesher]\ncolor_mode = \"hsv\"\n",
		"[mesher]\nocclusion_darkness = 1.5\n",
		"[cache]\nmesh_bytes = -1\n",
		"[cache]\ncompression = \"gzip\"\n",
		"[logging]\nlevel = \"chatty\"\n",
		"[cache]\nchecksum = \"md5\"\n",
		"[mesher\n",
	}
	for _, content := range bad {
		if _, err := LoadConfig(writeConfig(t, content)); err == nil {
			t.Errorf("expected error loading %q\n", content)
		}
	}
}
