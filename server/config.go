/*
	Package server holds the TOML configuration of a voxterrain process and builds the
	components it describes.

	A configuration file looks like:

		[logging]
		logfile = "/var/log/voxterrain.log"
		level = "info"      # debug, info, warning, error, critical or silent
		max_log_size = 500  # MB
		max_log_age = 30    # days
		max_log_backups = 5

		[pool]
		warn_on_leak = true

		[mesher]
		type = "cubes"         # or "blocky"
		greedy = true
		color_mode = "palette" # raw, palette or shader
		store_colors_in_texture = false
		occlusion = true
		occlusion_darkness = 0.8
		workers = 4            # defaults to the number of CPUs

		[cache]
		mesh_bytes = 67108864
		compression = "snappy" # none, snappy or zstd
		checksum = "none"      # none or crc32

		[metrics]
		address = "localhost:9100"
*/
package server

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/meshing"
	"github.com/janelia-flyem/voxterrain/palette"
)

const (
	MesherBlocky = "blocky"
	MesherCubes  = "cubes"

	// DefaultMeshCacheBytes is the size of the mesh result cache if none is configured.
	DefaultMeshCacheBytes = 64 * dvid.Mega
)

// Config is the parsed TOML configuration.
type Config struct {
	Logging dvid.LogConfig
	Pool    PoolConfig
	Mesher  MesherConfig
	Cache   CacheConfig
	Metrics MetricsConfig

	location string
}

type PoolConfig struct {
	WarnOnLeak bool `toml:"warn_on_leak"`
}

type MesherConfig struct {
	Type                 string
	Greedy               bool
	ColorMode            string  `toml:"color_mode"`
	StoreColorsInTexture bool    `toml:"store_colors_in_texture"`
	Occlusion            bool
	OcclusionDarkness    float32 `toml:"occlusion_darkness"`
	Workers              int
}

type CacheConfig struct {
	MeshBytes   int `toml:"mesh_bytes"`
	Compression string
	Checksum    string
}

type MetricsConfig struct {
	Address string
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{WarnOnLeak: true},
		Mesher: MesherConfig{
			Type:              MesherCubes,
			Greedy:            true,
			ColorMode:         meshing.ColorRaw.String(),
			Occlusion:         true,
			OcclusionDarkness: meshing.DefaultOcclusionDarkness,
			Workers:           runtime.NumCPU(),
		},
		Cache: CacheConfig{
			MeshBytes:   DefaultMeshCacheBytes,
			Compression: "snappy",
			Checksum:    "none",
		},
	}
}

// LoadConfig reads a TOML file over the defaults.  Relative paths in the file are
// taken relative to the file's own directory.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	c := DefaultConfig()
	md, err := toml.DecodeFile(filename, c)
	if err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	for _, key := range md.Undecoded() {
		dvid.Warningf("Ignoring unknown configuration key %q in %s\n", key.String(), filename)
	}
	c.location = filename
	dvid.Infof("tomlConfig: %v\n", *c)

	if err := c.convertPathsToAbsolute(filename); err != nil {
		return nil, fmt.Errorf("could not convert relative paths to absolute paths in TOML config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Some settings in the TOML can be given as relative paths.
func (c *Config) convertPathsToAbsolute(configPath string) error {
	var err error
	configDir := filepath.Dir(configPath)

	// [logging].logfile
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = dvid.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return fmt.Errorf("Error converting logfile setting to absolute path")
		}
	}
	return nil
}

// Location returns the file the configuration was loaded from, if any.
func (c *Config) Location() string {
	return c.location
}

// Validate checks settings that cannot be checked while decoding.
func (c *Config) Validate() error {
	if c.Logging.Level != "" {
		if _, err := dvid.ModeFromString(c.Logging.Level); err != nil {
			return err
		}
	}
	switch c.Mesher.Type {
	case MesherBlocky, MesherCubes:
	default:
		return fmt.Errorf("unknown mesher type %q, expected %q or %q", c.Mesher.Type, MesherBlocky, MesherCubes)
	}
	if _, err := meshing.ColorModeFromString(c.Mesher.ColorMode); err != nil {
		return err
	}
	if c.Mesher.OcclusionDarkness < 0 || c.Mesher.OcclusionDarkness > 1 {
		return fmt.Errorf("occlusion_darkness %g must be within [0, 1]", c.Mesher.OcclusionDarkness)
	}
	if c.Cache.MeshBytes < 0 {
		return fmt.Errorf("negative mesh cache size %d", c.Cache.MeshBytes)
	}
	if _, err := dvid.CompressionFromString(c.Cache.Compression); err != nil {
		return err
	}
	if _, err := dvid.ChecksumFromString(c.Cache.Checksum); err != nil {
		return err
	}
	return nil
}

// NewMesher builds the configured mesher.  The blocky mesher reads models from lib and
// the cubes mesher looks colors up in pal when a palette color mode is set.
func (c *Config) NewMesher(lib *meshing.Library, pal *palette.Palette) (meshing.Mesher, error) {
	mc := c.Mesher
	switch mc.Type {
	case MesherBlocky:
		if lib == nil {
			return nil, fmt.Errorf("blocky mesher needs a model library")
		}
		m := meshing.NewBlocky(lib)
		m.SetOcclusionEnabled(mc.Occlusion)
		m.SetOcclusionDarkness(mc.OcclusionDarkness)
		return m, nil
	case MesherCubes:
		mode, err := meshing.ColorModeFromString(mc.ColorMode)
		if err != nil {
			return nil, err
		}
		m := meshing.NewCubes()
		m.SetColorMode(mode)
		m.SetPalette(pal)
		m.SetGreedyMeshingEnabled(mc.Greedy)
		m.SetStoreColorsInTexture(mc.StoreColorsInTexture)
		return m, nil
	default:
		return nil, fmt.Errorf("unknown mesher type %q", mc.Type)
	}
}

// NewMeshPool returns a build pool with the configured workers and result cache.
func (c *Config) NewMeshPool() (*meshing.Pool, error) {
	compress, err := dvid.CompressionFromString(c.Cache.Compression)
	if err != nil {
		return nil, err
	}
	checksum, err := dvid.ChecksumFromString(c.Cache.Checksum)
	if err != nil {
		return nil, err
	}
	return meshing.NewPool(c.Mesher.Workers, meshing.NewResultCache(c.Cache.MeshBytes, compress, checksum)), nil
}
