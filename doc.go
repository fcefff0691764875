/*
Package voxterrain is a voxel terrain subsystem: chunked multi-channel voxel storage,
meshers that turn voxel blocks into renderable surfaces, and tools that edit voxels.

Packages

	dvid      logging, points and boxes, data serialization
	mempool   size-keyed pool of byte buffers backing dense voxel channels
	voxels    multi-channel voxel buffers
	palette   256-entry color palettes
	block     data blocks with viewer registration and the block map
	edit      voxel editing tools over a buffer or a block map
	meshing   blocky and cubes meshers, worker pool and mesh cache
	vox       MagicaVoxel .vox reader
	export    binary glTF export of meshes
	server    TOML configuration

A Context owns the memory pool every buffer and block map of a process draws from.
Buffers are released explicitly and the pool is checked for leaks on shutdown:

	ctx := voxterrain.New()
	buf, err := ctx.NewBuffer(dvid.Point3d{16, 16, 16})
	...
	buf.Release()
	if err := ctx.Shutdown(); err != nil {
		// some buffer was never released
	}

The voxterrain command in cmd/voxterrain meshes .vox files and prints pool statistics.
*/
package voxterrain
