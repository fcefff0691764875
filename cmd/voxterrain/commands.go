package main

import (
	"context"
	"fmt"
	"math/bits"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/janelia-flyem/voxterrain"
	"github.com/janelia-flyem/voxterrain/block"
	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/edit"
	"github.com/janelia-flyem/voxterrain/export"
	"github.com/janelia-flyem/voxterrain/meshing"
	"github.com/janelia-flyem/voxterrain/palette"
	"github.com/janelia-flyem/voxterrain/server"
	"github.com/janelia-flyem/voxterrain/vox"
	"github.com/janelia-flyem/voxterrain/voxels"
)

// loadModel reads a model into a buffer padded for the mesher.  The blocky mesher gets
// palette indexes in the TYPE channel and a library of colored cubes, the cubes mesher
// gets indexes or 32-bit colors in the COLOR channel depending on its color mode.
func loadModel(vctx *voxterrain.Context, cfg *server.Config, filename string, index int, padding int32) (*voxels.Buffer, *meshing.Library, *palette.Palette, error) {
	data, err := vox.ReadFile(filename)
	if err != nil {
		return nil, nil, nil, err
	}
	buf := voxels.NewBuffer(vctx.Pool())
	pal := palette.New()
	switch {
	case cfg.Mesher.Type == server.MesherBlocky:
		if err := data.LoadIntoBuffer(index, buf, pal, padding); err != nil {
			buf.Release()
			return nil, nil, nil, err
		}
		for i := 0; i < buf.Volume(); i++ {
			buf.SetVoxelAtIndex(buf.GetVoxelAtIndex(i, voxels.ChannelColor), i, voxels.ChannelType)
		}
		buf.Fill(0, voxels.ChannelColor)
		buf.CompressUniformChannels()
		return buf, meshing.NewLibraryFromPalette(pal), pal, nil

	case strings.EqualFold(cfg.Mesher.ColorMode, meshing.ColorRaw.String()):
		if err := buf.SetChannelDepth(voxels.ChannelColor, voxels.Depth32Bit); err != nil {
			buf.Release()
			return nil, nil, nil, err
		}
		pal = nil
	}
	if err := data.LoadIntoBuffer(index, buf, pal, padding); err != nil {
		buf.Release()
		return nil, nil, nil, err
	}
	return buf, nil, pal, nil
}

// DoMesh meshes a model of a .vox file and saves it as binary glTF.
func DoMesh(ctx context.Context, vctx *voxterrain.Context, cfg *server.Config, input, output string, index int) error {
	tlog := dvid.NewTimeLog()
	paddingMesher, err := cfg.NewMesher(meshing.NewLibrary(1), palette.New())
	if err != nil {
		return err
	}
	padding := int32(paddingMesher.MinimumPadding())

	buf, lib, pal, err := loadModel(vctx, cfg, input, index, padding)
	if err != nil {
		return err
	}
	defer buf.Release()
	mesher, err := cfg.NewMesher(lib, pal)
	if err != nil {
		return err
	}
	pool, err := cfg.NewMeshPool()
	if err != nil {
		return err
	}

	out := new(meshing.Output)
	if *blockSize == 0 {
		err = pool.Build(mesher, out, meshing.Input{Voxels: buf}, mesher.NewCache())
	} else {
		out, err = meshBlocks(ctx, vctx, pool, mesher, buf, padding, *blockSize)
	}
	if err != nil {
		return err
	}
	if out.Empty() {
		return fmt.Errorf("model %d of %s produced no geometry", index, input)
	}
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if err := export.SaveGLB(output, out, name); err != nil {
		return err
	}
	tlog.Infof("Meshed %s model %d into %s: %s triangles in %d surfaces", input, index, output,
		humanize.Comma(int64(out.NumTriangles())), len(out.Surfaces))
	return nil
}

// meshBlocks splits a padded model into a block map, meshes every block in parallel and
// merges the results in model space.
func meshBlocks(ctx context.Context, vctx *voxterrain.Context, pool *meshing.Pool, mesher meshing.Mesher, buf *voxels.Buffer, padding int32, size int) (*meshing.Output, error) {
	po2 := uint(bits.Len(uint(size)) - 1)
	if size <= 0 || 1<<po2 != size {
		return nil, fmt.Errorf("block size %d is not a power of two", size)
	}
	m := vctx.NewMap(po2, 0)
	defer m.Clear()

	mask := mesher.UsedChannelsMask()
	channels := voxels.MaskToChannels(mask)
	modelSize := buf.Size().AddScalar(-2 * padding)
	minBlock := m.VoxelToBlock(dvid.Point3d{})
	maxBlock := m.VoxelToBlock(modelSize.AddScalar(-1))
	var positions []dvid.Point3d
	for z := minBlock[2]; z <= maxBlock[2]; z++ {
		for y := minBlock[1]; y <= maxBlock[1]; y++ {
			for x := minBlock[0]; x <= maxBlock[0]; x++ {
				bpos := dvid.Point3d{x, y, z}
				b, err := m.CreateBlock(bpos)
				if err != nil {
					return nil, err
				}
				for _, c := range channels {
					if err := b.Voxels.SetChannelDepth(c, buf.ChannelDepth(c)); err != nil {
						return nil, err
					}
				}
				positions = append(positions, bpos)
			}
		}
	}
	if err := m.Paste(dvid.Point3d{-padding, -padding, -padding}, buf, mask, 0, false); err != nil {
		return nil, err
	}
	dvid.Infof("Split model into %s\n", m.Stats())

	jobs := make([]meshing.Job, len(positions))
	for i, bpos := range positions {
		bs := m.BlockSize()
		area := dvid.Box3d{Pos: m.BlockToVoxel(bpos), Size: dvid.Point3d{bs, bs, bs}}.Padded(padding)
		padded, err := vctx.NewBuffer(area.Size)
		if err != nil {
			return nil, err
		}
		defer padded.Release()
		for _, c := range channels {
			if err := padded.SetChannelDepth(c, buf.ChannelDepth(c)); err != nil {
				return nil, err
			}
		}
		if err := m.Copy(area.Pos, padded, mask); err != nil {
			return nil, err
		}
		jobs[i] = meshing.Job{Input: meshing.Input{Voxels: padded}, Output: new(meshing.Output)}
	}
	if err := pool.BuildAll(ctx, mesher, jobs); err != nil {
		return nil, err
	}

	merged := new(meshing.Output)
	for i, job := range jobs {
		origin := m.BlockToVoxel(positions[i])
		offset := mgl32.Vec3{float32(origin[0]), float32(origin[1]), float32(origin[2])}
		if err := merged.Merge(job.Output, offset); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// DoStats prints what a model costs in memory once loaded.
func DoStats(vctx *voxterrain.Context, input string, index int) error {
	data, err := vox.ReadFile(input)
	if err != nil {
		return err
	}
	fmt.Printf("%s: version %d, %d models\n", input, data.Version, len(data.Models))
	for i := range data.Models {
		md := &data.Models[i]
		filled := 0
		for _, ci := range md.ColorIndexes {
			if ci != 0 {
				filled++
			}
		}
		fmt.Printf("  model %d: %s voxels, %s filled\n", i, md.Size, humanize.Comma(int64(filled)))
	}

	buf := voxels.NewBuffer(vctx.Pool())
	defer buf.Release()
	if err := data.LoadIntoBuffer(index, buf, palette.New(), 0); err != nil {
		return err
	}
	fmt.Printf("Model %d buffer: %s, %s dense, content hash %016x\n", index, buf.Size(),
		humanize.Bytes(uint64(buf.DenseBytes())), buf.ContentHash())

	m := vctx.NewMap(4, 0)
	defer m.Clear()
	if err := m.Paste(dvid.Point3d{}, buf, voxels.ChannelColor.Mask(), 0, true); err != nil {
		return err
	}
	m.ForEachBlock(func(b *block.DataBlock) {
		b.Voxels.CompressUniformChannels()
	})
	fmt.Printf("Block map: %s\n", m.Stats())
	fmt.Printf("Memory pool: %s\n", vctx.Pool().Stats())
	return nil
}

// DoEditDemo edits a small terrain through a map tool, casts a ray into it and unloads
// it by removing its viewers.  The sphere added on top of the terrain is centered on
// center.
func DoEditDemo(vctx *voxterrain.Context, center dvid.Vector3d) error {
	m := vctx.NewMap(4, 0)
	defer m.Clear()
	viewers := make(map[dvid.Point3d]block.ViewerID)
	for z := int32(0); z < 2; z++ {
		for y := int32(0); y < 2; y++ {
			for x := int32(0); x < 2; x++ {
				bpos := dvid.Point3d{x, y, z}
				if _, err := m.CreateBlock(bpos); err != nil {
					return err
				}
				id, err := m.AddViewer(bpos)
				if err != nil {
					return err
				}
				viewers[bpos] = id
			}
		}
	}

	tool, err := vctx.NewMapTool(m)
	if err != nil {
		return err
	}
	tool.SetValue(1)
	if err := tool.DoBox(dvid.Point3d{0, 0, 0}, dvid.Point3d{31, 7, 31}); err != nil {
		return err
	}
	if err := tool.DoSphere(center, 5); err != nil {
		return err
	}
	tool.SetMode(edit.ModeRemove)
	if err := tool.DoSphere(dvid.Vector3d{8, 7, 8}, 3); err != nil {
		return err
	}
	fmt.Printf("After edits: %s\n", m.Stats())

	for _, x := range []float64{16.5, 8.5, 40.5} {
		origin := dvid.Vector3d{x, 30.5, 16.5}
		if hit := tool.Raycast(origin, dvid.Vector3d{0, -1, 0}, 40); hit != nil {
			fmt.Printf("Ray from %v hit %s at distance %.2f\n", origin, hit.Position, hit.Distance)
		} else {
			fmt.Printf("Ray from %v hit nothing\n", origin)
		}
	}

	unloaded := 0
	for bpos, id := range viewers {
		done, err := m.RemoveViewer(bpos, id)
		if err != nil {
			return err
		}
		if done {
			unloaded++
		}
	}
	fmt.Printf("Unloaded %d blocks, %d left; memory pool: %s\n", unloaded, m.NumBlocks(), vctx.Pool().Stats())
	return nil
}
