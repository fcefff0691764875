package edit

import (
	"fmt"

	"github.com/janelia-flyem/voxterrain/block"
	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/voxels"
)

// mapBackend edits the loaded blocks of a map.  Cells of unloaded blocks read as defaults
// and are never written, so an edit may apply only partially.
type mapBackend struct {
	m *block.Map
}

// NewMapTool returns a tool editing the loaded blocks of a map.  Edited blocks are marked
// modified and needing LOD update.
func NewMapTool(m *block.Map) (*Tool, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil block map", voxels.ErrInvalidArgument)
	}
	return NewTool(mapBackend{m}), nil
}

func (b mapBackend) GetVoxel(pos dvid.Point3d, c voxels.ChannelID) uint64 {
	return b.m.GetVoxel(pos, c)
}

func (b mapBackend) GetVoxelF(pos dvid.Point3d, c voxels.ChannelID) float64 {
	return b.m.GetVoxelF(pos, c)
}

func (b mapBackend) SetVoxel(v uint64, pos dvid.Point3d, c voxels.ChannelID) {
	if blk := b.m.Block(b.m.VoxelToBlock(pos)); blk != nil {
		blk.Voxels.SetVoxelUnchecked(v, b.m.ToLocal(pos), c)
	}
}

func (b mapBackend) SetVoxelF(v float64, pos dvid.Point3d, c voxels.ChannelID) {
	if blk := b.m.Block(b.m.VoxelToBlock(pos)); blk != nil {
		blk.Voxels.SetVoxelF(v, b.m.ToLocal(pos), c)
	}
}

func (b mapBackend) WriteBox(box dvid.Box3d, c voxels.ChannelID, fn func(pos dvid.Point3d, v uint64) uint64) {
	b.m.ForEachBlockInArea(box, func(blk *block.DataBlock, local dvid.Box3d, origin dvid.Point3d) {
		blk.Voxels.WriteBox(local, c, origin, fn)
	})
}

func (b mapBackend) WriteBoxF(box dvid.Box3d, c voxels.ChannelID, fn func(pos dvid.Point3d, v float64) float64) {
	b.m.ForEachBlockInArea(box, func(blk *block.DataBlock, local dvid.Box3d, origin dvid.Point3d) {
		blk.Voxels.WriteBoxF(local, c, origin, fn)
	})
}

func (b mapBackend) WriteTextureBox(box dvid.Box3d, fn func(pos dvid.Point3d, indices, weights *uint16)) error {
	var err error
	b.m.ForEachBlockInArea(box, func(blk *block.DataBlock, local dvid.Box3d, origin dvid.Point3d) {
		if e := blk.Voxels.WriteBox2U16(local, voxels.ChannelIndices, voxels.ChannelWeights, origin, fn); e != nil && err == nil {
			err = e
		}
	})
	return err
}

func (b mapBackend) IsAreaEditable(box dvid.Box3d) bool {
	return b.m.IsAreaPartiallyLoaded(box)
}

func (b mapBackend) Copy(pos dvid.Point3d, dst *voxels.Buffer, channelsMask uint8) error {
	return b.m.Copy(pos, dst, channelsMask)
}

func (b mapBackend) Paste(pos dvid.Point3d, src *voxels.Buffer, channelsMask uint8, maskValue uint64) error {
	return b.m.Paste(pos, src, channelsMask, maskValue, false)
}

func (b mapBackend) VoxelMetadata(pos dvid.Point3d) interface{} {
	if blk := b.m.Block(b.m.VoxelToBlock(pos)); blk != nil {
		return blk.Voxels.VoxelMetadata(b.m.ToLocal(pos))
	}
	return nil
}

func (b mapBackend) SetVoxelMetadata(pos dvid.Point3d, v interface{}) {
	if blk := b.m.Block(b.m.VoxelToBlock(pos)); blk != nil {
		blk.Voxels.SetVoxelMetadata(b.m.ToLocal(pos), v)
	}
}

func (b mapBackend) PostEdit(box dvid.Box3d) {
	b.m.MarkAreaModified(box)
}
