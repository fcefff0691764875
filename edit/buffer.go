package edit

import (
	"fmt"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/voxels"
)

// bufferBackend edits a single buffer.  Edits must lie fully inside it.
type bufferBackend struct {
	buf *voxels.Buffer
}

// NewBufferTool returns a tool editing a buffer directly.
func NewBufferTool(buf *voxels.Buffer) (*Tool, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", voxels.ErrInvalidArgument)
	}
	return NewTool(bufferBackend{buf}), nil
}

func (b bufferBackend) GetVoxel(pos dvid.Point3d, c voxels.ChannelID) uint64 {
	v, err := b.buf.GetVoxel(pos, c)
	if err != nil {
		dvid.Errorf("buffer tool: %v\n", err)
	}
	return v
}

func (b bufferBackend) GetVoxelF(pos dvid.Point3d, c voxels.ChannelID) float64 {
	v, err := b.buf.GetVoxelF(pos, c)
	if err != nil {
		dvid.Errorf("buffer tool: %v\n", err)
	}
	return v
}

func (b bufferBackend) SetVoxel(v uint64, pos dvid.Point3d, c voxels.ChannelID) {
	if err := b.buf.SetVoxel(v, pos, c); err != nil {
		dvid.Errorf("buffer tool: %v\n", err)
	}
}

func (b bufferBackend) SetVoxelF(v float64, pos dvid.Point3d, c voxels.ChannelID) {
	if err := b.buf.SetVoxelF(v, pos, c); err != nil {
		dvid.Errorf("buffer tool: %v\n", err)
	}
}

func (b bufferBackend) WriteBox(box dvid.Box3d, c voxels.ChannelID, fn func(pos dvid.Point3d, v uint64) uint64) {
	b.buf.WriteBox(box, c, dvid.Point3d{}, fn)
}

func (b bufferBackend) WriteBoxF(box dvid.Box3d, c voxels.ChannelID, fn func(pos dvid.Point3d, v float64) float64) {
	b.buf.WriteBoxF(box, c, dvid.Point3d{}, fn)
}

func (b bufferBackend) WriteTextureBox(box dvid.Box3d, fn func(pos dvid.Point3d, indices, weights *uint16)) error {
	return b.buf.WriteBox2U16(box, voxels.ChannelIndices, voxels.ChannelWeights, dvid.Point3d{}, fn)
}

func (b bufferBackend) IsAreaEditable(box dvid.Box3d) bool {
	return b.buf.Box().Encloses(box)
}

func (b bufferBackend) Copy(pos dvid.Point3d, dst *voxels.Buffer, channelsMask uint8) error {
	for _, c := range voxels.MaskToChannels(channelsMask) {
		if err := dst.CopyRegion(b.buf, pos, pos.Add(dst.Size()), dvid.Point3d{}, c); err != nil {
			return err
		}
	}
	src := dvid.Box3d{Pos: pos, Size: dst.Size()}.Clipped(b.buf.Box())
	dst.ClearVoxelMetadata()
	dst.CopyVoxelMetadataInArea(b.buf, src, src.Pos.Sub(pos))
	return nil
}

func (b bufferBackend) Paste(pos dvid.Point3d, src *voxels.Buffer, channelsMask uint8, maskValue uint64) error {
	b.buf.PasteMasked(src, pos, channelsMask, maskValue)
	return nil
}

func (b bufferBackend) VoxelMetadata(pos dvid.Point3d) interface{} {
	return b.buf.VoxelMetadata(pos)
}

func (b bufferBackend) SetVoxelMetadata(pos dvid.Point3d, v interface{}) {
	b.buf.SetVoxelMetadata(pos, v)
}

// PostEdit has nothing to update for a lone buffer.
func (b bufferBackend) PostEdit(box dvid.Box3d) {}
