package voxels

import (
	"github.com/janelia-flyem/voxterrain/dvid"
)

// SetVoxelMetadata attaches an opaque value to a cell.  A nil value erases it.
// Positions outside the buffer are ignored.
func (b *Buffer) SetVoxelMetadata(pos dvid.Point3d, v interface{}) {
	if !b.IsPositionValid(pos) {
		dvid.Errorf("Voxel metadata position %s outside buffer of size %s\n", pos, b.size)
		return
	}
	if v == nil {
		if b.metadata != nil {
			delete(b.metadata, pos)
		}
		return
	}
	if b.metadata == nil {
		b.metadata = make(map[dvid.Point3d]interface{})
	}
	b.metadata[pos] = v
}

// VoxelMetadata returns the value attached to a cell or nil.
func (b *Buffer) VoxelMetadata(pos dvid.Point3d) interface{} {
	if b.metadata == nil {
		return nil
	}
	return b.metadata[pos]
}

// MetadataCount returns the number of cells carrying metadata.
func (b *Buffer) MetadataCount() int {
	return len(b.metadata)
}

// ClearVoxelMetadata drops every metadata entry.
func (b *Buffer) ClearVoxelMetadata() {
	b.metadata = nil
}

// ClearVoxelMetadataInArea drops entries within the box.
func (b *Buffer) ClearVoxelMetadataInArea(box dvid.Box3d) {
	for pos := range b.metadata {
		if box.Contains(pos) {
			delete(b.metadata, pos)
		}
	}
}

// ForEachVoxelMetadataInArea calls fn for every entry within the box.
func (b *Buffer) ForEachVoxelMetadataInArea(box dvid.Box3d, fn func(pos dvid.Point3d, v interface{})) {
	for pos, v := range b.metadata {
		if box.Contains(pos) {
			fn(pos, v)
		}
	}
}

// CopyVoxelMetadataInArea copies src entries within srcBox into the receiver, with
// srcBox.Pos landing at dstOrigin.  Entries falling outside the receiver are dropped.
func (b *Buffer) CopyVoxelMetadataInArea(src *Buffer, srcBox dvid.Box3d, dstOrigin dvid.Point3d) {
	srcBox = srcBox.Clipped(src.Box())
	if srcBox.IsEmpty() {
		return
	}
	offset := dstOrigin.Sub(srcBox.Pos)
	for pos, v := range src.metadata {
		if !srcBox.Contains(pos) {
			continue
		}
		dst := pos.Add(offset)
		if b.IsPositionValid(dst) {
			b.SetVoxelMetadata(dst, v)
		}
	}
}
