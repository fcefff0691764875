package voxels

import (
	"fmt"

	"github.com/janelia-flyem/voxterrain/dvid"
)

func clipCopyRegionCoord(srcMin, srcMax *int32, srcSize int32, dstMin *int32, dstSize int32) {
	// Clamp source and shift destination for moved borders.
	if *srcMin < 0 {
		*dstMin += -*srcMin
		*srcMin = 0
	}
	if *srcMax > srcSize {
		*srcMax = srcSize
	}
	// Clamp destination and shrink source for moved borders.
	if *dstMin < 0 {
		*srcMin += -*dstMin
		*dstMin = 0
	}
	dstMax := *dstMin + (*srcMax - *srcMin)
	if d := dstMax - dstSize; d > 0 {
		*srcMax -= d
	}
	// The source may have negative size now, meaning there is nothing to copy.
}

// ClipCopyRegion restricts [srcMin, srcMax) to the source bounds and to the part that
// lands inside the destination when copied to dstMin.  dstMin moves along with clipped
// source borders.
func ClipCopyRegion(srcMin, srcMax *dvid.Point3d, srcSize dvid.Point3d, dstMin *dvid.Point3d, dstSize dvid.Point3d) {
	for i := 0; i < 3; i++ {
		clipCopyRegionCoord(&srcMin[i], &srcMax[i], srcSize[i], &dstMin[i], dstSize[i])
	}
}

// Copy3DRegionZXY copies the box [srcMin, srcMax) of a ZXY-ordered source array into a
// ZXY-ordered destination array at dstMin.  Items are itemSize bytes.  The region is
// sorted and clipped first; a degenerate region is a no-op.  Copying across the same
// array to an overlapping area is rejected.
func Copy3DRegionZXY(dst []byte, dstSize, dstMin dvid.Point3d, src []byte, srcSize, srcMin, srcMax dvid.Point3d, itemSize int) error {
	srcMin, srcMax = srcMin.Min(srcMax), srcMin.Max(srcMax)
	ClipCopyRegion(&srcMin, &srcMax, srcSize, &dstMin, dstSize)
	area := srcMax.Sub(srcMin)
	if !area.AllPositive() {
		return nil
	}
	if len(src) > 0 && len(dst) > 0 && &src[0] == &dst[0] {
		if dvid.BoxFromMinMax(srcMin, srcMax).Intersects(dvid.Box3d{Pos: dstMin, Size: area}) {
			return fmt.Errorf("%w: copy across the same buffer to an overlapping area", ErrInvalidArgument)
		}
	}
	if int64(len(dst)) < dstSize.Prod()*int64(itemSize) || int64(len(src)) < srcSize.Prod()*int64(itemSize) {
		return fmt.Errorf("%w: array smaller than its declared size", ErrInvalidArgument)
	}

	if area == srcSize && area == dstSize {
		copy(dst, src[:srcSize.Prod()*int64(itemSize)])
		return nil
	}

	// Copy row by row along Y, the contiguous axis.
	srcRowOffset := int(srcSize[1]) * itemSize
	dstRowOffset := int(dstSize[1]) * itemSize
	rowBytes := int(area[1]) * itemSize
	var pos dvid.Point3d
	for pos[2] = 0; pos[2] < area[2]; pos[2]++ {
		pos[0] = 0
		srcRI := srcMin.Add(pos).ZXYIndex(srcSize) * itemSize
		dstRI := dstMin.Add(pos).ZXYIndex(dstSize) * itemSize
		for ; pos[0] < area[0]; pos[0]++ {
			copy(dst[dstRI:dstRI+rowBytes], src[srcRI:srcRI+rowBytes])
			srcRI += srcRowOffset
			dstRI += dstRowOffset
		}
	}
	return nil
}

// CopyFrom makes the receiver a full copy of other, including size, depths and
// metadata.
func (b *Buffer) CopyFrom(other *Buffer) {
	b.Clear()
	b.size = other.size
	for c := range b.channels {
		src := &other.channels[c]
		dst := &b.channels[c]
		dst.depth = src.depth
		dst.defval = src.defval
		if src.data != nil {
			dst.data = b.pool.Allocate(uint32(len(src.data)))
			copy(dst.data, src.data)
		}
	}
	for pos, v := range other.metadata {
		b.SetVoxelMetadata(pos, v)
	}
}

// CopyChannelFrom makes channel c of the receiver a copy of the same channel of a
// buffer of identical size.
func (b *Buffer) CopyChannelFrom(other *Buffer, c ChannelID) error {
	if other.size != b.size {
		return fmt.Errorf("%w: copying channel between sizes %s and %s", ErrInvalidArgument, other.size, b.size)
	}
	src := &other.channels[c]
	dst := &b.channels[c]
	b.releaseChannel(c)
	dst.depth = src.depth
	dst.defval = src.defval
	if src.data != nil {
		dst.data = b.pool.Allocate(uint32(len(src.data)))
		copy(dst.data, src.data)
	}
	return nil
}

// CopyRegion copies the box [srcMin, srcMax) of a channel of src into the receiver at
// dstMin.  Both channels must have the same depth.  A uniform source fills the area
// without expanding the destination if the values already match.
func (b *Buffer) CopyRegion(src *Buffer, srcMin, srcMax, dstMin dvid.Point3d, c ChannelID) error {
	if err := checkChannel(c); err != nil {
		return err
	}
	sch := &src.channels[c]
	dch := &b.channels[c]
	if sch.depth != dch.depth {
		return fmt.Errorf("%w: copying %s channel %s into %s", ErrUnsupportedDepth, c, sch.depth, dch.depth)
	}
	if sch.data == nil {
		srcMin, srcMax = srcMin.Min(srcMax), srcMin.Max(srcMax)
		ClipCopyRegion(&srcMin, &srcMax, src.size, &dstMin, b.size)
		area := srcMax.Sub(srcMin)
		if !area.AllPositive() {
			return nil
		}
		if dch.data == nil && dch.defval == sch.defval {
			return nil
		}
		b.FillArea(sch.defval, dstMin, dstMin.Add(area), c)
		return nil
	}
	b.Decompress(c)
	return Copy3DRegionZXY(dch.data, b.size, dstMin, sch.data, src.size, srcMin, srcMax, dch.depth.Bytes())
}

// PasteMasked writes the channels of src selected by channelsMask into the receiver
// with src's origin at dstPos.  Source cells equal to maskValue are skipped and leave
// the destination untouched, metadata included.  Metadata of written cells is replaced
// by src's.
func (b *Buffer) PasteMasked(src *Buffer, dstPos dvid.Point3d, channelsMask uint8, maskValue uint64) {
	box := dvid.Box3d{Pos: dstPos, Size: src.size}.Clipped(b.Box())
	if box.IsEmpty() {
		return
	}
	for _, c := range MaskToChannels(channelsMask) {
		box.ForEachCell(func(p dvid.Point3d) {
			v := src.GetVoxelUnchecked(p.Sub(dstPos), c)
			if v != maskValue {
				b.SetVoxelUnchecked(v, p, c)
				b.SetVoxelMetadata(p, src.VoxelMetadata(p.Sub(dstPos)))
			}
		})
	}
}
