package voxels

import (
	"encoding/binary"
	"fmt"

	"github.com/janelia-flyem/voxterrain/dvid"
)

// ReadBox calls fn with every value of a channel within the box, clipped to the
// buffer.  Positions passed to fn are offset by the given amount.
func (b *Buffer) ReadBox(box dvid.Box3d, c ChannelID, offset dvid.Point3d, fn func(pos dvid.Point3d, v uint64)) {
	box = box.Clipped(b.Box())
	box.ForEachCell(func(p dvid.Point3d) {
		fn(p.Add(offset), b.GetVoxelUnchecked(p, c))
	})
}

// WriteBox replaces every value of a channel within the box by fn's result.  The box is
// clipped to the buffer and the channel is expanded once up front.
func (b *Buffer) WriteBox(box dvid.Box3d, c ChannelID, offset dvid.Point3d, fn func(pos dvid.Point3d, v uint64) uint64) {
	box = box.Clipped(b.Box())
	if box.IsEmpty() {
		return
	}
	b.Decompress(c)
	ch := &b.channels[c]
	mask := ch.depth.Mask()
	box.ForEachCell(func(p dvid.Point3d) {
		i := p.ZXYIndex(b.size)
		putRaw(ch.data, i, ch.depth, fn(p.Add(offset), getRaw(ch.data, i, ch.depth))&mask)
	})
}

// WriteBox2U16 runs fn over two 16-bit channels at once, e.g. texture indices and
// weights.  Both channels must be 16-bit.
func (b *Buffer) WriteBox2U16(box dvid.Box3d, c0, c1 ChannelID, offset dvid.Point3d, fn func(pos dvid.Point3d, v0, v1 *uint16)) error {
	if b.channels[c0].depth != Depth16Bit || b.channels[c1].depth != Depth16Bit {
		return fmt.Errorf("%w: channels %s and %s must be 16-bit", ErrUnsupportedDepth, c0, c1)
	}
	box = box.Clipped(b.Box())
	if box.IsEmpty() {
		return nil
	}
	b.Decompress(c0)
	b.Decompress(c1)
	d0 := b.channels[c0].data
	d1 := b.channels[c1].data
	box.ForEachCell(func(p dvid.Point3d) {
		i := p.ZXYIndex(b.size) * 2
		v0 := binary.LittleEndian.Uint16(d0[i:])
		v1 := binary.LittleEndian.Uint16(d1[i:])
		fn(p.Add(offset), &v0, &v1)
		binary.LittleEndian.PutUint16(d0[i:], v0)
		binary.LittleEndian.PutUint16(d1[i:], v1)
	})
	return nil
}

// WriteBoxF is WriteBox over the float view of a channel.
func (b *Buffer) WriteBoxF(box dvid.Box3d, c ChannelID, offset dvid.Point3d, fn func(pos dvid.Point3d, v float64) float64) {
	d := b.channels[c].depth
	b.WriteBox(box, c, offset, func(pos dvid.Point3d, v uint64) uint64 {
		return EncodeFloat(fn(pos, DecodeFloat(v, d, true)), d, true)
	})
}
