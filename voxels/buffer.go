/*
	Package voxels implements the multi-channel voxel buffer of one chunk.

	Each channel has its own bit depth and is either UNIFORM (a single value, no backing
	array) or DENSE (a raw array obtained from a mempool.Pool).  Dense data is laid out in
	ZXY order: index = y + size.y*(x + size.x*z), so Y is the fastest varying axis.
	A Buffer provides no internal locking; concurrent reads of an unmodified buffer are safe.
*/
package voxels

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/mempool"
)

// MaxVolume caps the number of voxels of one buffer so dense channels fit pool buckets.
const MaxVolume = math.MaxUint32 / 8

type channel struct {
	depth Depth

	// Uniform value when data is nil.
	defval uint64

	// Dense storage, nil when uniform.
	data []byte
}

// Buffer holds the voxel data of one chunk.
type Buffer struct {
	pool     *mempool.Pool
	size     dvid.Point3d
	channels [MaxChannels]channel
	metadata map[dvid.Point3d]interface{}
}

// NewBuffer returns an empty buffer whose dense channels are allocated from pool.
// A nil pool is a programming error.
func NewBuffer(pool *mempool.Pool) *Buffer {
	if pool == nil {
		panic("voxels: buffer requires a memory pool")
	}
	b := &Buffer{pool: pool}
	for c := range b.channels {
		b.channels[c].depth = defaultDepths[c]
		b.channels[c].defval = DefaultValue(ChannelID(c), defaultDepths[c])
	}
	return b
}

// NewBufferWithSize is a shortcut for NewBuffer followed by Create.
func NewBufferWithSize(pool *mempool.Pool, size dvid.Point3d) (*Buffer, error) {
	b := NewBuffer(pool)
	if err := b.Create(size); err != nil {
		return nil, err
	}
	return b, nil
}

// Create (re)initializes every channel to UNIFORM with its default value.  Dense
// data from a previous size is returned to the pool.  Channel depths are kept.
func (b *Buffer) Create(size dvid.Point3d) error {
	if !size.AllPositive() || size.Prod() > MaxVolume {
		return fmt.Errorf("%w: buffer size %s", ErrInvalidArgument, size)
	}
	b.Clear()
	b.size = size
	for c := range b.channels {
		b.channels[c].defval = DefaultValue(ChannelID(c), b.channels[c].depth)
	}
	return nil
}

// Clear returns every dense channel to the pool and drops metadata.  Uniform values
// and size are kept.
func (b *Buffer) Clear() {
	for c := range b.channels {
		b.releaseChannel(ChannelID(c))
	}
	b.metadata = nil
}

// Release is Clear under the name used by owners that are done with the buffer.
func (b *Buffer) Release() {
	b.Clear()
}

func (b *Buffer) releaseChannel(c ChannelID) {
	ch := &b.channels[c]
	if ch.data != nil {
		b.pool.Recycle(ch.data, uint32(len(ch.data)))
		ch.data = nil
	}
}

// Pool returns the memory pool backing dense channels.
func (b *Buffer) Pool() *mempool.Pool {
	return b.pool
}

// Size returns the buffer size in voxels.
func (b *Buffer) Size() dvid.Point3d {
	return b.size
}

// Volume returns the number of voxels.
func (b *Buffer) Volume() int {
	return int(b.size.Prod())
}

// Box returns the box spanning the whole buffer from origin.
func (b *Buffer) Box() dvid.Box3d {
	return dvid.Box3d{Size: b.size}
}

// IsPositionValid returns true if 0 <= pos < size on every axis.
func (b *Buffer) IsPositionValid(pos dvid.Point3d) bool {
	return pos[0] >= 0 && pos[1] >= 0 && pos[2] >= 0 && pos.LessThan(b.size)
}

func (b *Buffer) channelBytes(c ChannelID) int {
	return b.Volume() * b.channels[c].depth.Bytes()
}

func checkChannel(c ChannelID) error {
	if int(c) >= MaxChannels {
		return fmt.Errorf("%w: channel %d", ErrInvalidArgument, c)
	}
	return nil
}

// ChannelDepth returns the bit depth of a channel.
func (b *Buffer) ChannelDepth(c ChannelID) Depth {
	return b.channels[c].depth
}

// SetChannelDepth changes the depth of a channel, converting existing values.  The SDF
// channel converts through its float view; other channels truncate to the new depth.
func (b *Buffer) SetChannelDepth(c ChannelID, d Depth) error {
	if err := checkChannel(c); err != nil {
		return err
	}
	if d > Depth64Bit {
		return fmt.Errorf("%w: %d", ErrUnsupportedDepth, d)
	}
	ch := &b.channels[c]
	if ch.depth == d {
		return nil
	}
	convert := func(v uint64) uint64 {
		if c == ChannelSDF {
			return EncodeFloat(DecodeFloat(v, ch.depth, true), d, true)
		}
		return v & d.Mask()
	}
	if ch.data == nil {
		if ch.defval == DefaultValue(c, ch.depth) {
			ch.defval = DefaultValue(c, d)
		} else {
			ch.defval = convert(ch.defval)
		}
		ch.depth = d
		return nil
	}
	dvid.Warningf("Converting dense channel %s from %s to %s\n", c, ch.depth, d)
	old := ch.data
	oldDepth := ch.depth
	n := b.Volume()
	data := b.pool.Allocate(uint32(n * d.Bytes()))
	for i := 0; i < n; i++ {
		putRaw(data, i, d, convert(getRaw(old, i, oldDepth)))
	}
	b.pool.Recycle(old, uint32(len(old)))
	ch.data = data
	ch.depth = d
	ch.defval = convert(ch.defval)
	return nil
}

func getRaw(data []byte, i int, d Depth) uint64 {
	switch d {
	case Depth8Bit:
		return uint64(data[i])
	case Depth16Bit:
		return uint64(binary.LittleEndian.Uint16(data[i*2:]))
	case Depth32Bit:
		return uint64(binary.LittleEndian.Uint32(data[i*4:]))
	default:
		return binary.LittleEndian.Uint64(data[i*8:])
	}
}

func putRaw(data []byte, i int, d Depth, v uint64) {
	switch d {
	case Depth8Bit:
		data[i] = uint8(v)
	case Depth16Bit:
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	case Depth32Bit:
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	default:
		binary.LittleEndian.PutUint64(data[i*8:], v)
	}
}

// GetVoxel returns the value of a channel at a position.
func (b *Buffer) GetVoxel(pos dvid.Point3d, c ChannelID) (uint64, error) {
	if err := checkChannel(c); err != nil {
		return 0, err
	}
	if !b.IsPositionValid(pos) {
		return 0, fmt.Errorf("%w: position %s outside buffer of size %s", ErrInvalidArgument, pos, b.size)
	}
	return b.GetVoxelUnchecked(pos, c), nil
}

// GetVoxelUnchecked is GetVoxel without position or channel checks.
func (b *Buffer) GetVoxelUnchecked(pos dvid.Point3d, c ChannelID) uint64 {
	ch := &b.channels[c]
	if ch.data == nil {
		return ch.defval
	}
	return getRaw(ch.data, pos.ZXYIndex(b.size), ch.depth)
}

// GetVoxelAtIndex returns the value at a ZXY index without checks.
func (b *Buffer) GetVoxelAtIndex(i int, c ChannelID) uint64 {
	ch := &b.channels[c]
	if ch.data == nil {
		return ch.defval
	}
	return getRaw(ch.data, i, ch.depth)
}

// SetVoxel writes a value truncated to the channel depth.  Writing a value different
// from a uniform channel's value expands the channel to DENSE first.
func (b *Buffer) SetVoxel(v uint64, pos dvid.Point3d, c ChannelID) error {
	if err := checkChannel(c); err != nil {
		return err
	}
	if !b.IsPositionValid(pos) {
		return fmt.Errorf("%w: position %s outside buffer of size %s", ErrInvalidArgument, pos, b.size)
	}
	b.SetVoxelUnchecked(v, pos, c)
	return nil
}

// SetVoxelUnchecked is SetVoxel without position or channel checks.
func (b *Buffer) SetVoxelUnchecked(v uint64, pos dvid.Point3d, c ChannelID) {
	b.SetVoxelAtIndex(v, pos.ZXYIndex(b.size), c)
}

// SetVoxelAtIndex writes a value at a ZXY index without checks.
func (b *Buffer) SetVoxelAtIndex(v uint64, i int, c ChannelID) {
	ch := &b.channels[c]
	v &= ch.depth.Mask()
	if ch.data == nil {
		if v == ch.defval {
			return
		}
		b.Decompress(c)
	}
	putRaw(ch.data, i, ch.depth, v)
}

// GetVoxelF returns the float view of a channel value.
func (b *Buffer) GetVoxelF(pos dvid.Point3d, c ChannelID) (float64, error) {
	v, err := b.GetVoxel(pos, c)
	if err != nil {
		return 0, err
	}
	return DecodeFloat(v, b.channels[c].depth, true), nil
}

// SetVoxelF writes the float view of a channel value.
func (b *Buffer) SetVoxelF(v float64, pos dvid.Point3d, c ChannelID) error {
	if err := checkChannel(c); err != nil {
		return err
	}
	return b.SetVoxel(EncodeFloat(v, b.channels[c].depth, true), pos, c)
}

// IsUniform returns true if the channel has no backing array.
func (b *Buffer) IsUniform(c ChannelID) bool {
	return b.channels[c].data == nil
}

// UniformValue returns the uniform value of a channel, valid only when IsUniform.
func (b *Buffer) UniformValue(c ChannelID) uint64 {
	return b.channels[c].defval
}

// Decompress expands a uniform channel to DENSE, filled with its uniform value.
func (b *Buffer) Decompress(c ChannelID) {
	ch := &b.channels[c]
	if ch.data != nil {
		return
	}
	ch.data = b.pool.Allocate(uint32(b.channelBytes(c)))
	fillRaw(ch.data, ch.depth, ch.defval)
}

func fillRaw(data []byte, d Depth, v uint64) {
	if d == Depth8Bit || v == 0 {
		for i := range data {
			data[i] = uint8(v)
		}
		return
	}
	n := len(data) / d.Bytes()
	putRaw(data, 0, d, v)
	// Doubling copy of the first element.
	for filled := 1; filled < n; filled *= 2 {
		copy(data[filled*d.Bytes():], data[:filled*d.Bytes()])
	}
}

// Compress collapses a dense channel whose cells all hold the same value back to
// UNIFORM.  It returns true if the channel is uniform afterwards.
func (b *Buffer) Compress(c ChannelID) bool {
	ch := &b.channels[c]
	if ch.data == nil {
		return true
	}
	first := getRaw(ch.data, 0, ch.depth)
	n := b.Volume()
	for i := 1; i < n; i++ {
		if getRaw(ch.data, i, ch.depth) != first {
			return false
		}
	}
	b.releaseChannel(c)
	ch.defval = first
	return true
}

// CompressUniformChannels runs Compress on every channel.
func (b *Buffer) CompressUniformChannels() {
	for c := 0; c < MaxChannels; c++ {
		b.Compress(ChannelID(c))
	}
}

// ChannelRaw returns the dense bytes of a channel, or false if it is uniform.
func (b *Buffer) ChannelRaw(c ChannelID) ([]byte, bool) {
	ch := &b.channels[c]
	return ch.data, ch.data != nil
}

// ChannelAsUint32 decodes a channel into dst in ZXY order, reusing its capacity.
// 64-bit values are truncated.
func (b *Buffer) ChannelAsUint32(c ChannelID, dst []uint32) []uint32 {
	n := b.Volume()
	if cap(dst) < n {
		dst = make([]uint32, n)
	}
	dst = dst[:n]
	ch := &b.channels[c]
	if ch.data == nil {
		v := uint32(ch.defval)
		for i := range dst {
			dst[i] = v
		}
		return dst
	}
	switch ch.depth {
	case Depth8Bit:
		for i := range dst {
			dst[i] = uint32(ch.data[i])
		}
	default:
		for i := range dst {
			dst[i] = uint32(getRaw(ch.data, i, ch.depth))
		}
	}
	return dst
}

// Fill sets every voxel of a channel, making it UNIFORM.
func (b *Buffer) Fill(v uint64, c ChannelID) {
	ch := &b.channels[c]
	b.releaseChannel(c)
	ch.defval = v & ch.depth.Mask()
}

// FillF is Fill through the float view.
func (b *Buffer) FillF(v float64, c ChannelID) {
	b.Fill(EncodeFloat(v, b.channels[c].depth, true), c)
}

// FillArea sets every voxel of a channel within [min, max).  The box is sorted and
// clipped to the buffer; a degenerate box is a no-op.
func (b *Buffer) FillArea(v uint64, min, max dvid.Point3d, c ChannelID) {
	box := dvid.BoxFromMinMax(min, max).Clipped(b.Box())
	if box.IsEmpty() {
		return
	}
	if box.Size == b.size {
		b.Fill(v, c)
		return
	}
	ch := &b.channels[c]
	v &= ch.depth.Mask()
	if ch.data == nil {
		if ch.defval == v {
			return
		}
		b.Decompress(c)
	}
	bmax := box.Max()
	rowBytes := int(box.Size[1]) * ch.depth.Bytes()
	var p dvid.Point3d
	for p[2] = box.Pos[2]; p[2] < bmax[2]; p[2]++ {
		for p[0] = box.Pos[0]; p[0] < bmax[0]; p[0]++ {
			p[1] = box.Pos[1]
			start := p.ZXYIndex(b.size) * ch.depth.Bytes()
			fillRaw(ch.data[start:start+rowBytes], ch.depth, v)
		}
	}
}

// UsedChannelsMask returns a bitmask of channels that are dense or whose uniform value
// differs from the channel default.
func (b *Buffer) UsedChannelsMask() uint8 {
	var mask uint8
	for c := range b.channels {
		ch := &b.channels[c]
		if ch.data != nil || ch.defval != DefaultValue(ChannelID(c), ch.depth) {
			mask |= 1 << uint(c)
		}
	}
	return mask
}

// Equals returns true if both buffers have the same size, depths and values on every
// channel.  Metadata is not compared.
func (b *Buffer) Equals(other *Buffer) bool {
	if other == nil || b.size != other.size {
		return false
	}
	for c := 0; c < MaxChannels; c++ {
		if !b.ChannelEquals(other, ChannelID(c)) {
			return false
		}
	}
	return true
}

// ChannelEquals compares one channel of two buffers of the same size.
func (b *Buffer) ChannelEquals(other *Buffer, c ChannelID) bool {
	ch := &b.channels[c]
	och := &other.channels[c]
	if b.size != other.size || ch.depth != och.depth {
		return false
	}
	switch {
	case ch.data == nil && och.data == nil:
		return ch.defval == och.defval
	case ch.data != nil && och.data != nil:
		return bytes.Equal(ch.data, och.data)
	}
	n := b.Volume()
	for i := 0; i < n; i++ {
		if b.GetVoxelAtIndex(i, c) != other.GetVoxelAtIndex(i, c) {
			return false
		}
	}
	return true
}

// DenseBytes returns the number of bytes held in dense channels.
func (b *Buffer) DenseBytes() int {
	var n int
	for c := range b.channels {
		n += len(b.channels[c].data)
	}
	return n
}
