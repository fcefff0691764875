package voxels

import (
	"errors"
	"math"
	"testing"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/mempool"
)

func newTestBuffer(t *testing.T, pool *mempool.Pool, size dvid.Point3d) *Buffer {
	b, err := NewBufferWithSize(pool, size)
	if err != nil {
		t.Fatalf("unable to create buffer of size %s: %v\n", size, err)
	}
	return b
}

func TestSetGetVoxelAllDepths(t *testing.T) {
	pool := mempool.New()
	b := newTestBuffer(t, pool, dvid.Point3d{4, 5, 6})
	values := []uint64{0, 1, 0x7f, 0xff, 0x1234, 0xdeadbeef, 0x0123456789abcdef}
	for _, depth := range []Depth{Depth8Bit, Depth16Bit, Depth32Bit, Depth64Bit} {
		if err := b.SetChannelDepth(ChannelData5, depth); err != nil {
			t.Fatalf("unable to set depth %s: %v\n", depth, err)
		}
		b.Fill(0, ChannelData5)
		for i, v := range values {
			pos := dvid.Point3d{int32(i % 4), int32(i % 5), int32(i % 6)}
			if err := b.SetVoxel(v, pos, ChannelData5); err != nil {
				t.Fatalf("set voxel failed: %v\n", err)
			}
			got, err := b.GetVoxel(pos, ChannelData5)
			if err != nil {
				t.Fatalf("get voxel failed: %v\n", err)
			}
			if got != v&depth.Mask() {
				t.Errorf("depth %s: set %x at %s, got %x\n", depth, v, pos, got)
			}
		}
	}
	b.Release()
	if pool.UsedBlocks() != 0 {
		t.Errorf("expected all blocks recycled after release, got %d used\n", pool.UsedBlocks())
	}
}

func TestOutOfRangeAccess(t *testing.T) {
	b := newTestBuffer(t, mempool.New(), dvid.Point3d{4, 4, 4})
	for _, pos := range []dvid.Point3d{{-1, 0, 0}, {4, 0, 0}, {0, 4, 0}, {0, 0, 4}} {
		if _, err := b.GetVoxel(pos, ChannelType); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected invalid argument reading %s, got %v\n", pos, err)
		}
		if err := b.SetVoxel(1, pos, ChannelType); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected invalid argument writing %s, got %v\n", pos, err)
		}
	}
	if _, err := b.GetVoxel(dvid.Point3d{}, ChannelID(MaxChannels)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected invalid argument for bad channel, got %v\n", err)
	}
	if err := b.Create(dvid.Point3d{0, 1, 1}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected invalid argument creating empty buffer, got %v\n", err)
	}
}

func TestLazyExpansion(t *testing.T) {
	pool := mempool.New()
	size := dvid.Point3d{8, 8, 8}
	b := newTestBuffer(t, pool, size)
	if !b.IsUniform(ChannelIndices) {
		t.Fatalf("expected new channel to be uniform\n")
	}
	v, _ := b.GetVoxel(dvid.Point3d{3, 3, 3}, ChannelIndices)
	if v != 0 || pool.UsedBlocks() != 0 {
		t.Fatalf("expected default read without allocation, got %d with %d blocks\n", v, pool.UsedBlocks())
	}

	// Writing the uniform value keeps the channel uniform.
	b.SetVoxel(0, dvid.Point3d{1, 1, 1}, ChannelIndices)
	if !b.IsUniform(ChannelIndices) {
		t.Errorf("writing uniform value should not expand channel\n")
	}

	b.SetVoxel(7, dvid.Point3d{1, 2, 3}, ChannelIndices)
	if b.IsUniform(ChannelIndices) {
		t.Fatalf("expected channel to become dense\n")
	}
	raw, ok := b.ChannelRaw(ChannelIndices)
	if !ok || len(raw) != 8*8*8*2 {
		t.Fatalf("expected dense buffer of %d bytes, got %d\n", 8*8*8*2, len(raw))
	}
	if pool.UsedBlocks() != 1 {
		t.Errorf("expected 1 pooled allocation, got %d\n", pool.UsedBlocks())
	}
	if v, _ := b.GetVoxel(dvid.Point3d{1, 2, 3}, ChannelIndices); v != 7 {
		t.Errorf("expected 7, got %d\n", v)
	}
	if v, _ := b.GetVoxel(dvid.Point3d{2, 2, 3}, ChannelIndices); v != 0 {
		t.Errorf("expected old uniform value 0 elsewhere, got %d\n", v)
	}

	b.SetVoxel(0, dvid.Point3d{1, 2, 3}, ChannelIndices)
	if !b.Compress(ChannelIndices) || !b.IsUniform(ChannelIndices) {
		t.Errorf("expected compress to collapse uniform dense channel\n")
	}
	if pool.UsedBlocks() != 0 {
		t.Errorf("expected compress to recycle data, got %d used\n", pool.UsedBlocks())
	}
}

func TestFloatViews(t *testing.T) {
	b := newTestBuffer(t, mempool.New(), dvid.Point3d{2, 2, 2})
	pos := dvid.Point3d{1, 0, 1}

	// 16-bit SDF: steps of 1/(0x7fff*0.002) ~ 0.0153
	for _, v := range []float64{-3.5, -0.25, 0, 0.1, 2.75, 100} {
		b.SetVoxelF(v, pos, ChannelSDF)
		got, _ := b.GetVoxelF(pos, ChannelSDF)
		if math.Abs(got-v) > 0.01 {
			t.Errorf("16-bit sdf: set %f got %f\n", v, got)
		}
	}
	// Values beyond the quantized range saturate.
	b.SetVoxelF(1000, pos, ChannelSDF)
	if got, _ := b.GetVoxelF(pos, ChannelSDF); math.Abs(got-500) > 0.01 {
		t.Errorf("expected saturation at 500, got %f\n", got)
	}

	b.SetChannelDepth(ChannelSDF, Depth8Bit)
	b.SetVoxelF(2.5, pos, ChannelSDF)
	if got, _ := b.GetVoxelF(pos, ChannelSDF); math.Abs(got-2.5) > 0.05 {
		t.Errorf("8-bit sdf: set 2.5 got %f\n", got)
	}

	b.SetChannelDepth(ChannelSDF, Depth32Bit)
	b.SetVoxelF(-12.125, pos, ChannelSDF)
	if got, _ := b.GetVoxelF(pos, ChannelSDF); got != -12.125 {
		t.Errorf("32-bit sdf: set -12.125 got %f\n", got)
	}
	if got, _ := b.GetVoxelF(dvid.Point3d{}, ChannelSDF); got <= 0 {
		t.Errorf("expected default sdf to be positive (air), got %f\n", got)
	}
}

func TestSetChannelDepthConvertsDense(t *testing.T) {
	pool := mempool.New()
	b := newTestBuffer(t, pool, dvid.Point3d{3, 3, 3})
	b.SetVoxelF(4, dvid.Point3d{1, 1, 1}, ChannelSDF)
	if err := b.SetChannelDepth(ChannelSDF, Depth32Bit); err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if got, _ := b.GetVoxelF(dvid.Point3d{1, 1, 1}, ChannelSDF); math.Abs(got-4) > 0.02 {
		t.Errorf("expected converted value near 4, got %f\n", got)
	}
	raw, _ := b.ChannelRaw(ChannelSDF)
	if len(raw) != 27*4 {
		t.Errorf("expected 32-bit dense data, got %d bytes\n", len(raw))
	}
	if err := b.SetChannelDepth(ChannelSDF, Depth(9)); !errors.Is(err, ErrUnsupportedDepth) {
		t.Errorf("expected unsupported depth error, got %v\n", err)
	}
	b.Release()
	if pool.UsedBlocks() != 0 {
		t.Errorf("leaked %d blocks\n", pool.UsedBlocks())
	}
}

func TestFillAreaAndUsedChannels(t *testing.T) {
	b := newTestBuffer(t, mempool.New(), dvid.Point3d{6, 6, 6})
	if mask := b.UsedChannelsMask(); mask != 0 {
		t.Fatalf("expected no used channels on fresh buffer, got %08b\n", mask)
	}
	// Reversed corners are sorted, out of bounds parts are clipped.
	b.FillArea(3, dvid.Point3d{4, 4, 4}, dvid.Point3d{1, -2, 1}, ChannelType)
	box := dvid.BoxFromMinMax(dvid.Point3d{1, 0, 1}, dvid.Point3d{4, 4, 4})
	b.Box().ForEachCell(func(p dvid.Point3d) {
		v, _ := b.GetVoxel(p, ChannelType)
		expected := uint64(0)
		if box.Contains(p) {
			expected = 3
		}
		if v != expected {
			t.Fatalf("at %s expected %d, got %d\n", p, expected, v)
		}
	})
	b.Fill(9, ChannelColor)
	if mask := b.UsedChannelsMask(); mask != ChannelType.Mask()|ChannelColor.Mask() {
		t.Errorf("expected type and color used, got %08b\n", mask)
	}
	b.FillArea(5, dvid.Point3d{}, b.Size(), ChannelType)
	if !b.IsUniform(ChannelType) || b.UniformValue(ChannelType) != 5 {
		t.Errorf("expected full-area fill to make channel uniform\n")
	}
	b.FillArea(1, dvid.Point3d{2, 2, 2}, dvid.Point3d{2, 5, 5}, ChannelType)
	if !b.IsUniform(ChannelType) {
		t.Errorf("expected degenerate fill to be a no-op\n")
	}
}

func TestEqualsAndHash(t *testing.T) {
	pool := mempool.New()
	a := newTestBuffer(t, pool, dvid.Point3d{4, 4, 4})
	b := newTestBuffer(t, pool, dvid.Point3d{4, 4, 4})
	a.SetVoxel(2, dvid.Point3d{1, 2, 3}, ChannelColor)
	b.SetVoxel(2, dvid.Point3d{1, 2, 3}, ChannelColor)
	if !a.Equals(b) {
		t.Errorf("expected equal buffers\n")
	}
	if a.ContentHash() != b.ContentHash() {
		t.Errorf("expected equal hashes for equal buffers\n")
	}
	b.SetVoxel(3, dvid.Point3d{0, 0, 0}, ChannelColor)
	if a.Equals(b) || a.ContentHash() == b.ContentHash() {
		t.Errorf("expected buffers to differ\n")
	}
	// Dense vs uniform comparison is done cell by cell.
	b.Fill(0, ChannelColor)
	c := newTestBuffer(t, pool, dvid.Point3d{4, 4, 4})
	c.Decompress(ChannelColor)
	if !b.ChannelEquals(c, ChannelColor) {
		t.Errorf("expected uniform zero channel to equal dense zero channel\n")
	}
	var d Buffer
	if a.Equals(&d) {
		t.Errorf("expected differing sizes to compare unequal\n")
	}
}

func TestCopyFrom(t *testing.T) {
	pool := mempool.New()
	a := newTestBuffer(t, pool, dvid.Point3d{3, 4, 5})
	a.SetVoxel(8, dvid.Point3d{2, 3, 4}, ChannelType)
	a.SetVoxelMetadata(dvid.Point3d{2, 3, 4}, "chest")
	b := newTestBuffer(t, pool, dvid.Point3d{1, 1, 1})
	b.CopyFrom(a)
	if !b.Equals(a) {
		t.Errorf("expected copy to equal source\n")
	}
	if b.VoxelMetadata(dvid.Point3d{2, 3, 4}) != "chest" {
		t.Errorf("expected metadata to be copied\n")
	}
	a.Release()
	b.Release()
	if pool.UsedBlocks() != 0 {
		t.Errorf("leaked %d blocks\n", pool.UsedBlocks())
	}
}
