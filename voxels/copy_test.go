package voxels

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/mempool"
)

func TestCopy3DRegionZXY(t *testing.T) {
	srcSize := dvid.Point3d{8, 8, 8}
	dstSize := dvid.Point3d{3, 4, 5}
	src := make([]byte, srcSize.Prod()*2)
	dst := make([]byte, srcSize.Prod()*2)
	for i := 0; i < int(srcSize.Prod()); i++ {
		binary.LittleEndian.PutUint16(src[i*2:], uint16(i))
	}
	dstMin := dvid.Point3d{0, 0, 0}
	srcMin := dvid.Point3d{2, 1, 0}
	srcMax := dvid.Point3d{5, 4, 3}
	if err := Copy3DRegionZXY(dst, dstSize, dstMin, src, srcSize, srcMin, srcMax, 2); err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	dvid.BoxFromMinMax(srcMin, srcMax).ForEachCell(func(p dvid.Point3d) {
		srcv := binary.LittleEndian.Uint16(src[p.ZXYIndex(srcSize)*2:])
		dstv := binary.LittleEndian.Uint16(dst[p.Sub(srcMin).Add(dstMin).ZXYIndex(dstSize)*2:])
		if srcv != dstv {
			t.Fatalf("at %s: src %d != dst %d\n", p, srcv, dstv)
		}
	})
}

func TestCopy3DRegionClipsAndSkipsDegenerate(t *testing.T) {
	size := dvid.Point3d{4, 4, 4}
	src := make([]byte, size.Prod())
	for i := range src {
		src[i] = byte(i + 1)
	}
	dst := make([]byte, size.Prod())

	// Degenerate area: nothing written.
	if err := Copy3DRegionZXY(dst, size, dvid.Point3d{}, src, size, dvid.Point3d{1, 1, 1}, dvid.Point3d{1, 3, 3}, 1); err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("degenerate copy wrote %d at %d\n", v, i)
		}
	}

	// Destination offset pushes half the region out of bounds.
	if err := Copy3DRegionZXY(dst, size, dvid.Point3d{2, 2, 2}, src, size, dvid.Point3d{}, size, 1); err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	dvid.Box3d{Size: size}.ForEachCell(func(p dvid.Point3d) {
		v := dst[p.ZXYIndex(size)]
		if p[0] >= 2 && p[1] >= 2 && p[2] >= 2 {
			if want := src[p.Sub(dvid.Point3d{2, 2, 2}).ZXYIndex(size)]; v != want {
				t.Fatalf("at %s expected %d got %d\n", p, want, v)
			}
		} else if v != 0 {
			t.Fatalf("at %s expected untouched cell, got %d\n", p, v)
		}
	})

	// Whole-buffer copy.
	if err := Copy3DRegionZXY(dst, size, dvid.Point3d{}, src, size, dvid.Point3d{}, size, 1); err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if string(dst) != string(src) {
		t.Errorf("whole-buffer copy mismatch\n")
	}
}

func TestCopy3DRegionRejectsOverlap(t *testing.T) {
	size := dvid.Point3d{4, 4, 4}
	data := make([]byte, size.Prod())
	err := Copy3DRegionZXY(data, size, dvid.Point3d{1, 1, 1}, data, size, dvid.Point3d{}, dvid.Point3d{2, 2, 2}, 1)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected overlapping same-buffer copy to fail, got %v\n", err)
	}
	err = Copy3DRegionZXY(data, size, dvid.Point3d{2, 2, 2}, data, size, dvid.Point3d{}, dvid.Point3d{2, 2, 2}, 1)
	if err != nil {
		t.Errorf("expected disjoint same-buffer copy to succeed, got %v\n", err)
	}
}

func TestPasteCopyRoundTrip(t *testing.T) {
	pool := mempool.New()
	const (
		voxelValue  = 1
		maskedValue = 2
		channel     = ChannelType
	)
	a := newTestBuffer(t, pool, dvid.Point3d{6, 5, 7})
	a.Fill(maskedValue, channel)
	a.Box().Padded(-1).ForEachCell(func(p dvid.Point3d) {
		a.SetVoxel(voxelValue, p, channel)
	})
	a.SetVoxelMetadata(dvid.Point3d{2, 2, 2}, 42)

	b := newTestBuffer(t, pool, dvid.Point3d{16, 16, 16})
	b.SetVoxelMetadata(dvid.Point3d{4, 3, 5}, "stale")
	offset := dvid.Point3d{3, 2, 4}
	b.PasteMasked(a, offset, channel.Mask(), maskedValue)

	pasted := dvid.Box3d{Pos: offset, Size: a.Size()}
	if !pasted.Padded(-1).AllCellsMatch(func(p dvid.Point3d) bool {
		v, _ := b.GetVoxel(p, channel)
		return v == voxelValue
	}) {
		t.Errorf("interior of pasted box does not match\n")
	}
	pasted.ForInnerOutline(func(p dvid.Point3d) {
		if v, _ := b.GetVoxel(p, channel); v != 0 {
			t.Fatalf("masked outline cell %s was written: %d\n", p, v)
		}
	})
	if b.VoxelMetadata(dvid.Point3d{5, 4, 6}) != 42 {
		t.Errorf("expected metadata to follow pasted voxels\n")
	}
	if b.VoxelMetadata(dvid.Point3d{4, 3, 5}) != nil {
		t.Errorf("expected metadata of overwritten cell to be cleared\n")
	}

	// Copy the same box back out and compare the interior.
	c := newTestBuffer(t, pool, a.Size())
	if err := c.CopyRegion(b, offset, offset.Add(a.Size()), dvid.Point3d{}, channel); err != nil {
		t.Fatalf("copy failed: %v\n", err)
	}
	a.Box().Padded(-1).ForEachCell(func(p dvid.Point3d) {
		va, _ := a.GetVoxel(p, channel)
		vc, _ := c.GetVoxel(p, channel)
		if va != vc {
			t.Fatalf("round trip mismatch at %s: %d vs %d\n", p, va, vc)
		}
	})

	a.Release()
	b.Release()
	c.Release()
	if pool.UsedBlocks() != 0 {
		t.Errorf("leaked %d blocks\n", pool.UsedBlocks())
	}
}

func TestPasteMaskedKeepsMetadataOfMaskedCells(t *testing.T) {
	pool := mempool.New()
	src := newTestBuffer(t, pool, dvid.Point3d{3, 3, 3})
	src.Fill(5, ChannelType)
	src.SetVoxel(0, dvid.Point3d{1, 1, 1}, ChannelType)
	src.SetVoxelMetadata(dvid.Point3d{1, 1, 1}, "src-masked")
	src.SetVoxelMetadata(dvid.Point3d{0, 0, 0}, "src-written")

	dst := newTestBuffer(t, pool, dvid.Point3d{4, 4, 4})
	dst.SetVoxel(7, dvid.Point3d{1, 1, 1}, ChannelType)
	dst.SetVoxelMetadata(dvid.Point3d{1, 1, 1}, "dst-masked")
	dst.SetVoxelMetadata(dvid.Point3d{2, 2, 2}, "dst-written")
	dst.PasteMasked(src, dvid.Point3d{}, ChannelType.Mask(), 0)

	if v, _ := dst.GetVoxel(dvid.Point3d{1, 1, 1}, ChannelType); v != 7 {
		t.Errorf("masked cell was written: %d\n", v)
	}
	if md := dst.VoxelMetadata(dvid.Point3d{1, 1, 1}); md != "dst-masked" {
		t.Errorf("masked cell metadata changed to %v\n", md)
	}
	if md := dst.VoxelMetadata(dvid.Point3d{0, 0, 0}); md != "src-written" {
		t.Errorf("expected source metadata on written cell, got %v\n", md)
	}
	if md := dst.VoxelMetadata(dvid.Point3d{2, 2, 2}); md != nil {
		t.Errorf("expected written cell metadata cleared, got %v\n", md)
	}
	src.Release()
	dst.Release()
}

func TestCopyRegionUniformSource(t *testing.T) {
	pool := mempool.New()
	src := newTestBuffer(t, pool, dvid.Point3d{4, 4, 4})
	dst := newTestBuffer(t, pool, dvid.Point3d{8, 8, 8})

	// Same uniform value on both sides keeps the destination uniform.
	if err := dst.CopyRegion(src, dvid.Point3d{}, src.Size(), dvid.Point3d{2, 2, 2}, ChannelColor); err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	if !dst.IsUniform(ChannelColor) {
		t.Errorf("expected destination to stay uniform\n")
	}

	src.Fill(6, ChannelColor)
	dst.CopyRegion(src, dvid.Point3d{}, src.Size(), dvid.Point3d{6, 6, 6}, ChannelColor)
	if v, _ := dst.GetVoxel(dvid.Point3d{7, 7, 7}, ChannelColor); v != 6 {
		t.Errorf("expected uniform source fill, got %d\n", v)
	}
	if v, _ := dst.GetVoxel(dvid.Point3d{5, 7, 7}, ChannelColor); v != 0 {
		t.Errorf("expected cell outside copied area untouched, got %d\n", v)
	}

	src.SetChannelDepth(ChannelColor, Depth16Bit)
	if err := dst.CopyRegion(src, dvid.Point3d{}, src.Size(), dvid.Point3d{}, ChannelColor); !errors.Is(err, ErrUnsupportedDepth) {
		t.Errorf("expected depth mismatch error, got %v\n", err)
	}
}
