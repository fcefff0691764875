package block

import (
	"fmt"
	"sort"
	"sync"

	"github.com/DmitriyVTitov/size"
	humanize "github.com/dustin/go-humanize"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/mempool"
	"github.com/janelia-flyem/voxterrain/voxels"
)

// Map indexes loaded blocks of one LOD by block position.  The block table is guarded by
// a read/write mutex.  Buffers themselves are not locked: concurrent edits of the same
// area must be serialized by the caller.
type Map struct {
	pool      *mempool.Pool
	sizePo2   uint
	blockSize int32
	lod       uint8

	mu     sync.RWMutex
	blocks map[dvid.Point3d]*DataBlock
}

// NewMap returns an empty map of blocks with an edge of 2^blockSizePo2 voxels.
func NewMap(pool *mempool.Pool, blockSizePo2 uint, lod uint8) *Map {
	if pool == nil {
		panic("block: map created without memory pool")
	}
	return &Map{
		pool:      pool,
		sizePo2:   blockSizePo2,
		blockSize: 1 << blockSizePo2,
		lod:       lod,
		blocks:    make(map[dvid.Point3d]*DataBlock),
	}
}

// BlockSize returns the edge length of blocks in voxels.
func (m *Map) BlockSize() int32 {
	return m.blockSize
}

// LOD returns the level of detail of every block in the map.
func (m *Map) LOD() uint8 {
	return m.lod
}

// VoxelToBlock returns the position of the block containing a voxel.
func (m *Map) VoxelToBlock(pos dvid.Point3d) dvid.Point3d {
	return pos.ShiftRight(m.sizePo2)
}

// ToLocal returns the position of a voxel relative to its block.
func (m *Map) ToLocal(pos dvid.Point3d) dvid.Point3d {
	mask := m.blockSize - 1
	return dvid.Point3d{pos[0] & mask, pos[1] & mask, pos[2] & mask}
}

// BlockToVoxel returns the origin of a block in voxel coordinates.
func (m *Map) BlockToVoxel(bpos dvid.Point3d) dvid.Point3d {
	return bpos.ShiftLeft(m.sizePo2)
}

// Block returns the loaded block at a block position or nil.
func (m *Map) Block(bpos dvid.Point3d) *DataBlock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blocks[bpos]
}

// HasBlock returns true if a block is loaded at the block position.
func (m *Map) HasBlock(bpos dvid.Point3d) bool {
	return m.Block(bpos) != nil
}

// NumBlocks returns the number of loaded blocks.
func (m *Map) NumBlocks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}

// CreateBlock returns the block at a block position, creating it with default voxels if
// not loaded.
func (m *Map) CreateBlock(bpos dvid.Point3d) (*DataBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createBlock(bpos)
}

func (m *Map) createBlock(bpos dvid.Point3d) (*DataBlock, error) {
	if b, found := m.blocks[bpos]; found {
		return b, nil
	}
	buf, err := voxels.NewBufferWithSize(m.pool, dvid.Point3d{m.blockSize, m.blockSize, m.blockSize})
	if err != nil {
		return nil, err
	}
	b, err := NewDataBlock(bpos, buf, m.blockSize, m.lod)
	if err != nil {
		buf.Release()
		return nil, err
	}
	m.blocks[bpos] = b
	return b, nil
}

// SetBlockBuffer sets the voxels of a block, creating the block if needed.  The previous
// buffer of an existing block is released.  Viewers and flags are kept.
func (m *Map) SetBlockBuffer(bpos dvid.Point3d, buf *voxels.Buffer) (*DataBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, found := m.blocks[bpos]; found {
		if buf.Size() != b.Voxels.Size() {
			return nil, fmt.Errorf("%w: block %s buffer has size %s, expected %s",
				voxels.ErrInvalidArgument, bpos, buf.Size(), b.Voxels.Size())
		}
		if b.Voxels != buf {
			b.Voxels.Release()
			b.Voxels = buf
		}
		return b, nil
	}
	b, err := NewDataBlock(bpos, buf, m.blockSize, m.lod)
	if err != nil {
		return nil, err
	}
	m.blocks[bpos] = b
	return b, nil
}

// AddViewer registers a new viewer of a loaded block and returns its handle.
func (m *Map) AddViewer(bpos dvid.Point3d) (ViewerID, error) {
	b := m.Block(bpos)
	if b == nil {
		return "", fmt.Errorf("%w: cannot add viewer to block %s", ErrBlockNotFound, bpos)
	}
	id := NewViewerID()
	b.AddViewer(id)
	return id, nil
}

// RemoveViewer unregisters a viewer of a block.  Once the viewer set of the block is
// empty, the block is unloaded and its voxels released; unloaded reports that case.
func (m *Map) RemoveViewer(bpos dvid.Point3d, id ViewerID) (unloaded bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, found := m.blocks[bpos]
	if !found {
		return false, fmt.Errorf("%w: cannot remove viewer from block %s", ErrBlockNotFound, bpos)
	}
	removed, empty := b.RemoveViewer(id)
	if !removed {
		return false, fmt.Errorf("%w: viewer %s of block %s", voxels.ErrInvalidArgument, id, bpos)
	}
	if empty {
		m.unload(b)
		return true, nil
	}
	return false, nil
}

// Unload drops a block that has no viewers and releases its voxels.
func (m *Map) Unload(bpos dvid.Point3d) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, found := m.blocks[bpos]
	if !found {
		return fmt.Errorf("%w: cannot unload block %s", ErrBlockNotFound, bpos)
	}
	if n := b.ViewerCount(); n != 0 {
		return fmt.Errorf("%w: block %s has %d viewers", ErrBlockInUse, bpos, n)
	}
	m.unload(b)
	return nil
}

func (m *Map) unload(b *DataBlock) {
	if b.IsModified() {
		dvid.Warningf("Unloading modified block %s at lod %d\n", b.position, b.lod)
	}
	delete(m.blocks, b.position)
	b.Voxels.Release()
}

// Clear unloads every block regardless of viewers.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.blocks {
		b.Voxels.Release()
	}
	m.blocks = make(map[dvid.Point3d]*DataBlock)
}

// GetVoxel returns a voxel value in world coordinates.  Voxels of unloaded blocks read as
// the channel default.
func (m *Map) GetVoxel(pos dvid.Point3d, c voxels.ChannelID) uint64 {
	b := m.Block(m.VoxelToBlock(pos))
	if b == nil {
		return voxels.DefaultValue(c, voxels.DefaultDepth(c))
	}
	return b.Voxels.GetVoxelUnchecked(m.ToLocal(pos), c)
}

// GetVoxelF returns the float view of a voxel value in world coordinates.
func (m *Map) GetVoxelF(pos dvid.Point3d, c voxels.ChannelID) float64 {
	b := m.Block(m.VoxelToBlock(pos))
	if b == nil {
		d := voxels.DefaultDepth(c)
		return voxels.DecodeFloat(voxels.DefaultValue(c, d), d, true)
	}
	v, _ := b.Voxels.GetVoxelF(m.ToLocal(pos), c)
	return v
}

// SetVoxel writes a voxel value in world coordinates, creating the block if needed.
func (m *Map) SetVoxel(v uint64, pos dvid.Point3d, c voxels.ChannelID) error {
	m.mu.Lock()
	b, err := m.createBlock(m.VoxelToBlock(pos))
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Voxels.SetVoxel(v, m.ToLocal(pos), c)
}

// blocksInArea returns the block positions touched by a box in voxel coordinates.
func (m *Map) blocksInArea(box dvid.Box3d) dvid.Box3d {
	return box.Downscaled(m.sizePo2)
}

// Paste writes the channels of src selected by channelsMask with src's origin at pos.
// Source cells equal to maskValue are skipped.  Missing blocks are created when
// createMissing is set and skipped otherwise.
func (m *Map) Paste(pos dvid.Point3d, src *voxels.Buffer, channelsMask uint8, maskValue uint64, createMissing bool) error {
	area := dvid.Box3d{Pos: pos, Size: src.Size()}
	if area.IsEmpty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	m.blocksInArea(area).ForEachCell(func(bpos dvid.Point3d) {
		if err != nil {
			return
		}
		b, found := m.blocks[bpos]
		if !found {
			if !createMissing {
				return
			}
			if b, err = m.createBlock(bpos); err != nil {
				return
			}
		}
		b.Voxels.PasteMasked(src, pos.Sub(m.BlockToVoxel(bpos)), channelsMask, maskValue)
	})
	return err
}

// Copy fills dst with the channels selected by channelsMask from the area starting at
// minPos.  Areas of unloaded blocks are filled with the channel default.
func (m *Map) Copy(minPos dvid.Point3d, dst *voxels.Buffer, channelsMask uint8) error {
	area := dvid.Box3d{Pos: minPos, Size: dst.Size()}
	if area.IsEmpty() {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var err error
	m.blocksInArea(area).ForEachCell(func(bpos dvid.Point3d) {
		if err != nil {
			return
		}
		origin := m.BlockToVoxel(bpos)
		inter := area.Clipped(dvid.Box3d{Pos: origin, Size: dvid.Point3d{m.blockSize, m.blockSize, m.blockSize}})
		dstMin := inter.Pos.Sub(minPos)
		b, found := m.blocks[bpos]
		dst.ClearVoxelMetadataInArea(dvid.Box3d{Pos: dstMin, Size: inter.Size})
		for _, c := range voxels.MaskToChannels(channelsMask) {
			if !found {
				dst.FillArea(voxels.DefaultValue(c, dst.ChannelDepth(c)), dstMin, dstMin.Add(inter.Size), c)
				continue
			}
			srcMin := inter.Pos.Sub(origin)
			if err = dst.CopyRegion(b.Voxels, srcMin, srcMin.Add(inter.Size), dstMin, c); err != nil {
				return
			}
		}
		if found {
			dst.CopyVoxelMetadataInArea(b.Voxels, dvid.Box3d{Pos: inter.Pos.Sub(origin), Size: inter.Size}, dstMin)
		}
	})
	return err
}

// ForEachBlockInArea calls fn for every loaded block touched by the box, with the part of
// the box inside the block in block-local coordinates and the block origin.  The block
// table is read-locked during the walk, so fn must not create or unload blocks.
func (m *Map) ForEachBlockInArea(box dvid.Box3d, fn func(b *DataBlock, local dvid.Box3d, origin dvid.Point3d)) {
	if box.IsEmpty() {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.blocksInArea(box).ForEachCell(func(bpos dvid.Point3d) {
		b, found := m.blocks[bpos]
		if !found {
			return
		}
		origin := m.BlockToVoxel(bpos)
		inter := box.Clipped(dvid.Box3d{Pos: origin, Size: dvid.Point3d{m.blockSize, m.blockSize, m.blockSize}})
		fn(b, dvid.Box3d{Pos: inter.Pos.Sub(origin), Size: inter.Size}, origin)
	})
}

// IsAreaPartiallyLoaded returns true if at least one block touched by the box is loaded.
func (m *Map) IsAreaPartiallyLoaded(box dvid.Box3d) bool {
	if box.IsEmpty() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.blocksInArea(box).AllCellsMatch(func(bpos dvid.Point3d) bool {
		_, found := m.blocks[bpos]
		return !found
	})
}

// IsAreaLoaded returns true if every block touched by the box is loaded.
func (m *Map) IsAreaLoaded(box dvid.Box3d) bool {
	if box.IsEmpty() {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blocksInArea(box).AllCellsMatch(func(bpos dvid.Point3d) bool {
		_, found := m.blocks[bpos]
		return found
	})
}

// MarkAreaModified flags every loaded block touched by the box as modified and needing
// LOD update.
func (m *Map) MarkAreaModified(box dvid.Box3d) {
	if box.IsEmpty() {
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.blocksInArea(box).ForEachCell(func(bpos dvid.Point3d) {
		if b, found := m.blocks[bpos]; found {
			b.SetModified(true)
			b.SetNeedsLodding(true)
		}
	})
}

// ForEachBlock calls fn for every loaded block in order of position.  The map must not
// be modified from fn.
func (m *Map) ForEachBlock(fn func(b *DataBlock)) {
	m.mu.RLock()
	blocks := make([]*DataBlock, 0, len(m.blocks))
	for _, b := range m.blocks {
		blocks = append(blocks, b)
	}
	m.mu.RUnlock()
	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i].position, blocks[j].position
		if a[2] != b[2] {
			return a[2] < b[2]
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	for _, b := range blocks {
		fn(b)
	}
}

// Stats describes the blocks of a map.
type Stats struct {
	Blocks         int
	ModifiedBlocks int
	ViewedBlocks   int
	DenseBytes     uint64
	ViewerBytes    uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("%d blocks (%d modified, %d viewed), %s voxel data, %s viewer bookkeeping",
		s.Blocks, s.ModifiedBlocks, s.ViewedBlocks, humanize.Bytes(s.DenseBytes), humanize.Bytes(s.ViewerBytes))
}

// Stats returns a snapshot of block counts and memory use.
func (m *Map) Stats() Stats {
	var s Stats
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.blocks {
		s.Blocks++
		if b.IsModified() {
			s.ModifiedBlocks++
		}
		b.mu.Lock()
		if len(b.viewers) != 0 {
			s.ViewedBlocks++
		}
		s.ViewerBytes += uint64(size.Of(b.viewers))
		b.mu.Unlock()
		s.DenseBytes += uint64(b.Voxels.DenseBytes())
	}
	return s
}
