/*
	Package block holds loaded voxel data for fixed-size cubic chunks of a volume and the
	map that indexes them by block position.  Meshes and colliders are stored elsewhere.
*/
package block

import (
	"errors"
	"fmt"
	"sync"

	"github.com/twinj/uuid"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/voxels"
)

var (
	// ErrBlockNotFound is wrapped when an operation targets a block that is not loaded.
	ErrBlockNotFound = errors.New("block not found")

	// ErrBlockInUse is wrapped when unloading a block that still has viewers.
	ErrBlockInUse = errors.New("block still has viewers")
)

// ViewerID is an opaque handle of an observer requiring a block to stay loaded.
type ViewerID string

// NewViewerID returns a new unique viewer handle.
func NewViewerID() ViewerID {
	return ViewerID(fmt.Sprintf("%x", uuid.NewV4().Bytes()))
}

// DataBlock wraps the voxels of one block with its position, LOD index, edit flags and
// the set of viewers keeping it loaded.  Position and LOD never change.
type DataBlock struct {
	Voxels *voxels.Buffer

	position dvid.Point3d
	lod      uint8

	mu           sync.Mutex
	modified     bool
	needsLodding bool
	viewers      map[ViewerID]struct{}
}

// NewDataBlock returns a block at the given block position.  The buffer must be a cube
// of the given size.
func NewDataBlock(bpos dvid.Point3d, buf *voxels.Buffer, blockSize int32, lod uint8) (*DataBlock, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer for block %s", voxels.ErrInvalidArgument, bpos)
	}
	if buf.Size() != (dvid.Point3d{blockSize, blockSize, blockSize}) {
		return nil, fmt.Errorf("%w: block %s buffer has size %s, expected cube of %d",
			voxels.ErrInvalidArgument, bpos, buf.Size(), blockSize)
	}
	return &DataBlock{
		Voxels:   buf,
		position: bpos,
		lod:      lod,
		viewers:  make(map[ViewerID]struct{}),
	}, nil
}

// Position returns the block position in block coordinates.
func (b *DataBlock) Position() dvid.Point3d {
	return b.position
}

// LOD returns the level of detail index of the block.
func (b *DataBlock) LOD() uint8 {
	return b.lod
}

// SetModified flags the block as different from when it was loaded.
func (b *DataBlock) SetModified(modified bool) {
	b.mu.Lock()
	if !b.modified && modified {
		dvid.Debugf("Marking block %s as modified\n", b.position)
	}
	b.modified = modified
	b.mu.Unlock()
}

// IsModified returns true if the block should be saved.
func (b *DataBlock) IsModified() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.modified
}

// SetNeedsLodding flags the block as edited so its LOD counterparts must be recomputed.
func (b *DataBlock) SetNeedsLodding(needs bool) {
	b.mu.Lock()
	b.needsLodding = needs
	b.mu.Unlock()
}

// NeedsLodding returns true if LOD counterparts are out of date.
func (b *DataBlock) NeedsLodding() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.needsLodding
}

// AddViewer registers a viewer and returns false if it was already registered.
func (b *DataBlock) AddViewer(id ViewerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, found := b.viewers[id]; found {
		return false
	}
	b.viewers[id] = struct{}{}
	return true
}

// RemoveViewer unregisters a viewer.  It returns whether the viewer was registered and
// whether no viewers remain afterwards.
func (b *DataBlock) RemoveViewer(id ViewerID) (removed, empty bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, removed = b.viewers[id]; removed {
		delete(b.viewers, id)
	}
	return removed, len(b.viewers) == 0
}

// ViewerCount returns the number of registered viewers.
func (b *DataBlock) ViewerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.viewers)
}
