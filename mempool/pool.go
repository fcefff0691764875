/*
	Package mempool recycles raw voxel channel buffers.  Buffers are kept in free lists
	keyed by their exact byte size so that blocks of the same shape and depth reuse each
	other's memory instead of churning the allocator.
*/
package mempool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	humanize "github.com/dustin/go-humanize"

	"github.com/janelia-flyem/voxterrain/dvid"
)

// ErrLeak is returned by Shutdown when buffers are still checked out of the pool.
var ErrLeak = errors.New("memory pool leak")

type freeList struct {
	blocks [][]byte
}

// Pool is a size-bucketed free-list allocator.  A single mutex guards both the
// size -> free list map and every free list; all critical sections are short.
type Pool struct {
	mu         sync.Mutex
	pools      map[uint32]*freeList
	usedBlocks uint64
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{pools: make(map[uint32]*freeList)}
}

// Allocate returns a buffer of exactly size bytes.  A recycled buffer of that size is
// preferred over a fresh allocation.  Contents of recycled buffers are not cleared.
func (p *Pool) Allocate(size uint32) []byte {
	p.mu.Lock()
	fl := p.getOrCreatePool(size)
	var b []byte
	if n := len(fl.blocks); n > 0 {
		b = fl.blocks[n-1]
		fl.blocks[n-1] = nil
		fl.blocks = fl.blocks[:n-1]
	}
	p.usedBlocks++
	p.mu.Unlock()

	instrumentAllocate(b == nil)
	if b == nil {
		b = make([]byte, size)
	}
	return b
}

// Recycle returns a buffer obtained from Allocate(size) to its free list.  Passing a
// size that was never allocated, a buffer whose length is not size, or more buffers
// than are checked out, is a programming error and panics.
func (p *Pool) Recycle(b []byte, size uint32) {
	if b == nil {
		panic("mempool: recycling nil buffer")
	}
	if uint32(len(b)) != size {
		panic(fmt.Sprintf("mempool: recycling %d byte buffer under size %d", len(b), size))
	}
	p.mu.Lock()
	fl, found := p.pools[size]
	if !found {
		p.mu.Unlock()
		panic(fmt.Sprintf("mempool: recycling into unknown size bucket %d", size))
	}
	if p.usedBlocks == 0 {
		p.mu.Unlock()
		panic("mempool: recycling with no buffer checked out")
	}
	fl.blocks = append(fl.blocks, b)
	p.usedBlocks--
	p.mu.Unlock()

	instrumentRecycle()
}

// Clear frees every pooled buffer.  Buckets are kept so that buffers still checked
// out can be recycled afterwards.
func (p *Pool) Clear() {
	p.mu.Lock()
	for _, fl := range p.pools {
		fl.blocks = nil
	}
	p.mu.Unlock()
}

// UsedBlocks returns the number of buffers allocated and not yet recycled.
func (p *Pool) UsedBlocks() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usedBlocks
}

// PooledBlocks returns the number of free buffers of the given size.
func (p *Pool) PooledBlocks(size uint32) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fl, found := p.pools[size]; found {
		return len(fl.blocks)
	}
	return 0
}

func (p *Pool) getOrCreatePool(size uint32) *freeList {
	fl, found := p.pools[size]
	if !found {
		fl = &freeList{}
		p.pools[size] = fl
	}
	return fl
}

// BucketStats describes one size bucket.
type BucketStats struct {
	Size   uint32
	Blocks int
}

// Stats is a snapshot of pool contents.
type Stats struct {
	UsedBlocks  uint64
	PooledBytes uint64
	Buckets     []BucketStats
}

// Stats returns a snapshot of pool contents sorted by bucket size.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	s := Stats{UsedBlocks: p.usedBlocks}
	for size, fl := range p.pools {
		s.Buckets = append(s.Buckets, BucketStats{size, len(fl.blocks)})
		s.PooledBytes += uint64(size) * uint64(len(fl.blocks))
	}
	p.mu.Unlock()
	sort.Slice(s.Buckets, func(i, j int) bool { return s.Buckets[i].Size < s.Buckets[j].Size })
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("%d blocks in use, %s pooled in %d buckets",
		s.UsedBlocks, humanize.Bytes(s.PooledBytes), len(s.Buckets))
}

// DebugPrint logs the contents of every bucket.
func (p *Pool) DebugPrint() {
	s := p.Stats()
	dvid.Infof("Memory pool: %s\n", s)
	for _, b := range s.Buckets {
		dvid.Infof("  pool %s: %d blocks\n", humanize.Bytes(uint64(b.Size)), b.Blocks)
	}
}

// Shutdown checks for leaked buffers and frees the pool.  A leak is reported as an
// error and logged, not treated as fatal.
func (p *Pool) Shutdown() error {
	if dvid.Verbose {
		p.DebugPrint()
	}
	var err error
	if used := p.UsedBlocks(); used != 0 {
		err = fmt.Errorf("%w: %d blocks still in use", ErrLeak, used)
		dvid.Errorf("Memory pool shutdown: %v\n", err)
	}
	p.Clear()
	return err
}
