package voxterrain

import (
	"errors"
	"sync"

	"github.com/janelia-flyem/voxterrain/block"
	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/edit"
	"github.com/janelia-flyem/voxterrain/mempool"
	"github.com/janelia-flyem/voxterrain/server"
	"github.com/janelia-flyem/voxterrain/voxels"
)

// Context holds what is shared by the voxel structures of a process.
type Context struct {
	pool       *mempool.Pool
	warnOnLeak bool

	mu       sync.Mutex
	shutdown bool
}

// New returns a Context with its own memory pool.
func New() *Context {
	return &Context{pool: mempool.New(), warnOnLeak: true}
}

// NewFromConfig returns a Context set up from the [pool] configuration.
func NewFromConfig(c *server.Config) *Context {
	ctx := New()
	if c != nil {
		ctx.warnOnLeak = c.Pool.WarnOnLeak
	}
	return ctx
}

// Pool returns the memory pool of the context.
func (ctx *Context) Pool() *mempool.Pool {
	return ctx.pool
}

// NewBuffer returns a buffer of the given size drawing from the context pool.
func (ctx *Context) NewBuffer(size dvid.Point3d) (*voxels.Buffer, error) {
	return voxels.NewBufferWithSize(ctx.pool, size)
}

// NewMap returns a block map with blocks of 2^blockSizePo2 voxels per edge.
func (ctx *Context) NewMap(blockSizePo2 uint, lod uint8) *block.Map {
	return block.NewMap(ctx.pool, blockSizePo2, lod)
}

// NewBufferTool returns an editing tool over a buffer.
func (ctx *Context) NewBufferTool(buf *voxels.Buffer) (*edit.Tool, error) {
	return edit.NewBufferTool(buf)
}

// NewMapTool returns an editing tool over a block map.
func (ctx *Context) NewMapTool(m *block.Map) (*edit.Tool, error) {
	return edit.NewMapTool(m)
}

// Shutdown checks the pool for buffers that were never released and frees it.  Leaks
// are returned as an error wrapping mempool.ErrLeak unless leak warnings are turned
// off, in which case they are only logged.  Calling Shutdown twice is a no-op.
func (ctx *Context) Shutdown() error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if ctx.shutdown {
		return nil
	}
	ctx.shutdown = true
	err := ctx.pool.Shutdown()
	if err != nil && errors.Is(err, mempool.ErrLeak) && !ctx.warnOnLeak {
		dvid.Infof("Ignoring memory pool leak: %v\n", err)
		return nil
	}
	return err
}
