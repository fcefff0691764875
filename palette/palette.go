/*
	Package palette associates small numbers with colors so colored voxels can be
	stored in 8 or 16 bits per voxel.
*/
package palette

import (
	"errors"
	"fmt"
	"sync"

	"github.com/janelia-flyem/voxterrain/dvid"
)

// MaxColors is the fixed number of palette entries.
const MaxColors = 256

// ErrBadSize is returned when persisted palette data has more entries than a palette holds.
var ErrBadSize = errors.New("bad palette size")

// Palette is a fixed table of 256 colors.  It is safe for concurrent use, so a
// palette can be edited while meshers read it.
type Palette struct {
	mu     sync.RWMutex
	colors [MaxColors]Color8
}

// New returns the default palette: index 0 is transparent black, index 1 is opaque
// white and all others are opaque black.
func New() *Palette {
	p := new(Palette)
	p.colors[1] = Color8{255, 255, 255, 255}
	for i := 2; i < MaxColors; i++ {
		p.colors[i] = Color8{0, 0, 0, 255}
	}
	return p
}

// Color8 returns the color at an index.
func (p *Palette) Color8(i uint8) Color8 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.colors[i]
}

// SetColor8 sets the color at an index.
func (p *Palette) SetColor8(i uint8, c Color8) {
	p.mu.Lock()
	p.colors[i] = c
	p.mu.Unlock()
}

// Color returns the color at an index, or the transparent color if the index is out of range.
func (p *Palette) Color(index int) Color8 {
	if index < 0 || index >= MaxColors {
		dvid.Errorf("palette index %d out of range\n", index)
		return Transparent
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.colors[index]
}

// SetColor sets a color and returns false if the index is out of range.
func (p *Palette) SetColor(index int, c Color8) bool {
	if index < 0 || index >= MaxColors {
		dvid.Errorf("palette index %d out of range\n", index)
		return false
	}
	p.mu.Lock()
	p.colors[index] = c
	p.mu.Unlock()
	return true
}

// Colors returns a copy of all entries.
func (p *Palette) Colors() []Color8 {
	colors := make([]Color8, MaxColors)
	p.mu.RLock()
	copy(colors, p.colors[:])
	p.mu.RUnlock()
	return colors
}

// SetColors replaces all entries.  The palette is left unchanged unless exactly
// MaxColors colors are given.
func (p *Palette) SetColors(colors []Color8) error {
	if len(colors) != MaxColors {
		return fmt.Errorf("%w: got %d colors, need %d", ErrBadSize, len(colors), MaxColors)
	}
	p.mu.Lock()
	copy(p.colors[:], colors)
	p.mu.Unlock()
	return nil
}

// Clear sets every entry to transparent black.
func (p *Palette) Clear() {
	p.mu.Lock()
	p.colors = [MaxColors]Color8{}
	p.mu.Unlock()
}

// Clone returns an independent copy.
func (p *Palette) Clone() *Palette {
	c := new(Palette)
	p.mu.RLock()
	c.colors = p.colors
	p.mu.RUnlock()
	return c
}

// Data returns the persisted form: one packed RGBA value per entry in index order.
func (p *Palette) Data() []uint32 {
	data := make([]uint32, MaxColors)
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i, c := range p.colors {
		data[i] = c.ToU32()
	}
	return data
}

// SetData loads the persisted form.  Shorter data only replaces the leading entries.
func (p *Palette) SetData(data []uint32) error {
	if len(data) > MaxColors {
		return fmt.Errorf("%w: got %d packed colors, max %d", ErrBadSize, len(data), MaxColors)
	}
	p.mu.Lock()
	for i, v := range data {
		p.colors[i] = FromU32(v)
	}
	p.mu.Unlock()
	return nil
}
