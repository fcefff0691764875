/*
	Package vox reads MagicaVoxel .vox files and copies their models into voxel buffers.

	A .vox file is a "VOX " header and version followed by a MAIN chunk whose children
	are optional PACK, then SIZE and XYZI pairs for each model, then an optional RGBA
	palette.  Scene graph, layer and material chunks are skipped.
*/
package vox

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/janelia-flyem/voxterrain/dvid"
	"github.com/janelia-flyem/voxterrain/palette"
	"github.com/janelia-flyem/voxterrain/voxels"
)

// ErrBadFormat is wrapped by errors about malformed files.
var ErrBadFormat = errors.New("bad vox format")

const (
	magic = "VOX "

	// MaxModelSize is the largest model edge MagicaVoxel saves.
	MaxModelSize = 256
)

// Model is one voxel model.  ColorIndexes is laid out x fastest, then y, then z, in the
// file's Z-up axes, and 0 means empty.
type Model struct {
	Size         dvid.Point3d
	ColorIndexes []uint8
}

// ColorIndex returns the color index at a position in file axes.
func (m *Model) ColorIndex(x, y, z int32) uint8 {
	return m.ColorIndexes[x+m.Size[0]*(y+m.Size[1]*z)]
}

// Data is the content of a .vox file.
type Data struct {
	Version uint32
	Models  []Model
	Palette [palette.MaxColors]palette.Color8
}

type chunkHeader struct {
	ID            [4]byte
	ContentBytes  uint32
	ChildrenBytes uint32
}

// ReadFile reads a .vox file from disk.
func ReadFile(filename string) (*Data, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", filename, err)
	}
	return data, nil
}

// Read parses a .vox stream.  The default MagicaVoxel palette is used when the file has
// no RGBA chunk.
func Read(r io.Reader) (*Data, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[:]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrBadFormat, hdr[:])
	}
	d := &Data{Palette: DefaultPalette}
	if err := binary.Read(r, binary.LittleEndian, &d.Version); err != nil {
		return nil, err
	}

	var main chunkHeader
	if err := binary.Read(r, binary.LittleEndian, &main); err != nil {
		return nil, err
	}
	if string(main.ID[:]) != "MAIN" {
		return nil, fmt.Errorf("%w: expected MAIN chunk, got %q", ErrBadFormat, main.ID[:])
	}
	if _, err := io.CopyN(io.Discard, r, int64(main.ContentBytes)); err != nil {
		return nil, err
	}

	children := io.LimitReader(r, int64(main.ChildrenBytes))
	var size dvid.Point3d
	haveSize := false
	for {
		var ch chunkHeader
		err := binary.Read(children, binary.LittleEndian, &ch)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		content := io.LimitReader(children, int64(ch.ContentBytes))
		switch string(ch.ID[:]) {
		case "SIZE":
			var s [3]uint32
			if err := binary.Read(content, binary.LittleEndian, &s); err != nil {
				return nil, err
			}
			for i := range s {
				if s[i] == 0 || s[i] > MaxModelSize {
					return nil, fmt.Errorf("%w: model size %v", ErrBadFormat, s)
				}
				size[i] = int32(s[i])
			}
			haveSize = true
		case "XYZI":
			if !haveSize {
				return nil, fmt.Errorf("%w: XYZI chunk without SIZE", ErrBadFormat)
			}
			m, err := readVoxels(content, size)
			if err != nil {
				return nil, err
			}
			d.Models = append(d.Models, m)
			haveSize = false
		case "RGBA":
			// Entry i of the chunk is the color of index i+1.
			var rgba [palette.MaxColors][4]uint8
			if err := binary.Read(content, binary.LittleEndian, &rgba); err != nil {
				return nil, err
			}
			d.Palette[0] = palette.Transparent
			for i := 0; i < palette.MaxColors-1; i++ {
				c := rgba[i]
				d.Palette[i+1] = palette.Color8{R: c[0], G: c[1], B: c[2], A: c[3]}
			}
		default:
			dvid.Debugf("Skipping vox chunk %q\n", ch.ID[:])
		}
		// Skip what is left of the content and any children.
		if _, err := io.Copy(io.Discard, content); err != nil {
			return nil, err
		}
		if _, err := io.CopyN(io.Discard, children, int64(ch.ChildrenBytes)); err != nil {
			return nil, err
		}
	}
	if len(d.Models) == 0 {
		return nil, fmt.Errorf("%w: no model", ErrBadFormat)
	}
	return d, nil
}

func readVoxels(r io.Reader, size dvid.Point3d) (Model, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return Model{}, err
	}
	m := Model{Size: size, ColorIndexes: make([]uint8, size.Prod())}
	buf := make([]byte, 4*1024)
	for n > 0 {
		count := int(n)
		if count > len(buf)/4 {
			count = len(buf) / 4
		}
		if _, err := io.ReadFull(r, buf[:count*4]); err != nil {
			return Model{}, fmt.Errorf("%w: truncated voxels: %v", ErrBadFormat, err)
		}
		for i := 0; i < count; i++ {
			x, y, z := int32(buf[i*4]), int32(buf[i*4+1]), int32(buf[i*4+2])
			if x >= size[0] || y >= size[1] || z >= size[2] {
				return Model{}, fmt.Errorf("%w: voxel (%d,%d,%d) outside model of size %s", ErrBadFormat, x, y, z, size)
			}
			m.ColorIndexes[x+size[0]*(y+size[1]*z)] = buf[i*4+3]
		}
		n -= uint32(count)
	}
	return m, nil
}

// EngineSize returns the model size in buffer axes, where Y is up.
func (m *Model) EngineSize() dvid.Point3d {
	return dvid.Point3d{m.Size[0], m.Size[2], m.Size[1]}
}

// LoadIntoBuffer copies a model into the COLOR channel of a buffer, recreated to the
// model size plus padding on every side.  File axes (x, y, z) become buffer axes
// (x, z, y).  If pal is non-nil the file palette is copied into it and color indexes
// are stored; otherwise colors are packed at the channel depth.
func (d *Data) LoadIntoBuffer(modelIndex int, buf *voxels.Buffer, pal *palette.Palette, padding int32) error {
	if buf == nil {
		return fmt.Errorf("%w: nil buffer", voxels.ErrInvalidArgument)
	}
	if modelIndex < 0 || modelIndex >= len(d.Models) {
		return fmt.Errorf("%w: model %d of %d", voxels.ErrInvalidArgument, modelIndex, len(d.Models))
	}
	if padding < 0 {
		return fmt.Errorf("%w: negative padding %d", voxels.ErrInvalidArgument, padding)
	}
	m := &d.Models[modelIndex]
	c := voxels.ChannelColor
	depth := buf.ChannelDepth(c)

	var convert func(ci uint8) uint64
	if pal != nil {
		if depth != voxels.Depth8Bit && depth != voxels.Depth16Bit {
			return fmt.Errorf("%w: color indexes need an 8 or 16-bit channel, not %s", voxels.ErrUnsupportedDepth, depth)
		}
		if err := pal.SetColors(d.Palette[:]); err != nil {
			return err
		}
		convert = func(ci uint8) uint64 { return uint64(ci) }
	} else {
		switch depth {
		case voxels.Depth8Bit:
			convert = func(ci uint8) uint64 { return uint64(d.Palette[ci].ToU8()) }
		case voxels.Depth16Bit:
			convert = func(ci uint8) uint64 { return uint64(d.Palette[ci].ToU16()) }
		case voxels.Depth32Bit:
			convert = func(ci uint8) uint64 { return uint64(d.Palette[ci].ToU32()) }
		default:
			return fmt.Errorf("%w: packed colors need at most 32 bits, not %s", voxels.ErrUnsupportedDepth, depth)
		}
	}

	if err := buf.Create(m.EngineSize().AddScalar(2 * padding)); err != nil {
		return err
	}
	buf.Fill(0, c)
	var pos dvid.Point3d
	for z := int32(0); z < m.Size[2]; z++ {
		for y := int32(0); y < m.Size[1]; y++ {
			for x := int32(0); x < m.Size[0]; x++ {
				ci := m.ColorIndex(x, y, z)
				if ci == 0 {
					continue
				}
				pos = dvid.Point3d{x + padding, z + padding, y + padding}
				buf.SetVoxelUnchecked(convert(ci), pos, c)
			}
		}
	}
	return nil
}
