package vox

import "github.com/janelia-flyem/voxterrain/palette"

// DefaultPalette is the palette MagicaVoxel uses for files without an RGBA chunk:
// index 0 is empty, then a 6x6x6 color cube without black, then ramps of red, green,
// blue and gray.
var DefaultPalette [palette.MaxColors]palette.Color8

func init() {
	levels := []uint8{0xff, 0xcc, 0x99, 0x66, 0x33, 0x00}
	i := 1
	for _, r := range levels {
		for _, g := range levels {
			for _, b := range levels {
				if r == 0 && g == 0 && b == 0 {
					continue
				}
				DefaultPalette[i] = palette.Color8{R: r, G: g, B: b, A: 255}
				i++
			}
		}
	}
	ramp := []uint8{0xee, 0xdd, 0xbb, 0xaa, 0x88, 0x77, 0x55, 0x44, 0x22, 0x11}
	for channel := 0; channel < 4; channel++ {
		for _, v := range ramp {
			c := palette.Color8{A: 255}
			switch channel {
			case 0:
				c.R = v
			case 1:
				c.G = v
			case 2:
				c.B = v
			default:
				c.R, c.G, c.B = v, v, v
			}
			DefaultPalette[i] = c
			i++
		}
	}
}
