package palette

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// Color8 is an RGBA color with 8 bits per component.
type Color8 struct {
	R, G, B, A uint8
}

// Transparent is the zero color.
var Transparent = Color8{}

// FromU8 decodes a color packed into 8 bits, 2 bits per component as RRGGBBAA.
func FromU8(v uint8) Color8 {
	return Color8{
		R: ((v >> 6) & 3) * 85,
		G: ((v >> 4) & 3) * 85,
		B: ((v >> 2) & 3) * 85,
		A: (v & 3) * 85,
	}
}

// FromU16 decodes a color packed into 16 bits, 4 bits per component with R highest.
func FromU16(v uint16) Color8 {
	return Color8{
		R: uint8((v>>12)&0xf) * 17,
		G: uint8((v>>8)&0xf) * 17,
		B: uint8((v>>4)&0xf) * 17,
		A: uint8(v&0xf) * 17,
	}
}

// FromU32 decodes a color packed into 32 bits with R in the most significant byte.
func FromU32(v uint32) Color8 {
	return Color8{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}

// ToU8 packs the 2 most significant bits of each component.
func (c Color8) ToU8() uint8 {
	return (c.R>>6)<<6 | (c.G>>6)<<4 | (c.B>>6)<<2 | c.A>>6
}

// ToU16 packs the 4 most significant bits of each component.
func (c Color8) ToU16() uint16 {
	return uint16(c.R>>4)<<12 | uint16(c.G>>4)<<8 | uint16(c.B>>4)<<4 | uint16(c.A>>4)
}

// ToU32 packs the color with R in the most significant byte.
func (c Color8) ToU32() uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// IsOpaque returns true if alpha is at maximum.
func (c Color8) IsOpaque() bool {
	return c.A == 255
}

// NRGBA returns the color as a non-premultiplied image color.
func (c Color8) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Vec4 returns the color with components normalized to [0,1].
func (c Color8) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
}

// FromVec4 converts a normalized color, clamping each component.
func FromVec4(v mgl32.Vec4) Color8 {
	conv := func(f float32) uint8 {
		if f <= 0 {
			return 0
		}
		if f >= 1 {
			return 255
		}
		return uint8(f*255 + 0.5)
	}
	return Color8{R: conv(v[0]), G: conv(v[1]), B: conv(v[2]), A: conv(v[3])}
}

func (c Color8) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
