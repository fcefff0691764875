package voxels

import "math"

// Below 32 bits, channels are normalized in -1..1.  Signed distances are scaled into
// that range so sub-unit values near the surface keep useful precision.
const (
	QuantizedSDF8BitScale  = 0.1
	QuantizedSDF16BitScale = 0.002

	inv0x7f   = 1.0 / 0x7f
	inv0x7fff = 1.0 / 0x7fff
)

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// EncodeFloat converts a float to the raw stored value of a channel of depth d.
// With quantize set, 8 and 16-bit depths apply the SDF scale before normalizing.
func EncodeFloat(v float64, d Depth, quantize bool) uint64 {
	switch d {
	case Depth8Bit:
		if quantize {
			v *= QuantizedSDF8BitScale
		}
		return uint64(uint8(int8(math.Round(clampUnit(v) * 0x7f))))
	case Depth16Bit:
		if quantize {
			v *= QuantizedSDF16BitScale
		}
		return uint64(uint16(int16(math.Round(clampUnit(v) * 0x7fff))))
	case Depth32Bit:
		return uint64(math.Float32bits(float32(v)))
	case Depth64Bit:
		return math.Float64bits(v)
	}
	return 0
}

// DecodeFloat is the inverse of EncodeFloat.
func DecodeFloat(raw uint64, d Depth, quantize bool) float64 {
	switch d {
	case Depth8Bit:
		v := float64(int8(uint8(raw))) * inv0x7f
		if quantize {
			v /= QuantizedSDF8BitScale
		}
		return v
	case Depth16Bit:
		v := float64(int16(uint16(raw))) * inv0x7fff
		if quantize {
			v /= QuantizedSDF16BitScale
		}
		return v
	case Depth32Bit:
		return float64(math.Float32frombits(uint32(raw)))
	case Depth64Bit:
		return math.Float64frombits(raw)
	}
	return 0
}
