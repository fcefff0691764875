package voxels

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is wrapped by errors from out-of-range positions, channels, or sizes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedDepth is wrapped when an operation cannot handle a channel's bit depth.
	ErrUnsupportedDepth = errors.New("unsupported channel depth")
)

// ChannelID identifies one plane of per-voxel data.
type ChannelID uint8

const (
	ChannelType ChannelID = iota
	ChannelSDF
	ChannelColor
	ChannelIndices
	ChannelWeights
	ChannelData5
	ChannelData6
	ChannelData7
)

// MaxChannels is the fixed number of channels of every Buffer.
const MaxChannels = 8

// AllChannelsMask selects every channel.
const AllChannelsMask uint8 = 0xff

var channelNames = [MaxChannels]string{"type", "sdf", "color", "indices", "weights", "data5", "data6", "data7"}

func (c ChannelID) String() string {
	if int(c) < MaxChannels {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", c)
}

// Mask returns the single-bit mask for the channel.
func (c ChannelID) Mask() uint8 {
	return 1 << c
}

// ChannelFromString parses a channel name.
func ChannelFromString(s string) (ChannelID, error) {
	for i, name := range channelNames {
		if name == s {
			return ChannelID(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown channel %q", ErrInvalidArgument, s)
}

// MaskToChannels returns the channels selected by a bitmask in increasing order.
func MaskToChannels(mask uint8) []ChannelID {
	var channels []ChannelID
	for c := 0; c < MaxChannels; c++ {
		if mask&(1<<uint(c)) != 0 {
			channels = append(channels, ChannelID(c))
		}
	}
	return channels
}

// Depth is the bit depth of a channel.
type Depth uint8

const (
	Depth8Bit Depth = iota
	Depth16Bit
	Depth32Bit
	Depth64Bit
)

// Bytes returns the size of one voxel of this depth.
func (d Depth) Bytes() int {
	return 1 << d
}

// Bits returns the number of bits of one voxel of this depth.
func (d Depth) Bits() int {
	return 8 << d
}

// Mask returns the largest value representable at this depth.
func (d Depth) Mask() uint64 {
	if d == Depth64Bit {
		return ^uint64(0)
	}
	return (uint64(1) << uint(d.Bits())) - 1
}

func (d Depth) String() string {
	if d > Depth64Bit {
		return fmt.Sprintf("depth(%d)", d)
	}
	return fmt.Sprintf("%d-bit", d.Bits())
}

// DepthFromBits returns the depth for 8, 16, 32, or 64 bits.
func DepthFromBits(bits int) (Depth, error) {
	switch bits {
	case 8:
		return Depth8Bit, nil
	case 16:
		return Depth16Bit, nil
	case 32:
		return Depth32Bit, nil
	case 64:
		return Depth64Bit, nil
	}
	return 0, fmt.Errorf("%w: %d bits", ErrUnsupportedDepth, bits)
}

var defaultDepths = [MaxChannels]Depth{
	Depth8Bit,  // type
	Depth16Bit, // sdf
	Depth8Bit,  // color
	Depth16Bit, // indices
	Depth16Bit, // weights
	Depth8Bit,
	Depth8Bit,
	Depth8Bit,
}

// DefaultDepth returns the depth a freshly created channel has.
func DefaultDepth(c ChannelID) Depth {
	if int(c) >= MaxChannels {
		return Depth8Bit
	}
	return defaultDepths[c]
}

// DefaultValue returns the value a freshly created channel holds at the given depth.
// SDF defaults to the largest positive distance so empty space reads as air.
func DefaultValue(c ChannelID, d Depth) uint64 {
	if c == ChannelSDF {
		return EncodeFloat(1, d, false)
	}
	return 0
}
