package voxels

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns a 64-bit hash of size, depths and values of every channel.
// Uniform and dense channels holding the same values hash differently, which only
// costs a cache miss.
func (b *Buffer) ContentHash() uint64 {
	h := xxhash.New()
	var hdr [8 + 12]byte
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(hdr[8+i*4:], uint32(b.size[i]))
	}
	h.Write(hdr[8:])
	for c := range b.channels {
		ch := &b.channels[c]
		hdr[0] = byte(c)
		hdr[1] = byte(ch.depth)
		if ch.data == nil {
			hdr[2] = 0
			h.Write(hdr[:3])
			binary.LittleEndian.PutUint64(hdr[:8], ch.defval)
			h.Write(hdr[:8])
			continue
		}
		hdr[2] = 1
		h.Write(hdr[:3])
		h.Write(ch.data)
	}
	return h.Sum64()
}
