package voxels

// Texture blending packs up to 4 texture indices of 4 bits each into the INDICES
// channel and 4 matching weights of 4 bits each into the WEIGHTS channel.  Weights are
// 8-bit values on the API side, so the lowest 4 bits are lost: only multiples of 16
// survive a round trip exactly.

// EncodeWeightsPackedU16 packs four 8-bit weights, rounding each to the nearest 16.
func EncodeWeightsPackedU16(a, b, c, d uint8) uint16 {
	return uint16(quantizeWeight(a)) | uint16(quantizeWeight(b))<<4 |
		uint16(quantizeWeight(c))<<8 | uint16(quantizeWeight(d))<<12
}

func quantizeWeight(w uint8) uint8 {
	q := (uint16(w) + 8) >> 4
	if q > 15 {
		q = 15
	}
	return uint8(q)
}

// DecodeWeightsPackedU16 unpacks four weights as multiples of 16.
func DecodeWeightsPackedU16(packed uint16) [4]uint8 {
	return [4]uint8{
		uint8(packed&0x0f) << 4,
		uint8((packed>>4)&0x0f) << 4,
		uint8((packed>>8)&0x0f) << 4,
		uint8((packed>>12)&0x0f) << 4,
	}
}

// EncodeIndicesPackedU16 packs four texture indices in 0..15.
func EncodeIndicesPackedU16(a, b, c, d uint8) uint16 {
	return uint16(a&0x0f) | uint16(b&0x0f)<<4 | uint16(c&0x0f)<<8 | uint16(d&0x0f)<<12
}

// DecodeIndicesPackedU16 unpacks four texture indices.
func DecodeIndicesPackedU16(packed uint16) [4]uint8 {
	return [4]uint8{
		uint8(packed & 0x0f),
		uint8((packed >> 4) & 0x0f),
		uint8((packed >> 8) & 0x0f),
		uint8((packed >> 12) & 0x0f),
	}
}

// BlendTexturePackedU16 raises the weight of textureIndex toward targetWeight (0..1)
// and caps the other weights so they leave room for it.  If the index is not present,
// it takes the slot with the lowest weight, the first one on ties.
func BlendTexturePackedU16(textureIndex uint8, targetWeight float32, indices, weights *uint16) {
	idx := DecodeIndicesPackedU16(*indices)
	w := DecodeWeightsPackedU16(*weights)
	textureIndex &= 0x0f

	slot := -1
	for i := 0; i < 4; i++ {
		if idx[i] == textureIndex {
			slot = i
			break
		}
	}
	if slot < 0 {
		slot = 0
		for i := 1; i < 4; i++ {
			if w[i] < w[slot] {
				slot = i
			}
		}
		idx[slot] = textureIndex
		w[slot] = 0
	}

	if targetWeight < 0 {
		targetWeight = 0
	} else if targetWeight > 1 {
		targetWeight = 1
	}
	target := uint8(targetWeight*255 + 0.5)
	for i := 0; i < 4; i++ {
		if i == slot {
			if w[i] < target {
				w[i] = target
			}
		} else if w[i] > 255-target {
			w[i] = 255 - target
		}
	}
	*indices = EncodeIndicesPackedU16(idx[0], idx[1], idx[2], idx[3])
	*weights = EncodeWeightsPackedU16(w[0], w[1], w[2], w[3])
}
