package meshing

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg implements msgp.Marshaler.  An Output is encoded as the array
// [surfaces, transition surfaces, primitive type, atlas or nil].
func (z *Output) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendArrayHeader(o, 4)
	o = appendSurfaceSlice(o, z.Surfaces)
	o = msgp.AppendArrayHeader(o, SideCount)
	for side := range z.TransitionSurfaces {
		o = appendSurfaceSlice(o, z.TransitionSurfaces[side])
	}
	o = msgp.AppendUint8(o, uint8(z.PrimitiveType))
	if z.Atlas == nil {
		o = msgp.AppendNil(o)
	} else {
		bounds := z.Atlas.Bounds()
		o = msgp.AppendArrayHeader(o, 3)
		o = msgp.AppendInt(o, bounds.Dx())
		o = msgp.AppendInt(o, bounds.Dy())
		o = msgp.AppendBytes(o, z.Atlas.Pix)
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Output) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var asz uint32
	asz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if asz != 4 {
		err = msgp.ArrayError{Wanted: 4, Got: asz}
		return
	}
	z.Surfaces, bts, err = readSurfaceSlice(bts, z.Surfaces[:0])
	if err != nil {
		return
	}
	asz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if asz != SideCount {
		err = msgp.ArrayError{Wanted: SideCount, Got: asz}
		return
	}
	for side := range z.TransitionSurfaces {
		z.TransitionSurfaces[side], bts, err = readSurfaceSlice(bts, nil)
		if err != nil {
			return
		}
	}
	{
		var tmp uint8
		tmp, bts, err = msgp.ReadUint8Bytes(bts)
		z.PrimitiveType = PrimitiveType(tmp)
	}
	if err != nil {
		return
	}
	if msgp.IsNil(bts) {
		bts, err = msgp.ReadNilBytes(bts)
		z.Atlas = nil
	} else {
		asz, bts, err = msgp.ReadArrayHeaderBytes(bts)
		if err != nil {
			return
		}
		if asz != 3 {
			err = msgp.ArrayError{Wanted: 3, Got: asz}
			return
		}
		var w, h int
		w, bts, err = msgp.ReadIntBytes(bts)
		if err != nil {
			return
		}
		h, bts, err = msgp.ReadIntBytes(bts)
		if err != nil {
			return
		}
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		var pix []byte
		pix, bts, err = msgp.ReadBytesZC(bts)
		if err != nil {
			return
		}
		if len(pix) != len(img.Pix) {
			err = fmt.Errorf("atlas of %dx%d has %d bytes of pixels", w, h, len(pix))
			return
		}
		copy(img.Pix, pix)
		z.Atlas = img
	}
	if err != nil {
		return
	}
	o = bts
	return
}

func (z *Output) Msgsize() (s int) {
	s = msgp.ArrayHeaderSize + surfaceSliceSize(z.Surfaces) + msgp.ArrayHeaderSize
	for side := range z.TransitionSurfaces {
		s += surfaceSliceSize(z.TransitionSurfaces[side])
	}
	s += msgp.Uint8Size
	if z.Atlas == nil {
		s += msgp.NilSize
	} else {
		s += msgp.ArrayHeaderSize + 2*msgp.IntSize + msgp.BytesPrefixSize + len(z.Atlas.Pix)
	}
	return
}

// MarshalMsg implements msgp.Marshaler
func (z *Surface) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendArrayHeader(o, 7)
	o = msgp.AppendInt(o, z.Material)
	o = appendVec3s(o, z.Positions)
	o = appendVec3s(o, z.Normals)
	o = msgp.AppendArrayHeader(o, uint32(2*len(z.UVs)))
	for _, v := range z.UVs {
		o = msgp.AppendFloat32(o, v[0])
		o = msgp.AppendFloat32(o, v[1])
	}
	o = msgp.AppendArrayHeader(o, uint32(4*len(z.Colors)))
	for _, v := range z.Colors {
		for k := range v {
			o = msgp.AppendFloat32(o, v[k])
		}
	}
	o = msgp.AppendArrayHeader(o, uint32(len(z.Indices)))
	for _, v := range z.Indices {
		o = msgp.AppendInt32(o, v)
	}
	o = msgp.AppendArrayHeader(o, uint32(len(z.Tangents)))
	for _, v := range z.Tangents {
		o = msgp.AppendFloat32(o, v)
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Surface) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var asz uint32
	asz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if asz != 7 {
		err = msgp.ArrayError{Wanted: 7, Got: asz}
		return
	}
	z.Material, bts, err = msgp.ReadIntBytes(bts)
	if err != nil {
		return
	}
	z.Positions, bts, err = readVec3s(bts, z.Positions[:0])
	if err != nil {
		return
	}
	z.Normals, bts, err = readVec3s(bts, z.Normals[:0])
	if err != nil {
		return
	}
	var f []float32
	f, bts, err = readFloats(bts, nil, 2)
	if err != nil {
		return
	}
	z.UVs = z.UVs[:0]
	for i := 0; i < len(f); i += 2 {
		z.UVs = append(z.UVs, mgl32.Vec2{f[i], f[i+1]})
	}
	f, bts, err = readFloats(bts, f[:0], 4)
	if err != nil {
		return
	}
	z.Colors = z.Colors[:0]
	for i := 0; i < len(f); i += 4 {
		z.Colors = append(z.Colors, mgl32.Vec4{f[i], f[i+1], f[i+2], f[i+3]})
	}
	asz, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	z.Indices = z.Indices[:0]
	for i := uint32(0); i < asz; i++ {
		var v int32
		v, bts, err = msgp.ReadInt32Bytes(bts)
		if err != nil {
			return
		}
		z.Indices = append(z.Indices, v)
	}
	z.Tangents, bts, err = readFloats(bts, z.Tangents[:0], 1)
	if err != nil {
		return
	}
	o = bts
	return
}

func (z *Surface) Msgsize() (s int) {
	floats := 3*len(z.Positions) + 3*len(z.Normals) + 2*len(z.UVs) + 4*len(z.Colors) + len(z.Tangents)
	s = msgp.ArrayHeaderSize + msgp.IntSize + 6*msgp.ArrayHeaderSize + floats*msgp.Float32Size + len(z.Indices)*msgp.Int32Size
	return
}

func appendSurfaceSlice(o []byte, surfaces []Surface) []byte {
	o = msgp.AppendArrayHeader(o, uint32(len(surfaces)))
	for i := range surfaces {
		// Surface.MarshalMsg never fails.
		o, _ = surfaces[i].MarshalMsg(o)
	}
	return o
}

func readSurfaceSlice(bts []byte, dst []Surface) ([]Surface, []byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return dst, bts, err
	}
	if sz == 0 {
		return dst, bts, nil
	}
	if cap(dst) >= int(sz) {
		dst = dst[:sz]
	} else {
		dst = make([]Surface, sz)
	}
	for i := range dst {
		bts, err = dst[i].UnmarshalMsg(bts)
		if err != nil {
			return dst, bts, err
		}
	}
	return dst, bts, nil
}

func surfaceSliceSize(surfaces []Surface) (s int) {
	s = msgp.ArrayHeaderSize
	for i := range surfaces {
		s += surfaces[i].Msgsize()
	}
	return
}

func appendVec3s(o []byte, vs []mgl32.Vec3) []byte {
	o = msgp.AppendArrayHeader(o, uint32(3*len(vs)))
	for _, v := range vs {
		o = msgp.AppendFloat32(o, v[0])
		o = msgp.AppendFloat32(o, v[1])
		o = msgp.AppendFloat32(o, v[2])
	}
	return o
}

func readVec3s(bts []byte, dst []mgl32.Vec3) ([]mgl32.Vec3, []byte, error) {
	f, bts, err := readFloats(bts, nil, 3)
	if err != nil {
		return dst, bts, err
	}
	for i := 0; i < len(f); i += 3 {
		dst = append(dst, mgl32.Vec3{f[i], f[i+1], f[i+2]})
	}
	return dst, bts, nil
}

// readFloats reads a float32 array whose length must be a multiple of group.
func readFloats(bts []byte, dst []float32, group int) ([]float32, []byte, error) {
	sz, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return dst, bts, err
	}
	if int(sz)%group != 0 {
		return dst, bts, fmt.Errorf("float array of %d elements is not a multiple of %d", sz, group)
	}
	for i := uint32(0); i < sz; i++ {
		var v float32
		v, bts, err = msgp.ReadFloat32Bytes(bts)
		if err != nil {
			return dst, bts, err
		}
		dst = append(dst, v)
	}
	return dst, bts, nil
}
