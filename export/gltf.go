/*
	Package export writes mesher output as binary glTF so meshes can be inspected in
	standard viewers.
*/
package export

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/janelia-flyem/voxterrain/meshing"
)

const generator = "voxterrain"

// Document converts an output to a glTF document with one mesh holding a primitive per
// surface.  Surfaces with any vertex alpha below 1 get a blended material.  An atlas is
// embedded as a PNG base color texture.
func Document(out *meshing.Output, name string) (*gltf.Document, error) {
	if out == nil || out.Empty() {
		return nil, fmt.Errorf("no surface to export")
	}
	doc := gltf.NewDocument()
	doc.Asset.Generator = generator

	var texture *gltf.TextureInfo
	if out.Atlas != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, out.Atlas); err != nil {
			return nil, err
		}
		img, err := modeler.WriteImage(doc, name+"_atlas", "image/png", &buf)
		if err != nil {
			return nil, err
		}
		doc.Samplers = append(doc.Samplers, &gltf.Sampler{MagFilter: gltf.MagNearest, MinFilter: gltf.MinNearest})
		doc.Textures = append(doc.Textures, &gltf.Texture{
			Sampler: gltf.Index(uint32(len(doc.Samplers) - 1)),
			Source:  gltf.Index(uint32(img)),
		})
		texture = &gltf.TextureInfo{Index: uint32(len(doc.Textures) - 1)}
	}

	mesh := &gltf.Mesh{Name: name}
	for i := range out.Surfaces {
		s := &out.Surfaces[i]
		if s.Empty() {
			continue
		}
		prim, hasAlpha := writePrimitive(doc, &s.Arrays)

		pbr := &gltf.PBRMetallicRoughness{
			BaseColorFactor:  &[4]float32{1, 1, 1, 1},
			MetallicFactor:   gltf.Float(0),
			RoughnessFactor:  gltf.Float(1),
			BaseColorTexture: texture,
		}
		material := &gltf.Material{Name: fmt.Sprintf("material_%d", s.Material), PBRMetallicRoughness: pbr}
		if hasAlpha {
			material.AlphaMode = gltf.AlphaBlend
		} else {
			material.AlphaMode = gltf.AlphaOpaque
		}
		doc.Materials = append(doc.Materials, material)
		prim.Material = gltf.Index(uint32(len(doc.Materials) - 1))
		mesh.Primitives = append(mesh.Primitives, prim)
	}
	doc.Meshes = append(doc.Meshes, mesh)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: gltf.Index(uint32(len(doc.Meshes) - 1))})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	return doc, nil
}

func writePrimitive(doc *gltf.Document, a *meshing.Arrays) (prim *gltf.Primitive, hasAlpha bool) {
	n := len(a.Positions)
	positions := make([][3]float32, n)
	for i, p := range a.Positions {
		positions[i] = p
	}
	prim = &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: uint32(modeler.WritePosition(doc, positions)),
		},
	}
	if len(a.Normals) == n {
		normals := make([][3]float32, n)
		for i, v := range a.Normals {
			normals[i] = v
		}
		prim.Attributes[gltf.NORMAL] = uint32(modeler.WriteNormal(doc, normals))
	}
	if len(a.UVs) == n {
		uvs := make([][2]float32, n)
		for i, v := range a.UVs {
			uvs[i] = v
		}
		prim.Attributes[gltf.TEXCOORD_0] = uint32(modeler.WriteTextureCoord(doc, uvs))
	}
	if len(a.Colors) == n {
		colors := make([][4]float32, n)
		for i, v := range a.Colors {
			colors[i] = v
			if v[3] < 1 {
				hasAlpha = true
			}
		}
		prim.Attributes[gltf.COLOR_0] = uint32(modeler.WriteColor(doc, colors))
	}
	if len(a.Tangents) == 4*n {
		tangents := make([][4]float32, n)
		for i := range tangents {
			copy(tangents[i][:], a.Tangents[i*4:i*4+4])
		}
		prim.Attributes[gltf.TANGENT] = uint32(modeler.WriteTangent(doc, tangents))
	}
	indices := make([]uint32, len(a.Indices))
	for i, v := range a.Indices {
		indices[i] = uint32(v)
	}
	prim.Indices = gltf.Index(uint32(modeler.WriteIndices(doc, indices)))
	return
}

// WriteGLB encodes an output as binary glTF.
func WriteGLB(w io.Writer, out *meshing.Output, name string) error {
	doc, err := Document(out, name)
	if err != nil {
		return err
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	return enc.Encode(doc)
}

// SaveGLB writes an output to a .glb file.
func SaveGLB(path string, out *meshing.Output, name string) error {
	doc, err := Document(out, name)
	if err != nil {
		return err
	}
	return gltf.SaveBinary(doc, path)
}
