package meshing

import (
	"image"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/janelia-flyem/voxterrain/palette"
)

// ImageInfo locates the colors of one quad in GreedyAtlasData.
type ImageInfo struct {
	FirstColorIndex  int
	FirstVertexIndex int
	SizeX            int
	SizeY            int
	SurfaceIndex     int
}

// GreedyAtlasData collects per-quad color images while meshing.  Colors of an image
// are stored row by row, SizeX per row.
type GreedyAtlasData struct {
	Colors []palette.Color8
	Images []ImageInfo

	order []int
}

func (g *GreedyAtlasData) Clear() {
	g.Colors = g.Colors[:0]
	g.Images = g.Images[:0]
	g.order = g.order[:0]
}

// BuildImage packs the quad images into rows of an atlas and rewrites the UVs of each
// quad, given in voxel units, to atlas coordinates.  It returns nil if there is no image.
func (g *GreedyAtlasData) BuildImage(surfaces []Arrays) *image.NRGBA {
	if len(g.Images) == 0 {
		return nil
	}
	area := 0
	maxWidth := 0
	g.order = g.order[:0]
	for i, info := range g.Images {
		area += info.SizeX * info.SizeY
		if info.SizeX > maxWidth {
			maxWidth = info.SizeX
		}
		g.order = append(g.order, i)
	}
	width := int(math.Ceil(math.Sqrt(float64(area))))
	if width < maxWidth {
		width = maxWidth
	}
	sort.SliceStable(g.order, func(a, b int) bool {
		return g.Images[g.order[a]].SizeY > g.Images[g.order[b]].SizeY
	})

	// Shelf packing, tallest images first.
	positions := make([]image.Point, len(g.Images))
	var x, y, shelf int
	for _, i := range g.order {
		info := g.Images[i]
		if x+info.SizeX > width {
			y += shelf
			x, shelf = 0, 0
		}
		positions[i] = image.Point{X: x, Y: y}
		x += info.SizeX
		if info.SizeY > shelf {
			shelf = info.SizeY
		}
	}
	height := y + shelf

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	sx := 1 / float32(width)
	sy := 1 / float32(height)
	for i, info := range g.Images {
		at := positions[i]
		for b := 0; b < info.SizeY; b++ {
			for a := 0; a < info.SizeX; a++ {
				img.SetNRGBA(at.X+a, at.Y+b, g.Colors[info.FirstColorIndex+a+b*info.SizeX].NRGBA())
			}
		}
		uvs := surfaces[info.SurfaceIndex].UVs
		for k := info.FirstVertexIndex; k < info.FirstVertexIndex+4; k++ {
			uv := uvs[k]
			uvs[k] = mgl32.Vec2{(float32(at.X) + uv[0]) * sx, (float32(at.Y) + uv[1]) * sy}
		}
	}
	return img
}
