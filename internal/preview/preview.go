// Package preview renders chunks as top-down PNG images.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"tilestream/internal/world"
)

var terrainColors = map[uint32]color.RGBA{
	world.TerrainWater: {R: 48, G: 96, B: 200, A: 255},
	world.TerrainGrass: {R: 86, G: 160, B: 64, A: 255},
	world.TerrainSand:  {R: 220, G: 200, B: 130, A: 255},
	world.TerrainRock:  {R: 128, G: 120, B: 112, A: 255},
}

// TerrainColor returns the preview colour of a terrain id. Ids without a
// fixed colour, such as autotile outputs, get a stable colour derived
// from the id.
func TerrainColor(id uint32) color.RGBA {
	if id == world.TerrainEmpty {
		return color.RGBA{}
	}
	if c, ok := terrainColors[id]; ok {
		return c
	}
	h := id * 2654435761
	return color.RGBA{R: uint8(h >> 24), G: uint8(h >> 16), B: uint8(h >> 8), A: 255}
}

// RenderTopFaces draws the top-most non-empty cell of every column of c,
// one pixel per column scaled up by scale. Decorated cells are darkened.
func RenderTopFaces(c *world.Chunk, scale int) *image.RGBA {
	scale = max(scale, 1)
	src := image.NewRGBA(image.Rect(0, 0, c.Size.X, c.Size.Y))
	for y := 0; y < c.Size.Y; y++ {
		for x := 0; x < c.Size.X; x++ {
			for z := c.Size.Z - 1; z >= 0; z-- {
				cell := c.Cell(x, y, z)
				if cell.Terrain == world.TerrainEmpty {
					continue
				}
				col := TerrainColor(cell.Terrain)
				if cell.Decoration != 0 {
					col = darken(col)
				}
				src.SetRGBA(x, y, col)
				break
			}
		}
	}
	if scale == 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, c.Size.X*scale, c.Size.Y*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func darken(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.R / 2, G: c.G / 2, B: c.B / 2, A: c.A}
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode preview: %w", err)
	}
	return f.Close()
}
