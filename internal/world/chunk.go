package world

// CellFlag holds per-cell face visibility bits.
type CellFlag uint8

const (
	TopFaceVisible CellFlag = 1 << iota
	FrontFaceVisible
)

// Cell is one terrain voxel.
type Cell struct {
	Terrain    uint32 // top face tile
	Decoration uint32
	FrontFace  uint32 // zero draws the terrain tile
	Flags      CellFlag
}

// Visible reports whether any face of the cell can be seen.
func (c Cell) Visible() bool {
	return c.Flags&(TopFaceVisible|FrontFaceVisible) != 0
}

// Chunk is a fixed-size block of cells. Cells are stored x fastest, then
// y, then z; HeightMap holds one surface height per (x, y) column.
type Chunk struct {
	Position  Vec3i // origin in world units
	Size      Vec3i
	Active    bool
	Cells     []Cell
	HeightMap []int
}

// NullChunk is returned by store lookups that find nothing. It has no
// cells and must not be modified.
var NullChunk = &Chunk{}

// IsNull reports whether c is absent.
func IsNull(c *Chunk) bool {
	return c == nil || c == NullChunk
}

// NewChunk allocates an empty chunk at the given origin.
func NewChunk(position, size Vec3i) *Chunk {
	return &Chunk{
		Position:  position,
		Size:      size,
		Cells:     make([]Cell, size.Volume()),
		HeightMap: make([]int, size.X*size.Y),
	}
}

func (c *Chunk) inBounds(x, y, z int) bool {
	return x >= 0 && x < c.Size.X && y >= 0 && y < c.Size.Y && z >= 0 && z < c.Size.Z
}

func (c *Chunk) index(x, y, z int) int {
	return x + y*c.Size.X + z*c.Size.X*c.Size.Y
}

// Cell returns the cell at local coordinates, or the empty cell when out of range.
func (c *Chunk) Cell(x, y, z int) Cell {
	if !c.inBounds(x, y, z) {
		return Cell{}
	}
	return c.Cells[c.index(x, y, z)]
}

// SetCell writes a cell at local coordinates. Out of range writes are ignored.
func (c *Chunk) SetCell(x, y, z int, cell Cell) {
	if !c.inBounds(x, y, z) {
		return
	}
	c.Cells[c.index(x, y, z)] = cell
}

// SetTerrain replaces the terrain id of a cell, keeping its other fields.
func (c *Chunk) SetTerrain(x, y, z int, id uint32) {
	if !c.inBounds(x, y, z) {
		return
	}
	c.Cells[c.index(x, y, z)].Terrain = id
}

// TerrainAt returns the terrain id at local coordinates; 0 when out of range.
func (c *Chunk) TerrainAt(x, y, z int) uint32 {
	return c.Cell(x, y, z).Terrain
}

// Height returns the surface height of column (x, y).
func (c *Chunk) Height(x, y int) int {
	if x < 0 || x >= c.Size.X || y < 0 || y >= c.Size.Y {
		return 0
	}
	return c.HeightMap[x+y*c.Size.X]
}

// SetHeight stores the surface height of column (x, y).
func (c *Chunk) SetHeight(x, y, h int) {
	if x < 0 || x >= c.Size.X || y < 0 || y >= c.Size.Y {
		return
	}
	c.HeightMap[x+y*c.Size.X] = h
}

// ComputeVisibility sets the face flags of every non-empty cell. The top
// face is visible when the cell above is empty, the front face when the
// cell at y+1 on the same level is empty. Cells outside the chunk count
// as empty.
func (c *Chunk) ComputeVisibility() {
	for z := 0; z < c.Size.Z; z++ {
		for y := 0; y < c.Size.Y; y++ {
			for x := 0; x < c.Size.X; x++ {
				i := c.index(x, y, z)
				if c.Cells[i].Terrain == TerrainEmpty {
					c.Cells[i].Flags = 0
					continue
				}
				var flags CellFlag
				if c.TerrainAt(x, y, z+1) == TerrainEmpty {
					flags |= TopFaceVisible
				}
				if c.TerrainAt(x, y+1, z) == TerrainEmpty {
					flags |= FrontFaceVisible
				}
				c.Cells[i].Flags = flags
			}
		}
	}
}

// Contains reports whether a world position lies inside the chunk.
func (c *Chunk) Contains(p Vec3i) bool {
	return c.inBounds(p.X-c.Position.X, p.Y-c.Position.Y, p.Z-c.Position.Z)
}
