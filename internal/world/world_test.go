package world

import "testing"

func TestWorldToChunk(t *testing.T) {
	size := Vec3i{X: 32, Y: 32, Z: 16}
	cases := []struct {
		in, want Vec3i
	}{
		{Vec3i{}, Vec3i{}},
		{Vec3i{X: 31, Y: 31, Z: 15}, Vec3i{}},
		{Vec3i{X: 32, Y: 64, Z: 16}, Vec3i{X: 32, Y: 64, Z: 16}},
		{Vec3i{X: -1, Y: -32, Z: -17}, Vec3i{X: -32, Y: -32, Z: -32}},
		{Vec3i{X: -33, Y: 5, Z: 0}, Vec3i{X: -64, Y: 0, Z: 0}},
	}
	for _, c := range cases {
		if got := WorldToChunk(c.in, size); got != c.want {
			t.Errorf("WorldToChunk(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestMod(t *testing.T) {
	for _, c := range [][3]int{{5, 4, 1}, {-1, 4, 3}, {-4, 4, 0}, {-5, 4, 3}} {
		if got := mod(c[0], c[1]); got != c[2] {
			t.Errorf("mod(%d, %d) = %d, want %d", c[0], c[1], got, c[2])
		}
	}
}

func TestChunkVisibility(t *testing.T) {
	c := NewChunk(Vec3i{}, Vec3i{X: 1, Y: 2, Z: 2})
	c.SetTerrain(0, 0, 0, TerrainRock)
	c.SetTerrain(0, 0, 1, TerrainGrass)
	c.SetTerrain(0, 1, 0, TerrainSand)
	c.ComputeVisibility()

	// (0, 1, 1) is empty, but only the cell directly in front covers the front face
	if f := c.Cell(0, 0, 0).Flags; f != 0 {
		t.Errorf("buried cell flags = %b, want 0", f)
	}
	if f := c.Cell(0, 0, 1).Flags; f != TopFaceVisible|FrontFaceVisible {
		t.Errorf("top cell flags = %b", f)
	}
	if f := c.Cell(0, 1, 0).Flags; f != TopFaceVisible|FrontFaceVisible {
		t.Errorf("edge cell flags = %b, outside the chunk counts as empty", f)
	}
	if c.Cell(0, 1, 1).Visible() {
		t.Error("empty cell reported visible")
	}
}

func TestChunkBounds(t *testing.T) {
	c := NewChunk(Vec3i{X: -4, Y: 8}, Vec3i{X: 4, Y: 4, Z: 2})
	c.SetTerrain(9, 0, 0, TerrainRock)
	if got := c.TerrainAt(9, 0, 0); got != TerrainEmpty {
		t.Errorf("out of range terrain = %d", got)
	}
	c.SetHeight(1, 2, 5)
	if got := c.Height(1, 2); got != 5 {
		t.Errorf("Height = %d, want 5", got)
	}
	if !c.Contains(Vec3i{X: -1, Y: 11, Z: 1}) || c.Contains(Vec3i{X: 0, Y: 8}) {
		t.Error("Contains disagrees with chunk bounds")
	}
	if !IsNull(NullChunk) || !IsNull(nil) || IsNull(c) {
		t.Error("IsNull")
	}
}
