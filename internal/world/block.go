package world

// Raw terrain ids written by the generator before rule resolution. Rule
// tables map these (and their own outputs) to final tile ids.
const (
	TerrainEmpty uint32 = iota
	TerrainWater
	TerrainGrass
	TerrainSand
	TerrainRock
)

var terrainNames = map[uint32]string{
	TerrainEmpty: "empty",
	TerrainWater: "water",
	TerrainGrass: "grass",
	TerrainSand:  "sand",
	TerrainRock:  "rock",
}

// TerrainName returns a readable name for raw ids and "tile" otherwise.
func TerrainName(id uint32) string {
	if name, ok := terrainNames[id]; ok {
		return name
	}
	return "tile"
}
