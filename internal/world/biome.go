package world

// BiomeType is a coarse world region classification. The zero value is
// Sea, which is also what sampling outside the map returns.
type BiomeType uint8

const (
	BiomeSea BiomeType = iota
	BiomeBeach
	BiomePlains
	BiomeRockMountains
)

func (b BiomeType) String() string {
	switch b {
	case BiomeSea:
		return "sea"
	case BiomeBeach:
		return "beach"
	case BiomePlains:
		return "plains"
	case BiomeRockMountains:
		return "rock_mountains"
	}
	return "unknown"
}

// surfaceForBiome resolves the raw terrain id and the z of the top solid
// cell of one column. Columns below sea level are water up to z=1 no
// matter the biome.
func surfaceForBiome(b BiomeType, height, seaLevel int) (terrain uint32, resolvedZ int) {
	if height < seaLevel {
		return TerrainWater, 1
	}
	switch b {
	case BiomeBeach:
		return TerrainSand, height
	case BiomeRockMountains:
		return TerrainRock, height
	default:
		return TerrainGrass, height
	}
}
