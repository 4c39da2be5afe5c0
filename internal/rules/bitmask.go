package rules

// Neighbor bits. Top is y-1, Right is x+1.
const (
	EdgeTop uint8 = 1 << iota
	EdgeRight
	EdgeBottom
	EdgeLeft
	EdgeTopLeft
	EdgeTopRight
	EdgeBottomRight
	EdgeBottomLeft

	EdgeNone uint8 = 0
	EdgeAll  uint8 = 0xFF
)

// IsolatedMask is used when a cell has no neighbor of the rule's
// neighbor terrain. It shares its output slot with the fully surrounded
// interior tile.
const IsolatedMask = EdgeAll

// NeighborOffsets lists (dx, dy) per bit position of the masks above.
var NeighborOffsets = [8][2]int{
	{0, -1},  // top
	{1, 0},   // right
	{0, 1},   // bottom
	{-1, 0},  // left
	{-1, -1}, // top left
	{1, -1},  // top right
	{1, 1},   // bottom right
	{-1, 1},  // bottom left
}

// Neighborhood holds the terrain ids around a cell in NeighborOffsets order.
type Neighborhood [8]uint32

// Mask4 sets a bit for every orthogonal neighbor equal to neighbor.
func Mask4(n Neighborhood, neighbor uint32) uint8 {
	var m uint8
	for i := 0; i < 4; i++ {
		if n[i] == neighbor {
			m |= 1 << i
		}
	}
	return m
}

// Mask8 returns IsolatedMask when no neighbor equals neighbor; otherwise a
// bit per neighbor equal to source with unsupported diagonals cleared.
func Mask8(n Neighborhood, neighbor, source uint32) uint8 {
	found := false
	for _, id := range n {
		if id == neighbor {
			found = true
			break
		}
	}
	if !found {
		return IsolatedMask
	}
	var m uint8
	for i, id := range n {
		if id == source {
			m |= 1 << i
		}
	}
	return MaskDiagonals(m)
}

// MaskDiagonals clears every diagonal bit whose two flanking orthogonal
// bits are not both set.
func MaskDiagonals(m uint8) uint8 {
	if m&(EdgeTop|EdgeLeft) != EdgeTop|EdgeLeft {
		m &^= EdgeTopLeft
	}
	if m&(EdgeTop|EdgeRight) != EdgeTop|EdgeRight {
		m &^= EdgeTopRight
	}
	if m&(EdgeBottom|EdgeRight) != EdgeBottom|EdgeRight {
		m &^= EdgeBottomRight
	}
	if m&(EdgeBottom|EdgeLeft) != EdgeBottom|EdgeLeft {
		m &^= EdgeBottomLeft
	}
	return m
}

// CanonicalCount is the number of masks that survive MaskDiagonals.
const CanonicalCount = 47

const (
	eT  = EdgeTop
	eR  = EdgeRight
	eB  = EdgeBottom
	eL  = EdgeLeft
	eTL = EdgeTopLeft
	eTR = EdgeTopRight
	eBR = EdgeBottomRight
	eBL = EdgeBottomLeft
)

// canonicalMasks is indexed by AutoTile8 output slot.
var canonicalMasks = [CanonicalCount]uint8{
	eR | eBR | eB,
	eL | eBL | eB | eBR | eR,
	eL | eBL | eB,
	eT | eTR | eR | eBR | eB,
	EdgeAll,
	eT | eTL | eL | eBL | eB,
	eT | eTR | eR,
	eL | eTL | eT | eTR | eR,
	eL | eTL | eT,
	eR,
	eL | eR,
	eL,
	eB,
	eT | eB,
	eT,
	EdgeNone,
	eB | eR,
	eL | eBL | eB | eR,
	eL | eB | eBR | eR,
	eL | eB,
	eB | eR | eTR | eT,
	eL | eBL | eB | eR | eTR | eT | eTL,
	eL | eB | eBR | eR | eTR | eT | eTL,
	eT | eTL | eL | eB,
	eT | eR | eBR | eB,
	eT | eR | eBR | eB | eBL | eL | eTL,
	eT | eTR | eR | eBR | eB | eBL | eL,
	eT | eB | eBL | eL,
	eT | eR,
	eT | eR | eL | eTL,
	eT | eTR | eR | eL,
	eT | eL,
	eT | eR | eB,
	eT | eR | eB | eBL | eL | eTL,
	eT | eTR | eR | eBR | eB | eL,
	eT | eL | eB,
	eL | eB | eR,
	eL | eTL | eT | eTR | eR | eB,
	eT | eR | eBR | eB | eBL | eL,
	eL | eT | eR,
	eT | eR | eB | eL,
	eL | eTL | eT | eR | eBR | eB,
	eT | eTR | eR | eB | eBL | eL,
	eT | eR | eBR | eB | eL,
	eT | eTR | eR | eB | eL,
	eT | eR | eB | eBL | eL,
	eT | eR | eB | eL | eTL,
}

var canonicalIndex = func() map[uint8]int {
	m := make(map[uint8]int, CanonicalCount)
	for i, mask := range canonicalMasks {
		m[mask] = i
	}
	return m
}()

// CanonicalIndex returns the output slot for a mask. Only the 47 masks that
// MaskDiagonals can produce are present.
func CanonicalIndex(mask uint8) (int, bool) {
	i, ok := canonicalIndex[mask]
	return i, ok
}

// CanonicalMask returns the mask stored at an output slot.
func CanonicalMask(index int) uint8 {
	return canonicalMasks[index]
}

// authoringIndex maps the bitmask codes used in rule definition files for
// 8-sided tiles to output slots.
var authoringIndex = map[int]int{
	25: 0, 1: 1, 35: 2, 8: 3, 0: 4, 2: 5, 140: 6, 4: 7, 70: 8, 157: 9,
	5: 10, 103: 11, 59: 12, 10: 13, 206: 14, 255: 15, 249: 16, 113: 17, 177: 18, 243: 19,
	216: 20, 64: 21, 128: 22, 162: 23, 184: 24, 32: 25, 16: 26, 114: 27, 252: 28, 228: 29,
	212: 30, 246: 31, 248: 32, 96: 33, 144: 34, 242: 35, 241: 36, 192: 37, 48: 38, 244: 39,
	240: 40, 160: 41, 80: 42, 176: 43, 208: 44, 112: 45, 224: 46,
}

// AuthoringIndex converts a definition file bitmask code to an output slot.
func AuthoringIndex(code int) (int, bool) {
	i, ok := authoringIndex[code]
	return i, ok
}
