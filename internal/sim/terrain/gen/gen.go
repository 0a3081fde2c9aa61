package gen

import (
	"math"

	"skyticket.ai/internal/sim/mathx"
)

type Material uint8

const (
	Air Material = iota
	Water
	Sand
	Dirt
	Grass
	Stone
)

func (m Material) String() string {
	switch m {
	case Air:
		return "AIR"
	case Water:
		return "WATER"
	case Sand:
		return "SAND"
	case Dirt:
		return "DIRT"
	case Grass:
		return "GRASS"
	case Stone:
		return "STONE"
	default:
		return "UNKNOWN"
	}
}

// Salt values keep decoration hashes independent of other per-column rolls.
const (
	saltTree       = 501
	saltTreeHeight = 502
)

func ClampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

// Layers describes the voxel column rules.
type Layers struct {
	WaterLine int
	DirtDepth int
}

// Surface is the index of the topmost solid layer for an elevation.
func Surface(h float64) int {
	if math.IsNaN(h) {
		return 0
	}
	return int(math.Floor(h))
}

func (l Layers) beach(surface int) bool {
	return surface <= l.WaterLine+1
}

// MaterialAt returns the material of layer y in a column whose top solid
// layer is surface.
func (l Layers) MaterialAt(y, surface int) Material {
	switch {
	case y > surface:
		if y <= l.WaterLine {
			return Water
		}
		return Air
	case y == surface:
		if l.beach(surface) {
			return Sand
		}
		return Grass
	case y > surface-l.DirtDepth:
		if l.beach(surface) {
			return Sand
		}
		return Dirt
	default:
		return Stone
	}
}

// Top is the material visible from above.
func (l Layers) Top(surface int) Material {
	if surface < l.WaterLine {
		return Water
	}
	return l.MaterialAt(surface, surface)
}

// TreeAt reports whether a tree grows on the column at (wx, wz).
func TreeAt(seed int64, wx, wz int, permille int) bool {
	p := ClampPermille(permille)
	if p == 0 {
		return false
	}
	return mathx.Hash2(seed+saltTree, wx, wz)%1000 < uint64(p)
}

// TreeHeight is the trunk height (4..6) for a tree at (wx, wz).
func TreeHeight(seed int64, wx, wz int) int {
	return 4 + int(mathx.Hash2(seed+saltTreeHeight, wx, wz)%3)
}
