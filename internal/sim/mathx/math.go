package mathx

import "math"

// ChunkCoord maps a world coordinate to floor(v/size) saturated to the int32
// range. NaN maps to 0.
func ChunkCoord(v float64, size int) int {
	if size <= 0 {
		size = 1
	}
	if math.IsNaN(v) {
		return 0
	}
	c := math.Floor(v / float64(size))
	if c >= math.MaxInt32 {
		return math.MaxInt32
	}
	if c <= math.MinInt32 {
		return math.MinInt32
	}
	return int(c)
}

// AddSat adds two chunk coordinates, saturating to the int32 range.
func AddSat(a, b int) int {
	s := int64(a) + int64(b)
	if s > math.MaxInt32 {
		return math.MaxInt32
	}
	if s < math.MinInt32 {
		return math.MinInt32
	}
	return int(s)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WrapAngle maps a to (-pi, pi].
func WrapAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

