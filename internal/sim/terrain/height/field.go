// Package height is the single terrain height function shared by chunk
// generation and collision queries.
package height

import (
	"math"

	"github.com/aquilax/go-perlin"

	"skyticket.ai/internal/sim/tuning"
)

type Params struct {
	Seed int64

	// Blocky selects floor(c*BlockyScale)+BlockyBase instead of c*Amplitude.
	Blocky      bool
	Scale1      float64
	Scale2      float64
	Amplitude   float64
	BlockyScale float64
	BlockyBase  float64

	Alpha   float64
	Beta    float64
	Octaves int
}

func ParamsFromTuning(t tuning.Terrain, seed int64) Params {
	return Params{
		Seed:        seed,
		Blocky:      t.Mode == tuning.TerrainBlocky,
		Scale1:      t.Scale1,
		Scale2:      t.Scale2,
		Amplitude:   t.Amplitude,
		BlockyScale: t.BlockyScale,
		BlockyBase:  t.BlockyBase,
		Alpha:       t.Alpha,
		Beta:        t.Beta,
		Octaves:     t.Octaves,
	}
}

// Field maps world (x, z) to elevation. It is immutable after New, so one
// value may be shared by any number of readers.
type Field struct {
	p     Params
	noise *perlin.Perlin
}

func New(p Params) *Field {
	if p.Octaves <= 0 {
		p.Octaves = 1
	}
	if p.Alpha == 0 {
		p.Alpha = 2
	}
	if p.Beta == 0 {
		p.Beta = 2
	}
	return &Field{
		p:     p,
		noise: perlin.NewPerlin(p.Alpha, p.Beta, int32(p.Octaves), p.Seed),
	}
}

// Combined blends a low and a high frequency sample: (low + 0.5*high) / 1.5.
func (f *Field) Combined(x, z float64) float64 {
	low := f.noise.Noise2D(x*f.p.Scale1, z*f.p.Scale1)
	high := f.noise.Noise2D(x*f.p.Scale2, z*f.p.Scale2)
	return (low + 0.5*high) / 1.5
}

func (f *Field) Height(x, z float64) float64 {
	c := f.Combined(x, z)
	if f.p.Blocky {
		return math.Floor(c*f.p.BlockyScale) + f.p.BlockyBase
	}
	return c * f.p.Amplitude
}

// Ground is the function shape the bodies use for collision.
type Ground func(x, z float64) float64
