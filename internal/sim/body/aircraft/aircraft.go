// Package aircraft implements the arcade airplane: throttle, yaw, pitch with
// auto-levelling, speed-proportional lift and a terrain clearance floor.
package aircraft

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"skyticket.ai/internal/sim/input"
	"skyticket.ai/internal/sim/mathx"
	"skyticket.ai/internal/sim/terrain/height"
	"skyticket.ai/internal/sim/tuning"
)

type Params struct {
	MaxSpeed        float64
	Acceleration    float64
	Deceleration    float64
	RotationSpeed   float64
	LiftFactor      float64
	Gravity         float64
	PitchBias       float64
	PitchLimit      float64
	LevelDamping    float64
	PropellerSpin   float64
	GroundClearance float64
}

func ParamsFromTuning(t tuning.Vehicle) Params {
	return Params{
		MaxSpeed:        t.MaxSpeed,
		Acceleration:    t.Acceleration,
		Deceleration:    t.Deceleration,
		RotationSpeed:   t.RotationSpeed,
		LiftFactor:      t.LiftFactor,
		Gravity:         t.Gravity,
		PitchBias:       t.PitchBias,
		PitchLimit:      t.PitchLimit,
		LevelDamping:    t.LevelDamping,
		PropellerSpin:   t.PropellerSpin,
		GroundClearance: t.GroundClearance,
	}
}

// Orientation is an XYZ-ordered Euler rotation in radians.
type Orientation struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

func (o Orientation) Quat() mgl64.Quat {
	return mgl64.AnglesToQuat(o.Pitch, o.Yaw, o.Roll, mgl64.XYZ)
}

// Forward is the unit nose direction. At rest orientation the nose points -Z.
func (o Orientation) Forward() mgl64.Vec3 {
	return o.Quat().Rotate(mgl64.Vec3{0, 0, -1}).Normalize()
}

type Body struct {
	Pos       mgl64.Vec3
	Orient    Orientation
	Speed     float64
	Flying    bool
	Propeller float64

	p Params
}

func New(p Params, pos mgl64.Vec3) *Body {
	return &Body{Pos: pos, p: p}
}

// Parked returns an airplane resting on the ground at (x, z).
func Parked(p Params, x, z float64, ground height.Ground) *Body {
	return New(p, mgl64.Vec3{x, ground(x, z) + p.GroundClearance, z})
}

// Step advances one piloted tick. Speed changes scale with delta while
// displacement, lift and sink are per tick.
func (b *Body) Step(in input.Flags, delta float64, ground height.Ground) {
	if b.Flying {
		b.Propeller = math.Mod(b.Propeller+b.p.PropellerSpin, 2*math.Pi)
	}

	pitching := 0.0
	switch {
	case in.Forward:
		b.Speed = math.Min(b.p.MaxSpeed, b.Speed+b.p.Acceleration*delta)
		b.Flying = true
		pitching = -b.p.PitchBias
	case in.Back:
		pitching = b.p.PitchBias
	case b.Speed > 0:
		b.Speed = math.Max(0, b.Speed-b.p.Deceleration*delta)
		if b.Speed == 0 {
			b.Flying = false
		}
	}

	turn, _ := in.Axes()
	b.Orient.Yaw -= turn * b.p.RotationSpeed

	b.Orient.Pitch = mathx.Clamp(b.Orient.Pitch+pitching, -b.p.PitchLimit, b.p.PitchLimit)
	if !in.Forward && !in.Back {
		b.Orient.Pitch *= b.p.LevelDamping
	}

	b.Pos = b.Pos.Add(b.Orient.Forward().Mul(b.Speed))

	if b.Flying {
		b.Pos[1] += b.Speed * b.p.LiftFactor
	} else {
		b.Pos[1] -= b.p.Gravity
	}
	if floor := ground(b.Pos.X(), b.Pos.Z()) + b.p.GroundClearance; b.Pos.Y() < floor {
		b.Pos[1] = floor
	}
}

// Camera is the cockpit eye: the airplane position raised by cockpit.
func (b *Body) Camera(cockpit float64) mgl64.Vec3 {
	return b.Pos.Add(mgl64.Vec3{0, cockpit, 0})
}
