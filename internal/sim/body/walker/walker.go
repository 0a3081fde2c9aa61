// Package walker is the on-foot kinematic body: gravity, input-driven
// horizontal motion, heightfield ground contact and jumping.
package walker

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"skyticket.ai/internal/sim/input"
	"skyticket.ai/internal/sim/terrain/height"
	"skyticket.ai/internal/sim/tuning"
)

type Params struct {
	Gravity     float64
	MoveSpeed   float64
	JumpImpulse float64
	EyeHeight   float64
}

func ParamsFromTuning(t tuning.Walker) Params {
	return Params{
		Gravity:     t.Gravity,
		MoveSpeed:   t.MoveSpeed,
		JumpImpulse: t.JumpImpulse,
		EyeHeight:   t.EyeHeight,
	}
}

// Body is the camera-carrying avatar. Pos is the eye position.
type Body struct {
	Pos     mgl64.Vec3
	VelY    float64
	CanJump bool

	p Params
}

func New(p Params, pos mgl64.Vec3) *Body {
	return &Body{Pos: pos, p: p}
}

// Settle places the body standing on the ground at (x, z).
func (b *Body) Settle(x, z float64, ground height.Ground) {
	b.Pos = mgl64.Vec3{x, ground(x, z) + b.p.EyeHeight, z}
	b.VelY = 0
	b.CanJump = true
}

// Step advances one tick. yaw is the camera look yaw, so forward always
// means camera-forward. jump is a press event consumed by this tick.
func (b *Body) Step(in input.Flags, jump bool, yaw, delta float64, ground height.Ground) {
	b.VelY -= b.p.Gravity * delta

	x, z := in.Axes()
	if x != 0 && z != 0 {
		x *= math.Sqrt2 / 2
		z *= math.Sqrt2 / 2
	}
	sin, cos := math.Sincos(yaw)
	vx := (x*cos + z*sin) * b.p.MoveSpeed
	vz := (z*cos - x*sin) * b.p.MoveSpeed

	b.Pos = b.Pos.Add(mgl64.Vec3{vx * delta, b.VelY * delta, vz * delta})

	floor := ground(b.Pos.X(), b.Pos.Z()) + b.p.EyeHeight
	if b.Pos.Y() <= floor {
		b.Pos[1] = floor
		b.VelY = 0
		b.CanJump = true
	} else {
		b.CanJump = false
	}

	if jump && b.CanJump {
		b.VelY = b.p.JumpImpulse
		b.CanJump = false
	}
}
