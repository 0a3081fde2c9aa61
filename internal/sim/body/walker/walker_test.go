package walker

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"skyticket.ai/internal/sim/input"
	"skyticket.ai/internal/sim/terrain/height"
	"skyticket.ai/internal/sim/tuning"
)

func flat(y float64) height.Ground {
	return func(x, z float64) float64 { return y }
}

func slope(x, z float64) float64 { return 0.3*x - 0.1*z }

func defaultParams() Params { return ParamsFromTuning(tuning.Defaults().Walker) }

func TestFallsUntilGroundContact(t *testing.T) {
	field := height.New(height.ParamsFromTuning(tuning.Defaults().Terrain, 1337))
	ground := height.Ground(field.Height)
	b := New(defaultParams(), mgl64.Vec3{3, 40, -2})

	landed := false
	for i := 0; i < 200; i++ {
		b.Step(input.Flags{}, false, 0, 0.1, ground)
		want := ground(b.Pos.X(), b.Pos.Z()) + b.p.EyeHeight
		if b.Pos.Y() < want {
			t.Fatalf("tick %d: penetrated ground y=%v floor=%v", i, b.Pos.Y(), want)
		}
		if b.CanJump {
			if b.Pos.Y() != want {
				t.Fatalf("tick %d: grounded at %v want exactly %v", i, b.Pos.Y(), want)
			}
			landed = true
			break
		}
	}
	if !landed {
		t.Fatalf("never landed")
	}
	// Standing still keeps exact contact.
	for i := 0; i < 10; i++ {
		b.Step(input.Flags{}, false, 0, 0.1, ground)
		if !b.CanJump || b.Pos.Y() != ground(b.Pos.X(), b.Pos.Z())+b.p.EyeHeight {
			t.Fatalf("lost contact while idle: %+v", b)
		}
	}
}

func TestDiagonalNotFaster(t *testing.T) {
	p := defaultParams()
	straight := New(p, mgl64.Vec3{0, 1.8, 0})
	straight.CanJump = true
	straight.Step(input.Flags{Forward: true}, false, 0.7, 0.1, flat(0))

	diag := New(p, mgl64.Vec3{0, 1.8, 0})
	diag.Step(input.Flags{Forward: true, Right: true}, false, 0.7, 0.1, flat(0))

	ds := math.Hypot(straight.Pos.X(), straight.Pos.Z())
	dd := math.Hypot(diag.Pos.X(), diag.Pos.Z())
	want := p.MoveSpeed * 0.1
	if math.Abs(ds-want) > 1e-9 || math.Abs(dd-want) > 1e-9 {
		t.Fatalf("straight=%v diag=%v want %v", ds, dd, want)
	}
}

func TestForwardFollowsYaw(t *testing.T) {
	b := New(defaultParams(), mgl64.Vec3{0, 1.8, 0})
	b.Step(input.Flags{Forward: true}, false, 0, 0.1, flat(0))
	if math.Abs(b.Pos.Z()+1) > 1e-9 || math.Abs(b.Pos.X()) > 1e-9 {
		t.Fatalf("yaw 0 forward should move -z, got %v", b.Pos)
	}

	b = New(defaultParams(), mgl64.Vec3{0, 1.8, 0})
	b.Step(input.Flags{Forward: true}, false, math.Pi/2, 0.1, flat(0))
	if math.Abs(b.Pos.X()+1) > 1e-9 || math.Abs(b.Pos.Z()) > 1e-9 {
		t.Fatalf("yaw pi/2 forward should move -x, got %v", b.Pos)
	}
}

func TestOpposingInputCancels(t *testing.T) {
	b := New(defaultParams(), mgl64.Vec3{5, 1.8, 5})
	b.Step(input.Flags{Forward: true, Back: true, Left: true, Right: true}, false, 1.2, 0.1, flat(0))
	if b.Pos.X() != 5 || b.Pos.Z() != 5 {
		t.Fatalf("opposing input moved the body: %v", b.Pos)
	}
}

func TestJumpOnlyWhenGrounded(t *testing.T) {
	p := defaultParams()
	b := New(p, mgl64.Vec3{0, 0, 0})
	b.Settle(0, 0, flat(0))

	b.Step(input.Flags{}, true, 0, 0.1, flat(0))
	if b.VelY != p.JumpImpulse || b.CanJump {
		t.Fatalf("jump not applied: vel=%v canJump=%v", b.VelY, b.CanJump)
	}
	b.Step(input.Flags{}, false, 0, 0.1, flat(0))
	if b.Pos.Y() <= p.EyeHeight {
		t.Fatalf("body did not rise: %v", b.Pos.Y())
	}
	vel := b.VelY
	b.Step(input.Flags{}, true, 0, 0.1, flat(0))
	if b.VelY >= vel || b.VelY == p.JumpImpulse {
		t.Fatalf("mid-air jump applied: vel=%v", b.VelY)
	}
}

func TestContactOnSlope(t *testing.T) {
	b := New(defaultParams(), mgl64.Vec3{0, 0, 0})
	b.Settle(0, 0, slope)
	for i := 0; i < 50; i++ {
		b.Step(input.Flags{Forward: true, Left: i%2 == 0}, false, 0.3, 0.1, slope)
		floor := slope(b.Pos.X(), b.Pos.Z()) + b.p.EyeHeight
		if b.Pos.Y() < floor {
			t.Fatalf("tick %d below floor", i)
		}
		if b.CanJump && b.Pos.Y() != floor {
			t.Fatalf("tick %d: grounded with gap %v", i, b.Pos.Y()-floor)
		}
	}
}
