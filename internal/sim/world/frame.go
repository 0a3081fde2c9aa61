package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/mode"
)

func vec(v mgl64.Vec3) [3]float64 { return [3]float64{v.X(), v.Y(), v.Z()} }

func (w *World) buildFrame(tick uint64) protocol.FrameMsg {
	plane := w.ctl.Plane()
	cam := w.ctl.Camera()
	f := protocol.FrameMsg{
		Type:            protocol.TypeFrame,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Mode:            w.ctl.Kind().String(),
		Camera: protocol.Transform{
			Pos:   vec(cam),
			Pitch: w.look.Pitch,
			Yaw:   w.look.Yaw,
		},
		Vehicle: protocol.VehicleState{
			Transform: protocol.Transform{
				Pos:   vec(plane.Pos),
				Pitch: plane.Orient.Pitch,
				Yaw:   plane.Orient.Yaw,
				Roll:  plane.Orient.Roll,
			},
			Speed:     plane.Speed,
			Flying:    plane.Flying,
			Propeller: plane.Propeller,
		},
		TicketVisible: w.ctl.TicketVisible(),
	}
	switch a := w.ctl.Active().(type) {
	case *mode.OnFoot:
		f.CanJump = a.Walker.CanJump
		f.Guide = guideTo(cam, plane.Pos)
	case *mode.InVehicle:
		// Heading and bank follow the airplane; look pitch still applies.
		f.Camera.Yaw = a.Plane.Orient.Yaw
		f.Camera.Roll = a.Plane.Orient.Roll
	}
	return f
}

// guideTo returns the yaw that faces target from the camera, in the camera's
// convention (yaw 0 looks down -Z, positive turns left).
func guideTo(from, target mgl64.Vec3) *protocol.Guide {
	d := target.Sub(from)
	return &protocol.Guide{
		Bearing:  math.Atan2(-d.X(), -d.Z()),
		Distance: d.Len(),
	}
}
