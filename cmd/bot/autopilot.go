package main

import (
	"math"

	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/mathx"
)

type phase int

const (
	phaseApproach phase = iota
	phaseFly
	phaseGlide
	phaseExit
)

// retryTicks is how long to wait for a mode change after pressing interact.
const retryTicks = 20

// autopilot walks to the airplane using the frame guide, boards, flies with
// full throttle for flyTicks, glides until stopped and climbs out.
type autopilot struct {
	radius      float64
	sensitivity float64
	flyTicks    uint64

	phase     phase
	holdingW  bool
	pressedAt uint64
	pressed   bool
	boardTick uint64
	done      bool
}

func (a *autopilot) keyW(down bool) []protocol.InputEvent {
	if a.holdingW == down {
		return nil
	}
	a.holdingW = down
	kind := protocol.InputKeyUp
	if down {
		kind = protocol.InputKeyDown
	}
	return []protocol.InputEvent{{Kind: kind, Key: "KeyW"}}
}

func (a *autopilot) interact(tick uint64) []protocol.InputEvent {
	if a.pressed && tick < a.pressedAt+retryTicks {
		return nil
	}
	a.pressed = true
	a.pressedAt = tick
	return []protocol.InputEvent{{Kind: protocol.InputPress, Key: "KeyF"}}
}

func (a *autopilot) next(f protocol.FrameMsg) []protocol.InputEvent {
	if a.done {
		return nil
	}
	switch a.phase {
	case phaseApproach:
		if f.Mode == "IN_VEHICLE" {
			a.phase = phaseFly
			a.pressed = false
			a.boardTick = f.Tick
			return a.keyW(true)
		}
		return a.approach(f)

	case phaseFly:
		if f.Tick >= a.boardTick+a.flyTicks {
			a.phase = phaseGlide
			return a.keyW(false)
		}
		return a.keyW(true)

	case phaseGlide:
		if !f.Vehicle.Flying && f.Vehicle.Speed == 0 {
			a.phase = phaseExit
			return a.interact(f.Tick)
		}

	case phaseExit:
		if f.Mode == "ON_FOOT" {
			a.done = true
			return nil
		}
		return a.interact(f.Tick)
	}
	return nil
}

func (a *autopilot) approach(f protocol.FrameMsg) []protocol.InputEvent {
	g := f.Guide
	if g == nil {
		return nil
	}
	radius := a.radius
	if radius <= 0 {
		radius = 8
	}
	if g.Distance < radius*0.6 {
		out := a.keyW(false)
		return append(out, a.interact(f.Tick)...)
	}

	var out []protocol.InputEvent
	delta := mathx.WrapAngle(g.Bearing - f.Camera.Yaw)
	if math.Abs(delta) > 0.01 && a.sensitivity > 0 {
		// The server turns by -dx*sensitivity.
		out = append(out, protocol.InputEvent{Kind: protocol.InputLook, DX: -delta / a.sensitivity})
	}
	return append(out, a.keyW(math.Abs(delta) < 0.5)...)
}
