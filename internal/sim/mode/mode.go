// Package mode owns the on-foot/in-vehicle state machine. Exactly one body
// drives the camera at a time; the airplane persists while parked.
package mode

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"skyticket.ai/internal/sim/body/aircraft"
	"skyticket.ai/internal/sim/body/walker"
	"skyticket.ai/internal/sim/input"
	"skyticket.ai/internal/sim/terrain/height"
)

type Kind uint8

const (
	OnFootKind Kind = iota
	InVehicleKind
)

func (k Kind) String() string {
	switch k {
	case OnFootKind:
		return "ON_FOOT"
	case InVehicleKind:
		return "IN_VEHICLE"
	default:
		return "UNKNOWN"
	}
}

// Active is the variant holding the body that currently drives the camera.
type Active interface {
	Kind() Kind
}

type OnFoot struct {
	Walker *walker.Body
}

func (*OnFoot) Kind() Kind { return OnFootKind }

type InVehicle struct {
	Plane *aircraft.Body
}

func (*InVehicle) Kind() Kind { return InVehicleKind }

type Outcome uint8

const (
	Entered Outcome = iota + 1
	Exited
	TooFar
)

func (o Outcome) String() string {
	switch o {
	case Entered:
		return "ENTERED"
	case Exited:
		return "EXITED"
	case TooFar:
		return "TOO_FAR"
	default:
		return ""
	}
}

// Decide is the pure transition for one interact press: within radius the
// mode toggles, otherwise it stays and the outcome is TooFar.
func Decide(k Kind, distance, radius float64) (Kind, Outcome) {
	if math.IsNaN(distance) || !(distance < radius) {
		return k, TooFar
	}
	if k == InVehicleKind {
		return OnFootKind, Exited
	}
	return InVehicleKind, Entered
}

const (
	NoticeEnteredVehicle = "ENTERED_VEHICLE"
	NoticeTicketFound    = "TICKET_FOUND"
	NoticeExitedVehicle  = "EXITED_VEHICLE"
	NoticeTooFar         = "TOO_FAR"
)

type Notice struct {
	Kind string
	Text string
}

type Transition struct {
	From     Kind
	To       Kind
	Outcome  Outcome
	Distance float64
	Notice   Notice
}

type Config struct {
	Radius     float64
	Cockpit    float64
	ExitOffset mgl64.Vec3
	Walker     walker.Params
}

type Controller struct {
	cfg    Config
	ground height.Ground

	active Active
	plane  *aircraft.Body

	ticketVisible bool
	ticketFound   bool
}

func NewController(cfg Config, w *walker.Body, plane *aircraft.Body, ground height.Ground) *Controller {
	return &Controller{
		cfg:    cfg,
		ground: ground,
		active: &OnFoot{Walker: w},
		plane:  plane,
	}
}

func (c *Controller) Active() Active        { return c.active }
func (c *Controller) Kind() Kind            { return c.active.Kind() }
func (c *Controller) Plane() *aircraft.Body { return c.plane }
func (c *Controller) TicketVisible() bool   { return c.ticketVisible }

// Walker returns the on-foot body, or nil while piloting.
func (c *Controller) Walker() *walker.Body {
	if f, ok := c.active.(*OnFoot); ok {
		return f.Walker
	}
	return nil
}

// Camera is the authoritative eye position of whichever body is active.
func (c *Controller) Camera() mgl64.Vec3 {
	switch a := c.active.(type) {
	case *InVehicle:
		return a.Plane.Camera(c.cfg.Cockpit)
	case *OnFoot:
		return a.Walker.Pos
	}
	return mgl64.Vec3{}
}

// Interact handles one interact press from the current camera position.
// On exit the look yaw is aligned with the airplane heading.
func (c *Controller) Interact(look *input.Look) Transition {
	from := c.active.Kind()
	dist := c.Camera().Sub(c.plane.Pos).Len()
	to, outcome := Decide(from, dist, c.cfg.Radius)
	tr := Transition{From: from, To: to, Outcome: outcome, Distance: dist}

	switch outcome {
	case Entered:
		c.active = &InVehicle{Plane: c.plane}
		c.ticketVisible = true
		if !c.ticketFound {
			c.ticketFound = true
			tr.Notice = Notice{Kind: NoticeTicketFound, Text: "You boarded the airplane and found the golden ticket!"}
		} else {
			tr.Notice = Notice{Kind: NoticeEnteredVehicle, Text: "You boarded the airplane"}
		}
	case Exited:
		exit := c.plane.Pos.Add(c.cfg.ExitOffset)
		w := walker.New(c.cfg.Walker, exit)
		w.Settle(exit.X(), exit.Z(), c.ground)
		c.active = &OnFoot{Walker: w}
		if look != nil {
			look.Yaw = c.plane.Orient.Yaw
		}
		tr.Notice = Notice{Kind: NoticeExitedVehicle, Text: "You left the airplane"}
	default:
		tr.Notice = Notice{Kind: NoticeTooFar, Text: "Get closer to the airplane to interact (press F)"}
	}
	return tr
}

// Step advances the active body only; the inactive one is suspended.
func (c *Controller) Step(flags input.Flags, jump bool, look input.Look, delta float64) {
	switch a := c.active.(type) {
	case *OnFoot:
		a.Walker.Step(flags, jump, look.Yaw, delta, c.ground)
	case *InVehicle:
		a.Plane.Step(flags, delta, c.ground)
	}
}
