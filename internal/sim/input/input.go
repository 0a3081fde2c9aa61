package input

import (
	"math"
	"strings"

	"skyticket.ai/internal/sim/mathx"
)

type Key string

const (
	KeyForward  Key = "FORWARD"
	KeyBack     Key = "BACK"
	KeyLeft     Key = "LEFT"
	KeyRight    Key = "RIGHT"
	KeyJump     Key = "JUMP"
	KeyInteract Key = "INTERACT"
)

// domCodes are the browser key codes the client binds.
var domCodes = map[string]Key{
	"KeyW":       KeyForward,
	"ArrowUp":    KeyForward,
	"KeyS":       KeyBack,
	"ArrowDown":  KeyBack,
	"KeyA":       KeyLeft,
	"ArrowLeft":  KeyLeft,
	"KeyD":       KeyRight,
	"ArrowRight": KeyRight,
	"Space":      KeyJump,
	"KeyF":       KeyInteract,
}

// ParseKey accepts either an action name or a DOM key code.
func ParseKey(s string) (Key, bool) {
	s = strings.TrimSpace(s)
	if k, ok := domCodes[s]; ok {
		return k, true
	}
	switch k := Key(strings.ToUpper(s)); k {
	case KeyForward, KeyBack, KeyLeft, KeyRight, KeyJump, KeyInteract:
		return k, true
	}
	return "", false
}

// Flags are the held movement keys.
type Flags struct {
	Forward bool `json:"forward,omitempty"`
	Back    bool `json:"back,omitempty"`
	Left    bool `json:"left,omitempty"`
	Right   bool `json:"right,omitempty"`
}

// Set updates a held key. Press-only keys (jump, interact) are ignored.
func (f *Flags) Set(k Key, down bool) {
	switch k {
	case KeyForward:
		f.Forward = down
	case KeyBack:
		f.Back = down
	case KeyLeft:
		f.Left = down
	case KeyRight:
		f.Right = down
	}
}

// Axes returns the cancelled intent: x = right-left, z = back-forward.
func (f Flags) Axes() (x, z float64) {
	if f.Right {
		x++
	}
	if f.Left {
		x--
	}
	if f.Back {
		z++
	}
	if f.Forward {
		z--
	}
	return x, z
}

// Look is the pointer-driven camera orientation for the on-foot avatar.
type Look struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// Apply turns by a pointer delta; pitch is clamped to ±limit.
func (l *Look) Apply(dx, dy, sensitivity, limit float64) {
	if math.IsNaN(dx) || math.IsInf(dx, 0) || math.IsNaN(dy) || math.IsInf(dy, 0) {
		return
	}
	l.Yaw -= dx * sensitivity
	l.Pitch = mathx.Clamp(l.Pitch-dy*sensitivity, -limit, limit)
}
