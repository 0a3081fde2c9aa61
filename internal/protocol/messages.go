package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	Tick            uint64      `json:"tick"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	TickRateHz      int     `json:"tick_rate_hz"`
	StepSeconds     float64 `json:"step_seconds"`
	Seed            int64   `json:"seed"`
	TerrainMode     string  `json:"terrain_mode"`
	ChunkSize       int     `json:"chunk_size"`
	RenderDistance  int     `json:"render_distance"`
	EyeHeight       float64 `json:"eye_height"`
	CockpitHeight   float64 `json:"cockpit_height"`
	InteractRadius  float64 `json:"interact_radius"`
	LookSensitivity float64 `json:"look_sensitivity"`
	NoticeTTLMs     int     `json:"notice_ttl_ms"`
	TuningDigest    string  `json:"tuning_digest"`
}

// Input event kinds.
const (
	InputKeyDown = "KEY_DOWN"
	InputKeyUp   = "KEY_UP"
	InputLook    = "LOOK"
	InputPress   = "PRESS"
)

// INPUT (client -> server)
type InputMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Events          []InputEvent `json:"events"`
}

type InputEvent struct {
	Kind string  `json:"kind"`
	Key  string  `json:"key,omitempty"`
	DX   float64 `json:"dx,omitempty"`
	DY   float64 `json:"dy,omitempty"`
}

// CHUNK (server -> client): one generated terrain tile.
type ChunkMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	CX              int       `json:"cx"`
	CZ              int       `json:"cz"`
	Size            int       `json:"size"`
	Heights         []float64 `json:"heights"` // (size+1)^2 vertex samples, row-major by z
	Top             []string  `json:"top"`     // size^2 column materials
	Trees           []TreeRef `json:"trees,omitempty"`
	Digest          string    `json:"digest"`
}

type TreeRef struct {
	LX     int     `json:"lx"`
	LZ     int     `json:"lz"`
	Base   float64 `json:"base"`
	Height int     `json:"height"`
}

// CHUNK_UNLOAD (server -> client)
type ChunkUnloadMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CX              int    `json:"cx"`
	CZ              int    `json:"cz"`
}

// FRAME (server -> client): the authoritative camera and scene state after a tick.
type FrameMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	Tick            uint64       `json:"tick"`
	Mode            string       `json:"mode"`
	Camera          Transform    `json:"camera"`
	CanJump         bool         `json:"can_jump"`
	Vehicle         VehicleState `json:"vehicle"`
	TicketVisible   bool         `json:"ticket_visible"`
	Guide           *Guide       `json:"guide,omitempty"`
}

type Transform struct {
	Pos   [3]float64 `json:"pos"`
	Pitch float64    `json:"pitch"`
	Yaw   float64    `json:"yaw"`
	Roll  float64    `json:"roll"`
}

type VehicleState struct {
	Transform
	Speed     float64 `json:"speed"`
	Flying    bool    `json:"flying"`
	Propeller float64 `json:"propeller"`
}

// Guide points from the camera toward the airplane while on foot.
type Guide struct {
	Bearing  float64 `json:"bearing"`
	Distance float64 `json:"distance"`
}

// NOTICE (server -> client): short-lived user-facing text. The client owns
// the display lifetime. Notices travel on the ordered stream, never with frames.
type NoticeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Kind            string `json:"kind"`
	Text            string `json:"text"`
	TTLMs           int    `json:"ttl_ms"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
