package world

import (
	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/tuning"
)

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type EventLogger interface {
	WriteEvent(entry EventEntry) error
}

// Indexer receives sampled tick summaries and every event for the SQLite index.
type Indexer interface {
	WriteTick(entry TickLogEntry) error
	WriteEvent(entry EventEntry) error
}

// SessionHeader is carried by the first logged tick of a world so a replay
// can rebuild an identical world.
type SessionHeader struct {
	RunID        string        `json:"run_id"`
	Seed         int64         `json:"seed"`
	TuningDigest string        `json:"tuning_digest"`
	Tuning       tuning.Tuning `json:"tuning"`
	StartTick    uint64        `json:"start_tick"`
}

type TickLogEntry struct {
	Tick      uint64                `json:"tick"`
	Header    *SessionHeader        `json:"header,omitempty"`
	Inputs    []protocol.InputEvent `json:"inputs,omitempty"`
	Mode      string                `json:"mode"`
	Camera    [3]float64            `json:"camera"`
	Loaded    int                   `json:"loaded"`
	Generated int                   `json:"generated,omitempty"`
	Evicted   int                   `json:"evicted,omitempty"`
	Digest    string                `json:"digest"`
}

type EventEntry struct {
	Tick     uint64     `json:"tick"`
	Kind     string     `json:"kind"`
	Text     string     `json:"text,omitempty"`
	Mode     string     `json:"mode"`
	Distance float64    `json:"distance,omitempty"`
	Pos      [3]float64 `json:"pos"`
}
