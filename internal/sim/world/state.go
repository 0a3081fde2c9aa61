package world

import (
	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/input"
	"skyticket.ai/internal/sim/terrain/store"
)

// StateView is a read-only copy of the world for the admin endpoint.
type StateView struct {
	Tick          uint64                `json:"tick"`
	RunID         string                `json:"run_id"`
	Seed          int64                 `json:"seed"`
	Mode          string                `json:"mode"`
	Camera        [3]float64            `json:"camera"`
	Look          input.Look            `json:"look"`
	Flags         input.Flags           `json:"flags"`
	CanJump       bool                  `json:"can_jump"`
	Vehicle       protocol.VehicleState `json:"vehicle"`
	TicketVisible bool                  `json:"ticket_visible"`
	Chunks        store.Stats           `json:"chunks"`
	LoadedChunks  [][2]int              `json:"loaded_chunks"`
	SessionID     string                `json:"session_id,omitempty"`
	ClientName    string                `json:"client_name,omitempty"`
	StateDigest   string                `json:"state_digest"`
}

func (w *World) stateView() StateView {
	tick := w.tick.Load()
	f := w.buildFrame(tick)
	v := StateView{
		Tick:          tick,
		RunID:         w.runID,
		Seed:          w.cfg.Seed,
		Mode:          f.Mode,
		Camera:        f.Camera.Pos,
		Look:          w.look,
		Flags:         w.flags,
		CanJump:       f.CanJump,
		Vehicle:       f.Vehicle,
		TicketVisible: f.TicketVisible,
		Chunks:        w.chunks.Stats(),
		StateDigest:   w.stateDigest(tick),
	}
	for _, k := range w.chunks.LoadedChunkKeys() {
		v.LoadedChunks = append(v.LoadedChunks, [2]int{k.CX, k.CZ})
	}
	if w.client != nil {
		v.SessionID = w.client.sessionID
		v.ClientName = w.client.name
	}
	return v
}

func (w *World) handleStateReq(ch chan StateView) {
	select {
	case ch <- w.stateView():
	default:
	}
}
