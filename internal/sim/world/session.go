package world

import (
	"encoding/json"

	"github.com/google/uuid"

	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/input"
	"skyticket.ai/internal/sim/mode"
)

// maxBacklog bounds ordered messages waiting for a slow client.
const maxBacklog = 4096

const welcomeText = "Welcome! Use WASD to move and F to interact with the airplane. Find the airplane with the golden ticket!"

type clientState struct {
	sessionID string
	name      string

	out     chan []byte
	frames  chan []byte
	backlog [][]byte
	kicked  chan struct{}
}

func (c *clientState) flush() {
	for len(c.backlog) > 0 {
		select {
		case c.out <- c.backlog[0]:
			c.backlog[0] = nil
			c.backlog = c.backlog[1:]
		default:
			return
		}
	}
	c.backlog = nil
}

func (w *World) handleAttach(req AttachRequest) {
	if w.client != nil {
		w.log.Warn().Str("client", req.ClientName).Msg("attach refused: pilot already attached")
		req.Resp <- AttachResponse{Code: protocol.ErrWorldBusy}
		return
	}
	if req.ClientName == "" {
		req.ClientName = "viewer"
	}
	c := &clientState{
		sessionID: uuid.NewString(),
		name:      req.ClientName,
		out:       req.Out,
		frames:    req.Frames,
		kicked:    make(chan struct{}),
	}
	w.client = c

	// Replay the current scene so the client starts from the loaded set.
	for _, k := range w.chunks.LoadedChunkKeys() {
		if ch, ok := w.chunks.Chunk(k); ok {
			w.enqueue(chunkMsg(ch))
		}
	}
	w.enqueue(protocol.NoticeMsg{
		Type:            protocol.TypeNotice,
		ProtocolVersion: protocol.Version,
		Tick:            w.tick.Load(),
		Kind:            "WELCOME",
		Text:            welcomeText,
		TTLMs:           w.tun.Notices.TTLMs,
	})
	c.flush()

	w.log.Info().
		Str("session_id", c.sessionID).
		Str("client", c.name).
		Int("chunks", len(w.chunks.Chunks)).
		Msg("client attached")

	req.Resp <- AttachResponse{
		Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			SessionID:       c.sessionID,
			Tick:            w.tick.Load(),
			WorldParams:     w.worldParams(),
		},
		Kicked: c.kicked,
	}
}

func (w *World) handleDetach(sessionID string) {
	if w.client == nil || w.client.sessionID != sessionID {
		return
	}
	w.log.Info().Str("session_id", sessionID).Msg("client detached")
	w.dropClient()
}

// dropClient forgets the client and releases any key it was holding. The
// release goes through the next tick's inputs so it is recorded.
func (w *World) dropClient() {
	w.client = nil
	held := []struct {
		on  bool
		key input.Key
	}{
		{w.flags.Forward, input.KeyForward},
		{w.flags.Back, input.KeyBack},
		{w.flags.Left, input.KeyLeft},
		{w.flags.Right, input.KeyRight},
	}
	for _, h := range held {
		if h.on {
			w.carry = append(w.carry, protocol.InputEvent{Kind: protocol.InputKeyUp, Key: string(h.key)})
		}
	}
}

func (w *World) enqueue(v any) {
	c := w.client
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Error().Err(err).Msg("encode message")
		return
	}
	c.backlog = append(c.backlog, b)
	if len(c.backlog) > maxBacklog {
		w.log.Warn().Str("session_id", c.sessionID).Int("backlog", len(c.backlog)).Msg("client too slow, dropping")
		close(c.kicked)
		w.dropClient()
	}
}

func (w *World) notify(tick uint64, tr mode.Transition) {
	n := tr.Notice
	w.enqueue(protocol.NoticeMsg{
		Type:            protocol.TypeNotice,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Kind:            n.Kind,
		Text:            n.Text,
		TTLMs:           w.tun.Notices.TTLMs,
	})
	cam := w.ctl.Camera()
	w.writeEvent(EventEntry{
		Tick:     tick,
		Kind:     n.Kind,
		Text:     n.Text,
		Mode:     tr.To.String(),
		Distance: tr.Distance,
		Pos:      [3]float64{cam.X(), cam.Y(), cam.Z()},
	})
}

func (w *World) writeEvent(e EventEntry) {
	if w.eventLogger != nil {
		if err := w.eventLogger.WriteEvent(e); err != nil {
			w.log.Warn().Err(err).Msg("event log write failed")
		}
	}
	if w.indexer != nil {
		_ = w.indexer.WriteEvent(e)
	}
}
