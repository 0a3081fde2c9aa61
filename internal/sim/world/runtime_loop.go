package world

import (
	"context"
	"time"

	"skyticket.ai/internal/protocol"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.tun.Sim.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(w.done)

	w.log.Info().
		Str("run_id", w.runID).
		Int64("seed", w.cfg.Seed).
		Int("tick_rate_hz", w.tun.Sim.TickRateHz).
		Msg("world loop started")

	var pending []protocol.InputEvent
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.attach:
			w.handleAttach(req)
		case id := <-w.detach:
			w.handleDetach(id)
		case ch := <-w.stateReq:
			w.handleStateReq(ch)
		case env := <-w.inbox:
			if w.client == nil || env.SessionID != w.client.sessionID {
				continue
			}
			pending = append(pending, env.Events...)
		case <-ticker.C:
			w.step(pending)
			// The slice is retained by the tick log entry.
			pending = nil
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// Done is closed once Run has returned; senders on the world channels
// should select on it.
func (w *World) Done() <-chan struct{} { return w.done }

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce(events []protocol.InputEvent) (tick uint64, digest string) {
	e := w.step(events)
	return e.Tick, e.Digest
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
