package world

import (
	"encoding/json"
	"time"

	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/input"
	"skyticket.ai/internal/sim/mode"
)

// step runs one tick: inputs (look, held keys, presses in arrival order),
// the active body, chunk streaming around the camera, then publish and log.
func (w *World) step(events []protocol.InputEvent) TickLogEntry {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	if len(w.carry) > 0 {
		events = append(w.carry, events...)
		w.carry = nil
	}

	jump := false
	for _, ev := range events {
		switch ev.Kind {
		case protocol.InputLook:
			w.look.Apply(ev.DX, ev.DY, w.tun.Look.Sensitivity, w.tun.Look.PitchLimit)
		case protocol.InputKeyDown, protocol.InputKeyUp, protocol.InputPress:
			k, ok := input.ParseKey(ev.Key)
			if !ok {
				continue
			}
			if ev.Kind != protocol.InputPress {
				w.flags.Set(k, ev.Kind == protocol.InputKeyDown)
			}
			if ev.Kind == protocol.InputKeyUp {
				continue
			}
			switch k {
			case input.KeyJump:
				jump = true
			case input.KeyInteract:
				w.interact(nowTick)
			}
		}
	}

	w.ctl.Step(w.flags, jump, w.look, w.tun.Sim.StepSeconds)

	cam := w.ctl.Camera()
	res := w.chunks.EnsureAround(cam)
	if res.Generated > 0 || res.Evicted > 0 {
		w.log.Debug().
			Uint64("tick", nowTick).
			Int("cx", res.Center.CX).
			Int("cz", res.Center.CZ).
			Int("generated", res.Generated).
			Int("evicted", res.Evicted).
			Int("pending", res.Pending).
			Msg("chunks updated")
	}

	if c := w.client; c != nil {
		c.flush()
		if b, err := json.Marshal(w.buildFrame(nowTick)); err == nil {
			sendLatest(c.frames, b)
		}
	}

	digest := w.stateDigest(nowTick)
	entry := TickLogEntry{
		Tick:      nowTick,
		Inputs:    events,
		Mode:      w.ctl.Kind().String(),
		Camera:    [3]float64{cam.X(), cam.Y(), cam.Z()},
		Loaded:    len(w.chunks.Chunks),
		Generated: res.Generated,
		Evicted:   res.Evicted,
		Digest:    digest,
	}
	if w.tickLogger != nil {
		if !w.headerSent {
			entry.Header = &SessionHeader{
				RunID:        w.runID,
				Seed:         w.cfg.Seed,
				TuningDigest: w.tun.Digest(),
				Tuning:       w.tun,
				StartTick:    nowTick,
			}
			w.headerSent = true
		}
		if err := w.tickLogger.WriteTick(entry); err != nil {
			w.log.Warn().Err(err).Uint64("tick", nowTick).Msg("tick log write failed")
		}
	}
	if w.indexer != nil && w.tun.Sim.IndexEveryTicks > 0 && nowTick%uint64(w.tun.Sim.IndexEveryTicks) == 0 {
		_ = w.indexer.WriteTick(entry)
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.storeMetrics(nextTick, stepMS)
	return entry
}

func (w *World) interact(nowTick uint64) {
	tr := w.ctl.Interact(&w.look)
	ev := w.log.Info()
	if tr.Outcome == mode.TooFar {
		ev = w.log.Debug()
	}
	ev.Uint64("tick", nowTick).
		Str("outcome", tr.Outcome.String()).
		Str("from", tr.From.String()).
		Str("to", tr.To.String()).
		Float64("distance", tr.Distance).
		Msg("interact")
	w.notify(nowTick, tr)
}
