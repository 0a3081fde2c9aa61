package world

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/mode"
	"skyticket.ai/internal/sim/tuning"
)

type memTickLog struct{ entries []TickLogEntry }

func (m *memTickLog) WriteTick(e TickLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type memEventLog struct{ events []EventEntry }

func (m *memEventLog) WriteEvent(e EventEntry) error {
	m.events = append(m.events, e)
	return nil
}

func newTestWorld(t *testing.T, seed int64, mutate func(*tuning.Tuning)) *World {
	t.Helper()
	tun := tuning.Defaults()
	if mutate != nil {
		mutate(&tun)
	}
	w, err := New(Config{Seed: seed, Tuning: tun})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func press(key string) protocol.InputEvent {
	return protocol.InputEvent{Kind: protocol.InputPress, Key: key}
}

func keyDown(key string) protocol.InputEvent {
	return protocol.InputEvent{Kind: protocol.InputKeyDown, Key: key}
}

func keyUp(key string) protocol.InputEvent {
	return protocol.InputEvent{Kind: protocol.InputKeyUp, Key: key}
}

func script(tick int) []protocol.InputEvent {
	switch {
	case tick == 0:
		return []protocol.InputEvent{keyDown("KeyW"), {Kind: protocol.InputLook, DX: 40, DY: -10}}
	case tick == 15:
		return []protocol.InputEvent{keyDown("KeyA"), press("JUMP")}
	case tick == 30:
		return []protocol.InputEvent{keyUp("KeyW"), keyUp("KeyA"), press("INTERACT")}
	default:
		return nil
	}
}

func TestStepOnceDeterministic(t *testing.T) {
	a := newTestWorld(t, 42, nil)
	b := newTestWorld(t, 42, nil)
	c := newTestWorld(t, 43, nil)

	differs := false
	for i := 0; i < 60; i++ {
		ta, da := a.StepOnce(script(i))
		tb, db := b.StepOnce(script(i))
		_, dc := c.StepOnce(script(i))
		if ta != uint64(i) || tb != ta {
			t.Fatalf("tick mismatch: %d %d want %d", ta, tb, i)
		}
		if da != db {
			t.Fatalf("tick %d: digest mismatch %s vs %s", i, da, db)
		}
		if dc != da {
			differs = true
		}
	}
	if !differs {
		t.Fatalf("different seeds should produce different digests")
	}
	if a.CurrentTick() != 60 {
		t.Fatalf("tick=%d", a.CurrentTick())
	}
}

func TestOnFootFallsToGround(t *testing.T) {
	w := newTestWorld(t, 7, nil)
	ground := w.Field().Height
	for i := 0; i < 200; i++ {
		w.StepOnce(nil)
		wb := w.ctl.Walker()
		if wb.CanJump {
			want := ground(wb.Pos.X(), wb.Pos.Z()) + w.tun.Walker.EyeHeight
			if wb.Pos.Y() != want {
				t.Fatalf("landed at %v want %v", wb.Pos.Y(), want)
			}
			return
		}
	}
	t.Fatalf("walker never landed")
}

func TestInteractWithinRadiusEntersVehicle(t *testing.T) {
	w := newTestWorld(t, 1337, func(tu *tuning.Tuning) { tu.Interact.Radius = 5 })
	events := &memEventLog{}
	w.SetEventLogger(events)

	plane := w.ctl.Plane().Pos
	w.ctl.Walker().Pos = plane.Add(mgl64.Vec3{0, 0, 3})

	w.StepOnce([]protocol.InputEvent{press("INTERACT")})
	if w.ctl.Kind() != mode.InVehicleKind {
		t.Fatalf("mode=%v", w.ctl.Kind())
	}
	st := w.stateView()
	if !st.TicketVisible {
		t.Fatalf("ticket should be visible")
	}
	want := w.ctl.Plane().Pos.Add(mgl64.Vec3{0, w.tun.Vehicle.CockpitHeight, 0})
	if st.Camera != vec(want) {
		t.Fatalf("camera=%v want %v", st.Camera, want)
	}
	if len(events.events) != 1 || events.events[0].Kind != mode.NoticeTicketFound {
		t.Fatalf("events=%+v", events.events)
	}

	// Interact again from the cockpit exits next to the airplane.
	w.StepOnce([]protocol.InputEvent{keyDown("KeyF"), keyUp("KeyF")})
	if w.ctl.Kind() != mode.OnFootKind {
		t.Fatalf("expected exit, mode=%v", w.ctl.Kind())
	}
	if len(events.events) != 2 || events.events[1].Kind != mode.NoticeExitedVehicle {
		t.Fatalf("events=%+v", events.events)
	}
}

func TestInteractTooFarSingleNotice(t *testing.T) {
	w := newTestWorld(t, 1337, func(tu *tuning.Tuning) { tu.Interact.Radius = 5 })
	events := &memEventLog{}
	w.SetEventLogger(events)

	plane := w.ctl.Plane().Pos
	w.ctl.Walker().Pos = plane.Add(mgl64.Vec3{10, 0, 0})
	before := w.stateView()

	w.StepOnce([]protocol.InputEvent{press("INTERACT")})
	after := w.stateView()
	if after.Mode != before.Mode || after.TicketVisible {
		t.Fatalf("state changed: %+v", after)
	}
	if len(events.events) != 1 || events.events[0].Kind != mode.NoticeTooFar {
		t.Fatalf("events=%+v", events.events)
	}
	if math.Abs(events.events[0].Distance-10) > 1e-9 {
		t.Fatalf("distance=%v", events.events[0].Distance)
	}
}

func TestTickLogHeaderOnce(t *testing.T) {
	w := newTestWorld(t, 5, nil)
	tl := &memTickLog{}
	w.SetTickLogger(tl)
	for i := 0; i < 5; i++ {
		w.StepOnce(script(i))
	}
	if len(tl.entries) != 5 {
		t.Fatalf("entries=%d", len(tl.entries))
	}
	h := tl.entries[0].Header
	if h == nil || h.Seed != 5 || h.TuningDigest != w.tun.Digest() || h.StartTick != 0 {
		t.Fatalf("bad header: %+v", h)
	}
	for _, e := range tl.entries[1:] {
		if e.Header != nil {
			t.Fatalf("header repeated at tick %d", e.Tick)
		}
	}
	if len(tl.entries[0].Inputs) != 2 {
		t.Fatalf("inputs not recorded: %+v", tl.entries[0].Inputs)
	}
}

func TestLoadedChunksStayBounded(t *testing.T) {
	w := newTestWorld(t, 9, nil)
	plane := w.ctl.Plane().Pos
	w.ctl.Walker().Pos = plane.Add(mgl64.Vec3{1, 0, 0})
	w.StepOnce([]protocol.InputEvent{press("INTERACT"), keyDown("FORWARD")})

	r := w.tun.Chunks.RenderDistance + w.tun.Chunks.EvictMargin
	limit := (2*r + 1) * (2*r + 1)
	for i := 0; i < 3000; i++ {
		var ev []protocol.InputEvent
		if i%400 == 0 {
			ev = []protocol.InputEvent{keyDown("LEFT")}
		} else if i%400 == 40 {
			ev = []protocol.InputEvent{keyUp("LEFT")}
		}
		w.StepOnce(ev)
		if n := len(w.chunks.Chunks); n > limit {
			t.Fatalf("tick %d: %d chunks loaded, limit %d", i, n, limit)
		}
	}
	if w.chunks.Stats().Evicted == 0 {
		t.Fatalf("expected evictions while flying")
	}
}

func attachClient(t *testing.T, w *World) (AttachResponse, chan []byte, chan []byte) {
	t.Helper()
	out := make(chan []byte, 512)
	frames := make(chan []byte, 1)
	resp := make(chan AttachResponse, 1)
	w.handleAttach(AttachRequest{ClientName: "test", Out: out, Frames: frames, Resp: resp})
	return <-resp, out, frames
}

func drainTypes(ch chan []byte) []string {
	var types []string
	for {
		select {
		case b := <-ch:
			base, _ := protocol.DecodeBase(b)
			types = append(types, base.Type)
		default:
			return types
		}
	}
}

func TestAttachStreamsChunksAndFrames(t *testing.T) {
	w := newTestWorld(t, 3, nil)
	w.StepOnce(nil)
	loaded := len(w.chunks.Chunks)
	if loaded == 0 {
		t.Fatalf("no chunks after first tick")
	}

	resp, out, frames := attachClient(t, w)
	if resp.Code != "" || resp.Welcome.SessionID == "" {
		t.Fatalf("attach failed: %+v", resp)
	}
	if resp.Welcome.WorldParams.ChunkSize != 16 || resp.Welcome.WorldParams.TuningDigest == "" {
		t.Fatalf("world params: %+v", resp.Welcome.WorldParams)
	}
	types := drainTypes(out)
	if len(types) != loaded+1 || types[len(types)-1] != protocol.TypeNotice {
		t.Fatalf("initial stream: %v", types)
	}
	for _, typ := range types[:loaded] {
		if typ != protocol.TypeChunk {
			t.Fatalf("initial stream: %v", types)
		}
	}

	busy, _, _ := attachClient(t, w)
	if busy.Code != protocol.ErrWorldBusy {
		t.Fatalf("second attach: %+v", busy)
	}

	w.StepOnce(nil)
	w.StepOnce(nil)
	select {
	case b := <-frames:
		var f protocol.FrameMsg
		if err := json.Unmarshal(b, &f); err != nil {
			t.Fatalf("frame: %v", err)
		}
		if f.Tick != 2 || f.Mode != "ON_FOOT" || f.Guide == nil {
			t.Fatalf("unexpected frame: %+v", f)
		}
	default:
		t.Fatalf("no frame published")
	}
	if got := drainTypes(out); len(got) != w.chunks.Stats().Loaded-loaded {
		t.Fatalf("expected only newly generated chunks, got %v", got)
	}
}

func TestDetachReleasesHeldKeys(t *testing.T) {
	w := newTestWorld(t, 3, nil)
	resp, _, _ := attachClient(t, w)
	tl := &memTickLog{}
	w.SetTickLogger(tl)

	w.StepOnce([]protocol.InputEvent{keyDown("KeyW"), keyDown("KeyD")})
	if !w.flags.Forward || !w.flags.Right {
		t.Fatalf("flags not held: %+v", w.flags)
	}
	w.handleDetach("someone-else")
	if w.client == nil {
		t.Fatalf("detach with a stale session id dropped the client")
	}
	w.handleDetach(resp.Welcome.SessionID)
	w.StepOnce(nil)
	if w.flags.Forward || w.flags.Right {
		t.Fatalf("flags still held after detach: %+v", w.flags)
	}
	last := tl.entries[len(tl.entries)-1]
	if len(last.Inputs) != 2 || last.Inputs[0].Kind != protocol.InputKeyUp {
		t.Fatalf("release not recorded: %+v", last.Inputs)
	}
}

func TestGuideBearingFacesTarget(t *testing.T) {
	cases := []struct {
		target mgl64.Vec3
		want   float64
	}{
		{mgl64.Vec3{0, 0, -10}, 0},
		{mgl64.Vec3{-10, 0, 0}, math.Pi / 2},
		{mgl64.Vec3{10, 0, 0}, -math.Pi / 2},
	}
	for _, tc := range cases {
		g := guideTo(mgl64.Vec3{}, tc.target)
		if math.Abs(g.Bearing-tc.want) > 1e-12 || g.Distance != 10 {
			t.Fatalf("guide to %v: %+v", tc.target, g)
		}
	}
}

func TestRunLoop(t *testing.T) {
	w := newTestWorld(t, 11, func(tu *tuning.Tuning) { tu.Sim.TickRateHz = 200 })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	out := make(chan []byte, 512)
	frames := make(chan []byte, 1)
	respCh := make(chan AttachResponse, 1)
	w.Attach() <- AttachRequest{ClientName: "loop", Out: out, Frames: frames, Resp: respCh}
	resp := <-respCh
	w.Inbox() <- InputEnvelope{SessionID: resp.Welcome.SessionID, Events: []protocol.InputEvent{keyDown("KeyW")}}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && w.Metrics().Tick < 10 {
		time.Sleep(5 * time.Millisecond)
	}
	if w.Metrics().Tick < 10 {
		t.Fatalf("world did not tick: %+v", w.Metrics())
	}
	if w.Metrics().Clients != 1 {
		t.Fatalf("metrics clients=%d", w.Metrics().Clients)
	}

	ch := make(chan StateView, 1)
	w.StateRequests() <- ch
	st := <-ch
	if !st.Flags.Forward || st.SessionID != resp.Welcome.SessionID {
		t.Fatalf("state: %+v", st)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Run returned %v", err)
	}
}
