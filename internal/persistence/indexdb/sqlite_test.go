package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"skyticket.ai/internal/sim/world"
)

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: world.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(world.TickLogEntry{Tick: 2})
	_ = s.WriteEvent(world.EventEntry{Tick: 2})
	s.RecordSession("r", 1, "d")

	st := s.Stats()
	if st.DropTickTotal != 1 || st.DropEventTotal != 1 || st.DropMetaTotal != 1 {
		t.Fatalf("drop stats: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_WritesAreQueryable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "world.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	s.RecordSession("run-1", 1337, "abc")
	for i := uint64(0); i < 5; i++ {
		_ = s.WriteTick(world.TickLogEntry{Tick: i * 20, Mode: "ON_FOOT", Digest: "d" + string(rune('0'+i))})
	}
	_ = s.WriteEvent(world.EventEntry{Tick: 3, Kind: "TOO_FAR", Mode: "ON_FOOT", Distance: 11})
	_ = s.WriteEvent(world.EventEntry{Tick: 3, Kind: "TOO_FAR", Mode: "ON_FOOT", Distance: 10})
	_ = s.WriteEvent(world.EventEntry{Tick: 9, Kind: "TICKET_FOUND", Mode: "IN_VEHICLE"})

	// Close drains the queue and commits.
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	counts, err := s.EventCounts(ctx)
	if err != nil {
		t.Fatalf("EventCounts: %v", err)
	}
	if counts["TOO_FAR"] != 2 || counts["TICKET_FOUND"] != 1 {
		t.Fatalf("counts=%v", counts)
	}
	tick, digest, ok, err := s.LastTick(ctx)
	if err != nil || !ok || tick != 80 || digest != "d4" {
		t.Fatalf("LastTick=%d %q %v %v", tick, digest, ok, err)
	}
	seed, ok, err := s.Meta(ctx, "seed")
	if err != nil || !ok || seed != "1337" {
		t.Fatalf("meta seed=%q ok=%v err=%v", seed, ok, err)
	}
	if _, ok, _ := s.Meta(ctx, "missing"); ok {
		t.Fatalf("unexpected meta key")
	}

	recent, err := s.RecentEvents(ctx, "", 2)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(recent) != 2 || recent[0].Kind != "TICKET_FOUND" || recent[1].Distance != 10 {
		t.Fatalf("recent=%+v", recent)
	}
	tooFar, err := s.RecentEvents(ctx, "TOO_FAR", 10)
	if err != nil || len(tooFar) != 2 || tooFar[1].Distance != 11 {
		t.Fatalf("too far=%+v err=%v", tooFar, err)
	}
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error")
	}
}
