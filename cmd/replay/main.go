package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "skyticket.ai/internal/persistence/log"
	"skyticket.ai/internal/sim/world"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory")
		eventsDir = flag.String("events", "", "tick log dir containing events-*.jsonl.zst (default: <data>/events)")
		fromTick  = flag.Uint64("from_tick", 0, "start verifying from tick (inclusive, optional)")
		toTick    = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	dir := *eventsDir
	if dir == "" {
		dir = persistlog.TickDir(*dataDir)
	}
	files, err := persistlog.ListFiles(dir, persistlog.TickPrefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", dir)
		os.Exit(1)
	}

	r := &replayer{from: *fromTick, to: *toTick}
	for _, path := range files {
		if err := persistlog.ReadTicks(path, r.apply); err != nil {
			fmt.Fprintf(os.Stderr, "replay %s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
	}
	fmt.Printf("replay ok: runs=%d checked=%d skipped=%d\n", r.runs, r.checked, r.skipped)
}

// replayer rebuilds a world from every session header it meets and steps it
// with the logged inputs, comparing state digests tick by tick.
type replayer struct {
	from, to uint64

	w       *world.World
	runID   string
	runs    int
	checked uint64
	skipped uint64
}

func (r *replayer) apply(entry world.TickLogEntry) error {
	if h := entry.Header; h != nil {
		if got := h.Tuning.Digest(); got != h.TuningDigest {
			return fmt.Errorf("run %s: tuning digest mismatch: got=%s want=%s", h.RunID, got, h.TuningDigest)
		}
		w, err := world.New(world.Config{Seed: h.Seed, Tuning: h.Tuning})
		if err != nil {
			return fmt.Errorf("run %s: world: %w", h.RunID, err)
		}
		if h.StartTick != w.CurrentTick() || entry.Tick != h.StartTick {
			return fmt.Errorf("run %s: unsupported start tick %d", h.RunID, h.StartTick)
		}
		r.w = w
		r.runID = h.RunID
		r.runs++
	}
	if r.w == nil {
		// Log starts mid-run; nothing to rebuild from.
		r.skipped++
		return nil
	}
	if r.to != 0 && entry.Tick > r.to {
		return nil
	}
	if entry.Tick != r.w.CurrentTick() {
		return fmt.Errorf("run %s: tick mismatch: want=%d got=%d", r.runID, r.w.CurrentTick(), entry.Tick)
	}

	tick, digest := r.w.StepOnce(entry.Inputs)
	if tick != entry.Tick {
		return fmt.Errorf("run %s: internal tick mismatch: stepped=%d entry=%d", r.runID, tick, entry.Tick)
	}
	if tick >= r.from {
		r.checked++
		if digest != entry.Digest {
			return fmt.Errorf("run %s: digest mismatch at tick %d: got=%s want=%s", r.runID, tick, digest, entry.Digest)
		}
	}
	return nil
}
