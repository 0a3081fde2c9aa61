package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "skyticket.ai/internal/persistence/log"
	"skyticket.ai/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "runs":
			runsCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		}
	}
	runsCmd(os.Args[1:])
}

// runSummary describes one server session found in the tick logs.
type runSummary struct {
	RunID        string `json:"run_id"`
	Seed         int64  `json:"seed"`
	TuningDigest string `json:"tuning_digest"`
	File         string `json:"file"`
	FirstTick    uint64 `json:"first_tick"`
	LastTick     uint64 `json:"last_tick"`
	Ticks        uint64 `json:"ticks"`
	Inputs       int    `json:"inputs"`
	LastMode     string `json:"last_mode"`
}

func runsCmd(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	files, err := persistlog.ListFiles(persistlog.TickDir(*dataDir), persistlog.TickPrefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	runs, err := summarizeRuns(files)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, r := range runs {
		printJSON(r)
	}
}

func summarizeRuns(files []string) ([]runSummary, error) {
	var out []runSummary
	var cur *runSummary
	for _, path := range files {
		err := persistlog.ReadTicks(path, func(e world.TickLogEntry) error {
			if h := e.Header; h != nil {
				out = append(out, runSummary{
					RunID:        h.RunID,
					Seed:         h.Seed,
					TuningDigest: h.TuningDigest,
					File:         filepath.Base(path),
					FirstTick:    e.Tick,
				})
				cur = &out[len(out)-1]
			}
			if cur == nil {
				return nil
			}
			cur.LastTick = e.Tick
			cur.Ticks++
			cur.Inputs += len(e.Inputs)
			cur.LastMode = e.Mode
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return out, nil
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	kind := fs.String("kind", "", "only events of this kind (optional)")
	sinceTick := fs.Uint64("since_tick", 0, "only events at or after tick")
	_ = fs.Parse(args)

	files, err := persistlog.ListFiles(persistlog.EventDir(*dataDir), persistlog.EventPrefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	want := strings.ToUpper(strings.TrimSpace(*kind))
	for _, path := range files {
		err := persistlog.ReadEvents(path, func(e world.EventEntry) error {
			if e.Tick < *sinceTick || (want != "" && e.Kind != want) {
				return nil
			}
			printJSON(e)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
