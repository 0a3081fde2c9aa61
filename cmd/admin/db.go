package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skyticket.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/world.sqlite)")
	kind := fs.String("kind", "", "event kind filter (events)")
	limit := fs.Int("limit", 20, "result limit (events)")
	_ = fs.Parse(args)

	q := "summary"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "world.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch q {
	case "summary":
		s, err := indexSummary(ctx, idx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		printJSON(s)
	case "events":
		evs, err := idx.RecentEvents(ctx, strings.ToUpper(strings.TrimSpace(*kind)), *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, e := range evs {
			printJSON(e)
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want summary|events)")
		os.Exit(2)
	}
}

type summary struct {
	RunID        string         `json:"run_id,omitempty"`
	Seed         string         `json:"seed,omitempty"`
	TuningDigest string         `json:"tuning_digest,omitempty"`
	StartedAt    string         `json:"started_at,omitempty"`
	LastTick     *uint64        `json:"last_tick,omitempty"`
	LastDigest   string         `json:"last_digest,omitempty"`
	EventCounts  map[string]int `json:"event_counts"`
}

func indexSummary(ctx context.Context, idx *indexdb.SQLiteIndex) (summary, error) {
	var s summary
	for key, dst := range map[string]*string{
		"run_id":        &s.RunID,
		"seed":          &s.Seed,
		"tuning_digest": &s.TuningDigest,
		"started_at":    &s.StartedAt,
	} {
		v, _, err := idx.Meta(ctx, key)
		if err != nil {
			return s, fmt.Errorf("meta %s: %w", key, err)
		}
		*dst = v
	}
	tick, digest, ok, err := idx.LastTick(ctx)
	if err != nil {
		return s, fmt.Errorf("last tick: %w", err)
	}
	if ok {
		s.LastTick = &tick
		s.LastDigest = digest
	}
	if s.EventCounts, err = idx.EventCounts(ctx); err != nil {
		return s, fmt.Errorf("event counts: %w", err)
	}
	return s, nil
}
