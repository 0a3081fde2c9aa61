package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"skyticket.ai/internal/sim/world"
)

type stateResponse struct {
	State   world.StateView    `json:"state"`
	Metrics world.WorldMetrics `json:"metrics"`
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	brief := fs.Bool("brief", false, "print a one-line summary instead of JSON")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	_ = fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	st, err := fetchState(ctx, http.DefaultClient, *baseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "state:", err)
		os.Exit(1)
	}
	if *brief {
		fmt.Println(briefState(st))
		return
	}
	printJSON(st)
}

func fetchState(ctx context.Context, cl *http.Client, baseURL string) (stateResponse, error) {
	var out stateResponse
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/admin/v1/state"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, err
	}
	resp, err := cl.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return out, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}

func briefState(st stateResponse) string {
	s := st.State
	return fmt.Sprintf("tick=%d mode=%s pos=(%.1f,%.1f,%.1f) speed=%.3f chunks=%d clients=%d digest=%s",
		s.Tick, s.Mode, s.Camera[0], s.Camera[1], s.Camera[2],
		s.Vehicle.Speed, st.Metrics.LoadedChunks, st.Metrics.Clients, s.StateDigest)
}
