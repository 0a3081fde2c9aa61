package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"skyticket.ai/internal/sim/tuning"
	"skyticket.ai/internal/sim/world"
)

func newTestWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(world.Config{Seed: 7, Tuning: tuning.Defaults()})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestBuildMux_HealthAndMetrics(t *testing.T) {
	w := newTestWorld(t)
	srv := httptest.NewServer(buildMux(muxDeps{World: w}))
	defer srv.Close()

	code, body := get(t, srv.URL+"/healthz")
	if code != 200 || body != "ok" {
		t.Fatalf("healthz: %d %q", code, body)
	}

	code, body = get(t, srv.URL+"/metrics")
	if code != 200 {
		t.Fatalf("metrics status %d", code)
	}
	for _, want := range []string{
		"skyticket_world_tick ",
		`skyticket_world_mode{mode="ON_FOOT"} 1`,
		`skyticket_world_mode{mode="IN_VEHICLE"} 0`,
		"skyticket_chunks_loaded ",
		`skyticket_world_queue_depth{queue="inbox"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "skyticket_index_") {
		t.Fatalf("index metrics present without an index")
	}
}

func TestBuildMux_AdminState(t *testing.T) {
	w := newTestWorld(t)

	off := httptest.NewServer(buildMux(muxDeps{World: w}))
	defer off.Close()
	if code, _ := get(t, off.URL+"/admin/v1/state"); code != http.StatusNotFound {
		t.Fatalf("admin disabled: status=%d want 404", code)
	}

	on := httptest.NewServer(buildMux(muxDeps{World: w, EnableAdmin: true}))
	defer on.Close()
	code, body := get(t, on.URL+"/admin/v1/state")
	if code != 200 {
		t.Fatalf("admin state: status=%d body=%s", code, body)
	}
	var resp struct {
		State world.StateView `json:"state"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State.Mode != "ON_FOOT" || resp.State.Seed != 7 || resp.State.RunID != w.RunID() {
		t.Fatalf("unexpected state: %+v", resp.State)
	}
	if resp.State.StateDigest == "" {
		t.Fatalf("missing digest")
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5555":   true,
		"[::1]:80":         true,
		"10.0.0.2:80":      false,
		"example.com:1234": false,
		"":                 false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", in, got, want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("SKY_TEST_FLAG", "false")
	if envBool("SKY_TEST_FLAG", true) {
		t.Fatalf("expected false")
	}
	t.Setenv("SKY_TEST_FLAG", "nope")
	if !envBool("SKY_TEST_FLAG", true) {
		t.Fatalf("unparseable value should use default")
	}
}
