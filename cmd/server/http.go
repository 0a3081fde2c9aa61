package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"skyticket.ai/internal/persistence/indexdb"
	"skyticket.ai/internal/sim/world"
	"skyticket.ai/internal/transport/ws"
)

type muxDeps struct {
	World *world.World
	WS    *ws.Server
	// Index may be nil when -disable_db is set.
	Index       *indexdb.SQLiteIndex
	EnableAdmin bool
}

func buildMux(d muxDeps) *http.ServeMux {
	w := d.World
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeWorldMetrics(rw, w.Metrics(), w.CurrentTick())
		if d.Index != nil {
			writeIndexMetrics(rw, d.Index.Stats())
		}
	})

	if d.EnableAdmin {
		// Local-only; reads go through the world loop and never mutate it.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			view, ok := requestState(w, 2*time.Second)
			if !ok {
				http.Error(rw, "world busy", http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				State   world.StateView    `json:"state"`
				Metrics world.WorldMetrics `json:"metrics"`
			}{
				State:   view,
				Metrics: w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
	}

	if d.WS != nil {
		mux.HandleFunc("/v1/ws", d.WS.Handler())
	}
	return mux
}

func requestState(w *world.World, timeout time.Duration) (world.StateView, bool) {
	ch := make(chan world.StateView, 1)
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case w.StateRequests() <- ch:
	case <-w.Done():
		return world.StateView{}, false
	case <-t.C:
		return world.StateView{}, false
	}
	select {
	case v := <-ch:
		return v, true
	case <-w.Done():
		return world.StateView{}, false
	case <-t.C:
		return world.StateView{}, false
	}
}

// Minimal Prometheus exposition format.
func writeWorldMetrics(rw http.ResponseWriter, m world.WorldMetrics, tick uint64) {
	if m.Tick != 0 {
		tick = m.Tick
	}
	fmt.Fprintf(rw, "# HELP skyticket_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_world_tick gauge\n")
	fmt.Fprintf(rw, "skyticket_world_tick %d\n", tick)

	fmt.Fprintf(rw, "# HELP skyticket_world_mode Active control mode (1 for the current one).\n")
	fmt.Fprintf(rw, "# TYPE skyticket_world_mode gauge\n")
	for _, k := range []string{"ON_FOOT", "IN_VEHICLE"} {
		v := 0
		if m.Mode == k {
			v = 1
		}
		fmt.Fprintf(rw, "skyticket_world_mode{mode=%q} %d\n", k, v)
	}

	fmt.Fprintf(rw, "# HELP skyticket_world_clients Connected clients.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_world_clients gauge\n")
	fmt.Fprintf(rw, "skyticket_world_clients %d\n", m.Clients)

	fmt.Fprintf(rw, "# HELP skyticket_client_backlog Messages queued for the attached client.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_client_backlog gauge\n")
	fmt.Fprintf(rw, "skyticket_client_backlog %d\n", m.Backlog)

	fmt.Fprintf(rw, "# HELP skyticket_chunks_loaded Loaded chunk count.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_chunks_loaded gauge\n")
	fmt.Fprintf(rw, "skyticket_chunks_loaded %d\n", m.LoadedChunks)

	fmt.Fprintf(rw, "# HELP skyticket_chunks_pending Chunks waiting for generation.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_chunks_pending gauge\n")
	fmt.Fprintf(rw, "skyticket_chunks_pending %d\n", m.PendingChunks)

	fmt.Fprintf(rw, "# HELP skyticket_chunks_generated_total Chunks generated since start.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_chunks_generated_total counter\n")
	fmt.Fprintf(rw, "skyticket_chunks_generated_total %d\n", m.GeneratedTotal)

	fmt.Fprintf(rw, "# HELP skyticket_chunks_evicted_total Chunks evicted since start.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_chunks_evicted_total counter\n")
	fmt.Fprintf(rw, "skyticket_chunks_evicted_total %d\n", m.EvictedTotal)

	fmt.Fprintf(rw, "# HELP skyticket_world_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_world_queue_depth gauge\n")
	fmt.Fprintf(rw, "skyticket_world_queue_depth{queue=%q} %d\n", "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(rw, "skyticket_world_queue_depth{queue=%q} %d\n", "attach", m.QueueDepths.Attach)
	fmt.Fprintf(rw, "skyticket_world_queue_depth{queue=%q} %d\n", "detach", m.QueueDepths.Detach)

	fmt.Fprintf(rw, "# HELP skyticket_vehicle_speed Airplane forward speed per tick.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_vehicle_speed gauge\n")
	fmt.Fprintf(rw, "skyticket_vehicle_speed %.6f\n", m.VehicleSpeed)

	flying := 0
	if m.Flying {
		flying = 1
	}
	fmt.Fprintf(rw, "# HELP skyticket_vehicle_flying Whether the airplane is flying.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_vehicle_flying gauge\n")
	fmt.Fprintf(rw, "skyticket_vehicle_flying %d\n", flying)

	fmt.Fprintf(rw, "# HELP skyticket_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_world_step_ms gauge\n")
	fmt.Fprintf(rw, "skyticket_world_step_ms %.3f\n", m.StepMS)
}

func writeIndexMetrics(rw http.ResponseWriter, s indexdb.Stats) {
	fmt.Fprintf(rw, "# HELP skyticket_index_queue_depth Sqlite index queue depth.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "skyticket_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP skyticket_index_queue_capacity Sqlite index queue capacity.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_index_queue_capacity gauge\n")
	fmt.Fprintf(rw, "skyticket_index_queue_capacity %d\n", s.QueueCapacity)

	fmt.Fprintf(rw, "# HELP skyticket_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(rw, "# TYPE skyticket_index_dropped_total counter\n")
	fmt.Fprintf(rw, "skyticket_index_dropped_total{kind=%q} %d\n", "tick", s.DropTickTotal)
	fmt.Fprintf(rw, "skyticket_index_dropped_total{kind=%q} %d\n", "event", s.DropEventTotal)
	fmt.Fprintf(rw, "skyticket_index_dropped_total{kind=%q} %d\n", "meta", s.DropMetaTotal)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
