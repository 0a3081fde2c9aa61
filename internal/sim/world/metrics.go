package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`
	Mode string `json:"mode"`

	Clients        int    `json:"clients"`
	LoadedChunks   int    `json:"loaded_chunks"`
	PendingChunks  int    `json:"pending_chunks"`
	GeneratedTotal uint64 `json:"generated_total"`
	EvictedTotal   uint64 `json:"evicted_total"`
	Backlog        int    `json:"backlog"`

	QueueDepths QueueDepths `json:"queue_depths"`

	VehicleSpeed float64 `json:"vehicle_speed"`
	Flying       bool    `json:"flying"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox  int `json:"inbox"`
	Attach int `json:"attach"`
	Detach int `json:"detach"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) storeMetrics(tick uint64, stepMS float64) {
	st := w.chunks.Stats()
	m := WorldMetrics{
		Tick:           tick,
		Mode:           w.ctl.Kind().String(),
		LoadedChunks:   st.Loaded,
		PendingChunks:  st.Pending,
		GeneratedTotal: st.Generated,
		EvictedTotal:   st.Evicted,
		QueueDepths: QueueDepths{
			Inbox:  len(w.inbox),
			Attach: len(w.attach),
			Detach: len(w.detach),
		},
		VehicleSpeed: w.ctl.Plane().Speed,
		Flying:       w.ctl.Plane().Flying,
		StepMS:       stepMS,
	}
	if w.client != nil {
		m.Clients = 1
		m.Backlog = len(w.client.backlog)
	}
	w.metrics.Store(m)
}
