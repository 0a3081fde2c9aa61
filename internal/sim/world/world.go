package world

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/body/aircraft"
	"skyticket.ai/internal/sim/body/walker"
	"skyticket.ai/internal/sim/input"
	"skyticket.ai/internal/sim/mode"
	genpkg "skyticket.ai/internal/sim/terrain/gen"
	"skyticket.ai/internal/sim/terrain/height"
	"skyticket.ai/internal/sim/terrain/store"
	"skyticket.ai/internal/sim/tuning"
)

type Config struct {
	Seed   int64
	Tuning tuning.Tuning
	// Logger is optional; a nop logger is used when nil.
	Logger *zerolog.Logger
}

// InputEnvelope carries one INPUT message from the attached client.
type InputEnvelope struct {
	SessionID string
	Events    []protocol.InputEvent
}

type AttachRequest struct {
	ClientName string
	// Out is the ordered stream: chunks, unloads and notices.
	Out chan []byte
	// Frames receives the latest FRAME only; older frames are dropped.
	Frames chan []byte
	Resp   chan AttachResponse
}

type AttachResponse struct {
	Welcome protocol.WelcomeMsg
	// Code is set when the attach was refused.
	Code string
	// Kicked is closed when the world drops the client (backlog overflow).
	Kicked <-chan struct{}
}

// World is the single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg Config
	tun tuning.Tuning
	log zerolog.Logger

	runID string
	tick  atomic.Uint64

	field  *height.Field
	chunks *store.ChunkStore
	ctl    *mode.Controller

	flags input.Flags
	look  input.Look
	// carry holds synthetic events for the next tick (key release on detach).
	carry []protocol.InputEvent

	client *clientState

	inbox    chan InputEnvelope
	attach   chan AttachRequest
	detach   chan string
	stateReq chan chan StateView
	stop     chan struct{}
	stopOnce sync.Once
	// done is closed when Run returns.
	done chan struct{}

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	eventLogger EventLogger
	indexer     Indexer
	headerSent  bool

	metrics atomic.Value
}

func New(cfg Config) (*World, error) {
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	t := cfg.Tuning

	w := &World{
		cfg:      cfg,
		tun:      t,
		log:      zerolog.Nop(),
		runID:    uuid.NewString(),
		inbox:    make(chan InputEnvelope, 1024),
		attach:   make(chan AttachRequest, 8),
		detach:   make(chan string, 8),
		stateReq: make(chan chan StateView, 8),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if cfg.Logger != nil {
		w.log = cfg.Logger.With().Str("component", "world").Logger()
	}

	w.field = height.New(height.ParamsFromTuning(t.Terrain, cfg.Seed))
	ground := height.Ground(w.field.Height)

	w.chunks = store.NewChunkStore(store.Config{
		Seed:               cfg.Seed,
		Size:               t.Chunks.Size,
		RenderDistance:     t.Chunks.RenderDistance,
		EvictMargin:        t.Chunks.EvictMargin,
		MaxGeneratePerCall: t.Chunks.MaxGeneratePerTick,
		Layers:             genpkg.Layers{WaterLine: t.Terrain.WaterLine, DirtDepth: t.Terrain.DirtDepth},
		TreePermille:       t.Terrain.TreePermille,
	}, w.field, &chunkFeed{w: w})

	wp := walker.ParamsFromTuning(t.Walker)
	spawn := mgl64.Vec3{t.Sim.Spawn[0], t.Sim.Spawn[1], t.Sim.Spawn[2]}
	plane := aircraft.Parked(aircraft.ParamsFromTuning(t.Vehicle), t.Vehicle.Spawn[0], t.Vehicle.Spawn[1], ground)
	w.ctl = mode.NewController(mode.Config{
		Radius:     t.Interact.Radius,
		Cockpit:    t.Vehicle.CockpitHeight,
		ExitOffset: mgl64.Vec3{t.Vehicle.ExitOffset[0], t.Vehicle.ExitOffset[1], t.Vehicle.ExitOffset[2]},
		Walker:     wp,
	}, walker.New(wp, spawn), plane, ground)

	w.metrics.Store(WorldMetrics{Mode: w.ctl.Kind().String()})
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)   { w.tickLogger = l }
func (w *World) SetEventLogger(l EventLogger) { w.eventLogger = l }
func (w *World) SetIndexer(ix Indexer)        { w.indexer = ix }

func (w *World) Inbox() chan<- InputEnvelope          { return w.inbox }
func (w *World) Attach() chan<- AttachRequest         { return w.attach }
func (w *World) Detach() chan<- string                { return w.detach }
func (w *World) StateRequests() chan<- chan StateView { return w.stateReq }

func (w *World) Seed() int64          { return w.cfg.Seed }
func (w *World) RunID() string        { return w.runID }
func (w *World) CurrentTick() uint64  { return w.tick.Load() }
func (w *World) Field() *height.Field { return w.field }

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.tun.Sim.TickRateHz
}

func (w *World) worldParams() protocol.WorldParams {
	t := w.tun
	return protocol.WorldParams{
		TickRateHz:      t.Sim.TickRateHz,
		StepSeconds:     t.Sim.StepSeconds,
		Seed:            w.cfg.Seed,
		TerrainMode:     t.Terrain.Mode,
		ChunkSize:       t.Chunks.Size,
		RenderDistance:  t.Chunks.RenderDistance,
		EyeHeight:       t.Walker.EyeHeight,
		CockpitHeight:   t.Vehicle.CockpitHeight,
		InteractRadius:  t.Interact.Radius,
		LookSensitivity: t.Look.Sensitivity,
		NoticeTTLMs:     t.Notices.TTLMs,
		TuningDigest:    t.Digest(),
	}
}
