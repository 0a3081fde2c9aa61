package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"skyticket.ai/internal/persistence/indexdb"
	persistlog "skyticket.ai/internal/persistence/log"
	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/tuning"
	"skyticket.ai/internal/sim/world"
	"skyticket.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		seed       = flag.Int64("seed", 1337, "terrain seed")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read index (tick/event logs are always written)")
		logLevel   = flag.String("log_level", "info", "trace|debug|info|warn|error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatal().Err(err).Str("path", *tuningPath).Msg("load tuning")
		}
		logger.Warn().Str("path", *tuningPath).Msg("tuning not found; using defaults")
		tune = tuning.Defaults()
	}

	validator, err := protocol.NewValidator()
	if err != nil {
		logger.Fatal().Err(err).Msg("compile protocol schemas")
	}

	w, err := world.New(world.Config{Seed: *seed, Tuning: tune, Logger: &logger})
	if err != nil {
		logger.Fatal().Err(err).Msg("world")
	}

	_ = os.MkdirAll(*dataDir, 0o755)
	tickLog := persistlog.NewTickLogger(*dataDir)
	defer tickLog.Close()
	eventLog := persistlog.NewEventLogger(*dataDir)
	defer eventLog.Close()
	w.SetTickLogger(tickLog)
	w.SetEventLogger(eventLog)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "world.sqlite"))
		if err != nil {
			logger.Fatal().Err(err).Msg("open sqlite index")
		}
		defer idx.Close()
		idx.RecordSession(w.RunID(), w.Seed(), tune.Digest())
		w.SetIndexer(idx)
	}

	logger.Info().
		Str("run_id", w.RunID()).
		Int64("seed", w.Seed()).
		Str("terrain", tune.Terrain.Mode).
		Int("tick_rate_hz", w.TickRateHz()).
		Bool("index", idx != nil).
		Msg("world ready")

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("world stopped")
		}
	}()

	enableAdmin := envBool("SKY_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	if !enableAdmin {
		logger.Info().Msg("admin endpoints disabled (SKY_ENABLE_ADMIN_HTTP=false)")
	}
	mux := buildMux(muxDeps{
		World:       w,
		WS:          ws.NewServer(w, validator, logger),
		Index:       idx,
		EnableAdmin: enableAdmin,
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info().Str("addr", *addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("ListenAndServe")
	}
	// The deferred log and index closes must not race a final step.
	w.Stop()
	<-w.Done()
	logger.Info().Uint64("tick", w.CurrentTick()).Msg("world stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(out).With().Timestamp().Str("app", "server").Logger()
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
