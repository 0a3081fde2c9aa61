package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"skyticket.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "client name")
		flyTicks = flag.Uint64("fly_ticks", 200, "ticks to hold throttle after boarding")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", "bot").Logger()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("dial")
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatal().Err(err).Msg("send HELLO")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_ = conn.Close()
	}()

	pilot := &autopilot{flyTicks: *flyTicks}
	var lastLog uint64
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Info().Err(err).Msg("connection closed")
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			pilot.radius = w.WorldParams.InteractRadius
			pilot.sensitivity = w.WorldParams.LookSensitivity
			logger.Info().
				Str("session", w.SessionID).
				Int("tick_rate_hz", w.WorldParams.TickRateHz).
				Int64("seed", w.WorldParams.Seed).
				Msg("WELCOME")

		case protocol.TypeNotice:
			var n protocol.NoticeMsg
			if err := json.Unmarshal(msg, &n); err != nil {
				continue
			}
			logger.Info().Uint64("tick", n.Tick).Str("kind", n.Kind).Msg(n.Text)

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Warn().Str("code", e.Code).Msg(e.Message)

		case protocol.TypeFrame:
			var f protocol.FrameMsg
			if err := json.Unmarshal(msg, &f); err != nil {
				continue
			}
			if f.Tick >= lastLog+50 {
				lastLog = f.Tick
				ev := logger.Debug().Uint64("tick", f.Tick).Str("mode", f.Mode).Floats64("camera", f.Camera.Pos[:])
				if f.Guide != nil {
					ev = ev.Float64("distance", f.Guide.Distance)
				}
				ev.Float64("speed", f.Vehicle.Speed).Bool("flying", f.Vehicle.Flying).Msg("frame")
			}
			if events := pilot.next(f); len(events) > 0 {
				in := protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version, Events: events}
				if err := conn.WriteJSON(in); err != nil {
					logger.Warn().Err(err).Msg("send INPUT")
					return
				}
			}
			if pilot.done {
				logger.Info().Uint64("tick", f.Tick).Msg("flight complete")
				return
			}
		}
	}
}
