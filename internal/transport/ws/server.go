package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/world"
)

type Server struct {
	world     *world.World
	validator *protocol.Validator
	log       zerolog.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, v *protocol.Validator, logger zerolog.Logger) *Server {
	s := &Server{
		world:     w,
		validator: v,
		log:       logger.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

type session struct {
	id     string
	out    chan []byte
	frames chan []byte
	kicked <-chan struct{}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess, ok := s.handshake(conn)
		if !ok {
			return
		}
		log := s.log.With().Str("session_id", sess.id).Logger()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Errors found by the reader are written by the writer goroutine;
		// gorilla allows a single concurrent writer.
		replies := make(chan []byte, 8)

		// Writer goroutine.
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case <-s.world.Done():
					closeWith(conn, websocket.CloseGoingAway, "world stopped")
					cancel()
					_ = conn.Close()
					return
				case <-sess.kicked:
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "client too slow"), time.Now().Add(time.Second))
					cancel()
					_ = conn.Close()
					return
				case b = <-sess.out:
				case b = <-sess.frames:
				case b = <-replies:
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			events, code, detail := s.decodeInput(msg)
			if code != "" {
				log.Debug().Str("code", code).Str("detail", detail).Msg("input rejected")
				if b, err := json.Marshal(protocol.NewError(code, detail)); err == nil {
					select {
					case replies <- b:
					default:
					}
				}
				continue
			}
			if len(events) == 0 {
				continue
			}
			select {
			case s.world.Inbox() <- world.InputEnvelope{SessionID: sess.id, Events: events}:
				continue
			case <-s.world.Done():
				closeWith(conn, websocket.CloseGoingAway, "world stopped")
			}
			cancel()
			break
		}

		s.detach(sess.id)
		log.Info().Msg("connection closed")
	}
}

func (s *Server) detach(id string) {
	select {
	case s.world.Detach() <- id:
	case <-s.world.Done():
	}
}

func (s *Server) decodeInput(msg []byte) ([]protocol.InputEvent, string, string) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return nil, protocol.ErrProtoBadRequest, "malformed json"
	}
	if base.Type != protocol.TypeInput {
		return nil, protocol.ErrProtoBadRequest, "unexpected message type " + base.Type
	}
	if base.ProtocolVersion != protocol.Version {
		return nil, protocol.ErrProtoVersion, "protocol_version must be " + protocol.Version
	}
	if s.validator != nil {
		if err := s.validator.Validate(protocol.TypeInput, msg); err != nil {
			return nil, protocol.ErrProtoBadRequest, err.Error()
		}
	}
	var in protocol.InputMsg
	if err := json.Unmarshal(msg, &in); err != nil {
		return nil, protocol.ErrProtoBadRequest, err.Error()
	}
	return in.Events, "", ""
}

func (s *Server) handshake(conn *websocket.Conn) (session, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return session{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return session{}, false
	}
	if s.validator != nil {
		if err := s.validator.Validate(protocol.TypeHello, msg); err != nil {
			_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
			closeWith(conn, websocket.ClosePolicyViolation, "bad HELLO")
			return session{}, false
		}
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return session{}, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoVersion, "protocol_version must be "+protocol.Version))
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return session{}, false
	}

	out := make(chan []byte, 256)
	frames := make(chan []byte, 1)
	respCh := make(chan world.AttachResponse, 1)
	req := world.AttachRequest{
		ClientName: hello.ClientName,
		Out:        out,
		Frames:     frames,
		Resp:       respCh,
	}
	var resp world.AttachResponse
	select {
	case s.world.Attach() <- req:
	case <-s.world.Done():
		closeWith(conn, websocket.CloseGoingAway, "world stopped")
		return session{}, false
	}
	select {
	case resp = <-respCh:
	case <-s.world.Done():
		closeWith(conn, websocket.CloseGoingAway, "world stopped")
		return session{}, false
	}
	if resp.Code != "" {
		s.log.Info().Str("client", hello.ClientName).Str("code", resp.Code).Msg("attach refused")
		_ = writeJSON(conn, protocol.NewError(resp.Code, "a pilot is already attached"))
		closeWith(conn, websocket.CloseTryAgainLater, resp.Code)
		return session{}, false
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.detach(resp.Welcome.SessionID)
		return session{}, false
	}
	s.log.Info().Str("client", hello.ClientName).Str("session_id", resp.Welcome.SessionID).Msg("client attached")
	return session{id: resp.Welcome.SessionID, out: out, frames: frames, kicked: resp.Kicked}, true
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
