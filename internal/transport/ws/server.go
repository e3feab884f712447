package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/world"
)

// World is the part of the simulation the viewer endpoint talks to.
type World interface {
	Inbox() chan<- world.InputRequest
	ViewerJoin() chan<- world.ViewerJoinRequest
	ViewerLeave() chan<- string
}

type Server struct {
	world World
	log   *log.Logger

	// AllowInputs lets viewers send INPUT messages in addition to CONFIG.
	AllowInputs bool

	upgrader websocket.Upgrader
}

func NewServer(w World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		viewerID, out := s.handshake(conn)
		if viewerID == "" {
			return
		}
		if s.log != nil {
			s.log.Printf("viewer %s attached", viewerID)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
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
			s.handleMessage(ctx, viewerID, msg, out)
		}

		// Cleanup.
		s.world.ViewerLeave() <- viewerID
		if s.log != nil {
			s.log.Printf("viewer %s detached", viewerID)
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, viewerID string, msg []byte, out chan []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		sendError(out, protocol.ErrProtoBadRequest, "malformed json")
		return
	}
	if base.ProtocolVersion != protocol.Version {
		sendError(out, protocol.ErrProtoBadRequest, "bad protocol_version")
		return
	}

	var in protocol.Input
	switch base.Type {
	case protocol.TypeConfig:
		if err := protocol.Validate(protocol.TypeConfig, msg); err != nil {
			sendError(out, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		var cfg protocol.ConfigMsg
		if err := json.Unmarshal(msg, &cfg); err != nil {
			sendError(out, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		in = protocol.Input{Kind: protocol.InputConfig, Pos: cfg.Pos, Speed: cfg.Speed, NeedsRS: cfg.NeedsRS}
	case protocol.TypeInput:
		if !s.AllowInputs {
			sendError(out, protocol.ErrBadRequest, "inputs are disabled for viewers")
			return
		}
		if err := protocol.Validate(protocol.TypeInput, msg); err != nil {
			sendError(out, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		var im protocol.InputMsg
		if err := json.Unmarshal(msg, &im); err != nil {
			sendError(out, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		in = im.Input
	default:
		sendError(out, protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
		return
	}
	in.Source = "viewer:" + viewerID

	resp := make(chan world.InputResult, 1)
	select {
	case s.world.Inbox() <- world.InputRequest{Input: in, Resp: resp}:
	default:
		sendError(out, protocol.ErrWorldBusy, "input queue full")
		return
	}
	go func() {
		select {
		case res := <-resp:
			if !res.OK() {
				sendError(out, res.Code, res.Message)
			}
		case <-ctx.Done():
		}
	}()
}

func (s *Server) handshake(conn *websocket.Conn) (viewerID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	if hello.Name == "" {
		hello.Name = "viewer"
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 32
	}
	if maxQ > 256 {
		maxQ = 256
	}
	out = make(chan []byte, maxQ)

	respCh := make(chan world.ViewerJoinResponse, 1)
	s.world.ViewerJoin() <- world.ViewerJoinRequest{Name: hello.Name, Out: out, Resp: respCh}
	resp := <-respCh
	if resp.Err != nil {
		_ = writeJSON(conn, *resp.Err)
		return "", nil
	}

	// Send welcome immediately; queued RENDER/SYNC follow through the writer.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.ViewerLeave() <- resp.Welcome.ViewerID
		return "", nil
	}
	return resp.Welcome.ViewerID, out
}

func sendError(out chan []byte, code, message string) {
	b, err := json.Marshal(protocol.NewError(code, message))
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
