package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/catalogs"
	"drawbridge.ai/internal/sim/world"
)

func startServer(t *testing.T, allowInputs bool) (*websocket.Conn, func()) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "ws_test", TickRateHz: 50, Height: 16}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	w.StepOnce([]protocol.Input{{Kind: protocol.InputAddMechanism, Pos: [3]int{0, 1, 0}, Facing: "NORTH"}})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	srv := NewServer(w, nil)
	srv.AllowInputs = allowInputs
	hs := httptest.NewServer(srv.Handler())
	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		cancel()
		hs.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
		hs.Close()
		cancel()
	}
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil reads messages until match returns true or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(m map[string]any) bool) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if match(m) {
			return m
		}
	}
}

func hello(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, Name: "test"})
	return readUntil(t, conn, func(m map[string]any) bool { return m["type"] == protocol.TypeWelcome })
}

func TestServer_HandshakeThenChunkLoadSync(t *testing.T) {
	conn, done := startServer(t, false)
	defer done()

	welcome := hello(t, conn)
	if welcome["viewer_id"] != "V1" || welcome["world_id"] != "ws_test" {
		t.Fatalf("welcome=%v", welcome)
	}
	render := readUntil(t, conn, func(m map[string]any) bool { return true })
	if render["type"] != protocol.TypeRender || render["facing"] != "NORTH" {
		t.Fatalf("first message after WELCOME=%v want RENDER", render)
	}
	sync := readUntil(t, conn, func(m map[string]any) bool { return true })
	if sync["type"] != protocol.TypeSync || sync["extended"] != float64(0) {
		t.Fatalf("second message=%v want SYNC", sync)
	}
}

func TestServer_ConfigIsClampedAndSynced(t *testing.T) {
	conn, done := startServer(t, false)
	defer done()
	hello(t, conn)

	send(t, conn, protocol.ConfigMsg{Type: protocol.TypeConfig, ProtocolVersion: protocol.Version, Pos: [3]int{0, 1, 0}, Speed: 500, NeedsRS: true})
	sync := readUntil(t, conn, func(m map[string]any) bool {
		return m["type"] == protocol.TypeSync && m["speed"] == float64(100)
	})
	if sync["needsrs"] != true {
		t.Fatalf("sync=%v", sync)
	}
}

func TestServer_Errors(t *testing.T) {
	conn, done := startServer(t, false)
	defer done()
	hello(t, conn)

	isError := func(m map[string]any) bool { return m["type"] == protocol.TypeError }

	send(t, conn, map[string]any{"type": "CONFIG", "protocol_version": protocol.Version, "pos": []int{1, 2}})
	if e := readUntil(t, conn, isError); e["code"] != protocol.ErrProtoBadRequest {
		t.Fatalf("schema error=%v", e)
	}

	send(t, conn, protocol.ConfigMsg{Type: protocol.TypeConfig, ProtocolVersion: protocol.Version, Pos: [3]int{9, 9, 9}, Speed: 1})
	if e := readUntil(t, conn, isError); e["code"] != protocol.ErrInvalidTarget {
		t.Fatalf("target error=%v", e)
	}

	send(t, conn, protocol.InputMsg{Type: protocol.TypeInput, ProtocolVersion: protocol.Version, Input: protocol.Input{Kind: protocol.InputToggleSwitch}})
	if e := readUntil(t, conn, isError); e["code"] != protocol.ErrBadRequest {
		t.Fatalf("input error=%v", e)
	}
}

func TestServer_InputsWhenAllowed(t *testing.T) {
	conn, done := startServer(t, true)
	defer done()
	hello(t, conn)

	send(t, conn, protocol.InputMsg{
		Type:            protocol.TypeInput,
		ProtocolVersion: protocol.Version,
		Input:           protocol.Input{Kind: protocol.InputSetBlock, Pos: [3]int{0, 2, 0}, Block: "POWER_BLOCK"},
	})
	sync := readUntil(t, conn, func(m map[string]any) bool {
		return m["type"] == protocol.TypeSync && m["extended"] == float64(10)
	})
	if sync["pos"] == nil {
		t.Fatalf("sync=%v", sync)
	}
}

func TestServer_RejectsNonHello(t *testing.T) {
	conn, done := startServer(t, false)
	defer done()

	send(t, conn, protocol.ConfigMsg{Type: protocol.TypeConfig, ProtocolVersion: protocol.Version})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection close")
	}
}
