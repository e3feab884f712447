package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"drawbridge.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "viewer", "viewer name")
		maxQueue = flag.Int("max_queue", 32, "requested outbound queue size")

		configPos = flag.String("config_pos", "", "x,y,z of a drawbridge to configure after WELCOME (optional)")
		speed     = flag.Int("speed", 0, "speed to send with -config_pos")
		needsRS   = flag.Bool("needsrs", true, "requiresRedstone to send with -config_pos")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[viewer] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Name:            *name,
		MaxQueue:        *maxQueue,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	var cfg *protocol.ConfigMsg
	if strings.TrimSpace(*configPos) != "" {
		pos, err := parsePos(*configPos)
		if err != nil {
			logger.Fatalf("bad -config_pos: %v", err)
		}
		cfg = &protocol.ConfigMsg{
			Type:            protocol.TypeConfig,
			ProtocolVersion: protocol.Version,
			Pos:             pos,
			Speed:           *speed,
			NeedsRS:         *needsRS,
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	v := newView(logger)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		welcomed := v.handle(msg)
		if welcomed && cfg != nil {
			if err := conn.WriteJSON(cfg); err != nil {
				logger.Printf("send CONFIG: %v", err)
			}
		}
	}
}

func parsePos(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, strconv.ErrSyntax
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, err
		}
		out[i] = n
	}
	return out, nil
}
