package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/world"
)

// worldRuntime is what the HTTP handlers need from the running world.
type worldRuntime interface {
	ID() string
	CurrentTick() uint64
	Metrics() world.WorldMetrics
	Inbox() chan<- world.InputRequest
	RequestSnapshot(ctx context.Context) (uint64, error)
}

func registerHandlers(mux *http.ServeMux, w worldRuntime, idx runtimeIndex, logger *log.Logger) {
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(w, idx))

	if !envBool("DB_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		logger.Printf("admin endpoints disabled (DB_ENABLE_ADMIN_HTTP=false)")
		return
	}
	// Local-only admin endpoints.
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		resp := struct {
			WorldID string             `json:"world_id"`
			Tick    uint64             `json:"tick"`
			Metrics world.WorldMetrics `json:"metrics"`
		}{
			WorldID: w.ID(),
			Tick:    w.CurrentTick(),
			Metrics: w.Metrics(),
		}
		_ = json.NewEncoder(rw).Encode(resp)
	})
	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel2()
		tick, err := w.RequestSnapshot(ctx2)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick})
	})
	mux.HandleFunc("/admin/v1/input", inputHandler(w))
}

// inputHandler accepts one INPUT message and answers once the world applied it.
func inputHandler(w worldRuntime) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
		if err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		if err := protocol.Validate(protocol.TypeInput, body); err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		var msg protocol.InputMsg
		if err := json.Unmarshal(body, &msg); err != nil {
			writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, err.Error())
			return
		}
		if msg.ProtocolVersion != protocol.Version {
			writeError(rw, http.StatusBadRequest, protocol.ErrProtoBadRequest, "bad protocol_version")
			return
		}
		if msg.Input.Source == "" {
			msg.Input.Source = "admin"
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		resp := make(chan world.InputResult, 1)
		select {
		case w.Inbox() <- world.InputRequest{Input: msg.Input, Resp: resp}:
		case <-ctx.Done():
			writeError(rw, http.StatusServiceUnavailable, protocol.ErrWorldBusy, "input queue full")
			return
		}
		select {
		case res := <-resp:
			if !res.OK() {
				rw.WriteHeader(http.StatusConflict)
			}
			_ = json.NewEncoder(rw).Encode(res)
		case <-ctx.Done():
			writeError(rw, http.StatusGatewayTimeout, protocol.ErrWorldBusy, "world did not apply input in time")
		}
	}
}

func writeError(rw http.ResponseWriter, status int, code, message string) {
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(protocol.NewError(code, message))
}

func metricsHandler(w worldRuntime, idx runtimeIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		id := w.ID()
		m := w.Metrics()
		tick := w.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP drawbridge_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE drawbridge_world_tick gauge\n")
		fmt.Fprintf(rw, "drawbridge_world_tick{world=%q} %d\n", id, tick)

		fmt.Fprintf(rw, "# HELP drawbridge_world_mechanisms Registered drawbridges.\n")
		fmt.Fprintf(rw, "# TYPE drawbridge_world_mechanisms gauge\n")
		fmt.Fprintf(rw, "drawbridge_world_mechanisms{world=%q} %d\n", id, m.Mechanisms)

		fmt.Fprintf(rw, "# HELP drawbridge_world_viewers Connected viewers.\n")
		fmt.Fprintf(rw, "# TYPE drawbridge_world_viewers gauge\n")
		fmt.Fprintf(rw, "drawbridge_world_viewers{world=%q} %d\n", id, m.Viewers)

		fmt.Fprintf(rw, "# HELP drawbridge_world_loaded_chunks Loaded chunk count.\n")
		fmt.Fprintf(rw, "# TYPE drawbridge_world_loaded_chunks gauge\n")
		fmt.Fprintf(rw, "drawbridge_world_loaded_chunks{world=%q} %d\n", id, m.LoadedChunks)

		fmt.Fprintf(rw, "# HELP drawbridge_world_steps Block steps taken by mechanisms in the last tick.\n")
		fmt.Fprintf(rw, "# TYPE drawbridge_world_steps gauge\n")
		fmt.Fprintf(rw, "drawbridge_world_steps{world=%q} %d\n", id, m.Steps)

		fmt.Fprintf(rw, "# HELP drawbridge_world_inputs Inputs handled in the last tick.\n")
		fmt.Fprintf(rw, "# TYPE drawbridge_world_inputs gauge\n")
		fmt.Fprintf(rw, "drawbridge_world_inputs{world=%q,result=%q} %d\n", id, "applied", m.InputsApplied)
		fmt.Fprintf(rw, "drawbridge_world_inputs{world=%q,result=%q} %d\n", id, "rejected", m.InputsRejected)

		fmt.Fprintf(rw, "# HELP drawbridge_world_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE drawbridge_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "drawbridge_world_queue_depth{world=%q,queue=%q} %d\n", id, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "drawbridge_world_queue_depth{world=%q,queue=%q} %d\n", id, "viewer_join", m.QueueDepths.ViewerJoin)
		fmt.Fprintf(rw, "drawbridge_world_queue_depth{world=%q,queue=%q} %d\n", id, "viewer_leave", m.QueueDepths.ViewerLeave)

		fmt.Fprintf(rw, "# HELP drawbridge_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE drawbridge_world_step_ms gauge\n")
		fmt.Fprintf(rw, "drawbridge_world_step_ms{world=%q} %.3f\n", id, m.StepMS)

		if idx == nil {
			return
		}
		s := idx.Stats()
		fmt.Fprintf(rw, "# HELP drawbridge_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(rw, "# TYPE drawbridge_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "drawbridge_index_queue_depth %d\n", s.QueueDepth)
		fmt.Fprintf(rw, "# HELP drawbridge_index_dropped_total Index writes dropped on a full queue.\n")
		fmt.Fprintf(rw, "# TYPE drawbridge_index_dropped_total counter\n")
		fmt.Fprintf(rw, "drawbridge_index_dropped_total{kind=%q} %d\n", "tick", s.DropTickTotal)
		fmt.Fprintf(rw, "drawbridge_index_dropped_total{kind=%q} %d\n", "audit", s.DropAuditTotal)
		fmt.Fprintf(rw, "drawbridge_index_dropped_total{kind=%q} %d\n", "snapshot", s.DropSnapshotTotal)
	}
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
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
