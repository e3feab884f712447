package world

import (
	"context"
	"time"

	"drawbridge.ai/internal/protocol"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingInputs []InputRequest
	var pendingAdmin []adminSnapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.viewerJoin:
			w.handleViewerJoin(req)
		case id := <-w.viewerLeave:
			w.handleViewerLeave(id)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case req := <-w.inbox:
			pendingInputs = append(pendingInputs, req)
		case <-ticker.C:
			w.step(pendingInputs)
			w.handleAdminSnapshotRequests(pendingAdmin)
			pendingInputs = pendingInputs[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce(inputs []protocol.Input) (tick uint64, digest string) {
	reqs := make([]InputRequest, 0, len(inputs))
	for _, in := range inputs {
		reqs = append(reqs, InputRequest{Input: in})
	}
	tick = w.tick.Load()
	digest = w.step(reqs)
	return tick, digest
}

// step applies queued inputs in arrival order, advances every mechanism, pushes
// viewer sync and writes the tick log. It returns the post-step state digest.
func (w *World) step(reqs []InputRequest) string {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	recorded := make([]protocol.Input, 0, len(reqs))
	rejected := 0
	for _, r := range reqs {
		res := w.applyInput(nowTick, r.Input)
		if res.OK() {
			recorded = append(recorded, r.Input)
		} else {
			rejected++
		}
		if r.Resp != nil {
			select {
			case r.Resp <- res:
			default:
			}
		}
	}

	steps := w.systemMechanisms(nowTick)
	w.systemSync(nowTick)

	digest := w.stateDigest(nowTick)
	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Inputs: recorded, Digest: digest})
	}

	// Snapshot every N ticks, starting after tick 0.
	if w.snapshotSink != nil && nowTick != 0 && w.cfg.SnapshotEveryTicks > 0 {
		if nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
			snap := w.ExportSnapshot(nowTick)
			select {
			case w.snapshotSink <- snap:
			default:
				// Drop snapshot if sink is backed up.
			}
		}
	}

	nextTick := w.tick.Add(1)
	w.metrics.Store(WorldMetrics{
		Tick:           nextTick,
		Mechanisms:     len(w.mechanisms),
		Switches:       len(w.switches),
		Viewers:        len(w.viewers),
		LoadedChunks:   len(w.chunks.chunks),
		Steps:          steps,
		InputsApplied:  len(recorded),
		InputsRejected: rejected,
		QueueDepths: QueueDepths{
			Inbox:       len(w.inbox),
			ViewerJoin:  len(w.viewerJoin),
			ViewerLeave: len(w.viewerLeave),
		},
		StepMS: float64(time.Since(stepStart).Microseconds()) / 1000.0,
	})
	return digest
}
