package world

import (
	"encoding/json"
	"fmt"
	"sort"

	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/mechanism"
	"drawbridge.ai/internal/sim/model"
)

type viewerState struct {
	ID   string
	Name string
	Out  chan []byte
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func (w *World) handleViewerJoin(req ViewerJoinRequest) {
	nowTick := w.tick.Load()
	if w.cfg.MaxViewers > 0 && len(w.viewers) >= w.cfg.MaxViewers {
		e := protocol.NewError(protocol.ErrWorldBusy, "viewer limit reached")
		if req.Resp != nil {
			req.Resp <- ViewerJoinResponse{Err: &e}
		}
		return
	}
	n := w.nextViewerNum.Add(1)
	v := &viewerState{ID: fmt.Sprintf("V%d", n), Name: req.Name, Out: req.Out}
	w.viewers[v.ID] = v

	if req.Resp != nil {
		req.Resp <- ViewerJoinResponse{Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			ViewerID:        v.ID,
			WorldID:         w.cfg.ID,
			Tick:            nowTick,
			TickRateHz:      w.cfg.TickRateHz,
			BlockPalette: protocol.DigestRef{
				Digest: w.catalogs.Blocks.PaletteDigest,
				Count:  len(w.catalogs.Blocks.Palette),
			},
		}}
	}

	// Chunk-load sync: render slot first, then the container view.
	if v.Out == nil {
		return
	}
	for _, p := range w.sortedMechanismPositions() {
		m := w.mechanisms[p]
		if b, err := json.Marshal(renderMsg(nowTick, m)); err == nil {
			sendLatest(v.Out, b)
		}
		if b, err := json.Marshal(syncMsg(nowTick, m)); err == nil {
			sendLatest(v.Out, b)
		}
	}
}

func (w *World) handleViewerLeave(id string) {
	delete(w.viewers, id)
}

func renderMsg(nowTick uint64, m *mechanism.Mechanism) protocol.RenderMsg {
	return protocol.RenderMsg{
		Type:       protocol.TypeRender,
		Tick:       nowTick,
		Pos:        m.Pos.ToArray(),
		Facing:     m.Facing.String(),
		RenderSlot: stackToItem(m.RenderSync()),
	}
}

func syncMsg(nowTick uint64, m *mechanism.Mechanism) protocol.SyncMsg {
	s := m.ContainerSync()
	return protocol.SyncMsg{
		Type:     protocol.TypeSync,
		Tick:     nowTick,
		Pos:      m.Pos.ToArray(),
		Extended: s.Extended,
		Speed:    s.Speed,
		NeedsRS:  s.NeedsRS,
	}
}

func (w *World) broadcast(v any) {
	if len(w.viewers) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	for _, id := range w.sortedViewerIDs() {
		if out := w.viewers[id].Out; out != nil {
			sendLatest(out, b)
		}
	}
}

func (w *World) broadcastRender(nowTick uint64, m *mechanism.Mechanism) {
	w.broadcast(renderMsg(nowTick, m))
}

func (w *World) broadcastGone(nowTick uint64, pos model.Vec3i) {
	w.broadcast(protocol.GoneMsg{Type: protocol.TypeGone, Tick: nowTick, Pos: pos.ToArray()})
}

// pushSync sends SYNC for m if its container view changed since the last push.
func (w *World) pushSync(nowTick uint64, m *mechanism.Mechanism) {
	s := m.ContainerSync()
	if last, ok := w.lastSync[m.Pos]; ok && last == s {
		return
	}
	w.lastSync[m.Pos] = s
	w.broadcast(syncMsg(nowTick, m))
}

// systemSync pushes SYNC for every mechanism whose durable state changed this
// tick, in position order.
func (w *World) systemSync(nowTick uint64) {
	for _, p := range w.sortedMechanismPositions() {
		m := w.mechanisms[p]
		if !m.Dirty() {
			continue
		}
		w.pushSync(nowTick, m)
		m.ClearDirty()
	}
}

func (w *World) sortedViewerIDs() []string {
	ids := make([]string, 0, len(w.viewers))
	for id := range w.viewers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
