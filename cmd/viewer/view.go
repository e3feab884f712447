package main

import (
	"encoding/json"
	"log"

	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/mechanism"
	"drawbridge.ai/internal/sim/model"
)

// view holds display replicas of every drawbridge the server told us about.
type view struct {
	log      *log.Logger
	viewerID string
	tick     uint64
	replicas map[model.Vec3i]*mechanism.Mechanism
}

func newView(logger *log.Logger) *view {
	return &view{log: logger, replicas: map[model.Vec3i]*mechanism.Mechanism{}}
}

// handle applies one server message. It reports true on WELCOME.
func (v *view) handle(msg []byte) bool {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return false
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return false
		}
		v.viewerID = w.ViewerID
		v.tick = w.Tick
		v.logf("WELCOME viewer_id=%s world=%s tick=%d tick_rate=%d", w.ViewerID, w.WorldID, w.Tick, w.TickRateHz)
		return true

	case protocol.TypeRender:
		var r protocol.RenderMsg
		if err := json.Unmarshal(msg, &r); err != nil {
			return false
		}
		pos := model.FromArray(r.Pos)
		facing, _ := model.ParseFacing(r.Facing)
		m := v.replicas[pos]
		if m == nil {
			m = mechanism.NewReplica(pos, facing)
			v.replicas[pos] = m
		}
		m.Facing = facing
		m.ApplyRenderSync(mechanism.Stack{
			Block: mechanism.BlockSpec{ID: r.RenderSlot.Block, Meta: r.RenderSlot.Meta},
			Count: r.RenderSlot.Count,
		})
		v.tick = r.Tick
		v.logf("RENDER pos=%s facing=%s render=%s", pos, facing, r.RenderSlot.Block)

	case protocol.TypeSync:
		var s protocol.SyncMsg
		if err := json.Unmarshal(msg, &s); err != nil {
			return false
		}
		pos := model.FromArray(s.Pos)
		m := v.replicas[pos]
		if m == nil {
			// SYNC before RENDER: keep a replica with an unknown facing.
			m = mechanism.NewReplica(pos, model.Facing(0))
			v.replicas[pos] = m
		}
		m.ApplyContainerSync(mechanism.ContainerSync{Extended: s.Extended, Speed: s.Speed, NeedsRS: s.NeedsRS})
		v.tick = s.Tick
		v.logf("SYNC tick=%d pos=%s extended=%d speed=%d needsrs=%v", s.Tick, pos, m.Extended, m.Speed, m.RequiresRedstone)

	case protocol.TypeGone:
		var g protocol.GoneMsg
		if err := json.Unmarshal(msg, &g); err != nil {
			return false
		}
		delete(v.replicas, model.FromArray(g.Pos))
		v.tick = g.Tick
		v.logf("GONE pos=%s", model.FromArray(g.Pos))

	case protocol.TypeError:
		var e protocol.ErrorMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			return false
		}
		v.logf("ERROR code=%s message=%s", e.Code, e.Message)
	}
	return false
}

func (v *view) logf(format string, args ...any) {
	if v.log != nil {
		v.log.Printf(format, args...)
	}
}
