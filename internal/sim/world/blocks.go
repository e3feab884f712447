package world

import (
	"drawbridge.ai/internal/sim/mechanism"
	"drawbridge.ai/internal/sim/model"
)

func (w *World) blockName(id uint16) string { return w.catalogs.Blocks.Name(id) }

func (w *World) blockSpecAt(pos model.Vec3i) mechanism.BlockSpec {
	id := w.chunks.GetBlock(pos)
	if id == w.blockAir {
		return mechanism.BlockSpec{}
	}
	return mechanism.BlockSpec{ID: w.blockName(id), Meta: w.meta[pos]}
}

// isEmpty reports air or a liquid placeholder.
func (w *World) isEmpty(pos model.Vec3i) bool {
	id := w.chunks.GetBlock(pos)
	if id == w.blockAir {
		return true
	}
	def, ok := w.catalogs.Blocks.Def(id)
	return ok && def.Liquid
}

// resolveSpec maps a BlockSpec to a palette id. Unknown ids resolve to air.
func (w *World) resolveSpec(b mechanism.BlockSpec) (uint16, bool) {
	if b.IsZero() {
		return w.blockAir, true
	}
	id, ok := w.catalogs.Blocks.ID(b.ID)
	if !ok {
		return w.blockAir, false
	}
	return id, true
}

// writeBlock stores b at pos and drops switch or mechanism state of the cell
// it replaces. It does not notify neighbours. It returns the previous and new
// palette ids.
func (w *World) writeBlock(nowTick uint64, pos model.Vec3i, b mechanism.BlockSpec) (from, to uint16, ok bool) {
	from = w.chunks.GetBlock(pos)
	to, _ = w.resolveSpec(b)
	if !w.chunks.SetBlock(pos, to) {
		return from, from, false
	}
	if to == w.blockAir || b.Meta == 0 {
		delete(w.meta, pos)
	} else {
		w.meta[pos] = b.Meta
	}
	if from == w.blockSwitch && to != w.blockSwitch {
		delete(w.switches, pos)
	}
	if to == w.blockSwitch && from != w.blockSwitch {
		w.switches[pos] = false
	}
	if from == w.blockDrawbridge && to != w.blockDrawbridge {
		w.dropMechanism(nowTick, pos)
	}
	return from, to, true
}

// mechEnv is the grid as seen by one ticking mechanism. Writes are audited
// against that mechanism and never notify neighbours.
type mechEnv struct {
	w     *World
	tick  uint64
	actor string
}

func (e *mechEnv) IsEmpty(pos model.Vec3i) bool { return e.w.isEmpty(pos) }

func (e *mechEnv) BlockAt(pos model.Vec3i) mechanism.BlockSpec { return e.w.blockSpecAt(pos) }

func (e *mechEnv) Powered(pos model.Vec3i) bool { return e.w.powered(pos) }

func (e *mechEnv) SetBlock(pos model.Vec3i, b mechanism.BlockSpec) {
	prevMeta := e.w.meta[pos]
	from, to, ok := e.w.writeBlock(e.tick, pos, b)
	if !ok || (from == to && prevMeta == b.Meta) {
		return
	}
	action := AuditMechPlace
	if b.IsZero() && from != e.w.blockAir {
		if def, ok := e.w.catalogs.Blocks.Def(from); !ok || !def.Liquid {
			action = AuditMechPickup
		}
	}
	e.w.auditSetBlock(e.tick, e.actor, action, pos, from, to, "")
}

func mechanismActor(pos model.Vec3i) string { return "MECH@" + pos.String() }
