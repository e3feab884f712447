package world

import (
	"sort"

	"drawbridge.ai/internal/sim/mechanism"
	"drawbridge.ai/internal/sim/model"
)

// mechanismAt is the registry lookup handed to the mechanism package.
func (w *World) mechanismAt(pos model.Vec3i) *mechanism.Mechanism {
	return w.mechanisms[pos]
}

// MechanismAt returns the mechanism at pos, or nil. World loop goroutine only.
func (w *World) MechanismAt(pos model.Vec3i) *mechanism.Mechanism {
	return w.mechanisms[pos]
}

func (w *World) sortedMechanismPositions() []model.Vec3i {
	out := make([]model.Vec3i, 0, len(w.mechanisms))
	for p := range w.mechanisms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return model.Less(out[i], out[j]) })
	return out
}

// addMechanism places a drawbridge block at pos, registers a fresh instance and
// evaluates its power state. It returns nil if pos already hosts one or is
// outside the grid.
func (w *World) addMechanism(nowTick uint64, actor string, pos model.Vec3i, facing model.Facing) *mechanism.Mechanism {
	if w.mechanisms[pos] != nil || !w.chunks.inBounds(pos) {
		return nil
	}
	from, to, _ := w.writeBlock(nowTick, pos, mechanism.BlockSpec{ID: "DRAWBRIDGE"})
	m := mechanism.New(pos, facing)
	w.mechanisms[pos] = m
	mechanism.OnNeighborSignalChanged(w, w.mechanismAt, m)
	w.auditEvent(nowTick, actor, AuditMechAdd, pos, "", map[string]any{
		"facing": facing.String(),
		"from":   from,
		"to":     to,
	})
	w.broadcastRender(nowTick, m)
	w.pushSync(nowTick, m)
	return m
}

// removeMechanism unregisters the mechanism at pos and clears its block.
// Buffered blocks are discarded.
func (w *World) removeMechanism(nowTick uint64, actor string, pos model.Vec3i) bool {
	m := w.mechanisms[pos]
	if m == nil {
		return false
	}
	discarded := !m.Buffer.IsEmpty()
	m.Buffer.Clear()
	from, to, _ := w.writeBlock(nowTick, pos, mechanism.BlockSpec{})
	if w.mechanisms[pos] != nil {
		// Block was already gone; drop the registration directly.
		w.dropMechanism(nowTick, pos)
	}
	w.auditEvent(nowTick, actor, AuditMechRemove, pos, "", map[string]any{
		"from":      from,
		"to":        to,
		"discarded": discarded,
	})
	return true
}

// dropMechanism forgets the instance at pos and tells viewers.
func (w *World) dropMechanism(nowTick uint64, pos model.Vec3i) {
	if w.mechanisms[pos] == nil {
		return
	}
	delete(w.mechanisms, pos)
	delete(w.lastSync, pos)
	w.broadcastGone(nowTick, pos)
}

// systemMechanisms advances every mechanism once in ascending position order.
func (w *World) systemMechanisms(nowTick uint64) int {
	steps := 0
	for _, p := range w.sortedMechanismPositions() {
		m := w.mechanisms[p]
		if m == nil {
			// Removed earlier this tick by another mechanism's pickup.
			continue
		}
		env := &mechEnv{w: w, tick: nowTick, actor: mechanismActor(p)}
		steps += m.Tick(env)
	}
	return steps
}

// applyConfig applies a viewer CONFIG to the mechanism at pos.
func (w *World) applyConfig(nowTick uint64, actor string, pos model.Vec3i, cfg mechanism.ViewerConfig) bool {
	m := w.mechanisms[pos]
	if m == nil {
		return false
	}
	prev := m.ViewerConfig()
	mechanism.ApplyViewerConfig(w, w.mechanismAt, m, cfg)
	w.auditEvent(nowTick, actor, AuditMechConfig, pos, "", map[string]any{
		"speed":        m.Speed,
		"needsrs":      m.RequiresRedstone,
		"prev_speed":   prev.Speed,
		"prev_needsrs": prev.NeedsRS,
	})
	return true
}

// InsertItem offers a stack to a mechanism's buffer from outside. Buffers
// accept no external items, so this always reports false.
func (w *World) InsertItem(pos model.Vec3i, slot int, s mechanism.Stack) bool {
	m := w.mechanisms[pos]
	if m == nil || slot < 0 || slot >= m.Buffer.Size() {
		return false
	}
	if !m.Buffer.IsItemValid(slot, s) {
		return false
	}
	m.Buffer.Set(slot, s)
	m.MarkDirty()
	return true
}
