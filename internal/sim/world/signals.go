package world

import (
	"sort"

	"drawbridge.ai/internal/sim/mechanism"
	"drawbridge.ai/internal/sim/model"
)

// sourceOn reports whether the block at pos emits a signal.
func (w *World) sourceOn(pos model.Vec3i) bool {
	id := w.chunks.GetBlock(pos)
	if id == w.blockSwitch {
		return w.switches[pos]
	}
	def, ok := w.catalogs.Blocks.Def(id)
	return ok && def.Source
}

// powered reports whether any face neighbour of pos is an active source.
func (w *World) powered(pos model.Vec3i) bool {
	for _, d := range model.FaceOffsets() {
		if w.sourceOn(pos.Add(d)) {
			return true
		}
	}
	return false
}

// notifyNeighbors re-evaluates power for every mechanism face-adjacent to pos.
func (w *World) notifyNeighbors(pos model.Vec3i) {
	for _, d := range model.FaceOffsets() {
		if m := w.mechanisms[pos.Add(d)]; m != nil {
			mechanism.OnNeighborSignalChanged(w, w.mechanismAt, m)
		}
	}
}

// toggleSwitch flips the switch at pos. The second result is false if pos is
// not a switch.
func (w *World) toggleSwitch(pos model.Vec3i) (bool, bool) {
	if w.chunks.GetBlock(pos) != w.blockSwitch {
		return false, false
	}
	on := !w.switches[pos]
	w.switches[pos] = on
	w.notifyNeighbors(pos)
	return on, true
}

func (w *World) sortedSwitchPositions() []model.Vec3i {
	out := make([]model.Vec3i, 0, len(w.switches))
	for p := range w.switches {
		// Guard against stale state.
		if w.chunks.GetBlock(p) != w.blockSwitch {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return model.Less(out[i], out[j]) })
	return out
}

// World satisfies mechanism.World for power evaluation triggered by inputs.
// Block writes from ticking mechanisms go through mechEnv instead.

func (w *World) IsEmpty(pos model.Vec3i) bool { return w.isEmpty(pos) }

func (w *World) BlockAt(pos model.Vec3i) mechanism.BlockSpec { return w.blockSpecAt(pos) }

func (w *World) SetBlock(pos model.Vec3i, b mechanism.BlockSpec) {
	w.writeBlock(w.tick.Load(), pos, b)
}

func (w *World) Powered(pos model.Vec3i) bool { return w.powered(pos) }
