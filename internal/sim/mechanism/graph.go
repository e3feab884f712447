package mechanism

import "drawbridge.ai/internal/sim/model"

// Collect returns the mechanisms laterally reachable from seed, excluding the
// mechanism at seed itself, in discovery order.
//
// The walk is depth-first and stops expanding MaxCollectDepth hops away from
// seed, so a straight chain longer than that is only partially collected.
// The visited set keeps rings and dense meshes finite regardless of the cap.
func Collect(seed model.Vec3i, lookup Lookup) []*Mechanism {
	if lookup == nil {
		return nil
	}
	visited := map[model.Vec3i]bool{seed: true}
	var out []*Mechanism

	var walk func(at model.Vec3i, depth int)
	walk = func(at model.Vec3i, depth int) {
		if depth >= MaxCollectDepth {
			return
		}
		for _, d := range model.LateralOffsets() {
			next := at.Add(d)
			if visited[next] {
				continue
			}
			other := lookup(next)
			if other == nil {
				continue
			}
			visited[next] = true
			out = append(out, other)
			walk(next, depth+1)
		}
	}
	walk(seed, 0)
	return out
}
