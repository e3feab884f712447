package mechanism

import (
	"testing"

	"drawbridge.ai/internal/sim/model"
)

func TestCollect_IgnoresVerticalAndGaps(t *testing.T) {
	r := registry{}
	r.add(model.Vec3i{})
	r.add(model.Vec3i{X: 1})
	r.add(model.Vec3i{Y: 1}) // vertical neighbour: not lateral
	r.add(model.Vec3i{X: 3}) // gap at X=2

	got := Collect(model.Vec3i{}, r.lookup)
	if len(got) != 1 || got[0].Pos != (model.Vec3i{X: 1}) {
		t.Fatalf("group=%v", positions(got))
	}
}

func TestCollect_RingTerminates(t *testing.T) {
	r := registry{}
	for x := 0; x < 3; x++ {
		for z := 0; z < 3; z++ {
			if x == 1 && z == 1 {
				continue
			}
			r.add(model.Vec3i{X: x, Z: z})
		}
	}
	got := Collect(model.Vec3i{}, r.lookup)
	if len(got) != 7 {
		t.Fatalf("len=%d want=7 group=%v", len(got), positions(got))
	}
	seen := map[model.Vec3i]bool{}
	for _, m := range got {
		if seen[m.Pos] {
			t.Fatalf("duplicate %v", m.Pos)
		}
		if m.Pos == (model.Vec3i{}) {
			t.Fatalf("seed returned in its own group")
		}
		seen[m.Pos] = true
	}
}

func TestCollect_DepthCap(t *testing.T) {
	r := registry{}
	for x := 0; x < 30; x++ {
		r.add(model.Vec3i{X: x})
	}
	got := Collect(model.Vec3i{}, r.lookup)
	if len(got) != MaxCollectDepth {
		t.Fatalf("len=%d want=%d", len(got), MaxCollectDepth)
	}
	last := got[len(got)-1].Pos
	if last.X != MaxCollectDepth {
		t.Fatalf("farthest=%v want X=%d", last, MaxCollectDepth)
	}
}

func TestCollect_NilLookup(t *testing.T) {
	if got := Collect(model.Vec3i{}, nil); got != nil {
		t.Fatalf("got=%v", got)
	}
}

func positions(ms []*Mechanism) []model.Vec3i {
	out := make([]model.Vec3i, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Pos)
	}
	return out
}
