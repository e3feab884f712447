package mechanism

import (
	"testing"

	"drawbridge.ai/internal/sim/model"
)

func TestEngine_InstantExtendPlacesWholeBuffer(t *testing.T) {
	w := newFakeWorld()
	m := New(model.Vec3i{}, model.East)
	fillBuffer(m)
	w.powered[m.Pos] = true
	OnNeighborSignalChanged(w, nil, m)

	if steps := m.Tick(w); steps != Capacity {
		t.Fatalf("steps=%d want=%d", steps, Capacity)
	}
	if m.Extended != Capacity {
		t.Fatalf("extended=%d want=%d", m.Extended, Capacity)
	}
	for i := 0; i < Capacity; i++ {
		if got := w.blocks[m.Target(i)]; got != plank(i) {
			t.Fatalf("cell %d=%+v want=%+v", i, got, plank(i))
		}
		if !m.PlacedByUs[i] {
			t.Fatalf("placedByUs[%d]=false", i)
		}
	}
	if !m.Buffer.IsEmpty() {
		t.Fatalf("buffer should be empty after full extension")
	}
	if !m.Dirty() {
		t.Fatalf("expected dirty after extension")
	}
}

func TestEngine_InstantRetractRefillsBuffer(t *testing.T) {
	w := newFakeWorld()
	m := New(model.Vec3i{}, model.East)
	fillBuffer(m)
	m.Powered = true
	m.Tick(w)

	m.Powered = false
	m.Tick(w)
	if m.Extended != 0 {
		t.Fatalf("extended=%d want=0", m.Extended)
	}
	for i := 0; i < Capacity; i++ {
		if !w.IsEmpty(m.Target(i)) {
			t.Fatalf("cell %d still occupied by %+v", i, w.blocks[m.Target(i)])
		}
		if got := m.Buffer.Get(i); got.Block != plank(i) || got.Count != 1 {
			t.Fatalf("slot %d=%+v want=%+v", i, got, plank(i))
		}
	}
}

func TestEngine_ObstructedCellIsSkipped(t *testing.T) {
	w := newFakeWorld()
	m := New(model.Vec3i{}, model.South)
	fillBuffer(m)
	m.Speed = 5
	m.Powered = true
	rock := BlockSpec{ID: "BEDROCK"}
	w.blocks[m.Target(0)] = rock

	m.Tick(w)
	if m.Extended != 1 {
		t.Fatalf("extended=%d want=1", m.Extended)
	}
	if m.PlacedByUs[0] {
		t.Fatalf("placedByUs[0] should be false")
	}
	if got := m.Buffer.Get(0); got.Block != plank(0) {
		t.Fatalf("slot 0 consumed: %+v", got)
	}
	if w.blocks[m.Target(0)] != rock {
		t.Fatalf("obstruction replaced")
	}

	// Retracting over the obstruction leaves it alone.
	m.Powered = false
	m.Speed = 0
	for i := 0; i < 8 && m.Extended > 0; i++ {
		m.Tick(w)
	}
	if m.Extended != 0 {
		t.Fatalf("extended=%d want=0", m.Extended)
	}
	if w.blocks[m.Target(0)] != rock {
		t.Fatalf("retract removed a block it did not place")
	}
}

func TestEngine_LiquidCountsAsEmpty(t *testing.T) {
	w := newFakeWorld()
	m := New(model.Vec3i{}, model.Up)
	fillBuffer(m)
	m.Speed = 4
	m.Powered = true
	w.blocks[m.Target(0)] = BlockSpec{ID: "WATER"}

	m.Tick(w)
	if w.blocks[m.Target(0)] != plank(0) || !m.PlacedByUs[0] {
		t.Fatalf("liquid not displaced: cell=%+v placed=%v", w.blocks[m.Target(0)], m.PlacedByUs[0])
	}
}

func TestEngine_SpeedSpacesSteps(t *testing.T) {
	w := newFakeWorld()
	m := New(model.Vec3i{}, model.West)
	m.Speed = 3
	m.Powered = true

	want := []int{1, 1, 2, 2, 3}
	for i, n := range want {
		m.Tick(w)
		if m.Extended != n {
			t.Fatalf("tick %d: extended=%d want=%d", i+1, m.Extended, n)
		}
	}
}

func TestEngine_SpeedOneStepsEveryTick(t *testing.T) {
	w := newFakeWorld()
	m := New(model.Vec3i{}, model.West)
	m.Speed = 1
	m.Powered = true
	for i := 1; i <= Capacity+3; i++ {
		m.Tick(w)
		want := i
		if want > Capacity {
			want = Capacity
		}
		if m.Extended != want {
			t.Fatalf("tick %d: extended=%d want=%d", i, m.Extended, want)
		}
	}
}

func TestEngine_IdleTickIsNoop(t *testing.T) {
	w := newFakeWorld()
	m := New(model.Vec3i{}, model.North)
	fillBuffer(m)
	m.Powered = true
	m.Tick(w)
	writes := w.writes
	before := m.Record()
	m.ClearDirty()

	for i := 0; i < 5; i++ {
		if steps := m.Tick(w); steps != 0 {
			t.Fatalf("steps=%d want=0", steps)
		}
	}
	if w.writes != writes {
		t.Fatalf("writes=%d want=%d", w.writes, writes)
	}
	if m.Dirty() {
		t.Fatalf("idle tick marked dirty")
	}
	after := m.Record()
	for i := range before.Items {
		if before.Items[i] != after.Items[i] {
			t.Fatalf("slot %d changed", i)
		}
	}

	fresh := New(model.Vec3i{X: 50}, model.North)
	if steps := fresh.Tick(w); steps != 0 || fresh.State() != Idle {
		t.Fatalf("fresh unpowered mechanism moved: steps=%d state=%s", steps, fresh.State())
	}
}

func TestEngine_ExtendedStaysInRange(t *testing.T) {
	w := newFakeWorld()
	m := New(model.Vec3i{}, model.East)
	m.Speed = 2
	for i := 0; i < 200; i++ {
		m.Powered = (i/17)%2 == 0
		m.Tick(w)
		if m.Extended < 0 || m.Extended > Capacity {
			t.Fatalf("tick %d: extended=%d", i, m.Extended)
		}
	}
}

func TestEngine_ReplicaNeverTicks(t *testing.T) {
	w := newFakeWorld()
	m := NewReplica(model.Vec3i{}, model.East)
	m.Powered = true
	if steps := m.Tick(w); steps != 0 || m.Extended != 0 || w.writes != 0 {
		t.Fatalf("replica moved: steps=%d extended=%d writes=%d", steps, m.Extended, w.writes)
	}
	m.ApplyContainerSync(ContainerSync{Extended: 4, Speed: 7, NeedsRS: false})
	if m.Extended != 4 || m.Speed != 7 || m.RequiresRedstone {
		t.Fatalf("replica sync=%+v", m.ContainerSync())
	}
}

func TestState(t *testing.T) {
	m := New(model.Vec3i{}, model.East)
	if m.State() != Idle {
		t.Fatalf("state=%s", m.State())
	}
	m.Powered = true
	if m.State() != Extending {
		t.Fatalf("state=%s", m.State())
	}
	m.Extended = Capacity
	if m.State() != Idle || !m.IsExtended() {
		t.Fatalf("state=%s", m.State())
	}
	m.Powered = false
	if m.State() != Retracting {
		t.Fatalf("state=%s", m.State())
	}
}
