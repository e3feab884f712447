package mechanism

import (
	"encoding/json"
	"strconv"
	"testing"

	"drawbridge.ai/internal/sim/model"
)

func TestRecord_RestoreReproducesState(t *testing.T) {
	w := newFakeWorld()
	m := New(model.Vec3i{X: 2, Y: 3, Z: 4}, model.East)
	fillBuffer(m)
	m.Speed = 1
	m.Powered = true
	w.blocks[m.Target(2)] = BlockSpec{ID: "STONE"}
	for i := 0; i < 4; i++ {
		m.Tick(w)
	}
	m.RequiresRedstone = false
	m.SetRenderSlot(Stack{Block: BlockSpec{ID: "GLASS", Meta: 2}, Count: 3})

	raw, err := json.Marshal(m.Record())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := New(m.Pos, m.Facing)
	got.Restore(rec)
	if got.Powered != m.Powered || got.Extended != m.Extended || got.Speed != m.Speed || got.RequiresRedstone != m.RequiresRedstone {
		t.Fatalf("scalars got=%+v want=%+v", got.ContainerSync(), m.ContainerSync())
	}
	if got.PlacedByUs != m.PlacedByUs {
		t.Fatalf("placedByUs got=%v want=%v", got.PlacedByUs, m.PlacedByUs)
	}
	for i := 0; i < Capacity; i++ {
		if got.Buffer.Get(i) != m.Buffer.Get(i) {
			t.Fatalf("slot %d got=%+v want=%+v", i, got.Buffer.Get(i), m.Buffer.Get(i))
		}
	}
	if got.RenderSlot != m.RenderSlot || got.RenderSlot.Count != 1 {
		t.Fatalf("render got=%+v want=%+v", got.RenderSlot, m.RenderSlot)
	}
}

func TestRecord_UsesStableKeys(t *testing.T) {
	m := New(model.Vec3i{}, model.North)
	raw, err := json.Marshal(m.Record())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"powered", "extended", "speed", "needsrs", "ourBlocks", "renderSlot", "Items"} {
		if _, ok := fields[k]; !ok {
			t.Fatalf("missing key %q in %s", k, raw)
		}
	}
}

func TestRestore_MissingFlagsReadFalseAndClamps(t *testing.T) {
	m := New(model.Vec3i{}, model.North)
	m.PlacedByUs = [Capacity]bool{true, true, true}
	m.Restore(Record{
		Extended:  42,
		Speed:     -3,
		NeedsRS:   true,
		OurBlocks: map[string]bool{"1": true, "x": true},
	})
	want := [Capacity]bool{false, true}
	if m.PlacedByUs != want {
		t.Fatalf("placedByUs=%v want=%v", m.PlacedByUs, want)
	}
	if m.Extended != Capacity || m.Speed != 0 {
		t.Fatalf("extended=%d speed=%d", m.Extended, m.Speed)
	}
	if m.Dirty() {
		t.Fatalf("restore should leave the mechanism clean")
	}
}

func TestRestore_DropsPlacedFlagsPastExtension(t *testing.T) {
	m := New(model.Vec3i{}, model.East)
	flags := map[string]bool{}
	for i := 0; i < Capacity; i++ {
		flags[strconv.Itoa(i)] = true
	}
	m.Restore(Record{Extended: 2, OurBlocks: flags})
	want := [Capacity]bool{true, true}
	if m.PlacedByUs != want {
		t.Fatalf("placedByUs=%v want=%v", m.PlacedByUs, want)
	}

	m.Restore(Record{Extended: -4, OurBlocks: flags})
	if m.Extended != 0 || m.PlacedByUs != [Capacity]bool{} {
		t.Fatalf("extended=%d placedByUs=%v want all clear", m.Extended, m.PlacedByUs)
	}
}

func TestRenderSync_EmptyKeepsCurrent(t *testing.T) {
	m := NewReplica(model.Vec3i{}, model.North)
	m.ApplyRenderSync(One(BlockSpec{ID: "PLANKS"}))
	m.ApplyRenderSync(Stack{})
	if m.RenderSync().Block.ID != "PLANKS" {
		t.Fatalf("render=%+v", m.RenderSync())
	}
}

func TestViewerConfigMirrorsSettings(t *testing.T) {
	m := New(model.Vec3i{}, model.North)
	m.SetSpeed(500)
	m.RequiresRedstone = false
	cfg := m.ViewerConfig()
	if cfg.Speed != MaxSpeed || cfg.NeedsRS {
		t.Fatalf("cfg=%+v", cfg)
	}
}
