package main

import (
	"encoding/json"
	"testing"

	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/model"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestView_RenderSyncGone(t *testing.T) {
	v := newView(nil)
	pos := [3]int{0, 1, 0}

	if !v.handle(mustJSON(t, protocol.WelcomeMsg{Type: protocol.TypeWelcome, ViewerID: "V1", Tick: 3})) {
		t.Fatalf("WELCOME not reported")
	}
	v.handle(mustJSON(t, protocol.RenderMsg{
		Type: protocol.TypeRender, Tick: 3, Pos: pos, Facing: "EAST",
		RenderSlot: protocol.ItemStack{Block: "PLANKS", Count: 1},
	}))
	m := v.replicas[model.FromArray(pos)]
	if m == nil || !m.Replica {
		t.Fatalf("replica missing: %+v", m)
	}
	if m.Facing != model.East || m.RenderSlot.Block.ID != "PLANKS" {
		t.Fatalf("render not applied: facing=%v slot=%+v", m.Facing, m.RenderSlot)
	}

	v.handle(mustJSON(t, protocol.SyncMsg{Type: protocol.TypeSync, Tick: 4, Pos: pos, Extended: 12, Speed: 5, NeedsRS: false}))
	if m.Extended != 10 || m.Speed != 5 || m.RequiresRedstone {
		t.Fatalf("sync: extended=%d speed=%d needsrs=%v", m.Extended, m.Speed, m.RequiresRedstone)
	}

	// An empty render slot keeps the previous one.
	v.handle(mustJSON(t, protocol.RenderMsg{Type: protocol.TypeRender, Tick: 5, Pos: pos, Facing: "EAST"}))
	if m.RenderSlot.Block.ID != "PLANKS" {
		t.Fatalf("empty render overwrote slot: %+v", m.RenderSlot)
	}

	v.handle(mustJSON(t, protocol.GoneMsg{Type: protocol.TypeGone, Tick: 6, Pos: pos}))
	if len(v.replicas) != 0 {
		t.Fatalf("replicas=%d want=0", len(v.replicas))
	}
	if v.tick != 6 {
		t.Fatalf("tick=%d want=6", v.tick)
	}
}

func TestView_IgnoresGarbage(t *testing.T) {
	v := newView(nil)
	if v.handle([]byte("not json")) {
		t.Fatalf("garbage reported as WELCOME")
	}
	if len(v.replicas) != 0 {
		t.Fatalf("replicas=%d", len(v.replicas))
	}
}

func TestParsePos(t *testing.T) {
	got, err := parsePos(" 1, -2 ,3")
	if err != nil || got != [3]int{1, -2, 3} {
		t.Fatalf("parsePos=%v err=%v", got, err)
	}
	if _, err := parsePos("1,2"); err == nil {
		t.Fatalf("expected error")
	}
}
