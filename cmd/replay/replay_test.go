package main

import (
	"path/filepath"
	"strings"
	"testing"

	persistlog "drawbridge.ai/internal/persistence/log"
	"drawbridge.ai/internal/persistence/snapshot"
	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/catalogs"
	"drawbridge.ai/internal/sim/world"
)

// recordRun steps a fresh world, snapshots it after tick 0 and logs the
// following ticks. It returns the snapshot and the events files.
func recordRun(t *testing.T, cats *catalogs.Catalogs, script map[uint64][]protocol.Input, ticks uint64) (snapshot.SnapshotV1, []string) {
	t.Helper()
	w, err := world.New(world.WorldConfig{ID: "replay_test", TickRateHz: 20, Height: 16}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	w.StepOnce(script[0])
	snap := w.ExportSnapshot(0)

	dir := t.TempDir()
	tl := persistlog.NewTickLogger(dir)
	w.SetTickLogger(tl)
	for w.CurrentTick() <= ticks {
		w.StepOnce(script[w.CurrentTick()])
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close tick log: %v", err)
	}

	files, err := persistlog.ListFiles(filepath.Join(dir, "events"), "events")
	if err != nil || len(files) == 0 {
		t.Fatalf("events files=%v err=%v", files, err)
	}
	return snap, files
}

func testScript() map[uint64][]protocol.Input {
	return map[uint64][]protocol.Input{
		0: {
			{Kind: protocol.InputAddMechanism, Pos: [3]int{0, 1, 0}, Facing: "EAST"},
			{Kind: protocol.InputSetBlock, Pos: [3]int{0, 1, -1}, Block: "SWITCH"},
		},
		1: {
			{Kind: protocol.InputSetSlot, Pos: [3]int{0, 1, 0}, Slot: 0, Item: protocol.ItemStack{Block: "PLANKS", Count: 1}},
			{Kind: protocol.InputConfig, Pos: [3]int{0, 1, 0}, Speed: 2, NeedsRS: true},
		},
		3:  {{Kind: protocol.InputToggleSwitch, Pos: [3]int{0, 1, -1}}},
		30: {{Kind: protocol.InputToggleSwitch, Pos: [3]int{0, 1, -1}}},
	}
}

func TestReplay_DigestsMatch(t *testing.T) {
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	snap, files := recordRun(t, cats, testScript(), 60)

	w, err := worldFromSnapshot(snap, cats)
	if err != nil {
		t.Fatalf("%v", err)
	}
	checked, err := replay(w, files, 0, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 60 {
		t.Fatalf("checked=%d want=60", checked)
	}
}

func TestReplay_StopsAtToTick(t *testing.T) {
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	snap, files := recordRun(t, cats, testScript(), 40)

	w, err := worldFromSnapshot(snap, cats)
	if err != nil {
		t.Fatalf("%v", err)
	}
	checked, err := replay(w, files, 10, 20)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 11 {
		t.Fatalf("checked=%d want=11", checked)
	}
	if w.CurrentTick() != 21 {
		t.Fatalf("tick=%d want=21", w.CurrentTick())
	}
}

func TestReplay_DetectsDivergence(t *testing.T) {
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	snap, files := recordRun(t, cats, testScript(), 10)

	// Start from a world that is missing the switch.
	snap.Switches = nil
	w, err := worldFromSnapshot(snap, cats)
	if err != nil {
		t.Fatalf("%v", err)
	}
	_, err = replay(w, files, 0, 0)
	if err == nil || !strings.Contains(err.Error(), "mismatch") {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
