package worldtest

import (
	"testing"

	"drawbridge.ai/internal/persistence/snapshot"
	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/catalogs"
	"drawbridge.ai/internal/sim/mechanism"
	"drawbridge.ai/internal/sim/model"
	world "drawbridge.ai/internal/sim/world"
)

// Harness is a small black-box test helper for driving a world via exported APIs:
// - Step()/MustStep() feed inputs through StepOnce()
// - the tick log tells which inputs were applied
// - Snapshot/Mech/Block helpers inspect the result
//
// It avoids touching world internals so tests can live outside the world package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	ticks []world.TickLogEntry
}

func NewHarness(t *testing.T, cfg world.WorldConfig, cats *catalogs.Catalogs) *Harness {
	t.Helper()

	w, err := world.New(cfg, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w, cats)
}

// NewHarnessWithWorld is like NewHarness, but uses an already-constructed world instance.
// This is useful for snapshot round-trip tests where the snapshot is imported first.
func NewHarnessWithWorld(t *testing.T, w *world.World, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{T: t, Cats: cats, W: w}
	w.SetTickLogger(h)
	return h
}

// WriteTick implements world.TickLogger.
func (h *Harness) WriteTick(e world.TickLogEntry) error {
	h.ticks = append(h.ticks, e)
	return nil
}

// Ticks returns every tick log entry seen so far.
func (h *Harness) Ticks() []world.TickLogEntry { return h.ticks }

// Step advances one tick and returns the inputs the world applied.
func (h *Harness) Step(inputs ...protocol.Input) []protocol.Input {
	h.T.Helper()
	before := len(h.ticks)
	h.W.StepOnce(inputs)
	if len(h.ticks) != before+1 {
		h.T.Fatalf("tick log entries=%d want=%d", len(h.ticks), before+1)
	}
	return h.ticks[len(h.ticks)-1].Inputs
}

// MustStep is Step that fails the test when any input was rejected.
func (h *Harness) MustStep(inputs ...protocol.Input) {
	h.T.Helper()
	if applied := h.Step(inputs...); len(applied) != len(inputs) {
		h.T.Fatalf("applied %d of %d inputs: %+v", len(applied), len(inputs), inputs)
	}
}

func (h *Harness) StepN(n int) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.Step()
	}
}

// LastDigest is the digest logged for the most recent tick.
func (h *Harness) LastDigest() string {
	if len(h.ticks) == 0 {
		return ""
	}
	return h.ticks[len(h.ticks)-1].Digest
}

func (h *Harness) Snapshot() (tick uint64, snap snapshot.SnapshotV1) {
	h.T.Helper()
	// Keep tick stable: export at currentTick-1 then import would restore to currentTick.
	cur := h.W.CurrentTick()
	if cur == 0 {
		return 0, h.W.ExportSnapshot(0)
	}
	tick = cur - 1
	return tick, h.W.ExportSnapshot(tick)
}

// Mech returns the mechanism at pos and fails the test if there is none.
func (h *Harness) Mech(pos model.Vec3i) *mechanism.Mechanism {
	h.T.Helper()
	m := h.W.MechanismAt(pos)
	if m == nil {
		h.T.Fatalf("no mechanism at %s", pos)
	}
	return m
}

// Block returns the block id at pos, "AIR" for air.
func (h *Harness) Block(pos model.Vec3i) string {
	b := h.W.BlockAt(pos)
	if b.IsZero() {
		return "AIR"
	}
	return b.ID
}

func AddMechanism(pos model.Vec3i, facing model.Facing) protocol.Input {
	return protocol.Input{Kind: protocol.InputAddMechanism, Pos: pos.ToArray(), Facing: facing.String()}
}

func SetBlock(pos model.Vec3i, block string) protocol.Input {
	return protocol.Input{Kind: protocol.InputSetBlock, Pos: pos.ToArray(), Block: block}
}

func SetSlot(pos model.Vec3i, slot int, block string) protocol.Input {
	return protocol.Input{Kind: protocol.InputSetSlot, Pos: pos.ToArray(), Slot: slot, Item: protocol.ItemStack{Block: block, Count: 1}}
}

func Config(pos model.Vec3i, speed int, needsRS bool) protocol.Input {
	return protocol.Input{Kind: protocol.InputConfig, Pos: pos.ToArray(), Speed: speed, NeedsRS: needsRS}
}
