package world

import (
	"encoding/json"
	"testing"

	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/catalogs"
	"drawbridge.ai/internal/sim/model"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := New(WorldConfig{
		ID:          "test",
		TickRateHz:  20,
		Height:      16,
		ViewerQueue: 64,
	}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

type auditRecorder struct{ entries []AuditEntry }

func (r *auditRecorder) WriteAudit(e AuditEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *auditRecorder) count(action string) int {
	n := 0
	for _, e := range r.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

type tickRecorder struct{ entries []TickLogEntry }

func (r *tickRecorder) WriteTick(e TickLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func addMech(pos model.Vec3i, facing string) protocol.Input {
	return protocol.Input{Kind: protocol.InputAddMechanism, Pos: pos.ToArray(), Facing: facing}
}

func setBlock(pos model.Vec3i, block string) protocol.Input {
	return protocol.Input{Kind: protocol.InputSetBlock, Pos: pos.ToArray(), Block: block}
}

func toggle(pos model.Vec3i) protocol.Input {
	return protocol.Input{Kind: protocol.InputToggleSwitch, Pos: pos.ToArray()}
}

func setSlot(pos model.Vec3i, slot int, block string) protocol.Input {
	return protocol.Input{Kind: protocol.InputSetSlot, Pos: pos.ToArray(), Slot: slot, Item: protocol.ItemStack{Block: block, Count: 1}}
}

func takeSlot(pos model.Vec3i, slot, count int) protocol.Input {
	return protocol.Input{Kind: protocol.InputTakeSlot, Pos: pos.ToArray(), Slot: slot, Count: count}
}

func config(pos model.Vec3i, speed int, needsRS bool) protocol.Input {
	return protocol.Input{Kind: protocol.InputConfig, Pos: pos.ToArray(), Speed: speed, NeedsRS: needsRS}
}

// mustApply applies in at the current tick and fails on rejection.
func mustApply(t *testing.T, w *World, in protocol.Input) {
	t.Helper()
	if res := w.applyInput(w.CurrentTick(), in); !res.OK() {
		t.Fatalf("%s rejected: %s %s", in.Kind, res.Code, res.Message)
	}
}

func blockAt(w *World, pos model.Vec3i) string {
	return w.blockName(w.chunks.GetBlock(pos))
}

// drain decodes every queued viewer message.
func drain(t *testing.T, ch chan []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case b := <-ch:
			var m map[string]any
			if err := json.Unmarshal(b, &m); err != nil {
				t.Fatalf("decode: %v", err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}
