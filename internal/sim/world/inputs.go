package world

import (
	"fmt"

	"drawbridge.ai/internal/protocol"
	"drawbridge.ai/internal/sim/mechanism"
	"drawbridge.ai/internal/sim/model"
)

func inputActor(in protocol.Input) string {
	if in.Source == "" {
		return "admin"
	}
	return in.Source
}

func reject(tick uint64, code, format string, args ...any) InputResult {
	return InputResult{Tick: tick, Code: code, Message: fmt.Sprintf(format, args...)}
}

// itemToStack converts a wire item into a buffer stack. An empty block id is
// the empty stack.
func (w *World) itemToStack(it protocol.ItemStack) (mechanism.Stack, bool) {
	if it.Block == "" {
		return mechanism.Stack{}, true
	}
	if _, ok := w.catalogs.Blocks.ID(it.Block); !ok {
		return mechanism.Stack{}, false
	}
	n := it.Count
	if n <= 0 {
		n = 1
	}
	return mechanism.Stack{Block: mechanism.BlockSpec{ID: it.Block, Meta: it.Meta}, Count: n}, true
}

func stackToItem(s mechanism.Stack) protocol.ItemStack {
	if s.IsEmpty() {
		return protocol.ItemStack{}
	}
	return protocol.ItemStack{Block: s.Block.ID, Meta: s.Block.Meta, Count: s.Count}
}

// applyInput applies one external mutation at tick boundary.
func (w *World) applyInput(nowTick uint64, in protocol.Input) InputResult {
	pos := model.FromArray(in.Pos)
	actor := inputActor(in)
	ok := InputResult{Tick: nowTick}

	switch in.Kind {
	case protocol.InputAddMechanism:
		facing, valid := model.ParseFacing(in.Facing)
		if !valid {
			return reject(nowTick, protocol.ErrBadRequest, "bad facing %q", in.Facing)
		}
		if !w.chunks.inBounds(pos) {
			return reject(nowTick, protocol.ErrInvalidTarget, "position %s outside world", pos)
		}
		if w.mechanisms[pos] != nil {
			return reject(nowTick, protocol.ErrConflict, "mechanism already at %s", pos)
		}
		w.addMechanism(nowTick, actor, pos, facing)
		// The replaced block may have been a source.
		w.notifyNeighbors(pos)
		return ok

	case protocol.InputRemoveMechanism:
		if !w.removeMechanism(nowTick, actor, pos) {
			return reject(nowTick, protocol.ErrInvalidTarget, "no mechanism at %s", pos)
		}
		w.notifyNeighbors(pos)
		return ok

	case protocol.InputToggleSwitch:
		on, found := w.toggleSwitch(pos)
		if !found {
			return reject(nowTick, protocol.ErrInvalidTarget, "no switch at %s", pos)
		}
		w.auditEvent(nowTick, actor, AuditSwitchToggle, pos, "", map[string]any{"on": on})
		return ok

	case protocol.InputSetBlock:
		spec := mechanism.BlockSpec{ID: in.Block, Meta: in.Meta}
		if in.Block == "AIR" {
			spec = mechanism.BlockSpec{}
		}
		if _, known := w.resolveSpec(spec); !known {
			return reject(nowTick, protocol.ErrBadRequest, "unknown block %q", in.Block)
		}
		if spec.ID == "DRAWBRIDGE" {
			return reject(nowTick, protocol.ErrBadRequest, "use %s to place a drawbridge", protocol.InputAddMechanism)
		}
		if !w.chunks.inBounds(pos) {
			return reject(nowTick, protocol.ErrInvalidTarget, "position %s outside world", pos)
		}
		if w.mechanisms[pos] != nil {
			return reject(nowTick, protocol.ErrConflict, "mechanism at %s; use %s", pos, protocol.InputRemoveMechanism)
		}
		from, to, _ := w.writeBlock(nowTick, pos, spec)
		w.auditSetBlock(nowTick, actor, AuditSetBlock, pos, from, to, "")
		w.notifyNeighbors(pos)
		return ok

	case protocol.InputSetRender:
		m := w.mechanisms[pos]
		if m == nil {
			return reject(nowTick, protocol.ErrInvalidTarget, "no mechanism at %s", pos)
		}
		s, known := w.itemToStack(in.Item)
		if !known {
			return reject(nowTick, protocol.ErrBadRequest, "unknown block %q", in.Item.Block)
		}
		m.SetRenderSlot(s)
		w.broadcastRender(nowTick, m)
		return ok

	case protocol.InputSetSlot:
		m := w.mechanisms[pos]
		if m == nil {
			return reject(nowTick, protocol.ErrInvalidTarget, "no mechanism at %s", pos)
		}
		if in.Slot < 0 || in.Slot >= m.Buffer.Size() {
			return reject(nowTick, protocol.ErrBadRequest, "slot %d out of range", in.Slot)
		}
		s, known := w.itemToStack(in.Item)
		if !known {
			return reject(nowTick, protocol.ErrBadRequest, "unknown block %q", in.Item.Block)
		}
		m.Buffer.Set(in.Slot, s)
		m.MarkDirty()
		return ok

	case protocol.InputTakeSlot:
		m := w.mechanisms[pos]
		if m == nil {
			return reject(nowTick, protocol.ErrInvalidTarget, "no mechanism at %s", pos)
		}
		if in.Slot < 0 || in.Slot >= m.Buffer.Size() {
			return reject(nowTick, protocol.ErrBadRequest, "slot %d out of range", in.Slot)
		}
		if m.Buffer.Get(in.Slot).IsEmpty() {
			return reject(nowTick, protocol.ErrInvalidTarget, "slot %d is empty", in.Slot)
		}
		// Count 0 takes the whole slot.
		var s mechanism.Stack
		if in.Count <= 0 {
			s = m.Buffer.RemoveStackFromSlot(in.Slot)
		} else {
			s = m.Buffer.DecrStackSize(in.Slot, in.Count)
		}
		m.MarkDirty()
		w.auditEvent(nowTick, actor, AuditMechTake, pos, "", map[string]any{
			"slot":  in.Slot,
			"block": s.Block.ID,
			"meta":  s.Block.Meta,
			"count": s.Count,
		})
		taken := stackToItem(s)
		ok.Taken = &taken
		return ok

	case protocol.InputConfig:
		cfg := mechanism.ViewerConfig{Speed: in.Speed, NeedsRS: in.NeedsRS}
		if !w.applyConfig(nowTick, actor, pos, cfg) {
			return reject(nowTick, protocol.ErrInvalidTarget, "no mechanism at %s", pos)
		}
		return ok
	}
	return reject(nowTick, protocol.ErrBadRequest, "unknown input kind %q", in.Kind)
}
