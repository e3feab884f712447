package mechanism

import "fmt"

// BlockSpec identifies a placeable block: its catalog id plus auxiliary data.
// The zero value is "nothing" and places as AIR.
type BlockSpec struct {
	ID   string `json:"id,omitempty"`
	Meta int    `json:"meta,omitempty"`
}

func (b BlockSpec) IsZero() bool { return b.ID == "" }

// Stack is an item-shaped slot record holding Count units of a block.
type Stack struct {
	Block BlockSpec `json:"block"`
	Count int       `json:"count,omitempty"`
}

func (s Stack) IsEmpty() bool { return s.Block.IsZero() || s.Count <= 0 }

// One returns a single-unit stack of b.
func One(b BlockSpec) Stack {
	if b.IsZero() {
		return Stack{}
	}
	return Stack{Block: b, Count: 1}
}

// Buffer is the fixed linear block buffer: slot i holds the block that will be
// placed at offset i+1 once the mechanism extends that far.
type Buffer struct {
	slots [Capacity]Stack
}

func checkIndex(i int) {
	if i < 0 || i >= Capacity {
		panic(fmt.Sprintf("mechanism: buffer index %d out of range [0,%d)", i, Capacity))
	}
}

func (b *Buffer) Size() int { return Capacity }

func (b *Buffer) StackLimit() int { return StackLimit }

func (b *Buffer) Get(i int) Stack {
	checkIndex(i)
	if b.slots[i].IsEmpty() {
		return Stack{}
	}
	return b.slots[i]
}

// Set stores s in slot i, truncated to the per-slot stack limit.
func (b *Buffer) Set(i int, s Stack) {
	checkIndex(i)
	if s.IsEmpty() {
		b.slots[i] = Stack{}
		return
	}
	if s.Count > StackLimit {
		s.Count = StackLimit
	}
	b.slots[i] = s
}

// TakeAndClear empties slot i and returns what it held.
func (b *Buffer) TakeAndClear(i int) Stack {
	out := b.Get(i)
	b.slots[i] = Stack{}
	return out
}

// RemoveCount splits up to n units off slot i.
func (b *Buffer) RemoveCount(i, n int) Stack {
	checkIndex(i)
	cur := b.slots[i]
	if cur.IsEmpty() || n <= 0 {
		return Stack{}
	}
	if n > cur.Count {
		n = cur.Count
	}
	cur.Count -= n
	if cur.Count <= 0 {
		b.slots[i] = Stack{}
	} else {
		b.slots[i] = cur
	}
	return Stack{Block: cur.Block, Count: n}
}

// DecrStackSize and RemoveStackFromSlot are the inventory-facing names.
func (b *Buffer) DecrStackSize(i, n int) Stack    { return b.RemoveCount(i, n) }
func (b *Buffer) RemoveStackFromSlot(i int) Stack { return b.TakeAndClear(i) }

// IsItemValid reports whether slot i accepts an externally inserted stack.
// No slot does: the buffer is only filled by retraction.
func (b *Buffer) IsItemValid(i int, _ Stack) bool {
	checkIndex(i)
	return false
}

func (b *Buffer) IsEmpty() bool {
	for _, s := range b.slots {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

func (b *Buffer) Clear() { b.slots = [Capacity]Stack{} }
