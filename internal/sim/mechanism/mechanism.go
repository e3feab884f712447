// Package mechanism implements the drawbridge: a block that extends and retracts
// a line of up to ten blocks along its facing, with laterally adjacent
// drawbridges switching together as one group.
//
// The package holds no world state of its own. Callers provide a World for block
// access and a Lookup for finding neighbouring mechanisms.
package mechanism

import "drawbridge.ai/internal/sim/model"

const (
	// Capacity is the number of cells a mechanism can extend.
	Capacity = 10
	// StackLimit is the per-slot item limit of the buffer.
	StackLimit = 1
	// MaxSpeed bounds the ticks-per-step setting.
	MaxSpeed = 100
	// MaxCollectDepth caps the group traversal.
	MaxCollectDepth = 20
)

// World is the block grid as seen by a mechanism.
type World interface {
	// IsEmpty reports air or a liquid placeholder at pos.
	IsEmpty(pos model.Vec3i) bool
	BlockAt(pos model.Vec3i) BlockSpec
	// SetBlock writes b at pos without notifying neighbours. A zero BlockSpec writes air.
	SetBlock(pos model.Vec3i, b BlockSpec)
	// Powered reports whether pos receives an external redstone signal.
	Powered(pos model.Vec3i) bool
}

// Lookup returns the mechanism at pos, or nil.
type Lookup func(pos model.Vec3i) *Mechanism

// Mechanism is one placed drawbridge.
type Mechanism struct {
	Pos    model.Vec3i
	Facing model.Facing

	// Replica marks a display-only copy; it never ticks.
	Replica bool

	Powered          bool
	RequiresRedstone bool
	Speed            int
	Extended         int

	Buffer     Buffer
	PlacedByUs [Capacity]bool
	RenderSlot Stack

	countdown int
	dirty     bool
}

func New(pos model.Vec3i, facing model.Facing) *Mechanism {
	return &Mechanism{
		Pos:              pos,
		Facing:           facing,
		RequiresRedstone: true,
	}
}

// NewReplica returns a viewer-side copy that only accepts synced snapshots.
func NewReplica(pos model.Vec3i, facing model.Facing) *Mechanism {
	m := New(pos, facing)
	m.Replica = true
	return m
}

func (m *Mechanism) IsExtended() bool { return m.Extended > 0 }

// Target is the world cell for buffer slot i.
func (m *Mechanism) Target(i int) model.Vec3i {
	return m.Pos.Add(m.Facing.Offset().Scale(i + 1))
}

// Dirty reports whether durable state changed since the last ClearDirty.
func (m *Mechanism) Dirty() bool { return m.dirty }
func (m *Mechanism) ClearDirty() { m.dirty = false }
func (m *Mechanism) MarkDirty()  { m.dirty = true }

func (m *Mechanism) SetSpeed(speed int) {
	m.Speed = ClampSpeed(speed)
	m.dirty = true
}

func (m *Mechanism) SetRenderSlot(s Stack) {
	if s.Count > StackLimit {
		s.Count = StackLimit
	}
	if s.IsEmpty() {
		s = Stack{}
	}
	m.RenderSlot = s
	m.dirty = true
}

// Countdown is the number of ticks left before the next step. It is not part
// of Record; a host that resumes mid-motion stores it alongside.
func (m *Mechanism) Countdown() int { return m.countdown }

func (m *Mechanism) SetCountdown(n int) {
	if n < 0 {
		n = 0
	}
	m.countdown = n
}

func ClampSpeed(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxSpeed {
		return MaxSpeed
	}
	return v
}
