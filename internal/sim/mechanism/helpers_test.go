package mechanism

import "drawbridge.ai/internal/sim/model"

type fakeWorld struct {
	blocks  map[model.Vec3i]BlockSpec
	powered map[model.Vec3i]bool
	writes  int
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		blocks:  map[model.Vec3i]BlockSpec{},
		powered: map[model.Vec3i]bool{},
	}
}

func (w *fakeWorld) IsEmpty(pos model.Vec3i) bool {
	b := w.blocks[pos]
	return b.IsZero() || b.ID == "WATER"
}

func (w *fakeWorld) BlockAt(pos model.Vec3i) BlockSpec { return w.blocks[pos] }

func (w *fakeWorld) SetBlock(pos model.Vec3i, b BlockSpec) {
	w.writes++
	if b.IsZero() {
		delete(w.blocks, pos)
		return
	}
	w.blocks[pos] = b
}

func (w *fakeWorld) Powered(pos model.Vec3i) bool { return w.powered[pos] }

type registry map[model.Vec3i]*Mechanism

func (r registry) lookup(pos model.Vec3i) *Mechanism { return r[pos] }

func (r registry) add(pos model.Vec3i) *Mechanism {
	m := New(pos, model.North)
	r[pos] = m
	return m
}

func plank(i int) BlockSpec { return BlockSpec{ID: "PLANKS", Meta: i} }

func fillBuffer(m *Mechanism) {
	for i := 0; i < Capacity; i++ {
		m.Buffer.Set(i, One(plank(i)))
	}
}
