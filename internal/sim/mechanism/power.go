package mechanism

// OnNeighborSignalChanged re-evaluates the powered state of m and of every
// mechanism in its group. The group is driven by the OR of all directly sensed
// signals; each member applies its own RequiresRedstone polarity.
//
// It returns the group members other than m.
func OnNeighborSignalChanged(w World, lookup Lookup, m *Mechanism) []*Mechanism {
	if w == nil || m == nil {
		return nil
	}
	direct := w.Powered(m.Pos)
	m.applySignal(direct)

	group := Collect(m.Pos, lookup)
	signal := direct
	for _, g := range group {
		if signal {
			break
		}
		signal = w.Powered(g.Pos)
	}

	m.applySignal(signal)
	for _, g := range group {
		g.applySignal(signal)
	}
	return group
}

func (m *Mechanism) applySignal(signal bool) {
	powered := signal
	if !m.RequiresRedstone {
		powered = !signal
	}
	if m.Powered != powered {
		m.Powered = powered
		m.dirty = true
	}
}
