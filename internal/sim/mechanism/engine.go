package mechanism

// State is the engine phase derived from Powered and Extended.
type State int

const (
	Idle State = iota
	Extending
	Retracting
)

func (s State) String() string {
	switch s {
	case Extending:
		return "EXTENDING"
	case Retracting:
		return "RETRACTING"
	}
	return "IDLE"
}

func (m *Mechanism) State() State {
	switch {
	case m.Powered && m.Extended < Capacity:
		return Extending
	case !m.Powered && m.Extended > 0:
		return Retracting
	}
	return Idle
}

// Tick advances the mechanism by one world tick. It performs at most Capacity
// block operations and returns the number of steps taken.
func (m *Mechanism) Tick(w World) int {
	if m.Replica || w == nil {
		return 0
	}
	steps := 0
	if m.countdown <= 1 {
		m.countdown = m.Speed
		switch m.State() {
		case Extending:
			if m.countdown == 0 {
				for m.Extended < Capacity {
					m.extend(w)
					steps++
				}
			} else {
				m.extend(w)
				steps++
			}
			m.dirty = true
		case Retracting:
			if m.countdown == 0 {
				for m.Extended > 0 {
					m.retract(w)
					steps++
				}
			} else {
				m.retract(w)
				steps++
			}
			m.dirty = true
		}
	}
	if m.countdown > 0 {
		m.countdown--
	}
	return steps
}

// extend places the reserved block for the next cell when that cell is free.
// An occupied cell is skipped but still counted as extended.
func (m *Mechanism) extend(w World) {
	i := m.Extended
	target := m.Target(i)
	if w.IsEmpty(target) {
		s := m.Buffer.TakeAndClear(i)
		w.SetBlock(target, s.Block)
		m.PlacedByUs[i] = true
	} else {
		m.PlacedByUs[i] = false
	}
	m.Extended++
}

// retract picks the outermost cell back up if this mechanism placed it.
func (m *Mechanism) retract(w World) {
	m.Extended--
	i := m.Extended
	if !m.PlacedByUs[i] {
		return
	}
	m.PlacedByUs[i] = false
	target := m.Target(i)
	if w.IsEmpty(target) {
		return
	}
	m.Buffer.Set(i, One(w.BlockAt(target)))
	w.SetBlock(target, BlockSpec{})
}
