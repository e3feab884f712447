package mechanism

import "strconv"

// ContainerSync is the lightweight authority->viewer view.
type ContainerSync struct {
	Extended int  `json:"extended"`
	Speed    int  `json:"speed"`
	NeedsRS  bool `json:"needsrs"`
}

// ViewerConfig is what a viewer may change on the authority.
type ViewerConfig struct {
	Speed   int  `json:"speed"`
	NeedsRS bool `json:"needsrs"`
}

func (m *Mechanism) ContainerSync() ContainerSync {
	return ContainerSync{Extended: m.Extended, Speed: m.Speed, NeedsRS: m.RequiresRedstone}
}

// ApplyContainerSync overwrites the synced fields on a replica.
func (m *Mechanism) ApplyContainerSync(s ContainerSync) {
	m.Extended = clampExtended(s.Extended)
	m.Speed = s.Speed
	m.RequiresRedstone = s.NeedsRS
}

func (m *Mechanism) ViewerConfig() ViewerConfig {
	return ViewerConfig{Speed: m.Speed, NeedsRS: m.RequiresRedstone}
}

// ApplyViewerConfig applies a viewer's settings and re-runs power propagation
// so a changed polarity takes effect across the group at once.
func ApplyViewerConfig(w World, lookup Lookup, m *Mechanism, cfg ViewerConfig) []*Mechanism {
	if m == nil {
		return nil
	}
	m.Speed = ClampSpeed(cfg.Speed)
	m.RequiresRedstone = cfg.NeedsRS
	m.dirty = true
	return OnNeighborSignalChanged(w, lookup, m)
}

// RenderSync is the chunk-load payload.
func (m *Mechanism) RenderSync() Stack { return m.RenderSlot }

// ApplyRenderSync keeps the current render slot when s is empty.
func (m *Mechanism) ApplyRenderSync(s Stack) {
	if s.IsEmpty() {
		return
	}
	if s.Count > StackLimit {
		s.Count = StackLimit
	}
	m.RenderSlot = s
}

// Record is the durable state of a mechanism. Field names are stable keys.
type Record struct {
	Items      [Capacity]Stack `json:"Items"`
	Powered    bool            `json:"powered"`
	Extended   int             `json:"extended"`
	Speed      int             `json:"speed"`
	NeedsRS    bool            `json:"needsrs"`
	OurBlocks  map[string]bool `json:"ourBlocks"`
	RenderSlot Stack           `json:"renderSlot"`
}

func (m *Mechanism) Record() Record {
	r := Record{
		Powered:    m.Powered,
		Extended:   m.Extended,
		Speed:      m.Speed,
		NeedsRS:    m.RequiresRedstone,
		OurBlocks:  make(map[string]bool, Capacity),
		RenderSlot: m.RenderSlot,
	}
	for i := 0; i < Capacity; i++ {
		r.Items[i] = m.Buffer.Get(i)
		r.OurBlocks[strconv.Itoa(i)] = m.PlacedByUs[i]
	}
	return r
}

// Restore loads r. Missing ourBlocks keys read as false; out-of-range numbers
// are clamped and flags at or past Extended are dropped.
func (m *Mechanism) Restore(r Record) {
	m.Extended = clampExtended(r.Extended)
	for i := 0; i < Capacity; i++ {
		m.Buffer.Set(i, r.Items[i])
		// Cells past the extension point cannot hold a placed block.
		m.PlacedByUs[i] = i < m.Extended && r.OurBlocks[strconv.Itoa(i)]
	}
	m.Powered = r.Powered
	m.Speed = ClampSpeed(r.Speed)
	m.RequiresRedstone = r.NeedsRS
	m.ApplyRenderSync(r.RenderSlot)
	m.countdown = 0
	m.dirty = false
}

func clampExtended(v int) int {
	if v < 0 {
		return 0
	}
	if v > Capacity {
		return Capacity
	}
	return v
}
