package world

import (
	"fmt"
	"sort"

	"drawbridge.ai/internal/persistence/snapshot"
	"drawbridge.ai/internal/sim/mechanism"
	"drawbridge.ai/internal/sim/model"
)

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header:             snapshot.Header{Version: snapshot.Version, WorldID: w.cfg.ID, Tick: nowTick},
		TickRate:           w.cfg.TickRateHz,
		Height:             w.cfg.Height,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		PaletteDigest:      w.catalogs.Blocks.PaletteDigest,
	}

	for _, k := range w.chunks.LoadedChunkKeys() {
		c := w.chunks.chunks[k]
		blocks := make([]uint16, len(c.Blocks))
		copy(blocks, c.Blocks)
		s.Chunks = append(s.Chunks, snapshot.ChunkV1{CX: k.CX, CZ: k.CZ, Height: c.Height, Blocks: blocks})
	}

	metaPos := make([]model.Vec3i, 0, len(w.meta))
	for p := range w.meta {
		metaPos = append(metaPos, p)
	}
	sort.Slice(metaPos, func(i, j int) bool { return model.Less(metaPos[i], metaPos[j]) })
	for _, p := range metaPos {
		s.BlockMeta = append(s.BlockMeta, snapshot.BlockMetaV1{Pos: p.ToArray(), Meta: w.meta[p]})
	}

	for _, p := range w.sortedSwitchPositions() {
		s.Switches = append(s.Switches, snapshot.SwitchV1{Pos: p.ToArray(), On: w.switches[p]})
	}

	for _, p := range w.sortedMechanismPositions() {
		m := w.mechanisms[p]
		r := m.Record()
		mv := snapshot.MechanismV1{
			Pos:        p.ToArray(),
			Facing:     m.Facing.String(),
			Items:      make([]snapshot.ItemV1, 0, len(r.Items)),
			Powered:    r.Powered,
			Extended:   r.Extended,
			Speed:      r.Speed,
			NeedsRS:    r.NeedsRS,
			OurBlocks:  r.OurBlocks,
			RenderSlot: itemV1(r.RenderSlot),
			Countdown:  m.Countdown(),
		}
		for _, it := range r.Items {
			mv.Items = append(mv.Items, itemV1(it))
		}
		s.Mechanisms = append(s.Mechanisms, mv)
	}
	return s
}

func itemV1(s mechanism.Stack) snapshot.ItemV1 {
	if s.IsEmpty() {
		return snapshot.ItemV1{}
	}
	return snapshot.ItemV1{Block: s.Block.ID, Meta: s.Block.Meta, Count: s.Count}
}

func stackFromV1(it snapshot.ItemV1) mechanism.Stack {
	if it.Block == "" || it.Count <= 0 {
		return mechanism.Stack{}
	}
	return mechanism.Stack{Block: mechanism.BlockSpec{ID: it.Block, Meta: it.Meta}, Count: it.Count}
}

// ImportSnapshot replaces the world state with s. It must be called before Run.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version %d", s.Header.Version)
	}
	if s.Height != w.cfg.Height {
		return fmt.Errorf("snapshot height %d != world height %d", s.Height, w.cfg.Height)
	}
	if s.PaletteDigest != "" && s.PaletteDigest != w.catalogs.Blocks.PaletteDigest {
		return fmt.Errorf("snapshot palette digest mismatch")
	}

	chunks := NewChunkStore(w.cfg.Height, w.blockAir)
	for _, c := range s.Chunks {
		if c.Height != w.cfg.Height || len(c.Blocks) != chunkSize*chunkSize*c.Height {
			return fmt.Errorf("chunk %d,%d: bad size", c.CX, c.CZ)
		}
		blocks := make([]uint16, len(c.Blocks))
		copy(blocks, c.Blocks)
		chunks.PutChunk(&Chunk{CX: c.CX, CZ: c.CZ, Height: c.Height, Blocks: blocks})
	}
	w.chunks = chunks

	w.meta = map[model.Vec3i]int{}
	for _, m := range s.BlockMeta {
		if m.Meta != 0 {
			w.meta[model.FromArray(m.Pos)] = m.Meta
		}
	}

	w.switches = map[model.Vec3i]bool{}
	for _, sw := range s.Switches {
		w.switches[model.FromArray(sw.Pos)] = sw.On
	}

	w.mechanisms = map[model.Vec3i]*mechanism.Mechanism{}
	w.lastSync = map[model.Vec3i]mechanism.ContainerSync{}
	for _, mv := range s.Mechanisms {
		facing, ok := model.ParseFacing(mv.Facing)
		if !ok {
			return fmt.Errorf("mechanism %v: bad facing %q", mv.Pos, mv.Facing)
		}
		pos := model.FromArray(mv.Pos)
		m := mechanism.New(pos, facing)
		r := mechanism.Record{
			Powered:    mv.Powered,
			Extended:   mv.Extended,
			Speed:      mv.Speed,
			NeedsRS:    mv.NeedsRS,
			OurBlocks:  mv.OurBlocks,
			RenderSlot: stackFromV1(mv.RenderSlot),
		}
		for i := 0; i < len(mv.Items) && i < mechanism.Capacity; i++ {
			r.Items[i] = stackFromV1(mv.Items[i])
		}
		m.Restore(r)
		m.SetCountdown(mv.Countdown)
		w.mechanisms[pos] = m
		w.lastSync[pos] = m.ContainerSync()
	}

	w.tick.Store(s.Header.Tick + 1)
	return nil
}
