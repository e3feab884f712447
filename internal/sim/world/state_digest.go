package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"drawbridge.ai/internal/sim/model"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

// StateDigest is the digest of the current state. World loop goroutine only.
func (w *World) StateDigest() string { return w.stateDigest(w.tick.Load()) }

func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	w.digestChunks(h, &tmp)
	w.digestMeta(h, &tmp)
	w.digestSwitches(h, &tmp)
	w.digestMechanisms(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWritePos(h hashWriter, tmp *[8]byte, p model.Vec3i) {
	digestWriteI64(h, tmp, int64(p.X))
	digestWriteI64(h, tmp, int64(p.Y))
	digestWriteI64(h, tmp, int64(p.Z))
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (w *World) digestChunks(h hashWriter, tmp *[8]byte) {
	for _, k := range w.chunks.LoadedChunkKeys() {
		c := w.chunks.chunks[k]
		digestWriteI64(h, tmp, int64(k.CX))
		digestWriteI64(h, tmp, int64(k.CZ))
		d := c.Digest()
		h.Write(d[:])
	}
}

func (w *World) digestMeta(h hashWriter, tmp *[8]byte) {
	keys := make([]model.Vec3i, 0, len(w.meta))
	for p := range w.meta {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return model.Less(keys[i], keys[j]) })
	for _, p := range keys {
		digestWritePos(h, tmp, p)
		digestWriteI64(h, tmp, int64(w.meta[p]))
	}
}

func (w *World) digestSwitches(h hashWriter, tmp *[8]byte) {
	for _, p := range w.sortedSwitchPositions() {
		digestWritePos(h, tmp, p)
		h.Write([]byte{boolByte(w.switches[p])})
	}
}

func (w *World) digestMechanisms(h hashWriter, tmp *[8]byte) {
	for _, p := range w.sortedMechanismPositions() {
		m := w.mechanisms[p]
		digestWritePos(h, tmp, p)
		h.Write([]byte{byte(m.Facing), boolByte(m.Powered), boolByte(m.RequiresRedstone)})
		digestWriteI64(h, tmp, int64(m.Extended))
		digestWriteI64(h, tmp, int64(m.Speed))
		digestWriteI64(h, tmp, int64(m.Countdown()))
		for i := 0; i < m.Buffer.Size(); i++ {
			s := m.Buffer.Get(i)
			digestWriteString(h, tmp, s.Block.ID)
			digestWriteI64(h, tmp, int64(s.Block.Meta))
			digestWriteI64(h, tmp, int64(s.Count))
			h.Write([]byte{boolByte(m.PlacedByUs[i])})
		}
		digestWriteString(h, tmp, m.RenderSlot.Block.ID)
		digestWriteI64(h, tmp, int64(m.RenderSlot.Block.Meta))
		digestWriteI64(h, tmp, int64(m.RenderSlot.Count))
	}
}
