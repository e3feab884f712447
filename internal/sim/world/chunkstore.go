package world

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"drawbridge.ai/internal/sim/model"
)

const chunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

type Chunk struct {
	CX, CZ int
	Height int
	Blocks []uint16 // len = 16*16*Height

	dirty bool
	hash  [32]byte
}

func newChunk(cx, cz, height int, fill uint16) *Chunk {
	c := &Chunk{CX: cx, CZ: cz, Height: height, Blocks: make([]uint16, chunkSize*chunkSize*height), dirty: true}
	if fill != 0 {
		for i := range c.Blocks {
			c.Blocks[i] = fill
		}
	}
	return c
}

func (c *Chunk) index(x, y, z int) int {
	// x fastest, then z, then y
	return x + z*chunkSize + y*chunkSize*chunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// ChunkStore holds chunks that have been written to. Unwritten chunks read as air.
type ChunkStore struct {
	height int
	air    uint16
	// Accessed only from the world loop goroutine.
	chunks map[ChunkKey]*Chunk
}

func NewChunkStore(height int, air uint16) *ChunkStore {
	return &ChunkStore{
		height: height,
		air:    air,
		chunks: map[ChunkKey]*Chunk{},
	}
}

func (s *ChunkStore) Height() int { return s.height }

func (s *ChunkStore) inBounds(pos model.Vec3i) bool {
	return pos.Y >= 0 && pos.Y < s.height
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func chunkKeyOf(pos model.Vec3i) ChunkKey {
	return ChunkKey{CX: floorDiv(pos.X, chunkSize), CZ: floorDiv(pos.Z, chunkSize)}
}

func (s *ChunkStore) GetBlock(pos model.Vec3i) uint16 {
	if !s.inBounds(pos) {
		return s.air
	}
	c := s.chunks[chunkKeyOf(pos)]
	if c == nil {
		return s.air
	}
	return c.Get(mod(pos.X, chunkSize), pos.Y, mod(pos.Z, chunkSize))
}

// SetBlock writes b at pos and reports whether pos is inside the grid.
func (s *ChunkStore) SetBlock(pos model.Vec3i, b uint16) bool {
	if !s.inBounds(pos) {
		return false
	}
	k := chunkKeyOf(pos)
	c := s.chunks[k]
	if c == nil {
		if b == s.air {
			return true
		}
		c = newChunk(k.CX, k.CZ, s.height, s.air)
		s.chunks[k] = c
	}
	c.Set(mod(pos.X, chunkSize), pos.Y, mod(pos.Z, chunkSize), b)
	return true
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

func (s *ChunkStore) Chunk(k ChunkKey) *Chunk { return s.chunks[k] }

// PutChunk installs a chunk loaded from a snapshot.
func (s *ChunkStore) PutChunk(c *Chunk) {
	c.dirty = true
	s.chunks[ChunkKey{CX: c.CX, CZ: c.CZ}] = c
}
