package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Version is the current snapshot format.
const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate           int `json:"tick_rate_hz"`
	Height             int `json:"height"`
	SnapshotEveryTicks int `json:"snapshot_every_ticks,omitempty"`

	// PaletteDigest pins the block palette the chunk ids refer to.
	PaletteDigest string `json:"palette_digest"`

	Chunks     []ChunkV1     `json:"chunks"`
	BlockMeta  []BlockMetaV1 `json:"block_meta,omitempty"`
	Switches   []SwitchV1    `json:"switches,omitempty"`
	Mechanisms []MechanismV1 `json:"mechanisms,omitempty"`
}

type ChunkV1 struct {
	CX     int      `json:"cx"`
	CZ     int      `json:"cz"`
	Height int      `json:"height"`
	Blocks []uint16 `json:"blocks"`
}

// BlockMetaV1 is the auxiliary value of one non-zero-meta cell.
type BlockMetaV1 struct {
	Pos  [3]int `json:"pos"`
	Meta int    `json:"meta"`
}

type SwitchV1 struct {
	Pos [3]int `json:"pos"`
	On  bool   `json:"on"`
}

type ItemV1 struct {
	Block string `json:"block,omitempty"`
	Meta  int    `json:"meta,omitempty"`
	Count int    `json:"count,omitempty"`
}

// MechanismV1 is one drawbridge. OurBlocks is keyed by the decimal slot
// index ("0".."9"); absent keys read as false.
type MechanismV1 struct {
	Pos        [3]int          `json:"pos"`
	Facing     string          `json:"facing"`
	Items      []ItemV1        `json:"Items"`
	Powered    bool            `json:"powered"`
	Extended   int             `json:"extended"`
	Speed      int             `json:"speed"`
	NeedsRS    bool            `json:"needsrs"`
	OurBlocks  map[string]bool `json:"ourBlocks"`
	RenderSlot ItemV1          `json:"renderSlot"`

	// Countdown is the engine's tick countdown, kept so a resumed world
	// replays identically.
	Countdown int `json:"countdown,omitempty"`
}

// Path returns the conventional file path for a snapshot of worldDir at tick.
func Path(worldDir string, tick uint64) string {
	return filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", tick))
}

// Latest returns the highest-tick snapshot under worldDir/snapshots.
func Latest(worldDir string) (string, uint64, error) {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, err
	}
	var ticks []uint64
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		t, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		ticks = append(ticks, t)
	}
	if len(ticks) == 0 {
		return "", 0, fmt.Errorf("no snapshots in %s", dir)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })
	t := ticks[len(ticks)-1]
	return Path(worldDir, t), t, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return snap, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the leading header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
