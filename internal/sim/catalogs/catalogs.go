package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type Catalogs struct {
	Blocks BlockCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID     string `json:"id"`
	Solid  bool   `json:"solid"`
	Liquid bool   `json:"liquid,omitempty"`
	// Source blocks emit a redstone signal to their face neighbours.
	Source bool `json:"source,omitempty"`
}

// Required block ids the world resolves at startup.
var Required = []string{"AIR", "DRAWBRIDGE", "SWITCH", "POWER_BLOCK"}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	for _, id := range Required {
		if _, ok := c.Blocks.Index[id]; !ok {
			return nil, fmt.Errorf("blocks.json: missing %s", id)
		}
	}
	return &c, nil
}

// ID returns the palette id of a block.
func (b *BlockCatalog) ID(name string) (uint16, bool) {
	v, ok := b.Index[name]
	return v, ok
}

func (b *BlockCatalog) Name(id uint16) string {
	if int(id) >= len(b.Palette) {
		return ""
	}
	return b.Palette[id]
}

func (b *BlockCatalog) Def(id uint16) (BlockDef, bool) {
	d, ok := b.Defs[b.Name(id)]
	return d, ok
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return parseBlocks(raw, out)
}

func parseBlocks(raw []byte, out *BlockCatalog) error {
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
