package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	WorldHeight        int `yaml:"world_height"`

	Viewers Viewers `yaml:"viewers"`
}

type Viewers struct {
	MaxViewers int `yaml:"max_viewers"`
	Queue      int `yaml:"queue"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         20,
		SnapshotEveryTicks: 1200,
		WorldHeight:        64,
		Viewers: Viewers{
			MaxViewers: 64,
			Queue:      32,
		},
	}
}

// Load reads path over Defaults, so omitted keys keep their default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	}
	if t.SnapshotEveryTicks < 0 {
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	}
	if t.WorldHeight <= 0 {
		return fmt.Errorf("world_height must be > 0")
	}
	if t.Viewers.MaxViewers < 0 || t.Viewers.Queue < 0 {
		return fmt.Errorf("viewers limits must be >= 0")
	}
	return nil
}
