package worldtest

import (
	"testing"

	"drawbridge.ai/internal/sim/catalogs"
	world "drawbridge.ai/internal/sim/world"
)

func loadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func testConfig() world.WorldConfig {
	return world.WorldConfig{
		ID:          "worldtest",
		TickRateHz:  20,
		Height:      32,
		ViewerQueue: 16,
	}
}

func newHarness(t *testing.T) *Harness {
	t.Helper()
	return NewHarness(t, testConfig(), loadCatalogs(t))
}

// loadout is the ten-block buffer used across scenarios.
var loadout = []string{"PLANKS", "STONE", "COBBLESTONE", "DIRT", "GRASS", "SAND", "GLASS", "WOOL", "PLANKS", "STONE"}
