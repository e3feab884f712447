package main

import (
	"encoding/json"
	"errors"
	"fmt"

	persistlog "drawbridge.ai/internal/persistence/log"
	"drawbridge.ai/internal/sim/world"
)

var errStop = errors.New("stop")

// replay re-applies logged inputs tick by tick and compares every digest from
// verifyFrom on. Entries older than the world's current tick are skipped.
func replay(w *world.World, files []string, verifyFrom, toTick uint64) (checked uint64, err error) {
	startTick := w.CurrentTick()
	if verifyFrom == 0 {
		verifyFrom = startTick
	}
	files = persistlog.TrimTickSegments(files, startTick)
	for _, path := range files {
		err := persistlog.ScanFile(path, func(line []byte) error {
			var entry world.TickLogEntry
			if err := json.Unmarshal(line, &entry); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			if entry.Tick < startTick {
				return nil
			}
			if toTick != 0 && entry.Tick > toTick {
				return errStop
			}
			if entry.Tick != w.CurrentTick() {
				return fmt.Errorf("tick mismatch: want=%d got=%d", w.CurrentTick(), entry.Tick)
			}

			tick, gotDigest := w.StepOnce(entry.Inputs)
			if tick != entry.Tick {
				return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d", tick, entry.Tick)
			}
			if tick >= verifyFrom {
				checked++
				if gotDigest != entry.Digest {
					return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, gotDigest, entry.Digest)
				}
			}
			return nil
		})
		if errors.Is(err, errStop) {
			return checked, nil
		}
		if err != nil {
			return checked, err
		}
	}
	return checked, nil
}
