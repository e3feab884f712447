package log

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ListFiles returns the <prefix>-*.jsonl.zst files in dir in rotation order.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// SegmentStartTick returns the first tick of a tick-log segment file. It
// reports false for files not cut on tick boundaries.
func SegmentStartTick(path string) (uint64, bool) {
	name := strings.TrimSuffix(filepath.Base(path), ".jsonl.zst")
	i := strings.LastIndex(name, "-t")
	if i < 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(name[i+2:], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// TrimTickSegments drops leading segments whose ticks all precede tick. Files
// whose start cannot be read are kept.
func TrimTickSegments(files []string, tick uint64) []string {
	for len(files) > 1 {
		if _, ok := SegmentStartTick(files[0]); !ok {
			break
		}
		next, ok := SegmentStartTick(files[1])
		if !ok || next > tick {
			break
		}
		files = files[1:]
	}
	return files
}

// ScanFile calls fn for every line of a .jsonl.zst file. Scanning stops at the
// first error fn returns.
func ScanFile(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return sc.Err()
}
