// Package filecache persists a filename-to-mtime map across runs so the
// reader can skip files it has already ingested.
package filecache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lbloecher/chatload/internal/dlog"
)

// Cache maps a filename (relative to the log directory) to the last
// modification time observed for it, in platform epoch units.
type Cache map[string]uint64

// Load reads a tab-separated cache file of "name\tmtime\n" lines. Lines
// that don't parse as exactly two tab-separated fields, or whose mtime
// isn't a valid unsigned integer, are skipped silently. A missing file
// yields an empty, non-nil Cache rather than an error.
func Load(path string) Cache {
	cache := make(Cache)
	if path == "" {
		return cache
	}

	f, err := os.Open(path)
	if err != nil {
		dlog.Common.Debug("filecache: no existing cache at", path, err)
		return cache
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		mtime, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		cache[fields[0]] = mtime
	}

	return cache
}

// Save truncate-writes the cache to path as tab-separated lines,
// creating any missing ancestor directories with mode 0755 first. An
// empty path is a no-op: caching is silently disabled when unconfigured.
func Save(cache Cache, path string) error {
	if path == "" {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filecache: create %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("filecache: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for name, mtime := range cache {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", name, mtime); err != nil {
			return fmt.Errorf("filecache: write %s: %w", path, err)
		}
	}
	return w.Flush()
}
