// Package logreader enumerates a log directory, filters entries against
// a filename cache and regex, and feeds UTF-16LE log contents into a
// bounded queue for a consumer to parse.
package logreader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lbloecher/chatload/internal/constants"
	"github.com/lbloecher/chatload/internal/dlog"
	"github.com/lbloecher/chatload/internal/filecache"
	"github.com/lbloecher/chatload/internal/io/pool"
	"github.com/lbloecher/chatload/internal/regex"
)

// FileInfo describes one log file accepted by the reader, passed to the
// optional progress callback.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime uint64
}

// ReadStats summarizes one full pass over the log directory.
type ReadStats struct {
	FilesRead uint64
	BytesRead uint64
	Duration  time.Duration
}

// Sentinel is the zero-length buffer the reader enqueues to signal that
// no further files will follow.
var Sentinel []uint16

// ReadLogs performs one pass over logDir: enumerate regular files,
// accept those matching pattern and newer than their cached mtime,
// decode each as UTF-16LE (stripping its 2-byte BOM), and push the
// decoded code units onto queue. progress, if non-nil, is invoked once
// per accepted file. The updated filename cache is persisted to
// cachePath (best effort) before returning.
//
// Directory-open failures are fatal and returned. Per-file read
// failures are skipped; the cache entry for that file is left
// untouched so it is retried on the next run.
func ReadLogs(logDir, cachePath string, useCache bool, pattern regex.Regex, queue chan<- []uint16, progress func(FileInfo)) (ReadStats, error) {
	start := time.Now()
	var stats ReadStats

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return stats, fmt.Errorf("logreader: open %s: %w", logDir, err)
	}

	cache := filecache.Cache{}
	if useCache {
		cache = filecache.Load(cachePath)
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			dlog.Reader.Debug("logreader: stat failed, skipping", name, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		if !pattern.MatchString(name) {
			continue
		}

		mtime := uint64(info.ModTime().Unix())
		if seen, ok := cache[name]; ok && seen >= mtime {
			continue
		}

		buf, err := readUTF16LE(filepath.Join(logDir, name))
		if err != nil {
			dlog.Reader.Debug("logreader: read failed, skipping", name, err)
			continue
		}

		enqueueBlocking(queue, buf)

		cache[name] = mtime
		stats.FilesRead++
		stats.BytesRead += uint64(info.Size())
		if progress != nil {
			progress(FileInfo{Name: name, Size: info.Size(), ModTime: mtime})
		}
	}

	queue <- Sentinel

	if useCache {
		if err := filecache.Save(cache, cachePath); err != nil {
			dlog.Reader.Debug("logreader: cache save failed", err)
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// enqueueBlocking spins on a non-blocking send, yielding the thread
// between attempts, mirroring the bounded queue's backpressure contract
// described for the reader.
func enqueueBlocking(queue chan<- []uint16, buf []uint16) {
	for {
		select {
		case queue <- buf:
			return
		default:
			time.Sleep(constants.ReaderQueueSpinYield)
		}
	}
}

// readUTF16LE loads a file's contents as UTF-16LE code units, skipping
// the leading 2-byte BOM. Files of 2 bytes or fewer (nothing after the
// BOM, which would decode to the empty end-of-input sentinel) or of odd
// byte length are rejected. The read itself goes through a pooled buffer,
// since a full directory pass opens many small files back to back.
func readUTF16LE(path string) ([]uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := pool.BytesBuffer.Get().(*bytes.Buffer)
	defer pool.RecycleBytesBuffer(buf)

	if _, err := io.Copy(buf, f); err != nil {
		return nil, err
	}

	raw := buf.Bytes()
	if len(raw) <= 2 || len(raw)%2 != 0 {
		return nil, fmt.Errorf("logreader: %s is not a valid UTF-16LE file (%d bytes)", path, len(raw))
	}

	body := raw[2:]
	units := make([]uint16, len(body)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(body[i*2 : i*2+2])
	}
	return units, nil
}
