// Package pipeline is the orchestrator that ties the Reader, Parser,
// deduplication cache, frame compressor, and per-host TLS writers
// together: it owns the bounded file queue, drives the Consumer side
// of the producer/consumer split, and collects end-of-run statistics.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lbloecher/chatload/internal/config"
	"github.com/lbloecher/chatload/internal/constants"
	"github.com/lbloecher/chatload/internal/dedup"
	"github.com/lbloecher/chatload/internal/dlog"
	cherrors "github.com/lbloecher/chatload/internal/errors"
	"github.com/lbloecher/chatload/internal/frame"
	"github.com/lbloecher/chatload/internal/logparser"
	"github.com/lbloecher/chatload/internal/logreader"
	"github.com/lbloecher/chatload/internal/tlswriter"
)

// HostResult captures one writer's outcome for end-of-run reporting.
type HostResult struct {
	Host tlswriter.Host
	Err  error
}

// Stats summarizes one full pipeline run.
type Stats struct {
	Reader          logreader.ReadStats
	Reports         uint64
	CompressedBytes uint64
	Duration        time.Duration
	Hosts           []HostResult
}

// Pipeline runs exactly once per process invocation: construct it with
// Options, then call Run.
type Pipeline struct {
	opts config.Options
}

// New constructs a Pipeline from a resolved Options value.
func New(opts config.Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Run executes the full Reader → Parser → Network pipeline to
// completion, or until ctx is cancelled. progress, if non-nil, is
// invoked once per log file accepted by the Reader.
func (p *Pipeline) Run(ctx context.Context, progress func(logreader.FileInfo)) (Stats, error) {
	start := time.Now()
	var stats Stats

	baseConfig, err := tlswriter.BuildBaseConfig(p.opts.CAFile, p.opts.CAPath)
	if err != nil {
		return stats, fmt.Errorf("pipeline: build TLS config: %w", err)
	}

	writers := make([]*tlswriter.Writer, 0, len(p.opts.Hosts))
	for _, host := range p.opts.Hosts {
		if p.opts.InsecureTLS {
			host.Insecure = true
		}
		writers = append(writers, tlswriter.New(host, baseConfig, p.opts.Timeout))
	}

	queue := make(chan []uint16, constants.FileQueueCapacity)
	readerDone := make(chan struct{})
	var readStats logreader.ReadStats
	var readErr error

	go func() {
		defer close(readerDone)
		readStats, readErr = logreader.ReadLogs(
			p.opts.LogDir, p.opts.CachePath, p.opts.UseCache, p.opts.FilenameRegex, queue, progress)
	}()

	// Initial pump: drive every writer through resolve/connect/handshake/
	// version exchange concurrently before entering the main loop.
	var wg sync.WaitGroup
	for _, w := range writers {
		wg.Add(1)
		go func(w *tlswriter.Writer) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}
	wg.Wait()

	compressor, header := frame.New()
	if len(header) > 0 {
		broadcast(writers, header)
	}

	dedupCache := dedup.NewDefault()

	stats.Reports, stats.CompressedBytes, err = p.mainLoop(ctx, queue, writers, compressor, dedupCache)

	<-readerDone
	stats.Reader = readStats
	stats.Duration = time.Since(start)

	if err != nil {
		shutdownAll(writers)
		waitAll(writers)
		stats.Hosts = collectHostResults(writers)
		if readErr != nil {
			dlog.Pipeline.Warn("pipeline: reader error during cancellation path", readErr)
		}
		return stats, err
	}

	if tail, ferr := compressor.Finalize(); ferr != nil {
		shutdownAll(writers)
		waitAll(writers)
		stats.Hosts = collectHostResults(writers)
		return stats, fmt.Errorf("pipeline: finalize compressor: %w", ferr)
	} else if len(tail) > 0 {
		stats.CompressedBytes += uint64(len(tail))
		broadcast(writers, tail)
	}

	shutdownAll(writers)
	waitAll(writers)
	stats.Hosts = collectHostResults(writers)

	if readErr != nil {
		return stats, fmt.Errorf("pipeline: reader: %w", readErr)
	}
	return stats, nil
}

// mainLoop drains queue until the Reader's sentinel, parsing each file,
// deduplicating and compressing the resulting records, and broadcasting
// ready buffers to every writer. It returns the accumulated report
// count and compressed byte count, or an error if the compressor fails
// or every writer has failed.
func (p *Pipeline) mainLoop(
	ctx context.Context,
	queue <-chan []uint16,
	writers []*tlswriter.Writer,
	compressor *frame.Compressor,
	dedupCache *dedup.Cache,
) (reports uint64, compressedBytes uint64, err error) {
	parser := logparser.New()
	iteration := 0

	for {
		select {
		case <-ctx.Done():
			drainUntilSentinel(queue)
			return reports, compressedBytes, ctx.Err()
		case file := <-queue:
			if len(file) == 0 {
				return reports, compressedBytes, nil
			}

			result := parser.Parse(file)

			if len(result.Bytes) > 0 {
				kept := dedupeEntries(dedupCache, result.Bytes)
				if len(kept) > 0 {
					reports += uint64(len(logparser.SplitEntries(kept)))
					next, perr := compressor.PushChunk(kept)
					if perr != nil {
						drainUntilSentinel(queue)
						return reports, compressedBytes, fmt.Errorf("pipeline: compress chunk: %w", perr)
					}
					if len(next) > 0 {
						compressedBytes += uint64(len(next))
						broadcast(writers, next)
					}
				}
			}

			iteration++
			if iteration%constants.MainLoopQuorumInterval == 0 && allFailed(writers) {
				dlog.Pipeline.Warn("pipeline: every writer has failed, aborting run")
				drainUntilSentinel(queue)
				return reports, compressedBytes, cherrors.ErrAllWritersFailed
			}
		}
	}
}

// drainUntilSentinel discards remaining queue entries so the Reader,
// which may still be busy-spinning on a blocking enqueue, observes
// room and eventually exits after sending its end-of-input sentinel.
func drainUntilSentinel(queue <-chan []uint16) {
	for file := range queue {
		if len(file) == 0 {
			return
		}
	}
}

// dedupeEntries filters buf's individual records through cache,
// returning only those not already seen this run, concatenated in
// their original order.
func dedupeEntries(cache *dedup.Cache, buf []byte) []byte {
	entries := logparser.SplitEntries(buf)
	if len(entries) == 0 {
		return nil
	}

	out := make([]byte, 0, len(buf))
	for _, entry := range entries {
		if cache.AddIfAbsent(entry) {
			out = append(out, entry...)
		}
	}
	return out
}

func broadcast(writers []*tlswriter.Writer, buf []byte) {
	for _, w := range writers {
		if !w.Failed() {
			w.PushBuffer(buf)
		}
	}
}

func shutdownAll(writers []*tlswriter.Writer) {
	for _, w := range writers {
		w.Shutdown()
	}
}

func waitAll(writers []*tlswriter.Writer) {
	for _, w := range writers {
		w.Wait()
	}
}

func allFailed(writers []*tlswriter.Writer) bool {
	for _, w := range writers {
		if !w.Failed() {
			return false
		}
	}
	return true
}

func collectHostResults(writers []*tlswriter.Writer) []HostResult {
	results := make([]HostResult, len(writers))
	for i, w := range writers {
		results[i] = HostResult{Host: w.Host(), Err: w.Err()}
	}
	return results
}
