package constants

import "time"

// Timeout constants used throughout the application.
const (
	// DefaultWriterTimeout is the default per-host deadline armed at entry
	// to the Streaming state (spec.md §4.F, §6.4: "vendor-chosen, >= 30s").
	DefaultWriterTimeout = 30 * time.Second

	// DialTimeout is a per-endpoint bound for DNS resolution and TCP
	// connect. tlswriter does not reference it: its resolve, connect,
	// handshake and version exchange share the writer's own timeout.
	DialTimeout = 10 * time.Second

	// ReaderQueueSpinYield is how long the reader yields the thread while
	// spinning on a full queue (spec.md §4.B step 5: "yielding the thread").
	ReaderQueueSpinYield = 100 * time.Microsecond

	// InterruptGraceTimeout bounds how long a second Ctrl+C waits before
	// forcing an immediate exit once a graceful shutdown was requested.
	InterruptGraceTimeout = 5 * time.Second
)
