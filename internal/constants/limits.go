package constants

// Numeric limits and configuration values.
const (
	// DefaultTLSPort is the default collector port when a host entry omits one.
	DefaultTLSPort = 36643

	// DedupDefaultIndexBits is k in the dedup cache's 2^k-slot table
	// (spec.md §3: "default k = 18").
	DedupDefaultIndexBits = 18

	// DedupDefaultValueBits is w, the width of each stored tag
	// (spec.md §3: "default w = 32").
	DedupDefaultValueBits = 32

	// MainLoopPollInterval is the number of dequeued files between
	// non-blocking I/O-loop pumps in a single-reactor design (spec.md §4.G).
	// pipeline.mainLoop does not reference it: each tlswriter.Writer drives
	// its own connection on its own goroutine, so there is no loop to pump.
	MainLoopPollInterval = 10

	// MainLoopQuorumInterval is how many dequeued files the orchestrator
	// processes between quorum checks ("every writer failed") (spec.md §4.G).
	MainLoopQuorumInterval = 50

	// PercentageMultiplier is the scale factor for percentages. No report
	// in this module computes a percentage, so nothing references it.
	PercentageMultiplier = 100.0
)
