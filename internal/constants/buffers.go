package constants

// Buffer size constants in bytes.
const (
	// ParserPreallocNames is the expected number of distinct characters per
	// channel, used to pre-size the parser's working map (spec.md §4.C).
	ParserPreallocNames = 1024

	// ParserHighNameLen estimates the average character name length plus
	// slack, used to pre-size the parser's output buffer per report.
	ParserHighNameLen = 16

	// FrameBlockSize is the maximum size of one LZ4 frame block (spec.md §3:
	// "64 KiB maximum block size").
	FrameBlockSize = 64 * 1024
)
