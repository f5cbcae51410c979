// Package frame streams report bytes through an LZ4 frame encoder,
// producing ready-to-send output buffers as internal block boundaries
// are crossed. If the codec fails to initialize, the compressor
// transparently degrades to pass-through so the network writer works
// either way.
package frame

import (
	"bytes"

	"github.com/pierrec/lz4/v4"

	cherrors "github.com/lbloecher/chatload/internal/errors"
)

// Compressor streams chunks of bytes through the LZ4 frame format
// (64 KiB linked blocks, content checksum) or, if codec initialization
// failed, passes every chunk through unmodified.
type Compressor struct {
	w      *lz4.Writer
	buf    *bytes.Buffer
	active bool
}

// New constructs a Compressor and returns it along with the frame
// header bytes to send first. If the underlying codec cannot be
// initialized, the returned Compressor runs in pass-through mode and
// the header is empty.
func New() (*Compressor, []byte) {
	buf := &bytes.Buffer{}
	w := lz4.NewWriter(buf)

	if err := w.Apply(
		lz4.BlockSizeOption(lz4.Block64Kb),
		lz4.ChecksumOption(true),
	); err != nil {
		return &Compressor{active: false}, nil
	}

	// Force the frame header to be emitted immediately so the caller can
	// send it ahead of the first real chunk, per the streaming contract.
	if _, err := w.Write(nil); err != nil {
		return &Compressor{active: false}, nil
	}

	header := make([]byte, buf.Len())
	copy(header, buf.Bytes())
	buf.Reset()

	return &Compressor{w: w, buf: buf, active: true}, header
}

// IsActive reports whether this Compressor is actually compressing, as
// opposed to passing chunks through unmodified.
func (c *Compressor) IsActive() bool {
	return c.active
}

// PushChunk hands the compressor a byte sequence. It returns the ready
// output buffer produced so far, or nil if nothing is ready yet. The
// returned slice is owned by the Compressor until the next call to
// PushChunk or Finalize; callers must consume or copy it first.
func (c *Compressor) PushChunk(chunk []byte) ([]byte, error) {
	if !c.active {
		if len(chunk) == 0 {
			return nil, nil
		}
		return chunk, nil
	}

	if _, err := c.w.Write(chunk); err != nil {
		return nil, cherrors.Wrap(&cherrors.CompressorError{Op: "push_chunk", Err: err}, "frame")
	}

	if c.buf.Len() == 0 {
		return nil, nil
	}
	return c.drain(), nil
}

// Finalize emits the frame terminator and checksum. It returns nil once
// the Compressor is in pass-through mode, since pass-through has no
// trailing frame data to emit.
func (c *Compressor) Finalize() ([]byte, error) {
	if !c.active {
		return nil, nil
	}

	if err := c.w.Close(); err != nil {
		return nil, cherrors.Wrap(&cherrors.CompressorError{Op: "finalize", Err: err}, "frame")
	}

	if c.buf.Len() == 0 {
		return nil, nil
	}
	return c.drain(), nil
}

func (c *Compressor) drain() []byte {
	out := make([]byte, c.buf.Len())
	copy(out, c.buf.Bytes())
	c.buf.Reset()
	return out
}
