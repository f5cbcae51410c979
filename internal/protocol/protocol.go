// Package protocol defines the wire protocol spoken between a chatload
// client and a collector host. The handshake is a fixed 4-byte exchange:
// the client sends its protocol version as a little-endian u32, the
// server answers with a little-endian u32 command code. Everything after
// a VersionOK reply is the compressed report stream; there is no further
// framing beyond the LZ4 frame boundaries themselves.
package protocol

import "encoding/binary"

// Version is the protocol version this client speaks. Sent as the first
// 4 bytes written to a freshly connected host.
const Version uint32 = 1

// Command is a server-to-client reply code, sent as a little-endian u32
// immediately following the client's version.
type Command uint32

const (
	// VersionOK indicates the server accepted the client's version and is
	// ready to receive the compressed report stream.
	VersionOK Command = 1

	// VersionNotSupported indicates the server rejected the client's
	// version. The server is expected to close the connection right
	// after sending this.
	VersionNotSupported Command = 2
)

func (c Command) String() string {
	switch c {
	case VersionOK:
		return "VERSION_OK"
	case VersionNotSupported:
		return "VERSION_NOT_SUPPORTED"
	default:
		return "UNKNOWN_COMMAND"
	}
}

// EncodeVersion returns the 4-byte little-endian encoding of Version,
// the payload the client writes to open a session.
func EncodeVersion() [4]byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], Version)
	return buf
}

// DecodeCommand reads a command code from its little-endian wire form.
func DecodeCommand(buf [4]byte) Command {
	return Command(binary.LittleEndian.Uint32(buf[:]))
}
