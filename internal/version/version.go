// Package version reports chatload's own version alongside the wire
// protocol version it speaks, for the client's --version output.
package version

import (
	"fmt"
	"os"

	"github.com/lbloecher/chatload/internal/protocol"
)

const (
	// Name of the client.
	Name string = "chatload"
	// Version of the client.
	Version string = "1.0.0"
)

// String returns a plain text representation of the client version and
// the wire protocol version it negotiates with collectors.
func String() string {
	return fmt.Sprintf("%s %s, protocol %d", Name, Version, protocol.Version)
}

// Print writes the version string to stdout.
func Print() {
	fmt.Println(String())
}

// PrintAndExit prints the version and exits successfully.
func PrintAndExit() {
	Print()
	os.Exit(0)
}
