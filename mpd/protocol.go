package mpd

import (
	"net"
	"strings"
	"time"
)

// Wire markers.
const (
	// GreetingPrefix starts the first line the daemon sends on a new connection.
	GreetingPrefix = "OK MPD "

	// OKLine terminates a successful response.
	OKLine = "OK"

	// ListOKLine terminates one sub-response inside a command_list_ok_begin batch.
	ListOKLine = "list_OK"

	// AckPrefix starts an error response.
	AckPrefix = "ACK "

	// ChangedKey is the key of change notifications in an idle response.
	ChangedKey = "changed"

	// BinaryKey announces a binary payload of the given length.
	BinaryKey = "binary"

	// ListBegin opens a command list whose sub-responses end with list_OK.
	ListBegin = "command_list_ok_begin"

	// ListEnd closes a command list.
	ListEnd = "command_list_end"
)

// Limits and timeouts.
const (
	// MaxLineLength is the longest response line the reader accepts.
	MaxLineLength = 1 << 20

	// MaxBinaryLength is the largest binary block the reader accepts. The
	// daemon splits pictures into chunks no larger than its binarylimit.
	MaxBinaryLength = 64 << 20

	// DefaultPort is the daemon's well-known TCP port.
	DefaultPort = "6600"

	// DefaultDialTimeout bounds dialing and reading the greeting.
	DefaultDialTimeout = 5 * time.Second

	// DefaultAuthTimeout bounds the password exchange.
	DefaultAuthTimeout = 5 * time.Second

	// DefaultCommandTimeout bounds a single request/response cycle.
	DefaultCommandTimeout = 10 * time.Second

	// DefaultMaxIdleAge is how long an idle request stays open before it is
	// cancelled and re-issued.
	DefaultMaxIdleAge = 5 * time.Minute
)

// SplitAddress picks the network for an address. Absolute paths and
// "@"-prefixed abstract names are unix sockets; everything else is TCP, with
// DefaultPort added when no port is given.
func SplitAddress(address string) (network, addr string) {
	switch {
	case strings.HasPrefix(address, "/"):
		return "unix", address
	case strings.HasPrefix(address, "@"):
		return "unix", address
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		return "tcp", net.JoinHostPort(address, DefaultPort)
	}
	return "tcp", address
}
