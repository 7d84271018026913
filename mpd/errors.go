package mpd

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Sentinel errors.
var (
	// ErrBusy indicates another command is already in flight.
	ErrBusy = errors.New("command already in flight")

	// ErrClosed indicates the client was closed.
	ErrClosed = errors.New("client closed")

	// ErrFatal indicates reconnection gave up; the client needs a new Connect.
	ErrFatal = errors.New("connection failed permanently")

	// ErrNotConnected indicates an operation was attempted without a connection.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates Connect was called on a live client.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrTimeout indicates a deadline expired on the wire.
	ErrTimeout = errors.New("timed out")

	// ErrLineTooLong indicates a response line exceeded MaxLineLength.
	ErrLineTooLong = errors.New("line too long")

	// ErrInvalidArgument indicates a command argument that cannot be framed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoSongPlaying indicates an operation that needs a current song.
	ErrNoSongPlaying = errors.New("no song playing")
)

// AckCode is the numeric error class carried by an ACK line.
type AckCode int

// Error classes reported by the daemon.
const (
	AckNotList       AckCode = 1
	AckArg           AckCode = 2
	AckPassword      AckCode = 3
	AckPermission    AckCode = 4
	AckUnknown       AckCode = 5
	AckNoExist       AckCode = 50
	AckPlaylistMax   AckCode = 51
	AckSystem        AckCode = 52
	AckPlaylistLoad  AckCode = 53
	AckUpdateAlready AckCode = 54
	AckPlayerSync    AckCode = 55
	AckExist         AckCode = 56
)

var ackNames = map[AckCode]string{
	AckNotList:       "not_list",
	AckArg:           "arg",
	AckPassword:      "password",
	AckPermission:    "permission",
	AckUnknown:       "unknown",
	AckNoExist:       "no_exist",
	AckPlaylistMax:   "playlist_max",
	AckSystem:        "system",
	AckPlaylistLoad:  "playlist_load",
	AckUpdateAlready: "update_already",
	AckPlayerSync:    "player_sync",
	AckExist:         "exist",
}

func (c AckCode) String() string {
	if name, ok := ackNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ack(%d)", int(c))
}

// ServerError is a structured ACK response.
type ServerError struct {
	Code    AckCode
	Index   int    // position of the failing command inside a command list
	Command string // verb the daemon was executing, may be empty
	Message string
}

func (e *ServerError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("server error %d: %s", int(e.Code), e.Message)
	}
	return fmt.Sprintf("server error %d in %q: %s", int(e.Code), e.Command, e.Message)
}

// AuthError reports a rejected password.
type AuthError struct {
	Err *ServerError
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Err.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ConnectionError represents a transport failure.
type ConnectionError struct {
	Op  string // "dial", "greeting", "read", "write", ...
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
	}
	return "connection error during " + e.Op
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a line that violates the wire grammar. The stream
// cannot be trusted after one.
type ProtocolError struct {
	Line    string
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Line == "" {
		return "protocol error: " + e.Message
	}
	return fmt.Sprintf("protocol error: %s: %q", e.Message, truncate(e.Line, 80))
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ParseError reports a value that could not be decoded for a recognized key.
type ParseError struct {
	Key   string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s: %q: %v", e.Key, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a ParseError for key and value.
func NewParseError(key, value string, err error) *ParseError {
	return &ParseError{Key: key, Value: value, Err: err}
}

// IsRetriable reports whether the same call may succeed if repeated later.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBusy) || errors.Is(err, ErrNotConnected) || errors.Is(err, ErrTimeout) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsServerError reports whether err carries an ACK with the given code.
func IsServerError(err error, code AckCode) bool {
	var se *ServerError
	return errors.As(err, &se) && se.Code == code
}

// isTransport reports whether err leaves the connection unusable.
func isTransport(err error) bool {
	var connErr *ConnectionError
	var protoErr *ProtocolError
	return errors.As(err, &connErr) || errors.As(err, &protoErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
