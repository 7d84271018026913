package mpd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ResponseReader consumes one response from the wire, pair by pair.
//
// Next returns io.EOF when the response is complete. Inside a command list
// each sub-response also ends with io.EOF; NextSegment moves on to the next
// one.
type ResponseReader struct {
	rd      *bufio.Reader
	list    bool
	segDone bool
	done    bool
	broken  bool
	payload []byte
	lines   int
}

// NewResponseReader reads a single-command response from rd.
func NewResponseReader(rd *bufio.Reader) *ResponseReader {
	return &ResponseReader{rd: rd}
}

// NewListResponseReader reads the response to a command_list_ok_begin batch.
func NewListResponseReader(rd *bufio.Reader) *ResponseReader {
	return &ResponseReader{rd: rd, list: true}
}

// Done reports whether the final terminator has been consumed.
func (r *ResponseReader) Done() bool {
	return r.done
}

// Payload returns the bytes of the most recent binary block.
func (r *ResponseReader) Payload() []byte {
	return r.payload
}

// Next returns the next key/value pair of the current (sub-)response.
func (r *ResponseReader) Next() (key, value string, err error) {
	if r.broken {
		return "", "", &ProtocolError{Message: "response stream is out of sync"}
	}
	if r.done || r.segDone {
		return "", "", io.EOF
	}
	line, err := r.readLine()
	if err != nil {
		r.broken = true
		return "", "", err
	}
	r.lines++

	switch {
	case line == OKLine:
		r.done = true
		return "", "", io.EOF
	case line == ListOKLine:
		if !r.list {
			r.broken = true
			return "", "", &ProtocolError{Line: line, Message: "list_OK outside a command list"}
		}
		r.segDone = true
		return "", "", io.EOF
	case strings.HasPrefix(line, AckPrefix):
		r.done = true
		se, perr := ParseAck(line)
		if perr != nil {
			r.broken = true
			return "", "", perr
		}
		return "", "", se
	}

	key, value, ok := splitPair(line)
	if !ok {
		r.broken = true
		return "", "", &ProtocolError{Line: line, Message: "malformed response line"}
	}
	if key == BinaryKey {
		if err := r.readBinary(line, value); err != nil {
			r.broken = true
			return "", "", err
		}
	}
	return key, value, nil
}

// NextSegment advances past a list_OK. It returns false once the whole
// response has been consumed.
func (r *ResponseReader) NextSegment() bool {
	r.segDone = false
	return !r.done
}

// Drain consumes the rest of the response, across all sub-responses. A
// trailing ACK only ends the response; transport and framing failures are
// returned.
func (r *ResponseReader) Drain() error {
	for {
		_, _, err := r.Next()
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if r.done {
				return nil
			}
			r.NextSegment()
			continue
		}
		var se *ServerError
		if errors.As(err, &se) {
			return nil
		}
		return err
	}
}

func (r *ResponseReader) readLine() (string, error) {
	var buf []byte
	for {
		chunk, err := r.rd.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > MaxLineLength+1 {
			return "", &ProtocolError{Message: "response line exceeds limit", Err: ErrLineTooLong}
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return "", wireError("read", err)
	}
	return string(buf[:len(buf)-1]), nil
}

func (r *ResponseReader) readBinary(line, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return &ProtocolError{Line: line, Message: "invalid binary length"}
	}
	if n > MaxBinaryLength {
		return &ProtocolError{Line: line, Message: "binary block exceeds limit"}
	}
	data := make([]byte, n+1)
	if _, err := io.ReadFull(r.rd, data); err != nil {
		return wireError("read", err)
	}
	if data[n] != '\n' {
		return &ProtocolError{Line: line, Message: "binary block not followed by newline"}
	}
	r.payload = data[:n]
	return nil
}

// ParseAck parses an "ACK [code@index] {verb} message" line.
func ParseAck(line string) (*ServerError, error) {
	bad := func(msg string) error {
		return &ProtocolError{Line: line, Message: msg}
	}
	rest, ok := strings.CutPrefix(line, AckPrefix+"[")
	if !ok {
		return nil, bad("malformed ACK")
	}
	head, rest, ok := strings.Cut(rest, "]")
	if !ok {
		return nil, bad("malformed ACK code")
	}
	codeStr, indexStr, ok := strings.Cut(head, "@")
	if !ok {
		return nil, bad("malformed ACK code")
	}
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return nil, bad("malformed ACK code")
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		return nil, bad("malformed ACK index")
	}
	rest, ok = strings.CutPrefix(rest, " {")
	if !ok {
		return nil, bad("malformed ACK command")
	}
	verb, msg, ok := strings.Cut(rest, "}")
	if !ok {
		return nil, bad("malformed ACK command")
	}
	return &ServerError{
		Code:    AckCode(code),
		Index:   index,
		Command: verb,
		Message: strings.TrimPrefix(msg, " "),
	}, nil
}

func splitPair(line string) (key, value string, ok bool) {
	if key, value, ok = strings.Cut(line, ": "); ok {
		return key, value, key != ""
	}
	if k, found := strings.CutSuffix(line, ":"); found && k != "" {
		return k, "", true
	}
	return "", "", false
}

// wireError converts an I/O failure into a ConnectionError. A closed stream
// becomes io.ErrUnexpectedEOF so it never reads as the end of a response, and
// deadline expiry is folded into ErrTimeout.
func wireError(op string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &ConnectionError{Op: op, Err: err}
}
