// Package mpdtest runs an in-process fake daemon that speaks the MPD wire
// protocol. It answers commands through a per-test Handler and implements
// the parts of the protocol the client relies on itself: the greeting,
// password checks, command lists, idle and noidle.
package mpdtest

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/pascalbakker/rmpc/mpd"
)

// Version is announced in the greeting.
const Version = "0.24.0"

// Response is the server's answer to one command.
type Response struct {
	// Lines are written as they are, each followed by a newline.
	Lines []string
	// Binary, when set, is written as a "binary: N" block after Lines.
	Binary []byte
	// Ack replaces the success terminator. Its Index is rewritten inside
	// command lists.
	Ack *mpd.ServerError
	// Close drops the connection instead of answering.
	Close bool
}

// Respond builds a successful response from raw lines.
func Respond(lines ...string) Response {
	return Response{Lines: lines}
}

// Ack builds an error response.
func Ack(code mpd.AckCode, verb, msg string) Response {
	return Response{Ack: &mpd.ServerError{Code: code, Command: verb, Message: msg}}
}

// Handler answers one command. Connection-level commands (idle, noidle,
// password, close and command lists) never reach it.
type Handler func(cmd mpd.Command) Response

// Server is a running fake daemon.
type Server struct {
	listener net.Listener
	network  string
	addr     string
	handler  Handler
	password string
	greeting string

	mu       sync.Mutex
	conns    map[*conn]struct{}
	requests []string
	accepted int

	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithPassword requires clients to authenticate before any other command.
func WithPassword(password string) Option {
	return func(s *Server) { s.password = password }
}

// WithUnixSocket listens on a unix socket in a temporary directory.
func WithUnixSocket() Option {
	return func(s *Server) { s.network = "unix" }
}

// WithGreeting replaces the greeting line.
func WithGreeting(line string) Option {
	return func(s *Server) { s.greeting = line }
}

// Start runs a server until the test finishes. A nil handler uses
// DefaultHandler.
func Start(t testing.TB, handler Handler, opts ...Option) *Server {
	t.Helper()
	if handler == nil {
		handler = DefaultHandler
	}
	s := &Server{
		network:  "tcp",
		handler:  handler,
		greeting: mpd.GreetingPrefix + Version,
		conns:    make(map[*conn]struct{}),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	address := "127.0.0.1:0"
	if s.network == "unix" {
		// Short path: unix socket paths are limited to ~104 bytes on some
		// systems and t.TempDir can exceed that.
		dir, err := os.MkdirTemp("/tmp", "mpdtest-")
		if err != nil {
			t.Fatalf("mpdtest: temp dir: %v", err)
		}
		t.Cleanup(func() { os.RemoveAll(dir) })
		address = filepath.Join(dir, "socket")
	}

	ln, err := net.Listen(s.network, address)
	if err != nil {
		t.Fatalf("mpdtest: listen: %v", err)
	}
	s.listener = ln
	s.addr = ln.Addr().String()

	s.wg.Add(1)
	go s.acceptLoop()
	t.Cleanup(s.Close)
	return s
}

// Addr returns the listening address, usable as a client address.
func (s *Server) Addr() string {
	return s.addr
}

// Network returns "tcp" or "unix".
func (s *Server) Network() string {
	return s.network
}

// Requests returns every line received so far, across connections, in
// arrival order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Accepted returns how many connections have been accepted.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Notify marks subsystems changed on every connection, waking idle clients
// that listen for them.
func (s *Server) Notify(subsystems ...mpd.Subsystem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.notify(subsystems)
	}
}

// DropConnections closes every open connection without a goodbye.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.nc.Close()
	}
}

// Close stops the server and waits for its goroutines.
func (s *Server) Close() {
	s.once.Do(func() {
		close(s.closed)
		s.listener.Close()
		s.DropConnections()
		s.wg.Wait()
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			return
		}
		c := &conn{
			srv:     s,
			nc:      nc,
			wake:    make(chan struct{}, 1),
			pending: make(map[mpd.Subsystem]struct{}),
			authed:  s.password == "",
		}
		// Registered before the greeting so a Notify issued once the client
		// is connected always reaches it.
		s.mu.Lock()
		s.conns[c] = struct{}{}
		s.accepted++
		s.mu.Unlock()

		s.wg.Add(1)
		go c.serve()
	}
}

func (s *Server) record(line string) {
	s.mu.Lock()
	s.requests = append(s.requests, line)
	s.mu.Unlock()
}

func (s *Server) forget(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

type conn struct {
	srv *Server
	nc  net.Conn
	w   *bufio.Writer

	mu      sync.Mutex
	pending map[mpd.Subsystem]struct{}
	wake    chan struct{}

	authed bool
	idling bool
	filter []mpd.Subsystem
}

func (c *conn) notify(subsystems []mpd.Subsystem) {
	c.mu.Lock()
	for _, sub := range subsystems {
		c.pending[sub] = struct{}{}
	}
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// takeChanges removes and returns the pending subsystems matching filter.
func (c *conn) takeChanges(filter []mpd.Subsystem) []mpd.Subsystem {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []mpd.Subsystem
	for sub := range c.pending {
		if len(filter) == 0 || slices.Contains(filter, sub) {
			out = append(out, sub)
			delete(c.pending, sub)
		}
	}
	slices.Sort(out)
	return out
}

func (c *conn) serve() {
	defer c.srv.wg.Done()
	defer c.srv.forget(c)
	defer c.nc.Close()

	c.w = bufio.NewWriter(c.nc)
	c.writeLine(c.srv.greeting)
	if c.flush() != nil {
		return
	}

	lines := make(chan string)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(lines)
		rd := bufio.NewReader(c.nc)
		for {
			line, err := rd.ReadString('\n')
			if err != nil {
				return
			}
			select {
			case lines <- strings.TrimSuffix(line, "\n"):
			case <-quit:
				return
			}
		}
	}()

	var list []mpd.Command
	var inList bool
	for {
		select {
		case <-c.srv.closed:
			return
		case <-c.wake:
			if c.idling {
				c.finishIdle(false)
			}
		case line, ok := <-lines:
			if !ok {
				return
			}
			c.srv.record(line)

			if c.idling {
				if line != mpd.VerbNoIdle {
					// The daemon drops clients that send anything but
					// noidle while idling.
					return
				}
				c.finishIdle(true)
				continue
			}

			cmd, err := mpd.ParseCommand(line)
			if err != nil {
				c.writeAck(&mpd.ServerError{Code: mpd.AckArg, Message: err.Error()}, 0)
				if c.flush() != nil {
					return
				}
				continue
			}

			switch {
			case inList && cmd.Verb == mpd.ListEnd:
				inList = false
				if !c.runList(list) {
					return
				}
				list = nil
			case inList:
				list = append(list, cmd)
			case cmd.Verb == mpd.ListBegin:
				inList = true
			case cmd.Verb == mpd.VerbNoIdle:
				// Ignored outside idle.
			case cmd.Verb == mpd.VerbIdle:
				c.startIdle(cmd.Args)
			case cmd.Verb == mpd.VerbClose:
				return
			default:
				resp := c.answer(cmd)
				if resp.Close {
					return
				}
				c.writeResponse(resp, 0, false)
				if c.flush() != nil {
					return
				}
			}
		}
	}
}

func (c *conn) startIdle(args []string) {
	c.filter = c.filter[:0]
	for _, a := range args {
		c.filter = append(c.filter, mpd.Subsystem(a))
	}
	c.idling = true
	c.finishIdle(false)
}

// finishIdle answers an open idle once matching changes are pending, or
// unconditionally when cancelled.
func (c *conn) finishIdle(cancelled bool) {
	changes := c.takeChanges(c.filter)
	if len(changes) == 0 && !cancelled {
		return
	}
	for _, sub := range changes {
		c.writeLine(mpd.ChangedKey + ": " + string(sub))
	}
	c.writeLine(mpd.OKLine)
	c.idling = false
	_ = c.flush()
}

func (c *conn) runList(cmds []mpd.Command) bool {
	for i, cmd := range cmds {
		resp := c.answer(cmd)
		if resp.Close {
			return false
		}
		if resp.Ack != nil {
			c.writeAck(resp.Ack, i)
			return c.flush() == nil
		}
		c.writeResponse(resp, i, true)
	}
	c.writeLine(mpd.OKLine)
	return c.flush() == nil
}

func (c *conn) answer(cmd mpd.Command) Response {
	if cmd.Verb == mpd.VerbPassword {
		if len(cmd.Args) == 1 && cmd.Args[0] == c.srv.password {
			c.authed = true
			return Respond()
		}
		return Ack(mpd.AckPassword, mpd.VerbPassword, "incorrect password")
	}
	if !c.authed && cmd.Verb != mpd.VerbPing {
		return Ack(mpd.AckPermission, cmd.Verb, fmt.Sprintf("you don't have permission for %q", cmd.Verb))
	}
	return c.srv.handler(cmd)
}

func (c *conn) writeResponse(resp Response, index int, inList bool) {
	if resp.Ack != nil {
		c.writeAck(resp.Ack, index)
		return
	}
	for _, line := range resp.Lines {
		c.writeLine(line)
	}
	if resp.Binary != nil {
		c.writeLine(mpd.BinaryKey + ": " + strconv.Itoa(len(resp.Binary)))
		c.w.Write(resp.Binary)
		c.w.WriteByte('\n')
	}
	if inList {
		c.writeLine(mpd.ListOKLine)
	} else {
		c.writeLine(mpd.OKLine)
	}
}

func (c *conn) writeAck(se *mpd.ServerError, index int) {
	c.writeLine(fmt.Sprintf("ACK [%d@%d] {%s} %s", int(se.Code), index, se.Command, se.Message))
}

func (c *conn) writeLine(line string) {
	c.w.WriteString(line)
	c.w.WriteByte('\n')
}

func (c *conn) flush() error {
	return c.w.Flush()
}
