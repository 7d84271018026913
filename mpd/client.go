package mpd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangeHandler receives coalesced change-sets. The set must not be modified.
type ChangeHandler func(changes ChangeSet)

// StateHandler receives every connection state transition.
type StateHandler func(state ConnectionState)

// ResyncHandler receives the state fetched after a reconnect or Resync.
type ResyncHandler func(snapshot Snapshot)

// DisconnectHandler is called when the connection is lost for good.
type DisconnectHandler func(err error)

// Client is a connection to the daemon.
//
// It keeps an idle request open whenever no command is running and carries
// at most one command at a time. Handlers run on a single dispatcher
// goroutine and may call back into the client.
type Client struct {
	cfg        Config
	baseLogger *slog.Logger
	metrics    *Metrics
	dial       DialFunc

	mu       sync.Mutex
	state    ConnectionState
	conn     net.Conn
	reader   *bufio.Reader
	logger   *slog.Logger
	version  string
	session  string
	idle     *idleRequest
	closed   bool
	snapshot *Snapshot

	onChange     ChangeHandler
	onState      StateHandler
	onResync     ResyncHandler
	onDisconnect DisconnectHandler

	writeMu sync.Mutex

	events       *dispatcher
	dispatchDone chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewClient creates a client. It does not connect; call Connect.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:          cfg,
		baseLogger:   slog.Default(),
		events:       newDispatcher(),
		dispatchDone: make(chan struct{}),
	}
	dialer := &net.Dialer{}
	c.dial = dialer.DialContext
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.cfg.validate(); err != nil {
		return nil, err
	}
	c.logger = c.baseLogger
	c.ctx, c.cancel = context.WithCancel(context.Background())
	go c.dispatchLoop()
	return c, nil
}

// Dial creates a client and connects it.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	c, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// SetChangeHandler sets the callback for change notifications.
func (c *Client) SetChangeHandler(handler ChangeHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = handler
}

// SetStateHandler sets the callback for state transitions.
func (c *Client) SetStateHandler(handler StateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
}

// SetResyncHandler sets the callback for resynchronised state.
func (c *Client) SetResyncHandler(handler ResyncHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResync = handler
}

// SetDisconnectHandler sets the callback for a connection that could not be
// restored.
func (c *Client) SetDisconnectHandler(handler DisconnectHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = handler
}

// Subscribe returns a channel receiving change-sets in addition to the change
// handler. A subscriber that falls behind by more than buffer sets misses
// them. Call the returned function to unsubscribe.
func (c *Client) Subscribe(buffer int) (<-chan ChangeSet, func()) {
	return c.events.subscribe(buffer)
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ProtocolVersion returns the version announced in the greeting.
func (c *Client) ProtocolVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// SessionID identifies the current connection in logs.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// LastSnapshot returns the most recent resynchronised state.
func (c *Client) LastSnapshot() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return Snapshot{}, false
	}
	return *c.snapshot, true
}

// Connect dials the daemon, reads the greeting, authenticates when a
// password is configured and starts idling.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != StateDisconnected && c.state != StateFatal {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	if err := c.establish(ctx, false); err != nil {
		c.setState(StateDisconnected)
		return err
	}
	return nil
}

// Close shuts the connection down. In-flight commands fail with ErrClosed,
// reconnection stops and no handler is called after the final state change.
// Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	conn, req := c.conn, c.idle
	c.conn, c.reader, c.idle = nil, nil, nil
	c.setStateLocked(StateDisconnected)
	c.closed = true
	logger := c.logger
	c.mu.Unlock()

	c.cancel()
	if req != nil {
		req.stopTimer()
	}
	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()
	logger.Info("client closed")
	return nil
}

// Done is closed once the dispatcher has delivered its last event after Close.
func (c *Client) Done() <-chan struct{} {
	return c.dispatchDone
}

// Execute sends cmd and decodes the response into d. A nil decoder discards
// the response.
func (c *Client) Execute(ctx context.Context, cmd Command, d Decoder) error {
	if err := checkCommand(cmd); err != nil {
		return err
	}
	return c.do(ctx, cmd.Verb, cmd.Line(), func(rd *bufio.Reader) error {
		return Decode(NewResponseReader(rd), d)
	})
}

// Run sends cmd and expects no data back.
func (c *Client) Run(ctx context.Context, cmd Command) error {
	return c.Execute(ctx, cmd, nil)
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.Run(ctx, NewPingCommand())
}

// ExecuteRaw parses a request line and returns the raw response lines.
func (c *Client) ExecuteRaw(ctx context.Context, line string) (*Pairs, error) {
	cmd, err := ParseCommand(line)
	if err != nil {
		return nil, err
	}
	var pairs Pairs
	if err := c.Execute(ctx, cmd, &pairs); err != nil {
		return &pairs, err
	}
	return &pairs, nil
}

// reservedVerbs drive the connection itself and cannot be sent as commands.
var reservedVerbs = map[string]bool{
	VerbIdle:             true,
	VerbNoIdle:           true,
	VerbClose:            true,
	ListBegin:            true,
	ListEnd:              true,
	"command_list_begin": true,
}

func checkCommand(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if reservedVerbs[cmd.Verb] {
		return fmt.Errorf("%w: %s is managed by the client", ErrInvalidArgument, cmd.Verb)
	}
	return nil
}

// do runs one request/response cycle.
func (c *Client) do(ctx context.Context, verb, payload string, read func(*bufio.Reader) error) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordCommand(verb, err, time.Since(start))
	}()

	conn, rd, logger, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	if verb == VerbPassword {
		logger.Debug("send", "verb", verb)
	} else {
		logger.Debug("send", "line", strings.TrimSuffix(payload, "\n"))
	}

	err = c.exchange(ctx, conn, rd, payload, c.cfg.CommandTimeout, read)
	c.release(conn, err)
	if err != nil && isTransport(err) && c.isClosed() {
		return &ConnectionError{Op: verb, Err: ErrClosed}
	}
	return err
}

// acquire moves the client from Idle to Busy and takes the idle request off
// the wire.
func (c *Client) acquire(ctx context.Context) (net.Conn, *bufio.Reader, *slog.Logger, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, nil, nil, &ConnectionError{Op: "acquire", Err: ErrClosed}
	}
	switch c.state {
	case StateIdle:
	case StateBusy:
		c.mu.Unlock()
		return nil, nil, nil, ErrBusy
	case StateFatal:
		c.mu.Unlock()
		return nil, nil, nil, ErrFatal
	default:
		c.mu.Unlock()
		return nil, nil, nil, &ConnectionError{Op: "acquire", Err: ErrNotConnected}
	}
	c.setStateLocked(StateBusy)
	req := c.idle
	c.idle = nil
	conn, rd, logger := c.conn, c.reader, c.logger
	c.mu.Unlock()

	if req != nil {
		if err := c.drainIdle(req); err != nil {
			c.fail(conn, err)
			return nil, nil, nil, err
		}
	}
	return conn, rd, logger, nil
}

// drainIdle sends noidle and waits until the idle response has been read.
func (c *Client) drainIdle(req *idleRequest) error {
	err := req.cancel(func(s string) error { return c.write(req.conn, s) }, c.cfg.CommandTimeout)
	if err != nil {
		return err
	}
	<-req.done
	if isTransport(req.err) {
		return req.err
	}
	return nil
}

// release returns the connection to Idle after a command, or hands it to
// reconnection when the command broke it.
func (c *Client) release(conn net.Conn, err error) {
	if isTransport(err) {
		c.fail(conn, err)
		return
	}
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateIdle)
	werr := c.armIdleLocked()
	c.mu.Unlock()
	if werr != nil {
		c.fail(conn, werr)
	}
}

// exchange writes payload and runs read under a deadline. Cancelling ctx
// aborts the read by expiring the deadline.
func (c *Client) exchange(ctx context.Context, conn net.Conn, rd *bufio.Reader, payload string, timeout time.Duration, read func(*bufio.Reader) error) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
		close(fired)
	})
	defer func() {
		if !stop() {
			<-fired
		}
		_ = conn.SetDeadline(time.Time{})
	}()

	if err := c.write(conn, payload); err != nil {
		return err
	}
	err := read(rd)
	if err != nil && isTransport(err) && ctx.Err() != nil {
		return &ConnectionError{Op: "read", Err: ctx.Err()}
	}
	return err
}

func (c *Client) write(conn net.Conn, payload string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := io.WriteString(conn, payload); err != nil {
		return wireError("write", err)
	}
	return nil
}

// establish opens a connection and installs it. With resync set the full
// player state is fetched before idling starts.
func (c *Client) establish(ctx context.Context, resync bool) error {
	session := uuid.NewString()
	logger := c.baseLogger.With("session", session)
	network, addr := SplitAddress(c.cfg.Address)

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	conn, err := c.dial(dialCtx, network, addr)
	if err != nil {
		return &ConnectionError{Op: "dial", Err: err}
	}
	rd := bufio.NewReader(conn)

	version, err := readGreeting(conn, rd, c.cfg.DialTimeout)
	if err != nil {
		conn.Close()
		return err
	}
	logger.Debug("greeting", "version", version, "address", addr)

	if c.cfg.Password != "" {
		c.setState(StateAuthenticating)
		if err := c.authenticate(ctx, conn, rd); err != nil {
			conn.Close()
			return err
		}
	}

	var snap *Snapshot
	if resync {
		s, err := c.resyncOn(ctx, conn, rd)
		if err != nil {
			conn.Close()
			return err
		}
		snap = &s
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn, c.reader = conn, rd
	c.version, c.session, c.logger = version, session, logger
	if snap != nil {
		c.snapshot = snap
	}
	c.setStateLocked(StateIdle)
	werr := c.armIdleLocked()
	c.mu.Unlock()

	logger.Info("connected", "network", network, "address", addr, "version", version)
	if snap != nil {
		c.events.push(event{snapshot: snap})
	}
	if werr != nil {
		c.fail(conn, werr)
	}
	return nil
}

func readGreeting(conn net.Conn, rd *bufio.Reader, timeout time.Duration) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer conn.SetReadDeadline(time.Time{})
	line, err := NewResponseReader(rd).readLine()
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			connErr.Op = "greeting"
		}
		return "", err
	}
	version, ok := strings.CutPrefix(line, GreetingPrefix)
	if !ok {
		return "", &ProtocolError{Line: line, Message: "unexpected greeting"}
	}
	return version, nil
}

func (c *Client) authenticate(ctx context.Context, conn net.Conn, rd *bufio.Reader) error {
	err := c.exchange(ctx, conn, rd, NewPasswordCommand(c.cfg.Password).Line(), c.cfg.AuthTimeout, func(rd *bufio.Reader) error {
		return Decode(NewResponseReader(rd), nil)
	})
	var se *ServerError
	if errors.As(err, &se) {
		return &AuthError{Err: se}
	}
	return err
}

// armIdleLocked issues an idle request and starts its reader. c.mu is held.
func (c *Client) armIdleLocked() error {
	if c.closed || c.conn == nil {
		return nil
	}
	conn := c.conn
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.CommandTimeout))
	err := c.write(conn, NewIdleCommand(c.cfg.Subsystems...).Line())
	_ = conn.SetWriteDeadline(time.Time{})
	if err != nil {
		return err
	}

	req := newIdleRequest(conn)
	req.timer = time.AfterFunc(c.cfg.MaxIdleAge, func() { c.refreshIdle(req) })
	c.idle = req
	c.wg.Add(1)
	go c.runIdle(req, c.reader, c.logger)
	return nil
}

// runIdle reads one idle response and re-arms idle unless a command or Close
// took the request away.
func (c *Client) runIdle(req *idleRequest, rd *bufio.Reader, logger *slog.Logger) {
	defer c.wg.Done()
	err := Decode(NewResponseReader(rd), req.changes)
	req.err = err
	close(req.done)

	if len(req.changes) > 0 {
		logger.Debug("changed", "subsystems", req.changes.Strings())
		c.metrics.RecordChanges(req.changes)
		c.events.push(event{changes: req.changes})
	}

	c.mu.Lock()
	if c.idle != req {
		c.mu.Unlock()
		return
	}
	c.idle = nil
	if err != nil {
		c.mu.Unlock()
		if isTransport(err) {
			c.fail(req.conn, err)
			return
		}
		logger.Warn("idle rejected", "error", err)
		return
	}
	werr := c.armIdleLocked()
	c.mu.Unlock()
	if werr != nil {
		c.fail(req.conn, werr)
	}
}

// refreshIdle cancels an idle request that has been open for MaxIdleAge;
// runIdle issues a fresh one.
func (c *Client) refreshIdle(req *idleRequest) {
	c.mu.Lock()
	current := c.idle == req
	logger := c.logger
	c.mu.Unlock()
	if !current {
		return
	}
	logger.Debug("refreshing idle")
	if err := req.cancel(func(s string) error { return c.write(req.conn, s) }, c.cfg.CommandTimeout); err != nil {
		c.fail(req.conn, err)
	}
}

// fail tears down a broken connection and starts reconnecting.
func (c *Client) fail(conn net.Conn, cause error) {
	c.mu.Lock()
	if c.closed || conn == nil || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn, c.reader = nil, nil
	if c.idle != nil {
		c.idle.stopTimer()
		c.idle = nil
	}
	logger := c.logger
	reconnect := c.cfg.Reconnect.MaxAttempts > 0
	if reconnect {
		c.setStateLocked(StateReconnecting)
		c.wg.Add(1)
	} else {
		c.setStateLocked(StateDisconnected)
	}
	c.mu.Unlock()

	_ = conn.Close()
	logger.Warn("connection lost", "error", cause)
	if reconnect {
		go c.reconnectLoop()
		return
	}
	c.events.push(event{err: cause})
}

func (c *Client) reconnectLoop() {
	defer c.wg.Done()
	err := retry(c.ctx, c.cfg.Reconnect, func(attempt int) error {
		if !c.setState(StateConnecting) {
			return permanent(ErrClosed)
		}
		c.metrics.RecordReconnect()
		c.baseLogger.Warn("reconnecting", "attempt", attempt, "address", c.cfg.Address)

		err := c.establish(c.ctx, true)
		if err == nil {
			return nil
		}
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return permanent(err)
		}
		c.setState(StateReconnecting)
		return err
	})
	if err == nil {
		return
	}

	var authErr *AuthError
	final := StateFatal
	if errors.As(err, &authErr) {
		final = StateDisconnected
	}
	if !c.setState(final) {
		return
	}
	c.baseLogger.Error("giving up on connection", "error", err)
	c.events.push(event{err: err})
}

// setState changes the state unless the client is closed.
func (c *Client) setState(s ConnectionState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.setStateLocked(s)
	return true
}

func (c *Client) setStateLocked(s ConnectionState) {
	if c.state == s {
		return
	}
	c.state = s
	c.metrics.RecordState(s)
	c.logger.Info("state changed", "state", s.String())
	c.events.push(event{state: &s})
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// dispatchLoop delivers queued events. After Close it flushes what is left
// and exits.
func (c *Client) dispatchLoop() {
	defer close(c.dispatchDone)
	for {
		select {
		case <-c.ctx.Done():
			c.flushEvents()
			return
		case <-c.events.signal:
			c.flushEvents()
		}
	}
}

func (c *Client) flushEvents() {
	for {
		ev, ok := c.events.pop()
		if !ok {
			return
		}
		c.deliver(ev)
	}
}

func (c *Client) deliver(ev event) {
	c.mu.Lock()
	onChange, onState, onResync, onDisconnect := c.onChange, c.onState, c.onResync, c.onDisconnect
	c.mu.Unlock()

	switch {
	case ev.changes != nil:
		c.events.fanout(ev.changes)
		if onChange != nil {
			onChange(ev.changes)
		}
	case ev.state != nil:
		if onState != nil {
			onState(*ev.state)
		}
	case ev.snapshot != nil:
		if onResync != nil {
			onResync(*ev.snapshot)
		}
	case ev.err != nil:
		if onDisconnect != nil {
			onDisconnect(ev.err)
		}
	}
}
