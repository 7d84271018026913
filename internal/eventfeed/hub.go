// Package eventfeed broadcasts idle notifications and connection states to
// websocket clients as JSON events.
package eventfeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/pascalbakker/rmpc/mpd"
)

// Event types.
const (
	TypeChanged = "changed"
	TypeState   = "state"
	TypeResync  = "resync"
)

// DefaultBuffer is the per-client queue length used when NewHub gets zero.
const DefaultBuffer = 64

const writeTimeout = 5 * time.Second

// Event is one message on the feed.
type Event struct {
	Type        string      `json:"type"`
	Subsystems  []string    `json:"subsystems,omitempty"`
	State       string      `json:"state,omitempty"`
	Status      *mpd.Status `json:"status,omitempty"`
	CurrentSong *mpd.Song   `json:"current_song,omitempty"`
	Time        time.Time   `json:"time"`
}

type client struct {
	send   chan []byte
	reason string // set before send is closed
}

// Hub fans events out to every connected websocket. A client whose queue is
// full is disconnected rather than slowing the others down.
type Hub struct {
	logger  *slog.Logger
	buffer  int
	origins []string

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. A nil logger uses slog.Default().
func NewHub(logger *slog.Logger, buffer int) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		logger:  logger.With("component", "eventfeed"),
		buffer:  buffer,
		clients: make(map[*client]struct{}),
	}
}

// AllowOrigins lets browser pages from hosts matching patterns (path.Match
// syntax, e.g. "*.example.com") connect. Without it only same-host pages and
// clients that send no Origin header are accepted. Call it before serving.
func (h *Hub) AllowOrigins(patterns ...string) {
	h.origins = append(h.origins, patterns...)
}

// ServeHTTP upgrades the request and streams events until the peer leaves,
// falls behind or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.CloseNow()

	c := h.add()
	if c == nil {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.remove(c, "")

	h.logger.Debug("feed client connected", "remote", r.RemoteAddr)
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("feed client left", "remote", r.RemoteAddr)
			return
		case msg, ok := <-c.send:
			if !ok {
				status := websocket.StatusPolicyViolation
				if c.reason == "shutting down" {
					status = websocket.StatusGoingAway
				}
				conn.Close(status, c.reason)
				return
			}
			if err := write(ctx, conn, msg); err != nil {
				h.logger.Debug("feed write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

func (h *Hub) add() *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	c := &client{send: make(chan []byte, h.buffer)}
	h.clients[c] = struct{}{}
	return c
}

// remove unregisters c. A non-empty reason also closes its queue so the
// serving goroutine shuts the socket with that reason.
func (h *Hub) remove(c *client, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, reason)
}

func (h *Hub) removeLocked(c *client, reason string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if reason != "" {
		c.reason = reason
		close(c.send)
	}
}

// Publish sends ev to every client.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encoding feed event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow feed client", "type", ev.Type)
			h.removeLocked(c, "slow consumer")
		}
	}
}

// PublishChanges announces a change-set.
func (h *Hub) PublishChanges(changes mpd.ChangeSet) {
	h.Publish(Event{Type: TypeChanged, Subsystems: changes.Strings()})
}

// PublishState announces a connection state transition.
func (h *Hub) PublishState(state mpd.ConnectionState) {
	h.Publish(Event{Type: TypeState, State: state.String()})
}

// PublishResync announces the state fetched after a reconnect.
func (h *Hub) PublishResync(snap mpd.Snapshot) {
	status := snap.Status
	h.Publish(Event{Type: TypeResync, Status: &status, CurrentSong: snap.CurrentSong})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c, "shutting down")
	}
}
