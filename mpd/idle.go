package mpd

import (
	"net"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Subsystem names a category of daemon state reported by idle.
type Subsystem string

const (
	SubsystemDatabase       Subsystem = "database"
	SubsystemUpdate         Subsystem = "update"
	SubsystemStoredPlaylist Subsystem = "stored_playlist"
	SubsystemPlaylist       Subsystem = "playlist"
	SubsystemPlayer         Subsystem = "player"
	SubsystemMixer          Subsystem = "mixer"
	SubsystemOutput         Subsystem = "output"
	SubsystemOptions        Subsystem = "options"
	SubsystemPartition      Subsystem = "partition"
	SubsystemSticker        Subsystem = "sticker"
	SubsystemSubscription   Subsystem = "subscription"
	SubsystemMessage        Subsystem = "message"
	SubsystemNeighbor       Subsystem = "neighbor"
	SubsystemMount          Subsystem = "mount"
)

// KnownSubsystems lists every subsystem the daemon reports.
var KnownSubsystems = []Subsystem{
	SubsystemDatabase, SubsystemUpdate, SubsystemStoredPlaylist,
	SubsystemPlaylist, SubsystemPlayer, SubsystemMixer, SubsystemOutput,
	SubsystemOptions, SubsystemPartition, SubsystemSticker,
	SubsystemSubscription, SubsystemMessage, SubsystemNeighbor, SubsystemMount,
}

// ChangeSet is the set of subsystems that changed since the last report.
type ChangeSet map[Subsystem]struct{}

// NewChangeSet returns a set holding subsystems.
func NewChangeSet(subsystems ...Subsystem) ChangeSet {
	cs := make(ChangeSet, len(subsystems))
	for _, s := range subsystems {
		cs.Add(s)
	}
	return cs
}

// Add puts s in the set.
func (cs ChangeSet) Add(s Subsystem) {
	cs[s] = struct{}{}
}

// Has reports whether s changed.
func (cs ChangeSet) Has(s Subsystem) bool {
	_, ok := cs[s]
	return ok
}

// Merge adds every member of other.
func (cs ChangeSet) Merge(other ChangeSet) {
	for s := range other {
		cs.Add(s)
	}
}

// Subsystems returns the members in sorted order.
func (cs ChangeSet) Subsystems() []Subsystem {
	out := lo.Keys(cs)
	slices.Sort(out)
	return out
}

// Strings returns the sorted member names.
func (cs ChangeSet) Strings() []string {
	return lo.Map(cs.Subsystems(), func(s Subsystem, _ int) string { return string(s) })
}

// DecodeLine collects "changed" lines of an idle response.
func (cs ChangeSet) DecodeLine(key, value string) (Outcome, error) {
	if key != ChangedKey {
		return NotHandled(value), nil
	}
	cs.Add(Subsystem(value))
	return Handled(), nil
}

// idleRequest is one outstanding "idle" command. Its reader goroutine closes
// done once the response has been consumed.
type idleRequest struct {
	conn    net.Conn
	done    chan struct{}
	changes ChangeSet
	err     error

	cancelOnce sync.Once
	timer      *time.Timer
}

func newIdleRequest(conn net.Conn) *idleRequest {
	return &idleRequest{
		conn:    conn,
		done:    make(chan struct{}),
		changes: make(ChangeSet),
	}
}

// cancel interrupts the request with noidle. Only the first call writes; the
// read that follows is bounded by drainTimeout.
func (r *idleRequest) cancel(write func(string) error, drainTimeout time.Duration) error {
	var err error
	r.cancelOnce.Do(func() {
		if r.timer != nil {
			r.timer.Stop()
		}
		_ = r.conn.SetReadDeadline(time.Now().Add(drainTimeout))
		err = write(VerbNoIdle + "\n")
	})
	return err
}

func (r *idleRequest) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
	}
}

// event is one queued handler invocation.
type event struct {
	changes  ChangeSet
	state    *ConnectionState
	snapshot *Snapshot
	err      error
}

// dispatcher delivers events to handlers from a single goroutine, in order.
// Consecutive change-sets are merged while they wait.
type dispatcher struct {
	mu     sync.Mutex
	queue  []event
	signal chan struct{}
	subs   map[chan ChangeSet]struct{}
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		signal: make(chan struct{}, 1),
		subs:   make(map[chan ChangeSet]struct{}),
	}
}

func (d *dispatcher) push(ev event) {
	d.mu.Lock()
	if ev.changes != nil && len(d.queue) > 0 {
		if last := &d.queue[len(d.queue)-1]; last.changes != nil {
			last.changes.Merge(ev.changes)
			d.mu.Unlock()
			d.wake()
			return
		}
	}
	d.queue = append(d.queue, ev)
	d.mu.Unlock()
	d.wake()
}

func (d *dispatcher) wake() {
	select {
	case d.signal <- struct{}{}:
	default:
	}
}

func (d *dispatcher) pop() (event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return event{}, false
	}
	ev := d.queue[0]
	d.queue = d.queue[1:]
	return ev, true
}

func (d *dispatcher) subscribe(buffer int) (chan ChangeSet, func()) {
	ch := make(chan ChangeSet, buffer)
	d.mu.Lock()
	d.subs[ch] = struct{}{}
	d.mu.Unlock()
	return ch, func() {
		d.mu.Lock()
		delete(d.subs, ch)
		d.mu.Unlock()
	}
}

// fanout hands changes to subscribers without blocking; a full subscriber
// misses the set.
func (d *dispatcher) fanout(changes ChangeSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ch := range d.subs {
		select {
		case ch <- changes:
		default:
		}
	}
}
