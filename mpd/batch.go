package mpd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Batch is a command list executed atomically by the daemon. Each command
// has its own decoder; a failing command stops the list and its ServerError
// carries the command's index.
type Batch struct {
	cmds     []Command
	decoders []Decoder
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Add appends cmd with the decoder for its sub-response (nil discards it).
func (b *Batch) Add(cmd Command, d Decoder) *Batch {
	b.cmds = append(b.cmds, cmd)
	b.decoders = append(b.decoders, d)
	return b
}

// Len returns the number of commands.
func (b *Batch) Len() int {
	return len(b.cmds)
}

func (b *Batch) encode() (string, error) {
	for _, cmd := range b.cmds {
		if err := checkCommand(cmd); err != nil {
			return "", err
		}
	}
	return EncodeList(b.cmds)
}

// ExecuteBatch sends b as one command list.
func (c *Client) ExecuteBatch(ctx context.Context, b *Batch) error {
	if b.Len() == 0 {
		return nil
	}
	payload, err := b.encode()
	if err != nil {
		return err
	}
	return c.do(ctx, ListBegin, payload, func(rd *bufio.Reader) error {
		return decodeList(NewListResponseReader(rd), b.decoders)
	})
}

// decodeList reads one sub-response per decoder followed by the final OK.
func decodeList(r *ResponseReader, decoders []Decoder) error {
	for i, d := range decoders {
		if err := Decode(r, d); err != nil {
			return err
		}
		if r.Done() {
			return &ProtocolError{Message: fmt.Sprintf("command list ended after %d of %d responses", i, len(decoders))}
		}
		r.NextSegment()
	}
	key, _, err := r.Next()
	switch {
	case errors.Is(err, io.EOF) && r.Done():
		return nil
	case err != nil && !errors.Is(err, io.EOF):
		return err
	default:
		return &ProtocolError{Line: key, Message: "unexpected data after command list"}
	}
}

// Snapshot is the player state fetched in one command list.
type Snapshot struct {
	Status      Status    `json:"status"`
	CurrentSong *Song     `json:"current_song,omitempty"`
	Queue       []Song    `json:"queue"`
	Taken       time.Time `json:"taken"`
}

type snapshotDecoders struct {
	status Status
	song   Song
	queue  *List[Song, *Song]
}

func newSnapshotBatch() (*Batch, *snapshotDecoders) {
	d := &snapshotDecoders{queue: SongList()}
	b := NewBatch().
		Add(NewCommand(VerbStatus), &d.status).
		Add(NewCommand(VerbCurrentSong), &d.song).
		Add(NewCommand(VerbPlaylistInfo), d.queue)
	return b, d
}

func (d *snapshotDecoders) snapshot() Snapshot {
	snap := Snapshot{Status: d.status, Queue: d.queue.Items(), Taken: time.Now()}
	if d.song.File != "" {
		song := d.song
		snap.CurrentSong = &song
	}
	return snap
}

// Resync fetches status, current song and queue atomically, stores the
// result as the last snapshot and hands it to the resync handler.
func (c *Client) Resync(ctx context.Context) (Snapshot, error) {
	b, d := newSnapshotBatch()
	if err := c.ExecuteBatch(ctx, b); err != nil {
		return Snapshot{}, err
	}
	snap := d.snapshot()
	c.mu.Lock()
	c.snapshot = &snap
	c.mu.Unlock()
	c.events.push(event{snapshot: &snap})
	return snap, nil
}

// resyncOn runs the snapshot batch on a connection that is not installed yet.
func (c *Client) resyncOn(ctx context.Context, conn net.Conn, rd *bufio.Reader) (Snapshot, error) {
	b, d := newSnapshotBatch()
	payload, err := b.encode()
	if err != nil {
		return Snapshot{}, err
	}
	err = c.exchange(ctx, conn, rd, payload, c.cfg.CommandTimeout, func(rd *bufio.Reader) error {
		return decodeList(NewListResponseReader(rd), b.decoders)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return d.snapshot(), nil
}
