package mpd

import (
	"context"
	"fmt"
	"time"
)

// EntryKind tells what an LsInfoEntry refers to.
type EntryKind int

const (
	EntryDirectory EntryKind = iota + 1
	EntrySong
	EntryPlaylist
)

func (k EntryKind) MarshalText() ([]byte, error) {
	switch k {
	case EntryDirectory:
		return []byte("directory"), nil
	case EntrySong:
		return []byte("song"), nil
	case EntryPlaylist:
		return []byte("playlist"), nil
	}
	return []byte("unknown"), nil
}

// LsInfoEntry is one element of a directory listing.
type LsInfoEntry struct {
	Kind         EntryKind `json:"kind"`
	Path         string    `json:"path"`
	LastModified time.Time `json:"last_modified,omitzero"`
	Song         *Song     `json:"song,omitempty"`
}

func (e *LsInfoEntry) DecodeLine(key, value string) (Outcome, error) {
	switch key {
	case "directory":
		e.Kind, e.Path = EntryDirectory, value
		return Handled(), nil
	case "playlist":
		e.Kind, e.Path = EntryPlaylist, value
		return Handled(), nil
	case "file":
		e.Kind, e.Path = EntrySong, value
		e.Song = &Song{File: value}
		return Handled(), nil
	}
	if e.Song != nil {
		return e.Song.DecodeLine(key, value)
	}
	if key == "Last-Modified" {
		t, err := parseTimestamp(key, value)
		if err != nil {
			return Outcome{}, err
		}
		e.LastModified = t
		return Handled(), nil
	}
	return NotHandled(value), nil
}

func (e *LsInfoEntry) CollectOther(key, value string) {
	if e.Song != nil {
		e.Song.CollectOther(key, value)
	}
}

// LsInfoList decodes a directory listing.
func LsInfoList() *List[LsInfoEntry, *LsInfoEntry] {
	return NewList[LsInfoEntry]("directory", "file", "playlist")
}

// LsInfo lists the contents of a database directory; the empty path is the
// root.
func (c *Client) LsInfo(ctx context.Context, path string) ([]LsInfoEntry, error) {
	list := LsInfoList()
	if err := c.Execute(ctx, NewLsInfoCommand(path), list); err != nil {
		return nil, err
	}
	return list.Items(), nil
}

// SongInfo returns the database entry for a single file.
func (c *Client) SongInfo(ctx context.Context, path string) (Song, error) {
	entries, err := c.LsInfo(ctx, path)
	if err != nil {
		return Song{}, err
	}
	for _, e := range entries {
		if e.Kind == EntrySong && e.Song != nil {
			return *e.Song, nil
		}
	}
	return Song{}, &ServerError{Code: AckNoExist, Command: VerbLsInfo, Message: fmt.Sprintf("%s is not a song", path)}
}

// Playlist is a stored playlist.
type Playlist struct {
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified,omitzero"`
}

func (p *Playlist) DecodeLine(key, value string) (Outcome, error) {
	switch key {
	case "playlist":
		p.Name = value
	case "Last-Modified":
		t, err := parseTimestamp(key, value)
		if err != nil {
			return Outcome{}, err
		}
		p.LastModified = t
	default:
		return NotHandled(value), nil
	}
	return Handled(), nil
}

// ListPlaylists returns the stored playlists.
func (c *Client) ListPlaylists(ctx context.Context) ([]Playlist, error) {
	list := NewList[Playlist]("playlist")
	if err := c.Execute(ctx, NewCommand(VerbListPlaylists), list); err != nil {
		return nil, err
	}
	return list.Items(), nil
}
