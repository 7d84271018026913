package mpd

import (
	"context"
	"path"
	"strings"
	"time"
)

// tagSeparator joins repeated values of a single-valued tag field.
const tagSeparator = "; "

// Song is a file in the database or an entry of the queue.
type Song struct {
	File         string          `json:"file"`
	Title        string          `json:"title,omitempty"`
	Artist       string          `json:"artist,omitempty"`
	Album        string          `json:"album,omitempty"`
	AlbumArtist  string          `json:"album_artist,omitempty"`
	Track        string          `json:"track,omitempty"`
	Disc         string          `json:"disc,omitempty"`
	Date         string          `json:"date,omitempty"`
	Genre        string          `json:"genre,omitempty"`
	Duration     time.Duration   `json:"duration,omitempty"`
	Pos          *uint32         `json:"pos,omitempty"`
	ID           *uint32         `json:"id,omitempty"`
	LastModified time.Time       `json:"last_modified,omitzero"`
	Format       string          `json:"format,omitempty"`
	Other        OtherAttributes `json:"other,omitempty"`

	preciseDuration bool
}

func (s *Song) DecodeLine(key, value string) (Outcome, error) {
	switch key {
	case "file":
		s.File = value
	case "Title":
		appendTag(&s.Title, value)
	case "Artist":
		appendTag(&s.Artist, value)
	case "Album":
		appendTag(&s.Album, value)
	case "AlbumArtist":
		appendTag(&s.AlbumArtist, value)
	case "Track":
		s.Track = value
	case "Disc":
		s.Disc = value
	case "Date":
		s.Date = value
	case "Genre":
		appendTag(&s.Genre, value)
	case "duration":
		d, err := parseSeconds(key, value)
		if err != nil {
			return Outcome{}, err
		}
		s.Duration = d
		s.preciseDuration = true
	case "Time":
		d, err := parseSeconds(key, value)
		if err != nil {
			return Outcome{}, err
		}
		if !s.preciseDuration {
			s.Duration = d
		}
	case "Pos":
		n, err := parseUint(key, value, 32)
		if err != nil {
			return Outcome{}, err
		}
		pos := uint32(n)
		s.Pos = &pos
	case "Id":
		n, err := parseUint(key, value, 32)
		if err != nil {
			return Outcome{}, err
		}
		id := uint32(n)
		s.ID = &id
	case "Last-Modified":
		t, err := parseTimestamp(key, value)
		if err != nil {
			return Outcome{}, err
		}
		s.LastModified = t
	case "Format":
		s.Format = value
	default:
		return NotHandled(value), nil
	}
	return Handled(), nil
}

func (s *Song) CollectOther(key, value string) {
	s.Other.CollectOther(key, value)
}

func appendTag(field *string, value string) {
	if *field == "" {
		*field = value
		return
	}
	*field += tagSeparator + value
}

// FileName returns the base name of File without its extension.
func (s Song) FileName() string {
	base := path.Base(s.File)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Tag looks up a tag by its protocol name, falling back to Other.
func (s Song) Tag(name string) (string, bool) {
	var v string
	switch name {
	case "file":
		v = s.File
	case "Title":
		v = s.Title
	case "Artist":
		v = s.Artist
	case "Album":
		v = s.Album
	case "AlbumArtist":
		v = s.AlbumArtist
	case "Track":
		v = s.Track
	case "Disc":
		v = s.Disc
	case "Date":
		v = s.Date
	case "Genre":
		v = s.Genre
	case "Format":
		v = s.Format
	default:
		return s.Other.Get(name)
	}
	return v, v != ""
}

// SongList decodes a sequence of songs.
func SongList() *List[Song, *Song] {
	return NewList[Song]("file")
}

// CurrentSong returns the playing or paused song, or nil when there is none.
func (c *Client) CurrentSong(ctx context.Context) (*Song, error) {
	var song Song
	if err := c.Execute(ctx, NewCommand(VerbCurrentSong), &song); err != nil {
		return nil, err
	}
	if song.File == "" {
		return nil, nil
	}
	return &song, nil
}

// Queue returns every song in the queue.
func (c *Client) Queue(ctx context.Context) ([]Song, error) {
	list := SongList()
	if err := c.Execute(ctx, NewCommand(VerbPlaylistInfo), list); err != nil {
		return nil, err
	}
	return list.Items(), nil
}

// Find returns database songs whose tags match filter exactly, for example
// `(Artist == "Foo")`.
func (c *Client) Find(ctx context.Context, filter string) ([]Song, error) {
	list := SongList()
	if err := c.Execute(ctx, NewCommand(VerbFind, filter), list); err != nil {
		return nil, err
	}
	return list.Items(), nil
}
