package mpd

import (
	"context"
	"errors"
)

// AlbumArt is a cover image assembled from binary chunks.
type AlbumArt struct {
	MimeType string `json:"type,omitempty"`
	Data     []byte `json:"-"`
}

// albumArtChunk decodes one albumart/readpicture response.
type albumArtChunk struct {
	size     int
	mimeType string
	data     []byte
}

func (ch *albumArtChunk) DecodeLine(key, value string) (Outcome, error) {
	switch key {
	case "size":
		n, err := parseInt(key, value)
		if err != nil {
			return Outcome{}, err
		}
		ch.size = n
	case "type":
		ch.mimeType = value
	default:
		return NotHandled(value), nil
	}
	return Handled(), nil
}

func (ch *albumArtChunk) DecodeBinary(data []byte) error {
	ch.data = data
	return nil
}

// ErrNoAlbumArt is returned when a song has no cover.
var ErrNoAlbumArt = errors.New("no album art")

// AlbumArt fetches the cover of uri. The cover file next to the song is
// tried first, then the picture embedded in its tags.
func (c *Client) AlbumArt(ctx context.Context, uri string) (AlbumArt, error) {
	art, err := c.fetchPicture(ctx, uri, false)
	if err == nil || !IsServerError(err, AckNoExist) {
		return art, err
	}
	art, err = c.fetchPicture(ctx, uri, true)
	switch {
	case IsServerError(err, AckNoExist):
		return AlbumArt{}, ErrNoAlbumArt
	case err != nil:
		return AlbumArt{}, err
	}
	return art, nil
}

func (c *Client) fetchPicture(ctx context.Context, uri string, embedded bool) (AlbumArt, error) {
	var art AlbumArt
	for {
		var chunk albumArtChunk
		if err := c.Execute(ctx, NewAlbumArtCommand(uri, len(art.Data), embedded), &chunk); err != nil {
			return AlbumArt{}, err
		}
		if chunk.size == 0 && len(chunk.data) == 0 {
			if len(art.Data) == 0 {
				return AlbumArt{}, ErrNoAlbumArt
			}
			return art, nil
		}
		if chunk.mimeType != "" {
			art.MimeType = chunk.mimeType
		}
		art.Data = append(art.Data, chunk.data...)
		if len(chunk.data) == 0 || len(art.Data) >= chunk.size {
			return art, nil
		}
	}
}
