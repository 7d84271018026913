package mpd

import (
	"context"
	"errors"
	"strings"
)

// stickerType is the object type stickers are attached to.
const stickerType = "song"

// Sticker is a name/value pair attached to a song.
type Sticker struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var errSticker = errors.New(`expected "name=value"`)

func (s *Sticker) DecodeLine(key, value string) (Outcome, error) {
	if key != "sticker" {
		return NotHandled(value), nil
	}
	name, v, ok := strings.Cut(value, "=")
	if !ok || name == "" {
		return Outcome{}, NewParseError(key, value, errSticker)
	}
	s.Name, s.Value = name, v
	return Handled(), nil
}

// StickerMatch is one result of a sticker search.
type StickerMatch struct {
	File    string  `json:"file"`
	Sticker Sticker `json:"sticker"`
}

func (m *StickerMatch) DecodeLine(key, value string) (Outcome, error) {
	if key == "file" {
		m.File = value
		return Handled(), nil
	}
	return m.Sticker.DecodeLine(key, value)
}

// StickerGet returns the value of sticker name on uri.
func (c *Client) StickerGet(ctx context.Context, uri, name string) (Sticker, error) {
	var s Sticker
	if err := c.Execute(ctx, NewCommand(VerbSticker, "get", stickerType, uri, name), &s); err != nil {
		return Sticker{}, err
	}
	return s, nil
}

// StickerSet stores a sticker on uri.
func (c *Client) StickerSet(ctx context.Context, uri, name, value string) error {
	return c.Run(ctx, NewCommand(VerbSticker, "set", stickerType, uri, name, value))
}

// StickerList returns every sticker on uri.
func (c *Client) StickerList(ctx context.Context, uri string) ([]Sticker, error) {
	list := NewList[Sticker]("sticker")
	if err := c.Execute(ctx, NewCommand(VerbSticker, "list", stickerType, uri), list); err != nil {
		return nil, err
	}
	return list.Items(), nil
}

// StickerFind searches below uri for songs carrying sticker name.
func (c *Client) StickerFind(ctx context.Context, uri, name string) ([]StickerMatch, error) {
	list := NewList[StickerMatch]("file")
	if err := c.Execute(ctx, NewCommand(VerbSticker, "find", stickerType, uri, name), list); err != nil {
		return nil, err
	}
	return list.Items(), nil
}

// StickerDelete removes sticker name from uri.
func (c *Client) StickerDelete(ctx context.Context, uri, name string) error {
	return c.Run(ctx, NewCommand(VerbSticker, "delete", stickerType, uri, name))
}

// StickerDeleteAll removes every sticker from uri.
func (c *Client) StickerDeleteAll(ctx context.Context, uri string) error {
	return c.Run(ctx, NewCommand(VerbSticker, "delete", stickerType, uri))
}
