package mpd

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// Play starts playback at the current position.
func (c *Client) Play(ctx context.Context) error {
	return c.Run(ctx, NewCommand(VerbPlay))
}

// PlayPos starts playback at a queue position.
func (c *Client) PlayPos(ctx context.Context, pos uint32) error {
	return c.Run(ctx, NewPlayCommand(pos))
}

// PlayID starts playback of the queue entry with the given id.
func (c *Client) PlayID(ctx context.Context, id uint32) error {
	return c.Run(ctx, NewPlayIDCommand(id))
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return c.Run(ctx, NewPauseCommand(true))
}

// Unpause resumes paused playback.
func (c *Client) Unpause(ctx context.Context) error {
	return c.Run(ctx, NewPauseCommand(false))
}

// TogglePause pauses while playing and resumes otherwise. A stopped player
// starts playing.
func (c *Client) TogglePause(ctx context.Context) error {
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}
	switch st.State {
	case Playing:
		return c.Pause(ctx)
	case Paused:
		return c.Unpause(ctx)
	default:
		return c.Play(ctx)
	}
}

// Stop stops playback.
func (c *Client) Stop(ctx context.Context) error {
	return c.Run(ctx, NewCommand(VerbStop))
}

// Next skips to the next song.
func (c *Client) Next(ctx context.Context) error {
	return c.Run(ctx, NewCommand(VerbNext))
}

// Previous goes back to the previous song.
func (c *Client) Previous(ctx context.Context) error {
	return c.Run(ctx, NewCommand(VerbPrevious))
}

// GetVolume returns the mixer volume.
func (c *Client) GetVolume(ctx context.Context) (Volume, error) {
	var vol Volume
	err := c.Execute(ctx, NewCommand(VerbGetVol), DecoderFunc(func(key, value string) (Outcome, error) {
		if key != "volume" {
			return NotHandled(value), nil
		}
		n, err := parseUint(key, value, 8)
		if err != nil {
			return Outcome{}, err
		}
		vol.Set(uint8(n))
		return Handled(), nil
	}))
	if err != nil {
		return Volume{}, err
	}
	return vol, nil
}

// SetVolume sets the mixer volume, capped at MaxVolume.
func (c *Client) SetVolume(ctx context.Context, v uint8) error {
	return c.Run(ctx, NewSetVolCommand(min(v, MaxVolume)))
}

var errNoMixer = errors.New("daemon has no mixer")

// ChangeVolume applies "N", "+N" or "-N" to the current volume and returns
// the new level.
func (c *Client) ChangeVolume(ctx context.Context, delta string) (Volume, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return Volume{}, err
	}
	if !st.HasMixer {
		return Volume{}, errNoMixer
	}
	vol := st.Volume
	if err := vol.Apply(delta); err != nil {
		return Volume{}, err
	}
	if err := c.SetVolume(ctx, vol.Value()); err != nil {
		return Volume{}, err
	}
	return vol, nil
}

// SetRepeat toggles repeat mode.
func (c *Client) SetRepeat(ctx context.Context, on bool) error {
	return c.Run(ctx, NewRepeatCommand(on))
}

// SetRandom toggles random mode.
func (c *Client) SetRandom(ctx context.Context, on bool) error {
	return c.Run(ctx, NewRandomCommand(on))
}

// SetSingle sets single mode.
func (c *Client) SetSingle(ctx context.Context, mode OnOffOneshot) error {
	return c.Run(ctx, NewSingleCommand(mode))
}

// SetConsume sets consume mode.
func (c *Client) SetConsume(ctx context.Context, mode OnOffOneshot) error {
	return c.Run(ctx, NewConsumeCommand(mode))
}

var errSeek = errors.New(`expected seconds, "+seconds" or "-seconds"`)

// Seek moves within the current song. "30" seeks to 30 s, "+10" and "-10"
// move relative to the current position.
func (c *Client) Seek(ctx context.Context, spec string) error {
	s := strings.TrimSpace(spec)
	relative := strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-")
	offset, err := strconv.ParseFloat(s, 64)
	if err != nil || s == "" {
		return NewParseError("seek", spec, errSeek)
	}
	if !relative && offset < 0 {
		return NewParseError("seek", spec, errSeek)
	}
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if st.State == Stopped {
		return ErrNoSongPlaying
	}
	return c.Run(ctx, NewSeekCurCommand(offset, relative))
}

// Clear empties the queue.
func (c *Client) Clear(ctx context.Context) error {
	return c.Run(ctx, NewCommand(VerbClear))
}

// Add appends a file or directory to the queue.
func (c *Client) Add(ctx context.Context, uri string) error {
	return c.Run(ctx, NewAddCommand(uri))
}

// AddID appends a single file to the queue and returns its id.
func (c *Client) AddID(ctx context.Context, uri string) (uint32, error) {
	var id uint32
	err := c.Execute(ctx, NewCommand(VerbAddID, uri), DecoderFunc(func(key, value string) (Outcome, error) {
		if key != "Id" {
			return NotHandled(value), nil
		}
		n, err := parseUint32(key, value)
		if err != nil {
			return Outcome{}, err
		}
		id = n
		return Handled(), nil
	}))
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Delete removes the song at pos from the queue.
func (c *Client) Delete(ctx context.Context, pos uint32) error {
	return c.Run(ctx, NewDeleteCommand(pos))
}
