package mpd

import (
	"context"
	"errors"
	"strings"
	"time"
)

// PlayState is the player state reported by status.
type PlayState int

const (
	Stopped PlayState = iota
	Playing
	Paused
)

func (s PlayState) String() string {
	switch s {
	case Playing:
		return "play"
	case Paused:
		return "pause"
	default:
		return "stop"
	}
}

func (s PlayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var errPlayState = errors.New("expected play, pause or stop")

func parsePlayState(key, value string) (PlayState, error) {
	switch value {
	case "play":
		return Playing, nil
	case "pause":
		return Paused, nil
	case "stop":
		return Stopped, nil
	}
	return Stopped, NewParseError(key, value, errPlayState)
}

// OnOffOneshot is the tri-state used by the single and consume modes.
type OnOffOneshot int

const (
	Off OnOffOneshot = iota
	On
	Oneshot
)

func (o OnOffOneshot) String() string {
	switch o {
	case On:
		return "1"
	case Oneshot:
		return "oneshot"
	default:
		return "0"
	}
}

func (o OnOffOneshot) MarshalText() ([]byte, error) {
	switch o {
	case On:
		return []byte("on"), nil
	case Oneshot:
		return []byte("oneshot"), nil
	default:
		return []byte("off"), nil
	}
}

var errOnOffOneshot = errors.New(`expected "0", "1" or "oneshot"`)

// ParseOnOffOneshot accepts the wire forms as well as on/off.
func ParseOnOffOneshot(value string) (OnOffOneshot, error) {
	switch strings.ToLower(value) {
	case "0", "off":
		return Off, nil
	case "1", "on":
		return On, nil
	case "oneshot":
		return Oneshot, nil
	}
	return Off, NewParseError("mode", value, errOnOffOneshot)
}

func parseOnOffOneshot(key, value string) (OnOffOneshot, error) {
	switch value {
	case "0":
		return Off, nil
	case "1":
		return On, nil
	case "oneshot":
		return Oneshot, nil
	}
	return Off, NewParseError(key, value, errOnOffOneshot)
}

// Status is the player and queue state.
type Status struct {
	Volume             Volume          `json:"volume"`
	HasMixer           bool            `json:"has_mixer"`
	Repeat             bool            `json:"repeat"`
	Random             bool            `json:"random"`
	Single             OnOffOneshot    `json:"single"`
	Consume            OnOffOneshot    `json:"consume"`
	PlaylistVersion    uint32          `json:"playlist"`
	PlaylistLength     uint32          `json:"playlist_length"`
	State              PlayState       `json:"state"`
	Song               CurrentIndex    `json:"song"`
	SongID             uint32          `json:"song_id,omitempty"`
	NextSong           *uint32         `json:"next_song,omitempty"`
	NextSongID         *uint32         `json:"next_song_id,omitempty"`
	Elapsed            time.Duration   `json:"elapsed"`
	Duration           time.Duration   `json:"duration"`
	Bitrate            uint32          `json:"bitrate,omitempty"`
	Crossfade          time.Duration   `json:"xfade,omitempty"`
	MixRampDB          float64         `json:"mixramp_db,omitempty"`
	MixRampDelay       float64         `json:"mixramp_delay,omitempty"`
	AudioFormat        string          `json:"audio,omitempty"`
	UpdatingDB         uint32          `json:"updating_db,omitempty"`
	Error              string          `json:"error,omitempty"`
	Partition          string          `json:"partition,omitempty"`
	LastLoadedPlaylist string          `json:"last_loaded_playlist,omitempty"`
	Other              OtherAttributes `json:"other,omitempty"`

	preciseElapsed  bool
	preciseDuration bool
}

func (s *Status) DecodeLine(key, value string) (Outcome, error) {
	var err error
	switch key {
	case "volume":
		var v int
		if v, err = parseInt(key, value); err == nil {
			err = s.setVolume(key, value, v)
		}
	case "repeat":
		s.Repeat, err = parseBool(key, value)
	case "random":
		s.Random, err = parseBool(key, value)
	case "single":
		s.Single, err = parseOnOffOneshot(key, value)
	case "consume":
		s.Consume, err = parseOnOffOneshot(key, value)
	case "playlist":
		s.PlaylistVersion, err = parseUint32(key, value)
	case "playlistlength":
		s.PlaylistLength, err = parseUint32(key, value)
	case "state":
		s.State, err = parsePlayState(key, value)
	case "songid":
		s.SongID, err = parseUint32(key, value)
	case "nextsong":
		s.NextSong, err = parseUint32Ptr(key, value)
	case "nextsongid":
		s.NextSongID, err = parseUint32Ptr(key, value)
	case "elapsed":
		if s.Elapsed, err = parseSeconds(key, value); err == nil {
			s.preciseElapsed = true
		}
	case "duration":
		if s.Duration, err = parseSeconds(key, value); err == nil {
			s.preciseDuration = true
		}
	case "time":
		err = s.setLegacyTime(key, value)
	case "bitrate":
		s.Bitrate, err = parseUint32(key, value)
	case "xfade":
		s.Crossfade, err = parseSeconds(key, value)
	case "mixrampdb":
		s.MixRampDB, err = parseFloat(key, value)
	case "mixrampdelay":
		s.MixRampDelay, err = parseFloat(key, value)
	case "audio":
		s.AudioFormat = value
	case "updating_db":
		s.UpdatingDB, err = parseUint32(key, value)
	case "error":
		s.Error = value
	case "partition":
		s.Partition = value
	case "lastloadedplaylist":
		s.LastLoadedPlaylist = value
	default:
		return s.Song.DecodeLine(key, value)
	}
	if err != nil {
		return Outcome{}, err
	}
	return Handled(), nil
}

func (s *Status) CollectOther(key, value string) {
	s.Other.CollectOther(key, value)
}

var errVolumeRange = errors.New("volume out of range")

func (s *Status) setVolume(key, value string, v int) error {
	switch {
	case v < 0:
		s.HasMixer = false
		s.Volume.Set(0)
	case v > 255:
		return NewParseError(key, value, errVolumeRange)
	default:
		s.HasMixer = true
		s.Volume.Set(uint8(v))
	}
	return nil
}

var errLegacyTime = errors.New(`expected "elapsed:total"`)

// setLegacyTime handles "time: 12:300", used only when the precise keys are
// absent.
func (s *Status) setLegacyTime(key, value string) error {
	e, t, ok := strings.Cut(value, ":")
	if !ok {
		return NewParseError(key, value, errLegacyTime)
	}
	elapsed, err := parseSeconds(key, e)
	if err != nil {
		return NewParseError(key, value, errLegacyTime)
	}
	total, err := parseSeconds(key, t)
	if err != nil {
		return NewParseError(key, value, errLegacyTime)
	}
	if !s.preciseElapsed {
		s.Elapsed = elapsed
	}
	if !s.preciseDuration {
		s.Duration = total
	}
	return nil
}

func parseUint32(key, value string) (uint32, error) {
	n, err := parseUint(key, value, 32)
	return uint32(n), err
}

func parseUint32Ptr(key, value string) (*uint32, error) {
	n, err := parseUint32(key, value)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Status returns the current player status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := c.Execute(ctx, NewCommand(VerbStatus), &st); err != nil {
		return Status{}, err
	}
	return st, nil
}
