package mpdtest

import (
	"fmt"

	"github.com/pascalbakker/rmpc/mpd"
)

// Canned responses used by DefaultHandler.
var (
	StatusLines = []string{
		"volume: 50",
		"repeat: 0",
		"random: 0",
		"single: 0",
		"consume: 0",
		"playlist: 2",
		"playlistlength: 2",
		"state: play",
		"song: 0",
		"songid: 1",
		"elapsed: 12.000",
		"duration: 200.000",
		"audio: 44100:16:2",
	}

	CurrentSongLines = []string{
		"file: music/first.flac",
		"Title: First",
		"Artist: Someone",
		"duration: 200.000",
		"Pos: 0",
		"Id: 1",
	}

	QueueLines = []string{
		"file: music/first.flac",
		"Title: First",
		"Artist: Someone",
		"duration: 200.000",
		"Pos: 0",
		"Id: 1",
		"file: music/second.mp3",
		"Title: Second",
		"duration: 95.500",
		"Pos: 1",
		"Id: 2",
	}

	OutputLines = []string{
		"outputid: 0",
		"outputname: ALSA",
		"plugin: alsa",
		"outputenabled: 1",
		"outputid: 1",
		"outputname: Stream",
		"plugin: httpd",
		"outputenabled: 0",
	}

	StatsLines = []string{
		"artists: 1",
		"albums: 1",
		"songs: 2",
		"uptime: 60",
		"playtime: 12",
		"db_playtime: 295",
		"db_update: 1700000000",
	}
)

// DefaultHandler answers the read-only queries with canned data, accepts
// control commands silently and rejects anything else as unknown.
func DefaultHandler(cmd mpd.Command) Response {
	switch cmd.Verb {
	case mpd.VerbStatus:
		return Respond(StatusLines...)
	case mpd.VerbCurrentSong:
		return Respond(CurrentSongLines...)
	case mpd.VerbPlaylistInfo:
		return Respond(QueueLines...)
	case mpd.VerbOutputs:
		return Respond(OutputLines...)
	case mpd.VerbStats:
		return Respond(StatsLines...)
	case mpd.VerbGetVol:
		return Respond("volume: 50")
	case mpd.VerbPing, mpd.VerbPlay, mpd.VerbPlayID, mpd.VerbPause, mpd.VerbStop,
		mpd.VerbNext, mpd.VerbPrevious, mpd.VerbSetVol, mpd.VerbRepeat,
		mpd.VerbRandom, mpd.VerbSingle, mpd.VerbConsume, mpd.VerbSeekCur,
		mpd.VerbClear, mpd.VerbAdd, mpd.VerbDelete, mpd.VerbEnableOutput,
		mpd.VerbDisableOutput, mpd.VerbToggleOutput:
		return Respond()
	}
	return Ack(mpd.AckUnknown, "", fmt.Sprintf("unknown command %q", cmd.Verb))
}

// Chain tries handlers in order, falling back to DefaultHandler when every
// one of them returns ok == false.
func Chain(handlers ...func(cmd mpd.Command) (Response, bool)) Handler {
	return func(cmd mpd.Command) Response {
		for _, h := range handlers {
			if resp, ok := h(cmd); ok {
				return resp
			}
		}
		return DefaultHandler(cmd)
	}
}

// On answers verb with resp and leaves every other command to the next
// handler in a Chain.
func On(verb string, resp Response) func(cmd mpd.Command) (Response, bool) {
	return func(cmd mpd.Command) (Response, bool) {
		if cmd.Verb != verb {
			return Response{}, false
		}
		return resp, true
	}
}
