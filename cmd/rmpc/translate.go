// =============================================================================
// translate.go - Prompt Shorthands
// =============================================================================
//
// The prompt sends protocol lines as typed, but a few shorthands are
// expanded first:
//
//	n               next
//	p, prev         previous
//	t, toggle       pause            (toggles)
//	s               stop
//	st              status
//	cs              currentsong
//	q               playlistinfo
//	vol             getvol
//	vol 40          setvol 40
//	vol +5          volume +5
//	seek +10        seekcur +10
//	repeat on       repeat 1         (also random, single, consume)
//	a PATH          add "PATH"       (PATH may contain spaces)
//	ls [PATH]       lsinfo ["PATH"]
//	up [PATH]       update ["PATH"]
//
// =============================================================================

package main

import (
	"strings"

	"github.com/pascalbakker/rmpc/mpd"
)

// translateLine returns the protocol line for a prompt line. Anything that
// is not a shorthand is passed through unchanged.
func translateLine(line string) string {
	trimmed := strings.TrimSpace(line)
	keyword, args, _ := strings.Cut(trimmed, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(keyword) {
	case "n":
		return mpd.VerbNext
	case "p", "prev":
		return mpd.VerbPrevious
	case "t", "toggle":
		return mpd.VerbPause
	case "s":
		return mpd.VerbStop
	case "st":
		return mpd.VerbStatus
	case "cs":
		return mpd.VerbCurrentSong
	case "q":
		return mpd.VerbPlaylistInfo
	case "vol":
		return translateVolume(args)
	case "seek":
		if args == "" {
			return trimmed
		}
		return mpd.VerbSeekCur + " " + args
	case "repeat", "random", "single", "consume":
		return strings.ToLower(keyword) + " " + translateSwitch(args)
	case "a":
		if args == "" {
			return mpd.VerbAdd
		}
		return mpd.VerbAdd + " " + mpd.QuoteArg(args)
	case "ls":
		return withOptionalPath(mpd.VerbLsInfo, args)
	case "up":
		return withOptionalPath(mpd.VerbUpdate, args)
	default:
		return trimmed
	}
}

func translateVolume(args string) string {
	switch {
	case args == "":
		return mpd.VerbGetVol
	case strings.HasPrefix(args, "+"), strings.HasPrefix(args, "-"):
		return "volume " + args
	default:
		return mpd.VerbSetVol + " " + args
	}
}

// translateSwitch maps on/off to the protocol's 1/0 and leaves other values
// such as "oneshot" for the daemon to judge.
func translateSwitch(arg string) string {
	switch strings.ToLower(arg) {
	case "on":
		return "1"
	case "off":
		return "0"
	default:
		return arg
	}
}

func withOptionalPath(verb, path string) string {
	if path == "" {
		return verb
	}
	return verb + " " + mpd.QuoteArg(path)
}
