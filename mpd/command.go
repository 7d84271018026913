package mpd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Protocol verbs used by this package.
const (
	// Connection
	VerbPing     = "ping"
	VerbPassword = "password"
	VerbClose    = "close"
	VerbIdle     = "idle"
	VerbNoIdle   = "noidle"

	// Status and queue
	VerbStatus       = "status"
	VerbCurrentSong  = "currentsong"
	VerbPlaylistInfo = "playlistinfo"
	VerbStats        = "stats"
	VerbClear        = "clear"
	VerbAdd          = "add"
	VerbAddID        = "addid"
	VerbDelete       = "delete"

	// Playback
	VerbPlay     = "play"
	VerbPlayID   = "playid"
	VerbPause    = "pause"
	VerbStop     = "stop"
	VerbNext     = "next"
	VerbPrevious = "previous"
	VerbSeekCur  = "seekcur"
	VerbSetVol   = "setvol"
	VerbGetVol   = "getvol"
	VerbRepeat   = "repeat"
	VerbRandom   = "random"
	VerbSingle   = "single"
	VerbConsume  = "consume"

	// Outputs and plugins
	VerbOutputs       = "outputs"
	VerbEnableOutput  = "enableoutput"
	VerbDisableOutput = "disableoutput"
	VerbToggleOutput  = "toggleoutput"
	VerbDecoders      = "decoders"

	// Database
	VerbFind          = "find"
	VerbLsInfo        = "lsinfo"
	VerbUpdate        = "update"
	VerbRescan        = "rescan"
	VerbListPlaylists = "listplaylists"
	VerbAlbumArt      = "albumart"
	VerbReadPicture   = "readpicture"

	// Mounts and stickers
	VerbMount      = "mount"
	VerbUnmount    = "unmount"
	VerbListMounts = "listmounts"
	VerbSticker    = "sticker"
)

// Command is a verb with its arguments. Build it with NewCommand or one of
// the typed constructors; the argument slice is not shared with the caller.
type Command struct {
	Verb string
	Args []string
}

// NewCommand creates a command from a verb and raw string arguments.
func NewCommand(verb string, args ...string) Command {
	return Command{Verb: verb, Args: slices.Clone(args)}
}

// Validate reports whether the command can be framed on a single line.
func (c Command) Validate() error {
	if c.Verb == "" || strings.ContainsAny(c.Verb, " \t\r\n\"\\") {
		return fmt.Errorf("%w: bad verb %q", ErrInvalidArgument, c.Verb)
	}
	for i, arg := range c.Args {
		if strings.ContainsAny(arg, "\r\n") {
			return fmt.Errorf("%w: line break in argument %d of %s", ErrInvalidArgument, i+1, c.Verb)
		}
	}
	return nil
}

// Encode returns the wire form of the command without the trailing newline.
func (c Command) Encode() string {
	var sb strings.Builder
	sb.WriteString(c.Verb)
	for _, arg := range c.Args {
		sb.WriteByte(' ')
		sb.WriteString(QuoteArg(arg))
	}
	return sb.String()
}

// Line returns the encoded command terminated by a newline.
func (c Command) Line() string {
	return c.Encode() + "\n"
}

func (c Command) String() string {
	return c.Encode()
}

// QuoteArg quotes an argument when it holds whitespace, double quotes or
// backslashes, escaping the quote and backslash characters. The empty
// argument becomes "".
func QuoteArg(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\v\f\"\\") {
		return arg
	}
	var sb strings.Builder
	sb.Grow(len(arg) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(arg); i++ {
		ch := arg[i]
		if ch == '"' || ch == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(ch)
	}
	sb.WriteByte('"')
	return sb.String()
}

// EncodeList frames commands as a command_list_ok_begin batch.
func EncodeList(cmds []Command) (string, error) {
	var sb strings.Builder
	sb.WriteString(ListBegin + "\n")
	for _, cmd := range cmds {
		if err := cmd.Validate(); err != nil {
			return "", err
		}
		sb.WriteString(cmd.Line())
	}
	sb.WriteString(ListEnd + "\n")
	return sb.String(), nil
}

// Typed constructors.

// NewPingCommand creates a no-op round trip.
func NewPingCommand() Command {
	return NewCommand(VerbPing)
}

// NewPasswordCommand authenticates the connection.
func NewPasswordCommand(password string) Command {
	return NewCommand(VerbPassword, password)
}

// NewIdleCommand waits for changes in subsystems, or in all of them when
// none are given.
func NewIdleCommand(subsystems ...Subsystem) Command {
	args := make([]string, len(subsystems))
	for i, s := range subsystems {
		args[i] = string(s)
	}
	return Command{Verb: VerbIdle, Args: args}
}

// NewPlayCommand starts playback at queue position pos.
func NewPlayCommand(pos uint32) Command {
	return NewCommand(VerbPlay, strconv.FormatUint(uint64(pos), 10))
}

// NewPlayIDCommand starts playback of the song with queue id id.
func NewPlayIDCommand(id uint32) Command {
	return NewCommand(VerbPlayID, strconv.FormatUint(uint64(id), 10))
}

// NewPauseCommand pauses or resumes playback.
func NewPauseCommand(pause bool) Command {
	return NewCommand(VerbPause, boolArg(pause))
}

// NewSetVolCommand sets the mixer volume.
func NewSetVolCommand(volume uint8) Command {
	return NewCommand(VerbSetVol, strconv.Itoa(int(volume)))
}

// NewRepeatCommand toggles repeat mode.
func NewRepeatCommand(on bool) Command {
	return NewCommand(VerbRepeat, boolArg(on))
}

// NewRandomCommand toggles random mode.
func NewRandomCommand(on bool) Command {
	return NewCommand(VerbRandom, boolArg(on))
}

// NewSingleCommand sets single mode.
func NewSingleCommand(mode OnOffOneshot) Command {
	return NewCommand(VerbSingle, mode.String())
}

// NewConsumeCommand sets consume mode.
func NewConsumeCommand(mode OnOffOneshot) Command {
	return NewCommand(VerbConsume, mode.String())
}

// NewSeekCurCommand seeks within the current song. A relative seek keeps the
// sign of offset ("+10", "-5"); an absolute one must not be negative.
func NewSeekCurCommand(offset float64, relative bool) Command {
	s := strconv.FormatFloat(offset, 'f', -1, 64)
	if relative && offset >= 0 {
		s = "+" + s
	}
	return NewCommand(VerbSeekCur, s)
}

// NewAddCommand appends uri, a file or directory, to the queue.
func NewAddCommand(uri string) Command {
	return NewCommand(VerbAdd, uri)
}

// NewDeleteCommand removes the song at pos from the queue.
func NewDeleteCommand(pos uint32) Command {
	return NewCommand(VerbDelete, strconv.FormatUint(uint64(pos), 10))
}

// NewOutputCommand runs an output verb (enable, disable, toggle) on id.
func NewOutputCommand(verb string, id uint32) Command {
	return NewCommand(verb, strconv.FormatUint(uint64(id), 10))
}

// NewUpdateCommand updates the database below path, or all of it when path
// is empty. With rescan set, unmodified files are read again.
func NewUpdateCommand(path string, rescan bool) Command {
	verb := VerbUpdate
	if rescan {
		verb = VerbRescan
	}
	if path == "" {
		return NewCommand(verb)
	}
	return NewCommand(verb, path)
}

// NewLsInfoCommand lists the directory at path, or the root when empty.
func NewLsInfoCommand(path string) Command {
	if path == "" {
		return NewCommand(VerbLsInfo)
	}
	return NewCommand(VerbLsInfo, path)
}

// NewAlbumArtCommand requests the cover chunk of uri starting at offset.
// With embedded set the picture is read from the file's tags instead.
func NewAlbumArtCommand(uri string, offset int, embedded bool) Command {
	verb := VerbAlbumArt
	if embedded {
		verb = VerbReadPicture
	}
	return NewCommand(verb, uri, strconv.Itoa(offset))
}

// NewMountCommand mounts the storage at uri under name.
func NewMountCommand(name, uri string) Command {
	return NewCommand(VerbMount, name, uri)
}

// NewUnmountCommand removes the mount called name.
func NewUnmountCommand(name string) Command {
	return NewCommand(VerbUnmount, name)
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
