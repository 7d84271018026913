package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pascalbakker/rmpc/mpd"
	"github.com/pascalbakker/rmpc/mpd/mpdtest"
)

func decodeJSON[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output: %s", out)
	return v
}

func TestStatusCommand(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	out, _, err := runCLI(t, srv, "status")
	require.NoError(t, err)

	st := decodeJSON[map[string]any](t, out)
	assert.Equal(t, float64(50), st["volume"])
	assert.Equal(t, "play", st["state"])
	assert.Equal(t, false, st["repeat"])
}

func TestSongCommand(t *testing.T) {
	srv := mpdtest.Start(t, mpdtest.Chain(
		mpdtest.On(mpd.VerbLsInfo, mpdtest.Respond("file: album/track.flac", "Title: Track")),
	))

	out, _, err := runCLI(t, srv, "song")
	require.NoError(t, err)
	song := decodeJSON[map[string]any](t, out)
	assert.Equal(t, "music/first.flac", song["file"])

	out, _, err = runCLI(t, srv, "song", "--path", "album/track.flac")
	require.NoError(t, err)
	songs := decodeJSON[[]map[string]any](t, out)
	require.Len(t, songs, 1)
	assert.Equal(t, "Track", songs[0]["title"])
	assert.Contains(t, srv.Requests(), "lsinfo album/track.flac")
}

func TestControlCommands(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		request string
	}{
		{"Play", []string{"play"}, "play"},
		{"Play position", []string{"play", "3"}, "play 3"},
		{"Pause", []string{"pause"}, "pause 1"},
		{"Unpause", []string{"unpause"}, "pause 0"},
		{"Stop", []string{"stop"}, "stop"},
		{"Next", []string{"next"}, "next"},
		{"Previous", []string{"prev"}, "previous"},
		{"Clear", []string{"clear"}, "clear"},
		{"Repeat on", []string{"repeat", "on"}, "repeat 1"},
		{"Random off", []string{"random", "off"}, "random 0"},
		{"Single oneshot", []string{"single", "oneshot"}, "single oneshot"},
		{"Consume on", []string{"consume", "on"}, "consume 1"},
		{"Seek absolute", []string{"seek", "42"}, "seekcur 42"},
		{"Seek forward", []string{"seek", "+10"}, "seekcur +10"},
		{"Seek back", []string{"seek", "-5"}, "seekcur -5"},
		{"Add", []string{"add", "music/new.flac"}, "add music/new.flac"},
		{"Toggle output", []string{"toggleoutput", "1"}, "toggleoutput 1"},
		{"Enable output", []string{"enableoutput", "0"}, "enableoutput 0"},
		{"Disable output", []string{"disableoutput", "1"}, "disableoutput 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := mpdtest.Start(t, nil)
			out, _, err := runCLI(t, srv, tt.args...)
			require.NoError(t, err)
			assert.Empty(t, out)
			assert.Contains(t, srv.Requests(), tt.request)
		})
	}
}

func TestVolumeCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		request string
		volume  float64
	}{
		{"Show", []string{"volume"}, "getvol", 50},
		{"Set", []string{"volume", "30"}, "setvol 30", 30},
		{"Raise", []string{"volume", "+5"}, "setvol 55", 55},
		{"Lower", []string{"volume", "-5"}, "setvol 45", 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := mpdtest.Start(t, nil)
			out, _, err := runCLI(t, srv, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.volume, decodeJSON[map[string]float64](t, out)["volume"])
			assert.Contains(t, srv.Requests(), tt.request)
		})
	}
}

func TestVolumeCommandFlagsAfterValue(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	isolateEnv(t)

	root := newRootCommand()
	var out lockedBuffer
	root.SetOut(&out)
	root.SetErr(&lockedBuffer{})
	root.SetArgs([]string{"volume", "-10", "--address", srv.Addr()})
	require.NoError(t, root.Execute())
	assert.Contains(t, srv.Requests(), "setvol 40")
}

func TestAddCommandBatchesPaths(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	_, _, err := runCLI(t, srv, "add", "a.flac", "b c.flac")
	require.NoError(t, err)

	reqs := srv.Requests()
	assert.Contains(t, reqs, mpd.ListBegin)
	assert.Contains(t, reqs, "add a.flac")
	assert.Contains(t, reqs, `add "b c.flac"`)
	assert.Contains(t, reqs, mpd.ListEnd)
}

func TestOutputsCommand(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	out, _, err := runCLI(t, srv, "outputs")
	require.NoError(t, err)

	outputs := decodeJSON[[]mpd.Output](t, out)
	require.Len(t, outputs, 2)
	assert.Equal(t, "ALSA", outputs[0].Name)
	assert.True(t, outputs[0].Enabled)
	assert.False(t, outputs[1].Enabled)
}

func TestUpdateCommand(t *testing.T) {
	srv := mpdtest.Start(t, mpdtest.Chain(
		mpdtest.On(mpd.VerbUpdate, mpdtest.Respond("updating_db: 7")),
		mpdtest.On(mpd.VerbRescan, mpdtest.Respond("updating_db: 8")),
	))

	out, _, err := runCLI(t, srv, "update", "music", "--wait")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), decodeJSON[mpd.UpdateJob](t, out).ID)
	assert.Contains(t, srv.Requests(), "update music")

	out, _, err = runCLI(t, srv, "rescan")
	require.NoError(t, err)
	assert.Equal(t, uint32(8), decodeJSON[mpd.UpdateJob](t, out).ID)
}

func TestStickerCommands(t *testing.T) {
	srv := mpdtest.Start(t, mpdtest.Chain(
		func(cmd mpd.Command) (mpdtest.Response, bool) {
			if cmd.Verb != mpd.VerbSticker || len(cmd.Args) == 0 {
				return mpdtest.Response{}, false
			}
			switch cmd.Args[0] {
			case "get":
				return mpdtest.Respond("sticker: rating=5"), true
			case "list":
				return mpdtest.Respond("sticker: rating=5", "sticker: plays=12"), true
			default:
				return mpdtest.Respond(), true
			}
		},
	))

	out, _, err := runCLI(t, srv, "sticker", "get", "a.flac", "rating")
	require.NoError(t, err)
	assert.Equal(t, mpd.Sticker{Name: "rating", Value: "5"}, decodeJSON[mpd.Sticker](t, out))

	out, _, err = runCLI(t, srv, "sticker", "list", "a.flac")
	require.NoError(t, err)
	assert.Len(t, decodeJSON[[]mpd.Sticker](t, out), 2)

	_, _, err = runCLI(t, srv, "sticker", "set", "a.flac", "rating", "4")
	require.NoError(t, err)
	assert.Contains(t, srv.Requests(), "sticker set song a.flac rating 4")
}

func TestMountCommands(t *testing.T) {
	srv := mpdtest.Start(t, mpdtest.Chain(
		mpdtest.On(mpd.VerbMount, mpdtest.Respond()),
		mpdtest.On(mpd.VerbUnmount, mpdtest.Respond()),
		mpdtest.On(mpd.VerbListMounts, mpdtest.Respond("mount: ", "mount: nas", "storage: nfs://nas/music")),
	))

	_, _, err := runCLI(t, srv, "mount", "nas", "nfs://nas/music")
	require.NoError(t, err)
	assert.Contains(t, srv.Requests(), "mount nas nfs://nas/music")

	out, _, err := runCLI(t, srv, "listmounts")
	require.NoError(t, err)
	assert.Len(t, decodeJSON[[]mpd.Mount](t, out), 2)

	_, _, err = runCLI(t, srv, "unmount", "nas")
	require.NoError(t, err)
	assert.Contains(t, srv.Requests(), "unmount nas")
}

func TestAlbumArtCommand(t *testing.T) {
	image := []byte("\x89PNG fake image")
	srv := mpdtest.Start(t, mpdtest.Chain(
		mpdtest.On(mpd.VerbAlbumArt, mpdtest.Response{
			Lines:  []string{"size: 15", "type: image/png"},
			Binary: image,
		}),
	))

	path := filepath.Join(t.TempDir(), "cover.png")
	out, _, err := runCLI(t, srv, "albumart", "--output", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, image, data)

	info := decodeJSON[map[string]any](t, out)
	assert.Equal(t, "music/first.flac", info["uri"])
	assert.Equal(t, float64(len(image)), info["size"])
	assert.Contains(t, srv.Requests(), "albumart music/first.flac 0")
}

func TestCommandErrors(t *testing.T) {
	srv := mpdtest.Start(t, mpdtest.Chain(
		mpdtest.On(mpd.VerbPlay, mpdtest.Ack(mpd.AckNoExist, mpd.VerbPlay, "No such song")),
	))

	_, _, err := runCLI(t, srv, "play", "99")
	require.Error(t, err)
	assert.True(t, mpd.IsServerError(err, mpd.AckNoExist))

	tests := []struct {
		name string
		args []string
	}{
		{"Bad switch", []string{"repeat", "maybe"}},
		{"Bad mode", []string{"single", "twice"}},
		{"Bad position", []string{"play", "first"}},
		{"Bad output", []string{"enableoutput", "-1"}},
		{"Too many volumes", []string{"volume", "+1", "+2"}},
		{"Seek without offset", []string{"seek"}},
		{"Missing output flag", []string{"albumart"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, srv, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseOnOff(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"ON", true, false},
		{"1", true, false},
		{"off", false, false},
		{"0", false, false},
		{"false", false, false},
		{"maybe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOnOff(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
