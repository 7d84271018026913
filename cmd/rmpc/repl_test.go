package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pascalbakker/rmpc/mpd"
	"github.com/pascalbakker/rmpc/mpd/mpdtest"
)

// startREPL connects to srv and runs the prompt over input. It returns the
// prompt's output and error output once input is exhausted.
func startREPL(t *testing.T, srv *mpdtest.Server, input io.Reader) (*repl, func() (string, string)) {
	t.Helper()

	cfg := mpd.DefaultConfig()
	cfg.Address = srv.Addr()
	cfg.Reconnect = mpd.ReconnectConfig{}
	client, err := mpd.NewClient(cfg, mpd.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	out, errOut := &lockedBuffer{}, &lockedBuffer{}
	r := newREPL(client, newScannerEditor(input, out), out, errOut)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(func() { client.Close() })

	done := make(chan error, 1)
	go func() { done <- r.run(ctx) }()

	return r, func() (string, string) {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("prompt did not finish")
		}
		return out.String(), errOut.String()
	}
}

func runREPLInput(t *testing.T, srv *mpdtest.Server, input string) (string, string) {
	t.Helper()
	_, wait := startREPL(t, srv, strings.NewReader(input))
	return wait()
}

func TestREPLSendsProtocolLines(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	out, errOut := runREPLInput(t, srv, "getvol\noutputs\n")

	assert.Contains(t, out, "volume: 50\n")
	assert.Contains(t, out, "outputname: ALSA\n")
	assert.Contains(t, out, "outputname: Stream\n")
	assert.Empty(t, errOut)
	assert.Contains(t, srv.Requests(), "getvol")
	assert.Contains(t, srv.Requests(), "outputs")
}

func TestREPLExpandsShorthands(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	_, errOut := runREPLInput(t, srv, "n\nrepeat on\na some dir/song.flac\n")

	assert.Empty(t, errOut)
	reqs := srv.Requests()
	assert.Contains(t, reqs, "next")
	assert.Contains(t, reqs, "repeat 1")
	assert.Contains(t, reqs, `add "some dir/song.flac"`)
}

func TestREPLReportsServerErrors(t *testing.T) {
	srv := mpdtest.Start(t, mpdtest.Chain(
		mpdtest.On(mpd.VerbPlay, mpdtest.Ack(mpd.AckNoExist, mpd.VerbPlay, "No such song")),
	))
	out, errOut := runREPLInput(t, srv, "play 99\ngetvol\n")

	assert.Contains(t, errOut, "Error: ")
	assert.Contains(t, errOut, "No such song")
	assert.Contains(t, out, "volume: 50", "connection stays usable after an error")
}

func TestREPLRejectsConnectionCommands(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	out, errOut := runREPLInput(t, srv, "idle\nping\n")

	assert.Contains(t, errOut, "Error: ")
	assert.NotContains(t, out, "changed:")
	assert.Contains(t, srv.Requests(), "ping")
}

func TestREPLDotCommands(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	out, errOut := runREPLInput(t, srv, ".help\n.status\n.bogus\n")

	assert.Contains(t, out, "Dot-commands:")
	assert.Contains(t, out, `"volume": 50`)
	assert.Contains(t, errOut, "unknown command .bogus")
}

func TestREPLQuitStopsReading(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	_, errOut := runREPLInput(t, srv, ".quit\nnext\n")

	assert.Empty(t, errOut)
	assert.NotContains(t, srv.Requests(), "next")
}

func TestREPLEmptyLinesAreIgnored(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	out, errOut := runREPLInput(t, srv, "\n   \n\n")

	assert.Empty(t, errOut)
	assert.Equal(t, strings.Repeat(prompt, 4)+"\n", out)
}

func TestREPLWatchPrintsChanges(t *testing.T) {
	srv := mpdtest.Start(t, nil)
	input, feed := io.Pipe()
	r, wait := startREPL(t, srv, input)

	_, err := io.WriteString(feed, ".watch\n")
	require.NoError(t, err)
	require.Eventually(t, r.watching.Load, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, req := range srv.Requests() {
			if strings.HasPrefix(req, "idle") {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)

	srv.Notify(mpd.SubsystemPlayer)
	require.Eventually(t, func() bool {
		return strings.Contains(r.out.(*lockedBuffer).String(), "changed: player\n")
	}, 3*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(feed, ".watch\n")
	require.NoError(t, err)
	require.NoError(t, feed.Close())

	out, _ := wait()
	assert.Contains(t, out, "watching on\n")
	assert.Contains(t, out, "watching off\n")
}
