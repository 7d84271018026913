package eventfeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pascalbakker/rmpc/mpd"
)

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func dialFrom(t *testing.T, h *Hub, origin string) error {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{origin}},
	})
	if err == nil {
		conn.CloseNow()
	}
	return err
}

func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)
	return data
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	var ev Event
	require.NoError(t, json.Unmarshal(readMessage(t, conn), &ev))
	return ev
}

func TestHubBroadcastsEvents(t *testing.T) {
	h := NewHub(nil, 0)
	first := dial(t, h)
	second := dial(t, h)
	require.Eventually(t, func() bool { return h.Clients() == 2 }, 5*time.Second, 10*time.Millisecond)

	h.PublishChanges(mpd.NewChangeSet(mpd.SubsystemPlayer, mpd.SubsystemMixer))
	h.PublishState(mpd.StateReconnecting)

	for _, conn := range []*websocket.Conn{first, second} {
		ev := readEvent(t, conn)
		assert.Equal(t, TypeChanged, ev.Type)
		assert.Equal(t, []string{"mixer", "player"}, ev.Subsystems)
		assert.False(t, ev.Time.IsZero())

		ev = readEvent(t, conn)
		assert.Equal(t, TypeState, ev.Type)
		assert.Equal(t, "reconnecting", ev.State)
	}
}

func TestHubPublishesResync(t *testing.T) {
	h := NewHub(nil, 4)
	conn := dial(t, h)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	var snap mpd.Snapshot
	snap.Status.Volume = mpd.NewVolume(70)
	snap.Status.Repeat = true
	snap.CurrentSong = &mpd.Song{File: "music/first.flac", Title: "First"}
	h.PublishResync(snap)

	var ev struct {
		Type        string         `json:"type"`
		Status      map[string]any `json:"status"`
		CurrentSong map[string]any `json:"current_song"`
	}
	require.NoError(t, json.Unmarshal(readMessage(t, conn), &ev))
	assert.Equal(t, TypeResync, ev.Type)
	assert.Equal(t, true, ev.Status["repeat"])
	assert.Equal(t, float64(70), ev.Status["volume"])
	assert.Equal(t, "stop", ev.Status["state"])
	assert.Equal(t, "music/first.flac", ev.CurrentSong["file"])
}

func TestHubForgetsDepartedClients(t *testing.T) {
	h := NewHub(nil, 4)
	conn := dial(t, h)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return h.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub(nil, 1)
	slow := h.add()
	require.NotNil(t, slow)

	h.PublishState(mpd.StateIdle)
	assert.Equal(t, 1, h.Clients())

	h.PublishState(mpd.StateBusy)
	assert.Equal(t, 0, h.Clients())

	msg, ok := <-slow.send
	require.True(t, ok, "queued event is still delivered")
	assert.Contains(t, string(msg), `"state":"idle"`)
	_, ok = <-slow.send
	assert.False(t, ok)
	assert.Equal(t, "slow consumer", slow.reason)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	h := NewHub(nil, 4)
	conn := dial(t, h)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	h.Close()
	assert.Equal(t, 0, h.Clients())
	assert.Nil(t, h.add(), "closed hub refuses clients")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func TestHubChecksOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		ok      bool
	}{
		{"Foreign page", nil, "http://evil.example", false},
		{"Allowed host", []string{"app.example"}, "http://app.example", true},
		{"Allowed pattern", []string{"*.example"}, "https://ui.example", true},
		{"Pattern does not match", []string{"*.example"}, "https://ui.example.org", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub(nil, 0)
			h.AllowOrigins(tt.allowed...)
			err := dialFrom(t, h, tt.origin)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
