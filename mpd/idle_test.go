package mpd

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeSetOperations(t *testing.T) {
	cs := NewChangeSet(SubsystemPlayer)
	cs.Merge(NewChangeSet(SubsystemMixer, SubsystemPlayer))
	cs.Add(SubsystemOptions)

	assert.Equal(t, []Subsystem{SubsystemMixer, SubsystemOptions, SubsystemPlayer}, cs.Subsystems())
	assert.Equal(t, []string{"mixer", "options", "player"}, cs.Strings())

	out, err := cs.DecodeLine("volume", "50")
	require.NoError(t, err)
	assert.False(t, out.Handled)
	assert.Len(t, cs, 3)
}

func TestDispatcherCoalescesConsecutiveChanges(t *testing.T) {
	d := newDispatcher()
	d.push(event{changes: NewChangeSet(SubsystemPlayer)})
	d.push(event{changes: NewChangeSet(SubsystemMixer)})
	s := StateBusy
	d.push(event{state: &s})
	d.push(event{changes: NewChangeSet(SubsystemPlaylist)})

	ev, ok := d.pop()
	require.True(t, ok)
	assert.Equal(t, []string{"mixer", "player"}, ev.changes.Strings())

	ev, ok = d.pop()
	require.True(t, ok)
	require.NotNil(t, ev.state)
	assert.Equal(t, StateBusy, *ev.state)

	ev, ok = d.pop()
	require.True(t, ok)
	assert.Equal(t, []string{"playlist"}, ev.changes.Strings())

	_, ok = d.pop()
	assert.False(t, ok)
}

func TestDispatcherFanoutNeverBlocks(t *testing.T) {
	d := newDispatcher()
	ch, unsubscribe := d.subscribe(1)

	d.fanout(NewChangeSet(SubsystemPlayer))
	d.fanout(NewChangeSet(SubsystemMixer))

	got := <-ch
	assert.True(t, got.Has(SubsystemPlayer))
	select {
	case <-ch:
		t.Fatal("full subscriber should have missed the second set")
	default:
	}

	unsubscribe()
	d.fanout(NewChangeSet(SubsystemOutput))
	select {
	case <-ch:
		t.Fatal("unsubscribed channel received a set")
	default:
	}
}

func TestIdleRequestCancelsOnce(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	req := newIdleRequest(client)
	writes := 0
	write := func(s string) error {
		writes++
		assert.Equal(t, "noidle\n", s)
		return nil
	}
	require.NoError(t, req.cancel(write, time.Second))
	require.NoError(t, req.cancel(write, time.Second))
	assert.Equal(t, 1, writes)
}

func TestRetryRetriesUntilSuccess(t *testing.T) {
	cfg := ReconnectConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond, Multiplier: 2}
	var attempts []int
	err := retry(context.Background(), cfg, func(attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return errors.New("refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestRetryGivesUp(t *testing.T) {
	cfg := ReconnectConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	cause := errors.New("refused")
	calls := 0
	err := retry(context.Background(), cfg, func(int) error {
		calls++
		return cause
	})
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrFatal)
	assert.ErrorIs(t, err, cause)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	cfg := ReconnectConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}
	cause := errors.New("bad password")
	calls := 0
	err := retry(context.Background(), cfg, func(int) error {
		calls++
		return permanent(cause)
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, cause, err)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retry(ctx, ReconnectConfig{MaxAttempts: 5, InitialDelay: time.Hour}, func(int) error {
		t.Fatal("attempt after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	err = retry(context.Background(), ReconnectConfig{}, func(int) error { return nil })
	assert.Error(t, err, "zero attempts disables reconnection")
}

func TestReconnectConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   ReconnectConfig
		valid bool
	}{
		{"Default", DefaultReconnectConfig(), true},
		{"Disabled", ReconnectConfig{}, true},
		{"Negative attempts", ReconnectConfig{MaxAttempts: -1}, false},
		{"Negative delay", ReconnectConfig{InitialDelay: -time.Second}, false},
		{"Max below initial", ReconnectConfig{InitialDelay: time.Second, MaxDelay: time.Millisecond}, false},
		{"Negative multiplier", ReconnectConfig{Multiplier: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestReconnectPolicySchedule(t *testing.T) {
	cfg := ReconnectConfig{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}
	p := cfg.policy()

	var delays []time.Duration
	for d := p.NextBackOff(); d != backoff.Stop; d = p.NextBackOff() {
		delays = append(delays, d)
	}
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
	}, delays)

	single := ReconnectConfig{MaxAttempts: 1, InitialDelay: time.Millisecond}.policy()
	assert.Equal(t, backoff.Stop, single.NextBackOff())
}

func TestReconnectPolicyJitterBounds(t *testing.T) {
	cfg := ReconnectConfig{MaxAttempts: 2, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, AddJitter: true}
	for range 100 {
		d := cfg.policy().NextBackOff()
		assert.GreaterOrEqual(t, d, 75*time.Millisecond)
		assert.LessOrEqual(t, d, 125*time.Millisecond)
	}
}

func TestConnectionStateNames(t *testing.T) {
	tests := []struct {
		state     ConnectionState
		name      string
		connected bool
	}{
		{StateDisconnected, "disconnected", false},
		{StateConnecting, "connecting", false},
		{StateAuthenticating, "authenticating", false},
		{StateIdle, "idle", true},
		{StateBusy, "busy", true},
		{StateReconnecting, "reconnecting", false},
		{StateFatal, "fatal", false},
		{ConnectionState(42), "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.state.String())
			assert.Equal(t, tt.connected, tt.state.Connected())
		})
	}
}

func TestErrorClassification(t *testing.T) {
	se := &ServerError{Code: AckNoExist, Command: "play", Message: "No such song"}
	tests := []struct {
		name      string
		err       error
		retriable bool
		label     string
	}{
		{"Nil", nil, false, "ok"},
		{"Busy", ErrBusy, true, "busy"},
		{"Not connected", &ConnectionError{Op: "acquire", Err: ErrNotConnected}, true, "error"},
		{"Timeout", &ConnectionError{Op: "read", Err: ErrTimeout}, true, "error"},
		{"Server error", se, false, "ack"},
		{"Parse error", NewParseError("volume", "x", errBool), false, "parse_error"},
		{"Closed", ErrClosed, false, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retriable, IsRetriable(tt.err))
			assert.Equal(t, tt.label, resultLabel(tt.err))
		})
	}

	assert.True(t, IsServerError(se, AckNoExist))
	assert.False(t, IsServerError(se, AckArg))
	assert.True(t, isTransport(&ProtocolError{Message: "x"}))
	assert.False(t, isTransport(se))
}
