package mpd

// ConnectionState is the disposition of the client's connection.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateAuthenticating
	StateIdle
	StateBusy
	StateReconnecting
	StateFatal
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateReconnecting:
		return "reconnecting"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Connected reports whether commands can be issued in this state.
func (s ConnectionState) Connected() bool {
	return s == StateIdle || s == StateBusy
}
