package mpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocolConstants(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"GreetingPrefix", GreetingPrefix, "OK MPD "},
		{"OKLine", OKLine, "OK"},
		{"ListOKLine", ListOKLine, "list_OK"},
		{"AckPrefix", AckPrefix, "ACK "},
		{"ListBegin", ListBegin, "command_list_ok_begin"},
		{"ListEnd", ListEnd, "command_list_end"},
		{"DefaultPort", DefaultPort, "6600"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
	assert.Equal(t, 1<<20, MaxLineLength)
}

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		address string
		network string
		addr    string
	}{
		{"localhost", "tcp", "localhost:6600"},
		{"localhost:6601", "tcp", "localhost:6601"},
		{"192.168.1.2", "tcp", "192.168.1.2:6600"},
		{"::1", "tcp", "[::1]:6600"},
		{"[::1]:7000", "tcp", "[::1]:7000"},
		{"/run/mpd/socket", "unix", "/run/mpd/socket"},
		{"@mpd", "unix", "@mpd"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			network, addr := SplitAddress(tt.address)
			assert.Equal(t, tt.network, network)
			assert.Equal(t, tt.addr, addr)
		})
	}
}
