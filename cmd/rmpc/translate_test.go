package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"next", "n", "next"},
		{"previous", "p", "previous"},
		{"prev alias", "prev", "previous"},
		{"toggle", "t", "pause"},
		{"toggle alias", "toggle", "pause"},
		{"stop", "s", "stop"},
		{"status", "st", "status"},
		{"current song", "cs", "currentsong"},
		{"queue", "q", "playlistinfo"},
		{"uppercase alias", "N", "next"},

		{"vol alone", "vol", "getvol"},
		{"vol absolute", "vol 40", "setvol 40"},
		{"vol up", "vol +5", "volume +5"},
		{"vol down", "vol -5", "volume -5"},

		{"seek", "seek 90", "seekcur 90"},
		{"seek relative", "seek +10", "seekcur +10"},
		{"seek alone", "seek", "seek"},

		{"repeat on", "repeat on", "repeat 1"},
		{"random off", "random off", "random 0"},
		{"single oneshot", "single oneshot", "single oneshot"},
		{"consume numeric", "consume 1", "consume 1"},
		{"repeat uppercase", "Repeat ON", "repeat 1"},

		{"add", "a music/track.flac", "add music/track.flac"},
		{"add with spaces", "a Miles Davis/So What.flac", `add "Miles Davis/So What.flac"`},
		{"add with quote", `a say "hi".mp3`, `add "say \"hi\".mp3"`},
		{"add alone", "a", "add"},

		{"ls", "ls", "lsinfo"},
		{"ls path", "ls Jazz Classics", `lsinfo "Jazz Classics"`},
		{"update", "up", "update"},
		{"update path", "up new", "update new"},

		{"passthrough", `find artist "Miles Davis"`, `find artist "Miles Davis"`},
		{"passthrough verb", "outputs", "outputs"},
		{"surrounding space", "  next  ", "next"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, translateLine(tt.input))
		})
	}
}
