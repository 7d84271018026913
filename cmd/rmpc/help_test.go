package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpOverview(t *testing.T) {
	var out, errOut bytes.Buffer
	printHelp(&out, &errOut, "")

	for _, want := range []string{".help", ".status", ".watch", ".quit", "vol", "seek", "repeat on|off"} {
		assert.Contains(t, out.String(), want)
	}
	assert.Empty(t, errOut.String())
}

func TestHelpTopics(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"help", ".help [topic]"},
		{".help", ".help [topic]"},
		{"WATCH", ".watch"},
		{"vol", `"vol +5"`},
		{"volume", `"vol +5"`},
		{"exit", ".quit"},
		{"consume", "repeat on|off"},
		{"add", "a PATH"},
		{" seek ", "seek +10"},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			var out, errOut bytes.Buffer
			printHelp(&out, &errOut, tt.topic)
			assert.Contains(t, out.String(), tt.want)
			assert.Empty(t, errOut.String())
		})
	}
}

func TestHelpUnknownTopic(t *testing.T) {
	var out, errOut bytes.Buffer
	printHelp(&out, &errOut, "teleport")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "No help for 'teleport'")
	assert.Contains(t, errOut.String(), "vol")
}

func TestHelpTopicNamesSorted(t *testing.T) {
	names := helpTopicNames()
	assert.Len(t, names, len(helpTopics))
	assert.IsIncreasing(t, names)
}

func TestHelpAliasesPointAtTopics(t *testing.T) {
	for alias, topic := range helpAliases {
		_, ok := helpTopics[topic]
		assert.True(t, ok, "alias %s points at missing topic %s", alias, topic)
	}
}
