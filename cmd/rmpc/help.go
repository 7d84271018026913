// =============================================================================
// help.go - Prompt Help
// =============================================================================

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/samber/lo"
)

const helpOverview = `Dot-commands:
  .help [topic]     Show help (or help for one topic)
  .status           Print the player status as JSON
  .watch            Toggle printing change notifications
  .quit             Exit (also .exit, Ctrl-D)

Shorthands:
  n / p             Next / previous song
  t                 Toggle pause
  s                 Stop
  st / cs / q       Status / current song / queue
  vol [[+|-]N]      Show, set or change the volume
  seek [+|-]S       Seek within the current song
  repeat on|off     Also random, single and consume
  a PATH            Add a file or directory to the queue
  ls [PATH]         List a directory
  up [PATH]         Update the database

Anything else is sent to the daemon as a protocol line, e.g.
  find artist "Miles Davis"
`

var helpTopics = map[string]string{
	"help": `  .help [topic]
    Show the command overview, or detailed help for one topic.
    Examples:
      .help
      .help vol
      .help .watch`,
	"status": `  .status
    Fetch the player status and print it as JSON.`,
	"watch": `  .watch
    Toggle printing of change notifications. While enabled, every
    change reported by the daemon is printed as "changed: <subsystems>".`,
	"quit": `  .quit
    Close the connection and exit. Ctrl-D at an empty prompt does the same.`,
	"vol": `  vol [[+|-]N]
    Without an argument print the volume. "vol 40" sets it to 40,
    "vol +5" and "vol -5" change it relative to the current level.`,
	"seek": `  seek [+|-]SECONDS
    Seek to an absolute position, or relative with a sign.
    Examples:
      seek 90
      seek +10
      seek -5.5`,
	"repeat": `  repeat on|off
    Switch repeat mode. random works the same way; single and consume
    also accept "oneshot".`,
	"a": `  a PATH
    Add PATH to the queue. The rest of the line is one path, so no
    quoting is needed for spaces.`,
	"ls": `  ls [PATH]
    List the files, directories and playlists in PATH.`,
	"up": `  up [PATH]
    Start a database update, optionally below PATH. Prints the job id.`,
}

// helpAliases point alternative names at their topic.
var helpAliases = map[string]string{
	"exit":    "quit",
	"volume":  "vol",
	"random":  "repeat",
	"single":  "repeat",
	"consume": "repeat",
	"add":     "a",
	"update":  "up",
	"lsinfo":  "ls",
}

// printHelp writes the overview, or the entry for topic.
func printHelp(w io.Writer, errOut io.Writer, topic string) {
	if topic == "" {
		fmt.Fprint(w, helpOverview)
		return
	}
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(topic)), ".")
	if alias, ok := helpAliases[key]; ok {
		key = alias
	}
	if text, ok := helpTopics[key]; ok {
		fmt.Fprintln(w, text)
		return
	}
	fmt.Fprintf(errOut, "Error: No help for '%s'. Topics: %s\n", topic, strings.Join(helpTopicNames(), ", "))
}

func helpTopicNames() []string {
	names := lo.Keys(helpTopics)
	slices.Sort(names)
	return names
}
