// =============================================================================
// discovery.go - Local Socket Discovery
// =============================================================================
//
// When neither flags, environment nor config file name a daemon, rmpc looks
// for a unix socket in the places MPD is commonly configured to create one,
// and falls back to localhost:6600 if none exists.
//
// =============================================================================

package main

import (
	"os"
	"path/filepath"
)

// socketCandidates lists the conventional socket paths in search order.
func socketCandidates(getenv func(string) string, home string) []string {
	var paths []string
	if dir := getenv("XDG_RUNTIME_DIR"); dir != "" {
		paths = append(paths, filepath.Join(dir, "mpd", "socket"))
	}
	paths = append(paths, "/run/mpd/socket", "/var/run/mpd/socket")
	if home != "" {
		paths = append(paths,
			filepath.Join(home, ".mpd", "socket"),
			filepath.Join(home, ".config", "mpd", "socket"),
		)
	}
	return paths
}

// findSocket returns the first candidate that is a unix socket, or "".
func findSocket(candidates []string) string {
	for _, path := range candidates {
		if isSocket(path) {
			return path
		}
	}
	return ""
}

// discoverSocket searches the conventional locations for this user.
func discoverSocket() string {
	return findSocket(socketCandidates(os.Getenv, homeDir()))
}

func isSocket(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSocket != 0
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
