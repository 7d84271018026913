// =============================================================================
// config.go - Connection Settings
// =============================================================================
//
// Settings are merged from four layers, later ones winning:
//
//	defaults < config file < MPD_HOST / MPD_PORT < command-line flags
//
// The config file lives at $XDG_CONFIG_HOME/rmpc/config.yaml unless --config
// names another one:
//
//	address: /run/mpd/socket
//	password: secret
//	log_level: debug
//	timeouts:
//	  dial: 3s
//	  command: 10s
//	  max_idle_age: 5m
//	reconnect:
//	  max_attempts: 10
//	  initial_delay: 200ms
//	  max_delay: 10s
//	subsystems: [player, mixer]
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/pascalbakker/rmpc/mpd"
)

const configFileName = "config.yaml"

type fileConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	LogLevel string `yaml:"log_level"`

	Timeouts struct {
		Dial       time.Duration `yaml:"dial"`
		Command    time.Duration `yaml:"command"`
		MaxIdleAge time.Duration `yaml:"max_idle_age"`
	} `yaml:"timeouts"`

	Reconnect *struct {
		MaxAttempts  int           `yaml:"max_attempts"`
		InitialDelay time.Duration `yaml:"initial_delay"`
		MaxDelay     time.Duration `yaml:"max_delay"`
	} `yaml:"reconnect"`

	Subsystems []string `yaml:"subsystems"`
}

// defaultConfigPath returns $XDG_CONFIG_HOME/rmpc/config.yaml, or "" when no
// config directory can be determined.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName, configFileName)
}

// loadFileConfig reads path. A missing file is an error only when the user
// named it explicitly.
func loadFileConfig(path string, explicit bool) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return fc, nil
		}
		return fc, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return fc, nil
}

// hostSpec is what MPD_HOST and MPD_PORT describe.
type hostSpec struct {
	address  string
	password string
}

// parseMPDHost interprets MPD_HOST. Accepted forms are
//
//	host                 tcp host
//	/path/to/socket      unix socket
//	@name                abstract socket
//	password@host        any of the above with a password
//	password@@name       password and abstract socket
func parseMPDHost(host, port string) hostSpec {
	var hs hostSpec
	switch {
	case host == "":
	case strings.HasPrefix(host, "@"):
		hs.address = host
	case strings.Contains(host, "@@"):
		pass, name, _ := strings.Cut(host, "@@")
		hs.password = pass
		hs.address = "@" + name
	case strings.Contains(host, "@"):
		pass, addr, _ := strings.Cut(host, "@")
		hs.password = pass
		hs.address = addr
	default:
		hs.address = host
	}
	if hs.address != "" && !isSocketAddress(hs.address) {
		hs.address = withPort(hs.address, port)
	} else if hs.address == "" && port != "" {
		hs.address = withPort("localhost", port)
	}
	return hs
}

func isSocketAddress(addr string) bool {
	return strings.HasPrefix(addr, "@") || strings.Contains(addr, "/")
}

// withPort appends port, or the default port, to a host without one.
func withPort(host, port string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	if port == "" {
		port = mpd.DefaultPort
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), port)
}

// resolveConfig merges the layers into a client configuration. discover is
// consulted only when no layer names an address.
func resolveConfig(opts *globalOptions, fc fileConfig, getenv func(string) string, discover func() string) (mpd.Config, error) {
	cfg := mpd.DefaultConfig()
	cfg.Address = ""

	if fc.Address != "" {
		cfg.Address = fc.Address
		if !isSocketAddress(cfg.Address) {
			cfg.Address = withPort(cfg.Address, "")
		}
	}
	cfg.Password = fc.Password
	if fc.Timeouts.Dial > 0 {
		cfg.DialTimeout = fc.Timeouts.Dial
	}
	if fc.Timeouts.Command > 0 {
		cfg.CommandTimeout = fc.Timeouts.Command
	}
	if fc.Timeouts.MaxIdleAge > 0 {
		cfg.MaxIdleAge = fc.Timeouts.MaxIdleAge
	}
	if rc := fc.Reconnect; rc != nil {
		cfg.Reconnect.MaxAttempts = rc.MaxAttempts
		if rc.InitialDelay > 0 {
			cfg.Reconnect.InitialDelay = rc.InitialDelay
		}
		if rc.MaxDelay > 0 {
			cfg.Reconnect.MaxDelay = rc.MaxDelay
		}
	}
	subsystems, err := parseSubsystems(fc.Subsystems)
	if err != nil {
		return cfg, err
	}
	cfg.Subsystems = subsystems

	env := parseMPDHost(getenv("MPD_HOST"), getenv("MPD_PORT"))
	if env.address != "" {
		cfg.Address = env.address
	}
	if env.password != "" {
		cfg.Password = env.password
	}

	if opts.address != "" {
		cfg.Address = opts.address
		if !isSocketAddress(cfg.Address) {
			cfg.Address = withPort(cfg.Address, "")
		}
	}
	if opts.password != "" {
		cfg.Password = opts.password
	}
	if opts.timeout > 0 {
		cfg.CommandTimeout = opts.timeout
	}

	if cfg.Address == "" {
		if sock := discover(); sock != "" {
			cfg.Address = sock
		} else {
			cfg.Address = net.JoinHostPort("localhost", mpd.DefaultPort)
		}
	}
	return cfg, nil
}

func parseSubsystems(names []string) ([]mpd.Subsystem, error) {
	var out []mpd.Subsystem
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			s := mpd.Subsystem(part)
			if !isKnownSubsystem(s) {
				return nil, fmt.Errorf("unknown subsystem %q", part)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func isKnownSubsystem(s mpd.Subsystem) bool {
	return lo.Contains(mpd.KnownSubsystems, s)
}
