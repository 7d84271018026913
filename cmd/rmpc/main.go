// =============================================================================
// main.go - rmpc Command-Line Client
// =============================================================================
//
// rmpc talks to a Music Player Daemon. Without a subcommand it starts an
// interactive prompt that sends raw protocol lines; subcommands perform one
// operation and print the result as JSON.
//
// Usage:
//
//	rmpc                         Interactive prompt
//	rmpc status                  Print player status
//	rmpc volume +5               Raise the volume
//	rmpc watch --listen :8080    Stream change notifications
//	rmpc --address host:6600 ... Use a specific daemon
//
// =============================================================================

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pascalbakker/rmpc/mpd"
)

const (
	appName = "rmpc"
	version = "0.3.0"
)

func fullTitle() string {
	return fmt.Sprintf("%s v%s", appName, version)
}

func welcomeBanner(protocol string) string {
	return fmt.Sprintf(`%s - Music Player Daemon client
Connected (protocol %s).
Type '.help' for available commands.
Type '.quit' to exit.
`, fullTitle(), protocol)
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	address  string
	password string
	config   string
	logLevel string
	timeout  time.Duration

	// getenv and discover are replaced in tests.
	getenv   func(string) string
	discover func() string

	logger *slog.Logger
}

func newGlobalOptions() *globalOptions {
	return &globalOptions{
		getenv:   os.Getenv,
		discover: discoverSocket,
	}
}

func (o *globalOptions) register(flags *pflag.FlagSet) {
	flags.StringVarP(&o.address, "address", "a", "", "daemon address: host[:port], socket path or @abstract")
	flags.StringVarP(&o.password, "password", "P", "", "daemon password")
	flags.StringVar(&o.config, "config", "", "config file (default $XDG_CONFIG_HOME/rmpc/config.yaml)")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.DurationVar(&o.timeout, "timeout", 0, "per-command timeout")
}

// clientConfig loads the config file and merges it with environment and
// flags. It also configures logging, since the file may set the level.
func (o *globalOptions) clientConfig(stderr io.Writer) (mpd.Config, error) {
	path, explicit := o.config, o.config != ""
	if !explicit {
		path = defaultConfigPath()
	}
	fc, err := loadFileConfig(path, explicit)
	if err != nil {
		return mpd.Config{}, err
	}

	level := o.logLevel
	if level == "" {
		level = fc.LogLevel
	}
	logger, err := newLogger(stderr, level)
	if err != nil {
		return mpd.Config{}, err
	}
	o.logger = logger

	return resolveConfig(o, fc, o.getenv, o.discover)
}

// newLogger builds a text logger on w. An empty level means warn.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "", "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// newClient creates an unconnected client for cmd.
func (o *globalOptions) newClient(cmd *cobra.Command, extra ...mpd.Option) (*mpd.Client, error) {
	cfg, err := o.clientConfig(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	opts := append([]mpd.Option{mpd.WithLogger(o.logger)}, extra...)
	return mpd.NewClient(cfg, opts...)
}

// withClient connects, runs fn and closes the connection.
func (o *globalOptions) withClient(cmd *cobra.Command, fn func(ctx context.Context, c *mpd.Client) error) error {
	client, err := o.newClient(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()
	return fn(ctx, client)
}

func newRootCommand() *cobra.Command {
	opts := newGlobalOptions()
	root := &cobra.Command{
		Use:           appName,
		Short:         "Music Player Daemon client",
		Long:          "rmpc controls a Music Player Daemon. Without a subcommand it opens an interactive prompt.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPLCommand(cmd, opts)
		},
	}
	opts.register(root.PersistentFlags())
	root.AddCommand(subcommands(opts)...)
	return root
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := newRootCommand()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
