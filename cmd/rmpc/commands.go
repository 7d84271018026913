// =============================================================================
// commands.go - One-Shot Subcommands
// =============================================================================
//
// Each subcommand connects, performs one operation and prints its result as
// indented JSON. Commands that only change state print nothing.
//
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pascalbakker/rmpc/mpd"
)

func subcommands(o *globalOptions) []*cobra.Command {
	return []*cobra.Command{
		statusCmd(o),
		songCmd(o),
		queueCmd(o),
		statsCmd(o),
		playCmd(o),
		actionCmd(o, "pause", "Pause playback", (*mpd.Client).Pause),
		actionCmd(o, "unpause", "Resume playback", (*mpd.Client).Unpause),
		actionCmd(o, "togglepause", "Pause or resume playback", (*mpd.Client).TogglePause),
		actionCmd(o, "stop", "Stop playback", (*mpd.Client).Stop),
		actionCmd(o, "next", "Play the next song", (*mpd.Client).Next),
		actionCmd(o, "prev", "Play the previous song", (*mpd.Client).Previous),
		actionCmd(o, "clear", "Empty the queue", (*mpd.Client).Clear),
		volumeCmd(o),
		toggleCmd(o, "repeat", "Set repeat mode", (*mpd.Client).SetRepeat),
		toggleCmd(o, "random", "Set random mode", (*mpd.Client).SetRandom),
		modeCmd(o, "single", "Set single mode", (*mpd.Client).SetSingle),
		modeCmd(o, "consume", "Set consume mode", (*mpd.Client).SetConsume),
		seekCmd(o),
		addCmd(o),
		lsCmd(o),
		playlistsCmd(o),
		outputsCmd(o),
		outputCmd(o, "toggleoutput", "Toggle an output", (*mpd.Client).ToggleOutput),
		outputCmd(o, "enableoutput", "Enable an output", (*mpd.Client).EnableOutput),
		outputCmd(o, "disableoutput", "Disable an output", (*mpd.Client).DisableOutput),
		decodersCmd(o),
		updateCmd(o, "update", "Update the music database", (*mpd.Client).Update),
		updateCmd(o, "rescan", "Update the database and re-read unmodified files", (*mpd.Client).Rescan),
		albumArtCmd(o),
		mountCmd(o),
		unmountCmd(o),
		listMountsCmd(o),
		stickerCmd(o),
		watchCmd(o),
		replCmd(o),
		versionCmd(o),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseOnOff accepts on/off, 1/0 and true/false.
func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true", "yes":
		return true, nil
	case "off", "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func parseID(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return uint32(n), nil
}

var signedNumber = regexp.MustCompile(`^[+-][0-9]+(\.[0-9]+)?$`)

// parseSignedArgs parses the flags of a command with flag parsing disabled,
// keeping values like "-5" as positional arguments.
func parseSignedArgs(cmd *cobra.Command, args []string) ([]string, error) {
	var flagArgs, values []string
	for _, a := range args {
		if signedNumber.MatchString(a) {
			values = append(values, a)
		} else {
			flagArgs = append(flagArgs, a)
		}
	}
	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.AddFlagSet(cmd.InheritedFlags())
	fs.AddFlagSet(cmd.LocalFlags())
	if err := fs.Parse(flagArgs); err != nil {
		return nil, err
	}
	if help, _ := fs.GetBool("help"); help {
		return nil, pflag.ErrHelp
	}
	return append(fs.Args(), values...), nil
}

func statusCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the player status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				st, err := c.Status(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), st)
			})
		},
	}
}

func songCmd(o *globalOptions) *cobra.Command {
	var paths []string
	cmd := &cobra.Command{
		Use:   "song",
		Short: "Print the current song, or the songs at --path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				if len(paths) == 0 {
					song, err := c.CurrentSong(ctx)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), song)
				}
				songs := make([]mpd.Song, 0, len(paths))
				for _, p := range paths {
					song, err := c.SongInfo(ctx, p)
					if err != nil {
						return fmt.Errorf("%s: %w", p, err)
					}
					songs = append(songs, song)
				}
				return printJSON(cmd.OutOrStdout(), songs)
			})
		},
	}
	cmd.Flags().StringArrayVar(&paths, "path", nil, "song path relative to the music directory (repeatable)")
	return cmd
}

func queueCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Print the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				songs, err := c.Queue(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), songs)
			})
		},
	}
}

func statsCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print database and uptime statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				stats, err := c.Stats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
}

func playCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "play [POSITION]",
		Short: "Start playback, optionally at a queue position",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				if len(args) == 0 {
					return c.Play(ctx)
				}
				pos, err := parseID(args[0])
				if err != nil {
					return err
				}
				return c.PlayPos(ctx, pos)
			})
		},
	}
}

func actionCmd(o *globalOptions, name, short string, fn func(*mpd.Client, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				return fn(c, ctx)
			})
		},
	}
}

func volumeCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:                "volume [[+|-]N]",
		Short:              "Print, set or change the volume",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			args, err := parseSignedArgs(cmd, args)
			if errors.Is(err, pflag.ErrHelp) {
				return cmd.Help()
			}
			if err != nil {
				return err
			}
			if len(args) > 1 {
				return fmt.Errorf("volume takes at most one argument, got %d", len(args))
			}
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				var vol mpd.Volume
				switch {
				case len(args) == 0:
					vol, err = c.GetVolume(ctx)
				default:
					vol, err = c.ChangeVolume(ctx, args[0])
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]uint8{"volume": vol.Value()})
			})
		},
	}
}

func toggleCmd(o *globalOptions, name, short string, fn func(*mpd.Client, context.Context, bool) error) *cobra.Command {
	return &cobra.Command{
		Use:       name + " on|off",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				return fn(c, ctx, on)
			})
		},
	}
}

func modeCmd(o *globalOptions, name, short string, fn func(*mpd.Client, context.Context, mpd.OnOffOneshot) error) *cobra.Command {
	return &cobra.Command{
		Use:       name + " on|off|oneshot",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off", "oneshot"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := mpd.ParseOnOffOneshot(args[0])
			if err != nil {
				return err
			}
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				return fn(c, ctx, mode)
			})
		},
	}
}

func seekCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:                "seek [+|-]SECONDS",
		Short:              "Seek within the current song",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			args, err := parseSignedArgs(cmd, args)
			if errors.Is(err, pflag.ErrHelp) {
				return cmd.Help()
			}
			if err != nil {
				return err
			}
			if len(args) != 1 {
				return errors.New("seek takes exactly one argument")
			}
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				return c.Seek(ctx, args[0])
			})
		},
	}
}

func addCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add PATH...",
		Short: "Append files or directories to the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				if len(args) == 1 {
					return c.Add(ctx, args[0])
				}
				batch := mpd.NewBatch()
				for _, p := range args {
					batch.Add(mpd.NewAddCommand(p), nil)
				}
				return c.ExecuteBatch(ctx, batch)
			})
		},
	}
}

func lsCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [PATH]",
		Short: "List a database directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				entries, err := c.LsInfo(ctx, lo.FirstOr(args, ""))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), entries)
			})
		},
	}
}

func playlistsCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "playlists",
		Short: "List stored playlists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				lists, err := c.ListPlaylists(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), lists)
			})
		},
	}
}

func outputsCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "outputs",
		Short: "List audio outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				outputs, err := c.Outputs(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), outputs)
			})
		},
	}
}

func outputCmd(o *globalOptions, name, short string, fn func(*mpd.Client, context.Context, uint32) error) *cobra.Command {
	return &cobra.Command{
		Use:   name + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				return fn(c, ctx, id)
			})
		},
	}
}

func decodersCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decoders",
		Short: "List decoder plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				plugins, err := c.Decoders(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), plugins)
			})
		},
	}
}

func updateCmd(o *globalOptions, name, short string, fn func(*mpd.Client, context.Context, string) (mpd.UpdateJob, error)) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   name + " [PATH]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				job, err := fn(c, ctx, lo.FirstOr(args, ""))
				if err != nil {
					return err
				}
				if wait {
					if err := c.WaitForUpdate(ctx, job); err != nil {
						return err
					}
				}
				return printJSON(cmd.OutOrStdout(), job)
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "block until the update has finished")
	return cmd
}

func albumArtCmd(o *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "albumart [URI] --output FILE",
		Short: "Save the cover of a song (default: the current song)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				uri := lo.FirstOr(args, "")
				if uri == "" {
					song, err := c.CurrentSong(ctx)
					if err != nil {
						return err
					}
					if song == nil {
						return mpd.ErrNoSongPlaying
					}
					uri = song.File
				}
				art, err := c.AlbumArt(ctx, uri)
				if err != nil {
					return err
				}
				if output == "-" {
					_, err = cmd.OutOrStdout().Write(art.Data)
					return err
				}
				if err := os.WriteFile(output, art.Data, 0o644); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"uri":    uri,
					"type":   art.MimeType,
					"size":   len(art.Data),
					"output": output,
				})
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `file to write the image to ("-" for stdout)`)
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func mountCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mount NAME URI",
		Short: "Mount storage into the music directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				return c.Mount(ctx, args[0], args[1])
			})
		},
	}
}

func unmountCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unmount NAME",
		Short: "Remove a mount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				return c.Unmount(ctx, args[0])
			})
		},
	}
}

func listMountsCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "listmounts",
		Short: "List mounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				mounts, err := c.ListMounts(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), mounts)
			})
		},
	}
}

func stickerCmd(o *globalOptions) *cobra.Command {
	parent := &cobra.Command{
		Use:   "sticker",
		Short: "Read and write song stickers",
	}
	run := func(fn func(ctx context.Context, c *mpd.Client, w io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				return fn(ctx, c, cmd.OutOrStdout(), args)
			})
		}
	}
	parent.AddCommand(
		&cobra.Command{
			Use:   "set URI NAME VALUE",
			Short: "Set a sticker",
			Args:  cobra.ExactArgs(3),
			RunE: run(func(ctx context.Context, c *mpd.Client, _ io.Writer, args []string) error {
				return c.StickerSet(ctx, args[0], args[1], args[2])
			}),
		},
		&cobra.Command{
			Use:   "get URI NAME",
			Short: "Print a sticker",
			Args:  cobra.ExactArgs(2),
			RunE: run(func(ctx context.Context, c *mpd.Client, w io.Writer, args []string) error {
				s, err := c.StickerGet(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(w, s)
			}),
		},
		&cobra.Command{
			Use:   "list URI",
			Short: "Print every sticker of a song",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, c *mpd.Client, w io.Writer, args []string) error {
				stickers, err := c.StickerList(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(w, stickers)
			}),
		},
		&cobra.Command{
			Use:   "find URI NAME",
			Short: "Find songs below URI carrying a sticker",
			Args:  cobra.ExactArgs(2),
			RunE: run(func(ctx context.Context, c *mpd.Client, w io.Writer, args []string) error {
				matches, err := c.StickerFind(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(w, matches)
			}),
		},
		&cobra.Command{
			Use:   "delete URI NAME",
			Short: "Delete a sticker",
			Args:  cobra.ExactArgs(2),
			RunE: run(func(ctx context.Context, c *mpd.Client, _ io.Writer, args []string) error {
				return c.StickerDelete(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "deleteall URI",
			Short: "Delete every sticker of a song",
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, c *mpd.Client, _ io.Writer, args []string) error {
				return c.StickerDeleteAll(ctx, args[0])
			}),
		},
	)
	return parent
}

func replCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPLCommand(cmd, o)
		},
	}
}

func versionCmd(o *globalOptions) *cobra.Command {
	var server bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), fullTitle())
			if !server {
				return nil
			}
			return o.withClient(cmd, func(ctx context.Context, c *mpd.Client) error {
				fmt.Fprintf(cmd.OutOrStdout(), "server protocol %s\n", c.ProtocolVersion())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "also print the daemon's protocol version")
	return cmd
}
