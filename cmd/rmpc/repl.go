// =============================================================================
// repl.go - Interactive Prompt
// =============================================================================
//
// The prompt reads a line, expands shorthands (see translate.go) and sends
// the result to the daemon, printing the response lines as "key: value".
// Lines starting with "." are handled locally.
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/pascalbakker/rmpc/mpd"
)

const prompt = "mpd> "

// syncWriter serializes writes from the prompt and from client handlers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type repl struct {
	client   *mpd.Client
	editor   *LineEditor
	out      io.Writer
	errOut   io.Writer
	watching atomic.Bool
}

func newREPL(client *mpd.Client, editor *LineEditor, out, errOut io.Writer) *repl {
	r := &repl{client: client, editor: editor, out: out, errOut: errOut}
	client.SetChangeHandler(r.onChange)
	client.SetStateHandler(r.onState)
	return r
}

func runREPLCommand(cmd *cobra.Command, o *globalOptions) error {
	out := &syncWriter{w: cmd.OutOrStdout()}
	errOut := &syncWriter{w: cmd.ErrOrStderr()}

	client, err := o.newClient(cmd)
	if err != nil {
		return err
	}
	editor := NewLineEditor(out)
	defer editor.Close()

	r := newREPL(client, editor, out, errOut)
	ctx := cmd.Context()
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	if editor.IsInteractive() {
		fmt.Fprint(out, welcomeBanner(client.ProtocolVersion()))
	}
	return r.run(ctx)
}

func (r *repl) onChange(changes mpd.ChangeSet) {
	if r.watching.Load() {
		fmt.Fprintf(r.out, "changed: %s\n", strings.Join(changes.Strings(), " "))
	}
}

func (r *repl) onState(state mpd.ConnectionState) {
	switch state {
	case mpd.StateReconnecting, mpd.StateFatal, mpd.StateDisconnected:
		fmt.Fprintf(r.errOut, "*** connection %s\n", state)
	}
}

// run reads lines until end of input, .quit or ctx ends.
func (r *repl) run(ctx context.Context) error {
	for {
		line, err := r.editor.GetLine(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "."):
			if quit := r.dotCommand(ctx, line); quit {
				return nil
			}
		default:
			r.send(ctx, translateLine(line))
		}
	}
}

// dotCommand handles a local command and reports whether to exit.
func (r *repl) dotCommand(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(name) {
	case ".quit", ".exit":
		return true
	case ".help":
		printHelp(r.out, r.errOut, arg)
	case ".status":
		st, err := r.client.Status(ctx)
		if err != nil {
			printError(r.errOut, err)
			return false
		}
		if err := printJSON(r.out, st); err != nil {
			printError(r.errOut, err)
		}
	case ".watch":
		on := !r.watching.Load()
		r.watching.Store(on)
		fmt.Fprintf(r.out, "watching %s\n", lo.Ternary(on, "on", "off"))
	default:
		fmt.Fprintf(r.errOut, "Error: unknown command %s. Type .help for a list.\n", name)
	}
	return false
}

// send executes one protocol line and prints the response.
func (r *repl) send(ctx context.Context, line string) {
	pairs, err := r.client.ExecuteRaw(ctx, line)
	if pairs != nil {
		for _, p := range pairs.Lines {
			fmt.Fprintf(r.out, "%s: %s\n", p.Key, p.Value)
		}
		if n := len(pairs.Binary); n > 0 {
			fmt.Fprintf(r.out, "binary: %d bytes\n", n)
		}
	}
	if err != nil {
		printError(r.errOut, err)
	}
}
