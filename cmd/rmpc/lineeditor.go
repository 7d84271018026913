// =============================================================================
// lineeditor.go - Line Input With History
// =============================================================================
//
// On a terminal the prompt uses readline for editing and persistent history.
// When stdin is a pipe, or the terminal cannot edit (TERM=dumb), lines are
// read with a plain scanner and the prompt is written to the output.
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	historyFileName = "history"
	historySize     = 500
)

// LineEditor reads one line at a time from the user.
type LineEditor struct {
	interactive bool
	rl          *readline.Instance
	scanner     *bufio.Scanner
	out         io.Writer
}

// NewLineEditor reads from os.Stdin, writing prompts to out when not
// interactive.
func NewLineEditor(out io.Writer) *LineEditor {
	interactive := term.IsTerminal(int(os.Stdin.Fd())) && os.Getenv("TERM") != "dumb"
	if !interactive {
		return newScannerEditor(os.Stdin, out)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            historyPath(),
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return newScannerEditor(os.Stdin, out)
	}
	return &LineEditor{interactive: true, rl: rl, out: out}
}

func newScannerEditor(in io.Reader, out io.Writer) *LineEditor {
	return &LineEditor{scanner: bufio.NewScanner(in), out: out}
}

// historyPath is $XDG_STATE_HOME/rmpc/history, falling back to
// ~/.local/state/rmpc/history. An empty path disables the history file.
func historyPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home := homeDir()
		if home == "" {
			return ""
		}
		dir = filepath.Join(home, ".local", "state")
	}
	dir = filepath.Join(dir, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return ""
	}
	return filepath.Join(dir, historyFileName)
}

// GetLine shows prompt and returns the next line without its newline. It
// returns io.EOF at end of input or on Ctrl-C.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getScannedLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)
	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) getScannedLine(prompt string) (string, error) {
	fmt.Fprint(le.out, prompt)
	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Close releases the terminal. It is safe to call more than once.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}
