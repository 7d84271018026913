package mpd

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errEmptyCommand      = errors.New("empty command")
	errUnterminatedQuote = errors.New("unterminated quoted argument")
	errTrailingQuote     = errors.New("quoted argument not followed by a space")
)

// ParseCommand splits a request line into verb and arguments, the way the
// daemon tokenizes it: arguments are separated by blanks, double-quoted
// arguments may contain blanks, and a backslash inside quotes escapes the
// next character.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSuffix(line, "\n")
	if len(line) > MaxLineLength {
		return Command{}, ErrLineTooLong
	}
	tokens, err := Tokenize(line)
	if err != nil {
		return Command{}, err
	}
	if len(tokens) == 0 {
		return Command{}, fmt.Errorf("%w: %w", ErrInvalidArgument, errEmptyCommand)
	}
	return Command{Verb: tokens[0], Args: tokens[1:]}, nil
}

// Tokenize splits line into unquoted tokens.
func Tokenize(line string) ([]string, error) {
	var tokens []string
	i := 0
	for {
		for i < len(line) && isBlank(line[i]) {
			i++
		}
		if i >= len(line) {
			return tokens, nil
		}
		if line[i] != '"' {
			start := i
			for i < len(line) && !isBlank(line[i]) {
				i++
			}
			tokens = append(tokens, line[start:i])
			continue
		}

		var sb strings.Builder
		i++
		closed := false
		for i < len(line) {
			ch := line[i]
			if ch == '\\' && i+1 < len(line) {
				sb.WriteByte(line[i+1])
				i += 2
				continue
			}
			if ch == '"' {
				closed = true
				i++
				break
			}
			sb.WriteByte(ch)
			i++
		}
		if !closed {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, errUnterminatedQuote)
		}
		if i < len(line) && !isBlank(line[i]) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, errTrailingQuote)
		}
		tokens = append(tokens, sb.String())
	}
}

func isBlank(ch byte) bool {
	return ch == ' ' || ch == '\t'
}
