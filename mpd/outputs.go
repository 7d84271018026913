package mpd

import (
	"context"
	"errors"
	"strings"
)

// Output is an audio output of the daemon.
type Output struct {
	ID         uint32            `json:"id"`
	Name       string            `json:"name"`
	Plugin     string            `json:"plugin,omitempty"`
	Enabled    bool              `json:"enabled"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

var errAttribute = errors.New(`expected "name=value"`)

func (o *Output) DecodeLine(key, value string) (Outcome, error) {
	var err error
	switch key {
	case "outputid":
		o.ID, err = parseUint32(key, value)
	case "outputname":
		o.Name = value
	case "plugin":
		o.Plugin = value
	case "outputenabled":
		o.Enabled, err = parseBool(key, value)
	case "attribute":
		name, v, ok := strings.Cut(value, "=")
		if !ok {
			return Outcome{}, NewParseError(key, value, errAttribute)
		}
		if o.Attributes == nil {
			o.Attributes = make(map[string]string)
		}
		o.Attributes[name] = v
	default:
		return NotHandled(value), nil
	}
	if err != nil {
		return Outcome{}, err
	}
	return Handled(), nil
}

// OutputList decodes the outputs response.
func OutputList() *List[Output, *Output] {
	return NewList[Output]("outputid")
}

// Outputs lists the audio outputs.
func (c *Client) Outputs(ctx context.Context) ([]Output, error) {
	list := OutputList()
	if err := c.Execute(ctx, NewCommand(VerbOutputs), list); err != nil {
		return nil, err
	}
	return list.Items(), nil
}

// EnableOutput turns an output on.
func (c *Client) EnableOutput(ctx context.Context, id uint32) error {
	return c.Run(ctx, NewOutputCommand(VerbEnableOutput, id))
}

// DisableOutput turns an output off.
func (c *Client) DisableOutput(ctx context.Context, id uint32) error {
	return c.Run(ctx, NewOutputCommand(VerbDisableOutput, id))
}

// ToggleOutput flips an output.
func (c *Client) ToggleOutput(ctx context.Context, id uint32) error {
	return c.Run(ctx, NewOutputCommand(VerbToggleOutput, id))
}
