package mpd

import "context"

// DecoderPlugin describes an input decoder compiled into the daemon.
type DecoderPlugin struct {
	Name      string   `json:"name"`
	Suffixes  []string `json:"suffixes,omitempty"`
	MimeTypes []string `json:"mime_types,omitempty"`
}

func (p *DecoderPlugin) DecodeLine(key, value string) (Outcome, error) {
	switch key {
	case "plugin":
		p.Name = value
	case "suffix":
		p.Suffixes = append(p.Suffixes, value)
	case "mime_type":
		p.MimeTypes = append(p.MimeTypes, value)
	default:
		return NotHandled(value), nil
	}
	return Handled(), nil
}

// Decoders lists the decoder plugins.
func (c *Client) Decoders(ctx context.Context) ([]DecoderPlugin, error) {
	list := NewList[DecoderPlugin]("plugin")
	if err := c.Execute(ctx, NewCommand(VerbDecoders), list); err != nil {
		return nil, err
	}
	return list.Items(), nil
}
