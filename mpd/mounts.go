package mpd

import "context"

// Mount is a storage mounted into the music directory.
type Mount struct {
	Path    string `json:"mount"`
	Storage string `json:"storage,omitempty"`
}

func (m *Mount) DecodeLine(key, value string) (Outcome, error) {
	switch key {
	case "mount":
		m.Path = value
	case "storage":
		m.Storage = value
	default:
		return NotHandled(value), nil
	}
	return Handled(), nil
}

// ListMounts returns the mounted storages. The root mount has an empty path.
func (c *Client) ListMounts(ctx context.Context) ([]Mount, error) {
	list := NewList[Mount]("mount")
	if err := c.Execute(ctx, NewCommand(VerbListMounts), list); err != nil {
		return nil, err
	}
	return list.Items(), nil
}

// Mount mounts uri under name.
func (c *Client) Mount(ctx context.Context, name, uri string) error {
	return c.Run(ctx, NewMountCommand(name, uri))
}

// Unmount removes the mount called name.
func (c *Client) Unmount(ctx context.Context, name string) error {
	return c.Run(ctx, NewUnmountCommand(name))
}
