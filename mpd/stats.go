package mpd

import (
	"context"
	"strconv"
	"time"
)

// Stats holds database and uptime counters.
type Stats struct {
	Artists    uint32        `json:"artists"`
	Albums     uint32        `json:"albums"`
	Songs      uint32        `json:"songs"`
	Uptime     time.Duration `json:"uptime"`
	Playtime   time.Duration `json:"playtime"`
	DBPlaytime time.Duration `json:"db_playtime"`
	DBUpdate   time.Time     `json:"db_update,omitzero"`
}

func (s *Stats) DecodeLine(key, value string) (Outcome, error) {
	var err error
	switch key {
	case "artists":
		s.Artists, err = parseUint32(key, value)
	case "albums":
		s.Albums, err = parseUint32(key, value)
	case "songs":
		s.Songs, err = parseUint32(key, value)
	case "uptime":
		s.Uptime, err = parseSeconds(key, value)
	case "playtime":
		s.Playtime, err = parseSeconds(key, value)
	case "db_playtime":
		s.DBPlaytime, err = parseSeconds(key, value)
	case "db_update":
		var n uint64
		if n, err = parseUint(key, value, 63); err == nil {
			s.DBUpdate = time.Unix(int64(n), 0).UTC()
		}
	default:
		return NotHandled(value), nil
	}
	if err != nil {
		return Outcome{}, err
	}
	return Handled(), nil
}

// Stats returns the daemon statistics.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := c.Execute(ctx, NewCommand(VerbStats), &st); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// UpdateJob identifies a database update started by Update or Rescan.
type UpdateJob struct {
	ID uint32 `json:"updating_db"`
}

func (j *UpdateJob) DecodeLine(key, value string) (Outcome, error) {
	if key != "updating_db" {
		return NotHandled(value), nil
	}
	id, err := parseUint32(key, value)
	if err != nil {
		return Outcome{}, err
	}
	j.ID = id
	return Handled(), nil
}

func (j UpdateJob) String() string {
	return strconv.FormatUint(uint64(j.ID), 10)
}

// Update starts a database update below path.
func (c *Client) Update(ctx context.Context, path string) (UpdateJob, error) {
	var job UpdateJob
	if err := c.Execute(ctx, NewUpdateCommand(path, false), &job); err != nil {
		return UpdateJob{}, err
	}
	return job, nil
}

// Rescan is Update that also re-reads unmodified files.
func (c *Client) Rescan(ctx context.Context, path string) (UpdateJob, error) {
	var job UpdateJob
	if err := c.Execute(ctx, NewUpdateCommand(path, true), &job); err != nil {
		return UpdateJob{}, err
	}
	return job, nil
}

// updatePollInterval bounds how long WaitForUpdate trusts change
// notifications alone.
const updatePollInterval = time.Second

// WaitForUpdate blocks until job no longer shows in the status, or ctx ends.
func (c *Client) WaitForUpdate(ctx context.Context, job UpdateJob) error {
	changes, unsubscribe := c.Subscribe(4)
	defer unsubscribe()

	ticker := time.NewTicker(updatePollInterval)
	defer ticker.Stop()
	for {
		st, err := c.Status(ctx)
		if err != nil && !IsRetriable(err) {
			return err
		}
		if err == nil && (st.UpdatingDB == 0 || st.UpdatingDB > job.ID) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changes:
		case <-ticker.C:
		}
	}
}
