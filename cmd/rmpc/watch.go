// =============================================================================
// watch.go - Change Notification Stream
// =============================================================================
//
// "rmpc watch" keeps a connection open and prints one JSON line per change
// notification or connection state transition until interrupted. With
// --listen it also serves the same events to websocket clients on /events
// and the client's Prometheus metrics on /metrics.
//
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pascalbakker/rmpc/internal/eventfeed"
	"github.com/pascalbakker/rmpc/mpd"
)

const shutdownTimeout = 5 * time.Second

type watchOptions struct {
	listen     string
	origins    []string
	subsystems []string
	resync     bool
}

func watchCmd(o *globalOptions) *cobra.Command {
	var wo watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print change notifications as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, o, wo, nil)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&wo.listen, "listen", "", "serve /events (websocket) and /metrics on this address")
	flags.StringArrayVar(&wo.origins, "allow-origin", nil, "also accept websocket clients from pages on this host pattern (repeatable)")
	flags.StringSliceVar(&wo.subsystems, "subsystems", nil, "only report these subsystems")
	flags.BoolVar(&wo.resync, "resync", false, "print a snapshot after every reconnect")
	return cmd
}

// eventPrinter writes feed events as JSON lines. Handlers run on the
// client's dispatcher goroutine while the main goroutine may also print.
type eventPrinter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newEventPrinter(w io.Writer) *eventPrinter {
	return &eventPrinter{enc: json.NewEncoder(w)}
}

func (p *eventPrinter) print(ev eventfeed.Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.enc.Encode(ev)
}

// runWatch streams events until the command's context ends. ready, when
// non-nil, receives the bound listen address once the server is up.
func runWatch(cmd *cobra.Command, o *globalOptions, wo watchOptions, ready chan<- string) error {
	subsystems, err := parseSubsystems(wo.subsystems)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := mpd.NewMetrics(reg)
	if err != nil {
		return err
	}

	opts := []mpd.Option{mpd.WithMetrics(metrics)}
	if len(subsystems) > 0 {
		opts = append(opts, mpd.WithSubsystems(subsystems...))
	}
	client, err := o.newClient(cmd, opts...)
	if err != nil {
		return err
	}

	hub := eventfeed.NewHub(o.logger, 0)
	hub.AllowOrigins(wo.origins...)
	printer := newEventPrinter(cmd.OutOrStdout())

	client.SetChangeHandler(func(changes mpd.ChangeSet) {
		printer.print(eventfeed.Event{Type: eventfeed.TypeChanged, Subsystems: changes.Strings()})
		hub.PublishChanges(changes)
	})
	client.SetStateHandler(func(state mpd.ConnectionState) {
		printer.print(eventfeed.Event{Type: eventfeed.TypeState, State: state.String()})
		hub.PublishState(state)
	})
	client.SetResyncHandler(func(snap mpd.Snapshot) {
		if wo.resync {
			status := snap.Status
			printer.print(eventfeed.Event{Type: eventfeed.TypeResync, Status: &status, CurrentSong: snap.CurrentSong})
		}
		hub.PublishResync(snap)
	})
	// The disconnect handler only runs once reconnection has given up.
	lost := make(chan error, 1)
	client.SetDisconnectHandler(func(err error) {
		select {
		case lost <- err:
		default:
		}
	})

	g, ctx := errgroup.WithContext(cmd.Context())
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	if wo.listen != "" {
		ln, err := net.Listen("tcp", wo.listen)
		if err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/events", hub)
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		o.logger.Info("serving events", "addr", ln.Addr().String())
		if ready != nil {
			ready <- ln.Addr().String()
		}
		g.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case err := <-lost:
			return err
		}
	})
	return g.Wait()
}
