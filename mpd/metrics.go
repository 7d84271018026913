package mpd

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the client's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	IdleChanges     *prometheus.CounterVec
	Reconnects      prometheus.Counter
	State           prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg. Collectors
// already registered by another client are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rmpc",
				Subsystem: "client",
				Name:      "commands_total",
				Help:      "Commands sent to the daemon by verb and result",
			},
			[]string{"verb", "result"},
		),

		CommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "rmpc",
				Subsystem: "client",
				Name:      "command_duration_seconds",
				Help:      "Round-trip time of a command in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"verb"},
		),

		IdleChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rmpc",
				Subsystem: "idle",
				Name:      "changes_total",
				Help:      "Subsystem changes reported by idle",
			},
			[]string{"subsystem"},
		),

		Reconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "rmpc",
				Subsystem: "client",
				Name:      "reconnects_total",
				Help:      "Reconnection attempts",
			},
		),

		State: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "rmpc",
				Subsystem: "client",
				Name:      "connection_state",
				Help:      "Connection state (0=disconnected, 1=connecting, 2=authenticating, 3=idle, 4=busy, 5=reconnecting, 6=fatal)",
			},
		),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	m.CommandsTotal, err = register(reg, m.CommandsTotal)
	if err != nil {
		return nil, err
	}
	m.CommandDuration, err = register(reg, m.CommandDuration)
	if err != nil {
		return nil, err
	}
	m.IdleChanges, err = register(reg, m.IdleChanges)
	if err != nil {
		return nil, err
	}
	m.Reconnects, err = register(reg, m.Reconnects)
	if err != nil {
		return nil, err
	}
	m.State, err = register(reg, m.State)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCommand counts a finished command.
func (m *Metrics) RecordCommand(verb string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(verb, resultLabel(err)).Inc()
	m.CommandDuration.WithLabelValues(verb).Observe(d.Seconds())
}

// RecordChanges counts the subsystems of a change-set.
func (m *Metrics) RecordChanges(changes ChangeSet) {
	if m == nil {
		return
	}
	for s := range changes {
		m.IdleChanges.WithLabelValues(string(s)).Inc()
	}
}

// RecordReconnect counts a reconnection attempt.
func (m *Metrics) RecordReconnect() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

// RecordState publishes the connection state.
func (m *Metrics) RecordState(s ConnectionState) {
	if m == nil {
		return
	}
	m.State.Set(float64(s))
}

func resultLabel(err error) string {
	var se *ServerError
	var pe *ParseError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &se):
		return "ack"
	case errors.As(err, &pe):
		return "parse_error"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "error"
	}
}
