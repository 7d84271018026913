package mpd

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Counter is an unsigned value with saturating arithmetic. The zero value is
// ready to use.
type Counter[T unsigned] struct {
	value T
}

// NewCounter returns a counter holding v.
func NewCounter[T unsigned](v T) Counter[T] {
	return Counter[T]{value: v}
}

func maxOf[T unsigned]() T {
	return ^T(0)
}

// Value returns the current value.
func (c Counter[T]) Value() T {
	return c.value
}

// Set replaces the value unconditionally.
func (c *Counter[T]) Set(v T) {
	c.value = v
}

// Increment adds one, stopping at the type maximum.
func (c *Counter[T]) Increment() {
	c.IncrementBy(1)
}

// Decrement subtracts one, stopping at zero.
func (c *Counter[T]) Decrement() {
	c.DecrementBy(1)
}

// IncrementBy adds n, stopping at the type maximum.
func (c *Counter[T]) IncrementBy(n T) {
	if maxOf[T]()-c.value < n {
		c.value = maxOf[T]()
		return
	}
	c.value += n
}

// DecrementBy subtracts n, stopping at zero.
func (c *Counter[T]) DecrementBy(n T) {
	if c.value < n {
		c.value = 0
		return
	}
	c.value -= n
}

func (c Counter[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.value)
}

// MaxVolume is the daemon's volume ceiling.
const MaxVolume = 100

// Volume is a mixer level. Relative steps stop at MaxVolume and zero; Set
// stores whatever the daemon reports.
type Volume struct {
	Counter[uint8]
}

// NewVolume returns a volume holding v.
func NewVolume(v uint8) Volume {
	return Volume{NewCounter(v)}
}

// IncrementBy raises the volume by n, stopping at MaxVolume.
func (v *Volume) IncrementBy(n uint8) {
	if v.value >= MaxVolume {
		return
	}
	v.Counter.IncrementBy(n)
	if v.value > MaxVolume {
		v.value = MaxVolume
	}
}

// Increment raises the volume by one, stopping at MaxVolume.
func (v *Volume) Increment() {
	v.IncrementBy(1)
}

var errVolumeDelta = errors.New("expected N, +N or -N")

// Apply interprets a volume change: "50" sets the level, "+5" and "-5" step
// relative to the current one.
func (v *Volume) Apply(delta string) error {
	s := strings.TrimSpace(delta)
	if s == "" {
		return NewParseError("volume", delta, errVolumeDelta)
	}
	sign := s[0]
	digits := s
	if sign == '+' || sign == '-' {
		digits = s[1:]
	}
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil || digits == "" {
		return NewParseError("volume", delta, errVolumeDelta)
	}
	step := uint8(min(n, MaxVolume))
	switch sign {
	case '+':
		v.IncrementBy(step)
	case '-':
		v.DecrementBy(step)
	default:
		v.Set(step)
	}
	return nil
}

// CurrentIndex is the queue position of the current song. It decodes the
// "song" key of a status response.
type CurrentIndex struct {
	Counter[uint32]
	Present bool
}

// DecodeLine handles the "song" key.
func (c *CurrentIndex) DecodeLine(key, value string) (Outcome, error) {
	if key != "song" {
		return NotHandled(value), nil
	}
	n, err := parseUint(key, value, 32)
	if err != nil {
		return Outcome{}, err
	}
	c.Set(uint32(n))
	c.Present = true
	return Handled(), nil
}
