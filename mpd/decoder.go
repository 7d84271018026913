package mpd

import (
	"errors"
	"io"
	"maps"
	"math"
	"slices"
	"strconv"
	"time"
)

// Outcome tells the caller whether a decoder recognized a line. When it did
// not, Value carries the input value unchanged so another decoder can try.
type Outcome struct {
	Handled bool
	Value   string
}

// Handled reports a consumed line.
func Handled() Outcome {
	return Outcome{Handled: true}
}

// NotHandled hands value back to the caller.
func NotHandled(value string) Outcome {
	return Outcome{Value: value}
}

// Decoder consumes one key/value line at a time.
type Decoder interface {
	DecodeLine(key, value string) (Outcome, error)
}

// BinaryDecoder is implemented by decoders that accept binary payloads.
type BinaryDecoder interface {
	DecodeBinary(data []byte) error
}

// OtherCollector receives keys no decoder in the chain recognized.
type OtherCollector interface {
	CollectOther(key, value string)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(key, value string) (Outcome, error)

func (f DecoderFunc) DecodeLine(key, value string) (Outcome, error) {
	return f(key, value)
}

// Decode feeds the response in r to d until the (sub-)response ends. When d
// fails, the rest of the response is drained so the connection stays usable,
// and the decode error is returned.
func Decode(r *ResponseReader, d Decoder) error {
	if d == nil {
		d = Discard
	}
	for {
		key, value, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		var derr error
		if key == BinaryKey {
			derr = decodeBinary(d, r.Payload())
		} else {
			derr = decodeInto(d, key, value)
		}
		if derr != nil {
			if drainErr := r.Drain(); drainErr != nil {
				return drainErr
			}
			return derr
		}
	}
}

func decodeBinary(d Decoder, data []byte) error {
	bd, ok := d.(BinaryDecoder)
	if !ok {
		return &ProtocolError{Message: "unexpected binary block"}
	}
	return bd.DecodeBinary(data)
}

// decodeInto runs one line through d and offers an unrecognized key to the
// entity's OtherCollector.
func decodeInto(d Decoder, key, value string) error {
	out, err := d.DecodeLine(key, value)
	if err != nil {
		return err
	}
	if out.Handled {
		return nil
	}
	if oc, ok := d.(OtherCollector); ok {
		oc.CollectOther(key, out.Value)
	}
	return nil
}

// Discard accepts and drops every line, including binary blocks.
var Discard Decoder = discard{}

type discard struct{}

func (discard) DecodeLine(string, string) (Outcome, error) { return Handled(), nil }
func (discard) DecodeBinary([]byte) error                  { return nil }

// OtherAttributes holds keys an entity does not model itself.
type OtherAttributes map[string]string

// CollectOther stores key. A repeated key keeps its first value.
func (o *OtherAttributes) CollectOther(key, value string) {
	if *o == nil {
		*o = make(OtherAttributes)
	}
	if _, ok := (*o)[key]; !ok {
		(*o)[key] = value
	}
}

// Get returns the value stored for key.
func (o OtherAttributes) Get(key string) (string, bool) {
	v, ok := o[key]
	return v, ok
}

// Keys returns the stored keys in sorted order.
func (o OtherAttributes) Keys() []string {
	return slices.Sorted(maps.Keys(o))
}

// Pair is one raw response line.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Pairs collects every line verbatim. It backs raw commands.
type Pairs struct {
	Lines  []Pair
	Binary []byte
}

func (p *Pairs) DecodeLine(key, value string) (Outcome, error) {
	p.Lines = append(p.Lines, Pair{Key: key, Value: value})
	return Handled(), nil
}

func (p *Pairs) DecodeBinary(data []byte) error {
	p.Binary = append(p.Binary, data...)
	return nil
}

// Values returns the values of every line with the given key.
func (p *Pairs) Values(key string) []string {
	var out []string
	for _, pair := range p.Lines {
		if pair.Key == key {
			out = append(out, pair.Value)
		}
	}
	return out
}

// List decodes a response holding a sequence of entities. A marker key seen
// after the current element has started closes that element and begins a new
// one.
type List[T any, PT interface {
	*T
	Decoder
}] struct {
	markers []string
	items   []T
	cur     PT
}

// NewList returns a list that starts a new element on any of markers.
func NewList[T any, PT interface {
	*T
	Decoder
}](markers ...string) *List[T, PT] {
	return &List[T, PT]{markers: markers}
}

func (l *List[T, PT]) DecodeLine(key, value string) (Outcome, error) {
	if l.cur == nil || slices.Contains(l.markers, key) {
		l.flush()
		l.cur = PT(new(T))
	}
	if err := decodeInto(l.cur, key, value); err != nil {
		return Outcome{}, err
	}
	return Handled(), nil
}

func (l *List[T, PT]) DecodeBinary(data []byte) error {
	if l.cur == nil {
		return &ProtocolError{Message: "binary block before first list element"}
	}
	return decodeBinary(l.cur, data)
}

// Items returns the decoded elements.
func (l *List[T, PT]) Items() []T {
	l.flush()
	return l.items
}

func (l *List[T, PT]) flush() {
	if l.cur != nil {
		l.items = append(l.items, *l.cur)
		l.cur = nil
	}
}

// Field parsers. Failures are ParseErrors naming key and value.

func parseUint(key, value string, bits int) (uint64, error) {
	n, err := strconv.ParseUint(value, 10, bits)
	if err != nil {
		return 0, NewParseError(key, value, err)
	}
	return n, nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, NewParseError(key, value, err)
	}
	return n, nil
}

var errBool = errors.New(`expected "0" or "1"`)

func parseBool(key, value string) (bool, error) {
	switch value {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, NewParseError(key, value, errBool)
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, NewParseError(key, value, err)
	}
	return f, nil
}

var errBadSeconds = errors.New("not a non-negative number of seconds")

// parseSeconds parses fractional seconds such as "12.345".
func parseSeconds(key, value string) (time.Duration, error) {
	f, err := parseFloat(key, value)
	if err != nil {
		return 0, err
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, NewParseError(key, value, errBadSeconds)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func parseTimestamp(key, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, NewParseError(key, value, err)
	}
	return t, nil
}
