package mpd

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterSaturates(t *testing.T) {
	tests := []struct {
		name     string
		start    uint8
		op       func(c *Counter[uint8])
		expected uint8
	}{
		{"Increment", 5, func(c *Counter[uint8]) { c.Increment() }, 6},
		{"Increment at max", 255, func(c *Counter[uint8]) { c.Increment() }, 255},
		{"Decrement", 5, func(c *Counter[uint8]) { c.Decrement() }, 4},
		{"Decrement at zero", 0, func(c *Counter[uint8]) { c.Decrement() }, 0},
		{"IncrementBy overflow", 250, func(c *Counter[uint8]) { c.IncrementBy(10) }, 255},
		{"DecrementBy underflow", 3, func(c *Counter[uint8]) { c.DecrementBy(10) }, 0},
		{"Set", 3, func(c *Counter[uint8]) { c.Set(200) }, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCounter(tt.start)
			tt.op(&c)
			assert.Equal(t, tt.expected, c.Value())
		})
	}
}

// Random operation sequences never leave [0, max] and never wrap.
func TestCounterRandomSequencesStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var c Counter[uint16]
	var model int64

	for range 10000 {
		n := uint16(rng.Intn(1 << 16))
		switch rng.Intn(5) {
		case 0:
			c.Increment()
			model++
		case 1:
			c.Decrement()
			model--
		case 2:
			c.IncrementBy(n)
			model += int64(n)
		case 3:
			c.DecrementBy(n)
			model -= int64(n)
		case 4:
			c.Set(n)
			model = int64(n)
		}
		model = max(0, min(model, 65535))
		require.Equal(t, uint16(model), c.Value())
	}
}

func TestVolumeStopsAtMaximum(t *testing.T) {
	v := NewVolume(95)
	v.IncrementBy(10)
	assert.Equal(t, uint8(100), v.Value())

	v.Increment()
	assert.Equal(t, uint8(100), v.Value())

	v.DecrementBy(200)
	assert.Equal(t, uint8(0), v.Value())

	// Set stores daemon-reported values as they are.
	v.Set(150)
	assert.Equal(t, uint8(150), v.Value())
}

func TestVolumeApply(t *testing.T) {
	tests := []struct {
		name     string
		start    uint8
		delta    string
		expected uint8
	}{
		{"Absolute", 10, "50", 50},
		{"Absolute above ceiling", 10, "250", 100},
		{"Relative up", 50, "+5", 55},
		{"Relative down", 50, "-5", 45},
		{"Relative up clamps", 98, "+5", 100},
		{"Relative down clamps", 3, "-5", 0},
		{"Huge step", 50, "+100000", 100},
		{"Whitespace", 50, " +1 ", 51},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVolume(tt.start)
			require.NoError(t, v.Apply(tt.delta))
			assert.Equal(t, tt.expected, v.Value())
		})
	}
}

func TestVolumeApplyRejectsMalformed(t *testing.T) {
	for _, delta := range []string{"", "+", "-", "abc", "+-5", "5.5", "--1"} {
		t.Run(delta, func(t *testing.T) {
			v := NewVolume(40)
			err := v.Apply(delta)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "volume", pe.Key)
			assert.Equal(t, uint8(40), v.Value())
		})
	}
}

func TestCurrentIndexDecodesSongKey(t *testing.T) {
	var idx CurrentIndex
	out, err := idx.DecodeLine("song", "7")
	require.NoError(t, err)
	assert.True(t, out.Handled)
	assert.True(t, idx.Present)
	assert.Equal(t, uint32(7), idx.Value())

	out, err = idx.DecodeLine("songid", "12")
	require.NoError(t, err)
	assert.False(t, out.Handled)
	assert.Equal(t, "12", out.Value)

	_, err = idx.DecodeLine("song", "-1")
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestCounterMarshalsAsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		V Volume `json:"v"`
	}{NewVolume(42)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":42}`, string(b))
}
