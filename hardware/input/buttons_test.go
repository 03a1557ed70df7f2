package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gpio "github.com/temoto/gpio-cdev-go"
	gpio_mock "github.com/temoto/gpio-cdev-go/mock"

	"github.com/antufev/dashio/dash"
	"github.com/antufev/dashio/log2"
)

func mockButtons(t testing.TB, lines *gpio_mock.MockLines) *Buttons {
	return &Buttons{
		log:   log2.NewTest(t, log2.LDebug),
		chip:  new(gpio_mock.MockChip),
		lines: lines,
	}
}

func TestReadState(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		values [5]byte
		expect dash.NavState
	}{
		{"idle", [5]byte{}, dash.NavState{}},
		{"up", [5]byte{1, 0, 0, 0, 0}, dash.NavState{Up: true}},
		{"select", [5]byte{0, 1, 0, 0, 0}, dash.NavState{Select: true}},
		{"down+submit", [5]byte{0, 0, 1, 0, 1}, dash.NavState{Down: true, Submit: true}},
		{"back", [5]byte{0, 0, 0, 1, 0}, dash.NavState{Back: true}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			data := gpio.HandleData{}
			copy(data.Values[:], c.values[:])
			lines := new(gpio_mock.MockLines)
			lines.On("Read").Return(data, nil)

			b := mockButtons(t, lines)
			state, err := b.Read()
			require.NoError(t, err)
			assert.Equal(t, c.expect, state)
			lines.AssertExpectations(t)
		})
	}
}

func TestReadError(t *testing.T) {
	t.Parallel()

	lines := new(gpio_mock.MockLines)
	lines.On("Read").Return(gpio.HandleData{}, assert.AnError)

	b := mockButtons(t, lines)
	_, err := b.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpio read nav")
}
