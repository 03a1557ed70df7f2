// Package input reads the five navigation pushbuttons from GPIO
// character device lines.
package input

import (
	"strconv"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"

	"github.com/antufev/dashio/dash"
	"github.com/antufev/dashio/log2"
)

// PinMap names the GPIO line offset of each button.
type PinMap struct {
	Up     string `hcl:"up"`
	Select string `hcl:"select"`
	Down   string `hcl:"down"`
	Back   string `hcl:"back"`
	Submit string `hcl:"submit"`
}

type Config struct {
	// Chip is the gpiochip device path, e.g. /dev/gpiochip0.
	Chip string `hcl:"chip"`
	// ActiveLow for buttons wired to ground with pull-ups.
	ActiveLow bool   `hcl:"active_low"`
	Pinmap    PinMap `hcl:"pinmap"`
}

// Buttons samples all five lines with one bulk read per hub tick.
type Buttons struct {
	log   *log2.Log
	chip  gpio.Chiper
	lines gpio.Lineser
}

func NewButtons(config Config, log *log2.Log) (*Buttons, error) {
	chip, err := gpio.Open(config.Chip, "dashio-nav")
	if err != nil {
		return nil, errors.Annotatef(err, "gpio open chip=%s", config.Chip)
	}

	offsets := make([]uint32, 0, 5)
	for _, pin := range []string{
		config.Pinmap.Up, config.Pinmap.Select, config.Pinmap.Down,
		config.Pinmap.Back, config.Pinmap.Submit,
	} {
		n, err := strconv.ParseUint(pin, 10, 32)
		if err != nil {
			chip.Close()
			return nil, errors.Annotatef(err, "gpio pinmap pin=%q", pin)
		}
		offsets = append(offsets, uint32(n))
	}

	flag := gpio.GPIOHANDLE_REQUEST_INPUT
	if config.ActiveLow {
		flag |= gpio.GPIOHANDLE_REQUEST_ACTIVE_LOW
	}
	lines, err := chip.OpenLines(flag, "dashio-nav", offsets...)
	if err != nil {
		chip.Close()
		return nil, errors.Annotatef(err, "gpio open lines chip=%s", config.Chip)
	}

	self := &Buttons{
		log:   log,
		chip:  chip,
		lines: lines,
	}
	return self, nil
}

// Read samples all buttons at once. Line order matches NavState field
// order: up, select, down, back, submit.
func (self *Buttons) Read() (dash.NavState, error) {
	data, err := self.lines.Read()
	if err != nil {
		return dash.NavState{}, errors.Annotate(err, "gpio read nav")
	}
	state := dash.NavState{
		Up:     data.Values[0] != 0,
		Select: data.Values[1] != 0,
		Down:   data.Values[2] != 0,
		Back:   data.Values[3] != 0,
		Submit: data.Values[4] != 0,
	}
	if state != (dash.NavState{}) {
		self.log.Debugf("nav state=%+v", state)
	}
	return state, nil
}

func (self *Buttons) Close() error {
	if err := self.lines.Close(); err != nil {
		self.chip.Close()
		return errors.Annotate(err, "gpio close nav lines")
	}
	return errors.Annotate(self.chip.Close(), "gpio close nav chip")
}
