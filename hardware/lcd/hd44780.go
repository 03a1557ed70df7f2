// Package lcd drives HD44780-compatible character displays over GPIO
// character device lines, 4-bit bus.
package lcd

import (
	"strconv"
	"time"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
)

type Command byte

const (
	CommandClear   Command = 0x01
	CommandReturn  Command = 0x02
	CommandControl Command = 0x08
	CommandAddress Command = 0x80
)

type Control byte

const (
	ControlOn         Control = 0x04
	ControlUnderscore Control = 0x02
	ControlBlink      Control = 0x01
)

// DDRAM start address per display row. Rows 3/4 continue rows 1/2, the
// usual 4-line controller wiring.
var rowAddr = [4]byte{0x00, 0x40, 0x14, 0x54}

type PinMap struct {
	RS string `hcl:"rs"` // command/data, aliases: A0, RS
	RW string `hcl:"rw"`
	E  string `hcl:"e"` // enable
	D4 string `hcl:"d4"`
	D5 string `hcl:"d5"`
	D6 string `hcl:"d6"`
	D7 string `hcl:"d7"`
}

type Config struct { //nolint:maligned
	Chip   string `hcl:"chip"`
	Pinmap PinMap `hcl:"pinmap"`
	Page1  bool   `hcl:"page1"`
	Width  int    `hcl:"width"`
	Rows   int    `hcl:"rows"`
	Blink  bool   `hcl:"blink"`
	Cursor bool   `hcl:"cursor"`
}

type LCD struct { //nolint:maligned
	control Control
	width   uint8
	rows    uint8
	chip    gpio.Chiper
	pins    gpio.Lineser
	pin_rs  gpio.LineSetFunc
	pin_rw  gpio.LineSetFunc
	pin_e   gpio.LineSetFunc
	pin_d4  gpio.LineSetFunc
	pin_d5  gpio.LineSetFunc
	pin_d6  gpio.LineSetFunc
	pin_d7  gpio.LineSetFunc
}

func NewLCD(config Config) (*LCD, error) {
	self := &LCD{
		width: uint8(config.Width),
		rows:  uint8(config.Rows),
	}
	if self.width == 0 {
		self.width = 16
	}
	if self.rows == 0 {
		self.rows = 2
	}
	if self.rows > 4 {
		return nil, errors.NotValidf("lcd rows=%d max=4", config.Rows)
	}

	var err error
	self.chip, err = gpio.Open(config.Chip, "dashio-lcd")
	if err != nil {
		return nil, errors.Annotatef(err, "lcd gpio open chip=%s", config.Chip)
	}
	pins := [7]uint32{}
	for i, s := range []string{
		config.Pinmap.RS, config.Pinmap.RW, config.Pinmap.E,
		config.Pinmap.D4, config.Pinmap.D5, config.Pinmap.D6, config.Pinmap.D7,
	} {
		x, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			self.chip.Close()
			return nil, errors.Annotatef(err, "lcd pinmap pin=%q", s)
		}
		pins[i] = uint32(x)
	}
	self.pins, err = self.chip.OpenLines(
		gpio.GPIOHANDLE_REQUEST_OUTPUT, "dashio-lcd",
		pins[0], pins[1], pins[2], pins[3], pins[4], pins[5], pins[6],
	)
	if err != nil {
		self.chip.Close()
		return nil, errors.Annotatef(err, "lcd gpio open lines chip=%s", config.Chip)
	}
	self.pin_rs = self.pins.SetFunc(pins[0])
	self.pin_rw = self.pins.SetFunc(pins[1])
	self.pin_e = self.pins.SetFunc(pins[2])
	self.pin_d4 = self.pins.SetFunc(pins[3])
	self.pin_d5 = self.pins.SetFunc(pins[4])
	self.pin_d6 = self.pins.SetFunc(pins[5])
	self.pin_d7 = self.pins.SetFunc(pins[6])

	self.init4(config.Page1)
	control := ControlOn
	if config.Blink {
		control |= ControlBlink
	}
	if config.Cursor {
		control |= ControlUnderscore
	}
	self.SetControl(control)
	return self, nil
}

func (self *LCD) Close() error {
	self.SetControl(0)
	if err := self.pins.Close(); err != nil {
		self.chip.Close()
		return errors.Annotate(err, "lcd close lines")
	}
	return errors.Annotate(self.chip.Close(), "lcd close chip")
}

func (self *LCD) setAllPins(b byte) {
	self.pin_rs(b)
	self.pin_rw(b)
	self.pin_e(b)
	self.pin_d4(b)
	self.pin_d5(b)
	self.pin_d6(b)
	self.pin_d7(b)
	self.pins.Flush() //nolint:errcheck
}

func (self *LCD) blinkE() {
	self.pin_e(1)
	self.pins.Flush() //nolint:errcheck
	time.Sleep(1 * time.Microsecond)
	self.pin_e(0)
	self.pins.Flush() //nolint:errcheck
	time.Sleep(1 * time.Microsecond)
}

func (self *LCD) send4(rs, d4, d5, d6, d7 byte) {
	self.pin_rs(rs)
	self.pin_d4(d4)
	self.pin_d5(d5)
	self.pin_d6(d6)
	self.pin_d7(d7)
	self.blinkE()
}

func (self *LCD) init4(page1 bool) {
	time.Sleep(20 * time.Millisecond)

	// mode reset sequence, then switch to 4-bit
	self.Command(0x33)
	self.Command(0x32)

	self.SetFunction(false, page1)
	self.SetControl(0) // off
	self.SetControl(ControlOn)
	self.Clear()
	self.SetEntryMode(true, false)
}

func bb(b, bit byte) byte {
	if b&(1<<bit) == 0 {
		return 0
	}
	return 1
}

func (self *LCD) Command(c Command) {
	b := byte(c)
	self.send4(0, bb(b, 4), bb(b, 5), bb(b, 6), bb(b, 7))
	self.send4(0, bb(b, 0), bb(b, 1), bb(b, 2), bb(b, 3))
	// TODO poll busy flag instead of fixed delay
	time.Sleep(40 * time.Microsecond)
	self.setAllPins(0)
}

func (self *LCD) Data(b byte) {
	self.send4(1, bb(b, 4), bb(b, 5), bb(b, 6), bb(b, 7))
	self.send4(1, bb(b, 0), bb(b, 1), bb(b, 2), bb(b, 3))
	time.Sleep(40 * time.Microsecond)
	self.setAllPins(0)
}

func (self *LCD) Write(bs []byte) {
	for _, b := range bs {
		self.Data(b)
	}
}

func (self *LCD) Clear() {
	self.Command(CommandClear)
	time.Sleep(2 * time.Millisecond)
}

func (self *LCD) Return() {
	self.Command(CommandReturn)
}

func (self *LCD) SetEntryMode(right, shift bool) {
	var cmd Command = 0x04
	if right {
		cmd |= 0x02
	}
	if shift {
		cmd |= 0x01
	}
	self.Command(cmd)
}

func (self *LCD) Control() Control {
	return self.control
}

func (self *LCD) SetControl(new Control) Control {
	old := self.control
	self.control = new
	self.Command(CommandControl | Command(new))
	return old
}

func (self *LCD) SetFunction(bits8, page1 bool) {
	var cmd Command = 0x28
	if bits8 {
		cmd |= 0x10
	}
	if page1 {
		cmd |= 0x02
	}
	self.Command(cmd)
}

// CursorYX moves the write position, 1-based row and column.
func (self *LCD) CursorYX(row, column uint8) bool {
	if row < 1 || row > self.rows {
		return false
	}
	if column < 1 || column > self.width {
		return false
	}
	addr := rowAddr[row-1] + (column - 1)
	self.Command(CommandAddress | Command(addr))
	return true
}
