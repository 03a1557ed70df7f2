// Package state holds the device configuration.
package state

import (
	"io/ioutil"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/antufev/dashio/dash"
	"github.com/antufev/dashio/hardware/input"
	"github.com/antufev/dashio/hardware/lcd"
	"github.com/antufev/dashio/helpers"
	"github.com/antufev/dashio/log2"
	"github.com/antufev/dashio/tele"
)

type Config struct { //nolint:maligned
	Mqtt tele.Config `hcl:"mqtt"`

	Hardware struct {
		Display struct {
			Width         int        `hcl:"width"`
			Codepage      string     `hcl:"codepage"`
			ScrollDelayMs int        `hcl:"scroll_delay_ms"`
			Lcd           lcd.Config `hcl:"lcd"`
		} `hcl:"display"`
		Input input.Config `hcl:"input"`
	} `hcl:"hardware"`

	UI struct {
		Header      string `hcl:"header"`
		TickMs      int    `hcl:"tick_ms"`
		PollDelayMs int    `hcl:"poll_delay_ms"`
	} `hcl:"ui"`

	Feeds []FeedConfig `hcl:"feed"`
}

// FeedConfig declares one dashboard row in the config file.
type FeedConfig struct {
	Name        string `hcl:"name,key"`
	DefaultText string `hcl:"default_text"`
	Template    string `hcl:"template"`

	// Optional two-color threshold rule: numeric values at or above
	// threshold render High, below render Low. Non-numeric values
	// render Low.
	Color struct {
		Low       string  `hcl:"low"`
		High      string  `hcl:"high"`
		Threshold float64 `hcl:"threshold"`
	} `hcl:"color"`
}

// Dash converts the config block into feed registration options.
func (self *FeedConfig) Dash() (dash.FeedConfig, error) {
	fc := dash.FeedConfig{
		DefaultText: self.DefaultText,
		Template:    self.Template,
	}
	if self.Color.Low == "" && self.Color.High == "" {
		return fc, nil
	}
	if self.Color.Low == "" || self.Color.High == "" {
		return fc, errors.NotValidf("feed=%s color rule requires both low and high", self.Name)
	}
	low, err := ParseColor(self.Color.Low)
	if err != nil {
		return fc, errors.Annotatef(err, "feed=%s color low", self.Name)
	}
	high, err := ParseColor(self.Color.High)
	if err != nil {
		return fc, errors.Annotatef(err, "feed=%s color high", self.Name)
	}
	threshold := self.Color.Threshold
	fc.Color = dash.ColorFunc(func(raw string) uint32 {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || v < threshold {
			return low
		}
		return high
	})
	return fc, nil
}

// ParseColor reads 24-bit RGB in "#RRGGBB" or "0xRRGGBB" form.
func ParseColor(s string) (uint32, error) {
	hex := s
	switch {
	case strings.HasPrefix(s, "#"):
		hex = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		hex = s[2:]
	}
	if len(hex) != 6 {
		return 0, errors.NotValidf("color=%q want RRGGBB", s)
	}
	c, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, errors.NotValidf("color=%q", s)
	}
	return uint32(c), nil
}

func (self *Config) ScrollDelay() time.Duration {
	return time.Duration(self.Hardware.Display.ScrollDelayMs) * time.Millisecond
}
func (self *Config) Tick() time.Duration {
	return helpers.IntMillisecondDefault(self.UI.TickMs, 50*time.Millisecond)
}
func (self *Config) PollDelay() time.Duration {
	return helpers.IntMillisecondDefault(self.UI.PollDelayMs, dash.DefaultPollDelay)
}

func Parse(bs []byte) (*Config, error) {
	c := &Config{}
	if err := hcl.Unmarshal(bs, c); err != nil {
		return nil, errors.Annotate(err, "config parse")
	}
	if c.Hardware.Display.Width == 0 {
		c.Hardware.Display.Width = 20
	}
	if c.UI.Header == "" {
		c.UI.Header = "dashboard"
	}
	return c, nil
}

func ReadFile(path string) (*Config, error) {
	bs, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "config read path=%s", path)
	}
	c, err := Parse(bs)
	return c, errors.Annotatef(err, "config path=%s", path)
}

func MustReadFile(log *log2.Log, path string) *Config {
	c, err := ReadFile(path)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
