package dash

import (
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/antufev/dashio/helpers"
	"github.com/antufev/dashio/log2"
)

// Bus is the message transport behind the hub.
// Contract:
// - Connect/Subscribe/Get/Publish may block for network round trip
// - inbound messages are queued by the implementation, Drain delivers
//   them on the caller's goroutine; one Drain per hub tick keeps the
//   single-owner execution model
type Bus interface {
	Connect() error
	Subscribe(key string) error
	// Get requests the retained value of a feed.
	Get(key string) error
	Publish(key, value string) error
	Drain(fn func(topic, payload string))
	Close() error
}

// RowSink renders rows of text with colors. Row 0 is the reserved
// header row, feed rows follow at Feed.Index+1.
type RowSink interface {
	AppendRow(text string, color uint32)
	SetRowText(row int, text string)
	SetRowColor(row int, color uint32)
	RowColor(row int) uint32
	SetHighlightRow(row int)
	// Show redraws the whole panel, used after a publish action that
	// may have taken over the display.
	Show()
}

// NavState is one sample of the five momentary buttons.
type NavState struct {
	Up     bool
	Select bool
	Down   bool
	Back   bool
	Submit bool
}

// Rising reports buttons pressed now that were not pressed at prev.
func (now NavState) Rising(prev NavState) NavState {
	return NavState{
		Up:     now.Up && !prev.Up,
		Select: now.Select && !prev.Select,
		Down:   now.Down && !prev.Down,
		Back:   now.Back && !prev.Back,
		Submit: now.Submit && !prev.Submit,
	}
}

// Nav reads momentary button state.
type Nav interface {
	Read() (NavState, error)
}

const (
	HeaderColor  uint32 = 0xFFFFFF
	DefaultColor uint32 = 0xFFFFFF

	DefaultPollDelay = 100 * time.Millisecond
)

// Hub owns the feed registry, the selection cursor and the display
// rows. All mutation happens from the goroutine calling Tick/PollAll,
// no locking by construction.
type Hub struct { //nolint:maligned
	Log *log2.Log

	bus   Bus
	sink  RowSink
	nav   Nav
	feeds *registry

	selected  int // 1..feeds.Len(), feed row number
	prev      NavState
	header    string
	pollDelay time.Duration
}

type HubOptions struct {
	Bus    Bus
	Sink   RowSink
	Nav    Nav
	Header string
	// PollDelay throttles per-feed Get in PollAll, default 100ms.
	PollDelay time.Duration
	Log       *log2.Log
}

// NewHub wires the collaborators and connects the bus.
func NewHub(opt HubOptions) (*Hub, error) {
	if opt.Bus == nil || opt.Sink == nil || opt.Nav == nil {
		return nil, errors.NotValidf("code error hub requires bus, sink, nav")
	}
	if opt.PollDelay == 0 {
		opt.PollDelay = DefaultPollDelay
	}
	self := &Hub{
		Log:       opt.Log,
		bus:       opt.Bus,
		sink:      opt.Sink,
		nav:       opt.Nav,
		feeds:     newRegistry(),
		selected:  1,
		header:    opt.Header,
		pollDelay: opt.PollDelay,
	}
	if err := self.bus.Connect(); err != nil {
		return nil, errors.Annotate(err, "hub connect")
	}
	return self, nil
}

// AddFeed registers a feed, subscribes its key on the bus and appends
// its display row. The header row is created lazily on the first call.
// Registration order is stable and append-only, there is no remove.
func (self *Hub) AddFeed(key string, c FeedConfig) error {
	if _, err := self.feeds.Lookup(key); err == nil {
		return errors.AlreadyExistsf("feed key=%s", key)
	}
	if c.Template == "" {
		c.Template = key + " : %v"
	}
	if c.DefaultText == "" {
		c.DefaultText = key
	}
	if c.Text == nil {
		c.Text = templateFormatter(c.Template)
	}

	if err := self.bus.Subscribe(key); err != nil {
		return errors.Annotatef(err, "subscribe key=%s", key)
	}

	f := &Feed{
		Key:         key,
		DefaultText: c.DefaultText,
		Template:    c.Template,
		Text:        c.Text,
		Color:       c.Color,
		Pub:         c.Pub,
	}
	if err := self.feeds.Add(f); err != nil {
		return errors.Trace(err)
	}
	if f.Index == 0 {
		self.sink.AppendRow(self.header, HeaderColor)
		self.sink.SetHighlightRow(1)
	}
	self.sink.AppendRow(f.DefaultText, DefaultColor)
	self.Log.Debugf("feed added key=%s index=%d", key, f.Index)
	return nil
}

// Feed returns a registered feed, NotFound when absent.
func (self *Hub) Feed(key string) (*Feed, error) { return self.feeds.Lookup(key) }

// Keys returns feed keys in registration order.
func (self *Hub) Keys() []string { return self.feeds.Keys() }

// Selected returns the cursor position, 1-based feed row number.
func (self *Hub) Selected() int { return self.selected }

// LastNav returns the button state sampled by the latest Tick. Back
// and Submit are not consumed by the hub, hosts read them here.
func (self *Hub) LastNav() NavState { return self.prev }

// Dispatch routes one inbound message to its feed row. The topic may
// be fully qualified, only the last path segment is the feed key.
// Unknown key means a subscription/registration mismatch: logged and
// dropped, never fatal to the loop. A render failure is returned.
func (self *Hub) Dispatch(topic, payload string) error {
	key := topic
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		key = topic[i+1:]
	}
	f, err := self.feeds.Lookup(key)
	if err != nil {
		self.Log.Errorf("dispatch drop topic=%s: %v", topic, err)
		return nil
	}
	self.Log.Debugf("dispatch key=%s value=%s", key, payload)
	f.LastValue = payload
	f.HasValue = true

	text, err := f.Text.FormatText(key, payload)
	if err != nil {
		return errors.Annotatef(err, "feed key=%s", key)
	}
	self.sink.SetRowText(f.Index+1, text)
	if f.Color != nil {
		self.sink.SetRowColor(f.Index+1, f.Color.FormatColor(payload))
	}
	return nil
}

// Publish writes an outbound value for a feed through the bus.
func (self *Hub) Publish(key, value string) error {
	self.Log.Infof("publish key=%s value=%s", key, value)
	return errors.Annotatef(self.bus.Publish(key, value), "publish key=%s", key)
}

// PollAll requests the retained value of every feed in registration
// order with an inter-request delay, then runs one drain cycle.
// Startup/refresh primitive, not part of the steady-state tick.
func (self *Hub) PollAll() error {
	errs := make([]error, 0, self.feeds.Len()+1)
	for _, key := range self.feeds.Keys() {
		self.Log.Debugf("get key=%s", key)
		if err := self.bus.Get(key); err != nil {
			errs = append(errs, errors.Annotatef(err, "get key=%s", key))
		}
		time.Sleep(self.pollDelay)
	}
	errs = append(errs, self.drain())
	return helpers.FoldErrors(errs)
}

// Tick runs one hub cycle: deliver queued inbound messages, then act
// on button edges. Render errors are folded and returned, keeping the
// loop alive is the caller's policy. Cursor movement clamps at both
// ends, out-of-range presses are a no-op, not an error.
func (self *Hub) Tick() error {
	errs := []error{self.drain()}

	now, err := self.nav.Read()
	if err != nil {
		errs = append(errs, errors.Annotate(err, "nav read"))
		return helpers.FoldErrors(errs)
	}
	edge := now.Rising(self.prev)
	self.prev = now

	if edge.Select && self.feeds.Len() > 0 {
		f := self.feeds.At(self.selected - 1)
		if f.Pub != nil {
			self.Log.Infof("select key=%s", f.Key)
			// The action may run its own interactive loop on the
			// display until it returns. Redraw everything after.
			f.Pub.Publish(f.LastValue)
			self.sink.Show()
		}
	}
	if edge.Down && self.selected < self.feeds.Len() {
		self.moveCursor(self.selected + 1)
	}
	if edge.Up && self.selected > 1 {
		self.moveCursor(self.selected - 1)
	}
	return helpers.FoldErrors(errs)
}

func (self *Hub) drain() error {
	var errs []error
	self.bus.Drain(func(topic, payload string) {
		if err := self.Dispatch(topic, payload); err != nil {
			errs = append(errs, err)
		}
	})
	return helpers.FoldErrors(errs)
}

// moveCursor un-highlights the current row, moves the highlight and
// highlights the target. Complement is an involution so a row crossed
// by down-then-up ends with its original color.
func (self *Hub) moveCursor(to int) {
	self.sink.SetRowColor(self.selected, Complement(self.sink.RowColor(self.selected)))
	self.selected = to
	self.sink.SetHighlightRow(to)
	self.sink.SetRowColor(to, Complement(self.sink.RowColor(to)))
}
