package dash

import (
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antufev/dashio/log2"
)

type busMsg struct{ topic, payload string }

type stubBus struct {
	connectErr error
	subErr     error
	subs       []string
	gets       []string
	pubs       []busMsg
	inbox      []busMsg
}

func (self *stubBus) Connect() error { return self.connectErr }
func (self *stubBus) Subscribe(key string) error {
	if self.subErr != nil {
		return self.subErr
	}
	self.subs = append(self.subs, key)
	return nil
}
func (self *stubBus) Get(key string) error {
	self.gets = append(self.gets, key)
	return nil
}
func (self *stubBus) Publish(key, value string) error {
	self.pubs = append(self.pubs, busMsg{key, value})
	return nil
}
func (self *stubBus) Drain(fn func(topic, payload string)) {
	queued := self.inbox
	self.inbox = nil
	for _, m := range queued {
		fn(m.topic, m.payload)
	}
}
func (self *stubBus) Close() error { return nil }

func (self *stubBus) push(topic, payload string) {
	self.inbox = append(self.inbox, busMsg{topic, payload})
}

type stubRow struct {
	text  string
	color uint32
}

type stubSink struct {
	rows  []stubRow
	hil   int
	shows int
}

func (self *stubSink) AppendRow(text string, color uint32) {
	self.rows = append(self.rows, stubRow{text, color})
}
func (self *stubSink) SetRowText(row int, text string)   { self.rows[row].text = text }
func (self *stubSink) SetRowColor(row int, color uint32) { self.rows[row].color = color }
func (self *stubSink) RowColor(row int) uint32           { return self.rows[row].color }
func (self *stubSink) SetHighlightRow(row int)           { self.hil = row }
func (self *stubSink) Show()                             { self.shows++ }

type stubNav struct {
	state NavState
	err   error
}

func (self *stubNav) Read() (NavState, error) { return self.state, self.err }

type tenv struct {
	hub  *Hub
	bus  *stubBus
	sink *stubSink
	nav  *stubNav
}

func newTenv(t testing.TB) *tenv {
	e := &tenv{
		bus:  new(stubBus),
		sink: new(stubSink),
		nav:  new(stubNav),
	}
	hub, err := NewHub(HubOptions{
		Bus:       e.bus,
		Sink:      e.sink,
		Nav:       e.nav,
		Header:    "dashboard",
		PollDelay: time.Microsecond,
		Log:       log2.NewTest(t, log2.LDebug),
	})
	require.NoError(t, err)
	e.hub = hub
	return e
}

// press asserts the button for one tick, then releases for one tick.
func (e *tenv) press(t testing.TB, s NavState) {
	e.nav.state = s
	require.NoError(t, e.hub.Tick())
	e.nav.state = NavState{}
	require.NoError(t, e.hub.Tick())
}

func TestRegistrationOrder(t *testing.T) {
	t.Parallel()

	e := newTenv(t)
	for _, key := range []string{"alpha", "beta", "gamma"} {
		require.NoError(t, e.hub.AddFeed(key, FeedConfig{}))
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, e.hub.Keys())
	for i, key := range e.hub.Keys() {
		f, err := e.hub.Feed(key)
		require.NoError(t, err)
		assert.Equal(t, i, f.Index)
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, e.bus.subs)

	// header + 3 feed rows, defaults
	require.Len(t, e.sink.rows, 4)
	assert.Equal(t, "dashboard", e.sink.rows[0].text)
	assert.Equal(t, "beta", e.sink.rows[2].text)
	assert.Equal(t, 1, e.sink.hil)
	assert.Equal(t, 1, e.hub.Selected())

	err := e.hub.AddFeed("beta", FeedConfig{})
	assert.True(t, errors.IsAlreadyExists(err))
	assert.Len(t, e.sink.rows, 4)
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	e := newTenv(t)
	require.NoError(t, e.hub.AddFeed("temperature", FeedConfig{
		Template: "Temperature: %.1f C",
		Color: ColorFunc(func(raw string) uint32 {
			return 0x00FF00
		}),
	}))
	require.NoError(t, e.hub.AddFeed("door", FeedConfig{}))

	// fully qualified topic resolves by leaf segment
	require.NoError(t, e.hub.Dispatch("sensors/temperature", "21.5"))
	assert.Equal(t, "Temperature: 21.5 C", e.sink.rows[1].text)
	assert.Equal(t, uint32(0x00FF00), e.sink.rows[1].color)

	f, err := e.hub.Feed("temperature")
	require.NoError(t, err)
	assert.True(t, f.HasValue)
	assert.Equal(t, "21.5", f.LastValue)

	// no color formatter: color untouched
	require.NoError(t, e.hub.Dispatch("door", "open"))
	assert.Equal(t, "door : open", e.sink.rows[2].text)
	assert.Equal(t, DefaultColor, e.sink.rows[2].color)

	// unknown key: logged, dropped, not an error
	require.NoError(t, e.hub.Dispatch("sensors/humidity", "55"))
	require.Len(t, e.sink.rows, 3)
}

func TestDispatchBadPayload(t *testing.T) {
	t.Parallel()

	e := newTenv(t)
	require.NoError(t, e.hub.AddFeed("temperature", FeedConfig{Template: "%.1f C"}))

	e.bus.push("temperature", "banana")
	err := e.hub.Tick()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temperature")

	// value is stored even when render fails
	f, err2 := e.hub.Feed("temperature")
	require.NoError(t, err2)
	assert.Equal(t, "banana", f.LastValue)
	// row keeps previous text
	assert.Equal(t, "temperature", e.sink.rows[1].text)
}

func TestCursor(t *testing.T) {
	t.Parallel()

	e := newTenv(t)
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, e.hub.AddFeed(key, FeedConfig{}))
	}
	origin := [4]uint32{e.sink.rows[0].color, e.sink.rows[1].color, e.sink.rows[2].color, e.sink.rows[3].color}

	e.press(t, NavState{Down: true})
	e.press(t, NavState{Down: true})
	assert.Equal(t, 3, e.hub.Selected())
	assert.Equal(t, 3, e.sink.hil)
	// a and c complemented exactly once, b crossed and restored
	assert.Equal(t, Complement(origin[1]), e.sink.rows[1].color)
	assert.Equal(t, origin[2], e.sink.rows[2].color)
	assert.Equal(t, Complement(origin[3]), e.sink.rows[3].color)

	// clamp at bottom
	e.press(t, NavState{Down: true})
	assert.Equal(t, 3, e.hub.Selected())

	e.press(t, NavState{Up: true})
	e.press(t, NavState{Up: true})
	assert.Equal(t, 1, e.hub.Selected())
	for i := 1; i <= 3; i++ {
		assert.Equal(t, origin[i], e.sink.rows[i].color, "row=%d", i)
	}

	// clamp at top
	e.press(t, NavState{Up: true})
	assert.Equal(t, 1, e.hub.Selected())
}

func TestCursorEdgeLatch(t *testing.T) {
	t.Parallel()

	e := newTenv(t)
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, e.hub.AddFeed(key, FeedConfig{}))
	}

	// held button moves once, not on every tick
	e.nav.state = NavState{Down: true}
	require.NoError(t, e.hub.Tick())
	require.NoError(t, e.hub.Tick())
	require.NoError(t, e.hub.Tick())
	assert.Equal(t, 2, e.hub.Selected())

	e.nav.state = NavState{}
	require.NoError(t, e.hub.Tick())
	e.nav.state = NavState{Down: true}
	require.NoError(t, e.hub.Tick())
	assert.Equal(t, 3, e.hub.Selected())
}

func TestSelectPublish(t *testing.T) {
	t.Parallel()

	e := newTenv(t)
	published := []string{}
	require.NoError(t, e.hub.AddFeed("light", FeedConfig{
		Pub: PubFunc(func(lastValue string) {
			published = append(published, lastValue)
		}),
	}))
	require.NoError(t, e.hub.AddFeed("noop", FeedConfig{}))

	require.NoError(t, e.hub.Dispatch("light", "ON"))

	// select on feed with action: one press = one invocation + redraw
	e.nav.state = NavState{Select: true}
	require.NoError(t, e.hub.Tick())
	require.NoError(t, e.hub.Tick())
	e.nav.state = NavState{}
	require.NoError(t, e.hub.Tick())
	assert.Equal(t, []string{"ON"}, published)
	assert.Equal(t, 1, e.sink.shows)

	// select on feed with default no-op action: nothing observable
	e.press(t, NavState{Down: true})
	e.press(t, NavState{Select: true})
	assert.Equal(t, []string{"ON"}, published)
	assert.Equal(t, 1, e.sink.shows)
	assert.Empty(t, e.bus.pubs)
}

func TestPollAll(t *testing.T) {
	t.Parallel()

	e := newTenv(t)
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, e.hub.AddFeed(key, FeedConfig{}))
	}
	e.bus.push("a", "1")
	e.bus.push("c", "3")

	require.NoError(t, e.hub.PollAll())
	assert.Equal(t, []string{"a", "b", "c"}, e.bus.gets)
	assert.Equal(t, "a : 1", e.sink.rows[1].text)
	assert.Equal(t, "c : 3", e.sink.rows[3].text)
}

func TestHubPublish(t *testing.T) {
	t.Parallel()

	e := newTenv(t)
	require.NoError(t, e.hub.AddFeed("light", FeedConfig{}))
	require.NoError(t, e.hub.Publish("light", "OFF"))
	require.Len(t, e.bus.pubs, 1)
	assert.Equal(t, busMsg{"light", "OFF"}, e.bus.pubs[0])
}

func TestNewHubValidate(t *testing.T) {
	t.Parallel()

	_, err := NewHub(HubOptions{})
	assert.True(t, errors.IsNotValid(err))

	bus := &stubBus{connectErr: errors.Errorf("broker unreachable")}
	_, err = NewHub(HubOptions{Bus: bus, Sink: new(stubSink), Nav: new(stubNav)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unreachable")
}

func TestNavRising(t *testing.T) {
	t.Parallel()

	prev := NavState{Down: true, Back: true}
	now := NavState{Down: true, Up: true, Submit: true}
	edge := now.Rising(prev)
	assert.Equal(t, NavState{Up: true, Submit: true}, edge)
}
