// Package display renders an append-only list of colored text rows on
// a character display behind a minimal byte-level driver boundary.
package display

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/paulrosania/go-charset/charset"
	_ "github.com/paulrosania/go-charset/data"
	"github.com/temoto/alive/v2"
)

const MaxWidth = 40

var spaceBytes = bytes.Repeat([]byte{' '}, MaxWidth)

// Devicer is the display driver boundary. Rendering internals behind
// it are not this package's business.
type Devicer interface {
	Clear()
	CursorYX(y, x uint8) bool
	Write(b []byte)
}

type row struct {
	text  []byte
	color uint32
}

// Panel holds the row list, the highlight position and per-row colors.
// Row 0 is the reserved header row. The byte protocol has no color;
// colors are carried as panel state for hosts and snapshots. Rows
// longer than the width scroll marquee-style on Tick.
type Panel struct { //nolint:maligned
	alive *alive.Alive
	mu    sync.Mutex
	dev   Devicer
	tr    atomic.Value
	width uint32
	rows  []row
	hil   int
	tickd time.Duration
	tick  uint32
	upd   chan<- Snapshot
}

type PanelConfig struct {
	Codepage    string
	ScrollDelay time.Duration
	Width       uint32
}

func NewPanel(opt *PanelConfig) (*Panel, error) {
	if opt == nil || opt.Width == 0 {
		return nil, errors.NotValidf("code error PanelConfig requires width")
	}
	if opt.Width > MaxWidth {
		return nil, errors.NotValidf("panel width=%d max=%d", opt.Width, MaxWidth)
	}
	self := &Panel{
		alive: alive.NewAlive(),
		tickd: opt.ScrollDelay,
		width: opt.Width,
	}
	if opt.Codepage != "" {
		if err := self.SetCodepage(opt.Codepage); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return self, nil
}

func (self *Panel) SetCodepage(cp string) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	tr, err := charset.TranslatorTo(cp)
	if err != nil {
		return err
	}
	self.tr.Store(tr)
	return nil
}

func (self *Panel) SetDevice(dev Devicer) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.dev = dev
}

func (self *Panel) AppendRow(text string, color uint32) {
	b := self.Translate(text)

	self.mu.Lock()
	defer self.mu.Unlock()

	self.rows = append(self.rows, row{text: b, color: color})
	self.flush()
}

func (self *Panel) SetRowText(i int, text string) {
	b := self.Translate(text)

	self.mu.Lock()
	defer self.mu.Unlock()

	self.mustRow(i).text = b
	atomic.StoreUint32(&self.tick, 0)
	self.flush()
}

func (self *Panel) SetRowColor(i int, color uint32) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.mustRow(i).color = color
	self.flush()
}

func (self *Panel) RowColor(i int) uint32 {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.mustRow(i).color
}

func (self *Panel) SetHighlightRow(i int) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.hil = i
	self.flush()
}

// Show redraws every row from panel state.
func (self *Panel) Show() {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.dev != nil {
		self.dev.Clear()
	}
	self.flush()
}

func (self *Panel) Len() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return len(self.rows)
}

func (self *Panel) Clear() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.rows = nil
	self.hil = 0
	if self.dev != nil {
		self.dev.Clear()
	}
	self.flush()
}

func (self *Panel) Tick() {
	self.mu.Lock()
	defer self.mu.Unlock()

	atomic.AddUint32(&self.tick, 1)
	self.flush()
}

// Run drives marquee scrolling until Stop. No-op without ScrollDelay.
func (self *Panel) Run() {
	self.mu.Lock()
	delay := self.tickd
	self.mu.Unlock()
	if delay == 0 {
		return
	}
	tmr := time.NewTicker(delay)
	stopch := self.alive.StopChan()

	for self.alive.IsRunning() {
		select {
		case <-tmr.C:
			self.Tick()
		case <-stopch:
			tmr.Stop()
			return
		}
	}
}

func (self *Panel) Stop() {
	self.alive.Stop()
	self.alive.Wait()
}

func (self *Panel) SetUpdateChan(ch chan<- Snapshot) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.upd = ch
}

func (self *Panel) State() Snapshot {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.snapshot()
}

func (self *Panel) Translate(s string) []byte {
	if len(s) == 0 {
		return spaceBytes[:0]
	}
	result := []byte(s)
	tr, ok := self.tr.Load().(charset.Translator)
	if ok && tr != nil {
		_, tb, err := tr.Translate(result, true)
		if err != nil {
			panic(err)
		}
		// translator reuses single internal buffer, make a copy
		result = append([]byte(nil), tb...)
	}
	return result
}

func (self *Panel) mustRow(i int) *row {
	if i < 0 || i >= len(self.rows) {
		panic(errors.Errorf("code error display row=%d len=%d", i, len(self.rows)))
	}
	return &self.rows[i]
}

// flush rewrites all rows without clear, looks smoother. One column is
// reserved for the highlight marker.
func (self *Panel) flush() {
	if self.dev != nil {
		var buf [MaxWidth]byte
		wText := self.width - 1
		tick := atomic.LoadUint32(&self.tick)
		for i := range self.rows {
			marker := byte(' ')
			if i == self.hil && self.hil > 0 {
				marker = '>'
			}
			buf[0] = marker
			scrollWrap(buf[1:1+wText], self.rows[i].text, tick)
			// device rejects rows it cannot address, skip those
			if self.dev.CursorYX(uint8(i+1), 1) {
				self.dev.Write(buf[:self.width])
			}
		}
	}

	if self.upd != nil {
		self.upd <- self.snapshot()
	}
}

func (self *Panel) snapshot() Snapshot {
	s := Snapshot{
		Rows:      make([]RowState, len(self.rows)),
		Highlight: self.hil,
	}
	for i, r := range self.rows {
		s.Rows[i] = RowState{Text: string(r.text), Color: r.color}
	}
	return s
}

type RowState struct {
	Text  string
	Color uint32
}

type Snapshot struct {
	Rows      []RowState
	Highlight int
}

// PadSpace returns `b` when len>=width, otherwise pads with spaces.
func PadSpace(b []byte, width uint32) []byte {
	l := uint32(len(b))

	if l == 0 {
		return spaceBytes[:width]
	}
	if l >= width {
		return b
	}
	buf := make([]byte, 0, width)
	buf = append(append(buf, b...), spaceBytes[:width-l]...)
	return buf
}

// relies that len(buf) == visible width
func scrollWrap(buf []byte, content []byte, tick uint32) uint32 {
	length := uint32(len(content))
	width := uint32(len(buf))
	gap := uint32(width / 2)
	n := 0
	if length <= width {
		n = copy(buf, content)
		copy(buf[n:], spaceBytes)
		return uint32(n)
	}

	offset := tick % (length + gap)
	if offset < length {
		n = copy(buf, content[offset:])
	} else {
		gap = gap - (offset - length)
	}
	n += copy(buf[n:], spaceBytes[:gap])
	n += copy(buf[n:], content[0:])
	return uint32(n)
}
