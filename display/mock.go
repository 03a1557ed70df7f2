package display

import "sync"

func NewMockPanel(opt *PanelConfig) (*Panel, *MockDevicer) {
	dev := new(MockDevicer)
	panel, err := NewPanel(opt)
	if err != nil {
		panic(err)
	}
	panel.SetDevice(dev)
	return panel, dev
}

// MockDevicer records writes per cursor row.
type MockDevicer struct {
	mu     sync.Mutex
	y      uint8
	lines  map[uint8]string
	clears int
}

func (self *MockDevicer) Clear() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.lines = nil
	self.clears++
}

func (self *MockDevicer) CursorYX(y, x uint8) bool {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.y = y
	return true
}

func (self *MockDevicer) Write(b []byte) {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.lines == nil {
		self.lines = make(map[uint8]string, 8)
	}
	self.lines[self.y] = string(b)
}

// Line returns the last bytes written at 1-based device row y.
func (self *MockDevicer) Line(y uint8) string {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.lines[y]
}

func (self *MockDevicer) Clears() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.clears
}
