package log2

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		level  Level
		fun    func(l *Log)
		expect string
	}{
		{"error", LError, func(l *Log) { l.Errorf("problem code=%d", 17) }, "error: problem code=17\n"},
		{"info", LInfo, func(l *Log) { l.Infof("state=%s", "ok") }, "state=ok\n"},
		{"debug", LDebug, func(l *Log) { l.Debugf("var=%d", 42) }, "debug: var=42\n"},
		{"info-hides-debug", LInfo, func(l *Log) { l.Debugf("hidden") }, ""},
		{"error-hides-info", LError, func(l *Log) { l.Infof("hidden") }, ""},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name+"/logger=nil", func(t *testing.T) {
			c.fun(nil) // must not panic
		})
		t.Run(c.name, func(t *testing.T) {
			buf := bytes.NewBuffer(nil)
			l := NewWriter(buf, c.level)
			l.SetFlags(0)
			c.fun(l)
			assert.Equal(t, c.expect, buf.String())
		})
	}
}

func TestErrorFunc(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)
	l := NewWriter(buf, LAll)
	l.SetFlags(0)
	ech := make(chan error, 2)
	l.SetErrorFunc(func(e error) { ech <- e })

	exact := fmt.Errorf("one particular issue")
	l.Error(exact)
	l.Errorf("trouble var=%.1f", 3.4)
	close(ech)

	assert.Equal(t, exact, <-ech)
	assert.Equal(t, "trouble var=3.4", (<-ech).Error())
	assert.Equal(t, "error: one particular issue\nerror: trouble var=3.4\n", buf.String())
}

func TestClone(t *testing.T) {
	t.Parallel()

	buf := bytes.NewBuffer(nil)
	l := NewWriter(buf, LError)
	l.SetFlags(0)
	l.Debugf("hidden")
	l2 := l.Clone(LAll)
	l2.Debugf("visible")
	assert.Equal(t, "debug: visible\n", buf.String())
	assert.Nil(t, (*Log)(nil).Clone(LAll))
}
