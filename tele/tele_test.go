package tele

import (
	"fmt"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antufev/dashio/log2"
)

type mockMessage struct {
	topic   string
	payload string
}

func (self mockMessage) Duplicate() bool   { return false }
func (self mockMessage) Qos() byte         { return 1 }
func (self mockMessage) Retained() bool    { return false }
func (self mockMessage) Topic() string     { return self.topic }
func (self mockMessage) MessageID() uint16 { return 0 }
func (self mockMessage) Payload() []byte   { return []byte(self.payload) }
func (self mockMessage) Ack()              {}

func TestTopic(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		prefix string
		key    string
		expect string
	}{
		{"bare", "", "temperature", "temperature"},
		{"prefixed", "user/feeds", "temperature", "user/feeds/temperature"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			m, err := NewMqtt(Config{
				BrokerURL:   "tcp://localhost:1883",
				TopicPrefix: c.prefix,
			}, log2.NewTest(t, log2.LError))
			require.NoError(t, err)
			assert.Equal(t, c.expect, m.Topic(c.key))
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	_, err := NewMqtt(Config{}, log2.NewTest(t, log2.LError))
	assert.True(t, errors.IsNotValid(err))
}

func TestDrainOrder(t *testing.T) {
	t.Parallel()

	m, err := NewMqtt(Config{BrokerURL: "tcp://localhost:1883"},
		log2.NewTest(t, log2.LError))
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		m.messageHandler(nil, mockMessage{topic: "t", payload: fmt.Sprintf("%d", i)})
	}
	got := []string{}
	m.Drain(func(topic, payload string) {
		assert.Equal(t, "t", topic)
		got = append(got, payload)
	})
	assert.Equal(t, []string{"1", "2", "3"}, got)

	// empty inbox: Drain returns without calling fn
	m.Drain(func(topic, payload string) { t.Error("unexpected message") })
}

func TestInboxOverflowDropsOldest(t *testing.T) {
	t.Parallel()

	m, err := NewMqtt(Config{BrokerURL: "tcp://localhost:1883", InboxSize: 2},
		log2.NewTest(t, log2.LError))
	require.NoError(t, err)

	m.messageHandler(nil, mockMessage{topic: "a", payload: "1"})
	m.messageHandler(nil, mockMessage{topic: "b", payload: "2"})
	m.messageHandler(nil, mockMessage{topic: "c", payload: "3"})

	got := []string{}
	m.Drain(func(topic, payload string) { got = append(got, topic) })
	assert.Equal(t, []string{"b", "c"}, got)
}
