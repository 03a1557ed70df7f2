// Package tele is the MQTT transport behind the dashboard hub.
//
// Contract:
// - NewMqtt() fails only on invalid config, network IO runs in background
// - Connect blocks until the first connect attempt resolves or times out
// - inbound messages are buffered in memory, Drain empties the buffer
//   on the caller's goroutine; overflow drops oldest and logs
// - reconnect and resubscribe are delegated to paho, callers layer any
//   further resilience around the hub loop
package tele

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"

	"github.com/antufev/dashio/helpers"
	"github.com/antufev/dashio/log2"
)

const DefaultInboxSize = 64

type Config struct { //nolint:maligned
	BrokerURL         string `hcl:"broker_url"`
	ClientID          string `hcl:"client_id"`
	Username          string `hcl:"username"`
	Password          string `hcl:"password"`
	TopicPrefix       string `hcl:"topic_prefix"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	PingTimeoutSec    int    `hcl:"ping_timeout_sec"`
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	InboxSize         int    `hcl:"inbox_size"`
	LogDebug          bool   `hcl:"log_debug"`
}

type Message struct {
	Topic   string
	Payload string
}

// Mqtt implements the hub bus over paho.
type Mqtt struct {
	log        *log2.Log
	config     Config
	m          mqtt.Client
	mopt       *mqtt.ClientOptions
	inbox      chan Message
	netTimeout time.Duration
}

func NewMqtt(config Config, log *log2.Log) (*Mqtt, error) {
	if config.BrokerURL == "" {
		return nil, errors.NotValidf("config mqtt broker_url is empty")
	}
	if config.LogDebug {
		log.SetLevel(log2.LDebug)
	}
	mqtt.ERROR = pahoLogger{log, log2.LError}
	mqtt.CRITICAL = pahoLogger{log, log2.LError}
	mqtt.WARN = pahoLogger{log, log2.LInfo}
	if config.LogDebug {
		mqtt.DEBUG = pahoLogger{log, log2.LDebug}
	}

	inboxSize := config.InboxSize
	if inboxSize == 0 {
		inboxSize = DefaultInboxSize
	}
	self := &Mqtt{
		log:        log,
		config:     config,
		inbox:      make(chan Message, inboxSize),
		netTimeout: helpers.IntSecondDefault(config.NetworkTimeoutSec, 30*time.Second),
	}

	clientID := config.ClientID
	if clientID == "" {
		clientID = "dashio"
	}
	keepAlive := helpers.IntSecondDefault(config.KeepaliveSec, 60*time.Second)
	pingTimeout := helpers.IntSecondDefault(config.PingTimeoutSec, 30*time.Second)
	self.mopt = mqtt.NewClientOptions().
		AddBroker(config.BrokerURL).
		SetClientID(clientID).
		SetUsername(config.Username).
		SetPassword(config.Password).
		SetCleanSession(false).
		SetResumeSubs(true).
		SetKeepAlive(keepAlive).
		SetPingTimeout(pingTimeout).
		SetOrderMatters(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(keepAlive / 2).
		SetDefaultPublishHandler(self.messageHandler).
		SetOnConnectHandler(self.onConnectHandler).
		SetConnectionLostHandler(self.connectLostHandler)
	self.m = mqtt.NewClient(self.mopt)
	return self, nil
}

func (self *Mqtt) Connect() error {
	token := self.m.Connect()
	if !token.WaitTimeout(self.netTimeout) {
		return errors.Timeoutf("mqtt connect broker=%s", self.config.BrokerURL)
	}
	return errors.Annotatef(token.Error(), "mqtt connect broker=%s", self.config.BrokerURL)
}

func (self *Mqtt) Close() error {
	self.m.Disconnect(250)
	self.log.Infof("mqtt disconnected")
	return nil
}

func (self *Mqtt) Subscribe(key string) error {
	topic := self.Topic(key)
	token := self.m.Subscribe(topic, 1, nil)
	if !token.WaitTimeout(self.netTimeout) {
		return errors.Timeoutf("mqtt subscribe topic=%s", topic)
	}
	if err := token.Error(); err != nil {
		return errors.Annotatef(err, "mqtt subscribe topic=%s", topic)
	}
	self.log.Infof("mqtt subscribed topic=%s", topic)
	return nil
}

// Get asks the broker-side application to re-publish the retained
// value of a feed, Adafruit-IO style: empty payload to <topic>/get.
func (self *Mqtt) Get(key string) error {
	topic := self.Topic(key) + "/get"
	token := self.m.Publish(topic, 1, false, []byte{})
	if !token.WaitTimeout(self.netTimeout) {
		return errors.Timeoutf("mqtt get topic=%s", topic)
	}
	return errors.Annotatef(token.Error(), "mqtt get topic=%s", topic)
}

func (self *Mqtt) Publish(key, value string) error {
	topic := self.Topic(key)
	self.log.Debugf("mqtt publish topic=%s value=%s", topic, value)
	token := self.m.Publish(topic, 1, false, []byte(value))
	if !token.WaitTimeout(self.netTimeout) {
		return errors.Timeoutf("mqtt publish topic=%s", topic)
	}
	return errors.Annotatef(token.Error(), "mqtt publish topic=%s", topic)
}

// Drain delivers buffered inbound messages on the caller's goroutine
// and returns when the buffer is empty.
func (self *Mqtt) Drain(fn func(topic, payload string)) {
	for {
		select {
		case m := <-self.inbox:
			fn(m.Topic, m.Payload)
		default:
			return
		}
	}
}

func (self *Mqtt) Topic(key string) string {
	if self.config.TopicPrefix == "" {
		return key
	}
	return self.config.TopicPrefix + "/" + key
}

func (self *Mqtt) messageHandler(c mqtt.Client, msg mqtt.Message) {
	m := Message{Topic: msg.Topic(), Payload: string(msg.Payload())}
	for {
		select {
		case self.inbox <- m:
			return
		default:
		}
		// ticker loop is stuck or gone, losing oldest beats blocking
		// the paho receive goroutine
		select {
		case drop := <-self.inbox:
			self.log.Errorf("mqtt inbox overflow drop topic=%s", drop.Topic)
		default:
		}
	}
}

func (self *Mqtt) onConnectHandler(c mqtt.Client) {
	self.log.Infof("mqtt connected broker=%s", self.config.BrokerURL)
}

func (self *Mqtt) connectLostHandler(c mqtt.Client, err error) {
	self.log.Errorf("mqtt connection lost: %v", err)
}

// pahoLogger bridges paho's Logger interface onto log2 levels.
type pahoLogger struct {
	log   *log2.Log
	level log2.Level
}

func (self pahoLogger) Println(v ...interface{})               { self.log.Log(self.level, fmt.Sprint(v...)) }
func (self pahoLogger) Printf(format string, v ...interface{}) { self.log.Logf(self.level, format, v...) }
