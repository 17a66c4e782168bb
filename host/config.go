// Package host implements the Sparkplug B host application: the STATE
// liveness publisher and NCMD/DCMD command side, and the observer that
// consumes a group's Sparkplug traffic, validates sequence continuity and
// tracks node/device state.
package host

import (
	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/topic"
	"github.com/iotedgekit/go-sparkplugb/transport"
)

// MessageCallback receives every inbound Sparkplug message after dispatch.
// It runs on a transport-owned goroutine.
type MessageCallback func(t topic.Topic, p *sparkplugb.Payload)

// StateCallback receives host application STATE messages. STATE travels as
// JSON outside the Sparkplug payload schema, so it has its own shape.
type StateCallback func(hostID string, online bool, timestamp uint64, raw []byte)

// LogLevel classifies observer log output.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// LogCallback receives observer warnings and diagnostics. Validation
// problems are reported here, never as errors.
type LogCallback func(level LogLevel, msg string)

// Config parameterizes a host application session.
type Config struct {
	// BrokerURL uses tcp:// for plain connections and ssl:// for TLS.
	BrokerURL string
	// ClientID is the MQTT client identifier; generated when empty.
	ClientID string
	// HostID names this host application in the STATE topic tree.
	HostID string

	// QoS applies to command publishes and subscriptions (default 1). STATE
	// is always published at QoS 1.
	QoS byte

	CleanSession bool
	// KeepAlive is the MQTT keep-alive in seconds (default 60).
	KeepAlive uint16

	Username string
	Password string
	TLS      *transport.TLSOptions

	MessageCallback MessageCallback
	CommandCallback MessageCallback
	StateCallback   StateCallback
	LogCallback     LogCallback

	// ValidateSequence enables the observer's validation and state tracking
	// (default true, see NewConfig). When false the observer keeps no node or
	// device state, so alias lookups and state snapshots find nothing.
	ValidateSequence bool
}

// NewConfig returns a config with the documented defaults applied.
func NewConfig(brokerURL, hostID string) Config {
	return Config{
		BrokerURL:        brokerURL,
		HostID:           hostID,
		QoS:              1,
		CleanSession:     true,
		KeepAlive:        60,
		ValidateSequence: true,
	}
}

func (c *Config) withDefaults() {
	if c.QoS == 0 {
		c.QoS = 1
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 60
	}
}
