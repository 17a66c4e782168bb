// Package edge implements the Sparkplug B edge-node session: the connect /
// birth / data / death lifecycle, the bdSeq and seq counters, the device
// registry and rebirth handling.
package edge

import (
	"time"

	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/topic"
	"github.com/iotedgekit/go-sparkplugb/transport"
)

// CommandCallback receives inbound NCMD messages. It runs on a
// transport-owned goroutine and must not call back into blocking session
// operations (Connect, Disconnect, Rebirth) directly.
type CommandCallback func(t topic.Topic, p *sparkplugb.Payload)

// Config parameterizes an edge-node session.
type Config struct {
	// BrokerURL uses tcp:// for plain connections and ssl:// for TLS.
	BrokerURL string
	// ClientID is the MQTT client identifier; generated when empty.
	ClientID string

	GroupID    string
	EdgeNodeID string

	// DataQoS applies to BIRTH/DATA/DEATH publishes (default 0).
	DataQoS byte
	// DeathQoS applies to the Last-Will NDEATH (default 1).
	DeathQoS byte

	CleanSession bool
	// KeepAlive is the MQTT keep-alive in seconds (default 60).
	KeepAlive uint16

	Username string
	Password string
	TLS      *transport.TLSOptions

	// CommandCallback, when set, makes Connect subscribe to this node's NCMD
	// topic at QoS 1.
	CommandCallback CommandCallback

	// StoreAndForward buffers device data metrics whose publish failed and
	// replays them, flagged historical, after that device's next DBIRTH.
	StoreAndForward bool
	// BufferTTL bounds how long buffered metrics are retained (default 10m).
	BufferTTL time.Duration
}

// NewConfig returns a config with the documented defaults applied.
func NewConfig(brokerURL, groupID, edgeNodeID string) Config {
	return Config{
		BrokerURL:    brokerURL,
		GroupID:      groupID,
		EdgeNodeID:   edgeNodeID,
		DataQoS:      0,
		DeathQoS:     1,
		CleanSession: true,
		KeepAlive:    60,
		BufferTTL:    10 * time.Minute,
	}
}

func (c *Config) withDefaults() {
	if c.DeathQoS == 0 {
		c.DeathQoS = 1
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 60
	}
	if c.BufferTTL <= 0 {
		c.BufferTTL = 10 * time.Minute
	}
}
