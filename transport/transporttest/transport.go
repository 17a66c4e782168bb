// Package transporttest provides an in-memory Transport for exercising the
// Sparkplug sessions without a broker.
package transporttest

import (
	"context"
	"sync"

	"github.com/iotedgekit/go-sparkplugb/sperr"
	"github.com/iotedgekit/go-sparkplugb/transport"
)

// Published records one Publish call.
type Published struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// Subscription records one Subscribe call.
type Subscription struct {
	Filter string
	QoS    byte
}

// Fake is an in-memory transport. It records every call and lets tests
// inject inbound messages and connection loss.
type Fake struct {
	mu sync.Mutex

	connected     bool
	connects      []transport.ConnectOptions
	published     []Published
	subscriptions []Subscription

	onMsg  transport.MessageHandler
	onLost transport.ConnectionLostHandler

	// Error injection knobs. While set, every matching call fails.
	ConnectErr   error
	PublishErr   error
	SubscribeErr error
}

// New returns an empty fake transport.
func New() *Fake { return &Fake{} }

func (f *Fake) Connect(_ context.Context, opts transport.ConnectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.connected = true
	f.connects = append(f.connects, opts)
	return nil
}

func (f *Fake) Publish(_ context.Context, topic string, payload []byte, qos byte, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishErr != nil {
		return f.PublishErr
	}
	if !f.connected {
		return sperr.New(sperr.NotConnected, "publish to %s", topic)
	}
	f.published = append(f.published, Published{
		Topic:   topic,
		Payload: append([]byte(nil), payload...),
		QoS:     qos,
		Retain:  retain,
	})
	return nil
}

func (f *Fake) Subscribe(_ context.Context, filter string, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeErr != nil {
		return f.SubscribeErr
	}
	if !f.connected {
		return sperr.New(sperr.NotConnected, "subscribe to %s", filter)
	}
	f.subscriptions = append(f.subscriptions, Subscription{Filter: filter, QoS: qos})
	return nil
}

func (f *Fake) Disconnect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *Fake) SetMessageHandler(h transport.MessageHandler) {
	f.mu.Lock()
	f.onMsg = h
	f.mu.Unlock()
}

func (f *Fake) SetConnectionLostHandler(h transport.ConnectionLostHandler) {
	f.mu.Lock()
	f.onLost = h
	f.mu.Unlock()
}

// Deliver injects an inbound message as if the broker published it.
func (f *Fake) Deliver(topic string, payload []byte) {
	f.mu.Lock()
	h := f.onMsg
	f.mu.Unlock()
	if h != nil {
		h(topic, payload)
	}
}

// LoseConnection simulates an abnormal connection loss.
func (f *Fake) LoseConnection(cause error) {
	f.mu.Lock()
	f.connected = false
	h := f.onLost
	f.mu.Unlock()
	if h != nil {
		h(cause)
	}
}

// Connected reports the fake's connection flag.
func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Published returns a copy of all recorded publishes.
func (f *Fake) Published() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Published(nil), f.published...)
}

// LastPublished returns the most recent publish, or ok=false.
func (f *Fake) LastPublished() (Published, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		return Published{}, false
	}
	return f.published[len(f.published)-1], true
}

// Subscriptions returns a copy of all recorded subscriptions.
func (f *Fake) Subscriptions() []Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Subscription(nil), f.subscriptions...)
}

// ConnectOptions returns the options of the i-th connect (0-based).
func (f *Fake) ConnectOptions(i int) (transport.ConnectOptions, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.connects) {
		return transport.ConnectOptions{}, false
	}
	return f.connects[i], true
}

// ConnectCount returns how many times Connect succeeded.
func (f *Fake) ConnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connects)
}

// LastWill returns the Will of the most recent connect, or nil.
func (f *Fake) LastWill() *transport.WillMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.connects) == 0 {
		return nil
	}
	return f.connects[len(f.connects)-1].Will
}
