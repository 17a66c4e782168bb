// Package transport abstracts the MQTT client underneath the Sparkplug
// sessions: connect with a Last-Will, publish, subscribe, disconnect, and
// the two inbound callbacks. The paho.golang implementation lives in this
// package; tests substitute the in-memory fake from transporttest.
package transport

import (
	"context"
	"time"
)

// Blocking-operation bounds. A Connect that times out leaves the transport
// disconnected, and Disconnect releases the connection even when it times
// out. A Subscribe that times out only returns the error; the connection
// stays up.
const (
	DefaultConnectTimeout    = 5 * time.Second
	DefaultSubscribeTimeout  = 5 * time.Second
	DefaultDisconnectTimeout = 10 * time.Second
)

// WillMessage is the LWT the broker publishes on abnormal connection loss.
type WillMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// Credentials are the optional MQTT username/password pair.
type Credentials struct {
	Username string
	Password string
}

// TLSOptions points at the PEM material for an ssl:// connection.
type TLSOptions struct {
	// TrustStore is the path of the CA bundle used to verify the broker.
	TrustStore string
	// KeyStore and PrivateKey are the client certificate pair for mutual TLS.
	KeyStore           string
	PrivateKey         string
	PrivateKeyPassword string
	// EnabledCipherSuites restricts the TLS 1.2 cipher suites when non-empty.
	EnabledCipherSuites []string
	// EnableServerCertAuth verifies the broker certificate when true.
	EnableServerCertAuth bool
}

// ConnectOptions parameterize one connection attempt.
type ConnectOptions struct {
	// CleanSession is accepted for the config surface, but the pinned
	// autopaho version has no clean-start knob: every connection begins a
	// clean MQTT 5 session regardless.
	CleanSession   bool
	KeepAlive      uint16
	Credentials    *Credentials
	TLS            *TLSOptions
	Will           *WillMessage
	ConnectTimeout time.Duration
}

// MessageHandler receives inbound messages on a transport-owned goroutine.
type MessageHandler func(topic string, payload []byte)

// ConnectionLostHandler is invoked when an established connection drops.
type ConnectionLostHandler func(err error)

// Transport is the MQTT client surface the Sparkplug sessions consume.
// Connect, Subscribe and Disconnect block until the broker answers or the
// configured timeout elapses; Publish only enqueues.
type Transport interface {
	Connect(ctx context.Context, opts ConnectOptions) error
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error
	Subscribe(ctx context.Context, filter string, qos byte) error
	Disconnect(ctx context.Context) error
	SetMessageHandler(h MessageHandler)
	SetConnectionLostHandler(h ConnectionLostHandler)
}
