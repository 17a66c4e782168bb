package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	nanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"

	"github.com/iotedgekit/go-sparkplugb/sperr"
)

// MQTT is the paho.golang-backed Transport. Each Connect builds a fresh
// autopaho connection manager so a new Last-Will can be armed per session;
// Disconnect (or a connection loss) tears it down.
type MQTT struct {
	serverURL *url.URL
	clientID  string
	log       *logrus.Logger

	mu     sync.Mutex
	cm     *autopaho.ConnectionManager
	cancel context.CancelFunc
	onMsg  MessageHandler
	onLost ConnectionLostHandler
}

// NewMQTT builds a transport for the given broker URL (tcp:// or ssl://).
// An empty clientID is replaced with a generated one.
func NewMQTT(brokerURL, clientID string, log *logrus.Logger) (*MQTT, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, sperr.Wrap(sperr.ConnectFailed, err, "parse broker URL %q", brokerURL)
	}
	if clientID == "" {
		id, err := nanoid.New()
		if err != nil {
			return nil, sperr.Wrap(sperr.ConnectFailed, err, "generate client id")
		}
		clientID = "go-sparkplugb-" + id
	}
	if log == nil {
		log = logrus.New()
	}
	return &MQTT{serverURL: u, clientID: clientID, log: log}, nil
}

// ClientID returns the effective MQTT client identifier.
func (t *MQTT) ClientID() string { return t.clientID }

func (t *MQTT) SetMessageHandler(h MessageHandler) {
	t.mu.Lock()
	t.onMsg = h
	t.mu.Unlock()
}

func (t *MQTT) SetConnectionLostHandler(h ConnectionLostHandler) {
	t.mu.Lock()
	t.onLost = h
	t.mu.Unlock()
}

func (t *MQTT) Connect(ctx context.Context, opts ConnectOptions) error {
	t.mu.Lock()
	if t.cm != nil {
		t.mu.Unlock()
		return sperr.New(sperr.ConnectFailed, "already connected")
	}

	// opts.CleanSession is not mapped: autopaho at this version always
	// connects with a clean MQTT 5 session (see ConnectOptions).
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	keepAlive := opts.KeepAlive
	if keepAlive == 0 {
		keepAlive = 60
	}

	cliCfg := autopaho.ClientConfig{
		BrokerUrls:        []*url.URL{t.serverURL},
		KeepAlive:         keepAlive,
		ConnectTimeout:    connectTimeout,
		ConnectRetryDelay: time.Second,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, c *paho.Connack) {
			t.log.WithField("server", t.serverURL.String()).Debugln("MQTT connection up")
		},
		OnConnectError: func(err error) {
			t.log.WithField("server", t.serverURL.String()).Debugf("MQTT connect attempt failed: %v", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: t.clientID,
			Router: paho.NewSingleHandlerRouter(func(p *paho.Publish) {
				t.dispatch(p.Topic, p.Payload)
			}),
			OnClientError: func(err error) {
				t.connectionLost(err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				t.connectionLost(fmt.Errorf("server disconnect, reason code %d", d.ReasonCode))
			},
		},
	}

	if opts.TLS != nil {
		tlsCfg, err := NewTLSConfig(opts.TLS)
		if err != nil {
			t.mu.Unlock()
			return sperr.Wrap(sperr.ConnectFailed, err, "TLS configuration")
		}
		cliCfg.TlsCfg = tlsCfg
	}
	if opts.Credentials != nil {
		cliCfg.SetUsernamePassword(opts.Credentials.Username, []byte(opts.Credentials.Password))
	}
	if opts.Will != nil {
		cliCfg.SetWillMessage(opts.Will.Topic, opts.Will.Payload, opts.Will.QoS, opts.Will.Retain)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	cm, err := autopaho.NewConnection(connCtx, cliCfg)
	if err != nil {
		cancel()
		t.mu.Unlock()
		return sperr.Wrap(sperr.ConnectFailed, err, "start connection")
	}
	t.cm = cm
	t.cancel = cancel
	t.mu.Unlock()

	awaitCtx, done := context.WithTimeout(ctx, connectTimeout)
	defer done()
	if err := cm.AwaitConnection(awaitCtx); err != nil {
		t.teardown()
		if errors.Is(err, context.DeadlineExceeded) {
			return sperr.Wrap(sperr.Timeout, err, "connect to %s", t.serverURL)
		}
		return sperr.Wrap(sperr.ConnectFailed, err, "connect to %s", t.serverURL)
	}
	return nil
}

func (t *MQTT) Publish(ctx context.Context, topicStr string, body []byte, qos byte, retain bool) error {
	t.mu.Lock()
	cm := t.cm
	t.mu.Unlock()
	if cm == nil {
		return sperr.New(sperr.NotConnected, "publish to %s", topicStr)
	}
	_, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topicStr,
		QoS:     qos,
		Retain:  retain,
		Payload: body,
	})
	if err != nil {
		return sperr.Wrap(sperr.PublishFailed, err, "publish to %s", topicStr)
	}
	return nil
}

func (t *MQTT) Subscribe(ctx context.Context, filter string, qos byte) error {
	t.mu.Lock()
	cm := t.cm
	t.mu.Unlock()
	if cm == nil {
		return sperr.New(sperr.NotConnected, "subscribe to %s", filter)
	}
	subCtx, done := context.WithTimeout(ctx, DefaultSubscribeTimeout)
	defer done()
	_, err := cm.Subscribe(subCtx, &paho.Subscribe{
		Subscriptions: map[string]paho.SubscribeOptions{
			filter: {QoS: qos},
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return sperr.Wrap(sperr.Timeout, err, "subscribe to %s", filter)
		}
		return sperr.Wrap(sperr.SubscribeFailed, err, "subscribe to %s", filter)
	}
	return nil
}

func (t *MQTT) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	cm := t.cm
	cancel := t.cancel
	t.cm = nil
	t.cancel = nil
	t.mu.Unlock()

	if cm == nil {
		return nil
	}
	defer cancel()

	discCtx, done := context.WithTimeout(ctx, DefaultDisconnectTimeout)
	defer done()
	if err := cm.Disconnect(discCtx); err != nil {
		return sperr.Wrap(sperr.DisconnectFailed, err, "disconnect from %s", t.serverURL)
	}
	return nil
}

func (t *MQTT) dispatch(topicStr string, body []byte) {
	t.mu.Lock()
	h := t.onMsg
	t.mu.Unlock()
	if h != nil {
		h(topicStr, body)
	}
}

// connectionLost tears down the connection manager so autopaho stops
// re-dialing with a stale Last-Will, then notifies the session.
func (t *MQTT) connectionLost(cause error) {
	go func() {
		t.teardown()
		t.mu.Lock()
		h := t.onLost
		t.mu.Unlock()
		if h != nil {
			h(cause)
		}
	}()
}

func (t *MQTT) teardown() {
	t.mu.Lock()
	cancel := t.cancel
	t.cm = nil
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
