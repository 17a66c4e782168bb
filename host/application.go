package host

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/iotedgekit/go-sparkplugb/internal/metrics"
	"github.com/iotedgekit/go-sparkplugb/payload"
	"github.com/iotedgekit/go-sparkplugb/sperr"
	"github.com/iotedgekit/go-sparkplugb/topic"
	"github.com/iotedgekit/go-sparkplugb/transport"
)

// stateMessage is the JSON body of a STATE message. Field order matters:
// the wire form is exactly {"online":<bool>,"timestamp":<uint64>}.
type stateMessage struct {
	Online    bool   `json:"online"`
	Timestamp uint64 `json:"timestamp"`
}

// Application is a host application session. It publishes STATE liveness
// and NCMD/DCMD commands, and feeds its Observer with everything the
// subscriptions deliver.
//
// There is no Last-Will: a host must publish the STATE death itself before
// disconnecting for late joiners to see it offline.
type Application struct {
	cfg Config
	log *logrus.Logger
	tr  transport.Transport
	obs *Observer

	mu        sync.Mutex
	connected bool
}

// NewApplication builds a host session. When tr is nil a paho transport is
// created from the config's broker URL and client id.
func NewApplication(cfg Config, tr transport.Transport, log *logrus.Logger) (*Application, error) {
	if cfg.HostID == "" {
		return nil, sperr.New(sperr.PreconditionViolated, "host id is required")
	}
	cfg.withDefaults()
	if log == nil {
		log = logrus.New()
	}
	if tr == nil {
		var err error
		tr, err = transport.NewMQTT(cfg.BrokerURL, cfg.ClientID, log)
		if err != nil {
			return nil, err
		}
	}

	a := &Application{
		cfg: cfg,
		log: log,
		tr:  tr,
		obs: NewObserver(ObserverConfig{
			ValidateSequence: cfg.ValidateSequence,
			MessageCallback:  cfg.MessageCallback,
			CommandCallback:  cfg.CommandCallback,
			StateCallback:    cfg.StateCallback,
			LogCallback:      cfg.LogCallback,
		}, log),
	}
	tr.SetMessageHandler(a.obs.HandleMessage)
	tr.SetConnectionLostHandler(func(cause error) {
		a.mu.Lock()
		a.connected = false
		a.mu.Unlock()
		log.Warnf("Host connection lost: %v", cause)
	})
	return a, nil
}

// Observer returns the state-tracking consumer fed by this session.
func (a *Application) Observer() *Observer { return a.obs }

// Connect establishes the MQTT session. No message is published
// automatically; call PublishStateBirth once subscriptions are in place.
func (a *Application) Connect(ctx context.Context) error {
	opts := transport.ConnectOptions{
		CleanSession: a.cfg.CleanSession,
		KeepAlive:    a.cfg.KeepAlive,
		TLS:          a.cfg.TLS,
	}
	if a.cfg.Username != "" {
		opts.Credentials = &transport.Credentials{Username: a.cfg.Username, Password: a.cfg.Password}
	}
	if err := a.tr.Connect(ctx, opts); err != nil {
		return err
	}
	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()
	a.log.WithField("host", a.cfg.HostID).Infoln("Host application session established")
	return nil
}

// Disconnect closes the transport gracefully.
func (a *Application) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	a.connected = false
	a.mu.Unlock()
	return a.tr.Disconnect(ctx)
}

// Connected reports the session's connection flag.
func (a *Application) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// PublishStateBirth publishes {"online":true,"timestamp":ts} retained at
// QoS 1 on STATE/<host_id>.
func (a *Application) PublishStateBirth(ctx context.Context, timestamp uint64) error {
	return a.publishState(ctx, true, timestamp)
}

// PublishStateDeath publishes the retained offline STATE so late joiners
// see the host is gone.
func (a *Application) PublishStateDeath(ctx context.Context, timestamp uint64) error {
	return a.publishState(ctx, false, timestamp)
}

func (a *Application) publishState(ctx context.Context, online bool, timestamp uint64) error {
	if !a.Connected() {
		return sperr.New(sperr.NotConnected, "publish STATE")
	}
	body, err := json.Marshal(stateMessage{Online: online, Timestamp: timestamp})
	if err != nil {
		return sperr.Wrap(sperr.PublishFailed, err, "encode STATE")
	}
	t := topic.StateTopic(a.cfg.HostID).String()
	if err := a.tr.Publish(ctx, t, body, 1, true); err != nil {
		return err
	}
	metrics.PublishedMessages.WithLabelValues(string(topic.STATE)).Inc()
	return nil
}

// PublishNodeCommand publishes an NCMD to the target edge node,
// non-retained at the configured QoS.
func (a *Application) PublishNodeCommand(ctx context.Context, group, targetEdgeNode string, b *payload.Builder) error {
	if !a.Connected() {
		return sperr.New(sperr.NotConnected, "publish NCMD")
	}
	raw, err := b.Build()
	if err != nil {
		return err
	}
	t := topic.NodeTopic(group, topic.NCMD, targetEdgeNode).String()
	if err := a.tr.Publish(ctx, t, raw, a.cfg.QoS, false); err != nil {
		return err
	}
	metrics.PublishedMessages.WithLabelValues(string(topic.NCMD)).Inc()
	return nil
}

// PublishDeviceCommand publishes a DCMD to the target device.
func (a *Application) PublishDeviceCommand(ctx context.Context, group, targetEdgeNode, targetDevice string, b *payload.Builder) error {
	if !a.Connected() {
		return sperr.New(sperr.NotConnected, "publish DCMD")
	}
	raw, err := b.Build()
	if err != nil {
		return err
	}
	t := topic.DeviceTopic(group, topic.DCMD, targetEdgeNode, targetDevice).String()
	if err := a.tr.Publish(ctx, t, raw, a.cfg.QoS, false); err != nil {
		return err
	}
	metrics.PublishedMessages.WithLabelValues(string(topic.DCMD)).Inc()
	return nil
}

// SubscribeAll subscribes to every Sparkplug message of one group.
func (a *Application) SubscribeAll(ctx context.Context, group string) error {
	return a.tr.Subscribe(ctx, topic.SubscribeAll(group), a.cfg.QoS)
}

// SubscribeAllGroups subscribes to the whole spBv1.0 namespace.
func (a *Application) SubscribeAllGroups(ctx context.Context) error {
	return a.tr.Subscribe(ctx, topic.SubscribeAllGroups(), a.cfg.QoS)
}

// SubscribeGroup adds another group on the same connection.
func (a *Application) SubscribeGroup(ctx context.Context, group string) error {
	return a.tr.Subscribe(ctx, topic.SubscribeAll(group), a.cfg.QoS)
}

// SubscribeNode subscribes to all message types of a single edge node.
func (a *Application) SubscribeNode(ctx context.Context, group, edgeNodeID string) error {
	return a.tr.Subscribe(ctx, topic.SubscribeNode(group, edgeNodeID), a.cfg.QoS)
}

// SubscribeState subscribes to another host application's STATE topic.
func (a *Application) SubscribeState(ctx context.Context, hostID string) error {
	return a.tr.Subscribe(ctx, topic.SubscribeState(hostID), a.cfg.QoS)
}
