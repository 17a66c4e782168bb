package edge

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iotedgekit/go-sparkplugb/internal/metrics"
	"github.com/iotedgekit/go-sparkplugb/payload"
	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/sperr"
	"github.com/iotedgekit/go-sparkplugb/topic"
	"github.com/iotedgekit/go-sparkplugb/transport"
)

// State is the edge-node session state.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Rebirthing
)

const seqMax = 256

// Node is an edge-node session. One mutex guards all mutable state; payload
// serialization and counter stamping happen under it, the transport calls
// outside it.
type Node struct {
	cfg Config
	log *logrus.Logger
	tr  transport.Transport

	mu        sync.Mutex
	state     State
	bdSeq     uint64
	seq       uint64
	birthSent bool
	// lastBirth and the death pair outlive the connect call; the transport
	// holds the death bytes for the broker's will slot.
	lastBirth    []byte
	deathTopic   string
	deathPayload []byte
	devices      map[string]*deviceState
	cmdCallback  CommandCallback

	saf *forwardBuffer
}

// NewNode builds an edge-node session. When tr is nil a paho transport is
// created from the config's broker URL and client id.
func NewNode(cfg Config, tr transport.Transport, log *logrus.Logger) (*Node, error) {
	if cfg.GroupID == "" || cfg.EdgeNodeID == "" {
		return nil, sperr.New(sperr.PreconditionViolated, "group id and edge node id are required")
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

	n := &Node{
		cfg:         cfg,
		log:         log,
		tr:          tr,
		state:       Disconnected,
		devices:     make(map[string]*deviceState),
		cmdCallback: cfg.CommandCallback,
	}
	if cfg.StoreAndForward {
		n.saf = newForwardBuffer(cfg.BufferTTL)
	}
	tr.SetMessageHandler(n.onMessage)
	tr.SetConnectionLostHandler(n.onConnectionLost)
	return n, nil
}

// State returns the current session state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// BdSeq returns the bdSeq of the current session.
func (n *Node) BdSeq() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bdSeq
}

// Seq returns the current value of the node's shared sequence counter. The
// counter advances even when a payload keeps a caller-chosen seq.
func (n *Node) Seq() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seq
}

// SetCommandCallback replaces the NCMD callback. The subscription itself is
// only established by Connect.
func (n *Node) SetCommandCallback(cb CommandCallback) {
	n.mu.Lock()
	n.cmdCallback = cb
	n.mu.Unlock()
}

// Connect establishes a new session: it advances bdSeq, arms the NDEATH
// Last-Will carrying it, connects the transport, and subscribes to this
// node's NCMD topic when a command callback is registered.
func (n *Node) Connect(ctx context.Context) error {
	n.mu.Lock()
	if n.state != Disconnected {
		n.mu.Unlock()
		return sperr.New(sperr.PreconditionViolated, "connect requires a disconnected session")
	}
	n.state = Connecting
	n.mu.Unlock()

	return n.connect(ctx)
}

// connect performs the shared connect path used by Connect and Rebirth. The
// caller has already moved the session out of Disconnected.
func (n *Node) connect(ctx context.Context) error {
	n.mu.Lock()
	n.bdSeq++
	death, err := payload.NewBuilder().AddBdSeqMetric(n.bdSeq).Build()
	if err != nil {
		n.state = Disconnected
		n.mu.Unlock()
		return err
	}
	n.deathPayload = death
	n.deathTopic = topic.NodeTopic(n.cfg.GroupID, topic.NDEATH, n.cfg.EdgeNodeID).String()

	opts := transport.ConnectOptions{
		CleanSession: n.cfg.CleanSession,
		KeepAlive:    n.cfg.KeepAlive,
		TLS:          n.cfg.TLS,
		Will: &transport.WillMessage{
			Topic:   n.deathTopic,
			Payload: n.deathPayload,
			QoS:     n.cfg.DeathQoS,
			Retain:  false,
		},
	}
	if n.cfg.Username != "" {
		opts.Credentials = &transport.Credentials{Username: n.cfg.Username, Password: n.cfg.Password}
	}
	hasCallback := n.cmdCallback != nil
	n.mu.Unlock()

	if err := n.tr.Connect(ctx, opts); err != nil {
		n.mu.Lock()
		n.state = Disconnected
		n.mu.Unlock()
		return err
	}

	if hasCallback {
		ncmd := topic.NodeTopic(n.cfg.GroupID, topic.NCMD, n.cfg.EdgeNodeID).String()
		if err := n.tr.Subscribe(ctx, ncmd, 1); err != nil {
			n.log.WithField("topic", ncmd).Errorf("NCMD subscription failed: %v", err)
			n.mu.Lock()
			n.state = Connected
			n.mu.Unlock()
			return err
		}
	}

	n.mu.Lock()
	n.state = Connected
	n.mu.Unlock()
	n.log.WithFields(logrus.Fields{
		"group": n.cfg.GroupID,
		"node":  n.cfg.EdgeNodeID,
		"bdSeq": n.BdSeq(),
	}).Infoln("Edge node session established")
	return nil
}

// PublishBirth publishes the NBIRTH certificate. The payload is forced to
// seq 0 and a bdSeq metric for the current session is inserted when absent;
// the serialized bytes are stashed for rebirth replay.
func (n *Node) PublishBirth(ctx context.Context, b *payload.Builder) error {
	n.mu.Lock()
	if n.state != Connected {
		n.mu.Unlock()
		return sperr.New(sperr.NotConnected, "publish NBIRTH")
	}

	p := b.Payload()
	if _, ok := payload.BdSeqOf(p); !ok {
		b.AddBdSeqMetric(n.bdSeq)
	}
	b.SetSeq(0)

	raw, err := b.Build()
	if err != nil {
		n.mu.Unlock()
		return err
	}
	t := topic.NodeTopic(n.cfg.GroupID, topic.NBIRTH, n.cfg.EdgeNodeID).String()
	qos := n.cfg.DataQoS
	n.mu.Unlock()

	if err := n.tr.Publish(ctx, t, raw, qos, false); err != nil {
		return err
	}

	n.mu.Lock()
	n.lastBirth = raw
	n.seq = 0
	n.birthSent = true
	n.mu.Unlock()
	metrics.PublishedMessages.WithLabelValues(string(topic.NBIRTH)).Inc()
	return nil
}

// PublishData publishes an NDATA payload, stamping the next shared sequence
// number unless the caller set one explicitly.
func (n *Node) PublishData(ctx context.Context, b *payload.Builder) error {
	return n.publishNodeScoped(ctx, topic.NDATA, b)
}

func (n *Node) publishNodeScoped(ctx context.Context, mt topic.MessageType, b *payload.Builder) error {
	n.mu.Lock()
	if n.state != Connected {
		n.mu.Unlock()
		return sperr.New(sperr.NotConnected, "publish %s", mt)
	}
	if !n.birthSent {
		n.mu.Unlock()
		return sperr.New(sperr.PreconditionViolated, "%s before NBIRTH", mt)
	}

	n.stampSeq(b)
	raw, err := b.Build()
	if err != nil {
		n.mu.Unlock()
		return err
	}
	t := topic.NodeTopic(n.cfg.GroupID, mt, n.cfg.EdgeNodeID).String()
	qos := n.cfg.DataQoS
	n.mu.Unlock()

	if err := n.tr.Publish(ctx, t, raw, qos, false); err != nil {
		return err
	}
	metrics.PublishedMessages.WithLabelValues(string(mt)).Inc()
	return nil
}

// stampSeq advances the shared node counter and stamps the payload, unless
// the caller chose a seq explicitly. Held under n.mu.
//
// Every message the node emits after NBIRTH — NDATA, DBIRTH, DDATA, DDEATH —
// occupies one slot of the same 0–255 sequence.
func (n *Node) stampSeq(b *payload.Builder) {
	n.seq = (n.seq + 1) % seqMax
	if !b.HasSeq() {
		b.SetSeq(n.seq)
	}
}

// PublishDeath publishes the stashed NDEATH for the current session and
// disconnects. Calling it on a disconnected session is a no-op.
func (n *Node) PublishDeath(ctx context.Context) error {
	n.mu.Lock()
	if n.state != Connected {
		n.mu.Unlock()
		return nil
	}
	t := n.deathTopic
	raw := n.deathPayload
	qos := n.cfg.DataQoS
	n.mu.Unlock()

	if err := n.tr.Publish(ctx, t, raw, qos, false); err != nil {
		return err
	}
	metrics.PublishedMessages.WithLabelValues(string(topic.NDEATH)).Inc()
	return n.Disconnect(ctx)
}

// Disconnect closes the transport gracefully, which lets the broker discard
// the armed Last-Will. The next Connect starts a new session.
func (n *Node) Disconnect(ctx context.Context) error {
	err := n.tr.Disconnect(ctx)
	n.mu.Lock()
	n.state = Disconnected
	n.birthSent = false
	n.mu.Unlock()
	return err
}

// Rebirth re-issues the birth certificate under a new session: the stashed
// NBIRTH is re-stamped with bdSeq+1 and seq 0, the transport reconnects so
// the Last-Will carries the new bdSeq, and the updated NBIRTH is replayed.
func (n *Node) Rebirth(ctx context.Context) error {
	n.mu.Lock()
	if n.state != Connected {
		n.mu.Unlock()
		return sperr.New(sperr.NotConnected, "rebirth")
	}
	if len(n.lastBirth) == 0 {
		n.mu.Unlock()
		return sperr.New(sperr.PreconditionViolated, "rebirth with no stored birth")
	}

	var birth sparkplugb.Payload
	if err := sparkplugb.Unmarshal(n.lastBirth, &birth); err != nil {
		n.mu.Unlock()
		return sperr.Wrap(sperr.PayloadDecodeFailed, err, "stored birth payload")
	}

	newBdSeq := n.bdSeq + 1
	for _, m := range birth.Metrics {
		if m.GetName() == payload.BdSeqMetricName {
			m.Value = &sparkplugb.Payload_Metric_LongValue{LongValue: newBdSeq}
			break
		}
	}
	zero := uint64(0)
	birth.Seq = &zero

	raw, err := sparkplugb.Marshal(&birth)
	if err != nil {
		n.mu.Unlock()
		return sperr.Wrap(sperr.PayloadDecodeFailed, err, "re-encode birth payload")
	}
	n.lastBirth = raw
	n.state = Rebirthing
	t := topic.NodeTopic(n.cfg.GroupID, topic.NBIRTH, n.cfg.EdgeNodeID).String()
	qos := n.cfg.DataQoS
	n.mu.Unlock()

	// Reconnect so the broker's will slot carries the new bdSeq. connect
	// advances n.bdSeq to the value stamped into the payload above.
	if err := n.tr.Disconnect(ctx); err != nil {
		n.log.Warnf("Disconnect during rebirth: %v", err)
	}
	if err := n.connect(ctx); err != nil {
		return err
	}
	if err := n.tr.Publish(ctx, t, raw, qos, false); err != nil {
		return err
	}

	n.mu.Lock()
	n.seq = 0
	n.birthSent = true
	n.mu.Unlock()
	metrics.PublishedMessages.WithLabelValues(string(topic.NBIRTH)).Inc()
	return nil
}

// Close sends an orderly NDEATH when the session is still connected and
// releases the transport.
func (n *Node) Close(ctx context.Context) error {
	if n.saf != nil {
		defer n.saf.stop()
	}
	n.mu.Lock()
	connected := n.state == Connected
	n.mu.Unlock()
	if connected {
		return n.PublishDeath(ctx)
	}
	return nil
}

// onConnectionLost runs on a transport goroutine when the broker connection
// drops abnormally; the broker publishes the armed NDEATH on our behalf.
func (n *Node) onConnectionLost(cause error) {
	n.mu.Lock()
	n.state = Disconnected
	n.birthSent = false
	n.mu.Unlock()
	n.log.WithFields(logrus.Fields{
		"group": n.cfg.GroupID,
		"node":  n.cfg.EdgeNodeID,
	}).Warnf("Connection lost: %v", cause)
}

// onMessage handles the NCMD subscription. The callback is snapshotted
// under the mutex and invoked outside it, so a handler may schedule a
// Rebirth without deadlocking.
func (n *Node) onMessage(topicStr string, body []byte) {
	t, err := topic.Parse(topicStr)
	if err != nil {
		n.log.Debugf("Ignoring non-Sparkplug topic %q", topicStr)
		return
	}
	if t.MessageType != topic.NCMD || t.EdgeNodeID != n.cfg.EdgeNodeID || t.GroupID != n.cfg.GroupID {
		return
	}

	var p sparkplugb.Payload
	if err := sparkplugb.Unmarshal(body, &p); err != nil {
		n.log.Errorf("Failed to decode NCMD payload: %v", err)
		metrics.DecodeFailures.Inc()
		return
	}
	metrics.ReceivedMessages.WithLabelValues(string(topic.NCMD)).Inc()

	n.mu.Lock()
	cb := n.cmdCallback
	n.mu.Unlock()
	if cb != nil {
		cb(t, &p)
	}
}
