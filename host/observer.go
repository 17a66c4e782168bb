package host

import (
	"fmt"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/iotedgekit/go-sparkplugb/internal/metrics"
	"github.com/iotedgekit/go-sparkplugb/payload"
	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/topic"
)

const seqMax = 256

// lastSeqSentinel is the last_seq of a node that has not sent an NBIRTH yet;
// the expected next value after it is 0. NBIRTH itself is checked against
// seq 0 directly and resets last_seq to 0.
const lastSeqSentinel = seqMax - 1

// ObserverConfig parameterizes a standalone observer.
type ObserverConfig struct {
	ValidateSequence bool
	MessageCallback  MessageCallback
	CommandCallback  MessageCallback
	StateCallback    StateCallback
	LogCallback      LogCallback
}

// Observer consumes raw (topic, bytes) tuples, validates the Sparkplug
// session rules, and tracks per-node and per-device state including the
// alias tables captured from birth certificates.
//
// Validation never drops a message: violations are logged through the log
// callback (or logrus) and the message still reaches the callbacks. A
// sequence gap still updates the tracked state; data that arrives before the
// birth it requires is logged and leaves the sequence and device state as
// they were.
type Observer struct {
	cfg ObserverConfig
	log *logrus.Logger

	mu    sync.Mutex
	nodes map[nodeKey]*nodeState
}

type nodeKey struct {
	group string
	node  string
}

type nodeState struct {
	online         bool
	lastSeq        uint64
	bdSeq          uint64
	birthTimestamp uint64
	birthReceived  bool
	devices        map[string]*deviceState
	aliases        map[uint64]string
}

type deviceState struct {
	online        bool
	lastSeq       uint64
	birthReceived bool
	aliases       map[uint64]string
}

// NodeSnapshot is a copy of one node's tracked state.
type NodeSnapshot struct {
	Online         bool
	LastSeq        uint64
	BdSeq          uint64
	BirthTimestamp uint64
	BirthReceived  bool
	DeviceIDs      []string
}

// DeviceSnapshot is a copy of one device's tracked state.
type DeviceSnapshot struct {
	Online        bool
	LastSeq       uint64
	BirthReceived bool
}

// NewObserver builds an observer with no subscriptions of its own; feed it
// through HandleMessage.
func NewObserver(cfg ObserverConfig, log *logrus.Logger) *Observer {
	if log == nil {
		log = logrus.New()
	}
	return &Observer{
		cfg:   cfg,
		log:   log,
		nodes: make(map[nodeKey]*nodeState),
	}
}

// HandleMessage dispatches one inbound message. Safe for concurrent use.
func (o *Observer) HandleMessage(topicStr string, body []byte) {
	// STATE is JSON under its own topic tree; never run the Sparkplug
	// payload parser over it.
	if strings.HasPrefix(topicStr, "STATE/") {
		o.handleState(topicStr, body)
		return
	}

	t, err := topic.Parse(topicStr)
	if err != nil {
		o.logf(LogDebug, "ignoring non-Sparkplug topic %q", topicStr)
		return
	}

	var p sparkplugb.Payload
	if err := sparkplugb.Unmarshal(body, &p); err != nil {
		o.logf(LogError, "failed to decode payload on %s: %v", topicStr, err)
		metrics.DecodeFailures.Inc()
		return
	}
	metrics.ReceivedMessages.WithLabelValues(string(t.MessageType)).Inc()

	o.mu.Lock()
	o.validate(t, &p)
	o.mu.Unlock()

	if t.MessageType == topic.NCMD || t.MessageType == topic.DCMD {
		if cb := o.cfg.CommandCallback; cb != nil {
			cb(t, &p)
		}
	}
	if cb := o.cfg.MessageCallback; cb != nil {
		cb(t, &p)
	}
}

func (o *Observer) handleState(topicStr string, body []byte) {
	t, err := topic.Parse(topicStr)
	if err != nil {
		o.logf(LogWarn, "malformed STATE topic %q", topicStr)
		return
	}
	metrics.ReceivedMessages.WithLabelValues(string(topic.STATE)).Inc()

	var msg stateMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		o.logf(LogWarn, "malformed STATE payload on %q: %v", topicStr, err)
		return
	}
	if cb := o.cfg.StateCallback; cb != nil {
		cb(t.EdgeNodeID, msg.Online, msg.Timestamp, body)
	}
}

// node returns the lazily created state entry. Held under o.mu.
func (o *Observer) node(t topic.Topic) *nodeState {
	key := nodeKey{group: t.GroupID, node: t.EdgeNodeID}
	s, ok := o.nodes[key]
	if !ok {
		s = &nodeState{
			lastSeq: lastSeqSentinel,
			devices: make(map[string]*deviceState),
			aliases: make(map[uint64]string),
		}
		o.nodes[key] = s
	}
	return s
}

// validate applies the Sparkplug session rules and updates tracked state.
// Sequence numbers are validated at node scope: every metric-bearing
// message an edge node emits occupies one slot of its 0–255 sequence.
func (o *Observer) validate(t topic.Topic, p *sparkplugb.Payload) {
	if !o.cfg.ValidateSequence {
		return
	}
	state := o.node(t)
	nodeID := t.NodeKey()

	switch t.MessageType {
	case topic.NBIRTH:
		if p.HasSeq() && p.GetSeq() != 0 {
			o.warnf("NBIRTH for %s has invalid seq: %d (expected 0)", nodeID, p.GetSeq())
		}

		bdSeq, ok := payload.BdSeqOf(p)
		if !ok {
			o.warnf("NBIRTH for %s missing required bdSeq metric", nodeID)
		}
		state.bdSeq = bdSeq
		state.lastSeq = 0
		state.online = true
		state.birthReceived = true
		state.birthTimestamp = p.GetTimestamp()
		state.aliases = aliasTable(p.Metrics)

	case topic.NDEATH:
		bdSeq, _ := payload.BdSeqOf(p)
		if state.birthReceived && bdSeq != state.bdSeq {
			o.warnf("NDEATH bdSeq mismatch for %s (NDEATH: %d, NBIRTH: %d)", nodeID, bdSeq, state.bdSeq)
		}
		state.online = false

	case topic.NDATA:
		if !state.birthReceived {
			o.warnf("received NDATA for %s before NBIRTH", nodeID)
			return
		}
		o.checkSeq(state, nodeID, p)

	case topic.DBIRTH:
		if !state.birthReceived {
			o.warnf("received DBIRTH for device on %s before node NBIRTH", nodeID)
			return
		}
		o.checkSeq(state, nodeID, p)

		dev, ok := state.devices[t.DeviceID]
		if !ok {
			dev = &deviceState{}
			state.devices[t.DeviceID] = dev
		}
		dev.online = true
		dev.birthReceived = true
		dev.lastSeq = p.GetSeq()
		dev.aliases = aliasTable(p.Metrics)

	case topic.DDATA:
		if !state.birthReceived {
			o.warnf("received DDATA for device %q on %s before node NBIRTH", t.DeviceID, nodeID)
			return
		}
		dev, ok := state.devices[t.DeviceID]
		if !ok || !dev.birthReceived {
			o.warnf("received DDATA for device %q on %s before DBIRTH", t.DeviceID, nodeID)
			return
		}
		o.checkSeq(state, nodeID, p)
		if p.HasSeq() {
			dev.lastSeq = p.GetSeq()
		}

	case topic.DDEATH:
		o.checkSeq(state, nodeID, p)
		if dev, ok := state.devices[t.DeviceID]; ok {
			dev.online = false
		}

	case topic.NCMD, topic.DCMD, topic.STATE:
		// No validation beyond topic shape.
	}
}

// checkSeq verifies the node-scope expected-next test. Gaps are warnings,
// not rejections: the counter is advisory and QoS 0 traffic may drop.
func (o *Observer) checkSeq(state *nodeState, nodeID string, p *sparkplugb.Payload) {
	if !p.HasSeq() {
		return
	}
	seq := p.GetSeq()
	expected := (state.lastSeq + 1) % seqMax
	if seq != expected {
		o.warnf("sequence number gap for %s (got %d, expected %d)", nodeID, seq, expected)
	}
	state.lastSeq = seq
}

// aliasTable extracts alias → name from metrics declaring both.
func aliasTable(ms []*sparkplugb.Payload_Metric) map[uint64]string {
	table := make(map[uint64]string)
	for _, m := range ms {
		if m.HasAlias() && m.HasName() {
			table[m.GetAlias()] = m.GetName()
		}
	}
	return table
}

// GetMetricName resolves an alias against the node's (deviceID empty) or
// device's alias table captured from the latest birth.
func (o *Observer) GetMetricName(group, edgeNodeID, deviceID string, alias uint64) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	state, ok := o.nodes[nodeKey{group: group, node: edgeNodeID}]
	if !ok {
		return "", false
	}
	if deviceID != "" {
		dev, ok := state.devices[deviceID]
		if !ok {
			return "", false
		}
		name, ok := dev.aliases[alias]
		return name, ok
	}
	name, ok := state.aliases[alias]
	return name, ok
}

// NodeState returns a snapshot of one node's tracked state.
func (o *Observer) NodeState(group, edgeNodeID string) (NodeSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	state, ok := o.nodes[nodeKey{group: group, node: edgeNodeID}]
	if !ok {
		return NodeSnapshot{}, false
	}
	snap := NodeSnapshot{
		Online:         state.online,
		LastSeq:        state.lastSeq,
		BdSeq:          state.bdSeq,
		BirthTimestamp: state.birthTimestamp,
		BirthReceived:  state.birthReceived,
	}
	for id := range state.devices {
		snap.DeviceIDs = append(snap.DeviceIDs, id)
	}
	return snap, true
}

// DeviceState returns a snapshot of one device's tracked state.
func (o *Observer) DeviceState(group, edgeNodeID, deviceID string) (DeviceSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	state, ok := o.nodes[nodeKey{group: group, node: edgeNodeID}]
	if !ok {
		return DeviceSnapshot{}, false
	}
	dev, ok := state.devices[deviceID]
	if !ok {
		return DeviceSnapshot{}, false
	}
	return DeviceSnapshot{
		Online:        dev.online,
		LastSeq:       dev.lastSeq,
		BirthReceived: dev.birthReceived,
	}, true
}

// Forget drops the tracked state of one node. State is otherwise only
// released at process shutdown.
func (o *Observer) Forget(group, edgeNodeID string) {
	o.mu.Lock()
	delete(o.nodes, nodeKey{group: group, node: edgeNodeID})
	o.mu.Unlock()
}

func (o *Observer) warnf(format string, args ...any) {
	metrics.SequenceWarnings.Inc()
	o.logf(LogWarn, format, args...)
}

func (o *Observer) logf(level LogLevel, format string, args ...any) {
	if cb := o.cfg.LogCallback; cb != nil {
		cb(level, fmt.Sprintf(format, args...))
		return
	}
	switch level {
	case LogDebug:
		o.log.Debugf(format, args...)
	case LogWarn:
		o.log.Warnf(format, args...)
	case LogError:
		o.log.Errorf(format, args...)
	default:
		o.log.Infof(format, args...)
	}
}
