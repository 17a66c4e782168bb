package host

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotedgekit/go-sparkplugb/payload"
	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/topic"
)

// warnings collects observer log output for assertions.
type warnings struct {
	mu   sync.Mutex
	msgs []string
}

func (w *warnings) callback(level LogLevel, msg string) {
	if level != LogWarn {
		return
	}
	w.mu.Lock()
	w.msgs = append(w.msgs, msg)
	w.mu.Unlock()
}

func (w *warnings) list() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.msgs...)
}

type recorded struct {
	topic   topic.Topic
	payload *sparkplugb.Payload
}

func newTestObserver(t *testing.T) (*Observer, *warnings, *[]recorded) {
	t.Helper()
	var msgs []recorded
	w := &warnings{}
	obs := NewObserver(ObserverConfig{
		ValidateSequence: true,
		LogCallback:      w.callback,
		MessageCallback: func(tp topic.Topic, p *sparkplugb.Payload) {
			msgs = append(msgs, recorded{topic: tp, payload: p})
		},
	}, testLogger())
	return obs, w, &msgs
}

func build(t *testing.T, b *payload.Builder) []byte {
	t.Helper()
	raw, err := b.Build()
	require.NoError(t, err)
	return raw
}

func birthBytes(t *testing.T, bdSeq uint64) []byte {
	b := payload.NewBuilder().
		SetTimestamp(1700000000000).
		AddMetricWithAlias("Temperature", 1, 20.5).
		AddBdSeqMetric(bdSeq)
	b.SetSeq(0)
	return build(t, b)
}

func dataBytes(t *testing.T, seq uint64, alias uint64, value float64) []byte {
	b := payload.NewBuilder().AddMetricByAlias(alias, value)
	b.SetSeq(seq)
	return build(t, b)
}

// Scenario 1 and 2: birth establishes the alias table and seq tracking,
// alias-only data resolves through it.
func TestBirthAndAliasResolution(t *testing.T) {
	obs, w, msgs := newTestObserver(t)

	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", birthBytes(t, 1))

	state, ok := obs.NodeState("Energy", "Gateway01")
	require.True(t, ok)
	assert.True(t, state.Online)
	assert.True(t, state.BirthReceived)
	assert.Equal(t, uint64(1), state.BdSeq)
	assert.Equal(t, uint64(0), state.LastSeq)
	assert.Equal(t, uint64(1700000000000), state.BirthTimestamp)

	obs.HandleMessage("spBv1.0/Energy/NDATA/Gateway01", dataBytes(t, 1, 1, 21.0))

	state, _ = obs.NodeState("Energy", "Gateway01")
	assert.Equal(t, uint64(1), state.LastSeq)

	name, ok := obs.GetMetricName("Energy", "Gateway01", "", 1)
	require.True(t, ok)
	assert.Equal(t, "Temperature", name)

	_, ok = obs.GetMetricName("Energy", "Gateway01", "", 99)
	assert.False(t, ok)

	assert.Empty(t, w.list())

	require.Len(t, *msgs, 2)
	assert.Equal(t, topic.NBIRTH, (*msgs)[0].topic.MessageType)
	assert.Equal(t, topic.NDATA, (*msgs)[1].topic.MessageType)
	data := (*msgs)[1].payload.Metrics[0]
	assert.False(t, data.HasName())
	assert.Equal(t, uint64(1), data.GetAlias())
	assert.Equal(t, 21.0, data.GetDoubleValue())
}

// Scenario 3: last_seq walks 0→1→…→255→0 with no warnings.
func TestSequenceWrap(t *testing.T) {
	obs, w, _ := newTestObserver(t)
	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", birthBytes(t, 1))

	for i := 1; i <= 256; i++ {
		obs.HandleMessage("spBv1.0/Energy/NDATA/Gateway01",
			dataBytes(t, uint64(i%256), 1, 21.0))
	}

	state, _ := obs.NodeState("Energy", "Gateway01")
	assert.Equal(t, uint64(0), state.LastSeq)
	assert.Empty(t, w.list())
}

func TestSequenceGapWarning(t *testing.T) {
	obs, w, _ := newTestObserver(t)
	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", birthBytes(t, 1))

	obs.HandleMessage("spBv1.0/Energy/NDATA/Gateway01", dataBytes(t, 5, 1, 21.0))

	list := w.list()
	require.Len(t, list, 1)
	assert.Contains(t, list[0], "sequence number gap")
	assert.Contains(t, list[0], "got 5, expected 1")

	// last_seq resynchronizes on the observed value.
	state, _ := obs.NodeState("Energy", "Gateway01")
	assert.Equal(t, uint64(5), state.LastSeq)
	obs.HandleMessage("spBv1.0/Energy/NDATA/Gateway01", dataBytes(t, 6, 1, 21.5))
	assert.Len(t, w.list(), 1)
}

func TestBirthSeqViolationWarns(t *testing.T) {
	obs, w, _ := newTestObserver(t)

	b := payload.NewBuilder().AddBdSeqMetric(1)
	b.SetSeq(3)
	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", build(t, b))

	list := w.list()
	require.Len(t, list, 1)
	assert.Contains(t, list[0], "invalid seq")

	// State still updates: validation never drops.
	state, ok := obs.NodeState("Energy", "Gateway01")
	require.True(t, ok)
	assert.True(t, state.Online)
}

func TestBirthMissingBdSeqWarns(t *testing.T) {
	obs, w, _ := newTestObserver(t)

	b := payload.NewBuilder().AddMetric("Temperature", 20.5)
	b.SetSeq(0)
	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", build(t, b))

	list := w.list()
	require.Len(t, list, 1)
	assert.Contains(t, list[0], "missing required bdSeq")
}

// Scenario 4: the LWT-delivered NDEATH pairs with its birth through bdSeq;
// a mismatch warns, a fresh NBIRTH re-onlines with the higher bdSeq.
func TestDeathAndRebirth(t *testing.T) {
	obs, w, _ := newTestObserver(t)
	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", birthBytes(t, 1))

	death := build(t, payload.NewBuilder().AddBdSeqMetric(1))
	obs.HandleMessage("spBv1.0/Energy/NDEATH/Gateway01", death)

	state, _ := obs.NodeState("Energy", "Gateway01")
	assert.False(t, state.Online)
	assert.Empty(t, w.list())

	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", birthBytes(t, 2))
	state, _ = obs.NodeState("Energy", "Gateway01")
	assert.True(t, state.Online)
	assert.Equal(t, uint64(2), state.BdSeq)
	assert.Equal(t, uint64(0), state.LastSeq)
}

func TestDeathBdSeqMismatchWarns(t *testing.T) {
	obs, w, _ := newTestObserver(t)
	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", birthBytes(t, 2))

	stale := build(t, payload.NewBuilder().AddBdSeqMetric(1))
	obs.HandleMessage("spBv1.0/Energy/NDEATH/Gateway01", stale)

	list := w.list()
	require.Len(t, list, 1)
	assert.Contains(t, list[0], "bdSeq mismatch")

	state, _ := obs.NodeState("Energy", "Gateway01")
	assert.False(t, state.Online)
}

func TestDataBeforeBirthWarns(t *testing.T) {
	obs, w, _ := newTestObserver(t)
	obs.HandleMessage("spBv1.0/Energy/NDATA/Gateway01", dataBytes(t, 1, 1, 21.0))

	list := w.list()
	require.Len(t, list, 1)
	assert.Contains(t, list[0], "before NBIRTH")
}

func TestDeviceTracking(t *testing.T) {
	obs, w, _ := newTestObserver(t)
	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", birthBytes(t, 1))

	// DBIRTH consumes the next slot of the node sequence.
	db := payload.NewBuilder().AddMetricWithAlias("Flow", 7, 0.5)
	db.SetSeq(1)
	obs.HandleMessage("spBv1.0/Energy/DBIRTH/Gateway01/pump", build(t, db))

	dev, ok := obs.DeviceState("Energy", "Gateway01", "pump")
	require.True(t, ok)
	assert.True(t, dev.Online)
	assert.True(t, dev.BirthReceived)

	name, ok := obs.GetMetricName("Energy", "Gateway01", "pump", 7)
	require.True(t, ok)
	assert.Equal(t, "Flow", name)

	// The node table does not leak device aliases.
	_, ok = obs.GetMetricName("Energy", "Gateway01", "", 7)
	assert.False(t, ok)

	obs.HandleMessage("spBv1.0/Energy/DDATA/Gateway01/pump", dataBytes(t, 2, 7, 0.7))
	dev, _ = obs.DeviceState("Energy", "Gateway01", "pump")
	assert.Equal(t, uint64(2), dev.LastSeq)

	dd := payload.NewBuilder()
	dd.SetSeq(3)
	obs.HandleMessage("spBv1.0/Energy/DDEATH/Gateway01/pump", build(t, dd))
	dev, _ = obs.DeviceState("Energy", "Gateway01", "pump")
	assert.False(t, dev.Online)

	state, _ := obs.NodeState("Energy", "Gateway01")
	assert.Equal(t, uint64(3), state.LastSeq)
	assert.Equal(t, []string{"pump"}, state.DeviceIDs)
	assert.Empty(t, w.list())
}

func TestDeviceDataBeforeDeviceBirthWarns(t *testing.T) {
	obs, w, _ := newTestObserver(t)
	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", birthBytes(t, 1))

	obs.HandleMessage("spBv1.0/Energy/DDATA/Gateway01/pump", dataBytes(t, 1, 7, 0.7))

	list := w.list()
	require.Len(t, list, 1)
	assert.Contains(t, list[0], "before DBIRTH")
}

func TestCommandDispatch(t *testing.T) {
	var commands []topic.Topic
	obs := NewObserver(ObserverConfig{
		ValidateSequence: true,
		CommandCallback: func(tp topic.Topic, p *sparkplugb.Payload) {
			commands = append(commands, tp)
		},
	}, testLogger())

	cmd := build(t, payload.NewBuilder().AddMetric(payload.NodeControlRebirth, true))
	obs.HandleMessage("spBv1.0/Energy/NCMD/Gateway01", cmd)
	obs.HandleMessage("spBv1.0/Energy/DCMD/Gateway01/pump", cmd)
	obs.HandleMessage("spBv1.0/Energy/NDATA/Gateway01", dataBytes(t, 1, 1, 21.0))

	require.Len(t, commands, 2)
	assert.Equal(t, topic.NCMD, commands[0].MessageType)
	assert.Equal(t, topic.DCMD, commands[1].MessageType)
}

func TestUndecodablePayloadDropped(t *testing.T) {
	obs, _, msgs := newTestObserver(t)
	obs.HandleMessage("spBv1.0/Energy/NDATA/Gateway01", []byte{0xff, 0xff, 0xff})
	assert.Empty(t, *msgs)
}

func TestNonSparkplugTopicIgnored(t *testing.T) {
	obs, w, msgs := newTestObserver(t)
	obs.HandleMessage("sensors/temperature", []byte("21.0"))
	assert.Empty(t, *msgs)
	assert.Empty(t, w.list())
}

func TestStateBypassesPayloadParser(t *testing.T) {
	var states []string
	obs := NewObserver(ObserverConfig{
		ValidateSequence: true,
		StateCallback: func(hostID string, online bool, ts uint64, _ []byte) {
			states = append(states, hostID)
		},
		MessageCallback: func(tp topic.Topic, p *sparkplugb.Payload) {
			t.Fatal("STATE must not reach the general callback")
		},
	}, testLogger())

	obs.HandleMessage("STATE/SCADA01", []byte(`{"online":true,"timestamp":1700000000000}`))
	assert.Equal(t, []string{"SCADA01"}, states)
}

func TestValidationDisabled(t *testing.T) {
	w := &warnings{}
	obs := NewObserver(ObserverConfig{
		ValidateSequence: false,
		LogCallback:      w.callback,
	}, testLogger())

	obs.HandleMessage("spBv1.0/Energy/NDATA/Gateway01", dataBytes(t, 9, 1, 21.0))
	assert.Empty(t, w.list())
	_, ok := obs.NodeState("Energy", "Gateway01")
	assert.False(t, ok)
}

func TestForget(t *testing.T) {
	obs, _, _ := newTestObserver(t)
	obs.HandleMessage("spBv1.0/Energy/NBIRTH/Gateway01", birthBytes(t, 1))

	_, ok := obs.NodeState("Energy", "Gateway01")
	require.True(t, ok)

	obs.Forget("Energy", "Gateway01")
	_, ok = obs.NodeState("Energy", "Gateway01")
	assert.False(t, ok)
}
