package edge

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotedgekit/go-sparkplugb/payload"
	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/sperr"
	"github.com/iotedgekit/go-sparkplugb/topic"
	"github.com/iotedgekit/go-sparkplugb/transport/transporttest"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.Level = logrus.PanicLevel
	return log
}

func newTestNode(t *testing.T, mutate func(*Config)) (*Node, *transporttest.Fake) {
	t.Helper()
	fake := transporttest.New()
	cfg := NewConfig("tcp://broker:1883", "Energy", "Gateway01")
	if mutate != nil {
		mutate(&cfg)
	}
	node, err := NewNode(cfg, fake, testLogger())
	require.NoError(t, err)
	return node, fake
}

func connectAndBirth(t *testing.T, node *Node, b *payload.Builder) {
	t.Helper()
	require.NoError(t, node.Connect(context.Background()))
	require.NoError(t, node.PublishBirth(context.Background(), b))
}

func decode(t *testing.T, raw []byte) *sparkplugb.Payload {
	t.Helper()
	var p sparkplugb.Payload
	require.NoError(t, sparkplugb.Unmarshal(raw, &p))
	return &p
}

func TestConnectArmsNDeathWill(t *testing.T) {
	node, fake := newTestNode(t, nil)
	require.NoError(t, node.Connect(context.Background()))

	assert.Equal(t, Connected, node.State())

	will := fake.LastWill()
	require.NotNil(t, will)
	assert.Equal(t, "spBv1.0/Energy/NDEATH/Gateway01", will.Topic)
	assert.Equal(t, byte(1), will.QoS)
	assert.False(t, will.Retain)

	bdSeq, ok := payload.BdSeqOf(decode(t, will.Payload))
	require.True(t, ok)
	assert.Equal(t, node.BdSeq(), bdSeq)
}

func TestConnectRequiresDisconnectedSession(t *testing.T) {
	node, _ := newTestNode(t, nil)
	require.NoError(t, node.Connect(context.Background()))
	err := node.Connect(context.Background())
	assert.True(t, sperr.IsKind(err, sperr.PreconditionViolated))
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	node, fake := newTestNode(t, nil)
	fake.ConnectErr = sperr.New(sperr.ConnectFailed, "refused")

	err := node.Connect(context.Background())
	assert.True(t, sperr.IsKind(err, sperr.ConnectFailed))
	assert.Equal(t, Disconnected, node.State())
}

// Birth seq: the serialized NBIRTH carries seq 0 and the internal counter
// reads 0 afterwards.
func TestPublishBirthSeqZero(t *testing.T) {
	node, fake := newTestNode(t, nil)
	connectAndBirth(t, node, payload.NewBuilder().AddMetricWithAlias("Temperature", 1, 20.5))

	pub, ok := fake.LastPublished()
	require.True(t, ok)
	assert.Equal(t, "spBv1.0/Energy/NBIRTH/Gateway01", pub.Topic)
	assert.False(t, pub.Retain)

	p := decode(t, pub.Payload)
	require.True(t, p.HasSeq())
	assert.Equal(t, uint64(0), p.GetSeq())
	assert.Equal(t, uint64(0), node.Seq())
}

// bdSeq presence: exactly one UInt64 bdSeq metric whose value matches the
// armed will.
func TestPublishBirthInsertsBdSeq(t *testing.T) {
	node, fake := newTestNode(t, nil)
	connectAndBirth(t, node, payload.NewBuilder().AddMetricWithAlias("Temperature", 1, 20.5))

	will := fake.LastWill()
	require.NotNil(t, will)
	willBdSeq, ok := payload.BdSeqOf(decode(t, will.Payload))
	require.True(t, ok)

	pub, _ := fake.LastPublished()
	p := decode(t, pub.Payload)
	require.Equal(t, 2, len(p.Metrics))

	var bdSeqMetrics []*sparkplugb.Payload_Metric
	for _, m := range p.Metrics {
		if m.GetName() == payload.BdSeqMetricName {
			bdSeqMetrics = append(bdSeqMetrics, m)
		}
	}
	require.Len(t, bdSeqMetrics, 1)
	assert.Equal(t, sparkplugb.DataType_UInt64.Number(), bdSeqMetrics[0].GetDatatype())
	assert.Equal(t, willBdSeq, bdSeqMetrics[0].GetLongValue())
}

func TestPublishBirthKeepsCallerBdSeq(t *testing.T) {
	node, fake := newTestNode(t, nil)
	require.NoError(t, node.Connect(context.Background()))

	b := payload.NewBuilder().AddBdSeqMetric(node.BdSeq())
	require.NoError(t, node.PublishBirth(context.Background(), b))

	pub, _ := fake.LastPublished()
	p := decode(t, pub.Payload)
	assert.Len(t, p.Metrics, 1)
}

func TestPublishBirthRequiresConnected(t *testing.T) {
	node, _ := newTestNode(t, nil)
	err := node.PublishBirth(context.Background(), payload.NewBuilder())
	assert.True(t, sperr.IsKind(err, sperr.NotConnected))
}

// Seq wrap: after NBIRTH, N data messages count 1,2,…,255,0,… and the final
// counter is N mod 256.
func TestSeqWrap(t *testing.T) {
	node, fake := newTestNode(t, nil)
	connectAndBirth(t, node, payload.NewBuilder().AddMetric("Temperature", 20.5))

	const n = 256
	for i := 1; i <= n; i++ {
		require.NoError(t, node.PublishData(context.Background(),
			payload.NewBuilder().AddMetric("Temperature", 20.5)))

		pub, _ := fake.LastPublished()
		p := decode(t, pub.Payload)
		assert.Equal(t, uint64(i%256), p.GetSeq())
	}
	assert.Equal(t, uint64(n%256), node.Seq())
}

func TestPublishDataRequiresBirth(t *testing.T) {
	node, _ := newTestNode(t, nil)
	require.NoError(t, node.Connect(context.Background()))

	err := node.PublishData(context.Background(), payload.NewBuilder().AddMetric("x", 1.0))
	assert.True(t, sperr.IsKind(err, sperr.PreconditionViolated))
}

func TestPublishDataKeepsExplicitSeq(t *testing.T) {
	node, fake := newTestNode(t, nil)
	connectAndBirth(t, node, payload.NewBuilder().AddMetric("x", 1.0))

	b := payload.NewBuilder().AddMetric("x", 2.0)
	b.SetSeq(200)
	require.NoError(t, node.PublishData(context.Background(), b))

	pub, _ := fake.LastPublished()
	assert.Equal(t, uint64(200), decode(t, pub.Payload).GetSeq())
	// The counter still advanced.
	assert.Equal(t, uint64(1), node.Seq())
}

// DBIRTH precondition: device operations fail before NBIRTH, DDATA fails
// before that device's DBIRTH.
func TestDevicePreconditions(t *testing.T) {
	node, _ := newTestNode(t, nil)
	require.NoError(t, node.Connect(context.Background()))

	err := node.PublishDeviceBirth(context.Background(), "dev1",
		payload.NewBuilder().AddMetric("x", 1.0))
	assert.True(t, sperr.IsKind(err, sperr.PreconditionViolated))

	require.NoError(t, node.PublishBirth(context.Background(), payload.NewBuilder()))

	err = node.PublishDeviceData(context.Background(), "dev1",
		payload.NewBuilder().AddMetric("x", 1.0))
	assert.True(t, sperr.IsKind(err, sperr.PreconditionViolated))

	err = node.PublishDeviceDeath(context.Background(), "dev1")
	assert.True(t, sperr.IsKind(err, sperr.PreconditionViolated))
}

// Node and device messages share one sequence: NBIRTH 0, DBIRTH 1, DDATA 2,
// NDATA 3, DDEATH 4.
func TestSharedSequenceAcrossNodeAndDevices(t *testing.T) {
	node, fake := newTestNode(t, nil)
	connectAndBirth(t, node, payload.NewBuilder().AddMetric("x", 1.0))

	require.NoError(t, node.PublishDeviceBirth(context.Background(), "dev1",
		payload.NewBuilder().AddMetricWithAlias("Flow", 1, 0.5)))
	require.NoError(t, node.PublishDeviceData(context.Background(), "dev1",
		payload.NewBuilder().AddMetricByAlias(1, 0.6)))
	require.NoError(t, node.PublishData(context.Background(),
		payload.NewBuilder().AddMetric("x", 2.0)))
	require.NoError(t, node.PublishDeviceDeath(context.Background(), "dev1"))

	published := fake.Published()
	require.Len(t, published, 5)

	wantTopics := []string{
		"spBv1.0/Energy/NBIRTH/Gateway01",
		"spBv1.0/Energy/DBIRTH/Gateway01/dev1",
		"spBv1.0/Energy/DDATA/Gateway01/dev1",
		"spBv1.0/Energy/NDATA/Gateway01",
		"spBv1.0/Energy/DDEATH/Gateway01/dev1",
	}
	for i, pub := range published {
		assert.Equal(t, wantTopics[i], pub.Topic)
		assert.Equal(t, uint64(i), decode(t, pub.Payload).GetSeq())
		assert.False(t, pub.Retain)
	}
}

func TestDeviceLifecycle(t *testing.T) {
	node, _ := newTestNode(t, nil)
	connectAndBirth(t, node, payload.NewBuilder())

	_, known := node.DeviceOnline("dev1")
	assert.False(t, known)

	require.NoError(t, node.PublishDeviceBirth(context.Background(), "dev1",
		payload.NewBuilder().AddMetric("Flow", 0.5)))
	online, known := node.DeviceOnline("dev1")
	assert.True(t, known)
	assert.True(t, online)

	require.NoError(t, node.PublishDeviceDeath(context.Background(), "dev1"))
	online, known = node.DeviceOnline("dev1")
	assert.True(t, known)
	assert.False(t, online)

	// DDATA after DDEATH needs a new DBIRTH.
	err := node.PublishDeviceData(context.Background(), "dev1",
		payload.NewBuilder().AddMetric("Flow", 0.7))
	assert.True(t, sperr.IsKind(err, sperr.PreconditionViolated))

	assert.Equal(t, []string{"dev1"}, node.Devices())
}

// bdSeq monotonicity: each rebirth reconnects with bdSeq+1, republishes the
// stored birth with the new bdSeq and seq 0, and resets the counter.
func TestRebirth(t *testing.T) {
	node, fake := newTestNode(t, nil)
	connectAndBirth(t, node, payload.NewBuilder().AddMetricWithAlias("Temperature", 1, 20.5))

	require.NoError(t, node.PublishData(context.Background(),
		payload.NewBuilder().AddMetric("Temperature", 21.0)))

	previousBdSeq := node.BdSeq()
	require.NoError(t, node.Rebirth(context.Background()))

	assert.Equal(t, Connected, node.State())
	assert.Equal(t, previousBdSeq+1, node.BdSeq())
	assert.Equal(t, uint64(0), node.Seq())
	assert.Equal(t, 2, fake.ConnectCount())

	// The re-armed will carries the new bdSeq.
	will := fake.LastWill()
	willBdSeq, ok := payload.BdSeqOf(decode(t, will.Payload))
	require.True(t, ok)
	assert.Equal(t, previousBdSeq+1, willBdSeq)

	// The replayed NBIRTH carries the new bdSeq, seq 0 and the old metrics.
	pub, _ := fake.LastPublished()
	assert.Equal(t, "spBv1.0/Energy/NBIRTH/Gateway01", pub.Topic)
	p := decode(t, pub.Payload)
	assert.Equal(t, uint64(0), p.GetSeq())
	bdSeq, ok := payload.BdSeqOf(p)
	require.True(t, ok)
	assert.Equal(t, previousBdSeq+1, bdSeq)

	var names []string
	for _, m := range p.Metrics {
		names = append(names, m.GetName())
	}
	assert.Contains(t, names, "Temperature")
}

func TestRebirthWithoutBirth(t *testing.T) {
	node, _ := newTestNode(t, nil)
	require.NoError(t, node.Connect(context.Background()))
	err := node.Rebirth(context.Background())
	assert.True(t, sperr.IsKind(err, sperr.PreconditionViolated))
}

func TestPublishDeathDisconnects(t *testing.T) {
	node, fake := newTestNode(t, nil)
	connectAndBirth(t, node, payload.NewBuilder())

	require.NoError(t, node.PublishDeath(context.Background()))
	assert.Equal(t, Disconnected, node.State())
	assert.False(t, fake.Connected())

	pub, _ := fake.LastPublished()
	assert.Equal(t, "spBv1.0/Energy/NDEATH/Gateway01", pub.Topic)
	bdSeq, ok := payload.BdSeqOf(decode(t, pub.Payload))
	require.True(t, ok)
	assert.Equal(t, node.BdSeq(), bdSeq)

	// Idempotent once disconnected.
	count := len(fake.Published())
	require.NoError(t, node.PublishDeath(context.Background()))
	assert.Len(t, fake.Published(), count)
}

// NCMD delivery: a registered command callback fires with the payload the
// host sent.
func TestCommandCallback(t *testing.T) {
	received := make(chan *sparkplugb.Payload, 1)
	node, fake := newTestNode(t, func(cfg *Config) {
		cfg.CommandCallback = func(t topic.Topic, p *sparkplugb.Payload) {
			received <- p
		}
	})
	require.NoError(t, node.Connect(context.Background()))

	subs := fake.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, "spBv1.0/Energy/NCMD/Gateway01", subs[0].Filter)
	assert.Equal(t, byte(1), subs[0].QoS)

	cmd, err := payload.NewBuilder().AddMetric(payload.NodeControlRebirth, true).Build()
	require.NoError(t, err)
	fake.Deliver("spBv1.0/Energy/NCMD/Gateway01", cmd)

	select {
	case p := <-received:
		require.Len(t, p.Metrics, 1)
		assert.Equal(t, payload.NodeControlRebirth, p.Metrics[0].GetName())
		assert.True(t, p.Metrics[0].GetBooleanValue())
	default:
		t.Fatal("command callback not invoked")
	}

	// Traffic for other nodes is ignored.
	fake.Deliver("spBv1.0/Energy/NCMD/OtherNode", cmd)
	assert.Empty(t, received)
}

func TestNoSubscriptionWithoutCallback(t *testing.T) {
	node, fake := newTestNode(t, nil)
	require.NoError(t, node.Connect(context.Background()))
	assert.Empty(t, fake.Subscriptions())
}

func TestConnectionLostStartsNewSession(t *testing.T) {
	node, fake := newTestNode(t, nil)
	connectAndBirth(t, node, payload.NewBuilder())

	fake.LoseConnection(errors.New("broken pipe"))
	assert.Equal(t, Disconnected, node.State())

	// Data may not resume without a fresh connect and birth.
	err := node.PublishData(context.Background(), payload.NewBuilder().AddMetric("x", 1.0))
	assert.True(t, sperr.IsKind(err, sperr.NotConnected))

	previousBdSeq := node.BdSeq()
	require.NoError(t, node.Connect(context.Background()))
	assert.Equal(t, previousBdSeq+1, node.BdSeq())

	err = node.PublishData(context.Background(), payload.NewBuilder().AddMetric("x", 1.0))
	assert.True(t, sperr.IsKind(err, sperr.PreconditionViolated))
}

func TestStoreAndForwardReplay(t *testing.T) {
	node, fake := newTestNode(t, func(cfg *Config) {
		cfg.StoreAndForward = true
	})
	connectAndBirth(t, node, payload.NewBuilder())
	require.NoError(t, node.PublishDeviceBirth(context.Background(), "dev1",
		payload.NewBuilder().AddMetricWithAlias("Flow", 1, 0.5)))

	// Drop the connection and fail a publish; the metrics buffer.
	fake.LoseConnection(errors.New("broken pipe"))
	err := node.PublishDeviceData(context.Background(), "dev1",
		payload.NewBuilder().AddMetric("Flow", 0.7))
	assert.True(t, sperr.IsKind(err, sperr.NotConnected))

	// New session: connect, NBIRTH, DBIRTH — the buffered metrics replay
	// as historical DDATA after the device's birth.
	require.NoError(t, node.Connect(context.Background()))
	require.NoError(t, node.PublishBirth(context.Background(), payload.NewBuilder()))
	before := len(fake.Published())
	require.NoError(t, node.PublishDeviceBirth(context.Background(), "dev1",
		payload.NewBuilder().AddMetricWithAlias("Flow", 1, 0.5)))

	published := fake.Published()[before:]
	require.Len(t, published, 2)
	assert.Equal(t, "spBv1.0/Energy/DBIRTH/Gateway01/dev1", published[0].Topic)
	assert.Equal(t, "spBv1.0/Energy/DDATA/Gateway01/dev1", published[1].Topic)

	replayed := decode(t, published[1].Payload)
	require.Len(t, replayed.Metrics, 1)
	assert.Equal(t, "Flow", replayed.Metrics[0].GetName())
	assert.True(t, replayed.Metrics[0].GetIsHistorical())

	node.Close(context.Background())
}

func TestCloseSendsDeath(t *testing.T) {
	node, fake := newTestNode(t, nil)
	connectAndBirth(t, node, payload.NewBuilder())

	require.NoError(t, node.Close(context.Background()))
	pub, _ := fake.LastPublished()
	assert.Equal(t, "spBv1.0/Energy/NDEATH/Gateway01", pub.Topic)
	assert.Equal(t, Disconnected, node.State())
}

func TestNewNodeValidatesIdentity(t *testing.T) {
	_, err := NewNode(Config{GroupID: "Energy"}, transporttest.New(), testLogger())
	assert.True(t, sperr.IsKind(err, sperr.PreconditionViolated))
}
