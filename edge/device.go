package edge

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/iotedgekit/go-sparkplugb/internal/metrics"
	"github.com/iotedgekit/go-sparkplugb/payload"
	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/sperr"
	"github.com/iotedgekit/go-sparkplugb/topic"
)

// deviceState is the per-device entry of the session's registry. Created on
// the first DBIRTH; an explicit DDEATH only flips online so the stored birth
// remains available.
type deviceState struct {
	lastBirth []byte
	online    bool
}

// PublishDeviceBirth publishes a DBIRTH for the device, registers it and
// marks it online. The payload consumes the next slot of the node's shared
// sequence. Buffered store-and-forward metrics for the device are replayed
// afterwards, flagged historical.
func (n *Node) PublishDeviceBirth(ctx context.Context, deviceID string, b *payload.Builder) error {
	if deviceID == "" {
		return sperr.New(sperr.PreconditionViolated, "device id is required")
	}
	n.mu.Lock()
	if n.state != Connected {
		n.mu.Unlock()
		return sperr.New(sperr.NotConnected, "publish DBIRTH")
	}
	if !n.birthSent {
		n.mu.Unlock()
		return sperr.New(sperr.PreconditionViolated, "DBIRTH for %q before NBIRTH", deviceID)
	}

	n.stampSeq(b)
	raw, err := b.Build()
	if err != nil {
		n.mu.Unlock()
		return err
	}
	t := topic.DeviceTopic(n.cfg.GroupID, topic.DBIRTH, n.cfg.EdgeNodeID, deviceID).String()
	qos := n.cfg.DataQoS
	n.mu.Unlock()

	if err := n.tr.Publish(ctx, t, raw, qos, false); err != nil {
		return err
	}

	n.mu.Lock()
	n.devices[deviceID] = &deviceState{lastBirth: raw, online: true}
	n.mu.Unlock()
	metrics.PublishedMessages.WithLabelValues(string(topic.DBIRTH)).Inc()

	if n.saf != nil {
		n.replayBuffered(ctx, deviceID)
	}
	return nil
}

// PublishDeviceData publishes a DDATA for a device that has had its DBIRTH
// in this session, stamping the next shared sequence number unless the
// caller set one. With store-and-forward enabled a failed publish buffers
// the metrics for replay after the device's next birth.
func (n *Node) PublishDeviceData(ctx context.Context, deviceID string, b *payload.Builder) error {
	n.mu.Lock()
	if n.state != Connected {
		n.mu.Unlock()
		if n.saf != nil {
			n.saf.add(deviceID, b.Payload())
		}
		return sperr.New(sperr.NotConnected, "publish DDATA for %q", deviceID)
	}
	if !n.birthSent {
		n.mu.Unlock()
		return sperr.New(sperr.PreconditionViolated, "DDATA for %q before NBIRTH", deviceID)
	}
	dev, ok := n.devices[deviceID]
	if !ok || !dev.online {
		n.mu.Unlock()
		return sperr.New(sperr.PreconditionViolated, "DDATA for %q before DBIRTH", deviceID)
	}

	n.stampSeq(b)
	raw, err := b.Build()
	if err != nil {
		n.mu.Unlock()
		return err
	}
	t := topic.DeviceTopic(n.cfg.GroupID, topic.DDATA, n.cfg.EdgeNodeID, deviceID).String()
	qos := n.cfg.DataQoS
	n.mu.Unlock()

	if err := n.tr.Publish(ctx, t, raw, qos, false); err != nil {
		if n.saf != nil {
			n.saf.add(deviceID, b.Payload())
		}
		return err
	}
	metrics.PublishedMessages.WithLabelValues(string(topic.DDATA)).Inc()
	return nil
}

// PublishDeviceDeath publishes an empty-metrics DDEATH for the device and
// marks it offline. The registry entry is retained so its alias mapping
// survives until the session ends.
func (n *Node) PublishDeviceDeath(ctx context.Context, deviceID string) error {
	n.mu.Lock()
	if n.state != Connected {
		n.mu.Unlock()
		return sperr.New(sperr.NotConnected, "publish DDEATH for %q", deviceID)
	}
	dev, ok := n.devices[deviceID]
	if !ok {
		n.mu.Unlock()
		return sperr.New(sperr.PreconditionViolated, "DDEATH for unknown device %q", deviceID)
	}

	b := payload.NewBuilder()
	n.stampSeq(b)
	raw, err := b.Build()
	if err != nil {
		n.mu.Unlock()
		return err
	}
	t := topic.DeviceTopic(n.cfg.GroupID, topic.DDEATH, n.cfg.EdgeNodeID, deviceID).String()
	qos := n.cfg.DataQoS
	n.mu.Unlock()

	if err := n.tr.Publish(ctx, t, raw, qos, false); err != nil {
		return err
	}

	n.mu.Lock()
	dev.online = false
	n.mu.Unlock()
	metrics.PublishedMessages.WithLabelValues(string(topic.DDEATH)).Inc()
	return nil
}

// DeviceOnline reports whether the device is registered and online.
func (n *Node) DeviceOnline(deviceID string) (online, known bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	dev, ok := n.devices[deviceID]
	if !ok {
		return false, false
	}
	return dev.online, true
}

// Devices lists the registered device ids.
func (n *Node) Devices() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.devices))
	for id := range n.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// replayBuffered republishes buffered metrics of one device as historical
// DDATA. Entries that fail again go back into the buffer until their TTL
// runs out.
func (n *Node) replayBuffered(ctx context.Context, deviceID string) {
	buffered := n.saf.take(deviceID)
	for i, bp := range buffered {
		b := payload.NewBuilder()
		for _, m := range bp.GetMetrics() {
			h := true
			m.IsHistorical = &h
			b.Payload().Metrics = append(b.Payload().Metrics, m)
		}
		if err := n.PublishDeviceData(ctx, deviceID, b); err != nil {
			// The failed payload re-buffered itself; keep the rest queued too.
			for _, rest := range buffered[i+1:] {
				n.saf.add(deviceID, rest)
			}
			n.log.WithField("device", deviceID).Warnf("Store-and-forward replay failed: %v", err)
			return
		}
		n.log.WithField("device", deviceID).Debugln("Replayed buffered device data")
	}
}

// forwardBuffer is the TTL-bounded store-and-forward queue. Keys are a
// monotonic insertion counter so replay preserves order.
type forwardBuffer struct {
	mu    sync.Mutex
	next  uint64
	cache *ttlcache.Cache[uint64, bufferedPayload]
}

type bufferedPayload struct {
	deviceID string
	payload  *sparkplugb.Payload
}

func newForwardBuffer(ttl time.Duration) *forwardBuffer {
	cache := ttlcache.New[uint64, bufferedPayload](
		ttlcache.WithTTL[uint64, bufferedPayload](ttl),
	)
	go cache.Start()
	return &forwardBuffer{cache: cache}
}

func (f *forwardBuffer) add(deviceID string, p *sparkplugb.Payload) {
	f.mu.Lock()
	key := f.next
	f.next++
	f.mu.Unlock()
	// Drop the stamped seq; replay stamps a fresh one.
	p.Seq = nil
	f.cache.Set(key, bufferedPayload{deviceID: deviceID, payload: p}, ttlcache.DefaultTTL)
	metrics.CachedMessages.Set(float64(f.cache.Len()))
}

// take removes and returns the buffered payloads of one device in insertion
// order.
func (f *forwardBuffer) take(deviceID string) []*sparkplugb.Payload {
	type entry struct {
		key     uint64
		payload *sparkplugb.Payload
	}
	var entries []entry
	for key, item := range f.cache.Items() {
		if item.Value().deviceID == deviceID {
			entries = append(entries, entry{key: key, payload: item.Value().payload})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	out := make([]*sparkplugb.Payload, 0, len(entries))
	for _, e := range entries {
		f.cache.Delete(e.key)
		out = append(out, e.payload)
	}
	metrics.CachedMessages.Set(float64(f.cache.Len()))
	return out
}

func (f *forwardBuffer) stop() { f.cache.Stop() }
