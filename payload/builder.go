// Package payload provides the builder and parser for Sparkplug B metric
// payloads on top of the sparkplugb wire codec.
package payload

import (
	"time"

	"github.com/google/uuid"

	"github.com/iotedgekit/go-sparkplugb/sparkplugb"
	"github.com/iotedgekit/go-sparkplugb/sperr"
)

// Names of the Node Control metrics a host application writes via NCMD.
const (
	NodeControlRebirth    = "Node Control/Rebirth"
	NodeControlReboot     = "Node Control/Reboot"
	NodeControlNextServer = "Node Control/Next Server"
	NodeControlScanRate   = "Node Control/Scan Rate"
)

// BdSeqMetricName is the reserved metric pairing NBIRTH with NDEATH.
const BdSeqMetricName = "bdSeq"

// Builder assembles a Sparkplug B payload. Add calls chain; a type the
// builder cannot map to a Sparkplug datatype is remembered and reported by
// Build. The builder is not safe for concurrent mutation.
type Builder struct {
	payload sparkplugb.Payload
	hasSeq  bool
	err     error
}

// NewBuilder returns a builder whose payload timestamp is set to now.
func NewBuilder() *Builder {
	b := &Builder{}
	ts := nowMillis()
	b.payload.Timestamp = &ts
	return b
}

func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// SetTimestamp overrides the payload-level timestamp (ms since epoch).
func (b *Builder) SetTimestamp(ms uint64) *Builder {
	b.payload.Timestamp = &ms
	return b
}

// SetSeq sets the payload sequence number. Sessions treat a payload without
// an explicit seq as "stamp for me".
func (b *Builder) SetSeq(seq uint64) *Builder {
	b.payload.Seq = &seq
	b.hasSeq = true
	return b
}

// HasSeq reports whether SetSeq was called.
func (b *Builder) HasSeq() bool { return b.hasSeq }

// SetUUID sets the payload uuid field.
func (b *Builder) SetUUID(id string) *Builder {
	b.payload.Uuid = &id
	return b
}

// SetRandomUUID stamps a fresh random uuid on the payload.
func (b *Builder) SetRandomUUID() *Builder {
	return b.SetUUID(uuid.NewString())
}

// SetBody attaches an opaque body to the payload.
func (b *Builder) SetBody(body []byte) *Builder {
	b.payload.Body = body
	return b
}

// AddMetric appends a named metric; the datatype tag is inferred from the
// Go type of value and the metric timestamp is stamped with now.
func (b *Builder) AddMetric(name string, value any) *Builder {
	return b.add(name, nil, value, nowMillis(), false)
}

// AddMetricWithAlias appends a named metric that also declares an alias;
// used in birth payloads to establish the alias mapping.
func (b *Builder) AddMetricWithAlias(name string, alias uint64, value any) *Builder {
	return b.add(name, &alias, value, nowMillis(), false)
}

// AddMetricByAlias appends an alias-only metric; legal in data payloads
// after a birth declared the alias.
func (b *Builder) AddMetricByAlias(alias uint64, value any) *Builder {
	return b.add("", &alias, value, nowMillis(), false)
}

// AddMetricAt appends a named metric with an explicit timestamp.
func (b *Builder) AddMetricAt(name string, value any, timestampMs uint64) *Builder {
	return b.add(name, nil, value, timestampMs, false)
}

// AddHistoricalMetric appends a named metric carrying an explicit timestamp
// and the is_historical flag, for store-and-forward replay.
func (b *Builder) AddHistoricalMetric(name string, value any, timestampMs uint64) *Builder {
	return b.add(name, nil, value, timestampMs, true)
}

// AddNullMetric appends a named metric with is_null set and no value slot.
func (b *Builder) AddNullMetric(name string, dt sparkplugb.DataType) *Builder {
	ts := nowMillis()
	isNull := true
	tag := dt.Number()
	b.payload.Metrics = append(b.payload.Metrics, &sparkplugb.Payload_Metric{
		Name:      &name,
		Timestamp: &ts,
		Datatype:  &tag,
		IsNull:    &isNull,
	})
	return b
}

// AddUUIDMetric appends a UUID-typed metric.
func (b *Builder) AddUUIDMetric(name string, id uuid.UUID) *Builder {
	ts := nowMillis()
	tag := sparkplugb.DataType_UUID.Number()
	b.payload.Metrics = append(b.payload.Metrics, &sparkplugb.Payload_Metric{
		Name:      &name,
		Timestamp: &ts,
		Datatype:  &tag,
		Value:     &sparkplugb.Payload_Metric_StringValue{StringValue: id.String()},
	})
	return b
}

// AddBdSeqMetric appends the reserved bdSeq metric (UInt64).
func (b *Builder) AddBdSeqMetric(bdSeq uint64) *Builder {
	ts := nowMillis()
	name := BdSeqMetricName
	tag := sparkplugb.DataType_UInt64.Number()
	b.payload.Metrics = append(b.payload.Metrics, &sparkplugb.Payload_Metric{
		Name:      &name,
		Timestamp: &ts,
		Datatype:  &tag,
		Value:     &sparkplugb.Payload_Metric_LongValue{LongValue: bdSeq},
	})
	return b
}

// AddNodeControlMetrics appends the four Node Control metrics a SCADA host
// writes through NCMD, all initialized to their idle values.
func (b *Builder) AddNodeControlMetrics(scanRateMs int64) *Builder {
	return b.
		AddMetric(NodeControlRebirth, false).
		AddMetric(NodeControlReboot, false).
		AddMetric(NodeControlNextServer, false).
		AddMetric(NodeControlScanRate, scanRateMs)
}

func (b *Builder) add(name string, alias *uint64, value any, ts uint64, historical bool) *Builder {
	dt, slot, err := metricValue(value)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	tag := dt.Number()
	m := &sparkplugb.Payload_Metric{
		Alias:     alias,
		Timestamp: &ts,
		Datatype:  &tag,
		Value:     slot,
	}
	if name != "" {
		m.Name = &name
	}
	if historical {
		h := true
		m.IsHistorical = &h
	}
	b.payload.Metrics = append(b.payload.Metrics, m)
	return b
}

// Payload exposes the payload under construction for in-place adjustment
// (seq stamping, bdSeq injection) by the session types.
func (b *Builder) Payload() *sparkplugb.Payload { return &b.payload }

// Err returns the first add error, if any.
func (b *Builder) Err() error { return b.err }

// Build serializes the payload into the Tahu wire format.
func (b *Builder) Build() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	raw, err := sparkplugb.Marshal(&b.payload)
	if err != nil {
		return nil, sperr.Wrap(sperr.PayloadDecodeFailed, err, "encode payload")
	}
	return raw, nil
}
